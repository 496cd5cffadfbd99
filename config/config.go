package config

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/viper"
)

const keyEnv = "ENV"
const envLocal = "local"

const (
	keyAPIHost               = "apihost"
	keyAPIPort               = "apiport"
	keyDebugHost             = "debug_host"
	keyDebugPort             = "debug_port"
	keyLogfile               = "logfile"
	keyPidfile               = "pidfile"
	keyLogLevel              = "log_level"
	keyESAddresses           = "elasticsearch.addresses"
	keyESUsername            = "elasticsearch.username"
	keyESPassword            = "elasticsearch.password"
	keyESTimeout             = "elasticsearch.timeout"
	keyIndices               = "indices"
	keySearchFields          = "search.fields"
	keySearchDefaultSize     = "search.default_size"
	keySearchMaxSize         = "search.max_size"
	keyRateLimitRPS          = "ratelimit.requests_per_second"
	keyRateLimitBurst        = "ratelimit.burst"
	keyCORSAllowOrigins      = "cors.allow_origins"
	keyTrustedProxies        = "trusted_proxies"
	keyBreakerMaxFailures    = "breaker.max_failures"
	keyBreakerOpenTimeout    = "breaker.open_timeout"
	defaultResourcesEntity   = "resources"
	defaultLogfileName       = "/var/log/lod-api.log"
	defaultPidfileName       = "/var/run/lod-api.pid"
	defaultElasticsearchAddr = "http://localhost:9200"
)

// defaultConfigFile is used when no config file is given on the command line.
var defaultConfigFile = "/etc/lod-apiconfig.yml"

type Config struct {
	config *viper.Viper
	file   string
}

// Load reads configFile, or falls back to the system-wide config file, then
// to config/config.<ENV>.yaml in the project, then to environment variables
// alone. A configFile that does not exist is an error.
func Load(configFile string) (*Config, error) {

	configPath, err := resolveConfigPath(configFile)
	if err != nil {
		return nil, err
	}

	viperConfig := viper.New()
	setDefaults(viperConfig)
	if len(configPath) > 0 {
		viperConfig.SetConfigFile(configPath)
		if err := viperConfig.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("error reading config file %s: %w", configPath, err)
		}
	}
	viperConfig.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	viperConfig.AutomaticEnv()

	cfg := &Config{
		config: viperConfig,
		file:   configPath,
	}

	return cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault(keyAPIHost, "0.0.0.0")
	v.SetDefault(keyAPIPort, 8080)
	v.SetDefault(keyDebugHost, "127.0.0.1")
	v.SetDefault(keyDebugPort, 8080)
	v.SetDefault(keyLogfile, defaultLogfileName)
	v.SetDefault(keyPidfile, defaultPidfileName)
	v.SetDefault(keyLogLevel, "info")
	v.SetDefault(keyESAddresses, []string{defaultElasticsearchAddr})
	v.SetDefault(keyESTimeout, 10*time.Second)
	v.SetDefault(keyIndices, map[string]any{defaultResourcesEntity: defaultResourcesEntity})
	v.SetDefault(keySearchFields, []string{
		"preferredName",
		"description",
		"mentions.preferredName",
		"isPartOf.name",
		"about.name",
		"about.keywords",
	})
	v.SetDefault(keySearchDefaultSize, 10)
	v.SetDefault(keySearchMaxSize, 100)
	v.SetDefault(keyRateLimitRPS, 0)
	v.SetDefault(keyRateLimitBurst, 20)
	v.SetDefault(keyCORSAllowOrigins, []string{"*"})
	v.SetDefault(keyBreakerMaxFailures, 5)
	v.SetDefault(keyBreakerOpenTimeout, 30*time.Second)
}

// File returns the config file that was read, if any.
func (c *Config) File() string {
	return c.file
}

func (c *Config) GetAPIHost() string {
	return c.config.GetString(keyAPIHost)
}

func (c *Config) GetAPIPort() int {
	return c.config.GetInt(keyAPIPort)
}

func (c *Config) GetDebugHost() string {
	return c.config.GetString(keyDebugHost)
}

func (c *Config) GetDebugPort() int {
	return c.config.GetInt(keyDebugPort)
}

func (c *Config) GetLogfile() string {
	return c.config.GetString(keyLogfile)
}

func (c *Config) GetPidfile() string {
	return c.config.GetString(keyPidfile)
}

func (c *Config) GetLogLevel() string {
	return c.config.GetString(keyLogLevel)
}

func (c *Config) GetElasticsearchAddresses() []string {
	return splitList(c.config.GetStringSlice(keyESAddresses))
}

func (c *Config) GetElasticsearchUsername() string {
	return c.config.GetString(keyESUsername)
}

func (c *Config) GetElasticsearchPassword() string {
	return c.config.GetString(keyESPassword)
}

func (c *Config) GetElasticsearchTimeout() time.Duration {
	return c.config.GetDuration(keyESTimeout)
}

// GetIndices maps entity names (as used in URLs) to index names.
func (c *Config) GetIndices() map[string]string {
	indices := c.config.GetStringMapString(keyIndices)
	for entity := range indices {
		if index := c.config.GetString(keyIndices + "." + entity); len(index) > 0 {
			indices[entity] = index
		}
	}
	return indices
}

func (c *Config) GetSearchFields() []string {
	return splitList(c.config.GetStringSlice(keySearchFields))
}

func (c *Config) GetSearchDefaultSize() int {
	return c.config.GetInt(keySearchDefaultSize)
}

func (c *Config) GetSearchMaxSize() int {
	return c.config.GetInt(keySearchMaxSize)
}

// GetRateLimit returns requests per second and burst per client. A rate of
// zero disables limiting.
func (c *Config) GetRateLimit() (float64, int) {
	return c.config.GetFloat64(keyRateLimitRPS), c.config.GetInt(keyRateLimitBurst)
}

func (c *Config) GetCORSAllowOrigins() []string {
	return splitList(c.config.GetStringSlice(keyCORSAllowOrigins))
}

// GetTrustedProxies lists the proxy addresses or CIDRs whose forwarding
// headers are believed. Empty means the peer address is the client.
func (c *Config) GetTrustedProxies() []string {
	return splitList(c.config.GetStringSlice(keyTrustedProxies))
}

func (c *Config) GetBreakerMaxFailures() uint32 {
	return c.config.GetUint32(keyBreakerMaxFailures)
}

func (c *Config) GetBreakerOpenTimeout() time.Duration {
	return c.config.GetDuration(keyBreakerOpenTimeout)
}

// splitList also accepts comma separated values, which is how lists arrive
// from environment variables.
func splitList(values []string) []string {
	var result []string
	for _, value := range values {
		for _, item := range strings.Split(value, ",") {
			if item = strings.TrimSpace(item); len(item) > 0 {
				result = append(result, item)
			}
		}
	}
	return result
}

func resolveConfigPath(configFile string) (string, error) {
	if len(configFile) > 0 {
		if info, err := os.Stat(configFile); err != nil || info.IsDir() {
			return "", fmt.Errorf("the provided config file (%s) does not exist", configFile)
		}
		return configFile, nil
	}

	if info, err := os.Stat(defaultConfigFile); err == nil && !info.IsDir() {
		return defaultConfigFile, nil
	}

	env := os.Getenv(keyEnv)
	if len(env) == 0 {
		env = envLocal
	}
	configPath, err := getConfigPath(env)
	if err != nil {
		return "", nil
	}

	return configPath, nil
}

func getProjectRoot() (string, error) {
	currentDir, err := os.Getwd()
	if err != nil {
		return "", fmt.Errorf("failed to get current working directory: %w", err)
	}

	for {
		configDir := filepath.Join(currentDir, "config")
		if info, err := os.Stat(configDir); err == nil && info.IsDir() {
			return currentDir, nil
		}

		parent := filepath.Dir(currentDir)

		if parent == currentDir {
			break
		}

		currentDir = parent
	}

	return "", fmt.Errorf("could not find project root (directory containing 'config' folder)")
}

func getConfigPath(env string) (string, error) {
	configFile := fmt.Sprintf("config.%s.yaml", env)

	projectRoot, err := getProjectRoot()
	if err != nil {
		slog.Warn("failed to find project root with config directory, will use environment variables instead", "err", err.Error())
		return "", fmt.Errorf("failed to find project root: %w", err)
	}
	configPath := filepath.Join(projectRoot, "config", configFile)
	if _, err := os.Stat(configPath); os.IsNotExist(err) {
		slog.Warn("failed to find config file within config directory, will use environment variables instead", "err", err.Error())
		return "", fmt.Errorf("config file does not exist: %s", configPath)
	}

	return configPath, nil
}
