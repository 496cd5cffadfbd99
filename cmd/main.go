package main

import (
	"context"
	"errors"
	"fmt"
	"net"
	"os"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
	"github.com/meghashyamc/lodapi/api"
	"github.com/meghashyamc/lodapi/config"
	"github.com/meghashyamc/lodapi/daemon"
	"github.com/meghashyamc/lodapi/logger"
	"github.com/urfave/cli/v2"
)

const stopTimeout = 30 * time.Second

var errNoAction = errors.New("either --debug or one of start, stop, restart is required")

func main() {
	godotenv.Load()

	if err := newApp().Run(os.Args); err != nil {
		fmt.Fprintf(os.Stderr, "%s\n", err)
		os.Exit(1)
	}
}

func newApp() *cli.App {
	return &cli.App{
		Name:      "lodapi",
		Usage:     "REST API over an Elasticsearch index of linked open data",
		UsageText: "lodapi [-c config] [-d] [start|stop|restart]",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "config",
				Aliases: []string{"c"},
				Usage:   "Path to the config file",
			},
			&cli.BoolFlag{
				Name:    "debug",
				Aliases: []string{"d"},
				Usage:   "Run in the foreground on the debug host and port, logging to stderr",
			},
		},
		Action: func(c *cli.Context) error {
			if !c.Bool("debug") {
				cli.ShowAppHelp(c)
				return errNoAction
			}
			return runDebug(c)
		},
		Commands: []*cli.Command{
			{
				Name:   "start",
				Usage:  "Start the API and record its pid",
				Action: startCommand,
			},
			{
				Name:   "stop",
				Usage:  "Stop the API named in the pidfile",
				Action: stopCommand,
			},
			{
				Name:  "restart",
				Usage: "Stop the running API, then start it again",
				Action: func(c *cli.Context) error {
					if c.Bool("debug") {
						return runDebug(c)
					}
					if err := stopCommand(c); err != nil {
						return err
					}
					return startCommand(c)
				},
			},
		},
	}
}

func loadConfig(c *cli.Context) (*config.Config, error) {
	cfg, err := config.Load(c.String("config"))
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}
	return cfg, nil
}

func runDebug(c *cli.Context) error {
	cfg, err := loadConfig(c)
	if err != nil {
		return err
	}

	gin.SetMode(gin.DebugMode)
	log := logger.New(os.Stderr, "debug")
	log.Info("running in debug mode", "config", cfg.File())

	addr := net.JoinHostPort(cfg.GetDebugHost(), strconv.Itoa(cfg.GetDebugPort()))
	return api.Run(c.Context, cfg, log, addr)
}

func startCommand(c *cli.Context) error {
	if c.Bool("debug") {
		return runDebug(c)
	}

	cfg, err := loadConfig(c)
	if err != nil {
		return err
	}

	logfile, logFallback := daemon.Resolve(cfg.GetLogfile(), daemon.DefaultLogfile)
	pidfile, pidFallback := daemon.Resolve(cfg.GetPidfile(), daemon.DefaultPidfile)

	file, err := daemon.OpenLog(logfile)
	if err != nil {
		return err
	}
	defer file.Close()

	gin.SetMode(gin.ReleaseMode)
	log := logger.New(file, cfg.GetLogLevel())
	if logFallback {
		log.Warn("logfile is not writable, using fallback", "logfile", cfg.GetLogfile(), "fallback", logfile)
	}
	if pidFallback {
		log.Warn("pidfile is not writable, using fallback", "pidfile", cfg.GetPidfile(), "fallback", pidfile)
	}

	if err := daemon.Acquire(pidfile); err != nil {
		log.Error("could not start", "pidfile", pidfile, "err", err.Error())
		return err
	}
	defer func() {
		if err := daemon.RemovePID(pidfile); err != nil {
			log.Error("could not remove pidfile", "pidfile", pidfile, "err", err.Error())
		}
	}()

	log.Info("starting", "config", cfg.File(), "pid", os.Getpid(), "pidfile", pidfile)
	addr := net.JoinHostPort(cfg.GetAPIHost(), strconv.Itoa(cfg.GetAPIPort()))
	return api.Run(c.Context, cfg, log, addr)
}

// stopCommand runs the debug server instead when --debug is set, like the
// other actions.
func stopCommand(c *cli.Context) error {
	if c.Bool("debug") {
		return runDebug(c)
	}

	cfg, err := loadConfig(c)
	if err != nil {
		return err
	}

	pidfile, _ := daemon.Resolve(cfg.GetPidfile(), daemon.DefaultPidfile)
	log := logger.New(os.Stderr, cfg.GetLogLevel())

	ctx, cancel := context.WithTimeout(c.Context, stopTimeout)
	defer cancel()

	if err := daemon.Stop(ctx, pidfile); err != nil {
		if errors.Is(err, daemon.ErrNotRunning) {
			log.Warn("not running", "pidfile", pidfile, "err", err.Error())
			return nil
		}
		log.Error("could not stop", "pidfile", pidfile, "err", err.Error())
		return err
	}

	log.Info("stopped", "pidfile", pidfile)
	return nil
}
