package api

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/meghashyamc/lodapi/api/handlers"
	"github.com/meghashyamc/lodapi/config"
	"github.com/meghashyamc/lodapi/db/searchdb"
	"github.com/meghashyamc/lodapi/logger"
	"github.com/meghashyamc/lodapi/metrics"
	"github.com/meghashyamc/lodapi/validation"
)

const (
	healthPath  = "/health"
	metricsPath = "/metrics"
)

func setupRoutes(router *gin.Engine, cfg *config.Config, logger logger.Logger, searchDB searchdb.DB, validator *validation.Validator) {
	router.GET(healthPath, health())
	router.GET(metricsPath, metrics.Handler())

	handlers.SetupSearch(router, cfg, logger, searchDB, validator)
	handlers.SetupExplore(router, cfg, logger, searchDB, validator)
	handlers.SetupResource(router, cfg, logger, searchDB, validator)
}

func health() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.String(http.StatusOK, "OK")
	}
}

func newRouter(cfg *config.Config, logger logger.Logger) (*gin.Engine, error) {
	router := gin.New()
	router.UseRawPath = true
	if err := router.SetTrustedProxies(cfg.GetTrustedProxies()); err != nil {
		logger.Error("invalid trusted proxies", "trusted_proxies", cfg.GetTrustedProxies(), "err", err.Error())
		return nil, err
	}
	router.Use(gin.Recovery())
	router.Use(corsMiddleware(cfg.GetCORSAllowOrigins()))
	router.Use(requestIDMiddleware())
	router.Use(loggingMiddleware(logger))
	router.Use(metrics.Middleware())

	requestsPerSecond, burst := cfg.GetRateLimit()
	router.Use(rateLimitMiddleware(logger, requestsPerSecond, burst))

	return router, nil
}
