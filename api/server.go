package api

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/meghashyamc/lodapi/config"
	"github.com/meghashyamc/lodapi/db/searchdb"
	"github.com/meghashyamc/lodapi/logger"
	"github.com/meghashyamc/lodapi/validation"
)

const (
	shutdownTimeout = 10 * time.Second
	pingTimeout     = 5 * time.Second
)

type server struct {
	cfg        *config.Config
	addr       string
	router     *gin.Engine
	httpServer *http.Server
	searchdb   searchdb.DB
	validator  *validation.Validator
	logger     logger.Logger
}

// Run serves the API on addr until ctx is cancelled or the process receives
// SIGINT or SIGTERM.
func Run(ctx context.Context, cfg *config.Config, logger logger.Logger, addr string) error {
	ctx, cancel := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer cancel()

	s := &server{
		cfg:    cfg,
		addr:   addr,
		logger: logger,
	}
	if err := s.setupDependencies(ctx); err != nil {
		return err
	}
	if err := s.setupRouter(); err != nil {
		return err
	}

	serveErr := s.setupHTTPServer()

	return s.waitForShutdown(ctx, serveErr)
}

func (s *server) setupDependencies(ctx context.Context) error {
	var err error
	s.searchdb, err = searchdb.New(s.logger, s.cfg)
	if err != nil {
		s.logger.Error("error creating searchDB", "err", err.Error())
		return err
	}

	pingCtx, cancel := context.WithTimeout(ctx, pingTimeout)
	defer cancel()
	if err := s.searchdb.Ping(pingCtx); err != nil {
		s.logger.Warn("search backend is not reachable yet", "addresses", s.cfg.GetElasticsearchAddresses(), "err", err.Error())
	}

	s.validator, err = validation.New(s.logger)
	if err != nil {
		s.logger.Error("error creating validator", "err", err.Error())
		return err
	}

	return nil
}

func (s *server) setupRouter() error {
	router, err := newRouter(s.cfg, s.logger)
	if err != nil {
		s.searchdb.Close()
		return err
	}

	setupRoutes(router, s.cfg, s.logger, s.searchdb, s.validator)

	s.router = router
	return nil
}

func (s *server) setupHTTPServer() <-chan error {
	s.httpServer = &http.Server{
		Addr:              s.addr,
		Handler:           s.router.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	serveErr := make(chan error, 1)
	go func() {
		s.logger.Info("starting http server", "addr", s.addr)
		if err := s.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serveErr <- err
		}
		close(serveErr)
	}()

	return serveErr
}

func (s *server) waitForShutdown(ctx context.Context, serveErr <-chan error) error {
	select {
	case err, ok := <-serveErr:
		if ok && err != nil {
			s.logger.Error("http server failed", "addr", s.addr, "err", err.Error())
			s.searchdb.Close()
			return err
		}
		return nil
	case <-ctx.Done():
	}

	s.logger.Info("starting to shut down http server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	if err := s.httpServer.Shutdown(shutdownCtx); err != nil {
		s.logger.Error("error shutting down http server", "err", err.Error())
		s.searchdb.Close()
		return err
	}
	if err := s.searchdb.Close(); err != nil {
		s.logger.Error("error closing searchDB", "err", err.Error())
	}

	s.logger.Info("shut down http server successfully")
	return nil
}
