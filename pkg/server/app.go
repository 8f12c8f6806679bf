// Package server ties the engine and HTTP surface into one runnable
// application.
package server

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"RouteForge/internal/engine"
	"RouteForge/pkg/config"
	xhttp "RouteForge/pkg/http"
	applogger "RouteForge/pkg/logger"
)

// App encapsulates the application lifecycle: engine initialization,
// HTTP serving and graceful shutdown.
type App struct {
	cfg        *config.Config
	log        *applogger.Logger
	engine     *engine.Engine
	handler    xhttp.Handler
	httpServer *xhttp.Server
}

// New creates an App from its wired components.
func New(cfg *config.Config, log *applogger.Logger, eng *engine.Engine, handler xhttp.Handler) *App {
	return &App{cfg: cfg, log: log, engine: eng, handler: handler}
}

// Run starts the application and blocks until interrupted.
func (a *App) Run() error {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if err := a.engine.Initialize(ctx); err != nil {
		return err
	}

	a.httpServer = xhttp.NewServer(a.handler,
		xhttp.WithPort(a.cfg.Server.Port),
		xhttp.WithTimeouts(a.cfg.Server.ReadTimeout, a.cfg.Server.WriteTimeout, a.cfg.Server.ShutdownTimeout),
	)
	if err := a.httpServer.Start(); err != nil {
		return err
	}
	a.log.Info("serving", applogger.Int("port", a.cfg.Server.Port))

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	<-sigCh

	a.log.Info("shutdown signal received")
	return a.shutdown(ctx)
}

func (a *App) shutdown(ctx context.Context) error {
	shutdownCtx, cancel := context.WithTimeout(ctx, a.cfg.Server.ShutdownTimeout)
	defer cancel()

	if err := a.httpServer.Stop(shutdownCtx); err != nil {
		a.log.Warn("http shutdown error", applogger.Error(err))
	}
	if err := a.engine.Cleanup(shutdownCtx); err != nil {
		a.log.Warn("engine cleanup error", applogger.Error(err))
		return err
	}
	a.log.Info("shutdown complete")
	return nil
}
