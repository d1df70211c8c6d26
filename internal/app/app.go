// Package app embala o servidor HTTP com inicialização e shutdown
// graceful.
package app

import (
	"context"
	"errors"
	"net/http"
	"time"

	"go.uber.org/zap"

	"github.com/dgenny/conecta/internal/config"
)

type App struct {
	log    *zap.Logger
	server *http.Server
}

func New(cfg config.Config, log *zap.Logger, handler http.Handler) *App {
	return &App{
		log: log,
		server: &http.Server{
			Addr:              ":" + cfg.App.Port,
			Handler:           handler,
			ReadHeaderTimeout: 10 * time.Second,
		},
	}
}

// Run bloqueia servindo requisições até Shutdown ser chamado.
func (a *App) Run(ctx context.Context) error {
	a.log.Info("servidor HTTP escutando", zap.String("addr", a.server.Addr))
	if err := a.server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

func (a *App) Shutdown(ctx context.Context) error {
	return a.server.Shutdown(ctx)
}
