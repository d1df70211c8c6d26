package factory

import (
	"context"
	"errors"
	"testing"

	"go.uber.org/zap"

	"github.com/dgenny/conecta/internal/config"
	"github.com/dgenny/conecta/internal/model"
	"github.com/dgenny/conecta/internal/storage"
)

func TestNewMontaRepositoriosSQLiteComLimiterEmMemoria(t *testing.T) {
	cfg := config.Config{}
	cfg.Storage = config.StorageConfig{Driver: "sqlite", DataDir: t.TempDir()}
	cfg.Booth.Requests = 5
	cfg.Booth.WindowSeconds = 60

	repos, err := New(cfg, zap.NewNop())
	if err != nil {
		t.Fatalf("montar repositórios: %v", err)
	}
	if repos.RedisClient != nil {
		t.Fatalf("com Redis desabilitado o cliente deve ser nil")
	}

	ctx := context.Background()
	lead, err := repos.Lead.Save(ctx, model.Lead{Name: "Ana", Company: "Acme", Phone: "5511988887777"})
	if err != nil {
		t.Fatalf("salvar lead: %v", err)
	}
	if _, err := repos.Lead.GetByID(ctx, lead.ID); err != nil {
		t.Fatalf("reler lead: %v", err)
	}
	if _, err := repos.Lead.GetByID(ctx, "lead_inexistente"); !errors.Is(err, storage.ErrNotFound) {
		t.Fatalf("esperava ErrNotFound, obteve %v", err)
	}

	decision, err := repos.RateLimiter.Allow(ctx, "10.0.0.1")
	if err != nil || !decision.Allowed {
		t.Fatalf("limiter em memória deveria admitir: %+v, %v", decision, err)
	}
}

func TestNewRejeitaDriverDesconhecido(t *testing.T) {
	cfg := config.Config{}
	cfg.Storage.Driver = "oracle"

	if _, err := New(cfg, zap.NewNop()); err == nil {
		t.Fatalf("driver desconhecido deveria falhar")
	}
}
