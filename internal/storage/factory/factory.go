// Package factory materializa os repositórios e o limiter concretos a
// partir da configuração do equipamento.
package factory

import (
	"time"

	"go.uber.org/zap"

	"github.com/dgenny/conecta/internal/config"
	"github.com/dgenny/conecta/internal/pkg/ratelimiter"
	limiter_memory "github.com/dgenny/conecta/internal/pkg/ratelimiter/memory"
	limiter_redis "github.com/dgenny/conecta/internal/pkg/ratelimiter/redis"
	"github.com/dgenny/conecta/internal/storage"
	"github.com/dgenny/conecta/internal/storage/postgres"
	storage_redis "github.com/dgenny/conecta/internal/storage/redis"
	"github.com/dgenny/conecta/internal/storage/sqlite"
)

type Repositories struct {
	Lead        storage.LeadRepository
	Campaign    storage.CampaignRepository
	Setting     storage.SettingRepository
	RedisClient *storage_redis.Client // nil quando Redis está desabilitado
	RateLimiter ratelimiter.Limiter
}

func New(cfg config.Config, log *zap.Logger) (*Repositories, error) {
	log.Info("inicializando repositórios",
		zap.String("driver", cfg.Storage.Driver),
	)

	var (
		storeRedis  *storage_redis.Client
		rateLimiter ratelimiter.Limiter
		err         error
	)

	window := time.Duration(cfg.Booth.WindowSeconds) * time.Second
	if cfg.Redis.Enabled {
		log.Info("inicializando Redis...")
		storeRedis, err = storage_redis.New(cfg.Redis, log)
		if err != nil {
			log.Error("erro ao conectar com Redis", zap.Error(err))
			return nil, err
		}
		rateLimiter = limiter_redis.New(storeRedis.RDB(), cfg.Booth.Prefix, cfg.Booth.Requests, window)
		log.Info("Redis conectado, limiter configurado")
	} else {
		log.Info("usando limiter em memória (Redis desabilitado)")
		rateLimiter = limiter_memory.New(cfg.Booth.Requests, window)
	}

	switch cfg.Storage.Driver {
	case "sqlite", "":
		log.Debug("criando conexão com SQLite")
		db, err := sqlite.New(cfg.Storage.DataDir, log)
		if err != nil {
			log.Error("erro ao conectar com SQLite", zap.Error(err))
			return nil, err
		}

		log.Info("repositórios SQLite criados com sucesso", zap.String("data_dir", cfg.Storage.DataDir))
		return &Repositories{
			Lead:        sqlite.NewLeadRepository(db),
			Campaign:    sqlite.NewCampaignRepository(db),
			Setting:     sqlite.NewSettingRepository(db),
			RedisClient: storeRedis,
			RateLimiter: rateLimiter,
		}, nil

	case "postgres":
		log.Debug("criando conexão com PostgreSQL")
		db, err := postgres.New(cfg.DB, log)
		if err != nil {
			log.Error("erro ao conectar com PostgreSQL", zap.Error(err))
			return nil, err
		}

		log.Info("repositórios PostgreSQL criados com sucesso")
		return &Repositories{
			Lead:        postgres.NewLeadRepository(db),
			Campaign:    postgres.NewCampaignRepository(db),
			Setting:     postgres.NewSettingRepository(db),
			RedisClient: storeRedis,
			RateLimiter: rateLimiter,
		}, nil

	default:
		log.Error("driver de storage desconhecido",
			zap.String("driver", cfg.Storage.Driver),
		)
		return nil, &ErrUnknownDriver{Driver: cfg.Storage.Driver}
	}
}

type ErrUnknownDriver struct {
	Driver string
}

func (e *ErrUnknownDriver) Error() string {
	return "storage: driver desconhecido: " + e.Driver
}
