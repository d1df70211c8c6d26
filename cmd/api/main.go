package main

import (
	"context"
	"log"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"go.uber.org/zap"

	"github.com/dgenny/conecta/internal/api/handler"
	"github.com/dgenny/conecta/internal/app"
	"github.com/dgenny/conecta/internal/config"
	"github.com/dgenny/conecta/internal/connectivity"
	"github.com/dgenny/conecta/internal/crm"
	"github.com/dgenny/conecta/internal/gateway/evo"
	"github.com/dgenny/conecta/internal/logger"
	"github.com/dgenny/conecta/internal/remote/firestore"
	"github.com/dgenny/conecta/internal/sequence"
	"github.com/dgenny/conecta/internal/server"
	authSvc "github.com/dgenny/conecta/internal/service/auth"
	campaignSvc "github.com/dgenny/conecta/internal/service/campaign"
	leadSvc "github.com/dgenny/conecta/internal/service/lead"
	"github.com/dgenny/conecta/internal/storage/factory"
	syncPkg "github.com/dgenny/conecta/internal/sync"
)

func main() {
	// em desenvolvimento o .env alimenta as variáveis; em produção ele
	// simplesmente não existe
	_ = godotenv.Load()

	cfg := config.Load()

	logr, err := logger.New(cfg.App.Env, cfg.Log.Level)
	if err != nil {
		log.Fatalf("logger: %v", err)
	}
	defer logr.Sync()

	logr.Info("iniciando aplicação",
		zap.String("env", cfg.App.Env),
		zap.String("log_level", cfg.Log.Level),
		zap.String("port", cfg.App.Port),
		zap.String("db_driver", cfg.Storage.Driver),
		zap.String("data_dir", cfg.Storage.DataDir),
	)

	repos, err := factory.New(cfg, logr)
	if err != nil {
		log.Fatalf("storage: %v", err)
	}

	callTimeout := time.Duration(cfg.Sync.CallTimeoutSecs) * time.Second
	remote := firestore.New(cfg.Firebase, callTimeout, logr)
	crmRegistry := crm.NewRegistry(
		crm.NewEspoAdapter(cfg.CRM.EspoURL, cfg.CRM.EspoAPIKey, callTimeout, logr),
	)
	gateway := evo.New(cfg.Evo, callTimeout, logr)

	monitor := connectivity.NewMonitor(
		connectivity.TCPProber(cfg.Sync.ProbeAddr),
		remote,
		logr,
	)

	stepPacing := time.Duration(cfg.Sync.StepPacingMillis) * time.Millisecond
	dispatcher := sequence.NewDispatcher(gateway, repos.Setting, stepPacing, logr)

	synchronizer := syncPkg.NewSynchronizer(
		cfg.Sync,
		repos.Lead,
		repos.Campaign,
		remote,
		crmRegistry,
		dispatcher,
		monitor,
		logr,
	)

	logr.Debug("inicializando serviços")
	leadService := leadSvc.New(repos.Lead, repos.Campaign, repos.Setting, logr)
	campaignService := campaignSvc.New(repos.Campaign, repos.Setting, remote, logr)
	authService := authSvc.New(cfg.Operator, cfg.JWT, logr)
	logr.Debug("serviços inicializados")

	// ao recuperar o remoto, renova o cache de campanhas e antecipa uma
	// varredura em vez de esperar o próximo tique
	monitor.OnChange(func(s connectivity.Status) {
		if !s.IsOnline || !s.RemoteReachable {
			return
		}
		go func() {
			ctx, cancel := context.WithTimeout(context.Background(), callTimeout)
			defer cancel()
			if _, err := campaignService.Refresh(ctx); err != nil {
				logr.Warn("renovação de campanhas após reconexão falhou", zap.Error(err))
			}
			if _, err := synchronizer.ForceSyncAll(context.Background()); err != nil {
				logr.Debug("varredura pós-reconexão não executada", zap.Error(err))
			}
		}()
	})

	// o monitor reavalia a conectividade no mesmo ritmo das varreduras
	monitorCtx, stopMonitor := context.WithCancel(context.Background())
	go func() {
		interval := time.Duration(cfg.Sync.IntervalSeconds) * time.Second
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		monitor.Check(monitorCtx)
		for {
			select {
			case <-monitorCtx.Done():
				return
			case <-ticker.C:
				monitor.Check(monitorCtx)
			}
		}
	}()

	synchronizer.Start()

	router := server.NewRouter(server.Options{
		Env:             cfg.App.Env,
		TokenValidator:  authService,
		HealthHandler:   handler.NewHealthHandler(),
		AuthHandler:     handler.NewAuthHandler(authService),
		LeadHandler:     handler.NewLeadHandler(leadService),
		CampaignHandler: handler.NewCampaignHandler(campaignService),
		SyncHandler:     handler.NewSyncHandler(synchronizer),
		BoothHandler:    handler.NewBoothHandler(cfg.Booth, cfg.App),
		RateLimiter:     repos.RateLimiter,
		Logger:          logr,
	})

	application := app.New(cfg, logr, router)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	errCh := make(chan error, 1)
	go func() {
		if err := application.Run(context.Background()); err != nil {
			errCh <- err
		}
	}()

	select {
	case <-ctx.Done():
		logr.Info("sinal de encerramento recebido")
	case err := <-errCh:
		if err != nil {
			logr.Error("servidor finalizado com erro", zap.Error(err))
		}
	}

	logr.Info("iniciando shutdown graceful")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	stopMonitor()
	synchronizer.Stop()

	if repos.RedisClient != nil {
		if err := repos.RedisClient.Close(); err != nil {
			logr.Warn("erro ao fechar conexão Redis", zap.Error(err))
		}
	}

	if err := application.Shutdown(shutdownCtx); err != nil {
		logr.Error("erro ao encerrar servidor", zap.Error(err))
	} else {
		logr.Info("servidor encerrado com sucesso")
	}
}
