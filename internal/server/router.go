package server

import (
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/dgenny/conecta/internal/api/handler"
	"github.com/dgenny/conecta/internal/api/middleware"
	"github.com/dgenny/conecta/internal/pkg/ratelimiter"
)

type Options struct {
	Env             string
	TokenValidator  middleware.TokenValidator
	HealthHandler   *handler.HealthHandler
	AuthHandler     *handler.AuthHandler
	LeadHandler     *handler.LeadHandler
	CampaignHandler *handler.CampaignHandler
	SyncHandler     *handler.SyncHandler
	BoothHandler    *handler.BoothHandler
	RateLimiter     ratelimiter.Limiter
	Logger          *zap.Logger
}

func NewRouter(opts Options) *gin.Engine {
	if opts.Env == "production" {
		gin.SetMode(gin.ReleaseMode)
	}
	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(middleware.RequestID())
	router.Use(cors.New(cors.Config{
		AllowOrigins: []string{"*"},
		AllowMethods: []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowHeaders: []string{"Origin", "Content-Type", "Authorization", middleware.HeaderRequestID},
		MaxAge:       12 * time.Hour,
	}))

	api := router.Group("/api")

	opts.HealthHandler.Register(api)
	opts.AuthHandler.Register(api)
	opts.BoothHandler.Register(api)

	// captura pública: sem login, com limite por IP
	public := api.Group("")
	public.Use(middleware.RateLimit(opts.RateLimiter, opts.Logger))
	opts.LeadHandler.RegisterPublic(public)

	// rotas de operação do estande: exigem o token do operador
	protected := api.Group("")
	protected.Use(middleware.Auth(opts.TokenValidator))
	opts.LeadHandler.Register(protected)
	opts.CampaignHandler.Register(protected)
	opts.SyncHandler.Register(protected)

	return router
}
