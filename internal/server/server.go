package server

import (
	"database/sql"
	"net/http"

	"coursecheckout/internal/database"
	"coursecheckout/internal/metrics"
	"coursecheckout/internal/service"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
)

type Server struct {
	engine        *gin.Engine
	checkout      service.CheckoutService
	ledger        service.LedgerService
	db            *sql.DB
	webhookSecret []byte
	metrics       *metrics.PipelineMetrics
	log           zerolog.Logger
}

type Options struct {
	Checkout       service.CheckoutService
	Ledger         service.LedgerService
	DB             *sql.DB
	WebhookSecret  string
	Metrics        *metrics.PipelineMetrics
	AllowedOrigins []string
	Log            zerolog.Logger
}

func New(opts Options) *Server {
	s := &Server{
		checkout:      opts.Checkout,
		ledger:        opts.Ledger,
		db:            opts.DB,
		webhookSecret: []byte(opts.WebhookSecret),
		metrics:       opts.Metrics,
		log:           opts.Log.With().Str("component", "http").Logger(),
	}

	engine := gin.New()
	engine.Use(gin.Recovery())

	corsCfg := cors.DefaultConfig()
	if len(opts.AllowedOrigins) > 0 {
		corsCfg.AllowOrigins = opts.AllowedOrigins
	} else {
		corsCfg.AllowAllOrigins = true
	}
	corsCfg.AllowHeaders = append(corsCfg.AllowHeaders, "X-User-ID")
	engine.Use(cors.New(corsCfg))

	engine.GET("/health", s.health)
	engine.GET("/metrics", gin.WrapH(metrics.Handler()))

	api := engine.Group("/api")
	{
		api.POST("/checkout", s.createCheckout)
		api.POST("/webhooks/payment", s.handleWebhook)
		api.GET("/payments/:sessionID/status", s.paymentStatus)
		api.POST("/payments/:sessionID/reconcile", s.forceReconcile)
	}

	s.engine = engine
	return s
}

func (s *Server) Handler() http.Handler {
	return s.engine
}

func (s *Server) health(c *gin.Context) {
	stats := database.Health(s.db)
	code := http.StatusOK
	if stats["status"] != "up" {
		code = http.StatusServiceUnavailable
	}
	c.JSON(code, stats)
}
