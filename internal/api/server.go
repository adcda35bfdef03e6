package api

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"catalogsync/internal/api/handlers"
	"catalogsync/internal/api/middleware"
	"catalogsync/internal/catalog"
	"catalogsync/internal/config"
	"catalogsync/internal/database"
	"catalogsync/internal/importer"
)

type Server struct {
	config *config.Config
	logger zerolog.Logger
	db     *database.Database
	router *gin.Engine
	server *http.Server
}

func New(cfg *config.Config, logger zerolog.Logger, db *database.Database, syncer *catalog.Syncer, imp *importer.Importer, jobs handlers.JobEnqueuer) *Server {
	if cfg.Env == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	router := gin.New()

	// Middleware
	router.Use(middleware.Logger(logger))
	router.Use(middleware.Recovery(logger))
	router.Use(middleware.CORS(cfg.DashboardURL))

	// Initialize handlers
	productHandler := handlers.NewProductHandler(db.DB, logger)
	integrationHandler := handlers.NewIntegrationHandler(db.DB, syncer, logger)
	shopifyHandler := handlers.NewShopifyHandler(db.DB, cfg, jobs, logger)
	importHandler := handlers.NewImportHandler(imp, logger)

	// Routes
	v1 := router.Group("/api/v1")
	{
		// Products
		products := v1.Group("/products")
		{
			products.GET("", productHandler.List)
			products.GET("/:id", productHandler.Get)
			products.POST("", productHandler.Create)
			products.PUT("/:id", productHandler.Update)
			products.DELETE("/:id", productHandler.Delete)
		}

		// Integrations
		integrations := v1.Group("/integrations")
		{
			integrations.GET("", integrationHandler.List)
			integrations.GET("/:id", integrationHandler.Get)
			integrations.POST("/:id/sync", integrationHandler.Sync)
			integrations.DELETE("/:id", integrationHandler.Disconnect)
		}

		// Shopify connection flow
		shopify := v1.Group("/shopify")
		{
			shopify.POST("/install", shopifyHandler.Install)
			shopify.GET("/callback", shopifyHandler.Callback)
			shopify.POST("/webhook", shopifyHandler.Webhook)
		}

		// Bulk imports
		imports := v1.Group("/imports")
		{
			imports.POST("/products", importHandler.Products)
		}
	}

	return &Server{
		config: cfg,
		logger: logger,
		db:     db,
		router: router,
	}
}

func (s *Server) Start() error {
	addr := fmt.Sprintf("%s:%s", s.config.APIHost, s.config.APIPort)

	s.server = &http.Server{
		Addr:         addr,
		Handler:      s.router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	s.logger.Info().Str("addr", addr).Msg("starting server")
	return s.server.ListenAndServe()
}

func (s *Server) Stop(ctx context.Context) error {
	s.logger.Info().Msg("shutting down server")
	return s.server.Shutdown(ctx)
}

// Router exposes the gin engine for handler tests.
func (s *Server) Router() *gin.Engine {
	return s.router
}
