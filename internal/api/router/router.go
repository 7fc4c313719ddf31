package router

import (
	"net/http"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"

	"github.com/denisAlshanov/ytgrab/internal/api/handlers"
	"github.com/denisAlshanov/ytgrab/internal/api/middleware"
	"github.com/denisAlshanov/ytgrab/internal/config"
	"github.com/denisAlshanov/ytgrab/internal/metrics"
)

type Router struct {
	engine *gin.Engine
	config *config.Config
}

// NewRouter wires the handlers. m may be nil when metrics are disabled.
func NewRouter(cfg *config.Config, videoHandler *handlers.VideoHandler, healthHandler *handlers.HealthHandler, m *metrics.Metrics) *Router {
	if cfg.Server.Host == "0.0.0.0" {
		gin.SetMode(gin.ReleaseMode)
	}

	engine := gin.New()

	engine.Use(gin.Recovery())
	engine.Use(middleware.CorrelationIDMiddleware())
	if m != nil {
		engine.Use(m.Middleware())
	}
	if cfg.CORS.Enabled {
		engine.Use(cors.New(corsConfig(&cfg.CORS)))
	}

	engine.GET("/", healthHandler.Root)

	health := engine.Group("/")
	{
		health.GET("/health", healthHandler.Health)
		health.GET("/ready", healthHandler.Readiness)
		health.GET("/live", healthHandler.Liveness)
	}

	if m != nil && cfg.Metrics.Enabled {
		engine.GET("/metrics", gin.WrapH(m.Handler()))
	}

	engine.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))

	api := engine.Group("/api")
	api.Use(middleware.RateLimitMiddleware(&cfg.API))
	{
		api.GET("/video-info", videoHandler.GetVideoInfo)
		api.GET("/download", videoHandler.DownloadVideo)
		api.GET("/download-audio", videoHandler.DownloadAudio)
	}

	return &Router{
		engine: engine,
		config: cfg,
	}
}

func corsConfig(cfg *config.CORSConfig) cors.Config {
	c := cors.Config{
		AllowMethods:  cfg.AllowedMethods,
		AllowHeaders:  cfg.AllowedHeaders,
		ExposeHeaders: cfg.ExposedHeaders,
		MaxAge:        cfg.MaxAge,
	}
	if len(cfg.AllowedOrigins) == 0 || (len(cfg.AllowedOrigins) == 1 && cfg.AllowedOrigins[0] == "*") {
		c.AllowAllOrigins = true
	} else {
		c.AllowOrigins = cfg.AllowedOrigins
	}
	return c
}

// Server builds the HTTP server. Only header reads are bounded: a read or
// write deadline would cut off downloads that outlive it.
func (r *Router) Server() *http.Server {
	return &http.Server{
		Addr:              r.config.Server.Address(),
		Handler:           r.engine,
		ReadHeaderTimeout: r.config.Server.ReadTimeout,
	}
}

func (r *Router) Engine() *gin.Engine {
	return r.engine
}
