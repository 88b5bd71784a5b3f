package api

import (
	"time"

	"facesplit/internal/api/handlers"
	"facesplit/internal/api/middleware"
	"facesplit/internal/core/processor"
	"facesplit/internal/db/repository"
	"facesplit/internal/sse"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
)

// RouteRegistrar adds optional routes to the engine, e.g. the debug frames of
// the OpenCV detector. Routes carry their full path.
type RouteRegistrar interface {
	RegisterRoutes(router gin.IRouter)
}

// Options bündelt die Abhängigkeiten des HTTP-Servers
type Options struct {
	Analyzer handlers.Analyzer
	Repo     repository.Repository // nil, wenn der Store deaktiviert ist
	Pool     *processor.WorkerPool
	Hub      *sse.Hub // nil deaktiviert /api/events
	Extra    []RouteRegistrar
}

// NewRouter erstellt die gin-Engine mit allen Routen
func NewRouter(opts Options) *gin.Engine {
	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(middleware.RequestLogger())
	router.Use(cors.New(cors.Config{
		AllowMethods:     []string{"GET", "POST", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Length", "Content-Type"},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
		AllowOriginFunc: func(origin string) bool {
			return true
		},
	}))

	apiGroup := router.Group("/api")
	handlers.NewAPIHandler(opts.Analyzer, opts.Repo, opts.Pool).RegisterRoutes(apiGroup)
	if opts.Hub != nil {
		handlers.NewEventHandler(opts.Hub).RegisterRoutes(apiGroup)
	}
	for _, r := range opts.Extra {
		r.RegisterRoutes(router)
	}

	return router
}
