package app

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/newrelic/go-agent/v3/integrations/nrgin"
	"github.com/newrelic/go-agent/v3/newrelic"
	"github.com/redis/go-redis/v9"

	"taxidispatch/internal/auth"
	"taxidispatch/internal/handler"
	"taxidispatch/internal/middleware"
)

// RouterDeps contains all dependencies needed for the router.
type RouterDeps struct {
	SessionHandler  *handler.SessionHandler
	LocationHandler *handler.LocationHandler
	TripHandler     *handler.TripHandler
	TokenManager    *auth.Manager
	RedisClient     *redis.Client
	NewRelicApp     *newrelic.Application
}

// NewRouter creates a new Gin router with all routes registered.
func NewRouter(deps RouterDeps) *gin.Engine {
	router := gin.New()

	// Global middleware.
	router.Use(gin.Recovery())
	router.Use(gin.Logger())
	router.Use(middleware.CORSMiddleware())

	if deps.NewRelicApp != nil {
		router.Use(nrgin.Middleware(deps.NewRelicApp))
	}

	router.Use(middleware.IdempotencyMiddleware(deps.RedisClient))

	requireSession := middleware.AuthMiddleware(deps.TokenManager)

	// Health check.
	router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	// Session routes.
	router.POST("/session", deps.SessionHandler.Authenticate)
	router.DELETE("/session", requireSession, deps.SessionHandler.EndSession)

	// Location routes. Nearby lookup is public; pushes require a session.
	router.POST("/location", requireSession, deps.LocationHandler.PushLocation)
	router.GET("/location", deps.LocationHandler.NearbyDrivers)

	// Trip log routes.
	router.POST("/trips", requireSession, deps.TripHandler.RecordEvent)
	router.GET("/trips", requireSession, deps.TripHandler.ListEvents)

	// Unknown routes answer with the uniform error shape.
	router.NoRoute(func(c *gin.Context) {
		c.JSON(http.StatusNotFound, gin.H{"error": "not found"})
	})

	return router
}
