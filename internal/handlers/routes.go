package handlers

import (
	"github.com/gin-gonic/gin"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
	"github.com/tedgoddard/Stanford/internal/metrics"
	"github.com/tedgoddard/Stanford/internal/middleware"
)

// Routes wires handlers and their middleware.
type Routes struct {
	Tree        *TreeHandler
	Health      *HealthHandler
	JWTSecret   string
	RateLimiter *middleware.RateLimiter
	Breaker     *middleware.CircuitBreaker
}

// Register mounts every endpoint on router.
func (r Routes) Register(router *gin.Engine) {
	router.GET("/docs/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	router.GET("/metrics", metrics.Handler())

	router.GET("/health", r.Health.Health)
	router.GET("/health/deep", r.Health.DeepHealth)

	parsing := []gin.HandlerFunc{}
	if r.Breaker != nil {
		parsing = append(parsing, middleware.CircuitBreakerMiddleware(r.Breaker))
	}

	tree := router.Group("/tree", parsing...)
	{
		tree.GET("/:text", r.Tree.Simple)
		tree.POST("/", r.Tree.Full)
	}

	v1 := router.Group("/api/v1")
	v1.Use(middleware.Auth(r.JWTSecret))
	if r.RateLimiter != nil {
		v1.Use(middleware.RateLimitMiddleware(r.RateLimiter))
	}
	{
		v1.POST("/parse", append(parsing, r.Tree.ParseV1)...)
		v1.GET("/parses/:id", r.Tree.GetParse)
	}
}
