// Package api exposes the contract lifecycle over HTTP.
package api

import (
	"net/http"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/matic113/freelance-platform-sub003/internal/api/middleware"
	"github.com/matic113/freelance-platform-sub003/internal/service"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Deps are the collaborators the router needs.
type Deps struct {
	Contracts  service.ContractService
	Milestones service.MilestoneService
	Payments   service.PaymentService

	JWTSecret      string
	AllowedOrigins []string

	// Live serves the websocket upgrade; the route is omitted when nil.
	// It authenticates on its own since browsers cannot set headers.
	Live gin.HandlerFunc
}

// NewRouter builds the gin engine with every route registered.
func NewRouter(deps Deps) *gin.Engine {
	r := gin.New()

	r.Use(middleware.RequestID())
	r.Use(middleware.Recovery())
	r.Use(middleware.RequestLogger())
	r.Use(cors.New(corsConfig(deps.AllowedOrigins)))

	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"status":    "healthy",
			"timestamp": time.Now().UTC().Format(time.RFC3339),
		})
	})
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	if deps.Live != nil {
		r.GET("/api/ws", deps.Live)
	}

	contracts := NewContractHandler(deps.Contracts)
	milestones := NewMilestoneHandler(deps.Milestones)
	payments := NewPaymentHandler(deps.Payments)

	api := r.Group("/api")
	api.Use(middleware.Auth(deps.JWTSecret))
	{
		api.POST("/contracts", contracts.Create)
		api.GET("/contracts", contracts.List)
		api.GET("/contracts/:id", contracts.Get)
		api.GET("/contracts/:id/summary", contracts.Summary)
		api.GET("/contracts/:id/statement", contracts.Statement)
		api.POST("/contracts/:id/accept", contracts.Accept)
		api.POST("/contracts/:id/reject", contracts.Reject)
		api.POST("/contracts/:id/cancel", contracts.Cancel)

		api.GET("/contracts/:id/milestones", milestones.List)
		api.POST("/contracts/:id/milestones", milestones.Create)
		api.GET("/contracts/:id/milestones/:milestoneId", milestones.Get)
		api.PATCH("/contracts/:id/milestones/:milestoneId", milestones.Update)
		api.DELETE("/contracts/:id/milestones/:milestoneId", milestones.Delete)
		api.PUT("/contracts/:id/milestones/:milestoneId/status", milestones.UpdateStatus)

		api.GET("/contracts/:id/payment-requests", payments.ListByContract)
		api.POST("/payment-requests", payments.Create)
		api.GET("/payment-requests/:id", payments.Get)
		api.POST("/payment-requests/:id/approve", payments.Approve)
		api.POST("/payment-requests/:id/reject", payments.Reject)
		api.POST("/payment-requests/:id/withdraw", payments.Withdraw)
		api.POST("/payment-requests/:id/paid", payments.MarkPaid)
	}

	return r
}

func corsConfig(origins []string) cors.Config {
	cfg := cors.Config{
		AllowMethods:     []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Accept", "Authorization", "If-Match", "X-Request-ID"},
		ExposeHeaders:    []string{"Content-Length", "ETag", "X-Request-ID"},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}
	if len(origins) == 0 {
		cfg.AllowAllOrigins = true
		cfg.AllowCredentials = false
	} else {
		cfg.AllowOrigins = origins
	}
	return cfg
}
