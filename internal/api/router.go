package api

import (
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// SetupRouter configures the Gin router with all routes and middleware.
func SetupRouter(handler *Handler, ginMode string) *gin.Engine {
	gin.SetMode(ginMode)

	router := gin.New()

	router.Use(gin.Logger())
	router.Use(gin.Recovery())
	router.Use(CORSMiddleware())
	router.Use(RequestIDMiddleware())

	router.GET("/health", handler.Health)
	router.GET("/metrics", gin.WrapH(promhttp.Handler()))

	v1 := router.Group("/api/v1")
	{
		payments := v1.Group("/payments")
		{
			payments.POST("/checkout", handler.CreateCheckout)
			payments.GET("/:tid/status", handler.GetPaymentStatus)
		}
	}

	// Webhook endpoint called by NovaPay. Authenticity is enforced by the
	// checksum and source-IP validators, not by bearer auth.
	router.POST("/webhook", handler.HandleWebhook)

	return router
}
