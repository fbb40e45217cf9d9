package http

import (
	"crypto/subtle"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
)

// NewRouter builds the gin engine with logging, recovery and token auth
// on every /api/v1 route
func NewRouter(h *Handler, apiToken string) *gin.Engine {
	router := gin.New()
	router.Use(gin.Logger(), gin.Recovery())

	router.GET("/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	api := router.Group("/api/v1")
	api.Use(AuthMiddleware(apiToken))
	{
		accounts := api.Group("/accounts")
		accounts.POST("", h.OpenAccount)
		accounts.POST("/transfer", h.Transfer)
		accounts.GET("/by-customer/:customerId", h.ListAccountsForCustomer)
		accounts.GET("/by-customer/:customerId/summary", h.GetCustomerSummary)
		accounts.GET("/:id", h.GetAccount)
		accounts.DELETE("/:id", h.CloseAccount)
		accounts.POST("/:id/deposit", h.Deposit)
		accounts.POST("/:id/withdraw", h.Withdraw)
		accounts.GET("/:id/transactions", h.ListTransactions)

		customers := api.Group("/customers")
		customers.POST("", h.RegisterCustomer)
		customers.GET("/:id", h.GetCustomer)
	}

	return router
}

// AuthMiddleware requires "Authorization: Bearer <token>" (or the bare
// token) to match apiToken
func AuthMiddleware(apiToken string) gin.HandlerFunc {
	return func(c *gin.Context) {
		authHeader := c.GetHeader("Authorization")
		if authHeader == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Authorization header required"})
			return
		}

		token := strings.TrimPrefix(authHeader, "Bearer ")
		if subtle.ConstantTimeCompare([]byte(token), []byte(apiToken)) != 1 {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "invalid token"})
			return
		}

		c.Next()
	}
}
