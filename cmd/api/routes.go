package main

import (
	"database/sql"
	"net/http"
	"time"

	"callcredits-platform/internal/httpapi"
	"callcredits-platform/pkg/utils"

	"github.com/gin-gonic/gin"
)

// registerRoutes wires HTTP routes to handlers.
// Keep this file free of business logic. Handlers delegate to internal modules.
func registerRoutes(r *gin.Engine, h httpapi.Handlers, authMW gin.HandlerFunc, db *sql.DB) {
	// public
	r.GET("/healthz", func(c *gin.Context) {
		if err := utils.HealthCheck(c.Request.Context(), db, 2*time.Second); err != nil {
			c.JSON(http.StatusServiceUnavailable, gin.H{"status": "degraded"})
			return
		}
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	// AUTH routes (token issuance; no access token required).
	authGroup := r.Group("/v1/auth")
	{
		authGroup.POST("/login", h.Login)
		authGroup.POST("/refresh", h.Refresh)
	}

	// protected API group
	v1 := r.Group("/v1")
	v1.Use(authMW)
	{
		v1.GET("/me", h.Me)

		wallets := v1.Group("/wallets")
		{
			wallets.GET("", h.ListWallets)
			wallets.GET("/:wallet_id", h.GetWallet)
			wallets.GET("/:wallet_id/balance", h.GetWalletBalance)
			wallets.GET("/:wallet_id/transactions", h.ListWalletTransactions)
		}

		payments := v1.Group("/payments")
		{
			payments.POST("", h.CreatePayment)
			payments.GET("", h.ListPayments)
			payments.POST("/verify/:reference", h.VerifyPayment)
			payments.GET("/:payment_id", h.GetPayment)
		}

		calls := v1.Group("/calls")
		{
			calls.POST("", h.InitiateCall)
			calls.GET("", h.ListCalls)
			calls.GET("/:session_id", h.GetCall)
			calls.POST("/:session_id/answer", h.AnswerCall)
			calls.POST("/:session_id/end", h.EndCall)
		}

		reports := v1.Group("/reports")
		{
			reports.GET("/calls", h.CallsSummary)
			reports.GET("/spend", h.SpendSummary)
		}
	}
}
