package http_api

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/carelink/carewallet/internal/models"
)

// routes sets up the routes for the HTTP server.
func (s *HTTPServer) routes() {
	s.router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"success": true})
	})
	s.router.GET("/metrics", gin.WrapH(s.metrics.Handler()))

	api := s.router.Group("/api/v1", s.timeoutMiddleware())

	internal := api.Group("/internal", s.internalOnly())
	internal.POST("/earnings", s.creditEarning)

	providers := api.Group("", s.authenticate(), requireRoles(models.ProviderRoles...))
	providers.GET("/wallet/summary", s.walletSummary)
	providers.GET("/wallet/transactions", s.walletTransactions)
	providers.GET("/wallet/withdrawals", s.walletWithdrawals)
	providers.GET("/wallet/withdrawals/:id", s.walletWithdrawal)
	providers.POST("/wallet/withdrawals", s.requestWithdrawal)

	providers.GET("/subscription/plan", s.subscriptionPlan)
	providers.POST("/subscription/order", s.subscriptionOrder)
	providers.POST("/subscription/verify", s.subscriptionVerify)
	providers.GET("/subscription/me", s.subscriptionCurrent)
	providers.GET("/subscription/history", s.subscriptionHistory)

	admin := api.Group("/admin", s.authenticate(), requireRoles(models.RoleAdmin))
	admin.GET("/wallet/overview", s.adminOverview)
	admin.GET("/wallet/trends", s.adminTrends)
	admin.GET("/wallet/withdrawals", s.adminWithdrawals)
	admin.GET("/wallet/withdrawals/:id", s.walletWithdrawal)
	admin.PATCH("/wallet/withdrawals/:id", s.adminTransition)
}
