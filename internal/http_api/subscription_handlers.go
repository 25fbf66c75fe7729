package http_api

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/carelink/carewallet/internal/subscription"
	"github.com/carelink/carewallet/pkg/pagination"
)

// OrderBody picks a duration tier of the active plan.
type OrderBody struct {
	DurationKey string `json:"durationKey" binding:"required"`
}

// VerifyBody is the gateway confirmation relayed by the checkout client.
type VerifyBody struct {
	SubscriptionID string `json:"subscriptionId" binding:"required"`
	OrderID        string `json:"orderId" binding:"required"`
	PaymentID      string `json:"paymentId" binding:"required"`
	Signature      string `json:"signature" binding:"required"`
}

func (s *HTTPServer) subscriptionPlan(c *gin.Context) {
	plan, err := s.subscriptions.Plan(c.Request.Context())
	if err != nil {
		s.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "data": plan})
}

func (s *HTTPServer) subscriptionOrder(c *gin.Context) {
	var req OrderBody
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "Invalid request body: "+err.Error())
		return
	}

	order, err := s.subscriptions.CreateOrder(c.Request.Context(), identityFrom(c), req.DurationKey)
	if err != nil {
		s.respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"success": true, "data": order})
}

func (s *HTTPServer) subscriptionVerify(c *gin.Context) {
	var req VerifyBody
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "Invalid request body: "+err.Error())
		return
	}

	sub, err := s.subscriptions.VerifyAndActivate(c.Request.Context(), subscription.VerifyInput{
		SubscriptionID: req.SubscriptionID,
		OrderID:        req.OrderID,
		PaymentID:      req.PaymentID,
		Signature:      req.Signature,
	}, identityFrom(c))
	if err != nil {
		s.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "data": sub})
}

// subscriptionCurrent returns the active subscription, or null data when there is none.
func (s *HTTPServer) subscriptionCurrent(c *gin.Context) {
	sub, err := s.subscriptions.Current(c.Request.Context(), identityFrom(c).AsProvider())
	if err != nil {
		s.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "data": sub})
}

func (s *HTTPServer) subscriptionHistory(c *gin.Context) {
	page := pagination.FromGin(c)
	subs, total, err := s.subscriptions.History(c.Request.Context(), identityFrom(c).AsProvider(), page)
	if err != nil {
		s.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, pagination.NewResponse(subs, total, page))
}
