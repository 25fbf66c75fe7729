package http_api

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"

	"github.com/carelink/carewallet/internal/models"
	"github.com/carelink/carewallet/internal/wallet"
	"github.com/carelink/carewallet/pkg/pagination"
)

// CreditRequest is the booking-completion notice sent by the booking service.
type CreditRequest struct {
	ProviderKind string           `json:"providerKind" binding:"required"`
	ProviderID   string           `json:"providerId" binding:"required"`
	PatientID    string           `json:"patientId" binding:"required"`
	BookingKind  string           `json:"bookingKind" binding:"required"`
	BookingID    string           `json:"bookingId" binding:"required"`
	GrossAmount  *decimal.Decimal `json:"grossAmount" binding:"required"`
	PaymentID    *string          `json:"paymentId"`
	CreditedAt   *time.Time       `json:"creditedAt"`
}

// WithdrawalBody is a provider's withdrawal request.
type WithdrawalBody struct {
	Amount       decimal.Decimal     `json:"amount"`
	PayoutMethod models.PayoutMethod `json:"payoutMethod"`
	Notes        string              `json:"notes"`
}

// creditEarning records a completed booking. 201 on first credit, 200 on replay.
func (s *HTTPServer) creditEarning(c *gin.Context) {
	var req CreditRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		s.logger.Debugw("Invalid credit request body", "error", err)
		badRequest(c, "Invalid request body: "+err.Error())
		return
	}

	in := wallet.CreditInput{
		Provider:    models.ProviderRef{Role: models.Role(req.ProviderKind), ID: req.ProviderID},
		PatientID:   req.PatientID,
		Booking:     models.BookingRef{Kind: models.BookingKind(req.BookingKind), ID: req.BookingID},
		GrossAmount: *req.GrossAmount,
		PaymentID:   req.PaymentID,
	}
	if req.CreditedAt != nil {
		in.CreditedAt = *req.CreditedAt
	}

	entry, created, err := s.wallet.Credit(c.Request.Context(), in)
	if err != nil {
		s.respondError(c, err)
		return
	}

	status := http.StatusOK
	if created {
		status = http.StatusCreated
	}
	c.JSON(status, gin.H{"success": true, "created": created, "data": entry})
}

func (s *HTTPServer) walletSummary(c *gin.Context) {
	provider := identityFrom(c).AsProvider()
	balance, err := s.wallet.Summary(c.Request.Context(), provider)
	if err != nil {
		s.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "data": balance})
}

func (s *HTTPServer) walletTransactions(c *gin.Context) {
	page := pagination.FromGin(c)
	entries, total, err := s.wallet.ListTransactions(c.Request.Context(), identityFrom(c).AsProvider(), page)
	if err != nil {
		s.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, pagination.NewResponse(entries, total, page))
}

func (s *HTTPServer) walletWithdrawals(c *gin.Context) {
	page := pagination.FromGin(c)
	requests, total, err := s.wallet.ListWithdrawals(c.Request.Context(), identityFrom(c).AsProvider(), page)
	if err != nil {
		s.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, pagination.NewResponse(requests, total, page))
}

func (s *HTTPServer) walletWithdrawal(c *gin.Context) {
	request, err := s.wallet.GetWithdrawal(c.Request.Context(), c.Param("id"), identityFrom(c))
	if err != nil {
		s.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "data": request})
}

func (s *HTTPServer) requestWithdrawal(c *gin.Context) {
	var req WithdrawalBody
	if err := c.ShouldBindJSON(&req); err != nil {
		s.logger.Debugw("Invalid withdrawal request body", "error", err)
		badRequest(c, "Invalid request body: "+err.Error())
		return
	}

	request, err := s.wallet.RequestWithdrawal(c.Request.Context(), identityFrom(c), wallet.WithdrawalInput{
		Amount:       req.Amount,
		PayoutMethod: req.PayoutMethod,
		Notes:        req.Notes,
	})
	if err != nil {
		s.respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"success": true, "data": request})
}
