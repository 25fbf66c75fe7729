package http_api

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/carelink/carewallet/internal/models"
	"github.com/carelink/carewallet/internal/overview"
	"github.com/carelink/carewallet/internal/wallet"
	"github.com/carelink/carewallet/pkg/pagination"
)

// TransitionBody is an operator's withdrawal decision.
type TransitionBody struct {
	Status          string `json:"status" binding:"required"`
	AdminNote       string `json:"adminNote"`
	PayoutReference string `json:"payoutReference"`
}

func (s *HTTPServer) adminOverview(c *gin.Context) {
	var role *models.Role
	if raw := c.Query("role"); raw != "" {
		r, ok := models.ParseRole(raw)
		if !ok || !r.IsProvider() {
			badRequest(c, "role must be one of doctor, laboratory, pharmacy")
			return
		}
		role = &r
	}

	page := pagination.FromGin(c)
	result, err := s.overview.Overview(c.Request.Context(), role, page)
	if err != nil {
		s.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"success":  true,
		"data":     result,
		"limit":    page.Limit,
		"offset":   page.Offset,
		"has_more": int64(page.Offset+page.Limit) < result.Total,
	})
}

func (s *HTTPServer) adminTrends(c *gin.Context) {
	bucket, ok := overview.ParseBucket(c.Query("bucket"))
	if !ok {
		badRequest(c, "bucket must be one of day, week, month")
		return
	}
	q := overview.TrendQuery{Bucket: bucket}

	var err error
	if q.From, err = parseTime(c.Query("from")); err != nil {
		badRequest(c, "from must be an RFC3339 timestamp or a YYYY-MM-DD date")
		return
	}
	if q.To, err = parseTime(c.Query("to")); err != nil {
		badRequest(c, "to must be an RFC3339 timestamp or a YYYY-MM-DD date")
		return
	}

	trends, err := s.overview.Trends(c.Request.Context(), q)
	if err != nil {
		s.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "data": trends})
}

func (s *HTTPServer) adminWithdrawals(c *gin.Context) {
	var filter models.WithdrawalFilter
	if raw := c.Query("status"); raw != "" {
		status, ok := models.ParseWithdrawalStatus(raw)
		if !ok {
			badRequest(c, "status must be one of pending, approved, rejected, paid")
			return
		}
		filter.Status = &status
	}
	if raw := c.Query("role"); raw != "" {
		role, ok := models.ParseRole(raw)
		if !ok || !role.IsProvider() {
			badRequest(c, "role must be one of doctor, laboratory, pharmacy")
			return
		}
		filter.Role = &role
	}

	page := pagination.FromGin(c)
	requests, total, err := s.wallet.ListAllWithdrawals(c.Request.Context(), filter, page)
	if err != nil {
		s.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, pagination.NewResponse(requests, total, page))
}

func (s *HTTPServer) adminTransition(c *gin.Context) {
	var req TransitionBody
	if err := c.ShouldBindJSON(&req); err != nil {
		s.logger.Debugw("Invalid transition body", "error", err)
		badRequest(c, "Invalid request body: "+err.Error())
		return
	}

	request, err := s.wallet.TransitionWithdrawal(c.Request.Context(), c.Param("id"), wallet.TransitionInput{
		Status:          req.Status,
		AdminNote:       req.AdminNote,
		PayoutReference: req.PayoutReference,
	}, identityFrom(c))
	if err != nil {
		s.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "data": request})
}

// parseTime accepts RFC3339 or a bare date. An empty string yields the zero time.
func parseTime(raw string) (time.Time, error) {
	if raw == "" {
		return time.Time{}, nil
	}
	if t, err := time.Parse(time.RFC3339, raw); err == nil {
		return t.UTC(), nil
	}
	return time.Parse(time.DateOnly, raw)
}
