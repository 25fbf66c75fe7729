package http_api

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/carelink/carewallet/internal/apperr"
)

// statusOf maps an error kind to its HTTP status.
func statusOf(kind apperr.Kind) int {
	switch kind {
	case apperr.KindValidation, apperr.KindInvalidAmount, apperr.KindOrderMismatch, apperr.KindInvalidSignature:
		return http.StatusBadRequest
	case apperr.KindForbidden:
		return http.StatusForbidden
	case apperr.KindNotFound:
		return http.StatusNotFound
	case apperr.KindInvalidStateTransition:
		return http.StatusConflict
	case apperr.KindInsufficientBalance:
		return http.StatusUnprocessableEntity
	default:
		return http.StatusInternalServerError
	}
}

// respondError writes the error envelope. Internal errors are logged and hidden.
func (s *HTTPServer) respondError(c *gin.Context, err error) {
	kind := apperr.KindOf(err)
	status := statusOf(kind)
	if status == http.StatusInternalServerError {
		_ = c.Error(err)
		s.logger.Errorw("Request failed", "path", c.FullPath(), "error", err)
	}
	body := gin.H{
		"success": false,
		"code":    kind,
		"error":   apperr.MessageOf(err),
	}
	var appErr *apperr.Error
	if errors.As(err, &appErr) && appErr.Kind == apperr.KindInvalidStateTransition {
		body["current"] = appErr.Current
		body["requested"] = appErr.Requested
	}
	c.JSON(status, body)
}

func badRequest(c *gin.Context, message string) {
	c.JSON(http.StatusBadRequest, gin.H{
		"success": false,
		"code":    apperr.KindValidation,
		"error":   message,
	})
}
