package httpserver

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/and161185/digistore/internal/errs"
)

// statusOf maps a service error to an HTTP status.
func statusOf(err error) int {
	switch {
	case errors.Is(err, errs.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, errs.ErrUnauthorized):
		return http.StatusUnauthorized
	case errors.Is(err, errs.ErrForbidden):
		return http.StatusForbidden
	case errors.Is(err, errs.ErrInvalidRequest), errors.Is(err, errs.ErrExpired):
		return http.StatusBadRequest
	case errors.Is(err, errs.ErrConflict), errors.Is(err, errs.ErrAlreadyExists):
		return http.StatusConflict
	case errors.Is(err, errs.ErrNotImplemented):
		return http.StatusNotImplemented
	case errors.Is(err, errs.ErrRateLimited):
		return http.StatusTooManyRequests
	case errors.Is(err, errs.ErrUnavailable):
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

// publicMessage is the only error text anonymous and regular callers see.
func publicMessage(err error, code int) string {
	switch {
	case errors.Is(err, errs.ErrExpired):
		return "download link expired"
	case errors.Is(err, errs.ErrAlreadyExists):
		return "already exists"
	case errors.Is(err, errs.ErrUnauthorized):
		return "invalid credentials"
	case errors.Is(err, errs.ErrUnavailable):
		return "temporarily unavailable, try again"
	}
	switch code {
	case http.StatusNotFound:
		return "not found"
	case http.StatusForbidden:
		return "forbidden"
	case http.StatusBadRequest:
		return "invalid request"
	case http.StatusConflict:
		return "conflict"
	case http.StatusNotImplemented:
		return "not implemented"
	case http.StatusTooManyRequests:
		return "too many requests"
	default:
		return "internal error"
	}
}

// fail writes {"error": ...}. detailed adds the error chain for trusted callers.
func (s *Server) fail(c *gin.Context, err error, detailed bool) {
	code := statusOf(err)
	if code >= http.StatusInternalServerError {
		s.log.Error("request failed",
			zap.String("route", c.FullPath()),
			zap.Int("status", code),
			zap.Error(err),
		)
	}
	body := gin.H{"error": publicMessage(err, code)}
	if detailed {
		body["detail"] = err.Error()
	}
	c.AbortWithStatusJSON(code, body)
}
