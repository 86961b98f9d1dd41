package api

import (
	"errors"
	"net/http"

	"travel-booking-service/internal/errs"

	"github.com/gin-gonic/gin"
)

// respond writes the uniform response envelope.
func respond(c *gin.Context, status int, message string, data interface{}) {
	c.JSON(status, gin.H{
		"success": status < 400,
		"message": message,
		"data":    data,
	})
}

// respondError maps a service error to an HTTP status and writes the
// envelope. Unknown errors become a 500 with a generic message so
// internals never leak to the client.
func respondError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, errs.ErrNotFound):
		respond(c, http.StatusNotFound, err.Error(), nil)
	case errors.Is(err, errs.ErrSoldOut):
		respond(c, http.StatusConflict, err.Error(), nil)
	case errors.Is(err, errs.ErrInvalidTransition):
		respond(c, http.StatusConflict, err.Error(), nil)
	case errors.Is(err, errs.ErrDuplicate):
		respond(c, http.StatusConflict, err.Error(), nil)
	case errors.Is(err, errs.ErrUserValidationFailed):
		respond(c, http.StatusUnprocessableEntity, err.Error(), nil)
	case errors.Is(err, errs.ErrPaymentFailed):
		respond(c, http.StatusPaymentRequired, err.Error(), nil)
	case errors.Is(err, errs.ErrUpstreamUnavailable):
		respond(c, http.StatusBadGateway, err.Error(), nil)
	default:
		respond(c, http.StatusInternalServerError, "internal server error", nil)
	}
}
