package httpapi

import (
	"errors"
	"net/http"

	"callcredits-platform/internal/billing"
	"callcredits-platform/internal/payment"
	"callcredits-platform/internal/reporting"
	"callcredits-platform/internal/user"
	"callcredits-platform/internal/wallet"

	"github.com/gin-gonic/gin"
)

// statusFor maps domain error kinds to HTTP status codes. Every sentinel a
// service exposes has exactly one row here; anything unrecognized is a 500.
func statusFor(err error) int {
	switch {
	case errors.Is(err, wallet.ErrInvalidArgument),
		errors.Is(err, billing.ErrInvalidArgument),
		errors.Is(err, payment.ErrInvalidArgument),
		errors.Is(err, reporting.ErrInvalidRequest):
		return http.StatusBadRequest

	case errors.Is(err, user.ErrInvalidCredentials):
		return http.StatusUnauthorized

	case errors.Is(err, wallet.ErrInsufficientFunds):
		return http.StatusPaymentRequired

	case errors.Is(err, wallet.ErrForbidden),
		errors.Is(err, billing.ErrForbidden),
		errors.Is(err, user.ErrInactive):
		return http.StatusForbidden

	case errors.Is(err, wallet.ErrNotFound),
		errors.Is(err, billing.ErrNotFound),
		errors.Is(err, payment.ErrNotFound),
		errors.Is(err, user.ErrNotFound):
		return http.StatusNotFound

	case errors.Is(err, billing.ErrInvalidState):
		return http.StatusConflict

	case errors.Is(err, billing.ErrTooManyActiveCalls):
		return http.StatusTooManyRequests

	case errors.Is(err, payment.ErrGateway):
		return http.StatusBadGateway
	}
	return http.StatusInternalServerError
}

func writeError(c *gin.Context, err error) {
	status := statusFor(err)
	msg := err.Error()
	if status == http.StatusInternalServerError {
		msg = "internal error"
	}
	c.AbortWithStatusJSON(status, gin.H{"error": msg})
}
