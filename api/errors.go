package api

import (
	"errors"
	"net/http"

	"github.com/dsemenov/skyfare/internal/domain"
	"github.com/gin-gonic/gin"
)

func respondError(c *gin.Context, err error) {
	var fundsErr *domain.InsufficientFundsError
	if errors.As(err, &fundsErr) {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":     fundsErr.Error(),
			"required":  fundsErr.Required,
			"available": fundsErr.Available,
		})
		return
	}
	var seatsErr *domain.InsufficientSeatsError
	if errors.As(err, &seatsErr) {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":     seatsErr.Error(),
			"requested": seatsErr.Requested,
			"available": seatsErr.Available,
		})
		return
	}

	switch {
	case errors.Is(err, domain.ErrFlightNotFound), errors.Is(err, domain.ErrBookingNotFound), errors.Is(err, domain.ErrWalletNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
	case errors.Is(err, domain.ErrForbidden):
		c.JSON(http.StatusForbidden, gin.H{"error": err.Error()})
	default:
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
	}
}
