package handler

import (
	"errors"
	"net/http"

	"magirls/internal/apierror"
	"magirls/internal/repository"
	"magirls/internal/service"

	"github.com/gin-gonic/gin"
)

// respondError maps service errors onto HTTP statuses. Anything unknown is
// attached to the context for ErrorHandler, which answers a generic 500.
func respondError(c *gin.Context, err error) {
	var (
		failed       *service.CheckoutFailedError
		noBatches    *service.NoBatchesError
		race         *service.StockRaceError
		unknownCode  *service.UnknownCodeError
		outOfStock   *service.OutOfStockError
		insufficient *service.InsufficientStockError
	)

	switch {
	case errors.As(err, &failed):
		// Commit-phase failure: only domain causes are shown.
		if errors.As(failed.Cause, &noBatches) {
			c.JSON(http.StatusConflict, apierror.WithCode(apierror.CodeNoBatches, "Checkout failed: "+noBatches.Error()))
			return
		}
		_ = c.Error(err)
		c.JSON(http.StatusInternalServerError, apierror.WithCode(apierror.CodeCheckoutFailed, "Checkout failed"))
	case errors.As(err, &race):
		c.JSON(http.StatusConflict, apierror.WithCode(apierror.CodeStockRace, race.Error()))
	case errors.Is(err, service.ErrInvalidCredentials):
		c.JSON(http.StatusUnauthorized, apierror.WithCode(apierror.CodeUnauthorized, err.Error()))
	case errors.As(err, &unknownCode):
		c.JSON(http.StatusNotFound, apierror.WithCode(apierror.CodeUnknownCode, err.Error()))
	case errors.Is(err, repository.ErrNotFound):
		c.JSON(http.StatusNotFound, apierror.WithCode(apierror.CodeNotFound, err.Error()))
	case errors.As(err, &outOfStock):
		c.JSON(http.StatusBadRequest, apierror.WithCode(apierror.CodeOutOfStock, err.Error()))
	case errors.As(err, &insufficient):
		c.JSON(http.StatusBadRequest, apierror.WithCode(apierror.CodeInsufficientStock, err.Error()))
	case errors.Is(err, service.ErrEmptyCart),
		errors.Is(err, service.ErrInvalidQuantity),
		errors.Is(err, service.ErrNegativePrice):
		c.JSON(http.StatusBadRequest, apierror.WithCode(apierror.CodeInvalidCart, err.Error()))
	case errors.Is(err, repository.ErrConflict):
		c.JSON(http.StatusConflict, apierror.WithCode(apierror.CodeConflict, "Conflicting update, retry"))
	default:
		_ = c.Error(err)
		c.JSON(http.StatusInternalServerError, apierror.New("Internal server error"))
	}
}
