package handlers

import (
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"

	"auctionsite/internal/domain"
)

// httpError maps a domain error to a JSON error response. Argument-class
// failures are the client's fault, conflicts get 409, everything else is
// a server-side 5xx.
func httpError(c echo.Context, err error) error {
	status := http.StatusInternalServerError
	switch {
	case errors.Is(err, domain.ErrNullArgument),
		errors.Is(err, domain.ErrInvalidArgument),
		errors.Is(err, domain.ErrOutOfRange),
		errors.Is(err, domain.ErrImpossibleSchedule):
		status = http.StatusBadRequest
	case errors.Is(err, domain.ErrInexistentName):
		status = http.StatusNotFound
	case errors.Is(err, domain.ErrInvalidOperation):
		status = http.StatusConflict
	case errors.Is(err, domain.ErrNameAlreadyInUse):
		status = http.StatusConflict
	case errors.Is(err, domain.ErrConcurrentChange):
		status = http.StatusConflict
	case errors.Is(err, domain.ErrStoreUnavailable):
		status = http.StatusServiceUnavailable
	}
	return c.JSON(status, map[string]string{"error": err.Error()})
}
