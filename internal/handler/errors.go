package handler

import (
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/sirupsen/logrus"

	"github.com/iliyamo/seat-booking-engine/internal/gateway"
	"github.com/iliyamo/seat-booking-engine/internal/service"
)

// respondError maps service errors onto HTTP responses.  Anything it does
// not recognise is logged and reported as a 500 without details.
func respondError(c echo.Context, err error) error {
	var conflict *service.SeatConflictError
	switch {
	case errors.As(err, &conflict):
		return c.JSON(http.StatusConflict, echo.Map{"error": "seat_conflict", "contested_seats": conflict.Contested})
	case errors.Is(err, service.ErrInvalidHold), errors.Is(err, service.ErrInvalidFilter):
		return c.JSON(http.StatusBadRequest, echo.Map{"error": err.Error()})
	case errors.Is(err, gateway.ErrInvalidSignature):
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "invalid signature"})
	case errors.Is(err, service.ErrForbidden):
		return c.JSON(http.StatusForbidden, echo.Map{"error": "forbidden"})
	case errors.Is(err, service.ErrShowNotFound):
		return c.JSON(http.StatusNotFound, echo.Map{"error": "show not found"})
	case errors.Is(err, service.ErrBookingNotFound):
		return c.JSON(http.StatusNotFound, echo.Map{"error": "booking not found"})
	case errors.Is(err, service.ErrUnknownReference):
		return c.JSON(http.StatusNotFound, echo.Map{"error": "unknown payment reference"})
	case errors.Is(err, service.ErrShowStarted):
		return c.JSON(http.StatusConflict, echo.Map{"error": "show already started"})
	case errors.Is(err, service.ErrAlreadyFinalized):
		return c.JSON(http.StatusConflict, echo.Map{"error": "booking already finalized"})
	case errors.Is(err, service.ErrHoldLost):
		return c.JSON(http.StatusConflict, echo.Map{"error": "hold_lost"})
	case errors.Is(err, service.ErrTooLate):
		return c.JSON(http.StatusGone, echo.Map{"error": "too_late"})
	case errors.Is(err, service.ErrGatewayUnavailable):
		return c.JSON(http.StatusBadGateway, echo.Map{"error": "payment gateway unavailable"})
	case errors.Is(err, service.ErrStorageConflict):
		c.Response().Header().Set("Retry-After", "1")
		return c.JSON(http.StatusServiceUnavailable, echo.Map{"error": "busy, retry"})
	}
	logrus.WithError(err).WithField("path", c.Path()).Error("unhandled error")
	return c.JSON(http.StatusInternalServerError, echo.Map{"error": "internal error"})
}
