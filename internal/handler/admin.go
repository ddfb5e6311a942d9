package handler

import (
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/seat-booking-engine/internal/model"
	"github.com/iliyamo/seat-booking-engine/internal/repository"
	"github.com/iliyamo/seat-booking-engine/internal/service"
)

// AdminHandler serves the administrative ledger views.  RequireRole(ADMIN)
// guards every route.
type AdminHandler struct {
	ledger *service.Ledger
}

func NewAdminHandler(ledger *service.Ledger) *AdminHandler {
	return &AdminHandler{ledger: ledger}
}

// ListBookings handles GET /v1/admin/bookings?status=&show_id=&user_id=&limit=&offset=.
func (h *AdminHandler) ListBookings(c echo.Context) error {
	f := repository.BookingFilter{
		Status: model.BookingStatus(c.QueryParam("status")),
		ShowID: c.QueryParam("show_id"),
		UserID: c.QueryParam("user_id"),
	}
	if raw := c.QueryParam("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n <= 0 {
			return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid limit"})
		}
		f.Limit = n
	}
	offset, err := queryInt(c, "offset")
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid offset"})
	}
	f.Offset = offset
	items, err := h.ledger.List(c.Request().Context(), f)
	if err != nil {
		return respondError(c, err)
	}
	if items == nil {
		items = []model.Booking{}
	}
	return c.JSON(http.StatusOK, echo.Map{"items": items})
}

// Dashboard handles GET /v1/admin/dashboard.
func (h *AdminHandler) Dashboard(c echo.Context) error {
	stats, err := h.ledger.Stats(c.Request().Context())
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(http.StatusOK, stats)
}
