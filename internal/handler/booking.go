package handler

import (
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/seat-booking-engine/internal/middleware"
	"github.com/iliyamo/seat-booking-engine/internal/model"
	"github.com/iliyamo/seat-booking-engine/internal/service"
)

// BookingHandler serves booking creation, lookup, abandonment and the
// per-user history.  JWTAuth runs in front of every route.
type BookingHandler struct {
	checkout *service.Checkout
	manager  *service.Manager
	ledger   *service.Ledger
	holdTTL  time.Duration
}

func NewBookingHandler(checkout *service.Checkout, manager *service.Manager, ledger *service.Ledger, holdTTL time.Duration) *BookingHandler {
	if checkout == nil || manager == nil || ledger == nil {
		panic("nil dependency passed to NewBookingHandler")
	}
	return &BookingHandler{checkout: checkout, manager: manager, ledger: ledger, holdTTL: holdTTL}
}

type createBookingRequest struct {
	ShowID   string   `json:"show_id"`
	Seats    []string `json:"seats"`
	HolderID string   `json:"holder_id"`
}

// Create handles POST /v1/bookings.  It holds the seats for the
// authenticated user and opens a checkout session.
func (h *BookingHandler) Create(c echo.Context) error {
	userID := middleware.UserID(c)
	if userID == "" {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	var body createBookingRequest
	if err := c.Bind(&body); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid request body"})
	}
	if body.HolderID != "" && body.HolderID != userID {
		return c.JSON(http.StatusForbidden, echo.Map{"error": "holder_id does not match token"})
	}
	if strings.TrimSpace(body.ShowID) == "" {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "show_id is required"})
	}

	res, err := h.checkout.Start(c.Request().Context(), service.HoldRequest{
		ShowID:   strings.TrimSpace(body.ShowID),
		Seats:    body.Seats,
		HolderID: userID,
		TTL:      h.holdTTL,
	})
	if err != nil {
		return respondError(c, err)
	}
	b := res.Booking
	return c.JSON(http.StatusCreated, echo.Map{
		"booking_id":   b.ID,
		"show_id":      b.ShowID,
		"seats":        b.Seats,
		"status":       b.Status,
		"payment_ref":  res.PaymentRef,
		"checkout_url": res.CheckoutURL,
		"expires_at":   b.ExpiresAt,
		"amount_cents": b.AmountCents,

		"checkout_expires_at": res.SessionExpiresAt,
	})
}

// Get handles GET /v1/bookings/:id for the owner or an admin.
func (h *BookingHandler) Get(c echo.Context) error {
	b, err := h.ledger.Get(c.Request().Context(), c.Param("id"), middleware.UserID(c), middleware.IsAdmin(c))
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(http.StatusOK, echo.Map{"item": b})
}

// Abandon handles DELETE /v1/bookings/:id.  The owner gives up an unpaid
// hold: the booking expires now and its seats return to the pool.
func (h *BookingHandler) Abandon(c echo.Context) error {
	res, err := h.manager.Release(c.Request().Context(), service.ReleaseRequest{
		BookingID: c.Param("id"),
		HolderID:  middleware.UserID(c),
		Expire:    true,
	})
	if err != nil {
		return respondError(c, err)
	}
	released := res.Released
	if released == nil {
		released = []string{}
	}
	return c.JSON(http.StatusOK, echo.Map{"released": released, "status": model.BookingExpired})
}

// ListForUser handles GET /v1/users/:id/bookings?limit=&offset=.  Users
// see their own history; admins may look at anyone's.
func (h *BookingHandler) ListForUser(c echo.Context) error {
	target := c.Param("id")
	if target != middleware.UserID(c) && !middleware.IsAdmin(c) {
		return c.JSON(http.StatusForbidden, echo.Map{"error": "forbidden"})
	}
	limit, err := queryInt(c, "limit")
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid limit"})
	}
	offset, err := queryInt(c, "offset")
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid offset"})
	}
	page, err := h.ledger.ForUser(c.Request().Context(), target, limit, offset)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(http.StatusOK, echo.Map{
		"items":    page.Items,
		"limit":    page.Limit,
		"offset":   page.Offset,
		"has_more": page.HasMore,
	})
}

// queryInt reads a non-negative integer query parameter; absent is 0.
func queryInt(c echo.Context, name string) (int, error) {
	raw := c.QueryParam(name)
	if raw == "" {
		return 0, nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n < 0 {
		return 0, fmt.Errorf("invalid %s %q", name, raw)
	}
	return n, nil
}
