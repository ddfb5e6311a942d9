// Package router wires handlers and middleware onto the echo instance.
package router

import (
	"github.com/labstack/echo/v4"

	"github.com/iliyamo/seat-booking-engine/internal/handler"
	"github.com/iliyamo/seat-booking-engine/internal/middleware"
)

// Handlers groups everything the routes need.
type Handlers struct {
	Bookings  *handler.BookingHandler
	Shows     *handler.ShowHandler
	Payments  *handler.PaymentHandler
	Admin     *handler.AdminHandler
	JWTSecret string
	// HoldLimiter throttles booking creation; nil disables it.
	HoldLimiter echo.MiddlewareFunc
}

// RegisterRoutes registers the health check.
func RegisterRoutes(e *echo.Echo) {
	e.GET("/healthz", handler.Health)
}

// RegisterPublic registers endpoints that need no token: show listing and
// seat availability for browsing, and the payment provider's webhook, which authenticates with
// its own signature.
func RegisterPublic(e *echo.Echo, h Handlers) {
	g := e.Group("/v1")
	g.GET("/shows", h.Shows.List)
	g.GET("/shows/:id/seats", h.Shows.Seats)
	g.POST("/payments/confirm", h.Payments.Confirm)
}

// RegisterCustomer registers the booking endpoints.  Every route requires a
// valid JWT; ownership is checked by the handlers.
func RegisterCustomer(e *echo.Echo, h Handlers) {
	auth := middleware.JWTAuth(h.JWTSecret)
	create := []echo.MiddlewareFunc{auth}
	if h.HoldLimiter != nil {
		create = append(create, h.HoldLimiter)
	}

	g := e.Group("/v1")
	g.POST("/bookings", h.Bookings.Create, create...)
	g.GET("/bookings/:id", h.Bookings.Get, auth)
	g.DELETE("/bookings/:id", h.Bookings.Abandon, auth)
	g.GET("/users/:id/bookings", h.Bookings.ListForUser, auth)
}

// RegisterAdmin registers the ADMIN-only ledger views under /v1/admin.
func RegisterAdmin(e *echo.Echo, h Handlers) {
	g := e.Group("/v1/admin", middleware.JWTAuth(h.JWTSecret), middleware.RequireRole(middleware.RoleAdmin))
	g.GET("/bookings", h.Admin.ListBookings)
	g.GET("/dashboard", h.Admin.Dashboard)
}

// Register installs every route group.
func Register(e *echo.Echo, h Handlers) {
	RegisterRoutes(e)
	RegisterPublic(e, h)
	RegisterCustomer(e, h)
	RegisterAdmin(e, h)
}
