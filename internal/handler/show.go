package handler

import (
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/seat-booking-engine/internal/model"
	"github.com/iliyamo/seat-booking-engine/internal/repository"
	"github.com/iliyamo/seat-booking-engine/internal/service"
)

// ShowHandler exposes upcoming shows and their seat availability.  It is
// public.
type ShowHandler struct {
	manager *service.Manager
}

func NewShowHandler(manager *service.Manager) *ShowHandler {
	return &ShowHandler{manager: manager}
}

type seatView struct {
	Status   model.SeatStatus `json:"status"`
	HolderID string           `json:"holder_id"`
}

// Seats handles GET /v1/shows/:id/seats.  Only occupied seats are listed;
// any label not present is free.
func (h *ShowHandler) Seats(c echo.Context) error {
	showID := c.Param("id")
	seats, err := h.manager.Availability(c.Request().Context(), showID)
	if err != nil {
		return respondError(c, err)
	}
	out := make(map[string]seatView, len(seats))
	for label, s := range seats {
		out[label] = seatView{Status: s.Status, HolderID: s.HolderID}
	}
	return c.JSON(http.StatusOK, echo.Map{"show_id": showID, "seats": out})
}

// showSummary is the list view of a show.  Only safe fields are exposed.
type showSummary struct {
	ID         string    `json:"id"`
	Title      string    `json:"title"`
	StartsAt   time.Time `json:"starts_at"`
	PriceCents int64     `json:"price_cents"`
	SeatsTaken int       `json:"seats_taken"`
}

// List handles GET /v1/shows?title=&page=&page_size=.
func (h *ShowHandler) List(c echo.Context) error {
	page, _ := strconv.Atoi(c.QueryParam("page"))
	ps, _ := strconv.Atoi(c.QueryParam("page_size"))
	q := repository.ShowSearchQuery{
		Title:    strings.TrimSpace(c.QueryParam("title")),
		Page:     max(page, 1),
		PageSize: ps,
	}
	if q.PageSize < 1 {
		q.PageSize = 20
	}
	if q.PageSize > 100 {
		q.PageSize = 100
	}

	shows, total, err := h.manager.UpcomingShows(c.Request().Context(), q)
	if err != nil {
		return respondError(c, err)
	}
	items := make([]showSummary, 0, len(shows))
	for _, s := range shows {
		items = append(items, showSummary{
			ID:         s.ID,
			Title:      s.Title,
			StartsAt:   s.ScheduleTime,
			PriceCents: s.PriceCents,
			SeatsTaken: len(s.Seats),
		})
	}
	return c.JSON(http.StatusOK, echo.Map{
		"data":      items,
		"total":     total,
		"page":      q.Page,
		"page_size": q.PageSize,
	})
}
