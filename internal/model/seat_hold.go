package model

import "time"

// SeatStatus tags an occupied seat.  A seat is never represented by a bare
// user id or a boolean: it is either temporarily held pending payment or
// permanently confirmed.
type SeatStatus string

const (
	SeatHeld      SeatStatus = "held"
	SeatConfirmed SeatStatus = "confirmed"
)

// SeatHold is the value stored in a show's seat map for every occupied
// seat.  ExpiresAt only matters while Status is SeatHeld; it is zeroed when
// the seat is confirmed.
//
// Fields:
//
//	BookingID – booking that owns the seat.
//	HolderID  – user who placed the hold.
//	Status    – held or confirmed.
//	ExpiresAt – when an unpaid hold becomes reclaimable.
type SeatHold struct {
	BookingID string     `json:"booking_id"`
	HolderID  string     `json:"holder_id"`
	Status    SeatStatus `json:"status"`
	ExpiresAt time.Time  `json:"expires_at,omitzero"`
}

// OwnedBy reports whether the entry is still a live hold belonging to the
// given booking and holder.  Confirmed entries never match.
func (h SeatHold) OwnedBy(bookingID, holderID string) bool {
	return h.Status == SeatHeld && h.BookingID == bookingID && h.HolderID == holderID
}

// SeatMap maps a seat label (e.g. "A1") to its occupant.  A label is present
// only while the seat is held or confirmed.
type SeatMap map[string]SeatHold

// Clone copies the map; SeatHold values are plain data so a shallow copy
// of each entry is sufficient.
func (m SeatMap) Clone() SeatMap {
	out := make(SeatMap, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}

// Contested returns the labels from seats that already have an entry,
// preserving the order of seats.
func (m SeatMap) Contested(seats []string) []string {
	var taken []string
	for _, s := range seats {
		if _, ok := m[s]; ok {
			taken = append(taken, s)
		}
	}
	return taken
}
