package repository

import (
	"context"
	"sort"
	"strings"
	"time"

	"github.com/iliyamo/seat-booking-engine/internal/model"
)

// ShowSearchQuery defines filters & pagination for listing shows.
type ShowSearchQuery struct {
	Title    string
	After    time.Time // only shows starting at or after this instant
	Page     int
	PageSize int
}

func (q ShowSearchQuery) normalize() ShowSearchQuery {
	if q.Page < 1 {
		q.Page = 1
	}
	if q.PageSize < 1 {
		q.PageSize = 20
	}
	if q.PageSize > 100 {
		q.PageSize = 100
	}
	q.Title = strings.ToLower(strings.TrimSpace(q.Title))
	return q
}

// SearchUpcoming returns one page of shows ordered by start time together
// with the total number of matches.
func (r *ShowRepo) SearchUpcoming(ctx context.Context, q ShowSearchQuery) ([]model.Show, int64, error) {
	q = q.normalize()
	where := []string{"schedule_time >= ?"}
	args := []any{q.After.UTC()}
	if q.Title != "" {
		where = append(where, "LOWER(title) LIKE ?")
		args = append(args, "%"+q.Title+"%")
	}
	cond := strings.Join(where, " AND ")

	var total int64
	countSQL := r.dialect.Rebind(`SELECT COUNT(*) FROM shows WHERE ` + cond)
	if err := r.db.QueryRowContext(ctx, countSQL, args...).Scan(&total); err != nil {
		return nil, 0, err
	}

	dataSQL := r.dialect.Rebind(`SELECT ` + showColumns + ` FROM shows WHERE ` + cond + ` ORDER BY schedule_time ASC LIMIT ? OFFSET ?`)
	argsData := append(append([]any{}, args...), q.PageSize, (q.Page-1)*q.PageSize)
	rows, err := r.db.QueryContext(ctx, dataSQL, argsData...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	out := make([]model.Show, 0, q.PageSize)
	for rows.Next() {
		s, err := scanShow(rows)
		if err != nil {
			return nil, 0, err
		}
		out = append(out, *s)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, err
	}
	return out, total, nil
}

// SearchShows lists upcoming shows.
func (s *SQLStore) SearchShows(ctx context.Context, q ShowSearchQuery) ([]model.Show, int64, error) {
	return s.Shows.SearchUpcoming(ctx, q)
}

// SearchShows lists upcoming shows; see ShowRepo.SearchUpcoming.
func (s *MemoryStore) SearchShows(_ context.Context, q ShowSearchQuery) ([]model.Show, int64, error) {
	q = q.normalize()
	s.mu.RLock()
	matches := make([]model.Show, 0)
	for _, show := range s.shows {
		if show.ScheduleTime.Before(q.After) {
			continue
		}
		if q.Title != "" && !strings.Contains(strings.ToLower(show.Title), q.Title) {
			continue
		}
		matches = append(matches, *show.Clone())
	}
	s.mu.RUnlock()

	sort.Slice(matches, func(i, j int) bool { return matches[i].ScheduleTime.Before(matches[j].ScheduleTime) })
	total := int64(len(matches))
	from := (q.Page - 1) * q.PageSize
	if from >= len(matches) {
		return []model.Show{}, total, nil
	}
	to := min(from+q.PageSize, len(matches))
	return matches[from:to], total, nil
}
