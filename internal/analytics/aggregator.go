// Package analytics computes the admin dashboard figures.
package analytics

import (
	"context"
	"time"

	"notely/internal/apperr"
	"notely/internal/models"
	"notely/internal/store"
)

const (
	topLimit   = 5
	windowDays = 7
	dateLayout = "2006-01-02"
)

type Aggregator struct {
	store store.Store
	now   func() time.Time
	loc   *time.Location
}

// NewAggregator returns an aggregator that buckets days in loc. A nil loc means time.Local.
func NewAggregator(s store.Store, loc *time.Location) *Aggregator {
	if loc == nil {
		loc = time.Local
	}
	return &Aggregator{store: s, now: time.Now, loc: loc}
}

func requireAdmin(actor models.Actor) error {
	if !actor.IsAdmin() {
		return apperr.Forbidden("Admin access required")
	}
	return nil
}

// MostActiveUsers returns the five users owning the most notes.
func (a *Aggregator) MostActiveUsers(ctx context.Context, actor models.Actor) ([]models.UserNoteCount, error) {
	if err := requireAdmin(actor); err != nil {
		return nil, err
	}
	counts, err := a.store.CountNotesByOwner(ctx, topLimit)
	if err != nil {
		return nil, apperr.Internal("Failed to fetch most active users", err)
	}
	return counts, nil
}

func (a *Aggregator) MostUsedTags(ctx context.Context, actor models.Actor) ([]models.TagCount, error) {
	if err := requireAdmin(actor); err != nil {
		return nil, err
	}
	counts, err := a.store.CountTags(ctx, topLimit)
	if err != nil {
		return nil, apperr.Internal("Failed to fetch most used tags", err)
	}
	return counts, nil
}

// NotesPerDay counts notes created on each of the last seven calendar days,
// today included, oldest first. Days without notes report zero.
func (a *Aggregator) NotesPerDay(ctx context.Context, actor models.Actor) ([]models.DayCount, error) {
	if err := requireAdmin(actor); err != nil {
		return nil, err
	}

	now := a.now().In(a.loc)
	today := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, a.loc)
	start := today.AddDate(0, 0, -(windowDays - 1))

	times, err := a.store.NoteCreationTimes(ctx, start)
	if err != nil {
		return nil, apperr.Internal("Failed to fetch notes per day", err)
	}

	byDay := make(map[string]int, windowDays)
	for _, t := range times {
		byDay[t.In(a.loc).Format(dateLayout)]++
	}

	days := make([]models.DayCount, 0, windowDays)
	for i := range windowDays {
		date := start.AddDate(0, 0, i).Format(dateLayout)
		days = append(days, models.DayCount{Date: date, Count: byDay[date]})
	}
	return days, nil
}
