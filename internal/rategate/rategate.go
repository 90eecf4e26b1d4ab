// Package rategate enforces the daily hard cap on successful generations.
// The cap bounds platform cost independently of a user's balance.
package rategate

import (
	"context"
	"fmt"
	"time"
)

// DefaultDailyCap is the reference deployment's ceiling on successful
// generations per user per calendar day.
const DefaultDailyCap = 20

// Counter supplies the number of generation records created since a point in
// time. Satisfied by the generations repository.
type Counter interface {
	CountGenerationsSince(ctx context.Context, userID string, since time.Time) (int, error)
}

// Gate checks the rolling calendar-day cap. It is read only; concurrent
// requests from the same user can overshoot slightly, which is accepted.
type Gate struct {
	counter Counter
	cap     int
	now     func() time.Time
}

// New builds a Gate. A non-positive cap falls back to DefaultDailyCap.
func New(counter Counter, cap int) *Gate {
	if cap <= 0 {
		cap = DefaultDailyCap
	}
	return &Gate{counter: counter, cap: cap, now: time.Now}
}

// Result reports the current day's usage and whether another generation is
// allowed.
type Result struct {
	CountToday int
	Allowed    bool
}

// Check counts the user's generations since the start of the current
// calendar day and compares against the cap.
func (g *Gate) Check(ctx context.Context, userID string) (Result, error) {
	now := g.now()
	start := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, now.Location())
	count, err := g.counter.CountGenerationsSince(ctx, userID, start)
	if err != nil {
		return Result{}, fmt.Errorf("rategate: count generations: %w", err)
	}
	return Result{CountToday: count, Allowed: count < g.cap}, nil
}

// Cap returns the configured ceiling.
func (g *Gate) Cap() int {
	return g.cap
}
