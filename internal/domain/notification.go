package domain

import "time"

// Notification summarizes a finished generation session for the dashboard
// notification feed.
type Notification struct {
	ID            string
	UserID        string
	ProducedCount int
	Message       string
	Read          bool
	CreatedAt     time.Time
}
