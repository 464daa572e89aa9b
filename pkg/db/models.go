package db

import "time"

// LoadRecord is one reload attempt of the document.
type LoadRecord struct {
	ID              int64
	LoadID          string
	Source          string
	DocumentVersion string
	Freshness       int64
	Words           int
	Refs            int
	Rules           int
	KeyCollisions   int
	Duration        time.Duration
	Error           string
	StartedAt       time.Time
}

// Succeeded reports whether the reload published a snapshot.
func (r LoadRecord) Succeeded() bool { return r.Error == "" }
