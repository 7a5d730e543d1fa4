package models

import "time"

// Subject represents an academic subject with weekly theory and practice hours.
type Subject struct {
	ID        string    `db:"id" json:"id"`
	Name      string    `db:"name" json:"name"`
	Theory    int       `db:"theory" json:"theory"`
	Practice  int       `db:"practice" json:"practice"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`
}

// Duration is the number of contiguous periods the subject occupies.
func (s Subject) Duration() int {
	return s.Theory + s.Practice
}
