package models

// TimeSlot is one schedulable period, totally ordered by (day, period).
type TimeSlot struct {
	ID     string `db:"id" json:"id"`
	Day    int    `db:"day" json:"day"`
	Period int    `db:"period" json:"period"`
}
