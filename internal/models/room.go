package models

import "time"

// Room is an interchangeable teaching room. Rooms carry no capacity or
// subject affinity; any room can host any session.
type Room struct {
	ID        string    `db:"id" json:"id"`
	Name      string    `db:"name" json:"name"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`
}
