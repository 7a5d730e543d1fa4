package models

import "time"

// ScheduleEntry is one materialized row of the generated timetable: a group
// sits one subject with one teacher in one room during one time slot. A
// multi-period session produces one entry per covered slot.
type ScheduleEntry struct {
	ID         string    `db:"id" json:"id"`
	GroupID    string    `db:"group_id" json:"group_id"`
	TimeSlotID string    `db:"timeslot_id" json:"timeslot_id"`
	SubjectID  string    `db:"subject_id" json:"subject_id"`
	TeacherID  string    `db:"teacher_id" json:"teacher_id"`
	RoomID     string    `db:"room_id" json:"room_id"`
	CreatedAt  time.Time `db:"created_at" json:"created_at"`
}
