package engine

import (
	"errors"
	"sort"

	"github.com/sala-school/timetable-api/internal/models"
)

// ErrEmptyCalendar is returned when there are no time slots to index.
var ErrEmptyCalendar = errors.New("no time slots to index")

// Calendar indexes an ordered time-slot collection into per-day sequences.
// The input must already be sorted by (day, period) with the excluded break
// period filtered out; positions in the input become global slot indices.
type Calendar struct {
	slots         []models.TimeSlot
	days          []int
	daySlots      map[int][]int
	periodsPerDay int
}

// NewCalendar builds the day partition and the maximum contiguous capacity
// per day. It is deterministic for identical input ordering.
func NewCalendar(slots []models.TimeSlot) (*Calendar, error) {
	if len(slots) == 0 {
		return nil, ErrEmptyCalendar
	}

	daySlots := make(map[int][]int)
	for i, slot := range slots {
		daySlots[slot.Day] = append(daySlots[slot.Day], i)
	}

	days := make([]int, 0, len(daySlots))
	periodsPerDay := 0
	for day, indices := range daySlots {
		days = append(days, day)
		if len(indices) > periodsPerDay {
			periodsPerDay = len(indices)
		}
	}
	sort.Ints(days)

	return &Calendar{
		slots:         slots,
		days:          days,
		daySlots:      daySlots,
		periodsPerDay: periodsPerDay,
	}, nil
}

// Len returns the number of schedulable slots.
func (c *Calendar) Len() int {
	return len(c.slots)
}

// Slot resolves a global slot index back to its TimeSlot.
func (c *Calendar) Slot(i int) models.TimeSlot {
	return c.slots[i]
}

// Days returns the day labels in ascending order.
func (c *Calendar) Days() []int {
	return c.days
}

// DaySlots returns the ordered global slot indices belonging to a day.
func (c *Calendar) DaySlots(day int) []int {
	return c.daySlots[day]
}

// PeriodsPerDay is the maximum number of slots any single day offers.
func (c *Calendar) PeriodsPerDay() int {
	return c.periodsPerDay
}
