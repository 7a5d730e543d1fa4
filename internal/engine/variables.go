package engine

import "github.com/sala-school/timetable-api/internal/models"

// Placement is one structurally feasible session placement: a group sits a
// subject with a teacher in a room as a contiguous block starting at a
// global slot index. One boolean decision variable exists per Placement.
type Placement struct {
	Group    string
	Subject  string
	Teacher  string
	Room     string
	Start    int
	Duration int
}

// SkippedSubject records a (group, subject) pair excluded from the model
// before solving.
type SkippedSubject struct {
	Group    string
	Subject  string
	Duration int
}

// Report collects the structural skips of a build. Both lists depend only on
// the input data, never on solver behaviour.
type Report struct {
	// Oversized pairs need more contiguous periods than any day offers.
	Oversized []SkippedSubject
	// NoSlot pairs fit in principle but found no valid start position.
	NoSlot []SkippedSubject
}

// Pair identifies a (group, subject) scheduling demand.
type Pair struct {
	Group   string
	Subject string
}

// VariableSet holds the decision variables of one generation run. Variable
// ids are 1-based positions into Placements, matching SAT literal numbering.
type VariableSet struct {
	Placements []Placement
	pairs      []Pair
	pairVars   map[Pair][]int
}

// Pairs returns the (group, subject) pairs that produced variables, in
// build order.
func (v *VariableSet) Pairs() []Pair {
	return v.pairs
}

// PairVars returns the variable ids of one pair.
func (v *VariableSet) PairVars(group, subject string) []int {
	return v.pairVars[Pair{Group: group, Subject: subject}]
}

// Len returns the number of decision variables.
func (v *VariableSet) Len() int {
	return len(v.Placements)
}

// BuildVariables enumerates the feasible placement space. For every demanded
// (group, subject) pair it derives the valid start offsets per day
// analytically, then crosses them with the eligible teachers and the room
// pool. Every emitted Placement covers duration consecutive slots of a
// single day; blocks never straddle a day boundary or an index gap.
//
// The variable count is bounded by groups x subjects x days x periodsPerDay
// x teachers x rooms, which dominates model size and solve cost.
//
// Callers must have validated that every demanded subject id resolves to an
// entry in subjects.
func BuildVariables(cal *Calendar, demand Demand, subjects map[string]models.Subject, rooms []string) (*VariableSet, Report) {
	vars := &VariableSet{pairVars: make(map[Pair][]int)}
	var report Report

	for _, group := range demand.Groups {
		for _, subjectID := range demand.GroupSubjects[group] {
			subject := subjects[subjectID]
			duration := subject.Duration()

			if duration > cal.PeriodsPerDay() {
				report.Oversized = append(report.Oversized, SkippedSubject{Group: group, Subject: subjectID, Duration: duration})
				continue
			}

			teachers := demand.SubjectTeachers[subjectID]
			key := Pair{Group: group, Subject: subjectID}
			created := 0

			for _, day := range cal.Days() {
				indices := cal.DaySlots(day)
				for p := 0; p+duration <= len(indices); p++ {
					if !consecutive(indices[p : p+duration]) {
						continue
					}
					start := indices[p]
					for _, teacher := range teachers {
						for _, room := range rooms {
							vars.Placements = append(vars.Placements, Placement{
								Group:    group,
								Subject:  subjectID,
								Teacher:  teacher,
								Room:     room,
								Start:    start,
								Duration: duration,
							})
							id := len(vars.Placements)
							vars.pairVars[key] = append(vars.pairVars[key], id)
							created++
						}
					}
				}
			}

			if created == 0 {
				report.NoSlot = append(report.NoSlot, SkippedSubject{Group: group, Subject: subjectID, Duration: duration})
				continue
			}
			vars.pairs = append(vars.pairs, key)
		}
	}

	return vars, report
}

// consecutive guards against any non-contiguous global indexing inside a
// day's slot list.
func consecutive(indices []int) bool {
	for k := 1; k < len(indices); k++ {
		if indices[k] != indices[0]+k {
			return false
		}
	}
	return true
}
