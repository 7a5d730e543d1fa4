package engine

import "github.com/sala-school/timetable-api/internal/models"

// Demand maps every group to its required subjects and every required
// subject to its eligible teachers.
type Demand struct {
	// Groups preserves first-seen registration order for deterministic
	// iteration.
	Groups []string
	// GroupSubjects lists required subject ids per group, deduplicated,
	// in registration order.
	GroupSubjects map[string][]string
	// SubjectTeachers lists eligible teacher ids per subject. Subjects
	// required by some group but taught by nobody carry the fallback
	// teacher id instead.
	SubjectTeachers map[string][]string
}

// ResolveDemand is a pure function of the registration and teaching edges.
// A group with no registrations simply does not appear. The fallback teacher
// participates in teacher exclusivity like any real teacher, so two
// teacherless subjects can never run concurrently; operators who want them
// in parallel must assign real teachers.
func ResolveDemand(regs []models.Registration, assignments []models.TeachingAssignment, fallbackTeacher string) Demand {
	d := Demand{
		GroupSubjects:   make(map[string][]string),
		SubjectTeachers: make(map[string][]string),
	}

	seenPair := make(map[string]map[string]bool)
	for _, reg := range regs {
		if seenPair[reg.GroupID] == nil {
			seenPair[reg.GroupID] = make(map[string]bool)
			d.Groups = append(d.Groups, reg.GroupID)
		}
		if seenPair[reg.GroupID][reg.SubjectID] {
			continue
		}
		seenPair[reg.GroupID][reg.SubjectID] = true
		d.GroupSubjects[reg.GroupID] = append(d.GroupSubjects[reg.GroupID], reg.SubjectID)
	}

	seenTeacher := make(map[string]map[string]bool)
	for _, a := range assignments {
		if seenTeacher[a.SubjectID] == nil {
			seenTeacher[a.SubjectID] = make(map[string]bool)
		}
		if seenTeacher[a.SubjectID][a.TeacherID] {
			continue
		}
		seenTeacher[a.SubjectID][a.TeacherID] = true
		d.SubjectTeachers[a.SubjectID] = append(d.SubjectTeachers[a.SubjectID], a.TeacherID)
	}

	for _, subjects := range d.GroupSubjects {
		for _, subjectID := range subjects {
			if len(d.SubjectTeachers[subjectID]) == 0 {
				d.SubjectTeachers[subjectID] = []string{fallbackTeacher}
			}
		}
	}

	return d
}
