package engine

import (
	"sort"

	"github.com/sala-school/timetable-api/internal/csp"
)

// EmitConstraints translates a variable set into the declarative model the
// solver consumes. Four constraint families are emitted:
//
//   - assignment: exactly one placement per (group, subject) pair that
//     produced variables; pairs without variables stay out of the model and
//     are reported through the build Report instead;
//   - group exclusivity: at most one placement covering any (group, slot);
//   - teacher exclusivity: same shape per (teacher, slot), fallback teacher
//     included;
//   - room exclusivity: same shape per (room, slot).
//
// No objective is attached; any satisfying assignment is acceptable.
func EmitConstraints(vars *VariableSet, cal *Calendar) csp.Model {
	model := csp.Model{NumVars: vars.Len()}

	for _, pair := range vars.Pairs() {
		ids := vars.PairVars(pair.Group, pair.Subject)
		model.ExactlyOne = append(model.ExactlyOne, ids)
	}

	type coverKey struct {
		resource string
		slot     int
	}
	groupCover := make(map[coverKey][]int)
	teacherCover := make(map[coverKey][]int)
	roomCover := make(map[coverKey][]int)

	for i, pl := range vars.Placements {
		id := i + 1
		for t := pl.Start; t < pl.Start+pl.Duration; t++ {
			groupCover[coverKey{pl.Group, t}] = append(groupCover[coverKey{pl.Group, t}], id)
			teacherCover[coverKey{pl.Teacher, t}] = append(teacherCover[coverKey{pl.Teacher, t}], id)
			roomCover[coverKey{pl.Room, t}] = append(roomCover[coverKey{pl.Room, t}], id)
		}
	}

	for _, cover := range []map[coverKey][]int{groupCover, teacherCover, roomCover} {
		keys := make([]coverKey, 0, len(cover))
		for key := range cover {
			keys = append(keys, key)
		}
		sort.Slice(keys, func(i, j int) bool {
			if keys[i].resource == keys[j].resource {
				return keys[i].slot < keys[j].slot
			}
			return keys[i].resource < keys[j].resource
		})
		for _, key := range keys {
			if ids := cover[key]; len(ids) > 1 {
				model.AtMostOne = append(model.AtMostOne, ids)
			}
		}
	}

	return model
}
