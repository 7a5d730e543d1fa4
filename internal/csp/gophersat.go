package csp

import (
	"context"
	"time"

	gsat "github.com/crillab/gophersat/solver"
)

// SATSolver solves models with the gophersat CDCL engine. The cardinality
// constraints are lowered to CNF: an at-least-one clause plus pairwise
// exclusion clauses per exactly-one group, pairwise exclusions per
// at-most-one group.
type SATSolver struct{}

// NewSATSolver returns the gophersat-backed solver.
func NewSATSolver() *SATSolver {
	return &SATSolver{}
}

type solveOutcome struct {
	sat   bool
	model []bool
}

// Solve runs the search under the wall-clock budget. gophersat offers no
// cancellation hook, so on expiry the search goroutine is abandoned and its
// eventual outcome discarded; the caller sees StatusTimeout with no
// assignment. Caller cancellation takes the same path: the run simply ended
// without a verdict, which is not a solver failure.
func (s *SATSolver) Solve(ctx context.Context, model Model, budget time.Duration) (Result, error) {
	if model.NumVars == 0 {
		// Nothing to decide; the empty assignment satisfies the model.
		return Result{Status: StatusFeasible}, nil
	}

	pb := gsat.ParseSlice(encode(model))

	outcome := make(chan solveOutcome, 1)
	go func() {
		engine := gsat.New(pb)
		if engine.Solve() != gsat.Sat {
			outcome <- solveOutcome{sat: false}
			return
		}
		outcome <- solveOutcome{sat: true, model: engine.Model()}
	}()

	timer := time.NewTimer(budget)
	defer timer.Stop()

	select {
	case out := <-outcome:
		if !out.sat {
			return Result{Status: StatusInfeasible}, nil
		}
		assignment := make([]bool, model.NumVars)
		copy(assignment, out.model)
		return Result{Status: StatusFeasible, Assignment: assignment}, nil
	case <-timer.C:
		return Result{Status: StatusTimeout}, nil
	case <-ctx.Done():
		return Result{Status: StatusTimeout}, nil
	}
}

func encode(model Model) [][]int {
	var clauses [][]int
	for _, group := range model.ExactlyOne {
		clauses = append(clauses, append([]int(nil), group...))
		clauses = append(clauses, pairwiseExclusion(group)...)
	}
	for _, group := range model.AtMostOne {
		clauses = append(clauses, pairwiseExclusion(group)...)
	}
	return clauses
}

func pairwiseExclusion(group []int) [][]int {
	var clauses [][]int
	for i := 0; i < len(group); i++ {
		for j := i + 1; j < len(group); j++ {
			clauses = append(clauses, []int{-group[i], -group[j]})
		}
	}
	return clauses
}
