// Package csp defines the declarative constraint model handed to the
// external solver and the adapter contract for solving it.
package csp

import (
	"context"
	"time"
)

// Status reports the outcome of a solve call.
type Status int

const (
	StatusUnknown Status = iota
	// StatusOptimal and StatusFeasible both carry a usable assignment and
	// must be treated identically by callers.
	StatusOptimal
	StatusFeasible
	// StatusInfeasible proves no satisfying assignment exists.
	StatusInfeasible
	// StatusTimeout means the budget ran out without a proof either way.
	StatusTimeout
)

// String implements fmt.Stringer.
func (s Status) String() string {
	switch s {
	case StatusOptimal:
		return "OPTIMAL"
	case StatusFeasible:
		return "FEASIBLE"
	case StatusInfeasible:
		return "INFEASIBLE"
	case StatusTimeout:
		return "TIMEOUT"
	default:
		return "UNKNOWN"
	}
}

// Usable reports whether the status carries a truth assignment.
func (s Status) Usable() bool {
	return s == StatusOptimal || s == StatusFeasible
}

// Model is a pure satisfaction problem over boolean variables numbered
// 1..NumVars. There is no objective; the first satisfying assignment wins.
type Model struct {
	NumVars int
	// ExactlyOne groups force exactly one listed variable true.
	ExactlyOne [][]int
	// AtMostOne groups allow at most one listed variable true.
	AtMostOne [][]int
}

// Result carries the verdict and, when usable, one truth value per variable
// (Assignment[i] is the value of variable i+1).
type Result struct {
	Status     Status
	Assignment []bool
}

// Solver is the external search engine. Solve blocks until a verdict is
// reached or the wall-clock budget expires; it must not be assumed to
// return early on infeasibility.
type Solver interface {
	Solve(ctx context.Context, model Model, budget time.Duration) (Result, error)
}
