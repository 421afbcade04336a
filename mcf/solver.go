// Package mcf implements the min-cost-flow candidate-path generator
// (spec component C5): encoding the belief network as an integer MCF
// instance, solving it, and decomposing the returned flow into disjoint
// Attempt paths.
package mcf

import (
	"github.com/btcsuite/btclog"
	"github.com/pickhardtlabs/ppay/ppaylog"
)

// log is this package's subsystem logger, disabled until UseLogger is
// called by the top-level ppay package's wiring.
var log = ppaylog.Disabled()

// UseLogger configures the package-level logger used by this package.
func UseLogger(logger btclog.Logger) {
	log = logger
}

// Status is the outcome of a Solver.Solve call, matching the black-box
// solver contract of spec.md §6.
type Status int

const (
	// StatusNotSolved is the zero value, returned by a Solver that
	// hasn't been asked to solve yet.
	StatusNotSolved Status = iota

	// StatusOptimal indicates a feasible, cost-minimal integer flow was
	// found. Only this status is accepted by the round driver; every
	// other status raises NoPathFound (spec.md §6, §7 kind 1).
	StatusOptimal

	// StatusInfeasible indicates no flow satisfying the supply vector
	// exists.
	StatusInfeasible

	// StatusUnbalanced indicates the supply vector does not sum to
	// zero.
	StatusUnbalanced

	// StatusBadResult indicates the solver produced an internally
	// inconsistent result.
	StatusBadResult

	// StatusBadCostRange indicates an arc cost or capacity fell outside
	// the range the solver can handle (e.g. a negative value).
	StatusBadCostRange
)

// String renders the status the way the solver contract of spec.md §6
// names it.
func (s Status) String() string {
	switch s {
	case StatusOptimal:
		return "OPTIMAL"
	case StatusInfeasible:
		return "INFEASIBLE"
	case StatusUnbalanced:
		return "UNBALANCED"
	case StatusBadResult:
		return "BAD_RESULT"
	case StatusBadCostRange:
		return "BAD_COST_RANGE"
	default:
		return "NOT_SOLVED"
	}
}

// ArcID identifies one parallel arc added via Solver.AddArc.
type ArcID int

// Solver is the black-box integer min-cost-flow dependency the core
// demands, per spec.md §6: "add_arc", "set_supply", "solve", "flow". No
// negative costs, no negative capacities are ever passed to it.
type Solver interface {
	// AddArc registers a directed arc from src to dst with the given
	// integer capacity and non-negative per-unit cost, returning an
	// identifier to later retrieve its flow.
	AddArc(src, dst int, capacity int64, unitCost int64) ArcID

	// SetSupply fixes the net supply (positive) or demand (negative) at
	// node.
	SetSupply(node int, amount int64)

	// Solve runs the solver over the arcs and supplies registered so
	// far.
	Solve() Status

	// Flow returns the amount of flow the solve assigned to arc.
	Flow(arc ArcID) int64
}
