package payment

import (
	"github.com/btcsuite/btcd/btcutil"
	"github.com/btcsuite/btclog"
	"github.com/pickhardtlabs/ppay/graph"
	"github.com/pickhardtlabs/ppay/mcf"
	"github.com/pickhardtlabs/ppay/oracle"
	"github.com/pickhardtlabs/ppay/ppaylog"
	"github.com/pickhardtlabs/ppay/uncertainty"
)

var log = ppaylog.Disabled()

// UseLogger configures the package-level logger used by this package.
func UseLogger(logger btclog.Logger) {
	log = logger
}

// NoPathFoundError reports that the MCF solver did not return OPTIMAL
// (spec.md §7 kind 1). It is a clean failure: the round ends, the payment
// may retry with the residual amount.
type NoPathFoundError struct {
	Status mcf.Status
}

func (e *NoPathFoundError) Error() string {
	return "no path found: mcf solver returned " + e.Status.String()
}

// Round is one plan/probe/learn cycle over a residual amount (spec.md §4.5
// "Payment round driver", component C7). A Round owns the Attempts it
// produces; Session merges them into the overall payment.
type Round struct {
	net       *uncertainty.Network
	oracleNet *oracle.Network
	newSolver func(numNodes int) mcf.Solver
	params    mcf.BuildParams

	attempts []*Attempt
	touched  []graph.ChannelRef
}

// NewRound constructs a round that will plan over amount satoshis, using
// the given belief/oracle networks and the supplied solver factory (the
// solver holds per-solve state, so a fresh one is built for every round).
func NewRound(
	net *uncertainty.Network,
	oracleNet *oracle.Network,
	newSolver func(numNodes int) mcf.Solver,
	params mcf.BuildParams,
	amount btcutil.Amount,
) *Round {

	params.Amount = amount

	return &Round{
		net:       net,
		oracleNet: oracleNet,
		newSolver: newSolver,
		params:    params,
	}
}

// Plan builds the MCF instance from the current belief network, solves it,
// and decomposes the result into PLANNED attempts (spec.md §4.5 steps 1-3).
// A non-OPTIMAL solve raises NoPathFoundError.
func (r *Round) Plan() error {
	numNodes := len(r.net.Graph().Nodes())
	solver := r.newSolver(numNodes)

	inst := mcf.Build(r.net, solver, r.params)
	if status := inst.Solve(); status != mcf.StatusOptimal {
		return &NoPathFoundError{Status: status}
	}

	for _, p := range mcf.Decompose(inst) {
		path := make([]*uncertainty.Channel, len(p.Path))
		for i, ref := range p.Path {
			path[i] = r.net.Channel(ref)
		}

		attempt, err := NewAttempt(path, p.Path, p.Amount)
		if err != nil {
			return err
		}

		r.attempts = append(r.attempts, attempt)
	}

	log.Debugf("round planned %d attempts over %v sat", len(r.attempts),
		r.params.Amount)

	return nil
}

// ProbeAll walks every PLANNED attempt against the oracle, in order (spec.md
// §4.5 step 4), updating belief along the traversed prefix of each attempt
// and transitioning each to INFLIGHT or FAILED. It returns the sum of
// amounts that reached INFLIGHT, used to decrement the round's residual
// (spec.md §4.5 step 5).
func (r *Round) ProbeAll() (btcutil.Amount, error) {
	var settled btcutil.Amount

	for _, a := range r.attempts {
		succeeded, err := r.probeOne(a)
		if err != nil {
			return settled, err
		}

		if succeeded {
			settled += a.Amount
		}
	}

	return settled, nil
}

// probeOne walks a single attempt's path in oracle space, updating belief
// along the traversed prefix as it goes.
func (r *Round) probeOne(a *Attempt) (bool, error) {
	for i, ref := range a.Refs {
		oc := r.oracleNet.Channel(ref)
		if oc == nil {
			return false, &oracle.InconsistencyError{
				Ref:    ref,
				Reason: "channel missing from oracle network",
			}
		}

		r.touched = append(r.touched, ref)

		canForward := oc.CanForward(a.Amount)

		var returnChannel *uncertainty.Channel
		if rc := r.net.Channel(ref.Reverse()); rc != nil {
			returnChannel = rc
		}

		if !canForward {
			// The attempt's own reservation is released first, so the
			// failed amount is counted once: t = other in-flight +
			// a.Amount, the same quantity the oracle check used.
			if err := a.MarkFailed(); err != nil {
				return false, err
			}
			if err := a.Path[i].UpdateKnowledge(a.Amount, returnChannel, false); err != nil {
				return false, err
			}

			log.Debugf("attempt over %d hops failed at hop %d "+
				"(channel %v)", len(a.Refs), i, ref.SCID)

			return false, nil
		}

		if err := a.Path[i].UpdateKnowledge(a.Amount, returnChannel, true); err != nil {
			return false, err
		}
	}

	for _, ref := range a.Refs {
		if err := r.oracleNet.AddInFlight(ref, a.Amount); err != nil {
			return false, err
		}
	}

	if err := a.MarkInFlight(); err != nil {
		return false, err
	}

	return true, nil
}

// Attempts returns every attempt this round has produced, in planning
// order.
func (r *Round) Attempts() []*Attempt {
	return r.attempts
}

// Touched returns every channel reference probed during this round, for
// the session's end-of-payment in-flight cleanup.
func (r *Round) Touched() []graph.ChannelRef {
	return r.touched
}
