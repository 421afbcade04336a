// Package payment implements the payment loop and state machine (spec
// components C6/C7/C8): one planned path through the belief graph (an
// Attempt), the per-round driver that plans/probes/learns, and the outer
// session loop that retries the residual amount until delivered, until the
// round cap is hit, or until success probability collapses.
package payment

import (
	"fmt"

	"github.com/btcsuite/btcd/btcutil"
	"github.com/pickhardtlabs/ppay/graph"
	"github.com/pickhardtlabs/ppay/uncertainty"
)

// Status is an Attempt's position in its lifecycle state machine (spec.md
// §3 "Attempt status state machine").
type Status int

const (
	// StatusPlanned is the initial state: in-flight has been allocated
	// on every channel of the path but the oracle has not been probed
	// yet.
	StatusPlanned Status = iota

	// StatusInFlight means every channel on the path forwarded
	// successfully in the oracle probe.
	StatusInFlight

	// StatusFailed is terminal: either the oracle probe failed partway
	// through the path (with in-flight rolled back), or an in-flight
	// attempt was aborted.
	StatusFailed

	// StatusSettled is terminal: the attempt's amount has been
	// atomically applied to the oracle and belief state.
	StatusSettled
)

func (s Status) String() string {
	switch s {
	case StatusPlanned:
		return "PLANNED"
	case StatusInFlight:
		return "INFLIGHT"
	case StatusFailed:
		return "FAILED"
	case StatusSettled:
		return "SETTLED"
	default:
		return "UNKNOWN"
	}
}

// Attempt is one planned path through the belief graph, carrying the
// amount to send, its memoized fee and success probability, and its
// lifecycle state (spec.md §3 "Attempt (C6)").
type Attempt struct {
	// Path is the ordered list of belief channels the attempt traverses.
	// Consecutive channels share endpoints: path[i].Edge.Ref.Dst ==
	// path[i+1].Edge.Ref.Src.
	Path []*uncertainty.Channel

	// Refs mirrors Path as ChannelRef values, for oracle lookups and
	// in-flight cleanup bookkeeping that shouldn't need to reach back
	// into the belief graph.
	Refs []graph.ChannelRef

	// Amount is the amount, in satoshis, this attempt carries.
	Amount btcutil.Amount

	// FeeMsat is Sum(channel.RoutingCostMsat(Amount)) over Path, fixed
	// at construction.
	FeeMsat graph.MilliSatoshi

	// Probability is Prod(channel.SuccessProbability(Amount)) over
	// Path, fixed at construction and evaluated on each channel before
	// this attempt's own Amount is added to its in-flight.
	Probability float64

	Status Status
}

// NewAttempt constructs a PLANNED attempt over path/refs carrying amount,
// memoizing fee and probability and adding amount to every channel's
// in-flight reservation (spec.md §4.4: "On construction the in-flight
// amount is added to every channel on the path and fee/probability are
// memoized").
func NewAttempt(path []*uncertainty.Channel, refs []graph.ChannelRef, amount btcutil.Amount) (*Attempt, error) {
	if len(path) != len(refs) {
		return nil, fmt.Errorf("attempt: path has %d channels but "+
			"%d refs", len(path), len(refs))
	}
	for i := 0; i+1 < len(path); i++ {
		if path[i].Edge.Ref.Dst != path[i+1].Edge.Ref.Src {
			return nil, fmt.Errorf("attempt: path discontinuity "+
				"at hop %d: %v does not connect to %v",
				i, path[i].Edge.Ref, path[i+1].Edge.Ref)
		}
	}

	a := &Attempt{
		Path:   path,
		Refs:   refs,
		Amount: amount,
		Status: StatusPlanned,
	}

	for i, c := range path {
		a.FeeMsat += c.RoutingCostMsat(amount)
		if i == 0 {
			a.Probability = c.SuccessProbability(amount)
		} else {
			a.Probability *= c.SuccessProbability(amount)
		}

		if err := c.AllocateInFlight(amount); err != nil {
			// Roll back whatever was already allocated on earlier
			// channels before surfacing the error.
			for j := 0; j < i; j++ {
				_ = path[j].AllocateInFlight(-amount)
			}

			return nil, err
		}
	}

	return a, nil
}

// rollbackInFlight subtracts Amount from every channel on the path, used
// whenever a status change leaves PLANNED without reaching INFLIGHT (spec.md
// §3: "Any status change that leaves PLANNED without reaching INFLIGHT must
// subtract the previously added in-flight from each channel on the path").
func (a *Attempt) rollbackInFlight() {
	for _, c := range a.Path {
		_ = c.AllocateInFlight(-a.Amount)
	}
}

// MarkInFlight transitions PLANNED -> INFLIGHT: the oracle probe walked the
// whole path successfully, so the in-flight reservation stays in place.
func (a *Attempt) MarkInFlight() error {
	if a.Status != StatusPlanned {
		return fmt.Errorf("attempt: cannot mark in-flight from "+
			"status %v", a.Status)
	}

	a.Status = StatusInFlight

	return nil
}

// MarkFailed transitions PLANNED -> FAILED (oracle probe failed partway
// through) or INFLIGHT -> FAILED (abort), rolling back the in-flight
// reservation in both cases.
func (a *Attempt) MarkFailed() error {
	switch a.Status {
	case StatusPlanned, StatusInFlight:
		a.rollbackInFlight()
		a.Status = StatusFailed
		return nil
	default:
		return fmt.Errorf("attempt: cannot mark failed from status %v",
			a.Status)
	}
}

// MarkSettled transitions INFLIGHT -> SETTLED. The in-flight reservation is
// left in place; the session's cleanup step zeroes it unconditionally on
// every touched channel once the payment concludes.
func (a *Attempt) MarkSettled() error {
	if a.Status != StatusInFlight {
		return fmt.Errorf("attempt: cannot settle from status %v",
			a.Status)
	}

	a.Status = StatusSettled

	return nil
}
