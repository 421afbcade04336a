// Package oracle implements the ground-truth liquidity simulator (spec
// component C2): the "real" network the belief layer is trying to learn
// about. It answers CanForward and performs settlement, but is never
// itself consulted by the planner (spec.md §4.5: only the belief graph
// feeds the MCF solve).
package oracle

import (
	"github.com/btcsuite/btcd/btcutil"
	"github.com/btcsuite/btclog"
	"github.com/pickhardtlabs/ppay/graph"
	"github.com/pickhardtlabs/ppay/ppaylog"
)

// log is this package's subsystem logger, disabled until UseLogger is
// called by the top-level ppay package's wiring (mirroring the teacher's
// dcrlnd.go init() convention).
var log = ppaylog.Disabled()

// UseLogger configures the package-level logger used by this package.
func UseLogger(logger btclog.Logger) {
	log = logger
}

// Channel extends a static graph.ChannelEdge with ground-truth liquidity
// and in-flight bookkeeping (spec.md §3 "Oracle channel"). Two opposite
// Channel values sharing a short channel id must always satisfy
// actualLiquidity(A->B) + actualLiquidity(B->A) == capacity; Network is
// responsible for preserving this invariant across both directions
// since each Channel only knows about its own side.
type Channel struct {
	Edge *graph.ChannelEdge

	actualLiquidity btcutil.Amount
	inFlight        btcutil.Amount
}

// ActualLiquidity returns the channel's ground-truth available liquidity.
// This accessor exists only for the oracle/settlement path; the planner
// must never read it.
func (c *Channel) ActualLiquidity() btcutil.Amount {
	return c.actualLiquidity
}

// InFlight returns the amount currently reserved by in-flight attempts on
// this directed channel.
func (c *Channel) InFlight() btcutil.Amount {
	return c.inFlight
}

// CanForward reports whether the oracle channel has enough remaining
// liquidity, after accounting for in-flight reservations, to carry amt
// (spec.md §4.5 step 4).
func (c *Channel) CanForward(amt btcutil.Amount) bool {
	return c.inFlight+amt <= c.actualLiquidity
}

// addInFlight adjusts the in-flight reservation by delta, which may be
// negative to release a reservation. It refuses to leave in_flight
// negative or to exceed capacity, mirroring the Python setter's bounds
// check in OracleChannel.py.
func (c *Channel) addInFlight(delta btcutil.Amount) error {
	next := c.inFlight + delta
	if next < 0 {
		return &InconsistencyError{
			Ref:    c.Edge.Ref,
			Reason: "in_flight would go negative",
		}
	}
	if next > c.Edge.Capacity {
		return &InconsistencyError{
			Ref:    c.Edge.Ref,
			Reason: "in_flight would exceed capacity",
		}
	}

	c.inFlight = next

	return nil
}

// settleForward subtracts amt from this channel's actual liquidity and from its
// in-flight reservation, at the forward leg of a settling attempt
// (spec.md §4.6 Settlement). Callers must have already verified
// CanForward held at probe time; if the liquidity has since slipped below
// amt, that is an OracleInconsistency (spec.md §7 kind 4) and must never
// occur in a correct implementation.
func (c *Channel) settleForward(amt btcutil.Amount) error {
	if c.actualLiquidity < amt {
		return &InconsistencyError{
			Ref: c.Edge.Ref,
			Reason: "actual liquidity below settling amount at " +
				"settlement time",
		}
	}

	c.actualLiquidity -= amt
	c.inFlight -= amt
	if c.inFlight < 0 {
		c.inFlight = 0
	}

	return nil
}

// settleReverse credits amt to this channel's actual liquidity, at the
// reverse leg of a settling attempt.
func (c *Channel) settleReverse(amt btcutil.Amount) {
	c.actualLiquidity += amt
	if c.actualLiquidity > c.Edge.Capacity {
		c.actualLiquidity = c.Edge.Capacity
	}
}

// InconsistencyError reports a fatal, should-never-happen violation of an
// oracle channel invariant (spec.md §7 kind 4, OracleInconsistency).
type InconsistencyError struct {
	Ref    graph.ChannelRef
	Reason string
}

func (e *InconsistencyError) Error() string {
	return "oracle inconsistency on channel " + e.Ref.SCID.String() +
		": " + e.Reason
}
