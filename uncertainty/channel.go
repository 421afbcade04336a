// Package uncertainty implements the belief model that drives planning
// (spec components C3/C4): a per-channel [min, max] liquidity posterior
// with in-flight bookkeeping, its entropy, its success-probability
// estimate, and the piecewise-linear cost construction that lets an
// integer min-cost-flow solver optimize a proxy for -log(success
// probability) plus routing fees in one pass.
package uncertainty

import (
	"fmt"
	"math"

	"github.com/btcsuite/btcd/btcutil"
	"github.com/pickhardtlabs/ppay/graph"
	"github.com/pickhardtlabs/ppay/ppaylog"
)

var log = ppaylog.Disabled()

// maxChannelSize bounds the largest plausible channel, used to scale the
// uncertainty unit cost so it stays in a range an integer MCF solver can
// handle (spec.md §4.1).
const maxChannelSize = 15_000_000_000

// Piece is one segment of a piecewise-linear arc cost: a capacity and the
// integer unit cost that applies to flow routed within that capacity
// (spec.md §4.1 "Piecewise linearization of the arc cost").
type Piece struct {
	Capacity btcutil.Amount
	UnitCost int64
}

// Channel is the belief state for one directed channel: the posterior
// interval [MinLiquidity, MaxLiquidity] plus in-flight (spec.md §3
// "Uncertainty channel"). Edge carries the channel's immutable gossip
// metadata (capacity, fees).
type Channel struct {
	Edge *graph.ChannelEdge

	minLiquidity btcutil.Amount
	maxLiquidity btcutil.Amount
	inFlight     btcutil.Amount
}

// newChannel returns a channel belief initialized to the uninformative
// prior: min=0, max=capacity, in_flight=0 (spec.md §3 "Initial state").
func newChannel(edge *graph.ChannelEdge) *Channel {
	return &Channel{
		Edge:         edge,
		minLiquidity: 0,
		maxLiquidity: edge.Capacity,
		inFlight:     0,
	}
}

// MinLiquidity returns the current lower bound of the belief interval.
func (c *Channel) MinLiquidity() btcutil.Amount { return c.minLiquidity }

// MaxLiquidity returns the current upper bound of the belief interval.
func (c *Channel) MaxLiquidity() btcutil.Amount { return c.maxLiquidity }

// InFlight returns the amount currently reserved by planned/in-flight
// attempts on this channel.
func (c *Channel) InFlight() btcutil.Amount { return c.inFlight }

// ConditionalCapacity is the remaining uncertainty interval used for
// planning, per spec.md §3: max(max - max(min, in_flight), 0).
func (c *Channel) ConditionalCapacity() btcutil.Amount {
	floor := c.minLiquidity
	if c.inFlight > floor {
		floor = c.inFlight
	}

	cap := c.maxLiquidity - floor
	if cap < 0 {
		return 0
	}

	return cap
}

// Entropy is this channel's contribution to the network's belief entropy:
// log2(conditional_capacity + 1) (spec.md §4.1).
func (c *Channel) Entropy() float64 {
	return math.Log2(float64(c.ConditionalCapacity()) + 1)
}

// SuccessProbability estimates, under a uniform prior over the belief
// interval, the probability that amt (plus whatever is already in flight)
// can be forwarded (spec.md §4.1).
func (c *Channel) SuccessProbability(amt btcutil.Amount) float64 {
	t := amt + c.inFlight

	switch {
	case t <= c.minLiquidity:
		return 1.0
	case t >= c.maxLiquidity:
		return 0.0
	default:
		span := c.maxLiquidity - c.minLiquidity + 1
		return float64(span-(t-c.minLiquidity)) / float64(span)
	}
}

// RoutingCostMsat is the millisatoshi fee to forward amt across this
// channel: floor(ppm*amt/1000) + base_fee (spec.md §4.1).
func (c *Channel) RoutingCostMsat(amt btcutil.Amount) graph.MilliSatoshi {
	return c.Edge.RoutingCostMsat(amt)
}

// routingUnitCost is the linearized per-satoshi routing cost used by the
// MCF objective: simply the channel's ppm rate (spec.md §4.1).
func (c *Channel) routingUnitCost() int64 {
	return int64(c.Edge.PPM)
}

// uncertaintyUnitCost is the linearized per-satoshi uncertainty cost:
// floor(MAX_CHANNEL_SIZE / max(conditional_capacity, 1)) (spec.md §4.1).
func (c *Channel) uncertaintyUnitCost() int64 {
	denom := int64(c.ConditionalCapacity())
	if denom < 1 {
		denom = 1
	}

	return maxChannelSize / denom
}

// CombinedUnitCost is the MCF objective's per-satoshi weight: the
// uncertainty unit cost plus mu times the routing unit cost (spec.md
// §4.1).
func (c *Channel) CombinedUnitCost(mu int64) int64 {
	return c.uncertaintyUnitCost() + mu*c.routingUnitCost()
}

// PiecewiseLinearizedCosts builds the step-function approximation of this
// channel's arc cost used by the MCF solve (spec.md §4.1). With nPieces
// equal-capacity uncertainty pieces, plus one free "known good" piece
// when min_liquidity exceeds in_flight: piece i (1-indexed) costs
// i*uncertainty_unit + mu*routing_unit. When min_liquidity exceeds
// in_flight the summed piece capacities equal (min_liquidity-in_flight) +
// conditional_capacity (P6); otherwise there is no free piece and they sum
// to conditional_capacity. Unit costs are non-decreasing by construction.
func (c *Channel) PiecewiseLinearizedCosts(mu int64, nPieces int) []Piece {
	if nPieces < 1 {
		nPieces = 1
	}

	var pieces []Piece

	free := c.minLiquidity - c.inFlight
	routingUnit := c.routingUnitCost()
	if free > 0 {
		pieces = append(pieces, Piece{
			Capacity: free,
			UnitCost: mu * routingUnit,
		})
	}

	uncertaintyUnit := c.uncertaintyUnitCost()
	condCap := c.ConditionalCapacity()

	base := int64(condCap) / int64(nPieces)
	remainder := int64(condCap) % int64(nPieces)

	for i := 1; i <= nPieces; i++ {
		pieceCap := base
		// Distribute the remainder across the final pieces so the
		// sum of piece capacities is exact even when condCap isn't a
		// multiple of nPieces.
		if int64(i) > int64(nPieces)-remainder {
			pieceCap++
		}
		if pieceCap == 0 {
			continue
		}

		pieces = append(pieces, Piece{
			Capacity: btcutil.Amount(pieceCap),
			UnitCost: int64(i)*uncertaintyUnit + mu*routingUnit,
		})
	}

	return pieces
}

// AllocateInFlight adjusts in-flight by delta, which may be negative to
// release a reservation (spec.md §3 "Attempt" lifecycle, §4.4). It
// refuses to leave in_flight negative.
func (c *Channel) AllocateInFlight(delta btcutil.Amount) error {
	next := c.inFlight + delta
	if next < 0 {
		return fmt.Errorf("channel %v: allocate_inflight(%d) would "+
			"make in_flight negative (currently %d)",
			c.Edge.Ref.SCID, delta, c.inFlight)
	}

	c.inFlight = next

	return nil
}

// UpdateKnowledge incorporates a probe outcome into this channel's belief
// (the "this" side) and, where the return channel is known, the paired
// reverse channel's belief, implementing the conservation constraint
// a(A->B) + a(B->A) = capacity (spec.md §4.1). The probed amount t is
// in_flight + amt, matching the oracle's own CanForward check (spec.md §9
// Open Question 1). returnChannel may be nil if the reverse direction was
// never gossiped; reverse-side learning is then simply skipped (spec.md
// §9 design note on the cyclic reverse-channel lookup).
func (c *Channel) UpdateKnowledge(amt btcutil.Amount, returnChannel *Channel, success bool) error {
	t := c.inFlight + amt

	if success {
		if c.inFlight > c.minLiquidity {
			c.minLiquidity = c.inFlight
		}

		if returnChannel != nil {
			bound := c.Edge.Capacity - c.minLiquidity
			if bound < returnChannel.maxLiquidity {
				returnChannel.maxLiquidity = bound
			}
		}
	} else {
		bound := t - 1
		if bound < c.maxLiquidity {
			c.maxLiquidity = bound
		}

		if returnChannel != nil {
			bound := c.Edge.Capacity - c.maxLiquidity
			if bound > returnChannel.minLiquidity {
				returnChannel.minLiquidity = bound
			}
		}
	}

	if c.minLiquidity > c.maxLiquidity {
		return &BeliefInconsistencyError{
			Ref: c.Edge.Ref,
			Min: c.minLiquidity,
			Max: c.maxLiquidity,
		}
	}
	if returnChannel != nil && returnChannel.minLiquidity > returnChannel.maxLiquidity {
		return &BeliefInconsistencyError{
			Ref: returnChannel.Edge.Ref,
			Min: returnChannel.minLiquidity,
			Max: returnChannel.maxLiquidity,
		}
	}

	log.Tracef("updated belief on %v: min=%v max=%v success=%v",
		c.Edge.Ref.SCID, c.minLiquidity, c.maxLiquidity, success)

	return nil
}

// reset restores the uninformative prior.
func (c *Channel) reset() {
	c.minLiquidity = 0
	c.maxLiquidity = c.Edge.Capacity
	c.inFlight = 0
}

// BeliefInconsistencyError reports a fatal violation of the belief
// invariant min_liquidity <= max_liquidity (spec.md §7 kind 5).
type BeliefInconsistencyError struct {
	Ref graph.ChannelRef
	Min btcutil.Amount
	Max btcutil.Amount
}

func (e *BeliefInconsistencyError) Error() string {
	return fmt.Sprintf("belief inconsistency on channel %v: min=%d > "+
		"max=%d", e.Ref.SCID, e.Min, e.Max)
}
