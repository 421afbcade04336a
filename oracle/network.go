package oracle

import (
	"math/rand"

	"github.com/btcsuite/btcd/btcutil"
	"github.com/pickhardtlabs/ppay/graph"
)

// Network is the ground-truth liquidity simulator over an entire channel
// graph (spec.md §3 "Oracle channel", §4.6 Settlement). It owns one
// Channel per directed edge in the underlying graph.ChannelGraph.
type Network struct {
	chanGraph *graph.ChannelGraph
	channels  map[graph.ChannelRef]*Channel
}

// NewNetwork builds an oracle network over g, drawing each channel's
// ground-truth liquidity deterministically from seed. Per spec.md §3: if
// the reverse direction has already been assigned liquidity L, this
// direction gets capacity-L (preserving the conservation invariant);
// otherwise liquidity is drawn uniformly from [0, capacity]. Iteration
// order follows graph.ChannelGraph.ForEachChannel's stable ordering so
// that the same seed always produces the same assignment (scenario 6,
// determinism).
func NewNetwork(g *graph.ChannelGraph, seed int64) (*Network, error) {
	n := &Network{
		chanGraph: g,
		channels:  make(map[graph.ChannelRef]*Channel, g.NumChannels()),
	}

	rng := rand.New(rand.NewSource(seed))

	err := g.ForEachChannel(func(edge *graph.ChannelEdge) error {
		if _, ok := n.channels[edge.Ref]; ok {
			return nil
		}

		var liquidity btcutil.Amount
		if reverse, ok := n.channels[edge.Ref.Reverse()]; ok {
			liquidity = edge.Capacity - reverse.actualLiquidity
			if liquidity < 0 {
				liquidity = 0
			}
		} else if edge.Capacity > 0 {
			liquidity = btcutil.Amount(
				rng.Int63n(int64(edge.Capacity) + 1),
			)
		}

		n.channels[edge.Ref] = &Channel{
			Edge:            edge,
			actualLiquidity: liquidity,
		}

		log.Debugf("oracle channel %v initialized with liquidity "+
			"%v/%v", edge.Ref.SCID, liquidity, edge.Capacity)

		return nil
	})
	if err != nil {
		return nil, err
	}

	return n, nil
}

// Channel returns the oracle channel for ref, or nil if ref isn't part of
// this network.
func (n *Network) Channel(ref graph.ChannelRef) *Channel {
	return n.channels[ref]
}

// Reset redraws every channel's ground-truth liquidity from seed, using
// the same conservation-preserving draw as NewNetwork, as if the oracle
// had just been constructed fresh over the same graph. This is the
// oracle-side half of the channel-depletion simulator hook (spec.md's
// supplemented §4.12): the belief side forgets what it has learned via
// uncertainty.Network.Reset, and this method gives the ground truth a
// fresh independent draw, so a long-running scenario can replay many
// independent payment sessions over the same static graph.
func (n *Network) Reset(seed int64) error {
	fresh, err := NewNetwork(n.chanGraph, seed)
	if err != nil {
		return err
	}

	n.channels = fresh.channels

	return nil
}

// AddInFlight reserves (or, with a negative amt, releases) in-flight
// liquidity on the channel identified by ref.
func (n *Network) AddInFlight(ref graph.ChannelRef, amt btcutil.Amount) error {
	c := n.channels[ref]
	if c == nil {
		return &InconsistencyError{Ref: ref, Reason: "unknown channel"}
	}

	return c.addInFlight(amt)
}

// Settle performs the atomic, per-attempt settlement of spec.md §4.6: on
// every forward channel of the path, subtract amt from actual liquidity
// and from in-flight; on every paired reverse channel (if gossiped),
// credit amt to actual liquidity. A forward channel whose liquidity has
// fallen below amt since the probe succeeded is an OracleInconsistency
// (spec.md §7 kind 4) and aborts without touching the remaining path.
func (n *Network) Settle(path []graph.ChannelRef, amt btcutil.Amount) error {
	for _, ref := range path {
		c := n.channels[ref]
		if c == nil {
			return &InconsistencyError{
				Ref:    ref,
				Reason: "unknown channel at settlement",
			}
		}
		if err := c.settleForward(amt); err != nil {
			return err
		}

		if reverse, ok := n.channels[ref.Reverse()]; ok {
			reverse.settleReverse(amt)
		}
	}

	return nil
}

// ZeroInFlight clears in-flight reservations on every channel touched by
// refs, the rollback/cleanup step required on every non-fatal exit path
// (spec.md §7, §4.6 outer loop "cleanup").
func (n *Network) ZeroInFlight(refs []graph.ChannelRef) {
	for _, ref := range refs {
		if c := n.channels[ref]; c != nil {
			c.inFlight = 0
		}
	}
}
