package uncertainty

import (
	"github.com/btcsuite/btcd/btcutil"
	"github.com/btcsuite/btclog"
	"github.com/pickhardtlabs/ppay/graph"
)

// UseLogger configures the package-level logger used by this package.
func UseLogger(logger btclog.Logger) {
	log = logger
}

// Network is the collection of per-channel belief state over an entire
// channel graph (spec.md §3/§4.2 "UncertaintyNetwork").
type Network struct {
	chanGraph *graph.ChannelGraph
	channels  map[graph.ChannelRef]*Channel
}

// NewNetwork builds an uncertainty network over g, with every channel
// initialized to the uninformative prior.
func NewNetwork(g *graph.ChannelGraph) *Network {
	n := &Network{
		chanGraph: g,
		channels:  make(map[graph.ChannelRef]*Channel, g.NumChannels()),
	}

	_ = g.ForEachChannel(func(edge *graph.ChannelEdge) error {
		n.channels[edge.Ref] = newChannel(edge)
		return nil
	})

	return n
}

// Channel returns the belief state for ref, or nil if ref is not part of
// this network.
func (n *Network) Channel(ref graph.ChannelRef) *Channel {
	return n.channels[ref]
}

// Graph returns the static channel graph this belief network was built
// over.
func (n *Network) Graph() *graph.ChannelGraph {
	return n.chanGraph
}

// EligibleChannels returns every channel whose base fee does not exceed
// baseFeeThreshold, the static pruning filter applied once before
// planning (spec.md §4.2 "Pruning filter (static)").
func (n *Network) EligibleChannels(baseFeeThreshold graph.MilliSatoshi) []*Channel {
	eligible := make([]*Channel, 0, len(n.channels))

	_ = n.chanGraph.ForEachChannel(func(edge *graph.ChannelEdge) error {
		c := n.channels[edge.Ref]
		if c == nil {
			return nil
		}
		if c.Edge.BaseFee > baseFeeThreshold {
			return nil
		}

		eligible = append(eligible, c)

		return nil
	})

	return eligible
}

// Entropy sums Channel.Entropy() across every channel in the network
// (spec.md §4.2).
func (n *Network) Entropy() float64 {
	var total float64
	for _, c := range n.channels {
		total += c.Entropy()
	}

	return total
}

// Reset restores every channel to the uninformative prior (0, capacity,
// 0), implementing spec.md §9's forget_information / Open Question 3:
// the network exposes Reset but a caller (ppay.Pay, via a functional
// option) decides whether to call it between payments.
func (n *Network) Reset() {
	for _, c := range n.channels {
		c.reset()
	}
}

// SettleAttempt propagates a settled attempt's effect onto belief state:
// for every channel on the path, decrement both min and max liquidity by
// amount (clamped >= 0); for the paired reverse channel, increment both
// by amount (clamped <= capacity) (spec.md §4.2).
func (n *Network) SettleAttempt(path []graph.ChannelRef, amount btcutil.Amount) {
	for _, ref := range path {
		c := n.channels[ref]
		if c == nil {
			continue
		}

		c.minLiquidity -= amount
		if c.minLiquidity < 0 {
			c.minLiquidity = 0
		}
		c.maxLiquidity -= amount
		if c.maxLiquidity < 0 {
			c.maxLiquidity = 0
		}

		if reverse, ok := n.channels[ref.Reverse()]; ok {
			reverse.minLiquidity += amount
			if reverse.minLiquidity > reverse.Edge.Capacity {
				reverse.minLiquidity = reverse.Edge.Capacity
			}
			reverse.maxLiquidity += amount
			if reverse.maxLiquidity > reverse.Edge.Capacity {
				reverse.maxLiquidity = reverse.Edge.Capacity
			}
		}
	}

	log.Debugf("settled attempt of %v sat across %d channels", amount,
		len(path))
}

// ZeroInFlight clears in-flight on every channel touched by refs, the
// rollback/cleanup step required on every non-fatal exit path (spec.md
// §7).
func (n *Network) ZeroInFlight(refs []graph.ChannelRef) {
	for _, ref := range refs {
		if c := n.channels[ref]; c != nil {
			c.inFlight = 0
		}
	}
}
