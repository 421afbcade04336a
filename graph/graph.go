package graph

import (
	"fmt"

	"github.com/pickhardtlabs/ppay/chanid"
	"github.com/pickhardtlabs/ppay/fn"
	"golang.org/x/exp/slices"
)

// ChannelGraph is a directed multigraph of static channel metadata, keyed
// by (src, dst, short_channel_id) so that parallel channels between the
// same ordered pair of nodes are kept distinct (spec.md §3, §9). It is
// immutable from the perspective of every reader once AddChannel calls
// have finished: the belief layer (uncertainty.Network) and the oracle
// layer (oracle.Network) each build their own per-channel state keyed by
// the same ChannelRef rather than holding a pointer into this graph,
// exactly as spec.md §9's "object identity across two parallel graphs"
// design note requires.
type ChannelGraph struct {
	channels map[ChannelRef]*ChannelEdge
	outEdges map[chanid.Vertex][]ChannelRef
}

// New returns an empty channel graph.
func New() *ChannelGraph {
	return &ChannelGraph{
		channels: make(map[ChannelRef]*ChannelEdge),
		outEdges: make(map[chanid.Vertex][]ChannelRef),
	}
}

// AddChannel inserts a directed channel edge into the graph. Only
// announced, active channels should be passed in (spec.md §6: "Only
// announced, active channels enter the graph"); AddChannel itself does
// not filter, so that callers building synthetic test graphs aren't
// forced through the gossip pipeline. DecodeGossipRecord applies that
// filter to the records it decodes; it does not add them to a graph.
func (g *ChannelGraph) AddChannel(edge *ChannelEdge) error {
	if edge.Capacity < 0 {
		return fmt.Errorf("channel %v: negative capacity %v",
			edge.Ref.SCID, edge.Capacity)
	}
	if _, exists := g.channels[edge.Ref]; exists {
		return fmt.Errorf("channel %v already present in graph",
			edge.Ref)
	}

	g.channels[edge.Ref] = edge
	g.outEdges[edge.Ref.Src] = append(g.outEdges[edge.Ref.Src], edge.Ref)

	return nil
}

// Channel looks up a directed channel edge by its reference.
func (g *ChannelGraph) Channel(ref ChannelRef) fn.Option[*ChannelEdge] {
	edge, ok := g.channels[ref]
	if !ok {
		return fn.None[*ChannelEdge]()
	}

	return fn.Some(edge)
}

// ReverseChannel looks up the channel edge in the opposite direction of
// ref, sharing the same short channel id. Per spec.md §9, the reverse
// channel is not a pointer but a lookup, and its absence (an unannounced
// or never-gossiped return direction) must be tolerated.
func (g *ChannelGraph) ReverseChannel(ref ChannelRef) fn.Option[*ChannelEdge] {
	return g.Channel(ref.Reverse())
}

// OutgoingChannels returns every directed channel edge leaving v.
func (g *ChannelGraph) OutgoingChannels(v chanid.Vertex) []*ChannelEdge {
	refs := g.outEdges[v]
	edges := make([]*ChannelEdge, 0, len(refs))
	for _, ref := range refs {
		edges = append(edges, g.channels[ref])
	}

	return edges
}

// ForEachChannel calls cb once for every directed channel edge in the
// graph, in a stable order (source nodes sorted by their string form,
// then edges sorted by short channel id within each source node) so
// that callers building deterministic downstream structures (the MCF
// arc set) see a reproducible iteration order.
func (g *ChannelGraph) ForEachChannel(cb func(*ChannelEdge) error) error {
	nodes := make([]chanid.Vertex, 0, len(g.outEdges))
	for src := range g.outEdges {
		nodes = append(nodes, src)
	}
	sortVertices(nodes)

	for _, v := range nodes {
		edges := g.OutgoingChannels(v)
		sortEdgesBySCID(edges)
		for _, e := range edges {
			if err := cb(e); err != nil {
				return err
			}
		}
	}

	return nil
}

// Nodes returns every node that is the source or destination of at least
// one channel in the graph.
func (g *ChannelGraph) Nodes() []chanid.Vertex {
	set := make(map[chanid.Vertex]struct{})
	for ref := range g.channels {
		set[ref.Src] = struct{}{}
		set[ref.Dst] = struct{}{}
	}

	nodes := make([]chanid.Vertex, 0, len(set))
	for v := range set {
		nodes = append(nodes, v)
	}
	sortVertices(nodes)

	return nodes
}

// NumChannels returns the number of directed channel edges in the graph.
func (g *ChannelGraph) NumChannels() int {
	return len(g.channels)
}

func sortVertices(vs []chanid.Vertex) {
	slices.SortFunc(vs, func(a, b chanid.Vertex) bool {
		return a.String() < b.String()
	})
}

func sortEdgesBySCID(edges []*ChannelEdge) {
	slices.SortFunc(edges, func(a, b *ChannelEdge) bool {
		return a.Ref.SCID.ToUint64() < b.Ref.SCID.ToUint64()
	})
}
