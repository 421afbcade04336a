package mcf

import (
	"container/heap"
	"math"

	"github.com/btcsuite/btcd/btcutil"
	"github.com/pickhardtlabs/ppay/graph"
	"github.com/pickhardtlabs/ppay/uncertainty"
)

// DecomposedPath is one edge-disjoint-in-the-residual-sense path extracted
// from a solved Instance, paired with the amount to send over it (spec.md
// §4.3 "Decomposition").
type DecomposedPath struct {
	Path   []graph.ChannelRef
	Amount btcutil.Amount
}

// decompEdge is one directed channel in the auxiliary flow graph used for
// decomposition: the channel's aggregate flow (summed across its
// piecewise-linearized arcs) and its combined per-satoshi cost, used as
// the edge weight for the repeated shortest-path extraction.
type decompEdge struct {
	ref  graph.ChannelRef
	to   int
	flow int64
	cost int64
}

// Decompose extracts Attempts' worth of edge-disjoint paths from inst's
// solved flow, per spec.md §4.3: build an auxiliary multigraph of arcs
// with non-zero flow (aggregated per channel, weighted by its combined
// linearized unit cost), repeatedly pull the cheapest sender->receiver
// path, subtract its bottleneck flow, and remove edges that reach zero.
// inst must already be StatusOptimal; Decompose does not check this.
func Decompose(inst *Instance) []DecomposedPath {
	n := len(inst.nodeOf)

	flowByChannel := make(map[graph.ChannelRef]int64)
	channelByRef := make(map[graph.ChannelRef]*uncertainty.Channel)
	for _, b := range inst.bindings {
		channelByRef[b.channel.Edge.Ref] = b.channel

		f := inst.solver.Flow(b.arc)
		if f <= 0 {
			continue
		}
		flowByChannel[b.channel.Edge.Ref] += f
	}

	adj := make([][]decompEdge, n)
	for ref, f := range flowByChannel {
		srcIdx, ok := inst.indexOf[ref.Src]
		if !ok {
			continue
		}
		dstIdx, ok := inst.indexOf[ref.Dst]
		if !ok {
			continue
		}

		cost := channelByRef[ref].CombinedUnitCost(inst.params.Mu)

		adj[srcIdx] = append(adj[srcIdx], decompEdge{
			ref: ref, to: dstIdx, flow: f, cost: cost,
		})
	}

	senderIdx, ok := inst.indexOf[inst.params.Sender]
	if !ok {
		return nil
	}
	receiverIdx, ok := inst.indexOf[inst.params.Receiver]
	if !ok {
		return nil
	}

	var paths []DecomposedPath

	for {
		prevNode, prevEdge, ok := decompShortestPath(adj, n, senderIdx, receiverIdx)
		if !ok {
			break
		}

		bottleneck := int64(math.MaxInt64)
		for v := receiverIdx; v != senderIdx; v = prevNode[v] {
			ei := prevEdge[v]
			if adj[prevNode[v]][ei].flow < bottleneck {
				bottleneck = adj[prevNode[v]][ei].flow
			}
		}
		if bottleneck <= 0 || bottleneck == math.MaxInt64 {
			break
		}

		var refs []graph.ChannelRef
		for v := receiverIdx; v != senderIdx; v = prevNode[v] {
			ei := prevEdge[v]
			refs = append(refs, adj[prevNode[v]][ei].ref)
		}
		// refs was built walking backward from the receiver; reverse it
		// into sender-to-receiver order.
		for i, j := 0, len(refs)-1; i < j; i, j = i+1, j-1 {
			refs[i], refs[j] = refs[j], refs[i]
		}

		paths = append(paths, DecomposedPath{
			Path:   refs,
			Amount: btcutil.Amount(bottleneck),
		})

		for v := receiverIdx; v != senderIdx; v = prevNode[v] {
			u := prevNode[v]
			ei := prevEdge[v]
			adj[u][ei].flow -= bottleneck
		}

		for u := range adj {
			kept := adj[u][:0]
			for _, e := range adj[u] {
				if e.flow > 0 {
					kept = append(kept, e)
				}
			}
			adj[u] = kept
		}
	}

	return paths
}

type decompHeapItem struct {
	node int
	dist int64
}

type decompHeap []decompHeapItem

func (h decompHeap) Len() int            { return len(h) }
func (h decompHeap) Less(i, j int) bool  { return h[i].dist < h[j].dist }
func (h decompHeap) Swap(i, j int)       { h[i], h[j] = h[j], h[i] }
func (h *decompHeap) Push(x interface{}) { *h = append(*h, x.(decompHeapItem)) }
func (h *decompHeap) Pop() interface{} {
	old := *h
	n := len(old)
	item := old[n-1]
	*h = old[:n-1]

	return item
}

// decompShortestPath finds the cheapest src->dst path over adj by total
// cost, where every edge weight (the channel's combined linearized unit
// cost) is non-negative, via plain Dijkstra.
func decompShortestPath(adj [][]decompEdge, n, src, dst int) (prevNode, prevEdge []int, ok bool) {
	dist := make([]int64, n)
	prevNode = make([]int, n)
	prevEdge = make([]int, n)
	visited := make([]bool, n)
	for i := range dist {
		dist[i] = math.MaxInt64
		prevNode[i] = -1
		prevEdge[i] = -1
	}
	dist[src] = 0

	h := &decompHeap{{node: src, dist: 0}}
	heap.Init(h)

	for h.Len() > 0 {
		top := heap.Pop(h).(decompHeapItem)
		u := top.node
		if visited[u] {
			continue
		}
		visited[u] = true

		if u == dst {
			break
		}

		for ei, e := range adj[u] {
			if e.flow <= 0 || visited[e.to] {
				continue
			}

			nd := dist[u] + e.cost
			if nd < dist[e.to] {
				dist[e.to] = nd
				prevNode[e.to] = u
				prevEdge[e.to] = ei
				heap.Push(h, decompHeapItem{node: e.to, dist: nd})
			}
		}
	}

	if dist[dst] == math.MaxInt64 {
		return nil, nil, false
	}

	return prevNode, prevEdge, true
}
