package mcf

import (
	"container/heap"
	"math"
)

// SSPSolver is a successive-shortest-augmenting-path min-cost-flow solver
// over an integer residual graph, grounded on the Bellman-Ford-then-
// Dijkstra-with-potentials scheme used throughout min-cost-flow
// implementations in this ecosystem: Bellman-Ford establishes initial
// node potentials (tolerating the non-negative-but-otherwise-arbitrary
// arc costs the caller supplies), after which every further augmenting
// path is found with Dijkstra over reduced costs, which stay
// non-negative by Johnson's technique. It implements the Solver
// interface so payment/round.go never depends on the concrete algorithm.
type SSPSolver struct {
	numNodes int
	arcs     []sspArc
	supply   map[int]int64
	flow     []int64
	status   Status
}

type sspArc struct {
	src, dst int
	capacity int64
	cost     int64
}

// NewSSPSolver returns a solver over a graph with numNodes nodes, indexed
// 0..numNodes-1.
func NewSSPSolver(numNodes int) *SSPSolver {
	return &SSPSolver{
		numNodes: numNodes,
		supply:   make(map[int]int64),
	}
}

// AddArc implements Solver.
func (s *SSPSolver) AddArc(src, dst int, capacity, unitCost int64) ArcID {
	s.arcs = append(s.arcs, sspArc{
		src: src, dst: dst, capacity: capacity, cost: unitCost,
	})

	return ArcID(len(s.arcs) - 1)
}

// SetSupply implements Solver.
func (s *SSPSolver) SetSupply(node int, amount int64) {
	s.supply[node] += amount
}

// Flow implements Solver.
func (s *SSPSolver) Flow(arc ArcID) int64 {
	if int(arc) < 0 || int(arc) >= len(s.flow) {
		return 0
	}

	return s.flow[arc]
}

// residualEdge is one directed half of an arc's residual capacity: the
// forward half mirrors the original arc, the backward half allows the
// solver to cancel flow already pushed.
type residualEdge struct {
	to      int
	cap     int64
	cost    int64
	sibling int // index of the paired edge in the adjacency slice
}

// Solve implements Solver using successive shortest augmenting paths.
func (s *SSPSolver) Solve() Status {
	var totalSupply int64
	for _, v := range s.supply {
		totalSupply += v
	}
	if totalSupply != 0 {
		s.status = StatusUnbalanced
		return s.status
	}

	for _, a := range s.arcs {
		if a.capacity < 0 || a.cost < 0 {
			s.status = StatusBadCostRange
			return s.status
		}
	}

	adj := make([][]residualEdge, s.numNodes)
	// arcHalf[i] records which adjacency slot holds the forward half of
	// arcs[i], so Flow() can read back the pushed amount.
	arcHalf := make([]struct{ node, idx int }, len(s.arcs))

	addEdge := func(from, to int, cap, cost int) (int, int) {
		adj[from] = append(adj[from], residualEdge{
			to: to, cap: int64(cap), cost: int64(cost),
		})
		fi := len(adj[from]) - 1

		adj[to] = append(adj[to], residualEdge{
			to: from, cap: 0, cost: -int64(cost),
		})
		ti := len(adj[to]) - 1

		adj[from][fi].sibling = ti
		adj[to][ti].sibling = fi

		return fi, ti
	}

	for i, a := range s.arcs {
		if a.src < 0 || a.src >= s.numNodes || a.dst < 0 || a.dst >= s.numNodes {
			s.status = StatusBadResult
			return s.status
		}

		fi, _ := addEdge(a.src, a.dst, int(a.capacity), int(a.cost))
		arcHalf[i] = struct{ node, idx int }{a.src, fi}
	}

	var sources []int
	var remaining []int64
	for node, amt := range s.supply {
		if amt > 0 {
			sources = append(sources, node)
			remaining = append(remaining, amt)
		}
	}
	var sinkDemand = make(map[int]int64)
	for node, amt := range s.supply {
		if amt < 0 {
			sinkDemand[node] = -amt
		}
	}

	if len(sources) == 0 {
		s.status = StatusOptimal
		s.flow = make([]int64, len(s.arcs))
		return s.status
	}

	// Multi-source/multi-sink is reduced to single-source/single-sink
	// via a super source and super sink, since spec.md's supply vector
	// is always exactly one sender (+total_amount) and one receiver
	// (-total_amount), but keeping this general costs nothing.
	superSource := s.numNodes
	superSink := s.numNodes + 1
	extra := make([][]residualEdge, 2)
	adj = append(adj, extra...)

	for i, node := range sources {
		adj[superSource] = append(adj[superSource], residualEdge{
			to: node, cap: remaining[i], cost: 0,
		})
		adj[node] = append(adj[node], residualEdge{
			to: superSource, cap: 0, cost: 0,
		})
		fi := len(adj[superSource]) - 1
		ti := len(adj[node]) - 1
		adj[superSource][fi].sibling = ti
		adj[node][ti].sibling = fi
	}
	for node, amt := range sinkDemand {
		adj[node] = append(adj[node], residualEdge{
			to: superSink, cap: amt, cost: 0,
		})
		adj[superSink] = append(adj[superSink], residualEdge{
			to: node, cap: 0, cost: 0,
		})
		fi := len(adj[node]) - 1
		ti := len(adj[superSink]) - 1
		adj[node][fi].sibling = ti
		adj[superSink][ti].sibling = fi
	}

	n := s.numNodes + 2
	potential, ok := bellmanFordPotentials(adj, n, superSource)
	if !ok {
		s.status = StatusBadResult
		return s.status
	}

	var requiredFlow int64
	for _, r := range remaining {
		requiredFlow += r
	}

	var pushed int64
	for pushed < requiredFlow {
		dist, prevNode, prevEdge, ok := dijkstraWithPotentials(
			adj, n, superSource, potential,
		)
		if !ok || dist[superSink] == math.MaxInt64 {
			break
		}

		for v := 0; v < n; v++ {
			if dist[v] < math.MaxInt64 {
				potential[v] += dist[v]
			}
		}

		bottleneck := requiredFlow - pushed
		for v := superSink; v != superSource; v = prevNode[v] {
			u := prevNode[v]
			ei := prevEdge[v]
			if adj[u][ei].cap < bottleneck {
				bottleneck = adj[u][ei].cap
			}
		}

		if bottleneck <= 0 {
			break
		}

		for v := superSink; v != superSource; v = prevNode[v] {
			u := prevNode[v]
			ei := prevEdge[v]
			adj[u][ei].cap -= bottleneck
			sib := adj[u][ei].sibling
			adj[v][sib].cap += bottleneck
		}

		pushed += bottleneck
	}

	if pushed < requiredFlow {
		s.status = StatusInfeasible
		return s.status
	}

	flows := make([]int64, len(s.arcs))
	for i := range s.arcs {
		h := arcHalf[i]
		edge := adj[h.node][h.idx]
		flows[i] = s.arcs[i].capacity - edge.cap
	}

	s.flow = flows
	s.status = StatusOptimal

	return s.status
}

// bellmanFordPotentials computes shortest-path distances from src over
// the (possibly cost-negative-on-backward-edges) residual graph, used to
// seed Johnson's reduced costs for the Dijkstra phases that follow. Since
// every arc cost the caller supplies is non-negative and only backward
// (zero-capacity) residual edges carry negative cost, and no augmenting
// path has been pushed yet, this always succeeds unless the graph itself
// is malformed.
func bellmanFordPotentials(adj [][]residualEdge, n, src int) ([]int64, bool) {
	dist := make([]int64, n)
	for i := range dist {
		dist[i] = math.MaxInt64
	}
	dist[src] = 0

	for i := 0; i < n-1; i++ {
		updated := false
		for u := 0; u < n; u++ {
			if dist[u] == math.MaxInt64 {
				continue
			}
			for _, e := range adj[u] {
				if e.cap <= 0 {
					continue
				}
				if dist[u]+e.cost < dist[e.to] {
					dist[e.to] = dist[u] + e.cost
					updated = true
				}
			}
		}
		if !updated {
			break
		}
	}

	for u := 0; u < n; u++ {
		if dist[u] == math.MaxInt64 {
			continue
		}
		for _, e := range adj[u] {
			if e.cap <= 0 {
				continue
			}
			if dist[u]+e.cost < dist[e.to] {
				return nil, false
			}
		}
	}

	for i := range dist {
		if dist[i] == math.MaxInt64 {
			dist[i] = 0
		}
	}

	return dist, true
}

type pqItem struct {
	node int
	dist int64
}

type priorityQueue []pqItem

func (pq priorityQueue) Len() int            { return len(pq) }
func (pq priorityQueue) Less(i, j int) bool  { return pq[i].dist < pq[j].dist }
func (pq priorityQueue) Swap(i, j int)       { pq[i], pq[j] = pq[j], pq[i] }
func (pq *priorityQueue) Push(x interface{}) { *pq = append(*pq, x.(pqItem)) }
func (pq *priorityQueue) Pop() interface{} {
	old := *pq
	n := len(old)
	item := old[n-1]
	*pq = old[:n-1]

	return item
}

// dijkstraWithPotentials finds shortest paths from src using Johnson's
// reduced costs, which stay non-negative as long as potential was
// computed over the same residual graph.
func dijkstraWithPotentials(adj [][]residualEdge, n, src int, potential []int64) (
	dist []int64, prevNode []int, prevEdge []int, ok bool) {

	dist = make([]int64, n)
	prevNode = make([]int, n)
	prevEdge = make([]int, n)
	visited := make([]bool, n)
	for i := range dist {
		dist[i] = math.MaxInt64
		prevNode[i] = -1
		prevEdge[i] = -1
	}
	dist[src] = 0

	pq := &priorityQueue{{node: src, dist: 0}}
	heap.Init(pq)

	for pq.Len() > 0 {
		top := heap.Pop(pq).(pqItem)
		u := top.node
		if visited[u] {
			continue
		}
		visited[u] = true

		for ei, e := range adj[u] {
			if e.cap <= 0 || visited[e.to] {
				continue
			}

			reduced := e.cost + potential[u] - potential[e.to]
			if reduced < 0 {
				// Should not happen given valid potentials;
				// treat as zero to stay robust to the final
				// iteration's rounding.
				reduced = 0
			}

			nd := dist[u] + reduced
			if nd < dist[e.to] {
				dist[e.to] = nd
				prevNode[e.to] = u
				prevEdge[e.to] = ei
				heap.Push(pq, pqItem{node: e.to, dist: nd})
			}
		}
	}

	// dist is left in reduced-cost space: Solve folds it directly into
	// the running potential (π'(v) = π(v) + reducedDist(v)), the
	// standard Johnson's-algorithm re-potential step.
	return dist, prevNode, prevEdge, true
}
