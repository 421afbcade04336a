package mcf

import (
	"github.com/btcsuite/btcd/btcutil"
	"github.com/pickhardtlabs/ppay/chanid"
	"github.com/pickhardtlabs/ppay/graph"
	"github.com/pickhardtlabs/ppay/uncertainty"
)

// probeAmount is the fixed probe size the dynamic pruning filter checks
// success probability against (spec.md §4.2 "Dynamic filter").
const probeAmount = btcutil.Amount(250_000)

// dynamicPruneThreshold is the minimum success_probability(probeAmount) a
// channel must clear to survive the dynamic filter.
const dynamicPruneThreshold = 0.9

// BuildParams controls how an Instance is built from an UncertaintyNetwork
// (spec.md §4.2/§4.3, §6 "Configuration").
type BuildParams struct {
	// Sender and Receiver are the payment's endpoints.
	Sender, Receiver chanid.Vertex

	// Amount is the amount (in satoshis) still to be delivered this
	// round, fixing the supply vector's magnitude.
	Amount btcutil.Amount

	// Mu weights routing fees against the uncertainty penalty; 0 means
	// purely reliability-optimal.
	Mu int64

	// BaseFeeThreshold drops channels whose base fee exceeds it from
	// planning (static pruning filter).
	BaseFeeThreshold graph.MilliSatoshi

	// PruneNetwork enables the dynamic 0.9-success-probability-at-
	// probeAmount filter.
	PruneNetwork bool

	// NPieces is the number of uncertainty pieces to linearize each
	// surviving channel's arc cost into.
	NPieces int
}

// arcBinding records which belief channel a given arc originated from, so
// the decomposer can map flow on an arc back to a path of channels.
type arcBinding struct {
	arc     ArcID
	channel *uncertainty.Channel
}

// Instance is a built, solved-or-unsolved min-cost-flow encoding of one
// planning round (spec.md §4.3 "MCF builder"). It owns the Solver and the
// arc_id -> channel mapping needed for decomposition.
type Instance struct {
	solver   Solver
	params   BuildParams
	indexOf  map[chanid.Vertex]int
	nodeOf   []chanid.Vertex
	bindings []arcBinding
	status   Status
}

// Build encodes net as an integer MCF instance over solver, applying the
// static base-fee-threshold filter and (if enabled) the dynamic
// probeAmount success-probability filter, per spec.md §4.2/§4.3. solver
// must be freshly constructed; Build registers every node, arc, and the
// supply vector on it but does not call Solve.
func Build(net *uncertainty.Network, solver Solver, params BuildParams) *Instance {
	if params.NPieces < 1 {
		params.NPieces = 5
	}

	g := net.Graph()
	nodes := g.Nodes()

	inst := &Instance{
		solver:  solver,
		params:  params,
		indexOf: make(map[chanid.Vertex]int, len(nodes)),
		nodeOf:  nodes,
	}
	for i, v := range nodes {
		inst.indexOf[v] = i
	}

	eligible := net.EligibleChannels(params.BaseFeeThreshold)

	for _, c := range eligible {
		if params.PruneNetwork && c.SuccessProbability(probeAmount) < dynamicPruneThreshold {
			continue
		}

		srcIdx, ok := inst.indexOf[c.Edge.Ref.Src]
		if !ok {
			continue
		}
		dstIdx, ok := inst.indexOf[c.Edge.Ref.Dst]
		if !ok {
			continue
		}

		pieces := c.PiecewiseLinearizedCosts(params.Mu, params.NPieces)
		for _, p := range pieces {
			if p.Capacity <= 0 {
				continue
			}

			arc := solver.AddArc(srcIdx, dstIdx, int64(p.Capacity), p.UnitCost)
			inst.bindings = append(inst.bindings, arcBinding{arc: arc, channel: c})
		}
	}

	if senderIdx, ok := inst.indexOf[params.Sender]; ok {
		solver.SetSupply(senderIdx, int64(params.Amount))
	}
	if receiverIdx, ok := inst.indexOf[params.Receiver]; ok {
		solver.SetSupply(receiverIdx, -int64(params.Amount))
	}

	log.Debugf("built mcf instance: %d nodes, %d arcs, amount=%v sat",
		len(nodes), len(inst.bindings), params.Amount)

	return inst
}

// Solve runs the underlying solver and records its status.
func (inst *Instance) Solve() Status {
	inst.status = inst.solver.Solve()

	log.Debugf("mcf solve finished with status %v", inst.status)

	return inst.status
}

// Status returns the outcome of the last Solve call.
func (inst *Instance) Status() Status {
	return inst.status
}
