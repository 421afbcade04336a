package mcf

import (
	"testing"

	"github.com/btcsuite/btcd/btcutil"
	"github.com/pickhardtlabs/ppay/chanid"
	"github.com/pickhardtlabs/ppay/graph"
	"github.com/pickhardtlabs/ppay/uncertainty"
)

func TestDecomposeTwoParallelPaths(t *testing.T) {
	t.Parallel()

	g := graph.New()
	alice := chanid.NewVertexFromString("alice")
	bob := chanid.NewVertexFromString("bob")
	carol := chanid.NewVertexFromString("carol")
	dave := chanid.NewVertexFromString("dave")

	edges := []*graph.ChannelEdge{
		{Ref: graph.ChannelRef{Src: alice, Dst: bob, SCID: chanid.NewShortChanIDFromInt(1)},
			Capacity: 50_000, Active: true, Announced: true},
		{Ref: graph.ChannelRef{Src: bob, Dst: dave, SCID: chanid.NewShortChanIDFromInt(2)},
			Capacity: 50_000, Active: true, Announced: true},
		{Ref: graph.ChannelRef{Src: alice, Dst: carol, SCID: chanid.NewShortChanIDFromInt(3)},
			Capacity: 50_000, Active: true, Announced: true},
		{Ref: graph.ChannelRef{Src: carol, Dst: dave, SCID: chanid.NewShortChanIDFromInt(4)},
			Capacity: 50_000, Active: true, Announced: true},
	}
	for _, e := range edges {
		if err := g.AddChannel(e); err != nil {
			t.Fatalf("AddChannel: %v", err)
		}
	}

	net := uncertainty.NewNetwork(g)
	solver := NewSSPSolver(len(net.Graph().Nodes()))

	inst := Build(net, solver, BuildParams{
		Sender: alice, Receiver: dave, Amount: 40_000, NPieces: 1,
	})

	if status := inst.Solve(); status != StatusOptimal {
		t.Fatalf("Solve() = %v, want OPTIMAL", status)
	}

	paths := Decompose(inst)

	var total btcutil.Amount
	for _, p := range paths {
		total += p.Amount

		if len(p.Path) != 2 {
			t.Fatalf("decomposed path has %d hops, want 2", len(p.Path))
		}
		if p.Path[0].Dst != p.Path[1].Src {
			t.Fatalf("decomposed path is discontinuous: %v -> %v",
				p.Path[0], p.Path[1])
		}
	}

	if total != 40_000 {
		t.Fatalf("total decomposed amount = %v, want 40000", total)
	}
}

func TestDecomposeNoFlowReturnsNoPaths(t *testing.T) {
	t.Parallel()

	g := graph.New()
	alice := chanid.NewVertexFromString("alice")
	bob := chanid.NewVertexFromString("bob")

	if err := g.AddChannel(&graph.ChannelEdge{
		Ref: graph.ChannelRef{Src: alice, Dst: bob, SCID: chanid.NewShortChanIDFromInt(1)},
		Capacity: 1000, Active: true, Announced: true,
	}); err != nil {
		t.Fatalf("AddChannel: %v", err)
	}

	net := uncertainty.NewNetwork(g)
	solver := NewSSPSolver(len(net.Graph().Nodes()))

	inst := Build(net, solver, BuildParams{
		Sender: alice, Receiver: bob, Amount: 0, NPieces: 1,
	})

	if status := inst.Solve(); status != StatusOptimal {
		t.Fatalf("Solve() = %v, want OPTIMAL for a zero-amount instance", status)
	}

	if paths := Decompose(inst); len(paths) != 0 {
		t.Fatalf("Decompose() over zero flow = %d paths, want 0", len(paths))
	}
}
