package payment

import (
	"testing"

	"github.com/btcsuite/btcd/btcutil"
	"github.com/pickhardtlabs/ppay/chanid"
	"github.com/pickhardtlabs/ppay/graph"
	"github.com/pickhardtlabs/ppay/uncertainty"
)

func testChannel(t *testing.T, src, dst chanid.Vertex, scid uint64, capacity btcutil.Amount) (*uncertainty.Channel, graph.ChannelRef) {
	t.Helper()

	g := graph.New()
	ref := graph.ChannelRef{Src: src, Dst: dst, SCID: chanid.NewShortChanIDFromInt(scid)}
	if err := g.AddChannel(&graph.ChannelEdge{
		Ref: ref, Capacity: capacity, Active: true, Announced: true,
	}); err != nil {
		t.Fatalf("AddChannel: %v", err)
	}

	net := uncertainty.NewNetwork(g)
	return net.Channel(ref), ref
}

func TestNewAttemptAllocatesInFlight(t *testing.T) {
	t.Parallel()

	alice := chanid.NewVertexFromString("alice")
	bob := chanid.NewVertexFromString("bob")
	c, ref := testChannel(t, alice, bob, 1, 100_000)

	a, err := NewAttempt([]*uncertainty.Channel{c}, []graph.ChannelRef{ref}, 10_000)
	if err != nil {
		t.Fatalf("NewAttempt: %v", err)
	}

	if a.Status != StatusPlanned {
		t.Fatalf("Status = %v, want PLANNED", a.Status)
	}
	if c.InFlight() != 10_000 {
		t.Fatalf("channel in-flight = %v, want 10000", c.InFlight())
	}
}

func TestNewAttemptRejectsPathDiscontinuity(t *testing.T) {
	t.Parallel()

	alice := chanid.NewVertexFromString("alice")
	bob := chanid.NewVertexFromString("bob")
	carol := chanid.NewVertexFromString("carol")
	dave := chanid.NewVertexFromString("dave")

	c1, ref1 := testChannel(t, alice, bob, 1, 100_000)
	c2, ref2 := testChannel(t, carol, dave, 2, 100_000)

	_, err := NewAttempt(
		[]*uncertainty.Channel{c1, c2},
		[]graph.ChannelRef{ref1, ref2},
		1000,
	)
	if err == nil {
		t.Fatal("NewAttempt over a discontinuous path should fail")
	}

	// The discontinuity is rejected before any in-flight is allocated.
	if c1.InFlight() != 0 {
		t.Fatalf("c1 in-flight = %v, want 0 (never allocated)", c1.InFlight())
	}
}

func TestNewAttemptRejectsMismatchedLengths(t *testing.T) {
	t.Parallel()

	alice := chanid.NewVertexFromString("alice")
	bob := chanid.NewVertexFromString("bob")
	c, ref := testChannel(t, alice, bob, 1, 100_000)

	_, err := NewAttempt(
		[]*uncertainty.Channel{c},
		[]graph.ChannelRef{ref, ref},
		1000,
	)
	if err == nil {
		t.Fatal("NewAttempt with mismatched path/refs lengths should fail")
	}
}

func TestNewAttemptRollsBackEarlierChannelsOnLaterFailure(t *testing.T) {
	t.Parallel()

	alice := chanid.NewVertexFromString("alice")
	bob := chanid.NewVertexFromString("bob")
	carol := chanid.NewVertexFromString("carol")

	c1, ref1 := testChannel(t, alice, bob, 1, 100_000)
	c2, ref2 := testChannel(t, bob, carol, 2, 100_000)

	// Prime the first channel with existing in-flight so a negative delta
	// leaves it non-negative, but leave the second (c2) at zero so the
	// same delta drives it negative and NewAttempt must unwind c1's
	// allocation.
	if err := c1.AllocateInFlight(1000); err != nil {
		t.Fatalf("priming c1: %v", err)
	}

	_, err := NewAttempt(
		[]*uncertainty.Channel{c1, c2},
		[]graph.ChannelRef{ref1, ref2},
		-500,
	)
	if err == nil {
		t.Fatal("expected an allocation failure: c2's in-flight would go negative")
	}

	if c1.InFlight() != 1000 {
		t.Fatalf("c1 in-flight = %v, want 1000 (rolled back to pre-attempt state)",
			c1.InFlight())
	}
}

func TestAttemptLifecycleSuccess(t *testing.T) {
	t.Parallel()

	alice := chanid.NewVertexFromString("alice")
	bob := chanid.NewVertexFromString("bob")
	c, ref := testChannel(t, alice, bob, 1, 100_000)

	a, err := NewAttempt([]*uncertainty.Channel{c}, []graph.ChannelRef{ref}, 10_000)
	if err != nil {
		t.Fatalf("NewAttempt: %v", err)
	}

	if err := a.MarkInFlight(); err != nil {
		t.Fatalf("MarkInFlight: %v", err)
	}
	if a.Status != StatusInFlight {
		t.Fatalf("Status = %v, want INFLIGHT", a.Status)
	}
	// In-flight stays reserved until the session's cleanup step.
	if c.InFlight() != 10_000 {
		t.Fatalf("channel in-flight after MarkInFlight = %v, want 10000", c.InFlight())
	}

	if err := a.MarkSettled(); err != nil {
		t.Fatalf("MarkSettled: %v", err)
	}
	if a.Status != StatusSettled {
		t.Fatalf("Status = %v, want SETTLED", a.Status)
	}
}

func TestAttemptLifecycleFailureRollsBackInFlight(t *testing.T) {
	t.Parallel()

	alice := chanid.NewVertexFromString("alice")
	bob := chanid.NewVertexFromString("bob")
	c, ref := testChannel(t, alice, bob, 1, 100_000)

	a, err := NewAttempt([]*uncertainty.Channel{c}, []graph.ChannelRef{ref}, 10_000)
	if err != nil {
		t.Fatalf("NewAttempt: %v", err)
	}

	if err := a.MarkFailed(); err != nil {
		t.Fatalf("MarkFailed: %v", err)
	}
	if a.Status != StatusFailed {
		t.Fatalf("Status = %v, want FAILED", a.Status)
	}
	if c.InFlight() != 0 {
		t.Fatalf("channel in-flight after MarkFailed = %v, want 0 (rolled back)", c.InFlight())
	}
}

func TestAttemptInvalidTransitionsRejected(t *testing.T) {
	t.Parallel()

	alice := chanid.NewVertexFromString("alice")
	bob := chanid.NewVertexFromString("bob")
	c, ref := testChannel(t, alice, bob, 1, 100_000)

	a, err := NewAttempt([]*uncertainty.Channel{c}, []graph.ChannelRef{ref}, 10_000)
	if err != nil {
		t.Fatalf("NewAttempt: %v", err)
	}

	if err := a.MarkSettled(); err == nil {
		t.Fatal("MarkSettled from PLANNED should fail: must pass through INFLIGHT")
	}

	if err := a.MarkInFlight(); err != nil {
		t.Fatalf("MarkInFlight: %v", err)
	}
	if err := a.MarkInFlight(); err == nil {
		t.Fatal("MarkInFlight from INFLIGHT should fail")
	}

	if err := a.MarkSettled(); err != nil {
		t.Fatalf("MarkSettled: %v", err)
	}
	if err := a.MarkFailed(); err == nil {
		t.Fatal("MarkFailed from SETTLED should fail: SETTLED is terminal")
	}
}

func TestAttemptMemoizesFeeAndProbability(t *testing.T) {
	t.Parallel()

	alice := chanid.NewVertexFromString("alice")
	bob := chanid.NewVertexFromString("bob")
	c, ref := testChannel(t, alice, bob, 1, 100_000)

	wantFee := c.RoutingCostMsat(10_000)
	wantProb := c.SuccessProbability(10_000)

	a, err := NewAttempt([]*uncertainty.Channel{c}, []graph.ChannelRef{ref}, 10_000)
	if err != nil {
		t.Fatalf("NewAttempt: %v", err)
	}

	if a.FeeMsat != wantFee {
		t.Fatalf("FeeMsat = %v, want %v", a.FeeMsat, wantFee)
	}
	if a.Probability != wantProb {
		t.Fatalf("Probability = %v, want %v", a.Probability, wantProb)
	}
}
