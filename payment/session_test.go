package payment

import (
	"context"
	"testing"

	"github.com/pickhardtlabs/ppay/chanid"
	"github.com/pickhardtlabs/ppay/graph"
	"github.com/pickhardtlabs/ppay/mcf"
	"github.com/pickhardtlabs/ppay/oracle"
	"github.com/pickhardtlabs/ppay/uncertainty"
)

func buildSessionFixture(t *testing.T, oracleSeed int64) (
	*uncertainty.Network, *oracle.Network, chanid.Vertex, chanid.Vertex,
) {
	t.Helper()

	g := graph.New()
	alice := chanid.NewVertexFromString("alice")
	bob := chanid.NewVertexFromString("bob")

	if err := g.AddChannel(&graph.ChannelEdge{
		Ref: graph.ChannelRef{
			Src: alice, Dst: bob, SCID: chanid.NewShortChanIDFromInt(1),
		},
		Capacity: 1_000_000, Active: true, Announced: true,
	}); err != nil {
		t.Fatalf("AddChannel: %v", err)
	}
	if err := g.AddChannel(&graph.ChannelEdge{
		Ref: graph.ChannelRef{
			Src: bob, Dst: alice, SCID: chanid.NewShortChanIDFromInt(1),
		},
		Capacity: 1_000_000, Active: true, Announced: true,
	}); err != nil {
		t.Fatalf("AddChannel: %v", err)
	}

	net := uncertainty.NewNetwork(g)
	oracleNet, err := oracle.NewNetwork(g, oracleSeed)
	if err != nil {
		t.Fatalf("oracle.NewNetwork: %v", err)
	}

	return net, oracleNet, alice, bob
}

func newSessionSolverFactory() func(int) mcf.Solver {
	return func(n int) mcf.Solver { return mcf.NewSSPSolver(n) }
}

func TestSessionZeroAmountIsNoop(t *testing.T) {
	t.Parallel()

	net, oracleNet, alice, bob := buildSessionFixture(t, 1)

	s := NewSession(net, oracleNet, newSessionSolverFactory(), alice, bob, 0,
		DefaultConfig())

	residual, fee, err := s.Pay(context.Background())
	if err != nil {
		t.Fatalf("Pay: %v", err)
	}
	if residual != 0 || fee != 0 {
		t.Fatalf("Pay(0) = (%v, %v), want (0, 0)", residual, fee)
	}
	if s.Rounds() != 0 {
		t.Fatalf("Rounds() = %d, want 0: a zero-amount payment should never plan", s.Rounds())
	}
}

func TestSessionNegativeAmountRejected(t *testing.T) {
	t.Parallel()

	net, oracleNet, alice, bob := buildSessionFixture(t, 1)

	s := NewSession(net, oracleNet, newSessionSolverFactory(), alice, bob, -1,
		DefaultConfig())

	_, _, err := s.Pay(context.Background())
	if err == nil {
		t.Fatal("Pay with a negative amount should be rejected")
	}
	if _, ok := err.(*InvalidInputError); !ok {
		t.Fatalf("error has type %T, want *InvalidInputError", err)
	}
}

func TestSessionFullDeliveryOnAbundantLiquidity(t *testing.T) {
	t.Parallel()

	g := graph.New()
	alice := chanid.NewVertexFromString("alice")
	bob := chanid.NewVertexFromString("bob")
	ref := graph.ChannelRef{Src: alice, Dst: bob, SCID: chanid.NewShortChanIDFromInt(1)}

	if err := g.AddChannel(&graph.ChannelEdge{
		Ref: ref, Capacity: 1_000_000, Active: true, Announced: true,
	}); err != nil {
		t.Fatalf("AddChannel: %v", err)
	}

	net := uncertainty.NewNetwork(g)

	oracleNet, err := oracle.NewNetwork(g, 1)
	if err != nil {
		t.Fatalf("oracle.NewNetwork: %v", err)
	}

	// Size the payment to comfortably fit under whatever liquidity the
	// seed happened to draw, rather than depending on a specific value.
	liquidity := oracleNet.Channel(ref).ActualLiquidity()
	if liquidity < 1000 {
		t.Skip("seed produced insufficient liquidity for this test's payment size")
	}

	amount := liquidity / 2
	if amount == 0 {
		t.Skip("seed produced insufficient liquidity for a non-zero half-payment")
	}

	// Pruning is off: under the uninformative prior this 1,000,000-sat
	// channel has success_probability(250000) of about 0.75, below the
	// 0.9 prune threshold, so the default config would plan no path.
	cfg := DefaultConfig()
	cfg.PruneNetwork = false

	s := NewSession(net, oracleNet, newSessionSolverFactory(), alice, bob, amount,
		cfg)

	residual, fee, err := s.Pay(context.Background())
	if err != nil {
		t.Fatalf("Pay: %v", err)
	}
	if residual != 0 {
		t.Fatalf("residual = %v, want 0: liquidity (%v) comfortably covers amount (%v)",
			residual, liquidity, amount)
	}
	if fee != 0 {
		t.Fatalf("fee = %v, want 0: the test channel has zero base fee and ppm", fee)
	}

	if s.Rounds() == 0 {
		t.Fatal("Rounds() = 0, a successful payment must have run at least one round")
	}
}

func TestSessionCleanupAlwaysZeroesInFlight(t *testing.T) {
	t.Parallel()

	net, oracleNet, alice, bob := buildSessionFixture(t, 1)

	cfg := DefaultConfig()
	cfg.MaxRounds = 1
	cfg.PruneNetwork = false

	// Whether this settles fully or fails partway (depends on how much
	// liquidity the seed drew), cleanup must zero in-flight either way.
	s := NewSession(net, oracleNet, newSessionSolverFactory(), alice, bob,
		900_000, cfg)

	if _, _, err := s.Pay(context.Background()); err != nil {
		t.Fatalf("Pay: %v", err)
	}

	ref := graph.ChannelRef{Src: alice, Dst: bob, SCID: chanid.NewShortChanIDFromInt(1)}
	if net.Channel(ref).InFlight() != 0 {
		t.Fatal("belief in-flight was not cleaned up")
	}
	if oracleNet.Channel(ref).InFlight() != 0 {
		t.Fatal("oracle in-flight was not cleaned up")
	}
}

func TestSessionStartEntropyMatchesNetworkAtConstruction(t *testing.T) {
	t.Parallel()

	net, oracleNet, alice, bob := buildSessionFixture(t, 1)

	want := net.Entropy()
	s := NewSession(net, oracleNet, newSessionSolverFactory(), alice, bob, 1000,
		DefaultConfig())

	if s.StartEntropy() != want {
		t.Fatalf("StartEntropy() = %v, want %v", s.StartEntropy(), want)
	}
}

func TestSessionContextCancellationStopsTheLoop(t *testing.T) {
	t.Parallel()

	net, oracleNet, alice, bob := buildSessionFixture(t, 1)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	s := NewSession(net, oracleNet, newSessionSolverFactory(), alice, bob, 1000,
		DefaultConfig())

	residual, _, err := s.Pay(ctx)
	if err != nil {
		t.Fatalf("Pay: %v", err)
	}
	if residual != 1000 {
		t.Fatalf("residual = %v, want 1000: a pre-cancelled context must stop "+
			"before any round runs", residual)
	}
	if s.Rounds() != 0 {
		t.Fatalf("Rounds() = %d, want 0", s.Rounds())
	}
}
