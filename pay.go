// Package ppay implements a Pickhardt-payments-style min-cost-flow
// payment router over a simulated payment-channel network under liquidity
// uncertainty: a caller asks to deliver an amount from a sender to a
// receiver, and Pay plans multi-path splits against a belief model of
// each channel's remaining liquidity, probes them against a ground-truth
// oracle, learns from the outcome, and retries the residual until
// delivered, exhausted, or aborted.
package ppay

import (
	"context"
	"errors"
	"fmt"

	"github.com/btcsuite/btcd/btcutil"
	"github.com/pickhardtlabs/ppay/chanid"
	"github.com/pickhardtlabs/ppay/graph"
	"github.com/pickhardtlabs/ppay/mcf"
	"github.com/pickhardtlabs/ppay/oracle"
	"github.com/pickhardtlabs/ppay/payment"
	"github.com/pickhardtlabs/ppay/ppaylog"
	"github.com/pickhardtlabs/ppay/uncertainty"
)

func init() {
	// Mirrors the teacher's dcrlnd.go init() wiring block: every
	// subsystem package starts out with a disabled logger until this
	// UseLogger call installs a real one from the shared backend.
	uncertainty.UseLogger(ppaylog.NewSubLogger("BLEF"))
	mcf.UseLogger(ppaylog.NewSubLogger("MCFB"))
	payment.UseLogger(ppaylog.NewSubLogger("PMNT"))
	graph.UseLogger(ppaylog.NewSubLogger("GRPH"))
	oracle.UseLogger(ppaylog.NewSubLogger("ORCL"))
}

// Router binds a static channel graph to a belief network and an oracle
// network and runs Pay calls against them, retaining both networks'
// state across calls the way a long-running node would (spec.md §8 L3:
// a successful pay(S,R,A) followed by pay(R,S,A) on the same oracle is
// feasible iff the first did not exhaust the returned paths).
type Router struct {
	chanGraph *graph.ChannelGraph
	net       *uncertainty.Network
	oracleNet *oracle.Network
	cfg       Config
}

// NewRouter builds a Router over chanGraph, seeding the oracle's
// ground-truth liquidity from cfg.OracleSeed (spec.md §3, §4.11).
func NewRouter(chanGraph *graph.ChannelGraph, cfg Config) (*Router, error) {
	oracleNet, err := oracle.NewNetwork(chanGraph, cfg.OracleSeed)
	if err != nil {
		return nil, fmt.Errorf("building oracle network: %w", err)
	}

	return &Router{
		chanGraph: chanGraph,
		net:       uncertainty.NewNetwork(chanGraph),
		oracleNet: oracleNet,
		cfg:       cfg,
	}, nil
}

// Pay delivers amount satoshis from sender to receiver (spec.md §6
// "Primary API"). It returns (0, fee) on full delivery, (residual, 0) on
// a clean failure (spec.md §7 kinds 1-3), and a non-nil error only for a
// rejected input (kind 6) or a fatal invariant violation (kinds 4-5),
// which must never occur in a correct implementation.
func (r *Router) Pay(
	ctx context.Context,
	sender, receiver chanid.Vertex,
	amount btcutil.Amount,
) (btcutil.Amount, graph.MilliSatoshi, error) {

	if amount < 0 {
		return 0, 0, &InvalidInputError{Reason: "negative amount"}
	}
	if amount == 0 {
		return 0, 0, nil
	}
	if !r.knowsNode(sender) {
		return 0, 0, &InvalidInputError{
			Reason: fmt.Sprintf("unknown sender %v", sender),
		}
	}
	if !r.knowsNode(receiver) {
		return 0, 0, &InvalidInputError{
			Reason: fmt.Sprintf("unknown receiver %v", receiver),
		}
	}

	if r.cfg.ResetBeliefBeforePay {
		r.net.Reset()
	}

	session := payment.NewSession(
		r.net, r.oracleNet,
		func(numNodes int) mcf.Solver { return mcf.NewSSPSolver(numNodes) },
		sender, receiver, amount,
		r.cfg.toSessionConfig(),
	)

	residual, feeMsat, err := session.Pay(ctx)
	if err != nil {
		switch {
		case isBeliefInconsistency(err):
			return residual, 0, &BeliefInconsistencyError{Cause: err}
		case isOracleInconsistency(err):
			return residual, 0, &OracleInconsistencyError{Cause: err}
		default:
			return residual, 0, err
		}
	}

	return residual, feeMsat, nil
}

// Graph returns the static channel graph this router plans over.
func (r *Router) Graph() *graph.ChannelGraph {
	return r.chanGraph
}

// UncertaintyNetwork returns the belief network this router maintains
// across Pay calls, for callers driving scenarios like the
// channel-depletion simulator hook (spec.md §4.12) that track entropy
// decay over repeated payments.
func (r *Router) UncertaintyNetwork() *uncertainty.Network {
	return r.net
}

// OracleNetwork returns the ground-truth liquidity network this router
// maintains across Pay calls.
func (r *Router) OracleNetwork() *oracle.Network {
	return r.oracleNet
}

func (r *Router) knowsNode(v chanid.Vertex) bool {
	for _, n := range r.chanGraph.Nodes() {
		if n == v {
			return true
		}
	}

	return false
}

// isBeliefInconsistency reports whether err (or something it wraps)
// originated as an *uncertainty.BeliefInconsistencyError.
func isBeliefInconsistency(err error) bool {
	var target *uncertainty.BeliefInconsistencyError
	return errors.As(err, &target)
}

// isOracleInconsistency reports whether err (or something it wraps)
// originated as an *oracle.InconsistencyError.
func isOracleInconsistency(err error) bool {
	var target *oracle.InconsistencyError
	return errors.As(err, &target)
}

// Pay is a convenience one-shot entrypoint building a Router over
// chanGraph and immediately calling Pay on it once (spec.md §6
// `pay(sender, receiver, amount, mu=1, base_fee_threshold=0)`). Callers
// running multiple payments against the same graph should build a Router
// directly instead, so belief and oracle state persist between calls.
func Pay(
	ctx context.Context,
	cfg Config,
	chanGraph *graph.ChannelGraph,
	sender, receiver chanid.Vertex,
	amount btcutil.Amount,
) (btcutil.Amount, graph.MilliSatoshi, error) {

	router, err := NewRouter(chanGraph, cfg)
	if err != nil {
		return 0, 0, err
	}

	return router.Pay(ctx, sender, receiver, amount)
}
