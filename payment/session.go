package payment

import (
	"context"
	"fmt"

	"github.com/btcsuite/btcd/btcutil"
	"github.com/pickhardtlabs/ppay/chanid"
	"github.com/pickhardtlabs/ppay/graph"
	"github.com/pickhardtlabs/ppay/mcf"
	"github.com/pickhardtlabs/ppay/oracle"
	"github.com/pickhardtlabs/ppay/uncertainty"
)

// RoundCapExceededError reports that the outer loop ran Config.MaxRounds
// rounds without delivering the full amount (spec.md §7 kind 3). It is a
// clean failure.
type RoundCapExceededError struct {
	Rounds int
}

func (e *RoundCapExceededError) Error() string {
	return fmt.Sprintf("round cap exceeded: stopped after %d rounds",
		e.Rounds)
}

// ProbabilityCollapsedError reports that the last attempt's probability
// fell below Config.ProbabilityFloor (spec.md §7 kind 2). It is a clean
// failure.
type ProbabilityCollapsedError struct {
	Probability float64
	Floor       float64
}

func (e *ProbabilityCollapsedError) Error() string {
	return "probability collapsed below floor"
}

// Config bundles the tunable knobs of a payment session (spec.md §6
// "Configuration (recognized options)").
type Config struct {
	// Mu weights routing fees against the uncertainty penalty; 0 means
	// purely reliability-optimal.
	Mu int64

	// BaseFeeThreshold drops channels whose base fee exceeds it from
	// planning.
	BaseFeeThreshold graph.MilliSatoshi

	// PruneNetwork enables the dynamic 0.9-success-probability-at-
	// 250,000-sat filter.
	PruneNetwork bool

	// NPieces is the granularity of each channel's piecewise
	// linearization.
	NPieces int

	// MaxRounds is the outer-loop cap.
	MaxRounds int

	// ProbabilityFloor aborts the loop once the last attempt's
	// probability drops below it.
	ProbabilityFloor float64
}

// DefaultConfig returns the configuration defaults named in spec.md §6.
func DefaultConfig() Config {
	return Config{
		Mu:               1,
		BaseFeeThreshold: 0,
		PruneNetwork:     true,
		NPieces:          5,
		MaxRounds:        15,
		ProbabilityFloor: 0.05,
	}
}

// Session is the outer payment loop (spec.md §4.6 "PaymentSession outer
// loop", component C8): it iterates rounds over the residual amount until
// delivered, until the round cap is hit, or until the last attempt's
// success probability collapses, then settles or cleans up.
type Session struct {
	net       *uncertainty.Network
	oracleNet *oracle.Network
	newSolver func(numNodes int) mcf.Solver
	config    Config

	sender, receiver chanid.Vertex
	totalAmount      btcutil.Amount
	residual         btcutil.Amount

	attempts     []*Attempt
	touched      map[graph.ChannelRef]struct{}
	roundCount   int
	startEntropy float64
}

// NewSession constructs a session that will attempt to deliver amount sats
// from sender to receiver over net/oracleNet, using newSolver to build a
// fresh Solver for every round's MCF instance.
func NewSession(
	net *uncertainty.Network,
	oracleNet *oracle.Network,
	newSolver func(numNodes int) mcf.Solver,
	sender, receiver chanid.Vertex,
	amount btcutil.Amount,
	config Config,
) *Session {

	return &Session{
		net:          net,
		oracleNet:    oracleNet,
		newSolver:    newSolver,
		config:       config,
		sender:       sender,
		receiver:     receiver,
		totalAmount:  amount,
		residual:     amount,
		touched:      make(map[graph.ChannelRef]struct{}),
		startEntropy: net.Entropy(),
	}
}

// Pay runs the outer loop to completion (spec.md §4.6). It returns the
// undelivered residual (0 on full delivery) and the millisatoshi fee paid
// on settlement (0 if any amount remains undelivered). A non-nil error
// indicates a negative amount (spec.md §7 kind 6, *InvalidInputError) or a
// fatal invariant violation (spec.md §7 kinds 4-5); clean
// failures (kinds 1-3) are reported via a non-zero residual with a nil
// error, matching spec.md §6's `pay()` contract. ctx is checked once per
// round boundary (spec.md §5: no mid-round suspension); a cancelled
// context stops the loop the same way the round cap does, leaving the
// residual unsettled.
func (s *Session) Pay(ctx context.Context) (btcutil.Amount, graph.MilliSatoshi, error) {
	if s.totalAmount < 0 {
		return 0, 0, &InvalidInputError{Reason: "negative amount"}
	}
	if s.totalAmount == 0 {
		return 0, 0, nil
	}

	lastProbability := 1.0

	for s.residual > 0 && s.roundCount < s.config.MaxRounds &&
		lastProbability >= s.config.ProbabilityFloor {

		if ctx.Err() != nil {
			break
		}

		s.roundCount++

		round := NewRound(
			s.net, s.oracleNet, s.newSolver, mcf.BuildParams{
				Sender:           s.sender,
				Receiver:         s.receiver,
				Mu:               s.config.Mu,
				BaseFeeThreshold: s.config.BaseFeeThreshold,
				PruneNetwork:     s.config.PruneNetwork,
				NPieces:          s.config.NPieces,
			},
			s.residual,
		)

		if err := round.Plan(); err != nil {
			if _, ok := err.(*NoPathFoundError); ok {
				break
			}

			return s.residual, 0, err
		}

		settledThisRound, err := round.ProbeAll()
		if err != nil {
			return s.residual, 0, err
		}

		for _, ref := range round.Touched() {
			s.touched[ref] = struct{}{}
		}

		s.attempts = append(s.attempts, round.Attempts()...)
		s.residual -= settledThisRound

		if attempts := round.Attempts(); len(attempts) > 0 {
			lastProbability = attempts[len(attempts)-1].Probability
		}

		log.Debugf("round %d: settled %v sat this round, %v residual, "+
			"last_attempt_probability=%.4f", s.roundCount,
			settledThisRound, s.residual, lastProbability)
	}

	var feeMsat graph.MilliSatoshi

	if s.residual == 0 {
		var err error
		feeMsat, err = s.settle()
		if err != nil {
			return s.residual, 0, err
		}
	}

	s.cleanup()

	return s.residual, feeMsat, nil
}

// settle applies every INFLIGHT attempt atomically to the oracle and
// belief networks, marking each SETTLED (spec.md §4.6 "Settlement").
func (s *Session) settle() (graph.MilliSatoshi, error) {
	var feeMsat graph.MilliSatoshi

	for _, a := range s.attempts {
		if a.Status != StatusInFlight {
			continue
		}

		if err := s.oracleNet.Settle(a.Refs, a.Amount); err != nil {
			return 0, err
		}

		s.net.SettleAttempt(a.Refs, a.Amount)

		if err := a.MarkSettled(); err != nil {
			return 0, err
		}

		feeMsat += a.FeeMsat
	}

	return feeMsat, nil
}

// cleanup zeroes in-flight on every channel touched this payment, in both
// networks, regardless of outcome (spec.md §4.6 "cleanup", §7 policy).
func (s *Session) cleanup() {
	refs := make([]graph.ChannelRef, 0, len(s.touched))
	for ref := range s.touched {
		refs = append(refs, ref)
	}

	s.net.ZeroInFlight(refs)
	s.oracleNet.ZeroInFlight(refs)
}

// Attempts returns every attempt produced across every round of this
// session, in planning order.
func (s *Session) Attempts() []*Attempt {
	return s.attempts
}

// Rounds returns the number of rounds the outer loop ran.
func (s *Session) Rounds() int {
	return s.roundCount
}

// StartEntropy returns the belief network's total entropy as observed at
// session construction, for callers verifying P5 (entropy is monotone
// non-increasing across a pay() call).
func (s *Session) StartEntropy() float64 {
	return s.startEntropy
}

// InvalidInputError reports a caller error rejected before any state
// mutation (spec.md §7 kind 6): a negative amount, an unknown sender or
// receiver, or a malformed gossip entry.
type InvalidInputError struct {
	Reason string
}

func (e *InvalidInputError) Error() string {
	return "invalid input: " + e.Reason
}
