package ppay

import (
	"github.com/pickhardtlabs/ppay/graph"
	"github.com/pickhardtlabs/ppay/payment"
)

// Config collects the recognized options of a Pay call (spec.md §6
// "Configuration (recognized options)"). Construct one with NewConfig and
// Option functions, in the manner lncfg's sub-timeout structs are built in
// the teacher repo.
type Config struct {
	// Mu weights routing fees against the uncertainty penalty; 0 means
	// purely reliability-optimal. Default 1.
	Mu int64

	// BaseFeeThreshold drops channels whose base fee exceeds it from
	// planning. Default 0 (msat).
	BaseFeeThreshold graph.MilliSatoshi

	// PruneNetwork enables the dynamic 0.9-success-probability-at-
	// 250,000-sat filter. Default true.
	PruneNetwork bool

	// NPieces is the granularity of each channel's piecewise
	// linearization. Default 5.
	NPieces int

	// MaxRounds is the outer-loop cap. Default 15.
	MaxRounds int

	// MinProbabilityFloor aborts the loop once the last attempt's
	// probability drops below it. Default 0.05.
	MinProbabilityFloor float64

	// OracleSeed seeds the oracle's ground-truth liquidity draws,
	// matching the original Python's `random.seed(...)`-per-oracle
	// behavior: two Pay calls with the same seed and graph produce
	// byte-identical attempt sequences.
	OracleSeed int64

	// ResetBeliefBeforePay, if set, resets the belief network to the
	// uninformative prior before planning (spec.md §9 Open Question:
	// "let the driver decide"). Default false: belief persists across
	// calls sharing a Router, the usual multi-payment simulation mode.
	ResetBeliefBeforePay bool
}

// NewConfig returns a Config populated with the defaults named in
// spec.md §6, as modified by opts.
func NewConfig(opts ...Option) Config {
	cfg := Config{
		Mu:                  1,
		BaseFeeThreshold:    0,
		PruneNetwork:        true,
		NPieces:             5,
		MaxRounds:           15,
		MinProbabilityFloor: 0.05,
		OracleSeed:          0,
	}

	for _, opt := range opts {
		opt(&cfg)
	}

	return cfg
}

// toSessionConfig narrows a Config down to the subset payment.Session
// consumes.
func (c Config) toSessionConfig() payment.Config {
	return payment.Config{
		Mu:               c.Mu,
		BaseFeeThreshold: c.BaseFeeThreshold,
		PruneNetwork:     c.PruneNetwork,
		NPieces:          c.NPieces,
		MaxRounds:        c.MaxRounds,
		ProbabilityFloor: c.MinProbabilityFloor,
	}
}

// Option mutates a Config under construction.
type Option func(*Config)

// WithMu sets the routing-fee-vs-uncertainty tradeoff weight.
func WithMu(mu int64) Option {
	return func(c *Config) { c.Mu = mu }
}

// WithBaseFeeThreshold sets the static base-fee pruning filter.
func WithBaseFeeThreshold(threshold graph.MilliSatoshi) Option {
	return func(c *Config) { c.BaseFeeThreshold = threshold }
}

// WithPruneNetwork toggles the dynamic success-probability pruning filter.
func WithPruneNetwork(enabled bool) Option {
	return func(c *Config) { c.PruneNetwork = enabled }
}

// WithNPieces sets the piecewise-linearization granularity.
func WithNPieces(n int) Option {
	return func(c *Config) { c.NPieces = n }
}

// WithMaxRounds sets the outer-loop round cap.
func WithMaxRounds(rounds int) Option {
	return func(c *Config) { c.MaxRounds = rounds }
}

// WithMinProbabilityFloor sets the probability-collapse abort threshold.
func WithMinProbabilityFloor(floor float64) Option {
	return func(c *Config) { c.MinProbabilityFloor = floor }
}

// WithOracleSeed sets the oracle's deterministic liquidity-draw seed.
func WithOracleSeed(seed int64) Option {
	return func(c *Config) { c.OracleSeed = seed }
}

// WithResetBeliefBeforePay resets the belief network before planning.
func WithResetBeliefBeforePay(reset bool) Option {
	return func(c *Config) { c.ResetBeliefBeforePay = reset }
}
