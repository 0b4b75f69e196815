package aggregator

import "log/slog"

// Option configures an Aggregator.
type Option func(*Aggregator)

// WithLogger sets the logger. A nil logger keeps slog.Default().
func WithLogger(logger *slog.Logger) Option {
	return func(a *Aggregator) {
		if logger != nil {
			a.logger = logger
		}
	}
}

// WithIQRMultiplier overrides Tukey's k (1.5 by default).
func WithIQRMultiplier(k float64) Option {
	return func(a *Aggregator) {
		if k > 0 {
			a.iqrMultiplier = k
		}
	}
}

// WithParallelLoads toggles concurrent file loading.
func WithParallelLoads(parallel bool) Option {
	return func(a *Aggregator) {
		a.parallel = parallel
	}
}

// WithNegativeDurations sets the policy for traces that end before they start.
func WithNegativeDurations(policy NegativePolicy) Option {
	return func(a *Aggregator) {
		a.negative = policy
	}
}
