// Package engine sequences boolean kernels into a fallback chain. Kernels
// are tried in preference order; the first Success wins and Empty or
// Failure moves on to the next kernel. Only exhausting the chain is an
// error.
package engine

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/chazu/meshbool/pkg/kernel"
	"github.com/chazu/meshbool/pkg/metrics"
	"github.com/rs/zerolog"
	"go.uber.org/multierr"
)

var (
	// ErrEngineFailure marks an attempt whose kernel could not complete.
	ErrEngineFailure = errors.New("engine failure")
	// ErrEngineEmpty marks an attempt that completed with no volume.
	ErrEngineEmpty = errors.New("engine produced an empty result")
	// ErrAllEnginesExhausted is returned when no kernel produced a solid.
	ErrAllEnginesExhausted = errors.New("all engines exhausted")
	// ErrNoEngines is returned when the chain has no kernels.
	ErrNoEngines = errors.New("no boolean engines configured")
)

// Attempt records one kernel call.
type Attempt struct {
	Engine   string
	Status   kernel.Status
	Reason   string
	Duration time.Duration
}

// Err returns nil for a successful attempt, otherwise an error wrapping
// ErrEngineEmpty or ErrEngineFailure.
func (a Attempt) Err() error {
	switch a.Status {
	case kernel.StatusSuccess:
		return nil
	case kernel.StatusEmpty:
		return fmt.Errorf("%s: %w: %s", a.Engine, ErrEngineEmpty, a.Reason)
	default:
		return fmt.Errorf("%s: %w: %s", a.Engine, ErrEngineFailure, a.Reason)
	}
}

// AllEmpty reports whether every attempt completed with an empty result.
func AllEmpty(attempts []Attempt) bool {
	if len(attempts) == 0 {
		return false
	}
	for _, a := range attempts {
		if a.Status != kernel.StatusEmpty {
			return false
		}
	}
	return true
}

// Chain is an ordered preference list of kernels.
// Chain is safe for concurrent use; it holds no per-call state.
type Chain struct {
	kernels []kernel.Kernel
	timeout time.Duration
	log     zerolog.Logger
	metrics *metrics.Metrics
}

// Option configures a Chain.
type Option func(*Chain)

// WithTimeout sets the per-call limit. Zero disables the limit.
func WithTimeout(d time.Duration) Option {
	return func(c *Chain) { c.timeout = d }
}

// WithLogger sets the logger used for attempt events.
func WithLogger(l zerolog.Logger) Option {
	return func(c *Chain) { c.log = l }
}

// WithMetrics records every attempt in m.
func WithMetrics(m *metrics.Metrics) Option {
	return func(c *Chain) { c.metrics = m }
}

// NewChain returns a chain trying kernels in the given order.
func NewChain(kernels []kernel.Kernel, opts ...Option) *Chain {
	c := &Chain{
		kernels: kernels,
		timeout: EvalTimeout,
		log:     zerolog.Nop(),
	}
	for _, o := range opts {
		o(c)
	}
	return c
}

// Names returns the kernel names in preference order.
func (c *Chain) Names() []string {
	names := make([]string, len(c.kernels))
	for i, k := range c.kernels {
		names[i] = k.Name()
	}
	return names
}

// Len returns the number of kernels in the chain.
func (c *Chain) Len() int { return len(c.kernels) }

// Evaluate runs op through the chain.
//
// Return semantics:
//   - first Success: returns its mesh, the attempts so far and nil
//   - every kernel Empty or Failure: returns an error wrapping
//     ErrAllEnginesExhausted and every per-attempt error
//   - ctx done between attempts: returns an error wrapping ctx.Err()
func (c *Chain) Evaluate(ctx context.Context, a, b kernel.Mesh, op kernel.Op) (kernel.Mesh, []Attempt, error) {
	if len(c.kernels) == 0 {
		return kernel.Mesh{}, nil, ErrNoEngines
	}

	var (
		attempts []Attempt
		errs     error
	)
	for i, k := range c.kernels {
		if err := ctx.Err(); err != nil {
			return kernel.Mesh{}, attempts, fmt.Errorf("boolean %s interrupted: %w", op, multierr.Append(errs, err))
		}

		start := time.Now()
		res := guard(ctx, k, a, b, op, c.timeout)
		if res.Status == kernel.StatusSuccess {
			// Hold kernels to the Empty contract.
			res = kernel.Classify(res.Mesh)
		}
		att := Attempt{
			Engine:   k.Name(),
			Status:   res.Status,
			Reason:   res.Reason,
			Duration: time.Since(start),
		}
		attempts = append(attempts, att)
		c.metrics.RecordAttempt(att.Engine, op.String(), att.Status.String(), att.Duration)

		ev := c.log.Info()
		if res.Status != kernel.StatusSuccess {
			ev = c.log.Warn().Str("reason", res.Reason)
		}
		ev.Str("engine", att.Engine).
			Str("op", op.String()).
			Int("rank", i+1).
			Str("status", att.Status.String()).
			Dur("duration", att.Duration).
			Int("faces", res.Mesh.TriangleCount()).
			Msg("engine attempt")

		if res.Status == kernel.StatusSuccess {
			return res.Mesh, attempts, nil
		}
		errs = multierr.Append(errs, att.Err())
	}

	return kernel.Mesh{}, attempts, fmt.Errorf("%w for %s: %w", ErrAllEnginesExhausted, op, errs)
}
