// Package costfn implements the ansatz-based cost function: a target
// operator evaluated through an ansatz, a backend and an estimation
// strategy, with a thread-safe count of dispatched evaluations.
package costfn

import (
	"context"
	"math/rand"
	"sync"
	"sync/atomic"

	"github.com/copyleftdev/QVAR/internal/quantum"
	"github.com/copyleftdev/QVAR/internal/vqa"
)

// AnsatzCostFunction evaluates a target operator's expectation under the
// ansatz's output state. The evaluation counter increments exactly once per
// dispatched evaluation, including failures after dispatch, and never for a
// dimension mismatch caught before dispatch. The counter is atomic so
// gradient estimators may evaluate concurrently.
type AnsatzCostFunction struct {
	operator  quantum.PauliSum
	ansatz    vqa.Ansatz
	backend   vqa.Backend
	estimator vqa.Estimator

	fixed      vqa.Parameters
	noiseSigma float64

	noiseMu  sync.Mutex
	noiseRng *rand.Rand

	evals atomic.Int64
}

// Option configures an AnsatzCostFunction.
type Option func(*AnsatzCostFunction)

// WithEstimator overrides the default exact estimator.
func WithEstimator(e vqa.Estimator) Option {
	return func(c *AnsatzCostFunction) { c.estimator = e }
}

// WithFixedParameters freezes a leading slice of the ansatz parameters; the
// free vector passed to Evaluate covers only the remainder.
func WithFixedParameters(fixed vqa.Parameters) Option {
	return func(c *AnsatzCostFunction) { c.fixed = fixed.Clone() }
}

// WithParameterNoise adds seeded Gaussian noise of the given standard
// deviation to every bound parameter, modeling imperfect parameter setting.
func WithParameterNoise(sigma float64, seed int64) Option {
	return func(c *AnsatzCostFunction) {
		c.noiseSigma = sigma
		c.noiseRng = rand.New(rand.NewSource(seed))
	}
}

// New creates the cost function. The default estimator is the backend's
// exact expectation.
func New(operator quantum.PauliSum, a vqa.Ansatz, b vqa.Backend, opts ...Option) *AnsatzCostFunction {
	c := &AnsatzCostFunction{
		operator:  operator,
		ansatz:    a,
		backend:   b,
		estimator: exactEstimator{},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// exactEstimator avoids an import cycle with the estimators package.
type exactEstimator struct{}

func (exactEstimator) Estimate(ctx context.Context, b vqa.Backend, c *quantum.Circuit, observable quantum.PauliSum) (vqa.ValueEstimate, error) {
	v, err := b.Expectation(ctx, c, observable)
	if err != nil {
		return vqa.ValueEstimate{}, err
	}
	return vqa.ValueEstimate{Value: v}, nil
}

// ParameterCount returns the length of the free parameter vector.
func (c *AnsatzCostFunction) ParameterCount() int {
	return c.ansatz.ParameterCount() - len(c.fixed)
}

// Evaluations returns the number of dispatched evaluations so far.
func (c *AnsatzCostFunction) Evaluations() int64 {
	return c.evals.Load()
}

// Evaluate returns the scalar cost at p.
func (c *AnsatzCostFunction) Evaluate(ctx context.Context, p vqa.Parameters) (float64, error) {
	est, err := c.EvaluateEstimate(ctx, p)
	if err != nil {
		return 0, err
	}
	return est.Value, nil
}

// EvaluateEstimate returns the cost with its statistical precision.
func (c *AnsatzCostFunction) EvaluateEstimate(ctx context.Context, p vqa.Parameters) (vqa.ValueEstimate, error) {
	if len(p) != c.ParameterCount() {
		return vqa.ValueEstimate{}, vqa.NewDimensionMismatch("costfn.Evaluate", c.ParameterCount(), len(p))
	}

	full := vqa.Combine(c.fixed, p)
	if c.noiseSigma > 0 {
		c.noiseMu.Lock()
		for i := range full {
			full[i] += c.noiseRng.NormFloat64() * c.noiseSigma
		}
		c.noiseMu.Unlock()
	}

	circuit, err := c.ansatz.Bind(full)
	if err != nil {
		// Bind failures are contract errors caught before dispatch.
		return vqa.ValueEstimate{}, err
	}

	// The evaluation is dispatched from here on: failures still consumed
	// backend resources and are counted.
	c.evals.Add(1)

	est, err := c.estimator.Estimate(ctx, c.backend, circuit, c.operator)
	if err != nil {
		return vqa.ValueEstimate{}, vqa.WrapBackend("costfn.Evaluate", p, err)
	}
	return est, nil
}

// withGradient decorates a cost function with a gradient estimator so it
// satisfies vqa.GradientCostFunction.
type withGradient struct {
	vqa.CostFunction
	estimator vqa.GradientEstimator
}

// WithGradient attaches gradient retrieval to any cost function.
func WithGradient(cf vqa.CostFunction, ge vqa.GradientEstimator) vqa.GradientCostFunction {
	return &withGradient{CostFunction: cf, estimator: ge}
}

// EvaluateWithGradient evaluates the cost and its gradient at p.
func (w *withGradient) EvaluateWithGradient(ctx context.Context, p vqa.Parameters) (float64, vqa.Parameters, error) {
	value, err := w.Evaluate(ctx, p)
	if err != nil {
		return 0, nil, err
	}
	grad, err := w.estimator.Estimate(ctx, w.CostFunction, p)
	if err != nil {
		return 0, nil, err
	}
	return value, grad, nil
}
