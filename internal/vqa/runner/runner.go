// Package runner orchestrates a VQA optimization: it drives the optimizer
// collaborator against a cost function (and a gradient estimator when the
// optimizer is first-order), tracks the append-only history, and decides
// termination.
package runner

import (
	"context"
	"fmt"
	"math"
	"sync"
	"time"

	"github.com/copyleftdev/QVAR/internal/vqa"
)

// State of the run's lifecycle. Converged, MaxIterationsReached, Failed and
// Cancelled are terminal.
type State string

const (
	StateInitialized          State = "initialized"
	StateRunning              State = "running"
	StateConverged            State = "converged"
	StateMaxIterationsReached State = "max_iterations_reached"
	StateFailed               State = "failed"
	StateCancelled            State = "cancelled"
)

// Logger is the subset of the structured logger the runner uses.
type Logger interface {
	Debug(msg string, fields ...map[string]interface{})
	Info(msg string, fields ...map[string]interface{})
	Error(msg string, fields ...map[string]interface{})
}

type noopLogger struct{}

func (noopLogger) Debug(string, ...map[string]interface{}) {}
func (noopLogger) Info(string, ...map[string]interface{})  {}
func (noopLogger) Error(string, ...map[string]interface{}) {}

// Config bounds and tunes a run.
type Config struct {
	// MaxIterations caps the number of history entries. Required.
	MaxIterations int
	// MaxEvaluations caps total cost evaluations; zero means unbounded.
	MaxEvaluations int64
	// Tolerance is the minimum relative cost improvement that counts as
	// progress for the windowed convergence check.
	Tolerance float64
	// Window is the number of consecutive iterations without significant
	// improvement before the run is declared converged. Zero disables the
	// local check (the optimizer may still report convergence).
	Window int
	// EvalTimeout bounds each cost/gradient evaluation; zero disables it.
	EvalTimeout time.Duration
}

// Option configures optional runner collaborators.
type Option func(*Runner)

// WithGradientEstimator supplies the strategy used when the optimizer
// requires gradients and the cost function has no direct gradient support.
func WithGradientEstimator(ge vqa.GradientEstimator) Option {
	return func(r *Runner) { r.gradient = ge }
}

// WithLogger attaches a structured logger.
func WithLogger(l Logger) Option {
	return func(r *Runner) { r.logger = l }
}

// WithMetrics attaches run instrumentation.
func WithMetrics(m *vqa.Metrics) Option {
	return func(r *Runner) { r.metrics = m }
}

// Runner executes a single optimization run. A Runner is single-use: Run
// may be called once. State and History are safe to read concurrently
// while the run progresses.
type Runner struct {
	cost      vqa.CostFunction
	optimizer vqa.Optimizer
	gradient  vqa.GradientEstimator
	initial   vqa.Parameters
	cfg       Config

	logger  Logger
	metrics *vqa.Metrics

	mu      sync.RWMutex
	state   State
	history []vqa.HistoryEntry
}

// New validates the configuration and creates a runner in the Initialized
// state.
func New(cost vqa.CostFunction, optimizer vqa.Optimizer, initial vqa.Parameters, cfg Config, opts ...Option) (*Runner, error) {
	if cost == nil {
		return nil, fmt.Errorf("runner requires a cost function")
	}
	if optimizer == nil {
		return nil, fmt.Errorf("runner requires an optimizer")
	}
	if len(initial) == 0 {
		return nil, fmt.Errorf("runner requires a non-empty initial parameter vector")
	}
	if cfg.MaxIterations < 1 {
		return nil, fmt.Errorf("max iterations must be positive, got %d", cfg.MaxIterations)
	}
	r := &Runner{
		cost:      cost,
		optimizer: optimizer,
		initial:   initial.Clone(),
		cfg:       cfg,
		logger:    noopLogger{},
		state:     StateInitialized,
	}
	for _, opt := range opts {
		opt(r)
	}
	if vqa.NeedsGradient(optimizer) && r.gradient == nil {
		if _, ok := cost.(vqa.GradientCostFunction); !ok {
			return nil, fmt.Errorf("optimizer requires gradients but no gradient estimator was configured")
		}
	}
	return r, nil
}

// State returns the current lifecycle state.
func (r *Runner) State() State {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.state
}

// History returns a snapshot of the history accumulated so far.
func (r *Runner) History() []vqa.HistoryEntry {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]vqa.HistoryEntry, len(r.history))
	copy(out, r.history)
	return out
}

// Run executes the optimization until a terminal state is reached. It
// always returns a Result capturing the history accumulated up to the
// terminal state; the error is non-nil only for Failed and Cancelled.
func (r *Runner) Run(ctx context.Context) (*vqa.Result, error) {
	r.mu.Lock()
	if r.state != StateInitialized {
		r.mu.Unlock()
		return nil, fmt.Errorf("runner already ran (state %s)", r.state)
	}
	r.state = StateRunning
	r.mu.Unlock()

	r.logger.Info("run started", map[string]interface{}{
		"parameters":     len(r.initial),
		"max_iterations": r.cfg.MaxIterations,
		"tolerance":      r.cfg.Tolerance,
		"window":         r.cfg.Window,
	})

	current := r.initial.Clone()
	needsGradient := vqa.NeedsGradient(r.optimizer)

	// Iteration 0 evaluates the starting point so the optimizer has a cost
	// to react to.
	cost, grad, err := r.evaluate(ctx, current, needsGradient)
	if err != nil {
		return r.fail(err, 0)
	}
	r.append(0, current, cost, grad)

	best := current.Clone()
	bestCost := cost
	lastSignificant := cost
	stale := 0

	for iter := 1; iter < r.cfg.MaxIterations; iter++ {
		// Cancellation is honored between iterations, never mid-evaluation.
		if ctxErr := ctx.Err(); ctxErr != nil {
			return r.cancel(ctxErr, iter)
		}
		if r.cfg.MaxEvaluations > 0 && r.cost.Evaluations() >= r.cfg.MaxEvaluations {
			r.logger.Info("evaluation budget exhausted", map[string]interface{}{
				"evaluations": r.cost.Evaluations(),
			})
			return r.finish(StateMaxIterationsReached, best, bestCost), nil
		}

		next, err := r.optimizer.ProposeNext(current, cost, grad)
		if err != nil {
			return r.fail(fmt.Errorf("optimizer proposal failed: %w", err), iter)
		}

		cost, grad, err = r.evaluate(ctx, next, needsGradient)
		if err != nil {
			return r.fail(err, iter)
		}
		r.append(iter, next, cost, grad)
		r.metrics.ObserveIteration()
		current = next

		if cost < bestCost {
			bestCost = cost
			best = next.Clone()
		}

		if r.optimizer.Converged() {
			r.logger.Info("optimizer reported convergence", map[string]interface{}{
				"iteration": iter,
				"best_cost": bestCost,
			})
			return r.finish(StateConverged, best, bestCost), nil
		}

		if r.cfg.Window > 0 {
			improvement := relativeImprovement(lastSignificant, cost)
			if improvement >= r.cfg.Tolerance && improvement > 0 {
				lastSignificant = cost
				stale = 0
			} else {
				stale++
				if stale >= r.cfg.Window {
					r.logger.Info("converged within tolerance window", map[string]interface{}{
						"iteration": iter,
						"window":    r.cfg.Window,
						"best_cost": bestCost,
					})
					return r.finish(StateConverged, best, bestCost), nil
				}
			}
		}
	}

	return r.finish(StateMaxIterationsReached, best, bestCost), nil
}

// evaluate runs one cost evaluation (and gradient when requested) under the
// configured per-evaluation timeout.
func (r *Runner) evaluate(ctx context.Context, p vqa.Parameters, needsGradient bool) (float64, vqa.Parameters, error) {
	if r.cfg.EvalTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, r.cfg.EvalTimeout)
		defer cancel()
	}

	start := time.Now()
	defer func() { r.metrics.ObserveEvaluation(time.Since(start)) }()

	if needsGradient {
		if gcf, ok := r.cost.(vqa.GradientCostFunction); ok {
			return gcf.EvaluateWithGradient(ctx, p)
		}
		cost, err := r.cost.Evaluate(ctx, p)
		if err != nil {
			return 0, nil, err
		}
		grad, err := r.gradient.Estimate(ctx, r.cost, p)
		if err != nil {
			return 0, nil, err
		}
		return cost, grad, nil
	}

	cost, err := r.cost.Evaluate(ctx, p)
	return cost, nil, err
}

func (r *Runner) append(iteration int, p vqa.Parameters, cost float64, grad vqa.Parameters) {
	entry := vqa.HistoryEntry{
		Iteration:  iteration,
		Parameters: p.Clone(),
		Cost:       cost,
	}
	if grad != nil {
		entry.GradNorm = grad.Norm()
	}
	r.mu.Lock()
	r.history = append(r.history, entry)
	r.mu.Unlock()

	r.logger.Debug("iteration recorded", map[string]interface{}{
		"iteration": iteration,
		"cost":      cost,
	})
}

// closeOptimizer releases optimizers that hold background resources, such
// as the Nelder-Mead adapter's minimization goroutine. Called on every
// terminal state; the runner is single-use so the optimizer is never
// consulted again.
func (r *Runner) closeOptimizer() {
	if c, ok := r.optimizer.(interface{ Close() }); ok {
		c.Close()
	}
}

func (r *Runner) finish(state State, best vqa.Parameters, bestCost float64) *vqa.Result {
	r.closeOptimizer()

	r.mu.Lock()
	r.state = state
	history := make([]vqa.HistoryEntry, len(r.history))
	copy(history, r.history)
	r.mu.Unlock()

	reason := reasonOf(state)
	r.metrics.ObserveRun(reason)
	return &vqa.Result{
		BestParameters: best.Clone(),
		BestCost:       bestCost,
		History:        history,
		Reason:         reason,
		Evaluations:    r.cost.Evaluations(),
	}
}

func (r *Runner) fail(err error, iteration int) (*vqa.Result, error) {
	var coreErr *vqa.Error
	if e, ok := err.(*vqa.Error); ok {
		coreErr = e.WithIteration(iteration)
	} else {
		coreErr = &vqa.Error{Kind: vqa.KindUnknown, Op: "runner.Run", Message: "evaluation failed", Iteration: iteration, Err: err}
	}
	r.logger.Error("run failed", map[string]interface{}{
		"iteration": iteration,
		"error":     coreErr.Error(),
	})

	result := r.terminal(StateFailed, coreErr)
	return result, coreErr
}

func (r *Runner) cancel(ctxErr error, iteration int) (*vqa.Result, error) {
	err := vqa.WrapCancelled("runner.Run", ctxErr).WithIteration(iteration)
	r.logger.Info("run cancelled", map[string]interface{}{
		"iteration": iteration,
	})
	result := r.terminal(StateCancelled, err)
	return result, err
}

// terminal builds the result for failed/cancelled runs from whatever
// history exists, preserving the error.
func (r *Runner) terminal(state State, err *vqa.Error) *vqa.Result {
	r.closeOptimizer()

	r.mu.Lock()
	r.state = state
	history := make([]vqa.HistoryEntry, len(r.history))
	copy(history, r.history)
	r.mu.Unlock()

	result := &vqa.Result{
		History:     history,
		Reason:      reasonOf(state),
		Evaluations: r.cost.Evaluations(),
		Err:         err,
	}
	result.BestCost = math.Inf(1)
	for _, h := range history {
		if h.Cost < result.BestCost {
			result.BestCost = h.Cost
			result.BestParameters = h.Parameters.Clone()
		}
	}
	r.metrics.ObserveRun(result.Reason)
	return result
}

func reasonOf(state State) vqa.TerminationReason {
	switch state {
	case StateConverged:
		return vqa.ReasonConverged
	case StateMaxIterationsReached:
		return vqa.ReasonMaxIterationsReached
	case StateCancelled:
		return vqa.ReasonCancelled
	default:
		return vqa.ReasonFailed
	}
}

// relativeImprovement measures progress from the last significant cost,
// falling back to the absolute difference near zero.
func relativeImprovement(last, current float64) float64 {
	diff := last - current
	if math.Abs(last) < 1e-12 {
		return diff
	}
	return diff / math.Abs(last)
}
