// Package vqa defines the contracts of the variational quantum algorithm
// core: the ansatz, cost function, gradient estimator, optimizer and backend
// capabilities, and the history/result records produced by a run.
package vqa

import (
	"context"

	"github.com/copyleftdev/QVAR/internal/quantum"
)

// Ansatz maps a parameter vector to an executable circuit description.
// Bind must be a pure function: identical parameters always produce an
// identical circuit.
type Ansatz interface {
	// ParameterCount returns the length of the parameter vector Bind expects.
	ParameterCount() int

	// Bind produces a circuit for the given parameters. It fails with a
	// DimensionMismatch error if the vector length is wrong.
	Bind(p Parameters) (*quantum.Circuit, error)
}

// NamedAnsatz optionally exposes a name for each parameter index, for
// diagnostics only.
type NamedAnsatz interface {
	Ansatz
	ParameterNames() []string
}

// Backend executes circuit descriptions. It is synchronous from the caller's
// point of view and fails with a reportable error rather than hanging; the
// caller bounds each call with a context deadline.
type Backend interface {
	// Expectation returns the expectation value of the observable in the
	// state prepared by the circuit.
	Expectation(ctx context.Context, c *quantum.Circuit, observable quantum.PauliSum) (float64, error)

	// Sample draws computational-basis measurement outcomes.
	Sample(ctx context.Context, c *quantum.Circuit, shots int) ([]uint64, error)
}

// ValueEstimate is a scalar estimate with an optional statistical precision.
// Precision 0 means the value is exact.
type ValueEstimate struct {
	Value     float64 `json:"value"`
	Precision float64 `json:"precision,omitempty"`
}

// Estimator turns a circuit and an observable into a value estimate using a
// backend. Implementations document the statistical properties (bias,
// variance) they inherit from the backend.
type Estimator interface {
	Estimate(ctx context.Context, b Backend, c *quantum.Circuit, observable quantum.PauliSum) (ValueEstimate, error)
}

// CostFunction is a scalar objective over a parameter vector. Evaluations
// may be expensive and stochastic. Implementations keep a monotone counter
// of dispatched evaluations whose increment is safe under concurrent calls.
type CostFunction interface {
	// Evaluate returns the cost at p. A wrong-length vector fails with a
	// DimensionMismatch error without counting an evaluation; failures after
	// dispatch count the evaluation and surface as BackendEvaluation errors.
	Evaluate(ctx context.Context, p Parameters) (float64, error)

	// Evaluations returns the number of evaluations dispatched so far.
	Evaluations() int64
}

// GradientCostFunction is a cost function with direct gradient retrieval,
// e.g. analytic gradients from a simulator.
type GradientCostFunction interface {
	CostFunction
	EvaluateWithGradient(ctx context.Context, p Parameters) (float64, Parameters, error)
}

// GradientEstimator computes a gradient vector from one or more cost
// function evaluations at shifted parameter points.
type GradientEstimator interface {
	Estimate(ctx context.Context, cf CostFunction, p Parameters) (Parameters, error)
}

// Optimizer is the generic collaborator driving parameter updates. Concrete
// algorithms are pluggable implementations, not part of the core.
type Optimizer interface {
	// ProposeNext returns the next candidate given the latest evaluated
	// point, its cost, and a gradient when the optimizer requires one
	// (nil otherwise).
	ProposeNext(current Parameters, cost float64, grad Parameters) (Parameters, error)

	// Converged reports whether the optimizer considers itself done.
	Converged() bool
}

// GradientRequirer marks optimizers that need first-order information.
type GradientRequirer interface {
	NeedsGradient() bool
}

// NeedsGradient reports whether the optimizer requires gradients.
func NeedsGradient(o Optimizer) bool {
	if gr, ok := o.(GradientRequirer); ok {
		return gr.NeedsGradient()
	}
	return false
}

// TerminationReason classifies how a run ended. Exhausting a budget is a
// normal outcome, not an error.
type TerminationReason string

const (
	ReasonConverged            TerminationReason = "converged"
	ReasonMaxIterationsReached TerminationReason = "max_iterations_reached"
	ReasonFailed               TerminationReason = "failed"
	ReasonCancelled            TerminationReason = "cancelled"
)

// HistoryEntry is one record of the append-only optimization history.
type HistoryEntry struct {
	Iteration  int        `json:"iteration"`
	Parameters Parameters `json:"parameters"`
	Cost       float64    `json:"cost"`
	GradNorm   float64    `json:"grad_norm,omitempty"`
}

// Result is the immutable final record of a run. BestCost always equals the
// minimum cost appearing in History.
type Result struct {
	BestParameters Parameters        `json:"best_parameters"`
	BestCost       float64           `json:"best_cost"`
	History        []HistoryEntry    `json:"history"`
	Reason         TerminationReason `json:"termination_reason"`
	Evaluations    int64             `json:"evaluation_count"`

	// Err is set when Reason is failed or cancelled; preserved so the
	// failing evaluation can be reproduced.
	Err error `json:"-"`
}
