// Package gradients implements pluggable gradient estimation strategies
// over a cost function: the parameter-shift rule and finite differences.
// Shifted evaluations are independent and may run concurrently under a
// bounded worker limit; only the cost function's atomic evaluation counter
// is shared between them.
package gradients

import (
	"context"
	"math"

	"golang.org/x/sync/errgroup"

	"github.com/copyleftdev/QVAR/internal/vqa"
)

// DefaultShift is the standard parameter-shift value for rotation gates.
const DefaultShift = math.Pi / 2

// parameterCounter is implemented by cost functions that know their
// expected vector length, allowing the contract check before any
// evaluation is launched.
type parameterCounter interface {
	ParameterCount() int
}

func checkDimension(op string, cf vqa.CostFunction, p vqa.Parameters) error {
	if pc, ok := cf.(parameterCounter); ok {
		if want := pc.ParameterCount(); want != len(p) {
			return vqa.NewDimensionMismatch(op, want, len(p))
		}
	}
	return nil
}

// ParameterShift estimates gradients with the exact shift rule for
// rotation-gate circuits: partial_i = (f(p + s*e_i) - f(p - s*e_i)) /
// (2 sin s). Requires exactly 2*len(p) evaluations.
type ParameterShift struct {
	// Shift is the shift s; zero means DefaultShift.
	Shift float64
	// Concurrency bounds simultaneous evaluations; values below 1 mean
	// sequential execution.
	Concurrency int
}

// Estimate computes the full gradient vector at p.
func (e ParameterShift) Estimate(ctx context.Context, cf vqa.CostFunction, p vqa.Parameters) (vqa.Parameters, error) {
	if err := checkDimension("gradients.ParameterShift", cf, p); err != nil {
		return nil, err
	}
	shift := e.Shift
	if shift == 0 {
		shift = DefaultShift
	}
	scale := 2 * math.Sin(shift)

	grad := make(vqa.Parameters, len(p))
	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(limit(e.Concurrency))
	for i := range p {
		i := i
		g.Go(func() error {
			plus, err := cf.Evaluate(ctx, p.Shifted(i, shift))
			if err != nil {
				return err
			}
			minus, err := cf.Evaluate(ctx, p.Shifted(i, -shift))
			if err != nil {
				return err
			}
			grad[i] = (plus - minus) / scale
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return grad, nil
}

// FiniteDifference estimates gradients numerically. Central differences use
// 2*len(p) evaluations; forward differences use len(p)+1. Inexact but
// applicable to ansaetze without shift-rule-compatible gates.
type FiniteDifference struct {
	// Step is the difference step; zero means 1e-6.
	Step float64
	// Forward selects the forward formula instead of central differences.
	Forward bool
	// Concurrency bounds simultaneous evaluations; values below 1 mean
	// sequential execution.
	Concurrency int
}

// Estimate computes the full gradient vector at p.
func (e FiniteDifference) Estimate(ctx context.Context, cf vqa.CostFunction, p vqa.Parameters) (vqa.Parameters, error) {
	if err := checkDimension("gradients.FiniteDifference", cf, p); err != nil {
		return nil, err
	}
	step := e.Step
	if step == 0 {
		step = 1e-6
	}

	base := 0.0
	if e.Forward {
		var err error
		base, err = cf.Evaluate(ctx, p)
		if err != nil {
			return nil, err
		}
	}

	grad := make(vqa.Parameters, len(p))
	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(limit(e.Concurrency))
	for i := range p {
		i := i
		g.Go(func() error {
			plus, err := cf.Evaluate(ctx, p.Shifted(i, step))
			if err != nil {
				return err
			}
			if e.Forward {
				grad[i] = (plus - base) / step
				return nil
			}
			minus, err := cf.Evaluate(ctx, p.Shifted(i, -step))
			if err != nil {
				return err
			}
			grad[i] = (plus - minus) / (2 * step)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return grad, nil
}

func limit(concurrency int) int {
	if concurrency < 1 {
		return 1
	}
	return concurrency
}
