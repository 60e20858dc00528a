// Package optimizers provides reference implementations of the generic
// optimizer capability. They are pluggable collaborators, not part of the
// core contract; any object satisfying vqa.Optimizer works with the runner.
package optimizers

import (
	"fmt"

	"github.com/copyleftdev/QVAR/internal/vqa"
)

// GradientDescent is plain first-order descent with optional momentum.
type GradientDescent struct {
	// Step is the learning rate.
	Step float64
	// Momentum in [0, 1); zero disables the velocity term.
	Momentum float64
	// GradTol declares convergence once the gradient norm drops below it;
	// zero disables optimizer-side convergence.
	GradTol float64

	velocity     vqa.Parameters
	lastGradNorm float64
	seenGradient bool
}

// NewGradientDescent creates the optimizer.
func NewGradientDescent(step, momentum, gradTol float64) (*GradientDescent, error) {
	if step <= 0 {
		return nil, fmt.Errorf("step must be positive, got %v", step)
	}
	if momentum < 0 || momentum >= 1 {
		return nil, fmt.Errorf("momentum must be in [0, 1), got %v", momentum)
	}
	return &GradientDescent{Step: step, Momentum: momentum, GradTol: gradTol}, nil
}

// NeedsGradient reports that this optimizer requires first-order information.
func (g *GradientDescent) NeedsGradient() bool { return true }

// ProposeNext steps along the negative gradient.
func (g *GradientDescent) ProposeNext(current vqa.Parameters, cost float64, grad vqa.Parameters) (vqa.Parameters, error) {
	if grad == nil {
		return nil, fmt.Errorf("gradient descent requires a gradient")
	}
	if len(grad) != len(current) {
		return nil, vqa.NewDimensionMismatch("optimizers.GradientDescent", len(current), len(grad))
	}

	if g.velocity == nil {
		g.velocity = make(vqa.Parameters, len(current))
	}
	next := current.Clone()
	for i := range next {
		g.velocity[i] = g.Momentum*g.velocity[i] - g.Step*grad[i]
		next[i] += g.velocity[i]
	}

	g.lastGradNorm = grad.Norm()
	g.seenGradient = true
	return next, nil
}

// Converged reports whether the last gradient norm fell below GradTol.
func (g *GradientDescent) Converged() bool {
	return g.seenGradient && g.GradTol > 0 && g.lastGradNorm < g.GradTol
}
