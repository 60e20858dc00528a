// Package estimators provides expectation-value estimation strategies that
// sit between a cost function and its backend: exact expectation, shot
// sampling, and CVaR aggregation over sampled energies.
package estimators

import (
	"context"
	"fmt"
	"math"
	"sort"

	"gonum.org/v1/gonum/stat"

	"github.com/copyleftdev/QVAR/internal/quantum"
	"github.com/copyleftdev/QVAR/internal/vqa"
)

// Exact uses the backend's exact expectation capability. Deterministic and
// unbiased with zero variance; only meaningful on simulation backends.
type Exact struct{}

// Estimate returns the exact expectation value.
func (Exact) Estimate(ctx context.Context, b vqa.Backend, c *quantum.Circuit, observable quantum.PauliSum) (vqa.ValueEstimate, error) {
	v, err := b.Expectation(ctx, c, observable)
	if err != nil {
		return vqa.ValueEstimate{}, err
	}
	return vqa.ValueEstimate{Value: v}, nil
}

// Sampling estimates the expectation of a Z-diagonal observable as the mean
// energy of sampled bitstrings. Unbiased; the reported precision is the
// standard error of the mean, so it shrinks as 1/sqrt(shots).
type Sampling struct {
	Shots int
}

// Estimate draws shots and averages the observable's energies.
func (s Sampling) Estimate(ctx context.Context, b vqa.Backend, c *quantum.Circuit, observable quantum.PauliSum) (vqa.ValueEstimate, error) {
	energies, err := sampledEnergies(ctx, b, c, observable, s.Shots)
	if err != nil {
		return vqa.ValueEstimate{}, err
	}
	mean, variance := stat.MeanVariance(energies, nil)
	precision := 0.0
	if len(energies) > 1 {
		precision = math.Sqrt(variance / float64(len(energies)))
	}
	return vqa.ValueEstimate{Value: mean, Precision: precision}, nil
}

// CVaR estimates the conditional value at risk of the sampled energy
// distribution: the mean of the lowest ceil(alpha*shots) energies. Alpha in
// (0, 1]; alpha = 1 recovers the plain sampled mean. A biased estimator by
// construction, favored for combinatorial-optimization cost landscapes.
type CVaR struct {
	Alpha float64
	Shots int
}

// Estimate draws shots and averages the best alpha-tail of the energies.
func (c CVaR) Estimate(ctx context.Context, b vqa.Backend, circ *quantum.Circuit, observable quantum.PauliSum) (vqa.ValueEstimate, error) {
	if c.Alpha <= 0 || c.Alpha > 1 {
		return vqa.ValueEstimate{}, fmt.Errorf("cvar alpha must be in (0, 1], got %v", c.Alpha)
	}
	energies, err := sampledEnergies(ctx, b, circ, observable, c.Shots)
	if err != nil {
		return vqa.ValueEstimate{}, err
	}
	sort.Float64s(energies)
	k := int(math.Ceil(c.Alpha * float64(len(energies))))
	if k < 1 {
		k = 1
	}
	tail := energies[:k]
	mean, variance := stat.MeanVariance(tail, nil)
	precision := 0.0
	if len(tail) > 1 {
		precision = math.Sqrt(variance / float64(len(tail)))
	}
	return vqa.ValueEstimate{Value: mean, Precision: precision}, nil
}

// sampledEnergies draws measurement outcomes and maps each to its energy
// under a Z-diagonal observable.
func sampledEnergies(ctx context.Context, b vqa.Backend, c *quantum.Circuit, observable quantum.PauliSum, shots int) ([]float64, error) {
	if !observable.IsIsing() {
		return nil, fmt.Errorf("sampling estimation requires a Z-diagonal observable, got %q", observable.String())
	}
	if shots < 1 {
		return nil, fmt.Errorf("shots must be positive, got %d", shots)
	}
	outcomes, err := b.Sample(ctx, c, shots)
	if err != nil {
		return nil, err
	}
	energies := make([]float64, len(outcomes))
	for i, bits := range outcomes {
		energies[i] = observable.EnergyOf(bits)
	}
	return energies, nil
}
