package costfn

import (
	"context"
	"errors"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/copyleftdev/QVAR/internal/quantum"
	"github.com/copyleftdev/QVAR/internal/vqa"
	"github.com/copyleftdev/QVAR/internal/vqa/ansatz"
)

// failingBackend fails every dispatched evaluation.
type failingBackend struct{ err error }

func (b failingBackend) Expectation(context.Context, *quantum.Circuit, quantum.PauliSum) (float64, error) {
	return 0, b.err
}

func (b failingBackend) Sample(context.Context, *quantum.Circuit, int) ([]uint64, error) {
	return nil, b.err
}

func singleRXCost(t *testing.T, opts ...Option) *AnsatzCostFunction {
	t.Helper()
	a, err := ansatz.NewSingleRotation(quantum.GateRX)
	require.NoError(t, err)
	z0, err := quantum.ParsePauliSum("Z0")
	require.NoError(t, err)
	return New(z0, a, quantum.NewSimulator(1), opts...)
}

func TestEvaluateExactExpectation(t *testing.T) {
	cf := singleRXCost(t)

	tests := []struct {
		theta float64
	}{
		{0}, {math.Pi / 3}, {math.Pi / 2}, {math.Pi}, {-1.1},
	}
	for _, tt := range tests {
		v, err := cf.Evaluate(context.Background(), vqa.Parameters{tt.theta})
		require.NoError(t, err)
		assert.InDelta(t, math.Cos(tt.theta), v, 1e-9)
	}
	assert.Equal(t, int64(len(tests)), cf.Evaluations())
}

func TestEvaluateDimensionMismatchNotCounted(t *testing.T) {
	cf := singleRXCost(t)

	_, err := cf.Evaluate(context.Background(), vqa.Parameters{0.1, 0.2})
	require.Error(t, err)
	assert.True(t, vqa.IsKind(err, vqa.KindDimensionMismatch))
	assert.Equal(t, int64(0), cf.Evaluations())
}

func TestEvaluateBackendFailureIsCounted(t *testing.T) {
	a, err := ansatz.NewSingleRotation(quantum.GateRX)
	require.NoError(t, err)
	z0, err := quantum.ParsePauliSum("Z0")
	require.NoError(t, err)

	boom := errors.New("device offline")
	cf := New(z0, a, failingBackend{err: boom})

	_, err = cf.Evaluate(context.Background(), vqa.Parameters{0.5})
	require.Error(t, err)
	assert.True(t, vqa.IsKind(err, vqa.KindBackendEvaluation))
	assert.ErrorIs(t, err, boom)

	// The evaluation was dispatched, so it counts.
	assert.Equal(t, int64(1), cf.Evaluations())
}

func TestFixedParameters(t *testing.T) {
	// Two-qubit, one-layer ansatz: 4 parameters, freeze the first two.
	a, err := ansatz.NewHardwareEfficient(2, 1)
	require.NoError(t, err)
	z0, err := quantum.ParsePauliSum("Z0")
	require.NoError(t, err)

	fixed := vqa.Parameters{0.3, 0.0}
	cf := New(z0, a, quantum.NewSimulator(1), WithFixedParameters(fixed))
	assert.Equal(t, 2, cf.ParameterCount())

	got, err := cf.Evaluate(context.Background(), vqa.Parameters{0.0, 0.0})
	require.NoError(t, err)

	full := New(z0, a, quantum.NewSimulator(1))
	want, err := full.Evaluate(context.Background(), vqa.Parameters{0.3, 0.0, 0.0, 0.0})
	require.NoError(t, err)
	assert.InDelta(t, want, got, 1e-9)

	// Full-length vector no longer fits the free slot.
	_, err = cf.Evaluate(context.Background(), vqa.Parameters{0, 0, 0, 0})
	assert.True(t, vqa.IsKind(err, vqa.KindDimensionMismatch))
}

func TestParameterNoiseIsSeeded(t *testing.T) {
	run := func() []float64 {
		cf := singleRXCost(t, WithParameterNoise(0.05, 42))
		out := make([]float64, 3)
		for i := range out {
			v, err := cf.Evaluate(context.Background(), vqa.Parameters{0.5})
			require.NoError(t, err)
			out[i] = v
		}
		return out
	}

	first := run()
	second := run()
	assert.Equal(t, first, second)

	// With noise, repeated evaluations at one point differ.
	assert.NotEqual(t, first[0], first[1])

	// Without noise they are identical.
	quiet := singleRXCost(t)
	a, err := quiet.Evaluate(context.Background(), vqa.Parameters{0.5})
	require.NoError(t, err)
	b, err := quiet.Evaluate(context.Background(), vqa.Parameters{0.5})
	require.NoError(t, err)
	assert.Equal(t, a, b)
}

func TestEvaluateEstimatePrecision(t *testing.T) {
	cf := singleRXCost(t)
	est, err := cf.EvaluateEstimate(context.Background(), vqa.Parameters{0.7})
	require.NoError(t, err)
	assert.InDelta(t, math.Cos(0.7), est.Value, 1e-9)
	assert.Zero(t, est.Precision)
}

// constGradient returns a fixed gradient regardless of the point.
type constGradient struct{ grad vqa.Parameters }

func (g constGradient) Estimate(context.Context, vqa.CostFunction, vqa.Parameters) (vqa.Parameters, error) {
	return g.grad.Clone(), nil
}

func TestWithGradient(t *testing.T) {
	cf := singleRXCost(t)
	gcf := WithGradient(cf, constGradient{grad: vqa.Parameters{-0.25}})

	cost, grad, err := gcf.EvaluateWithGradient(context.Background(), vqa.Parameters{0.0})
	require.NoError(t, err)
	assert.InDelta(t, 1.0, cost, 1e-9)
	assert.Equal(t, vqa.Parameters{-0.25}, grad)
	assert.Equal(t, int64(1), gcf.Evaluations())
}
