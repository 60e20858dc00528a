package optimizers

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/copyleftdev/QVAR/internal/vqa"
)

func quadraticGrad(p vqa.Parameters) vqa.Parameters {
	grad := make(vqa.Parameters, len(p))
	for i, v := range p {
		grad[i] = 2 * v
	}
	return grad
}

func quadratic(p vqa.Parameters) float64 {
	sum := 0.0
	for _, v := range p {
		sum += v * v
	}
	return sum
}

func TestNewGradientDescentValidation(t *testing.T) {
	tests := []struct {
		name     string
		step     float64
		momentum float64
		wantErr  bool
	}{
		{"valid", 0.1, 0.0, false},
		{"valid with momentum", 0.1, 0.9, false},
		{"zero step", 0, 0, true},
		{"negative step", -0.1, 0, true},
		{"momentum one", 0.1, 1.0, true},
		{"negative momentum", 0.1, -0.5, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewGradientDescent(tt.step, tt.momentum, 0)
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestGradientDescentMinimizesQuadratic(t *testing.T) {
	opt, err := NewGradientDescent(0.1, 0, 1e-8)
	require.NoError(t, err)
	assert.True(t, opt.NeedsGradient())

	p := vqa.Parameters{2.0, -3.0}
	for i := 0; i < 200 && !opt.Converged(); i++ {
		next, err := opt.ProposeNext(p, quadratic(p), quadraticGrad(p))
		require.NoError(t, err)
		p = next
	}
	assert.True(t, opt.Converged())
	assert.Less(t, quadratic(p), 1e-10)
}

func TestGradientDescentMomentumAccelerates(t *testing.T) {
	plain, err := NewGradientDescent(0.01, 0, 0)
	require.NoError(t, err)
	momentum, err := NewGradientDescent(0.01, 0.9, 0)
	require.NoError(t, err)

	pPlain := vqa.Parameters{5.0}
	pMomentum := vqa.Parameters{5.0}
	for i := 0; i < 50; i++ {
		var err error
		pPlain, err = plain.ProposeNext(pPlain, quadratic(pPlain), quadraticGrad(pPlain))
		require.NoError(t, err)
		pMomentum, err = momentum.ProposeNext(pMomentum, quadratic(pMomentum), quadraticGrad(pMomentum))
		require.NoError(t, err)
	}
	assert.Less(t, quadratic(pMomentum), quadratic(pPlain))
}

func TestGradientDescentRejectsBadGradient(t *testing.T) {
	opt, err := NewGradientDescent(0.1, 0, 0)
	require.NoError(t, err)

	_, err = opt.ProposeNext(vqa.Parameters{1, 2}, 5, nil)
	assert.Error(t, err)

	_, err = opt.ProposeNext(vqa.Parameters{1, 2}, 5, vqa.Parameters{1})
	require.Error(t, err)
	assert.True(t, vqa.IsKind(err, vqa.KindDimensionMismatch))
}

func TestGradientDescentDoesNotMutateInput(t *testing.T) {
	opt, err := NewGradientDescent(0.5, 0, 0)
	require.NoError(t, err)

	p := vqa.Parameters{1.0, 1.0}
	next, err := opt.ProposeNext(p, quadratic(p), quadraticGrad(p))
	require.NoError(t, err)
	assert.Equal(t, vqa.Parameters{1.0, 1.0}, p)
	assert.NotEqual(t, p, next)
}
