package vqa

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestParametersClone(t *testing.T) {
	p := Parameters{1, 2, 3}
	q := p.Clone()
	q[0] = 99
	assert.Equal(t, Parameters{1, 2, 3}, p)
	assert.Equal(t, Parameters{99, 2, 3}, q)
}

func TestParametersShifted(t *testing.T) {
	p := Parameters{0.1, 0.2}
	shifted := p.Shifted(1, math.Pi/2)
	assert.Equal(t, Parameters{0.1, 0.2}, p)
	assert.InDelta(t, 0.2+math.Pi/2, shifted[1], 1e-12)
	assert.InDelta(t, 0.1, shifted[0], 1e-12)
}

func TestParametersNorm(t *testing.T) {
	assert.InDelta(t, 5.0, Parameters{3, 4}.Norm(), 1e-12)
	assert.Zero(t, Parameters{}.Norm())
	assert.Zero(t, Parameters(nil).Norm())
}

func TestParametersEqualWithin(t *testing.T) {
	a := Parameters{1.0, 2.0}
	assert.True(t, a.EqualWithin(Parameters{1.0 + 1e-9, 2.0}, 1e-6))
	assert.False(t, a.EqualWithin(Parameters{1.1, 2.0}, 1e-6))
	assert.False(t, a.EqualWithin(Parameters{1.0}, 1e-6))
}

func TestCombine(t *testing.T) {
	fixed := Parameters{1, 2}
	free := Parameters{3, 4, 5}
	assert.Equal(t, Parameters{1, 2, 3, 4, 5}, Combine(fixed, free))
	assert.Equal(t, Parameters{3, 4, 5}, Combine(nil, free))
	assert.Equal(t, Parameters{1, 2}, Combine(fixed, nil))
}
