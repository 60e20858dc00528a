package quantum

import (
	"context"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestExpectationSingleQubit(t *testing.T) {
	sim := NewSimulator(1)
	z0, err := ParsePauliSum("Z0")
	require.NoError(t, err)
	x0, err := ParsePauliSum("X0")
	require.NoError(t, err)

	tests := []struct {
		name       string
		build      func() *Circuit
		observable PauliSum
		want       float64
	}{
		{
			name:       "ground state Z",
			build:      func() *Circuit { return NewCircuit(1) },
			observable: z0,
			want:       1.0,
		},
		{
			name:       "X flips Z expectation",
			build:      func() *Circuit { return NewCircuit(1).X(0) },
			observable: z0,
			want:       -1.0,
		},
		{
			name:       "Hadamard zeroes Z",
			build:      func() *Circuit { return NewCircuit(1).H(0) },
			observable: z0,
			want:       0.0,
		},
		{
			name:       "Hadamard maximizes X",
			build:      func() *Circuit { return NewCircuit(1).H(0) },
			observable: x0,
			want:       1.0,
		},
		{
			name:       "RX rotates Z to cos theta",
			build:      func() *Circuit { return NewCircuit(1).RX(0, 0.7) },
			observable: z0,
			want:       math.Cos(0.7),
		},
		{
			name:       "RY rotates Z to cos theta",
			build:      func() *Circuit { return NewCircuit(1).RY(0, 1.3) },
			observable: z0,
			want:       math.Cos(1.3),
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			v, err := sim.Expectation(context.Background(), tt.build(), tt.observable)
			require.NoError(t, err)
			assert.InDelta(t, tt.want, v, 1e-9)
		})
	}
}

func TestExpectationEntangled(t *testing.T) {
	sim := NewSimulator(1)

	// Bell state: <Z0*Z1> = 1, <Z0> = 0.
	bell := NewCircuit(2).H(0).CNOT(0, 1)

	zz, err := ParsePauliSum("Z0*Z1")
	require.NoError(t, err)
	v, err := sim.Expectation(context.Background(), bell, zz)
	require.NoError(t, err)
	assert.InDelta(t, 1.0, v, 1e-9)

	z0, err := ParsePauliSum("Z0")
	require.NoError(t, err)
	v, err = sim.Expectation(context.Background(), bell, z0)
	require.NoError(t, err)
	assert.InDelta(t, 0.0, v, 1e-9)

	// XX stabilizes the Bell state too.
	xx, err := ParsePauliSum("X0*X1")
	require.NoError(t, err)
	v, err = sim.Expectation(context.Background(), bell, xx)
	require.NoError(t, err)
	assert.InDelta(t, 1.0, v, 1e-9)
}

func TestExpectationConstantTerm(t *testing.T) {
	sim := NewSimulator(1)
	obs, err := ParsePauliSum("Z0 + 2.5")
	require.NoError(t, err)

	v, err := sim.Expectation(context.Background(), NewCircuit(1), obs)
	require.NoError(t, err)
	assert.InDelta(t, 3.5, v, 1e-9)
}

func TestExpectationObservableTooWide(t *testing.T) {
	sim := NewSimulator(1)
	obs, err := ParsePauliSum("Z5")
	require.NoError(t, err)
	_, err = sim.Expectation(context.Background(), NewCircuit(1), obs)
	assert.Error(t, err)
}

func TestSampleDeterministicStates(t *testing.T) {
	sim := NewSimulator(7)

	// |0> always samples 0.
	outcomes, err := sim.Sample(context.Background(), NewCircuit(1), 100)
	require.NoError(t, err)
	for _, o := range outcomes {
		assert.Equal(t, uint64(0), o)
	}

	// X|0> always samples 1.
	outcomes, err = sim.Sample(context.Background(), NewCircuit(1).X(0), 100)
	require.NoError(t, err)
	for _, o := range outcomes {
		assert.Equal(t, uint64(1), o)
	}
}

func TestSampleUniformSuperposition(t *testing.T) {
	sim := NewSimulator(42)
	outcomes, err := sim.Sample(context.Background(), NewCircuit(1).H(0), 4000)
	require.NoError(t, err)

	ones := 0
	for _, o := range outcomes {
		if o == 1 {
			ones++
		}
	}
	// Roughly half within a loose statistical margin.
	frac := float64(ones) / float64(len(outcomes))
	assert.InDelta(t, 0.5, frac, 0.05)
}

func TestSampleSeededReproducibility(t *testing.T) {
	c := NewCircuit(2).H(0).H(1)
	a, err := NewSimulator(99).Sample(context.Background(), c, 50)
	require.NoError(t, err)
	b, err := NewSimulator(99).Sample(context.Background(), c, 50)
	require.NoError(t, err)
	assert.Equal(t, a, b)
}

func TestSampleInvalidShots(t *testing.T) {
	sim := NewSimulator(1)
	_, err := sim.Sample(context.Background(), NewCircuit(1), 0)
	assert.Error(t, err)
}

func TestSimulatorRejectsWideCircuits(t *testing.T) {
	sim := NewSimulator(1)
	z0, err := ParsePauliSum("Z0")
	require.NoError(t, err)
	_, err = sim.Expectation(context.Background(), NewCircuit(MaxSimulatorQubits+1), z0)
	assert.Error(t, err)
}

func TestSimulatorHonorsContext(t *testing.T) {
	sim := NewSimulator(1)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	z0, err := ParsePauliSum("Z0")
	require.NoError(t, err)
	_, err = sim.Expectation(ctx, NewCircuit(1), z0)
	assert.ErrorIs(t, err, context.Canceled)
}
