package ansatz

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/copyleftdev/QVAR/internal/quantum"
	"github.com/copyleftdev/QVAR/internal/vqa"
)

func TestHardwareEfficientShape(t *testing.T) {
	tests := []struct {
		name    string
		qubits  int
		layers  int
		wantN   int
		wantErr bool
	}{
		{"single qubit single layer", 1, 1, 2, false},
		{"three qubits two layers", 3, 2, 12, false},
		{"zero qubits", 0, 1, 0, true},
		{"zero layers", 2, 0, 0, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			a, err := NewHardwareEfficient(tt.qubits, tt.layers)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.wantN, a.ParameterCount())
			assert.Len(t, a.ParameterNames(), tt.wantN)
		})
	}
}

func TestHardwareEfficientBindIsPure(t *testing.T) {
	a, err := NewHardwareEfficient(2, 2)
	require.NoError(t, err)

	p := make(vqa.Parameters, a.ParameterCount())
	for i := range p {
		p[i] = float64(i) * 0.1
	}

	first, err := a.Bind(p)
	require.NoError(t, err)
	second, err := a.Bind(p)
	require.NoError(t, err)
	assert.True(t, first.Equal(second))

	// Mutating a bound circuit must not leak into later bindings.
	first.X(0)
	third, err := a.Bind(p)
	require.NoError(t, err)
	assert.True(t, second.Equal(third))
	assert.False(t, first.Equal(third))
}

func TestHardwareEfficientBindDimensionMismatch(t *testing.T) {
	a, err := NewHardwareEfficient(2, 1)
	require.NoError(t, err)

	_, err = a.Bind(vqa.Parameters{0.1})
	require.Error(t, err)
	assert.True(t, vqa.IsKind(err, vqa.KindDimensionMismatch))
}

func TestHardwareEfficientEntanglingLadder(t *testing.T) {
	a, err := NewHardwareEfficient(3, 1)
	require.NoError(t, err)

	c, err := a.Bind(make(vqa.Parameters, a.ParameterCount()))
	require.NoError(t, err)

	cnots := 0
	for _, g := range c.Gates {
		if g.Kind == quantum.GateCNOT {
			cnots++
		}
	}
	assert.Equal(t, 2, cnots)
	assert.NoError(t, c.Validate())
}

func TestSingleRotation(t *testing.T) {
	a, err := NewSingleRotation(quantum.GateRX)
	require.NoError(t, err)
	assert.Equal(t, 1, a.ParameterCount())

	c, err := a.Bind(vqa.Parameters{0.4})
	require.NoError(t, err)
	require.Len(t, c.Gates, 1)
	assert.Equal(t, quantum.GateRX, c.Gates[0].Kind)
	assert.InDelta(t, 0.4, c.Gates[0].Theta, 1e-12)

	_, err = a.Bind(vqa.Parameters{0.1, 0.2})
	assert.True(t, vqa.IsKind(err, vqa.KindDimensionMismatch))

	_, err = NewSingleRotation(quantum.GateH)
	assert.Error(t, err)
}

func TestQAOAValidation(t *testing.T) {
	ising, err := quantum.ParsePauliSum("Z0*Z1 + Z1*Z2")
	require.NoError(t, err)
	mixed, err := quantum.ParsePauliSum("Z0*Z1 + X0")
	require.NoError(t, err)

	_, err = NewQAOA(ising, 0)
	assert.Error(t, err)

	_, err = NewQAOA(mixed, 1)
	assert.Error(t, err)

	a, err := NewQAOA(ising, 2)
	require.NoError(t, err)
	assert.Equal(t, 4, a.ParameterCount())
	assert.Equal(t, 3, a.Qubits())
}

func TestQAOABindStructure(t *testing.T) {
	h, err := quantum.ParsePauliSum("Z0*Z1 - 0.5*Z0")
	require.NoError(t, err)
	a, err := NewQAOA(h, 1)
	require.NoError(t, err)

	c, err := a.Bind(vqa.Parameters{0.3, 0.7})
	require.NoError(t, err)
	require.NoError(t, c.Validate())

	// H on every qubit, then the cost unitary (CNOT ladder + RZ per term),
	// then the mixer RX on every qubit.
	var kinds []quantum.GateKind
	for _, g := range c.Gates {
		kinds = append(kinds, g.Kind)
	}
	assert.Equal(t, quantum.GateH, kinds[0])
	assert.Equal(t, quantum.GateH, kinds[1])
	assert.Equal(t, quantum.GateRX, kinds[len(kinds)-1])
	assert.Equal(t, quantum.GateRX, kinds[len(kinds)-2])

	rzAngles := []float64{}
	for _, g := range c.Gates {
		if g.Kind == quantum.GateRZ {
			rzAngles = append(rzAngles, g.Theta)
		}
	}
	// 2*gamma*coeff per Ising term.
	require.Len(t, rzAngles, 2)
	assert.InDelta(t, 2*0.3*1.0, rzAngles[0], 1e-12)
	assert.InDelta(t, 2*0.3*(-0.5), rzAngles[1], 1e-12)
}

func TestQAOAWithHamiltonian(t *testing.T) {
	h, err := quantum.ParsePauliSum("Z0*Z1 + Z1*Z2")
	require.NoError(t, err)
	a, err := NewQAOA(h, 2)
	require.NoError(t, err)

	reduced, err := quantum.ParsePauliSum("Z0*Z1")
	require.NoError(t, err)
	b, err := a.WithHamiltonian(reduced)
	require.NoError(t, err)
	assert.Equal(t, a.ParameterCount(), b.ParameterCount())
	assert.Equal(t, 2, b.Qubits())
}

func TestQAOABindDimensionMismatch(t *testing.T) {
	h, err := quantum.ParsePauliSum("Z0*Z1")
	require.NoError(t, err)
	a, err := NewQAOA(h, 1)
	require.NoError(t, err)

	_, err = a.Bind(vqa.Parameters{0.1})
	assert.True(t, vqa.IsKind(err, vqa.KindDimensionMismatch))
}
