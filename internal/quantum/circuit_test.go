package quantum

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCircuitValidate(t *testing.T) {
	tests := []struct {
		name    string
		build   func() *Circuit
		wantErr string
	}{
		{
			name:  "valid circuit",
			build: func() *Circuit { return NewCircuit(2).H(0).CNOT(0, 1).RZ(1, 0.5) },
		},
		{
			name:    "no qubits",
			build:   func() *Circuit { return NewCircuit(0) },
			wantErr: "at least one qubit",
		},
		{
			name:    "target out of range",
			build:   func() *Circuit { return NewCircuit(1).X(3) },
			wantErr: "out of range",
		},
		{
			name:    "cnot control out of range",
			build:   func() *Circuit { return NewCircuit(2).CNOT(5, 0) },
			wantErr: "out of range",
		},
		{
			name:    "cnot control equals target",
			build:   func() *Circuit { return NewCircuit(2).CNOT(1, 1) },
			wantErr: "control equals target",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.build().Validate()
			if tt.wantErr == "" {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestCircuitCloneIsIndependent(t *testing.T) {
	original := NewCircuit(2).H(0).CNOT(0, 1)
	clone := original.Clone()
	require.True(t, original.Equal(clone))

	clone.RZ(1, 0.25)
	assert.False(t, original.Equal(clone))
	assert.Len(t, original.Gates, 2)
}

func TestCircuitEqual(t *testing.T) {
	a := NewCircuit(1).RX(0, 0.5)
	b := NewCircuit(1).RX(0, 0.5)
	c := NewCircuit(1).RX(0, 0.6)

	assert.True(t, a.Equal(b))
	assert.False(t, a.Equal(c))
	assert.False(t, a.Equal(NewCircuit(2).RX(0, 0.5)))
}
