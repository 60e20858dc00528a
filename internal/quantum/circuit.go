package quantum

import "fmt"

// GateKind identifies a gate in a circuit description.
type GateKind string

const (
	GateRX   GateKind = "rx"
	GateRY   GateKind = "ry"
	GateRZ   GateKind = "rz"
	GateH    GateKind = "h"
	GateX    GateKind = "x"
	GateCNOT GateKind = "cnot"
)

// Gate is a single operation in a circuit description. Control is only
// meaningful for CNOT; Theta only for rotation gates.
type Gate struct {
	Kind    GateKind `json:"kind"`
	Target  int      `json:"target"`
	Control int      `json:"control,omitempty"`
	Theta   float64  `json:"theta,omitempty"`
}

// Circuit is an executable circuit description: a fixed qubit count and an
// ordered gate list. Circuits are plain values; binding an ansatz produces a
// fresh circuit each time.
type Circuit struct {
	Qubits int    `json:"qubits"`
	Gates  []Gate `json:"gates"`
}

// NewCircuit creates an empty circuit over the given number of qubits.
func NewCircuit(qubits int) *Circuit {
	return &Circuit{Qubits: qubits}
}

// RX appends an X-rotation by theta on the target qubit.
func (c *Circuit) RX(target int, theta float64) *Circuit {
	c.Gates = append(c.Gates, Gate{Kind: GateRX, Target: target, Theta: theta})
	return c
}

// RY appends a Y-rotation by theta on the target qubit.
func (c *Circuit) RY(target int, theta float64) *Circuit {
	c.Gates = append(c.Gates, Gate{Kind: GateRY, Target: target, Theta: theta})
	return c
}

// RZ appends a Z-rotation by theta on the target qubit.
func (c *Circuit) RZ(target int, theta float64) *Circuit {
	c.Gates = append(c.Gates, Gate{Kind: GateRZ, Target: target, Theta: theta})
	return c
}

// H appends a Hadamard on the target qubit.
func (c *Circuit) H(target int) *Circuit {
	c.Gates = append(c.Gates, Gate{Kind: GateH, Target: target})
	return c
}

// X appends a Pauli-X on the target qubit.
func (c *Circuit) X(target int) *Circuit {
	c.Gates = append(c.Gates, Gate{Kind: GateX, Target: target})
	return c
}

// CNOT appends a controlled-X with the given control and target qubits.
func (c *Circuit) CNOT(control, target int) *Circuit {
	c.Gates = append(c.Gates, Gate{Kind: GateCNOT, Target: target, Control: control})
	return c
}

// Clone returns a deep copy of the circuit.
func (c *Circuit) Clone() *Circuit {
	out := &Circuit{Qubits: c.Qubits, Gates: make([]Gate, len(c.Gates))}
	copy(out.Gates, c.Gates)
	return out
}

// Equal reports structural equality of two circuit descriptions.
func (c *Circuit) Equal(o *Circuit) bool {
	if c == nil || o == nil {
		return c == o
	}
	if c.Qubits != o.Qubits || len(c.Gates) != len(o.Gates) {
		return false
	}
	for i := range c.Gates {
		if c.Gates[i] != o.Gates[i] {
			return false
		}
	}
	return true
}

// Validate checks that every gate addresses qubits inside the register.
func (c *Circuit) Validate() error {
	if c == nil {
		return fmt.Errorf("nil circuit")
	}
	if c.Qubits <= 0 {
		return fmt.Errorf("circuit must have at least one qubit, got %d", c.Qubits)
	}
	for i, g := range c.Gates {
		if g.Target < 0 || g.Target >= c.Qubits {
			return fmt.Errorf("gate %d (%s): target qubit %d out of range [0,%d)", i, g.Kind, g.Target, c.Qubits)
		}
		if g.Kind == GateCNOT {
			if g.Control < 0 || g.Control >= c.Qubits {
				return fmt.Errorf("gate %d (cnot): control qubit %d out of range [0,%d)", i, g.Control, c.Qubits)
			}
			if g.Control == g.Target {
				return fmt.Errorf("gate %d (cnot): control equals target (%d)", i, g.Target)
			}
		}
	}
	return nil
}
