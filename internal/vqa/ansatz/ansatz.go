// Package ansatz provides parameterized circuit templates. Binding an
// ansatz to a parameter vector is deterministic and never mutates the
// ansatz itself.
package ansatz

import (
	"fmt"

	"github.com/copyleftdev/QVAR/internal/quantum"
	"github.com/copyleftdev/QVAR/internal/vqa"
)

// HardwareEfficient is a layered ansatz of RY and RZ rotations on every
// qubit followed by a CNOT entangling ladder between layers. It uses
// 2*qubits parameters per layer.
type HardwareEfficient struct {
	qubits int
	layers int
}

// NewHardwareEfficient creates the ansatz, validating its shape.
func NewHardwareEfficient(qubits, layers int) (*HardwareEfficient, error) {
	if qubits < 1 {
		return nil, fmt.Errorf("ansatz needs at least one qubit, got %d", qubits)
	}
	if layers < 1 {
		return nil, fmt.Errorf("ansatz needs at least one layer, got %d", layers)
	}
	return &HardwareEfficient{qubits: qubits, layers: layers}, nil
}

// ParameterCount returns 2 * qubits * layers.
func (a *HardwareEfficient) ParameterCount() int {
	return 2 * a.qubits * a.layers
}

// Bind produces the circuit for the given parameters.
func (a *HardwareEfficient) Bind(p vqa.Parameters) (*quantum.Circuit, error) {
	if len(p) != a.ParameterCount() {
		return nil, vqa.NewDimensionMismatch("ansatz.Bind", a.ParameterCount(), len(p))
	}
	c := quantum.NewCircuit(a.qubits)
	idx := 0
	for layer := 0; layer < a.layers; layer++ {
		for q := 0; q < a.qubits; q++ {
			c.RY(q, p[idx])
			c.RZ(q, p[idx+1])
			idx += 2
		}
		for q := 0; q+1 < a.qubits; q++ {
			c.CNOT(q, q+1)
		}
	}
	return c, nil
}

// ParameterNames maps each index to a diagnostic name.
func (a *HardwareEfficient) ParameterNames() []string {
	names := make([]string, 0, a.ParameterCount())
	for layer := 0; layer < a.layers; layer++ {
		for q := 0; q < a.qubits; q++ {
			names = append(names,
				fmt.Sprintf("l%d.q%d.ry", layer, q),
				fmt.Sprintf("l%d.q%d.rz", layer, q))
		}
	}
	return names
}

// SingleRotation is a one-qubit, one-parameter rotation ansatz, mainly
// useful for validating gradient estimators against analytic derivatives.
type SingleRotation struct {
	Axis quantum.GateKind
}

// NewSingleRotation creates the ansatz for the given rotation axis.
func NewSingleRotation(axis quantum.GateKind) (*SingleRotation, error) {
	switch axis {
	case quantum.GateRX, quantum.GateRY, quantum.GateRZ:
		return &SingleRotation{Axis: axis}, nil
	default:
		return nil, fmt.Errorf("axis must be a rotation gate, got %q", axis)
	}
}

// ParameterCount returns 1.
func (a *SingleRotation) ParameterCount() int { return 1 }

// Bind produces the single-gate circuit.
func (a *SingleRotation) Bind(p vqa.Parameters) (*quantum.Circuit, error) {
	if len(p) != 1 {
		return nil, vqa.NewDimensionMismatch("ansatz.Bind", 1, len(p))
	}
	c := quantum.NewCircuit(1)
	c.Gates = append(c.Gates, quantum.Gate{Kind: a.Axis, Target: 0, Theta: p[0]})
	return c, nil
}

// QAOA is the standard QAOA ansatz over an Ising cost Hamiltonian: a |+>
// preparation layer, then per layer the cost unitary exp(-i*gamma*H) and the
// transverse mixer exp(-i*beta*X). Parameters are [gamma_1, beta_1, ...],
// two per layer.
type QAOA struct {
	hamiltonian quantum.PauliSum
	qubits      int
	layers      int
}

// NewQAOA creates the ansatz for a Z-diagonal cost Hamiltonian.
func NewQAOA(hamiltonian quantum.PauliSum, layers int) (*QAOA, error) {
	if layers < 1 {
		return nil, fmt.Errorf("ansatz needs at least one layer, got %d", layers)
	}
	if !hamiltonian.IsIsing() {
		return nil, fmt.Errorf("qaoa cost hamiltonian must be diagonal in the Z basis")
	}
	n := hamiltonian.NQubits()
	if n < 1 {
		return nil, fmt.Errorf("qaoa cost hamiltonian acts on no qubits")
	}
	return &QAOA{hamiltonian: hamiltonian, qubits: n, layers: layers}, nil
}

// WithHamiltonian returns a copy of the ansatz rebuilt against a different
// cost Hamiltonian with the same layer count. Used when the Hamiltonian is
// reduced between recursions.
func (a *QAOA) WithHamiltonian(h quantum.PauliSum) (*QAOA, error) {
	return NewQAOA(h, a.layers)
}

// ParameterCount returns 2 * layers.
func (a *QAOA) ParameterCount() int { return 2 * a.layers }

// Qubits returns the register width the ansatz acts on.
func (a *QAOA) Qubits() int { return a.qubits }

// Bind produces the QAOA circuit for the given (gamma, beta) pairs.
func (a *QAOA) Bind(p vqa.Parameters) (*quantum.Circuit, error) {
	if len(p) != a.ParameterCount() {
		return nil, vqa.NewDimensionMismatch("ansatz.Bind", a.ParameterCount(), len(p))
	}
	c := quantum.NewCircuit(a.qubits)
	for q := 0; q < a.qubits; q++ {
		c.H(q)
	}
	for layer := 0; layer < a.layers; layer++ {
		gamma, beta := p[2*layer], p[2*layer+1]
		for _, term := range a.hamiltonian.Terms {
			appendCostTerm(c, term, gamma)
		}
		for q := 0; q < a.qubits; q++ {
			c.RX(q, 2*beta)
		}
	}
	return c, nil
}

// appendCostTerm appends exp(-i*gamma*coeff*Z...Z) for a single Ising term.
// Single-Z terms become an RZ; ZZ...Z products use a CNOT parity ladder.
func appendCostTerm(c *quantum.Circuit, term quantum.PauliTerm, gamma float64) {
	qubits := term.Qubits()
	if len(qubits) == 0 {
		// Constant term: a global phase, no gates.
		return
	}
	angle := 2 * gamma * term.Coefficient
	if len(qubits) == 1 {
		c.RZ(qubits[0], angle)
		return
	}
	for i := 0; i+1 < len(qubits); i++ {
		c.CNOT(qubits[i], qubits[i+1])
	}
	c.RZ(qubits[len(qubits)-1], angle)
	for i := len(qubits) - 2; i >= 0; i-- {
		c.CNOT(qubits[i], qubits[i+1])
	}
}
