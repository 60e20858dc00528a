package quantum

import (
	"context"
	"fmt"
	"math"
	"math/cmplx"
	"math/rand"
	"sync"
)

// MaxSimulatorQubits bounds the dense statevector size (16M amplitudes).
const MaxSimulatorQubits = 24

// Simulator is a dense statevector backend. Expectation values are exact and
// deterministic; Sample draws measurement outcomes from a seeded generator.
// A Simulator is safe for concurrent use.
type Simulator struct {
	mu  sync.Mutex
	rng *rand.Rand
}

// NewSimulator creates a simulator whose sampling stream is seeded for
// reproducibility.
func NewSimulator(seed int64) *Simulator {
	return &Simulator{rng: rand.New(rand.NewSource(seed))}
}

// Expectation runs the circuit and returns the exact expectation value of
// the observable in the prepared state.
func (s *Simulator) Expectation(ctx context.Context, c *Circuit, observable PauliSum) (float64, error) {
	state, err := s.run(ctx, c)
	if err != nil {
		return 0, err
	}
	if n := observable.NQubits(); n > c.Qubits {
		return 0, fmt.Errorf("observable acts on %d qubits but circuit has %d", n, c.Qubits)
	}

	value := 0.0
	for _, term := range observable.Terms {
		if term.IsConstant() {
			value += term.Coefficient
			continue
		}
		value += term.Coefficient * expectationOfTerm(state, term)
	}
	return value, nil
}

// Sample runs the circuit and draws the requested number of computational
// basis measurement outcomes. Bit q of each outcome is the value of qubit q.
func (s *Simulator) Sample(ctx context.Context, c *Circuit, shots int) ([]uint64, error) {
	if shots <= 0 {
		return nil, fmt.Errorf("shots must be positive, got %d", shots)
	}
	state, err := s.run(ctx, c)
	if err != nil {
		return nil, err
	}

	// Cumulative distribution over basis states.
	cumulative := make([]float64, len(state))
	total := 0.0
	for i, amp := range state {
		total += real(amp)*real(amp) + imag(amp)*imag(amp)
		cumulative[i] = total
	}

	outcomes := make([]uint64, shots)
	s.mu.Lock()
	defer s.mu.Unlock()
	for k := 0; k < shots; k++ {
		r := s.rng.Float64() * total
		lo, hi := 0, len(cumulative)-1
		for lo < hi {
			mid := (lo + hi) / 2
			if cumulative[mid] < r {
				lo = mid + 1
			} else {
				hi = mid
			}
		}
		outcomes[k] = uint64(lo)
	}
	return outcomes, nil
}

// run prepares |0...0>, applies the circuit, and returns the statevector.
func (s *Simulator) run(ctx context.Context, c *Circuit) ([]complex128, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if err := c.Validate(); err != nil {
		return nil, err
	}
	if c.Qubits > MaxSimulatorQubits {
		return nil, fmt.Errorf("circuit has %d qubits, simulator supports at most %d", c.Qubits, MaxSimulatorQubits)
	}

	state := make([]complex128, 1<<uint(c.Qubits))
	state[0] = 1

	for _, g := range c.Gates {
		switch g.Kind {
		case GateRX:
			half := g.Theta / 2
			applySingle(state, g.Target,
				complex(math.Cos(half), 0), complex(0, -math.Sin(half)),
				complex(0, -math.Sin(half)), complex(math.Cos(half), 0))
		case GateRY:
			half := g.Theta / 2
			applySingle(state, g.Target,
				complex(math.Cos(half), 0), complex(-math.Sin(half), 0),
				complex(math.Sin(half), 0), complex(math.Cos(half), 0))
		case GateRZ:
			half := g.Theta / 2
			applySingle(state, g.Target,
				cmplx.Exp(complex(0, -half)), 0,
				0, cmplx.Exp(complex(0, half)))
		case GateH:
			inv := complex(1/math.Sqrt2, 0)
			applySingle(state, g.Target, inv, inv, inv, -inv)
		case GateX:
			applySingle(state, g.Target, 0, 1, 1, 0)
		case GateCNOT:
			applyCNOT(state, g.Control, g.Target)
		default:
			return nil, fmt.Errorf("unsupported gate kind %q", g.Kind)
		}
	}
	return state, nil
}

// applySingle applies the 2x2 unitary [[u00,u01],[u10,u11]] on one qubit.
func applySingle(state []complex128, qubit int, u00, u01, u10, u11 complex128) {
	bit := 1 << uint(qubit)
	for i := range state {
		if i&bit == 0 {
			j := i | bit
			a0, a1 := state[i], state[j]
			state[i] = u00*a0 + u01*a1
			state[j] = u10*a0 + u11*a1
		}
	}
}

func applyCNOT(state []complex128, control, target int) {
	cbit := 1 << uint(control)
	tbit := 1 << uint(target)
	for i := range state {
		if i&cbit != 0 && i&tbit == 0 {
			j := i | tbit
			state[i], state[j] = state[j], state[i]
		}
	}
}

// expectationOfTerm computes <psi|P|psi> for a unit-coefficient Pauli
// product by applying the product to a copy of the state.
func expectationOfTerm(state []complex128, term PauliTerm) float64 {
	phi := make([]complex128, len(state))
	copy(phi, state)
	for q, axis := range term.Factors {
		bit := 1 << uint(q)
		switch axis {
		case AxisZ:
			for i := range phi {
				if i&bit != 0 {
					phi[i] = -phi[i]
				}
			}
		case AxisX:
			for i := range phi {
				if i&bit == 0 {
					j := i | bit
					phi[i], phi[j] = phi[j], phi[i]
				}
			}
		case AxisY:
			for i := range phi {
				if i&bit == 0 {
					j := i | bit
					a0, a1 := phi[i], phi[j]
					phi[i] = complex(0, -1) * a1
					phi[j] = complex(0, 1) * a0
				}
			}
		}
	}
	value := 0.0
	for i := range state {
		value += real(cmplx.Conj(state[i]) * phi[i])
	}
	return value
}
