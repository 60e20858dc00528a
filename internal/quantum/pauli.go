// Package quantum provides the minimal quantum primitives the VQA core
// operates on: Pauli operators, circuit descriptions, and a statevector
// simulator backend.
package quantum

import (
	"fmt"
	"math"
	"sort"
	"strconv"
	"strings"
)

// Axis identifies a single-qubit Pauli factor.
type Axis byte

const (
	AxisX Axis = 'X'
	AxisY Axis = 'Y'
	AxisZ Axis = 'Z'
)

// PauliTerm is a weighted product of single-qubit Pauli factors, e.g.
// 0.5*Z0*Z1. A term with no factors is a constant (multiple of identity).
type PauliTerm struct {
	Coefficient float64
	Factors     map[int]Axis
}

// NewPauliTerm builds a term from explicit factors. The factors map is copied.
func NewPauliTerm(coefficient float64, factors map[int]Axis) PauliTerm {
	f := make(map[int]Axis, len(factors))
	for q, a := range factors {
		f[q] = a
	}
	return PauliTerm{Coefficient: coefficient, Factors: f}
}

// ParsePauliTerm parses a single term such as "Z0*Z1", "0.5*X2" or "-Z3".
// Numeric tokens multiply into the coefficient; repeated identical factors on
// a qubit cancel (Z*Z = I).
func ParsePauliTerm(s string) (PauliTerm, error) {
	term := PauliTerm{Coefficient: 1.0, Factors: map[int]Axis{}}

	s = strings.TrimSpace(s)
	if s == "" {
		return term, fmt.Errorf("empty pauli term")
	}
	if strings.HasPrefix(s, "-") {
		term.Coefficient = -1.0
		s = strings.TrimSpace(s[1:])
	}

	for _, tok := range strings.Split(s, "*") {
		tok = strings.TrimSpace(tok)
		if tok == "" {
			return term, fmt.Errorf("empty factor in pauli term %q", s)
		}
		switch tok[0] {
		case 'X', 'Y', 'Z':
			q, err := strconv.Atoi(tok[1:])
			if err != nil || q < 0 {
				return term, fmt.Errorf("invalid qubit index in factor %q", tok)
			}
			if err := term.mulFactor(q, Axis(tok[0])); err != nil {
				return term, err
			}
		case 'I':
			// Identity factor, no-op.
		default:
			c, err := strconv.ParseFloat(tok, 64)
			if err != nil {
				return term, fmt.Errorf("invalid factor %q in pauli term", tok)
			}
			term.Coefficient *= c
		}
	}
	return term, nil
}

// mulFactor multiplies an additional Pauli factor into the term. The same
// axis twice on one qubit squares to identity; mixing axes on one qubit is
// rejected (the core only needs the Z-algebra for Hamiltonian reduction).
func (t *PauliTerm) mulFactor(qubit int, axis Axis) error {
	if existing, ok := t.Factors[qubit]; ok {
		if existing == axis {
			delete(t.Factors, qubit)
			return nil
		}
		return fmt.Errorf("conflicting pauli factors %c and %c on qubit %d", existing, axis, qubit)
	}
	t.Factors[qubit] = axis
	return nil
}

// Qubits returns the qubit indices the term acts on, sorted ascending.
func (t PauliTerm) Qubits() []int {
	qs := make([]int, 0, len(t.Factors))
	for q := range t.Factors {
		qs = append(qs, q)
	}
	sort.Ints(qs)
	return qs
}

// IsConstant reports whether the term is a multiple of the identity.
func (t PauliTerm) IsConstant() bool {
	return len(t.Factors) == 0
}

// IsIsing reports whether the term consists of Z factors only.
func (t PauliTerm) IsIsing() bool {
	for _, a := range t.Factors {
		if a != AxisZ {
			return false
		}
	}
	return true
}

// SameFactors reports whether two terms act with identical factors,
// irrespective of their coefficients.
func (t PauliTerm) SameFactors(o PauliTerm) bool {
	if len(t.Factors) != len(o.Factors) {
		return false
	}
	for q, a := range t.Factors {
		if o.Factors[q] != a {
			return false
		}
	}
	return true
}

// String renders the term in the same syntax ParsePauliTerm accepts.
func (t PauliTerm) String() string {
	if t.IsConstant() {
		return strconv.FormatFloat(t.Coefficient, 'g', -1, 64)
	}
	parts := make([]string, 0, len(t.Factors)+1)
	if t.Coefficient != 1.0 {
		parts = append(parts, strconv.FormatFloat(t.Coefficient, 'g', -1, 64))
	}
	for _, q := range t.Qubits() {
		parts = append(parts, fmt.Sprintf("%c%d", t.Factors[q], q))
	}
	return strings.Join(parts, "*")
}

// MapQubits returns a copy of the term with every factor's qubit index
// remapped through f. Factors that land on the same qubit with the same
// axis cancel pairwise (Z*Z = I); conflicting axes are an error.
func (t PauliTerm) MapQubits(f func(int) int) (PauliTerm, error) {
	out := PauliTerm{Coefficient: t.Coefficient, Factors: map[int]Axis{}}
	for _, q := range t.Qubits() {
		if err := out.mulFactor(f(q), t.Factors[q]); err != nil {
			return PauliTerm{}, err
		}
	}
	return out, nil
}

// PauliSum is a sum of Pauli terms, typically a cost Hamiltonian.
type PauliSum struct {
	Terms []PauliTerm
}

// ParsePauliSum parses expressions such as "1.5*Z0*Z1 + X0 - 0.5*Z2".
func ParsePauliSum(s string) (PauliSum, error) {
	var sum PauliSum
	for _, part := range splitTerms(s) {
		term, err := ParsePauliTerm(part)
		if err != nil {
			return PauliSum{}, err
		}
		sum = sum.Plus(term)
	}
	if len(sum.Terms) == 0 {
		return PauliSum{}, fmt.Errorf("empty pauli sum %q", s)
	}
	return sum, nil
}

// splitTerms splits on top-level +/- signs, keeping the sign with the term.
// A '-' directly after 'e' or 'E' belongs to a float exponent.
func splitTerms(s string) []string {
	var terms []string
	var cur strings.Builder
	for i, r := range s {
		if (r == '+' || r == '-') && i > 0 {
			prev := s[i-1]
			if prev != 'e' && prev != 'E' {
				if t := strings.TrimSpace(cur.String()); t != "" {
					terms = append(terms, t)
				}
				cur.Reset()
				if r == '-' {
					cur.WriteRune(r)
				}
				continue
			}
		}
		if r == '+' && i == 0 {
			continue
		}
		cur.WriteRune(r)
	}
	if t := strings.TrimSpace(cur.String()); t != "" {
		terms = append(terms, t)
	}
	return terms
}

// Plus returns the sum with an extra term folded in, combining like terms
// and dropping terms whose coefficient vanishes.
func (p PauliSum) Plus(term PauliTerm) PauliSum {
	out := PauliSum{Terms: make([]PauliTerm, 0, len(p.Terms)+1)}
	merged := false
	for _, t := range p.Terms {
		if !merged && t.SameFactors(term) {
			t = NewPauliTerm(t.Coefficient+term.Coefficient, t.Factors)
			merged = true
		}
		if math.Abs(t.Coefficient) > 1e-14 {
			out.Terms = append(out.Terms, t)
		}
	}
	if !merged && math.Abs(term.Coefficient) > 1e-14 {
		out.Terms = append(out.Terms, NewPauliTerm(term.Coefficient, term.Factors))
	}
	return out
}

// NQubits returns one past the highest qubit index appearing in the sum.
func (p PauliSum) NQubits() int {
	n := 0
	for _, t := range p.Terms {
		for q := range t.Factors {
			if q+1 > n {
				n = q + 1
			}
		}
	}
	return n
}

// IsIsing reports whether every term is diagonal in the Z basis.
func (p PauliSum) IsIsing() bool {
	for _, t := range p.Terms {
		if !t.IsIsing() {
			return false
		}
	}
	return true
}

// EnergyOf evaluates an Ising sum on a computational-basis bitstring. Bit q
// of the argument is the measured value of qubit q.
func (p PauliSum) EnergyOf(bits uint64) float64 {
	energy := 0.0
	for _, t := range p.Terms {
		sign := 1.0
		for q := range t.Factors {
			if bits>>uint(q)&1 == 1 {
				sign = -sign
			}
		}
		energy += sign * t.Coefficient
	}
	return energy
}

// String renders the sum in the syntax ParsePauliSum accepts.
func (p PauliSum) String() string {
	parts := make([]string, len(p.Terms))
	for i, t := range p.Terms {
		parts[i] = t.String()
	}
	return strings.Join(parts, " + ")
}

// IsComeasurable reports whether two terms can be measured in one circuit
// execution: no qubit is acted on with different Pauli axes.
func IsComeasurable(a, b PauliTerm) bool {
	for q, axisA := range a.Factors {
		if axisB, ok := b.Factors[q]; ok && axisA != axisB {
			return false
		}
	}
	return true
}

// GroupComeasurable greedily partitions the sum's terms into groups whose
// members are pairwise co-measurable. Constant terms join the first group.
func GroupComeasurable(p PauliSum) []PauliSum {
	var groups []PauliSum
	for _, term := range p.Terms {
		placed := false
		for i := range groups {
			compatible := true
			for _, member := range groups[i].Terms {
				if !IsComeasurable(term, member) {
					compatible = false
					break
				}
			}
			if compatible {
				groups[i] = groups[i].Plus(term)
				placed = true
				break
			}
		}
		if !placed {
			groups = append(groups, PauliSum{}.Plus(term))
		}
	}
	return groups
}
