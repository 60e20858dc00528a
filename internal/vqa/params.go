package vqa

import (
	"math"

	"gonum.org/v1/gonum/floats"
)

// Parameters is an ordered, fixed-length vector of ansatz parameters.
// Semantics are positional. Vectors handed into an evaluation are never
// mutated; every transformation returns a fresh vector.
type Parameters []float64

// Clone returns an independent copy.
func (p Parameters) Clone() Parameters {
	out := make(Parameters, len(p))
	copy(out, p)
	return out
}

// Shifted returns a copy with delta added at index i.
func (p Parameters) Shifted(i int, delta float64) Parameters {
	out := p.Clone()
	out[i] += delta
	return out
}

// Norm returns the Euclidean norm.
func (p Parameters) Norm() float64 {
	if len(p) == 0 {
		return 0
	}
	return floats.Norm(p, 2)
}

// EqualWithin reports element-wise equality within tol.
func (p Parameters) EqualWithin(o Parameters, tol float64) bool {
	if len(p) != len(o) {
		return false
	}
	for i := range p {
		if math.Abs(p[i]-o[i]) > tol {
			return false
		}
	}
	return true
}

// Combine prepends fixed parameters to a free vector, the layout used by
// cost functions with partially frozen ansatz parameters.
func Combine(fixed, free Parameters) Parameters {
	out := make(Parameters, 0, len(fixed)+len(free))
	out = append(out, fixed...)
	out = append(out, free...)
	return out
}
