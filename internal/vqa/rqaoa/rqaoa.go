// Package rqaoa implements Recursive QAOA: QAOA is run repeatedly, and
// after each run the cost Hamiltonian is reduced by one qubit using the
// term with the strongest measured correlation, until the problem is small
// enough to solve by exhaustive search. The reduced solutions are then
// lifted back to the original qubits.
//
// Reference: https://arxiv.org/abs/1910.08980, page 4.
package rqaoa

import (
	"context"
	"fmt"
	"math"

	"github.com/copyleftdev/QVAR/internal/quantum"
	"github.com/copyleftdev/QVAR/internal/vqa"
	"github.com/copyleftdev/QVAR/internal/vqa/ansatz"
	"github.com/copyleftdev/QVAR/internal/vqa/runner"
)

// CostFunctionFactory builds a cost function for a (possibly reduced)
// Hamiltonian and the ansatz constructed for it.
type CostFunctionFactory func(h quantum.PauliSum, a vqa.Ansatz) vqa.CostFunction

// OptimizerFactory builds a fresh optimizer for each recursion level.
type OptimizerFactory func() vqa.Optimizer

// Config assembles the collaborators of a recursive run.
type Config struct {
	// NC is the qubit count at which recursion stops and the remaining
	// problem is solved exhaustively. Must satisfy 0 < NC < qubits.
	NC int
	// Hamiltonian is the full Ising cost Hamiltonian.
	Hamiltonian quantum.PauliSum
	// Layers is the QAOA depth used at every recursion level.
	Layers int
	// CostFactory builds the cost function per level.
	CostFactory CostFunctionFactory
	// OptimizerFactory builds the inner optimizer per level.
	OptimizerFactory OptimizerFactory
	// Runner bounds each inner optimization.
	Runner runner.Config
	// GradientEstimator is required when the inner optimizer needs
	// gradients.
	GradientEstimator vqa.GradientEstimator
	// Logger is optional.
	Logger runner.Logger
}

// Result is the outcome of a recursive run. Solutions are bit assignments
// per original qubit; Value is their energy under the original Hamiltonian.
type Result struct {
	Solutions   [][]int            `json:"solutions"`
	Value       float64            `json:"value"`
	Iterations  int                `json:"iterations"`
	Evaluations int64              `json:"evaluation_count"`
	History     []vqa.HistoryEntry `json:"history"`
}

// RecursiveQAOA is the nested optimizer.
type RecursiveQAOA struct {
	cfg Config
}

// New validates the configuration.
func New(cfg Config) (*RecursiveQAOA, error) {
	n := cfg.Hamiltonian.NQubits()
	if cfg.NC <= 0 || cfg.NC >= n {
		return nil, fmt.Errorf("nc must be less than the number of qubits (%d) and greater than 0, got %d", n, cfg.NC)
	}
	if !cfg.Hamiltonian.IsIsing() {
		return nil, fmt.Errorf("rqaoa requires a Z-diagonal cost hamiltonian")
	}
	if cfg.Layers < 1 {
		return nil, fmt.Errorf("layers must be positive, got %d", cfg.Layers)
	}
	if cfg.CostFactory == nil || cfg.OptimizerFactory == nil {
		return nil, fmt.Errorf("rqaoa requires cost and optimizer factories")
	}
	return &RecursiveQAOA{cfg: cfg}, nil
}

// qubitMapping tracks, per original qubit, its current reduced index and
// whether its value is flipped relative to that index.
type qubitMapping struct {
	Index int
	Sign  int
}

// Minimize runs the recursion from the full Hamiltonian.
func (r *RecursiveQAOA) Minimize(ctx context.Context, initial vqa.Parameters) (*Result, error) {
	n := r.cfg.Hamiltonian.NQubits()
	qubitMap := make([]qubitMapping, n)
	for i := range qubitMap {
		qubitMap[i] = qubitMapping{Index: i, Sign: 1}
	}
	acc := &Result{}
	if err := r.recurse(ctx, r.cfg.Hamiltonian, qubitMap, initial, acc); err != nil {
		return acc, err
	}
	return acc, nil
}

func (r *RecursiveQAOA) recurse(ctx context.Context, h quantum.PauliSum, qubitMap []qubitMapping, initial vqa.Parameters, acc *Result) error {
	a, err := ansatz.NewQAOA(h, r.cfg.Layers)
	if err != nil {
		return err
	}
	cf := r.cfg.CostFactory(h, a)

	opts := []runner.Option{}
	if r.cfg.GradientEstimator != nil {
		opts = append(opts, runner.WithGradientEstimator(r.cfg.GradientEstimator))
	}
	if r.cfg.Logger != nil {
		opts = append(opts, runner.WithLogger(r.cfg.Logger))
	}
	run, err := runner.New(cf, r.cfg.OptimizerFactory(), initial, r.cfg.Runner, opts...)
	if err != nil {
		return err
	}
	res, err := run.Run(ctx)
	if res != nil {
		offset := len(acc.History)
		for _, entry := range res.History {
			entry.Iteration += offset
			acc.History = append(acc.History, entry)
		}
		acc.Iterations += len(res.History)
		acc.Evaluations += res.Evaluations
	}
	if err != nil {
		return err
	}

	chosen, expval, err := r.strongestCorrelation(ctx, h, res.BestParameters)
	if err != nil {
		return err
	}

	newMap := updateQubitMap(qubitMap, chosen, expval)
	reduced, err := reduceHamiltonian(h, chosen, expval)
	if err != nil {
		return err
	}

	remaining := reducedQubits(newMap)
	if remaining > r.cfg.NC {
		return r.recurse(ctx, reduced, newMap, initial, acc)
	}

	value, reducedSolutions := exhaustiveSearch(reduced, remaining)
	acc.Solutions = liftSolutions(reducedSolutions, newMap)
	acc.Value = value
	return nil
}

// strongestCorrelation finds the non-constant term whose expectation value
// at the optimal parameters has the largest magnitude. That term's qubits
// carry the strongest (anti)correlation and one of them can be eliminated.
func (r *RecursiveQAOA) strongestCorrelation(ctx context.Context, h quantum.PauliSum, optimal vqa.Parameters) (quantum.PauliTerm, float64, error) {
	a, err := ansatz.NewQAOA(h, r.cfg.Layers)
	if err != nil {
		return quantum.PauliTerm{}, 0, err
	}

	largest := 0.0
	var chosen quantum.PauliTerm
	found := false
	for _, term := range h.Terms {
		if term.IsConstant() {
			continue
		}
		termSum := quantum.PauliSum{}.Plus(term)
		cf := r.cfg.CostFactory(termSum, a)
		expval, err := cf.Evaluate(ctx, optimal)
		if err != nil {
			return quantum.PauliTerm{}, 0, err
		}
		if !found || math.Abs(expval) > math.Abs(largest) {
			largest = expval
			chosen = term
			found = true
		}
	}
	if !found {
		return quantum.PauliTerm{}, 0, fmt.Errorf("hamiltonian has no non-constant terms")
	}
	return chosen, largest, nil
}

// signOf collapses an expectation value to the substitution sign; a
// non-negative value keeps the correlated qubit aligned.
func signOf(expval float64) int {
	if expval < 0 {
		return -1
	}
	return 1
}

// newQubitIndex maps a reduced-register index after eliminating the chosen
// term's highest qubit: that qubit collapses onto the term's lowest qubit,
// and everything above it shifts down by one.
func newQubitIndex(old int, chosen quantum.PauliTerm) int {
	qubits := chosen.Qubits()
	rid := qubits[len(qubits)-1]
	replacement := qubits[0]
	switch {
	case old > rid:
		return old - 1
	case old == rid:
		return replacement
	default:
		return old
	}
}

func updateQubitMap(qubitMap []qubitMapping, chosen quantum.PauliTerm, expval float64) []qubitMapping {
	qubits := chosen.Qubits()
	rid := qubits[len(qubits)-1]

	out := make([]qubitMapping, len(qubitMap))
	for i, m := range qubitMap {
		if m.Index == rid {
			m.Sign *= signOf(expval)
		}
		m.Index = newQubitIndex(m.Index, chosen)
		out[i] = m
	}
	return out
}

// reduceHamiltonian substitutes the eliminated qubit with its correlated
// partner, scaled by the correlation sign, dropping the chosen term itself.
func reduceHamiltonian(h quantum.PauliSum, chosen quantum.PauliTerm, expval float64) (quantum.PauliSum, error) {
	qubits := chosen.Qubits()
	rid := qubits[len(qubits)-1]
	sign := float64(signOf(expval))

	var reduced quantum.PauliSum
	for _, term := range h.Terms {
		if term.SameFactors(chosen) && term.Coefficient == chosen.Coefficient {
			continue
		}
		mapped, err := term.MapQubits(func(q int) int { return newQubitIndex(q, chosen) })
		if err != nil {
			return quantum.PauliSum{}, err
		}
		for _, q := range term.Qubits() {
			if q == rid {
				mapped.Coefficient *= sign
			}
		}
		reduced = reduced.Plus(mapped)
	}
	return reduced, nil
}

// reducedQubits is the width of the reduced register according to the map.
func reducedQubits(qubitMap []qubitMapping) int {
	max := 0
	for _, m := range qubitMap {
		if m.Index > max {
			max = m.Index
		}
	}
	return max + 1
}

// exhaustiveSearch enumerates every basis assignment of the reduced problem
// and returns the minimal energy with all assignments attaining it.
func exhaustiveSearch(h quantum.PauliSum, qubits int) (float64, []uint64) {
	best := math.Inf(1)
	var solutions []uint64
	for bits := uint64(0); bits < 1<<uint(qubits); bits++ {
		energy := h.EnergyOf(bits)
		switch {
		case energy < best-1e-12:
			best = energy
			solutions = []uint64{bits}
		case math.Abs(energy-best) <= 1e-12:
			solutions = append(solutions, bits)
		}
	}
	return best, solutions
}

// liftSolutions maps reduced-register solutions back to original qubits,
// flipping bits whose mapping carries a negative sign.
func liftSolutions(reduced []uint64, qubitMap []qubitMapping) [][]int {
	solutions := make([][]int, len(reduced))
	for i, bits := range reduced {
		original := make([]int, len(qubitMap))
		for q, m := range qubitMap {
			bit := int(bits >> uint(m.Index) & 1)
			if m.Sign == -1 {
				bit = 1 - bit
			}
			original[q] = bit
		}
		solutions[i] = original
	}
	return solutions
}
