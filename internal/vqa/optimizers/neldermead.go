package optimizers

import (
	"sync"

	"gonum.org/v1/gonum/optimize"

	"github.com/copyleftdev/QVAR/internal/vqa"
)

// NelderMead adapts gonum's derivative-free Nelder-Mead method to the
// propose/feedback optimizer capability. gonum drives the whole
// minimization itself, so the adapter runs it on a goroutine and turns
// every objective evaluation request into one proposal: ProposeNext feeds
// the cost of the previous proposal back and hands out the next requested
// point.
//
// Callers that abandon the optimizer before it converges should Close it to
// release the background goroutine.
type NelderMead struct {
	// SimplexSize is the size of the auto-constructed initial simplex;
	// zero lets gonum choose.
	SimplexSize float64
	// Tolerance is the absolute function convergence tolerance (default 1e-10).
	Tolerance float64

	requests  chan []float64
	costs     chan float64
	done      chan struct{}
	stop      chan struct{}
	started   bool
	converged bool
	closeOnce sync.Once
}

// NewNelderMead creates the adapter.
func NewNelderMead() *NelderMead {
	return &NelderMead{}
}

// stopped unwinds the gonum goroutine when the adapter is closed early.
type stopped struct{}

func (nm *NelderMead) start(initial vqa.Parameters) {
	nm.requests = make(chan []float64)
	nm.costs = make(chan float64)
	nm.done = make(chan struct{})
	nm.stop = make(chan struct{})

	problem := optimize.Problem{
		Func: func(x []float64) float64 {
			point := append([]float64(nil), x...)
			select {
			case nm.requests <- point:
			case <-nm.stop:
				panic(stopped{})
			}
			select {
			case cost := <-nm.costs:
				return cost
			case <-nm.stop:
				panic(stopped{})
			}
		},
	}

	tolerance := nm.Tolerance
	if tolerance == 0 {
		tolerance = 1e-10
	}
	settings := &optimize.Settings{
		Converger: &optimize.FunctionConverge{
			Absolute:   tolerance,
			Iterations: 50,
		},
	}
	method := &optimize.NelderMead{SimplexSize: nm.SimplexSize}

	go func() {
		defer close(nm.done)
		defer func() {
			if r := recover(); r != nil {
				if _, ok := r.(stopped); !ok {
					panic(r)
				}
			}
		}()
		// The result is consumed through the proposal channel; the best
		// point was already reported to the caller as a proposal.
		_, _ = optimize.Minimize(problem, initial.Clone(), settings, method)
	}()
}

// ProposeNext feeds back the cost of the previous proposal and returns the
// next point gonum wants evaluated. Once the underlying minimization
// finishes, it returns the current point unchanged and Converged flips.
func (nm *NelderMead) ProposeNext(current vqa.Parameters, cost float64, grad vqa.Parameters) (vqa.Parameters, error) {
	if nm.converged {
		return current.Clone(), nil
	}

	if !nm.started {
		nm.started = true
		nm.start(current)
		// gonum evaluates the initial point first; the runner already has
		// its cost, so answer that request immediately.
		select {
		case <-nm.requests:
		case <-nm.done:
			nm.converged = true
			return current.Clone(), nil
		}
	}

	select {
	case nm.costs <- cost:
	case <-nm.done:
		nm.converged = true
		return current.Clone(), nil
	}

	select {
	case next := <-nm.requests:
		return vqa.Parameters(next), nil
	case <-nm.done:
		nm.converged = true
		return current.Clone(), nil
	}
}

// Converged reports whether the underlying minimization has finished.
func (nm *NelderMead) Converged() bool {
	return nm.converged
}

// Close releases the background minimization if it is still running.
func (nm *NelderMead) Close() {
	nm.closeOnce.Do(func() {
		if nm.stop != nil {
			close(nm.stop)
		}
	})
}
