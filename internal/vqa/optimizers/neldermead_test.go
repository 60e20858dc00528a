package optimizers

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/copyleftdev/QVAR/internal/vqa"
)

func TestNelderMeadMinimizesQuadratic(t *testing.T) {
	nm := NewNelderMead()
	defer nm.Close()

	p := vqa.Parameters{2.0, -1.5}
	cost := quadratic(p)
	best := cost

	for i := 0; i < 2000 && !nm.Converged(); i++ {
		next, err := nm.ProposeNext(p, cost, nil)
		require.NoError(t, err)
		p = next
		cost = quadratic(p)
		if cost < best {
			best = cost
		}
	}
	assert.True(t, nm.Converged())
	assert.Less(t, best, 1e-6)
}

func TestNelderMeadDerivativeFree(t *testing.T) {
	nm := NewNelderMead()
	defer nm.Close()
	assert.False(t, vqa.NeedsGradient(nm))
}

func TestNelderMeadProposalsAfterConvergence(t *testing.T) {
	nm := NewNelderMead()
	defer nm.Close()

	p := vqa.Parameters{1.0}
	cost := quadratic(p)
	for i := 0; i < 2000 && !nm.Converged(); i++ {
		next, err := nm.ProposeNext(p, cost, nil)
		require.NoError(t, err)
		p = next
		cost = quadratic(p)
	}
	require.True(t, nm.Converged())

	// Once converged the optimizer echoes the current point.
	next, err := nm.ProposeNext(p, cost, nil)
	require.NoError(t, err)
	assert.Equal(t, p, next)
}

func TestNelderMeadCloseBeforeConvergence(t *testing.T) {
	nm := NewNelderMead()

	p := vqa.Parameters{3.0, 3.0}
	cost := quadratic(p)
	for i := 0; i < 5; i++ {
		next, err := nm.ProposeNext(p, cost, nil)
		require.NoError(t, err)
		p = next
		cost = quadratic(p)
	}

	// Abandoning mid-run must not leak or deadlock; Close is idempotent.
	nm.Close()
	nm.Close()
}
