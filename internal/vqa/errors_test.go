package vqa

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDimensionMismatch(t *testing.T) {
	err := NewDimensionMismatch("ansatz.Bind", 4, 2)
	assert.Equal(t, KindDimensionMismatch, err.Kind)
	assert.Contains(t, err.Error(), "ansatz.Bind")
	assert.Contains(t, err.Error(), "expected 4 parameters, got 2")
	assert.True(t, IsKind(err, KindDimensionMismatch))
	assert.False(t, IsKind(err, KindBackendEvaluation))
}

func TestWrapBackend(t *testing.T) {
	assert.Nil(t, WrapBackend("op", nil, nil))

	underlying := errors.New("simulator blew up")
	p := Parameters{0.1, 0.2}
	err := WrapBackend("costfn.Evaluate", p, underlying)
	require.NotNil(t, err)
	assert.Equal(t, KindBackendEvaluation, err.Kind)
	assert.ErrorIs(t, err, underlying)

	// Parameters are preserved so the failure can be reproduced, and
	// cloned so later mutation of the input does not alter the record.
	p[0] = 99
	assert.Equal(t, Parameters{0.1, 0.2}, err.Parameters)
}

func TestWrapCancelled(t *testing.T) {
	err := WrapCancelled("runner.Run", context.Canceled).WithIteration(7)
	assert.Equal(t, KindCancelled, err.Kind)
	assert.Equal(t, 7, err.Iteration)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestIsKindThroughWrapping(t *testing.T) {
	inner := NewDimensionMismatch("op", 3, 1)
	wrapped := fmt.Errorf("outer: %w", inner)
	assert.True(t, IsKind(wrapped, KindDimensionMismatch))
	assert.False(t, IsKind(errors.New("plain"), KindDimensionMismatch))
}
