package core_test

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/openclaw/memorybrain/pkg/core"
)

func TestBrainErrorFormat(t *testing.T) {
	err := &core.BrainError{Op: "validate_entity", Err: core.ErrNotFound}
	assert.Equal(t, "memorybrain: validate_entity: record not found", err.Error())
}

func TestBrainErrorUnwrap(t *testing.T) {
	wrapped := core.NewBrainError("query", core.ErrBackendUnavailable)
	assert.ErrorIs(t, wrapped, core.ErrBackendUnavailable)

	var be *core.BrainError
	assert.ErrorAs(t, wrapped, &be)
	assert.Equal(t, "query", be.Op)
}

func TestBrainErrorUnwrapNested(t *testing.T) {
	inner := fmt.Errorf("%w: empty content", core.ErrInvalidInput)
	wrapped := core.NewBrainError("save_memory", inner)
	assert.ErrorIs(t, wrapped, core.ErrInvalidInput)
}

func TestNewBrainErrorNil(t *testing.T) {
	assert.NoError(t, core.NewBrainError("anything", nil))
}

func TestSentinelsAreDistinct(t *testing.T) {
	sentinels := []error{
		core.ErrNotFound,
		core.ErrBackendUnavailable,
		core.ErrMalformedRecord,
		core.ErrInvalidConfig,
		core.ErrInvalidInput,
		core.ErrLedgerPersist,
	}
	for i, a := range sentinels {
		for j, b := range sentinels {
			if i == j {
				continue
			}
			assert.False(t, errors.Is(a, b), "%v must not match %v", a, b)
		}
	}
}
