package txretry

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/your-org/marketplace-api/internal/pkg/apperror"
)

func TestDoRetriesConflictsUntilSuccess(t *testing.T) {
	calls := 0
	err := DoN(context.Background(), 3, time.Millisecond, func(context.Context) error {
		calls++
		if calls < 3 {
			return Conflict("product")
		}
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, 3, calls)
}

func TestDoReturnsConflictWhenExhausted(t *testing.T) {
	calls := 0
	err := DoN(context.Background(), 2, time.Millisecond, func(context.Context) error {
		calls++
		return Conflict("cart")
	})
	require.Error(t, err)
	assert.Equal(t, 3, calls, "initial attempt plus two retries")
	assert.True(t, IsConflict(err))
	assert.Equal(t, 409, apperror.As(err).HTTPStatus())
}

func TestDoDoesNotRetryOtherErrors(t *testing.T) {
	calls := 0
	boom := errors.New("boom")
	err := DoN(context.Background(), 5, time.Millisecond, func(context.Context) error {
		calls++
		return boom
	})
	assert.ErrorIs(t, err, boom)
	assert.Equal(t, 1, calls)
}
