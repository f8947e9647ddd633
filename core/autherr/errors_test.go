package autherr_test

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dmitrymomot/lifevault/core/autherr"
)

func TestRetry(t *testing.T) {
	t.Parallel()

	t.Run("unwraps to sentinel and exposes delay", func(t *testing.T) {
		t.Parallel()

		err := autherr.Retry(autherr.ErrCooldown, 42*time.Second)

		assert.ErrorIs(t, err, autherr.ErrCooldown)
		after, ok := autherr.RetryAfter(err)
		require.True(t, ok)
		assert.Equal(t, 42*time.Second, after)
	})

	t.Run("negative delay is clamped", func(t *testing.T) {
		t.Parallel()

		after, ok := autherr.RetryAfter(autherr.Retry(autherr.ErrTooManyAttempts, -time.Second))
		require.True(t, ok)
		assert.Zero(t, after)
	})

	t.Run("plain errors carry no delay", func(t *testing.T) {
		t.Parallel()

		_, ok := autherr.RetryAfter(errors.New("boom"))
		assert.False(t, ok)
	})
}

func TestUnavailable(t *testing.T) {
	t.Parallel()

	cause := errors.New("dial tcp: refused")
	err := autherr.Unavailable(cause)

	assert.ErrorIs(t, err, autherr.ErrUnavailable)
	assert.ErrorIs(t, err, cause)
	assert.NoError(t, autherr.Unavailable(nil))
}
