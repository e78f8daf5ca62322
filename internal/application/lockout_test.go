package application

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLockoutPolicy_IsLockedOut(t *testing.T) {
	p := DefaultLockoutPolicy()
	now := time.Date(2026, 1, 15, 12, 0, 0, 0, time.UTC)

	t.Run("nil end means not locked", func(t *testing.T) {
		assert.False(t, p.IsLockedOut(nil, now))
	})

	t.Run("future end means locked", func(t *testing.T) {
		end := now.Add(time.Minute)
		assert.True(t, p.IsLockedOut(&end, now))
	})

	t.Run("past end means not locked", func(t *testing.T) {
		end := now.Add(-time.Second)
		assert.False(t, p.IsLockedOut(&end, now))
	})

	t.Run("end exactly now means not locked", func(t *testing.T) {
		end := now
		assert.False(t, p.IsLockedOut(&end, now))
	})
}

func TestLockoutPolicy_RecordFailure(t *testing.T) {
	p := DefaultLockoutPolicy()
	now := time.Date(2026, 1, 15, 12, 0, 0, 0, time.UTC)

	t.Run("below threshold does not lock", func(t *testing.T) {
		for count := 1; count < p.MaxFailedAttempts; count++ {
			d := p.RecordFailure(count, nil, now)
			assert.False(t, d.IsLockedOut, "count=%d", count)
			assert.Nil(t, d.NewLockoutEnd, "count=%d", count)
			assert.Equal(t, count, d.FailedCount)
		}
	})

	t.Run("reaching threshold opens a window", func(t *testing.T) {
		d := p.RecordFailure(p.MaxFailedAttempts, nil, now)
		assert.True(t, d.IsLockedOut)
		require.NotNil(t, d.NewLockoutEnd)
		assert.Equal(t, now.Add(p.LockoutDuration), *d.NewLockoutEnd)
	})

	t.Run("active window is never extended", func(t *testing.T) {
		end := now.Add(3 * time.Minute)
		d := p.RecordFailure(p.MaxFailedAttempts+3, &end, now)
		assert.True(t, d.IsLockedOut)
		assert.Nil(t, d.NewLockoutEnd)
	})

	t.Run("expired window reopens at threshold", func(t *testing.T) {
		end := now.Add(-time.Minute)
		d := p.RecordFailure(p.MaxFailedAttempts+1, &end, now)
		assert.True(t, d.IsLockedOut)
		require.NotNil(t, d.NewLockoutEnd)
		assert.Equal(t, now.Add(p.LockoutDuration), *d.NewLockoutEnd)
	})
}
