package failguard

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestBreaker_OpensAfterThreshold(t *testing.T) {
	b := NewBreaker(3, time.Hour)
	require.True(t, b.Allow())

	b.RecordFailure()
	b.RecordFailure()
	require.True(t, b.Allow())
	require.False(t, b.IsOpen())

	b.RecordFailure()
	require.True(t, b.IsOpen())
	require.False(t, b.Allow())
}

func TestBreaker_ClosesOnSuccess(t *testing.T) {
	b := NewBreaker(1, time.Hour)
	b.RecordFailure()
	require.True(t, b.IsOpen())

	// simulate the cooldown having elapsed for the half-open probe.
	b.lastFailureTime = b.lastFailureTime.Add(-2 * time.Hour)
	require.True(t, b.Allow())

	b.RecordSuccess()
	require.False(t, b.IsOpen())
	require.True(t, b.Allow())
}

func TestBreaker_HalfOpenProbeFailureReopens(t *testing.T) {
	b := NewBreaker(1, time.Hour)
	b.RecordFailure()
	require.True(t, b.IsOpen())

	b.lastFailureTime = b.lastFailureTime.Add(-2 * time.Hour)
	require.True(t, b.Allow())

	b.RecordFailure()
	require.True(t, b.IsOpen())
	require.False(t, b.Allow())
}
