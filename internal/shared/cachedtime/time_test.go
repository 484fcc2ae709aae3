package cachedtime

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestNow_TracksWallClock(t *testing.T) {
	before := time.Now()
	got := Now()
	after := time.Now()

	require.False(t, got.Before(before.Add(-2*cacheTimeEach)))
	require.False(t, got.After(after.Add(2 * cacheTimeEach)))
}

func TestUnixNano_Monotonic(t *testing.T) {
	a := UnixNano()
	time.Sleep(3 * cacheTimeEach)
	b := UnixNano()
	require.Greater(t, b, a)
}

func TestSince_ReturnsNonNegativeDuration(t *testing.T) {
	past := Now().Add(-time.Second)
	require.GreaterOrEqual(t, Since(past), time.Second)
}
