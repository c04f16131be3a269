package timeseries

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestResolveCurrentWindow_30d(t *testing.T) {
	now := time.Date(2024, 3, 15, 14, 37, 22, 0, time.UTC)

	w, interval, err := ResolveCurrentWindow("30d", now)
	require.NoError(t, err)

	assert.Equal(t, IntervalDay, interval)
	assert.Equal(t, time.Date(2024, 3, 15, 0, 0, 0, 0, time.UTC), w.End)
	assert.Equal(t, time.Date(2024, 2, 14, 0, 0, 0, 0, time.UTC), w.Start)
	assert.Equal(t, 30, w.Buckets(interval))
}

func TestResolveCurrentWindow_TruncatesToBoundary(t *testing.T) {
	now := time.Date(2024, 3, 15, 14, 37, 22, 0, time.UTC)

	w, interval, err := ResolveCurrentWindow("24h", now)
	require.NoError(t, err)

	assert.Equal(t, IntervalHour, interval)
	assert.Equal(t, time.Date(2024, 3, 15, 14, 0, 0, 0, time.UTC), w.End)
	assert.Equal(t, 24, w.Buckets(interval))
}

func TestResolveCurrentWindow_Deterministic(t *testing.T) {
	now := time.Date(2024, 3, 15, 9, 1, 0, 0, time.UTC)

	for _, label := range RangeLabels() {
		w1, i1, err := ResolveCurrentWindow(label, now)
		require.NoError(t, err)
		w2, i2, err := ResolveCurrentWindow(label, now)
		require.NoError(t, err)

		assert.Equal(t, w1, w2, label)
		assert.Equal(t, i1, i2, label)

		buckets := w1.Buckets(i1)
		assert.GreaterOrEqual(t, buckets, 20, label)
		assert.LessOrEqual(t, buckets, 60, label)
	}
}

func TestResolveCurrentWindow_UnknownLabel(t *testing.T) {
	_, _, err := ResolveCurrentWindow("13d", time.Now())
	assert.Error(t, err)
}

func TestResolvePreviousWindow_Adjacent(t *testing.T) {
	currentStart := time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)
	origin := time.Date(2023, 1, 1, 0, 0, 0, 0, time.UTC)

	prev, err := ResolvePreviousWindow(currentStart, "30d", origin)
	require.NoError(t, err)
	require.NotNil(t, prev)

	// No gap: the previous window ends exactly where the current one begins.
	assert.Equal(t, currentStart, prev.End)
	assert.Equal(t, currentStart.Add(-30*24*time.Hour), prev.Start)
}

func TestResolvePreviousWindow_BeforeOrigin(t *testing.T) {
	// prevStart = 2023-12-16, which is before the account origin 2024-01-01.
	currentStart := time.Date(2024, 1, 15, 0, 0, 0, 0, time.UTC)
	origin := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)

	prev, err := ResolvePreviousWindow(currentStart, "30d", origin)
	require.NoError(t, err)
	assert.Nil(t, prev)
}
