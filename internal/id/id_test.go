package id

import (
	"testing"
	"time"

	"github.com/oklog/ulid/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNew_Unique(t *testing.T) {
	seen := make(map[string]struct{})
	for i := 0; i < 1000; i++ {
		got := New()
		_, dup := seen[got]
		require.False(t, dup, "duplicate id %s", got)
		seen[got] = struct{}{}
	}
}

func TestAt_SortsWithinMillisecond(t *testing.T) {
	g := NewGenerator()
	ts := time.Date(2024, 1, 2, 0, 0, 0, 0, time.UTC)
	prev, err := g.At(ts)
	require.NoError(t, err)
	for i := 0; i < 100; i++ {
		next, err := g.At(ts)
		require.NoError(t, err)
		assert.Less(t, prev, next)
		prev = next
	}

	parsed, err := ulid.Parse(prev)
	require.NoError(t, err)
	assert.Equal(t, ulid.Timestamp(ts), parsed.Time())
}

func TestAt_ClampsOutOfRangeTimes(t *testing.T) {
	g := NewGenerator()

	first, err := g.At(time.Date(1965, 1, 4, 0, 0, 0, 0, time.UTC))
	require.NoError(t, err)
	second, err := g.At(time.Date(1965, 1, 5, 0, 0, 0, 0, time.UTC))
	require.NoError(t, err)
	assert.Less(t, first, second)

	parsed, err := ulid.Parse(first)
	require.NoError(t, err)
	assert.Equal(t, uint64(0), parsed.Time())

	later, err := g.At(time.Date(1970, 1, 2, 0, 0, 0, 0, time.UTC))
	require.NoError(t, err)
	assert.Less(t, second, later)

	far, err := g.At(time.Date(20000, 1, 1, 0, 0, 0, 0, time.UTC))
	require.NoError(t, err)
	parsed, err = ulid.Parse(far)
	require.NoError(t, err)
	assert.Equal(t, ulid.MaxTime(), parsed.Time())
}

func TestAt_SeparateGeneratorsKeepOwnOrder(t *testing.T) {
	dayA := time.Date(2024, 3, 4, 0, 0, 0, 0, time.UTC)
	dayB := time.Date(2024, 6, 3, 0, 0, 0, 0, time.UTC)
	a, b := NewGenerator(), NewGenerator()

	for i := 0; i < 200; i++ {
		first, err := a.At(dayA)
		require.NoError(t, err)
		_, err = b.At(dayB)
		require.NoError(t, err)
		second, err := a.At(dayA)
		require.NoError(t, err)
		require.Less(t, first, second, "iteration %d", i)
	}
}
