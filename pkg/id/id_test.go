package id

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewIsSortable(t *testing.T) {
	t.Parallel()

	prev := New()
	for i := 0; i < 100; i++ {
		next := New()
		assert.Less(t, prev, next)
		prev = next
	}
}

func TestAtRoundTripsTimestamp(t *testing.T) {
	t.Parallel()

	when := time.Date(2025, 3, 12, 14, 30, 0, 0, time.UTC)
	got, err := Time(At(when))
	require.NoError(t, err)
	assert.True(t, got.Equal(when), "got %s", got)
}

func TestTimeRejectsGarbage(t *testing.T) {
	t.Parallel()

	_, err := Time("not-a-ulid")
	assert.Error(t, err)
}
