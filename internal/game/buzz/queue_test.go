package buzz

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBuzzDedup(t *testing.T) {
	narrator := uuid.New()
	player := uuid.New()
	q := NewQueue(narrator)

	assert.True(t, q.Buzz(player, "bob", time.Now()))
	for i := 0; i < 5; i++ {
		assert.False(t, q.Buzz(player, "bob", time.Now()))
	}
	assert.Equal(t, 1, q.Len())
}

func TestNarratorExcluded(t *testing.T) {
	narrator := uuid.New()
	q := NewQueue(narrator)

	assert.False(t, q.Buzz(narrator, "alice", time.Now()))
	assert.Equal(t, 0, q.Len())
	assert.False(t, q.PanelRevealed())
}

func TestArrivalOrderPreserved(t *testing.T) {
	q := NewQueue(uuid.New())
	b := uuid.New()
	c := uuid.New()

	require.True(t, q.Buzz(b, "b", time.Now()))
	require.True(t, q.Buzz(c, "c", time.Now().Add(time.Millisecond)))

	entries := q.Entries()
	require.Len(t, entries, 2)
	assert.Equal(t, b, entries[0].PlayerID)
	assert.Equal(t, c, entries[1].PlayerID)

	head, ok := q.Head()
	require.True(t, ok)
	assert.Equal(t, b, head.PlayerID)
}

func TestResolveRemovesOnlyThatEntry(t *testing.T) {
	q := NewQueue(uuid.New())
	b := uuid.New()
	c := uuid.New()
	require.True(t, q.Buzz(b, "b", time.Now()))
	require.True(t, q.Buzz(c, "c", time.Now()))

	assert.True(t, q.Resolve(b))
	assert.False(t, q.Resolve(b))
	assert.Equal(t, 1, q.Len())

	head, ok := q.Head()
	require.True(t, ok)
	assert.Equal(t, c, head.PlayerID)
}

func TestPanelRevealFlag(t *testing.T) {
	q := NewQueue(uuid.New())
	assert.False(t, q.PanelRevealed())

	require.True(t, q.Buzz(uuid.New(), "b", time.Now()))
	assert.True(t, q.PanelRevealed())

	q.Reset()
	assert.False(t, q.PanelRevealed())
	assert.Equal(t, 0, q.Len())
}
