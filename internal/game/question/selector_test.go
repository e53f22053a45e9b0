package question

import (
	"context"
	"fmt"
	"math/rand"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/velasco/buzzroom/internal/models"
)

func makeQuestions(perCategory int, categories ...string) []models.Question {
	var out []models.Question
	for _, c := range categories {
		for i := 0; i < perCategory; i++ {
			out = append(out, models.Question{
				ID:       fmt.Sprintf("%s-%d", c, i),
				Category: c,
				Text:     map[string]string{"en": "q"},
				Answer:   map[string]string{"en": "a"},
			})
		}
	}
	return out
}

func baseID(rekeyed string) string {
	_, base, _ := strings.Cut(rekeyed, "-")
	return base
}

func TestSelectRoundOnePerCategory(t *testing.T) {
	ctx := context.Background()
	cats := []string{"history", "science"}
	sel := NewSelectorWithRand(NewMemoryPool(), rand.New(rand.NewSource(1)))

	round, err := sel.SelectRound(ctx, makeQuestions(3, cats...), cats, 1)
	require.NoError(t, err)
	require.Len(t, round, 2)
	assert.Equal(t, "history", round[0].Category)
	assert.Equal(t, "science", round[1].Category)
	for _, q := range round {
		assert.True(t, strings.HasPrefix(q.ID, "r1-"))
	}
}

func TestConsecutiveRoundsNeverOverlap(t *testing.T) {
	ctx := context.Background()
	cats := []string{"history", "science"}
	available := makeQuestions(3, cats...)
	sel := NewSelectorWithRand(NewMemoryPool(), rand.New(rand.NewSource(7)))

	first, err := sel.SelectRound(ctx, available, cats, 1)
	require.NoError(t, err)
	second, err := sel.SelectRound(ctx, available, cats, 2)
	require.NoError(t, err)

	seen := make(map[string]bool)
	for _, q := range first {
		seen[baseID(q.ID)] = true
	}
	for _, q := range second {
		assert.False(t, seen[baseID(q.ID)], "question %s repeated without exhaustion", q.ID)
	}
}

func TestExhaustionResetsWholePool(t *testing.T) {
	ctx := context.Background()
	cats := []string{"history", "science"}
	// One question per category: every round exhausts the pool.
	available := makeQuestions(1, cats...)
	pool := NewMemoryPool()
	sel := NewSelectorWithRand(pool, rand.New(rand.NewSource(3)))

	for round := 1; round <= 3; round++ {
		qs, err := sel.SelectRound(ctx, available, cats, round)
		require.NoError(t, err)
		require.Len(t, qs, 2, "selection must succeed again after reset (round %d)", round)
	}
}

func TestEmptyCategoryOmitted(t *testing.T) {
	ctx := context.Background()
	// "movies" is required but has no content at all.
	cats := []string{"history", "movies"}
	available := makeQuestions(2, "history")
	sel := NewSelectorWithRand(NewMemoryPool(), rand.New(rand.NewSource(5)))

	round, err := sel.SelectRound(ctx, available, cats, 1)
	require.NoError(t, err)
	require.Len(t, round, 1)
	assert.Equal(t, "history", round[0].Category)
}

func TestContentlessCategoryDoesNotForceReset(t *testing.T) {
	ctx := context.Background()
	cats := []string{"history", "movies"}
	available := makeQuestions(4, "history")
	pool := NewMemoryPool()
	sel := NewSelectorWithRand(pool, rand.New(rand.NewSource(9)))

	_, err := sel.SelectRound(ctx, available, cats, 1)
	require.NoError(t, err)
	_, err = sel.SelectRound(ctx, available, cats, 2)
	require.NoError(t, err)

	used, err := pool.Used(ctx)
	require.NoError(t, err)
	// Two rounds picked two distinct history questions; the permanently
	// empty movies category must not have wiped the pool.
	assert.Len(t, used, 2)
}
