package question

import (
	"context"
	"fmt"
	"math/rand"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/velasco/buzzroom/internal/models"
)

// UsedPool is the per-game persistent set of question IDs already shown. It
// grows monotonically until Reset, which clears the entire pool at once.
type UsedPool interface {
	Used(ctx context.Context) (map[string]bool, error)
	MarkUsed(ctx context.Context, ids []string) error
	Reset(ctx context.Context) error
}

// Selector picks one question per category per round, never repeating a
// question until the pool runs dry. When any required category has zero
// unused candidates the whole pool is cleared and selection retries from the
// full set: occasional repeats are preferred over starving a category.
type Selector struct {
	pool UsedPool
	rng  *rand.Rand
}

// NewSelector creates a selector over the given used pool.
func NewSelector(pool UsedPool) *Selector {
	return &Selector{
		pool: pool,
		rng:  rand.New(rand.NewSource(time.Now().UnixNano())),
	}
}

// NewSelectorWithRand creates a selector with a caller-supplied random source,
// for deterministic selection in tests.
func NewSelectorWithRand(pool UsedPool, rng *rand.Rand) *Selector {
	return &Selector{pool: pool, rng: rng}
}

// SelectRound returns one question per category for the given round number,
// marking everything it picked as used. Selected questions are re-keyed as
// "r<round>-<base id>" so repeats across rounds stay distinguishable. A
// category with no candidates even after a pool reset is omitted from the
// result; the round simply runs shorter.
func (s *Selector) SelectRound(ctx context.Context, available []models.Question, categories []string, round int) ([]models.Question, error) {
	used, err := s.pool.Used(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to load used question pool: %w", err)
	}

	buckets := partition(available, used)
	if exhausted(buckets, partition(available, nil), categories) {
		log.Info().Int("round", round).Msg("question pool exhausted, resetting")
		if err := s.pool.Reset(ctx); err != nil {
			return nil, fmt.Errorf("failed to reset used question pool: %w", err)
		}
		buckets = partition(available, nil)
	}

	dataCategories := make(map[string]bool)
	for _, q := range available {
		dataCategories[q.Category] = true
	}
	for _, c := range categories {
		if !dataCategories[c] {
			log.Warn().Str("category", c).Msg("expected category has no questions in data")
		}
	}

	var selected []models.Question
	var usedIDs []string
	for _, category := range categories {
		candidates := buckets[category]
		if len(candidates) == 0 {
			// Content bug, not a fatal error: the round proceeds with
			// fewer questions than categories.
			log.Warn().
				Str("category", category).
				Int("round", round).
				Msg("no candidates for category, omitting slot")
			continue
		}

		pick := candidates[s.rng.Intn(len(candidates))]
		usedIDs = append(usedIDs, pick.ID)

		pick.ID = fmt.Sprintf("r%d-%s", round, pick.ID)
		selected = append(selected, pick)
	}

	if len(usedIDs) > 0 {
		if err := s.pool.MarkUsed(ctx, usedIDs); err != nil {
			return nil, fmt.Errorf("failed to mark questions used: %w", err)
		}
	}
	return selected, nil
}

// partition buckets questions by category, dropping anything already used.
func partition(available []models.Question, used map[string]bool) map[string][]models.Question {
	buckets := make(map[string][]models.Question)
	for _, q := range available {
		if used[q.ID] {
			continue
		}
		buckets[q.Category] = append(buckets[q.Category], q)
	}
	return buckets
}

// exhausted reports whether any required category that has content at all has
// run out of unused candidates. Categories empty even in the full set do not
// count: resetting would never help them.
func exhausted(buckets, full map[string][]models.Question, categories []string) bool {
	for _, c := range categories {
		if len(buckets[c]) == 0 && len(full[c]) > 0 {
			return true
		}
	}
	return false
}
