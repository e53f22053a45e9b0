package round

import (
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/velasco/buzzroom/internal/models"
)

// Remote application. These methods feed relay events into a replica. The
// transport gives no ordering or delivery guarantees, so every method is
// idempotent and discards stale input instead of erroring.

// ApplyScores applies absolute scores from the wire. Applying the same
// payload twice leaves state unchanged.
func (m *Machine) ApplyScores(scores []models.PlayerScore) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.applyScoresLocked(scores)
}

func (m *Machine) applyScoresLocked(scores []models.PlayerScore) {
	for _, s := range scores {
		m.scores[s.ID] = s.Score
	}
}

// ApplyReveal moves a non-narrator replica from awaiting-reveal to active for
// the given question. Reveals for any other question are stale and dropped.
func (m *Machine) ApplyReveal(questionIndex int, questionID string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.round == nil || m.phase != PhaseAwaitingReveal {
		return false
	}
	q, ok := m.round.CurrentQuestion()
	if !ok || questionIndex != m.round.QuestionIdx || questionID != q.ID {
		return false
	}
	m.phase = PhaseQuestionActive
	return true
}

// ApplyRotation replaces the narrator rotation with the order fixed on the
// wire at game start, so replicas that observed players joining in different
// orders still agree on every hand-off. Locally-known players missing from
// the wire order keep their place after it; unknown IDs are registered with
// a zero score.
func (m *Machine) ApplyRotation(order []uuid.UUID) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if len(order) == 0 {
		return
	}
	seen := make(map[uuid.UUID]bool, len(order))
	rotation := make([]uuid.UUID, 0, len(order))
	for _, id := range order {
		if seen[id] {
			continue
		}
		seen[id] = true
		rotation = append(rotation, id)
		if _, known := m.names[id]; !known {
			m.names[id] = ""
			m.scores[id] = 0
		}
	}
	for _, id := range m.rotation {
		if !seen[id] {
			seen[id] = true
			rotation = append(rotation, id)
		}
	}
	m.rotation = rotation
}

// ApplyNextQuestion advances the replica to the given question index and
// applies absolute scores. Indexes at or behind the current one are
// duplicates or stale reordering and are dropped whole.
func (m *Machine) ApplyNextQuestion(questionIndex int, scores []models.PlayerScore) bool {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.round == nil || questionIndex <= m.round.QuestionIdx {
		return false
	}
	// A round that has already ended stays ended; a late advance for it is
	// reordering, not news.
	if m.gameOver || m.phase == PhaseRoundEndPending || m.phase == PhaseNextRoundBridge || m.phase == PhaseGameOver {
		return false
	}
	if questionIndex >= len(m.round.Questions) {
		log.Warn().
			Int("question_index", questionIndex).
			Int("questions", len(m.round.Questions)).
			Msg("discarding next-question event beyond round length")
		return false
	}

	m.applyScoresLocked(scores)
	m.round.QuestionIdx = questionIndex
	m.round.TimeLeftSec = int(m.rules.QuestionTimer.Seconds())
	m.queue.Reset()
	m.phase = PhaseAwaitingReveal
	return true
}

// ApplyTimeSync mirrors the narrator's authoritative countdown. A mirror
// never self-advances: reaching zero locally has no effect until the
// narrator's advance event arrives.
func (m *Machine) ApplyTimeSync(questionIndex, timeLeftSec int) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.round == nil || questionIndex != m.round.QuestionIdx {
		return
	}
	m.round.TimeLeftSec = timeLeftSec
}

// ApplyRoundEnd closes the current round from the wire: scores become final
// for the round, the narrator is marked completed, and the replica moves to
// the bridge or toward game over.
func (m *Machine) ApplyRoundEnd(nextRound int, nextNarratorID uuid.UUID, scores []models.PlayerScore, isGameOver bool) bool {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.round == nil || m.gameOver || m.phase == PhaseNextRoundBridge || m.phase == PhaseGameOver {
		m.applyScoresLocked(scores)
		return false
	}
	if nextRound != m.round.Number+1 {
		log.Debug().
			Int("next_round", nextRound).
			Int("current_round", m.round.Number).
			Msg("discarding round-end event for mismatched round")
		return false
	}

	m.applyScoresLocked(scores)
	m.completed[m.round.NarratorID] = true
	if m.queue != nil {
		m.queue.Reset()
	}
	if isGameOver {
		m.gameOver = true
		m.phase = PhaseRoundEndPending
	} else {
		m.phase = PhaseNextRoundBridge
	}
	return true
}

// ApplyRoundStart supersedes the current round with a new one announced by
// the incoming narrator. Round numbers at or behind the current one are
// stale and dropped.
func (m *Machine) ApplyRoundStart(number int, narratorID uuid.UUID, questions []models.Question, at time.Time) bool {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.round != nil && number <= m.round.Number {
		return false
	}
	m.startRoundLocked(number, narratorID, questions, at)
	return true
}
