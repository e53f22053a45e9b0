package round

import (
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/velasco/buzzroom/internal/config"
	"github.com/velasco/buzzroom/internal/game/buzz"
	"github.com/velasco/buzzroom/internal/game/events"
	"github.com/velasco/buzzroom/internal/models"
)

// Phase is the state machine phase for the current question or transition.
type Phase string

const (
	PhaseAwaitingReveal  Phase = "AWAITING_REVEAL"
	PhaseQuestionActive  Phase = "QUESTION_ACTIVE"
	PhaseAnswerPending   Phase = "ANSWER_PENDING"
	PhaseRoundEndPending Phase = "ROUND_END_PENDING"
	PhaseNextRoundBridge Phase = "NEXT_ROUND_BRIDGE"
	PhaseGameOver        Phase = "GAME_OVER"
)

// Outcome describes the externally visible effect of a narrator action, so
// the caller can broadcast the matching protocol event.
type Outcome struct {
	Advanced       bool
	RoundEnded     bool
	GameOver       bool
	QuestionIndex  int
	NextRound      int
	NextNarratorID uuid.UUID
	Scores         []models.PlayerScore
	Cause          events.AdvanceCause
}

// Machine is one replica's copy of the round state machine. Every client runs
// its own copy; relay events are the only synchronization between copies.
// Narrator actions (reveal, judge, time-up) are legal only on the narrator's
// replica; all other replicas mutate state exclusively through the Apply*
// methods fed from the relay.
type Machine struct {
	mu    sync.Mutex
	rules config.Rules

	rotation  []uuid.UUID // fixed narrator order, set once at game start
	completed map[uuid.UUID]bool
	names     map[uuid.UUID]string
	scores    map[uuid.UUID]int

	round    *models.Round
	queue    *buzz.Queue
	phase    Phase
	gameOver bool
}

// NewMachine creates a machine for the given players. The rotation order is
// the order players are passed in and stays fixed for the whole game.
func NewMachine(rules config.Rules, players []models.Player) *Machine {
	m := &Machine{
		rules:     rules,
		completed: make(map[uuid.UUID]bool),
		names:     make(map[uuid.UUID]string),
		scores:    make(map[uuid.UUID]int),
	}
	for _, p := range players {
		m.rotation = append(m.rotation, p.ID)
		m.names[p.ID] = p.Name
		m.scores[p.ID] = p.Score
	}
	return m
}

// RotationOrder returns the fixed narrator rotation.
func (m *Machine) RotationOrder() []uuid.UUID {
	m.mu.Lock()
	defer m.mu.Unlock()

	out := make([]uuid.UUID, len(m.rotation))
	copy(out, m.rotation)
	return out
}

// StartRound begins a round with the given questions. The narrator must be a
// member of the rotation fixed at game start.
func (m *Machine) StartRound(number int, narratorID uuid.UUID, questions []models.Question, at time.Time) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.startRoundLocked(number, narratorID, questions, at)
}

func (m *Machine) startRoundLocked(number int, narratorID uuid.UUID, questions []models.Question, at time.Time) {
	m.round = &models.Round{
		Number:      number,
		NarratorID:  narratorID,
		Questions:   questions,
		QuestionIdx: 0,
		TimeLeftSec: int(m.rules.QuestionTimer.Seconds()),
		StartedAt:   at,
	}
	m.queue = buzz.NewQueue(narratorID)
	m.phase = PhaseAwaitingReveal

	log.Info().
		Int("round", number).
		Str("narrator_id", narratorID.String()).
		Int("questions", len(questions)).
		Msg("round started")
}

// Reveal is the narrator's explicit reveal of the current question. Returns
// the revealed index and question ID, or false when the phase does not allow
// a reveal.
func (m *Machine) Reveal() (int, string, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.phase != PhaseAwaitingReveal || m.round == nil {
		return 0, "", false
	}
	q, ok := m.round.CurrentQuestion()
	if !ok {
		return 0, "", false
	}
	m.phase = PhaseQuestionActive
	return m.round.QuestionIdx, q.ID, true
}

// Buzz records a buzz for the current question. The question index and ID
// guard against late-arriving buzzes for a stale question, which are
// discarded as a no-op.
func (m *Machine) Buzz(playerID uuid.UUID, playerName string, questionIndex int, questionID string, at time.Time) bool {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.round == nil || m.queue == nil {
		return false
	}
	if m.phase != PhaseQuestionActive && m.phase != PhaseAnswerPending {
		return false
	}
	q, ok := m.round.CurrentQuestion()
	if !ok || questionIndex != m.round.QuestionIdx || questionID != q.ID {
		log.Debug().
			Str("player_id", playerID.String()).
			Int("question_index", questionIndex).
			Msg("discarding buzz for stale question")
		return false
	}

	accepted := m.queue.Buzz(playerID, playerName, at)
	if accepted {
		m.phase = PhaseAnswerPending
	}
	return accepted
}

// CorrectAnswer credits the buzzing player, clears the queue and advances.
// Legal only for a player currently in the queue.
func (m *Machine) CorrectAnswer(playerID uuid.UUID) (Outcome, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.phase != PhaseAnswerPending || m.queue == nil {
		return Outcome{}, false
	}
	if !m.queue.Resolve(playerID) {
		return Outcome{}, false
	}

	m.applyDelta(playerID, m.rules.CorrectAnswerPoints)
	m.queue.Reset()
	return m.advanceLocked(events.CauseNarratorAction), true
}

// WrongAnswer penalizes the buzzing player and removes only their entry. When
// the queue still has entries the next head answers; when it empties the
// question advances.
func (m *Machine) WrongAnswer(playerID uuid.UUID) (Outcome, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.phase != PhaseAnswerPending || m.queue == nil {
		return Outcome{}, false
	}
	if !m.queue.Resolve(playerID) {
		return Outcome{}, false
	}

	m.applyDelta(playerID, m.rules.WrongAnswerPoints)
	if m.queue.Len() > 0 {
		return Outcome{Scores: m.scoresLocked()}, true
	}
	return m.advanceLocked(events.CauseNarratorAction), true
}

// TimeUp handles the countdown reaching zero on the narrator's replica:
// identical to an explicit next-question action, tagged with its cause.
func (m *Machine) TimeUp() (Outcome, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.phase != PhaseQuestionActive && m.phase != PhaseAnswerPending {
		return Outcome{}, false
	}
	m.queue.Reset()
	return m.advanceLocked(events.CauseTimeUp), true
}

// EndRoundEarly forces a round end mid-question, excluding the given narrator
// from the hand-off. Used when the active narrator disconnects.
func (m *Machine) EndRoundEarly(exclude uuid.UUID, cause events.AdvanceCause) (Outcome, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.round == nil || m.phase == PhaseGameOver || m.phase == PhaseNextRoundBridge {
		return Outcome{}, false
	}
	if m.queue != nil {
		m.queue.Reset()
	}
	return m.endRoundLocked(exclude, cause), true
}

// Tick decrements the countdown by one second and reports the remaining time
// plus whether it reached zero. Only the narrator's replica drives Tick; the
// clamp keeps duplicate ticks from underflowing.
func (m *Machine) Tick() (int, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.round == nil || (m.phase != PhaseQuestionActive && m.phase != PhaseAnswerPending) {
		return 0, false
	}
	if m.round.TimeLeftSec > 0 {
		m.round.TimeLeftSec--
	}
	return m.round.TimeLeftSec, m.round.TimeLeftSec == 0
}

// advanceLocked moves to the next question, or ends the round after the last
// one. Caller holds the lock.
func (m *Machine) advanceLocked(cause events.AdvanceCause) Outcome {
	m.round.QuestionIdx++
	if m.round.QuestionIdx >= len(m.round.Questions) {
		return m.endRoundLocked(uuid.Nil, cause)
	}

	m.round.TimeLeftSec = int(m.rules.QuestionTimer.Seconds())
	m.queue.Reset()
	m.phase = PhaseAwaitingReveal
	return Outcome{
		Advanced:      true,
		QuestionIndex: m.round.QuestionIdx,
		Scores:        m.scoresLocked(),
		Cause:         cause,
	}
}

// endRoundLocked marks the current narrator completed and hands off to the
// next eligible one in the fixed rotation. No eligible narrator means game
// over. Caller holds the lock.
func (m *Machine) endRoundLocked(exclude uuid.UUID, cause events.AdvanceCause) Outcome {
	m.completed[m.round.NarratorID] = true
	m.phase = PhaseRoundEndPending

	next, ok := m.nextNarratorLocked(exclude)
	outcome := Outcome{
		RoundEnded:     true,
		NextRound:      m.round.Number + 1,
		NextNarratorID: next,
		Scores:         m.scoresLocked(),
		Cause:          cause,
	}
	if !ok {
		// Game over skips the bridge; the session schedules the terminal
		// transition after the fixed delay.
		m.gameOver = true
		outcome.GameOver = true
		return outcome
	}
	m.phase = PhaseNextRoundBridge
	return outcome
}

// PeekNextNarrator returns who would narrate next if the round ended now,
// excluding the given player, without mutating anything. false means the
// rotation is spent and the game would end.
func (m *Machine) PeekNextNarrator(exclude uuid.UUID) (uuid.UUID, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.round == nil {
		return uuid.Nil, false
	}
	// The current narrator counts as completed for the peek.
	for _, id := range m.rotation {
		if m.completed[id] || id == exclude || id == m.round.NarratorID {
			continue
		}
		return id, true
	}
	return uuid.Nil, false
}

// nextNarratorLocked returns the next player in the original rotation order
// who has not yet narrated, skipping the excluded player.
func (m *Machine) nextNarratorLocked(exclude uuid.UUID) (uuid.UUID, bool) {
	for _, id := range m.rotation {
		if m.completed[id] || id == exclude {
			continue
		}
		return id, true
	}
	return uuid.Nil, false
}

// applyDelta mutates a score through the clamp: scores can go deeply negative
// but never below the floor. Caller holds the lock.
func (m *Machine) applyDelta(playerID uuid.UUID, delta int) {
	score := m.scores[playerID] + delta
	if score < m.rules.MinScoreLimit {
		score = m.rules.MinScoreLimit
	}
	m.scores[playerID] = score
}

// scoresLocked returns the absolute scores in a stable order. Caller holds
// the lock.
func (m *Machine) scoresLocked() []models.PlayerScore {
	out := make([]models.PlayerScore, 0, len(m.scores))
	for id, score := range m.scores {
		out = append(out, models.PlayerScore{ID: id, Score: score})
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].ID.String() < out[j].ID.String()
	})
	return out
}

// FinishGame moves the machine to its terminal phase. The scoreboard is
// frozen from here on.
func (m *Machine) FinishGame() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.phase = PhaseGameOver
	m.gameOver = true
}
