package round

import (
	"fmt"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/velasco/buzzroom/internal/config"
	"github.com/velasco/buzzroom/internal/game/events"
	"github.com/velasco/buzzroom/internal/models"
)

func testPlayers(n int) []models.Player {
	players := make([]models.Player, n)
	for i := range players {
		players[i] = models.Player{
			ID:   uuid.New(),
			Name: fmt.Sprintf("player-%d", i),
		}
	}
	players[0].IsHost = true
	return players
}

func testQuestions(n int) []models.Question {
	qs := make([]models.Question, n)
	for i := range qs {
		qs[i] = models.Question{
			ID:       fmt.Sprintf("q-%d", i),
			Category: "history",
			Text:     map[string]string{"en": "q"},
			Answer:   map[string]string{"en": "a"},
		}
	}
	return qs
}

func startedMachine(t *testing.T, players []models.Player, questions int) *Machine {
	t.Helper()
	m := NewMachine(config.DefaultRules(), players)
	m.StartRound(1, players[0].ID, testQuestions(questions), time.Now())
	return m
}

func reveal(t *testing.T, m *Machine) (int, string) {
	t.Helper()
	idx, qid, ok := m.Reveal()
	require.True(t, ok)
	return idx, qid
}

func TestJudgingScenario(t *testing.T) {
	// 3 players [A(host/narrator), B, C], round 1, question 0:
	// B buzzes then C buzzes, narrator marks B correct.
	players := testPlayers(3)
	a, b, c := players[0], players[1], players[2]
	m := startedMachine(t, players, 7)
	rules := config.DefaultRules()

	idx, qid := reveal(t, m)
	require.True(t, m.Buzz(b.ID, b.Name, idx, qid, time.Now()))
	require.True(t, m.Buzz(c.ID, c.Name, idx, qid, time.Now()))

	entries := m.BuzzEntries()
	require.Len(t, entries, 2)
	assert.Equal(t, b.ID, entries[0].PlayerID)
	assert.Equal(t, c.ID, entries[1].PlayerID)

	outcome, ok := m.CorrectAnswer(b.ID)
	require.True(t, ok)
	assert.True(t, outcome.Advanced)
	assert.Equal(t, 1, outcome.QuestionIndex)
	assert.Equal(t, rules.CorrectAnswerPoints, m.Score(b.ID))
	assert.Equal(t, 0, m.Score(a.ID))
	assert.Empty(t, m.BuzzEntries(), "queue clears on a correct answer")

	// C's earlier buzz is already cleared; judging it again is a no-op.
	_, ok = m.CorrectAnswer(c.ID)
	assert.False(t, ok)
}

func TestWrongAnswerKeepsRemainingQueue(t *testing.T) {
	players := testPlayers(3)
	b, c := players[1], players[2]
	m := startedMachine(t, players, 7)
	rules := config.DefaultRules()

	idx, qid := reveal(t, m)
	require.True(t, m.Buzz(b.ID, b.Name, idx, qid, time.Now()))
	require.True(t, m.Buzz(c.ID, c.Name, idx, qid, time.Now()))

	outcome, ok := m.WrongAnswer(b.ID)
	require.True(t, ok)
	assert.False(t, outcome.Advanced)
	assert.Equal(t, rules.WrongAnswerPoints, m.Score(b.ID))

	head, ok := m.BuzzHead()
	require.True(t, ok)
	assert.Equal(t, c.ID, head.PlayerID)
	assert.Equal(t, PhaseAnswerPending, m.Phase())

	// Last entry wrong too: queue empties and the question advances.
	outcome, ok = m.WrongAnswer(c.ID)
	require.True(t, ok)
	assert.True(t, outcome.Advanced)
	assert.Equal(t, PhaseAwaitingReveal, m.Phase())
}

func TestScoreFloor(t *testing.T) {
	// A floor tight enough that one round of wrong answers crosses it.
	rules := config.DefaultRules()
	rules.MinScoreLimit = -12
	players := testPlayers(2)
	b := players[1]
	m := NewMachine(rules, players)
	m.StartRound(1, players[0].ID, testQuestions(7), time.Now())

	for {
		idx, qid, ok := m.Reveal()
		if !ok {
			break
		}
		require.True(t, m.Buzz(b.ID, b.Name, idx, qid, time.Now()))
		_, ok = m.WrongAnswer(b.ID)
		require.True(t, ok)
		assert.GreaterOrEqual(t, m.Score(b.ID), rules.MinScoreLimit)
	}
	assert.Equal(t, rules.MinScoreLimit, m.Score(b.ID))
}

func TestBuzzStaleQuestionDiscarded(t *testing.T) {
	players := testPlayers(3)
	b := players[1]
	m := startedMachine(t, players, 7)

	idx, qid := reveal(t, m)
	require.True(t, m.Buzz(b.ID, b.Name, idx, qid, time.Now()))
	_, ok := m.CorrectAnswer(b.ID)
	require.True(t, ok)

	// A late buzz tagged with the previous question never enters the queue.
	assert.False(t, m.Buzz(players[2].ID, players[2].Name, idx, qid, time.Now()))
	assert.Empty(t, m.BuzzEntries())
}

func TestTimeUpAdvancesWithCause(t *testing.T) {
	players := testPlayers(2)
	m := startedMachine(t, players, 7)
	reveal(t, m)

	for i := 0; i < int(config.DefaultRules().QuestionTimer.Seconds())-1; i++ {
		_, expired := m.Tick()
		require.False(t, expired)
	}
	left, expired := m.Tick()
	assert.Equal(t, 0, left)
	require.True(t, expired)

	outcome, ok := m.TimeUp()
	require.True(t, ok)
	assert.True(t, outcome.Advanced)
	assert.Equal(t, events.CauseTimeUp, outcome.Cause)
}

func TestRoundRobinCompleteness(t *testing.T) {
	// With N players and a fixed rotation, after N rounds every player has
	// narrated exactly once and only then does the game end.
	const n = 4
	players := testPlayers(n)
	m := NewMachine(config.DefaultRules(), players)

	narrators := make(map[uuid.UUID]int)
	narrator := players[0].ID
	for r := 1; ; r++ {
		m.StartRound(r, narrator, testQuestions(1), time.Now())
		narrators[narrator]++

		idx, qid, ok := m.Reveal()
		require.True(t, ok)
		answerer := players[(r)%n]
		require.True(t, m.Buzz(answerer.ID, answerer.Name, idx, qid, time.Now()))
		outcome, ok := m.CorrectAnswer(answerer.ID)
		require.True(t, ok)
		require.True(t, outcome.RoundEnded)

		if outcome.GameOver {
			assert.Equal(t, n, r, "game over only after the Nth narrator's round")
			break
		}
		assert.False(t, m.IsGameOver())
		narrator = outcome.NextNarratorID
	}

	require.Len(t, narrators, n)
	for id, count := range narrators {
		assert.Equal(t, 1, count, "player %s narrated %d times", id, count)
	}
}

func TestEndRoundEarlyExcludesDroppedNarrator(t *testing.T) {
	players := testPlayers(3)
	a, b := players[0], players[1]
	m := startedMachine(t, players, 7)
	reveal(t, m)

	outcome, ok := m.EndRoundEarly(a.ID, events.CauseNarratorDisconnect)
	require.True(t, ok)
	assert.True(t, outcome.RoundEnded)
	assert.False(t, outcome.GameOver)
	assert.Equal(t, b.ID, outcome.NextNarratorID)
	assert.Equal(t, events.CauseNarratorDisconnect, outcome.Cause)
}

func TestGameOverSkipsBridge(t *testing.T) {
	players := testPlayers(1)
	m := startedMachine(t, players, 1)
	reveal(t, m)

	outcome, ok := m.TimeUp()
	require.True(t, ok)
	require.True(t, outcome.GameOver)
	assert.Equal(t, PhaseRoundEndPending, m.Phase())

	m.FinishGame()
	assert.Equal(t, PhaseGameOver, m.Phase())
}
