package round

import (
	"github.com/google/uuid"

	"github.com/velasco/buzzroom/internal/models"
)

// Phase returns the current phase.
func (m *Machine) Phase() Phase {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.phase
}

// Round returns a copy of the current round, or false before game start.
func (m *Machine) Round() (models.Round, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.round == nil {
		return models.Round{}, false
	}
	r := *m.round
	r.Questions = make([]models.Question, len(m.round.Questions))
	copy(r.Questions, m.round.Questions)
	return r, true
}

// CurrentQuestion returns the active question, or false when none is active.
func (m *Machine) CurrentQuestion() (models.Question, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.round == nil {
		return models.Question{}, false
	}
	return m.round.CurrentQuestion()
}

// NarratorID returns the current narrator, or uuid.Nil before game start.
func (m *Machine) NarratorID() uuid.UUID {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.round == nil {
		return uuid.Nil
	}
	return m.round.NarratorID
}

// TimeLeft returns the remaining seconds on the countdown.
func (m *Machine) TimeLeft() int {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.round == nil {
		return 0
	}
	return m.round.TimeLeftSec
}

// Scores returns the absolute scoreboard in stable order.
func (m *Machine) Scores() []models.PlayerScore {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.scoresLocked()
}

// Score returns a single player's score.
func (m *Machine) Score(playerID uuid.UUID) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.scores[playerID]
}

// IsGameOver reports whether no eligible narrator remains.
func (m *Machine) IsGameOver() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.gameOver
}

// BuzzEntries returns the current buzz queue in arrival order.
func (m *Machine) BuzzEntries() []models.BuzzEntry {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.queue == nil {
		return nil
	}
	return m.queue.Entries()
}

// BuzzHead returns the player currently answering, or false on an empty
// queue.
func (m *Machine) BuzzHead() (models.BuzzEntry, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.queue == nil {
		return models.BuzzEntry{}, false
	}
	return m.queue.Head()
}

// PanelRevealed reports whether a buzz has made the narrator panel visible
// for the current question.
func (m *Machine) PanelRevealed() bool {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.queue == nil {
		return false
	}
	return m.queue.PanelRevealed()
}

// AddPlayer registers a late joiner at the end of the rotation with a zero
// score. No-op for a player already known.
func (m *Machine) AddPlayer(p models.Player) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, known := m.names[p.ID]; known {
		return
	}
	m.rotation = append(m.rotation, p.ID)
	m.names[p.ID] = p.Name
	m.scores[p.ID] = p.Score
}
