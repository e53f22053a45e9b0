package models

import (
	"time"

	"github.com/google/uuid"
)

// BuzzEntry is one player's claim to answer the active question. At most one
// entry per player per question; entries keep arrival order, and the head of
// the queue is the player currently answering.
type BuzzEntry struct {
	PlayerID   uuid.UUID `json:"player_id"`
	PlayerName string    `json:"player_name"`
	BuzzedAt   time.Time `json:"buzzed_at"`
}

// Round is one narrator's turn: a fixed-length sequence of questions plus the
// live countdown and buzz state. Exactly one round is current per replica at
// any time; a new round supersedes the old one rather than mutating it.
type Round struct {
	Number      int        `json:"number"` // starts at 1, monotonic
	NarratorID  uuid.UUID  `json:"narrator_id"`
	Questions   []Question `json:"questions"`
	QuestionIdx int        `json:"question_idx"`
	TimeLeftSec int        `json:"time_left_sec"`
	StartedAt   time.Time  `json:"started_at"`
}

// CurrentQuestion returns the active question, or false when the index is out
// of range (e.g. a degraded round with fewer questions than categories).
func (r *Round) CurrentQuestion() (Question, bool) {
	if r == nil || r.QuestionIdx < 0 || r.QuestionIdx >= len(r.Questions) {
		return Question{}, false
	}
	return r.Questions[r.QuestionIdx], true
}
