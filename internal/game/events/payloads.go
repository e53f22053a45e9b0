package events

import (
	"time"

	"github.com/google/uuid"

	"github.com/velasco/buzzroom/internal/models"
)

// Event payload types shared between the session replica, gateway and relay.

// GameStartPayload announces the start of a game: the full round-one state
// every replica boots from, including the narrator rotation fixed for the
// whole game.
type GameStartPayload struct {
	RoundNumber   int               `json:"round_number"`
	NarratorID    uuid.UUID         `json:"narrator_id"`
	RotationOrder []uuid.UUID       `json:"rotation_order"`
	Questions     []models.Question `json:"questions"`
	StartedAt     time.Time         `json:"started_at"`
}

// RoundStartPayload carries a new round's questions to every replica. The
// incoming narrator's replica runs question selection and broadcasts the
// result, so all replicas agree on the round's content.
type RoundStartPayload struct {
	RoundNumber int               `json:"round_number"`
	NarratorID  uuid.UUID         `json:"narrator_id"`
	Questions   []models.Question `json:"questions"`
	StartedAt   time.Time         `json:"started_at"`
}

// QuestionRevealPayload is the narrator's explicit reveal of the current
// question; non-narrator replicas stay in the awaiting phase until it arrives.
type QuestionRevealPayload struct {
	QuestionIndex int       `json:"question_index"`
	QuestionID    string    `json:"question_id"`
	RevealedAt    time.Time `json:"revealed_at"`
}

// BuzzPayload is the informational fast path for a buzz. The persisted answer
// row change feed is the fallback path; both are deduplicated by player ID.
// QuestionIndex and QuestionID tag the buzz so a late arrival for a stale
// question is discarded.
type BuzzPayload struct {
	PlayerID      uuid.UUID `json:"player_id"`
	PlayerName    string    `json:"player_name"`
	QuestionIndex int       `json:"question_index"`
	QuestionID    string    `json:"question_id"`
	BuzzedAt      time.Time `json:"buzzed_at"`
}

// NextQuestionPayload advances all replicas to the given question index and
// applies absolute scores.
type NextQuestionPayload struct {
	QuestionIndex int                  `json:"question_index"`
	Scores        []models.PlayerScore `json:"scores"`
	Cause         AdvanceCause         `json:"cause"`
}

// ScoreUpdatePayload applies absolute scores without advancing the question.
type ScoreUpdatePayload struct {
	Scores []models.PlayerScore `json:"scores"`
}

// TimeSyncPayload is the narrator's authoritative countdown broadcast. Other
// replicas mirror it locally but never self-advance the shared state.
type TimeSyncPayload struct {
	QuestionIndex int `json:"question_index"`
	TimeLeftSec   int `json:"time_left_sec"`
}

// RoundEndPayload closes a round and either hands off to the next narrator or
// flags game over.
type RoundEndPayload struct {
	NextRound      int                  `json:"next_round"`
	NextNarratorID uuid.UUID            `json:"next_narrator_id"`
	Scores         []models.PlayerScore `json:"scores"`
	IsGameOver     bool                 `json:"is_game_over"`
	Cause          AdvanceCause         `json:"cause"`
}

// AdvanceCause tags what triggered an advance, for client sound/feedback only.
type AdvanceCause string

const (
	CauseNarratorAction     AdvanceCause = "narrator_action"
	CauseTimeUp             AdvanceCause = "time_up"
	CauseNarratorDisconnect AdvanceCause = "narrator_disconnect"
)

// PresenceSnapshot is one player's heartbeat on the presence subject.
// Trackers rebuild their view from snapshots alone, last snapshot wins.
type PresenceSnapshot struct {
	PlayerID   uuid.UUID `json:"player_id"`
	PlayerName string    `json:"player_name"`
	LastSeenAt time.Time `json:"last_seen_at"`
}
