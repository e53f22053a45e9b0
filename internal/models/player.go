package models

import (
	"time"

	"github.com/google/uuid"
)

// Player represents a participant in a game session. Players are created on
// join and never deleted during a session; the score is mutated only through
// the score protocol, which clamps every delta at the floor.
type Player struct {
	ID             uuid.UUID `json:"id"`
	GameID         uuid.UUID `json:"game_id"`
	Name           string    `json:"name"`
	IsHost         bool      `json:"is_host"`
	Score          int       `json:"score"`
	BuzzerSoundURL *string   `json:"buzzer_sound_url,omitempty"`
	CreatedAt      time.Time `json:"created_at"`
}

// PlayerScore is the wire form of a score: always the absolute post-update
// value, never a delta, so duplicate or reordered delivery cannot double-count.
type PlayerScore struct {
	ID    uuid.UUID `json:"id"`
	Score int       `json:"score"`
}
