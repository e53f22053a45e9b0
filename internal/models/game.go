package models

import (
	"time"

	"github.com/google/uuid"
)

// GameStatus defines the lifecycle status of a game session.
type GameStatus string

const (
	GameStatusWaiting   GameStatus = "waiting"
	GameStatusActive    GameStatus = "active"
	GameStatusCompleted GameStatus = "completed"
)

// Game represents one trivia session, joinable by PIN.
type Game struct {
	ID        uuid.UUID  `json:"id"`
	PinCode   string     `json:"pin_code"`
	Status    GameStatus `json:"status"`
	GameType  string     `json:"game_type"`
	CreatedAt time.Time  `json:"created_at"`
	UpdatedAt time.Time  `json:"updated_at"`
}
