package events

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// EventType identifies a broadcast protocol message.
type EventType string

const (
	EventTypeGameStart      EventType = "GAME_START"
	EventTypeRoundStart     EventType = "ROUND_START"
	EventTypeQuestionReveal EventType = "QUESTION_REVEAL"
	EventTypeBuzz           EventType = "BUZZ"
	EventTypeNextQuestion   EventType = "NEXT_QUESTION"
	EventTypeScoreUpdate    EventType = "SCORE_UPDATE"
	EventTypeTimeSync       EventType = "TIME_SYNC"
	EventTypeRoundEnd       EventType = "ROUND_END"
)

// Envelope is the wire frame for every relay message. Delivery is best-effort
// and unordered; every consumer must apply envelopes idempotently.
type Envelope struct {
	EventID   string          `json:"event_id"`
	GameID    string          `json:"game_id"`
	Type      EventType       `json:"type"`
	Timestamp time.Time       `json:"timestamp"`
	Payload   json.RawMessage `json:"payload"`
}

// NewEnvelope wraps a payload in a fresh envelope for the given game,
// stamped with the caller's clock reading.
func NewEnvelope(gameID uuid.UUID, eventType EventType, payload any, at time.Time) (Envelope, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return Envelope{}, fmt.Errorf("failed to marshal %s payload: %w", eventType, err)
	}
	return Envelope{
		EventID:   uuid.New().String(),
		GameID:    gameID.String(),
		Type:      eventType,
		Timestamp: at.UTC(),
		Payload:   data,
	}, nil
}

// ParsePayload decodes an envelope's payload into its typed form. Unknown
// event types yield (nil, nil) so consumers can skip them silently.
func ParsePayload(env Envelope) (any, error) {
	switch env.Type {
	case EventTypeGameStart:
		var payload GameStartPayload
		if err := json.Unmarshal(env.Payload, &payload); err != nil {
			return nil, fmt.Errorf("failed to unmarshal %s payload: %w", env.Type, err)
		}
		return payload, nil

	case EventTypeRoundStart:
		var payload RoundStartPayload
		if err := json.Unmarshal(env.Payload, &payload); err != nil {
			return nil, fmt.Errorf("failed to unmarshal %s payload: %w", env.Type, err)
		}
		return payload, nil

	case EventTypeQuestionReveal:
		var payload QuestionRevealPayload
		if err := json.Unmarshal(env.Payload, &payload); err != nil {
			return nil, fmt.Errorf("failed to unmarshal %s payload: %w", env.Type, err)
		}
		return payload, nil

	case EventTypeBuzz:
		var payload BuzzPayload
		if err := json.Unmarshal(env.Payload, &payload); err != nil {
			return nil, fmt.Errorf("failed to unmarshal %s payload: %w", env.Type, err)
		}
		return payload, nil

	case EventTypeNextQuestion:
		var payload NextQuestionPayload
		if err := json.Unmarshal(env.Payload, &payload); err != nil {
			return nil, fmt.Errorf("failed to unmarshal %s payload: %w", env.Type, err)
		}
		return payload, nil

	case EventTypeScoreUpdate:
		var payload ScoreUpdatePayload
		if err := json.Unmarshal(env.Payload, &payload); err != nil {
			return nil, fmt.Errorf("failed to unmarshal %s payload: %w", env.Type, err)
		}
		return payload, nil

	case EventTypeTimeSync:
		var payload TimeSyncPayload
		if err := json.Unmarshal(env.Payload, &payload); err != nil {
			return nil, fmt.Errorf("failed to unmarshal %s payload: %w", env.Type, err)
		}
		return payload, nil

	case EventTypeRoundEnd:
		var payload RoundEndPayload
		if err := json.Unmarshal(env.Payload, &payload); err != nil {
			return nil, fmt.Errorf("failed to unmarshal %s payload: %w", env.Type, err)
		}
		return payload, nil

	default:
		return nil, nil
	}
}
