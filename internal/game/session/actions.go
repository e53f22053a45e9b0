package session

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/velasco/buzzroom/internal/game/events"
	"github.com/velasco/buzzroom/internal/game/round"
	"github.com/velasco/buzzroom/internal/models"
)

// StartGame begins round one. Host only: the host's replica selects the
// questions, fixes the narrator rotation and announces both to everyone.
func (s *Session) StartGame(ctx context.Context) error {
	if !s.cfg.Self.IsHost {
		return fmt.Errorf("only the host can start the game")
	}

	questions, err := s.cfg.Selector.SelectRound(ctx, s.cfg.Available, s.cfg.Rules.Categories, 1)
	if err != nil {
		return fmt.Errorf("failed to select round one: %w", err)
	}

	rotation := s.machine.RotationOrder()
	if len(rotation) == 0 {
		return fmt.Errorf("cannot start a game with no players")
	}
	narrator := rotation[0]
	now := s.cfg.Clock.Now()

	// Optimistic local start first; the broadcast and the store write are
	// independent best-effort effects.
	s.machine.StartRound(1, narrator, questions, now)
	s.monitor.NoteRoundStart(now)

	s.publish(ctx, events.EventTypeGameStart, events.GameStartPayload{
		RoundNumber:   1,
		NarratorID:    narrator,
		RotationOrder: rotation,
		Questions:     questions,
		StartedAt:     now,
	})
	s.persistStatus(ctx, models.GameStatusActive)
	return nil
}

// Reveal is the narrator's explicit reveal of the current question.
func (s *Session) Reveal(ctx context.Context) error {
	if !s.IsNarrator() {
		return ErrNotNarrator
	}
	idx, qid, ok := s.machine.Reveal()
	if !ok {
		return fmt.Errorf("no question awaiting reveal")
	}

	s.publish(ctx, events.EventTypeQuestionReveal, events.QuestionRevealPayload{
		QuestionIndex: idx,
		QuestionID:    qid,
		RevealedAt:    s.cfg.Clock.Now(),
	})
	return nil
}

// Buzz signals that this player wants to answer. The local echo applies
// immediately; the relay publish and the answer-log insert follow as two
// order-unconstrained side effects of the one action.
func (s *Session) Buzz(ctx context.Context) bool {
	r, ok := s.machine.Round()
	if !ok {
		return false
	}
	q, ok := s.machine.CurrentQuestion()
	if !ok {
		return false
	}

	accepted := s.machine.Buzz(s.cfg.Self.ID, s.cfg.Self.Name, r.QuestionIdx, q.ID, s.cfg.Clock.Now())
	if !accepted {
		return false
	}

	s.publish(ctx, events.EventTypeBuzz, events.BuzzPayload{
		PlayerID:      s.cfg.Self.ID,
		PlayerName:    s.cfg.Self.Name,
		QuestionIndex: r.QuestionIdx,
		QuestionID:    q.ID,
		BuzzedAt:      s.cfg.Clock.Now(),
	})
	if s.cfg.Persist != nil {
		if _, err := s.cfg.Persist.RecordBuzz(ctx, s.cfg.GameID, q.ID, s.cfg.Self.ID); err != nil {
			log.Warn().Err(err).Str("player_id", s.cfg.Self.ID.String()).Msg("failed to persist buzz")
		}
	}
	return true
}

// Judge resolves the given player's buzz. Narrator only.
func (s *Session) Judge(ctx context.Context, playerID uuid.UUID, correct bool) error {
	if !s.IsNarrator() {
		return ErrNotNarrator
	}

	var outcome round.Outcome
	var ok bool
	if correct {
		outcome, ok = s.machine.CorrectAnswer(playerID)
	} else {
		outcome, ok = s.machine.WrongAnswer(playerID)
	}
	if !ok {
		return fmt.Errorf("player %s has no pending buzz", playerID)
	}

	s.broadcastOutcome(ctx, outcome)
	return nil
}

// NextQuestion is the narrator's explicit skip: identical to the timer
// running out except for the cause tag.
func (s *Session) NextQuestion(ctx context.Context) error {
	if !s.IsNarrator() {
		return ErrNotNarrator
	}
	outcome, ok := s.machine.TimeUp()
	if !ok {
		return fmt.Errorf("no active question to advance")
	}
	outcome.Cause = events.CauseNarratorAction
	s.broadcastOutcome(ctx, outcome)
	return nil
}

// broadcastOutcome turns a local transition into the matching protocol event
// and schedules any follow-up sequencing.
func (s *Session) broadcastOutcome(ctx context.Context, outcome round.Outcome) {
	switch {
	case outcome.RoundEnded:
		s.publish(ctx, events.EventTypeRoundEnd, events.RoundEndPayload{
			NextRound:      outcome.NextRound,
			NextNarratorID: outcome.NextNarratorID,
			Scores:         outcome.Scores,
			IsGameOver:     outcome.GameOver,
			Cause:          outcome.Cause,
		})
		s.persistScores(ctx, outcome.Scores)
		s.sequenceRoundEnd(outcome.GameOver, outcome.NextNarratorID, outcome.NextRound, true)

	case outcome.Advanced:
		s.publish(ctx, events.EventTypeNextQuestion, events.NextQuestionPayload{
			QuestionIndex: outcome.QuestionIndex,
			Scores:        outcome.Scores,
			Cause:         outcome.Cause,
		})
		s.persistScores(ctx, outcome.Scores)

	default:
		// Wrong answer with players still queued: scores changed, the
		// question did not.
		s.publish(ctx, events.EventTypeScoreUpdate, events.ScoreUpdatePayload{
			Scores: outcome.Scores,
		})
		s.persistScores(ctx, outcome.Scores)
	}
}

// publish wraps and sends a protocol event. Failures are transient-remote:
// logged, local state stands, the next action is the retry.
func (s *Session) publish(ctx context.Context, eventType events.EventType, payload any) {
	env, err := events.NewEnvelope(s.cfg.GameID, eventType, payload, s.cfg.Clock.Now())
	if err != nil {
		log.Error().Err(err).Str("event_type", string(eventType)).Msg("failed to build envelope")
		return
	}
	if err := s.cfg.Channel.Publish(ctx, env); err != nil {
		log.Warn().
			Err(err).
			Str("event_type", string(eventType)).
			Str("game_id", s.cfg.GameID.String()).
			Msg("failed to publish event")
	}
}

func (s *Session) persistScores(ctx context.Context, scores []models.PlayerScore) {
	if s.cfg.Persist == nil {
		return
	}
	if err := s.cfg.Persist.UpdateScores(ctx, scores); err != nil {
		log.Warn().Err(err).Str("game_id", s.cfg.GameID.String()).Msg("failed to persist scores")
	}
}

func (s *Session) persistStatus(ctx context.Context, status models.GameStatus) {
	if s.cfg.Persist == nil {
		return
	}
	if err := s.cfg.Persist.UpdateStatus(ctx, s.cfg.GameID, status); err != nil {
		log.Warn().
			Err(err).
			Str("game_id", s.cfg.GameID.String()).
			Str("status", string(status)).
			Msg("failed to persist game status")
	}
}
