package session

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/velasco/buzzroom/internal/game/events"
	"github.com/velasco/buzzroom/internal/models"
)

// timerLoop drives the authoritative countdown. It runs on every replica but
// only the current narrator's replica acts on a tick, so a narrator hand-off
// moves the countdown without any timer restart protocol.
func (s *Session) timerLoop(ctx context.Context) {
	ticker := s.cfg.Clock.NewTicker(time.Second)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.Chan():
			if !s.IsNarrator() {
				continue
			}
			left, expired := s.machine.Tick()
			if expired {
				if outcome, ok := s.machine.TimeUp(); ok {
					s.broadcastOutcome(ctx, outcome)
				}
				continue
			}
			if left == 0 {
				// No question counting down right now.
				continue
			}
			r, ok := s.machine.Round()
			if !ok {
				continue
			}
			s.publish(ctx, events.EventTypeTimeSync, events.TimeSyncPayload{
				QuestionIndex: r.QuestionIdx,
				TimeLeftSec:   left,
			})
		}
	}
}

// sequenceRoundEnd schedules the transition out of a round end. After the
// bridge delay the incoming narrator's replica selects the next round's
// questions and announces them; on game over every replica moves to the
// terminal state after the fixed delay, and only the originating replica
// writes the completed status.
func (s *Session) sequenceRoundEnd(gameOver bool, nextNarratorID uuid.UUID, nextRound int, origin bool) {
	ctx := s.runCtx
	if ctx == nil {
		return
	}

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()

		if gameOver {
			select {
			case <-ctx.Done():
				return
			case <-s.cfg.Clock.After(s.cfg.Rules.GameOverDelay):
			}
			s.machine.FinishGame()
			if origin {
				s.persistStatus(ctx, models.GameStatusCompleted)
			}
			return
		}

		select {
		case <-ctx.Done():
			return
		case <-s.cfg.Clock.After(s.cfg.Rules.BridgeDelay):
		}
		if nextNarratorID != s.cfg.Self.ID {
			return
		}

		questions, err := s.cfg.Selector.SelectRound(ctx, s.cfg.Available, s.cfg.Rules.Categories, nextRound)
		if err != nil {
			log.Error().
				Err(err).
				Int("round", nextRound).
				Str("game_id", s.cfg.GameID.String()).
				Msg("failed to select next round")
			return
		}

		now := s.cfg.Clock.Now()
		s.machine.StartRound(nextRound, nextNarratorID, questions, now)
		s.monitor.NoteRoundStart(now)
		s.publish(ctx, events.EventTypeRoundStart, events.RoundStartPayload{
			RoundNumber: nextRound,
			NarratorID:  nextNarratorID,
			Questions:   questions,
			StartedAt:   now,
		})
	}()
}

// handleNarratorDrop is the monitor's callback for a narrator going inactive
// mid-round. Every replica's monitor fires, so the hand-off is gated: only
// the replica that would narrate next performs the early round end and
// broadcasts it. With nobody left to narrate, the first surviving player in
// the rotation announces the game over instead.
func (s *Session) handleNarratorDrop(narratorID uuid.UUID) {
	ctx := s.runCtx
	if ctx == nil {
		return
	}

	next, ok := s.machine.PeekNextNarrator(narratorID)
	if ok {
		if next != s.cfg.Self.ID {
			return
		}
	} else if !s.firstSurvivor(narratorID) {
		return
	}

	outcome, ended := s.machine.EndRoundEarly(narratorID, events.CauseNarratorDisconnect)
	if !ended {
		return
	}
	log.Info().
		Str("game_id", s.cfg.GameID.String()).
		Str("narrator_id", narratorID.String()).
		Bool("game_over", outcome.GameOver).
		Msg("narrator inactive, ending round early")
	s.broadcastOutcome(ctx, outcome)
}

func (s *Session) firstSurvivor(exclude uuid.UUID) bool {
	for _, id := range s.machine.RotationOrder() {
		if id == exclude {
			continue
		}
		return id == s.cfg.Self.ID
	}
	return false
}
