package session

import (
	"context"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/velasco/buzzroom/internal/game/events"
)

// eventLoop consumes the relay channel and folds every incoming event into
// the local replica. Handlers are idempotent, so duplicates, reordering and
// the replica's own echoed publishes all collapse to no-ops.
func (s *Session) eventLoop(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case env, ok := <-s.cfg.Channel.Events():
			if !ok {
				return
			}
			s.handleEvent(env)
		case snap, ok := <-s.cfg.Channel.Presence():
			if !ok {
				return
			}
			s.tracker.Observe(snap)
		case n, ok := <-s.cfg.Feed:
			if !ok {
				// nil channel blocks forever, so a closed feed stops
				// waking the loop.
				s.cfg.Feed = nil
				continue
			}
			s.ApplyRemoteBuzz(n.PlayerID, n.PlayerName, n.QuestionID)
		}
	}
}

func (s *Session) handleEvent(env events.Envelope) {
	if env.GameID != s.cfg.GameID.String() {
		return
	}

	payload, err := events.ParsePayload(env)
	if err != nil {
		log.Warn().
			Err(err).
			Str("event_type", string(env.Type)).
			Str("event_id", env.EventID).
			Msg("dropping undecodable event")
		return
	}

	switch p := payload.(type) {
	case events.GameStartPayload:
		s.machine.ApplyRotation(p.RotationOrder)
		if s.machine.ApplyRoundStart(p.RoundNumber, p.NarratorID, p.Questions, p.StartedAt) {
			s.monitor.NoteRoundStart(p.StartedAt)
		}

	case events.RoundStartPayload:
		if s.machine.ApplyRoundStart(p.RoundNumber, p.NarratorID, p.Questions, p.StartedAt) {
			s.monitor.NoteRoundStart(p.StartedAt)
		}

	case events.QuestionRevealPayload:
		s.machine.ApplyReveal(p.QuestionIndex, p.QuestionID)

	case events.BuzzPayload:
		s.machine.Buzz(p.PlayerID, p.PlayerName, p.QuestionIndex, p.QuestionID, p.BuzzedAt)

	case events.NextQuestionPayload:
		s.machine.ApplyNextQuestion(p.QuestionIndex, p.Scores)

	case events.ScoreUpdatePayload:
		s.machine.ApplyScores(p.Scores)

	case events.TimeSyncPayload:
		// The narrator's own countdown is authoritative; everyone else
		// mirrors.
		if !s.IsNarrator() {
			s.machine.ApplyTimeSync(p.QuestionIndex, p.TimeLeftSec)
		}

	case events.RoundEndPayload:
		if s.machine.ApplyRoundEnd(p.NextRound, p.NextNarratorID, p.Scores, p.IsGameOver) {
			s.sequenceRoundEnd(p.IsGameOver, p.NextNarratorID, p.NextRound, false)
		}
	}
}

// ApplyRemoteBuzz folds a buzz delivered through the persisted answer feed.
// It is the fallback path for the BUZZ event: it matches only the current
// question and reuses the buzz dedup, so a feed row and a relay event for
// the same press count once.
func (s *Session) ApplyRemoteBuzz(playerID uuid.UUID, playerName, questionID string) bool {
	r, ok := s.machine.Round()
	if !ok {
		return false
	}
	q, ok := s.machine.CurrentQuestion()
	if !ok || q.ID != questionID {
		return false
	}
	return s.machine.Buzz(playerID, playerName, r.QuestionIdx, questionID, s.cfg.Clock.Now())
}
