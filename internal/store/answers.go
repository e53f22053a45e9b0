package store

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/velasco/buzzroom/internal/models"
)

// AnswerRepo persists the append-only buzz log. One row per (question,
// player); the insert is idempotent so replaying a buzz is harmless. The
// table doubles as the durable fallback path for the buzz fast path on the
// relay, via the change feed.
type AnswerRepo struct {
	pool *pgxpool.Pool
}

// RecordBuzz appends a buzz row. Returns false when the player already
// buzzed this question.
func (r *AnswerRepo) RecordBuzz(ctx context.Context, gameID uuid.UUID, questionID string, playerID uuid.UUID) (bool, error) {
	tag, err := r.pool.Exec(ctx,
		`INSERT INTO player_answers (game_id, question_id, player_id)
		 VALUES ($1, $2, $3)
		 ON CONFLICT (question_id, player_id) DO NOTHING`,
		gameID, questionID, playerID,
	)
	if err != nil {
		return false, fmt.Errorf("failed to record buzz: %w", err)
	}
	return tag.RowsAffected() > 0, nil
}

// ListBuzzes returns the buzz log for a question in arrival order.
func (r *AnswerRepo) ListBuzzes(ctx context.Context, gameID uuid.UUID, questionID string) ([]models.BuzzEntry, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT pa.player_id, p.name, pa.created_at
		 FROM player_answers pa
		 JOIN players p ON p.id = pa.player_id
		 WHERE pa.game_id = $1 AND pa.question_id = $2
		 ORDER BY pa.created_at, pa.player_id`,
		gameID, questionID,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to list buzzes: %w", err)
	}
	defer rows.Close()

	var entries []models.BuzzEntry
	for rows.Next() {
		var e models.BuzzEntry
		var at time.Time
		if err := rows.Scan(&e.PlayerID, &e.PlayerName, &at); err != nil {
			return nil, fmt.Errorf("failed to scan buzz: %w", err)
		}
		e.BuzzedAt = at
		entries = append(entries, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to list buzzes: %w", err)
	}
	return entries, nil
}
