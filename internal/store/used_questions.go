package store

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
)

// UsedQuestionRepo persists the per-game used-question pool. ForGame adapts
// it to the selector's UsedPool interface.
type UsedQuestionRepo struct {
	pool *pgxpool.Pool
}

// GameUsedPool is the used pool scoped to a single game.
type GameUsedPool struct {
	repo   *UsedQuestionRepo
	gameID uuid.UUID
}

// ForGame scopes the repo to one game.
func (r *UsedQuestionRepo) ForGame(gameID uuid.UUID) *GameUsedPool {
	return &GameUsedPool{repo: r, gameID: gameID}
}

// Used returns the set of question IDs already shown in this game.
func (p *GameUsedPool) Used(ctx context.Context) (map[string]bool, error) {
	rows, err := p.repo.pool.Query(ctx,
		`SELECT question_id FROM used_questions WHERE game_id = $1`,
		p.gameID,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to load used questions: %w", err)
	}
	defer rows.Close()

	used := make(map[string]bool)
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("failed to scan used question: %w", err)
		}
		used[id] = true
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to load used questions: %w", err)
	}
	return used, nil
}

// MarkUsed records question IDs as shown. Idempotent.
func (p *GameUsedPool) MarkUsed(ctx context.Context, ids []string) error {
	if len(ids) == 0 {
		return nil
	}
	_, err := p.repo.pool.Exec(ctx,
		`INSERT INTO used_questions (game_id, question_id)
		 SELECT $1, unnest($2::text[])
		 ON CONFLICT (game_id, question_id) DO NOTHING`,
		p.gameID, ids,
	)
	if err != nil {
		return fmt.Errorf("failed to mark questions used: %w", err)
	}
	return nil
}

// Reset clears the game's entire pool. Invoked only on exhaustion.
func (p *GameUsedPool) Reset(ctx context.Context) error {
	_, err := p.repo.pool.Exec(ctx,
		`DELETE FROM used_questions WHERE game_id = $1`,
		p.gameID,
	)
	if err != nil {
		return fmt.Errorf("failed to reset used questions: %w", err)
	}
	return nil
}
