package store

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/velasco/buzzroom/internal/models"
)

// QuestionRepo reads the question content pool. Content authoring is out of
// scope; rows arrive through seeding or external tooling.
type QuestionRepo struct {
	pool *pgxpool.Pool
}

// ListAvailable returns every question for a game type, localized text as
// JSONB maps keyed by language.
func (r *QuestionRepo) ListAvailable(ctx context.Context, gameType string) ([]models.Question, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT id, category, text, answer
		 FROM questions WHERE game_type = $1
		 ORDER BY category, id`,
		gameType,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to list questions: %w", err)
	}
	defer rows.Close()

	var questions []models.Question
	for rows.Next() {
		var q models.Question
		if err := rows.Scan(&q.ID, &q.Category, &q.Text, &q.Answer); err != nil {
			return nil, fmt.Errorf("failed to scan question: %w", err)
		}
		questions = append(questions, q)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to list questions: %w", err)
	}
	return questions, nil
}
