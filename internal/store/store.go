package store

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
)

// Store bundles the Postgres repositories over one connection pool. The
// store is durability and recovery only: live play is coordinated over the
// relay, and a lost write never blocks local state.
type Store struct {
	pool *pgxpool.Pool

	Games         *GameRepo
	Players       *PlayerRepo
	Answers       *AnswerRepo
	Questions     *QuestionRepo
	UsedQuestions *UsedQuestionRepo
}

// New connects the pool and wires the repositories.
func New(ctx context.Context, dsn string) (*Store, error) {
	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to create connection pool: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	return &Store{
		pool:          pool,
		Games:         &GameRepo{pool: pool},
		Players:       &PlayerRepo{pool: pool},
		Answers:       &AnswerRepo{pool: pool},
		Questions:     &QuestionRepo{pool: pool},
		UsedQuestions: &UsedQuestionRepo{pool: pool},
	}, nil
}

// Close releases the connection pool.
func (s *Store) Close() {
	s.pool.Close()
}
