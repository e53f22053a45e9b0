package store

import (
	"context"
	"errors"
	"fmt"
	"math/rand"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/velasco/buzzroom/internal/models"
)

// ErrGameNotFound is returned when no game matches the lookup.
var ErrGameNotFound = errors.New("game not found")

const uniqueViolation = "23505"

// GameRepo persists game rows.
type GameRepo struct {
	pool *pgxpool.Pool
}

// CreateGame inserts a new waiting game with a fresh 6-digit PIN, retrying
// on a PIN collision.
func (r *GameRepo) CreateGame(ctx context.Context, gameType string) (*models.Game, error) {
	const maxAttempts = 5
	for attempt := 0; attempt < maxAttempts; attempt++ {
		game := models.Game{
			ID:       uuid.New(),
			PinCode:  fmt.Sprintf("%06d", rand.Intn(1000000)),
			Status:   models.GameStatusWaiting,
			GameType: gameType,
		}

		row := r.pool.QueryRow(ctx,
			`INSERT INTO games (id, pin_code, status, game_type)
			 VALUES ($1, $2, $3, $4)
			 RETURNING created_at, updated_at`,
			game.ID, game.PinCode, game.Status, game.GameType,
		)
		err := row.Scan(&game.CreatedAt, &game.UpdatedAt)
		if err == nil {
			return &game, nil
		}

		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
			continue
		}
		return nil, fmt.Errorf("failed to create game: %w", err)
	}
	return nil, fmt.Errorf("failed to create game: no free pin after %d attempts", maxAttempts)
}

// GetGame fetches a game by ID.
func (r *GameRepo) GetGame(ctx context.Context, id uuid.UUID) (*models.Game, error) {
	return r.scanGame(r.pool.QueryRow(ctx,
		`SELECT id, pin_code, status, game_type, created_at, updated_at
		 FROM games WHERE id = $1`, id,
	))
}

// GetGameByPin fetches a joinable game by its PIN.
func (r *GameRepo) GetGameByPin(ctx context.Context, pin string) (*models.Game, error) {
	return r.scanGame(r.pool.QueryRow(ctx,
		`SELECT id, pin_code, status, game_type, created_at, updated_at
		 FROM games WHERE pin_code = $1 AND status != $2`,
		pin, models.GameStatusCompleted,
	))
}

// UpdateStatus transitions a game's lifecycle status.
func (r *GameRepo) UpdateStatus(ctx context.Context, id uuid.UUID, status models.GameStatus) error {
	tag, err := r.pool.Exec(ctx,
		`UPDATE games SET status = $2, updated_at = now() WHERE id = $1`,
		id, status,
	)
	if err != nil {
		return fmt.Errorf("failed to update game status: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrGameNotFound
	}
	return nil
}

func (r *GameRepo) scanGame(row pgx.Row) (*models.Game, error) {
	var game models.Game
	err := row.Scan(&game.ID, &game.PinCode, &game.Status, &game.GameType, &game.CreatedAt, &game.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrGameNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get game: %w", err)
	}
	return &game, nil
}
