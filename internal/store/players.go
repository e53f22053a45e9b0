package store

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/velasco/buzzroom/internal/models"
)

// ErrPlayerNotFound is returned when no player matches the lookup.
var ErrPlayerNotFound = errors.New("player not found")

// PlayerRepo persists player rows. Score writes are absolute values with
// last-write-wins semantics: the broadcast channel is the score of record
// during live play, the row exists for durability and rejoin.
type PlayerRepo struct {
	pool *pgxpool.Pool
}

// JoinGame inserts a player into a game.
func (r *PlayerRepo) JoinGame(ctx context.Context, gameID uuid.UUID, name string, isHost bool) (*models.Player, error) {
	player := models.Player{
		ID:     uuid.New(),
		GameID: gameID,
		Name:   name,
		IsHost: isHost,
	}

	row := r.pool.QueryRow(ctx,
		`INSERT INTO players (id, game_id, name, is_host, score)
		 VALUES ($1, $2, $3, $4, 0)
		 RETURNING created_at`,
		player.ID, player.GameID, player.Name, player.IsHost,
	)
	if err := row.Scan(&player.CreatedAt); err != nil {
		return nil, fmt.Errorf("failed to join game: %w", err)
	}
	return &player, nil
}

// ListPlayers returns a game's players in join order, which is also the
// narrator rotation order fixed at game start.
func (r *PlayerRepo) ListPlayers(ctx context.Context, gameID uuid.UUID) ([]models.Player, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT id, game_id, name, is_host, score, buzzer_sound_url, created_at
		 FROM players WHERE game_id = $1 ORDER BY created_at, id`,
		gameID,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to list players: %w", err)
	}
	defer rows.Close()

	var players []models.Player
	for rows.Next() {
		var p models.Player
		if err := rows.Scan(&p.ID, &p.GameID, &p.Name, &p.IsHost, &p.Score, &p.BuzzerSoundURL, &p.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan player: %w", err)
		}
		players = append(players, p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to list players: %w", err)
	}
	return players, nil
}

// UpdateScore writes a player's absolute score.
func (r *PlayerRepo) UpdateScore(ctx context.Context, playerID uuid.UUID, score int) error {
	tag, err := r.pool.Exec(ctx,
		`UPDATE players SET score = $2 WHERE id = $1`,
		playerID, score,
	)
	if err != nil {
		return fmt.Errorf("failed to update score: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrPlayerNotFound
	}
	return nil
}

// UpdateScores writes a batch of absolute scores in one round trip.
func (r *PlayerRepo) UpdateScores(ctx context.Context, scores []models.PlayerScore) error {
	if len(scores) == 0 {
		return nil
	}
	batch := &pgx.Batch{}
	for _, s := range scores {
		batch.Queue(`UPDATE players SET score = $2 WHERE id = $1`, s.ID, s.Score)
	}
	if err := r.pool.SendBatch(ctx, batch).Close(); err != nil {
		return fmt.Errorf("failed to update scores: %w", err)
	}
	return nil
}

// SetBuzzerSound assigns the player's buzzer sound reference.
func (r *PlayerRepo) SetBuzzerSound(ctx context.Context, playerID uuid.UUID, url string) error {
	tag, err := r.pool.Exec(ctx,
		`UPDATE players SET buzzer_sound_url = $2 WHERE id = $1`,
		playerID, url,
	)
	if err != nil {
		return fmt.Errorf("failed to set buzzer sound: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrPlayerNotFound
	}
	return nil
}
