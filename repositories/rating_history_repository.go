package repositories

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/Dosada05/scrim-system/models"
)

type RatingHistoryRepository interface {
	CreateBatch(ctx context.Context, exec SQLExecutor, changes []models.RatingChange) error
	ListByPlayer(ctx context.Context, playerID, limit int) ([]models.RatingChange, error)
}

type postgresRatingHistoryRepository struct {
	db *sql.DB
}

func NewPostgresRatingHistoryRepository(db *sql.DB) RatingHistoryRepository {
	return &postgresRatingHistoryRepository{db: db}
}

func (r *postgresRatingHistoryRepository) CreateBatch(ctx context.Context, exec SQLExecutor, changes []models.RatingChange) error {
	if len(changes) == 0 {
		return nil
	}
	stmt, err := getExecutor(r.db, exec).PrepareContext(ctx, `
		INSERT INTO rating_history (player_id, match_id, elo_before, elo_after, elo_change, reason)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING id, created_at`)
	if err != nil {
		return fmt.Errorf("failed to prepare rating history insert: %w", err)
	}
	defer stmt.Close()

	for i := range changes {
		c := &changes[i]
		err := stmt.QueryRowContext(ctx, c.PlayerID, c.MatchID, c.Before, c.After, c.Change, c.Reason).
			Scan(&c.ID, &c.CreatedAt)
		if err != nil {
			return fmt.Errorf("failed to insert rating history for player %d: %w", c.PlayerID, err)
		}
	}
	return nil
}

func (r *postgresRatingHistoryRepository) ListByPlayer(ctx context.Context, playerID, limit int) ([]models.RatingChange, error) {
	query := `
		SELECT id, player_id, match_id, elo_before, elo_after, elo_change, reason, created_at
		FROM rating_history
		WHERE player_id = $1
		ORDER BY created_at DESC, id DESC
		LIMIT $2`

	rows, err := r.db.QueryContext(ctx, query, playerID, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list rating history: %w", err)
	}
	defer rows.Close()

	changes := make([]models.RatingChange, 0)
	for rows.Next() {
		var c models.RatingChange
		if err := rows.Scan(&c.ID, &c.PlayerID, &c.MatchID, &c.Before, &c.After, &c.Change, &c.Reason, &c.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan rating history row: %w", err)
		}
		changes = append(changes, c)
	}
	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating rating history rows: %w", err)
	}
	return changes, nil
}
