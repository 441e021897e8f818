package repositories

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/Dosada05/scrim-system/models"
)

type PlayerStatRepository interface {
	CreateBatch(ctx context.Context, exec SQLExecutor, stats []models.PlayerMatchStat) error
	// ListByPlayer returns the newest rows first, joined with their match.
	ListByPlayer(ctx context.Context, playerID, limit int) ([]models.PlayerMatchStat, error)
}

type postgresPlayerStatRepository struct {
	db *sql.DB
}

func NewPostgresPlayerStatRepository(db *sql.DB) PlayerStatRepository {
	return &postgresPlayerStatRepository{db: db}
}

func (r *postgresPlayerStatRepository) CreateBatch(ctx context.Context, exec SQLExecutor, stats []models.PlayerMatchStat) error {
	if len(stats) == 0 {
		return nil
	}
	executor := getExecutor(r.db, exec)

	stmt, err := executor.PrepareContext(ctx, `
		INSERT INTO player_match_stats (match_id, player_id, team, kills, deaths, assists, kd_ratio,
			elo_before, elo_after, elo_change)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		RETURNING id, created_at`)
	if err != nil {
		return fmt.Errorf("failed to prepare player stat insert: %w", err)
	}
	defer stmt.Close()

	for i := range stats {
		s := &stats[i]
		err := stmt.QueryRowContext(ctx,
			s.MatchID,
			s.PlayerID,
			s.Team,
			s.Kills,
			s.Deaths,
			s.Assists,
			s.KDRatio,
			s.RatingBefore,
			s.RatingAfter,
			s.RatingChange,
		).Scan(&s.ID, &s.CreatedAt)
		if err != nil {
			if code, _, ok := pqCode(err); ok && code == pgForeignKeyViolation {
				return fmt.Errorf("%w: player %d", ErrPlayerNotFound, s.PlayerID)
			}
			return fmt.Errorf("failed to insert stat for player %d: %w", s.PlayerID, err)
		}
	}
	return nil
}

func (r *postgresPlayerStatRepository) ListByPlayer(ctx context.Context, playerID, limit int) ([]models.PlayerMatchStat, error) {
	query := `
		SELECT s.id, s.match_id, s.player_id, s.team, s.kills, s.deaths, s.assists, s.kd_ratio,
			s.elo_before, s.elo_after, s.elo_change, s.created_at,
			m.finished_at, m.map, m.winner, m.score_a, m.score_b
		FROM player_match_stats s
		JOIN matches m ON m.id = s.match_id
		WHERE s.player_id = $1
		ORDER BY s.created_at DESC, s.id DESC
		LIMIT $2`

	rows, err := r.db.QueryContext(ctx, query, playerID, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list player stats: %w", err)
	}
	defer rows.Close()

	stats := make([]models.PlayerMatchStat, 0)
	for rows.Next() {
		var (
			s          models.PlayerMatchStat
			finishedAt sql.NullTime
			mapName    sql.NullString
			winner     sql.NullString
		)
		err := rows.Scan(
			&s.ID, &s.MatchID, &s.PlayerID, &s.Team, &s.Kills, &s.Deaths, &s.Assists, &s.KDRatio,
			&s.RatingBefore, &s.RatingAfter, &s.RatingChange, &s.CreatedAt,
			&finishedAt, &mapName, &winner, &s.ScoreA, &s.ScoreB,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan player stat row: %w", err)
		}
		if finishedAt.Valid {
			s.MatchDate = &finishedAt.Time
		}
		if mapName.Valid {
			s.MatchMap = &mapName.String
		}
		if winner.Valid {
			s.MatchWinner = &winner.String
		}
		stats = append(stats, s)
	}
	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating player stat rows: %w", err)
	}
	return stats, nil
}
