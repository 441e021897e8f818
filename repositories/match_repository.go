package repositories

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/Dosada05/scrim-system/models"
	"github.com/lib/pq"
)

var (
	ErrMatchNotFound      = errors.New("match not found")
	ErrMatchExists        = errors.New("match already exists for room")
	ErrMatchAlreadyClosed = errors.New("match is already finished")
)

type MatchRepository interface {
	Create(ctx context.Context, exec SQLExecutor, match *models.Match) error
	GetByID(ctx context.Context, exec SQLExecutor, id int) (*models.Match, error)
	GetByIDForUpdate(ctx context.Context, exec SQLExecutor, id int) (*models.Match, error)
	GetByRoom(ctx context.Context, exec SQLExecutor, roomID int) (*models.Match, error)
	// UpdateLive overwrites the running score and stats of a match still in play.
	UpdateLive(ctx context.Context, match *models.Match) error
	// Finalize sets the final result once. A second call returns ErrMatchAlreadyClosed.
	Finalize(ctx context.Context, exec SQLExecutor, match *models.Match) error
	CountFinishedByPlayer(ctx context.Context, playerID int) (int, error)
}

type postgresMatchRepository struct {
	db *sql.DB
}

func NewPostgresMatchRepository(db *sql.DB) MatchRepository {
	return &postgresMatchRepository{db: db}
}

const matchColumns = `id, room_id, map, team_a, team_b, score_a, score_b, winner, status,
	player_stats, created_at, updated_at, finished_at`

func scanMatch(row rowScanner, m *models.Match) error {
	var (
		teamA, teamB pq.Int64Array
		winner       sql.NullString
		statsRaw     []byte
		finishedAt   sql.NullTime
	)
	err := row.Scan(
		&m.ID,
		&m.RoomID,
		&m.Map,
		&teamA,
		&teamB,
		&m.ScoreA,
		&m.ScoreB,
		&winner,
		&m.Status,
		&statsRaw,
		&m.CreatedAt,
		&m.UpdatedAt,
		&finishedAt,
	)
	if err != nil {
		return err
	}
	m.TeamA = fromInt64Array(teamA)
	m.TeamB = fromInt64Array(teamB)
	if winner.Valid {
		m.Winner = &winner.String
	}
	if finishedAt.Valid {
		m.FinishedAt = &finishedAt.Time
	}
	m.PlayerStats = make([]models.PlayerStat, 0)
	return unmarshalJSON(statsRaw, &m.PlayerStats)
}

func (r *postgresMatchRepository) Create(ctx context.Context, exec SQLExecutor, match *models.Match) error {
	statsRaw, err := marshalJSON(nonNilStats(match.PlayerStats))
	if err != nil {
		return err
	}
	query := `
		INSERT INTO matches (room_id, map, team_a, team_b, status, player_stats)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING id, created_at, updated_at`

	err = getExecutor(r.db, exec).QueryRowContext(ctx, query,
		match.RoomID,
		match.Map,
		toInt64Array(match.TeamA),
		toInt64Array(match.TeamB),
		match.Status,
		statsRaw,
	).Scan(&match.ID, &match.CreatedAt, &match.UpdatedAt)
	if err != nil {
		if code, constraint, ok := pqCode(err); ok {
			switch {
			case code == pgUniqueViolation && constraint == "matches_room_id_key":
				return ErrMatchExists
			case code == pgForeignKeyViolation:
				return ErrRoomNotFound
			}
		}
		return fmt.Errorf("failed to create match: %w", err)
	}
	return nil
}

func (r *postgresMatchRepository) GetByID(ctx context.Context, exec SQLExecutor, id int) (*models.Match, error) {
	return r.getOne(ctx, exec, `SELECT `+matchColumns+` FROM matches WHERE id = $1`, id)
}

func (r *postgresMatchRepository) GetByIDForUpdate(ctx context.Context, exec SQLExecutor, id int) (*models.Match, error) {
	return r.getOne(ctx, exec, `SELECT `+matchColumns+` FROM matches WHERE id = $1 FOR UPDATE`, id)
}

func (r *postgresMatchRepository) GetByRoom(ctx context.Context, exec SQLExecutor, roomID int) (*models.Match, error) {
	return r.getOne(ctx, exec, `SELECT `+matchColumns+` FROM matches WHERE room_id = $1`, roomID)
}

func (r *postgresMatchRepository) getOne(ctx context.Context, exec SQLExecutor, query string, args ...interface{}) (*models.Match, error) {
	var m models.Match
	err := scanMatch(getExecutor(r.db, exec).QueryRowContext(ctx, query, args...), &m)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrMatchNotFound
		}
		return nil, fmt.Errorf("failed to get match: %w", err)
	}
	return &m, nil
}

func (r *postgresMatchRepository) UpdateLive(ctx context.Context, match *models.Match) error {
	statsRaw, err := marshalJSON(nonNilStats(match.PlayerStats))
	if err != nil {
		return err
	}
	query := `
		UPDATE matches SET score_a = $1, score_b = $2, player_stats = $3, updated_at = NOW()
		WHERE id = $4 AND status = 'playing'
		RETURNING updated_at`

	err = r.db.QueryRowContext(ctx, query, match.ScoreA, match.ScoreB, statsRaw, match.ID).
		Scan(&match.UpdatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			// Либо матча нет, либо он уже завершён.
			if _, getErr := r.GetByID(ctx, nil, match.ID); getErr != nil {
				return getErr
			}
			return ErrMatchAlreadyClosed
		}
		return fmt.Errorf("failed to update live match %d: %w", match.ID, err)
	}
	return nil
}

func (r *postgresMatchRepository) Finalize(ctx context.Context, exec SQLExecutor, match *models.Match) error {
	statsRaw, err := marshalJSON(nonNilStats(match.PlayerStats))
	if err != nil {
		return err
	}
	query := `
		UPDATE matches SET
			score_a = $1,
			score_b = $2,
			winner = $3,
			player_stats = $4,
			status = 'finished',
			finished_at = NOW(),
			updated_at = NOW()
		WHERE id = $5 AND status = 'playing'
		RETURNING status, finished_at, updated_at`

	var finishedAt sql.NullTime
	err = getExecutor(r.db, exec).QueryRowContext(ctx, query,
		match.ScoreA,
		match.ScoreB,
		match.Winner,
		statsRaw,
		match.ID,
	).Scan(&match.Status, &finishedAt, &match.UpdatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return ErrMatchAlreadyClosed
		}
		return fmt.Errorf("failed to finalize match %d: %w", match.ID, err)
	}
	if finishedAt.Valid {
		match.FinishedAt = &finishedAt.Time
	}
	return nil
}

func (r *postgresMatchRepository) CountFinishedByPlayer(ctx context.Context, playerID int) (int, error) {
	query := `
		SELECT COUNT(*) FROM matches
		WHERE status = 'finished' AND ($1 = ANY(team_a) OR $1 = ANY(team_b))`
	var n int
	if err := r.db.QueryRowContext(ctx, query, playerID).Scan(&n); err != nil {
		return 0, fmt.Errorf("failed to count matches for player %d: %w", playerID, err)
	}
	return n, nil
}

func nonNilStats(stats []models.PlayerStat) []models.PlayerStat {
	if stats == nil {
		return []models.PlayerStat{}
	}
	return stats
}
