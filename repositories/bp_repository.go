package repositories

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/Dosada05/scrim-system/banpick"
	"github.com/Dosada05/scrim-system/models"
	"github.com/lib/pq"
)

var (
	ErrBPSessionNotFound = errors.New("ban/pick session not found")
	ErrBPSessionExists   = errors.New("ban/pick session already exists for room")
	// ErrVersionConflict означает, что сессию успели изменить между чтением и записью.
	ErrVersionConflict = errors.New("ban/pick session was modified concurrently")
)

type BPSessionRepository interface {
	Create(ctx context.Context, exec SQLExecutor, bp *models.BPSession) error
	GetByID(ctx context.Context, exec SQLExecutor, id int) (*models.BPSession, error)
	GetByIDForUpdate(ctx context.Context, exec SQLExecutor, id int) (*models.BPSession, error)
	GetByRoom(ctx context.Context, exec SQLExecutor, roomID int) (*models.BPSession, error)
	// Update writes bp if its Version still matches the stored one and bumps it.
	Update(ctx context.Context, exec SQLExecutor, bp *models.BPSession) error
}

type postgresBPSessionRepository struct {
	db *sql.DB
}

func NewPostgresBPSessionRepository(db *sql.DB) BPSessionRepository {
	return &postgresBPSessionRepository{db: db}
}

const bpColumns = `id, room_id, team_a, team_b, maps, available_maps, current_step, bp_history,
	current_votes, status, final_map, version, created_at, updated_at`

func scanBPSession(row rowScanner, bp *models.BPSession) error {
	var (
		teamA, teamB     pq.Int64Array
		pool, candidates pq.StringArray
		logRaw, votesRaw []byte
		finalMap         sql.NullString
	)
	err := row.Scan(
		&bp.ID,
		&bp.RoomID,
		&teamA,
		&teamB,
		&pool,
		&candidates,
		&bp.Step,
		&logRaw,
		&votesRaw,
		&bp.Status,
		&finalMap,
		&bp.Version,
		&bp.CreatedAt,
		&bp.UpdatedAt,
	)
	if err != nil {
		return err
	}
	bp.TeamA = fromInt64Array(teamA)
	bp.TeamB = fromInt64Array(teamB)
	bp.Pool = []string(pool)
	bp.Candidates = []string(candidates)
	bp.Log = []banpick.Record{}
	if err := unmarshalJSON(logRaw, &bp.Log); err != nil {
		return err
	}
	bp.Votes = map[int]string{}
	if err := unmarshalJSON(votesRaw, &bp.Votes); err != nil {
		return err
	}
	bp.ResolvedMap = finalMap.String
	return nil
}

func nullableString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}

func (r *postgresBPSessionRepository) Create(ctx context.Context, exec SQLExecutor, bp *models.BPSession) error {
	logRaw, err := marshalJSON(bp.Log)
	if err != nil {
		return err
	}
	votesRaw, err := marshalJSON(bp.Votes)
	if err != nil {
		return err
	}
	query := `
		INSERT INTO bp_sessions (room_id, team_a, team_b, maps, available_maps, current_step,
			bp_history, current_votes, status, final_map, version)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, 1)
		RETURNING id, version, created_at, updated_at`

	err = getExecutor(r.db, exec).QueryRowContext(ctx, query,
		bp.RoomID,
		toInt64Array(bp.TeamA),
		toInt64Array(bp.TeamB),
		pq.StringArray(bp.Pool),
		pq.StringArray(bp.Candidates),
		bp.Step,
		logRaw,
		votesRaw,
		bp.Status,
		nullableString(bp.ResolvedMap),
	).Scan(&bp.ID, &bp.Version, &bp.CreatedAt, &bp.UpdatedAt)
	if err != nil {
		if code, constraint, ok := pqCode(err); ok {
			switch {
			case code == pgUniqueViolation && constraint == "bp_sessions_room_id_key":
				return ErrBPSessionExists
			case code == pgForeignKeyViolation:
				return ErrRoomNotFound
			}
		}
		return fmt.Errorf("failed to create bp session: %w", err)
	}
	return nil
}

func (r *postgresBPSessionRepository) GetByID(ctx context.Context, exec SQLExecutor, id int) (*models.BPSession, error) {
	return r.getOne(ctx, exec, `SELECT `+bpColumns+` FROM bp_sessions WHERE id = $1`, id)
}

func (r *postgresBPSessionRepository) GetByIDForUpdate(ctx context.Context, exec SQLExecutor, id int) (*models.BPSession, error) {
	return r.getOne(ctx, exec, `SELECT `+bpColumns+` FROM bp_sessions WHERE id = $1 FOR UPDATE`, id)
}

func (r *postgresBPSessionRepository) GetByRoom(ctx context.Context, exec SQLExecutor, roomID int) (*models.BPSession, error) {
	return r.getOne(ctx, exec, `SELECT `+bpColumns+` FROM bp_sessions WHERE room_id = $1`, roomID)
}

func (r *postgresBPSessionRepository) getOne(ctx context.Context, exec SQLExecutor, query string, args ...interface{}) (*models.BPSession, error) {
	var bp models.BPSession
	err := scanBPSession(getExecutor(r.db, exec).QueryRowContext(ctx, query, args...), &bp)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrBPSessionNotFound
		}
		return nil, fmt.Errorf("failed to get bp session: %w", err)
	}
	return &bp, nil
}

func (r *postgresBPSessionRepository) Update(ctx context.Context, exec SQLExecutor, bp *models.BPSession) error {
	logRaw, err := marshalJSON(bp.Log)
	if err != nil {
		return err
	}
	votesRaw, err := marshalJSON(bp.Votes)
	if err != nil {
		return err
	}
	query := `
		UPDATE bp_sessions SET
			available_maps = $1,
			current_step = $2,
			bp_history = $3,
			current_votes = $4,
			status = $5,
			final_map = $6,
			version = version + 1,
			updated_at = NOW()
		WHERE id = $7 AND version = $8
		RETURNING version, updated_at`

	err = getExecutor(r.db, exec).QueryRowContext(ctx, query,
		pq.StringArray(bp.Candidates),
		bp.Step,
		logRaw,
		votesRaw,
		bp.Status,
		nullableString(bp.ResolvedMap),
		bp.ID,
		bp.Version,
	).Scan(&bp.Version, &bp.UpdatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return ErrVersionConflict
		}
		return fmt.Errorf("failed to update bp session %d: %w", bp.ID, err)
	}
	return nil
}
