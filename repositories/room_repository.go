package repositories

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/Dosada05/scrim-system/models"
	"github.com/lib/pq"
)

var ErrRoomNotFound = errors.New("room not found")

type RoomRepository interface {
	Create(ctx context.Context, exec SQLExecutor, room *models.Room) error
	GetByID(ctx context.Context, exec SQLExecutor, id int) (*models.Room, error)
	GetByIDForUpdate(ctx context.Context, exec SQLExecutor, id int) (*models.Room, error)
	// FindJoinable returns the oldest waiting room with a free slot, locked, or ErrRoomNotFound.
	FindJoinable(ctx context.Context, exec SQLExecutor, capacity int) (*models.Room, error)
	FindActiveByPlayer(ctx context.Context, exec SQLExecutor, playerID int) (*models.Room, error)
	Update(ctx context.Context, exec SQLExecutor, room *models.Room) error
	Delete(ctx context.Context, exec SQLExecutor, id int) error
	ListOpen(ctx context.Context, limit int) ([]models.Room, error)
	DeleteIdleWaiting(ctx context.Context, idleSince time.Time) ([]int, error)
}

type postgresRoomRepository struct {
	db *sql.DB
}

func NewPostgresRoomRepository(db *sql.DB) RoomRepository {
	return &postgresRoomRepository{db: db}
}

const roomColumns = `id, status, players, team_a, team_b, average_a, average_b, elo_diff, bp_id, created_at, updated_at`

func scanRoom(row rowScanner, room *models.Room) error {
	var (
		playersRaw   []byte
		teamA, teamB pq.Int64Array
		bpID         sql.NullInt64
	)
	err := row.Scan(
		&room.ID,
		&room.Status,
		&playersRaw,
		&teamA,
		&teamB,
		&room.AverageA,
		&room.AverageB,
		&room.Gap,
		&bpID,
		&room.CreatedAt,
		&room.UpdatedAt,
	)
	if err != nil {
		return err
	}
	room.Players = make([]models.RosterEntry, 0)
	if err := unmarshalJSON(playersRaw, &room.Players); err != nil {
		return err
	}
	room.TeamA = fromInt64Array(teamA)
	room.TeamB = fromInt64Array(teamB)
	if bpID.Valid {
		id := int(bpID.Int64)
		room.BPSessionID = &id
	}
	return nil
}

func (r *postgresRoomRepository) Create(ctx context.Context, exec SQLExecutor, room *models.Room) error {
	playersRaw, err := marshalJSON(nonNilRoster(room.Players))
	if err != nil {
		return err
	}
	query := `
		INSERT INTO rooms (status, players)
		VALUES ($1, $2)
		RETURNING id, created_at, updated_at`

	err = getExecutor(r.db, exec).QueryRowContext(ctx, query, room.Status, playersRaw).
		Scan(&room.ID, &room.CreatedAt, &room.UpdatedAt)
	if err != nil {
		return fmt.Errorf("failed to create room: %w", err)
	}
	return nil
}

func (r *postgresRoomRepository) GetByID(ctx context.Context, exec SQLExecutor, id int) (*models.Room, error) {
	return r.getOne(ctx, exec, `SELECT `+roomColumns+` FROM rooms WHERE id = $1`, id)
}

func (r *postgresRoomRepository) GetByIDForUpdate(ctx context.Context, exec SQLExecutor, id int) (*models.Room, error) {
	return r.getOne(ctx, exec, `SELECT `+roomColumns+` FROM rooms WHERE id = $1 FOR UPDATE`, id)
}

func (r *postgresRoomRepository) FindJoinable(ctx context.Context, exec SQLExecutor, capacity int) (*models.Room, error) {
	query := `
		SELECT ` + roomColumns + `
		FROM rooms
		WHERE status = 'waiting' AND jsonb_array_length(players) < $1
		ORDER BY created_at ASC, id ASC
		LIMIT 1
		FOR UPDATE SKIP LOCKED`
	return r.getOne(ctx, exec, query, capacity)
}

func (r *postgresRoomRepository) FindActiveByPlayer(ctx context.Context, exec SQLExecutor, playerID int) (*models.Room, error) {
	needle, err := marshalJSON([]map[string]int{{"player_id": playerID}})
	if err != nil {
		return nil, err
	}
	query := `
		SELECT ` + roomColumns + `
		FROM rooms
		WHERE status <> 'finished' AND players @> $1::jsonb
		ORDER BY id DESC
		LIMIT 1`
	return r.getOne(ctx, exec, query, needle)
}

func (r *postgresRoomRepository) getOne(ctx context.Context, exec SQLExecutor, query string, args ...interface{}) (*models.Room, error) {
	var room models.Room
	err := scanRoom(getExecutor(r.db, exec).QueryRowContext(ctx, query, args...), &room)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrRoomNotFound
		}
		return nil, fmt.Errorf("failed to get room: %w", err)
	}
	return &room, nil
}

func (r *postgresRoomRepository) Update(ctx context.Context, exec SQLExecutor, room *models.Room) error {
	playersRaw, err := marshalJSON(nonNilRoster(room.Players))
	if err != nil {
		return err
	}
	query := `
		UPDATE rooms SET
			status = $1,
			players = $2,
			team_a = $3,
			team_b = $4,
			average_a = $5,
			average_b = $6,
			elo_diff = $7,
			bp_id = $8,
			updated_at = NOW()
		WHERE id = $9
		RETURNING updated_at`

	err = getExecutor(r.db, exec).QueryRowContext(ctx, query,
		room.Status,
		playersRaw,
		toInt64Array(room.TeamA),
		toInt64Array(room.TeamB),
		room.AverageA,
		room.AverageB,
		room.Gap,
		room.BPSessionID,
		room.ID,
	).Scan(&room.UpdatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return ErrRoomNotFound
		}
		return fmt.Errorf("failed to update room %d: %w", room.ID, err)
	}
	return nil
}

func (r *postgresRoomRepository) Delete(ctx context.Context, exec SQLExecutor, id int) error {
	result, err := getExecutor(r.db, exec).ExecContext(ctx, `DELETE FROM rooms WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("failed to delete room %d: %w", id, err)
	}
	return checkAffectedRows(result, ErrRoomNotFound)
}

func (r *postgresRoomRepository) ListOpen(ctx context.Context, limit int) ([]models.Room, error) {
	query := `
		SELECT ` + roomColumns + `
		FROM rooms
		WHERE status IN ('waiting', 'ready')
		ORDER BY created_at DESC
		LIMIT $1`

	rows, err := r.db.QueryContext(ctx, query, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list open rooms: %w", err)
	}
	defer rows.Close()

	rooms := make([]models.Room, 0)
	for rows.Next() {
		var room models.Room
		if err := scanRoom(rows, &room); err != nil {
			return nil, fmt.Errorf("failed to scan room row: %w", err)
		}
		rooms = append(rooms, room)
	}
	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating room rows: %w", err)
	}
	return rooms, nil
}

func (r *postgresRoomRepository) DeleteIdleWaiting(ctx context.Context, idleSince time.Time) ([]int, error) {
	query := `DELETE FROM rooms WHERE status = 'waiting' AND updated_at < $1 RETURNING id`
	rows, err := r.db.QueryContext(ctx, query, idleSince)
	if err != nil {
		return nil, fmt.Errorf("failed to purge idle rooms: %w", err)
	}
	defer rows.Close()

	ids := make([]int, 0)
	for rows.Next() {
		var id int
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

// nonNilRoster не даёт записать JSON null вместо пустого массива.
func nonNilRoster(players []models.RosterEntry) []models.RosterEntry {
	if players == nil {
		return []models.RosterEntry{}
	}
	return players
}
