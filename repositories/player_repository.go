package repositories

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/Dosada05/scrim-system/models"
)

var (
	ErrPlayerNotFound         = errors.New("player not found")
	ErrPlayerNicknameConflict = errors.New("player nickname conflict")
	ErrPlayerSteamIDConflict  = errors.New("player steam id conflict")
)

type PlayerRepository interface {
	Create(ctx context.Context, player *models.Player) error
	GetByID(ctx context.Context, exec SQLExecutor, id int) (*models.Player, error)
	GetByNickname(ctx context.Context, nickname string) (*models.Player, error)
	// ListByIDsForUpdate блокирует строки игроков в порядке id, чтобы параллельные
	// завершения матчей не ловили дедлок.
	ListByIDsForUpdate(ctx context.Context, exec SQLExecutor, ids []int) ([]models.Player, error)
	ApplyResults(ctx context.Context, exec SQLExecutor, results []models.PlayerResult) error
	UpdateAvatarKey(ctx context.Context, playerID int, key *string) error
	ListTopByRating(ctx context.Context, limit int) ([]models.Player, error)
}

type postgresPlayerRepository struct {
	db *sql.DB
}

func NewPostgresPlayerRepository(db *sql.DB) PlayerRepository {
	return &postgresPlayerRepository{db: db}
}

const playerColumns = `id, nickname, password_hash, steam_id, elo, total_matches, wins, losses,
	total_kills, total_deaths, avatar_key, created_at, updated_at`

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanPlayer(row rowScanner, p *models.Player) error {
	var steamID, avatarKey sql.NullString
	err := row.Scan(
		&p.ID,
		&p.Nickname,
		&p.PasswordHash,
		&steamID,
		&p.Rating,
		&p.TotalMatches,
		&p.Wins,
		&p.Losses,
		&p.TotalKills,
		&p.TotalDeaths,
		&avatarKey,
		&p.CreatedAt,
		&p.UpdatedAt,
	)
	if err != nil {
		return err
	}
	if steamID.Valid {
		p.SteamID = &steamID.String
	}
	if avatarKey.Valid {
		p.AvatarKey = &avatarKey.String
	}
	return nil
}

func (r *postgresPlayerRepository) Create(ctx context.Context, player *models.Player) error {
	query := `
		INSERT INTO players (nickname, password_hash, steam_id, elo)
		VALUES ($1, $2, $3, $4)
		RETURNING id, created_at, updated_at`

	err := r.db.QueryRowContext(ctx, query,
		player.Nickname,
		player.PasswordHash,
		player.SteamID,
		player.Rating,
	).Scan(&player.ID, &player.CreatedAt, &player.UpdatedAt)

	if err != nil {
		if code, constraint, ok := pqCode(err); ok && code == pgUniqueViolation {
			switch constraint {
			case "players_nickname_key":
				return ErrPlayerNicknameConflict
			case "players_steam_id_key":
				return ErrPlayerSteamIDConflict
			}
		}
		return fmt.Errorf("failed to create player: %w", err)
	}
	return nil
}

func (r *postgresPlayerRepository) GetByID(ctx context.Context, exec SQLExecutor, id int) (*models.Player, error) {
	query := `SELECT ` + playerColumns + ` FROM players WHERE id = $1`

	var player models.Player
	err := scanPlayer(getExecutor(r.db, exec).QueryRowContext(ctx, query, id), &player)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrPlayerNotFound
		}
		return nil, fmt.Errorf("failed to get player %d: %w", id, err)
	}
	return &player, nil
}

func (r *postgresPlayerRepository) GetByNickname(ctx context.Context, nickname string) (*models.Player, error) {
	query := `SELECT ` + playerColumns + ` FROM players WHERE nickname = $1`

	var player models.Player
	err := scanPlayer(r.db.QueryRowContext(ctx, query, nickname), &player)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrPlayerNotFound
		}
		return nil, fmt.Errorf("failed to get player by nickname: %w", err)
	}
	return &player, nil
}

func (r *postgresPlayerRepository) ListByIDsForUpdate(ctx context.Context, exec SQLExecutor, ids []int) ([]models.Player, error) {
	if len(ids) == 0 {
		return []models.Player{}, nil
	}
	query := `SELECT ` + playerColumns + ` FROM players WHERE id = ANY($1) ORDER BY id FOR UPDATE`
	return r.list(ctx, getExecutor(r.db, exec), query, toInt64Array(ids))
}

func (r *postgresPlayerRepository) ListTopByRating(ctx context.Context, limit int) ([]models.Player, error) {
	query := `SELECT ` + playerColumns + ` FROM players ORDER BY elo DESC, id ASC LIMIT $1`
	return r.list(ctx, r.db, query, limit)
}

func (r *postgresPlayerRepository) list(ctx context.Context, exec SQLExecutor, query string, args ...interface{}) ([]models.Player, error) {
	rows, err := exec.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query players: %w", err)
	}
	defer rows.Close()

	players := make([]models.Player, 0)
	for rows.Next() {
		var p models.Player
		if err := scanPlayer(rows, &p); err != nil {
			return nil, fmt.Errorf("failed to scan player row: %w", err)
		}
		players = append(players, p)
	}
	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating player rows: %w", err)
	}
	return players, nil
}

func (r *postgresPlayerRepository) ApplyResults(ctx context.Context, exec SQLExecutor, results []models.PlayerResult) error {
	if len(results) == 0 {
		return nil
	}
	executor := getExecutor(r.db, exec)

	stmt, err := executor.PrepareContext(ctx, `
		UPDATE players SET
			elo = $1,
			total_matches = total_matches + 1,
			wins = wins + $2,
			losses = losses + $3,
			total_kills = total_kills + $4,
			total_deaths = total_deaths + $5,
			updated_at = NOW()
		WHERE id = $6`)
	if err != nil {
		return fmt.Errorf("failed to prepare player results statement: %w", err)
	}
	defer stmt.Close()

	for _, res := range results {
		result, err := stmt.ExecContext(ctx,
			res.NewRating,
			boolToInt(res.Win),
			boolToInt(res.Loss),
			res.Kills,
			res.Deaths,
			res.PlayerID,
		)
		if err != nil {
			return fmt.Errorf("failed to apply result for player %d: %w", res.PlayerID, err)
		}
		if err := checkAffectedRows(result, ErrPlayerNotFound); err != nil {
			return err
		}
	}
	return nil
}

func (r *postgresPlayerRepository) UpdateAvatarKey(ctx context.Context, playerID int, key *string) error {
	query := `UPDATE players SET avatar_key = $1, updated_at = NOW() WHERE id = $2`
	result, err := r.db.ExecContext(ctx, query, key, playerID)
	if err != nil {
		return fmt.Errorf("failed to update avatar key: %w", err)
	}
	return checkAffectedRows(result, ErrPlayerNotFound)
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
