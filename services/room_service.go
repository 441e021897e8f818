package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/Dosada05/scrim-system/models"
	"github.com/Dosada05/scrim-system/repositories"
)

const openRoomsLimit = 10

type RoomService interface {
	Join(ctx context.Context, playerID int) (*models.Room, error)
	SetReady(ctx context.Context, roomID, playerID int, ready bool) (*models.Room, error)
	// Leave returns nil room when the last player left and the room was removed.
	Leave(ctx context.Context, roomID, playerID int) (*models.Room, error)
	GetRoom(ctx context.Context, roomID int) (*models.Room, error)
	ListOpen(ctx context.Context) ([]models.RoomSummary, error)
	PurgeIdleRooms(ctx context.Context) (int, error)
}

type RoomServiceConfig struct {
	Capacity int
	IdleTTL  time.Duration
}

type roomService struct {
	tx         repositories.Transactor
	roomRepo   repositories.RoomRepository
	playerRepo repositories.PlayerRepository
	notifier   Notifier
	logger     *slog.Logger
	cfg        RoomServiceConfig
	now        func() time.Time
}

func NewRoomService(
	tx repositories.Transactor,
	roomRepo repositories.RoomRepository,
	playerRepo repositories.PlayerRepository,
	notifier Notifier,
	logger *slog.Logger,
	cfg RoomServiceConfig,
) RoomService {
	if cfg.Capacity < 2 {
		cfg.Capacity = 10
	}
	return &roomService{
		tx:         tx,
		roomRepo:   roomRepo,
		playerRepo: playerRepo,
		notifier:   notifierOrNop(notifier),
		logger:     logger,
		cfg:        cfg,
		now:        time.Now,
	}
}

func (s *roomService) Join(ctx context.Context, playerID int) (*models.Room, error) {
	var room *models.Room
	err := s.tx.WithinTx(ctx, func(tx repositories.SQLExecutor) error {
		// Блокировка строки игрока сериализует повторные join одного игрока.
		players, err := s.playerRepo.ListByIDsForUpdate(ctx, tx, []int{playerID})
		if err != nil {
			return fmt.Errorf("failed to lock player %d: %w", playerID, err)
		}
		if len(players) == 0 {
			return ErrPlayerNotFound
		}
		player := players[0]

		current, err := s.roomRepo.FindActiveByPlayer(ctx, tx, playerID)
		switch {
		case err == nil:
			if current.Status == models.RoomStatusWaiting || current.Status == models.RoomStatusReady {
				room = current
				return nil
			}
			return fmt.Errorf("%w: room %d", ErrAlreadyInRoom, current.ID)
		case !errors.Is(err, repositories.ErrRoomNotFound):
			return fmt.Errorf("failed to look up active room: %w", err)
		}

		entry := models.RosterEntry{
			PlayerID: player.ID,
			Nickname: player.Nickname,
			Rating:   player.Rating,
		}

		room, err = s.roomRepo.FindJoinable(ctx, tx, s.cfg.Capacity)
		if errors.Is(err, repositories.ErrRoomNotFound) {
			room = &models.Room{
				Status:  models.RoomStatusWaiting,
				Players: []models.RosterEntry{entry},
			}
			return s.roomRepo.Create(ctx, tx, room)
		}
		if err != nil {
			return fmt.Errorf("failed to find joinable room: %w", err)
		}

		room.Players = append(room.Players, entry)
		room.Status = models.RoomStatusWaiting
		return s.roomRepo.Update(ctx, tx, room)
	})
	if err != nil {
		return nil, s.translateError(err)
	}

	s.logger.Info("player joined room", slog.Int("room_id", room.ID), slog.Int("player_id", playerID),
		slog.Int("players", len(room.Players)))
	s.notifier.Publish(room.ID, EventRoomUpdated, room)
	return room, nil
}

func (s *roomService) SetReady(ctx context.Context, roomID, playerID int, ready bool) (*models.Room, error) {
	var room *models.Room
	err := s.tx.WithinTx(ctx, func(tx repositories.SQLExecutor) error {
		var err error
		room, err = s.roomRepo.GetByIDForUpdate(ctx, tx, roomID)
		if err != nil {
			return err
		}
		if !isLobbyStatus(room.Status) {
			return fmt.Errorf("%w: room is %s", ErrInvalidState, room.Status)
		}
		if !room.SetReady(playerID, ready) {
			return ErrNotInRoom
		}
		room.Status = lobbyStatus(room)
		return s.roomRepo.Update(ctx, tx, room)
	})
	if err != nil {
		return nil, s.translateError(err)
	}

	s.notifier.Publish(room.ID, EventRoomUpdated, room)
	return room, nil
}

func (s *roomService) Leave(ctx context.Context, roomID, playerID int) (*models.Room, error) {
	var (
		room    *models.Room
		deleted bool
	)
	err := s.tx.WithinTx(ctx, func(tx repositories.SQLExecutor) error {
		var err error
		room, err = s.roomRepo.GetByIDForUpdate(ctx, tx, roomID)
		if err != nil {
			return err
		}
		if !isLobbyStatus(room.Status) {
			return fmt.Errorf("%w: cannot leave a room that is %s", ErrInvalidState, room.Status)
		}

		remaining := make([]models.RosterEntry, 0, len(room.Players))
		for _, p := range room.Players {
			if p.PlayerID != playerID {
				remaining = append(remaining, p)
			}
		}
		if len(remaining) == len(room.Players) {
			return ErrNotInRoom
		}

		if len(remaining) == 0 {
			deleted = true
			return s.roomRepo.Delete(ctx, tx, roomID)
		}
		room.Players = remaining
		room.Status = models.RoomStatusWaiting
		return s.roomRepo.Update(ctx, tx, room)
	})
	if err != nil {
		return nil, s.translateError(err)
	}

	if deleted {
		s.logger.Info("empty room removed", slog.Int("room_id", roomID))
		s.notifier.Publish(roomID, EventRoomUpdated, map[string]interface{}{"id": roomID, "deleted": true})
		return nil, nil
	}
	s.notifier.Publish(room.ID, EventRoomUpdated, room)
	return room, nil
}

func (s *roomService) GetRoom(ctx context.Context, roomID int) (*models.Room, error) {
	room, err := s.roomRepo.GetByID(ctx, nil, roomID)
	if err != nil {
		return nil, s.translateError(err)
	}
	return room, nil
}

func (s *roomService) ListOpen(ctx context.Context) ([]models.RoomSummary, error) {
	rooms, err := s.roomRepo.ListOpen(ctx, openRoomsLimit)
	if err != nil {
		return nil, fmt.Errorf("failed to list open rooms: %w", err)
	}
	summaries := make([]models.RoomSummary, 0, len(rooms))
	for _, r := range rooms {
		summaries = append(summaries, models.RoomSummary{
			ID:          r.ID,
			PlayerCount: len(r.Players),
			Status:      r.Status,
			CreatedAt:   r.CreatedAt,
		})
	}
	return summaries, nil
}

func (s *roomService) PurgeIdleRooms(ctx context.Context) (int, error) {
	if s.cfg.IdleTTL <= 0 {
		return 0, nil
	}
	ids, err := s.roomRepo.DeleteIdleWaiting(ctx, s.now().Add(-s.cfg.IdleTTL))
	if err != nil {
		return 0, fmt.Errorf("failed to purge idle rooms: %w", err)
	}
	for _, id := range ids {
		s.notifier.Publish(id, EventRoomUpdated, map[string]interface{}{"id": id, "deleted": true})
	}
	if len(ids) > 0 {
		s.logger.Info("idle rooms purged", slog.Int("count", len(ids)), slog.Duration("ttl", s.cfg.IdleTTL))
	}
	return len(ids), nil
}

func (s *roomService) translateError(err error) error {
	switch {
	case errors.Is(err, repositories.ErrRoomNotFound):
		return ErrRoomNotFound
	case errors.Is(err, repositories.ErrPlayerNotFound):
		return ErrPlayerNotFound
	case repositories.IsRetryable(err):
		return fmt.Errorf("%w: %w", ErrConcurrentUpdate, err)
	default:
		return err
	}
}

func isLobbyStatus(st models.RoomStatus) bool {
	return st == models.RoomStatusWaiting || st == models.RoomStatusReady
}

func lobbyStatus(room *models.Room) models.RoomStatus {
	if room.AllReady() {
		return models.RoomStatusReady
	}
	return models.RoomStatusWaiting
}
