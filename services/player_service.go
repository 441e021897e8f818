package services

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/Dosada05/scrim-system/models"
	"github.com/Dosada05/scrim-system/repositories"
	"github.com/Dosada05/scrim-system/storage"
)

// MaxAvatarSize ограничивает тело запроса в хендлере.
const MaxAvatarSize = storage.MaxAvatarSize

type PlayerService interface {
	GetPlayer(ctx context.Context, id int) (*models.Player, error)
	UpdateAvatar(ctx context.Context, playerID int, file io.Reader, contentType string, size int64) (*models.Player, error)
}

type playerService struct {
	playerRepo repositories.PlayerRepository
	uploader   storage.FileUploader
	logger     *slog.Logger
	now        func() time.Time
}

// NewPlayerService принимает uploader == nil, если хранилище не настроено.
func NewPlayerService(playerRepo repositories.PlayerRepository, uploader storage.FileUploader, logger *slog.Logger) PlayerService {
	return &playerService{
		playerRepo: playerRepo,
		uploader:   uploader,
		logger:     logger,
		now:        time.Now,
	}
}

func (s *playerService) GetPlayer(ctx context.Context, id int) (*models.Player, error) {
	player, err := s.playerRepo.GetByID(ctx, nil, id)
	if err != nil {
		if errors.Is(err, repositories.ErrPlayerNotFound) {
			return nil, ErrPlayerNotFound
		}
		return nil, fmt.Errorf("failed to get player %d: %w", id, err)
	}
	populateAvatarURL(player, s.uploader)
	return player, nil
}

func (s *playerService) UpdateAvatar(ctx context.Context, playerID int, file io.Reader, contentType string, size int64) (*models.Player, error) {
	if s.uploader == nil {
		return nil, ErrStorageDisabled
	}
	key, ok := storage.AvatarKey(playerID, s.now(), contentType)
	if !ok || size <= 0 || size > storage.MaxAvatarSize {
		return nil, ErrInvalidAvatar
	}

	player, err := s.GetPlayer(ctx, playerID)
	if err != nil {
		return nil, err
	}

	if _, err := s.uploader.Upload(ctx, key, contentType, io.LimitReader(file, storage.MaxAvatarSize)); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrUnavailable, err)
	}

	if err := s.playerRepo.UpdateAvatarKey(ctx, playerID, &key); err != nil {
		// Не оставляем в бакете файл, на который никто не ссылается.
		if delErr := s.uploader.Delete(ctx, key); delErr != nil {
			s.logger.Warn("failed to delete orphaned avatar", slog.String("key", key), slog.Any("error", delErr))
		}
		if errors.Is(err, repositories.ErrPlayerNotFound) {
			return nil, ErrPlayerNotFound
		}
		return nil, fmt.Errorf("failed to save avatar key: %w", err)
	}

	if old := player.AvatarKey; old != nil && *old != "" && *old != key {
		if err := s.uploader.Delete(ctx, *old); err != nil {
			s.logger.Warn("failed to delete previous avatar", slog.String("key", *old), slog.Any("error", err))
		}
	}

	player.AvatarKey = &key
	populateAvatarURL(player, s.uploader)
	return player, nil
}

func populateAvatarURL(player *models.Player, uploader storage.FileUploader) {
	if player == nil || uploader == nil || player.AvatarKey == nil || *player.AvatarKey == "" {
		return
	}
	if url := uploader.GetPublicURL(*player.AvatarKey); url != "" {
		player.AvatarURL = &url
	}
}
