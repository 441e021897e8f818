package services

import (
	"context"
	"errors"
	"fmt"
	"math"

	"github.com/Dosada05/scrim-system/models"
	"github.com/Dosada05/scrim-system/repositories"
	"github.com/Dosada05/scrim-system/storage"
	"golang.org/x/sync/errgroup"
)

const (
	matchHistoryLimit  = 20
	ratingHistoryLimit = 50
	rankingLimit       = 50
)

type HistoryService interface {
	PlayerHistory(ctx context.Context, playerID int) ([]models.PlayerMatchStat, error)
	RatingHistory(ctx context.Context, playerID int) ([]models.RatingChange, error)
	Ranking(ctx context.Context) ([]models.RankingEntry, error)
	Profile(ctx context.Context, playerID int) (*Profile, error)
}

type Profile struct {
	Player        *models.Player           `json:"player"`
	RecentMatches []models.PlayerMatchStat `json:"recent_matches"`
	RatingHistory []models.RatingChange    `json:"elo_history"`
}

type historyService struct {
	playerRepo    repositories.PlayerRepository
	statRepo      repositories.PlayerStatRepository
	ratingHistory repositories.RatingHistoryRepository
	uploader      storage.FileUploader
}

func NewHistoryService(
	playerRepo repositories.PlayerRepository,
	statRepo repositories.PlayerStatRepository,
	ratingHistory repositories.RatingHistoryRepository,
	uploader storage.FileUploader,
) HistoryService {
	return &historyService{
		playerRepo:    playerRepo,
		statRepo:      statRepo,
		ratingHistory: ratingHistory,
		uploader:      uploader,
	}
}

func (s *historyService) PlayerHistory(ctx context.Context, playerID int) ([]models.PlayerMatchStat, error) {
	if _, err := s.getPlayer(ctx, playerID); err != nil {
		return nil, err
	}
	stats, err := s.statRepo.ListByPlayer(ctx, playerID, matchHistoryLimit)
	if err != nil {
		return nil, fmt.Errorf("failed to load match history: %w", err)
	}
	return stats, nil
}

func (s *historyService) RatingHistory(ctx context.Context, playerID int) ([]models.RatingChange, error) {
	if _, err := s.getPlayer(ctx, playerID); err != nil {
		return nil, err
	}
	changes, err := s.ratingHistory.ListByPlayer(ctx, playerID, ratingHistoryLimit)
	if err != nil {
		return nil, fmt.Errorf("failed to load rating history: %w", err)
	}
	return changes, nil
}

func (s *historyService) Ranking(ctx context.Context) ([]models.RankingEntry, error) {
	players, err := s.playerRepo.ListTopByRating(ctx, rankingLimit)
	if err != nil {
		return nil, fmt.Errorf("failed to load ranking: %w", err)
	}

	ranking := make([]models.RankingEntry, 0, len(players))
	for i, p := range players {
		ranking = append(ranking, models.RankingEntry{
			Rank:         i + 1,
			PlayerID:     p.ID,
			Nickname:     p.Nickname,
			Rating:       p.Rating,
			TotalMatches: p.TotalMatches,
			Wins:         p.Wins,
			Losses:       p.Losses,
			WinRate:      winRate(p.Wins, p.TotalMatches),
			KDRatio:      formatKD(p.TotalKills, p.TotalDeaths),
		})
	}
	return ranking, nil
}

// Profile загружает игрока и обе истории параллельно.
func (s *historyService) Profile(ctx context.Context, playerID int) (*Profile, error) {
	profile := &Profile{}
	g, gCtx := errgroup.WithContext(ctx)

	g.Go(func() error {
		player, err := s.getPlayer(gCtx, playerID)
		if err != nil {
			return err
		}
		profile.Player = player
		return nil
	})

	g.Go(func() error {
		stats, err := s.statRepo.ListByPlayer(gCtx, playerID, matchHistoryLimit)
		if err != nil {
			return fmt.Errorf("failed to load match history: %w", err)
		}
		profile.RecentMatches = stats
		return nil
	})

	g.Go(func() error {
		changes, err := s.ratingHistory.ListByPlayer(gCtx, playerID, ratingHistoryLimit)
		if err != nil {
			return fmt.Errorf("failed to load rating history: %w", err)
		}
		profile.RatingHistory = changes
		return nil
	})

	if err := g.Wait(); err != nil {
		return nil, err
	}
	return profile, nil
}

func (s *historyService) getPlayer(ctx context.Context, playerID int) (*models.Player, error) {
	player, err := s.playerRepo.GetByID(ctx, nil, playerID)
	if err != nil {
		if errors.Is(err, repositories.ErrPlayerNotFound) {
			return nil, ErrPlayerNotFound
		}
		return nil, fmt.Errorf("failed to get player %d: %w", playerID, err)
	}
	populateAvatarURL(player, s.uploader)
	return player, nil
}

func winRate(wins, total int) int {
	if total == 0 {
		return 0
	}
	return int(math.Round(float64(wins) * 100 / float64(total)))
}

func formatKD(kills, deaths int) string {
	if deaths == 0 {
		return fmt.Sprintf("%.2f", float64(kills))
	}
	return fmt.Sprintf("%.2f", float64(kills)/float64(deaths))
}
