package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/Dosada05/scrim-system/models"
	"github.com/Dosada05/scrim-system/repositories"
	"golang.org/x/crypto/bcrypt"
)

const (
	minNicknameLength = 2
	maxNicknameLength = 32
	minPasswordLength = 6
)

type AuthService interface {
	Register(ctx context.Context, input RegisterInput) (*models.Player, error)
	Login(ctx context.Context, input LoginInput) (*models.Player, error)
}

type RegisterInput struct {
	Nickname string  `json:"nickname"`
	Password string  `json:"password"`
	SteamID  *string `json:"steam_id,omitempty"`
}

type LoginInput struct {
	Nickname string `json:"nickname"`
	Password string `json:"password"`
}

type authService struct {
	playerRepo repositories.PlayerRepository
	bcryptCost int
}

func NewAuthService(playerRepo repositories.PlayerRepository) AuthService {
	return &authService{
		playerRepo: playerRepo,
		bcryptCost: bcrypt.DefaultCost,
	}
}

func (s *authService) Register(ctx context.Context, input RegisterInput) (*models.Player, error) {
	nickname := strings.TrimSpace(input.Nickname)
	if n := utf8.RuneCountInString(nickname); n < minNicknameLength || n > maxNicknameLength {
		return nil, ErrNicknameInvalid
	}
	if len(input.Password) < minPasswordLength {
		return nil, ErrPasswordTooShort
	}

	var steamID *string
	if input.SteamID != nil {
		if trimmed := strings.TrimSpace(*input.SteamID); trimmed != "" {
			steamID = &trimmed
		}
	}

	hashedPassword, err := bcrypt.GenerateFromPassword([]byte(input.Password), s.bcryptCost)
	if err != nil {
		return nil, fmt.Errorf("ошибка хеширования пароля: %w", err)
	}

	player := &models.Player{
		Nickname:     nickname,
		PasswordHash: string(hashedPassword),
		SteamID:      steamID,
		Rating:       models.DefaultRating,
	}

	err = s.playerRepo.Create(ctx, player)
	if err != nil {
		switch {
		case errors.Is(err, repositories.ErrPlayerNicknameConflict):
			return nil, ErrNicknameConflict
		case errors.Is(err, repositories.ErrPlayerSteamIDConflict):
			return nil, ErrSteamIDConflict
		default:
			return nil, fmt.Errorf("ошибка создания игрока: %w", err)
		}
	}

	player.PasswordHash = ""
	return player, nil
}

func (s *authService) Login(ctx context.Context, input LoginInput) (*models.Player, error) {
	player, err := s.playerRepo.GetByNickname(ctx, strings.TrimSpace(input.Nickname))
	if err != nil {
		if errors.Is(err, repositories.ErrPlayerNotFound) {
			return nil, ErrInvalidCredentials
		}
		return nil, fmt.Errorf("failed to find player by nickname: %w", err)
	}

	err = bcrypt.CompareHashAndPassword([]byte(player.PasswordHash), []byte(input.Password))
	if err != nil {
		if errors.Is(err, bcrypt.ErrMismatchedHashAndPassword) {
			return nil, ErrInvalidCredentials
		}
		return nil, fmt.Errorf("failed to compare password hash: %w", err)
	}

	player.PasswordHash = ""
	return player, nil
}
