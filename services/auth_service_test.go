package services

import (
	"context"
	"strings"
	"testing"

	"github.com/Dosada05/scrim-system/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

func newTestAuthService(env *testEnv) *authService {
	return &authService{playerRepo: env.players, bcryptCost: bcrypt.MinCost}
}

func TestAuthService_Register(t *testing.T) {
	env := newTestEnv()
	svc := newTestAuthService(env)
	steam := "  76561198000000000 "

	player, err := svc.Register(context.Background(), RegisterInput{
		Nickname: "  s1mple ",
		Password: "secret123",
		SteamID:  &steam,
	})
	require.NoError(t, err)

	assert.Equal(t, "s1mple", player.Nickname)
	assert.Equal(t, models.DefaultRating, player.Rating)
	assert.Empty(t, player.PasswordHash)
	require.NotNil(t, player.SteamID)
	assert.Equal(t, "76561198000000000", *player.SteamID)

	stored := env.store.player(player.ID)
	assert.NoError(t, bcrypt.CompareHashAndPassword([]byte(stored.PasswordHash), []byte("secret123")))
}

func TestAuthService_RegisterValidation(t *testing.T) {
	tests := []struct {
		name    string
		input   RegisterInput
		wantErr error
	}{
		{"nickname too short", RegisterInput{Nickname: "a", Password: "secret123"}, ErrNicknameInvalid},
		{"nickname only spaces", RegisterInput{Nickname: "    ", Password: "secret123"}, ErrNicknameInvalid},
		{"nickname too long", RegisterInput{Nickname: strings.Repeat("x", 33), Password: "secret123"}, ErrNicknameInvalid},
		{"password too short", RegisterInput{Nickname: "zywoo", Password: "12345"}, ErrPasswordTooShort},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			env := newTestEnv()
			_, err := newTestAuthService(env).Register(context.Background(), tt.input)
			assert.ErrorIs(t, err, tt.wantErr)
			assert.Empty(t, env.store.players)
		})
	}
}

func TestAuthService_RegisterNicknameTaken(t *testing.T) {
	env := newTestEnv()
	env.store.addPlayer(1, "niko", 1000)

	_, err := newTestAuthService(env).Register(context.Background(), RegisterInput{Nickname: "niko", Password: "secret123"})
	assert.ErrorIs(t, err, ErrNicknameConflict)
}

func TestAuthService_Login(t *testing.T) {
	env := newTestEnv()
	svc := newTestAuthService(env)
	registered, err := svc.Register(context.Background(), RegisterInput{Nickname: "device", Password: "hunter22"})
	require.NoError(t, err)

	player, err := svc.Login(context.Background(), LoginInput{Nickname: "device", Password: "hunter22"})
	require.NoError(t, err)
	assert.Equal(t, registered.ID, player.ID)
	assert.Empty(t, player.PasswordHash)

	_, err = svc.Login(context.Background(), LoginInput{Nickname: "device", Password: "wrong-pass"})
	assert.ErrorIs(t, err, ErrInvalidCredentials)

	_, err = svc.Login(context.Background(), LoginInput{Nickname: "nobody", Password: "hunter22"})
	assert.ErrorIs(t, err, ErrInvalidCredentials)
}
