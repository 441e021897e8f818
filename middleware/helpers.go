package middleware

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/golang-jwt/jwt/v4"
)

// Определяем константы для имен JWT claims
const (
	jwtClaimPlayerID = "player_id"
	jwtClaimNickname = "nickname"
)

// TokenTTL is how long a login token stays valid.
const TokenTTL = 24 * time.Hour

// NewToken signs an HS256 token identifying a player.
func NewToken(secret []byte, playerID int, nickname string, now time.Time) (string, error) {
	claims := jwt.MapClaims{
		jwtClaimPlayerID: playerID,
		jwtClaimNickname: nickname,
		"exp":            now.Add(TokenTTL).Unix(),
		"iat":            now.Unix(),
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(secret)
}

func GetPlayerIDFromContext(ctx context.Context) (int, error) {
	claims, ok := ctx.Value(playerContextKey).(jwt.MapClaims)
	if !ok {
		return 0, errors.New("player claims not found in context or invalid type")
	}

	idClaim, ok := claims[jwtClaimPlayerID]
	if !ok {
		return 0, fmt.Errorf("missing '%s' claim in token", jwtClaimPlayerID)
	}

	var playerID int
	switch v := idClaim.(type) {
	case float64:
		if v != float64(int(v)) {
			return 0, fmt.Errorf("'%s' claim is not an integer: %f", jwtClaimPlayerID, v)
		}
		playerID = int(v)
	case string:
		id, err := strconv.Atoi(v)
		if err != nil {
			return 0, fmt.Errorf("invalid '%s' claim: %w", jwtClaimPlayerID, err)
		}
		playerID = id
	default:
		return 0, fmt.Errorf("invalid type for '%s' claim: expected number or string, got %T", jwtClaimPlayerID, idClaim)
	}

	if playerID <= 0 {
		return 0, fmt.Errorf("invalid player ID value in '%s' claim: %d", jwtClaimPlayerID, playerID)
	}
	return playerID, nil
}

func GetNicknameFromContext(ctx context.Context) string {
	claims, ok := ctx.Value(playerContextKey).(jwt.MapClaims)
	if !ok {
		return ""
	}
	nickname, _ := claims[jwtClaimNickname].(string)
	return nickname
}
