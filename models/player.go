package models

import "time"

// DefaultRating is the rating every newly registered player starts with.
const DefaultRating = 1000

// Player представляет зарегистрированного игрока.
type Player struct {
	ID           int       `json:"id" db:"id"`
	Nickname     string    `json:"nickname" db:"nickname"`
	PasswordHash string    `json:"-" db:"password_hash"`
	SteamID      *string   `json:"steam_id,omitempty" db:"steam_id"`
	Rating       int       `json:"elo" db:"elo"`
	TotalMatches int       `json:"total_matches" db:"total_matches"`
	Wins         int       `json:"wins" db:"wins"`
	Losses       int       `json:"losses" db:"losses"`
	TotalKills   int       `json:"total_kills" db:"total_kills"`
	TotalDeaths  int       `json:"total_deaths" db:"total_deaths"`
	CreatedAt    time.Time `json:"created_at" db:"created_at"`
	UpdatedAt    time.Time `json:"updated_at" db:"updated_at"`

	AvatarKey *string `json:"-" db:"avatar_key"`
	AvatarURL *string `json:"avatar_url,omitempty" db:"-"`
}

// PlayerResult is what a finished match adds to a player's record.
type PlayerResult struct {
	PlayerID  int
	NewRating int
	Win       bool
	Loss      bool
	Kills     int
	Deaths    int
}

type RankingEntry struct {
	Rank         int    `json:"rank"`
	PlayerID     int    `json:"player_id"`
	Nickname     string `json:"nickname"`
	Rating       int    `json:"elo"`
	TotalMatches int    `json:"total_matches"`
	Wins         int    `json:"wins"`
	Losses       int    `json:"losses"`
	WinRate      int    `json:"win_rate"`
	KDRatio      string `json:"kd_ratio"`
}
