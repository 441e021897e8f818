package models

import "time"

type MatchStatus string

const (
	MatchStatusPlaying  MatchStatus = "playing"
	MatchStatusFinished MatchStatus = "finished"
)

const (
	WinnerA    = "A"
	WinnerB    = "B"
	WinnerDraw = "draw"
)

// PlayerStat is one player's combat line as submitted by the match reporter.
type PlayerStat struct {
	PlayerID int `json:"player_id"`
	Kills    int `json:"kills"`
	Deaths   int `json:"deaths"`
	Assists  int `json:"assists"`
}

type Match struct {
	ID          int          `json:"id" db:"id"`
	RoomID      int          `json:"room_id" db:"room_id"`
	Map         string       `json:"map" db:"map"`
	TeamA       []int        `json:"team_a" db:"team_a"`
	TeamB       []int        `json:"team_b" db:"team_b"`
	ScoreA      int          `json:"score_a" db:"score_a"`
	ScoreB      int          `json:"score_b" db:"score_b"`
	Winner      *string      `json:"winner" db:"winner"`
	Status      MatchStatus  `json:"status" db:"status"`
	PlayerStats []PlayerStat `json:"player_stats" db:"player_stats"`
	CreatedAt   time.Time    `json:"created_at" db:"created_at"`
	UpdatedAt   time.Time    `json:"updated_at" db:"updated_at"`
	FinishedAt  *time.Time   `json:"finished_at,omitempty" db:"finished_at"`
}

// SideOf returns "A", "B" or "" for a player id.
func (m *Match) SideOf(playerID int) string {
	for _, id := range m.TeamA {
		if id == playerID {
			return WinnerA
		}
	}
	for _, id := range m.TeamB {
		if id == playerID {
			return WinnerB
		}
	}
	return ""
}

// PlayerMatchStat is the per-player row written when a match is finished.
type PlayerMatchStat struct {
	ID           int       `json:"id" db:"id"`
	MatchID      int       `json:"match_id" db:"match_id"`
	PlayerID     int       `json:"player_id" db:"player_id"`
	Team         string    `json:"team" db:"team"`
	Kills        int       `json:"kills" db:"kills"`
	Deaths       int       `json:"deaths" db:"deaths"`
	Assists      int       `json:"assists" db:"assists"`
	KDRatio      float64   `json:"kd_ratio" db:"kd_ratio"`
	RatingBefore int       `json:"elo_before" db:"elo_before"`
	RatingAfter  int       `json:"elo_after" db:"elo_after"`
	RatingChange int       `json:"elo_change" db:"elo_change"`
	CreatedAt    time.Time `json:"created_at" db:"created_at"`

	// Заполняются при выборке истории (JOIN с matches).
	MatchDate   *time.Time `json:"match_date,omitempty" db:"-"`
	MatchMap    *string    `json:"match_map,omitempty" db:"-"`
	MatchWinner *string    `json:"match_winner,omitempty" db:"-"`
	ScoreA      int        `json:"score_a" db:"-"`
	ScoreB      int        `json:"score_b" db:"-"`
}

// RatingChange is an immutable audit entry of one rating movement.
type RatingChange struct {
	ID        int       `json:"id" db:"id"`
	PlayerID  int       `json:"player_id" db:"player_id"`
	MatchID   int       `json:"match_id" db:"match_id"`
	Before    int       `json:"elo_before" db:"elo_before"`
	After     int       `json:"elo_after" db:"elo_after"`
	Change    int       `json:"elo_change" db:"elo_change"`
	Reason    string    `json:"reason" db:"reason"`
	CreatedAt time.Time `json:"created_at" db:"created_at"`
}
