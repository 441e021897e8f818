package models

import "time"

type RoomStatus string

const (
	RoomStatusWaiting  RoomStatus = "waiting"
	RoomStatusReady    RoomStatus = "ready"
	RoomStatusMatching RoomStatus = "matching"
	RoomStatusBP       RoomStatus = "bp"
	RoomStatusPlaying  RoomStatus = "playing"
	RoomStatusFinished RoomStatus = "finished"
)

// RosterEntry is a player queued in a room, with the rating captured at join time.
type RosterEntry struct {
	PlayerID int    `json:"player_id"`
	Nickname string `json:"nickname"`
	Rating   int    `json:"elo"`
	Ready    bool   `json:"ready"`
}

type Room struct {
	ID          int           `json:"id" db:"id"`
	Status      RoomStatus    `json:"status" db:"status"`
	Players     []RosterEntry `json:"players" db:"players"`
	TeamA       []int         `json:"team_a" db:"team_a"`
	TeamB       []int         `json:"team_b" db:"team_b"`
	AverageA    float64       `json:"team_a_avg_elo" db:"average_a"`
	AverageB    float64       `json:"team_b_avg_elo" db:"average_b"`
	Gap         float64       `json:"elo_diff" db:"elo_diff"`
	BPSessionID *int          `json:"bp_id,omitempty" db:"bp_id"`
	CreatedAt   time.Time     `json:"created_at" db:"created_at"`
	UpdatedAt   time.Time     `json:"updated_at" db:"updated_at"`
}

// HasPlayer reports whether playerID is in the room's roster.
func (r *Room) HasPlayer(playerID int) bool {
	return r.rosterIndex(playerID) >= 0
}

func (r *Room) rosterIndex(playerID int) int {
	for i, p := range r.Players {
		if p.PlayerID == playerID {
			return i
		}
	}
	return -1
}

// SetReady flips the ready flag for playerID and returns false if the player is not in the room.
func (r *Room) SetReady(playerID int, ready bool) bool {
	i := r.rosterIndex(playerID)
	if i < 0 {
		return false
	}
	r.Players[i].Ready = ready
	return true
}

// AllReady требует минимум двух игроков, и все должны быть готовы.
func (r *Room) AllReady() bool {
	if len(r.Players) < 2 {
		return false
	}
	for _, p := range r.Players {
		if !p.Ready {
			return false
		}
	}
	return true
}

// IsMatched reports whether teams have already been assigned.
func (r *Room) IsMatched() bool {
	return len(r.TeamA) > 0 && len(r.TeamB) > 0
}

type RoomSummary struct {
	ID          int        `json:"id"`
	PlayerCount int        `json:"player_count"`
	Status      RoomStatus `json:"status"`
	CreatedAt   time.Time  `json:"created_at"`
}
