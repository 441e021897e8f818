package models

import (
	"time"

	"github.com/Dosada05/scrim-system/banpick"
)

// BPSession is a persisted ban/pick negotiation for one room.
type BPSession struct {
	ID     int `json:"id" db:"id"`
	RoomID int `json:"room_id" db:"room_id"`
	banpick.Session
	// Version is bumped on every write and checked on update.
	Version   int       `json:"version" db:"version"`
	CreatedAt time.Time `json:"created_at" db:"created_at"`
	UpdatedAt time.Time `json:"updated_at" db:"updated_at"`
}
