package services

// Типы событий, рассылаемых по комнате.
const (
	EventRoomUpdated   = "room.updated"
	EventRoomMatched   = "room.matched"
	EventBPUpdated     = "bp.updated"
	EventBPCompleted   = "bp.completed"
	EventMatchUpdated  = "match.updated"
	EventMatchFinished = "match.finished"
)

// Notifier delivers room-scoped events to connected clients. Publish must not block.
type Notifier interface {
	Publish(roomID int, eventType string, payload interface{})
}

type nopNotifier struct{}

func (nopNotifier) Publish(int, string, interface{}) {}

func notifierOrNop(n Notifier) Notifier {
	if n == nil {
		return nopNotifier{}
	}
	return n
}
