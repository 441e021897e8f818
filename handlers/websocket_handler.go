package handlers

import (
	"log/slog"
	"net/http"

	"github.com/Dosada05/scrim-system/realtime"
	"github.com/gorilla/websocket"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	// Origin проверяет CORS-слой, сокет только читает события.
	CheckOrigin: func(r *http.Request) bool { return true },
}

type WebSocketHandler struct {
	hub *realtime.Hub
}

func NewWebSocketHandler(hub *realtime.Hub) *WebSocketHandler {
	return &WebSocketHandler{hub: hub}
}

// ServeRoom подписывает клиента на события комнаты: /ws/rooms/{roomID}
func (h *WebSocketHandler) ServeRoom(w http.ResponseWriter, r *http.Request) {
	roomID, err := getIDFromURL(r, "roomID")
	if err != nil {
		badRequestResponse(w, r, err)
		return
	}

	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		// Upgrade сам отвечает клиенту ошибкой.
		slog.WarnContext(r.Context(), "websocket upgrade failed", slog.Int("room_id", roomID), slog.Any("error", err))
		return
	}

	h.hub.Register(realtime.NewClient(h.hub, conn, roomID))
}
