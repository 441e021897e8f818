package handlers

import (
	"net/http"

	"github.com/Dosada05/scrim-system/services"
)

type RoomHandler struct {
	roomService  services.RoomService
	matchService services.MatchService
}

func NewRoomHandler(rs services.RoomService, ms services.MatchService) *RoomHandler {
	return &RoomHandler{
		roomService:  rs,
		matchService: ms,
	}
}

type readyInput struct {
	Ready *bool `json:"ready"`
}

func (h *RoomHandler) Join(w http.ResponseWriter, r *http.Request) {
	playerID, ok := currentPlayerID(w, r)
	if !ok {
		return
	}

	room, err := h.roomService.Join(r.Context(), playerID)
	if err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}

	okResponse(w, r, http.StatusOK, jsonResponse{"room": room})
}

func (h *RoomHandler) SetReady(w http.ResponseWriter, r *http.Request) {
	playerID, ok := currentPlayerID(w, r)
	if !ok {
		return
	}
	roomID, err := getIDFromURL(r, "roomID")
	if err != nil {
		badRequestResponse(w, r, err)
		return
	}

	// Пустое тело означает "готов".
	ready := true
	if r.ContentLength != 0 {
		var input readyInput
		if err := readJSON(w, r, &input); err != nil {
			badRequestResponse(w, r, err)
			return
		}
		if input.Ready != nil {
			ready = *input.Ready
		}
	}

	room, err := h.roomService.SetReady(r.Context(), roomID, playerID, ready)
	if err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}

	okResponse(w, r, http.StatusOK, jsonResponse{"room": room})
}

func (h *RoomHandler) Leave(w http.ResponseWriter, r *http.Request) {
	playerID, ok := currentPlayerID(w, r)
	if !ok {
		return
	}
	roomID, err := getIDFromURL(r, "roomID")
	if err != nil {
		badRequestResponse(w, r, err)
		return
	}

	room, err := h.roomService.Leave(r.Context(), roomID, playerID)
	if err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}

	okResponse(w, r, http.StatusOK, jsonResponse{"room": room})
}

func (h *RoomHandler) ListRooms(w http.ResponseWriter, r *http.Request) {
	rooms, err := h.roomService.ListOpen(r.Context())
	if err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}

	okResponse(w, r, http.StatusOK, jsonResponse{"rooms": rooms})
}

func (h *RoomHandler) GetRoom(w http.ResponseWriter, r *http.Request) {
	roomID, err := getIDFromURL(r, "roomID")
	if err != nil {
		badRequestResponse(w, r, err)
		return
	}

	room, err := h.roomService.GetRoom(r.Context(), roomID)
	if err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}

	okResponse(w, r, http.StatusOK, jsonResponse{"room": room})
}

// StartMatching godoc
// @Summary Split a ready room into two balanced teams
// @Description Idempotent: a room that already has teams returns them unchanged.
// @Tags rooms
// @Produce json
// @Param roomID path int true "room id"
// @Security BearerAuth
// @Router /api/rooms/{roomID}/match [post]
func (h *RoomHandler) StartMatching(w http.ResponseWriter, r *http.Request) {
	roomID, err := getIDFromURL(r, "roomID")
	if err != nil {
		badRequestResponse(w, r, err)
		return
	}

	room, err := h.matchService.StartMatching(r.Context(), roomID)
	if err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}

	okResponse(w, r, http.StatusOK, jsonResponse{
		"room_id":        room.ID,
		"team_a":         room.TeamA,
		"team_b":         room.TeamB,
		"team_a_avg_elo": room.AverageA,
		"team_b_avg_elo": room.AverageB,
		"elo_diff":       room.Gap,
		"status":         room.Status,
	})
}

func (h *RoomHandler) GetCurrentMatch(w http.ResponseWriter, r *http.Request) {
	roomID, err := getIDFromURL(r, "roomID")
	if err != nil {
		badRequestResponse(w, r, err)
		return
	}

	match, err := h.matchService.GetCurrentMatch(r.Context(), roomID)
	if err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}

	okResponse(w, r, http.StatusOK, jsonResponse{"match": match})
}
