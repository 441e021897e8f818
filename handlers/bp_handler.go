package handlers

import (
	"errors"
	"net/http"

	"github.com/Dosada05/scrim-system/services"
)

type BPHandler struct {
	bpService services.BPService
}

func NewBPHandler(bs services.BPService) *BPHandler {
	return &BPHandler{bpService: bs}
}

type startBPInput struct {
	RoomID int `json:"room_id"`
}

// Start godoc
// @Summary Open the ban/pick session for a matched room
// @Tags bp
// @Accept json
// @Produce json
// @Security BearerAuth
// @Router /api/bp/start [post]
func (h *BPHandler) Start(w http.ResponseWriter, r *http.Request) {
	var input startBPInput
	if err := readJSON(w, r, &input); err != nil {
		badRequestResponse(w, r, err)
		return
	}
	if input.RoomID <= 0 {
		badRequestResponse(w, r, errors.New("room_id is required"))
		return
	}

	session, err := h.bpService.Start(r.Context(), input.RoomID)
	if err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}

	okResponse(w, r, http.StatusOK, jsonResponse{"session": session})
}

// Vote godoc
// @Summary Vote on the current ban/pick step
// @Description A step resolves once the leading map reaches ceil(team_size/2) votes.
// @Tags bp
// @Accept json
// @Produce json
// @Param bpID path int true "session id"
// @Param input body services.VoteInput true "team, action and map"
// @Security BearerAuth
// @Router /api/bp/{bpID}/vote [post]
func (h *BPHandler) Vote(w http.ResponseWriter, r *http.Request) {
	playerID, ok := currentPlayerID(w, r)
	if !ok {
		return
	}
	bpID, err := getIDFromURL(r, "bpID")
	if err != nil {
		badRequestResponse(w, r, err)
		return
	}

	var input services.VoteInput
	if err := readJSON(w, r, &input); err != nil {
		badRequestResponse(w, r, err)
		return
	}

	result, err := h.bpService.Vote(r.Context(), bpID, playerID, input)
	if err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}

	okResponse(w, r, http.StatusOK, result)
}

func (h *BPHandler) Get(w http.ResponseWriter, r *http.Request) {
	bpID, err := getIDFromURL(r, "bpID")
	if err != nil {
		badRequestResponse(w, r, err)
		return
	}

	session, err := h.bpService.Get(r.Context(), bpID)
	if err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}

	okResponse(w, r, http.StatusOK, jsonResponse{"session": session})
}
