package handlers

import (
	"net/http"

	"github.com/Dosada05/scrim-system/services"
)

type MatchHandler struct {
	matchService services.MatchService
}

func NewMatchHandler(ms services.MatchService) *MatchHandler {
	return &MatchHandler{matchService: ms}
}

func (h *MatchHandler) GetMatch(w http.ResponseWriter, r *http.Request) {
	matchID, err := getIDFromURL(r, "matchID")
	if err != nil {
		badRequestResponse(w, r, err)
		return
	}

	match, err := h.matchService.GetMatch(r.Context(), matchID)
	if err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}

	okResponse(w, r, http.StatusOK, jsonResponse{"match": match})
}

func (h *MatchHandler) UpdateLive(w http.ResponseWriter, r *http.Request) {
	matchID, err := getIDFromURL(r, "matchID")
	if err != nil {
		badRequestResponse(w, r, err)
		return
	}

	var input services.ResultInput
	if err := readJSON(w, r, &input); err != nil {
		badRequestResponse(w, r, err)
		return
	}

	match, err := h.matchService.UpdateLive(r.Context(), matchID, input)
	if err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}

	okResponse(w, r, http.StatusOK, jsonResponse{"match": match})
}

// Finish godoc
// @Summary Record the final result and update ratings
// @Tags matches
// @Accept json
// @Produce json
// @Param matchID path int true "match id"
// @Param input body services.ResultInput true "final score and per-player stats"
// @Security BearerAuth
// @Router /api/matches/{matchID}/finish [post]
func (h *MatchHandler) Finish(w http.ResponseWriter, r *http.Request) {
	matchID, err := getIDFromURL(r, "matchID")
	if err != nil {
		badRequestResponse(w, r, err)
		return
	}

	var input services.ResultInput
	if err := readJSON(w, r, &input); err != nil {
		badRequestResponse(w, r, err)
		return
	}

	result, err := h.matchService.Finish(r.Context(), matchID, input)
	if err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}

	okResponse(w, r, http.StatusOK, result)
}
