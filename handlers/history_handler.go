package handlers

import (
	"net/http"

	"github.com/Dosada05/scrim-system/services"
)

type HistoryHandler struct {
	historyService services.HistoryService
}

func NewHistoryHandler(hs services.HistoryService) *HistoryHandler {
	return &HistoryHandler{historyService: hs}
}

func (h *HistoryHandler) PlayerHistory(w http.ResponseWriter, r *http.Request) {
	playerID, err := getIDFromURL(r, "playerID")
	if err != nil {
		badRequestResponse(w, r, err)
		return
	}

	history, err := h.historyService.PlayerHistory(r.Context(), playerID)
	if err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}

	okResponse(w, r, http.StatusOK, jsonResponse{"matches": history})
}

func (h *HistoryHandler) RatingHistory(w http.ResponseWriter, r *http.Request) {
	playerID, err := getIDFromURL(r, "playerID")
	if err != nil {
		badRequestResponse(w, r, err)
		return
	}

	changes, err := h.historyService.RatingHistory(r.Context(), playerID)
	if err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}

	okResponse(w, r, http.StatusOK, jsonResponse{"elo_history": changes})
}

func (h *HistoryHandler) Ranking(w http.ResponseWriter, r *http.Request) {
	ranking, err := h.historyService.Ranking(r.Context())
	if err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}

	okResponse(w, r, http.StatusOK, jsonResponse{"ranking": ranking})
}
