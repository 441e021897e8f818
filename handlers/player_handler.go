package handlers

import (
	"errors"
	"net/http"

	"github.com/Dosada05/scrim-system/services"
)

type PlayerHandler struct {
	playerService  services.PlayerService
	historyService services.HistoryService
}

func NewPlayerHandler(ps services.PlayerService, hs services.HistoryService) *PlayerHandler {
	return &PlayerHandler{
		playerService:  ps,
		historyService: hs,
	}
}

// GetPlayer godoc
// @Summary Player info
// @Tags players
// @Produce json
// @Param playerID path int true "player id"
// @Router /api/players/{playerID} [get]
func (h *PlayerHandler) GetPlayer(w http.ResponseWriter, r *http.Request) {
	playerID, err := getIDFromURL(r, "playerID")
	if err != nil {
		badRequestResponse(w, r, err)
		return
	}

	player, err := h.playerService.GetPlayer(r.Context(), playerID)
	if err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}

	okResponse(w, r, http.StatusOK, jsonResponse{"player": player})
}

// GetProfile godoc
// @Summary Player with recent matches and rating history
// @Tags players
// @Produce json
// @Param playerID path int true "player id"
// @Router /api/players/{playerID}/profile [get]
func (h *PlayerHandler) GetProfile(w http.ResponseWriter, r *http.Request) {
	playerID, err := getIDFromURL(r, "playerID")
	if err != nil {
		badRequestResponse(w, r, err)
		return
	}

	profile, err := h.historyService.Profile(r.Context(), playerID)
	if err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}

	okResponse(w, r, http.StatusOK, profile)
}

// UploadAvatar godoc
// @Summary Upload the current player's avatar
// @Tags players
// @Accept multipart/form-data
// @Produce json
// @Param avatar formData file true "jpeg, png or webp up to 2 MB"
// @Security BearerAuth
// @Router /api/players/me/avatar [post]
func (h *PlayerHandler) UploadAvatar(w http.ResponseWriter, r *http.Request) {
	playerID, ok := currentPlayerID(w, r)
	if !ok {
		return
	}

	r.Body = http.MaxBytesReader(w, r.Body, services.MaxAvatarSize+(64<<10))
	file, header, err := r.FormFile("avatar")
	if err != nil {
		badRequestResponse(w, r, errors.New("multipart field 'avatar' is required and must not exceed 2 MB"))
		return
	}
	defer file.Close()

	contentType := header.Header.Get("Content-Type")
	if contentType == "" {
		badRequestResponse(w, r, errors.New("content type required"))
		return
	}

	player, err := h.playerService.UpdateAvatar(r.Context(), playerID, file, contentType, header.Size)
	if err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}

	okResponse(w, r, http.StatusOK, jsonResponse{"player": player})
}
