package handlers

import (
	"errors"
	"net/http"

	"github.com/karafriends/backend/internal/logging"
	"github.com/karafriends/backend/internal/models"
	"github.com/karafriends/backend/internal/services"
)

// IdentityHandler issues device identity tokens.
type IdentityHandler struct {
	identity *services.IdentityService
}

func NewIdentityHandler(identity *services.IdentityService) *IdentityHandler {
	return &IdentityHandler{identity: identity}
}

// Issue resolves the requested device id and nickname, filling in whatever
// is missing, and returns a signed token naming them.
func (h *IdentityHandler) Issue(w http.ResponseWriter, r *http.Request) {
	var req models.IdentityRequest
	if r.ContentLength != 0 {
		if !decodeJSON(w, r, &req) {
			return
		}
	}

	user, err := h.identity.Resolve(req.DeviceID, req.Nickname)
	if err != nil {
		if errors.Is(err, services.ErrInvalidDeviceID) {
			logging.LogSecurityEvent(r.Context(), logging.SecurityEventBadDeviceID, "rejected device id")
		}
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	token, err := h.identity.GenerateToken(user)
	if err != nil {
		writeErrorWithCause(r.Context(), w, http.StatusInternalServerError, "failed to issue token", err)
		return
	}

	writeJSON(w, http.StatusOK, models.IdentityResponse{
		Token:    token,
		DeviceID: user.DeviceID,
		Nickname: user.Nickname,
	})
}
