package handlers

import (
	"net/http"

	"github.com/karafriends/backend/internal/models"
)

// QueueLimits reports the live per-device queue limit.
type QueueLimits interface {
	SongQueueLimit() int
}

type ConfigHandler struct {
	limits           QueueLimits
	useLowBitrateURL bool
}

func NewConfigHandler(limits QueueLimits, useLowBitrateURL bool) *ConfigHandler {
	return &ConfigHandler{limits: limits, useLowBitrateURL: useLowBitrateURL}
}

// PublicConfig returns non-sensitive configuration for the frontend
func (h *ConfigHandler) PublicConfig(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, models.ConfigResponse{
		PaxSongQueueLimit: h.limits.SongQueueLimit(),
		UseLowBitrateURL:  h.useLowBitrateURL,
	})
}
