package handlers

import (
	"net/http"
	"strings"
	"unicode/utf8"

	"github.com/go-chi/chi/v5"
	"github.com/karafriends/backend/internal/models"
	"github.com/karafriends/backend/internal/session"
)

const (
	maxEmoteLength = 16
	maxPitchShift  = 12
	maxLyricLength = 500
)

// PlaybackHandler serves the player controls: lyrics overlay, pitch,
// transport state and emotes.
type PlaybackHandler struct {
	store *session.Store
}

func NewPlaybackHandler(store *session.Store) *PlaybackHandler {
	return &PlaybackHandler{store: store}
}

// AdhocLyrics returns the stored lyric lines for a song.
func (h *PlaybackHandler) AdhocLyrics(w http.ResponseWriter, r *http.Request) {
	songID := chi.URLParam(r, "songId")
	lines, ok := h.store.AdhocLyrics(songID)
	if !ok {
		writeError(w, http.StatusNotFound, "no lyrics for song")
		return
	}
	writeJSON(w, http.StatusOK, models.AdhocLyricsResponse{SongID: songID, Lines: lines})
}

// PushAdhocLyric appends one line to the current song's overlay.
func (h *PlaybackHandler) PushAdhocLyric(w http.ResponseWriter, r *http.Request) {
	var req models.AdhocLyricRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	if req.LyricIndex < 0 || utf8.RuneCountInString(req.Lyric) > maxLyricLength {
		writeError(w, http.StatusBadRequest, "invalid lyric")
		return
	}

	h.store.PushAdhocLyrics(r.Context(), req.Lyric, req.LyricIndex)
	writeJSON(w, http.StatusOK, models.OKResponse{OK: true})
}

func (h *PlaybackHandler) PitchShift(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, models.PitchShiftResponse{Semis: h.store.PitchShiftSemis()})
}

func (h *PlaybackHandler) SetPitchShift(w http.ResponseWriter, r *http.Request) {
	var req models.PitchShiftRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	if req.Semis == nil || *req.Semis < -maxPitchShift || *req.Semis > maxPitchShift {
		writeError(w, http.StatusBadRequest, "semis must be between -12 and 12")
		return
	}

	h.store.SetPitchShiftSemis(*req.Semis)
	writeJSON(w, http.StatusOK, models.PitchShiftResponse{Semis: *req.Semis})
}

func (h *PlaybackHandler) PlaybackState(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, models.PlaybackStateResponse{PlaybackState: h.store.PlaybackState()})
}

func (h *PlaybackHandler) SetPlaybackState(w http.ResponseWriter, r *http.Request) {
	var req models.PlaybackStateRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	state, err := session.ParsePlaybackState(req.PlaybackState)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	h.store.SetPlaybackState(r.Context(), state)
	writeJSON(w, http.StatusOK, models.PlaybackStateResponse{PlaybackState: state})
}

// SendEmote broadcasts an emote from the caller. Nothing is stored.
func (h *PlaybackHandler) SendEmote(w http.ResponseWriter, r *http.Request) {
	user, ok := requireIdentity(w, r)
	if !ok {
		return
	}

	var req models.EmoteRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	emote := strings.TrimSpace(req.Emote)
	if emote == "" || utf8.RuneCountInString(emote) > maxEmoteLength {
		writeError(w, http.StatusBadRequest, "emote must be 1-16 characters")
		return
	}

	h.store.SendEmote(user, emote)
	writeJSON(w, http.StatusOK, models.OKResponse{OK: true})
}
