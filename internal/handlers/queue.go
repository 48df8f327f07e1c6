package handlers

import (
	"context"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/karafriends/backend/internal/acquisition"
	"github.com/karafriends/backend/internal/models"
	"github.com/karafriends/backend/internal/session"
)

// Acquirer queues songs from each source. *acquisition.Pipeline satisfies it.
type Acquirer interface {
	QueueDam(ctx context.Context, user session.UserIdentity, in acquisition.DamInput, tryHead bool) (session.QueueSongResult, error)
	QueueJoysound(ctx context.Context, user session.UserIdentity, in acquisition.JoysoundInput, tryHead bool) (session.QueueSongResult, error)
	QueueYoutube(ctx context.Context, user session.UserIdentity, in acquisition.YoutubeInput, tryHead bool) (session.QueueSongResult, error)
	QueueNico(ctx context.Context, user session.UserIdentity, in acquisition.NicoInput, tryHead bool) (session.QueueSongResult, error)
}

// QueueHandler serves the play queue: reads, song submission, pop and remove.
type QueueHandler struct {
	store    *session.Store
	acquirer Acquirer
}

func NewQueueHandler(store *session.Store, acquirer Acquirer) *QueueHandler {
	return &QueueHandler{store: store, acquirer: acquirer}
}

// Get returns the current song and the queue behind it.
func (h *QueueHandler) Get(w http.ResponseWriter, r *http.Request) {
	snap := h.store.Snapshot()
	writeJSON(w, http.StatusOK, models.QueueResponse{
		CurrentSong: snap.CurrentSong,
		Queue:       snap.SongQueue,
	})
}

func (h *QueueHandler) CurrentSong(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, models.CurrentSongResponse{CurrentSong: h.store.CurrentSong()})
}

// queueSong decodes a {input, tryHeadOfQueue} body and hands it to submit.
// Admission rejections are reported in the body with status 200.
func queueSong[T any](w http.ResponseWriter, r *http.Request, submit func(ctx context.Context, user session.UserIdentity, in T, tryHead bool) (session.QueueSongResult, error)) {
	user, ok := requireIdentity(w, r)
	if !ok {
		return
	}

	var req models.QueueSongRequest[T]
	if !decodeJSON(w, r, &req) {
		return
	}

	result, err := submit(r.Context(), user, req.Input, req.TryHeadOfQueue)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	writeJSON(w, http.StatusOK, models.NewQueueSongResponse(result))
}

func (h *QueueHandler) QueueDam(w http.ResponseWriter, r *http.Request) {
	queueSong(w, r, h.acquirer.QueueDam)
}

func (h *QueueHandler) QueueJoysound(w http.ResponseWriter, r *http.Request) {
	queueSong(w, r, h.acquirer.QueueJoysound)
}

func (h *QueueHandler) QueueYoutube(w http.ResponseWriter, r *http.Request) {
	queueSong(w, r, h.acquirer.QueueYoutube)
}

func (h *QueueHandler) QueueNico(w http.ResponseWriter, r *http.Request) {
	queueSong(w, r, h.acquirer.QueueNico)
}

// Pop advances the queue and returns the new current song, null when the
// queue was empty.
func (h *QueueHandler) Pop(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, models.PopSongResponse{Song: h.store.PopSong(r.Context())})
}

// Remove deletes a queued entry by (songId, timestamp). Missing entries
// still succeed with removed=false.
func (h *QueueHandler) Remove(w http.ResponseWriter, r *http.Request) {
	songID := chi.URLParam(r, "songId")
	timestamp := chi.URLParam(r, "timestamp")
	if songID == "" || timestamp == "" {
		writeError(w, http.StatusBadRequest, "songId and timestamp are required")
		return
	}

	removed := h.store.RemoveSong(r.Context(), songID, timestamp)
	writeJSON(w, http.StatusOK, models.RemoveSongResponse{OK: true, Removed: removed})
}

func (h *QueueHandler) History(w http.ResponseWriter, r *http.Request) {
	first, err := queryInt(r, "first", session.DefaultHistoryPageSize)
	if err != nil || first < 0 {
		writeError(w, http.StatusBadRequest, "first must be a non-negative integer")
		return
	}
	after, err := queryInt(r, "after", 0)
	if err != nil || after < 0 {
		writeError(w, http.StatusBadRequest, "after must be a non-negative integer")
		return
	}

	writeJSON(w, http.StatusOK, models.NewHistoryResponse(h.store.History(first, after)))
}

func (h *QueueHandler) Downloads(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, models.DownloadsResponse{Downloads: h.store.Downloads()})
}

// DownloadProgress reports progress for one in-flight download, or -1 when
// none matches.
func (h *QueueHandler) DownloadProgress(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	dlType, err := session.ParseDownloadType(q.Get("type"))
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	songID := q.Get("songId")
	if songID == "" {
		writeError(w, http.StatusBadRequest, "songId is required")
		return
	}

	progress, ok := h.store.DownloadProgress(dlType, songID, q.Get("suffix"))
	if !ok {
		progress = -1
	}
	writeJSON(w, http.StatusOK, models.DownloadProgressResponse{Progress: progress})
}
