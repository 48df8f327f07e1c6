package handlers

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/karafriends/backend/internal/catalog"
	"github.com/karafriends/backend/internal/models"
)

const (
	defaultCatalogPageSize = 20
	maxCatalogPageSize     = 50
	youtubeSearchLimit     = 20
)

type YouTubeCatalog interface {
	Search(ctx context.Context, query string, limit int) ([]catalog.YouTubeVideo, error)
	VideoInfo(ctx context.Context, videoID string) (*catalog.YouTubeVideoInfo, error)
}

type NicoCatalog interface {
	VideoInfo(ctx context.Context, videoID string) (*catalog.NicoVideoInfo, error)
}

type DamCatalog interface {
	SearchSongs(ctx context.Context, keyword string, first, after int) (catalog.Page[catalog.DamSong], error)
	Song(ctx context.Context, id string) (*catalog.DamSongDetail, error)
	StreamingURLs(ctx context.Context, id string) ([]catalog.StreamingURL, error)
}

type JoysoundCatalog interface {
	SearchSongs(ctx context.Context, keyword string, first, after int) (catalog.Page[catalog.JoysoundSong], error)
	Song(ctx context.Context, id string) (*catalog.JoysoundSong, error)
}

// CatalogHandler passes song and video lookups through to the upstream
// catalogs.
type CatalogHandler struct {
	youtube  YouTubeCatalog
	nico     NicoCatalog
	dam      DamCatalog
	joysound JoysoundCatalog
}

func NewCatalogHandler(youtube YouTubeCatalog, nico NicoCatalog, dam DamCatalog, joysound JoysoundCatalog) *CatalogHandler {
	return &CatalogHandler{youtube: youtube, nico: nico, dam: dam, joysound: joysound}
}

// writeCatalogError maps upstream failures onto response codes.
func writeCatalogError(ctx context.Context, w http.ResponseWriter, message string, err error) {
	var unplayable *catalog.UnplayableError
	switch {
	case errors.Is(err, catalog.ErrNotFound):
		writeError(w, http.StatusNotFound, "not found")
	case errors.Is(err, catalog.ErrNotConfigured):
		writeError(w, http.StatusServiceUnavailable, err.Error())
	case errors.As(err, &unplayable):
		writeError(w, http.StatusUnprocessableEntity, unplayable.Error())
	default:
		writeErrorWithCause(ctx, w, http.StatusBadGateway, message, err)
	}
}

func searchParams(w http.ResponseWriter, r *http.Request) (query string, first, after int, ok bool) {
	query = strings.TrimSpace(r.URL.Query().Get("q"))
	if query == "" {
		writeError(w, http.StatusBadRequest, "query parameter 'q' is required")
		return "", 0, 0, false
	}

	first, err := queryInt(r, "first", defaultCatalogPageSize)
	if err != nil || first <= 0 {
		writeError(w, http.StatusBadRequest, "first must be a positive integer")
		return "", 0, 0, false
	}
	after, err = queryInt(r, "after", 0)
	if err != nil || after < 0 {
		writeError(w, http.StatusBadRequest, "after must be a non-negative integer")
		return "", 0, 0, false
	}
	return query, min(first, maxCatalogPageSize), after, true
}

func (h *CatalogHandler) YoutubeSearch(w http.ResponseWriter, r *http.Request) {
	query := strings.TrimSpace(r.URL.Query().Get("q"))
	if query == "" {
		writeError(w, http.StatusBadRequest, "query parameter 'q' is required")
		return
	}

	videos, err := h.youtube.Search(r.Context(), query, youtubeSearchLimit)
	if err != nil {
		writeCatalogError(r.Context(), w, "search failed", err)
		return
	}

	response := models.YouTubeSearchResponse{
		Videos: make([]models.YouTubeVideoResponse, len(videos)),
	}
	for i, video := range videos {
		response.Videos[i] = models.YouTubeVideoResponse{
			ID:           video.ID,
			Title:        video.Title,
			ChannelTitle: video.ChannelTitle,
			ThumbnailURL: video.ThumbnailURL,
			DurationMS:   video.DurationMS,
		}
	}

	writeJSON(w, http.StatusOK, response)
}

func (h *CatalogHandler) YoutubeVideo(w http.ResponseWriter, r *http.Request) {
	info, err := h.youtube.VideoInfo(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeCatalogError(r.Context(), w, "video lookup failed", err)
		return
	}
	writeJSON(w, http.StatusOK, info)
}

func (h *CatalogHandler) NicoVideo(w http.ResponseWriter, r *http.Request) {
	info, err := h.nico.VideoInfo(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeCatalogError(r.Context(), w, "video lookup failed", err)
		return
	}
	writeJSON(w, http.StatusOK, info)
}

func (h *CatalogHandler) DamSearch(w http.ResponseWriter, r *http.Request) {
	query, first, after, ok := searchParams(w, r)
	if !ok {
		return
	}

	page, err := h.dam.SearchSongs(r.Context(), query, first, after)
	if err != nil {
		writeCatalogError(r.Context(), w, "search failed", err)
		return
	}
	writeJSON(w, http.StatusOK, models.NewCatalogPage(page))
}

func (h *CatalogHandler) DamSong(w http.ResponseWriter, r *http.Request) {
	song, err := h.dam.Song(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeCatalogError(r.Context(), w, "song lookup failed", err)
		return
	}
	writeJSON(w, http.StatusOK, song)
}

func (h *CatalogHandler) DamStreamingURLs(w http.ResponseWriter, r *http.Request) {
	urls, err := h.dam.StreamingURLs(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeCatalogError(r.Context(), w, "streaming url lookup failed", err)
		return
	}
	writeJSON(w, http.StatusOK, models.StreamingURLsResponse{StreamingURLs: urls})
}

func (h *CatalogHandler) JoysoundSearch(w http.ResponseWriter, r *http.Request) {
	query, first, after, ok := searchParams(w, r)
	if !ok {
		return
	}

	page, err := h.joysound.SearchSongs(r.Context(), query, first, after)
	if err != nil {
		writeCatalogError(r.Context(), w, "search failed", err)
		return
	}
	writeJSON(w, http.StatusOK, models.NewCatalogPage(page))
}

func (h *CatalogHandler) JoysoundSong(w http.ResponseWriter, r *http.Request) {
	song, err := h.joysound.Song(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeCatalogError(r.Context(), w, "song lookup failed", err)
		return
	}
	writeJSON(w, http.StatusOK, song)
}
