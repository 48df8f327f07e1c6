package models

import (
	"github.com/karafriends/backend/internal/acquisition"
	"github.com/karafriends/backend/internal/catalog"
	"github.com/karafriends/backend/internal/session"
)

// Identity
type IdentityRequest struct {
	DeviceID string `json:"deviceId,omitempty"`
	Nickname string `json:"nickname,omitempty"`
}

type IdentityResponse struct {
	Token    string `json:"token"`
	DeviceID string `json:"deviceId"`
	Nickname string `json:"nickname"`
}

// Queue reads
type QueueResponse struct {
	CurrentSong *session.QueueItem  `json:"currentSong"`
	Queue       []session.QueueItem `json:"queue"`
}

type CurrentSongResponse struct {
	CurrentSong *session.QueueItem `json:"currentSong"`
}

type PageInfo struct {
	HasNextPage bool   `json:"hasNextPage"`
	EndCursor   string `json:"endCursor"`
}

type HistoryResponse struct {
	Edges    []session.HistoryEdge `json:"edges"`
	PageInfo PageInfo              `json:"pageInfo"`
}

func NewHistoryResponse(page session.HistoryPage) HistoryResponse {
	return HistoryResponse{
		Edges:    page.Edges,
		PageInfo: PageInfo{HasNextPage: page.HasNextPage, EndCursor: page.EndCursor},
	}
}

type AdhocLyricsResponse struct {
	SongID string   `json:"songId"`
	Lines  []string `json:"lines"`
}

type DownloadsResponse struct {
	Downloads []session.DownloadQueueItem `json:"downloads"`
}

type DownloadProgressResponse struct {
	Progress float64 `json:"progress"`
}

// Queue writes
type QueueSongRequest[T any] struct {
	Input          T    `json:"input"`
	TryHeadOfQueue bool `json:"tryHeadOfQueue"`
}

type (
	QueueDamRequest      = QueueSongRequest[acquisition.DamInput]
	QueueJoysoundRequest = QueueSongRequest[acquisition.JoysoundInput]
	QueueYoutubeRequest  = QueueSongRequest[acquisition.YoutubeInput]
	QueueNicoRequest     = QueueSongRequest[acquisition.NicoInput]
)

const (
	QueueSongInfoKind  = "QueueSongInfo"
	QueueSongErrorKind = "QueueSongError"
)

// QueueSongResponse is either {kind: QueueSongInfo, eta} or
// {kind: QueueSongError, reason}.
type QueueSongResponse struct {
	Kind   string `json:"kind"`
	ETA    *int   `json:"eta,omitempty"`
	Reason string `json:"reason,omitempty"`
}

func NewQueueSongResponse(result session.QueueSongResult) QueueSongResponse {
	if !result.Accepted {
		return QueueSongResponse{Kind: QueueSongErrorKind, Reason: result.Reason}
	}
	eta := result.ETA
	return QueueSongResponse{Kind: QueueSongInfoKind, ETA: &eta}
}

type PopSongResponse struct {
	Song *session.QueueItem `json:"song"`
}

type RemoveSongResponse struct {
	OK      bool `json:"ok"`
	Removed bool `json:"removed"`
}

// Playback controls
type AdhocLyricRequest struct {
	Lyric      string `json:"lyric"`
	LyricIndex int    `json:"lyricIndex"`
}

type PitchShiftRequest struct {
	Semis *int `json:"semis"`
}

type PitchShiftResponse struct {
	Semis int `json:"semis"`
}

type PlaybackStateRequest struct {
	PlaybackState string `json:"playbackState"`
}

type PlaybackStateResponse struct {
	PlaybackState session.PlaybackState `json:"playbackState"`
}

type EmoteRequest struct {
	Emote string `json:"emote"`
}

type OKResponse struct {
	OK bool `json:"ok"`
}

// Catalog
type YouTubeVideoResponse struct {
	ID           string `json:"id"`
	Title        string `json:"title"`
	ChannelTitle string `json:"channelTitle"`
	ThumbnailURL string `json:"thumbnailUrl"`
	DurationMS   int64  `json:"durationMs"`
}

type YouTubeSearchResponse struct {
	Videos []YouTubeVideoResponse `json:"videos"`
}

type CatalogPage[T any] struct {
	Items    []T      `json:"items"`
	PageInfo PageInfo `json:"pageInfo"`
}

func NewCatalogPage[T any](page catalog.Page[T]) CatalogPage[T] {
	items := page.Items
	if items == nil {
		items = []T{}
	}
	return CatalogPage[T]{
		Items:    items,
		PageInfo: PageInfo{HasNextPage: page.HasNextPage, EndCursor: page.EndCursor},
	}
}

type StreamingURLsResponse struct {
	StreamingURLs []catalog.StreamingURL `json:"streamingUrls"`
}

// Config
type ConfigResponse struct {
	PaxSongQueueLimit int  `json:"paxSongQueueLimit"`
	UseLowBitrateURL  bool `json:"useLowBitrateUrl"`
}

// Generic responses
type ErrorResponse struct {
	Error string `json:"error"`
}
