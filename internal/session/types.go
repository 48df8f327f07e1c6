// Package session holds the canonical state of a karaoke room: the play
// queue, in-flight downloads, the current song, playback controls and
// history. All mutations go through Store.
package session

import (
	"fmt"
	"strings"
)

// UserIdentity identifies a requester. DeviceID is the quota key.
type UserIdentity struct {
	DeviceID string `json:"deviceId"`
	Nickname string `json:"nickname"`
}

// ItemKind tags the source a queue item came from.
type ItemKind string

const (
	KindDam      ItemKind = "dam"
	KindJoysound ItemKind = "joysound"
	KindYoutube  ItemKind = "youtube"
	KindNico     ItemKind = "nico"
)

// DamDetails is the payload of catalog-backed items.
type DamDetails struct {
	StreamingURLIdx int `json:"streamingUrlIdx"`
}

// JoysoundDetails is the payload of lyrics-subscription items.
type JoysoundDetails struct {
	IsRomaji       bool   `json:"isRomaji"`
	YoutubeVideoID string `json:"youtubeVideoId,omitempty"`
}

// YoutubeDetails is the payload of video-platform items.
type YoutubeDetails struct {
	HasAdhocLyrics bool    `json:"hasAdhocLyrics"`
	HasCaptions    bool    `json:"hasCaptions"`
	GainValue      float64 `json:"gainValue"`
}

// NicoDetails is the payload of video-sharing items.
type NicoDetails struct{}

// QueueItem is a closed sum over the four source kinds. Exactly the
// payload matching Kind is set.
type QueueItem struct {
	Kind         ItemKind     `json:"kind"`
	SongID       string       `json:"songId"`
	Name         string       `json:"name"`
	ArtistName   string       `json:"artistName"`
	Playtime     *int         `json:"playtime,omitempty"`
	Timestamp    string       `json:"timestamp"`
	UserIdentity UserIdentity `json:"userIdentity"`

	Dam      *DamDetails      `json:"dam,omitempty"`
	Joysound *JoysoundDetails `json:"joysound,omitempty"`
	Youtube  *YoutubeDetails  `json:"youtube,omitempty"`
	Nico     *NicoDetails     `json:"nico,omitempty"`
}

// Validate checks that the item carries the payload for its kind and no other.
func (q QueueItem) Validate() error {
	set := 0
	for _, present := range []bool{q.Dam != nil, q.Joysound != nil, q.Youtube != nil, q.Nico != nil} {
		if present {
			set++
		}
	}

	var ok bool
	switch q.Kind {
	case KindDam:
		ok = q.Dam != nil
	case KindJoysound:
		ok = q.Joysound != nil
	case KindYoutube:
		ok = q.Youtube != nil
	case KindNico:
		ok = q.Nico != nil
	default:
		return fmt.Errorf("unknown queue item kind %q", q.Kind)
	}
	if !ok || set != 1 {
		return fmt.Errorf("queue item of kind %q has mismatched payload", q.Kind)
	}
	if q.SongID == "" {
		return fmt.Errorf("queue item of kind %q has empty songId", q.Kind)
	}
	return nil
}

// SameAs reports identity equality: kind, songId and timestamp.
func (q QueueItem) SameAs(other QueueItem) bool {
	return q.Kind == other.Kind && q.SongID == other.SongID && q.Timestamp == other.Timestamp
}

// PlaytimeOrZero returns the playtime, treating unknown as zero.
func (q QueueItem) PlaytimeOrZero() int {
	if q.Playtime == nil {
		return 0
	}
	return *q.Playtime
}

// HasAdhocLyrics reports whether the item was submitted with user lyrics.
func (q QueueItem) HasAdhocLyrics() bool {
	switch q.Kind {
	case KindYoutube:
		return q.Youtube != nil && q.Youtube.HasAdhocLyrics
	case KindDam, KindJoysound, KindNico:
		return false
	default:
		return false
	}
}

// DownloadType maps the item kind to its acquisition type.
func (q QueueItem) DownloadType() (DownloadType, error) {
	switch q.Kind {
	case KindDam:
		return DownloadDam, nil
	case KindJoysound:
		return DownloadJoysound, nil
	case KindYoutube:
		return DownloadYoutube, nil
	case KindNico:
		return DownloadNico, nil
	default:
		return 0, fmt.Errorf("unknown queue item kind %q", q.Kind)
	}
}

func (q QueueItem) clone() QueueItem {
	c := q
	if q.Playtime != nil {
		p := *q.Playtime
		c.Playtime = &p
	}
	if q.Dam != nil {
		d := *q.Dam
		c.Dam = &d
	}
	if q.Joysound != nil {
		j := *q.Joysound
		c.Joysound = &j
	}
	if q.Youtube != nil {
		y := *q.Youtube
		c.Youtube = &y
	}
	if q.Nico != nil {
		c.Nico = &NicoDetails{}
	}
	return c
}

// DownloadType identifies the acquisition pipeline a download belongs to.
type DownloadType int

const (
	DownloadDam DownloadType = iota
	DownloadJoysound
	DownloadYoutube
	DownloadNico
)

func (t DownloadType) String() string {
	switch t {
	case DownloadDam:
		return "dam"
	case DownloadJoysound:
		return "joysound"
	case DownloadYoutube:
		return "youtube"
	case DownloadNico:
		return "nico"
	default:
		return fmt.Sprintf("DownloadType(%d)", int(t))
	}
}

// ParseDownloadType accepts a pipeline name ("dam", "youtube", ...) in any case.
func ParseDownloadType(s string) (DownloadType, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "dam":
		return DownloadDam, nil
	case "joysound":
		return DownloadJoysound, nil
	case "youtube":
		return DownloadYoutube, nil
	case "nico":
		return DownloadNico, nil
	default:
		return 0, fmt.Errorf("unknown download type %q", s)
	}
}

// DownloadQueueItem is one in-flight acquisition.
type DownloadQueueItem struct {
	ID           string       `json:"-"`
	DownloadType DownloadType `json:"downloadType"`
	UserIdentity UserIdentity `json:"userIdentity"`
	SongID       string       `json:"songId"`
	Suffix       string       `json:"suffix,omitempty"`
	Progress     float64      `json:"progress"`
}

// AdhocLyricsEntry is one line of user-supplied lyrics for the current song.
type AdhocLyricsEntry struct {
	Lyric      string `json:"lyric"`
	LyricIndex int    `json:"lyricIndex"`
}

// SongHistoryItem records a song that became current.
type SongHistoryItem struct {
	Song QueueItem `json:"song"`
}

// PlaybackState is the player's transport state.
type PlaybackState string

const (
	PlaybackWaiting    PlaybackState = "WAITING"
	PlaybackPlaying    PlaybackState = "PLAYING"
	PlaybackPaused     PlaybackState = "PAUSED"
	PlaybackRestarting PlaybackState = "RESTARTING"
	PlaybackSkipping   PlaybackState = "SKIPPING"
)

// ParsePlaybackState accepts a state name in any case.
func ParsePlaybackState(s string) (PlaybackState, error) {
	switch st := PlaybackState(strings.ToUpper(strings.TrimSpace(s))); st {
	case PlaybackWaiting, PlaybackPlaying, PlaybackPaused, PlaybackRestarting, PlaybackSkipping:
		return st, nil
	default:
		return "", fmt.Errorf("unknown playback state %q", s)
	}
}

// QueueSongResult is returned by every queuing operation. When Accepted is
// false the request was rejected by admission control and Reason says why.
type QueueSongResult struct {
	Accepted bool
	ETA      int
	Reason   string
}

func accepted(eta int) QueueSongResult {
	return QueueSongResult{Accepted: true, ETA: eta}
}

func rejected(reason string) QueueSongResult {
	return QueueSongResult{Reason: reason}
}
