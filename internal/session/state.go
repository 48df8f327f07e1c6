package session

import (
	"encoding/json"
	"fmt"
	"log/slog"
)

// State is the session aggregate.
type State struct {
	CurrentSong             *QueueItem          `json:"currentSong"`
	CurrentSongAdhocLyrics  []AdhocLyricsEntry  `json:"currentSongAdhocLyrics"`
	SongIDToAdhocLyricLines map[string][]string `json:"idToAdhocLyrics"`
	PitchShiftSemis         int                 `json:"pitchShiftSemis"`
	PlaybackState           PlaybackState       `json:"playbackState"`
	SongQueue               []QueueItem         `json:"songQueue"`
	DownloadQueue           []DownloadQueueItem `json:"downloadQueue"`
	SongHistory             []SongHistoryItem   `json:"songHistory"`
}

// DefaultState is the state of a brand new session.
func DefaultState() State {
	return State{
		CurrentSongAdhocLyrics:  []AdhocLyricsEntry{},
		SongIDToAdhocLyricLines: map[string][]string{},
		PlaybackState:           PlaybackWaiting,
		SongQueue:               []QueueItem{},
		DownloadQueue:           []DownloadQueueItem{},
		SongHistory:             []SongHistoryItem{},
	}
}

// Reduced returns the form written to durable storage: there is no live
// playback after a restart, so the current song goes back to the front of
// the queue and transient fields are reset.
func (s State) Reduced() State {
	queue := make([]QueueItem, 0, len(s.SongQueue)+1)
	if s.CurrentSong != nil {
		queue = append(queue, s.CurrentSong.clone())
	}
	queue = append(queue, cloneQueue(s.SongQueue)...)

	return State{
		CurrentSong:             nil,
		CurrentSongAdhocLyrics:  []AdhocLyricsEntry{},
		SongIDToAdhocLyricLines: cloneLyricMap(s.SongIDToAdhocLyricLines),
		PitchShiftSemis:         0,
		PlaybackState:           s.PlaybackState,
		SongQueue:               queue,
		DownloadQueue:           []DownloadQueueItem{},
		SongHistory:             cloneHistory(s.SongHistory),
	}
}

// EncodeSnapshot serializes the reduced form of s.
func EncodeSnapshot(s State) ([]byte, error) {
	data, err := json.Marshal(s.Reduced())
	if err != nil {
		return nil, fmt.Errorf("failed to encode snapshot: %w", err)
	}
	return data, nil
}

// DecodeSnapshot merges a stored snapshot over DefaultState. Empty input
// yields the defaults.
func DecodeSnapshot(data []byte) (State, error) {
	st := DefaultState()
	if len(data) == 0 {
		return st, nil
	}
	if err := json.Unmarshal(data, &st); err != nil {
		return State{}, fmt.Errorf("failed to decode snapshot: %w", err)
	}
	st.normalize()
	return st, nil
}

// normalize repairs fields a stored document may have nulled or corrupted.
func (s *State) normalize() {
	if s.CurrentSongAdhocLyrics == nil {
		s.CurrentSongAdhocLyrics = []AdhocLyricsEntry{}
	}
	if s.SongIDToAdhocLyricLines == nil {
		s.SongIDToAdhocLyricLines = map[string][]string{}
	}
	if _, err := ParsePlaybackState(string(s.PlaybackState)); err != nil {
		s.PlaybackState = PlaybackWaiting
	}
	// no fetch survives a restart
	s.DownloadQueue = []DownloadQueueItem{}
	if s.CurrentSong != nil {
		if err := s.CurrentSong.Validate(); err != nil {
			slog.Warn("dropping invalid current song from snapshot", slog.Any("error", err))
			s.CurrentSong = nil
		}
	}

	queue := make([]QueueItem, 0, len(s.SongQueue))
	for _, item := range s.SongQueue {
		if err := item.Validate(); err != nil {
			slog.Warn("dropping invalid queue item from snapshot", slog.Any("error", err))
			continue
		}
		queue = append(queue, item)
	}
	s.SongQueue = queue

	history := make([]SongHistoryItem, 0, len(s.SongHistory))
	for _, h := range s.SongHistory {
		if err := h.Song.Validate(); err != nil {
			slog.Warn("dropping invalid history entry from snapshot", slog.Any("error", err))
			continue
		}
		history = append(history, h)
	}
	s.SongHistory = history
}

func cloneQueue(q []QueueItem) []QueueItem {
	out := make([]QueueItem, len(q))
	for i, item := range q {
		out[i] = item.clone()
	}
	return out
}

func cloneHistory(h []SongHistoryItem) []SongHistoryItem {
	out := make([]SongHistoryItem, len(h))
	for i, item := range h {
		out[i] = SongHistoryItem{Song: item.Song.clone()}
	}
	return out
}

func cloneLyricMap(m map[string][]string) map[string][]string {
	out := make(map[string][]string, len(m))
	for k, v := range m {
		out[k] = append([]string(nil), v...)
	}
	return out
}

func cloneSong(q *QueueItem) *QueueItem {
	if q == nil {
		return nil
	}
	c := q.clone()
	return &c
}
