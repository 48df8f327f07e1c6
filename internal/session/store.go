package session

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/karafriends/backend/internal/logging"
)

// Snapshotter persists the encoded session document. Load returns nil data
// and no error when nothing has been stored yet.
type Snapshotter interface {
	Save(ctx context.Context, data []byte) error
	Load(ctx context.Context) ([]byte, error)
}

const persistTimeout = 10 * time.Second

// Store owns the session state. Every read and mutation holds mu, so a
// mutation's read-modify-write never interleaves with another.
type Store struct {
	mu        sync.Mutex
	state     State
	policy    Policy
	bus       Publisher
	snapshots Snapshotter
}

// NewStore creates a Store holding DefaultState.
func NewStore(policy Policy, bus Publisher, snapshots Snapshotter) *Store {
	return &Store{
		state:     DefaultState(),
		policy:    policy,
		bus:       bus,
		snapshots: snapshots,
	}
}

// Open creates a Store and restores it from snapshots.
func Open(ctx context.Context, policy Policy, bus Publisher, snapshots Snapshotter) (*Store, error) {
	s := NewStore(policy, bus, snapshots)
	if err := s.Restore(ctx); err != nil {
		return nil, err
	}
	return s, nil
}

// Restore replaces the in-memory state with the stored snapshot merged over
// the defaults. A missing snapshot is a first run, not an error.
func (s *Store) Restore(ctx context.Context) error {
	data, err := s.snapshots.Load(ctx)
	if err != nil {
		return fmt.Errorf("failed to load snapshot: %w", err)
	}
	st, err := DecodeSnapshot(data)
	if err != nil {
		return err
	}

	s.mu.Lock()
	s.state = st
	s.mu.Unlock()

	slog.Info("session restored",
		slog.Int("queue_length", len(st.SongQueue)),
		slog.Int("history_length", len(st.SongHistory)),
		slog.Bool("first_run", len(data) == 0),
	)
	return nil
}

// persistLocked writes a snapshot. Failures are logged and skipped; the
// in-memory state stays authoritative.
func (s *Store) persistLocked(ctx context.Context) {
	data, err := EncodeSnapshot(s.state)
	if err != nil {
		slog.ErrorContext(ctx, "failed to encode snapshot", slog.Any("error", logging.WrapError(err, "encode snapshot")))
		return
	}

	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), persistTimeout)
	defer cancel()
	if err := s.snapshots.Save(ctx, data); err != nil {
		slog.ErrorContext(ctx, "failed to save snapshot", slog.Any("error", logging.WrapError(err, "save snapshot")))
	}
}

// HasMaxSongsInQueue reports whether a new request from user must be rejected.
func (s *Store) HasMaxSongsInQueue(user UserIdentity) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return hasMaxSongsInQueue(&s.state, s.policy, user)
}

// CanPushToHeadOfQueue reports whether user may request near-front insertion.
func (s *Store) CanPushToHeadOfQueue(user UserIdentity) bool {
	return canPushToHeadOfQueue(s.policy, user)
}

// Snapshot returns a deep copy of the full in-memory state.
func (s *Store) Snapshot() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return State{
		CurrentSong:             cloneSong(s.state.CurrentSong),
		CurrentSongAdhocLyrics:  append([]AdhocLyricsEntry{}, s.state.CurrentSongAdhocLyrics...),
		SongIDToAdhocLyricLines: cloneLyricMap(s.state.SongIDToAdhocLyricLines),
		PitchShiftSemis:         s.state.PitchShiftSemis,
		PlaybackState:           s.state.PlaybackState,
		SongQueue:               cloneQueue(s.state.SongQueue),
		DownloadQueue:           append([]DownloadQueueItem{}, s.state.DownloadQueue...),
		SongHistory:             cloneHistory(s.state.SongHistory),
	}
}

func (s *Store) CurrentSong() *QueueItem {
	s.mu.Lock()
	defer s.mu.Unlock()
	return cloneSong(s.state.CurrentSong)
}

func (s *Store) Queue() []QueueItem {
	s.mu.Lock()
	defer s.mu.Unlock()
	return cloneQueue(s.state.SongQueue)
}

func (s *Store) PlaybackState() PlaybackState {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state.PlaybackState
}

func (s *Store) PitchShiftSemis() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state.PitchShiftSemis
}

// AdhocLyrics returns the user-supplied lyric lines stored for songID.
func (s *Store) AdhocLyrics(songID string) ([]string, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	lines, ok := s.state.SongIDToAdhocLyricLines[songID]
	if !ok {
		return nil, false
	}
	return append([]string(nil), lines...), true
}

// Downloads returns the in-flight acquisitions in submission order.
func (s *Store) Downloads() []DownloadQueueItem {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]DownloadQueueItem{}, s.state.DownloadQueue...)
}
