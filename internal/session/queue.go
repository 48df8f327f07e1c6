package session

import (
	"context"
	"log/slog"
	"slices"

	"github.com/karafriends/backend/internal/broker"
	"github.com/samber/lo"
)

// queuedPlaytimeLocked is the playtime of the current song plus every
// queued song.
func (s *Store) queuedPlaytimeLocked() int {
	eta := lo.SumBy(s.state.SongQueue, func(q QueueItem) int { return q.PlaytimeOrZero() })
	if s.state.CurrentSong != nil {
		eta += s.state.CurrentSong.PlaytimeOrZero()
	}
	return eta
}

// QueueSong admits a playable item and inserts it right away. tryHead is
// honored only for privileged users.
func (s *Store) QueueSong(ctx context.Context, item QueueItem, tryHead bool) QueueSongResult {
	s.mu.Lock()
	defer s.mu.Unlock()

	if hasMaxSongsInQueue(&s.state, s.policy, item.UserIdentity) {
		return rejected(rejectionReason(item.UserIdentity, s.policy.SongQueueLimit()))
	}
	pushToHead := tryHead && canPushToHeadOfQueue(s.policy, item.UserIdentity)
	return s.pushSongLocked(ctx, item, pushToHead)
}

// PushSongToQueue is the single insertion point into the play queue. It
// performs no admission check.
func (s *Store) PushSongToQueue(ctx context.Context, item QueueItem, pushToHead bool) QueueSongResult {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.pushSongLocked(ctx, item, pushToHead)
}

func (s *Store) pushSongLocked(ctx context.Context, item QueueItem, pushToHead bool) QueueSongResult {
	eta := s.queuedPlaytimeLocked()

	slog.InfoContext(ctx, "pushing song to queue",
		slog.String("kind", string(item.Kind)),
		slog.String("song_id", item.SongID),
		slog.String("device_id", item.UserIdentity.DeviceID),
		slog.Int("eta", eta),
		slog.Bool("push_to_head", pushToHead),
	)

	item = item.clone()
	if pushToHead && len(s.state.SongQueue) > 0 {
		// Second slot: the front item may already be downloading or about to play.
		s.state.SongQueue = slices.Insert(s.state.SongQueue, 1, item)
	} else {
		s.state.SongQueue = append(s.state.SongQueue, item)
	}

	s.publishQueueChangedLocked()
	s.bus.Publish(broker.TopicQueueAdded, item.clone())
	s.persistLocked(ctx)

	return accepted(eta)
}

// PopSong advances the queue head to the current song and returns it, or
// nil when the queue was empty.
func (s *Store) PopSong(ctx context.Context) *QueueItem {
	s.mu.Lock()
	defer s.mu.Unlock()

	var next *QueueItem
	if len(s.state.SongQueue) > 0 {
		head := s.state.SongQueue[0]
		next = &head
		s.state.SongQueue = slices.Delete(s.state.SongQueue, 0, 1)
	}

	s.state.CurrentSongAdhocLyrics = []AdhocLyricsEntry{}
	if prev := s.state.CurrentSong; prev != nil && prev.HasAdhocLyrics() {
		delete(s.state.SongIDToAdhocLyricLines, prev.SongID)
	}
	s.publishAdhocLyricsLocked()

	s.state.CurrentSong = next
	s.bus.Publish(broker.TopicCurrentSongChanged, cloneSong(next))
	s.publishQueueChangedLocked()

	if next != nil {
		if len(s.state.SongHistory) == 0 || !s.state.SongHistory[0].Song.SameAs(*next) {
			s.state.SongHistory = slices.Insert(s.state.SongHistory, 0, SongHistoryItem{Song: next.clone()})
		}
	}

	s.persistLocked(ctx)
	return cloneSong(next)
}

// RemoveSong removes the first queued entry matching songID and timestamp.
// A missing entry is not an error; removed reports whether anything matched.
func (s *Store) RemoveSong(ctx context.Context, songID, timestamp string) (removed bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	idx := slices.IndexFunc(s.state.SongQueue, func(q QueueItem) bool {
		return q.SongID == songID && q.Timestamp == timestamp
	})
	if idx >= 0 {
		s.state.SongQueue = slices.Delete(s.state.SongQueue, idx, idx+1)
	} else {
		slog.InfoContext(ctx, "remove song matched nothing",
			slog.String("song_id", songID),
			slog.String("timestamp", timestamp),
		)
	}

	s.publishQueueChangedLocked()
	s.persistLocked(ctx)
	return idx >= 0
}

// PushAdhocLyrics appends one line to the current song's lyric overlay.
// Callers are trusted to append in order.
func (s *Store) PushAdhocLyrics(ctx context.Context, lyric string, lyricIndex int) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.state.CurrentSongAdhocLyrics = append(s.state.CurrentSongAdhocLyrics, AdhocLyricsEntry{
		Lyric:      lyric,
		LyricIndex: lyricIndex,
	})
	s.publishAdhocLyricsLocked()
	s.persistLocked(ctx)
}

// SetPitchShiftSemis is not persisted; snapshots always reset it to zero.
func (s *Store) SetPitchShiftSemis(semis int) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.state.PitchShiftSemis = semis
	s.bus.Publish(broker.TopicPitchShiftChanged, semis)
}

func (s *Store) SetPlaybackState(ctx context.Context, state PlaybackState) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.state.PlaybackState = state
	s.bus.Publish(broker.TopicPlaybackStateChanged, state)
	s.persistLocked(ctx)
}

// SendEmote broadcasts an emote. Nothing is stored.
func (s *Store) SendEmote(user UserIdentity, emote string) {
	s.bus.Publish(broker.TopicEmote, EmoteEvent{UserIdentity: user, Emote: emote})
}
