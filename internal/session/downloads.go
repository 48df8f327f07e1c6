package session

import (
	"context"
	"log/slog"
	"slices"
	"strings"

	"github.com/google/uuid"
	"github.com/karafriends/backend/internal/broker"
	"github.com/karafriends/backend/internal/logging"
)

// DownloadRequest describes an item that must be fetched before it can be
// queued.
type DownloadRequest struct {
	Item           QueueItem
	TryHeadOfQueue bool
	Suffix         string
	// AdhocLyrics are stored under Item.SongID before the fetch starts.
	AdhocLyrics []string
}

// DownloadTicket tracks one registered download until it completes or fails.
type DownloadTicket struct {
	id         string
	item       QueueItem
	pushToHead bool
	download   DownloadQueueItem
}

// Item returns the queue item the download will produce.
func (t *DownloadTicket) Item() QueueItem { return t.item.clone() }

// Download returns the download queue entry as registered.
func (t *DownloadTicket) Download() DownloadQueueItem { return t.download }

// PushToHead reports whether the completed item goes to the second slot.
func (t *DownloadTicket) PushToHead() bool { return t.pushToHead }

// BeginDownload admits req and registers its download queue entry. On
// rejection it returns a nil ticket and leaves the state untouched. The ETA
// is optimistic: it includes the new item and is never corrected.
func (s *Store) BeginDownload(ctx context.Context, req DownloadRequest) (*DownloadTicket, QueueSongResult) {
	dlType, err := req.Item.DownloadType()
	if err != nil {
		return nil, rejected(err.Error())
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	user := req.Item.UserIdentity
	if hasMaxSongsInQueue(&s.state, s.policy, user) {
		return nil, rejected(rejectionReason(user, s.policy.SongQueueLimit()))
	}

	if len(req.AdhocLyrics) > 0 {
		s.state.SongIDToAdhocLyricLines[req.Item.SongID] = append([]string(nil), req.AdhocLyrics...)
	}

	ticket := &DownloadTicket{
		id:         uuid.NewString(),
		item:       req.Item.clone(),
		pushToHead: req.TryHeadOfQueue && canPushToHeadOfQueue(s.policy, user),
	}
	ticket.download = DownloadQueueItem{
		ID:           ticket.id,
		DownloadType: dlType,
		UserIdentity: user,
		SongID:       req.Item.SongID,
		Suffix:       req.Suffix,
	}
	s.state.DownloadQueue = append(s.state.DownloadQueue, ticket.download)

	eta := s.queuedPlaytimeLocked() + req.Item.PlaytimeOrZero()

	slog.InfoContext(ctx, "download registered",
		slog.String("download_type", dlType.String()),
		slog.String("song_id", req.Item.SongID),
		slog.String("device_id", user.DeviceID),
		slog.Bool("push_to_head", ticket.pushToHead),
	)
	return ticket, accepted(eta)
}

// UpdateDownloadProgress records fractional progress for a registered download.
func (s *Store) UpdateDownloadProgress(ticket *DownloadTicket, progress float64) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if idx := s.downloadIndexLocked(ticket.id); idx >= 0 {
		s.state.DownloadQueue[idx].Progress = min(max(progress, 0), 1)
	}
}

// CompleteDownload removes the download entry and inserts the item in one
// step, so the item is never both downloading and queued.
func (s *Store) CompleteDownload(ctx context.Context, ticket *DownloadTicket) QueueSongResult {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.removeDownloadLocked(ticket.id)
	return s.pushSongLocked(ctx, ticket.item, ticket.pushToHead)
}

// FailDownload drops the download entry without queueing anything and
// publishes a download-failed event.
func (s *Store) FailDownload(ctx context.Context, ticket *DownloadTicket, cause error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.removeDownloadLocked(ticket.id)
	s.dropOrphanedLyricsLocked(ticket.item.SongID)

	reason := "download failed"
	if cause != nil {
		reason = cause.Error()
	}
	slog.ErrorContext(ctx, "acquisition failed",
		slog.String("download_type", ticket.download.DownloadType.String()),
		slog.String("song_id", ticket.item.SongID),
		slog.String("device_id", ticket.item.UserIdentity.DeviceID),
		slog.Any("error", logging.WrapError(cause, "acquisition failed")),
	)

	s.bus.Publish(broker.TopicDownloadFailed, DownloadFailedEvent{
		Download: ticket.download,
		Song:     ticket.item.clone(),
		Reason:   reason,
	})
}

// DownloadProgress returns the progress of the in-flight download matching
// the triple, or false when there is none.
func (s *Store) DownloadProgress(dlType DownloadType, songID, suffix string) (float64, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, d := range s.state.DownloadQueue {
		if d.DownloadType == dlType && d.SongID == songID && d.Suffix == suffix {
			return d.Progress, true
		}
	}
	return 0, false
}

func (s *Store) downloadIndexLocked(id string) int {
	return slices.IndexFunc(s.state.DownloadQueue, func(d DownloadQueueItem) bool {
		return d.ID == id
	})
}

func (s *Store) removeDownloadLocked(id string) {
	if idx := s.downloadIndexLocked(id); idx >= 0 {
		s.state.DownloadQueue = slices.Delete(s.state.DownloadQueue, idx, idx+1)
	}
}

// dropOrphanedLyricsLocked removes stored lyric lines for songID unless
// another pending, queued or current item still refers to it.
func (s *Store) dropOrphanedLyricsLocked(songID string) {
	if _, ok := s.state.SongIDToAdhocLyricLines[songID]; !ok {
		return
	}
	if s.state.CurrentSong != nil && s.state.CurrentSong.SongID == songID {
		return
	}
	if slices.ContainsFunc(s.state.SongQueue, func(q QueueItem) bool { return q.SongID == songID }) {
		return
	}
	if slices.ContainsFunc(s.state.DownloadQueue, func(d DownloadQueueItem) bool { return d.SongID == songID }) {
		return
	}
	delete(s.state.SongIDToAdhocLyricLines, songID)
}

// ParseAdhocLyrics splits user-supplied lyrics into lines, dropping blank ones.
func ParseAdhocLyrics(lyrics string) []string {
	lines := []string{}
	for _, line := range strings.Split(lyrics, "\n") {
		if strings.TrimSpace(line) == "" {
			continue
		}
		lines = append(lines, strings.TrimSuffix(line, "\r"))
	}
	return lines
}
