package session

import "github.com/karafriends/backend/internal/broker"

// Publisher fans events out to subscribers. *broker.Broker satisfies it.
type Publisher interface {
	Publish(topic broker.Topic, payload any)
}

// QueueChangedEvent is the payload of broker.TopicQueueChanged.
type QueueChangedEvent struct {
	CurrentSong *QueueItem  `json:"currentSong"`
	NewQueue    []QueueItem `json:"newQueue"`
}

// EmoteEvent is the payload of broker.TopicEmote.
type EmoteEvent struct {
	UserIdentity UserIdentity `json:"userIdentity"`
	Emote        string       `json:"emote"`
}

// DownloadFailedEvent is the payload of broker.TopicDownloadFailed.
type DownloadFailedEvent struct {
	Download DownloadQueueItem `json:"download"`
	Song     QueueItem         `json:"song"`
	Reason   string            `json:"reason"`
}

func (s *Store) publishQueueChangedLocked() {
	s.bus.Publish(broker.TopicQueueChanged, QueueChangedEvent{
		CurrentSong: cloneSong(s.state.CurrentSong),
		NewQueue:    cloneQueue(s.state.SongQueue),
	})
}

func (s *Store) publishAdhocLyricsLocked() {
	s.bus.Publish(broker.TopicAdhocLyricsChanged, append([]AdhocLyricsEntry{}, s.state.CurrentSongAdhocLyrics...))
}
