// Package broker provides an in-memory, topic-keyed pub/sub hub.
// It fans session state changes out to SSE and WebSocket subscribers.
package broker

import (
	"sync"

	"github.com/google/uuid"
)

// Topic names a stream of session events.
type Topic string

const (
	TopicCurrentSongChanged   Topic = "current_song_changed"
	TopicAdhocLyricsChanged   Topic = "adhoc_lyrics_changed"
	TopicPlaybackStateChanged Topic = "playback_state_changed"
	TopicPitchShiftChanged    Topic = "pitch_shift_changed"
	TopicQueueChanged         Topic = "queue_changed"
	TopicQueueAdded           Topic = "queue_added"
	TopicEmote                Topic = "emote"
	TopicDownloadFailed       Topic = "download_failed"
)

// AllTopics lists every topic in a stable order.
var AllTopics = []Topic{
	TopicCurrentSongChanged,
	TopicAdhocLyricsChanged,
	TopicPlaybackStateChanged,
	TopicPitchShiftChanged,
	TopicQueueChanged,
	TopicQueueAdded,
	TopicEmote,
	TopicDownloadFailed,
}

// IsValid reports whether t is a known topic.
func (t Topic) IsValid() bool {
	for _, known := range AllTopics {
		if t == known {
			return true
		}
	}
	return false
}

// DefaultBufferSize is the per-subscriber channel capacity.
const DefaultBufferSize = 64

// Event is a single published message.
type Event struct {
	Topic   Topic `json:"topic"`
	Payload any   `json:"payload"`
}

// Subscription receives events for the topics it was registered with.
// Events published before registration are never delivered.
type Subscription struct {
	ID     string
	C      <-chan Event
	ch     chan Event
	topics []Topic
}

// Broker is a topic-scoped pub/sub hub. Publish never blocks: a subscriber
// whose buffer is full misses the event, other subscribers are unaffected.
type Broker struct {
	mu         sync.Mutex
	subs       map[Topic]map[*Subscription]struct{}
	bufferSize int
}

// New creates a ready-to-use Broker.
func New() *Broker {
	return NewWithBuffer(DefaultBufferSize)
}

// NewWithBuffer creates a Broker whose subscribers buffer up to size events.
func NewWithBuffer(size int) *Broker {
	if size < 1 {
		size = 1
	}
	return &Broker{
		subs:       make(map[Topic]map[*Subscription]struct{}),
		bufferSize: size,
	}
}

// Subscribe registers a subscription for the given topics. With no topics
// the subscription covers every topic.
func (b *Broker) Subscribe(topics ...Topic) *Subscription {
	if len(topics) == 0 {
		topics = AllTopics
	}
	ch := make(chan Event, b.bufferSize)
	sub := &Subscription{
		ID:     uuid.NewString(),
		C:      ch,
		ch:     ch,
		topics: topics,
	}

	b.mu.Lock()
	defer b.mu.Unlock()
	for _, t := range topics {
		if b.subs[t] == nil {
			b.subs[t] = make(map[*Subscription]struct{})
		}
		b.subs[t][sub] = struct{}{}
	}
	return sub
}

// Unsubscribe removes the subscription from every topic it joined.
// Empty topic entries are cleaned up.
func (b *Broker) Unsubscribe(sub *Subscription) {
	b.mu.Lock()
	defer b.mu.Unlock()
	for _, t := range sub.topics {
		if subs, ok := b.subs[t]; ok {
			delete(subs, sub)
			if len(subs) == 0 {
				delete(b.subs, t)
			}
		}
	}
}

// Publish delivers payload to every current subscriber of topic.
func (b *Broker) Publish(topic Topic, payload any) {
	ev := Event{Topic: topic, Payload: payload}
	b.mu.Lock()
	defer b.mu.Unlock()
	for sub := range b.subs[topic] {
		select {
		case sub.ch <- ev:
		default:
		}
	}
}

// SubscriberCount returns the number of subscribers registered for topic.
func (b *Broker) SubscriberCount(topic Topic) int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.subs[topic])
}
