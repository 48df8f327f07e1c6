package session

import (
	"context"
	"errors"
	"slices"
	"strconv"
	"sync"

	"github.com/karafriends/backend/internal/broker"
)

// staticPolicy is a fixed access list.
type staticPolicy struct {
	limit     int
	nicks     []string
	deviceIDs []string
}

func (p staticPolicy) SongQueueLimit() int { return p.limit }

func (p staticPolicy) IsPrivileged(user UserIdentity) bool {
	return slices.Contains(p.nicks, user.Nickname) || slices.Contains(p.deviceIDs, user.DeviceID)
}

// recordingPublisher keeps every published event in order.
type recordingPublisher struct {
	mu     sync.Mutex
	events []broker.Event
}

func (p *recordingPublisher) Publish(topic broker.Topic, payload any) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, broker.Event{Topic: topic, Payload: payload})
}

func (p *recordingPublisher) topics() []broker.Topic {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]broker.Topic, len(p.events))
	for i, ev := range p.events {
		out[i] = ev.Topic
	}
	return out
}

func (p *recordingPublisher) last(topic broker.Topic) (any, bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	for i := len(p.events) - 1; i >= 0; i-- {
		if p.events[i].Topic == topic {
			return p.events[i].Payload, true
		}
	}
	return nil, false
}

func (p *recordingPublisher) reset() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = nil
}

// memorySnapshotter stores the last saved document.
type memorySnapshotter struct {
	mu      sync.Mutex
	data    []byte
	saves   int
	saveErr error
	loadErr error
}

func (m *memorySnapshotter) Save(ctx context.Context, data []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.saveErr != nil {
		return m.saveErr
	}
	m.data = append([]byte(nil), data...)
	m.saves++
	return nil
}

func (m *memorySnapshotter) Load(ctx context.Context) ([]byte, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.loadErr != nil {
		return nil, m.loadErr
	}
	return m.data, nil
}

func (m *memorySnapshotter) saveCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.saves
}

var errBoom = errors.New("boom")

func newTestStore(policy Policy) (*Store, *recordingPublisher, *memorySnapshotter) {
	pub := &recordingPublisher{}
	snaps := &memorySnapshotter{}
	return NewStore(policy, pub, snaps), pub, snaps
}

func intPtr(v int) *int { return &v }

var tsCounter int

func nextTimestamp() string {
	tsCounter++
	return strconv.Itoa(1700000000000 + tsCounter)
}

func damItem(songID string, user UserIdentity, playtime int) QueueItem {
	return QueueItem{
		Kind:         KindDam,
		SongID:       songID,
		Name:         "Song " + songID,
		ArtistName:   "Artist",
		Playtime:     intPtr(playtime),
		Timestamp:    nextTimestamp(),
		UserIdentity: user,
		Dam:          &DamDetails{StreamingURLIdx: 0},
	}
}

func youtubeItem(songID string, user UserIdentity, playtime int, adhoc bool) QueueItem {
	return QueueItem{
		Kind:         KindYoutube,
		SongID:       songID,
		Name:         "Video " + songID,
		ArtistName:   "Uploader",
		Playtime:     intPtr(playtime),
		Timestamp:    nextTimestamp(),
		UserIdentity: user,
		Youtube:      &YoutubeDetails{HasAdhocLyrics: adhoc, GainValue: 1},
	}
}

var (
	alice = UserIdentity{DeviceID: "device-a", Nickname: "Alice"}
	bob   = UserIdentity{DeviceID: "device-b", Nickname: "Bob"}
	host  = UserIdentity{DeviceID: "device-host", Nickname: "Host"}
)
