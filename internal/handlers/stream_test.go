package handlers

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/karafriends/backend/internal/broker"
	"github.com/karafriends/backend/internal/catalog"
)

type fakeCatalog struct {
	err error
}

func (f fakeCatalog) Search(ctx context.Context, query string, limit int) ([]catalog.YouTubeVideo, error) {
	return []catalog.YouTubeVideo{{ID: "abc", Title: query}}, f.err
}

func (f fakeCatalog) VideoInfo(ctx context.Context, videoID string) (*catalog.YouTubeVideoInfo, error) {
	if f.err != nil {
		return nil, f.err
	}
	return &catalog.YouTubeVideoInfo{GainValue: 0.5}, nil
}

func (f fakeCatalog) SearchSongs(ctx context.Context, keyword string, first, after int) (catalog.Page[catalog.DamSong], error) {
	if f.err != nil {
		return catalog.Page[catalog.DamSong]{}, f.err
	}
	return catalog.Page[catalog.DamSong]{
		Items:       []catalog.DamSong{{ID: "1234-56"}},
		HasNextPage: true,
		EndCursor:   fmt.Sprint(after + first),
	}, nil
}

func (f fakeCatalog) Song(ctx context.Context, id string) (*catalog.DamSongDetail, error) {
	return nil, f.err
}

func (f fakeCatalog) StreamingURLs(ctx context.Context, id string) ([]catalog.StreamingURL, error) {
	return nil, f.err
}

func TestCatalogErrors(t *testing.T) {
	tests := []struct {
		name       string
		err        error
		wantStatus int
	}{
		{"ok", nil, http.StatusOK},
		{"not found", fmt.Errorf("video: %w", catalog.ErrNotFound), http.StatusNotFound},
		{"not configured", catalog.ErrNotConfigured, http.StatusServiceUnavailable},
		{"unplayable", &catalog.UnplayableError{Status: "LOGIN_REQUIRED", Reason: "age gate"}, http.StatusUnprocessableEntity},
		{"upstream", errors.New("connection reset"), http.StatusBadGateway},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := NewCatalogHandler(fakeCatalog{err: tt.err}, nil, fakeCatalog{err: tt.err}, nil)

			rec := httptest.NewRecorder()
			h.YoutubeVideo(rec, createTestRequest(http.MethodGet, "/api/catalog/youtube/videos/abc", nil, &alice, map[string]string{"id": "abc"}))

			if rec.Code != tt.wantStatus {
				t.Errorf("Status = %d, want %d", rec.Code, tt.wantStatus)
			}
		})
	}
}

func TestCatalogSearchParams(t *testing.T) {
	h := NewCatalogHandler(fakeCatalog{}, nil, fakeCatalog{}, nil)

	tests := []struct {
		name       string
		query      string
		wantStatus int
		wantCursor string
	}{
		{"defaults", "?q=lemon", http.StatusOK, "20"},
		{"capped page size", "?q=lemon&first=500&after=10", http.StatusOK, "60"},
		{"missing query", "", http.StatusBadRequest, ""},
		{"bad first", "?q=lemon&first=0", http.StatusBadRequest, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := httptest.NewRecorder()
			h.DamSearch(rec, createTestRequest(http.MethodGet, "/api/catalog/dam/search"+tt.query, nil, &alice, nil))

			if rec.Code != tt.wantStatus {
				t.Fatalf("Status = %d, want %d", rec.Code, tt.wantStatus)
			}
			if tt.wantStatus != http.StatusOK {
				return
			}

			var page struct {
				Items    []catalog.DamSong `json:"items"`
				PageInfo struct {
					HasNextPage bool   `json:"hasNextPage"`
					EndCursor   string `json:"endCursor"`
				} `json:"pageInfo"`
			}
			if err := json.NewDecoder(rec.Body).Decode(&page); err != nil {
				t.Fatalf("Failed to decode response: %v", err)
			}
			if len(page.Items) != 1 || page.PageInfo.EndCursor != tt.wantCursor {
				t.Errorf("page = %+v, want cursor %s", page, tt.wantCursor)
			}
		})
	}
}

func waitForSubscriber(t *testing.T, b *broker.Broker, topic broker.Topic) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for b.SubscriberCount(topic) == 0 {
		if time.Now().After(deadline) {
			t.Fatalf("no subscriber for %s", topic)
		}
		time.Sleep(5 * time.Millisecond)
	}
}

func TestSSEStream(t *testing.T) {
	b := broker.New()
	srv := httptest.NewServer(http.HandlerFunc(NewSSEHandler(b).Stream))
	defer srv.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	req, _ := http.NewRequestWithContext(ctx, http.MethodGet, srv.URL+"?topic=emote", nil)
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("GET error = %v", err)
	}
	defer resp.Body.Close()

	if ct := resp.Header.Get("Content-Type"); ct != "text/event-stream" {
		t.Errorf("Content-Type = %q", ct)
	}

	reader := bufio.NewReader(resp.Body)
	readEvent := func() (string, string) {
		var event, data string
		for {
			line, err := reader.ReadString('\n')
			if err != nil {
				t.Fatalf("read error = %v", err)
			}
			line = strings.TrimRight(line, "\n")
			switch {
			case line == "":
				return event, data
			case strings.HasPrefix(line, "event: "):
				event = strings.TrimPrefix(line, "event: ")
			case strings.HasPrefix(line, "data: "):
				data = strings.TrimPrefix(line, "data: ")
			}
		}
	}

	if event, _ := readEvent(); event != "connected" {
		t.Fatalf("first event = %q, want connected", event)
	}

	b.Publish(broker.TopicQueueChanged, "ignored")
	b.Publish(broker.TopicEmote, map[string]string{"emote": "🎤"})

	event, data := readEvent()
	if event != "emote" {
		t.Errorf("event = %q, want emote", event)
	}
	if data != `{"emote":"🎤"}` {
		t.Errorf("data = %q", data)
	}
}

func TestSSEStreamRejectsUnknownTopic(t *testing.T) {
	rec := httptest.NewRecorder()
	NewSSEHandler(broker.New()).Stream(rec, httptest.NewRequest(http.MethodGet, "/api/events?topic=bogus", nil))

	if rec.Code != http.StatusBadRequest {
		t.Errorf("Status = %d, want %d", rec.Code, http.StatusBadRequest)
	}
}

func TestWSStream(t *testing.T) {
	b := broker.New()
	srv := httptest.NewServer(http.HandlerFunc(NewWSHandler(b, []string{"*"}).Stream))
	defer srv.Close()

	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "?topic=queue_added,emote"
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	if err != nil {
		t.Fatalf("Dial() error = %v", err)
	}
	defer conn.Close()

	waitForSubscriber(t, b, broker.TopicEmote)
	b.Publish(broker.TopicEmote, "🎶")

	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	var msg struct {
		Topic   string `json:"topic"`
		Payload string `json:"payload"`
	}
	if err := conn.ReadJSON(&msg); err != nil {
		t.Fatalf("ReadJSON() error = %v", err)
	}
	if msg.Topic != "emote" || msg.Payload != "🎶" {
		t.Errorf("msg = %+v", msg)
	}

	conn.Close()
	deadline := time.Now().Add(2 * time.Second)
	for b.SubscriberCount(broker.TopicEmote) != 0 {
		if time.Now().After(deadline) {
			t.Fatal("subscription not released after disconnect")
		}
		time.Sleep(5 * time.Millisecond)
	}
}

func TestSentryTunnel(t *testing.T) {
	const dsn = "https://key@o1.ingest.sentry.io/42"

	tests := []struct {
		name       string
		dsn        string
		body       string
		wantStatus int
	}{
		{"disabled", "", `{"dsn":"` + dsn + `"}`, http.StatusNotFound},
		{"foreign dsn", dsn, `{"dsn":"https://other@host/1"}` + "\n{}", http.StatusUnauthorized},
		{"malformed header", dsn, "not json\n{}", http.StatusBadRequest},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := httptest.NewRecorder()
			NewSentryTunnelHandler(tt.dsn).Tunnel(rec, httptest.NewRequest(http.MethodPost, "/api/sentry-tunnel", strings.NewReader(tt.body)))

			if rec.Code != tt.wantStatus {
				t.Errorf("Status = %d, want %d", rec.Code, tt.wantStatus)
			}
		})
	}

	got, err := ingestURL(dsn)
	if err != nil || got != "https://o1.ingest.sentry.io/api/42/envelope/" {
		t.Errorf("ingestURL() = %q, %v", got, err)
	}
}
