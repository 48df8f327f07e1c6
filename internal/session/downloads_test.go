package session

import (
	"context"
	"slices"
	"testing"

	"github.com/karafriends/backend/internal/broker"
)

func TestParseAdhocLyrics(t *testing.T) {
	tests := []struct {
		name   string
		lyrics string
		want   []string
	}{
		{"blank lines dropped", "line1\n\nline2\n", []string{"line1", "line2"}},
		{"whitespace-only lines dropped", "a\n   \n\t\nb", []string{"a", "b"}},
		{"windows line endings", "a\r\nb\r\n", []string{"a", "b"}},
		{"empty", "", []string{}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := ParseAdhocLyrics(tt.lyrics); !slices.Equal(got, tt.want) {
				t.Errorf("ParseAdhocLyrics(%q) = %q, want %q", tt.lyrics, got, tt.want)
			}
		})
	}
}

func TestBeginDownload_StoresLyricsImmediately(t *testing.T) {
	store, _, _ := newTestStore(staticPolicy{})

	item := youtubeItem("vid", alice, 100, true)
	ticket, result := store.BeginDownload(context.Background(), DownloadRequest{
		Item:        item,
		AdhocLyrics: ParseAdhocLyrics("line1\n\nline2\n"),
	})
	if ticket == nil || !result.Accepted {
		t.Fatalf("BeginDownload() rejected: %s", result.Reason)
	}

	lines, ok := store.AdhocLyrics("vid")
	if !ok || !slices.Equal(lines, []string{"line1", "line2"}) {
		t.Errorf("AdhocLyrics = %v, %v; want [line1 line2]", lines, ok)
	}
	if n := len(store.Queue()); n != 0 {
		t.Errorf("queue length = %d, want 0 before fetch completes", n)
	}
	if n := len(store.Downloads()); n != 1 {
		t.Errorf("downloads = %d, want 1", n)
	}
}

func TestBeginDownload_OptimisticETA(t *testing.T) {
	store, _, _ := newTestStore(staticPolicy{})
	ctx := context.Background()

	store.QueueSong(ctx, damItem("current", bob, 40), false)
	store.PopSong(ctx)
	store.QueueSong(ctx, damItem("queued", bob, 60), false)

	_, result := store.BeginDownload(ctx, DownloadRequest{Item: youtubeItem("vid", alice, 25, false)})

	if result.ETA != 125 {
		t.Errorf("ETA = %d, want 125", result.ETA)
	}
}

func TestBeginDownload_CountsTowardQuota(t *testing.T) {
	store, _, _ := newTestStore(staticPolicy{limit: 2})
	ctx := context.Background()

	store.QueueSong(ctx, damItem("a", alice, 10), false)
	if _, r := store.BeginDownload(ctx, DownloadRequest{Item: youtubeItem("v1", alice, 10, false)}); !r.Accepted {
		t.Fatalf("first download rejected: %s", r.Reason)
	}

	queueBefore := store.Queue()
	downloadsBefore := store.Downloads()

	ticket, r := store.BeginDownload(ctx, DownloadRequest{
		Item:        youtubeItem("v2", alice, 10, true),
		AdhocLyrics: []string{"should not be stored"},
	})
	if ticket != nil || r.Accepted {
		t.Fatal("request over quota should be rejected")
	}
	if len(store.Queue()) != len(queueBefore) || len(store.Downloads()) != len(downloadsBefore) {
		t.Error("rejection must not change the queues")
	}
	if _, ok := store.AdhocLyrics("v2"); ok {
		t.Error("rejection must not store lyrics")
	}
	if r := store.QueueSong(ctx, damItem("b", alice, 10), false); r.Accepted {
		t.Error("download in flight should count toward the quota")
	}
}

func TestCompleteDownload(t *testing.T) {
	store, pub, _ := newTestStore(staticPolicy{nicks: []string{"Host"}})
	ctx := context.Background()

	store.QueueSong(ctx, damItem("x", alice, 10), false)
	store.QueueSong(ctx, damItem("y", alice, 10), false)

	item := youtubeItem("vid", host, 30, false)
	ticket, _ := store.BeginDownload(ctx, DownloadRequest{Item: item, TryHeadOfQueue: true})
	store.UpdateDownloadProgress(ticket, 0.5)

	if p, ok := store.DownloadProgress(DownloadYoutube, "vid", ""); !ok || p != 0.5 {
		t.Errorf("DownloadProgress = %v, %v; want 0.5, true", p, ok)
	}

	pub.reset()
	result := store.CompleteDownload(ctx, ticket)

	if result.ETA != 20 {
		t.Errorf("ETA = %d, want 20", result.ETA)
	}
	if got := queueIDs(store.Queue()); !slices.Equal(got, []string{"x", "vid", "y"}) {
		t.Errorf("queue = %v, want [x vid y]", got)
	}
	if n := len(store.Downloads()); n != 0 {
		t.Errorf("downloads = %d, want 0", n)
	}
	if _, ok := store.DownloadProgress(DownloadYoutube, "vid", ""); ok {
		t.Error("progress should not be found after completion")
	}
	want := []broker.Topic{broker.TopicQueueChanged, broker.TopicQueueAdded}
	if !slices.Equal(pub.topics(), want) {
		t.Errorf("topics = %v, want %v", pub.topics(), want)
	}
}

func TestFailDownload(t *testing.T) {
	store, pub, _ := newTestStore(staticPolicy{})
	ctx := context.Background()

	item := youtubeItem("vid", alice, 30, true)
	ticket, _ := store.BeginDownload(ctx, DownloadRequest{Item: item, Suffix: "ja", AdhocLyrics: []string{"la"}})

	store.FailDownload(ctx, ticket, errBoom)

	if n := len(store.Downloads()); n != 0 {
		t.Errorf("downloads = %d, want 0", n)
	}
	if n := len(store.Queue()); n != 0 {
		t.Errorf("queue length = %d, want 0", n)
	}
	if _, ok := store.AdhocLyrics("vid"); ok {
		t.Error("orphaned lyrics should be dropped")
	}

	payload, ok := pub.last(broker.TopicDownloadFailed)
	if !ok {
		t.Fatal("expected download failed event")
	}
	ev := payload.(DownloadFailedEvent)
	if ev.Reason != "boom" || ev.Download.Suffix != "ja" || ev.Song.SongID != "vid" {
		t.Errorf("event = %+v", ev)
	}
}

func TestFailDownload_KeepsLyricsStillInUse(t *testing.T) {
	store, _, _ := newTestStore(staticPolicy{})
	ctx := context.Background()

	first, _ := store.BeginDownload(ctx, DownloadRequest{Item: youtubeItem("vid", alice, 30, true), AdhocLyrics: []string{"la"}})
	second, _ := store.BeginDownload(ctx, DownloadRequest{Item: youtubeItem("vid", bob, 30, true), AdhocLyrics: []string{"la"}})
	store.CompleteDownload(ctx, first)

	store.FailDownload(ctx, second, errBoom)

	if _, ok := store.AdhocLyrics("vid"); !ok {
		t.Error("lyrics still referenced by a queued item should be kept")
	}
}

func TestDownloadProgress_MatchesSuffix(t *testing.T) {
	store, _, _ := newTestStore(staticPolicy{})
	ctx := context.Background()

	ja, _ := store.BeginDownload(ctx, DownloadRequest{Item: youtubeItem("vid", alice, 10, false), Suffix: "ja"})
	en, _ := store.BeginDownload(ctx, DownloadRequest{Item: youtubeItem("vid", bob, 10, false), Suffix: "en"})
	store.UpdateDownloadProgress(ja, 0.25)
	store.UpdateDownloadProgress(en, 2)

	tests := []struct {
		dlType DownloadType
		suffix string
		want   float64
		found  bool
	}{
		{DownloadYoutube, "ja", 0.25, true},
		{DownloadYoutube, "en", 1, true},
		{DownloadYoutube, "", 0, false},
		{DownloadNico, "ja", 0, false},
	}

	for _, tt := range tests {
		t.Run(tt.dlType.String()+"/"+tt.suffix, func(t *testing.T) {
			got, found := store.DownloadProgress(tt.dlType, "vid", tt.suffix)
			if got != tt.want || found != tt.found {
				t.Errorf("DownloadProgress = %v, %v; want %v, %v", got, found, tt.want, tt.found)
			}
		})
	}
}
