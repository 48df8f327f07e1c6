package session

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
)

func TestSnapshotReducesCurrentSong(t *testing.T) {
	store, _, snaps := newTestStore(staticPolicy{})
	ctx := context.Background()

	store.QueueSong(ctx, damItem("a", alice, 10), false)
	store.QueueSong(ctx, damItem("b", alice, 10), false)
	store.PopSong(ctx)
	store.SetPitchShiftSemis(4)
	store.PushAdhocLyrics(ctx, "la", 0)
	store.BeginDownload(ctx, DownloadRequest{Item: youtubeItem("vid", bob, 10, false)})
	store.SetPlaybackState(ctx, PlaybackPlaying)

	var saved State
	if err := json.Unmarshal(snaps.data, &saved); err != nil {
		t.Fatalf("saved snapshot is not JSON: %v", err)
	}

	if saved.CurrentSong != nil {
		t.Error("currentSong should be null in snapshot")
	}
	if saved.PitchShiftSemis != 0 {
		t.Errorf("pitchShiftSemis = %d, want 0", saved.PitchShiftSemis)
	}
	if len(saved.CurrentSongAdhocLyrics) != 0 {
		t.Error("currentSongAdhocLyrics should be empty in snapshot")
	}
	if len(saved.DownloadQueue) != 0 {
		t.Error("downloadQueue should be empty in snapshot")
	}
	if got := queueIDs(saved.SongQueue); len(got) != 2 || got[0] != "a" || got[1] != "b" {
		t.Errorf("songQueue = %v, want [a b]", got)
	}
	if saved.PlaybackState != PlaybackPlaying {
		t.Errorf("playbackState = %v, want PLAYING", saved.PlaybackState)
	}

	// In-memory state is untouched by the reduction.
	if store.CurrentSong() == nil || store.PitchShiftSemis() != 4 {
		t.Error("snapshot reduction must not alter live state")
	}
}

func TestRestore(t *testing.T) {
	tests := []struct {
		name      string
		data      string
		wantQueue int
		wantState PlaybackState
	}{
		{"missing snapshot", "", 0, PlaybackWaiting},
		{"partial document", `{"playbackState":"PAUSED"}`, 0, PlaybackPaused},
		{"null collections", `{"songQueue":null,"songHistory":null,"idToAdhocLyrics":null}`, 0, PlaybackWaiting},
		{"unknown playback state", `{"playbackState":"DANCING"}`, 0, PlaybackWaiting},
		{
			"drops invalid items",
			`{"songQueue":[{"kind":"dam","songId":"a","timestamp":"1","dam":{"streamingUrlIdx":0}},{"kind":"cassette","songId":"b"}]}`,
			1, PlaybackWaiting,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			snaps := &memorySnapshotter{}
			if tt.data != "" {
				snaps.data = []byte(tt.data)
			}

			store, err := Open(context.Background(), staticPolicy{}, &recordingPublisher{}, snaps)
			if err != nil {
				t.Fatalf("Open() error = %v", err)
			}

			st := store.Snapshot()
			if len(st.SongQueue) != tt.wantQueue {
				t.Errorf("queue length = %d, want %d", len(st.SongQueue), tt.wantQueue)
			}
			if st.PlaybackState != tt.wantState {
				t.Errorf("PlaybackState = %v, want %v", st.PlaybackState, tt.wantState)
			}
			if st.SongIDToAdhocLyricLines == nil || st.SongHistory == nil || st.DownloadQueue == nil {
				t.Error("collections should never be nil after restore")
			}
		})
	}
}

func TestRestoreRoundTrip(t *testing.T) {
	store, _, snaps := newTestStore(staticPolicy{})
	ctx := context.Background()

	store.QueueSong(ctx, damItem("a", alice, 10), false)
	store.QueueSong(ctx, youtubeItem("v", bob, 20, false), false)
	store.PopSong(ctx)

	restored, err := Open(ctx, staticPolicy{}, &recordingPublisher{}, snaps)
	if err != nil {
		t.Fatalf("Open() error = %v", err)
	}

	if restored.CurrentSong() != nil {
		t.Error("current song should be requeued, not restored as current")
	}
	queue := restored.Queue()
	if len(queue) != 2 || queue[0].SongID != "a" || queue[1].Kind != KindYoutube {
		t.Errorf("queue = %v", queueIDs(queue))
	}
	if queue[1].Youtube == nil || queue[1].Youtube.GainValue != 1 {
		t.Error("variant payload should survive a round trip")
	}
	if n := len(restored.Snapshot().SongHistory); n != 1 {
		t.Errorf("history length = %d, want 1", n)
	}
}

func TestRestoreErrors(t *testing.T) {
	tests := []struct {
		name  string
		snaps *memorySnapshotter
	}{
		{"load failure", &memorySnapshotter{loadErr: errBoom}},
		{"corrupt document", &memorySnapshotter{data: []byte("{not json")}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Open(context.Background(), staticPolicy{}, &recordingPublisher{}, tt.snaps)
			if err == nil {
				t.Fatal("Open() should fail")
			}
			if tt.snaps.loadErr != nil && !errors.Is(err, errBoom) {
				t.Errorf("error = %v, want wrapped %v", err, errBoom)
			}
		})
	}
}

func TestQueueItemValidate(t *testing.T) {
	tests := []struct {
		name    string
		item    QueueItem
		wantErr bool
	}{
		{"dam", QueueItem{Kind: KindDam, SongID: "1", Dam: &DamDetails{}}, false},
		{"joysound", QueueItem{Kind: KindJoysound, SongID: "1", Joysound: &JoysoundDetails{}}, false},
		{"youtube", QueueItem{Kind: KindYoutube, SongID: "1", Youtube: &YoutubeDetails{}}, false},
		{"nico", QueueItem{Kind: KindNico, SongID: "1", Nico: &NicoDetails{}}, false},
		{"missing payload", QueueItem{Kind: KindDam, SongID: "1"}, true},
		{"two payloads", QueueItem{Kind: KindDam, SongID: "1", Dam: &DamDetails{}, Nico: &NicoDetails{}}, true},
		{"wrong payload", QueueItem{Kind: KindNico, SongID: "1", Dam: &DamDetails{}}, true},
		{"unknown kind", QueueItem{Kind: "cassette", SongID: "1"}, true},
		{"empty song id", QueueItem{Kind: KindNico, Nico: &NicoDetails{}}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.item.Validate()
			if (err != nil) != tt.wantErr {
				t.Errorf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestParsePlaybackState(t *testing.T) {
	tests := []struct {
		in      string
		want    PlaybackState
		wantErr bool
	}{
		{"PLAYING", PlaybackPlaying, false},
		{"skipping", PlaybackSkipping, false},
		{" restarting ", PlaybackRestarting, false},
		{"STOPPED", "", true},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParsePlaybackState(tt.in)
			if (err != nil) != tt.wantErr {
				t.Fatalf("ParsePlaybackState() error = %v, wantErr %v", err, tt.wantErr)
			}
			if got != tt.want {
				t.Errorf("ParsePlaybackState() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestParseDownloadType(t *testing.T) {
	tests := []struct {
		in      string
		want    DownloadType
		wantErr bool
	}{
		{"youtube", DownloadYoutube, false},
		{"NICO", DownloadNico, false},
		{"joysound", DownloadJoysound, false},
		{"soundcloud", 0, true},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseDownloadType(tt.in)
			if (err != nil) != tt.wantErr {
				t.Fatalf("ParseDownloadType() error = %v, wantErr %v", err, tt.wantErr)
			}
			if got != tt.want {
				t.Errorf("ParseDownloadType() = %v, want %v", got, tt.want)
			}
		})
	}
}
