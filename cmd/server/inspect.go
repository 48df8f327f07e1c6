package main

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/GiGurra/boa/pkg/boa"
	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"

	"github.com/karafriends/backend/internal/config"
	"github.com/karafriends/backend/internal/session"
	"github.com/karafriends/backend/internal/storage"
)

type InspectParams struct {
	Snapshot string `optional:"true" help:"Snapshot URL to read. Defaults to SNAPSHOT_URL."`
	History  int    `short:"n" help:"Number of history entries to show." default:"10"`
}

func InspectCmd() *cobra.Command {
	return boa.CmdT[InspectParams]{
		Use:         "inspect",
		Short:       "Print the persisted queue and history",
		ParamEnrich: defaultParamEnricher(),
		RunFunc: func(params *InspectParams, cmd *cobra.Command, args []string) {
			if err := runInspect(cmd.Context(), params); err != nil {
				_, _ = fmt.Fprintf(os.Stderr, "inspect: %v\n", err)
				os.Exit(1)
			}
		},
	}.ToCobra()
}

func runInspect(ctx context.Context, params *InspectParams) error {
	if ctx == nil {
		ctx = context.Background()
	}
	url := params.Snapshot
	if url == "" {
		url = config.Load().SnapshotURL
	}

	backend, err := storage.Open(ctx, url)
	if err != nil {
		return err
	}
	defer backend.Close()

	data, err := backend.Load(ctx)
	if err != nil {
		return err
	}
	st, err := session.DecodeSnapshot(data)
	if err != nil {
		return err
	}

	fmt.Printf("Snapshot: %s\n", url)
	if sqlStore, ok := backend.(*storage.SQLStore); ok {
		if updated, err := sqlStore.UpdatedAt(ctx); err == nil && !updated.IsZero() {
			fmt.Printf("Updated:  %s\n", updated.Local().Format(time.DateTime))
		}
	}
	fmt.Printf("Playback: %s (pitch %+d)\n", st.PlaybackState, st.PitchShiftSemis)
	if st.CurrentSong != nil {
		fmt.Printf("Playing:  %s - %s (%s)\n", st.CurrentSong.Name, st.CurrentSong.ArtistName, st.CurrentSong.UserIdentity.Nickname)
	}
	fmt.Println()

	queue := newTable("#", "KIND", "SONG", "ARTIST", "REQUESTED BY", "QUEUED AT")
	for i, item := range st.SongQueue {
		queue.AppendRow(table.Row{i + 1, item.Kind, item.Name, item.ArtistName, item.UserIdentity.Nickname, formatTimestamp(item.Timestamp)})
	}
	queue.SetTitle(fmt.Sprintf("Queue (%d)", len(st.SongQueue)))
	queue.Render()

	if len(st.DownloadQueue) > 0 {
		fmt.Println()
		downloads := newTable("TYPE", "SONG ID", "REQUESTED BY", "PROGRESS")
		for _, dl := range st.DownloadQueue {
			downloads.AppendRow(table.Row{dl.DownloadType, dl.SongID, dl.UserIdentity.Nickname, fmt.Sprintf("%.0f%%", dl.Progress*100)})
		}
		downloads.SetTitle("Downloads")
		downloads.Render()
	}

	fmt.Println()
	page := st.SongHistory
	if params.History >= 0 && len(page) > params.History {
		page = page[:params.History]
	}
	history := newTable("KIND", "SONG", "ARTIST", "SUNG BY", "QUEUED AT")
	for _, h := range page {
		history.AppendRow(table.Row{h.Song.Kind, h.Song.Name, h.Song.ArtistName, h.Song.UserIdentity.Nickname, formatTimestamp(h.Song.Timestamp)})
	}
	history.SetTitle(fmt.Sprintf("History (%d of %d)", len(page), len(st.SongHistory)))
	history.Render()

	return nil
}

func newTable(headers ...any) table.Writer {
	t := table.NewWriter()
	t.SetOutputMirror(os.Stdout)
	t.SetStyle(table.StyleLight)
	t.AppendHeader(table.Row(headers))
	return t
}

// formatTimestamp renders a millisecond epoch string in local time.
func formatTimestamp(ts string) string {
	var ms int64
	if _, err := fmt.Sscan(ts, &ms); err != nil || ms <= 0 {
		return ts
	}
	return time.UnixMilli(ms).Local().Format(time.DateTime)
}
