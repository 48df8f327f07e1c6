package acquisition

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/karafriends/backend/internal/logging"
	"github.com/karafriends/backend/internal/media"
	"github.com/karafriends/backend/internal/session"
)

// SongInput is the metadata every request carries.
type SongInput struct {
	SongID     string `json:"songId"`
	Name       string `json:"name"`
	ArtistName string `json:"artistName"`
	Playtime   *int   `json:"playtime"`
}

func (in SongInput) validate() error {
	if in.SongID == "" {
		return fmt.Errorf("songId is required")
	}
	if in.Playtime != nil && *in.Playtime < 0 {
		return fmt.Errorf("playtime must not be negative")
	}
	return nil
}

type DamInput struct {
	SongInput
	StreamingURLIdx int `json:"streamingUrlIdx"`
}

type JoysoundInput struct {
	SongInput
	IsRomaji       bool   `json:"isRomaji"`
	YoutubeVideoID string `json:"youtubeVideoId"`
}

type YoutubeInput struct {
	SongInput
	AdhocSongLyrics string  `json:"adhocSongLyrics"`
	CaptionCode     string  `json:"captionCode"`
	GainValue       float64 `json:"gainValue"`
}

type NicoInput struct {
	SongInput
}

func (p *Pipeline) newItem(kind session.ItemKind, user session.UserIdentity, in SongInput) session.QueueItem {
	return session.QueueItem{
		Kind:         kind,
		SongID:       in.SongID,
		Name:         in.Name,
		ArtistName:   in.ArtistName,
		Playtime:     in.Playtime,
		Timestamp:    p.timestamp(),
		UserIdentity: user,
	}
}

// QueueDam queues a DAM song right away; its video is streamable, so the
// prefetch runs in the background and never holds up the queue.
func (p *Pipeline) QueueDam(ctx context.Context, user session.UserIdentity, in DamInput, tryHead bool) (session.QueueSongResult, error) {
	if err := in.validate(); err != nil {
		return session.QueueSongResult{}, err
	}
	if in.StreamingURLIdx < 0 {
		return session.QueueSongResult{}, fmt.Errorf("streamingUrlIdx must not be negative")
	}

	item := p.newItem(session.KindDam, user, in.SongInput)
	item.Dam = &session.DamDetails{StreamingURLIdx: in.StreamingURLIdx}

	result := p.store.QueueSong(ctx, item, tryHead)
	if !result.Accepted {
		return result, nil
	}

	p.wg.Add(1)
	go func() {
		defer p.wg.Done()
		if err := p.prefetchDam(p.ctx, in.SongID, in.StreamingURLIdx); err != nil {
			slog.Error("dam prefetch failed",
				slog.String("song_id", in.SongID),
				slog.Int("streaming_url_idx", in.StreamingURLIdx),
				slog.Any("error", logging.WrapError(err, "dam prefetch")),
			)
			p.report(err, "dam", in.SongID)
		}
	}()

	return result, nil
}

func (p *Pipeline) prefetchDam(ctx context.Context, songID string, idx int) error {
	slog.Info("starting offline download", slog.String("song_id", songID))

	urls, err := p.dam.StreamingURLs(ctx, songID)
	if err != nil {
		return err
	}
	if idx >= len(urls) {
		return fmt.Errorf("streamingUrlIdx %d out of range (%d urls)", idx, len(urls))
	}
	url := urls[idx].Pick(p.lowBitrate)

	err = p.withRetry(ctx, "dam", songID, func(ctx context.Context) error {
		return p.media.DownloadFile(ctx, url, p.media.DamVideoPath(songID, idx), nil)
	})
	if err != nil {
		return err
	}

	scoring, err := p.dam.ScoringData(ctx, songID)
	if err != nil {
		return fmt.Errorf("scoring data: %w", err)
	}
	return p.media.WriteFile(p.media.DamScoringDataPath(songID), scoring)
}

// QueueJoysound registers a download that resolves the song's lyrics and
// timing data before the item is queued.
func (p *Pipeline) QueueJoysound(ctx context.Context, user session.UserIdentity, in JoysoundInput, tryHead bool) (session.QueueSongResult, error) {
	if err := in.validate(); err != nil {
		return session.QueueSongResult{}, err
	}

	item := p.newItem(session.KindJoysound, user, in.SongInput)
	item.Joysound = &session.JoysoundDetails{IsRomaji: in.IsRomaji, YoutubeVideoID: in.YoutubeVideoID}

	ticket, result := p.store.BeginDownload(ctx, session.DownloadRequest{Item: item, TryHeadOfQueue: tryHead})
	if ticket == nil {
		return result, nil
	}

	p.startDownload(ticket, func(ctx context.Context, progress media.ProgressFunc) error {
		data, err := p.joysound.SongData(ctx, in.SongID, in.IsRomaji)
		if err != nil {
			return err
		}
		if err := p.media.WriteFile(p.media.JoysoundDataPath(in.SongID, in.IsRomaji), data); err != nil {
			return err
		}
		progress(1)
		return nil
	})
	return result, nil
}

// QueueYoutube stores any user lyrics under the song id, then registers a
// download for the video and the chosen captions.
func (p *Pipeline) QueueYoutube(ctx context.Context, user session.UserIdentity, in YoutubeInput, tryHead bool) (session.QueueSongResult, error) {
	if err := in.validate(); err != nil {
		return session.QueueSongResult{}, err
	}

	lyrics := session.ParseAdhocLyrics(in.AdhocSongLyrics)

	item := p.newItem(session.KindYoutube, user, in.SongInput)
	item.Youtube = &session.YoutubeDetails{
		HasAdhocLyrics: len(lyrics) > 0,
		HasCaptions:    in.CaptionCode != "",
		GainValue:      in.GainValue,
	}

	ticket, result := p.store.BeginDownload(ctx, session.DownloadRequest{
		Item:           item,
		TryHeadOfQueue: tryHead,
		Suffix:         in.CaptionCode,
		AdhocLyrics:    lyrics,
	})
	if ticket == nil {
		return result, nil
	}

	p.startDownload(ticket, func(ctx context.Context, progress media.ProgressFunc) error {
		return p.media.FetchYoutube(ctx, in.SongID, in.CaptionCode, progress)
	})
	return result, nil
}

func (p *Pipeline) QueueNico(ctx context.Context, user session.UserIdentity, in NicoInput, tryHead bool) (session.QueueSongResult, error) {
	if err := in.validate(); err != nil {
		return session.QueueSongResult{}, err
	}

	item := p.newItem(session.KindNico, user, in.SongInput)
	item.Nico = &session.NicoDetails{}

	ticket, result := p.store.BeginDownload(ctx, session.DownloadRequest{Item: item, TryHeadOfQueue: tryHead})
	if ticket == nil {
		return result, nil
	}

	p.startDownload(ticket, func(ctx context.Context, progress media.ProgressFunc) error {
		return p.media.FetchNico(ctx, in.SongID, progress)
	})
	return result, nil
}
