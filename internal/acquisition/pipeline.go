// Package acquisition turns song requests into queue entries, fetching
// whatever media a source needs before the entry can be played.
package acquisition

import (
	"context"
	"errors"
	"log/slog"
	"strconv"
	"sync"
	"time"

	"github.com/karafriends/backend/internal/catalog"
	"github.com/karafriends/backend/internal/logging"
	"github.com/karafriends/backend/internal/media"
	"github.com/karafriends/backend/internal/session"
)

const (
	defaultMaxRetries   = 1
	defaultRetryBackoff = 2 * time.Second
)

// DamResolver resolves DAM streaming renditions and scoring data.
type DamResolver interface {
	StreamingURLs(ctx context.Context, songID string) ([]catalog.StreamingURL, error)
	ScoringData(ctx context.Context, songID string) ([]byte, error)
}

// JoysoundResolver resolves Joysound lyrics and timing data.
type JoysoundResolver interface {
	SongData(ctx context.Context, songID string, isRomaji bool) ([]byte, error)
}

// MediaStore fetches media into the media directory.
type MediaStore interface {
	FetchYoutube(ctx context.Context, videoID, captionCode string, progress media.ProgressFunc) error
	FetchNico(ctx context.Context, videoID string, progress media.ProgressFunc) error
	DownloadFile(ctx context.Context, url, path string, progress media.ProgressFunc) error
	WriteFile(path string, data []byte) error
	DamVideoPath(songID string, streamingURLIdx int) string
	DamScoringDataPath(songID string) string
	JoysoundDataPath(songID string, isRomaji bool) string
}

// FailureReporter forwards fetch failures to an error tracker.
type FailureReporter interface {
	ReportFailure(ctx context.Context, err error, tags map[string]string)
}

// Options tunes a Pipeline. Zero values pick the defaults.
type Options struct {
	UseLowBitrateURL bool
	MaxRetries       int
	RetryBackoff     time.Duration
}

// Pipeline runs one acquisition strategy per source type. Fetches run on
// their own goroutines under a base context that only Close cancels, so
// a client disconnecting never aborts a download.
type Pipeline struct {
	store    *session.Store
	dam      DamResolver
	joysound JoysoundResolver
	media    MediaStore
	reporter FailureReporter

	lowBitrate   bool
	maxRetries   int
	retryBackoff time.Duration

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
	now    func() time.Time
}

func NewPipeline(store *session.Store, dam DamResolver, joysound JoysoundResolver, mediaStore MediaStore, reporter FailureReporter, opts Options) *Pipeline {
	ctx, cancel := context.WithCancel(context.Background())

	p := &Pipeline{
		store:        store,
		dam:          dam,
		joysound:     joysound,
		media:        mediaStore,
		reporter:     reporter,
		lowBitrate:   opts.UseLowBitrateURL,
		maxRetries:   opts.MaxRetries,
		retryBackoff: opts.RetryBackoff,
		ctx:          ctx,
		cancel:       cancel,
		now:          time.Now,
	}
	if p.maxRetries <= 0 {
		p.maxRetries = defaultMaxRetries
	}
	if p.retryBackoff <= 0 {
		p.retryBackoff = defaultRetryBackoff
	}
	return p
}

// Wait blocks until every started fetch has finished.
func (p *Pipeline) Wait() {
	p.wg.Wait()
}

// Close cancels in-flight fetches and waits for them to unwind.
func (p *Pipeline) Close() {
	p.cancel()
	p.wg.Wait()
}

func (p *Pipeline) timestamp() string {
	return strconv.FormatInt(p.now().UnixMilli(), 10)
}

// fetchFunc performs one fetch attempt.
type fetchFunc func(ctx context.Context, progress media.ProgressFunc) error

// startDownload runs fetch in the background for a registered download and
// settles the ticket when it resolves.
func (p *Pipeline) startDownload(ticket *session.DownloadTicket, fetch fetchFunc) {
	p.wg.Add(1)
	go func() {
		defer p.wg.Done()

		item := ticket.Item()
		progress := func(v float64) { p.store.UpdateDownloadProgress(ticket, v) }

		err := p.withRetry(p.ctx, string(item.Kind), item.SongID, func(ctx context.Context) error {
			return fetch(ctx, progress)
		})
		if err != nil {
			p.store.FailDownload(p.ctx, ticket, err)
			p.report(err, ticket.Download().DownloadType.String(), item.SongID)
			return
		}

		p.store.CompleteDownload(p.ctx, ticket)
	}()
}

// withRetry tries fn up to maxRetries+1 times with a fixed backoff.
func (p *Pipeline) withRetry(ctx context.Context, kind, songID string, fn func(ctx context.Context) error) error {
	var lastErr error

	for attempt := 0; attempt <= p.maxRetries; attempt++ {
		if attempt > 0 {
			select {
			case <-time.After(p.retryBackoff):
			case <-ctx.Done():
				return ctx.Err()
			}

			slog.Info("retrying fetch",
				slog.String("kind", kind),
				slog.String("song_id", songID),
				slog.Int("attempt", attempt+1),
			)
		}

		err := fn(ctx)
		if err == nil {
			return nil
		}

		lastErr = err
		slog.Warn("fetch attempt failed",
			slog.String("kind", kind),
			slog.String("song_id", songID),
			slog.Int("attempt", attempt+1),
			slog.String("error", err.Error()),
		)

		if ctx.Err() != nil {
			return ctx.Err()
		}
	}

	return lastErr
}

func (p *Pipeline) report(err error, kind, songID string) {
	if p.reporter == nil || errors.Is(err, context.Canceled) {
		return
	}
	p.reporter.ReportFailure(p.ctx, logging.WrapError(err, "acquisition failed"), map[string]string{
		"kind":    kind,
		"song_id": songID,
	})
}
