// Package media fetches and stores the files the player needs: videos,
// captions, scoring data and lyrics blobs.
package media

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"path/filepath"
	"time"

	"github.com/lrstanley/go-ytdlp"
)

const progressInterval = 500 * time.Millisecond

// ProgressFunc receives fractional progress in [0, 1].
type ProgressFunc func(progress float64)

// Library owns the media directory.
type Library struct {
	dir        string
	proxy      string
	httpClient *http.Client
}

func NewLibrary(dir, proxy string) *Library {
	return &Library{
		dir:   dir,
		proxy: proxy,
		// no timeout; a full video download can take minutes
		httpClient: &http.Client{},
	}
}

func (l *Library) Dir() string { return l.dir }

// YoutubeVideoPath is where FetchYoutube stores a video, without extension.
func (l *Library) YoutubeVideoPath(videoID string) string {
	return filepath.Join(l.dir, "youtube-"+videoID)
}

func (l *Library) NicoVideoPath(videoID string) string {
	return filepath.Join(l.dir, "nico-"+videoID)
}

func (l *Library) DamVideoPath(songID string, streamingURLIdx int) string {
	return filepath.Join(l.dir, fmt.Sprintf("dam-%s-%d.mp4", songID, streamingURLIdx))
}

func (l *Library) DamScoringDataPath(songID string) string {
	return filepath.Join(l.dir, "dam-"+songID+".scoring")
}

func (l *Library) JoysoundDataPath(songID string, isRomaji bool) string {
	if isRomaji {
		return filepath.Join(l.dir, "joysound-"+songID+"-romaji.json")
	}
	return filepath.Join(l.dir, "joysound-"+songID+".json")
}

func (l *Library) ensureDir() error {
	if err := os.MkdirAll(l.dir, 0o755); err != nil {
		return fmt.Errorf("failed to create media directory: %w", err)
	}
	return nil
}

func (l *Library) newYtdlp(outputBase string, progress ProgressFunc) *ytdlp.Command {
	dl := ytdlp.New().
		ForceOverwrites().
		NoWarnings().
		IgnoreConfig().
		Format("bestvideo[height<=1080]+bestaudio/best").
		Output(outputBase + ".%(ext)s")
	if l.proxy != "" {
		dl.Proxy(l.proxy)
	}

	if progress != nil {
		dl.ProgressFunc(progressInterval, func(update ytdlp.ProgressUpdate) {
			if update.TotalBytes > 0 {
				progress(float64(update.DownloadedBytes) / float64(update.TotalBytes))
			}
		})
	}
	return dl
}

// FetchYoutube downloads a YouTube video, plus the captions for
// captionCode when it is set.
func (l *Library) FetchYoutube(ctx context.Context, videoID, captionCode string, progress ProgressFunc) error {
	if err := l.ensureDir(); err != nil {
		return err
	}

	args := []string{}
	if captionCode != "" {
		args = append(args, "--write-subs", "--sub-langs", captionCode, "--sub-format", "vtt")
	}
	args = append(args, "https://www.youtube.com/watch?v="+videoID)

	if _, err := l.newYtdlp(l.YoutubeVideoPath(videoID), progress).Run(ctx, args...); err != nil {
		return fmt.Errorf("yt-dlp youtube %s: %w", videoID, err)
	}
	return nil
}

// FetchNico downloads a niconico video.
func (l *Library) FetchNico(ctx context.Context, videoID string, progress ProgressFunc) error {
	if err := l.ensureDir(); err != nil {
		return err
	}

	if _, err := l.newYtdlp(l.NicoVideoPath(videoID), progress).Run(ctx, "https://www.nicovideo.jp/watch/"+videoID); err != nil {
		return fmt.Errorf("yt-dlp nico %s: %w", videoID, err)
	}
	return nil
}

// DownloadFile streams url into path through a temp file, reporting
// progress when the server sends a Content-Length.
func (l *Library) DownloadFile(ctx context.Context, url, path string, progress ProgressFunc) error {
	if err := l.ensureDir(); err != nil {
		return err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return fmt.Errorf("failed to create download request: %w", err)
	}
	resp, err := l.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("download request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("download failed with status %d", resp.StatusCode)
	}

	tmp := path + ".part"
	f, err := os.Create(tmp)
	if err != nil {
		return fmt.Errorf("failed to create %s: %w", tmp, err)
	}

	var src io.Reader = resp.Body
	if progress != nil && resp.ContentLength > 0 {
		src = &progressReader{r: resp.Body, total: resp.ContentLength, report: progress}
	}

	if _, err := io.Copy(f, src); err != nil {
		f.Close()
		os.Remove(tmp)
		return fmt.Errorf("failed to write %s: %w", path, err)
	}
	if err := f.Close(); err != nil {
		os.Remove(tmp)
		return fmt.Errorf("failed to close %s: %w", path, err)
	}
	if err := os.Rename(tmp, path); err != nil {
		return fmt.Errorf("failed to move %s into place: %w", path, err)
	}

	slog.DebugContext(ctx, "media downloaded", slog.String("path", path))
	return nil
}

// WriteFile stores a blob fetched from a catalog.
func (l *Library) WriteFile(path string, data []byte) error {
	if err := l.ensureDir(); err != nil {
		return err
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("failed to write %s: %w", path, err)
	}
	return nil
}

type progressReader struct {
	r       io.Reader
	read    int64
	total   int64
	report  ProgressFunc
	lastPct int
}

func (p *progressReader) Read(b []byte) (int, error) {
	n, err := p.r.Read(b)
	p.read += int64(n)

	// report at most once per percent
	if pct := int(p.read * 100 / p.total); pct != p.lastPct {
		p.lastPct = pct
		p.report(min(float64(p.read)/float64(p.total), 1))
	}
	return n, err
}
