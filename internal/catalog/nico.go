package catalog

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/lrstanley/go-ytdlp"
)

const nicoWatchURL = "https://www.nicovideo.jp/watch/"

// nicoPrintTemplate puts the description last because it may contain tabs
// and newlines.
const nicoPrintTemplate = "%(uploader)s\t%(uploader_id)s\t%(duration)s\t%(title)s\t%(view_count)s\t%(thumbnail)s\t%(description)s"

// NicoClient reads niconico video metadata through yt-dlp.
type NicoClient struct {
	proxy string
	print func(ctx context.Context, url string) (string, error)
}

// NicoVideoInfo is what a client needs to queue a niconico video.
type NicoVideoInfo struct {
	VideoInfo
	ThumbnailURL string `json:"thumbnailUrl"`
}

func NewNicoClient(proxy string) *NicoClient {
	c := &NicoClient{proxy: proxy}
	c.print = c.ytdlpPrint
	return c
}

func (c *NicoClient) ytdlpPrint(ctx context.Context, url string) (string, error) {
	cmd := ytdlp.New().
		Print(nicoPrintTemplate).
		NoWarnings().
		IgnoreConfig()
	if c.proxy != "" {
		cmd.Proxy(c.proxy)
	}

	res, err := cmd.Run(ctx, "--skip-download", url)
	if err != nil {
		return "", err
	}
	return res.Stdout, nil
}

// VideoInfo fetches metadata for a niconico video id such as sm9.
func (c *NicoClient) VideoInfo(ctx context.Context, videoID string) (*NicoVideoInfo, error) {
	out, err := c.print(ctx, nicoWatchURL+videoID)
	if err != nil {
		return nil, fmt.Errorf("nico video info %s: %w", videoID, err)
	}
	return parseNicoPrint(out)
}

func parseNicoPrint(out string) (*NicoVideoInfo, error) {
	fields := strings.SplitN(strings.TrimRight(out, "\n"), "\t", 7)
	if len(fields) < 7 {
		return nil, fmt.Errorf("unexpected yt-dlp output: %d fields", len(fields))
	}

	na := func(s string) string {
		if s == "NA" {
			return ""
		}
		return s
	}

	duration, _ := strconv.ParseFloat(fields[2], 64)
	views, _ := strconv.ParseInt(fields[4], 10, 64)

	return &NicoVideoInfo{
		VideoInfo: VideoInfo{
			Author:        na(fields[0]),
			ChannelID:     na(fields[1]),
			LengthSeconds: int(duration),
			Title:         na(fields[3]),
			ViewCount:     views,
			Description:   na(fields[6]),
		},
		ThumbnailURL: na(fields[5]),
	}, nil
}
