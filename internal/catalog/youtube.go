package catalog

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"html"
	"math"
	"net/http"
	"net/url"
	"regexp"
	"strconv"
	"strings"
)

const (
	youtubeDataAPIBase = "https://www.googleapis.com/youtube/v3"
	youtubePlayerURL   = "https://www.youtube.com/youtubei/v1/player?prettyPrint=false"
)

// YouTubeClient searches YouTube via the Data API v3 and reads per-video
// player info (captions, loudness) from the player endpoint.
type YouTubeClient struct {
	apiKey     string
	apiBase    string
	playerURL  string
	httpClient *http.Client
}

// YouTubeVideo represents a video from YouTube search results.
type YouTubeVideo struct {
	ID           string
	Title        string
	ChannelTitle string
	ThumbnailURL string
	DurationMS   int64
}

// YouTubeVideoInfo is what a client needs to queue a video.
type YouTubeVideoInfo struct {
	VideoInfo
	CaptionLanguages []CaptionLanguage `json:"captionLanguages"`
	Keywords         []string          `json:"keywords"`
	GainValue        float64           `json:"gainValue"`
}

// UnplayableError reports a video the player refuses to play.
type UnplayableError struct {
	Status string
	Reason string
}

func (e *UnplayableError) Error() string {
	return fmt.Sprintf("video not playable (%s): %s", e.Status, e.Reason)
}

type youtubeSearchResponse struct {
	Items []youtubeSearchItem `json:"items"`
}

type youtubeSearchItem struct {
	ID      youtubeVideoID `json:"id"`
	Snippet youtubeSnippet `json:"snippet"`
}

type youtubeVideoID struct {
	VideoID string `json:"videoId"`
}

type youtubeSnippet struct {
	Title        string            `json:"title"`
	ChannelTitle string            `json:"channelTitle"`
	Thumbnails   youtubeThumbnails `json:"thumbnails"`
}

type youtubeThumbnails struct {
	Default youtubeThumbnail `json:"default"`
	Medium  youtubeThumbnail `json:"medium"`
}

type youtubeThumbnail struct {
	URL string `json:"url"`
}

// NewYouTubeClient creates a YouTubeClient with the given API key.
func NewYouTubeClient(apiKey string) *YouTubeClient {
	return &YouTubeClient{
		apiKey:     apiKey,
		apiBase:    youtubeDataAPIBase,
		playerURL:  youtubePlayerURL,
		httpClient: newHTTPClient(),
	}
}

// Search queries YouTube for videos matching the given search string.
func (c *YouTubeClient) Search(ctx context.Context, query string, limit int) ([]YouTubeVideo, error) {
	if c.apiKey == "" {
		return nil, ErrNotConfigured
	}
	if limit <= 0 || limit > 50 {
		limit = 20
	}

	searchURL := fmt.Sprintf("%s/search?part=snippet&type=video&q=%s&maxResults=%d&key=%s",
		c.apiBase, url.QueryEscape(query), limit, url.QueryEscape(c.apiKey))

	var searchResp youtubeSearchResponse
	if err := getJSON(ctx, c.httpClient, searchURL, &searchResp); err != nil {
		return nil, fmt.Errorf("youtube search: %w", err)
	}

	videos := make([]YouTubeVideo, len(searchResp.Items))
	videoIDs := make([]string, len(searchResp.Items))
	for i, item := range searchResp.Items {
		thumbnailURL := item.Snippet.Thumbnails.Medium.URL
		if thumbnailURL == "" {
			thumbnailURL = item.Snippet.Thumbnails.Default.URL
		}

		videos[i] = YouTubeVideo{
			ID:           item.ID.VideoID,
			Title:        html.UnescapeString(item.Snippet.Title),
			ChannelTitle: html.UnescapeString(item.Snippet.ChannelTitle),
			ThumbnailURL: thumbnailURL,
		}
		videoIDs[i] = item.ID.VideoID
	}

	// Fetch durations via videos.list (1 quota unit)
	durations, err := c.getVideoDurations(ctx, videoIDs)
	if err == nil {
		for i := range videos {
			if d, ok := durations[videos[i].ID]; ok {
				videos[i].DurationMS = d
			}
		}
	}

	return videos, nil
}

// getVideoDurations fetches video durations from the YouTube Videos API.
// Returns a map of videoID -> duration in milliseconds.
func (c *YouTubeClient) getVideoDurations(ctx context.Context, videoIDs []string) (map[string]int64, error) {
	if len(videoIDs) == 0 {
		return nil, nil
	}

	videosURL := fmt.Sprintf("%s/videos?part=contentDetails&id=%s&key=%s",
		c.apiBase, url.QueryEscape(strings.Join(videoIDs, ",")), url.QueryEscape(c.apiKey))

	var videosResp youtubeVideosResponse
	if err := getJSON(ctx, c.httpClient, videosURL, &videosResp); err != nil {
		return nil, fmt.Errorf("youtube videos: %w", err)
	}

	durations := make(map[string]int64, len(videosResp.Items))
	for _, item := range videosResp.Items {
		durations[item.ID] = parseISO8601Duration(item.ContentDetails.Duration)
	}

	return durations, nil
}

type youtubeVideosResponse struct {
	Items []youtubeVideoItem `json:"items"`
}

type youtubeVideoItem struct {
	ID             string                `json:"id"`
	ContentDetails youtubeContentDetails `json:"contentDetails"`
}

type youtubeContentDetails struct {
	Duration string `json:"duration"`
}

type playerRequest struct {
	VideoID string        `json:"videoId"`
	Context playerContext `json:"context"`
}

type playerContext struct {
	Client playerClient `json:"client"`
}

type playerClient struct {
	ClientName    string `json:"clientName"`
	ClientVersion string `json:"clientVersion"`
	HL            string `json:"hl"`
}

type playerResponse struct {
	PlayabilityStatus struct {
		Status string `json:"status"`
		Reason string `json:"reason"`
	} `json:"playabilityStatus"`
	VideoDetails struct {
		Author           string   `json:"author"`
		ChannelID        string   `json:"channelId"`
		Keywords         []string `json:"keywords"`
		LengthSeconds    string   `json:"lengthSeconds"`
		ShortDescription string   `json:"shortDescription"`
		Title            string   `json:"title"`
		ViewCount        string   `json:"viewCount"`
	} `json:"videoDetails"`
	Captions *struct {
		Renderer struct {
			CaptionTracks []captionTrack `json:"captionTracks"`
		} `json:"playerCaptionsTracklistRenderer"`
	} `json:"captions"`
	PlayerConfig struct {
		AudioConfig struct {
			LoudnessDb float64 `json:"loudnessDb"`
		} `json:"audioConfig"`
	} `json:"playerConfig"`
}

type captionTrack struct {
	LanguageCode string `json:"languageCode"`
	VssID        string `json:"vssId"`
	Name         struct {
		SimpleText string `json:"simpleText"`
		Runs       []struct {
			Text string `json:"text"`
		} `json:"runs"`
	} `json:"name"`
}

func (t captionTrack) displayName() string {
	if t.Name.SimpleText != "" {
		return t.Name.SimpleText
	}
	var b strings.Builder
	for _, r := range t.Name.Runs {
		b.WriteString(r.Text)
	}
	return b.String()
}

// VideoInfo returns player info for videoID. A video the player will not
// play yields an *UnplayableError.
func (c *YouTubeClient) VideoInfo(ctx context.Context, videoID string) (*YouTubeVideoInfo, error) {
	body, err := json.Marshal(playerRequest{
		VideoID: videoID,
		Context: playerContext{Client: playerClient{ClientName: "WEB", ClientVersion: "2.20240726.00.00", HL: "en"}},
	})
	if err != nil {
		return nil, fmt.Errorf("failed to encode player request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.playerURL, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("failed to create player request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	var resp playerResponse
	if err := doJSON(c.httpClient, req, &resp); err != nil {
		return nil, fmt.Errorf("youtube player: %w", err)
	}

	if resp.PlayabilityStatus.Status != "OK" {
		return nil, &UnplayableError{Status: resp.PlayabilityStatus.Status, Reason: resp.PlayabilityStatus.Reason}
	}

	captions := []CaptionLanguage{}
	if resp.Captions != nil {
		for _, track := range resp.Captions.Renderer.CaptionTracks {
			// auto-generated tracks have a vssId starting with "a"
			if strings.HasPrefix(track.VssID, "a") {
				continue
			}
			captions = append(captions, CaptionLanguage{Code: track.LanguageCode, Name: track.displayName()})
		}
	}

	length, _ := strconv.Atoi(resp.VideoDetails.LengthSeconds)
	views, _ := strconv.ParseInt(resp.VideoDetails.ViewCount, 10, 64)
	keywords := resp.VideoDetails.Keywords
	if keywords == nil {
		keywords = []string{}
	}

	return &YouTubeVideoInfo{
		VideoInfo: VideoInfo{
			Author:        resp.VideoDetails.Author,
			ChannelID:     resp.VideoDetails.ChannelID,
			LengthSeconds: length,
			Description:   resp.VideoDetails.ShortDescription,
			Title:         resp.VideoDetails.Title,
			ViewCount:     views,
		},
		CaptionLanguages: captions,
		Keywords:         keywords,
		GainValue:        gainFromLoudness(resp.PlayerConfig.AudioConfig.LoudnessDb),
	}, nil
}

// gainFromLoudness converts the player's loudness offset into a linear
// gain that normalizes playback volume.
func gainFromLoudness(loudnessDb float64) float64 {
	return math.Pow(10, -loudnessDb/20)
}

// iso8601Re matches ISO 8601 duration format: PT1H2M3S
var iso8601Re = regexp.MustCompile(`PT(?:(\d+)H)?(?:(\d+)M)?(?:(\d+)S)?`)

// parseISO8601Duration parses a duration like "PT4M13S" to milliseconds.
func parseISO8601Duration(d string) int64 {
	matches := iso8601Re.FindStringSubmatch(d)
	if matches == nil {
		return 0
	}

	var hours, minutes, seconds int64
	if matches[1] != "" {
		hours, _ = strconv.ParseInt(matches[1], 10, 64)
	}
	if matches[2] != "" {
		minutes, _ = strconv.ParseInt(matches[2], 10, 64)
	}
	if matches[3] != "" {
		seconds, _ = strconv.ParseInt(matches[3], 10, 64)
	}

	return (hours*3600 + minutes*60 + seconds) * 1000
}
