package catalog

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"strings"
)

// DamClient talks to the DAM catalog gateway configured by DAM_API_URL.
type DamClient struct {
	baseURL    string
	httpClient *http.Client
}

// DamSong is a search hit.
type DamSong struct {
	ID             string `json:"id"`
	Name           string `json:"name"`
	NameYomi       string `json:"nameYomi"`
	ArtistName     string `json:"artistName"`
	ArtistNameYomi string `json:"artistNameYomi"`
}

// DamSongDetail is the full record for one song.
type DamSongDetail struct {
	DamSong
	LyricsPreview string   `json:"lyricsPreview,omitempty"`
	VocalTypes    []string `json:"vocalTypes"`
	TieUp         string   `json:"tieUp,omitempty"`
	Playtime      *int     `json:"playtime,omitempty"`
}

// StreamingURL is one video rendition pair for a song.
type StreamingURL struct {
	HighBitrateURL string `json:"highBitrateUrl"`
	LowBitrateURL  string `json:"lowBitrateUrl"`
}

// Pick returns the low or high bitrate URL.
func (u StreamingURL) Pick(lowBitrate bool) string {
	if lowBitrate {
		return u.LowBitrateURL
	}
	return u.HighBitrateURL
}

type damSearchResponse struct {
	List []struct {
		RequestNo  string `json:"requestNo"`
		Title      string `json:"title"`
		TitleYomi  string `json:"titleYomi"`
		Artist     string `json:"artist"`
		ArtistYomi string `json:"artistYomi"`
	} `json:"list"`
	Data struct {
		TotalCount int `json:"totalCount"`
	} `json:"data"`
}

type damDetailResponse struct {
	Data struct {
		Title         string `json:"title"`
		TitleYomiKana string `json:"titleYomi_Kana"`
		Artist        string `json:"artist"`
		FirstLine     string `json:"firstLine"`
	} `json:"data"`
	List []struct {
		ModelInfo []struct {
			GuideVocal     string `json:"guideVocal"`
			HighlightTieUp string `json:"highlightTieUp"`
			Playtime       string `json:"playtime"`
		} `json:"mModelMusicInfoList"`
	} `json:"list"`
}

type damStreamingResponse struct {
	List []StreamingURL `json:"list"`
}

func NewDamClient(baseURL string) *DamClient {
	return &DamClient{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: newHTTPClient(),
	}
}

// SearchSongs searches by keyword. after is the offset of the first result.
func (c *DamClient) SearchSongs(ctx context.Context, keyword string, first, after int) (Page[DamSong], error) {
	if c.baseURL == "" {
		return Page[DamSong]{}, ErrNotConfigured
	}

	q := url.Values{}
	q.Set("keyword", keyword)
	q.Set("first", strconv.Itoa(first))
	q.Set("after", strconv.Itoa(after))

	var resp damSearchResponse
	if err := getJSON(ctx, c.httpClient, c.baseURL+"/songs/search?"+q.Encode(), &resp); err != nil {
		return Page[DamSong]{}, fmt.Errorf("dam search: %w", err)
	}

	songs := make([]DamSong, len(resp.List))
	for i, s := range resp.List {
		songs[i] = DamSong{
			ID:             s.RequestNo,
			Name:           s.Title,
			NameYomi:       s.TitleYomi,
			ArtistName:     s.Artist,
			ArtistNameYomi: s.ArtistYomi,
		}
	}

	end := after + len(songs)
	return Page[DamSong]{
		Items:       songs,
		HasNextPage: end < resp.Data.TotalCount,
		EndCursor:   strconv.Itoa(end),
	}, nil
}

// Song returns the detail record for a request number.
func (c *DamClient) Song(ctx context.Context, id string) (*DamSongDetail, error) {
	if c.baseURL == "" {
		return nil, ErrNotConfigured
	}

	var resp damDetailResponse
	if err := getJSON(ctx, c.httpClient, c.baseURL+"/songs/"+url.PathEscape(id), &resp); err != nil {
		return nil, fmt.Errorf("dam song %s: %w", id, err)
	}

	detail := &DamSongDetail{
		DamSong: DamSong{
			ID:         id,
			Name:       resp.Data.Title,
			NameYomi:   resp.Data.TitleYomiKana,
			ArtistName: resp.Data.Artist,
		},
		LyricsPreview: resp.Data.FirstLine,
		VocalTypes:    []string{},
	}

	if len(resp.List) > 0 && len(resp.List[0].ModelInfo) > 0 {
		info := resp.List[0].ModelInfo[0]
		detail.VocalTypes = parseVocalTypes(info.GuideVocal)
		detail.TieUp = info.HighlightTieUp
		if p, err := strconv.Atoi(info.Playtime); err == nil {
			detail.Playtime = &p
		}
	}
	return detail, nil
}

// StreamingURLs lists the video renditions for a song.
func (c *DamClient) StreamingURLs(ctx context.Context, id string) ([]StreamingURL, error) {
	if c.baseURL == "" {
		return nil, ErrNotConfigured
	}

	var resp damStreamingResponse
	if err := getJSON(ctx, c.httpClient, c.baseURL+"/songs/"+url.PathEscape(id)+"/streaming-urls", &resp); err != nil {
		return nil, fmt.Errorf("dam streaming urls %s: %w", id, err)
	}
	return resp.List, nil
}

// ScoringData returns the raw scoring blob for a song.
func (c *DamClient) ScoringData(ctx context.Context, id string) ([]byte, error) {
	if c.baseURL == "" {
		return nil, ErrNotConfigured
	}

	data, err := getBytes(ctx, c.httpClient, c.baseURL+"/songs/"+url.PathEscape(id)+"/scoring-data")
	if err != nil {
		return nil, fmt.Errorf("dam scoring data %s: %w", id, err)
	}
	return data, nil
}

func parseVocalTypes(guideVocal string) []string {
	types := []string{}
	if guideVocal == "" {
		return types
	}
	for _, v := range strings.Split(guideVocal, ",") {
		switch v {
		case "0":
			types = append(types, "NORMAL")
		case "1":
			types = append(types, "GUIDE_MALE")
		case "2":
			types = append(types, "GUIDE_FEMALE")
		default:
			slog.Warn("unknown dam vocal type", slog.String("vocal_type", v))
			types = append(types, "UNKNOWN")
		}
	}
	return types
}
