package catalog

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
)

// JoysoundClient talks to the Joysound catalog gateway configured by
// JOYSOUND_API_URL.
type JoysoundClient struct {
	baseURL    string
	httpClient *http.Client
}

type JoysoundSong struct {
	ID            string `json:"id"`
	Name          string `json:"name"`
	ArtistName    string `json:"artistName"`
	LyricsPreview string `json:"lyricsPreview,omitempty"`
	TieUp         string `json:"tieUp,omitempty"`
}

type joysoundListItem struct {
	SelSongNo  string `json:"selSongNo"`
	SongName   string `json:"songName"`
	ArtistName string `json:"artistName"`
}

type joysoundDetailResponse struct {
	SongName      string `json:"songName"`
	ArtistName    string `json:"artistName"`
	LyricsPreview string `json:"lyricsPreview"`
	TieUp         string `json:"tieUp"`
}

func NewJoysoundClient(baseURL string) *JoysoundClient {
	return &JoysoundClient{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: newHTTPClient(),
	}
}

// SearchSongs searches by keyword. The upstream has no total count, so a
// full page is taken to mean more results exist.
func (c *JoysoundClient) SearchSongs(ctx context.Context, keyword string, first, after int) (Page[JoysoundSong], error) {
	if c.baseURL == "" {
		return Page[JoysoundSong]{}, ErrNotConfigured
	}

	q := url.Values{}
	q.Set("keyword", keyword)
	// upstream offsets are 1-based
	q.Set("start", strconv.Itoa(after+1))
	q.Set("count", strconv.Itoa(first))

	var resp []joysoundListItem
	if err := getJSON(ctx, c.httpClient, c.baseURL+"/songs/search?"+q.Encode(), &resp); err != nil {
		return Page[JoysoundSong]{}, fmt.Errorf("joysound search: %w", err)
	}

	songs := make([]JoysoundSong, len(resp))
	for i, s := range resp {
		songs[i] = JoysoundSong{ID: s.SelSongNo, Name: s.SongName, ArtistName: s.ArtistName}
	}

	return Page[JoysoundSong]{
		Items:       songs,
		HasNextPage: len(songs) == first,
		EndCursor:   strconv.Itoa(after + len(songs)),
	}, nil
}

func (c *JoysoundClient) Song(ctx context.Context, id string) (*JoysoundSong, error) {
	if c.baseURL == "" {
		return nil, ErrNotConfigured
	}

	var resp joysoundDetailResponse
	if err := getJSON(ctx, c.httpClient, c.baseURL+"/songs/"+url.PathEscape(id), &resp); err != nil {
		return nil, fmt.Errorf("joysound song %s: %w", id, err)
	}

	return &JoysoundSong{
		ID:            id,
		Name:          resp.SongName,
		ArtistName:    resp.ArtistName,
		LyricsPreview: resp.LyricsPreview,
		TieUp:         resp.TieUp,
	}, nil
}

// SongData returns the lyrics and timing blob for a song. isRomaji selects
// the romanized lyrics variant.
func (c *JoysoundClient) SongData(ctx context.Context, id string, isRomaji bool) ([]byte, error) {
	if c.baseURL == "" {
		return nil, ErrNotConfigured
	}

	u := fmt.Sprintf("%s/songs/%s/data?romaji=%t", c.baseURL, url.PathEscape(id), isRomaji)
	data, err := getBytes(ctx, c.httpClient, u)
	if err != nil {
		return nil, fmt.Errorf("joysound song data %s: %w", id, err)
	}
	return data, nil
}
