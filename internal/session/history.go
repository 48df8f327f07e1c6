package session

import "strconv"

const (
	DefaultHistoryPageSize = 20
	MaxHistoryPageSize     = 100
)

// HistoryEdge is one history entry with its offset cursor.
type HistoryEdge struct {
	Node   SongHistoryItem `json:"node"`
	Cursor string          `json:"cursor"`
}

// HistoryPage is a forward-only page of song history, most recent first.
type HistoryPage struct {
	Edges       []HistoryEdge `json:"edges"`
	HasNextPage bool          `json:"hasNextPage"`
	EndCursor   string        `json:"endCursor"`
}

// History returns up to first entries starting at offset after.
func (s *Store) History(first, after int) HistoryPage {
	if first <= 0 {
		first = DefaultHistoryPageSize
	}
	first = min(first, MaxHistoryPageSize)
	after = max(after, 0)

	s.mu.Lock()
	defer s.mu.Unlock()

	total := len(s.state.SongHistory)
	start := min(after, total)
	end := min(start+first, total)

	page := HistoryPage{
		Edges:       make([]HistoryEdge, 0, end-start),
		HasNextPage: end < total,
		EndCursor:   strconv.Itoa(end),
	}
	for i := start; i < end; i++ {
		page.Edges = append(page.Edges, HistoryEdge{
			Node:   SongHistoryItem{Song: s.state.SongHistory[i].Song.clone()},
			Cursor: strconv.Itoa(i + 1),
		})
	}
	return page
}
