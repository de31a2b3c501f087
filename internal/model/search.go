package model

import (
	"fmt"
	"strings"
)

// SearchMode is the closed set of retrieval strategies.
type SearchMode int

const (
	SearchModeHybrid SearchMode = iota
	SearchModeVector
	SearchModeLexical
	SearchModeKeyword
)

func (m SearchMode) String() string {
	switch m {
	case SearchModeVector:
		return "vector"
	case SearchModeLexical:
		return "lexical"
	case SearchModeKeyword:
		return "keyword"
	default:
		return "hybrid"
	}
}

func ParseSearchMode(s string) (SearchMode, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "hybrid":
		return SearchModeHybrid, nil
	case "vector":
		return SearchModeVector, nil
	case "lexical":
		return SearchModeLexical, nil
	case "keyword":
		return SearchModeKeyword, nil
	}
	return SearchModeHybrid, fmt.Errorf("unknown search mode: %s", s)
}

// SearchFilters narrows lexical search. Date bounds are inclusive unix
// seconds on chunk processing time; zero means unbounded.
type SearchFilters struct {
	SourceType     string
	FileType       string
	ProcessedAfter int64
	ProcessedUntil int64
}

type SearchResult struct {
	Content     string  `json:"content"`
	DocumentID  string  `json:"document_id"`
	ChunkIndex  int     `json:"chunk_index"`
	SourceTitle string  `json:"source_title"`
	SourceURI   string  `json:"source_uri"`
	Score       float64 `json:"score"`
}
