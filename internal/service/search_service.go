package service

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"math"
	"sort"
	"strings"

	lru "github.com/hashicorp/golang-lru/v2/expirable"
	"github.com/xxxsen/common/logutil"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/xxxsen/kbridge/internal/model"
	appErr "github.com/xxxsen/kbridge/internal/pkg/errors"
)

const (
	queryCacheSize = 512
	queryCacheTTL  = 0 // entries evict by LRU pressure only
)

// SearchService runs retrieval over active, fully processed chunks in four
// modes: vector, lexical, keyword, and hybrid (vector + keyword merged).
type SearchService struct {
	store           ChunkStore
	embedder        Embedder
	defaultLimit    int
	candidateFactor int
	queryCache      *lru.LRU[string, []float32]
}

func NewSearchService(store ChunkStore, embedder Embedder, defaultLimit, candidateFactor int) *SearchService {
	if defaultLimit <= 0 {
		defaultLimit = 10
	}
	if candidateFactor <= 0 {
		candidateFactor = 20
	}
	return &SearchService{
		store:           store,
		embedder:        embedder,
		defaultLimit:    defaultLimit,
		candidateFactor: candidateFactor,
		queryCache:      lru.NewLRU[string, []float32](queryCacheSize, nil, queryCacheTTL),
	}
}

// Search dispatches on mode. Results come back sorted by score descending,
// at most limit entries.
func (s *SearchService) Search(ctx context.Context, tenantID, query string, mode model.SearchMode, filters model.SearchFilters, limit int) ([]model.SearchResult, error) {
	if tenantID == "" {
		return nil, fmt.Errorf("%w: tenant id is required", appErr.ErrInvalid)
	}
	if strings.TrimSpace(query) == "" {
		return nil, fmt.Errorf("%w: query is required", appErr.ErrInvalid)
	}
	if limit <= 0 {
		limit = s.defaultLimit
	}
	switch mode {
	case model.SearchModeVector:
		return s.searchVector(ctx, tenantID, query, filters, limit)
	case model.SearchModeLexical:
		return s.searchLexical(ctx, tenantID, query, filters, limit)
	case model.SearchModeKeyword:
		return s.searchKeyword(ctx, tenantID, query, filters, limit)
	case model.SearchModeHybrid:
		return s.searchHybrid(ctx, tenantID, query, filters, limit)
	default:
		return nil, fmt.Errorf("%w: unknown search mode", appErr.ErrInvalid)
	}
}

func (s *SearchService) searchVector(ctx context.Context, tenantID, query string, filters model.SearchFilters, limit int) ([]model.SearchResult, error) {
	vec, err := s.queryEmbedding(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("embed query: %w", err)
	}
	candidates, err := s.store.ListCandidates(ctx, tenantID, limit*s.candidateFactor)
	if err != nil {
		return nil, fmt.Errorf("%w: list candidates: %v", appErr.ErrStore, err)
	}
	results := make([]model.SearchResult, 0, len(candidates))
	for i := range candidates {
		rec := &candidates[i]
		if !matchFilters(rec, filters) {
			continue
		}
		score := cosineSimilarity(vec, rec.Embedding)
		results = append(results, toSearchResult(rec, score))
	}
	sortByScore(results)
	return truncate(results, limit), nil
}

func (s *SearchService) searchLexical(ctx context.Context, tenantID, query string, filters model.SearchFilters, limit int) ([]model.SearchResult, error) {
	records, err := s.store.SearchLexical(ctx, tenantID, query, filters, limit*2)
	if err != nil {
		return nil, fmt.Errorf("%w: lexical search: %v", appErr.ErrStore, err)
	}
	lowered := strings.ToLower(query)
	results := make([]model.SearchResult, 0, len(records))
	for i := range records {
		rec := &records[i]
		score := 0.5
		if strings.Contains(strings.ToLower(rec.Title), lowered) {
			score = 1.0
		}
		results = append(results, toSearchResult(rec, score))
	}
	sortByScore(results)
	return truncate(results, limit), nil
}

func (s *SearchService) searchKeyword(ctx context.Context, tenantID, query string, filters model.SearchFilters, limit int) ([]model.SearchResult, error) {
	terms := tokenize(query)
	if len(terms) == 0 {
		return nil, nil
	}
	candidates, err := s.store.ListCandidates(ctx, tenantID, limit*s.candidateFactor)
	if err != nil {
		return nil, fmt.Errorf("%w: list candidates: %v", appErr.ErrStore, err)
	}
	results := make([]model.SearchResult, 0, len(candidates))
	for i := range candidates {
		rec := &candidates[i]
		if !matchFilters(rec, filters) {
			continue
		}
		score := keywordScore(terms, rec.Content+" "+rec.Title)
		if score <= 0 {
			continue
		}
		results = append(results, toSearchResult(rec, score))
	}
	sortByScore(results)
	return truncate(results, limit), nil
}

// searchHybrid fans out a vector and a keyword sub-search concurrently, each
// capped at half the limit, then merges on (document_id, chunk_index) keeping
// the vector-side score for duplicates. A failing sub-search degrades to an
// empty contribution instead of failing the request.
func (s *SearchService) searchHybrid(ctx context.Context, tenantID, query string, filters model.SearchFilters, limit int) ([]model.SearchResult, error) {
	half := (limit + 1) / 2
	var vectorPart, keywordPart []model.SearchResult
	eg, gctx := errgroup.WithContext(ctx)
	eg.Go(func() error {
		part, err := s.searchVector(gctx, tenantID, query, filters, half)
		if err != nil {
			logutil.GetLogger(gctx).Warn("hybrid vector branch failed", zap.Error(err))
			return nil
		}
		vectorPart = part
		return nil
	})
	eg.Go(func() error {
		part, err := s.searchKeyword(gctx, tenantID, query, filters, half)
		if err != nil {
			logutil.GetLogger(gctx).Warn("hybrid keyword branch failed", zap.Error(err))
			return nil
		}
		keywordPart = part
		return nil
	})
	_ = eg.Wait()

	seen := make(map[string]struct{}, len(vectorPart)+len(keywordPart))
	merged := make([]model.SearchResult, 0, len(vectorPart)+len(keywordPart))
	for _, part := range [][]model.SearchResult{vectorPart, keywordPart} {
		for _, r := range part {
			key := r.DocumentID + "#" + fmt.Sprint(r.ChunkIndex)
			if _, ok := seen[key]; ok {
				continue
			}
			seen[key] = struct{}{}
			merged = append(merged, r)
		}
	}
	sortByScore(merged)
	return truncate(merged, limit), nil
}

func (s *SearchService) queryEmbedding(ctx context.Context, query string) ([]float32, error) {
	sum := sha256.Sum256([]byte(s.embedder.ModelName() + "\x00" + query))
	key := hex.EncodeToString(sum[:])
	if vec, ok := s.queryCache.Get(key); ok {
		return vec, nil
	}
	vec, err := s.embedder.EmbedQuery(ctx, query)
	if err != nil {
		return nil, err
	}
	s.queryCache.Add(key, vec)
	return vec, nil
}

func matchFilters(rec *model.ChunkRecord, f model.SearchFilters) bool {
	if f.SourceType != "" && rec.SourceType != f.SourceType {
		return false
	}
	if f.FileType != "" && rec.FileType != f.FileType {
		return false
	}
	if f.ProcessedAfter > 0 && rec.Mtime < f.ProcessedAfter {
		return false
	}
	if f.ProcessedUntil > 0 && rec.Mtime > f.ProcessedUntil {
		return false
	}
	return true
}

func toSearchResult(rec *model.ChunkRecord, score float64) model.SearchResult {
	return model.SearchResult{
		Content:     rec.Content,
		DocumentID:  rec.DocumentID,
		ChunkIndex:  rec.ChunkIndex,
		SourceTitle: rec.Title,
		SourceURI:   rec.URI,
		Score:       score,
	}
}

func sortByScore(results []model.SearchResult) {
	sort.SliceStable(results, func(i, j int) bool {
		return results[i].Score > results[j].Score
	})
}

func truncate(results []model.SearchResult, limit int) []model.SearchResult {
	if len(results) > limit {
		return results[:limit]
	}
	return results
}

func tokenize(query string) []string {
	fields := strings.Fields(strings.ToLower(query))
	out := make([]string, 0, len(fields))
	for _, f := range fields {
		f = strings.Trim(f, `.,;:!?"'()[]{}`)
		if f != "" {
			out = append(out, f)
		}
	}
	return out
}

// keywordScore is the fraction of query terms that appear as substrings of
// the record text, in [0,1].
func keywordScore(terms []string, text string) float64 {
	if len(terms) == 0 {
		return 0
	}
	lowered := strings.ToLower(text)
	hit := 0
	for _, term := range terms {
		if strings.Contains(lowered, term) {
			hit++
		}
	}
	return float64(hit) / float64(len(terms))
}

// cosineSimilarity returns the cosine of the angle between a and b, clamped
// to [0,1]. Mismatched lengths and zero vectors score 0.
func cosineSimilarity(a, b []float32) float64 {
	if len(a) != len(b) || len(a) == 0 {
		return 0
	}
	var dot, normA, normB float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
		normA += float64(a[i]) * float64(a[i])
		normB += float64(b[i]) * float64(b[i])
	}
	if normA == 0 || normB == 0 {
		return 0
	}
	sim := dot / (math.Sqrt(normA) * math.Sqrt(normB))
	if sim < 0 {
		return 0
	}
	if sim > 1 {
		return 1
	}
	return sim
}
