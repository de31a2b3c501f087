package service

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"

	"github.com/xxxsen/kbridge/internal/model"
	appErr "github.com/xxxsen/kbridge/internal/pkg/errors"
)

// fakeChunkStore is an in-memory ChunkStore good enough for exercising the
// service layer without a database.
type fakeChunkStore struct {
	mu      sync.Mutex
	records []model.ChunkRecord

	insertErr     error
	lookupErr     error
	deactivateErr error
	candidatesErr error
	lexicalErr    error
}

func newFakeChunkStore() *fakeChunkStore {
	return &fakeChunkStore{}
}

func (f *fakeChunkStore) InsertMany(ctx context.Context, records []*model.ChunkRecord) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.insertErr != nil {
		return f.insertErr
	}
	for _, r := range records {
		f.records = append(f.records, *r)
	}
	return nil
}

func (f *fakeChunkStore) ListByDocument(ctx context.Context, tenantID, documentID string) ([]model.ChunkRecord, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []model.ChunkRecord
	for _, r := range f.records {
		if r.TenantID == tenantID && r.DocumentID == documentID {
			out = append(out, r)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ChunkIndex < out[j].ChunkIndex })
	return out, nil
}

func (f *fakeChunkStore) GetFirstChunk(ctx context.Context, tenantID, documentID string) (*model.ChunkRecord, error) {
	rows, _ := f.ListByDocument(ctx, tenantID, documentID)
	if len(rows) == 0 {
		return nil, appErr.ErrNotFound
	}
	first := rows[0]
	return &first, nil
}

func (f *fakeChunkStore) GetActiveByFileName(ctx context.Context, tenantID, fileName string) (*model.ChunkRecord, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.lookupErr != nil {
		return nil, f.lookupErr
	}
	var best *model.ChunkRecord
	for i := range f.records {
		r := &f.records[i]
		if r.TenantID == tenantID && r.FileName == fileName && r.IsActive && r.ChunkIndex == 0 {
			if best == nil || r.Version > best.Version {
				best = r
			}
		}
	}
	if best == nil {
		return nil, appErr.ErrNotFound
	}
	cp := *best
	return &cp, nil
}

func (f *fakeChunkStore) GetActiveByFileHash(ctx context.Context, tenantID, fileName, contentHash string) (*model.ChunkRecord, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.lookupErr != nil {
		return nil, f.lookupErr
	}
	for i := range f.records {
		r := &f.records[i]
		if r.TenantID == tenantID && r.FileName == fileName && r.ContentHash == contentHash && r.IsActive && r.ChunkIndex == 0 {
			cp := *r
			return &cp, nil
		}
	}
	return nil, appErr.ErrNotFound
}

func (f *fakeChunkStore) DeactivateDocument(ctx context.Context, tenantID, documentID, replacedBy, reason string, now int64) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.deactivateErr != nil {
		return f.deactivateErr
	}
	for i := range f.records {
		r := &f.records[i]
		if r.TenantID == tenantID && r.DocumentID == documentID && r.IsActive {
			r.IsActive = false
			r.ReplacedAt = now
			r.ReplacedWhy = reason
			r.ReplacedByID = replacedBy
			r.Mtime = now
		}
	}
	return nil
}

func (f *fakeChunkStore) UpdateFieldsByDocument(ctx context.Context, tenantID, documentID string, fields map[string]interface{}) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var affected int64
	for i := range f.records {
		r := &f.records[i]
		if r.TenantID != tenantID || r.DocumentID != documentID {
			continue
		}
		affected++
		for k, v := range fields {
			switch k {
			case "title":
				r.Title = v.(string)
			case "description":
				r.Description = v.(string)
			case "bot_config":
				r.BotConfig = v.(string)
			case "processing_status":
				r.ProcessingStatus = v.(string)
			case "is_processed":
				r.IsProcessed = v.(bool)
			case "is_active":
				r.IsActive = v.(bool)
			case "mtime":
				r.Mtime = v.(int64)
			}
		}
	}
	return affected, nil
}

func (f *fakeChunkStore) DeleteByDocument(ctx context.Context, tenantID, documentID string) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	kept := f.records[:0]
	var deleted int64
	for _, r := range f.records {
		if r.TenantID == tenantID && r.DocumentID == documentID {
			deleted++
			continue
		}
		kept = append(kept, r)
	}
	f.records = kept
	return deleted, nil
}

func (f *fakeChunkStore) ListByFileName(ctx context.Context, tenantID, fileName string, includeInactive bool) ([]model.ChunkRecord, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []model.ChunkRecord
	for _, r := range f.records {
		if r.TenantID != tenantID || r.FileName != fileName {
			continue
		}
		if !includeInactive && !r.IsActive {
			continue
		}
		out = append(out, r)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Version != out[j].Version {
			return out[i].Version > out[j].Version
		}
		return out[i].ChunkIndex < out[j].ChunkIndex
	})
	return out, nil
}

func (f *fakeChunkStore) ListCandidates(ctx context.Context, tenantID string, limit int) ([]model.ChunkRecord, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.candidatesErr != nil {
		return nil, f.candidatesErr
	}
	var out []model.ChunkRecord
	for _, r := range f.records {
		if r.TenantID == tenantID && r.IsActive && r.ProcessingStatus == model.ProcessingStatusCompleted {
			out = append(out, r)
		}
	}
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (f *fakeChunkStore) SearchLexical(ctx context.Context, tenantID, query string, filters model.SearchFilters, limit int) ([]model.ChunkRecord, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.lexicalErr != nil {
		return nil, f.lexicalErr
	}
	lowered := strings.ToLower(query)
	var out []model.ChunkRecord
	for _, r := range f.records {
		if r.TenantID != tenantID || !r.IsActive || r.ProcessingStatus != model.ProcessingStatusCompleted {
			continue
		}
		if filters.SourceType != "" && r.SourceType != filters.SourceType {
			continue
		}
		if filters.FileType != "" && r.FileType != filters.FileType {
			continue
		}
		if !strings.Contains(strings.ToLower(r.Content), lowered) && !strings.Contains(strings.ToLower(r.Title), lowered) {
			continue
		}
		out = append(out, r)
	}
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (f *fakeChunkStore) CountByDocument(ctx context.Context, tenantID, documentID string) (int, error) {
	rows, _ := f.ListByDocument(ctx, tenantID, documentID)
	return len(rows), nil
}

func (f *fakeChunkStore) CountByTenant(ctx context.Context, tenantID string) (int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	count := 0
	for _, r := range f.records {
		if r.TenantID == tenantID {
			count++
		}
	}
	return count, nil
}

// fakeEmbedder returns deterministic vectors derived from text length so
// tests can reason about cosine ordering.
type fakeEmbedder struct {
	dim      int
	batchErr error
	queryErr error
	// fixed maps exact text to an exact vector, overriding the derived one.
	fixed map[string][]float32
	// short gives back fewer vectors than inputs to simulate a provider bug.
	short bool

	queryCalls int
}

func newFakeEmbedder() *fakeEmbedder {
	return &fakeEmbedder{dim: 4, fixed: map[string][]float32{}}
}

func (f *fakeEmbedder) vector(text string) []float32 {
	if v, ok := f.fixed[text]; ok {
		return v
	}
	out := make([]float32, f.dim)
	for i := 0; i < f.dim; i++ {
		out[i] = float32((len(text)+i)%7) + 1
	}
	return out
}

func (f *fakeEmbedder) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	if f.batchErr != nil {
		return nil, f.batchErr
	}
	out := make([][]float32, 0, len(texts))
	for _, t := range texts {
		out = append(out, f.vector(t))
	}
	if f.short && len(out) > 0 {
		out = out[:len(out)-1]
	}
	return out, nil
}

func (f *fakeEmbedder) EmbedQuery(ctx context.Context, text string) ([]float32, error) {
	f.queryCalls++
	if f.queryErr != nil {
		return nil, f.queryErr
	}
	return f.vector(text), nil
}

func (f *fakeEmbedder) ModelName() string {
	return "fake-embedding-001"
}

// fakeBlob records uploads and deletes in memory.
type fakeBlob struct {
	mu        sync.Mutex
	objects   map[string][]byte
	uploadErr error
	deleteErr error
	deletes   []string
}

func newFakeBlob() *fakeBlob {
	return &fakeBlob{objects: map[string][]byte{}}
}

func (f *fakeBlob) Upload(ctx context.Context, key string, data []byte, contentType string) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.uploadErr != nil {
		return "", f.uploadErr
	}
	f.objects[key] = data
	return "https://blobs.test/" + key, nil
}

func (f *fakeBlob) Delete(ctx context.Context, key string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.deletes = append(f.deletes, key)
	if f.deleteErr != nil {
		return f.deleteErr
	}
	delete(f.objects, key)
	return nil
}

// fakeExtractor maps item labels to canned text.
type fakeExtractor struct {
	texts map[string]string
	errs  map[string]error
}

func newFakeExtractor() *fakeExtractor {
	return &fakeExtractor{texts: map[string]string{}, errs: map[string]error{}}
}

func (f *fakeExtractor) Extract(ctx context.Context, item *model.IngestItem) (string, error) {
	if err, ok := f.errs[item.Label()]; ok {
		return "", err
	}
	if text, ok := f.texts[item.Label()]; ok {
		return text, nil
	}
	if len(item.Data) > 0 {
		return string(item.Data), nil
	}
	return "", fmt.Errorf("no canned text for %s", item.Label())
}

type fakeOrphans struct {
	mu    sync.Mutex
	items []model.OrphanBlob
}

func (f *fakeOrphans) Add(ctx context.Context, item *model.OrphanBlob) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.items = append(f.items, *item)
	return nil
}
