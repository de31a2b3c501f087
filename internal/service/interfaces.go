package service

import (
	"context"

	"github.com/xxxsen/kbridge/internal/model"
)

// ChunkStore is the Record Store consumed by the core: a queryable,
// tenant-scoped collection of chunk records. *repo.ChunkRepo implements it.
type ChunkStore interface {
	InsertMany(ctx context.Context, records []*model.ChunkRecord) error
	ListByDocument(ctx context.Context, tenantID, documentID string) ([]model.ChunkRecord, error)
	GetFirstChunk(ctx context.Context, tenantID, documentID string) (*model.ChunkRecord, error)
	GetActiveByFileName(ctx context.Context, tenantID, fileName string) (*model.ChunkRecord, error)
	GetActiveByFileHash(ctx context.Context, tenantID, fileName, contentHash string) (*model.ChunkRecord, error)
	DeactivateDocument(ctx context.Context, tenantID, documentID, replacedBy, reason string, now int64) error
	UpdateFieldsByDocument(ctx context.Context, tenantID, documentID string, fields map[string]interface{}) (int64, error)
	DeleteByDocument(ctx context.Context, tenantID, documentID string) (int64, error)
	ListByFileName(ctx context.Context, tenantID, fileName string, includeInactive bool) ([]model.ChunkRecord, error)
	ListCandidates(ctx context.Context, tenantID string, limit int) ([]model.ChunkRecord, error)
	SearchLexical(ctx context.Context, tenantID, query string, filters model.SearchFilters, limit int) ([]model.ChunkRecord, error)
	CountByDocument(ctx context.Context, tenantID, documentID string) (int, error)
	CountByTenant(ctx context.Context, tenantID string) (int, error)
}

// Embedder turns text into vectors. EmbedBatch is length-preserving.
type Embedder interface {
	EmbedBatch(ctx context.Context, texts []string) ([][]float32, error)
	EmbedQuery(ctx context.Context, text string) ([]float32, error)
	ModelName() string
}

// BlobStore keeps raw uploaded bytes. Delete tolerates missing objects.
type BlobStore interface {
	Upload(ctx context.Context, key string, data []byte, contentType string) (string, error)
	Delete(ctx context.Context, key string) error
}

// TextExtractor yields the text of an ingest item, or ErrNoContent.
type TextExtractor interface {
	Extract(ctx context.Context, item *model.IngestItem) (string, error)
}

// OrphanStore records blob references whose deletion failed so the cleanup
// job can retry them.
type OrphanStore interface {
	Add(ctx context.Context, item *model.OrphanBlob) error
}
