package model

// VersionSummary is one entry of a file's version lineage, projected from
// the chunk records sharing a document_id.
type VersionSummary struct {
	DocumentID     string `json:"document_id"`
	FileName       string `json:"file_name"`
	Version        int    `json:"version"`
	ContentHash    string `json:"content_hash"`
	ProcessingDate int64  `json:"processing_date"`
	IsActive       bool   `json:"is_active"`
	TotalChunks    int    `json:"total_chunks"`
	ReplacedAt     int64  `json:"replaced_at,omitempty"`
	ReplacedWhy    string `json:"replaced_reason,omitempty"`
	ReplacedByID   string `json:"replaced_by_document_id,omitempty"`
}

// DeleteResult reports one document deletion. Chunk removal is the
// authoritative action; blob failures are tolerated and retried out of band.
type DeleteResult struct {
	DocumentID    string `json:"document_id"`
	ChunksDeleted int    `json:"chunks_deleted"`
	BlobsDeleted  int    `json:"blobs_deleted"`
	BlobsFailed   int    `json:"blobs_failed"`
}

// TenantStats is a coarse per-tenant usage summary.
type TenantStats struct {
	TotalChunks int `json:"total_chunks"`
}

type BulkDeleteResult struct {
	Total        int            `json:"total"`
	SuccessCount int            `json:"success_count"`
	ErrorCount   int            `json:"error_count"`
	Results      []DeleteResult `json:"results"`
}
