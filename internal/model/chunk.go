package model

const (
	SourceTypeFile    = "file"
	SourceTypeURL     = "url"
	SourceTypeFileURL = "file_url"
)

const (
	ProcessingStatusPending    = "pending"
	ProcessingStatusProcessing = "processing"
	ProcessingStatusCompleted  = "completed"
	ProcessingStatusFailed     = "failed"
)

const ReplaceReasonContentChanged = "content_changed"

// ChunkRecord is the unit of storage and retrieval. Every chunk produced
// from one ingestion carries the same document_id; chunk_index runs 0..N-1
// with no gaps.
type ChunkRecord struct {
	ID         string    `json:"id"`
	TenantID   string    `json:"tenant_id"`
	DocumentID string    `json:"document_id"`
	ChunkIndex int       `json:"chunk_index"`
	Content    string    `json:"content"`
	Embedding  []float32 `json:"-"`

	SourceType string `json:"source_type"`
	Title      string `json:"title"`
	URI        string `json:"uri"`
	FileName   string `json:"file_name"`
	FileType   string `json:"file_type"`
	BlobRef    string `json:"blob_ref"`

	Description string `json:"description"`
	BotConfig   string `json:"bot_config"`

	ContentHash  string `json:"content_hash"`
	Version      int    `json:"version"`
	IsActive     bool   `json:"is_active"`
	ReplacedAt   int64  `json:"replaced_at"`
	ReplacedWhy  string `json:"replaced_reason"`
	ReplacedByID string `json:"replaced_by_document_id"`

	IsProcessed      bool   `json:"is_processed"`
	ProcessingStatus string `json:"processing_status"`

	Ctime int64 `json:"ctime"`
	Mtime int64 `json:"mtime"`
}

// OrphanBlob records a blob reference whose deletion failed; the cleanup
// job retries these out of band.
type OrphanBlob struct {
	ID       string `json:"id"`
	TenantID string `json:"tenant_id"`
	BlobRef  string `json:"blob_ref"`
	Reason   string `json:"reason"`
	Attempts int    `json:"attempts"`
	Ctime    int64  `json:"ctime"`
}
