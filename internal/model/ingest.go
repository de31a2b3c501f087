package model

// IngestItem is one unit of an ingestion batch: an uploaded file, a URL to
// crawl, or a reference to a remote file.
type IngestItem struct {
	Type     string `json:"type"`
	FileName string `json:"file_name"`
	FileType string `json:"file_type"`
	Title    string `json:"title"`
	URI      string `json:"uri"`
	Data     []byte `json:"data"`
}

// Label identifies the item in error reports.
func (i *IngestItem) Label() string {
	if i.FileName != "" {
		return i.FileName
	}
	return i.URI
}

const (
	IngestStatusCreated = "created"
	IngestStatusSkipped = "skipped_duplicate"
)

type IngestItemResult struct {
	DocumentID string `json:"document_id"`
	Item       string `json:"item"`
	Status     string `json:"status"`
	ChunkCount int    `json:"chunk_count"`
	Version    int    `json:"version"`
	Replaced   string `json:"replaced_document_id,omitempty"`
}

type IngestItemError struct {
	Item    string `json:"item"`
	Message string `json:"message"`
}

// IngestResult aggregates per-item outcomes. Items holds successes in input
// order; Errors carries failed items with no positional guarantee.
type IngestResult struct {
	Total        int                `json:"total"`
	SuccessCount int                `json:"success_count"`
	ErrorCount   int                `json:"error_count"`
	Items        []IngestItemResult `json:"items"`
	Errors       []IngestItemError  `json:"errors"`
}
