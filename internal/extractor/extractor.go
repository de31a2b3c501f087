package extractor

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/xxxsen/kbridge/internal/model"
	appErr "github.com/xxxsen/kbridge/internal/pkg/errors"
)

// Registry resolves the extractor for an ingest item: remote items are
// fetched over HTTP, files are dispatched on file type. Binary formats
// (pdf/office) are not parsed here; unknown types fall through to the plain
// text extractor.
type Registry struct {
	client *http.Client
}

func NewRegistry() *Registry {
	return &Registry{client: &http.Client{Timeout: 30 * time.Second}}
}

// Extract returns the text of an item, or ErrNoContent when nothing usable
// remains after extraction.
func (r *Registry) Extract(ctx context.Context, item *model.IngestItem) (string, error) {
	var text string
	var err error
	switch item.Type {
	case model.SourceTypeURL:
		text, err = r.fetchPage(ctx, item.URI)
	case model.SourceTypeFileURL:
		var data []byte
		data, err = r.fetchRaw(ctx, item.URI)
		if err == nil {
			text, err = extractFile(data, item.FileType)
		}
	case model.SourceTypeFile:
		text, err = extractFile(item.Data, item.FileType)
	default:
		return "", fmt.Errorf("%w: unknown source type %q", appErr.ErrInvalid, item.Type)
	}
	if err != nil {
		return "", err
	}
	text = strings.TrimSpace(text)
	if text == "" {
		return "", appErr.ErrNoContent
	}
	return text, nil
}

func extractFile(data []byte, fileType string) (string, error) {
	switch strings.ToLower(strings.TrimSpace(fileType)) {
	case "md", "markdown":
		return markdownToText(data)
	default:
		return string(data), nil
	}
}

func (r *Registry) fetchRaw(ctx context.Context, uri string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, uri, nil)
	if err != nil {
		return nil, err
	}
	resp, err := r.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("fetch %s: %s", uri, resp.Status)
	}
	return readAllLimited(resp.Body)
}

func (r *Registry) fetchPage(ctx context.Context, uri string) (string, error) {
	data, err := r.fetchRaw(ctx, uri)
	if err != nil {
		return "", err
	}
	return stripHTML(string(data)), nil
}
