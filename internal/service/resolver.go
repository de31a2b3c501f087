package service

import (
	"context"
	"fmt"

	"github.com/xxxsen/common/logutil"
	"go.uber.org/zap"

	appErr "github.com/xxxsen/kbridge/internal/pkg/errors"
)

type ResolveAction int

const (
	ResolveNew ResolveAction = iota
	ResolveSkip
	ResolveReplace
)

// Resolution is the outcome of the dedup/versioning lookup for one file.
type Resolution struct {
	Action ResolveAction
	// Version the new document should carry (unset for skips).
	Version int
	// ExistingDocumentID is the active document matching the content hash
	// (skips only).
	ExistingDocumentID string
	// PrevDocumentID / PrevBlobRef identify the version being superseded
	// (replacements only).
	PrevDocumentID string
	PrevBlobRef    string
}

// VersionResolver decides whether an ingested file is a duplicate, a new
// version of an existing file, or brand new. The lookup-then-act sequence
// is not serialized: two concurrent ingestions for the same
// (tenant, file_name) can both pass the lookup and momentarily leave two
// active versions. Accepted tradeoff; callers must not rely on uniqueness
// being enforced here.
type VersionResolver struct {
	store ChunkStore
}

func NewVersionResolver(store ChunkStore) *VersionResolver {
	return &VersionResolver{store: store}
}

func (r *VersionResolver) Resolve(ctx context.Context, tenantID, fileName, contentHash string) (*Resolution, error) {
	logger := logutil.GetLogger(ctx).With(zap.String("tenant_id", tenantID), zap.String("file_name", fileName))

	same, err := r.store.GetActiveByFileHash(ctx, tenantID, fileName, contentHash)
	if err != nil && !appErr.IsNotFound(err) {
		return nil, fmt.Errorf("%w: lookup by hash: %v", appErr.ErrStore, err)
	}
	if same != nil {
		logger.Info("identical content already ingested, skipping",
			zap.String("document_id", same.DocumentID),
			zap.String("content_hash", contentHash),
		)
		return &Resolution{
			Action:             ResolveSkip,
			Version:            same.Version,
			ExistingDocumentID: same.DocumentID,
		}, nil
	}

	active, err := r.store.GetActiveByFileName(ctx, tenantID, fileName)
	if err != nil {
		if appErr.IsNotFound(err) {
			return &Resolution{Action: ResolveNew, Version: 1}, nil
		}
		return nil, fmt.Errorf("%w: lookup by file name: %v", appErr.ErrStore, err)
	}
	logger.Info("content changed, replacing active version",
		zap.String("prev_document_id", active.DocumentID),
		zap.Int("prev_version", active.Version),
	)
	return &Resolution{
		Action:         ResolveReplace,
		Version:        active.Version + 1,
		PrevDocumentID: active.DocumentID,
		PrevBlobRef:    active.BlobRef,
	}, nil
}
