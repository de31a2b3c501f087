package service

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"mime"
	"path"
	"path/filepath"

	"github.com/xxxsen/common/logutil"
	"go.uber.org/zap"

	"github.com/xxxsen/kbridge/internal/chunker"
	"github.com/xxxsen/kbridge/internal/model"
	appErr "github.com/xxxsen/kbridge/internal/pkg/errors"
	"github.com/xxxsen/kbridge/internal/pkg/timeutil"
)

// IngestService orchestrates one ingestion batch: each item is processed
// independently and failures are isolated per item, except Record Store
// failures which abort the whole request.
type IngestService struct {
	store     ChunkStore
	orphans   OrphanStore
	blobs     BlobStore
	embedder  Embedder
	extractor TextExtractor
	splitter  *chunker.Splitter
	resolver  *VersionResolver
}

func NewIngestService(store ChunkStore, orphans OrphanStore, blobs BlobStore, embedder Embedder, extractor TextExtractor, splitter *chunker.Splitter) *IngestService {
	return &IngestService{
		store:     store,
		orphans:   orphans,
		blobs:     blobs,
		embedder:  embedder,
		extractor: extractor,
		splitter:  splitter,
		resolver:  NewVersionResolver(store),
	}
}

// Ingest validates the batch up front, then runs the per-item pipeline in
// input order. Successes land in Items in input order; failed items are
// collected into Errors without aborting their siblings.
func (s *IngestService) Ingest(ctx context.Context, tenantID string, items []model.IngestItem) (*model.IngestResult, error) {
	if tenantID == "" {
		return nil, fmt.Errorf("%w: tenant id is required", appErr.ErrInvalid)
	}
	if len(items) == 0 {
		return nil, fmt.Errorf("%w: at least one item is required", appErr.ErrInvalid)
	}
	logger := logutil.GetLogger(ctx).With(zap.String("tenant_id", tenantID), zap.Int("items", len(items)))
	logger.Info("ingestion batch started")

	result := &model.IngestResult{Total: len(items)}
	for i := range items {
		item := &items[i]
		if err := ctx.Err(); err != nil {
			result.Errors = append(result.Errors, model.IngestItemError{Item: item.Label(), Message: err.Error()})
			result.ErrorCount = len(result.Errors)
			break
		}
		itemResult, err := s.processItem(ctx, tenantID, item)
		if err != nil {
			if appErr.IsStore(err) {
				return nil, err
			}
			logger.Warn("item failed", zap.String("item", item.Label()), zap.Error(err))
			result.Errors = append(result.Errors, model.IngestItemError{Item: item.Label(), Message: err.Error()})
			continue
		}
		result.Items = append(result.Items, *itemResult)
	}
	result.SuccessCount = len(result.Items)
	result.ErrorCount = len(result.Errors)
	logger.Info("ingestion batch finished",
		zap.Int("success", result.SuccessCount),
		zap.Int("errors", result.ErrorCount),
	)
	return result, nil
}

func (s *IngestService) processItem(ctx context.Context, tenantID string, item *model.IngestItem) (*model.IngestItemResult, error) {
	text, err := s.extractor.Extract(ctx, item)
	if err != nil {
		return nil, fmt.Errorf("extract: %w", err)
	}

	resolution := &Resolution{Action: ResolveNew, Version: 1}
	contentHash := ""
	if item.Type == model.SourceTypeFile {
		// Remote fetches have no stable payload to hash, so url/file_url
		// items always start a fresh lineage.
		contentHash = hashContent(item.Data)
		resolution, err = s.resolver.Resolve(ctx, tenantID, item.FileName, contentHash)
		if err != nil {
			return nil, err
		}
	}
	if resolution.Action == ResolveSkip {
		return &model.IngestItemResult{
			DocumentID: resolution.ExistingDocumentID,
			Item:       item.Label(),
			Status:     model.IngestStatusSkipped,
			ChunkCount: 0,
			Version:    resolution.Version,
		}, nil
	}

	documentID := newID()
	blobRef := ""
	blobURL := ""
	if item.Type == model.SourceTypeFile {
		if resolution.Action == ResolveReplace && resolution.PrevBlobRef != "" {
			s.cleanupBlob(ctx, tenantID, resolution.PrevBlobRef, "superseded version")
		}
		blobRef = path.Join(tenantID, documentID, item.FileName)
		blobURL, err = s.blobs.Upload(ctx, blobRef, item.Data, guessContentType(item.FileName))
		if err != nil {
			return nil, fmt.Errorf("upload blob: %w", err)
		}
	}

	chunks := s.splitter.Split(text)
	embeddings, err := s.embedder.EmbedBatch(ctx, chunks)
	if err != nil {
		s.compensateBlob(ctx, tenantID, blobRef)
		return nil, fmt.Errorf("embed: %w", err)
	}
	if len(embeddings) != len(chunks) {
		s.compensateBlob(ctx, tenantID, blobRef)
		return nil, fmt.Errorf("embedding count mismatch: %d chunks, %d vectors", len(chunks), len(embeddings))
	}

	now := timeutil.NowUnix()
	if resolution.Action == ResolveReplace {
		if err := s.store.DeactivateDocument(ctx, tenantID, resolution.PrevDocumentID, documentID, model.ReplaceReasonContentChanged, now); err != nil {
			s.compensateBlob(ctx, tenantID, blobRef)
			return nil, fmt.Errorf("%w: deactivate previous version: %v", appErr.ErrStore, err)
		}
	}

	uri := item.URI
	if uri == "" {
		uri = blobURL
	}
	title := item.Title
	if title == "" {
		title = item.FileName
	}
	records := make([]*model.ChunkRecord, 0, len(chunks))
	for i, content := range chunks {
		records = append(records, &model.ChunkRecord{
			ID:               newID(),
			TenantID:         tenantID,
			DocumentID:       documentID,
			ChunkIndex:       i,
			Content:          content,
			Embedding:        embeddings[i],
			SourceType:       item.Type,
			Title:            title,
			URI:              uri,
			FileName:         item.FileName,
			FileType:         item.FileType,
			BlobRef:          blobRef,
			ContentHash:      contentHash,
			Version:          resolution.Version,
			IsActive:         true,
			IsProcessed:      true,
			ProcessingStatus: model.ProcessingStatusCompleted,
			Ctime:            now,
			Mtime:            now,
		})
	}
	if err := s.store.InsertMany(ctx, records); err != nil {
		s.compensateBlob(ctx, tenantID, blobRef)
		if errors.Is(err, appErr.ErrConflict) {
			// another request ingested this lineage concurrently; fail the
			// item, not the batch
			return nil, fmt.Errorf("concurrent ingest collision: %w", err)
		}
		return nil, fmt.Errorf("%w: insert chunks: %v", appErr.ErrStore, err)
	}

	res := &model.IngestItemResult{
		DocumentID: documentID,
		Item:       item.Label(),
		Status:     model.IngestStatusCreated,
		ChunkCount: len(records),
		Version:    resolution.Version,
	}
	if resolution.Action == ResolveReplace {
		res.Replaced = resolution.PrevDocumentID
	}
	return res, nil
}

// compensateBlob undoes an upload after a later pipeline step failed.
// Compensation is best-effort: its own failure is logged and queued for the
// cleanup job, never re-thrown.
func (s *IngestService) compensateBlob(ctx context.Context, tenantID, blobRef string) {
	if blobRef == "" {
		return
	}
	s.cleanupBlob(ctx, tenantID, blobRef, "ingest compensation")
}

func (s *IngestService) cleanupBlob(ctx context.Context, tenantID, blobRef, reason string) {
	if blobRef == "" {
		return
	}
	if err := s.blobs.Delete(ctx, blobRef); err != nil {
		logutil.GetLogger(ctx).Warn("blob delete failed",
			zap.String("tenant_id", tenantID),
			zap.String("blob_ref", blobRef),
			zap.String("reason", reason),
			zap.Error(err),
		)
		if s.orphans != nil {
			_ = s.orphans.Add(ctx, &model.OrphanBlob{
				ID:       newID(),
				TenantID: tenantID,
				BlobRef:  blobRef,
				Reason:   reason,
				Ctime:    timeutil.NowUnix(),
			})
		}
	}
}

func hashContent(data []byte) string {
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:])
}

func guessContentType(fileName string) string {
	if ct := mime.TypeByExtension(filepath.Ext(fileName)); ct != "" {
		return ct
	}
	return "application/octet-stream"
}
