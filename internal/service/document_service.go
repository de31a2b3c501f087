package service

import (
	"context"
	"fmt"
	"strings"

	"github.com/xxxsen/common/logutil"
	"go.uber.org/zap"

	"github.com/xxxsen/kbridge/internal/chunker"
	"github.com/xxxsen/kbridge/internal/model"
	appErr "github.com/xxxsen/kbridge/internal/pkg/errors"
	"github.com/xxxsen/kbridge/internal/pkg/timeutil"
)

// DocumentService covers post-ingest document lifecycle: content rewrites,
// metadata and status patches, and deletion.
type DocumentService struct {
	store    ChunkStore
	orphans  OrphanStore
	blobs    BlobStore
	embedder Embedder
	splitter *chunker.Splitter
}

func NewDocumentService(store ChunkStore, orphans OrphanStore, blobs BlobStore, embedder Embedder, splitter *chunker.Splitter) *DocumentService {
	return &DocumentService{
		store:    store,
		orphans:  orphans,
		blobs:    blobs,
		embedder: embedder,
		splitter: splitter,
	}
}

// MetadataPatch carries the updatable descriptive fields. Nil pointers leave
// the column untouched.
type MetadataPatch struct {
	Title       *string
	Description *string
	BotConfig   *string
	IsActive    *bool
}

// UpdateContent re-chunks and re-embeds a document in place, keeping its
// identity (document_id, version, lineage) and metadata. Chunks and
// embeddings are computed before the old rows are removed, so an embedding
// failure leaves the document intact. Between the delete and the insert the
// document is briefly invisible to search; accepted tradeoff for keeping the
// contiguous chunk_index invariant without transactions.
func (s *DocumentService) UpdateContent(ctx context.Context, tenantID, documentID, content string) (*model.ChunkRecord, error) {
	if tenantID == "" || documentID == "" {
		return nil, fmt.Errorf("%w: tenant id and document id are required", appErr.ErrInvalid)
	}
	if strings.TrimSpace(content) == "" {
		return nil, fmt.Errorf("%w: content is required", appErr.ErrNoContent)
	}
	first, err := s.store.GetFirstChunk(ctx, tenantID, documentID)
	if err != nil {
		if appErr.IsNotFound(err) {
			return nil, fmt.Errorf("%w: document %s", appErr.ErrNotFound, documentID)
		}
		return nil, fmt.Errorf("%w: load document: %v", appErr.ErrStore, err)
	}

	_, _ = s.store.UpdateFieldsByDocument(ctx, tenantID, documentID, map[string]interface{}{
		"processing_status": model.ProcessingStatusProcessing,
		"is_processed":      false,
		"mtime":             timeutil.NowUnix(),
	})

	chunks := s.splitter.Split(content)
	embeddings, err := s.embedder.EmbedBatch(ctx, chunks)
	if err != nil {
		s.markFailed(ctx, tenantID, documentID)
		return nil, fmt.Errorf("embed: %w", err)
	}
	if len(embeddings) != len(chunks) {
		s.markFailed(ctx, tenantID, documentID)
		return nil, fmt.Errorf("embedding count mismatch: %d chunks, %d vectors", len(chunks), len(embeddings))
	}

	if _, err := s.store.DeleteByDocument(ctx, tenantID, documentID); err != nil {
		return nil, fmt.Errorf("%w: delete old chunks: %v", appErr.ErrStore, err)
	}

	now := timeutil.NowUnix()
	records := make([]*model.ChunkRecord, 0, len(chunks))
	for i, text := range chunks {
		records = append(records, &model.ChunkRecord{
			ID:               newID(),
			TenantID:         tenantID,
			DocumentID:       documentID,
			ChunkIndex:       i,
			Content:          text,
			Embedding:        embeddings[i],
			SourceType:       first.SourceType,
			Title:            first.Title,
			URI:              first.URI,
			FileName:         first.FileName,
			FileType:         first.FileType,
			BlobRef:          first.BlobRef,
			Description:      first.Description,
			BotConfig:        first.BotConfig,
			ContentHash:      hashContent([]byte(content)),
			Version:          first.Version,
			IsActive:         first.IsActive,
			ReplacedAt:       first.ReplacedAt,
			ReplacedWhy:      first.ReplacedWhy,
			ReplacedByID:     first.ReplacedByID,
			IsProcessed:      true,
			ProcessingStatus: model.ProcessingStatusCompleted,
			Ctime:            first.Ctime,
			Mtime:            now,
		})
	}
	if err := s.store.InsertMany(ctx, records); err != nil {
		return nil, fmt.Errorf("%w: insert chunks: %v", appErr.ErrStore, err)
	}
	logutil.GetLogger(ctx).Info("document content rewritten",
		zap.String("tenant_id", tenantID),
		zap.String("document_id", documentID),
		zap.Int("chunks", len(records)),
	)
	return records[0], nil
}

func (s *DocumentService) markFailed(ctx context.Context, tenantID, documentID string) {
	_, _ = s.store.UpdateFieldsByDocument(ctx, tenantID, documentID, map[string]interface{}{
		"processing_status": model.ProcessingStatusFailed,
		"is_processed":      false,
		"mtime":             timeutil.NowUnix(),
	})
}

// UpdateMetadata patches descriptive fields across every chunk of the
// document so all rows stay consistent.
func (s *DocumentService) UpdateMetadata(ctx context.Context, tenantID, documentID string, patch MetadataPatch) error {
	if tenantID == "" || documentID == "" {
		return fmt.Errorf("%w: tenant id and document id are required", appErr.ErrInvalid)
	}
	fields := map[string]interface{}{}
	if patch.Title != nil {
		fields["title"] = *patch.Title
	}
	if patch.Description != nil {
		fields["description"] = *patch.Description
	}
	if patch.BotConfig != nil {
		fields["bot_config"] = *patch.BotConfig
	}
	if patch.IsActive != nil {
		fields["is_active"] = *patch.IsActive
	}
	if len(fields) == 0 {
		return fmt.Errorf("%w: no fields to update", appErr.ErrInvalid)
	}
	fields["mtime"] = timeutil.NowUnix()
	affected, err := s.store.UpdateFieldsByDocument(ctx, tenantID, documentID, fields)
	if err != nil {
		return fmt.Errorf("%w: update metadata: %v", appErr.ErrStore, err)
	}
	if affected == 0 {
		return fmt.Errorf("%w: document %s", appErr.ErrNotFound, documentID)
	}
	return nil
}

// UpdateStatus moves the document to the given processing status; the
// is_processed flag follows automatically (true only for completed).
func (s *DocumentService) UpdateStatus(ctx context.Context, tenantID, documentID, status string) error {
	if tenantID == "" || documentID == "" {
		return fmt.Errorf("%w: tenant id and document id are required", appErr.ErrInvalid)
	}
	switch status {
	case model.ProcessingStatusPending, model.ProcessingStatusProcessing,
		model.ProcessingStatusCompleted, model.ProcessingStatusFailed:
	default:
		return fmt.Errorf("%w: unknown processing status: %s", appErr.ErrInvalid, status)
	}
	fields := map[string]interface{}{
		"processing_status": status,
		"is_processed":      status == model.ProcessingStatusCompleted,
		"mtime":             timeutil.NowUnix(),
	}
	affected, err := s.store.UpdateFieldsByDocument(ctx, tenantID, documentID, fields)
	if err != nil {
		return fmt.Errorf("%w: update status: %v", appErr.ErrStore, err)
	}
	if affected == 0 {
		return fmt.Errorf("%w: document %s", appErr.ErrNotFound, documentID)
	}
	return nil
}

// Delete removes every chunk of the document, then best-effort deletes the
// backing blobs. Chunk removal is authoritative: blob failures land in the
// orphan ledger and do not fail the call.
func (s *DocumentService) Delete(ctx context.Context, tenantID, documentID string) (*model.DeleteResult, error) {
	if tenantID == "" || documentID == "" {
		return nil, fmt.Errorf("%w: tenant id and document id are required", appErr.ErrInvalid)
	}
	records, err := s.store.ListByDocument(ctx, tenantID, documentID)
	if err != nil {
		return nil, fmt.Errorf("%w: list chunks: %v", appErr.ErrStore, err)
	}
	if len(records) == 0 {
		return nil, fmt.Errorf("%w: document %s", appErr.ErrNotFound, documentID)
	}
	blobRefs := make(map[string]struct{})
	for i := range records {
		if records[i].BlobRef != "" {
			blobRefs[records[i].BlobRef] = struct{}{}
		}
	}

	deleted, err := s.store.DeleteByDocument(ctx, tenantID, documentID)
	if err != nil {
		return nil, fmt.Errorf("%w: delete chunks: %v", appErr.ErrStore, err)
	}

	result := &model.DeleteResult{
		DocumentID:    documentID,
		ChunksDeleted: int(deleted),
	}
	for ref := range blobRefs {
		if err := s.blobs.Delete(ctx, ref); err != nil {
			result.BlobsFailed++
			logutil.GetLogger(ctx).Warn("blob delete failed",
				zap.String("tenant_id", tenantID),
				zap.String("blob_ref", ref),
				zap.Error(err),
			)
			if s.orphans != nil {
				_ = s.orphans.Add(ctx, &model.OrphanBlob{
					ID:       newID(),
					TenantID: tenantID,
					BlobRef:  ref,
					Reason:   "document deleted",
					Ctime:    timeutil.NowUnix(),
				})
			}
			continue
		}
		result.BlobsDeleted++
	}
	return result, nil
}

func (s *DocumentService) TenantStats(ctx context.Context, tenantID string) (*model.TenantStats, error) {
	if tenantID == "" {
		return nil, fmt.Errorf("%w: tenant id is required", appErr.ErrInvalid)
	}
	count, err := s.store.CountByTenant(ctx, tenantID)
	if err != nil {
		return nil, fmt.Errorf("%w: count chunks: %v", appErr.ErrStore, err)
	}
	return &model.TenantStats{TotalChunks: count}, nil
}

// BulkDelete deletes each document independently; one failure never blocks
// the rest.
func (s *DocumentService) BulkDelete(ctx context.Context, tenantID string, documentIDs []string) (*model.BulkDeleteResult, error) {
	if tenantID == "" {
		return nil, fmt.Errorf("%w: tenant id is required", appErr.ErrInvalid)
	}
	if len(documentIDs) == 0 {
		return nil, fmt.Errorf("%w: at least one document id is required", appErr.ErrInvalid)
	}
	result := &model.BulkDeleteResult{Total: len(documentIDs)}
	for _, id := range documentIDs {
		res, err := s.Delete(ctx, tenantID, id)
		if err != nil {
			result.ErrorCount++
			logutil.GetLogger(ctx).Warn("bulk delete item failed",
				zap.String("tenant_id", tenantID),
				zap.String("document_id", id),
				zap.Error(err),
			)
			continue
		}
		result.SuccessCount++
		result.Results = append(result.Results, *res)
	}
	return result, nil
}
