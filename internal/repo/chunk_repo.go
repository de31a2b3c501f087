package repo

import (
	"context"
	"database/sql"

	"github.com/didi/gendry/builder"
	"github.com/pgvector/pgvector-go"

	"github.com/xxxsen/kbridge/internal/model"
	"github.com/xxxsen/kbridge/internal/pkg/dbutil"
	appErr "github.com/xxxsen/kbridge/internal/pkg/errors"
)

var chunkColumns = []string{
	"id", "tenant_id", "document_id", "chunk_index", "content", "embedding",
	"source_type", "title", "uri", "file_name", "file_type", "blob_ref",
	"description", "bot_config",
	"content_hash", "version", "is_active", "replaced_at", "replaced_reason", "replaced_by",
	"is_processed", "processing_status", "ctime", "mtime",
}

type ChunkRepo struct {
	db *sql.DB
}

func NewChunkRepo(db *sql.DB) *ChunkRepo {
	return &ChunkRepo{db: db}
}

func scanChunk(rows *sql.Rows) (*model.ChunkRecord, error) {
	var rec model.ChunkRecord
	var emb pgvector.Vector
	if err := rows.Scan(
		&rec.ID, &rec.TenantID, &rec.DocumentID, &rec.ChunkIndex, &rec.Content, &emb,
		&rec.SourceType, &rec.Title, &rec.URI, &rec.FileName, &rec.FileType, &rec.BlobRef,
		&rec.Description, &rec.BotConfig,
		&rec.ContentHash, &rec.Version, &rec.IsActive, &rec.ReplacedAt, &rec.ReplacedWhy, &rec.ReplacedByID,
		&rec.IsProcessed, &rec.ProcessingStatus, &rec.Ctime, &rec.Mtime,
	); err != nil {
		return nil, err
	}
	rec.Embedding = emb.Slice()
	return &rec, nil
}

func (r *ChunkRepo) queryChunks(ctx context.Context, where map[string]interface{}) ([]model.ChunkRecord, error) {
	sqlStr, args, err := builder.BuildSelect("chunk_records", where, chunkColumns)
	if err != nil {
		return nil, err
	}
	sqlStr, args = dbutil.Finalize(sqlStr, args)
	rows, err := r.db.QueryContext(ctx, sqlStr, args...)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()
	records := make([]model.ChunkRecord, 0)
	for rows.Next() {
		rec, err := scanChunk(rows)
		if err != nil {
			return nil, err
		}
		records = append(records, *rec)
	}
	return records, rows.Err()
}

func (r *ChunkRepo) queryOneChunk(ctx context.Context, where map[string]interface{}) (*model.ChunkRecord, error) {
	records, err := r.queryChunks(ctx, where)
	if err != nil {
		return nil, err
	}
	if len(records) == 0 {
		return nil, appErr.ErrNotFound
	}
	return &records[0], nil
}

func (r *ChunkRepo) InsertMany(ctx context.Context, records []*model.ChunkRecord) error {
	if len(records) == 0 {
		return nil
	}
	data := make([]map[string]interface{}, 0, len(records))
	for _, rec := range records {
		data = append(data, map[string]interface{}{
			"id":                rec.ID,
			"tenant_id":         rec.TenantID,
			"document_id":       rec.DocumentID,
			"chunk_index":       rec.ChunkIndex,
			"content":           rec.Content,
			"embedding":         pgvector.NewVector(rec.Embedding),
			"source_type":       rec.SourceType,
			"title":             rec.Title,
			"uri":               rec.URI,
			"file_name":         rec.FileName,
			"file_type":         rec.FileType,
			"blob_ref":          rec.BlobRef,
			"description":       rec.Description,
			"bot_config":        rec.BotConfig,
			"content_hash":      rec.ContentHash,
			"version":           rec.Version,
			"is_active":         rec.IsActive,
			"replaced_at":       rec.ReplacedAt,
			"replaced_reason":   rec.ReplacedWhy,
			"replaced_by":       rec.ReplacedByID,
			"is_processed":      rec.IsProcessed,
			"processing_status": rec.ProcessingStatus,
			"ctime":             rec.Ctime,
			"mtime":             rec.Mtime,
		})
	}
	sqlStr, args, err := builder.BuildInsert("chunk_records", data)
	if err != nil {
		return err
	}
	sqlStr, args = dbutil.Finalize(sqlStr, args)
	if _, err = r.db.ExecContext(ctx, sqlStr, args...); err != nil {
		// unique (tenant_id, document_id, chunk_index): concurrent ingests
		// for the same lineage can collide here
		if dbutil.IsConflict(err) {
			return appErr.ErrConflict
		}
		return err
	}
	return nil
}

func (r *ChunkRepo) ListByDocument(ctx context.Context, tenantID, documentID string) ([]model.ChunkRecord, error) {
	return r.queryChunks(ctx, map[string]interface{}{
		"tenant_id":   tenantID,
		"document_id": documentID,
		"_orderby":    "chunk_index asc",
	})
}

func (r *ChunkRepo) GetFirstChunk(ctx context.Context, tenantID, documentID string) (*model.ChunkRecord, error) {
	return r.queryOneChunk(ctx, map[string]interface{}{
		"tenant_id":   tenantID,
		"document_id": documentID,
		"_orderby":    "chunk_index asc",
		"_limit":      []uint{0, 1},
	})
}

// GetActiveByFileName returns the first chunk of the active document for
// file_name, or ErrNotFound when no active version exists.
func (r *ChunkRepo) GetActiveByFileName(ctx context.Context, tenantID, fileName string) (*model.ChunkRecord, error) {
	return r.queryOneChunk(ctx, map[string]interface{}{
		"tenant_id":   tenantID,
		"file_name":   fileName,
		"is_active":   true,
		"chunk_index": 0,
		"_orderby":    "version desc",
		"_limit":      []uint{0, 1},
	})
}

func (r *ChunkRepo) GetActiveByFileHash(ctx context.Context, tenantID, fileName, contentHash string) (*model.ChunkRecord, error) {
	return r.queryOneChunk(ctx, map[string]interface{}{
		"tenant_id":    tenantID,
		"file_name":    fileName,
		"content_hash": contentHash,
		"is_active":    true,
		"chunk_index":  0,
		"_orderby":     "version desc",
		"_limit":       []uint{0, 1},
	})
}

// DeactivateDocument marks every chunk of the document as superseded.
func (r *ChunkRepo) DeactivateDocument(ctx context.Context, tenantID, documentID, replacedBy, reason string, now int64) error {
	where := map[string]interface{}{
		"tenant_id":   tenantID,
		"document_id": documentID,
	}
	update := map[string]interface{}{
		"is_active":       false,
		"replaced_at":     now,
		"replaced_reason": reason,
		"replaced_by":     replacedBy,
		"mtime":           now,
	}
	sqlStr, args, err := builder.BuildUpdate("chunk_records", where, update)
	if err != nil {
		return err
	}
	sqlStr, args = dbutil.Finalize(sqlStr, args)
	_, err = r.db.ExecContext(ctx, sqlStr, args...)
	return err
}

// UpdateFieldsByDocument patches the given columns across all chunks of the
// document. Returns the number of affected rows.
func (r *ChunkRepo) UpdateFieldsByDocument(ctx context.Context, tenantID, documentID string, fields map[string]interface{}) (int64, error) {
	if len(fields) == 0 {
		return 0, nil
	}
	where := map[string]interface{}{
		"tenant_id":   tenantID,
		"document_id": documentID,
	}
	sqlStr, args, err := builder.BuildUpdate("chunk_records", where, fields)
	if err != nil {
		return 0, err
	}
	sqlStr, args = dbutil.Finalize(sqlStr, args)
	result, err := r.db.ExecContext(ctx, sqlStr, args...)
	if err != nil {
		return 0, err
	}
	return result.RowsAffected()
}

func (r *ChunkRepo) DeleteByDocument(ctx context.Context, tenantID, documentID string) (int64, error) {
	where := map[string]interface{}{
		"tenant_id":   tenantID,
		"document_id": documentID,
	}
	sqlStr, args, err := builder.BuildDelete("chunk_records", where)
	if err != nil {
		return 0, err
	}
	sqlStr, args = dbutil.Finalize(sqlStr, args)
	result, err := r.db.ExecContext(ctx, sqlStr, args...)
	if err != nil {
		return 0, err
	}
	return result.RowsAffected()
}

func (r *ChunkRepo) ListByFileName(ctx context.Context, tenantID, fileName string, includeInactive bool) ([]model.ChunkRecord, error) {
	where := map[string]interface{}{
		"tenant_id": tenantID,
		"file_name": fileName,
		"_orderby":  "version desc, chunk_index asc",
	}
	if !includeInactive {
		where["is_active"] = true
	}
	return r.queryChunks(ctx, where)
}

// ListCandidates returns the tenant's most recent processed chunks, bounding
// the working set the vector and keyword scans operate on.
func (r *ChunkRepo) ListCandidates(ctx context.Context, tenantID string, limit int) ([]model.ChunkRecord, error) {
	where := map[string]interface{}{
		"tenant_id":         tenantID,
		"is_active":         true,
		"processing_status": model.ProcessingStatusCompleted,
		"_orderby":          "mtime desc, chunk_index asc",
	}
	if limit > 0 {
		where["_limit"] = []uint{0, uint(limit)}
	}
	return r.queryChunks(ctx, where)
}

// SearchLexical matches query text against chunk content and title and
// applies the structured filters. Rows come back recency-ordered; relevance
// ranking happens in the search service.
func (r *ChunkRepo) SearchLexical(ctx context.Context, tenantID, query string, filters model.SearchFilters, limit int) ([]model.ChunkRecord, error) {
	like := "%" + query + "%"
	where := map[string]interface{}{
		"tenant_id": tenantID,
		"is_active": true,
		"_orderby":  "mtime desc",
	}
	where["_custom_match"] = builder.Custom("(content ILIKE ? OR title ILIKE ?)", like, like)
	if filters.SourceType != "" {
		where["source_type"] = filters.SourceType
	}
	if filters.FileType != "" {
		where["file_type"] = filters.FileType
	}
	if filters.ProcessedAfter > 0 {
		where["mtime >="] = filters.ProcessedAfter
	}
	if filters.ProcessedUntil > 0 {
		where["mtime <="] = filters.ProcessedUntil
	}
	if limit > 0 {
		where["_limit"] = []uint{0, uint(limit)}
	}
	return r.queryChunks(ctx, where)
}

func (r *ChunkRepo) CountByDocument(ctx context.Context, tenantID, documentID string) (int, error) {
	sqlStr, args := dbutil.Finalize(
		"SELECT COUNT(1) FROM chunk_records WHERE tenant_id = ? AND document_id = ?",
		[]interface{}{tenantID, documentID},
	)
	row := r.db.QueryRowContext(ctx, sqlStr, args...)
	var count int
	if err := row.Scan(&count); err != nil {
		return 0, err
	}
	return count, nil
}

func (r *ChunkRepo) CountByTenant(ctx context.Context, tenantID string) (int, error) {
	sqlStr, args := dbutil.Finalize(
		"SELECT COUNT(1) FROM chunk_records WHERE tenant_id = ?",
		[]interface{}{tenantID},
	)
	row := r.db.QueryRowContext(ctx, sqlStr, args...)
	var count int
	if err := row.Scan(&count); err != nil {
		return 0, err
	}
	return count, nil
}
