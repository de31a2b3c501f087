package repo_test

import (
	"context"
	"fmt"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/xxxsen/kbridge/internal/model"
	appErr "github.com/xxxsen/kbridge/internal/pkg/errors"
	"github.com/xxxsen/kbridge/internal/pkg/timeutil"
	"github.com/xxxsen/kbridge/internal/repo"
	"github.com/xxxsen/kbridge/test/testutil"
)

func makeChunks(tenantID, documentID, fileName, hash string, version, count int) []*model.ChunkRecord {
	now := timeutil.NowUnix()
	out := make([]*model.ChunkRecord, 0, count)
	for i := 0; i < count; i++ {
		out = append(out, &model.ChunkRecord{
			ID:               fmt.Sprintf("%s-%d", documentID, i),
			TenantID:         tenantID,
			DocumentID:       documentID,
			ChunkIndex:       i,
			Content:          fmt.Sprintf("chunk %d of %s", i, fileName),
			Embedding:        make([]float32, 768),
			SourceType:       model.SourceTypeFile,
			Title:            fileName,
			FileName:         fileName,
			FileType:         "md",
			BlobRef:          tenantID + "/" + documentID + "/" + fileName,
			ContentHash:      hash,
			Version:          version,
			IsActive:         true,
			IsProcessed:      true,
			ProcessingStatus: model.ProcessingStatusCompleted,
			Ctime:            now,
			Mtime:            now,
		})
	}
	return out
}

func TestChunkRepoInsertAndLookup(t *testing.T) {
	db, cleanup := testutil.OpenTestDB(t)
	defer cleanup()

	chunks := repo.NewChunkRepo(db)
	ctx := context.Background()
	tenantID := "tenant-lookup"
	defer func() { _, _ = chunks.DeleteByDocument(ctx, tenantID, "doc-1") }()

	require.NoError(t, chunks.InsertMany(ctx, makeChunks(tenantID, "doc-1", "notes.md", "hash-a", 1, 3)))

	rows, err := chunks.ListByDocument(ctx, tenantID, "doc-1")
	require.NoError(t, err)
	require.Len(t, rows, 3)
	for i, row := range rows {
		require.Equal(t, i, row.ChunkIndex)
		require.Len(t, row.Embedding, 768)
	}

	active, err := chunks.GetActiveByFileName(ctx, tenantID, "notes.md")
	require.NoError(t, err)
	require.Equal(t, "doc-1", active.DocumentID)
	require.Equal(t, 0, active.ChunkIndex)

	byHash, err := chunks.GetActiveByFileHash(ctx, tenantID, "notes.md", "hash-a")
	require.NoError(t, err)
	require.Equal(t, "doc-1", byHash.DocumentID)

	_, err = chunks.GetActiveByFileHash(ctx, tenantID, "notes.md", "hash-other")
	require.ErrorIs(t, err, appErr.ErrNotFound)

	count, err := chunks.CountByDocument(ctx, tenantID, "doc-1")
	require.NoError(t, err)
	require.Equal(t, 3, count)
}

func TestChunkRepoTenantIsolation(t *testing.T) {
	db, cleanup := testutil.OpenTestDB(t)
	defer cleanup()

	chunks := repo.NewChunkRepo(db)
	ctx := context.Background()
	defer func() { _, _ = chunks.DeleteByDocument(ctx, "tenant-a", "doc-iso") }()

	require.NoError(t, chunks.InsertMany(ctx, makeChunks("tenant-a", "doc-iso", "shared.md", "hash-a", 1, 1)))

	_, err := chunks.GetActiveByFileName(ctx, "tenant-b", "shared.md")
	require.ErrorIs(t, err, appErr.ErrNotFound)

	rows, err := chunks.ListByDocument(ctx, "tenant-b", "doc-iso")
	require.NoError(t, err)
	require.Empty(t, rows)
}

func TestChunkRepoDeactivateAndHistory(t *testing.T) {
	db, cleanup := testutil.OpenTestDB(t)
	defer cleanup()

	chunks := repo.NewChunkRepo(db)
	ctx := context.Background()
	tenantID := "tenant-versions"
	defer func() {
		_, _ = chunks.DeleteByDocument(ctx, tenantID, "doc-v1")
		_, _ = chunks.DeleteByDocument(ctx, tenantID, "doc-v2")
	}()

	require.NoError(t, chunks.InsertMany(ctx, makeChunks(tenantID, "doc-v1", "report.md", "hash-1", 1, 2)))
	now := timeutil.NowUnix()
	require.NoError(t, chunks.DeactivateDocument(ctx, tenantID, "doc-v1", "doc-v2", model.ReplaceReasonContentChanged, now))
	require.NoError(t, chunks.InsertMany(ctx, makeChunks(tenantID, "doc-v2", "report.md", "hash-2", 2, 2)))

	active, err := chunks.GetActiveByFileName(ctx, tenantID, "report.md")
	require.NoError(t, err)
	require.Equal(t, "doc-v2", active.DocumentID)
	require.Equal(t, 2, active.Version)

	all, err := chunks.ListByFileName(ctx, tenantID, "report.md", true)
	require.NoError(t, err)
	require.Len(t, all, 4)
	require.Equal(t, 2, all[0].Version)

	old := all[2]
	require.False(t, old.IsActive)
	require.Equal(t, "doc-v2", old.ReplacedByID)
	require.Equal(t, model.ReplaceReasonContentChanged, old.ReplacedWhy)

	activeOnly, err := chunks.ListByFileName(ctx, tenantID, "report.md", false)
	require.NoError(t, err)
	require.Len(t, activeOnly, 2)
}

func TestChunkRepoUpdateFields(t *testing.T) {
	db, cleanup := testutil.OpenTestDB(t)
	defer cleanup()

	chunks := repo.NewChunkRepo(db)
	ctx := context.Background()
	tenantID := "tenant-update"
	defer func() { _, _ = chunks.DeleteByDocument(ctx, tenantID, "doc-up") }()

	require.NoError(t, chunks.InsertMany(ctx, makeChunks(tenantID, "doc-up", "meta.md", "hash-m", 1, 2)))

	affected, err := chunks.UpdateFieldsByDocument(ctx, tenantID, "doc-up", map[string]interface{}{
		"title":       "renamed",
		"description": "a description",
	})
	require.NoError(t, err)
	require.EqualValues(t, 2, affected)

	rows, err := chunks.ListByDocument(ctx, tenantID, "doc-up")
	require.NoError(t, err)
	for _, row := range rows {
		require.Equal(t, "renamed", row.Title)
		require.Equal(t, "a description", row.Description)
	}

	affected, err = chunks.UpdateFieldsByDocument(ctx, tenantID, "doc-missing", map[string]interface{}{"title": "x"})
	require.NoError(t, err)
	require.Zero(t, affected)
}

func TestChunkRepoSearchLexical(t *testing.T) {
	db, cleanup := testutil.OpenTestDB(t)
	defer cleanup()

	chunks := repo.NewChunkRepo(db)
	ctx := context.Background()
	tenantID := "tenant-lexical"
	defer func() {
		_, _ = chunks.DeleteByDocument(ctx, tenantID, "doc-lex-1")
		_, _ = chunks.DeleteByDocument(ctx, tenantID, "doc-lex-2")
	}()

	batch := makeChunks(tenantID, "doc-lex-1", "kubernetes.md", "hash-k", 1, 1)
	batch[0].Content = "scaling workloads with Kubernetes operators"
	require.NoError(t, chunks.InsertMany(ctx, batch))
	other := makeChunks(tenantID, "doc-lex-2", "cooking.md", "hash-c", 1, 1)
	other[0].Content = "slow braised short ribs"
	require.NoError(t, chunks.InsertMany(ctx, other))

	rows, err := chunks.SearchLexical(ctx, tenantID, "kubernetes", model.SearchFilters{}, 10)
	require.NoError(t, err)
	require.Len(t, rows, 1)
	require.Equal(t, "doc-lex-1", rows[0].DocumentID)

	rows, err = chunks.SearchLexical(ctx, tenantID, "kubernetes", model.SearchFilters{FileType: "pdf"}, 10)
	require.NoError(t, err)
	require.Empty(t, rows)
}
