package service

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/xxxsen/kbridge/internal/model"
	appErr "github.com/xxxsen/kbridge/internal/pkg/errors"
)

func seedActiveDocument(store *fakeChunkStore, tenantID, documentID, fileName, hash string, version int) {
	store.records = append(store.records, model.ChunkRecord{
		ID:               documentID + "-0",
		TenantID:         tenantID,
		DocumentID:       documentID,
		ChunkIndex:       0,
		Content:          "seed content",
		FileName:         fileName,
		SourceType:       model.SourceTypeFile,
		BlobRef:          tenantID + "/" + documentID + "/" + fileName,
		ContentHash:      hash,
		Version:          version,
		IsActive:         true,
		IsProcessed:      true,
		ProcessingStatus: model.ProcessingStatusCompleted,
	})
}

func TestResolveBrandNewFile(t *testing.T) {
	store := newFakeChunkStore()
	resolver := NewVersionResolver(store)

	res, err := resolver.Resolve(context.Background(), "t1", "notes.md", "hash-a")
	require.NoError(t, err)
	require.Equal(t, ResolveNew, res.Action)
	require.Equal(t, 1, res.Version)
}

func TestResolveIdenticalContentSkips(t *testing.T) {
	store := newFakeChunkStore()
	seedActiveDocument(store, "t1", "doc1", "notes.md", "hash-a", 3)
	resolver := NewVersionResolver(store)

	res, err := resolver.Resolve(context.Background(), "t1", "notes.md", "hash-a")
	require.NoError(t, err)
	require.Equal(t, ResolveSkip, res.Action)
	require.Equal(t, "doc1", res.ExistingDocumentID)
	require.Equal(t, 3, res.Version)
}

func TestResolveChangedContentReplaces(t *testing.T) {
	store := newFakeChunkStore()
	seedActiveDocument(store, "t1", "doc1", "notes.md", "hash-a", 2)
	resolver := NewVersionResolver(store)

	res, err := resolver.Resolve(context.Background(), "t1", "notes.md", "hash-b")
	require.NoError(t, err)
	require.Equal(t, ResolveReplace, res.Action)
	require.Equal(t, 3, res.Version)
	require.Equal(t, "doc1", res.PrevDocumentID)
	require.Equal(t, "t1/doc1/notes.md", res.PrevBlobRef)
}

func TestResolveTenantsDoNotInterfere(t *testing.T) {
	store := newFakeChunkStore()
	seedActiveDocument(store, "t1", "doc1", "notes.md", "hash-a", 1)
	resolver := NewVersionResolver(store)

	res, err := resolver.Resolve(context.Background(), "t2", "notes.md", "hash-a")
	require.NoError(t, err)
	require.Equal(t, ResolveNew, res.Action)
	require.Equal(t, 1, res.Version)
}

func TestResolveStoreFailureIsSystemic(t *testing.T) {
	store := newFakeChunkStore()
	store.lookupErr = errors.New("connection refused")
	resolver := NewVersionResolver(store)

	_, err := resolver.Resolve(context.Background(), "t1", "notes.md", "hash-a")
	require.Error(t, err)
	require.True(t, appErr.IsStore(err))
}
