package job

import (
	"context"

	"github.com/xxxsen/common/logutil"
	"go.uber.org/zap"

	"github.com/xxxsen/kbridge/internal/filestore"
	"github.com/xxxsen/kbridge/internal/repo"
)

const orphanBatchSize = 100

// OrphanBlobCleanupJob retries blob deletions that failed inline during
// ingestion or document removal. Entries leave the ledger only once the
// store confirms the delete.
type OrphanBlobCleanupJob struct {
	repo  *repo.OrphanBlobRepo
	blobs filestore.Store
}

func NewOrphanBlobCleanupJob(repo *repo.OrphanBlobRepo, blobs filestore.Store) *OrphanBlobCleanupJob {
	return &OrphanBlobCleanupJob{repo: repo, blobs: blobs}
}

func (j *OrphanBlobCleanupJob) Name() string {
	return "orphan_blob_cleanup"
}

func (j *OrphanBlobCleanupJob) Run(ctx context.Context) error {
	if j.repo == nil || j.blobs == nil {
		return nil
	}
	items, err := j.repo.List(ctx, orphanBatchSize)
	if err != nil {
		return err
	}
	logger := logutil.GetLogger(ctx)
	for i := range items {
		item := &items[i]
		if err := j.blobs.Delete(ctx, item.BlobRef); err != nil {
			logger.Warn("orphan blob delete retry failed",
				zap.String("blob_ref", item.BlobRef),
				zap.Int("attempts", item.Attempts),
				zap.Error(err),
			)
			if err := j.repo.BumpAttempts(ctx, item.ID); err != nil {
				logger.Warn("bump orphan attempts failed", zap.String("id", item.ID), zap.Error(err))
			}
			continue
		}
		if err := j.repo.Remove(ctx, item.ID); err != nil {
			logger.Warn("remove orphan entry failed", zap.String("id", item.ID), zap.Error(err))
			continue
		}
		logger.Info("orphan blob cleaned", zap.String("blob_ref", item.BlobRef))
	}
	return nil
}
