package service

import (
	"context"
	"fmt"
	"sort"

	"github.com/xxxsen/kbridge/internal/model"
	appErr "github.com/xxxsen/kbridge/internal/pkg/errors"
)

// HistoryService projects version lineages out of the chunk records: one
// summary per document_id, newest version first.
type HistoryService struct {
	store ChunkStore
}

func NewHistoryService(store ChunkStore) *HistoryService {
	return &HistoryService{store: store}
}

// List returns every version of the file, or only the active one when
// activeOnly is set. Unknown files yield ErrNotFound.
func (s *HistoryService) List(ctx context.Context, tenantID, fileName string, activeOnly bool) ([]model.VersionSummary, error) {
	if tenantID == "" || fileName == "" {
		return nil, fmt.Errorf("%w: tenant id and file name are required", appErr.ErrInvalid)
	}
	records, err := s.store.ListByFileName(ctx, tenantID, fileName, !activeOnly)
	if err != nil {
		return nil, fmt.Errorf("%w: list versions: %v", appErr.ErrStore, err)
	}
	if len(records) == 0 {
		return nil, fmt.Errorf("%w: file %s", appErr.ErrNotFound, fileName)
	}

	byDoc := make(map[string]*model.VersionSummary)
	order := make([]string, 0)
	for i := range records {
		rec := &records[i]
		summary, ok := byDoc[rec.DocumentID]
		if !ok {
			summary = &model.VersionSummary{
				DocumentID:     rec.DocumentID,
				FileName:       rec.FileName,
				Version:        rec.Version,
				ContentHash:    rec.ContentHash,
				ProcessingDate: rec.Ctime,
				IsActive:       rec.IsActive,
				ReplacedAt:     rec.ReplacedAt,
				ReplacedWhy:    rec.ReplacedWhy,
				ReplacedByID:   rec.ReplacedByID,
			}
			byDoc[rec.DocumentID] = summary
			order = append(order, rec.DocumentID)
		}
		summary.TotalChunks++
	}

	out := make([]model.VersionSummary, 0, len(order))
	for _, id := range order {
		out = append(out, *byDoc[id])
	}
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].Version != out[j].Version {
			return out[i].Version > out[j].Version
		}
		return out[i].ProcessingDate > out[j].ProcessingDate
	})
	return out, nil
}
