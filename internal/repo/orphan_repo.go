package repo

import (
	"context"
	"database/sql"

	"github.com/didi/gendry/builder"

	"github.com/xxxsen/kbridge/internal/model"
	"github.com/xxxsen/kbridge/internal/pkg/dbutil"
)

type OrphanBlobRepo struct {
	db *sql.DB
}

func NewOrphanBlobRepo(db *sql.DB) *OrphanBlobRepo {
	return &OrphanBlobRepo{db: db}
}

func (r *OrphanBlobRepo) Add(ctx context.Context, item *model.OrphanBlob) error {
	data := map[string]interface{}{
		"id":        item.ID,
		"tenant_id": item.TenantID,
		"blob_ref":  item.BlobRef,
		"reason":    item.Reason,
		"attempts":  item.Attempts,
		"ctime":     item.Ctime,
	}
	sqlStr, args, err := builder.BuildInsert("orphan_blobs", []map[string]interface{}{data})
	if err != nil {
		return err
	}
	sqlStr, args = dbutil.Finalize(sqlStr, args)
	_, err = r.db.ExecContext(ctx, sqlStr, args...)
	return err
}

func (r *OrphanBlobRepo) List(ctx context.Context, limit int) ([]model.OrphanBlob, error) {
	where := map[string]interface{}{
		"_orderby": "ctime asc",
	}
	if limit > 0 {
		where["_limit"] = []uint{0, uint(limit)}
	}
	sqlStr, args, err := builder.BuildSelect("orphan_blobs", where, []string{"id", "tenant_id", "blob_ref", "reason", "attempts", "ctime"})
	if err != nil {
		return nil, err
	}
	sqlStr, args = dbutil.Finalize(sqlStr, args)
	rows, err := r.db.QueryContext(ctx, sqlStr, args...)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()
	items := make([]model.OrphanBlob, 0)
	for rows.Next() {
		var item model.OrphanBlob
		if err := rows.Scan(&item.ID, &item.TenantID, &item.BlobRef, &item.Reason, &item.Attempts, &item.Ctime); err != nil {
			return nil, err
		}
		items = append(items, item)
	}
	return items, rows.Err()
}

func (r *OrphanBlobRepo) Remove(ctx context.Context, id string) error {
	sqlStr, args, err := builder.BuildDelete("orphan_blobs", map[string]interface{}{"id": id})
	if err != nil {
		return err
	}
	sqlStr, args = dbutil.Finalize(sqlStr, args)
	_, err = r.db.ExecContext(ctx, sqlStr, args...)
	return err
}

func (r *OrphanBlobRepo) BumpAttempts(ctx context.Context, id string) error {
	sqlStr, args := dbutil.Finalize(
		"UPDATE orphan_blobs SET attempts = attempts + 1 WHERE id = ?",
		[]interface{}{id},
	)
	_, err := r.db.ExecContext(ctx, sqlStr, args...)
	return err
}
