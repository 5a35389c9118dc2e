package records

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/dmitrijs2005/daybook/internal/common"
	"github.com/dmitrijs2005/daybook/internal/dbx"
	"github.com/dmitrijs2005/daybook/internal/models"
)

// SQLiteRepository implements Repository for one kind using a DBTX
// (either *sql.DB or *sql.Tx). Timestamps are stored as unix milliseconds.
type SQLiteRepository[P any] struct {
	db   dbx.DBTX
	kind models.Kind[P]
	now  func() time.Time

	selectCols string
	insertSQL  string
	saveSQL    string
	importSQL  string
}

// NewSQLiteRepository returns a repository for kind bound to the given DBTX.
func NewSQLiteRepository[P any](db dbx.DBTX, kind models.Kind[P]) *SQLiteRepository[P] {
	r := &SQLiteRepository[P]{db: db, kind: kind, now: models.Now}
	r.buildQueries()
	return r
}

// WithClock replaces the time source. Used by tests.
func (r *SQLiteRepository[P]) WithClock(now func() time.Time) *SQLiteRepository[P] {
	r.now = now
	return r
}

func (r *SQLiteRepository[P]) buildQueries() {
	payload := r.kind.Columns
	t := r.kind.Table

	cols := append([]string{"id", "user_id", "device_id"}, payload...)
	cols = append(cols, "checksum", "created_at", "updated_at", "is_deleted", "sync_status")
	r.selectCols = strings.Join(cols, ", ")

	r.insertSQL = fmt.Sprintf(`INSERT INTO %s (%s) VALUES (%s)`, t, r.selectCols, dbx.Placeholders(len(cols)))

	set := make([]string, 0, len(payload)+5)
	set = append(set, "user_id = excluded.user_id", "device_id = excluded.device_id")
	for _, c := range payload {
		set = append(set, fmt.Sprintf("%s = excluded.%s", c, c))
	}
	set = append(set, "checksum = excluded.checksum", "is_deleted = excluded.is_deleted")

	r.saveSQL = r.insertSQL + fmt.Sprintf(`
		ON CONFLICT(id) DO UPDATE SET %s,
			updated_at = MAX(excluded.updated_at, %s.updated_at + 1),
			sync_status = excluded.sync_status
		RETURNING created_at, updated_at`, strings.Join(set, ", "), t)

	// A pending local edit survives only when it is strictly newer.
	r.importSQL = r.insertSQL + fmt.Sprintf(`
		ON CONFLICT(id) DO UPDATE SET %s,
			created_at = excluded.created_at,
			updated_at = excluded.updated_at,
			sync_status = excluded.sync_status
		WHERE %s.sync_status <> 'pending' OR %s.updated_at <= excluded.updated_at`,
		strings.Join(set, ", "), t, t)
}

func (r *SQLiteRepository[P]) args(rec *models.Record[P], status models.SyncStatus) []any {
	args := []any{rec.ID, rec.UserID, rec.DeviceID}
	args = append(args, r.kind.Values(rec.Payload)...)
	return append(args, rec.Checksum, rec.CreatedAt.UnixMilli(), rec.UpdatedAt.UnixMilli(), rec.IsDeleted, string(status))
}

func (r *SQLiteRepository[P]) Save(ctx context.Context, rec *models.Record[P]) (*models.Record[P], error) {
	if rec.ID == "" {
		return nil, fmt.Errorf("failed to save %s record: empty id", r.kind.Name)
	}

	sum, err := models.Checksum(rec.Payload)
	if err != nil {
		return nil, fmt.Errorf("failed to save %s record %s: %w", r.kind.Name, rec.ID, err)
	}

	out := *rec
	out.Checksum = sum
	out.SyncStatus = models.StatusPending
	out.UpdatedAt = models.NextUpdatedAt(rec.UpdatedAt, r.now())
	if out.CreatedAt.IsZero() {
		out.CreatedAt = out.UpdatedAt
	}

	var createdMs, updatedMs int64
	err = r.db.QueryRowContext(ctx, r.saveSQL, r.args(&out, models.StatusPending)...).Scan(&createdMs, &updatedMs)
	if err != nil {
		return nil, fmt.Errorf("failed to save %s record %s: %w", r.kind.Name, rec.ID, err)
	}
	out.CreatedAt = time.UnixMilli(createdMs).UTC()
	out.UpdatedAt = time.UnixMilli(updatedMs).UTC()
	return &out, nil
}

type scanner interface {
	Scan(dest ...any) error
}

func (r *SQLiteRepository[P]) scan(row scanner) (*models.Record[P], error) {
	rec := &models.Record[P]{}
	var createdMs, updatedMs int64
	var status string

	dest := []any{&rec.ID, &rec.UserID, &rec.DeviceID}
	dest = append(dest, r.kind.Targets(&rec.Payload)...)
	dest = append(dest, &rec.Checksum, &createdMs, &updatedMs, &rec.IsDeleted, &status)

	if err := row.Scan(dest...); err != nil {
		return nil, err
	}
	rec.CreatedAt = time.UnixMilli(createdMs).UTC()
	rec.UpdatedAt = time.UnixMilli(updatedMs).UTC()
	rec.SyncStatus = models.SyncStatus(status)
	return rec, nil
}

func (r *SQLiteRepository[P]) Get(ctx context.Context, id string) (*models.Record[P], error) {
	query := fmt.Sprintf(`SELECT %s FROM %s WHERE id = ?`, r.selectCols, r.kind.Table)
	rec, err := r.scan(r.db.QueryRowContext(ctx, query, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get %s record %s: %w", r.kind.Name, id, err)
	}
	return rec, nil
}

func (r *SQLiteRepository[P]) list(ctx context.Context, where, order string, args ...any) ([]*models.Record[P], error) {
	query := fmt.Sprintf(`SELECT %s FROM %s WHERE %s ORDER BY %s`, r.selectCols, r.kind.Table, where, order)
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to select %s records: %w", r.kind.Name, err)
	}
	defer rows.Close()

	var result []*models.Record[P]
	for rows.Next() {
		rec, err := r.scan(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan %s record: %w", r.kind.Name, err)
		}
		result = append(result, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate %s records: %w", r.kind.Name, err)
	}
	return result, nil
}

func (r *SQLiteRepository[P]) GetAll(ctx context.Context) ([]*models.Record[P], error) {
	return r.list(ctx, "is_deleted = 0", "updated_at DESC, id")
}

func (r *SQLiteRepository[P]) GetUnsynced(ctx context.Context) ([]*models.Record[P], error) {
	return r.list(ctx, "sync_status = ?", "updated_at ASC, id", string(models.StatusPending))
}

func (r *SQLiteRepository[P]) mark(ctx context.Context, id string, pushedAt time.Time, status models.SyncStatus) (bool, error) {
	query := fmt.Sprintf(`UPDATE %s SET sync_status = ? WHERE id = ? AND updated_at = ? AND sync_status = ?`, r.kind.Table)
	res, err := r.db.ExecContext(ctx, query, string(status), id, pushedAt.UnixMilli(), string(models.StatusPending))
	if err != nil {
		return false, fmt.Errorf("failed to mark %s record %s %s: %w", r.kind.Name, id, status, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("failed to get rows affected: %w", err)
	}
	return n == 1, nil
}

func (r *SQLiteRepository[P]) MarkSynced(ctx context.Context, id string, pushedAt time.Time) (bool, error) {
	return r.mark(ctx, id, pushedAt, models.StatusSynced)
}

func (r *SQLiteRepository[P]) MarkConflict(ctx context.Context, id string, pushedAt time.Time) (bool, error) {
	return r.mark(ctx, id, pushedAt, models.StatusConflict)
}

func (r *SQLiteRepository[P]) SoftDelete(ctx context.Context, id, deviceID string) error {
	query := fmt.Sprintf(`UPDATE %s SET is_deleted = 1, sync_status = ?, device_id = ?,
		updated_at = MAX(?, updated_at + 1) WHERE id = ?`, r.kind.Table)
	res, err := r.db.ExecContext(ctx, query, string(models.StatusPending), deviceID, r.now().UnixMilli(), id)
	if err != nil {
		return fmt.Errorf("failed to delete %s record %s: %w", r.kind.Name, id, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if n == 0 {
		return fmt.Errorf("%s record %s: %w", r.kind.Name, id, common.ErrNotFound)
	}
	return nil
}

func (r *SQLiteRepository[P]) PermanentlyDelete(ctx context.Context, ids ...string) (int64, error) {
	if len(ids) == 0 {
		return 0, nil
	}
	args := make([]any, len(ids))
	for i, id := range ids {
		args[i] = id
	}
	query := fmt.Sprintf(`DELETE FROM %s WHERE id IN (%s)`, r.kind.Table, dbx.Placeholders(len(ids)))
	res, err := r.db.ExecContext(ctx, query, args...)
	if err != nil {
		return 0, fmt.Errorf("failed to purge %s records: %w", r.kind.Name, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("failed to get rows affected: %w", err)
	}
	return n, nil
}

// Import is a single conditional upsert, so the decision and the write cannot
// interleave with a concurrent local edit.
func (r *SQLiteRepository[P]) Import(ctx context.Context, rec *models.Record[P]) (ImportOutcome, error) {
	in := *rec
	in.CreatedAt = models.Truncate(rec.CreatedAt)
	in.UpdatedAt = models.Truncate(rec.UpdatedAt)
	if in.CreatedAt.IsZero() {
		in.CreatedAt = in.UpdatedAt
	}
	if in.Checksum == "" {
		sum, err := models.Checksum(in.Payload)
		if err != nil {
			return Applied, fmt.Errorf("failed to import %s record %s: %w", r.kind.Name, rec.ID, err)
		}
		in.Checksum = sum
	}

	res, err := r.db.ExecContext(ctx, r.importSQL, r.args(&in, models.StatusSynced)...)
	if err != nil {
		return Applied, fmt.Errorf("failed to import %s record %s: %w", r.kind.Name, rec.ID, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return Applied, fmt.Errorf("failed to get rows affected: %w", err)
	}
	if n == 0 {
		return KeptLocal, nil
	}
	return Applied, nil
}

func (r *SQLiteRepository[P]) CountByStatus(ctx context.Context) (map[models.SyncStatus]int, error) {
	query := fmt.Sprintf(`SELECT sync_status, COUNT(*) FROM %s GROUP BY sync_status`, r.kind.Table)
	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to count %s records: %w", r.kind.Name, err)
	}
	defer rows.Close()

	out := make(map[models.SyncStatus]int)
	for rows.Next() {
		var status string
		var n int
		if err := rows.Scan(&status, &n); err != nil {
			return nil, fmt.Errorf("failed to scan %s count: %w", r.kind.Name, err)
		}
		out[models.SyncStatus(status)] = n
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate %s counts: %w", r.kind.Name, err)
	}
	return out, nil
}
