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

// PostgresRepository implements Repository over a dbx.DBTX (*sql.DB or *sql.Tx).
type PostgresRepository[P any] struct {
	db   dbx.DBTX
	kind models.Kind[P]

	selectCols  string
	getSQL      string
	insertSQL   string
	updateSQL   string
	selectAll   string
	selectSince string
}

// NewPostgresRepository constructs a repository for kind bound to the given DBTX.
func NewPostgresRepository[P any](db dbx.DBTX, kind models.Kind[P]) *PostgresRepository[P] {
	r := &PostgresRepository[P]{db: db, kind: kind}
	r.buildQueries()
	return r
}

func (r *PostgresRepository[P]) buildQueries() {
	t := r.kind.Table
	payload := r.kind.Columns

	cols := append([]string{"id", "user_id", "device_id"}, payload...)
	cols = append(cols, "checksum", "created_at", "updated_at", "is_deleted")
	r.selectCols = strings.Join(cols, ", ")

	r.getSQL = dbx.Rebind(dbx.Dollar, fmt.Sprintf(
		`SELECT %s FROM %s WHERE id = ? AND user_id = ?`, r.selectCols, t))

	r.insertSQL = dbx.Rebind(dbx.Dollar, fmt.Sprintf(
		`INSERT INTO %s (%s, received_at) VALUES (%s) ON CONFLICT (id) DO NOTHING`, t, r.selectCols, dbx.Placeholders(len(cols)+1)))

	set := []string{"device_id = ?"}
	for _, c := range payload {
		set = append(set, c+" = ?")
	}
	set = append(set, "checksum = ?", "updated_at = ?", "is_deleted = ?", "received_at = ?")
	r.updateSQL = dbx.Rebind(dbx.Dollar, fmt.Sprintf(
		`UPDATE %s SET %s WHERE id = ? AND user_id = ? AND updated_at < ?`, t, strings.Join(set, ", ")))

	r.selectAll = dbx.Rebind(dbx.Dollar, fmt.Sprintf(
		`SELECT %s FROM %s WHERE user_id = ? ORDER BY updated_at DESC, id`, r.selectCols, t))
	r.selectSince = dbx.Rebind(dbx.Dollar, fmt.Sprintf(
		`SELECT %s FROM %s WHERE user_id = ? AND (updated_at > ? OR received_at > ?) ORDER BY updated_at DESC, id`, r.selectCols, t))
}

type scanner interface {
	Scan(dest ...any) error
}

func (r *PostgresRepository[P]) scan(row scanner) (*models.Record[P], error) {
	rec := &models.Record[P]{}
	dest := []any{&rec.ID, &rec.UserID, &rec.DeviceID}
	dest = append(dest, r.kind.Targets(&rec.Payload)...)
	dest = append(dest, &rec.Checksum, &rec.CreatedAt, &rec.UpdatedAt, &rec.IsDeleted)
	if err := row.Scan(dest...); err != nil {
		return nil, err
	}
	rec.CreatedAt = models.Truncate(rec.CreatedAt)
	rec.UpdatedAt = models.Truncate(rec.UpdatedAt)
	return rec, nil
}

func (r *PostgresRepository[P]) Get(ctx context.Context, userID, id string) (*models.Record[P], error) {
	rec, err := r.scan(r.db.QueryRowContext(ctx, r.getSQL, id, userID))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, common.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}
	return rec, nil
}

func (r *PostgresRepository[P]) Insert(ctx context.Context, rec *models.Record[P]) (bool, error) {
	args := []any{rec.ID, rec.UserID, rec.DeviceID}
	args = append(args, r.kind.Values(rec.Payload)...)
	args = append(args, rec.Checksum, rec.CreatedAt, rec.UpdatedAt, rec.IsDeleted, rec.ReceivedAt)

	res, err := r.db.ExecContext(ctx, r.insertSQL, args...)
	if err != nil {
		return false, fmt.Errorf("db error: %w", err)
	}
	return singleRow(res)
}

func (r *PostgresRepository[P]) UpdateIfOlder(ctx context.Context, rec *models.Record[P]) (bool, error) {
	args := []any{rec.DeviceID}
	args = append(args, r.kind.Values(rec.Payload)...)
	args = append(args, rec.Checksum, rec.UpdatedAt, rec.IsDeleted, rec.ReceivedAt, rec.ID, rec.UserID, rec.UpdatedAt)

	res, err := r.db.ExecContext(ctx, r.updateSQL, args...)
	if err != nil {
		return false, fmt.Errorf("db error: %w", err)
	}
	return singleRow(res)
}

func singleRow(res sql.Result) (bool, error) {
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("rows affected error: %w", err)
	}
	switch n {
	case 0:
		return false, nil
	case 1:
		return true, nil
	default:
		return false, fmt.Errorf("unexpected rows affected: %d", n)
	}
}

func (r *PostgresRepository[P]) SelectUpdated(ctx context.Context, userID string, since *time.Time) ([]*models.Record[P], error) {
	var (
		rows *sql.Rows
		err  error
	)
	if since == nil {
		rows, err = r.db.QueryContext(ctx, r.selectAll, userID)
	} else {
		rows, err = r.db.QueryContext(ctx, r.selectSince, userID, *since, *since)
	}
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
