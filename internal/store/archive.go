package store

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/rcliao/hye-memory/internal/model"
)

// ArchiveAndDelete copies a record to archived_memory_records and removes it
// from the active table in one transaction.
func (s *SQLiteStore) ArchiveAndDelete(ctx context.Context, id, reason, batchID string) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return dbErr("begin archive", err)
	}
	defer tx.Rollback()

	var batch *string
	if batchID != "" {
		batch = &batchID
	}

	res, err := tx.ExecContext(ctx,
		`INSERT INTO archived_memory_records (`+recordColumns+`, archived_at, reason, batch_id)
		 SELECT `+recordColumns+`, ?, ?, ? FROM memory_records WHERE id = ?`,
		formatTime(s.clock()), reason, batch, id)
	if err != nil {
		return dbErr("archive record", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("record %s: %w", id, ErrNotFound)
	}

	if _, err := tx.ExecContext(ctx, `DELETE FROM memory_records WHERE id = ?`, id); err != nil {
		return dbErr("delete archived record", err)
	}
	if err := tx.Commit(); err != nil {
		return dbErr("commit archive", err)
	}
	return nil
}

// Archived lists archived records, newest first. limit <= 0 means 100.
func (s *SQLiteStore) Archived(ctx context.Context, limit int) ([]model.ArchivedRecord, error) {
	if limit <= 0 {
		limit = 100
	}
	rows, err := s.db.QueryContext(ctx,
		`SELECT `+recordColumns+`, archived_at, reason, batch_id
		 FROM archived_memory_records ORDER BY archived_at DESC, id LIMIT ?`, limit)
	if err != nil {
		return nil, dbErr("list archived", err)
	}
	defer rows.Close()

	var out []model.ArchivedRecord
	for rows.Next() {
		var a model.ArchivedRecord
		var archivedAt string
		var batch sql.NullString
		r := archivedScanner{rows: rows, extra: []interface{}{&archivedAt, &a.Reason, &batch}}
		a.Record, err = scanRecord(r)
		if err != nil {
			return nil, dbErr("scan archived", err)
		}
		a.ArchivedAt, _ = time.Parse(timeLayout, archivedAt)
		a.BatchID = batch.String
		out = append(out, a)
	}
	if err := rows.Err(); err != nil {
		return nil, dbErr("iterate archived", err)
	}
	return out, nil
}

// archivedScanner appends the archive columns to a record scan.
type archivedScanner struct {
	rows  *sql.Rows
	extra []interface{}
}

func (a archivedScanner) Scan(dest ...interface{}) error {
	return a.rows.Scan(append(dest, a.extra...)...)
}
