package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"math/rand"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/oklog/ulid/v2"
	_ "modernc.org/sqlite"

	"github.com/rcliao/hye-memory/internal/model"
)

// timeLayout is fixed-width UTC so stored timestamps compare lexically.
const timeLayout = "2006-01-02T15:04:05.000000000Z"

const recordColumns = `id, content_cipher, content_plain, speaker_ref, created_at, last_accessed,
	tags, media, sentiment_label, sentiment_score, context_cipher, usage_count, indexed`

// SQLiteStore implements Store, MappingTable and RetentionSource using SQLite.
type SQLiteStore struct {
	db *sql.DB

	mu      sync.Mutex
	entropy *rand.Rand
	now     func() time.Time
}

// NewSQLiteStore opens or creates a SQLite database at the given path.
func NewSQLiteStore(dbPath string) (*SQLiteStore, error) {
	dir := filepath.Dir(dbPath)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create db dir: %w", err)
	}

	db, err := sql.Open("sqlite", dbPath+"?_pragma=journal_mode(wal)&_pragma=busy_timeout(5000)")
	if err != nil {
		return nil, fmt.Errorf("open db: %w", err)
	}
	// One connection serialises writers; WAL keeps readers unblocked.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(0)

	s := &SQLiteStore{
		db:      db,
		entropy: rand.New(rand.NewSource(time.Now().UnixNano())),
		now:     time.Now,
	}

	if err := s.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrate: %w", err)
	}

	return s, nil
}

// SetClock replaces the time source used for created_at and last_accessed.
func (s *SQLiteStore) SetClock(now func() time.Time) {
	s.mu.Lock()
	s.now = now
	s.mu.Unlock()
}

func (s *SQLiteStore) clock() time.Time {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.now().UTC()
}

func (s *SQLiteStore) newID() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return ulid.MustNew(ulid.Timestamp(s.now()), s.entropy).String()
}

func (s *SQLiteStore) migrate() error {
	schema := `
	CREATE TABLE IF NOT EXISTS memory_records (
		id              TEXT PRIMARY KEY,
		content_cipher  TEXT NOT NULL,
		content_plain   TEXT NOT NULL,
		speaker_ref     TEXT NOT NULL,
		created_at      TEXT NOT NULL,
		last_accessed   TEXT NOT NULL,
		tags            TEXT NOT NULL DEFAULT '[]',
		media           TEXT NOT NULL DEFAULT '[]',
		sentiment_label TEXT NOT NULL DEFAULT '',
		sentiment_score REAL NOT NULL DEFAULT 0,
		context_cipher  TEXT,
		usage_count     INTEGER NOT NULL DEFAULT 0 CHECK (usage_count >= 0),
		indexed         INTEGER NOT NULL DEFAULT 0
	);
	CREATE INDEX IF NOT EXISTS idx_records_speaker ON memory_records(speaker_ref);
	CREATE INDEX IF NOT EXISTS idx_records_created ON memory_records(created_at, id);
	CREATE INDEX IF NOT EXISTS idx_records_last_accessed ON memory_records(last_accessed);
	CREATE INDEX IF NOT EXISTS idx_records_usage_accessed ON memory_records(usage_count, last_accessed);
	CREATE INDEX IF NOT EXISTS idx_records_indexed ON memory_records(indexed);

	CREATE TABLE IF NOT EXISTS id_mapping (
		ordinal    INTEGER PRIMARY KEY,
		record_id  TEXT NOT NULL UNIQUE,
		embedding  BLOB NOT NULL,
		created_at TEXT NOT NULL
	);

	CREATE TABLE IF NOT EXISTS ordinal_seq (
		id   INTEGER PRIMARY KEY CHECK (id = 1),
		next INTEGER NOT NULL
	);
	INSERT OR IGNORE INTO ordinal_seq (id, next) VALUES (1, 0);

	CREATE TABLE IF NOT EXISTS archived_memory_records (
		id              TEXT PRIMARY KEY,
		content_cipher  TEXT NOT NULL,
		content_plain   TEXT NOT NULL,
		speaker_ref     TEXT NOT NULL,
		created_at      TEXT NOT NULL,
		last_accessed   TEXT NOT NULL,
		tags            TEXT NOT NULL DEFAULT '[]',
		media           TEXT NOT NULL DEFAULT '[]',
		sentiment_label TEXT NOT NULL DEFAULT '',
		sentiment_score REAL NOT NULL DEFAULT 0,
		context_cipher  TEXT,
		usage_count     INTEGER NOT NULL DEFAULT 0,
		indexed         INTEGER NOT NULL DEFAULT 0,
		archived_at     TEXT NOT NULL,
		reason          TEXT NOT NULL,
		batch_id        TEXT
	);
	CREATE INDEX IF NOT EXISTS idx_archived_at ON archived_memory_records(archived_at);
	CREATE INDEX IF NOT EXISTS idx_archived_speaker ON archived_memory_records(speaker_ref);
	`
	_, err := s.db.Exec(schema)
	return err
}

func (s *SQLiteStore) Insert(ctx context.Context, p InsertParams) (*model.Record, error) {
	now := s.clock()
	rec := &model.Record{
		ID:            s.newID(),
		ContentCipher: p.ContentCipher,
		ContentPlain:  p.ContentPlain,
		SpeakerRef:    p.SpeakerRef,
		CreatedAt:     now,
		LastAccessed:  now,
		Tags:          nonNil(p.Tags),
		Media:         nonNil(p.Media),
		Sentiment:     p.Sentiment,
		ContextCipher: p.ContextCipher,
	}

	tagsJSON, err := json.Marshal(rec.Tags)
	if err != nil {
		return nil, fmt.Errorf("marshal tags: %w", err)
	}
	mediaJSON, err := json.Marshal(rec.Media)
	if err != nil {
		return nil, fmt.Errorf("marshal media: %w", err)
	}

	var contextCipher *string
	if p.ContextCipher != "" {
		contextCipher = &p.ContextCipher
	}

	_, err = s.db.ExecContext(ctx,
		`INSERT INTO memory_records (`+recordColumns+`)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, 0, 0)`,
		rec.ID, rec.ContentCipher, rec.ContentPlain, rec.SpeakerRef,
		formatTime(now), formatTime(now), string(tagsJSON), string(mediaJSON),
		rec.Sentiment.Label, rec.Sentiment.Score, contextCipher)
	if err != nil {
		return nil, dbErr("insert record", err)
	}
	return rec, nil
}

func (s *SQLiteStore) FindByIDs(ctx context.Context, ids []string) (map[string]model.Record, error) {
	out := make(map[string]model.Record, len(ids))
	for _, batch := range batches(ids) {
		rows, err := s.db.QueryContext(ctx,
			`SELECT `+recordColumns+` FROM memory_records WHERE id IN (`+placeholders(len(batch))+`)`,
			anyArgs(batch)...)
		if err != nil {
			return nil, dbErr("find by ids", err)
		}
		recs, err := scanRecords(rows)
		if err != nil {
			return nil, err
		}
		for _, r := range recs {
			out[r.ID] = r
		}
	}
	return out, nil
}

func (s *SQLiteStore) FindBySpeaker(ctx context.Context, speakerRef string) ([]model.Record, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT `+recordColumns+` FROM memory_records WHERE speaker_ref = ? ORDER BY created_at, id`,
		speakerRef)
	if err != nil {
		return nil, dbErr("find by speaker", err)
	}
	return scanRecords(rows)
}

func (s *SQLiteStore) IncrementUsage(ctx context.Context, ids []string) error {
	if len(ids) == 0 {
		return nil
	}
	now := formatTime(s.clock())

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return dbErr("begin usage update", err)
	}
	defer tx.Rollback()

	for _, batch := range batches(ids) {
		args := append([]interface{}{now}, anyArgs(batch)...)
		// MAX keeps last_accessed >= created_at if the clock steps backwards.
		_, err := tx.ExecContext(ctx,
			`UPDATE memory_records
			 SET usage_count = usage_count + 1, last_accessed = MAX(created_at, ?)
			 WHERE id IN (`+placeholders(len(batch))+`)`, args...)
		if err != nil {
			return dbErr("increment usage", err)
		}
	}
	if err := tx.Commit(); err != nil {
		return dbErr("commit usage update", err)
	}
	return nil
}

func (s *SQLiteStore) Delete(ctx context.Context, id string) error {
	if _, err := s.db.ExecContext(ctx, `DELETE FROM memory_records WHERE id = ?`, id); err != nil {
		return dbErr("delete record", err)
	}
	return nil
}

func (s *SQLiteStore) DeleteBySpeaker(ctx context.Context, speakerRef string) (int, error) {
	res, err := s.db.ExecContext(ctx, `DELETE FROM memory_records WHERE speaker_ref = ?`, speakerRef)
	if err != nil {
		return 0, dbErr("delete by speaker", err)
	}
	n, _ := res.RowsAffected()
	return int(n), nil
}

func (s *SQLiteStore) Forgettable(ctx context.Context, cutoff time.Time, floor int) ([]model.Record, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT `+recordColumns+` FROM memory_records
		 WHERE usage_count < ? AND last_accessed < ?
		 ORDER BY last_accessed, id`,
		floor, formatTime(cutoff.UTC()))
	if err != nil {
		return nil, dbErr("find forgettable", err)
	}
	return scanRecords(rows)
}

// Unindexed returns records whose vector indexing never completed.
func (s *SQLiteStore) Unindexed(ctx context.Context) ([]model.Record, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT `+recordColumns+` FROM memory_records WHERE indexed = 0 ORDER BY created_at, id`)
	if err != nil {
		return nil, dbErr("find unindexed", err)
	}
	return scanRecords(rows)
}

// ExportAll returns all active records, optionally for one speaker.
func (s *SQLiteStore) ExportAll(ctx context.Context, speakerRef string) ([]model.Record, error) {
	if speakerRef != "" {
		return s.FindBySpeaker(ctx, speakerRef)
	}
	rows, err := s.db.QueryContext(ctx,
		`SELECT `+recordColumns+` FROM memory_records ORDER BY created_at, id`)
	if err != nil {
		return nil, dbErr("export", err)
	}
	return scanRecords(rows)
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

type scanner interface {
	Scan(dest ...interface{}) error
}

func scanRecord(row scanner) (model.Record, error) {
	var r model.Record
	var createdAt, lastAccessed, tagsJSON, mediaJSON string
	var contextCipher sql.NullString
	var indexed int

	err := row.Scan(
		&r.ID, &r.ContentCipher, &r.ContentPlain, &r.SpeakerRef, &createdAt, &lastAccessed,
		&tagsJSON, &mediaJSON, &r.Sentiment.Label, &r.Sentiment.Score, &contextCipher,
		&r.UsageCount, &indexed,
	)
	if err != nil {
		return r, err
	}

	r.CreatedAt, _ = time.Parse(timeLayout, createdAt)
	r.LastAccessed, _ = time.Parse(timeLayout, lastAccessed)
	if contextCipher.Valid {
		r.ContextCipher = contextCipher.String
	}
	json.Unmarshal([]byte(tagsJSON), &r.Tags)
	json.Unmarshal([]byte(mediaJSON), &r.Media)
	r.Tags = nonNil(r.Tags)
	r.Media = nonNil(r.Media)
	r.Indexed = indexed != 0
	return r, nil
}

func scanRecords(rows *sql.Rows) ([]model.Record, error) {
	defer rows.Close()
	var out []model.Record
	for rows.Next() {
		r, err := scanRecord(rows)
		if err != nil {
			return nil, dbErr("scan record", err)
		}
		out = append(out, r)
	}
	if err := rows.Err(); err != nil {
		return nil, dbErr("iterate records", err)
	}
	return out, nil
}

func dbErr(op string, err error) error {
	return fmt.Errorf("%s: %w: %w", op, ErrStorageUnavailable, err)
}

func formatTime(t time.Time) string {
	return t.UTC().Format(timeLayout)
}

func nonNil(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}

// maxBatch keeps IN lists well under SQLite's bound-variable limit.
const maxBatch = 500

func batches(ids []string) [][]string {
	var out [][]string
	for len(ids) > 0 {
		n := min(len(ids), maxBatch)
		out = append(out, ids[:n])
		ids = ids[n:]
	}
	return out
}

func placeholders(n int) string {
	return strings.TrimSuffix(strings.Repeat("?,", n), ",")
}

func anyArgs[T any](vals []T) []interface{} {
	out := make([]interface{}, len(vals))
	for i, v := range vals {
		out[i] = v
	}
	return out
}
