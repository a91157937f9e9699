package store

import (
	"context"
	"database/sql"
	"encoding/binary"
	"errors"
	"fmt"
	"math"

	"github.com/rcliao/hye-memory/internal/model"
)

// NextOrdinal reserves the next ordinal from the persisted sequence.
func (s *SQLiteStore) NextOrdinal(ctx context.Context) (int64, error) {
	var ord int64
	err := s.db.QueryRowContext(ctx,
		`UPDATE ordinal_seq SET next = next + 1 WHERE id = 1 RETURNING next - 1`).Scan(&ord)
	if err != nil {
		return 0, dbErr("next ordinal", err)
	}
	return ord, nil
}

// PutMapping links ordinal to recordID, stores the vector and flips the
// record to indexed in one transaction. Returns ErrNotFound if the record
// no longer exists.
func (s *SQLiteStore) PutMapping(ctx context.Context, ordinal int64, recordID string, vec []float32) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return dbErr("begin mapping", err)
	}
	defer tx.Rollback()

	res, err := tx.ExecContext(ctx, `UPDATE memory_records SET indexed = 1 WHERE id = ?`, recordID)
	if err != nil {
		return dbErr("mark indexed", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("record %s: %w", recordID, ErrNotFound)
	}

	_, err = tx.ExecContext(ctx,
		`INSERT INTO id_mapping (ordinal, record_id, embedding, created_at) VALUES (?, ?, ?, ?)`,
		ordinal, recordID, encodeVector(vec), formatTime(s.clock()))
	if err != nil {
		return dbErr("insert mapping", err)
	}

	if err := tx.Commit(); err != nil {
		return dbErr("commit mapping", err)
	}
	return nil
}

// ResolveOrdinals returns ordinal -> record id for the ordinals that are mapped.
func (s *SQLiteStore) ResolveOrdinals(ctx context.Context, ordinals []int64) (map[int64]string, error) {
	out := make(map[int64]string, len(ordinals))
	for len(ordinals) > 0 {
		n := min(len(ordinals), maxBatch)
		batch := ordinals[:n]
		ordinals = ordinals[n:]

		rows, err := s.db.QueryContext(ctx,
			`SELECT ordinal, record_id FROM id_mapping WHERE ordinal IN (`+placeholders(len(batch))+`)`,
			anyArgs(batch)...)
		if err != nil {
			return nil, dbErr("resolve ordinals", err)
		}
		for rows.Next() {
			var ord int64
			var id string
			if err := rows.Scan(&ord, &id); err != nil {
				rows.Close()
				return nil, dbErr("scan mapping", err)
			}
			out[ord] = id
		}
		err = rows.Err()
		rows.Close()
		if err != nil {
			return nil, dbErr("iterate mappings", err)
		}
	}
	return out, nil
}

// MappingForRecord returns the mapping that points at recordID.
func (s *SQLiteStore) MappingForRecord(ctx context.Context, recordID string) (*model.Mapping, error) {
	m := model.Mapping{RecordID: recordID}
	err := s.db.QueryRowContext(ctx,
		`SELECT ordinal FROM id_mapping WHERE record_id = ?`, recordID).Scan(&m.Ordinal)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("mapping for %s: %w", recordID, ErrNotFound)
	}
	if err != nil {
		return nil, dbErr("get mapping", err)
	}
	return &m, nil
}

// DeleteMapping removes an ordinal's mapping and marks its record un-indexed.
func (s *SQLiteStore) DeleteMapping(ctx context.Context, ordinal int64) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return dbErr("begin mapping delete", err)
	}
	defer tx.Rollback()

	var recordID string
	err = tx.QueryRowContext(ctx,
		`DELETE FROM id_mapping WHERE ordinal = ? RETURNING record_id`, ordinal).Scan(&recordID)
	if errors.Is(err, sql.ErrNoRows) {
		return nil
	}
	if err != nil {
		return dbErr("delete mapping", err)
	}
	if _, err := tx.ExecContext(ctx,
		`UPDATE memory_records SET indexed = 0 WHERE id = ?`, recordID); err != nil {
		return dbErr("mark unindexed", err)
	}
	if err := tx.Commit(); err != nil {
		return dbErr("commit mapping delete", err)
	}
	return nil
}

// LoadMappings returns every mapping and its vector ordered by ordinal.
func (s *SQLiteStore) LoadMappings(ctx context.Context) ([]IndexedVector, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT ordinal, record_id, embedding FROM id_mapping ORDER BY ordinal`)
	if err != nil {
		return nil, dbErr("load mappings", err)
	}
	defer rows.Close()

	var out []IndexedVector
	for rows.Next() {
		var iv IndexedVector
		var blob []byte
		if err := rows.Scan(&iv.Ordinal, &iv.RecordID, &blob); err != nil {
			return nil, dbErr("scan mapping", err)
		}
		iv.Vector, err = decodeVector(blob)
		if err != nil {
			return nil, fmt.Errorf("ordinal %d: %w", iv.Ordinal, err)
		}
		out = append(out, iv)
	}
	if err := rows.Err(); err != nil {
		return nil, dbErr("iterate mappings", err)
	}
	return out, nil
}

// encodeVector serialises a vector as little-endian float32s.
func encodeVector(vec []float32) []byte {
	buf := make([]byte, 4*len(vec))
	for i, v := range vec {
		binary.LittleEndian.PutUint32(buf[4*i:], math.Float32bits(v))
	}
	return buf
}

func decodeVector(buf []byte) ([]float32, error) {
	if len(buf)%4 != 0 {
		return nil, fmt.Errorf("invalid vector blob length %d", len(buf))
	}
	vec := make([]float32, len(buf)/4)
	for i := range vec {
		vec[i] = math.Float32frombits(binary.LittleEndian.Uint32(buf[4*i:]))
	}
	return vec, nil
}
