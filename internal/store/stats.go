package store

import (
	"context"
	"os"
)

// Stats holds database statistics.
type Stats struct {
	DBPath           string `json:"db_path"`
	DBSizeBytes      int64  `json:"db_size_bytes"`
	ActiveRecords    int    `json:"active_records"`
	IndexedRecords   int    `json:"indexed_records"`
	UnindexedRecords int    `json:"unindexed_records"`
	ArchivedRecords  int    `json:"archived_records"`
	Mappings         int    `json:"mappings"`
	DanglingMappings int    `json:"dangling_mappings"`
	Speakers         int    `json:"speakers"`
	NextOrdinal      int64  `json:"next_ordinal"`
}

// Stats returns database statistics.
func (s *SQLiteStore) Stats(ctx context.Context, dbPath string) (*Stats, error) {
	st := &Stats{DBPath: dbPath}

	if info, err := os.Stat(dbPath); err == nil {
		st.DBSizeBytes = info.Size()
	}

	err := s.db.QueryRowContext(ctx, `
		SELECT
			(SELECT COUNT(*) FROM memory_records),
			(SELECT COUNT(*) FROM memory_records WHERE indexed = 1),
			(SELECT COUNT(*) FROM memory_records WHERE indexed = 0),
			(SELECT COUNT(*) FROM archived_memory_records),
			(SELECT COUNT(*) FROM id_mapping),
			(SELECT COUNT(*) FROM id_mapping m
			   WHERE NOT EXISTS (SELECT 1 FROM memory_records r WHERE r.id = m.record_id)),
			(SELECT COUNT(DISTINCT speaker_ref) FROM memory_records),
			(SELECT next FROM ordinal_seq WHERE id = 1)`).Scan(
		&st.ActiveRecords, &st.IndexedRecords, &st.UnindexedRecords, &st.ArchivedRecords,
		&st.Mappings, &st.DanglingMappings, &st.Speakers, &st.NextOrdinal)
	if err != nil {
		return st, dbErr("stats", err)
	}
	return st, nil
}
