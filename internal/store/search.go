package store

import (
	"context"
	"fmt"
	"strings"
	"unicode"

	"github.com/rcliao/hye-memory/internal/model"
)

// FindByText finds records whose plaintext mirror contains pattern, ignoring case.
// SQLite's LIKE only folds ASCII, so non-ASCII patterns are matched in Go.
func (s *SQLiteStore) FindByText(ctx context.Context, pattern, speakerRef string) ([]model.Record, error) {
	where := []string{}
	args := []interface{}{}

	if speakerRef != "" {
		where = append(where, "speaker_ref = ?")
		args = append(args, speakerRef)
	}

	ascii := isASCII(pattern)
	if ascii && pattern != "" {
		where = append(where, `content_plain LIKE ? ESCAPE '\'`)
		args = append(args, "%"+escapeLike(pattern)+"%")
	}

	query := `SELECT ` + recordColumns + ` FROM memory_records`
	if len(where) > 0 {
		query += " WHERE " + strings.Join(where, " AND ")
	}
	query += " ORDER BY created_at, id"

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, dbErr("find by text", err)
	}
	recs, err := scanRecords(rows)
	if err != nil || ascii {
		return recs, err
	}

	needle := strings.ToLower(pattern)
	var out []model.Record
	for _, r := range recs {
		if strings.Contains(strings.ToLower(r.ContentPlain), needle) {
			out = append(out, r)
		}
	}
	return out, nil
}

// FindByTags finds records carrying any of the given tags.
func (s *SQLiteStore) FindByTags(ctx context.Context, tags []string, speakerRef string) ([]model.Record, error) {
	if len(tags) == 0 {
		return nil, nil
	}

	where := []string{fmt.Sprintf(
		`EXISTS (SELECT 1 FROM json_each(memory_records.tags) t WHERE t.value IN (%s))`,
		placeholders(len(tags)))}
	args := anyArgs(tags)

	if speakerRef != "" {
		where = append(where, "speaker_ref = ?")
		args = append(args, speakerRef)
	}

	rows, err := s.db.QueryContext(ctx,
		`SELECT `+recordColumns+` FROM memory_records WHERE `+strings.Join(where, " AND ")+
			` ORDER BY created_at, id`, args...)
	if err != nil {
		return nil, dbErr("find by tags", err)
	}
	return scanRecords(rows)
}

func escapeLike(s string) string {
	r := strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)
	return r.Replace(s)
}

func isASCII(s string) bool {
	for _, c := range s {
		if c > unicode.MaxASCII {
			return false
		}
	}
	return true
}
