package journal

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"
)

// Query selects journal entries. The most recent Limit entries matching
// Kind and Status are returned, oldest first.
type Query struct {
	Limit  int
	Kind   string
	Status string
}

// DefaultLimit is used when Query.Limit is not positive.
const DefaultLimit = 20

// Recent returns the latest entries matching q in seq order. Returns an
// empty slice, not nil, when nothing matches.
func (j *Journal) Recent(ctx context.Context, q Query) ([]Entry, error) {
	limit := q.Limit
	if limit <= 0 {
		limit = DefaultLimit
	}

	var where []string
	var args []any
	if q.Kind != "" {
		where = append(where, "kind = ?")
		args = append(args, q.Kind)
	}
	if q.Status != "" {
		where = append(where, "status = ?")
		args = append(args, q.Status)
	}
	query := `
		SELECT id, seq, kind, params, params_digest, status, message, remote, received_at, duration_us
		FROM commands`
	if len(where) > 0 {
		query += " WHERE " + strings.Join(where, " AND ")
	}
	query += " ORDER BY seq DESC, id COLLATE BINARY DESC LIMIT ?"
	args = append(args, limit)

	rows, err := j.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query commands: %w", err)
	}
	defer rows.Close()

	entries := []Entry{}
	for rows.Next() {
		e, err := scanEntry(rows)
		if err != nil {
			return nil, err
		}
		entries = append(entries, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate commands: %w", err)
	}

	// Newest were selected; report them oldest first.
	for i, k := 0, len(entries)-1; i < k; i, k = i+1, k-1 {
		entries[i], entries[k] = entries[k], entries[i]
	}
	return entries, nil
}

// Count returns the number of journaled commands per kind.
func (j *Journal) Count(ctx context.Context) (map[string]int, error) {
	rows, err := j.db.QueryContext(ctx, `SELECT kind, COUNT(*) FROM commands GROUP BY kind`)
	if err != nil {
		return nil, fmt.Errorf("count commands: %w", err)
	}
	defer rows.Close()

	out := make(map[string]int)
	for rows.Next() {
		var kind string
		var n int
		if err := rows.Scan(&kind, &n); err != nil {
			return nil, fmt.Errorf("scan count: %w", err)
		}
		out[kind] = n
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate counts: %w", err)
	}
	return out, nil
}

func scanEntry(rows *sql.Rows) (Entry, error) {
	var (
		e          Entry
		params     string
		receivedAt string
		durationUS int64
	)
	if err := rows.Scan(&e.ID, &e.Seq, &e.Kind, &params, &e.Digest, &e.Status, &e.Message, &e.Remote, &receivedAt, &durationUS); err != nil {
		return Entry{}, fmt.Errorf("scan command: %w", err)
	}
	e.Params = []byte(params)
	t, err := time.Parse(time.RFC3339Nano, receivedAt)
	if err != nil {
		return Entry{}, fmt.Errorf("parse received_at %q: %w", receivedAt, err)
	}
	e.ReceivedAt = t
	e.Duration = time.Duration(durationUS) * time.Microsecond
	return e, nil
}

// LastSeq returns the highest recorded seq, or 0 for an empty journal.
func (j *Journal) LastSeq(ctx context.Context) (int64, error) {
	var seq sql.NullInt64
	if err := j.db.QueryRowContext(ctx, `SELECT MAX(seq) FROM commands`).Scan(&seq); err != nil {
		return 0, fmt.Errorf("read last seq: %w", err)
	}
	return seq.Int64, nil
}
