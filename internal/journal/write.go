package journal

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/roach88/graphgate/internal/value"
)

// Entry is one journaled command.
type Entry struct {
	ID         string          `json:"id"`
	Seq        int64           `json:"seq"`
	Kind       string          `json:"kind"`
	Params     json.RawMessage `json:"params"`
	Digest     string          `json:"params_digest"`
	Status     string          `json:"status"`
	Message    string          `json:"message,omitempty"`
	Remote     string          `json:"remote,omitempty"`
	ReceivedAt time.Time       `json:"received_at"`
	Duration   time.Duration   `json:"duration"`
}

// Record appends e. An empty ID is generated, a zero ReceivedAt is stamped
// now, and Params are stored canonically with their digest. Recording the
// same ID twice is a no-op.
func (j *Journal) Record(ctx context.Context, e Entry) error {
	if e.ID == "" {
		e.ID = j.ids.Generate()
	}
	if e.ReceivedAt.IsZero() {
		e.ReceivedAt = j.now()
	}

	params := e.Params
	if len(bytes.TrimSpace(params)) == 0 || bytes.Equal(bytes.TrimSpace(params), []byte("null")) {
		params = json.RawMessage("{}")
	}
	canonical, err := value.MarshalCanonical(params)
	if err != nil {
		return fmt.Errorf("record %s: %w", e.Kind, err)
	}
	digest, err := value.Digest(value.DomainParams, params)
	if err != nil {
		return fmt.Errorf("record %s: %w", e.Kind, err)
	}

	_, err = j.db.ExecContext(ctx, `
		INSERT INTO commands
		(id, seq, kind, params, params_digest, status, message, remote, received_at, duration_us)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO NOTHING
	`,
		e.ID,
		e.Seq,
		e.Kind,
		string(canonical),
		digest,
		e.Status,
		e.Message,
		e.Remote,
		e.ReceivedAt.UTC().Format(time.RFC3339Nano),
		e.Duration.Microseconds(),
	)
	if err != nil {
		return fmt.Errorf("record %s: %w", e.Kind, err)
	}
	return nil
}
