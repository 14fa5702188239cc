package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
)

// LineKey is the stable key of an interned line.
type LineKey = int64

// A no-op update, rather than DO NOTHING, makes RETURNING yield the key
// of an existing row too, so insert and lookup are one statement.
const internSQL = `
	INSERT INTO lines (line) VALUES (?)
	ON CONFLICT (line) DO UPDATE SET line = excluded.line
	RETURNING rowid
`

// Intern stores line if no identical bytes are stored yet and returns the
// key of the stored line. Interning the same bytes always returns the
// same key. Callers strip the line terminator first.
func (t *Tx) Intern(ctx context.Context, line []byte) (LineKey, error) {
	var key LineKey
	// Bound as text so an empty line is '' rather than NULL.
	if err := t.tx.QueryRowContext(ctx, internSQL, string(line)).Scan(&key); err != nil {
		return 0, fmt.Errorf("intern line: %w", err)
	}
	return key, nil
}

// ErrUnknownLine is returned for a key that is not in the store.
var ErrUnknownLine = errors.New("unknown line key")

// Line returns the bytes stored under key.
func (t *Tx) Line(ctx context.Context, key LineKey) ([]byte, error) {
	var line []byte
	err := t.tx.QueryRowContext(ctx, "SELECT line FROM lines WHERE rowid = ?", key).Scan(&line)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: %d", ErrUnknownLine, key)
	}
	if err != nil {
		return nil, fmt.Errorf("read line %d: %w", key, err)
	}
	if line == nil {
		line = []byte{}
	}
	return line, nil
}

// Lines resolves keys in order. Repeated keys are read once.
func (t *Tx) Lines(ctx context.Context, keys []LineKey) ([][]byte, error) {
	cache := make(map[LineKey][]byte, len(keys))
	out := make([][]byte, len(keys))
	for i, k := range keys {
		line, ok := cache[k]
		if !ok {
			var err error
			line, err = t.Line(ctx, k)
			if err != nil {
				return nil, err
			}
			cache[k] = line
		}
		out[i] = line
	}
	return out, nil
}
