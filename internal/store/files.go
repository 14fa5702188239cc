package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/xoppmerge/xoppmerge/internal/keyseq"
	"github.com/xoppmerge/xoppmerge/internal/lineage"
)

// FileRecord is one indexed revision.
type FileRecord struct {
	Hash     lineage.Hash
	Filename string
	Lines    keyseq.Seq
	Lineage  lineage.Lineage
	// TrailingNewline is false when the last line had no terminator.
	TrailingNewline bool
	IndexedAt       time.Time
}

// ErrUnknownFile is returned when no record exists for a hash.
var ErrUnknownFile = errors.New("unknown file hash")

// PutFile inserts rec unless a record with the same hash exists, in which
// case the stored record is left as it is. It reports whether a row was
// inserted.
func (t *Tx) PutFile(ctx context.Context, rec FileRecord) (bool, error) {
	if rec.IndexedAt.IsZero() {
		rec.IndexedAt = time.Now().UTC()
	}
	res, err := t.tx.ExecContext(ctx, `
		INSERT INTO files (hash, filename, rowids, parents, trailing_newline, indexed_at)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT (hash) DO NOTHING
	`,
		string(rec.Hash),
		rec.Filename,
		rec.Lines.String(),
		rec.Lineage.String(),
		rec.TrailingNewline,
		rec.IndexedAt.Format(time.RFC3339),
	)
	if err != nil {
		return false, fmt.Errorf("insert file %s: %w", rec.Hash, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

const fileColumns = "hash, filename, rowids, parents, trailing_newline, indexed_at"

type rowScanner interface {
	Scan(dest ...any) error
}

func scanFile(row rowScanner) (*FileRecord, error) {
	var hash, filename, rowids, parents, ts string
	var trailing bool
	if err := row.Scan(&hash, &filename, &rowids, &parents, &trailing, &ts); err != nil {
		return nil, err
	}
	lines, err := keyseq.FromString(rowids)
	if err != nil {
		return nil, fmt.Errorf("file %s: rowids: %w", hash, err)
	}
	lin, err := lineage.ParseLineage(parents)
	if err != nil {
		return nil, fmt.Errorf("file %s: %w", hash, err)
	}
	indexedAt, _ := time.Parse(time.RFC3339, ts)
	return &FileRecord{
		Hash:            lineage.Hash(hash),
		Filename:        filename,
		Lines:           lines,
		Lineage:         lin,
		TrailingNewline: trailing,
		IndexedAt:       indexedAt,
	}, nil
}

// File returns the record for hash.
func (t *Tx) File(ctx context.Context, hash lineage.Hash) (*FileRecord, error) {
	row := t.tx.QueryRowContext(ctx, "SELECT "+fileColumns+" FROM files WHERE hash = ?", string(hash))
	rec, err := scanFile(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: %s", ErrUnknownFile, hash)
	}
	if err != nil {
		return nil, err
	}
	return rec, nil
}

// Children returns the records naming hash as a parent, oldest first.
func (t *Tx) Children(ctx context.Context, hash lineage.Hash) ([]*FileRecord, error) {
	rows, err := t.tx.QueryContext(ctx, `
		SELECT `+fileColumns+` FROM files
		WHERE parents = ? OR parents LIKE ? OR parents LIKE ?
		ORDER BY indexed_at, hash
	`, string(hash), string(hash)+",%", "%,"+string(hash))
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []*FileRecord
	for rows.Next() {
		rec, err := scanFile(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, rec)
	}
	return out, rows.Err()
}

// Stats summarizes the store.
type Stats struct {
	Lines     int    `json:"lines"`
	Files     int    `json:"files"`
	Derived   int    `json:"derived"`
	Merges    int    `json:"merges"`
	LineRefs  int    `json:"line_refs"`
	FirstSeen string `json:"first_indexed"`
	LastSeen  string `json:"last_indexed"`
}

// Stats counts lines and files. LineRefs is the total number of line
// references across all files, so LineRefs/Lines is the deduplication
// ratio.
func (t *Tx) Stats(ctx context.Context) (Stats, error) {
	var s Stats
	var first, last sql.NullString
	if err := t.tx.QueryRowContext(ctx, "SELECT COUNT(*) FROM lines").Scan(&s.Lines); err != nil {
		return s, err
	}
	if err := t.tx.QueryRowContext(ctx, `
		SELECT COUNT(*),
		       COALESCE(SUM(CASE WHEN parents != 'none' THEN 1 ELSE 0 END), 0),
		       COALESCE(SUM(CASE WHEN parents LIKE '%,%' THEN 1 ELSE 0 END), 0),
		       MIN(indexed_at), MAX(indexed_at)
		FROM files
	`).Scan(&s.Files, &s.Derived, &s.Merges, &first, &last); err != nil {
		return s, err
	}
	s.FirstSeen = first.String
	s.LastSeen = last.String

	rows, err := t.tx.QueryContext(ctx, "SELECT rowids FROM files")
	if err != nil {
		return s, err
	}
	defer rows.Close()
	for rows.Next() {
		var rowids string
		if err := rows.Scan(&rowids); err != nil {
			return s, err
		}
		seq, err := keyseq.FromString(rowids)
		if err != nil {
			return s, err
		}
		s.LineRefs += seq.Len()
	}
	return s, rows.Err()
}
