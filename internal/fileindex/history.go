package fileindex

import (
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/spf13/afero"

	"github.com/xoppmerge/xoppmerge/internal/lineage"
	"github.com/xoppmerge/xoppmerge/internal/store"
	"github.com/xoppmerge/xoppmerge/internal/xopp"
)

var (
	// ErrUnknownRevision is returned for a hash that was never indexed.
	ErrUnknownRevision = store.ErrUnknownFile

	// ErrNoCommonAncestor is returned when two revisions share no indexed
	// ancestor.
	ErrNoCommonAncestor = errors.New("no common ancestor")
)

// Resolve turns a command line argument into a revision hash. A full hash
// is taken as is; anything else is a document path, which is indexed.
func (ix *Indexer) Resolve(ctx context.Context, arg string) (lineage.Hash, error) {
	if h, err := lineage.ParseHash(arg); err == nil {
		if _, err := ix.Tx.File(ctx, h); err == nil {
			return h, nil
		}
		if exists, _ := afero.Exists(ix.FS, arg); !exists {
			return "", fmt.Errorf("%w: %s", ErrUnknownRevision, h)
		}
	}
	res, err := ix.Index(ctx, arg)
	if err != nil {
		return "", err
	}
	return res.Hash, nil
}

// Restore writes the uncompressed content of revision hash to w. The
// output hashes back to hash; a preview line that was skipped when the
// revision was indexed is not part of it.
func (ix *Indexer) Restore(ctx context.Context, hash lineage.Hash, w io.Writer) error {
	rec, err := ix.Tx.File(ctx, hash)
	if err != nil {
		return err
	}
	lines, err := ix.Tx.Lines(ctx, rec.Lines.Keys())
	if err != nil {
		return err
	}
	for i, line := range lines {
		if _, err := w.Write(line); err != nil {
			return err
		}
		if i < len(lines)-1 || rec.TrailingNewline {
			if _, err := w.Write([]byte{'\n'}); err != nil {
				return err
			}
		}
	}
	return nil
}

// RestoreFile writes revision hash to path as a compressed document.
func (ix *Indexer) RestoreFile(ctx context.Context, hash lineage.Hash, path string) error {
	if _, err := ix.Tx.File(ctx, hash); err != nil {
		return err
	}
	wc, err := xopp.CreateContainer(ix.FS, path)
	if err != nil {
		return err
	}
	if err := ix.Restore(ctx, hash, wc); err != nil {
		wc.Close()
		return err
	}
	return wc.Close()
}

// Ancestors returns the indexed ancestors of hash, nearest first. Parents
// named by a marker but never indexed are skipped.
func (ix *Indexer) Ancestors(ctx context.Context, hash lineage.Hash) ([]*store.FileRecord, error) {
	start, err := ix.Tx.File(ctx, hash)
	if err != nil {
		return nil, err
	}
	recs, err := ix.walk(ctx, start)
	if err != nil {
		return nil, err
	}
	return recs[1:], nil
}

// walk visits start and its indexed ancestors breadth first.
func (ix *Indexer) walk(ctx context.Context, start *store.FileRecord) ([]*store.FileRecord, error) {
	seen := map[lineage.Hash]bool{start.Hash: true}
	queue := []*store.FileRecord{start}
	for i := 0; i < len(queue); i++ {
		for _, p := range queue[i].Lineage.Parents {
			if seen[p] {
				continue
			}
			seen[p] = true
			rec, err := ix.Tx.File(ctx, p)
			if errors.Is(err, store.ErrUnknownFile) {
				ix.log().Debug("parent not indexed", "hash", p, "child", queue[i].Hash)
				continue
			}
			if err != nil {
				return nil, err
			}
			queue = append(queue, rec)
		}
	}
	return queue, nil
}

// CommonAncestor finds the indexed revision nearest to b that is also a
// or one of a's ancestors.
func (ix *Indexer) CommonAncestor(ctx context.Context, a, b lineage.Hash) (lineage.Hash, error) {
	recA, err := ix.Tx.File(ctx, a)
	if err != nil {
		return "", err
	}
	recB, err := ix.Tx.File(ctx, b)
	if err != nil {
		return "", err
	}

	fromA, err := ix.walk(ctx, recA)
	if err != nil {
		return "", err
	}
	inA := make(map[lineage.Hash]bool, len(fromA))
	for _, r := range fromA {
		inA[r.Hash] = true
	}

	fromB, err := ix.walk(ctx, recB)
	if err != nil {
		return "", err
	}
	for _, r := range fromB {
		if inA[r.Hash] {
			return r.Hash, nil
		}
	}
	return "", fmt.Errorf("%w: %s and %s", ErrNoCommonAncestor, a, b)
}

// BlameLine attributes one line of a revision.
type BlameLine struct {
	Number int
	Text   string
	// Origin is the oldest revision the line can be traced back to
	// through parents that all contain it unchanged.
	Origin lineage.Hash
}

// Blame attributes every line of revision hash to the revision that
// introduced it.
func (ix *Indexer) Blame(ctx context.Context, hash lineage.Hash) ([]BlameLine, error) {
	rec, err := ix.Tx.File(ctx, hash)
	if err != nil {
		return nil, err
	}
	keys := rec.Lines.Keys()
	texts, err := ix.Tx.Lines(ctx, keys)
	if err != nil {
		return nil, err
	}

	records := map[lineage.Hash]*store.FileRecord{hash: rec}
	sets := map[lineage.Hash]map[int64]struct{}{}
	contains := func(h lineage.Hash, key int64) (bool, error) {
		r, ok := records[h]
		if !ok {
			r, err = ix.Tx.File(ctx, h)
			if errors.Is(err, store.ErrUnknownFile) {
				r = nil
			} else if err != nil {
				return false, err
			}
			records[h] = r
		}
		if r == nil {
			return false, nil
		}
		set, ok := sets[h]
		if !ok {
			set = r.Lines.Set()
			sets[h] = set
		}
		_, in := set[key]
		return in, nil
	}

	out := make([]BlameLine, len(keys))
	for i, key := range keys {
		origin := hash
		visited := map[lineage.Hash]bool{hash: true}
	climb:
		for {
			for _, p := range records[origin].Lineage.Parents {
				if visited[p] {
					continue
				}
				ok, err := contains(p, key)
				if err != nil {
					return nil, err
				}
				if ok {
					visited[p] = true
					origin = p
					continue climb
				}
			}
			break
		}
		out[i] = BlameLine{Number: i + 1, Text: string(texts[i]), Origin: origin}
	}
	return out, nil
}
