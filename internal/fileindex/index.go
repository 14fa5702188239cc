// Package fileindex records document revisions in the store and derives
// new revisions stamped with their lineage.
//
// It works on the decompressed line stream of a document, not on the
// parsed tree: every line is interned in the line store and the revision
// is the ordered list of its line keys, keyed by a hash of its content.
package fileindex

import (
	"bufio"
	"bytes"
	"context"
	"errors"
	"io"
	"regexp"

	"github.com/hashicorp/go-hclog"
	"github.com/spf13/afero"

	"github.com/xoppmerge/xoppmerge/internal/keyseq"
	"github.com/xoppmerge/xoppmerge/internal/lineage"
	"github.com/xoppmerge/xoppmerge/internal/store"
	"github.com/xoppmerge/xoppmerge/internal/xopp"
)

// Indexer indexes, derives and restores revisions within one store
// session.
type Indexer struct {
	FS       afero.Fs
	Tx       *store.Tx
	Logger   hclog.Logger
	Template lineage.Template
}

// New returns an Indexer with the default marker template.
func New(fs afero.Fs, tx *store.Tx, logger hclog.Logger) *Indexer {
	if logger == nil {
		logger = hclog.NewNullLogger()
	}
	return &Indexer{FS: fs, Tx: tx, Logger: logger, Template: lineage.DefaultTemplate}
}

func (ix *Indexer) log() hclog.Logger {
	if ix.Logger == nil {
		return hclog.NewNullLogger()
	}
	return ix.Logger
}

// Result describes an indexed revision.
type Result struct {
	Hash    lineage.Hash
	Lineage lineage.Lineage
	// Lines is the number of lines recorded, preview excluded.
	Lines int
	// Created is false when the revision was already in the store.
	Created  bool
	Warnings []error
}

// Index records the document at path and returns its hash. Indexing the
// same content again returns the same hash and adds nothing.
func (ix *Indexer) Index(ctx context.Context, path string) (Result, error) {
	rc, err := xopp.OpenContainer(ix.FS, path)
	if err != nil {
		return Result{}, err
	}
	defer rc.Close()

	var (
		filter   previewFilter
		markers  lineage.Scanner
		keys     []int64
		trailing = true
	)
	digest := lineage.NewDigest()

	br := bufio.NewReader(rc)
	for {
		line, readErr := br.ReadBytes('\n')
		if len(line) > 0 {
			markers.Scan(line)
			if !filter.skip(line) {
				_, _ = digest.Write(line)
				body := bytes.TrimSuffix(line, []byte("\n"))
				trailing = len(body) < len(line)
				key, err := ix.Tx.Intern(ctx, body)
				if err != nil {
					return Result{}, err
				}
				keys = append(keys, key)
			}
		}
		if errors.Is(readErr, io.EOF) {
			break
		}
		if readErr != nil {
			return Result{}, readErr
		}
	}

	res := Result{
		Hash:    digest.Sum(),
		Lineage: markers.Lineage(),
		Lines:   len(keys),
	}
	if markers.Count() > 1 {
		ix.log().Warn(lineage.ErrMultipleMarkers.Error(), "path", path, "count", markers.Count())
		res.Warnings = append(res.Warnings, lineage.ErrMultipleMarkers)
	}

	res.Created, err = ix.Tx.PutFile(ctx, store.FileRecord{
		Hash:            res.Hash,
		Filename:        path,
		Lines:           keyseq.New(keys...),
		Lineage:         res.Lineage,
		TrailingNewline: trailing,
	})
	if err != nil {
		return Result{}, err
	}

	ix.log().Debug("indexed", "path", path, "hash", res.Hash, "lines", res.Lines,
		"lineage", res.Lineage.String(), "new", res.Created)
	return res, nil
}

type previewState int

const (
	expectDeclaration previewState = iota
	expectRoot
	expectTitle
	expectPreview
	streaming
)

var previewRe = regexp.MustCompile(`^<preview>[^<>]+</preview>$`)

// previewFilter drops the thumbnail line that follows the title. The
// thumbnail is regenerated by the editor on every save, so it would make
// otherwise identical revisions hash differently.
type previewFilter struct {
	state previewState
}

func (f *previewFilter) skip(line []byte) bool {
	t := bytes.TrimSpace(line)
	switch f.state {
	case expectDeclaration:
		if bytes.HasPrefix(t, []byte("<?xml")) {
			f.state = expectRoot
		}
	case expectRoot:
		if bytes.HasPrefix(t, []byte("<xournal")) {
			f.state = expectTitle
		}
	case expectTitle:
		if bytes.HasPrefix(t, []byte("<title")) {
			f.state = expectPreview
		}
	case expectPreview:
		f.state = streaming
		return previewRe.Match(t)
	}
	return false
}
