package fileindex

import (
	"context"
	"fmt"

	"github.com/xoppmerge/xoppmerge/internal/lineage"
	"github.com/xoppmerge/xoppmerge/internal/xopp"
)

// Derive writes a copy of in to out whose lineage marker names l. An
// existing marker is rewritten in place; otherwise a new marker item is
// added to the first layer. It returns the number of markers the input held.
func (ix *Indexer) Derive(in, out string, l lineage.Lineage) (int, error) {
	content, err := xopp.ReadAll(ix.FS, in)
	if err != nil {
		return 0, err
	}

	rewritten, n, err := lineage.Rewrite(content, l, ix.Template)
	if err != nil {
		return 0, fmt.Errorf("derive %s: %w", in, err)
	}
	switch {
	case n == 0:
		ix.log().Info("adding lineage marker", "path", out, "lineage", l.String())
	case n > 1:
		ix.log().Warn(lineage.ErrMultipleMarkers.Error(), "path", in, "count", n)
	}

	return n, xopp.WriteAll(ix.FS, out, rewritten)
}

// Commit indexes in, derives out from it and indexes out. The marker in
// out links it to in, so the edge can be found later from out alone.
func (ix *Indexer) Commit(ctx context.Context, in, out string) (lineage.Hash, lineage.Hash, error) {
	parent, err := ix.Index(ctx, in)
	if err != nil {
		return "", "", err
	}
	if _, err := ix.Derive(in, out, lineage.From(parent.Hash)); err != nil {
		return "", "", err
	}
	child, err := ix.Index(ctx, out)
	if err != nil {
		return "", "", err
	}
	return parent.Hash, child.Hash, nil
}
