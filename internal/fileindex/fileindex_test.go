package fileindex

import (
	"bytes"
	"context"
	"path/filepath"
	"strings"
	"testing"

	"github.com/hashicorp/go-hclog"
	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/xoppmerge/xoppmerge/internal/lineage"
	"github.com/xoppmerge/xoppmerge/internal/store"
	"github.com/xoppmerge/xoppmerge/internal/xopp"
)

const (
	header = `<?xml version="1.0" standalone="no"?>
<xournal creator="xournalpp 1.1.1" fileversion="4">
<title>Xournal++ document - see https://github.com/xournalpp/xournalpp</title>
`
	preview  = "<preview>iVBORw0KGgoAAAANSUhEUgAAAAE=</preview>\n"
	pageOpen = `<page width="612.00" height="792.00">
<background type="solid" color="#ffffffff" style="lined"/>
<layer>
`
	footer = `</layer>
</page>
</xournal>
`
)

func stroke(coords string) string {
	return `<stroke tool="pen" color="#000000ff" width="1.41">` + coords + "</stroke>\n"
}

// doc assembles a document. marker may be empty.
func doc(withPreview bool, marker string, strokes ...string) string {
	var b strings.Builder
	b.WriteString(header)
	if withPreview {
		b.WriteString(preview)
	}
	b.WriteString(pageOpen)
	if marker != "" {
		b.WriteString(lineage.DefaultTemplate.Element(mustLineage(marker)) + "\n")
	}
	for _, s := range strokes {
		b.WriteString(stroke(s))
	}
	b.WriteString(footer)
	return b.String()
}

func mustLineage(s string) lineage.Lineage {
	l, err := lineage.ParseLineage(s)
	if err != nil {
		panic(err)
	}
	return l
}

func newTestIndexer(t *testing.T, logger hclog.Logger) *Indexer {
	t.Helper()
	db, err := store.Open(filepath.Join(t.TempDir(), "store.db"))
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	tx, err := db.Begin(context.Background())
	require.NoError(t, err)
	t.Cleanup(func() { tx.Rollback() })

	return New(afero.NewMemMapFs(), tx, logger)
}

func writeDoc(t *testing.T, ix *Indexer, path, content string) {
	t.Helper()
	require.NoError(t, xopp.WriteAll(ix.FS, path, []byte(content)))
}

func TestIndex(t *testing.T) {
	ctx := context.Background()
	ix := newTestIndexer(t, nil)
	content := doc(false, "", "1 1 2 2", "3 3 4 4")
	writeDoc(t, ix, "a.xopp", content)

	first, err := ix.Index(ctx, "a.xopp")
	require.NoError(t, err)
	assert.True(t, first.Created)
	assert.Equal(t, lineage.Of([]byte(content)), first.Hash)
	assert.True(t, first.Lineage.IsNone())
	assert.Equal(t, strings.Count(content, "\n"), first.Lines)
	assert.Empty(t, first.Warnings)

	t.Run("idempotent", func(t *testing.T) {
		again, err := ix.Index(ctx, "a.xopp")
		require.NoError(t, err)
		assert.False(t, again.Created)
		assert.Equal(t, first.Hash, again.Hash)

		s, err := ix.Tx.Stats(ctx)
		require.NoError(t, err)
		assert.Equal(t, 1, s.Files)
	})

	t.Run("same_content_other_name", func(t *testing.T) {
		writeDoc(t, ix, "copy.xopp", content)
		res, err := ix.Index(ctx, "copy.xopp")
		require.NoError(t, err)
		assert.Equal(t, first.Hash, res.Hash)
		assert.False(t, res.Created)

		rec, err := ix.Tx.File(ctx, res.Hash)
		require.NoError(t, err)
		assert.Equal(t, "a.xopp", rec.Filename)
	})

	t.Run("shared_lines_stored_once", func(t *testing.T) {
		writeDoc(t, ix, "b.xopp", doc(false, "", "1 1 2 2", "5 5 6 6"))
		_, err := ix.Index(ctx, "b.xopp")
		require.NoError(t, err)

		s, err := ix.Tx.Stats(ctx)
		require.NoError(t, err)
		assert.Equal(t, 2, s.Files)
		assert.Less(t, s.Lines, s.LineRefs)
	})

	t.Run("missing_file", func(t *testing.T) {
		_, err := ix.Index(ctx, "nope.xopp")
		assert.ErrorIs(t, err, xopp.ErrIO)
	})

	t.Run("not_gzip", func(t *testing.T) {
		require.NoError(t, afero.WriteFile(ix.FS, "plain.xopp", []byte(content), 0o644))
		_, err := ix.Index(ctx, "plain.xopp")
		assert.ErrorIs(t, err, xopp.ErrFormat)
	})
}

func TestIndexSkipsPreview(t *testing.T) {
	ctx := context.Background()
	ix := newTestIndexer(t, nil)

	writeDoc(t, ix, "with.xopp", doc(true, "", "1 1 2 2"))
	writeDoc(t, ix, "without.xopp", doc(false, "", "1 1 2 2"))

	with, err := ix.Index(ctx, "with.xopp")
	require.NoError(t, err)
	without, err := ix.Index(ctx, "without.xopp")
	require.NoError(t, err)

	assert.Equal(t, without.Hash, with.Hash)
	assert.Equal(t, without.Lines, with.Lines)
	assert.False(t, without.Created)

	t.Run("preview_elsewhere_is_kept", func(t *testing.T) {
		content := doc(false, "", "1 1 2 2") + preview
		writeDoc(t, ix, "late.xopp", content)
		res, err := ix.Index(ctx, "late.xopp")
		require.NoError(t, err)
		assert.Equal(t, lineage.Of([]byte(content)), res.Hash)
	})
}

func TestPreviewFilter(t *testing.T) {
	tests := []struct {
		name  string
		lines []string
		want  []bool
	}{
		{
			name:  "skips_line_after_title",
			lines: []string{`<?xml version="1.0"?>`, `<xournal>`, `<title>t</title>`, `<preview>abc</preview>`, `<page>`},
			want:  []bool{false, false, false, true, false},
		},
		{
			name:  "indented",
			lines: []string{`<?xml version="1.0"?>`, `<xournal>`, `  <title>t</title>`, `  <preview>abc</preview>`},
			want:  []bool{false, false, false, true},
		},
		{
			name:  "no_preview",
			lines: []string{`<?xml version="1.0"?>`, `<xournal>`, `<title>t</title>`, `<page>`, `<preview>abc</preview>`},
			want:  []bool{false, false, false, false, false},
		},
		{
			name:  "empty_preview",
			lines: []string{`<?xml version="1.0"?>`, `<xournal>`, `<title>t</title>`, `<preview></preview>`},
			want:  []bool{false, false, false, false},
		},
		{
			name:  "no_declaration",
			lines: []string{`<xournal>`, `<title>t</title>`, `<preview>abc</preview>`},
			want:  []bool{false, false, false},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var f previewFilter
			var got []bool
			for _, line := range tt.lines {
				got = append(got, f.skip([]byte(line+"\n")))
			}
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestIndexMultipleMarkers(t *testing.T) {
	ctx := context.Background()
	var buf bytes.Buffer
	logger := hclog.New(&hclog.LoggerOptions{Output: &buf, Level: hclog.Warn})
	ix := newTestIndexer(t, logger)

	h1 := lineage.Of([]byte("one"))
	h2 := lineage.Of([]byte("two"))
	content := doc(false, string(h1), "1 1 2 2", "FROM:"+string(h2))
	writeDoc(t, ix, "twice.xopp", content)

	res, err := ix.Index(ctx, "twice.xopp")
	require.NoError(t, err)
	assert.Equal(t, lineage.From(h1), res.Lineage)
	require.Len(t, res.Warnings, 1)
	assert.ErrorIs(t, res.Warnings[0], lineage.ErrMultipleMarkers)
	assert.Contains(t, buf.String(), "multiple lineage markers")
	assert.Contains(t, buf.String(), "twice.xopp")

	rec, err := ix.Tx.File(ctx, res.Hash)
	require.NoError(t, err)
	assert.Equal(t, lineage.From(h1), rec.Lineage)
}

func TestCommit(t *testing.T) {
	ctx := context.Background()
	ix := newTestIndexer(t, nil)
	writeDoc(t, ix, "v1.xopp", doc(true, "", "1 1 2 2"))

	parent, child, err := ix.Commit(ctx, "v1.xopp", "v2.xopp")
	require.NoError(t, err)
	assert.NotEqual(t, parent, child)

	rec, err := ix.Tx.File(ctx, child)
	require.NoError(t, err)
	assert.Equal(t, lineage.From(parent), rec.Lineage)

	content, err := xopp.ReadAll(ix.FS, "v2.xopp")
	require.NoError(t, err)
	assert.Equal(t, 1, strings.Count(string(content), "FROM:"))
	assert.Contains(t, string(content), "FROM:"+string(parent))

	kids, err := ix.Tx.Children(ctx, parent)
	require.NoError(t, err)
	require.Len(t, kids, 1)
	assert.Equal(t, child, kids[0].Hash)

	t.Run("chain_rewrites_marker", func(t *testing.T) {
		p2, grandchild, err := ix.Commit(ctx, "v2.xopp", "v3.xopp")
		require.NoError(t, err)
		assert.Equal(t, child, p2)

		content, err := xopp.ReadAll(ix.FS, "v3.xopp")
		require.NoError(t, err)
		assert.Equal(t, 1, strings.Count(string(content), "FROM:"))
		assert.Contains(t, string(content), "FROM:"+string(child))

		ancestors, err := ix.Ancestors(ctx, grandchild)
		require.NoError(t, err)
		require.Len(t, ancestors, 2)
		assert.Equal(t, child, ancestors[0].Hash)
		assert.Equal(t, parent, ancestors[1].Hash)
	})

	t.Run("parsable_after_derive", func(t *testing.T) {
		d, err := xopp.Load(ix.FS, "v2.xopp")
		require.NoError(t, err)
		require.Len(t, d.Pages, 1)
		require.Len(t, d.Pages[0].Layers, 1)
		assert.Len(t, d.Pages[0].Layers[0].Items, 2)
	})
}

func TestDerive(t *testing.T) {
	ix := newTestIndexer(t, nil)
	h1 := lineage.Of([]byte("one"))
	h2 := lineage.Of([]byte("two"))

	t.Run("no_layer", func(t *testing.T) {
		writeDoc(t, ix, "empty.xopp", header+"<page width=\"1\" height=\"1\">\n</page>\n</xournal>\n")
		_, err := ix.Derive("empty.xopp", "out.xopp", lineage.From(h1))
		assert.ErrorIs(t, err, lineage.ErrNoLayer)
		exists, _ := afero.Exists(ix.FS, "out.xopp")
		assert.False(t, exists)
	})

	t.Run("blank_document", func(t *testing.T) {
		writeDoc(t, ix, "blank.xopp", header+"<page width=\"1\" height=\"1\">\n<layer/>\n</page>\n</xournal>\n")
		n, err := ix.Derive("blank.xopp", "blank2.xopp", lineage.From(h1))
		require.NoError(t, err)
		assert.Equal(t, 0, n)

		d, err := xopp.Load(ix.FS, "blank2.xopp")
		require.NoError(t, err)
		require.Len(t, d.Pages, 1)
		require.Len(t, d.Pages[0].Layers, 1)
		require.Len(t, d.Pages[0].Layers[0].Items, 1)
		assert.Equal(t, []lineage.Lineage{lineage.From(h1)}, lineage.Find([]byte(d.Pages[0].Layers[0].Items[0])))
	})

	t.Run("merge_lineage", func(t *testing.T) {
		writeDoc(t, ix, "m.xopp", doc(false, string(h1), "1 1 2 2"))
		n, err := ix.Derive("m.xopp", "m2.xopp", lineage.From(h1, h2))
		require.NoError(t, err)
		assert.Equal(t, 1, n)

		content, err := xopp.ReadAll(ix.FS, "m2.xopp")
		require.NoError(t, err)
		found := lineage.Find(content)
		require.Len(t, found, 1)
		assert.Equal(t, lineage.From(h1, h2), found[0])
	})

	t.Run("extra_markers_removed", func(t *testing.T) {
		writeDoc(t, ix, "x.xopp", doc(false, string(h1), "1 1 2 2")+
			lineage.DefaultTemplate.Element(lineage.From(h2))+"\n")
		n, err := ix.Derive("x.xopp", "x2.xopp", lineage.From(h2))
		require.NoError(t, err)
		assert.Equal(t, 2, n)

		content, err := xopp.ReadAll(ix.FS, "x2.xopp")
		require.NoError(t, err)
		assert.Equal(t, []lineage.Lineage{lineage.From(h2)}, lineage.Find(content))
	})

	t.Run("none_lineage", func(t *testing.T) {
		writeDoc(t, ix, "n.xopp", doc(false, "", "1 1 2 2"))
		_, err := ix.Derive("n.xopp", "n2.xopp", lineage.Lineage{})
		assert.Error(t, err)
	})
}

func TestRestore(t *testing.T) {
	ctx := context.Background()
	ix := newTestIndexer(t, nil)

	tests := []struct {
		name    string
		content string
	}{
		{name: "plain", content: doc(false, "", "1 1 2 2", "1 1 2 2")},
		{name: "no_trailing_newline", content: strings.TrimSuffix(doc(false, "", "1 1"), "\n")},
		{name: "blank_lines", content: header + "\n\n" + pageOpen + footer},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			writeDoc(t, ix, tt.name+".xopp", tt.content)
			res, err := ix.Index(ctx, tt.name+".xopp")
			require.NoError(t, err)

			var buf bytes.Buffer
			require.NoError(t, ix.Restore(ctx, res.Hash, &buf))
			assert.Equal(t, tt.content, buf.String())

			out := tt.name + ".restored.xopp"
			require.NoError(t, ix.RestoreFile(ctx, res.Hash, out))
			again, err := ix.Index(ctx, out)
			require.NoError(t, err)
			assert.Equal(t, res.Hash, again.Hash)
		})
	}

	t.Run("preview_dropped", func(t *testing.T) {
		writeDoc(t, ix, "p.xopp", doc(true, "", "7 7"))
		res, err := ix.Index(ctx, "p.xopp")
		require.NoError(t, err)

		var buf bytes.Buffer
		require.NoError(t, ix.Restore(ctx, res.Hash, &buf))
		assert.Equal(t, doc(false, "", "7 7"), buf.String())
	})

	t.Run("unknown", func(t *testing.T) {
		var buf bytes.Buffer
		err := ix.Restore(ctx, lineage.Of([]byte("missing")), &buf)
		assert.ErrorIs(t, err, store.ErrUnknownFile)
	})
}

// history indexes base, two edits of it and their merge.
type history struct {
	base, left, right, merged lineage.Hash
}

func buildHistory(t *testing.T, ix *Indexer) history {
	t.Helper()
	ctx := context.Background()
	index := func(name, content string) lineage.Hash {
		writeDoc(t, ix, name, content)
		res, err := ix.Index(ctx, name)
		require.NoError(t, err)
		return res.Hash
	}

	var h history
	h.base = index("base.xopp", doc(false, "", "1 1"))
	h.left = index("left.xopp", doc(false, string(h.base), "1 1", "2 2"))
	h.right = index("right.xopp", doc(false, string(h.base), "1 1", "3 3"))
	h.merged = index("merged.xopp", doc(false, string(h.left)+","+string(h.right), "1 1", "2 2", "3 3"))
	return h
}

func TestCommonAncestor(t *testing.T) {
	ctx := context.Background()
	ix := newTestIndexer(t, nil)
	h := buildHistory(t, ix)

	tests := []struct {
		name string
		a, b lineage.Hash
		want lineage.Hash
	}{
		{name: "siblings", a: h.left, b: h.right, want: h.base},
		{name: "symmetric", a: h.right, b: h.left, want: h.base},
		{name: "merge_and_side", a: h.merged, b: h.left, want: h.left},
		{name: "side_and_merge", a: h.right, b: h.merged, want: h.right},
		{name: "self", a: h.left, b: h.left, want: h.left},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ix.CommonAncestor(ctx, tt.a, tt.b)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}

	t.Run("unrelated", func(t *testing.T) {
		writeDoc(t, ix, "other.xopp", doc(false, "", "9 9"))
		res, err := ix.Index(ctx, "other.xopp")
		require.NoError(t, err)
		_, err = ix.CommonAncestor(ctx, h.left, res.Hash)
		assert.ErrorIs(t, err, ErrNoCommonAncestor)
	})

	t.Run("ancestors_nearest_first", func(t *testing.T) {
		recs, err := ix.Ancestors(ctx, h.merged)
		require.NoError(t, err)
		var got []lineage.Hash
		for _, r := range recs {
			got = append(got, r.Hash)
		}
		assert.Equal(t, []lineage.Hash{h.left, h.right, h.base}, got)
	})
}

func TestBlame(t *testing.T) {
	ctx := context.Background()
	ix := newTestIndexer(t, nil)
	h := buildHistory(t, ix)

	lines, err := ix.Blame(ctx, h.merged)
	require.NoError(t, err)

	origin := map[string]lineage.Hash{}
	for i, bl := range lines {
		assert.Equal(t, i+1, bl.Number)
		origin[bl.Text] = bl.Origin
	}
	assert.Equal(t, h.base, origin[strings.TrimSuffix(stroke("1 1"), "\n")])
	assert.Equal(t, h.left, origin[strings.TrimSuffix(stroke("2 2"), "\n")])
	assert.Equal(t, h.right, origin[strings.TrimSuffix(stroke("3 3"), "\n")])
	assert.Equal(t, h.base, origin["</xournal>"])

	marker := lineage.DefaultTemplate.Element(lineage.From(h.left, h.right))
	assert.Equal(t, h.merged, origin[marker])

	t.Run("unindexed_parent", func(t *testing.T) {
		ghost := lineage.Of([]byte("never indexed"))
		writeDoc(t, ix, "orphan.xopp", doc(false, string(ghost), "1 1"))
		res, err := ix.Index(ctx, "orphan.xopp")
		require.NoError(t, err)

		lines, err := ix.Blame(ctx, res.Hash)
		require.NoError(t, err)
		for _, bl := range lines {
			assert.Equal(t, res.Hash, bl.Origin)
		}
	})
}

func TestResolve(t *testing.T) {
	ctx := context.Background()
	ix := newTestIndexer(t, nil)
	writeDoc(t, ix, "a.xopp", doc(false, "", "1 1"))

	byPath, err := ix.Resolve(ctx, "a.xopp")
	require.NoError(t, err)

	byHash, err := ix.Resolve(ctx, string(byPath))
	require.NoError(t, err)
	assert.Equal(t, byPath, byHash)

	_, err = ix.Resolve(ctx, string(lineage.Of([]byte("nothing"))))
	assert.ErrorIs(t, err, ErrUnknownRevision)

	_, err = ix.Resolve(ctx, "missing.xopp")
	assert.ErrorIs(t, err, xopp.ErrIO)
}
