package cmd

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"strings"

	"github.com/xoppmerge/xoppmerge/internal/format"
	"github.com/xoppmerge/xoppmerge/internal/store"
)

// LogCommand lists the ancestry of a revision.
type LogCommand struct {
	*Meta

	flagDB string
}

func (c *LogCommand) Synopsis() string {
	return "List a revision and its indexed ancestors"
}

func (c *LogCommand) Help() string {
	return `Usage: xoppmerge log [options] <hash|file>

  Prints the revision followed by its ancestors, nearest first. A file
  argument is indexed first.` + flagHelp(c.Flags())
}

func (c *LogCommand) Flags() *flag.FlagSet {
	f := newFlagSet("log")
	storeFlag(f, &c.flagDB)
	return f
}

func (c *LogCommand) Run(args []string) int {
	f := c.Flags()
	if code, ok := c.parse(f, args); !ok {
		return code
	}
	if f.NArg() != 1 {
		return c.fail(errors.New("exactly one hash or file is required"))
	}

	ctx := context.Background()
	s, err := c.open(ctx, c.flagDB)
	if err != nil {
		return c.fail(err)
	}
	defer s.close()

	hash, err := s.ix.Resolve(ctx, f.Arg(0))
	if err != nil {
		return c.fail(err)
	}
	head, err := s.tx.File(ctx, hash)
	if err != nil {
		return c.fail(err)
	}
	ancestors, err := s.ix.Ancestors(ctx, hash)
	if err != nil {
		return c.fail(err)
	}
	if err := s.commit(); err != nil {
		return c.fail(err)
	}

	for _, rec := range append([]*store.FileRecord{head}, ancestors...) {
		c.UI.Output(logEntry(rec))
	}
	return 0
}

func logEntry(rec *store.FileRecord) string {
	var b strings.Builder
	fmt.Fprintf(&b, "%s  %s  %s",
		format.Hash(string(rec.Hash)),
		format.Faint.Paint(rec.IndexedAt.Format("2006-01-02 15:04:05")),
		rec.Filename)
	switch len(rec.Lineage.Parents) {
	case 0:
	case 1:
		fmt.Fprintf(&b, "\n    from %s", format.ShortHash(string(rec.Lineage.Parents[0])))
	default:
		fmt.Fprintf(&b, "\n    merge of %s + %s",
			format.ShortHash(string(rec.Lineage.Parents[0])), format.ShortHash(string(rec.Lineage.Parents[1])))
	}
	return b.String()
}
