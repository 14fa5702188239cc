package cmd

import (
	"bytes"
	"context"
	"errors"
	"flag"
	"fmt"

	"github.com/xoppmerge/xoppmerge/internal/format"
	"github.com/xoppmerge/xoppmerge/internal/lineage"
	"github.com/xoppmerge/xoppmerge/internal/merge"
	"github.com/xoppmerge/xoppmerge/internal/xopp"
)

// AutomergeCommand merges two revisions using their common ancestor from
// the store as the root.
type AutomergeCommand struct {
	*Meta

	flagDB      string
	flagLeft    string
	flagRight   string
	flagOut     string
	flagVerbose bool
}

func (c *AutomergeCommand) Synopsis() string {
	return "Merge two documents against their common ancestor in the store"
}

func (c *AutomergeCommand) Help() string {
	return `Usage: xoppmerge automerge [options] -left <file> -right <file> -out <file>

  Indexes both documents, follows their lineage markers back to the
  nearest revision they share and merges them against it. The output
  carries a marker naming both inputs and is indexed too. Prints
  "left + right -> merged".` + flagHelp(c.Flags())
}

func (c *AutomergeCommand) Flags() *flag.FlagSet {
	f := newFlagSet("automerge")
	storeFlag(f, &c.flagDB)
	f.StringVar(&c.flagLeft, "left", "", "(Required) First document. Wins conflicts.")
	f.StringVar(&c.flagRight, "right", "", "(Required) Second document.")
	f.StringVar(&c.flagOut, "out", "", "(Required) Output document.")
	f.BoolVar(&c.flagVerbose, "verbose", false, "Print per-page item counts.")
	return f
}

func (c *AutomergeCommand) Run(args []string) int {
	if code, ok := c.parse(c.Flags(), args); !ok {
		return code
	}
	if c.flagLeft == "" || c.flagRight == "" || c.flagOut == "" {
		return c.fail(errors.New("left, right and out flags are required"))
	}
	c.verbose(c.flagVerbose)

	ctx := context.Background()
	s, err := c.open(ctx, c.flagDB)
	if err != nil {
		return c.fail(err)
	}
	defer s.close()

	left, err := s.ix.Index(ctx, c.flagLeft)
	if err != nil {
		return c.fail(err)
	}
	right, err := s.ix.Index(ctx, c.flagRight)
	if err != nil {
		return c.fail(err)
	}
	base, err := s.ix.CommonAncestor(ctx, left.Hash, right.Hash)
	if err != nil {
		return c.fail(err)
	}
	c.logger().Debug("common ancestor", "hash", base)

	var buf bytes.Buffer
	if err := s.ix.Restore(ctx, base, &buf); err != nil {
		return c.fail(err)
	}
	root, err := xopp.Decode(&buf, string(base))
	if err != nil {
		return c.fail(err)
	}
	a, err := xopp.Load(c.FS, c.flagLeft)
	if err != nil {
		return c.fail(err)
	}
	b, err := xopp.Load(c.FS, c.flagRight)
	if err != nil {
		return c.fail(err)
	}

	merged, err := merge.Document(root, a, b)
	if err != nil {
		return c.fail(err)
	}
	if err := xopp.Save(c.FS, merged, c.flagOut); err != nil {
		return c.fail(err)
	}
	if _, err := s.ix.Derive(c.flagOut, c.flagOut, lineage.From(left.Hash, right.Hash)); err != nil {
		return c.fail(err)
	}
	res, err := s.ix.Index(ctx, c.flagOut)
	if err != nil {
		return c.fail(err)
	}
	if err := s.commit(); err != nil {
		return c.fail(err)
	}

	if c.flagVerbose {
		c.UI.Output(fmt.Sprintf("base %s", format.Hash(string(base))))
		c.UI.Output(format.MergeSummary(root, a, b, merged))
	}
	c.UI.Output(fmt.Sprintf("%s + %s -> %s",
		format.Hash(string(left.Hash)), format.Hash(string(right.Hash)), format.Hash(string(res.Hash))))
	return 0
}
