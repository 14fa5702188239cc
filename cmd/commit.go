package cmd

import (
	"context"
	"errors"
	"flag"
	"fmt"

	"github.com/xoppmerge/xoppmerge/internal/format"
	"github.com/xoppmerge/xoppmerge/internal/xopp"
)

// CommitCommand derives a new revision from a document.
type CommitCommand struct {
	*Meta

	flagDB      string
	flagInput   string
	flagOutput  string
	flagVerbose bool
}

func (c *CommitCommand) Synopsis() string {
	return "Index a document and derive a new revision stamped with its hash"
}

func (c *CommitCommand) Help() string {
	return `Usage: xoppmerge commit [options] -output <file>

  Indexes the input, writes a copy of it whose lineage marker names the
  input's hash, and indexes the copy. Prints both hashes.` + flagHelp(c.Flags())
}

func (c *CommitCommand) Flags() *flag.FlagSet {
	f := newFlagSet("commit")
	storeFlag(f, &c.flagDB)
	f.StringVar(&c.flagInput, "input", "root.xopp", "Document to derive from.")
	f.StringVar(&c.flagOutput, "output", "", "(Required) Derived document to write.")
	f.BoolVar(&c.flagVerbose, "verbose", false, "Show what changed between input and output.")
	return f
}

func (c *CommitCommand) Run(args []string) int {
	if code, ok := c.parse(c.Flags(), args); !ok {
		return code
	}
	if c.flagOutput == "" {
		return c.fail(errors.New("output flag is required"))
	}
	c.verbose(c.flagVerbose)

	ctx := context.Background()
	s, err := c.open(ctx, c.flagDB)
	if err != nil {
		return c.fail(err)
	}
	defer s.close()

	parent, child, err := s.ix.Commit(ctx, c.flagInput, c.flagOutput)
	if err != nil {
		return c.fail(err)
	}
	if err := s.commit(); err != nil {
		return c.fail(err)
	}

	if c.flagVerbose {
		if err := c.showDiff(); err != nil {
			return c.fail(err)
		}
	}
	c.UI.Output(fmt.Sprintf("%s -> %s", format.Hash(string(parent)), format.Hash(string(child))))
	return 0
}

func (c *CommitCommand) showDiff() error {
	before, err := xopp.ReadAll(c.FS, c.flagInput)
	if err != nil {
		return err
	}
	after, err := xopp.ReadAll(c.FS, c.flagOutput)
	if err != nil {
		return err
	}
	c.UI.Output(format.SideBySide(c.flagInput, c.flagOutput, string(before), string(after), format.TermWidth(), true))
	return nil
}
