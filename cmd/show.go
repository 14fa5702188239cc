package cmd

import (
	"context"
	"errors"
	"flag"
	"fmt"

	"github.com/xoppmerge/xoppmerge/internal/format"
	"github.com/xoppmerge/xoppmerge/internal/lineage"
)

// ShowCommand restores a stored revision to a file.
type ShowCommand struct {
	*Meta

	flagDB  string
	flagOut string
}

func (c *ShowCommand) Synopsis() string {
	return "Write a stored revision to a document"
}

func (c *ShowCommand) Help() string {
	return `Usage: xoppmerge show [options] -out <file> <hash>

  Rebuilds the revision from the line store. The result indexes to the
  same hash; it has no preview image until the editor saves it again.` + flagHelp(c.Flags())
}

func (c *ShowCommand) Flags() *flag.FlagSet {
	f := newFlagSet("show")
	storeFlag(f, &c.flagDB)
	f.StringVar(&c.flagOut, "out", "", "(Required) Document to write.")
	return f
}

func (c *ShowCommand) Run(args []string) int {
	f := c.Flags()
	if code, ok := c.parse(f, args); !ok {
		return code
	}
	if c.flagOut == "" || f.NArg() != 1 {
		return c.fail(errors.New("an output file and one hash are required"))
	}
	hash, err := lineage.ParseHash(f.Arg(0))
	if err != nil {
		return c.fail(err)
	}

	ctx := context.Background()
	s, err := c.open(ctx, c.flagDB)
	if err != nil {
		return c.fail(err)
	}
	defer s.close()

	if err := s.ix.RestoreFile(ctx, hash, c.flagOut); err != nil {
		return c.fail(err)
	}
	c.UI.Output(fmt.Sprintf("%s -> %s", format.Hash(string(hash)), c.flagOut))
	return 0
}
