package cmd

import (
	"context"
	"errors"
	"flag"
	"fmt"

	"github.com/xoppmerge/xoppmerge/internal/format"
)

// BlameCommand shows which revision introduced each line.
type BlameCommand struct {
	*Meta

	flagDB string
}

func (c *BlameCommand) Synopsis() string {
	return "Show the revision that introduced each line of a document"
}

func (c *BlameCommand) Help() string {
	return `Usage: xoppmerge blame [options] <hash|file>

  Follows every line back through the parents that still contain it and
  prints the oldest such revision next to the line.` + flagHelp(c.Flags())
}

func (c *BlameCommand) Flags() *flag.FlagSet {
	f := newFlagSet("blame")
	storeFlag(f, &c.flagDB)
	return f
}

func (c *BlameCommand) Run(args []string) int {
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
	lines, err := s.ix.Blame(ctx, hash)
	if err != nil {
		return c.fail(err)
	}
	if err := s.commit(); err != nil {
		return c.fail(err)
	}

	width := len(fmt.Sprint(len(lines)))
	for _, l := range lines {
		c.UI.Output(fmt.Sprintf("%s %*d) %s", format.ShortHash(string(l.Origin)), width, l.Number, l.Text))
	}
	return 0
}
