package cmd

import (
	"context"
	"errors"
	"flag"

	"github.com/xoppmerge/xoppmerge/internal/format"
)

// IndexCommand records a document in the store and prints its hash.
type IndexCommand struct {
	*Meta

	flagDB   string
	flagFile string
}

func (c *IndexCommand) Synopsis() string {
	return "Record a document in the store and print its hash"
}

func (c *IndexCommand) Help() string {
	return `Usage: xoppmerge index [options] <file>

  Splits the document into lines, stores each distinct line once and
  records the revision under a hash of its content. The preview image is
  left out. A lineage marker in the document links the revision to its
  parents.` + flagHelp(c.Flags())
}

func (c *IndexCommand) Flags() *flag.FlagSet {
	f := newFlagSet("index")
	storeFlag(f, &c.flagDB)
	f.StringVar(&c.flagFile, "file", "", "Document to index. May also be given as an argument.")
	return f
}

func (c *IndexCommand) Run(args []string) int {
	f := c.Flags()
	if code, ok := c.parse(f, args); !ok {
		return code
	}
	path := c.flagFile
	if path == "" {
		path = f.Arg(0)
	}
	if path == "" {
		return c.fail(errors.New("a document to index is required"))
	}

	ctx := context.Background()
	s, err := c.open(ctx, c.flagDB)
	if err != nil {
		return c.fail(err)
	}
	defer s.close()

	res, err := s.ix.Index(ctx, path)
	if err != nil {
		return c.fail(err)
	}
	if err := s.commit(); err != nil {
		return c.fail(err)
	}

	c.UI.Output(format.Hash(string(res.Hash)))
	return 0
}
