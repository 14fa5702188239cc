package cmd

import (
	"flag"
	"fmt"
	"strings"

	"github.com/xoppmerge/xoppmerge/internal/format"
	"github.com/xoppmerge/xoppmerge/internal/merge"
	"github.com/xoppmerge/xoppmerge/internal/xopp"
)

// MergeCommand merges two documents derived from a common root.
type MergeCommand struct {
	*Meta

	flagRoot    string
	flagLeft    string
	flagRight   string
	flagOut     string
	flagPage    int
	flagVerbose bool
}

func (c *MergeCommand) Synopsis() string {
	return "Three-way merge of two documents with a common root"
}

func (c *MergeCommand) Help() string {
	return `Usage: xoppmerge merge [options]

  Merges left and right, both derived from root, and writes the result.
  Items added on either side are kept; an item is dropped only when both
  sides dropped it. Where both sides changed the same attribute or
  background, left wins.` + flagHelp(c.Flags())
}

func (c *MergeCommand) Flags() *flag.FlagSet {
	f := newFlagSet("merge")
	f.StringVar(&c.flagRoot, "root", "root.xopp", "Common ancestor document.")
	f.StringVar(&c.flagLeft, "left", "a.xopp", "First derived document. Wins conflicts.")
	f.StringVar(&c.flagRight, "right", "b.xopp", "Second derived document.")
	f.StringVar(&c.flagOut, "out", "merged.xopp", "Output document.")
	f.IntVar(&c.flagPage, "page", 0, "Merge only this page (1-based). 0 merges every page.")
	f.BoolVar(&c.flagVerbose, "verbose", false, "Print the input and output structure.")
	return f
}

func (c *MergeCommand) Run(args []string) int {
	if code, ok := c.parse(c.Flags(), args); !ok {
		return code
	}
	c.verbose(c.flagVerbose)

	var docs [3]*xopp.Document
	for i, path := range []string{c.flagRoot, c.flagLeft, c.flagRight} {
		doc, err := xopp.Load(c.FS, path)
		if err != nil {
			return c.fail(err)
		}
		docs[i] = doc
		if c.flagVerbose {
			c.UI.Output(fmt.Sprintf("%s\n%s\n", format.Heading.Paint(path+":"), format.DocumentTree(doc)))
		}
	}
	root, a, b := docs[0], docs[1], docs[2]

	merged, err := mergeDocuments(root, a, b, c.flagPage)
	if err != nil {
		return c.fail(err)
	}
	if err := xopp.Save(c.FS, merged, c.flagOut); err != nil {
		return c.fail(err)
	}
	c.logger().Info("merged", "out", c.flagOut, "pages", len(merged.Pages))

	if c.flagVerbose {
		c.UI.Output(fmt.Sprintf("%s\n%s\n", format.Heading.Paint(c.flagOut+":"), format.DocumentTree(merged)))
		if c.flagPage > 0 {
			root, a, b = onePage(root, c.flagPage-1), onePage(a, c.flagPage-1), onePage(b, c.flagPage-1)
		}
		c.UI.Output(format.MergeSummary(root, a, b, merged))
		content, err := xopp.ReadAll(c.FS, c.flagOut)
		if err != nil {
			return c.fail(err)
		}
		c.UI.Output(strings.TrimRight(string(content), "\n"))
	}
	return 0
}

// mergeDocuments merges every page when page is 0, else only that page.
func mergeDocuments(root, a, b *xopp.Document, page int) (*xopp.Document, error) {
	if page < 0 {
		return nil, fmt.Errorf("invalid page %d", page)
	}
	if page == 0 {
		return merge.Document(root, a, b)
	}
	return merge.SinglePage(root, a, b, page-1)
}

func onePage(doc *xopp.Document, idx int) *xopp.Document {
	return &xopp.Document{Name: doc.Name, Title: doc.Title, Pages: doc.Pages[idx : idx+1]}
}
