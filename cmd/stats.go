package cmd

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"

	"github.com/xoppmerge/xoppmerge/internal/format"
	"github.com/xoppmerge/xoppmerge/internal/store"
)

// StatsCommand summarizes the store.
type StatsCommand struct {
	*Meta

	flagDB   string
	flagJSON bool
}

func (c *StatsCommand) Synopsis() string {
	return "Summary statistics of the store"
}

func (c *StatsCommand) Help() string {
	return `Usage: xoppmerge stats [options]` + flagHelp(c.Flags())
}

func (c *StatsCommand) Flags() *flag.FlagSet {
	f := newFlagSet("stats")
	storeFlag(f, &c.flagDB)
	f.BoolVar(&c.flagJSON, "json", false, "Output as JSON.")
	return f
}

func (c *StatsCommand) Run(args []string) int {
	if code, ok := c.parse(c.Flags(), args); !ok {
		return code
	}

	ctx := context.Background()
	s, err := c.open(ctx, c.flagDB)
	if err != nil {
		return c.fail(err)
	}
	defer s.close()

	st, err := s.tx.Stats(ctx)
	if err != nil {
		return c.fail(err)
	}

	if c.flagJSON {
		b, err := json.MarshalIndent(st, "", "  ")
		if err != nil {
			return c.fail(err)
		}
		c.UI.Output(string(b))
		return 0
	}

	c.UI.Output(format.Heading.Paint("xoppmerge statistics") + "\n")
	c.UI.Output(fmt.Sprintf("  Distinct lines:   %d", st.Lines))
	c.UI.Output(fmt.Sprintf("  Line references:  %d (%s)", st.LineRefs, ratio(st)))
	c.UI.Output(fmt.Sprintf("  Revisions:        %d", st.Files))
	c.UI.Output(fmt.Sprintf("  With lineage:     %d", st.Derived))
	c.UI.Output(fmt.Sprintf("  Merges:           %d", st.Merges))
	c.UI.Output(fmt.Sprintf("  First indexed:    %s", orNA(st.FirstSeen)))
	c.UI.Output(fmt.Sprintf("  Last indexed:     %s", orNA(st.LastSeen)))
	return 0
}

// ratio reports how many references each stored line serves on average.
func ratio(st store.Stats) string {
	if st.Lines == 0 {
		return "n/a"
	}
	return fmt.Sprintf("%.2fx dedup", float64(st.LineRefs)/float64(st.Lines))
}

func orNA(s string) string {
	if s == "" {
		return "n/a"
	}
	return s
}
