package format

import (
	"fmt"
	"sort"
	"strings"

	"github.com/xoppmerge/xoppmerge/internal/xopp"
)

// DocumentTree renders the page and layer structure of doc, one node per
// line. Items are counted, not printed.
func DocumentTree(doc *xopp.Document) string {
	var b strings.Builder
	title := doc.Title
	if title == "" {
		title = "(untitled)"
	}
	fmt.Fprintf(&b, "%s\n", Heading.Paint(title))

	for i, p := range doc.Pages {
		lastPage := i == len(doc.Pages)-1
		branch, indent := "├─ ", "│  "
		if lastPage {
			branch, indent = "└─ ", "   "
		}
		fmt.Fprintf(&b, "%spage %d%s", branch, i+1, attrs(p.Attrs))
		b.WriteByte('\n')

		children := len(p.Layers)
		if p.Background != nil {
			children++
		}
		n := 0
		node := func() string {
			n++
			if n == children {
				return indent + "└─ "
			}
			return indent + "├─ "
		}
		if p.Background != nil {
			fmt.Fprintf(&b, "%s%s %s\n", node(), Faint.Paint("background"), truncate(*p.Background, 48))
		}
		for j, l := range p.Layers {
			fmt.Fprintf(&b, "%slayer %d%s %s\n", node(), j+1, attrs(l.Attrs), Faint.Paint(fmt.Sprintf("(%d items)", len(l.Items))))
		}
	}
	return strings.TrimSuffix(b.String(), "\n")
}

// MergeSummary lists, per page, how many items each input had and how
// many the merge kept.
func MergeSummary(root, a, b, merged *xopp.Document) string {
	var out []string
	out = append(out, Heading.Paint(fmt.Sprintf("%-6s %6s %6s %6s %7s", "page", "root", "left", "right", "merged")))
	for i := range merged.Pages {
		out = append(out, fmt.Sprintf("%-6d %6d %6d %6d %s", i+1,
			itemCount(root, i), itemCount(a, i), itemCount(b, i),
			Kept.Paint(fmt.Sprintf("%7d", merged.Pages[i].ItemCount()))))
	}
	return strings.Join(out, "\n")
}

func itemCount(doc *xopp.Document, page int) int {
	if doc == nil || page >= len(doc.Pages) {
		return 0
	}
	return doc.Pages[page].ItemCount()
}

func attrs(m map[string]string) string {
	if len(m) == 0 {
		return ""
	}
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	var b strings.Builder
	for _, k := range keys {
		fmt.Fprintf(&b, " %s=%s", k, m[k])
	}
	return b.String()
}

func truncate(s string, w int) string {
	s = strings.Join(strings.Fields(s), " ")
	r := []rune(s)
	if len(r) <= w {
		return s
	}
	return string(r[:w-1]) + "…"
}
