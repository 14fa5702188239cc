package lineage

import (
	"bytes"
	"errors"
	"fmt"
	"regexp"
	"strconv"
	"strings"
)

var (
	// ErrNoLayer means a document has no layer to carry a new marker.
	ErrNoLayer = errors.New("no layer element to hold a lineage marker")

	// ErrMultipleMarkers is reported, never returned, when a file holds more
	// than one marker. Only the first one counts.
	ErrMultipleMarkers = errors.New("multiple lineage markers, ignoring all but first")
)

const markerPrefix = "FROM:"

var (
	markerRe        = regexp.MustCompile(`FROM:([0-9a-f]{32}(?:,[0-9a-f]{32})?)\b`)
	markerElementRe = regexp.MustCompile(`(?m)(?:^[ \t]*)?<text\b[^>]*>\s*FROM:[0-9a-f]{32}(?:,[0-9a-f]{32})?\s*</text>(?:[ \t]*\n)?`)
	layerOpenRe     = regexp.MustCompile(`<layer(?:\s[^>]*)?/?>`)
)

// Template describes the text item that carries a new marker.
type Template struct {
	Font  string
	Size  float64
	X     float64
	Y     float64
	Color string
}

// DefaultTemplate places a small black label at (100, 100).
var DefaultTemplate = Template{
	Font:  "Sans",
	Size:  12,
	X:     100,
	Y:     100,
	Color: "#000000ff",
}

var attrEscaper = strings.NewReplacer(`&`, "&amp;", `<`, "&lt;", `"`, "&quot;")

// Element renders the marker item for l.
func (t Template) Element(l Lineage) string {
	num := func(f float64) string { return strconv.FormatFloat(f, 'f', -1, 64) }
	return fmt.Sprintf(`<text font="%s" size="%s" x="%s" y="%s" color="%s" ts="0" fn="">%s%s</text>`,
		attrEscaper.Replace(t.Font), num(t.Size), num(t.X), num(t.Y),
		attrEscaper.Replace(t.Color), markerPrefix, l.Value())
}

// Find returns every marker in p, in order of appearance.
func Find(p []byte) []Lineage {
	var found []Lineage
	for _, m := range markerRe.FindAllSubmatch(p, -1) {
		l, err := ParseLineage(string(m[1]))
		if err != nil {
			continue
		}
		found = append(found, l)
	}
	return found
}

// Scanner tracks markers across the lines of one file.
type Scanner struct {
	first Lineage
	count int
}

// Scan inspects one line.
func (s *Scanner) Scan(line []byte) {
	for _, l := range Find(line) {
		if s.count == 0 {
			s.first = l
		}
		s.count++
	}
}

// Lineage returns the first marker seen, or none.
func (s *Scanner) Lineage() Lineage {
	return s.first
}

// Count returns how many markers were seen.
func (s *Scanner) Count() int {
	return s.count
}

// Rewrite stamps content with l. The first existing marker gets l as its
// value and any further markers are removed. Without a marker, a new
// marker item is inserted right after the first layer opening tag, or
// inside the first layer when every layer is self-closing. It returns the
// number of markers found in the input.
func Rewrite(content []byte, l Lineage, t Template) ([]byte, int, error) {
	if l.IsNone() {
		return nil, 0, errors.New("rewrite needs at least one parent")
	}

	locs := markerRe.FindAllSubmatchIndex(content, -1)
	if len(locs) == 0 {
		at, empty := -1, []int(nil)
		for _, loc := range layerOpenRe.FindAllIndex(content, -1) {
			if bytes.HasSuffix(content[loc[0]:loc[1]], []byte("/>")) {
				if empty == nil {
					empty = loc
				}
				continue
			}
			at = loc[1]
			break
		}
		if at < 0 && empty != nil {
			return expandLayer(content, empty, t.Element(l)), 0, nil
		}
		if at < 0 {
			return nil, 0, ErrNoLayer
		}
		if at < len(content) && content[at] == '\n' {
			at++
		}
		var out bytes.Buffer
		out.Grow(len(content) + 128)
		out.Write(content[:at])
		out.WriteString(t.Element(l))
		out.WriteByte('\n')
		out.Write(content[at:])
		return out.Bytes(), 0, nil
	}

	first := locs[0]
	rest := content[first[3]:]
	if len(locs) > 1 {
		rest = markerElementRe.ReplaceAll(rest, nil)
		rest = markerRe.ReplaceAll(rest, nil)
	}

	var out bytes.Buffer
	out.Grow(len(content))
	out.Write(content[:first[2]])
	out.WriteString(l.Value())
	out.Write(rest)
	return out.Bytes(), len(locs), nil
}

// expandLayer turns the self-closing layer tag at loc into an open and
// close pair holding elem.
func expandLayer(content []byte, loc []int, elem string) []byte {
	tag := bytes.TrimRight(content[loc[0]:loc[1]-2], " \t\r\n")
	var out bytes.Buffer
	out.Grow(len(content) + len(elem) + 16)
	out.Write(content[:loc[0]])
	out.Write(tag)
	out.WriteString(">\n")
	out.WriteString(elem)
	out.WriteString("\n</layer>")
	out.Write(content[loc[1]:])
	return out.Bytes()
}
