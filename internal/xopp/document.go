// Package xopp reads and writes xournal++ documents: gzip-compressed XML
// with a root <xournal> element holding a title and a list of pages.
//
// Items inside a layer (strokes, text, images) and page backgrounds are
// kept as opaque serialized elements. Their exact text is their identity;
// the model never looks inside them.
package xopp

import "sort"

const (
	// Creator is written into the root element on save.
	Creator = "xournal++ mergetool"
	// FileVersion is written into the root element on save.
	FileVersion = "4"
)

// Document is a parsed xournal++ file.
type Document struct {
	// Name is the path the document was loaded from. It is not saved.
	Name  string
	Title string
	Pages []Page
}

// Page holds page attributes (size, id, ...), an optional background and
// its layers in order.
type Page struct {
	Attrs      map[string]string
	Background *string
	Layers     []Layer
}

// Layer is an unordered collection of items.
type Layer struct {
	Attrs map[string]string
	Items []Item
}

// Item is a serialized element such as <stroke>, <text> or <image>.
type Item string

// NewPage returns a page with n empty layers.
func NewPage(attrs map[string]string, n int) Page {
	if attrs == nil {
		attrs = map[string]string{}
	}
	p := Page{Attrs: attrs, Layers: make([]Layer, n)}
	for i := range p.Layers {
		p.Layers[i].Attrs = map[string]string{}
	}
	return p
}

// ItemCount returns the number of items across all layers of the page.
func (p Page) ItemCount() int {
	n := 0
	for _, l := range p.Layers {
		n += len(l.Items)
	}
	return n
}

func sortedKeys(m map[string]string) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
