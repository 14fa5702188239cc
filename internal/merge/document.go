package merge

import (
	"errors"
	"fmt"

	"github.com/hashicorp/go-multierror"

	"github.com/xoppmerge/xoppmerge/internal/xopp"
)

// ErrStructuralMismatch matches any *MismatchError.
var ErrStructuralMismatch = errors.New("structural mismatch")

// MismatchError reports that root, a and b disagree on how many pages or
// layers they have, so elements cannot be paired by position.
type MismatchError struct {
	Kind       string // "pages" or "layers"
	Page       int    // page index, for layer mismatches
	Root, A, B int
}

func (e *MismatchError) Error() string {
	if e.Kind == "layers" {
		return fmt.Sprintf("page %d: layer counts differ (root %d, a %d, b %d)", e.Page, e.Root, e.A, e.B)
	}
	return fmt.Sprintf("%s counts differ (root %d, a %d, b %d)", e.Kind, e.Root, e.A, e.B)
}

func (e *MismatchError) Is(target error) bool { return target == ErrStructuralMismatch }

// Page merges one page. Background and attributes follow Atom and Dict;
// layers are paired by position and their items merged with Set.
func Page(root, a, b xopp.Page) (xopp.Page, error) {
	return mergePage(0, root, a, b)
}

func mergePage(idx int, root, a, b xopp.Page) (xopp.Page, error) {
	if len(root.Layers) != len(a.Layers) || len(root.Layers) != len(b.Layers) {
		return xopp.Page{}, &MismatchError{
			Kind: "layers", Page: idx,
			Root: len(root.Layers), A: len(a.Layers), B: len(b.Layers),
		}
	}

	out := xopp.Page{
		Attrs:      Dict(root.Attrs, a.Attrs, b.Attrs),
		Background: background(root.Background, a.Background, b.Background),
		Layers:     make([]xopp.Layer, len(root.Layers)),
	}
	for i := range root.Layers {
		out.Layers[i] = xopp.Layer{
			Attrs: Dict(root.Layers[i].Attrs, a.Layers[i].Attrs, b.Layers[i].Attrs),
			Items: Set(root.Layers[i].Items, a.Layers[i].Items, b.Layers[i].Items),
		}
	}
	return out, nil
}

func background(root, a, b *string) *string {
	opt := func(p *string) optional {
		if p == nil {
			return optional{}
		}
		return optional{value: *p, ok: true}
	}
	v := Atom(opt(root), opt(a), opt(b))
	if !v.ok {
		return nil
	}
	return &v.value
}

// Document merges whole documents, pairing pages by position. Every page
// is checked before anything is returned: if any page fails, all layer
// mismatches are reported together and no document is produced.
func Document(root, a, b *xopp.Document) (*xopp.Document, error) {
	if len(root.Pages) != len(a.Pages) || len(root.Pages) != len(b.Pages) {
		return nil, &MismatchError{
			Kind: "pages",
			Root: len(root.Pages), A: len(a.Pages), B: len(b.Pages),
		}
	}

	out := &xopp.Document{
		Title: Atom(root.Title, a.Title, b.Title),
		Pages: make([]xopp.Page, len(root.Pages)),
	}
	var result *multierror.Error
	for i := range root.Pages {
		page, err := mergePage(i, root.Pages[i], a.Pages[i], b.Pages[i])
		if err != nil {
			result = multierror.Append(result, err)
			continue
		}
		out.Pages[i] = page
	}
	if err := result.ErrorOrNil(); err != nil {
		return nil, err
	}
	return out, nil
}

// SinglePage merges only page idx of each document and returns a
// one-page document.
func SinglePage(root, a, b *xopp.Document, idx int) (*xopp.Document, error) {
	for _, d := range []*xopp.Document{root, a, b} {
		if idx < 0 || idx >= len(d.Pages) {
			return nil, fmt.Errorf("%w: page %d out of range for %s (%d pages)",
				ErrStructuralMismatch, idx, d.Name, len(d.Pages))
		}
	}
	page, err := mergePage(idx, root.Pages[idx], a.Pages[idx], b.Pages[idx])
	if err != nil {
		return nil, err
	}
	return &xopp.Document{
		Title: Atom(root.Title, a.Title, b.Title),
		Pages: []xopp.Page{page},
	}, nil
}
