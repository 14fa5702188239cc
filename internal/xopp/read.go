package xopp

import (
	"compress/gzip"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/beevik/etree"
	"github.com/spf13/afero"
)

// Load reads the compressed document at path.
func Load(fs afero.Fs, path string) (*Document, error) {
	rc, err := OpenContainer(fs, path)
	if err != nil {
		return nil, err
	}
	defer rc.Close()
	return Decode(rc, path)
}

// Read parses a compressed document from r. name is used in errors and as
// Document.Name.
func Read(r io.Reader, name string) (*Document, error) {
	gz, err := gzip.NewReader(r)
	if err != nil {
		return nil, formatErr(name, "not a gzip container", err)
	}
	defer gz.Close()
	return Decode(gz, name)
}

// Decode parses an uncompressed document from r. The preview thumbnail
// is dropped.
func Decode(r io.Reader, name string) (*Document, error) {
	tree := etree.NewDocument()
	if _, err := tree.ReadFrom(r); err != nil {
		var ioe *IOError
		if errors.As(err, &ioe) {
			return nil, err
		}
		return nil, formatErr(name, "invalid XML", err)
	}

	root := tree.Root()
	if root == nil || root.Tag != "xournal" {
		return nil, formatErr(name, "missing <xournal> root element", nil)
	}

	doc := &Document{Name: name}
	if title := root.SelectElement("title"); title != nil {
		doc.Title = title.Text()
	}

	for _, el := range root.ChildElements() {
		if el.Tag != "page" {
			// title, preview and anything newer than we know about
			continue
		}
		page, err := decodePage(el)
		if err != nil {
			return nil, formatErr(name, fmt.Sprintf("page %d", len(doc.Pages)), err)
		}
		doc.Pages = append(doc.Pages, page)
	}
	return doc, nil
}

func decodePage(el *etree.Element) (Page, error) {
	page := Page{Attrs: attrMap(el)}
	for _, child := range el.ChildElements() {
		switch child.Tag {
		case "layer":
			layer := Layer{Attrs: attrMap(child)}
			for _, item := range child.ChildElements() {
				s, err := fragment(item)
				if err != nil {
					return Page{}, err
				}
				layer.Items = append(layer.Items, Item(s))
			}
			page.Layers = append(page.Layers, layer)
		case "background":
			s, err := fragment(child)
			if err != nil {
				return Page{}, err
			}
			page.Background = &s
		default:
			return Page{}, fmt.Errorf("unexpected element <%s>", child.FullTag())
		}
	}
	return page, nil
}

func attrMap(el *etree.Element) map[string]string {
	m := make(map[string]string, len(el.Attr))
	for _, a := range el.Attr {
		m[a.FullKey()] = a.Value
	}
	return m
}

// fragment serializes a single element on its own, without the
// surrounding whitespace of the source file.
func fragment(el *etree.Element) (string, error) {
	d := etree.NewDocument()
	d.SetRoot(el.Copy())
	s, err := d.WriteToString()
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(s), nil
}
