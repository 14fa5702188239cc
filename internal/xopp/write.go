package xopp

import (
	"compress/gzip"
	"fmt"
	"io"
	"strings"

	"github.com/beevik/etree"
	"github.com/spf13/afero"
)

// Save writes doc to path as a compressed document.
func Save(fs afero.Fs, doc *Document, path string) error {
	tree, err := build(doc)
	if err != nil {
		return formatErr(path, "cannot serialize", err)
	}
	wc, err := CreateContainer(fs, path)
	if err != nil {
		return err
	}
	if _, err := tree.WriteTo(wc); err != nil {
		wc.Close()
		return ioErr("write", path, err)
	}
	return wc.Close()
}

// Write writes doc to w as a compressed document.
func Write(w io.Writer, doc *Document) error {
	gz := gzip.NewWriter(w)
	if err := Encode(gz, doc); err != nil {
		gz.Close()
		return err
	}
	if err := gz.Close(); err != nil {
		return ioErr("write", doc.Name, err)
	}
	return nil
}

// Encode writes doc to w as indented, uncompressed XML. The output is
// deterministic: attributes are sorted and each item sits on its own line.
func Encode(w io.Writer, doc *Document) error {
	tree, err := build(doc)
	if err != nil {
		return formatErr(doc.Name, "cannot serialize", err)
	}
	if _, err := tree.WriteTo(w); err != nil {
		return ioErr("write", doc.Name, err)
	}
	return nil
}

func build(doc *Document) (*etree.Document, error) {
	tree := etree.NewDocument()
	tree.CreateProcInst("xml", `version="1.0" encoding="UTF-8"`)
	tree.CreateText("\n")

	root := tree.CreateElement("xournal")
	root.CreateAttr("creator", Creator)
	root.CreateAttr("fileversion", FileVersion)
	indent(root, 1)
	root.CreateElement("title").SetText(doc.Title)

	for i, page := range doc.Pages {
		indent(root, 1)
		pe := root.CreateElement("page")
		setAttrs(pe, page.Attrs)
		if page.Background != nil {
			bg, err := parseFragment(*page.Background)
			if err != nil {
				return nil, fmt.Errorf("page %d background: %w", i, err)
			}
			indent(pe, 2)
			pe.AddChild(bg)
		}
		for j, layer := range page.Layers {
			indent(pe, 2)
			le := pe.CreateElement("layer")
			setAttrs(le, layer.Attrs)
			for k, item := range layer.Items {
				el, err := parseFragment(string(item))
				if err != nil {
					return nil, fmt.Errorf("page %d layer %d item %d: %w", i, j, k, err)
				}
				indent(le, 3)
				le.AddChild(el)
			}
			if len(layer.Items) > 0 {
				indent(le, 2)
			}
		}
		if len(pe.Child) > 0 {
			indent(pe, 1)
		}
	}
	indent(root, 0)
	tree.CreateText("\n")
	return tree, nil
}

// indent adds the line break and indentation that precede a child at
// depth. Items are attached verbatim so their own whitespace survives.
func indent(el *etree.Element, depth int) {
	el.CreateText("\n" + strings.Repeat("  ", depth))
}

func setAttrs(el *etree.Element, attrs map[string]string) {
	for _, k := range sortedKeys(attrs) {
		el.CreateAttr(k, attrs[k])
	}
}

func parseFragment(s string) (*etree.Element, error) {
	d := etree.NewDocument()
	if err := d.ReadFromString(s); err != nil {
		return nil, err
	}
	root := d.Root()
	if root == nil {
		return nil, fmt.Errorf("no element in %q", s)
	}
	if n := len(d.ChildElements()); n != 1 {
		return nil, fmt.Errorf("want one element, got %d in %q", n, s)
	}
	return root, nil
}
