// Package canonical implements DB-C14N/1.0: deterministic XML emission for
// ERN element trees. Logically-equal trees produce byte-identical output
// because element and attribute order follow fixed per-version tables, text
// is NFC-normalized, and whitespace is fully specified.
package canonical

import (
	"bytes"
	"cmp"
	"fmt"
	"slices"
	"strings"

	"github.com/ddexkit/ddex/internal/xmltree"
)

// Declaration is the fixed XML declaration emitted for every document.
const Declaration = `<?xml version="1.0" encoding="UTF-8"?>`

// Config controls emission. The zero value means canonical mode with LF
// line endings.
type Config struct {
	Version     string // ERN version, selects ordering tables
	Pretty      bool   // human-readable mode, not hash-verifiable
	LineEnding  string // defaults to "\n"
	IndentWidth int    // pretty mode only, defaults to 2
	Banner      string // provenance comment emitted after the declaration
}

func (c Config) withDefaults() Config {
	c.LineEnding = cmp.Or(c.LineEnding, "\n")
	c.IndentWidth = cmp.Or(c.IndentWidth, 2)
	return c
}

// Writer emits element trees under one ordering table set.
type Writer struct {
	cfg Config
	ord Ordering
}

// NewWriter returns a writer for the given configuration.
func NewWriter(cfg Config) *Writer {
	cfg = cfg.withDefaults()
	return &Writer{cfg: cfg, ord: OrderingFor(cfg.Version)}
}

// Document emits a complete document: declaration, optional banner, root.
func (w *Writer) Document(root *xmltree.Element) ([]byte, error) {
	if root == nil {
		return nil, fmt.Errorf("canonical: nil root element")
	}
	var buf bytes.Buffer
	buf.WriteString(Declaration)
	buf.WriteString(w.cfg.LineEnding)
	if w.cfg.Banner != "" {
		buf.WriteString("<!-- ")
		buf.WriteString(escapeText(w.cfg.Banner))
		buf.WriteString(" -->")
		buf.WriteString(w.cfg.LineEnding)
	}
	if err := w.element(&buf, root, 0); err != nil {
		return nil, err
	}
	buf.WriteString(w.cfg.LineEnding)
	return buf.Bytes(), nil
}

// Fragment emits a single element with canonical rules and no declaration.
// The streaming assembler concatenates fragments; canonical mode emits no
// inter-element whitespace, so concatenation preserves document equality.
func (w *Writer) Fragment(buf *bytes.Buffer, el *xmltree.Element) error {
	if el == nil {
		return fmt.Errorf("canonical: nil element")
	}
	return w.element(buf, el, 0)
}

// OpenTag writes only the start tag of an element. Used by the streaming
// assembler for section containers whose children arrive incrementally.
func (w *Writer) OpenTag(buf *bytes.Buffer, el *xmltree.Element) {
	buf.WriteByte('<')
	buf.WriteString(el.Name)
	for _, a := range w.sortedAttrs(el) {
		buf.WriteByte(' ')
		buf.WriteString(a.Name)
		buf.WriteString(`="`)
		buf.WriteString(escapeAttr(a.Value))
		buf.WriteByte('"')
	}
	buf.WriteByte('>')
}

// CloseTag writes the end tag of an element.
func (w *Writer) CloseTag(buf *bytes.Buffer, name string) {
	buf.WriteString("</")
	buf.WriteString(name)
	buf.WriteByte('>')
}

func (w *Writer) element(buf *bytes.Buffer, el *xmltree.Element, depth int) error {
	if el.RawXML != "" {
		// Pass-through payload, replayed verbatim.
		w.indent(buf, depth)
		buf.WriteString(strings.TrimSpace(el.RawXML))
		w.newline(buf)
		return nil
	}

	w.indent(buf, depth)
	buf.WriteByte('<')
	buf.WriteString(el.Name)
	for _, a := range w.sortedAttrs(el) {
		buf.WriteByte(' ')
		buf.WriteString(a.Name)
		buf.WriteString(`="`)
		buf.WriteString(escapeAttr(a.Value))
		buf.WriteByte('"')
	}

	if len(el.Children) == 0 {
		buf.WriteString("/>")
		w.newline(buf)
		return nil
	}

	if text, ok := textOnly(el); ok {
		buf.WriteByte('>')
		buf.WriteString(escapeText(text))
		buf.WriteString("</")
		buf.WriteString(el.Name)
		buf.WriteByte('>')
		w.newline(buf)
		return nil
	}

	buf.WriteByte('>')
	w.newline(buf)
	for _, child := range w.sortedChildren(el) {
		switch c := child.(type) {
		case *xmltree.Element:
			if err := w.element(buf, c, depth+1); err != nil {
				return err
			}
		case xmltree.Text:
			w.indent(buf, depth+1)
			buf.WriteString(escapeText(string(c)))
			w.newline(buf)
		case xmltree.Comment:
			w.indent(buf, depth+1)
			buf.WriteString("<!--")
			buf.WriteString(string(c))
			buf.WriteString("-->")
			w.newline(buf)
		}
	}
	w.indent(buf, depth)
	buf.WriteString("</")
	buf.WriteString(el.Name)
	buf.WriteByte('>')
	w.newline(buf)
	return nil
}

// textOnly reports whether the element holds only text children.
func textOnly(el *xmltree.Element) (string, bool) {
	var text string
	for _, c := range el.Children {
		t, ok := c.(xmltree.Text)
		if !ok {
			return "", false
		}
		text += string(t)
	}
	return text, true
}

// sortedChildren applies the canonical child order. A comment binds to the
// element that follows it so replayed comments keep their anchor. Unknown
// elements keep input order after the known ones.
func (w *Writer) sortedChildren(el *xmltree.Element) []xmltree.Node {
	order, ok := w.ord.ChildOrder(el.Name)
	if !ok {
		return el.Children
	}
	rank := make(map[string]int, len(order))
	for i, name := range order {
		rank[name] = i
	}

	type unit struct {
		nodes []xmltree.Node
		rank  int
		input int
	}
	var units []unit
	var pending []xmltree.Node
	for i, child := range el.Children {
		c, isElem := child.(*xmltree.Element)
		if !isElem {
			pending = append(pending, child)
			continue
		}
		r := len(order)
		if c.RawXML == "" {
			if known, found := rank[c.Name]; found {
				r = known
			}
		}
		units = append(units, unit{nodes: append(pending, child), rank: r, input: i})
		pending = nil
	}
	if len(pending) > 0 {
		units = append(units, unit{nodes: pending, rank: len(order), input: len(el.Children)})
	}

	slices.SortStableFunc(units, func(a, b unit) int {
		if a.rank != b.rank {
			return a.rank - b.rank
		}
		return a.input - b.input
	})

	sorted := make([]xmltree.Node, 0, len(el.Children))
	for _, u := range units {
		sorted = append(sorted, u.nodes...)
	}
	return sorted
}

// sortedAttrs applies the canonical attribute order; attributes outside the
// table sort lexicographically after the known ones.
func (w *Writer) sortedAttrs(el *xmltree.Element) []xmltree.Attr {
	if len(el.Attrs) < 2 {
		return el.Attrs
	}
	order, _ := w.ord.AttrOrder(el.Name)
	rank := make(map[string]int, len(order))
	for i, name := range order {
		rank[name] = i
	}
	sorted := slices.Clone(el.Attrs)
	slices.SortStableFunc(sorted, func(a, b xmltree.Attr) int {
		ra, oka := rank[a.Name]
		rb, okb := rank[b.Name]
		switch {
		case oka && okb:
			return ra - rb
		case oka:
			return -1
		case okb:
			return 1
		default:
			return strings.Compare(a.Name, b.Name)
		}
	})
	return sorted
}

func (w *Writer) indent(buf *bytes.Buffer, depth int) {
	if !w.cfg.Pretty {
		return
	}
	for range depth * w.cfg.IndentWidth {
		buf.WriteByte(' ')
	}
}

func (w *Writer) newline(buf *bytes.Buffer) {
	if !w.cfg.Pretty {
		return
	}
	buf.WriteString(w.cfg.LineEnding)
}
