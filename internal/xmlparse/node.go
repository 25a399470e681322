package xmlparse

import (
	"encoding/xml"
	"strconv"
	"strings"
)

// node is the minimal subtree the parser materializes for one entity
// element. Only the entity currently being mapped is held in memory; the
// document as a whole is never buffered.
type node struct {
	name     string
	attrs    []xml.Attr
	children []*node
	text     string
	comments []string
}

// collect reads tokens until the matching end element, building a subtree.
// startDepth is the document depth of the start element itself, so nested
// depth continues to count against the document-wide limit.
func (p *parser) collect(start xml.StartElement, startDepth int) (*node, error) {
	root := &node{name: start.Name.Local, attrs: start.Attr}
	stack := []*node{root}

	for {
		tok, err := p.dec.Token()
		if err != nil {
			return nil, p.tokenError(err)
		}
		switch t := tok.(type) {
		case xml.StartElement:
			// The new child sits one level below stack[len(stack)-1],
			// whose depth is startDepth+len(stack)-1.
			if err := p.checkDepth(startDepth + len(stack)); err != nil {
				return nil, err
			}
			child := &node{name: t.Name.Local, attrs: copyAttrs(t.Attr)}
			parent := stack[len(stack)-1]
			parent.children = append(parent.children, child)
			stack = append(stack, child)
		case xml.EndElement:
			stack = stack[:len(stack)-1]
			if len(stack) == 0 {
				return root, nil
			}
		case xml.CharData:
			stack[len(stack)-1].text += string(t)
		case xml.Comment:
			cur := stack[len(stack)-1]
			cur.comments = append(cur.comments, string(t))
		case xml.Directive:
			if err := p.checkDirective(t); err != nil {
				return nil, err
			}
		}
	}
}

// skip discards the subtree of the current start element, with the same
// depth accounting as collect. startDepth is the document depth of the
// element being skipped.
func (p *parser) skip(startDepth int) error {
	depth := startDepth
	for depth >= startDepth {
		tok, err := p.dec.Token()
		if err != nil {
			return p.tokenError(err)
		}
		switch t := tok.(type) {
		case xml.StartElement:
			depth++
			if err := p.checkDepth(depth); err != nil {
				return err
			}
		case xml.EndElement:
			depth--
		case xml.Directive:
			if err := p.checkDirective(t); err != nil {
				return err
			}
		}
	}
	return nil
}

func copyAttrs(attrs []xml.Attr) []xml.Attr {
	if len(attrs) == 0 {
		return nil
	}
	out := make([]xml.Attr, len(attrs))
	copy(out, attrs)
	return out
}

// eachComment visits every comment in the subtree in depth-first order.
func (n *node) eachComment(fn func(string)) {
	for _, c := range n.comments {
		fn(c)
	}
	for _, child := range n.children {
		child.eachComment(fn)
	}
}

// childText returns the trimmed text of the first child with the name.
func (n *node) childText(name string) string {
	if c := n.child(name); c != nil {
		return strings.TrimSpace(c.text)
	}
	return ""
}

// child returns the first child with the name.
func (n *node) child(name string) *node {
	for _, c := range n.children {
		if c.name == name {
			return c
		}
	}
	return nil
}

// childTexts returns the trimmed text of every child with the name, in
// document order.
func (n *node) childTexts(name string) []string {
	var out []string
	for _, c := range n.children {
		if c.name == name {
			out = append(out, strings.TrimSpace(c.text))
		}
	}
	return out
}

// childInt returns the integer text of the first child with the name.
func (n *node) childInt(name string) int {
	v, err := strconv.Atoi(n.childText(name))
	if err != nil {
		return 0
	}
	return v
}

// attr returns the value of the named attribute.
func (n *node) attr(name string) string {
	for _, a := range n.attrs {
		if a.Name.Local == name {
			return a.Value
		}
	}
	return ""
}

// rawXML re-serializes the subtree. Used to carry unknown elements as
// opaque pass-through payloads when fidelity options are enabled.
func (n *node) rawXML() string {
	var b strings.Builder
	n.writeTo(&b)
	return b.String()
}

func (n *node) writeTo(b *strings.Builder) {
	b.WriteByte('<')
	b.WriteString(n.name)
	for _, a := range n.attrs {
		name := a.Name.Local
		if a.Name.Space == "xmlns" {
			name = "xmlns:" + name
		}
		b.WriteByte(' ')
		b.WriteString(name)
		b.WriteString(`="`)
		b.WriteString(escapeAttrValue(a.Value))
		b.WriteByte('"')
	}
	text := strings.TrimSpace(n.text)
	if len(n.children) == 0 && text == "" {
		b.WriteString("/>")
		return
	}
	b.WriteByte('>')
	b.WriteString(escapeTextValue(text))
	for _, c := range n.children {
		c.writeTo(b)
	}
	b.WriteString("</")
	b.WriteString(n.name)
	b.WriteByte('>')
}

var attrValueEscaper = strings.NewReplacer("&", "&amp;", "<", "&lt;", ">", "&gt;", `"`, "&quot;")
var textValueEscaper = strings.NewReplacer("&", "&amp;", "<", "&lt;", ">", "&gt;")

func escapeAttrValue(s string) string { return attrValueEscaper.Replace(s) }
func escapeTextValue(s string) string { return textValueEscaper.Replace(s) }
