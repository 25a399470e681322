// Package xmltree is the element tree handed from the builder to the
// canonical writer. It preserves attribute and child order as inserted;
// canonical ordering is applied by the writer, not here.
package xmltree

// Node is one tree node: an element, text, or comment.
type Node interface {
	isNode()
}

// Element is an XML element with ordered attributes and children.
type Element struct {
	Name     string
	Attrs    []Attr
	Children []Node

	// RawXML, when non-empty, is emitted verbatim in place of the element.
	// Used to replay pass-through extension payloads.
	RawXML string
}

// Attr is one attribute in insertion order.
type Attr struct {
	Name  string
	Value string
}

// Text is character data.
type Text string

// Comment is an XML comment (without the delimiters).
type Comment string

func (*Element) isNode() {}
func (Text) isNode()     {}
func (Comment) isNode()  {}

// New returns an element with the given name.
func New(name string) *Element {
	return &Element{Name: name}
}

// Attr appends an attribute and returns the element for chaining.
func (e *Element) Attr(name, value string) *Element {
	e.Attrs = append(e.Attrs, Attr{Name: name, Value: value})
	return e
}

// Child appends a child node and returns the element for chaining.
func (e *Element) Child(n Node) *Element {
	e.Children = append(e.Children, n)
	return e
}

// TextChild appends <name>text</name> and returns the element for chaining.
func (e *Element) TextChild(name, text string) *Element {
	return e.Child(New(name).Child(Text(text)))
}

// TextChildIf appends <name>text</name> only when text is non-empty.
func (e *Element) TextChildIf(name, text string) *Element {
	if text == "" {
		return e
	}
	return e.TextChild(name, text)
}

// Raw appends a verbatim XML payload.
func (e *Element) Raw(xml string) *Element {
	return e.Child(&Element{RawXML: xml})
}

// TextContent returns the concatenated direct text of the element.
func (e *Element) TextContent() string {
	var out string
	for _, c := range e.Children {
		if t, ok := c.(Text); ok {
			out += string(t)
		}
	}
	return out
}

// Find returns the first direct child element with the given name.
func (e *Element) Find(name string) *Element {
	for _, c := range e.Children {
		if el, ok := c.(*Element); ok && el.Name == name {
			return el
		}
	}
	return nil
}
