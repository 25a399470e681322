// Package xmlparse turns an ERN XML byte stream into the graph model in a
// single streaming pass with enforced resource bounds. External entity and
// DTD processing are rejected outright; size, depth, and expansion limits
// fail closed with no partial graph.
package xmlparse

import (
	"bufio"
	"bytes"
	"encoding/xml"
	stderrors "errors"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/ddexkit/ddex/errors"
	"github.com/ddexkit/ddex/graph"
)

// Options configures one parse call.
type Options struct {
	Limits  Limits
	Timeout time.Duration

	// Fidelity switches: when off, pass-through data (unknown elements,
	// comments, raw extensions) is dropped.
	IncludeRawExtensions    bool
	IncludeComments         bool
	PreserveUnknownElements bool

	// Version is the already-detected ERN version string.
	Version string
}

func (o Options) preserve() bool {
	return o.IncludeRawExtensions || o.PreserveUnknownElements
}

var utf8BOM = []byte{0xEF, 0xBB, 0xBF}

type parser struct {
	dec      *xml.Decoder
	bounded  *boundedReader
	limits   Limits
	opts     Options
	deadline time.Time
	started  time.Time
}

// Parse consumes the stream and returns the graph model. References remain
// symbolic; resolution is a separate pass.
func Parse(r io.Reader, opts Options) (*graph.Message, error) {
	br := bufio.NewReader(r)
	if prefix, err := br.Peek(len(utf8BOM)); err == nil && bytes.Equal(prefix, utf8BOM) {
		if _, err := br.Discard(len(utf8BOM)); err != nil {
			return nil, errors.Wrap(errors.CodeIO, "discard byte order mark", err)
		}
	}

	bounded := newBoundedReader(br, opts.Limits)
	p := &parser{
		dec:     xml.NewDecoder(bounded),
		bounded: bounded,
		limits:  opts.Limits,
		opts:    opts,
		started: time.Now(),
	}
	p.dec.Strict = true
	if opts.Timeout > 0 {
		p.deadline = p.started.Add(opts.Timeout)
	}

	msg, err := p.document()
	if err != nil {
		return nil, err
	}
	msg.Version = opts.Version
	return msg, nil
}

func (p *parser) document() (*graph.Message, error) {
	msg := &graph.Message{}
	depth := 0
	sawRoot := false

	for {
		if err := p.checkDeadline(); err != nil {
			return nil, err
		}
		tok, err := p.dec.Token()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, p.tokenError(err)
		}

		switch t := tok.(type) {
		case xml.Directive:
			if err := p.checkDirective(t); err != nil {
				return nil, err
			}
		case xml.Comment:
			if p.opts.IncludeComments {
				msg.Comments = append(msg.Comments, graph.Comment{
					Path: "/NewReleaseMessage",
					Text: string(t),
				})
			}
		case xml.StartElement:
			depth++
			if err := p.checkDepth(depth); err != nil {
				return nil, err
			}
			if depth == 1 {
				if sawRoot {
					return nil, errors.New(errors.CodeStructure, "multiple root elements")
				}
				sawRoot = true
				if t.Name.Local != "NewReleaseMessage" && t.Name.Local != "UpdateReleaseMessage" {
					return nil, errors.Newf(errors.CodeStructure, "unexpected root element %s", t.Name.Local)
				}
				msg.Header.MessageType = t.Name.Local
				continue
			}
			if depth == 2 {
				// Every section consumes its own subtree including the
				// end element, so the depth is restored here.
				if err := p.section(msg, t); err != nil {
					return nil, err
				}
				depth--
				continue
			}
			return nil, errors.Newf(errors.CodeStructure, "unexpected element %s", t.Name.Local)
		case xml.EndElement:
			depth--
		}
	}

	if !sawRoot {
		return nil, errors.XML("no root element", errors.Location{})
	}
	return msg, nil
}

// sectionDepth is the document depth of elements directly under the root;
// their children sit at entityDepth.
const (
	sectionDepth = 2
	entityDepth  = 3
)

// checkDepth fails when depth exceeds the configured limit. Every parse
// path uses this one predicate: an element at exactly the limit is allowed,
// one level deeper is not.
func (p *parser) checkDepth(depth int) error {
	if p.limits.MaxElementDepth > 0 && depth > p.limits.MaxElementDepth {
		return errors.Security("max_element_depth")
	}
	return nil
}

// section consumes one element directly under the root, end tag included.
func (p *parser) section(msg *graph.Message, start xml.StartElement) error {
	switch start.Name.Local {
	case "MessageHeader":
		n, err := p.collect(start, sectionDepth)
		if err != nil {
			return err
		}
		mapHeader(n, &msg.Header)
		p.harvestComments(msg, n, "/MessageHeader")
		return nil
	case "UpdateIndicator":
		// ERN 3.8.2 only; tolerated, not modeled.
		return p.skip(sectionDepth)
	case "PartyList":
		return p.entityList(start, msg, knownPartyKinds, func(n *node) {
			msg.Parties = append(msg.Parties, mapParty(n))
		})
	case "ResourceList":
		return p.entityList(start, msg, knownResourceKinds, func(n *node) {
			msg.Resources = append(msg.Resources, p.mapResource(n))
		})
	case "ReleaseList":
		return p.entityList(start, msg, knownReleaseKinds, func(n *node) {
			msg.Releases = append(msg.Releases, p.mapRelease(n))
		})
	case "DealList":
		return p.entityList(start, msg, knownDealKinds, func(n *node) {
			msg.Deals = append(msg.Deals, mapDeal(n))
		})
	default:
		if p.opts.preserve() {
			n, err := p.collect(start, sectionDepth)
			if err != nil {
				return err
			}
			msg.Extensions = append(msg.Extensions, graph.Extension{
				Path: "/" + msg.Header.MessageType,
				Raw:  n.rawXML(),
			})
			return nil
		}
		return p.skip(sectionDepth)
	}
}

var (
	knownResourceKinds = map[string]bool{"SoundRecording": true, "Image": true, "Video": true}
	knownReleaseKinds  = map[string]bool{"Release": true}
	knownDealKinds     = map[string]bool{"ReleaseDeal": true}
	knownPartyKinds    = map[string]bool{"Party": true}
)

// entityList streams the children of a list section, materializing one
// entity subtree at a time so memory stays bounded by the largest entity,
// not the catalog. Unknown children are tolerated: preserved when fidelity
// is enabled, skipped otherwise.
func (p *parser) entityList(list xml.StartElement, msg *graph.Message, known map[string]bool, add func(*node)) error {
	for {
		if err := p.checkDeadline(); err != nil {
			return err
		}
		tok, err := p.dec.Token()
		if err != nil {
			return p.tokenError(err)
		}
		switch t := tok.(type) {
		case xml.StartElement:
			if err := p.checkDepth(entityDepth); err != nil {
				return err
			}
			n, err := p.collect(t, entityDepth)
			if err != nil {
				return err
			}
			if known[t.Name.Local] {
				add(n)
				p.harvestComments(msg, n, "/"+list.Name.Local)
				continue
			}
			if p.opts.preserve() {
				msg.Extensions = append(msg.Extensions, graph.Extension{
					Path: "/" + list.Name.Local,
					Raw:  n.rawXML(),
				})
			}
			p.harvestComments(msg, n, "/"+list.Name.Local)
		case xml.Comment:
			if p.opts.IncludeComments {
				msg.Comments = append(msg.Comments, graph.Comment{
					Path: "/" + list.Name.Local,
					Text: string(t),
				})
			}
		case xml.EndElement:
			return nil
		case xml.Directive:
			if err := p.checkDirective(t); err != nil {
				return err
			}
		}
	}
}

// harvestComments records the comments collected inside an entity subtree
// against its section path, so a rebuild can replay them.
func (p *parser) harvestComments(msg *graph.Message, n *node, path string) {
	if !p.opts.IncludeComments {
		return
	}
	n.eachComment(func(text string) {
		msg.Comments = append(msg.Comments, graph.Comment{Path: path, Text: text})
	})
}

func (p *parser) checkDirective(d xml.Directive) error {
	upper := strings.ToUpper(strings.TrimSpace(string(d)))
	if strings.HasPrefix(upper, "DOCTYPE") {
		if p.limits.DisableExternal && (strings.Contains(upper, "SYSTEM") || strings.Contains(upper, "PUBLIC")) {
			return errors.Security("external_entities_disabled")
		}
		if p.limits.DisableDTD {
			return errors.Security("dtd_disabled")
		}
	}
	if strings.HasPrefix(upper, "ENTITY") && p.limits.DisableDTD {
		return errors.Security("dtd_disabled")
	}
	return nil
}

func (p *parser) checkDeadline() error {
	if p.deadline.IsZero() {
		return nil
	}
	if time.Now().After(p.deadline) {
		return errors.Timeout(time.Since(p.started).Seconds())
	}
	return nil
}

// tokenError classifies a decoder error: security violations recorded by
// the bounded reader pass through, everything else becomes a malformed-XML
// error with location context.
func (p *parser) tokenError(err error) error {
	if sec := p.bounded.securityErr(); sec != nil {
		return sec
	}
	if err == io.EOF || stderrors.Is(err, io.ErrUnexpectedEOF) {
		return errors.XML("unexpected end of document", errors.Location{
			Line:       p.bounded.line,
			ByteOffset: p.dec.InputOffset(),
		})
	}
	var syntax *xml.SyntaxError
	if stderrors.As(err, &syntax) {
		return errors.XML(syntax.Msg, errors.Location{
			Line:       syntax.Line,
			ByteOffset: p.dec.InputOffset(),
		})
	}
	return errors.Wrap(errors.CodeXMLParse, fmt.Sprintf("decode: %v", err), err)
}
