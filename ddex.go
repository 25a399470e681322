// Package ddex parses and builds DDEX ERN (Electronic Release Notification)
// messages. Parsing detects the schema version, streams the document into a
// faithful graph model under enforced resource bounds, resolves its symbolic
// references, and projects a denormalized flat view for catalog processing.
// Building is the reverse path: a declarative request becomes canonical,
// byte-deterministic XML.
package ddex

import (
	"bytes"
	"io"
	"os"

	"github.com/ddexkit/ddex/errors"
	"github.com/ddexkit/ddex/flat"
	"github.com/ddexkit/ddex/graph"
	"github.com/ddexkit/ddex/internal/flatten"
	"github.com/ddexkit/ddex/internal/resolve"
	"github.com/ddexkit/ddex/internal/xmlparse"
)

// Message is the result of a parse: the faithful graph form, the flat
// projection, and the detected version.
type Message struct {
	Graph   *graph.Message
	Flat    *flat.Message
	Version Version
}

// Parse reads one ERN document with default options.
func Parse(r io.Reader) (*Message, error) {
	return ParseWithOptions(r, NewParseOptions())
}

// ParseFile reads one ERN document from a file.
func ParseFile(path string) (*Message, error) {
	return ParseFileWithOptions(path, NewParseOptions())
}

// ParseFileWithOptions reads one ERN document from a file.
func ParseFileWithOptions(path string, opts ParseOptions) (*Message, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, errors.Wrap(errors.CodeIO, "open document", err)
	}
	defer f.Close()
	return ParseWithOptions(f, opts)
}

// ParseWithOptions reads one ERN document.
//
// The pipeline is detect, parse, resolve, flatten. Version detection reads
// a bounded prefix which is then replayed, so the reader needs no Seek.
// Reference errors are batched: one failed parse reports every dangling or
// duplicated reference up to the diagnostics cap.
func ParseWithOptions(r io.Reader, opts ParseOptions) (*Message, error) {
	ropts, err := opts.withDefaults()
	if err != nil {
		return nil, err
	}

	prefix := make([]byte, detectPrefixSize)
	n, err := io.ReadFull(r, prefix)
	if err != nil && err != io.ErrUnexpectedEOF && err != io.EOF {
		return nil, errors.Wrap(errors.CodeIO, "read document", err)
	}
	prefix = prefix[:n]

	version, derr := DetectVersion(bytes.NewReader(prefix))
	if derr != nil {
		if ropts.unknownVersion == UnknownVersionReject || !errors.IsCode(derr, errors.CodeVersionUnknown) {
			return nil, derr
		}
		version = LatestVersion
	}

	msg, err := xmlparse.Parse(io.MultiReader(bytes.NewReader(prefix), r), xmlparse.Options{
		Limits:                  ropts.limits,
		Timeout:                 ropts.timeout,
		IncludeRawExtensions:    ropts.includeRawExtensions,
		IncludeComments:         ropts.includeComments,
		PreserveUnknownElements: ropts.preserveUnknownElements,
		Version:                 version.String(),
	})
	if err != nil {
		return nil, err
	}

	if err := resolve.Resolve(msg, resolve.Options{MaxDiagnostics: ropts.maxDiagnostics}); err != nil {
		return nil, err
	}

	flatMsg, err := flatten.Flatten(msg, flatten.Options{
		IncludeRawExtensions:    ropts.includeRawExtensions,
		IncludeComments:         ropts.includeComments,
		PreserveUnknownElements: ropts.preserveUnknownElements,
	})
	if err != nil {
		return nil, err
	}

	return &Message{Graph: msg, Flat: flatMsg, Version: version}, nil
}
