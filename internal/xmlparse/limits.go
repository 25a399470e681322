package xmlparse

import (
	"io"

	"github.com/ddexkit/ddex/errors"
)

// Limits bounds parser resource usage. All parses fail closed: exceeding a
// limit aborts immediately with a security violation and no partial graph.
type Limits struct {
	MaxDocumentSize     int64
	MaxElementDepth     int
	MaxEntityExpansions int
	DisableDTD          bool
	DisableExternal     bool
}

// boundedReader enforces document size and entity expansion limits while
// the decoder pulls bytes. Counting happens below the tokenizer so a
// pathological input is cut off before it is ever materialized as tokens.
type boundedReader struct {
	r          io.Reader
	limits     Limits
	bytesRead  int64
	expansions int
	line       int
	err        error
}

func newBoundedReader(r io.Reader, limits Limits) *boundedReader {
	return &boundedReader{r: r, limits: limits, line: 1}
}

func (b *boundedReader) Read(p []byte) (int, error) {
	if b.err != nil {
		return 0, b.err
	}
	n, err := b.r.Read(p)
	b.bytesRead += int64(n)
	if b.limits.MaxDocumentSize > 0 && b.bytesRead > b.limits.MaxDocumentSize {
		b.err = errors.Security("max_document_size")
		return 0, b.err
	}
	for _, c := range p[:n] {
		switch c {
		case '&':
			// Every entity reference in well-formed XML starts with an
			// ampersand, so the raw count bounds expansion work.
			b.expansions++
			if b.limits.MaxEntityExpansions > 0 && b.expansions > b.limits.MaxEntityExpansions {
				b.err = errors.Security("max_entity_expansions")
				return 0, b.err
			}
		case '\n':
			b.line++
		}
	}
	return n, err
}

// securityErr surfaces the violation recorded by the reader, if any. The
// decoder wraps reader errors, so callers check here first.
func (b *boundedReader) securityErr() *errors.Error {
	if b.err == nil {
		return nil
	}
	if e, ok := errors.AsError(b.err); ok {
		return e
	}
	return nil
}
