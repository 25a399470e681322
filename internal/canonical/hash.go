package canonical

import (
	"bytes"
	"crypto/sha256"
	"encoding/hex"
)

// Hash returns the canonical SHA-256 hash of a document. The provenance
// banner, when present, is stripped first so the hash depends only on the
// canonical body.
func Hash(doc []byte) string {
	sum := sha256.Sum256(StripBanner(doc))
	return hex.EncodeToString(sum[:])
}

// StripBanner removes the leading provenance comment that may follow the
// XML declaration.
func StripBanner(doc []byte) []byte {
	rest := doc
	if i := bytes.Index(rest, []byte("?>")); i >= 0 {
		rest = rest[i+2:]
	}
	trimmed := bytes.TrimLeft(rest, "\r\n")
	if !bytes.HasPrefix(trimmed, []byte("<!--")) {
		return doc
	}
	end := bytes.Index(trimmed, []byte("-->"))
	if end < 0 {
		return doc
	}
	body := bytes.TrimLeft(trimmed[end+3:], "\r\n")

	head := doc[:len(doc)-len(rest)]
	lineEnding := rest[:len(rest)-len(trimmed)]
	out := make([]byte, 0, len(head)+len(lineEnding)+len(body))
	out = append(out, head...)
	out = append(out, lineEnding...)
	out = append(out, body...)
	return out
}
