package canonical

import (
	"strings"

	"golang.org/x/text/unicode/norm"
)

// normalizeText applies Unicode NFC, the normalization form DB-C14N/1.0
// fixes for all text content and attribute values.
func normalizeText(s string) string {
	if norm.NFC.IsNormalString(s) {
		return s
	}
	return norm.NFC.String(s)
}

var textEscaper = strings.NewReplacer(
	"&", "&amp;",
	"<", "&lt;",
	">", "&gt;",
)

var attrEscaper = strings.NewReplacer(
	"&", "&amp;",
	"<", "&lt;",
	">", "&gt;",
	`"`, "&quot;",
	"'", "&apos;",
)

func escapeText(s string) string {
	return textEscaper.Replace(normalizeText(s))
}

func escapeAttr(s string) string {
	return attrEscaper.Replace(normalizeText(s))
}
