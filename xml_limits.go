package ddex

import (
	"cmp"
	"fmt"

	"github.com/ddexkit/ddex/errors"
	"github.com/ddexkit/ddex/internal/xmlparse"
)

// Default parse bounds. Large enough for the biggest catalog feeds seen in
// the wild, small enough to stop pathological input before it exhausts the
// process.
const (
	defaultMaxDocumentSize     = 1 << 30 // 1 GiB
	defaultMaxElementDepth     = 100
	defaultMaxEntityExpansions = 100_000
	defaultMaxDiagnostics      = 100
)

// resolveParseLimits applies defaults for unset (zero) bounds and rejects
// negative ones. Bounds cannot be disabled, only resized.
func resolveParseLimits(maxDocumentSize int64, maxElementDepth, maxEntityExpansions int) (xmlparse.Limits, error) {
	if maxDocumentSize < 0 {
		return xmlparse.Limits{}, errInvalidLimit("max document size")
	}
	if maxElementDepth < 0 {
		return xmlparse.Limits{}, errInvalidLimit("max element depth")
	}
	if maxEntityExpansions < 0 {
		return xmlparse.Limits{}, errInvalidLimit("max entity expansions")
	}
	return xmlparse.Limits{
		MaxDocumentSize:     cmp.Or(maxDocumentSize, int64(defaultMaxDocumentSize)),
		MaxElementDepth:     cmp.Or(maxElementDepth, defaultMaxElementDepth),
		MaxEntityExpansions: cmp.Or(maxEntityExpansions, defaultMaxEntityExpansions),
	}, nil
}

func errInvalidLimit(name string) error {
	return errors.New(errors.CodeInvalidFormat, fmt.Sprintf("%s must not be negative", name))
}
