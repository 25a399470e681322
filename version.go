package ddex

import (
	"encoding/xml"
	"io"

	"github.com/ddexkit/ddex/errors"
)

// Version identifies an ERN schema version.
type Version int

const (
	// VersionUnknown means the document namespace matched no known version.
	VersionUnknown Version = iota
	// V382 is ERN 3.8.2.
	V382
	// V42 is ERN 4.2.
	V42
	// V43 is ERN 4.3.
	V43
)

// LatestVersion is the newest supported ERN version.
const LatestVersion = V43

// String returns the dotted version, e.g. "4.3".
func (v Version) String() string {
	switch v {
	case V382:
		return "3.8.2"
	case V42:
		return "4.2"
	case V43:
		return "4.3"
	default:
		return "unknown"
	}
}

// Namespace returns the ERN namespace URI for the version.
func (v Version) Namespace() string {
	switch v {
	case V382:
		return "http://ddex.net/xml/ern/382"
	case V42:
		return "http://ddex.net/xml/ern/42"
	case V43:
		return "http://ddex.net/xml/ern/43"
	default:
		return ""
	}
}

var namespaceVersions = map[string]Version{
	"http://ddex.net/xml/ern/382": V382,
	"http://ddex.net/xml/ern/42":  V42,
	"http://ddex.net/xml/ern/43":  V43,
}

// VersionFromString maps a dotted version string to a Version.
func VersionFromString(s string) (Version, bool) {
	switch s {
	case "3.8.2":
		return V382, true
	case "4.2":
		return V42, true
	case "4.3":
		return V43, true
	default:
		return VersionUnknown, false
	}
}

// detectPrefixSize bounds how much input version detection examines.
const detectPrefixSize = 64 * 1024

// DetectVersion classifies a document's ERN version from the namespace of
// its root element, scanning at most the first 64 KiB. An unrecognized
// namespace returns VersionUnknown with a version error; policy for that
// case belongs to the caller.
func DetectVersion(r io.Reader) (Version, error) {
	dec := xml.NewDecoder(io.LimitReader(r, detectPrefixSize))
	for {
		tok, err := dec.Token()
		if err == io.EOF {
			return VersionUnknown, errors.XML("no root element found", errors.Location{})
		}
		if err != nil {
			return VersionUnknown, errors.XML(err.Error(), errors.Location{ByteOffset: dec.InputOffset()})
		}
		start, ok := tok.(xml.StartElement)
		if !ok {
			continue
		}
		if v, known := namespaceVersions[start.Name.Space]; known {
			return v, nil
		}
		// Vendors occasionally declare the ERN namespace under a prefix
		// the root element does not use itself.
		for _, attr := range start.Attr {
			if v, known := namespaceVersions[attr.Value]; known && (attr.Name.Space == "xmlns" || attr.Name.Local == "xmlns") {
				return v, nil
			}
		}
		return VersionUnknown, errors.Version(start.Name.Space)
	}
}
