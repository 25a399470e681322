// Package graph holds the structure-preserving in-memory representation of a
// DDEX ERN message. It mirrors the document shape: a header, ordered entity
// lists, and symbolic string references between them. Cross-entity links stay
// symbolic so a parsed message remains serializable and diffable; resolution
// is a separate pass recorded alongside the message.
package graph

import (
	"time"

	"github.com/ddexkit/ddex/errors"
)

// Message is the graph model of one ERN document.
type Message struct {
	Header     MessageHeader
	Parties    []Party
	Resources  []Resource
	Releases   []Release
	Deals      []Deal
	Version    string // "3.8.2", "4.2", "4.3"
	Profile    string
	Extensions []Extension
	Comments   []Comment

	// Resolution is computed once by the reference resolver and not
	// mutated afterwards. Nil means the message has not been resolved.
	Resolution *Resolution
}

// MessageHeader mirrors the ERN MessageHeader element.
type MessageHeader struct {
	MessageID       string
	MessageThreadID string
	MessageType     string
	CreatedDateTime time.Time
	Sender          MessageParty
	Recipient       MessageParty
	ControlType     string
	AuditTrail      []AuditEvent
}

// MessageParty is a sender or recipient identification.
type MessageParty struct {
	PartyIDs    []string
	PartyName   string
	TradingName string
}

// AuditEvent is one MessageAuditTrail entry.
type AuditEvent struct {
	EventReference string
	EventType      string
	DateTime       time.Time
	PartyReference string
}

// ResourceKind classifies a resource element.
type ResourceKind string

const (
	KindSoundRecording ResourceKind = "SoundRecording"
	KindImage          ResourceKind = "Image"
	KindVideo          ResourceKind = "Video"
)

// Resource is one entry of the ResourceList, keyed by its reference ("A1").
type Resource struct {
	Reference   string
	Kind        ResourceKind
	ISRC        string
	Title       string
	Artist      string
	Duration    string // ISO 8601, e.g. "PT3M20S"
	TrackNumber int

	// LinkedResourceReferences are resource-to-resource links (e.g. a
	// video referencing its audio component). Chains through these are
	// what the resolver walks for cycle detection.
	LinkedResourceReferences []string

	Extensions []Extension
}

// ResourceReference is one entry of a release's resource reference list.
type ResourceReference struct {
	Reference      string
	SequenceNumber int
}

// Release is one entry of the ReleaseList, keyed by its reference ("R1").
type Release struct {
	Reference          string
	ICPN               string
	Title              string
	Subtitle           string
	Artist             string
	ReleaseType        string
	Genre              string
	SubGenre           string
	ReleaseDate        string
	ResourceReferences []ResourceReference
	PartyReferences    []string
	TerritoryCodes     []string
	Extensions         []Extension
}

// Deal is one ReleaseDeal entry carrying commercial terms.
type Deal struct {
	ReleaseReference    string
	CommercialModelType string
	UsageTypes          []string
	TerritoryCodes      []string
	StartDate           string
	EndDate             string
}

// Party is one PartyList entry, keyed by its reference ("P1").
type Party struct {
	Reference string
	Name      string
	ID        string
	Role      string
}

// Extension is an opaque pass-through payload captured in document order so
// a later build can replay it byte-for-byte.
type Extension struct {
	Path string // element path where the payload appeared
	Raw  string // raw XML of the unknown subtree
}

// Comment is an XML comment captured when comment fidelity is enabled.
type Comment struct {
	Path string
	Text string
}

// RefKind classifies the target space of a symbolic reference.
type RefKind string

const (
	RefResource RefKind = "resource"
	RefRelease  RefKind = "release"
	RefParty    RefKind = "party"
)

// ResolutionEntry records the outcome of resolving one symbolic reference.
type ResolutionEntry struct {
	Reference   string
	Kind        RefKind
	TargetIndex int // index into the matching entity slice, -1 when unresolved
	Err         *errors.Error
}

// Resolution is the full resolution record for a message, in document order.
type Resolution struct {
	Entries []ResolutionEntry
}

// Failed returns the entries that did not resolve.
func (r *Resolution) Failed() []ResolutionEntry {
	if r == nil {
		return nil
	}
	var failed []ResolutionEntry
	for _, e := range r.Entries {
		if e.Err != nil {
			failed = append(failed, e)
		}
	}
	return failed
}

// Resolved reports whether every reference resolved.
func (r *Resolution) Resolved() bool {
	return r != nil && len(r.Failed()) == 0
}
