// Package flat holds the denormalized, developer-friendly projection of a
// parsed ERN message: one record per release with its resources' metadata
// inlined. Flat values are created by the flattener and immutable afterwards.
package flat

import (
	"time"

	"github.com/ddexkit/ddex/graph"
)

// Message is the flattened view of one ERN document.
type Message struct {
	MessageID   string
	MessageType string
	CreatedAt   time.Time
	Sender      Organization
	Recipient   Organization
	Version     string
	Profile     string
	Releases    []Release
	Deals       []Deal
	Parties     []Party
	Stats       Stats

	// Extensions and Comments are opaque, order-preserving side channels
	// populated only when fidelity options are enabled.
	Extensions []graph.Extension
	Comments   []graph.Comment
}

// Organization is a simplified sender/recipient view.
type Organization struct {
	Name string
	ID   string
}

// Release is one denormalized release record with tracks inlined in
// reference order.
type Release struct {
	// GraphIndex points back at the originating graph release to support
	// lossless re-building.
	GraphIndex int

	Reference      string
	ICPN           string
	Title          string
	Subtitle       string
	Artist         string
	ReleaseType    string
	Genre          string
	SubGenre       string
	ReleaseDate    string
	TerritoryCodes []string
	Tracks         []Track
	Extensions     []graph.Extension
}

// Track is a resource's metadata inlined into its release.
type Track struct {
	Reference   string
	Kind        graph.ResourceKind
	ISRC        string
	Title       string
	Artist      string
	Duration    string // ISO 8601
	TrackNumber int
}

// Deal is a denormalized deal record.
type Deal struct {
	ReleaseReference    string
	CommercialModelType string
	UsageTypes          []string
	TerritoryCodes      []string
	StartDate           string
	EndDate             string
}

// Party is a denormalized party record.
type Party struct {
	Reference string
	Name      string
	ID        string
	Role      string
}

// Stats summarizes the flattened message.
type Stats struct {
	ReleaseCount  int
	TrackCount    int
	DealCount     int
	TotalDuration time.Duration
}
