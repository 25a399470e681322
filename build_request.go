package ddex

import (
	"time"

	"github.com/ddexkit/ddex/flat"
	"github.com/ddexkit/ddex/graph"
)

// BuildRequest is the declarative input to Build: plain data describing the
// message to emit. Field tags support loading requests from YAML or JSON
// job files.
type BuildRequest struct {
	Header   MessageHeaderRequest `yaml:"header" json:"header"`
	Version  Version              `yaml:"-" json:"-"`
	Profile  string               `yaml:"profile,omitempty" json:"profile,omitempty"`
	Parties  []PartyRequest       `yaml:"parties,omitempty" json:"parties,omitempty" validate:"dive"`
	Releases []ReleaseRequest     `yaml:"releases" json:"releases"`
	Deals    []DealRequest        `yaml:"deals,omitempty" json:"deals,omitempty"`

	// Extensions are replayed verbatim at the paths they were captured
	// from. Populated by round-tripping a parsed message.
	Extensions []graph.Extension `yaml:"-" json:"-"`

	// Comments are replayed into the sections they were captured from.
	// Populated when the message was parsed with comment fidelity on.
	Comments []graph.Comment `yaml:"-" json:"-"`
}

// MessageHeaderRequest describes the message envelope. MessageID may be
// left empty; the configured ID strategy fills it.
type MessageHeaderRequest struct {
	MessageID       string       `yaml:"message_id,omitempty" json:"message_id,omitempty"`
	MessageThreadID string       `yaml:"message_thread_id,omitempty" json:"message_thread_id,omitempty"`
	Sender          PartyRequest `yaml:"sender" json:"sender" validate:"required"`
	Recipient       PartyRequest `yaml:"recipient" json:"recipient" validate:"required"`
	CreatedDateTime time.Time    `yaml:"created_date_time,omitempty" json:"created_date_time,omitempty"`
	ControlType     string       `yaml:"control_type,omitempty" json:"control_type,omitempty"`
}

// PartyRequest names one party. In the header it is the sender or
// recipient; in the party list it is a referenced party.
type PartyRequest struct {
	Reference string `yaml:"reference,omitempty" json:"reference,omitempty"`
	Name      string `yaml:"name" json:"name" validate:"required"`
	ID        string `yaml:"id,omitempty" json:"id,omitempty"`
	Role      string `yaml:"role,omitempty" json:"role,omitempty"`
}

// ReleaseRequest describes one release and its tracks.
type ReleaseRequest struct {
	Reference      string         `yaml:"reference,omitempty" json:"reference,omitempty"`
	ICPN           string         `yaml:"icpn,omitempty" json:"icpn,omitempty"`
	Title          string         `yaml:"title" json:"title"`
	Subtitle       string         `yaml:"subtitle,omitempty" json:"subtitle,omitempty"`
	Artist         string         `yaml:"artist" json:"artist"`
	ReleaseType    string         `yaml:"release_type,omitempty" json:"release_type,omitempty"`
	Genre          string         `yaml:"genre,omitempty" json:"genre,omitempty"`
	SubGenre       string         `yaml:"sub_genre,omitempty" json:"sub_genre,omitempty"`
	ReleaseDate    string         `yaml:"release_date,omitempty" json:"release_date,omitempty"`
	Label          string         `yaml:"label,omitempty" json:"label,omitempty"`
	TerritoryCodes []string       `yaml:"territory_codes,omitempty" json:"territory_codes,omitempty"`
	Tracks         []TrackRequest `yaml:"tracks" json:"tracks"`

	Extensions []graph.Extension `yaml:"-" json:"-"`
}

// TrackRequest describes one sound recording on a release.
type TrackRequest struct {
	Reference   string `yaml:"reference,omitempty" json:"reference,omitempty"`
	ISRC        string `yaml:"isrc" json:"isrc"`
	Title       string `yaml:"title" json:"title"`
	Artist      string `yaml:"artist,omitempty" json:"artist,omitempty"`
	Duration    string `yaml:"duration,omitempty" json:"duration,omitempty"`
	TrackNumber int    `yaml:"track_number,omitempty" json:"track_number,omitempty"`
}

// DealRequest describes commercial terms for one release. ReleaseReference
// may name a release by its request reference or be left empty to bind the
// deal to the release at the same index.
type DealRequest struct {
	ReleaseReference    string   `yaml:"release_reference,omitempty" json:"release_reference,omitempty"`
	CommercialModelType string   `yaml:"commercial_model_type,omitempty" json:"commercial_model_type,omitempty"`
	UsageTypes          []string `yaml:"usage_types,omitempty" json:"usage_types,omitempty"`
	TerritoryCodes      []string `yaml:"territory_codes,omitempty" json:"territory_codes,omitempty"`
	StartDate           string   `yaml:"start_date,omitempty" json:"start_date,omitempty"`
	EndDate             string   `yaml:"end_date,omitempty" json:"end_date,omitempty"`
}

// ToBuildRequest converts a parsed message back into build input, enabling
// parse, modify, rebuild round trips. Raw extensions survive only when the
// message was parsed with extension fidelity enabled.
func (m *Message) ToBuildRequest() *BuildRequest {
	f := m.Flat
	req := &BuildRequest{
		Header: MessageHeaderRequest{
			MessageID:       f.MessageID,
			CreatedDateTime: f.CreatedAt,
			Sender:          PartyRequest{Name: f.Sender.Name, ID: f.Sender.ID},
			Recipient:       PartyRequest{Name: f.Recipient.Name, ID: f.Recipient.ID},
		},
		Version:    m.Version,
		Profile:    f.Profile,
		Extensions: f.Extensions,
		Comments:   f.Comments,
	}
	if m.Graph != nil {
		req.Header.MessageThreadID = m.Graph.Header.MessageThreadID
		req.Header.ControlType = m.Graph.Header.ControlType
	}
	for _, p := range f.Parties {
		req.Parties = append(req.Parties, PartyRequest{
			Reference: p.Reference,
			Name:      p.Name,
			ID:        p.ID,
			Role:      p.Role,
		})
	}
	for _, rel := range f.Releases {
		rr := ReleaseRequest{
			Reference:      rel.Reference,
			ICPN:           rel.ICPN,
			Title:          rel.Title,
			Subtitle:       rel.Subtitle,
			Artist:         rel.Artist,
			ReleaseType:    rel.ReleaseType,
			Genre:          rel.Genre,
			SubGenre:       rel.SubGenre,
			ReleaseDate:    rel.ReleaseDate,
			TerritoryCodes: rel.TerritoryCodes,
			Extensions:     rel.Extensions,
		}
		for _, t := range rel.Tracks {
			rr.Tracks = append(rr.Tracks, TrackRequest{
				Reference:   t.Reference,
				ISRC:        t.ISRC,
				Title:       t.Title,
				Artist:      t.Artist,
				Duration:    t.Duration,
				TrackNumber: t.TrackNumber,
			})
		}
		req.Releases = append(req.Releases, rr)
	}
	for _, d := range f.Deals {
		req.Deals = append(req.Deals, DealRequest{
			ReleaseReference:    d.ReleaseReference,
			CommercialModelType: d.CommercialModelType,
			UsageTypes:          d.UsageTypes,
			TerritoryCodes:      d.TerritoryCodes,
			StartDate:           d.StartDate,
			EndDate:             d.EndDate,
		})
	}
	return req
}

// FromFlat converts a flat message into build input without requiring the
// graph form.
func FromFlat(f *flat.Message) *BuildRequest {
	version, _ := VersionFromString(f.Version)
	m := &Message{Flat: f, Version: version}
	return m.ToBuildRequest()
}
