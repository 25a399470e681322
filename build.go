package ddex

import (
	"bytes"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/ddexkit/ddex/errors"
	"github.com/ddexkit/ddex/internal/canonical"
	"github.com/ddexkit/ddex/internal/idgen"
	"github.com/ddexkit/ddex/internal/xmltree"
)

// BuildStats summarizes one build.
type BuildStats struct {
	Releases int
	Tracks   int
	Deals    int
	Bytes    int64
	Elapsed  time.Duration
}

// BuildResult is the outcome of a successful build.
type BuildResult struct {
	// XML is the emitted document. In canonical mode rebuilding the same
	// request yields byte-identical output.
	XML []byte
	// CanonicalHash is the SHA-256 of the document with the provenance
	// banner stripped, so banner and non-banner builds hash alike.
	CanonicalHash string
	Warnings      []PreflightIssue
	Stats         BuildStats
}

// CanonicalHash returns the SHA-256 hex digest of a document with any
// provenance banner stripped. Two canonical builds of the same content hash
// alike whether or not a banner was requested.
func CanonicalHash(doc []byte) string {
	return canonical.Hash(doc)
}

// Build emits a message with default options: canonical mode, sequential
// ids, preflight findings surfaced as warnings.
func Build(req *BuildRequest) (*BuildResult, error) {
	return BuildWithOptions(req, NewBuildOptions())
}

// BuildWithOptions emits a message for the request.
//
// The pipeline is fail-fast on structural defects (missing required fields
// are all reported in one batched error), then preflight, then expansion to
// an element tree, then canonical emission. Identifier assignment happens
// once before expansion, so rebuilds of the same assigned request are pure.
func BuildWithOptions(req *BuildRequest, opts BuildOptions) (*BuildResult, error) {
	ropts, err := opts.withDefaults()
	if err != nil {
		return nil, err
	}
	started := time.Now()
	var deadline time.Time
	if ropts.timeout > 0 {
		deadline = started.Add(ropts.timeout)
	}

	if err := checkRequired(req); err != nil {
		return nil, err
	}

	var warnings []PreflightIssue
	if ropts.preflightLevel != PreflightNone {
		result, err := ropts.preflighter.Preflight(req)
		if err != nil {
			return nil, errors.Wrap(errors.CodeXMLGeneration, "preflight failed", err)
		}
		blocking := result.Errors
		if ropts.preflightLevel == PreflightStrict {
			blocking = append(blocking, result.Warnings...)
		} else {
			warnings = result.Warnings
		}
		if len(blocking) > 0 {
			list := make(errors.List, 0, len(blocking))
			for _, issue := range blocking {
				e := errors.New(errors.CodeInvalidFormat, issue.Message)
				e.Field = issue.Code
				e.Location.Path = issue.Path
				list = append(list, e)
			}
			return nil, list
		}
	}

	assigned, err := assignIdentifiers(req, ropts.generator())
	if err != nil {
		return nil, errors.Wrap(errors.CodeXMLGeneration, "assign identifiers", err)
	}
	if err := checkBuildDeadline(deadline, ropts.timeout); err != nil {
		return nil, err
	}

	version := assigned.Version
	if version == VersionUnknown {
		version = LatestVersion
	}
	writer := canonical.NewWriter(canonical.Config{
		Version:    version.String(),
		Pretty:     ropts.pretty,
		LineEnding: ropts.lineEnding,
		Banner:     banner(ropts.banner, version),
	})

	doc, err := writer.Document(expand(assigned, version))
	if err != nil {
		return nil, errors.Wrap(errors.CodeXMLGeneration, "emit document", err)
	}

	for i := 0; i < ropts.verifyDeterminism; i++ {
		if err := checkBuildDeadline(deadline, ropts.timeout); err != nil {
			return nil, err
		}
		again, err := writer.Document(expand(assigned, version))
		if err != nil {
			return nil, errors.Wrap(errors.CodeXMLGeneration, "emit document", err)
		}
		if !bytes.Equal(doc, again) {
			return nil, errors.Newf(errors.CodeXMLGeneration,
				"non-deterministic output detected on rebuild %d of %d", i+1, ropts.verifyDeterminism)
		}
	}

	stats := BuildStats{
		Releases: len(assigned.Releases),
		Deals:    len(assigned.Deals),
		Bytes:    int64(len(doc)),
		Elapsed:  time.Since(started),
	}
	for _, rel := range assigned.Releases {
		stats.Tracks += len(rel.Tracks)
	}
	return &BuildResult{
		XML:           doc,
		CanonicalHash: canonical.Hash(doc),
		Warnings:      warnings,
		Stats:         stats,
	}, nil
}

func banner(enabled bool, version Version) string {
	if !enabled {
		return ""
	}
	return fmt.Sprintf("generated by ddexkit/ddex, DB-C14N/1.0, ERN %s", version)
}

func checkBuildDeadline(deadline time.Time, timeout time.Duration) error {
	if deadline.IsZero() || time.Now().Before(deadline) {
		return nil
	}
	return errors.Timeout(timeout.Seconds())
}

// checkRequired batches every missing required field into one error list
// instead of stopping at the first.
func checkRequired(req *BuildRequest) error {
	var list errors.List
	if req.Header.Sender.Name == "" {
		list = append(list, errors.MissingRequired("name", "/header/sender/name"))
	}
	if req.Header.Recipient.Name == "" {
		list = append(list, errors.MissingRequired("name", "/header/recipient/name"))
	}
	for i, rel := range req.Releases {
		if rel.Title == "" {
			list = append(list, errors.MissingRequired("title", fmt.Sprintf("/releases/%d/title", i)))
		}
		if rel.Artist == "" {
			list = append(list, errors.MissingRequired("artist", fmt.Sprintf("/releases/%d/artist", i)))
		}
		for j, track := range rel.Tracks {
			if track.Title == "" {
				list = append(list, errors.MissingRequired("title", fmt.Sprintf("/releases/%d/tracks/%d/title", i, j)))
			}
		}
	}
	if len(list) > 0 {
		return list
	}
	return nil
}

// assignIdentifiers fills every empty reference on a deep-enough copy of the
// request. The original request is never mutated.
func assignIdentifiers(req *BuildRequest, gen idgen.Generator) (*BuildRequest, error) {
	out := *req
	out.Parties = append([]PartyRequest(nil), req.Parties...)
	out.Releases = append([]ReleaseRequest(nil), req.Releases...)
	out.Deals = append([]DealRequest(nil), req.Deals...)

	// The timestamp is resolved once here so repeated expansions of the
	// assigned request stay byte-identical.
	if out.Header.CreatedDateTime.IsZero() {
		out.Header.CreatedDateTime = time.Now().UTC()
	}
	if out.Header.MessageID == "" {
		id, err := gen.Next(idgen.KindMessage, idgen.Identity{
			"title":  out.Header.Sender.Name,
			"artist": out.Header.Recipient.Name,
		})
		if err != nil {
			return nil, err
		}
		out.Header.MessageID = id
	}
	for i := range out.Parties {
		if out.Parties[i].Reference != "" {
			continue
		}
		id, err := gen.Next(idgen.KindParty, idgen.Identity{"title": out.Parties[i].Name})
		if err != nil {
			return nil, err
		}
		out.Parties[i].Reference = id
	}
	for i := range out.Releases {
		rel := &out.Releases[i]
		rel.Tracks = append([]TrackRequest(nil), req.Releases[i].Tracks...)
		if rel.Reference == "" {
			id, err := gen.Next(idgen.KindRelease, idgen.Identity{
				"title":  rel.Title,
				"artist": rel.Artist,
				"icpn":   rel.ICPN,
			})
			if err != nil {
				return nil, err
			}
			rel.Reference = id
		}
		for j := range rel.Tracks {
			track := &rel.Tracks[j]
			if track.Reference != "" {
				continue
			}
			id, err := gen.Next(idgen.KindResource, idgen.Identity{
				"title":  track.Title,
				"artist": track.Artist,
				"isrc":   track.ISRC,
			})
			if err != nil {
				return nil, err
			}
			track.Reference = id
		}
	}
	for i := range out.Deals {
		if out.Deals[i].ReleaseReference != "" {
			continue
		}
		// An unbound deal attaches to the release at the same index.
		if i < len(out.Releases) {
			out.Deals[i].ReleaseReference = out.Releases[i].Reference
		}
	}
	return &out, nil
}

func schemaVersionID(version Version) string {
	switch version {
	case V382:
		return "ern/382"
	case V42:
		return "ern/42"
	default:
		return "ern/43"
	}
}

// expand turns the assigned request into the element tree the canonical
// writer serializes. Expansion is pure: equal inputs produce equal trees.
func expand(req *BuildRequest, version Version) *xmltree.Element {
	root := xmltree.New("ern:NewReleaseMessage").
		Attr("xmlns:ern", version.Namespace()).
		Attr("xmlns:xsi", canonical.XSINamespace).
		Attr("xsi:schemaLocation", canonical.SchemaLocationFor(version.String())).
		Attr("MessageSchemaVersionId", schemaVersionID(version)).
		Attr("LanguageAndScriptCode", "en")

	root.Child(expandHeader(req.Header))
	if version == V382 {
		root.TextChild("UpdateIndicator", "OriginalMessage")
	}
	if version != V382 && len(req.Parties) > 0 {
		partyList := xmltree.New("PartyList")
		for _, p := range req.Parties {
			partyList.Child(expandParty(p))
		}
		root.Child(attachFidelity(partyList, req, "/PartyList"))
	}

	resourceList := xmltree.New("ResourceList")
	seen := map[string]bool{}
	for _, rel := range req.Releases {
		for _, track := range rel.Tracks {
			if seen[track.Reference] {
				continue
			}
			seen[track.Reference] = true
			resourceList.Child(expandTrack(track, version))
		}
	}
	root.Child(attachFidelity(resourceList, req, "/ResourceList"))

	releaseList := xmltree.New("ReleaseList")
	for _, rel := range req.Releases {
		releaseList.Child(expandRelease(rel, version))
	}
	root.Child(attachFidelity(releaseList, req, "/ReleaseList"))

	if len(req.Deals) > 0 {
		dealList := xmltree.New("DealList")
		for _, deal := range req.Deals {
			dealList.Child(expandDeal(deal))
		}
		root.Child(attachFidelity(dealList, req, "/DealList"))
	}

	for _, ext := range req.Extensions {
		if extensionSection(ext.Path) == "" {
			root.Raw(ext.Raw)
		}
	}
	for _, c := range req.Comments {
		if extensionSection(c.Path) == "" {
			root.Child(xmltree.Comment(c.Text))
		}
	}
	return root
}

func expandHeader(h MessageHeaderRequest) *xmltree.Element {
	header := xmltree.New("MessageHeader").
		TextChildIf("MessageThreadId", h.MessageThreadID).
		TextChild("MessageId", h.MessageID).
		Child(expandMessageParty("MessageSender", h.Sender)).
		Child(expandMessageParty("MessageRecipient", h.Recipient)).
		TextChild("MessageCreatedDateTime", h.CreatedDateTime.UTC().Format(time.RFC3339)).
		TextChildIf("MessageControlType", h.ControlType)
	return header
}

func expandMessageParty(name string, p PartyRequest) *xmltree.Element {
	el := xmltree.New(name).TextChildIf("PartyId", p.ID)
	el.Child(xmltree.New("PartyName").TextChild("FullName", p.Name))
	return el
}

func expandParty(p PartyRequest) *xmltree.Element {
	el := xmltree.New("Party").
		TextChild("PartyReference", p.Reference).
		TextChildIf("PartyId", p.ID)
	el.Child(xmltree.New("PartyName").TextChild("FullName", p.Name))
	return el.TextChildIf("PartyRole", p.Role)
}

func expandTrack(t TrackRequest, version Version) *xmltree.Element {
	el := xmltree.New("SoundRecording").
		TextChild("ResourceReference", t.Reference)
	if t.ISRC != "" {
		el.Child(xmltree.New("SoundRecordingId").TextChild("ISRC", t.ISRC))
	}
	expandTitle(el, version, t.Title, "")
	el.TextChildIf("DisplayArtistName", t.Artist)
	el.TextChildIf("Duration", t.Duration)
	if t.TrackNumber > 0 {
		el.TextChild("SequenceNumber", strconv.Itoa(t.TrackNumber))
	}
	return el
}

func expandRelease(r ReleaseRequest, version Version) *xmltree.Element {
	el := xmltree.New("Release").
		TextChild("ReleaseReference", r.Reference).
		TextChildIf("ReleaseType", r.ReleaseType)
	if r.ICPN != "" {
		el.Child(xmltree.New("ReleaseId").TextChild("ICPN", r.ICPN))
	}
	expandTitle(el, version, r.Title, r.Subtitle)
	el.TextChildIf("DisplayArtistName", r.Artist)

	refList := xmltree.New("ReleaseResourceReferenceList")
	for i, track := range r.Tracks {
		seq := track.TrackNumber
		if seq == 0 {
			seq = i + 1
		}
		refList.Child(xmltree.New("ReleaseResourceReference").
			Attr("SequenceNumber", strconv.Itoa(seq)).
			Child(xmltree.Text(track.Reference)))
	}
	el.Child(refList)

	if r.Genre != "" || r.SubGenre != "" {
		el.Child(xmltree.New("Genre").
			TextChildIf("GenreText", r.Genre).
			TextChildIf("SubGenre", r.SubGenre))
	}
	el.TextChildIf("ReleaseDate", r.ReleaseDate)
	for _, tc := range r.TerritoryCodes {
		el.TextChild("TerritoryCode", tc)
	}
	for _, ext := range r.Extensions {
		el.Raw(ext.Raw)
	}
	return el
}

// expandTitle emits the version-appropriate title shape: 3.8.2 feeds carry
// a ReferenceTitle composite, 4.x feeds carry display title elements.
func expandTitle(el *xmltree.Element, version Version, title, subtitle string) {
	if version == V382 {
		el.Child(xmltree.New("ReferenceTitle").
			TextChild("TitleText", title).
			TextChildIf("SubTitle", subtitle))
		return
	}
	el.TextChild("DisplayTitleText", title)
	el.TextChildIf("DisplaySubTitle", subtitle)
}

func expandDeal(d DealRequest) *xmltree.Element {
	terms := xmltree.New("DealTerms").
		TextChildIf("CommercialModelType", d.CommercialModelType)
	for _, ut := range d.UsageTypes {
		terms.TextChild("UseType", ut)
	}
	for _, tc := range d.TerritoryCodes {
		terms.TextChild("TerritoryCode", tc)
	}
	if d.StartDate != "" || d.EndDate != "" {
		terms.Child(xmltree.New("ValidityPeriod").
			TextChildIf("StartDate", d.StartDate).
			TextChildIf("EndDate", d.EndDate))
	}
	return xmltree.New("ReleaseDeal").
		TextChild("DealReleaseReference", d.ReleaseReference).
		Child(xmltree.New("Deal").Child(terms))
}

// attachFidelity replays pass-through payloads and comments captured under
// the given section back into it.
func attachFidelity(el *xmltree.Element, req *BuildRequest, section string) *xmltree.Element {
	for _, ext := range req.Extensions {
		if extensionSection(ext.Path) == section {
			el.Raw(ext.Raw)
		}
	}
	for _, c := range req.Comments {
		if extensionSection(c.Path) == section {
			el.Child(xmltree.Comment(c.Text))
		}
	}
	return el
}

// extensionSection maps a captured extension path to its top-level section,
// or "" for root-level payloads.
func extensionSection(path string) string {
	if path == "" || path[0] != '/' {
		return ""
	}
	rest := path[1:]
	if i := strings.IndexByte(rest, '/'); i >= 0 {
		rest = rest[:i]
	}
	switch "/" + rest {
	case "/PartyList", "/ResourceList", "/ReleaseList", "/DealList":
		return "/" + rest
	default:
		return ""
	}
}
