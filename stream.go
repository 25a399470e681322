package ddex

import (
	"bytes"
	"fmt"
	"io"
	"time"

	"github.com/ddexkit/ddex/errors"
	"github.com/ddexkit/ddex/internal/canonical"
	"github.com/ddexkit/ddex/internal/idgen"
	"github.com/ddexkit/ddex/internal/xmltree"
)

// StreamStats summarizes one streaming assembly.
type StreamStats struct {
	ResourcesWritten int
	ReleasesWritten  int
	DealsWritten     int
	BytesWritten     int64
	// PeakBufferBytes is the largest single-entity buffer held in memory.
	// Memory use is bounded by the largest entity, never the catalog size.
	PeakBufferBytes int64
	Warnings        []PreflightIssue
}

type streamState int

const (
	streamResources streamState = iota
	streamReleases
	streamDeals
	streamFinished
	streamFailed
)

// StreamBuilder assembles a message incrementally, holding only the entity
// being written. Output is byte-identical to a monolithic canonical build
// of the same content: canonical mode emits no inter-element whitespace, so
// fragment concatenation preserves document equality.
//
// Sections must be written in document order: resources, then releases,
// then deals. A StreamBuilder is not safe for concurrent use.
type StreamBuilder struct {
	w       io.Writer
	writer  *canonical.Writer
	gen     idgen.Generator
	opts    resolvedStreamOptions
	version Version
	state   streamState
	buf     bytes.Buffer
	stats   StreamStats

	written      map[string]bool
	writtenOrder []string
	referenced   map[string]bool
	err          error
}

// NewStreamBuilder writes the document preamble (declaration, root open
// tag, message header) and returns a builder positioned at the resource
// section.
func NewStreamBuilder(w io.Writer, header MessageHeaderRequest, version Version, opts StreamOptions) (*StreamBuilder, error) {
	ropts, err := opts.withDefaults()
	if err != nil {
		return nil, err
	}
	if version == VersionUnknown {
		version = LatestVersion
	}
	if header.Sender.Name == "" {
		return nil, errors.MissingRequired("name", "/header/sender/name")
	}
	if header.Recipient.Name == "" {
		return nil, errors.MissingRequired("name", "/header/recipient/name")
	}

	sb := &StreamBuilder{
		w:          w,
		writer:     canonical.NewWriter(canonical.Config{Version: version.String(), LineEnding: ropts.lineEnding}),
		gen:        ropts.generator(),
		opts:       ropts,
		version:    version,
		written:    make(map[string]bool),
		referenced: make(map[string]bool),
	}

	if header.MessageID == "" {
		id, err := sb.gen.Next(idgen.KindMessage, idgen.Identity{
			"title":  header.Sender.Name,
			"artist": header.Recipient.Name,
		})
		if err != nil {
			return nil, sb.fail(errors.Wrap(errors.CodeXMLGeneration, "assign message id", err))
		}
		header.MessageID = id
	}
	if header.CreatedDateTime.IsZero() {
		header.CreatedDateTime = time.Now().UTC()
	}

	sb.buf.WriteString(canonical.Declaration)
	sb.buf.WriteString(ropts.lineEnding)
	root := xmltree.New("ern:NewReleaseMessage").
		Attr("xmlns:ern", version.Namespace()).
		Attr("xmlns:xsi", canonical.XSINamespace).
		Attr("xsi:schemaLocation", canonical.SchemaLocationFor(version.String())).
		Attr("MessageSchemaVersionId", schemaVersionID(version)).
		Attr("LanguageAndScriptCode", "en")
	sb.writer.OpenTag(&sb.buf, root)
	if err := sb.writer.Fragment(&sb.buf, expandHeader(header)); err != nil {
		return nil, sb.fail(errors.Wrap(errors.CodeXMLGeneration, "emit header", err))
	}
	if version == V382 {
		if err := sb.writer.Fragment(&sb.buf, xmltree.New("UpdateIndicator").Child(xmltree.Text("OriginalMessage"))); err != nil {
			return nil, sb.fail(errors.Wrap(errors.CodeXMLGeneration, "emit update indicator", err))
		}
	}
	sb.writer.OpenTag(&sb.buf, xmltree.New("ResourceList"))
	if err := sb.flush(); err != nil {
		return nil, err
	}
	return sb, nil
}

// WriteResource emits one sound recording and returns its reference, which
// releases written later use to point at it.
func (sb *StreamBuilder) WriteResource(track TrackRequest) (string, error) {
	if err := sb.requireState(streamResources, "resource"); err != nil {
		return "", err
	}
	if track.Title == "" {
		return "", errors.MissingRequired("title", "/tracks/title")
	}
	if track.Reference == "" {
		ref, err := sb.gen.Next(idgen.KindResource, idgen.Identity{
			"title":  track.Title,
			"artist": track.Artist,
			"isrc":   track.ISRC,
		})
		if err != nil {
			return "", sb.fail(errors.Wrap(errors.CodeXMLGeneration, "assign resource reference", err))
		}
		track.Reference = ref
	}
	if sb.written[track.Reference] {
		return "", sb.fail(errors.DuplicateReference(track.Reference, errors.Location{Path: "/ResourceList"}))
	}
	if err := sb.emit(expandTrack(track, sb.version)); err != nil {
		return "", err
	}
	sb.written[track.Reference] = true
	sb.writtenOrder = append(sb.writtenOrder, track.Reference)
	sb.stats.ResourcesWritten++
	return track.Reference, nil
}

// FinishResources closes the resource section and opens the release
// section.
func (sb *StreamBuilder) FinishResources() error {
	if err := sb.requireState(streamResources, "finish resources"); err != nil {
		return err
	}
	sb.writer.CloseTag(&sb.buf, "ResourceList")
	sb.writer.OpenTag(&sb.buf, xmltree.New("ReleaseList"))
	if err := sb.flush(); err != nil {
		return err
	}
	sb.state = streamReleases
	return nil
}

// WriteRelease emits one release. Its tracks must reference resources
// already written; unknown references fail the stream rather than emit a
// dangling document.
func (sb *StreamBuilder) WriteRelease(rel ReleaseRequest) (string, error) {
	if err := sb.requireState(streamReleases, "release"); err != nil {
		return "", err
	}
	if rel.Title == "" {
		return "", errors.MissingRequired("title", "/releases/title")
	}
	if rel.Artist == "" {
		return "", errors.MissingRequired("artist", "/releases/artist")
	}
	for i, track := range rel.Tracks {
		if track.Reference == "" {
			return "", errors.MissingRequired("reference", fmt.Sprintf("/releases/tracks/%d/reference", i))
		}
		if !sb.written[track.Reference] {
			return "", sb.fail(errors.Reference(track.Reference, errors.Location{Path: "/ReleaseList"}))
		}
		sb.referenced[track.Reference] = true
	}
	if rel.Reference == "" {
		ref, err := sb.gen.Next(idgen.KindRelease, idgen.Identity{
			"title":  rel.Title,
			"artist": rel.Artist,
			"icpn":   rel.ICPN,
		})
		if err != nil {
			return "", sb.fail(errors.Wrap(errors.CodeXMLGeneration, "assign release reference", err))
		}
		rel.Reference = ref
	}
	if err := sb.emit(expandRelease(rel, sb.version)); err != nil {
		return "", err
	}
	sb.stats.ReleasesWritten++
	return rel.Reference, nil
}

// WriteDeal emits one deal. Deals follow releases; writing the first deal
// closes the release section.
func (sb *StreamBuilder) WriteDeal(deal DealRequest) error {
	switch sb.state {
	case streamReleases:
		sb.writer.CloseTag(&sb.buf, "ReleaseList")
		sb.writer.OpenTag(&sb.buf, xmltree.New("DealList"))
		sb.state = streamDeals
	case streamDeals:
	default:
		return sb.misuse("deal")
	}
	if deal.ReleaseReference == "" {
		return errors.MissingRequired("release_reference", "/deals/release_reference")
	}
	if err := sb.emit(expandDeal(deal)); err != nil {
		return err
	}
	sb.stats.DealsWritten++
	return nil
}

// Finish closes the open sections and the document, and returns the stream
// statistics. Resources never referenced by a release are reported as
// warnings, not errors.
func (sb *StreamBuilder) Finish() (StreamStats, error) {
	switch sb.state {
	case streamResources:
		sb.writer.CloseTag(&sb.buf, "ResourceList")
		sb.writer.OpenTag(&sb.buf, xmltree.New("ReleaseList"))
		sb.writer.CloseTag(&sb.buf, "ReleaseList")
	case streamReleases:
		sb.writer.CloseTag(&sb.buf, "ReleaseList")
	case streamDeals:
		sb.writer.CloseTag(&sb.buf, "DealList")
	default:
		return StreamStats{}, sb.misuse("finish")
	}
	sb.writer.CloseTag(&sb.buf, "ern:NewReleaseMessage")
	sb.buf.WriteString(sb.opts.lineEnding)
	if err := sb.flush(); err != nil {
		return StreamStats{}, err
	}
	sb.state = streamFinished

	// Insertion order, so repeated runs report warnings identically.
	for _, ref := range sb.writtenOrder {
		if !sb.referenced[ref] {
			sb.stats.Warnings = append(sb.stats.Warnings, PreflightIssue{
				Code:    "UNREFERENCED_RESOURCE",
				Message: fmt.Sprintf("resource %s is not referenced by any release", ref),
				Path:    "/ResourceList",
			})
		}
	}
	return sb.stats, nil
}

// emit serializes one entity through the bounded buffer and flushes it.
func (sb *StreamBuilder) emit(el *xmltree.Element) error {
	if err := sb.writer.Fragment(&sb.buf, el); err != nil {
		return sb.fail(errors.Wrap(errors.CodeXMLGeneration, "emit element", err))
	}
	if size := int64(sb.buf.Len()); size > sb.opts.maxBufferSize {
		return sb.fail(errors.Security("max_buffer_size"))
	}
	return sb.flush()
}

func (sb *StreamBuilder) flush() error {
	if size := int64(sb.buf.Len()); size > sb.stats.PeakBufferBytes {
		sb.stats.PeakBufferBytes = size
	}
	n, err := sb.w.Write(sb.buf.Bytes())
	sb.stats.BytesWritten += int64(n)
	sb.buf.Reset()
	if err != nil {
		return sb.fail(errors.Wrap(errors.CodeIO, "write stream", err))
	}
	return nil
}

func (sb *StreamBuilder) requireState(want streamState, what string) error {
	if sb.err != nil {
		return sb.err
	}
	if sb.state != want {
		return sb.misuse(what)
	}
	return nil
}

func (sb *StreamBuilder) misuse(what string) error {
	if sb.err != nil {
		return sb.err
	}
	return errors.Newf(errors.CodeStructure, "cannot write %s in %s", what, sb.stateName())
}

func (sb *StreamBuilder) stateName() string {
	switch sb.state {
	case streamResources:
		return "resource section"
	case streamReleases:
		return "release section"
	case streamDeals:
		return "deal section"
	case streamFinished:
		return "finished document"
	default:
		return "failed stream"
	}
}

// fail latches the stream into a terminal error state; every later call
// returns the first failure.
func (sb *StreamBuilder) fail(err error) error {
	sb.state = streamFailed
	if sb.err == nil {
		sb.err = err
	}
	return err
}
