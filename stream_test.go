package ddex

import (
	"bytes"
	"fmt"
	"io"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ddexkit/ddex/errors"
)

func streamHeader() MessageHeaderRequest {
	return MessageHeaderRequest{
		MessageID:       "MSG-1",
		Sender:          PartyRequest{Name: "Example Label", ID: "PADPIDA0001"},
		Recipient:       PartyRequest{Name: "Example DSP"},
		CreatedDateTime: time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC),
	}
}

func TestStreamMatchesMonolithicBuild(t *testing.T) {
	req := sampleRequest()
	monolithic, err := Build(req)
	require.NoError(t, err)

	var out bytes.Buffer
	sb, err := NewStreamBuilder(&out, streamHeader(), V43, NewStreamOptions())
	require.NoError(t, err)

	var refs []string
	for _, track := range req.Releases[0].Tracks {
		ref, err := sb.WriteResource(track)
		require.NoError(t, err)
		refs = append(refs, ref)
	}
	require.NoError(t, sb.FinishResources())

	rel := req.Releases[0]
	for i := range rel.Tracks {
		rel.Tracks[i].Reference = refs[i]
	}
	relRef, err := sb.WriteRelease(rel)
	require.NoError(t, err)
	assert.Equal(t, "R1", relRef)

	deal := req.Deals[0]
	deal.ReleaseReference = relRef
	require.NoError(t, sb.WriteDeal(deal))

	stats, err := sb.Finish()
	require.NoError(t, err)

	assert.Equal(t, monolithic.XML, out.Bytes())
	assert.Equal(t, 2, stats.ResourcesWritten)
	assert.Equal(t, 1, stats.ReleasesWritten)
	assert.Equal(t, 1, stats.DealsWritten)
	assert.Equal(t, int64(out.Len()), stats.BytesWritten)
	assert.Positive(t, stats.PeakBufferBytes)
	assert.Less(t, stats.PeakBufferBytes, stats.BytesWritten)
	assert.Empty(t, stats.Warnings)
}

func TestStreamSectionOrderEnforced(t *testing.T) {
	var out bytes.Buffer
	sb, err := NewStreamBuilder(&out, streamHeader(), V43, NewStreamOptions())
	require.NoError(t, err)

	_, err = sb.WriteRelease(ReleaseRequest{Title: "X", Artist: "Y"})
	require.Error(t, err)
	assert.True(t, errors.IsCode(err, errors.CodeStructure))

	require.NoError(t, sb.FinishResources())
	_, err = sb.WriteResource(TrackRequest{Title: "Late"})
	require.Error(t, err)
	assert.True(t, errors.IsCode(err, errors.CodeStructure))

	err = sb.FinishResources()
	require.Error(t, err)
	assert.True(t, errors.IsCode(err, errors.CodeStructure))
}

func TestStreamUnknownTrackReference(t *testing.T) {
	var out bytes.Buffer
	sb, err := NewStreamBuilder(&out, streamHeader(), V43, NewStreamOptions())
	require.NoError(t, err)
	require.NoError(t, sb.FinishResources())

	_, err = sb.WriteRelease(ReleaseRequest{
		Title:  "X",
		Artist: "Y",
		Tracks: []TrackRequest{{Reference: "A99", Title: "Ghost"}},
	})
	require.Error(t, err)
	assert.True(t, errors.IsCode(err, errors.CodeReferenceNotFound))

	// The stream is latched: every later call fails with the same error.
	_, err = sb.WriteRelease(ReleaseRequest{Title: "X", Artist: "Y"})
	require.Error(t, err)
	_, err = sb.Finish()
	require.Error(t, err)
}

// A large catalog must stream with memory bounded by the largest entity:
// the peak buffer stays far under the configured cap while the document
// itself grows well past it.
func TestStreamLargeCatalogBoundedBuffer(t *testing.T) {
	sb, err := NewStreamBuilder(io.Discard, streamHeader(), V43, NewStreamOptions())
	require.NoError(t, err)

	const n = 10_000
	refs := make([]string, 0, n)
	for i := range n {
		ref, err := sb.WriteResource(TrackRequest{
			Title:    fmt.Sprintf("Track %05d", i),
			Artist:   "Various Artists",
			ISRC:     fmt.Sprintf("USRC2%07d", i),
			Duration: "PT3M0S",
		})
		require.NoError(t, err)
		refs = append(refs, ref)
	}
	require.NoError(t, sb.FinishResources())
	for i := range n {
		_, err := sb.WriteRelease(ReleaseRequest{
			Title:  fmt.Sprintf("Release %05d", i),
			Artist: "Various Artists",
			Tracks: []TrackRequest{{Reference: refs[i], TrackNumber: 1}},
		})
		require.NoError(t, err)
	}

	stats, err := sb.Finish()
	require.NoError(t, err)
	assert.Equal(t, n, stats.ResourcesWritten)
	assert.Equal(t, n, stats.ReleasesWritten)
	assert.Empty(t, stats.Warnings)
	assert.Greater(t, stats.BytesWritten, int64(1<<20))
	assert.Less(t, stats.PeakBufferBytes, int64(defaultMaxBufferSize))
	// Bounded by the largest entity, not the catalog.
	assert.Less(t, stats.PeakBufferBytes, int64(64<<10))
}

func TestStreamUnreferencedResourceWarning(t *testing.T) {
	var out bytes.Buffer
	sb, err := NewStreamBuilder(&out, streamHeader(), V43, NewStreamOptions())
	require.NoError(t, err)

	ref, err := sb.WriteResource(TrackRequest{Title: "Orphan", ISRC: "USRC0"})
	require.NoError(t, err)
	require.NoError(t, sb.FinishResources())

	stats, err := sb.Finish()
	require.NoError(t, err)
	require.Len(t, stats.Warnings, 1)
	assert.Equal(t, "UNREFERENCED_RESOURCE", stats.Warnings[0].Code)
	assert.Contains(t, stats.Warnings[0].Message, ref)
}

func TestStreamUnreferencedWarningsInWriteOrder(t *testing.T) {
	var out bytes.Buffer
	sb, err := NewStreamBuilder(&out, streamHeader(), V43, NewStreamOptions())
	require.NoError(t, err)

	var refs []string
	for _, title := range []string{"Orphan One", "Orphan Two", "Orphan Three"} {
		ref, err := sb.WriteResource(TrackRequest{Title: title})
		require.NoError(t, err)
		refs = append(refs, ref)
	}
	require.NoError(t, sb.FinishResources())

	stats, err := sb.Finish()
	require.NoError(t, err)
	require.Len(t, stats.Warnings, 3)
	for i, ref := range refs {
		assert.Contains(t, stats.Warnings[i].Message, ref)
	}
}

func TestStreamDuplicateResourceReference(t *testing.T) {
	var out bytes.Buffer
	sb, err := NewStreamBuilder(&out, streamHeader(), V43, NewStreamOptions())
	require.NoError(t, err)

	_, err = sb.WriteResource(TrackRequest{Reference: "A1", Title: "One"})
	require.NoError(t, err)
	_, err = sb.WriteResource(TrackRequest{Reference: "A1", Title: "Two"})
	require.Error(t, err)
	assert.True(t, errors.IsCode(err, errors.CodeReferenceDuplicate))
}

func TestStreamBufferLimit(t *testing.T) {
	var out bytes.Buffer
	sb, err := NewStreamBuilder(&out, streamHeader(), V43, NewStreamOptions().WithMaxBufferSize(512))
	require.NoError(t, err)

	_, err = sb.WriteResource(TrackRequest{
		Title: strings.Repeat("very long title ", 100),
		ISRC:  "USRC1",
	})
	require.Error(t, err)
	e, ok := errors.AsError(err)
	require.True(t, ok)
	assert.Equal(t, errors.CodeSecurityViolation, e.Code)
	assert.Equal(t, "max_buffer_size", e.Limit)
}

func TestStreamFinishWithoutReleases(t *testing.T) {
	var out bytes.Buffer
	sb, err := NewStreamBuilder(&out, streamHeader(), V43, NewStreamOptions())
	require.NoError(t, err)

	stats, err := sb.Finish()
	require.NoError(t, err)
	assert.Zero(t, stats.ResourcesWritten)
	assert.Contains(t, out.String(), "<ReleaseList></ReleaseList>")
	assert.Contains(t, out.String(), "</ern:NewReleaseMessage>")
}

func TestStreamRequiresHeaderNames(t *testing.T) {
	var out bytes.Buffer
	header := streamHeader()
	header.Sender.Name = ""
	_, err := NewStreamBuilder(&out, header, V43, NewStreamOptions())
	require.Error(t, err)
	assert.True(t, errors.IsCode(err, errors.CodeMissingRequired))
}
