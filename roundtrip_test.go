package ddex

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ddexkit/ddex/graph"
)

// Build, parse, convert back to a request, and build again: the second
// document must be byte-identical to the first.
func TestRoundTripByteIdentical(t *testing.T) {
	first, err := Build(sampleRequest())
	require.NoError(t, err)

	msg, err := Parse(bytes.NewReader(first.XML))
	require.NoError(t, err)
	assert.Equal(t, V43, msg.Version)

	req := msg.ToBuildRequest()
	second, err := Build(req)
	require.NoError(t, err)

	assert.Equal(t, string(first.XML), string(second.XML))
	assert.Equal(t, first.CanonicalHash, second.CanonicalHash)
}

func TestRoundTripPreservesCatalog(t *testing.T) {
	result, err := Build(sampleRequest())
	require.NoError(t, err)

	msg, err := Parse(bytes.NewReader(result.XML))
	require.NoError(t, err)

	f := msg.Flat
	assert.Equal(t, "MSG-1", f.MessageID)
	assert.Equal(t, "Example Label", f.Sender.Name)
	assert.Equal(t, "PADPIDA0001", f.Sender.ID)
	require.Len(t, f.Releases, 1)

	rel := f.Releases[0]
	assert.Equal(t, "Midnight Sessions", rel.Title)
	assert.Equal(t, "The Example Band", rel.Artist)
	assert.Equal(t, "1234567890123", rel.ICPN)
	assert.Equal(t, "Electronic", rel.Genre)
	require.Len(t, rel.Tracks, 2)
	assert.Equal(t, "Opening Theme", rel.Tracks[0].Title)
	assert.Equal(t, "USRC12345678", rel.Tracks[0].ISRC)
	assert.Equal(t, 1, rel.Tracks[0].TrackNumber)
	assert.Equal(t, "PT3M25S", rel.Tracks[0].Duration)

	require.Len(t, f.Deals, 1)
	assert.Equal(t, "R1", f.Deals[0].ReleaseReference)
	assert.Equal(t, "SubscriptionModel", f.Deals[0].CommercialModelType)
}

func TestRoundTripExtensionFidelity(t *testing.T) {
	req := sampleRequest()
	req.Extensions = append(req.Extensions,
		graph.Extension{Path: "/ResourceList", Raw: `<CueSheet><Cue>0:00</Cue></CueSheet>`})

	first, err := Build(req)
	require.NoError(t, err)
	assert.Contains(t, string(first.XML), "<CueSheet>")

	opts := NewParseOptions().WithIncludeRawExtensions(true)
	msg, err := ParseWithOptions(bytes.NewReader(first.XML), opts)
	require.NoError(t, err)
	require.NotEmpty(t, msg.Flat.Extensions)

	second, err := Build(msg.ToBuildRequest())
	require.NoError(t, err)
	assert.Contains(t, string(second.XML), "<CueSheet><Cue>0:00</Cue></CueSheet>")
}

func TestRoundTripCommentFidelity(t *testing.T) {
	req := sampleRequest()
	req.Comments = append(req.Comments,
		graph.Comment{Path: "/ResourceList", Text: " catalog batch 7 "},
		graph.Comment{Path: "/NewReleaseMessage", Text: " exported by feed v2 "})

	first, err := Build(req)
	require.NoError(t, err)
	assert.Contains(t, string(first.XML), "<!-- catalog batch 7 -->")
	assert.Contains(t, string(first.XML), "<!-- exported by feed v2 -->")

	opts := NewParseOptions().WithIncludeComments(true)
	msg, err := ParseWithOptions(bytes.NewReader(first.XML), opts)
	require.NoError(t, err)
	require.Len(t, msg.Flat.Comments, 2)

	second, err := Build(msg.ToBuildRequest())
	require.NoError(t, err)
	assert.Contains(t, string(second.XML), "<!-- catalog batch 7 -->")
	assert.Contains(t, string(second.XML), "<!-- exported by feed v2 -->")

	// Without comment fidelity the rebuild is comment-free.
	lossy, err := Parse(bytes.NewReader(first.XML))
	require.NoError(t, err)
	rebuilt, err := Build(lossy.ToBuildRequest())
	require.NoError(t, err)
	assert.NotContains(t, string(rebuilt.XML), "<!--")
}

func TestRoundTripStreamOutput(t *testing.T) {
	req := sampleRequest()
	result, err := Build(req)
	require.NoError(t, err)

	msg, err := Parse(bytes.NewReader(result.XML))
	require.NoError(t, err)
	assert.True(t, msg.Graph.Resolution.Resolved())
	assert.Equal(t, CanonicalHash(result.XML), result.CanonicalHash)
}
