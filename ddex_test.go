package ddex

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// A feed can ship a self-closed <ReleaseResourceReference/> alongside an
// empty resource list; the empty entry maps to no track instead of failing
// the parse or pointing at an arbitrary resource.
func TestParseEmptyResourceReferenceEntry(t *testing.T) {
	doc := `<?xml version="1.0" encoding="UTF-8"?>
<ern:NewReleaseMessage xmlns:ern="http://ddex.net/xml/ern/43">
  <MessageHeader><MessageId>MSG-9</MessageId></MessageHeader>
  <ResourceList></ResourceList>
  <ReleaseList>
    <Release>
      <ReleaseReference>R1</ReleaseReference>
      <DisplayTitleText>Hollow</DisplayTitleText>
      <ReleaseResourceReferenceList>
        <ReleaseResourceReference/>
      </ReleaseResourceReferenceList>
    </Release>
  </ReleaseList>
</ern:NewReleaseMessage>`

	msg, err := Parse(strings.NewReader(doc))
	require.NoError(t, err)
	require.Len(t, msg.Flat.Releases, 1)
	assert.Empty(t, msg.Flat.Releases[0].Tracks)
	assert.Zero(t, msg.Flat.Stats.TrackCount)
}

// The same empty entry must not borrow metadata from whatever resource
// happens to sit first in a non-empty list.
func TestParseEmptyResourceReferenceWithResources(t *testing.T) {
	doc := `<?xml version="1.0" encoding="UTF-8"?>
<ern:NewReleaseMessage xmlns:ern="http://ddex.net/xml/ern/43">
  <MessageHeader><MessageId>MSG-9</MessageId></MessageHeader>
  <ResourceList>
    <SoundRecording>
      <ResourceReference>A1</ResourceReference>
      <DisplayTitleText>Real Track</DisplayTitleText>
    </SoundRecording>
  </ResourceList>
  <ReleaseList>
    <Release>
      <ReleaseReference>R1</ReleaseReference>
      <DisplayTitleText>Hollow</DisplayTitleText>
      <ReleaseResourceReferenceList>
        <ReleaseResourceReference/>
        <ReleaseResourceReference SequenceNumber="1">A1</ReleaseResourceReference>
      </ReleaseResourceReferenceList>
    </Release>
  </ReleaseList>
</ern:NewReleaseMessage>`

	msg, err := Parse(strings.NewReader(doc))
	require.NoError(t, err)
	require.Len(t, msg.Flat.Releases, 1)
	require.Len(t, msg.Flat.Releases[0].Tracks, 1)
	assert.Equal(t, "A1", msg.Flat.Releases[0].Tracks[0].Reference)
	assert.Equal(t, "Real Track", msg.Flat.Releases[0].Tracks[0].Title)
}
