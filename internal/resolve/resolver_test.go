package resolve

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ddexkit/ddex/errors"
	"github.com/ddexkit/ddex/graph"
)

func validMessage() *graph.Message {
	return &graph.Message{
		Resources: []graph.Resource{
			{Reference: "A1"},
			{Reference: "A2"},
		},
		Releases: []graph.Release{
			{
				Reference: "R1",
				ResourceReferences: []graph.ResourceReference{
					{Reference: "A1", SequenceNumber: 1},
					{Reference: "A2", SequenceNumber: 2},
				},
			},
		},
		Deals: []graph.Deal{{ReleaseReference: "R1"}},
	}
}

func TestResolveValidMessage(t *testing.T) {
	msg := validMessage()
	err := Resolve(msg, Options{})
	require.NoError(t, err)
	require.NotNil(t, msg.Resolution)
	assert.True(t, msg.Resolution.Resolved())
	// Two release->resource links plus one deal->release link.
	assert.Len(t, msg.Resolution.Entries, 3)
}

func TestResolveDanglingReference(t *testing.T) {
	msg := validMessage()
	msg.Releases[0].ResourceReferences = append(msg.Releases[0].ResourceReferences,
		graph.ResourceReference{Reference: "A99"})

	err := Resolve(msg, Options{})
	require.Error(t, err)

	list, ok := errors.AsList(err)
	require.True(t, ok)
	require.Len(t, list, 1)
	assert.Equal(t, errors.CodeReferenceNotFound, list[0].Code)
	assert.Equal(t, "A99", list[0].Reference)
	assert.Equal(t, "/ReleaseList/0/ReleaseResourceReferenceList/2", list[0].Location.Path)

	require.NotNil(t, msg.Resolution)
	failed := msg.Resolution.Failed()
	require.Len(t, failed, 1)
	assert.Equal(t, -1, failed[0].TargetIndex)
}

func TestResolveBatchesDiagnostics(t *testing.T) {
	msg := &graph.Message{
		Releases: []graph.Release{{
			Reference: "R1",
			ResourceReferences: []graph.ResourceReference{
				{Reference: "A1"}, {Reference: "A2"}, {Reference: "A3"},
			},
		}},
	}
	err := Resolve(msg, Options{})
	require.Error(t, err)
	list, ok := errors.AsList(err)
	require.True(t, ok)
	assert.Len(t, list, 3)
}

func TestResolveDiagnosticsCap(t *testing.T) {
	msg := &graph.Message{
		Releases: []graph.Release{{
			Reference: "R1",
			ResourceReferences: []graph.ResourceReference{
				{Reference: "A1"}, {Reference: "A2"}, {Reference: "A3"},
			},
		}},
	}
	err := Resolve(msg, Options{MaxDiagnostics: 2})
	require.Error(t, err)
	list, _ := errors.AsList(err)
	assert.Len(t, list, 2)
	// The resolution record still covers every reference.
	assert.Len(t, msg.Resolution.Entries, 3)
}

func TestResolveDuplicateKey(t *testing.T) {
	msg := validMessage()
	msg.Resources = append(msg.Resources, graph.Resource{Reference: "A1"})

	err := Resolve(msg, Options{})
	require.Error(t, err)
	list, ok := errors.AsList(err)
	require.True(t, ok)
	require.Len(t, list, 1)
	assert.Equal(t, errors.CodeReferenceDuplicate, list[0].Code)
	assert.Equal(t, "A1", list[0].Reference)
}

func TestResolveCircularLinks(t *testing.T) {
	msg := &graph.Message{
		Resources: []graph.Resource{
			{Reference: "A1", LinkedResourceReferences: []string{"A2"}},
			{Reference: "A2", LinkedResourceReferences: []string{"A3"}},
			{Reference: "A3", LinkedResourceReferences: []string{"A1"}},
		},
	}
	err := Resolve(msg, Options{})
	require.Error(t, err)
	list, ok := errors.AsList(err)
	require.True(t, ok)

	var circular *errors.Error
	for _, e := range list {
		if e.Code == errors.CodeReferenceCircular {
			circular = e
		}
	}
	require.NotNil(t, circular)
	assert.Equal(t, []string{"A1", "A2", "A3", "A1"}, circular.Chain)
}

func TestResolveLinkedResourcesAcyclic(t *testing.T) {
	msg := &graph.Message{
		Resources: []graph.Resource{
			{Reference: "A1", LinkedResourceReferences: []string{"A2"}},
			{Reference: "A2"},
		},
	}
	require.NoError(t, Resolve(msg, Options{}))
	assert.True(t, msg.Resolution.Resolved())
}
