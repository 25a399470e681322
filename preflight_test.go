package ddex

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func issueCodes(issues []PreflightIssue) []string {
	codes := make([]string, 0, len(issues))
	for _, i := range issues {
		codes = append(codes, i.Code)
	}
	return codes
}

func TestPreflightValidRequest(t *testing.T) {
	result, err := defaultPreflighter{}.Preflight(sampleRequest())
	require.NoError(t, err)
	assert.True(t, result.Valid)
	assert.Empty(t, result.Errors)
	assert.Empty(t, result.Warnings)
}

func TestPreflightNoReleases(t *testing.T) {
	req := sampleRequest()
	req.Releases = nil
	result, err := defaultPreflighter{}.Preflight(req)
	require.NoError(t, err)
	assert.True(t, result.Valid)
	assert.Contains(t, issueCodes(result.Warnings), IssueNoReleases)
}

func TestPreflightCatalogWarnings(t *testing.T) {
	req := sampleRequest()
	req.Releases[0].Title = ""
	req.Releases[0].Artist = ""
	req.Releases[0].Tracks[0].ISRC = ""
	req.Releases = append(req.Releases, ReleaseRequest{Title: "Empty", Artist: "Nobody"})

	result, err := defaultPreflighter{}.Preflight(req)
	require.NoError(t, err)
	assert.True(t, result.Valid)

	codes := issueCodes(result.Warnings)
	assert.Contains(t, codes, IssueMissingTitle)
	assert.Contains(t, codes, IssueMissingArtist)
	assert.Contains(t, codes, IssueMissingISRC)
	assert.Contains(t, codes, IssueEmptyRelease)
}

func TestPreflightMissingSenderName(t *testing.T) {
	req := sampleRequest()
	req.Header.Sender.Name = ""
	result, err := defaultPreflighter{}.Preflight(req)
	require.NoError(t, err)
	assert.False(t, result.Valid)
	assert.Contains(t, issueCodes(result.Errors), IssueInvalidField)
}

func TestPreflightIssueString(t *testing.T) {
	withPath := PreflightIssue{Code: "MISSING_TITLE", Message: "release has no title", Path: "/releases/0"}
	assert.Equal(t, "MISSING_TITLE: release has no title (/releases/0)", withPath.String())
	bare := PreflightIssue{Code: "NO_RELEASES", Message: "request contains no releases"}
	assert.Equal(t, "NO_RELEASES: request contains no releases", bare.String())
}
