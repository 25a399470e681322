package ddex

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseOptionsDefaults(t *testing.T) {
	resolved, err := NewParseOptions().withDefaults()
	require.NoError(t, err)

	assert.Equal(t, int64(1<<30), resolved.limits.MaxDocumentSize)
	assert.Equal(t, 100, resolved.limits.MaxElementDepth)
	assert.Equal(t, 100_000, resolved.limits.MaxEntityExpansions)
	assert.True(t, resolved.limits.DisableDTD)
	assert.True(t, resolved.limits.DisableExternal)
	assert.Equal(t, 100, resolved.maxDiagnostics)
	assert.Equal(t, UnknownVersionLatest, resolved.unknownVersion)
	assert.False(t, resolved.includeRawExtensions)
}

func TestParseOptionsChaining(t *testing.T) {
	opts := NewParseOptions().
		WithMaxDocumentSize(1024).
		WithMaxElementDepth(10).
		WithAllowDTD(true).
		WithTimeout(time.Second).
		WithIncludeRawExtensions(true)

	resolved, err := opts.withDefaults()
	require.NoError(t, err)
	assert.Equal(t, int64(1024), resolved.limits.MaxDocumentSize)
	assert.Equal(t, 10, resolved.limits.MaxElementDepth)
	assert.False(t, resolved.limits.DisableDTD)
	assert.Equal(t, time.Second, resolved.timeout)
	assert.True(t, resolved.includeRawExtensions)

	// The original value is unchanged; setters return copies.
	base, err := NewParseOptions().withDefaults()
	require.NoError(t, err)
	assert.Equal(t, int64(1<<30), base.limits.MaxDocumentSize)
}

func TestParseOptionsRejectNegativeLimits(t *testing.T) {
	assert.Error(t, NewParseOptions().WithMaxDocumentSize(-1).Validate())
	assert.Error(t, NewParseOptions().WithMaxElementDepth(-1).Validate())
	assert.Error(t, NewParseOptions().WithMaxEntityExpansions(-1).Validate())
	assert.Error(t, NewParseOptions().WithMaxDiagnostics(-1).Validate())
	assert.NoError(t, NewParseOptions().Validate())
}

func TestBuildOptionsDefaults(t *testing.T) {
	resolved, err := NewBuildOptions().withDefaults()
	require.NoError(t, err)
	assert.Equal(t, IDSequential, resolved.idStrategy)
	assert.Equal(t, "\n", resolved.lineEnding)
	assert.False(t, resolved.pretty)
	assert.Equal(t, PreflightWarn, resolved.preflightLevel)
	assert.NotNil(t, resolved.preflighter)
	assert.Equal(t, "v1", resolved.recipe.Version)
}

func TestBuildOptionsRejectNegativeVerify(t *testing.T) {
	assert.Error(t, NewBuildOptions().WithVerifyDeterminism(-1).Validate())
}

func TestStreamOptionsDefaults(t *testing.T) {
	resolved, err := NewStreamOptions().withDefaults()
	require.NoError(t, err)
	assert.Equal(t, int64(10<<20), resolved.maxBufferSize)
	assert.Equal(t, "\n", resolved.lineEnding)
}
