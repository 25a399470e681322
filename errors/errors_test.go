package errors_test

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ddexkit/ddex/errors"
)

func TestErrorFormatting(t *testing.T) {
	tests := []struct {
		name string
		err  *errors.Error
		want string
	}{
		{
			name: "security violation names the limit",
			err:  errors.Security("max_entity_expansions"),
			want: "[security-violation] exceeded max_entity_expansions (limit: max_entity_expansions)",
		},
		{
			name: "reference carries the key",
			err:  errors.Reference("A99", errors.Location{Line: 12, Column: 4}),
			want: `[reference-not-found] reference "A99" has no target (reference: A99) (line 12, column 4)`,
		},
		{
			name: "missing required carries field and path",
			err:  errors.MissingRequired("title", "/releases/0/title"),
			want: "[missing-required] missing required field title (field: title) at /releases/0/title",
		},
		{
			name: "circular chain",
			err:  errors.Circular([]string{"A1", "A2", "A1"}),
			want: "[reference-circular] circular reference chain (chain: A1 -> A2 -> A1)",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.err.Error())
		})
	}
}

func TestListSummarizes(t *testing.T) {
	list := errors.List{
		errors.Reference("A99", errors.Location{}),
		errors.Reference("A100", errors.Location{}),
	}
	assert.Contains(t, list.Error(), "(and 1 more)")
}

func TestAsErrorUnwrapsThroughWrapping(t *testing.T) {
	inner := errors.Security("max_document_size")
	wrapped := fmt.Errorf("parse catalog: %w", inner)

	got, ok := errors.AsError(wrapped)
	require.True(t, ok)
	assert.Equal(t, errors.CodeSecurityViolation, got.Code)
	assert.Equal(t, "max_document_size", got.Limit)
}

func TestIsCodeMatchesListMembers(t *testing.T) {
	var err error = errors.List{errors.Reference("A99", errors.Location{})}
	assert.True(t, errors.IsCode(err, errors.CodeReferenceNotFound))
	assert.False(t, errors.IsCode(err, errors.CodeTimeout))
}
