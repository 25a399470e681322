package ddex

import (
	"fmt"

	"github.com/go-playground/validator/v10"
)

// PreflightIssue is one finding from the preflight check.
type PreflightIssue struct {
	Code    string // stable machine-readable code, e.g. MISSING_TITLE
	Message string
	Path    string // request path, e.g. /releases/0
}

func (i PreflightIssue) String() string {
	if i.Path == "" {
		return fmt.Sprintf("%s: %s", i.Code, i.Message)
	}
	return fmt.Sprintf("%s: %s (%s)", i.Code, i.Message, i.Path)
}

// PreflightResult separates findings that block a strict build (Errors)
// from advisory ones (Warnings).
type PreflightResult struct {
	Valid    bool
	Errors   []PreflightIssue
	Warnings []PreflightIssue
}

// Preflighter checks a build request before emission. Implementations can
// plug in partner-specific rule sets; the default covers the structural
// rules every recipient expects.
type Preflighter interface {
	Preflight(req *BuildRequest) (PreflightResult, error)
}

// Preflight issue codes emitted by the default preflighter.
const (
	IssueNoReleases    = "NO_RELEASES"
	IssueMissingTitle  = "MISSING_TITLE"
	IssueMissingArtist = "MISSING_ARTIST"
	IssueMissingISRC   = "MISSING_ISRC"
	IssueEmptyRelease  = "EMPTY_RELEASE"
	IssueInvalidField  = "INVALID_FIELD"
)

var preflightValidate = validator.New(validator.WithRequiredStructEnabled())

// defaultPreflighter applies structural checks on the request. Struct-tag
// validation feeds the error list; catalog-quality findings feed warnings.
type defaultPreflighter struct{}

func (defaultPreflighter) Preflight(req *BuildRequest) (PreflightResult, error) {
	var result PreflightResult

	if err := preflightValidate.Struct(req); err != nil {
		var verrs validator.ValidationErrors
		if ok := asValidationErrors(err, &verrs); !ok {
			return result, err
		}
		for _, ve := range verrs {
			result.Errors = append(result.Errors, PreflightIssue{
				Code:    IssueInvalidField,
				Message: fmt.Sprintf("field %s failed rule %q", ve.Namespace(), ve.Tag()),
			})
		}
	}

	if len(req.Releases) == 0 {
		result.Warnings = append(result.Warnings, PreflightIssue{
			Code:    IssueNoReleases,
			Message: "request contains no releases",
			Path:    "/releases",
		})
	}
	for i, rel := range req.Releases {
		path := fmt.Sprintf("/releases/%d", i)
		if rel.Title == "" {
			result.Warnings = append(result.Warnings, PreflightIssue{
				Code:    IssueMissingTitle,
				Message: "release has no title",
				Path:    path,
			})
		}
		if rel.Artist == "" {
			result.Warnings = append(result.Warnings, PreflightIssue{
				Code:    IssueMissingArtist,
				Message: "release has no display artist",
				Path:    path,
			})
		}
		if len(rel.Tracks) == 0 {
			result.Warnings = append(result.Warnings, PreflightIssue{
				Code:    IssueEmptyRelease,
				Message: "release references no resources",
				Path:    path,
			})
		}
		for j, track := range rel.Tracks {
			if track.ISRC == "" {
				result.Warnings = append(result.Warnings, PreflightIssue{
					Code:    IssueMissingISRC,
					Message: "track has no ISRC",
					Path:    fmt.Sprintf("%s/tracks/%d", path, j),
				})
			}
		}
	}

	result.Valid = len(result.Errors) == 0
	return result, nil
}

func asValidationErrors(err error, target *validator.ValidationErrors) bool {
	verrs, ok := err.(validator.ValidationErrors)
	if ok {
		*target = verrs
	}
	return ok
}
