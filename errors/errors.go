package errors

import (
	"errors"
	"fmt"
	"strings"
)

// Code identifies a class of parse or build failure.
type Code string

const (
	// CodeXMLParse indicates the XML input could not be parsed.
	CodeXMLParse Code = "xml-parse-error"
	// CodeVersionUnknown indicates the document namespace maps to no known ERN version.
	CodeVersionUnknown Code = "version-unknown"
	// CodeStructure indicates the document or request violates the ERN document shape.
	CodeStructure Code = "structure-error"
	// CodeReferenceNotFound indicates a symbolic reference has no target.
	CodeReferenceNotFound Code = "reference-not-found"
	// CodeReferenceDuplicate indicates a reference key is defined more than once.
	CodeReferenceDuplicate Code = "reference-duplicate"
	// CodeReferenceCircular indicates a reference chain forms a cycle.
	CodeReferenceCircular Code = "reference-circular"
	// CodeSecurityViolation indicates a configured resource bound was exceeded.
	CodeSecurityViolation Code = "security-violation"
	// CodeMissingRequired indicates a required build field is absent.
	CodeMissingRequired Code = "missing-required"
	// CodeInvalidFormat indicates a build field value has an invalid format.
	CodeInvalidFormat Code = "invalid-format"
	// CodeTimeout indicates the operation exceeded its time budget.
	CodeTimeout Code = "timeout"
	// CodeSerialization indicates request encoding or decoding failed.
	CodeSerialization Code = "serialization-error"
	// CodeIO indicates an underlying I/O failure.
	CodeIO Code = "io-error"
	// CodeXMLGeneration indicates XML emission or a determinism check failed.
	CodeXMLGeneration Code = "xml-generation"
)

// Location carries positional context for diagnostics.
type Location struct {
	Line       int
	Column     int
	ByteOffset int64
	Path       string
}

func (l Location) empty() bool {
	return l.Line == 0 && l.Column == 0 && l.ByteOffset == 0 && l.Path == ""
}

// Error is the typed failure returned by every parse and build operation.
//
//nolint:errname // public API name uses the domain term.
type Error struct {
	Code      Code
	Message   string
	Location  Location
	Limit     string   // set for security violations
	Reference string   // set for reference failures
	Field     string   // set for builder validation failures
	Chain     []string // set for circular references
	cause     error
}

// Error formats the failure with its code and available context.
func (e *Error) Error() string {
	if e == nil {
		return "ddex error <nil>"
	}

	var b strings.Builder
	b.WriteString(fmt.Sprintf("[%s] %s", e.Code, e.Message))
	if e.Field != "" {
		b.WriteString(fmt.Sprintf(" (field: %s)", e.Field))
	}
	if e.Reference != "" {
		b.WriteString(fmt.Sprintf(" (reference: %s)", e.Reference))
	}
	if e.Limit != "" {
		b.WriteString(fmt.Sprintf(" (limit: %s)", e.Limit))
	}
	if len(e.Chain) > 0 {
		b.WriteString(fmt.Sprintf(" (chain: %s)", strings.Join(e.Chain, " -> ")))
	}
	if !e.Location.empty() {
		if e.Location.Path != "" {
			b.WriteString(fmt.Sprintf(" at %s", e.Location.Path))
		}
		if e.Location.Line > 0 {
			b.WriteString(fmt.Sprintf(" (line %d", e.Location.Line))
			if e.Location.Column > 0 {
				b.WriteString(fmt.Sprintf(", column %d", e.Location.Column))
			}
			b.WriteString(")")
		} else if e.Location.ByteOffset > 0 {
			b.WriteString(fmt.Sprintf(" (byte %d)", e.Location.ByteOffset))
		}
	}
	return b.String()
}

// Unwrap returns the wrapped cause, if any.
func (e *Error) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.cause
}

// New builds an Error with a code and message.
func New(code Code, msg string) *Error {
	return &Error{Code: code, Message: msg}
}

// Newf builds an Error with a code and formatted message.
func Newf(code Code, format string, args ...any) *Error {
	return &Error{Code: code, Message: fmt.Sprintf(format, args...)}
}

// Wrap builds an Error wrapping a cause.
func Wrap(code Code, msg string, cause error) *Error {
	return &Error{Code: code, Message: msg, cause: cause}
}

// XML builds a malformed-input error with location context.
func XML(msg string, loc Location) *Error {
	return &Error{Code: CodeXMLParse, Message: msg, Location: loc}
}

// Version builds an unknown-version error for a namespace.
func Version(namespace string) *Error {
	return &Error{Code: CodeVersionUnknown, Message: fmt.Sprintf("unrecognized ERN namespace %q", namespace)}
}

// Security builds a fatal bound-exceeded error naming the limit.
func Security(limit string) *Error {
	return &Error{Code: CodeSecurityViolation, Message: fmt.Sprintf("exceeded %s", limit), Limit: limit}
}

// Reference builds a dangling-reference error.
func Reference(reference string, loc Location) *Error {
	return &Error{
		Code:      CodeReferenceNotFound,
		Message:   fmt.Sprintf("reference %q has no target", reference),
		Reference: reference,
		Location:  loc,
	}
}

// DuplicateReference builds a duplicate-key error.
func DuplicateReference(reference string, loc Location) *Error {
	return &Error{
		Code:      CodeReferenceDuplicate,
		Message:   fmt.Sprintf("reference %q is defined more than once", reference),
		Reference: reference,
		Location:  loc,
	}
}

// Circular builds a cycle error carrying the detected chain.
func Circular(chain []string) *Error {
	return &Error{
		Code:    CodeReferenceCircular,
		Message: "circular reference chain",
		Chain:   chain,
	}
}

// MissingRequired builds a required-field error with its request path.
func MissingRequired(field, path string) *Error {
	return &Error{
		Code:     CodeMissingRequired,
		Message:  fmt.Sprintf("missing required field %s", field),
		Field:    field,
		Location: Location{Path: path},
	}
}

// InvalidFormat builds a field-format error.
func InvalidFormat(field, value string) *Error {
	return &Error{
		Code:    CodeInvalidFormat,
		Message: fmt.Sprintf("invalid value %q for field %s", value, field),
		Field:   field,
	}
}

// Timeout builds a time-budget error.
func Timeout(seconds float64) *Error {
	return &Error{Code: CodeTimeout, Message: fmt.Sprintf("operation timed out after %.1fs", seconds)}
}

// List is an error aggregating multiple diagnostics, used by the
// reference resolver to report every dangling reference in one pass.
//
//nolint:errname // public API name, mirrors the single-error type.
type List []*Error

// Error returns a compact summary of the aggregated errors.
func (l List) Error() string {
	switch len(l) {
	case 0:
		return "no errors"
	case 1:
		return l[0].Error()
	default:
		return fmt.Sprintf("%s (and %d more)", l[0].Error(), len(l)-1)
	}
}

// AsError extracts a typed *Error from err.
func AsError(err error) (*Error, bool) {
	if err == nil {
		return nil, false
	}
	var e *Error
	if errors.As(err, &e) {
		return e, true
	}
	if list, ok := AsList(err); ok && len(list) > 0 {
		return list[0], true
	}
	return nil, false
}

// AsList extracts an aggregated List from err.
func AsList(err error) (List, bool) {
	if err == nil {
		return nil, false
	}
	var list List
	if errors.As(err, &list) {
		return list, true
	}
	var listPtr *List
	if errors.As(err, &listPtr) && listPtr != nil {
		return *listPtr, true
	}
	return nil, false
}

// IsCode reports whether err carries the given code, directly or in a List.
func IsCode(err error, code Code) bool {
	if e, ok := AsError(err); ok && e.Code == code {
		return true
	}
	if list, ok := AsList(err); ok {
		for _, e := range list {
			if e.Code == code {
				return true
			}
		}
	}
	return false
}
