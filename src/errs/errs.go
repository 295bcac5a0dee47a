// Package errs attaches machine-readable codes and structured context to
// errors so callers can branch on what failed without matching strings.
package errs

import (
	"fmt"

	"github.com/samber/oops"
)

// Code is the machine-readable identifier for an error.
type Code string

const (
	CodeConfigLoadReadFailure      Code = "config.load.read.failure"
	CodeConfigParseInvalidFormat   Code = "config.parse.invalid_format"
	CodeConfigValidateInvalidValue Code = "config.validate.invalid_value"

	CodeSearchRequestInvalid     Code = "search.request.invalid"
	CodeSearchRateLimitCancelled Code = "search.ratelimit.cancelled"
	CodeSearchFetchFailure       Code = "search.fetch.failure"
	CodeSearchFetchStatus        Code = "search.fetch.status"
	CodeSearchParseFailure       Code = "search.parse.failure"

	CodeReportRenderFailure Code = "report.render.failure"

	CodeCLIInputInvalid      Code = "cli.input.invalid"
	CodeToolArgumentsInvalid Code = "tool.arguments.invalid"
)

// Attr is a structured key/value pair attached to an error.
type Attr struct {
	Key   string
	Value any
}

// Field creates a structured error attribute.
func Field(key string, value any) Attr {
	return Attr{Key: key, Value: value}
}

// New creates an error with code, message and optional fields.
func New(code Code, msg string, fields ...Attr) error {
	return oops.Code(code).With(flatten(fields)...).New(msg)
}

// Errorf creates an error with code and a formatted message.
func Errorf(code Code, format string, args ...any) error {
	return oops.Code(code).Errorf(format, args...)
}

// Wrap returns nil when err is nil.
func Wrap(err error, code Code, msg string, fields ...Attr) error {
	if err == nil {
		return nil
	}
	return oops.Code(code).With(flatten(fields)...).Wrapf(err, "%s", msg)
}

// Wrapf is Wrap with a formatted message.
func Wrapf(err error, code Code, format string, args ...any) error {
	if err == nil {
		return nil
	}
	return oops.Code(code).Wrapf(err, format, args...)
}

// CodeOf returns the code carried by err's chain, or "" if there is none.
func CodeOf(err error) Code {
	if err == nil {
		return ""
	}

	oopsErr, ok := oops.AsOops(err)
	if !ok {
		return ""
	}

	switch code := oopsErr.Code().(type) {
	case Code:
		return code
	case string:
		return Code(code)
	case nil:
		return ""
	default:
		return Code(fmt.Sprintf("%v", code))
	}
}

// HasCode reports whether err carries code.
func HasCode(err error, code Code) bool {
	return CodeOf(err) == code
}

// FieldsOf returns the structured context attached along err's chain.
func FieldsOf(err error) map[string]any {
	if err == nil {
		return nil
	}
	oopsErr, ok := oops.AsOops(err)
	if !ok {
		return nil
	}
	return oopsErr.Context()
}

func flatten(fields []Attr) []any {
	out := make([]any, 0, len(fields)*2)
	for _, f := range fields {
		out = append(out, f.Key, f.Value)
	}
	return out
}
