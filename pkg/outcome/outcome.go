// Package outcome defines the dispatch result type and the failure taxonomy
// shared by the normalizer, the dispatcher and every transport envelope.
package outcome

import "fmt"

// Kind classifies a failed dispatch.
type Kind string

const (
	MissingParameter Kind = "MissingParameter"
	InvalidParameter Kind = "InvalidParameter"
	ValidationError  Kind = "ValidationError"
	UnknownOperation Kind = "UnknownOperation"
	UpstreamError    Kind = "UpstreamError"
)

// Kinds lists every failure kind. Envelope code tables are checked against it.
var Kinds = []Kind{MissingParameter, InvalidParameter, ValidationError, UnknownOperation, UpstreamError}

// IsValidation reports whether the kind is rejected before any upstream call.
func (k Kind) IsValidation() bool {
	switch k {
	case MissingParameter, InvalidParameter, ValidationError:
		return true
	}
	return false
}

// Failure is a classified dispatch failure. Details carries context rendered
// next to the message by transports (e.g. the list of valid values).
type Failure struct {
	Kind    Kind           `json:"kind"`
	Message string         `json:"message"`
	Field   string         `json:"field,omitempty"`
	Details map[string]any `json:"details,omitempty"`
}

func (f *Failure) Error() string {
	return string(f.Kind) + ": " + f.Message
}

// NewFailure creates a Failure.
func NewFailure(kind Kind, message string) *Failure {
	return &Failure{Kind: kind, Message: message}
}

// Missing reports a required field that was absent.
func Missing(field string) *Failure {
	return &Failure{Kind: MissingParameter, Field: field, Message: fmt.Sprintf("%s is required", field)}
}

// Invalid reports a field whose value could not be coerced.
func Invalid(field, reason string) *Failure {
	return &Failure{Kind: InvalidParameter, Field: field, Message: fmt.Sprintf("%s %s", field, reason)}
}

// WithDetail attaches a context value and returns f.
func (f *Failure) WithDetail(key string, value any) *Failure {
	if f.Details == nil {
		f.Details = make(map[string]any)
	}
	f.Details[key] = value
	return f
}

// Outcome is either Ok with a JSON-serializable Result or a Failure.
type Outcome struct {
	Result  any
	Failure *Failure
}

// Ok wraps a successful result.
func Ok(result any) *Outcome {
	return &Outcome{Result: result}
}

// Fail wraps a failure.
func Fail(f *Failure) *Outcome {
	return &Outcome{Failure: f}
}

// IsOk reports whether the outcome succeeded.
func (o *Outcome) IsOk() bool {
	return o != nil && o.Failure == nil
}

// Label returns "ok" or the failure kind, for metrics and events.
func (o *Outcome) Label() string {
	if o.IsOk() {
		return "ok"
	}
	return string(o.Failure.Kind)
}
