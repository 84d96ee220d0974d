package envelope

import (
	"encoding/json"

	"github.com/morezero/fred-gateway/pkg/outcome"
)

// CommsRequest is the JSON envelope for incoming COMMS gateway requests.
type CommsRequest struct {
	ID     string             `json:"id"`
	Method string             `json:"method"`
	Params json.RawMessage    `json:"params"`
	Ctx    *InvocationContext `json:"ctx,omitempty"`
}

// InvocationContext holds context from the caller.
type InvocationContext struct {
	RequestID     string `json:"requestId,omitempty"`
	CorrelationID string `json:"correlationId,omitempty"`
	DeadlineMs    int    `json:"deadlineMs,omitempty"`
	TimeoutMs     int    `json:"timeoutMs,omitempty"`
	// VersionRange is a semver constraint the gateway version must satisfy.
	VersionRange string `json:"versionRange,omitempty"`
}

// CommsResponse is the JSON envelope for COMMS gateway responses.
type CommsResponse struct {
	ID     string       `json:"id"`
	Ok     bool         `json:"ok"`
	Result interface{}  `json:"result,omitempty"`
	Error  *ErrorDetail `json:"error,omitempty"`
}

// ErrorDetail holds structured error information.
type ErrorDetail struct {
	Code      string      `json:"code"`
	Message   string      `json:"message"`
	Details   interface{} `json:"details,omitempty"`
	Retryable bool        `json:"retryable"`
}

// COMMS error codes.
const (
	CommsMissingParameter = "MISSING_PARAMETER"
	CommsInvalidParameter = "INVALID_PARAMETER"
	CommsValidationError  = "VALIDATION_ERROR"
	CommsMethodNotFound   = "METHOD_NOT_FOUND"
	CommsUpstreamError    = "UPSTREAM_ERROR"
	CommsInvalidRequest   = "INVALID_REQUEST"
	CommsVersionMismatch  = "VERSION_MISMATCH"
)

var commsCodes = map[outcome.Kind]string{
	outcome.MissingParameter: CommsMissingParameter,
	outcome.InvalidParameter: CommsInvalidParameter,
	outcome.ValidationError:  CommsValidationError,
	outcome.UnknownOperation: CommsMethodNotFound,
	outcome.UpstreamError:    CommsUpstreamError,
}

// CommsCode returns the COMMS error code for a failure kind.
func CommsCode(kind outcome.Kind) string {
	if code, ok := commsCodes[kind]; ok {
		return code
	}
	return CommsUpstreamError
}

// ToComms maps an outcome to a COMMS response. Only upstream failures are retryable.
func ToComms(id string, out *outcome.Outcome) *CommsResponse {
	if out.IsOk() {
		return &CommsResponse{ID: id, Ok: true, Result: out.Result}
	}
	f := out.Failure
	detail := &ErrorDetail{
		Code:      CommsCode(f.Kind),
		Message:   f.Message,
		Retryable: f.Kind == outcome.UpstreamError,
	}
	if len(f.Details) > 0 {
		detail.Details = f.Details
	}
	return &CommsResponse{ID: id, Ok: false, Error: detail}
}

// CommsErrorResponse builds a COMMS error response for transport-level failures.
func CommsErrorResponse(id, code, message string, retryable bool) *CommsResponse {
	return &CommsResponse{
		ID: id,
		Ok: false,
		Error: &ErrorDetail{
			Code:      code,
			Message:   message,
			Retryable: retryable,
		},
	}
}
