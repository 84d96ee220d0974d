// Package envelope maps dispatch outcomes onto the native response shape of
// each transport: REST status and body, JSON-RPC 2.0 result or error, and the
// COMMS request/reply envelope.
package envelope

import (
	"net/http"

	"github.com/morezero/fred-gateway/pkg/outcome"
)

// InternalErrorMessage is the generic REST error for upstream and unclassified failures.
const InternalErrorMessage = "Internal server error"

// RESTResponse is an HTTP status and a JSON-serializable body.
type RESTResponse struct {
	Status int
	Body   any
}

// ToREST maps an outcome to a REST response. Successful results are
// returned verbatim, without wrapping.
func ToREST(out *outcome.Outcome) RESTResponse {
	if out.IsOk() {
		return RESTResponse{Status: http.StatusOK, Body: out.Result}
	}

	f := out.Failure
	if f.Kind == outcome.UpstreamError {
		return InternalError(f.Message)
	}

	body := make(map[string]any, len(f.Details)+1)
	for k, v := range f.Details {
		body[k] = v
	}
	body["error"] = f.Message
	return RESTResponse{Status: http.StatusBadRequest, Body: body}
}

// InternalError builds the 500 body used for upstream failures and for
// anything that escaped dispatch.
func InternalError(message string) RESTResponse {
	return RESTResponse{
		Status: http.StatusInternalServerError,
		Body: map[string]any{
			"error":   InternalErrorMessage,
			"message": message,
		},
	}
}

// NotFound builds the routing-level 404 body.
func NotFound(path string, endpoints []string) RESTResponse {
	return RESTResponse{
		Status: http.StatusNotFound,
		Body: map[string]any{
			"error":               "Not found",
			"path":                path,
			"available_endpoints": endpoints,
		},
	}
}
