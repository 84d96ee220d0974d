package envelope

import (
	"github.com/morezero/fred-gateway/pkg/outcome"
)

// JSON-RPC 2.0 error codes.
const (
	CodeParseError     = -32700
	CodeInvalidRequest = -32600
	CodeMethodNotFound = -32601
	CodeInvalidParams  = -32602
	CodeInternalError  = -32603
	// CodeServerError is the implementation-defined code for transport refusals.
	CodeServerError = -32000
)

const jsonrpcVersion = "2.0"

// RPCError is the error member of a JSON-RPC response.
type RPCError struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
	Data    any    `json:"data,omitempty"`
}

// RPCResponse is a JSON-RPC 2.0 response. ID is the request id as decoded
// (string, number or nil).
type RPCResponse struct {
	JSONRPC string    `json:"jsonrpc"`
	ID      any       `json:"id"`
	Result  any       `json:"result,omitempty"`
	Error   *RPCError `json:"error,omitempty"`
}

var rpcCodes = map[outcome.Kind]int{
	outcome.UnknownOperation: CodeMethodNotFound,
	outcome.MissingParameter: CodeInvalidParams,
	outcome.InvalidParameter: CodeInvalidParams,
	outcome.ValidationError:  CodeInvalidParams,
	outcome.UpstreamError:    CodeInternalError,
}

// RPCCode returns the JSON-RPC code for a failure kind. Kinds missing from
// the table map to internal error.
func RPCCode(kind outcome.Kind) int {
	if code, ok := rpcCodes[kind]; ok {
		return code
	}
	return CodeInternalError
}

// ToJSONRPC maps an outcome to a JSON-RPC response for the given id.
func ToJSONRPC(id any, out *outcome.Outcome) *RPCResponse {
	if out.IsOk() {
		result := out.Result
		if result == nil {
			result = map[string]any{}
		}
		return &RPCResponse{JSONRPC: jsonrpcVersion, ID: id, Result: result}
	}

	f := out.Failure
	rpcErr := &RPCError{Code: RPCCode(f.Kind), Message: f.Message}
	if len(f.Details) > 0 {
		rpcErr.Data = f.Details
	}
	return &RPCResponse{JSONRPC: jsonrpcVersion, ID: id, Error: rpcErr}
}

// RPCErrorResponse builds a transport-level JSON-RPC error.
func RPCErrorResponse(id any, code int, message string) *RPCResponse {
	return &RPCResponse{
		JSONRPC: jsonrpcVersion,
		ID:      id,
		Error:   &RPCError{Code: code, Message: message},
	}
}
