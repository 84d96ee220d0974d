// Package mcp serves the gateway's operations as MCP tools over a stateless
// JSON-RPC 2.0 HTTP endpoint. Every POST is handled on its own: no session is
// created and no Mcp-Session-Id is issued.
package mcp

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"slices"
	"strings"

	"github.com/google/uuid"
	"github.com/modelcontextprotocol/go-sdk/jsonrpc"

	"github.com/morezero/fred-gateway/pkg/commsutil"
	"github.com/morezero/fred-gateway/pkg/dispatcher"
	"github.com/morezero/fred-gateway/pkg/envelope"
	"github.com/morezero/fred-gateway/pkg/outcome"
	"github.com/morezero/fred-gateway/pkg/params"
)

const logPrefix = "mcp:handler"

// MaxBodyBytes caps a JSON-RPC request body.
const MaxBodyBytes = 1 << 20

const requestIDHeader = "X-Request-Id"

// maxRequestIDLen bounds an echoed client request id.
const maxRequestIDLen = 128

// SupportedProtocolVersions are accepted in initialize, newest first.
var SupportedProtocolVersions = []string{"2025-06-18", "2025-03-26", "2024-11-05"}

// ServerInfo identifies the server in the initialize result.
type ServerInfo struct {
	Name    string `json:"name"`
	Version string `json:"version"`
}

// Handler is the POST /mcp endpoint.
type Handler struct {
	dispatcher *dispatcher.Dispatcher
	info       ServerInfo
	tools      []Tool
}

// NewHandler creates a Handler serving the dispatcher's registry.
func NewHandler(d *dispatcher.Dispatcher, info ServerInfo) *Handler {
	return &Handler{
		dispatcher: d,
		info:       info,
		tools:      BuildTools(d.Registry()),
	}
}

// Tools returns the tool descriptions served by tools/list.
func (h *Handler) Tools() []Tool {
	return h.tools
}

// ServeHTTP implements http.Handler.
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		// Stateless: there is no SSE stream to open and no session to delete.
		w.Header().Set("Allow", http.MethodPost)
		writeRPC(w, http.StatusMethodNotAllowed, envelope.RPCErrorResponse(nil, envelope.CodeServerError, "Method not allowed."))
		return
	}

	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, MaxBodyBytes))
	if err != nil {
		slog.Warn(fmt.Sprintf("%s - failed to read request body: %v", logPrefix, err))
		writeRPC(w, http.StatusBadRequest, envelope.RPCErrorResponse(nil, envelope.CodeParseError, "Parse error: request body could not be read"))
		return
	}

	trimmed := bytes.TrimSpace(body)
	if !json.Valid(trimmed) {
		writeRPC(w, http.StatusBadRequest, envelope.RPCErrorResponse(nil, envelope.CodeParseError, "Parse error"))
		return
	}
	if len(trimmed) > 0 && trimmed[0] == '[' {
		writeRPC(w, http.StatusBadRequest, envelope.RPCErrorResponse(nil, envelope.CodeInvalidRequest, "Invalid Request: batch requests are not supported"))
		return
	}

	msg, err := jsonrpc.DecodeMessage(trimmed)
	if err != nil {
		slog.Debug(fmt.Sprintf("%s - invalid JSON-RPC message: %v", logPrefix, err))
		writeRPC(w, http.StatusBadRequest, envelope.RPCErrorResponse(nil, envelope.CodeInvalidRequest, "Invalid Request"))
		return
	}

	req, ok := msg.(*jsonrpc.Request)
	if !ok {
		// Responses from the client have nothing to answer.
		w.WriteHeader(http.StatusAccepted)
		return
	}
	if req.ID == (jsonrpc.ID{}) {
		slog.Debug(fmt.Sprintf("%s - notification method=%s", logPrefix, req.Method))
		w.WriteHeader(http.StatusAccepted)
		return
	}

	requestID := requestIDFrom(r)
	w.Header().Set(requestIDHeader, requestID)

	id := req.ID.Raw()
	resp := h.handle(r, requestID, id, req.Method, req.Params)
	writeRPC(w, http.StatusOK, resp)
}

// requestIDFrom echoes a client X-Request-Id of sane length, or generates one.
func requestIDFrom(r *http.Request) string {
	id := strings.TrimSpace(r.Header.Get(requestIDHeader))
	if id == "" || len(id) > maxRequestIDLen {
		return uuid.NewString()
	}
	return id
}

func (h *Handler) handle(r *http.Request, requestID string, id any, method string, rawParams json.RawMessage) *envelope.RPCResponse {
	switch method {
	case "initialize":
		return h.initialize(id, rawParams)
	case "ping":
		return &envelope.RPCResponse{JSONRPC: "2.0", ID: id, Result: map[string]any{}}
	case "tools/list":
		return &envelope.RPCResponse{JSONRPC: "2.0", ID: id, Result: map[string]any{"tools": h.tools}}
	case "tools/call":
		return h.callTool(r, requestID, id, rawParams)
	}

	if _, ok := h.dispatcher.Registry().Lookup(method); !ok {
		return envelope.RPCErrorResponse(id, envelope.CodeMethodNotFound, fmt.Sprintf("Method not found: %s", method))
	}
	args, err := commsutil.DecodeObject(rawParams)
	if err != nil {
		return envelope.RPCErrorResponse(id, envelope.CodeInvalidParams, "Invalid params: expected an object")
	}
	out := h.dispatcher.Dispatch(r.Context(), &dispatcher.Request{
		ID:        requestID,
		Transport: dispatcher.TransportMCP,
		Operation: method,
		Params:    params.Raw(args),
	})
	return envelope.ToJSONRPC(id, out)
}

type initializeParams struct {
	ProtocolVersion string `json:"protocolVersion"`
}

func (h *Handler) initialize(id any, rawParams json.RawMessage) *envelope.RPCResponse {
	var p initializeParams
	if len(rawParams) > 0 {
		if err := json.Unmarshal(rawParams, &p); err != nil {
			return envelope.RPCErrorResponse(id, envelope.CodeInvalidParams, "Invalid params: expected an object")
		}
	}

	version := SupportedProtocolVersions[0]
	if slices.Contains(SupportedProtocolVersions, p.ProtocolVersion) {
		version = p.ProtocolVersion
	}

	return &envelope.RPCResponse{
		JSONRPC: "2.0",
		ID:      id,
		Result: map[string]any{
			"protocolVersion": version,
			"capabilities": map[string]any{
				"tools": map[string]any{"listChanged": false},
			},
			"serverInfo": h.info,
		},
	}
}

// callTool runs a tools/call. Failures are JSON-RPC errors coded by kind so
// both transports classify identically.
func (h *Handler) callTool(r *http.Request, requestID string, id any, rawParams json.RawMessage) *envelope.RPCResponse {
	p, err := commsutil.DecodeObject(rawParams)
	if err != nil {
		return envelope.RPCErrorResponse(id, envelope.CodeInvalidParams, "Invalid params: expected an object")
	}
	name, _ := p["name"].(string)
	if strings.TrimSpace(name) == "" {
		return envelope.ToJSONRPC(id, outcome.Fail(outcome.Missing("name")))
	}

	op, ok := h.dispatcher.Registry().LookupTool(name)
	if !ok {
		return envelope.RPCErrorResponse(id, envelope.CodeMethodNotFound, fmt.Sprintf("Unknown tool: %s", name))
	}

	args := params.Raw{}
	switch a := p["arguments"].(type) {
	case nil:
	case map[string]any:
		args = a
	default:
		return envelope.RPCErrorResponse(id, envelope.CodeInvalidParams, "Invalid params: arguments must be an object")
	}

	out := h.dispatcher.Dispatch(r.Context(), &dispatcher.Request{
		ID:        requestID,
		Transport: dispatcher.TransportMCP,
		Operation: op.Name,
		Params:    args,
	})
	if !out.IsOk() {
		return envelope.ToJSONRPC(id, out)
	}

	result, err := toolResult(out.Result)
	if err != nil {
		slog.Error(fmt.Sprintf("%s - failed to encode %s result: %v", logPrefix, op.Name, err))
		return envelope.ToJSONRPC(id, outcome.Fail(outcome.NewFailure(outcome.UpstreamError, err.Error())))
	}
	return &envelope.RPCResponse{JSONRPC: "2.0", ID: id, Result: result}
}

// toolResult renders a dispatch result as MCP text content.
func toolResult(v any) (map[string]any, error) {
	var text []byte
	if raw, ok := v.(json.RawMessage); ok {
		var buf bytes.Buffer
		if err := json.Indent(&buf, raw, "", "  "); err != nil {
			return nil, errors.New("result is not valid JSON")
		}
		text = buf.Bytes()
	} else {
		var err error
		if text, err = json.MarshalIndent(v, "", "  "); err != nil {
			return nil, err
		}
	}
	return map[string]any{
		"content": []map[string]any{{"type": "text", "text": string(text)}},
	}, nil
}

func writeRPC(w http.ResponseWriter, status int, resp *envelope.RPCResponse) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(resp); err != nil {
		slog.Warn(fmt.Sprintf("%s - failed to write response: %v", logPrefix, err))
	}
}
