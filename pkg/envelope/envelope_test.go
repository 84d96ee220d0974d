package envelope

import (
	"encoding/json"
	"net/http"
	"testing"

	"github.com/morezero/fred-gateway/pkg/outcome"
)

func TestCodeTables_Total(t *testing.T) {
	for _, kind := range outcome.Kinds {
		if _, ok := rpcCodes[kind]; !ok {
			t.Errorf("envelope:envelope_test - kind %s has no JSON-RPC code", kind)
		}
		if _, ok := commsCodes[kind]; !ok {
			t.Errorf("envelope:envelope_test - kind %s has no COMMS code", kind)
		}
	}
	if len(rpcCodes) != len(outcome.Kinds) || len(commsCodes) != len(outcome.Kinds) {
		t.Errorf("envelope:envelope_test - code tables out of sync with outcome.Kinds")
	}
}

func TestRPCCode(t *testing.T) {
	cases := map[outcome.Kind]int{
		outcome.UnknownOperation: -32601,
		outcome.MissingParameter: -32602,
		outcome.InvalidParameter: -32602,
		outcome.ValidationError:  -32602,
		outcome.UpstreamError:    -32603,
		outcome.Kind("Other"):    -32603,
	}
	for kind, want := range cases {
		if got := RPCCode(kind); got != want {
			t.Errorf("envelope:envelope_test - RPCCode(%s) = %d, want %d", kind, got, want)
		}
	}
}

func TestToREST_Ok(t *testing.T) {
	result := json.RawMessage(`{"seriess":[]}`)
	resp := ToREST(outcome.Ok(result))
	if resp.Status != http.StatusOK {
		t.Errorf("envelope:envelope_test - expected 200, got %d", resp.Status)
	}
	body, _ := json.Marshal(resp.Body)
	if string(body) != `{"seriess":[]}` {
		t.Errorf("envelope:envelope_test - result must not be wrapped, got %s", body)
	}
}

func TestToREST_ValidationKinds(t *testing.T) {
	for _, kind := range []outcome.Kind{outcome.MissingParameter, outcome.InvalidParameter, outcome.ValidationError, outcome.UnknownOperation} {
		f := outcome.NewFailure(kind, "bad input").WithDetail("valid_types", []string{"a", "b"})
		resp := ToREST(outcome.Fail(f))
		if resp.Status != http.StatusBadRequest {
			t.Errorf("envelope:envelope_test - %s: expected 400, got %d", kind, resp.Status)
		}
		body := resp.Body.(map[string]any)
		if body["error"] != "bad input" {
			t.Errorf("envelope:envelope_test - %s: unexpected error %v", kind, body["error"])
		}
		if _, ok := body["valid_types"]; !ok {
			t.Errorf("envelope:envelope_test - %s: details must be merged into body", kind)
		}
	}
}

func TestToREST_DetailCannotOverrideError(t *testing.T) {
	f := outcome.NewFailure(outcome.ValidationError, "real").WithDetail("error", "spoofed")
	body := ToREST(outcome.Fail(f)).Body.(map[string]any)
	if body["error"] != "real" {
		t.Errorf("envelope:envelope_test - expected error=real, got %v", body["error"])
	}
}

func TestToREST_Upstream(t *testing.T) {
	resp := ToREST(outcome.Fail(outcome.NewFailure(outcome.UpstreamError, "FRED API error 503")))
	if resp.Status != http.StatusInternalServerError {
		t.Errorf("envelope:envelope_test - expected 500, got %d", resp.Status)
	}
	body := resp.Body.(map[string]any)
	if body["error"] != InternalErrorMessage || body["message"] != "FRED API error 503" {
		t.Errorf("envelope:envelope_test - unexpected body %v", body)
	}
}

func TestNotFound(t *testing.T) {
	endpoints := []string{"GET /", "GET /health"}
	resp := NotFound("/unknown", endpoints)
	if resp.Status != http.StatusNotFound {
		t.Errorf("envelope:envelope_test - expected 404, got %d", resp.Status)
	}
	body := resp.Body.(map[string]any)
	if body["error"] != "Not found" || body["path"] != "/unknown" {
		t.Errorf("envelope:envelope_test - unexpected body %v", body)
	}
}

func TestToJSONRPC(t *testing.T) {
	resp := ToJSONRPC(float64(7), outcome.Ok(map[string]any{"n": 1}))
	data, _ := json.Marshal(resp)
	if string(data) != `{"jsonrpc":"2.0","id":7,"result":{"n":1}}` {
		t.Errorf("envelope:envelope_test - unexpected ok response %s", data)
	}

	resp = ToJSONRPC("abc", outcome.Ok(nil))
	data, _ = json.Marshal(resp)
	if string(data) != `{"jsonrpc":"2.0","id":"abc","result":{}}` {
		t.Errorf("envelope:envelope_test - nil result must render as {}, got %s", data)
	}

	resp = ToJSONRPC("abc", outcome.Fail(outcome.Missing("series_id")))
	data, _ = json.Marshal(resp)
	if string(data) != `{"jsonrpc":"2.0","id":"abc","error":{"code":-32602,"message":"series_id is required"}}` {
		t.Errorf("envelope:envelope_test - unexpected error response %s", data)
	}

	resp = ToJSONRPC(nil, outcome.Fail(outcome.NewFailure(outcome.UnknownOperation, "Unknown operation: x").WithDetail("valid_operations", []string{"browse"})))
	if resp.Error.Code != CodeMethodNotFound || resp.Error.Data == nil {
		t.Errorf("envelope:envelope_test - unexpected error %+v", resp.Error)
	}
	data, _ = json.Marshal(resp)
	var decoded map[string]any
	_ = json.Unmarshal(data, &decoded)
	if _, ok := decoded["id"]; !ok {
		t.Error("envelope:envelope_test - id must be present even when null")
	}
}

func TestRPCErrorResponse(t *testing.T) {
	resp := RPCErrorResponse(nil, CodeParseError, "Parse error")
	data, _ := json.Marshal(resp)
	if string(data) != `{"jsonrpc":"2.0","id":null,"error":{"code":-32700,"message":"Parse error"}}` {
		t.Errorf("envelope:envelope_test - unexpected response %s", data)
	}
}

func TestCommsRequest_Unmarshal(t *testing.T) {
	raw := `{
		"id": "req-1",
		"method": "get_series",
		"params": {"series_id": "GDP"},
		"ctx": {"requestId": "r-9", "timeoutMs": 5000}
	}`

	var req CommsRequest
	if err := json.Unmarshal([]byte(raw), &req); err != nil {
		t.Fatalf("envelope:envelope_test - failed to unmarshal: %v", err)
	}
	if req.ID != "req-1" || req.Method != "get_series" {
		t.Errorf("envelope:envelope_test - unexpected request %+v", req)
	}
	if req.Ctx == nil || req.Ctx.RequestID != "r-9" || req.Ctx.TimeoutMs != 5000 {
		t.Errorf("envelope:envelope_test - unexpected ctx %+v", req.Ctx)
	}
	if string(req.Params) != `{"series_id": "GDP"}` {
		t.Errorf("envelope:envelope_test - unexpected params %s", req.Params)
	}
}

func TestToComms(t *testing.T) {
	resp := ToComms("req-1", outcome.Ok("x"))
	if !resp.Ok || resp.Error != nil || resp.Result != "x" {
		t.Errorf("envelope:envelope_test - unexpected ok response %+v", resp)
	}

	cases := map[outcome.Kind]struct {
		code      string
		retryable bool
	}{
		outcome.MissingParameter: {CommsMissingParameter, false},
		outcome.InvalidParameter: {CommsInvalidParameter, false},
		outcome.ValidationError:  {CommsValidationError, false},
		outcome.UnknownOperation: {CommsMethodNotFound, false},
		outcome.UpstreamError:    {CommsUpstreamError, true},
	}
	for kind, want := range cases {
		resp := ToComms("req-2", outcome.Fail(outcome.NewFailure(kind, "m")))
		if resp.Ok || resp.ID != "req-2" {
			t.Errorf("envelope:envelope_test - %s: unexpected response %+v", kind, resp)
			continue
		}
		if resp.Error.Code != want.code || resp.Error.Retryable != want.retryable {
			t.Errorf("envelope:envelope_test - %s: got code=%s retryable=%v", kind, resp.Error.Code, resp.Error.Retryable)
		}
	}
}

func TestCommsErrorResponse_Marshal(t *testing.T) {
	data, err := json.Marshal(CommsErrorResponse("req-3", CommsInvalidRequest, "invalid JSON", false))
	if err != nil {
		t.Fatalf("envelope:envelope_test - failed to marshal: %v", err)
	}
	var decoded map[string]any
	if err := json.Unmarshal(data, &decoded); err != nil {
		t.Fatalf("envelope:envelope_test - failed to unmarshal: %v", err)
	}
	if decoded["ok"] != false {
		t.Errorf("envelope:envelope_test - expected ok=false, got %v", decoded["ok"])
	}
	errObj := decoded["error"].(map[string]any)
	if errObj["code"] != CommsInvalidRequest || errObj["retryable"] != false {
		t.Errorf("envelope:envelope_test - unexpected error %v", errObj)
	}
}
