package rest

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"mime"
	"net/http"
	"net/url"
	"strings"

	"github.com/morezero/fred-gateway/pkg/commsutil"
	"github.com/morezero/fred-gateway/pkg/outcome"
	"github.com/morezero/fred-gateway/pkg/params"
)

const inputLogPrefix = "rest:input"

// MaxBodyBytes caps a request body.
const MaxBodyBytes = 1 << 20

// ReadParams collects raw parameters from the query string and the body.
// Body fields win over query fields of the same name. JSON and urlencoded
// bodies are accepted; an empty body is an empty object.
func ReadParams(r *http.Request) (params.Raw, *outcome.Failure) {
	raw := params.Raw{}
	mergeValues(raw, r.URL.Query())

	if r.Body == nil || r.Method == http.MethodGet || r.Method == http.MethodHead {
		return raw, nil
	}

	body, err := io.ReadAll(io.LimitReader(r.Body, MaxBodyBytes+1))
	if err != nil {
		slog.Warn(fmt.Sprintf("%s - failed to read body: %v", inputLogPrefix, err))
		return nil, outcome.NewFailure(outcome.ValidationError, "Request body could not be read")
	}
	if len(body) > MaxBodyBytes {
		return nil, outcome.NewFailure(outcome.ValidationError, "Request body too large")
	}
	if len(strings.TrimSpace(string(body))) == 0 {
		return raw, nil
	}

	mediaType, _, _ := mime.ParseMediaType(r.Header.Get("Content-Type"))
	if mediaType == "application/x-www-form-urlencoded" {
		form, err := url.ParseQuery(string(body))
		if err != nil {
			return nil, outcome.NewFailure(outcome.ValidationError, "Invalid form body")
		}
		mergeValues(raw, form)
		return raw, nil
	}

	if !json.Valid(body) {
		return nil, outcome.NewFailure(outcome.ValidationError, "Invalid JSON in request body")
	}
	obj, err := commsutil.DecodeObject(body)
	if err != nil {
		if errors.Is(err, commsutil.ErrNotObject) {
			return nil, outcome.NewFailure(outcome.ValidationError, "Request body must be a JSON object")
		}
		return nil, outcome.NewFailure(outcome.ValidationError, "Invalid JSON in request body")
	}
	for k, v := range obj {
		raw[k] = v
	}
	return raw, nil
}

// mergeValues copies url.Values into raw: single values as strings, repeated
// keys as lists.
func mergeValues(raw params.Raw, values url.Values) {
	for k, vs := range values {
		switch len(vs) {
		case 0:
		case 1:
			raw[k] = vs[0]
		default:
			raw[k] = vs
		}
	}
}
