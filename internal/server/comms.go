package server

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	comms "github.com/nats-io/nats.go"

	"github.com/morezero/fred-gateway/pkg/commsutil"
	"github.com/morezero/fred-gateway/pkg/dispatcher"
	"github.com/morezero/fred-gateway/pkg/envelope"
	"github.com/morezero/fred-gateway/pkg/params"
	"github.com/morezero/fred-gateway/pkg/semver"
)

const commsLogPrefix = "server:comms"

// commsHandler answers gateway requests arriving over COMMS request/reply.
type commsHandler struct {
	dispatcher *dispatcher.Dispatcher
	version    string
}

// onMessage handles one request on its own goroutine so a slow upstream
// call does not hold up the subscription.
func (h *commsHandler) onMessage(ctx context.Context) comms.MsgHandler {
	return func(msg *comms.Msg) {
		go func() {
			resp := h.handle(ctx, msg.Data)
			data, err := commsutil.EncodePayload(resp)
			if err != nil {
				slog.Error(fmt.Sprintf("%s - failed to encode response: %v", commsLogPrefix, err))
				return
			}
			if err := msg.Respond(data); err != nil {
				slog.Warn(fmt.Sprintf("%s - failed to respond: %v", commsLogPrefix, err))
			}
		}()
	}
}

// handle decodes a CommsRequest, dispatches it and builds the reply.
func (h *commsHandler) handle(ctx context.Context, data []byte) *envelope.CommsResponse {
	var req envelope.CommsRequest
	if err := commsutil.DecodePayload(data, &req); err != nil {
		slog.Error(fmt.Sprintf("%s - failed to decode request: %v", commsLogPrefix, err))
		return envelope.CommsErrorResponse("", envelope.CommsInvalidRequest, "Failed to decode request", false)
	}
	if strings.TrimSpace(req.Method) == "" {
		return envelope.CommsErrorResponse(req.ID, envelope.CommsInvalidRequest, "method is required", false)
	}

	if req.Ctx != nil && req.Ctx.VersionRange != "" && !semver.Satisfies(h.version, req.Ctx.VersionRange) {
		return envelope.CommsErrorResponse(req.ID, envelope.CommsVersionMismatch,
			fmt.Sprintf("gateway version %s does not satisfy %s", h.version, req.Ctx.VersionRange), false)
	}

	args, err := commsutil.DecodeObject(req.Params)
	if err != nil {
		return envelope.CommsErrorResponse(req.ID, envelope.CommsInvalidRequest, "params must be a JSON object", false)
	}

	// Tool names are accepted as aliases of operation names.
	operation := req.Method
	if op, ok := h.dispatcher.Registry().LookupTool(req.Method); ok {
		operation = op.Name
	}

	requestID := req.ID
	if req.Ctx != nil {
		if req.Ctx.RequestID != "" {
			requestID = req.Ctx.RequestID
		}
		// The caller's deadline may shorten, never extend, the dispatcher timeout.
		ms := req.Ctx.DeadlineMs
		if ms <= 0 {
			ms = req.Ctx.TimeoutMs
		}
		if ms > 0 {
			var cancel context.CancelFunc
			ctx, cancel = context.WithTimeout(ctx, time.Duration(ms)*time.Millisecond)
			defer cancel()
		}
	}

	out := h.dispatcher.Dispatch(ctx, &dispatcher.Request{
		ID:        requestID,
		Transport: dispatcher.TransportComms,
		Operation: operation,
		Params:    params.Raw(args),
	})
	return envelope.ToComms(req.ID, out)
}
