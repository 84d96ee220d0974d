// Package dispatcher resolves operations, normalizes their parameters and
// invokes their handlers, turning every result into an outcome.Outcome.
// It is shared by every transport so validation behaves identically on each.
package dispatcher

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/morezero/fred-gateway/pkg/events"
	"github.com/morezero/fred-gateway/pkg/outcome"
	"github.com/morezero/fred-gateway/pkg/params"
	"github.com/morezero/fred-gateway/pkg/registry"
)

const logPrefix = "dispatcher:dispatch"

// Transport names recorded on requests and dispatch events.
const (
	TransportREST  = "rest"
	TransportMCP   = "mcp"
	TransportComms = "comms"
)

// DefaultTimeout bounds a handler call when Options.Timeout is zero.
const DefaultTimeout = 30 * time.Second

// Request is one inbound call, already stripped of its transport envelope.
type Request struct {
	ID        string
	Transport string
	Operation string
	Params    params.Raw
}

// Options configures a Dispatcher.
type Options struct {
	// Timeout bounds each handler call. Negative disables the bound.
	Timeout   time.Duration
	Policy    params.Policy
	Publisher events.EventPublisher
}

// Dispatcher routes requests to registered operations.
type Dispatcher struct {
	registry  *registry.Registry
	timeout   time.Duration
	policy    params.Policy
	publisher events.EventPublisher
	now       func() time.Time
}

// NewDispatcher creates a new Dispatcher.
func NewDispatcher(reg *registry.Registry, opts Options) *Dispatcher {
	timeout := opts.Timeout
	if timeout == 0 {
		timeout = DefaultTimeout
	}
	pub := opts.Publisher
	if pub == nil {
		pub = &events.NoOpPublisher{}
	}
	return &Dispatcher{
		registry:  reg,
		timeout:   timeout,
		policy:    opts.Policy,
		publisher: pub,
		now:       time.Now,
	}
}

// Registry returns the registry the dispatcher routes to.
func (d *Dispatcher) Registry() *registry.Registry {
	return d.registry
}

// Dispatch runs one request to completion. It never returns nil and never
// lets a handler error or panic escape.
func (d *Dispatcher) Dispatch(ctx context.Context, req *Request) *outcome.Outcome {
	slog.Debug(fmt.Sprintf("%s - operation=%s id=%s transport=%s", logPrefix, req.Operation, req.ID, req.Transport))

	start := d.now()
	out, variant := d.dispatch(ctx, req)
	d.emit(ctx, req, variant, out, d.now().Sub(start))
	return out
}

func (d *Dispatcher) dispatch(ctx context.Context, req *Request) (*outcome.Outcome, string) {
	op, ok := d.registry.Lookup(req.Operation)
	if !ok {
		return outcome.Fail(outcome.NewFailure(outcome.UnknownOperation, fmt.Sprintf("Unknown operation: %s", req.Operation)).
			WithDetail("valid_operations", d.registry.Names())), ""
	}

	raw := req.Params
	if raw == nil {
		raw = params.Raw{}
	}

	args := make(params.Args)
	handler := op.Handler
	variantName := ""

	if op.Selector != "" {
		selected, present := params.Scalar(raw, op.Selector)
		if !present {
			return outcome.Fail(outcome.Missing(op.Selector).WithDetail("valid_types", op.VariantNames())), ""
		}
		variant, ok := op.Variant(selected)
		if !ok {
			return outcome.Fail(outcome.NewFailure(outcome.UnknownOperation, fmt.Sprintf("Invalid %s: %s", op.Selector, selected)).
				WithDetail("valid_types", op.VariantNames())), ""
		}
		variantName = variant.Name
		args[op.Selector] = variant.Name

		// Variant-specific requirements come before the shared optional fields.
		if fail := params.NormalizeInto(args, raw, variant.Params, d.policy); fail != nil {
			if fail.Kind == outcome.MissingParameter {
				fail.Message = fmt.Sprintf("%s is required for %s", fail.Field, variant.Name)
			}
			return outcome.Fail(fail), variantName
		}
		handler = variant.Handler
	}

	if fail := params.NormalizeInto(args, raw, op.Params, d.policy); fail != nil {
		return outcome.Fail(fail), variantName
	}

	result, err := d.invoke(ctx, handler, args)
	if err != nil {
		slog.Error(fmt.Sprintf("%s - %s failed: %v", logPrefix, operationLabel(op.Name, variantName), err))
		return outcome.Fail(outcome.NewFailure(outcome.UpstreamError, err.Error())), variantName
	}
	return outcome.Ok(result), variantName
}

type handlerResult struct {
	value any
	err   error
}

// invoke calls h under the dispatcher timeout. A handler that ignores
// cancellation is abandoned; its result is discarded.
func (d *Dispatcher) invoke(ctx context.Context, h registry.Handler, args params.Args) (any, error) {
	if d.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, d.timeout)
		defer cancel()
	}

	done := make(chan handlerResult, 1)
	go func() {
		defer func() {
			if r := recover(); r != nil {
				done <- handlerResult{err: fmt.Errorf("handler panic: %v", r)}
			}
		}()
		v, err := h(ctx, args)
		done <- handlerResult{value: v, err: err}
	}()

	select {
	case r := <-done:
		return r.value, r.err
	case <-ctx.Done():
		if errors.Is(ctx.Err(), context.DeadlineExceeded) {
			return nil, fmt.Errorf("upstream request timed out after %s", d.timeout)
		}
		return nil, fmt.Errorf("request cancelled: %w", ctx.Err())
	}
}

func (d *Dispatcher) emit(ctx context.Context, req *Request, variant string, out *outcome.Outcome, elapsed time.Duration) {
	event := &events.DispatchEvent{
		RequestID:  req.ID,
		Transport:  req.Transport,
		Operation:  req.Operation,
		Variant:    variant,
		Outcome:    out.Label(),
		DurationMs: elapsed.Milliseconds(),
		Timestamp:  d.now().UTC().Format(time.RFC3339Nano),
	}
	if !out.IsOk() {
		event.Message = out.Failure.Message
	}

	// The request context may already be cancelled; events still go out.
	if err := d.publisher.PublishDispatched(context.WithoutCancel(ctx), event); err != nil {
		slog.Warn(fmt.Sprintf("%s - failed to publish dispatch event: %v", logPrefix, err))
	}
}

func operationLabel(op, variant string) string {
	if variant == "" {
		return op
	}
	return op + "/" + variant
}
