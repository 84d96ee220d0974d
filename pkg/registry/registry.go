// Package registry holds the fixed set of named operations the gateway can
// dispatch. Operations are registered at startup; after Seal the registry is
// read-only and safe to share between goroutines without locking.
package registry

import (
	"context"
	"fmt"
	"sort"

	"github.com/morezero/fred-gateway/pkg/params"
)

const logPrefix = "registry:registry"

// Handler executes an operation with validated arguments. Handlers perform
// upstream I/O and may fail; the dispatcher classifies every error.
type Handler func(ctx context.Context, args params.Args) (any, error)

// Variant is one sub-operation selected by the operation's Selector field.
type Variant struct {
	Name string
	// Params are checked before the operation's shared params. Typically the
	// fields only this variant requires.
	Params  params.Spec
	Handler Handler
}

// Operation is one externally invocable unit of work.
type Operation struct {
	Name        string
	ToolName    string
	Description string
	// Params are the fields shared by every variant (or all fields when the
	// operation has no selector).
	Params params.Spec
	// Selector names the raw field choosing among Variants. Empty means the
	// operation is invoked directly through Handler.
	Selector string
	Variants []Variant
	Handler  Handler
}

// VariantNames returns variant names in registration order.
func (op *Operation) VariantNames() []string {
	names := make([]string, len(op.Variants))
	for i, v := range op.Variants {
		names[i] = v.Name
	}
	return names
}

// Variant returns the named variant.
func (op *Operation) Variant(name string) (*Variant, bool) {
	for i := range op.Variants {
		if op.Variants[i].Name == name {
			return &op.Variants[i], true
		}
	}
	return nil, false
}

func (op *Operation) validate() error {
	if op.Name == "" {
		return fmt.Errorf("%s - operation name is required", logPrefix)
	}
	if op.Selector == "" {
		if op.Handler == nil {
			return fmt.Errorf("%s - operation %s has no handler", logPrefix, op.Name)
		}
		return nil
	}
	if len(op.Variants) == 0 {
		return fmt.Errorf("%s - operation %s has selector %s but no variants", logPrefix, op.Name, op.Selector)
	}
	seen := make(map[string]bool, len(op.Variants))
	for _, v := range op.Variants {
		if v.Name == "" || v.Handler == nil {
			return fmt.Errorf("%s - operation %s has an incomplete variant %q", logPrefix, op.Name, v.Name)
		}
		if seen[v.Name] {
			return fmt.Errorf("%s - operation %s has duplicate variant %s", logPrefix, op.Name, v.Name)
		}
		seen[v.Name] = true
	}
	return nil
}

// Registry maps operation and tool names to operations.
type Registry struct {
	ops    map[string]*Operation
	tools  map[string]*Operation
	order  []string
	sealed bool
}

// New creates an empty, unsealed registry.
func New() *Registry {
	return &Registry{
		ops:   make(map[string]*Operation),
		tools: make(map[string]*Operation),
	}
}

// Register adds an operation. It fails after Seal, on duplicate names and on
// incomplete operations.
func (r *Registry) Register(op Operation) error {
	if r.sealed {
		return fmt.Errorf("%s - registry is sealed, cannot register %s", logPrefix, op.Name)
	}
	if err := op.validate(); err != nil {
		return err
	}
	if _, dup := r.ops[op.Name]; dup {
		return fmt.Errorf("%s - operation %s already registered", logPrefix, op.Name)
	}
	if op.ToolName != "" {
		if _, dup := r.tools[op.ToolName]; dup {
			return fmt.Errorf("%s - tool %s already registered", logPrefix, op.ToolName)
		}
	}

	stored := op
	r.ops[op.Name] = &stored
	if op.ToolName != "" {
		r.tools[op.ToolName] = &stored
	}
	r.order = append(r.order, op.Name)
	return nil
}

// Seal ends registration.
func (r *Registry) Seal() {
	r.sealed = true
}

// Sealed reports whether Seal was called.
func (r *Registry) Sealed() bool {
	return r.sealed
}

// Lookup finds an operation by name.
func (r *Registry) Lookup(name string) (*Operation, bool) {
	if r == nil {
		return nil, false
	}
	op, ok := r.ops[name]
	return op, ok
}

// LookupTool finds an operation by its MCP tool name, falling back to the
// operation name.
func (r *Registry) LookupTool(name string) (*Operation, bool) {
	if r == nil {
		return nil, false
	}
	if op, ok := r.tools[name]; ok {
		return op, true
	}
	return r.Lookup(name)
}

// Names returns operation names in registration order.
func (r *Registry) Names() []string {
	if r == nil {
		return nil
	}
	out := make([]string, len(r.order))
	copy(out, r.order)
	return out
}

// SortedNames returns operation names alphabetically.
func (r *Registry) SortedNames() []string {
	out := r.Names()
	sort.Strings(out)
	return out
}

// Operations returns operations in registration order.
func (r *Registry) Operations() []*Operation {
	if r == nil {
		return nil
	}
	out := make([]*Operation, 0, len(r.order))
	for _, name := range r.order {
		out = append(out, r.ops[name])
	}
	return out
}
