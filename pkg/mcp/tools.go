package mcp

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	"github.com/google/jsonschema-go/jsonschema"

	"github.com/morezero/fred-gateway/pkg/params"
	"github.com/morezero/fred-gateway/pkg/registry"
)

// Tool is one entry of a tools/list result.
type Tool struct {
	Name        string             `json:"name"`
	Description string             `json:"description,omitempty"`
	InputSchema *jsonschema.Schema `json:"inputSchema"`
}

// BuildTools describes every registered operation as an MCP tool.
func BuildTools(reg *registry.Registry) []Tool {
	ops := reg.Operations()
	tools := make([]Tool, 0, len(ops))
	for _, op := range ops {
		name := op.ToolName
		if name == "" {
			name = op.Name
		}
		tools = append(tools, Tool{
			Name:        name,
			Description: op.Description,
			InputSchema: InputSchema(op),
		})
	}
	return tools
}

// InputSchema builds the JSON Schema for an operation's arguments. The
// selector is required and enumerated; variant fields are listed as optional
// since each is required only for its own variant.
func InputSchema(op *registry.Operation) *jsonschema.Schema {
	schema := &jsonschema.Schema{
		Type:       "object",
		Properties: make(map[string]*jsonschema.Schema),
	}

	if op.Selector != "" {
		schema.Properties[op.Selector] = &jsonschema.Schema{
			Type:        "string",
			Description: "One of: " + strings.Join(op.VariantNames(), ", "),
			Enum:        stringsToAny(op.VariantNames()),
		}
		schema.Required = append(schema.Required, op.Selector)

		for _, v := range op.Variants {
			for _, f := range v.Params.Fields {
				if _, seen := schema.Properties[f.Name]; seen {
					continue
				}
				prop := fieldSchema(f)
				if f.Required {
					prop.Description = fmt.Sprintf("%s (required when %s=%s)", strings.TrimSuffix(f.Description, "."), op.Selector, v.Name)
				}
				schema.Properties[f.Name] = prop
			}
		}
	}

	for _, f := range op.Params.Fields {
		schema.Properties[f.Name] = fieldSchema(f)
		if f.Required {
			schema.Required = append(schema.Required, f.Name)
		}
	}
	return schema
}

func fieldSchema(f params.Field) *jsonschema.Schema {
	s := &jsonschema.Schema{Description: f.Description}
	switch f.Kind {
	case params.KindInteger:
		s.Type = "integer"
	case params.KindEnum:
		if f.Numeric {
			s.Type = "integer"
			s.Enum = numericEnum(f.Values)
		} else {
			s.Type = "string"
			s.Enum = stringsToAny(f.Values)
		}
	case params.KindDate:
		s.Type = "string"
		s.Format = "date"
	case params.KindStringList:
		s.Type = "array"
		s.Items = &jsonschema.Schema{Type: "string"}
	default:
		s.Type = "string"
	}
	if f.Default != nil {
		if raw, err := json.Marshal(f.Default); err == nil {
			s.Default = raw
		}
	}
	return s
}

func stringsToAny(values []string) []any {
	out := make([]any, len(values))
	for i, v := range values {
		out[i] = v
	}
	return out
}

func numericEnum(values []string) []any {
	out := make([]any, 0, len(values))
	for _, v := range values {
		if n, err := strconv.Atoi(v); err == nil {
			out = append(out, n)
		}
	}
	return out
}
