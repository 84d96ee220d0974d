// Package params turns loosely typed transport input into validated,
// typed operation arguments according to a declarative Spec.
package params

// Kind is the expected type of a field.
type Kind int

const (
	KindString Kind = iota
	KindInteger
	KindEnum
	KindDate
	KindStringList
)

func (k Kind) String() string {
	switch k {
	case KindString:
		return "string"
	case KindInteger:
		return "integer"
	case KindEnum:
		return "enum"
	case KindDate:
		return "date"
	case KindStringList:
		return "list-of-string"
	}
	return "unknown"
}

// Field describes one parameter.
type Field struct {
	Name     string
	Kind     Kind
	Required bool
	// Default is substituted when an optional field is absent. Nil means
	// the field stays absent.
	Default any
	// Values is the legal set of an enum.
	Values []string
	// Numeric enums are emitted as int (e.g. output_type).
	Numeric     bool
	Description string
}

// Spec is an ordered list of fields.
type Spec struct {
	Fields []Field
}

// NewSpec builds a Spec from fields in order.
func NewSpec(fields ...Field) Spec {
	return Spec{Fields: fields}
}

// Merge returns a spec with the fields of s followed by those of other.
func (s Spec) Merge(other Spec) Spec {
	out := make([]Field, 0, len(s.Fields)+len(other.Fields))
	out = append(out, s.Fields...)
	out = append(out, other.Fields...)
	return Spec{Fields: out}
}

// Field returns the named field.
func (s Spec) Field(name string) (Field, bool) {
	for _, f := range s.Fields {
		if f.Name == name {
			return f, true
		}
	}
	return Field{}, false
}

// Policy controls coercion leniency.
type Policy struct {
	// StrictEnums rejects enum values outside the legal set instead of
	// dropping them.
	StrictEnums bool
}

// Raw is untyped transport input.
type Raw map[string]any

// Args holds validated, typed values: string, int or []string.
type Args map[string]any

// String returns a string argument.
func (a Args) String(name string) (string, bool) {
	v, ok := a[name].(string)
	return v, ok
}

// Int returns an integer argument.
func (a Args) Int(name string) (int, bool) {
	v, ok := a[name].(int)
	return v, ok
}

// IntPtr returns an integer argument as a pointer, nil when absent.
func (a Args) IntPtr(name string) *int {
	v, ok := a[name].(int)
	if !ok {
		return nil
	}
	return &v
}

// Strings returns a list argument.
func (a Args) Strings(name string) ([]string, bool) {
	v, ok := a[name].([]string)
	return v, ok
}

// Has reports whether the argument is present.
func (a Args) Has(name string) bool {
	_, ok := a[name]
	return ok
}
