package params

import (
	"encoding/json"
	"math"
	"slices"
	"strconv"
	"strings"

	"github.com/morezero/fred-gateway/pkg/outcome"
)

// Normalize validates raw against spec and returns typed arguments.
// It stops at the first missing or invalid field. Raw keys not named by the
// spec are ignored.
func Normalize(raw Raw, spec Spec, policy Policy) (Args, *outcome.Failure) {
	args := make(Args, len(spec.Fields))
	if err := NormalizeInto(args, raw, spec, policy); err != nil {
		return nil, err
	}
	return args, nil
}

// NormalizeInto is Normalize writing into an existing Args.
func NormalizeInto(args Args, raw Raw, spec Spec, policy Policy) *outcome.Failure {
	for _, f := range spec.Fields {
		v, present := lookup(raw, f.Name)
		if !present {
			if f.Required {
				return outcome.Missing(f.Name)
			}
			if f.Default != nil {
				args[f.Name] = f.Default
			}
			continue
		}

		coerced, keep, fail := coerce(f, v, policy)
		if fail != nil {
			return fail
		}
		if !keep {
			// A dropped required enum is as good as absent.
			if f.Required {
				return outcome.Missing(f.Name)
			}
			continue
		}
		args[f.Name] = coerced
	}
	return nil
}

// lookup treats nil, empty strings and empty lists as absent.
func lookup(raw Raw, name string) (any, bool) {
	v, ok := raw[name]
	if !ok || v == nil {
		return nil, false
	}
	switch t := v.(type) {
	case string:
		if strings.TrimSpace(t) == "" {
			return nil, false
		}
	case []any:
		if len(t) == 0 {
			return nil, false
		}
	case []string:
		if len(t) == 0 {
			return nil, false
		}
	}
	return v, true
}

func coerce(f Field, v any, policy Policy) (any, bool, *outcome.Failure) {
	switch f.Kind {
	case KindInteger:
		n, ok := toInt(v)
		if !ok {
			return nil, false, outcome.Invalid(f.Name, "must be an integer")
		}
		return n, true, nil

	case KindEnum:
		s, ok := scalarString(v)
		if ok && slices.Contains(f.Values, s) {
			if f.Numeric {
				n, _ := strconv.Atoi(s)
				return n, true, nil
			}
			return s, true, nil
		}
		if policy.StrictEnums {
			return nil, false, outcome.Invalid(f.Name, "must be one of "+strings.Join(f.Values, ", ")).
				WithDetail("valid_values", f.Values)
		}
		return nil, false, nil

	case KindDate:
		s, ok := dateString(v)
		if !ok {
			return nil, false, outcome.Invalid(f.Name, "must be a date string")
		}
		return strings.TrimSpace(s), true, nil

	case KindStringList:
		list, ok := toStringList(v)
		if !ok {
			return nil, false, outcome.Invalid(f.Name, "must be a list of strings")
		}
		if len(list) == 0 {
			return nil, false, nil
		}
		return list, true, nil

	default:
		s, ok := scalarString(v)
		if !ok {
			return nil, false, outcome.Invalid(f.Name, "must be a string")
		}
		return s, true, nil
	}
}

func dateString(v any) (string, bool) {
	switch t := v.(type) {
	case string:
		return t, true
	case []string:
		if len(t) == 1 {
			return t[0], true
		}
	case []any:
		if len(t) == 1 {
			return dateString(t[0])
		}
	}
	return "", false
}

// toInt accepts decimal strings and integral JSON numbers.
func toInt(v any) (int, bool) {
	switch t := v.(type) {
	case int:
		return t, true
	case int64:
		return int(t), true
	case float64:
		if t != math.Trunc(t) || math.IsInf(t, 0) || math.IsNaN(t) {
			return 0, false
		}
		// float64(math.MinInt) is exact; its negation is one past math.MaxInt.
		if t < float64(math.MinInt) || t >= -float64(math.MinInt) {
			return 0, false
		}
		return int(t), true
	case json.Number:
		if n, err := strconv.Atoi(t.String()); err == nil {
			return n, true
		}
		f, err := t.Float64()
		if err != nil {
			return 0, false
		}
		return toInt(f)
	case string:
		n, err := strconv.Atoi(strings.TrimSpace(t))
		return n, err == nil
	case []string:
		if len(t) == 1 {
			return toInt(t[0])
		}
	case []any:
		if len(t) == 1 {
			return toInt(t[0])
		}
	}
	return 0, false
}

// scalarString renders strings and numbers; a single-element list from a
// query string counts as its element.
func scalarString(v any) (string, bool) {
	switch t := v.(type) {
	case string:
		return strings.TrimSpace(t), true
	case int:
		return strconv.Itoa(t), true
	case int64:
		return strconv.FormatInt(t, 10), true
	case float64:
		return strconv.FormatFloat(t, 'f', -1, 64), true
	case json.Number:
		return t.String(), true
	case bool:
		return strconv.FormatBool(t), true
	case []string:
		if len(t) == 1 {
			return scalarString(t[0])
		}
	case []any:
		if len(t) == 1 {
			return scalarString(t[0])
		}
	}
	return "", false
}

// toStringList accepts arrays of strings, or a single string holding a
// semicolon-separated list.
func toStringList(v any) ([]string, bool) {
	var items []string
	switch t := v.(type) {
	case string:
		items = strings.Split(t, ";")
	case []string:
		for _, s := range t {
			items = append(items, strings.Split(s, ";")...)
		}
	case []any:
		for _, e := range t {
			s, ok := e.(string)
			if !ok {
				return nil, false
			}
			items = append(items, s)
		}
	default:
		return nil, false
	}

	out := make([]string, 0, len(items))
	for _, s := range items {
		if s = strings.TrimSpace(s); s != "" {
			out = append(out, s)
		}
	}
	return out, true
}

// Scalar returns the named raw value rendered as a string, if it is present
// and scalar. Used to read selector fields before a spec is chosen.
func Scalar(raw Raw, name string) (string, bool) {
	v, ok := lookup(raw, name)
	if !ok {
		return "", false
	}
	s, ok := scalarString(v)
	if !ok || s == "" {
		return "", false
	}
	return s, true
}
