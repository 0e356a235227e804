package dsl

import (
	"fmt"
	"sort"
	"strings"

	"github.com/ByLCY/modulistica/binding"
)

// ValueKind tags the variants of Value.
type ValueKind int

const (
	LiteralValue ValueKind = iota
	PlaceholderValue
	ListValue
)

// PlaceholderPrefix marks a value resolved from caller parameters (":name").
const PlaceholderPrefix = ":"

// Value is a filter/root value: Literal(value) | Placeholder(name) | List(items).
type Value struct {
	Kind    ValueKind
	Literal any
	Name    string
	Items   []Value
}

// Literal builds a literal value.
func Literal(v any) Value { return Value{Kind: LiteralValue, Literal: v} }

// Param builds a placeholder value.
func Param(name string) Value { return Value{Kind: PlaceholderValue, Name: name} }

// ParseValue converts a JSON-shaped configuration value. Strings of the form
// ":name" become placeholders; "::text" escapes a literal leading colon.
func ParseValue(raw any) Value {
	switch v := raw.(type) {
	case string:
		switch {
		case strings.HasPrefix(v, "::"):
			return Literal(v[1:])
		case strings.HasPrefix(v, PlaceholderPrefix) && len(v) > 1:
			return Param(strings.TrimSpace(v[1:]))
		default:
			return Literal(v)
		}
	case []any:
		items := make([]Value, len(v))
		for i, item := range v {
			items[i] = ParseValue(item)
		}
		return Value{Kind: ListValue, Items: items}
	case []string:
		items := make([]Value, len(v))
		for i, item := range v {
			items[i] = ParseValue(item)
		}
		return Value{Kind: ListValue, Items: items}
	default:
		return Literal(v)
	}
}

// Bind resolves the value against params. A placeholder with no parameter is
// unresolved; a list keeps its resolved items and is unresolved only when it
// referenced parameters and none of them resolved.
func (v Value) Bind(params map[string]string) (any, bool) {
	switch v.Kind {
	case PlaceholderValue:
		p, ok := params[v.Name]
		return p, ok
	case ListValue:
		out := make([]any, 0, len(v.Items))
		placeholders := false
		for _, item := range v.Items {
			if item.Kind == PlaceholderValue {
				placeholders = true
			}
			if bound, ok := item.Bind(params); ok {
				out = append(out, bound)
			}
		}
		if placeholders && len(out) == 0 {
			return nil, false
		}
		return out, true
	default:
		return v.Literal, true
	}
}

func (v Value) String() string {
	switch v.Kind {
	case PlaceholderValue:
		return PlaceholderPrefix + v.Name
	case ListValue:
		parts := make([]string, len(v.Items))
		for i, item := range v.Items {
			parts[i] = item.String()
		}
		return "[" + strings.Join(parts, ", ") + "]"
	default:
		return binding.Stringify(v.Literal)
	}
}

// Condition is one lookup-key → value entry of a filter spec.
type Condition struct {
	Lookup string
	Value  Value
}

// Filter is a parsed filter spec, ordered by lookup key.
type Filter []Condition

// Lookup is a condition with its value bound.
type Lookup struct {
	Key   string
	Value any
}

// ParseFilter parses a JSON-shaped filter spec once at definition-load time.
func ParseFilter(raw map[string]any) (Filter, error) {
	keys := make([]string, 0, len(raw))
	for k := range raw {
		if strings.TrimSpace(k) == "" {
			return nil, fmt.Errorf("过滤条件包含空的查找键")
		}
		keys = append(keys, k)
	}
	sort.Strings(keys)
	f := make(Filter, 0, len(keys))
	for _, k := range keys {
		f = append(f, Condition{Lookup: strings.TrimSpace(k), Value: ParseValue(raw[k])})
	}
	return f, nil
}

// Bind resolves every condition against params. Conditions whose placeholder is
// not supplied are dropped (returned in dropped) rather than applied.
func (f Filter) Bind(params map[string]string) (lookups []Lookup, dropped []string) {
	for _, c := range f {
		v, ok := c.Value.Bind(params)
		if !ok {
			dropped = append(dropped, c.Lookup)
			continue
		}
		lookups = append(lookups, Lookup{Key: c.Lookup, Value: v})
	}
	return lookups, dropped
}

// OrderTerm is one ordering field; Desc for a leading "-".
type OrderTerm struct {
	Field string
	Desc  bool
}

// Order is a parsed order spec.
type Order []OrderTerm

// ParseOrder parses a comma separated field list, "-" prefix meaning descending.
func ParseOrder(raw string) Order {
	var out Order
	for _, part := range strings.Split(raw, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		term := OrderTerm{Field: part}
		switch part[0] {
		case '-':
			term = OrderTerm{Field: strings.TrimSpace(part[1:]), Desc: true}
		case '+':
			term = OrderTerm{Field: strings.TrimSpace(part[1:])}
		}
		if term.Field != "" {
			out = append(out, term)
		}
	}
	return out
}

func (o Order) String() string {
	parts := make([]string, len(o))
	for i, t := range o {
		if t.Desc {
			parts[i] = "-" + t.Field
		} else {
			parts[i] = t.Field
		}
	}
	return strings.Join(parts, ",")
}
