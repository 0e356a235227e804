package binding

// Resolvable is the capability every renderable entity exposes: a named-field
// lookup that reports absence instead of failing.
type Resolvable interface {
	Field(name string) (any, bool)
}

// Identifiable entities report a stable identity used for cycle detection.
type Identifiable interface {
	Identity() (kind, id string)
}

// Map is a keyed-mapping entity, typically a row loaded from a data store.
type Map map[string]any

// Field implements Resolvable.
func (m Map) Field(name string) (any, bool) {
	v, ok := m[name]
	return v, ok
}

// FieldTable maps field names to accessors of T. It is declared once per
// entity type and replaces reflection-based attribute access.
// An accessor returning []T (e.g. children) yields the bound []Resolvable.
type FieldTable[T any] map[string]func(T) any

// Schema binds a FieldTable to an entity kind and an identity accessor.
type Schema[T any] struct {
	Kind   string
	ID     func(T) string
	Fields FieldTable[T]
}

// Bind wraps v so that it satisfies Resolvable (and Identifiable when ID is set).
func (s *Schema[T]) Bind(v T) Resolvable {
	return entity[T]{value: v, schema: s}
}

// BindAll wraps every element of values.
func (s *Schema[T]) BindAll(values []T) []Resolvable {
	out := make([]Resolvable, len(values))
	for i, v := range values {
		out[i] = s.Bind(v)
	}
	return out
}

type entity[T any] struct {
	value  T
	schema *Schema[T]
}

func (e entity[T]) Field(name string) (any, bool) {
	fn, ok := e.schema.Fields[name]
	if !ok || fn == nil {
		return nil, false
	}
	v := fn(e.value)
	if values, ok := v.([]T); ok {
		return e.schema.BindAll(values), true
	}
	return v, true
}

func (e entity[T]) Identity() (string, string) {
	if e.schema.ID == nil {
		return e.schema.Kind, ""
	}
	return e.schema.Kind, e.schema.ID(e.value)
}
