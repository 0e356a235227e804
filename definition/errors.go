package definition

import (
	"errors"
	"fmt"
	"strings"
)

// ErrNotFound is matched by every NotFoundError.
var ErrNotFound = errors.New("定义不存在")

// NotFoundError reports a missing module, list, format or default.
type NotFoundError struct {
	What       string
	EntityKind string
	Variant    string
	Slug       string
}

func (e *NotFoundError) Error() string {
	parts := []string{e.What}
	if e.EntityKind != "" {
		parts = append(parts, "entity="+e.EntityKind)
	}
	if e.Variant != "" {
		parts = append(parts, "variant="+e.Variant)
	}
	if e.Slug != "" {
		parts = append(parts, "slug="+e.Slug)
	} else if e.What == "module" || e.What == "list" {
		parts = append(parts, "default")
	}
	return fmt.Sprintf("%s: %s", ErrNotFound, strings.Join(parts, " "))
}

func (e *NotFoundError) Unwrap() error { return ErrNotFound }

// Selector picks a module or list: by slug when given, else the default for
// the entity kind and variant.
type Selector struct {
	EntityKind string
	Variant    string
	Slug       string
}

// NotFound builds the error for a failed resolution of what ("module", "list").
func (s Selector) NotFound(what string) error {
	return &NotFoundError{What: what, EntityKind: s.EntityKind, Variant: s.Variant, Slug: s.Slug}
}

// Candidate is what Resolve needs from a module or list.
type Candidate interface {
	Key() (entityKind, variant, slug string, isDefault bool)
}

func (m *Module) Key() (string, string, string, bool) {
	return m.EntityKind, m.Variant, m.Slug, m.IsDefault
}

func (l *List) Key() (string, string, string, bool) {
	return l.EntityKind, l.Variant, l.Slug, l.IsDefault
}

// Resolve applies default-or-slug resolution and returns the index of the
// match, or -1. With a slug the entity kind must match when the selector
// names one; without a slug the first default of that kind and variant wins.
func Resolve[T Candidate](sel Selector, items []T) int {
	for i, it := range items {
		kind, variant, slug, isDefault := it.Key()
		if sel.EntityKind != "" && kind != sel.EntityKind {
			continue
		}
		if sel.Slug != "" {
			if slug == sel.Slug {
				return i
			}
			continue
		}
		if isDefault && variant == sel.Variant {
			return i
		}
	}
	return -1
}
