package binding

import (
	"math/rand"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type customer struct {
	RagioneSociale string
	Address        *address
}

type address struct {
	City string
}

type practice struct {
	Code     string
	Customer *customer
	Tags     []string
}

var addressSchema = &Schema[*address]{
	Kind: "address",
	Fields: FieldTable[*address]{
		"city": func(a *address) any { return a.City },
	},
}

var customerSchema = &Schema[*customer]{
	Kind: "customer",
	Fields: FieldTable[*customer]{
		"ragioneSociale": func(c *customer) any { return c.RagioneSociale },
		"address": func(c *customer) any {
			if c.Address == nil {
				return nil
			}
			return addressSchema.Bind(c.Address)
		},
	},
}

var practiceSchema = &Schema[*practice]{
	Kind: "practice",
	ID:   func(p *practice) string { return p.Code },
	Fields: FieldTable[*practice]{
		"code": func(p *practice) any { return p.Code },
		"cliente": func(p *practice) any {
			if p.Customer == nil {
				return nil
			}
			return customerSchema.Bind(p.Customer)
		},
		"tags":  func(p *practice) any { return p.Tags },
		"upper": func(p *practice) any { return func() any { return strings.ToUpper(p.Code) } },
	},
}

func TestResolveWalksFieldTables(t *testing.T) {
	p := practiceSchema.Bind(&practice{
		Code:     "p-1",
		Customer: &customer{RagioneSociale: "ACME srl", Address: &address{City: "Roma"}},
	})

	v, ok := Resolve(p, "cliente.ragioneSociale")
	require.True(t, ok)
	assert.Equal(t, "ACME srl", v)

	v, ok = Resolve(p, "cliente.address.city")
	require.True(t, ok)
	assert.Equal(t, "Roma", v)

	v, ok = Resolve(p, "upper")
	require.True(t, ok)
	assert.Equal(t, "P-1", v, "zero-argument callables are invoked once")
}

func TestResolveAbsentCustomerIsNotAnError(t *testing.T) {
	p := practiceSchema.Bind(&practice{Code: "p-2"})
	_, ok := Resolve(p, "cliente.ragioneSociale")
	assert.False(t, ok)
	assert.Equal(t, "", Stringify(Lookup(p, "cliente.ragioneSociale")))
}

func TestResolveMapsAndCollections(t *testing.T) {
	root := Map{
		"name": "root",
		"items": []any{
			Map{"name": "child"},
		},
		"nested": map[string]any{"deep": map[string]any{"value": 3}},
	}

	v, ok := Resolve(root, "nested.deep.value")
	require.True(t, ok)
	assert.Equal(t, 3, v)

	v, ok = Resolve(root, "items")
	require.True(t, ok, "a collection is valid as the final segment")
	assert.Len(t, v, 1)

	_, ok = Resolve(root, "items.name")
	assert.False(t, ok, "traversal past a collection is absent")

	_, ok = Resolve(root, "missing.key")
	assert.False(t, ok)
	_, ok = Resolve(root, "name..x")
	assert.False(t, ok)
	_, ok = Resolve(root, "")
	assert.False(t, ok)
}

func TestResolveDoesNotMutateRoot(t *testing.T) {
	root := Map{"a": Map{"b": 1}}
	_, _ = Resolve(root, "a.c.d")
	assert.Equal(t, Map{"a": Map{"b": 1}}, root)
}

func TestResolveRecoversFromPanickingAccessor(t *testing.T) {
	schema := &Schema[int]{Fields: FieldTable[int]{
		"boom": func(int) any { panic("accessor failure") },
		"lazy": func(int) any { return func() (any, error) { return nil, assert.AnError } },
	}}
	_, ok := Resolve(schema.Bind(1), "boom")
	assert.False(t, ok)
	v, ok := Resolve(schema.Bind(1), "lazy")
	assert.True(t, ok)
	assert.Nil(t, v)
}

// 任意根与任意路径组合下 Resolve 都应正常返回。
func TestResolveTotality(t *testing.T) {
	rng := rand.New(rand.NewSource(7))
	roots := []any{
		nil, 1, "text", []any{1, 2},
		Map{"a": Map{"b": []any{Map{"c": 1}}}},
		practiceSchema.Bind(&practice{Code: "x"}),
		practiceSchema.Bind(nil),
	}
	alphabet := []string{"a", "b", "c", "code", "cliente", "tags", ".", "..", " ", "upper", "address"}
	for i := 0; i < 2000; i++ {
		var sb strings.Builder
		for n := rng.Intn(6); n >= 0; n-- {
			sb.WriteString(alphabet[rng.Intn(len(alphabet))])
		}
		root := roots[rng.Intn(len(roots))]
		assert.NotPanics(t, func() { _, _ = Resolve(root, sb.String()) })
	}
}

func TestStringify(t *testing.T) {
	assert.Equal(t, "", Stringify(nil))
	assert.Equal(t, "12.5", Stringify(12.5))
	assert.Equal(t, "3", Stringify(3))
	assert.Equal(t, "True", Stringify(true))
	assert.Equal(t, "2024-03-01", Stringify(time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)))
	assert.Equal(t, "2024-03-01 10:30:00", Stringify(time.Date(2024, 3, 1, 10, 30, 0, 0, time.UTC)))
}

func TestSchemaIdentity(t *testing.T) {
	r := practiceSchema.Bind(&practice{Code: "p-9"})
	id, ok := r.(Identifiable)
	require.True(t, ok)
	kind, key := id.Identity()
	assert.Equal(t, "practice", kind)
	assert.Equal(t, "p-9", key)
}

type unit struct {
	ID       string
	Name     string
	Children []*unit
}

var unitSchema = &Schema[*unit]{
	Kind: "unit",
	ID:   func(u *unit) string { return u.ID },
	Fields: FieldTable[*unit]{
		"name":     func(u *unit) any { return u.Name },
		"children": func(u *unit) any { return u.Children },
	},
}

func TestSchemaBindsSelfTypedSlices(t *testing.T) {
	root := &unit{ID: "1", Name: "a", Children: []*unit{{ID: "2", Name: "B"}, {ID: "3", Name: "A"}}}
	v, ok := unitSchema.Bind(root).Field("children")
	require.True(t, ok)
	children, ok := v.([]Resolvable)
	require.True(t, ok, "[]*unit 应被绑定为 []Resolvable，实际 %T", v)
	require.Len(t, children, 2)

	name, ok := Resolve(children[1], "name")
	require.True(t, ok)
	assert.Equal(t, "A", name)
	_, key := children[0].(Identifiable).Identity()
	assert.Equal(t, "2", key)
}
