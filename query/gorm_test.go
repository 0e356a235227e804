package query

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/ByLCY/modulistica/binding"
	"github.com/ByLCY/modulistica/definition"
	"github.com/ByLCY/modulistica/dsl"
)

func setupUnitsDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(fmt.Sprintf("file:%s?mode=memory&cache=shared", t.Name())), &gorm.Config{})
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	stmts := []string{
		`CREATE TABLE customers (id INTEGER PRIMARY KEY, nome TEXT NOT NULL, citta TEXT)`,
		`CREATE TABLE units (
			id INTEGER PRIMARY KEY,
			name TEXT NOT NULL,
			parent_id INTEGER NULL,
			customer_id INTEGER NULL,
			stato TEXT NOT NULL
		)`,
		`INSERT INTO customers (id, nome, citta) VALUES (1, 'ACME', 'Milano'), (2, 'Beta', 'Roma')`,
		`INSERT INTO units (id, name, parent_id, customer_id, stato) VALUES
			(1, 'Sede', NULL, 1, 'aperto'),
			(2, 'Reparto A', 1, 1, 'aperto'),
			(3, 'Reparto B', 1, 2, 'chiuso'),
			(4, 'Ufficio A1', 2, NULL, 'aperto'),
			(5, 'Filiale', NULL, 2, 'aperto')`,
	}
	for _, stmt := range stmts {
		if err := db.Exec(stmt).Error; err != nil {
			t.Fatalf("exec %q: %v", stmt, err)
		}
	}
	return db
}

func unitTables() map[string]Table {
	return map[string]Table{
		"unit": {
			Name: "units",
			Relations: map[string]Relation{
				"children": {Kind: "unit", Local: "id", Remote: "parent_id", Many: true},
				"cliente":  {Kind: "customer", Local: "customer_id"},
			},
		},
		"customer": {Name: "customers"},
	}
}

func TestGormSourceFlat(t *testing.T) {
	src := NewGormSource(setupUnitsDB(t), unitTables())
	l := prepared(t, definition.List{
		EntityKind: "unit",
		FilterSpec: map[string]any{"stato": "aperto", "parent_id": ":parent"},
		OrderSpec:  "-name",
	})
	ctx := context.Background()

	rows, err := BuildFlat(ctx, src, l, nil, nil)
	require.NoError(t, err)
	require.Equal(t, []string{"Ufficio A1", "Sede", "Reparto A", "Filiale"}, names(rows))

	rows, err = BuildFlat(ctx, src, l, map[string]string{"parent": "1"}, nil)
	require.NoError(t, err)
	require.Equal(t, []string{"Reparto A"}, names(rows))

	row := rows[0].Item
	kind, id := row.(binding.Identifiable).Identity()
	require.Equal(t, "unit", kind)
	require.Equal(t, "2", id)
	require.Equal(t, "Milano", binding.Stringify(binding.Lookup(row, "cliente.citta")))
}

func TestGormSourceRelationLookupInMemory(t *testing.T) {
	src := NewGormSource(setupUnitsDB(t), unitTables())
	set, err := src.Objects(context.Background(), "unit")
	require.NoError(t, err)
	items, err := set.Where(
		dsl.Lookup{Key: "cliente__citta", Value: "Roma"},
		dsl.Lookup{Key: "name__icontains", Value: "REPARTO"},
	).OrderBy(dsl.ParseOrder("cliente__nome,name")).All(context.Background())
	require.NoError(t, err)
	require.Len(t, items, 1)
	require.Equal(t, "Reparto B", binding.Lookup(items[0], "name"))
}

// ne 下推到 SQL 时与内存匹配结果一致，NULL 列同样视为不等。
func TestGormSourceNotEqualKeepsNulls(t *testing.T) {
	ctx := context.Background()
	lookup := dsl.Lookup{Key: "parent_id__ne", Value: 1}

	src := NewGormSource(setupUnitsDB(t), unitTables())
	set, err := src.Objects(ctx, "unit")
	require.NoError(t, err)
	pushed, err := set.Where(lookup).OrderBy(dsl.Order{{Field: "id"}}).All(ctx)
	require.NoError(t, err)

	mem := NewMemorySource()
	mem.Add("unit",
		binding.Map{"id": 1, "name": "Sede", "parent_id": nil},
		binding.Map{"id": 2, "name": "Reparto A", "parent_id": 1},
		binding.Map{"id": 3, "name": "Reparto B", "parent_id": 1},
		binding.Map{"id": 4, "name": "Ufficio A1", "parent_id": 2},
		binding.Map{"id": 5, "name": "Filiale", "parent_id": nil},
	)
	memSet, err := mem.Objects(ctx, "unit")
	require.NoError(t, err)
	inMemory, err := memSet.Where(lookup).OrderBy(dsl.Order{{Field: "id"}}).All(ctx)
	require.NoError(t, err)

	want := []string{"Sede", "Ufficio A1", "Filiale"}
	for _, items := range [][]any{pushed, inMemory} {
		got := make([]string, len(items))
		for i, it := range items {
			got[i] = binding.Stringify(binding.Lookup(it, "name"))
		}
		require.Equal(t, want, got)
	}
}

func TestGormSourceTree(t *testing.T) {
	src := NewGormSource(setupUnitsDB(t), unitTables())
	l := prepared(t, definition.List{
		EntityKind: "unit",
		Layout:     definition.LayoutTree,
		OrderSpec:  "name",
		Tree:       definition.TreeOptions{ParentField: "parent_id", ChildrenAccessor: "children"},
	})
	rows, err := BuildTree(context.Background(), src, l, nil, nil)
	require.NoError(t, err)
	require.Equal(t, []string{"Filiale", "Sede", "Reparto A", "Ufficio A1", "Reparto B"}, names(rows))
	require.Equal(t, []int{0, 0, 1, 2, 1}, depths(rows))
}

func TestGormSourceErrors(t *testing.T) {
	src := NewGormSource(setupUnitsDB(t), map[string]Table{"ghost": {Name: "ghosts"}})
	_, err := src.Objects(context.Background(), "unit")
	require.ErrorIs(t, err, ErrSource)
	require.ErrorIs(t, err, definition.ErrNotFound)

	set, err := src.Objects(context.Background(), "ghost")
	require.NoError(t, err)
	_, err = set.All(context.Background())
	require.Error(t, err)
	var se *SourceError
	require.True(t, errors.As(err, &se))
	require.Equal(t, "query", se.Op)
}
