package query

import (
	"context"
	"regexp"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/ByLCY/modulistica/binding"
	"github.com/ByLCY/modulistica/dsl"
)

// Relation 描述从一行到另一实体类型的关联。
// Many 为 true 时访问器返回子集合（Set），否则返回单个实例或 nil。
type Relation struct {
	Kind   string `yaml:"kind"`
	Local  string `yaml:"local"`
	Remote string `yaml:"remote"`
	Many   bool   `yaml:"many"`
}

// Table 将实体类型映射到数据库表。
type Table struct {
	Name       string              `yaml:"table"`
	PrimaryKey string              `yaml:"primary_key"`
	Relations  map[string]Relation `yaml:"relations"`
}

func (t Table) pk() string {
	if t.PrimaryKey == "" {
		return "id"
	}
	return t.PrimaryKey
}

// GormSource 通过 gorm 读取业务表；行以 Row（binding.Map）返回，关联字段为惰性访问器。
type GormSource struct {
	db     *gorm.DB
	tables map[string]Table
}

var _ Source = (*GormSource)(nil)

// NewGormSource creates a source over db with a kind → table mapping.
func NewGormSource(db *gorm.DB, tables map[string]Table) *GormSource {
	return &GormSource{db: db, tables: tables}
}

// Objects implements Source.
func (s *GormSource) Objects(_ context.Context, kind string) (Set, error) {
	t, ok := s.tables[kind]
	if !ok || t.Name == "" {
		return nil, unknownKind(kind)
	}
	return &gormSet{src: s, kind: kind, table: t}, nil
}

// Row 是从数据库读取的一行；实现 binding.Resolvable 与 binding.Identifiable。
type Row struct {
	binding.Map
	kind string
	pk   string
}

// Identity implements binding.Identifiable.
func (r Row) Identity() (string, string) {
	return r.kind, binding.Stringify(r.Map[r.pk])
}

type gormSet struct {
	src     *GormSource
	kind    string
	table   Table
	lookups []dsl.Lookup
	order   dsl.Order
}

func (s *gormSet) clone() *gormSet {
	c := *s
	c.lookups = append([]dsl.Lookup(nil), s.lookups...)
	return &c
}

func (s *gormSet) Where(lookups ...dsl.Lookup) Set {
	c := s.clone()
	c.lookups = append(c.lookups, lookups...)
	return c
}

func (s *gormSet) OrderBy(order dsl.Order) Set {
	c := s.clone()
	c.order = order
	return c
}

var columnName = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*$`)

// All 将单列条件下推为 SQL；跨关联的条件与排序在内存中完成。
func (s *gormSet) All(ctx context.Context) ([]any, error) {
	q := s.src.db.WithContext(ctx).Table(s.table.Name)
	var inMemory []dsl.Lookup
	for _, l := range s.lookups {
		expr, ok := lookupClause(l)
		if !ok {
			inMemory = append(inMemory, l)
			continue
		}
		q = q.Where(expr)
	}
	sortInMemory := false
	for _, term := range s.order {
		path, _ := SplitLookup(term.Field)
		if !columnName.MatchString(path) {
			sortInMemory = true
			break
		}
	}
	if !sortInMemory {
		for _, term := range s.order {
			q = q.Order(clause.OrderByColumn{Column: clause.Column{Name: term.Field}, Desc: term.Desc})
		}
	}

	var records []map[string]any
	if err := q.Find(&records).Error; err != nil {
		return nil, &SourceError{EntityKind: s.kind, Op: "query", Err: err}
	}
	out := make([]any, 0, len(records))
	for _, rec := range records {
		row := s.src.row(ctx, s.kind, s.table, rec)
		if MatchAll(row, inMemory) {
			out = append(out, row)
		}
	}
	if sortInMemory {
		SortItems(out, s.order)
	}
	return out, nil
}

func (s *GormSource) row(ctx context.Context, kind string, t Table, rec map[string]any) Row {
	m := binding.Map(rec)
	for name, rel := range t.Relations {
		rel := rel
		local := m[rel.Local]
		if rel.Local == "" {
			local = m[t.pk()]
		}
		m[name] = func() (any, error) {
			set, err := s.Objects(ctx, rel.Kind)
			if err != nil {
				return nil, err
			}
			remote := rel.Remote
			if remote == "" {
				remote = s.tables[rel.Kind].pk()
			}
			set = set.Where(dsl.Lookup{Key: remote, Value: local})
			if rel.Many {
				return set, nil
			}
			items, err := set.All(ctx)
			if err != nil || len(items) == 0 {
				return nil, err
			}
			return items[0], nil
		}
	}
	return Row{Map: m, kind: kind, pk: t.pk()}
}

// lookupClause 将单列条件翻译为 gorm 子句；无法下推时返回 false。
func lookupClause(l dsl.Lookup) (clause.Expression, bool) {
	path, op := SplitLookup(l.Key)
	if !columnName.MatchString(path) {
		return nil, false
	}
	col := clause.Column{Name: path}
	s := binding.Stringify(l.Value)
	switch op {
	case "exact":
		return clause.Eq{Column: col, Value: l.Value}, true
	case "ne":
		// 与内存匹配一致：NULL 也视为不等
		return clause.Or(clause.Neq{Column: col, Value: l.Value}, clause.Eq{Column: col, Value: nil}), true
	case "iexact":
		return clause.Expr{SQL: "LOWER(?) = LOWER(?)", Vars: []any{col, s}}, true
	case "in":
		return clause.IN{Column: col, Values: toSlice(l.Value)}, true
	case "isnull":
		if truthy(l.Value) {
			return clause.Eq{Column: col, Value: nil}, true
		}
		return clause.Neq{Column: col, Value: nil}, true
	case "contains":
		return clause.Like{Column: col, Value: "%" + s + "%"}, true
	case "icontains":
		return clause.Expr{SQL: "LOWER(?) LIKE LOWER(?)", Vars: []any{col, "%" + s + "%"}}, true
	case "startswith":
		return clause.Like{Column: col, Value: s + "%"}, true
	case "istartswith":
		return clause.Expr{SQL: "LOWER(?) LIKE LOWER(?)", Vars: []any{col, s + "%"}}, true
	case "endswith":
		return clause.Like{Column: col, Value: "%" + s}, true
	case "iendswith":
		return clause.Expr{SQL: "LOWER(?) LIKE LOWER(?)", Vars: []any{col, "%" + s}}, true
	case "gt":
		return clause.Gt{Column: col, Value: l.Value}, true
	case "gte":
		return clause.Gte{Column: col, Value: l.Value}, true
	case "lt":
		return clause.Lt{Column: col, Value: l.Value}, true
	case "lte":
		return clause.Lte{Column: col, Value: l.Value}, true
	}
	return nil, false
}
