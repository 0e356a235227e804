package query

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"

	"go.uber.org/zap"

	"github.com/ByLCY/modulistica/binding"
	"github.com/ByLCY/modulistica/definition"
	"github.com/ByLCY/modulistica/dsl"
)

const (
	// FilterParamPrefix 标记调用方临时追加的过滤条件，例如 "filter:stato=aperto"。
	FilterParamPrefix = "filter:"
	// OrderParam 覆盖列表定义中的排序。
	OrderParam = "order"
)

// BuildFlat 返回按列表过滤与排序后的实例（深度均为 0）。
// 参数中缺失的占位符会使对应条件被丢弃而不是排除全部行。
func BuildFlat(ctx context.Context, src Source, l *definition.List, params map[string]string, log *zap.Logger) ([]TreeRow, error) {
	base, err := baseSet(ctx, src, l, params, logger(log))
	if err != nil {
		return nil, err
	}
	items, err := base.OrderBy(flatOrder(l, params)).All(ctx)
	if err != nil {
		return nil, wrapSource(l.EntityKind, "all", err)
	}
	rows := make([]TreeRow, len(items))
	for i, item := range items {
		rows[i] = TreeRow{Item: item}
	}
	return rows, nil
}

// BuildTree 深度优先遍历：先确定根，再经子访问器或父链字段递归取子节点。
// 已访问的节点（按类型与标识）被静默跳过，因此任何环都会终止。
func BuildTree(ctx context.Context, src Source, l *definition.List, params map[string]string, log *zap.Logger) ([]TreeRow, error) {
	log = logger(log)
	base, err := baseSet(ctx, src, l, params, log)
	if err != nil {
		return nil, err
	}
	filter, _ := l.Filter.Bind(params)
	filter = append(filter, adhocLookups(params)...)
	order := l.Tree.OrderBy
	if len(order) == 0 {
		order = flatOrder(l, params)
	}

	roots, err := rootSet(l, base, params, log).OrderBy(order).All(ctx)
	if err != nil {
		return nil, wrapSource(l.EntityKind, "roots", err)
	}

	t := &treeWalker{
		ctx:     ctx,
		src:     src,
		list:    l,
		filter:  filter,
		order:   order,
		visited: map[string]struct{}{},
		log:     log,
	}
	for _, root := range roots {
		if err := t.visit(root, 0); err != nil {
			return nil, err
		}
	}
	return t.rows, nil
}

func logger(log *zap.Logger) *zap.Logger {
	if log == nil {
		return zap.NewNop()
	}
	return log
}

func baseSet(ctx context.Context, src Source, l *definition.List, params map[string]string, log *zap.Logger) (Set, error) {
	if l == nil {
		return nil, fmt.Errorf("list 定义为空")
	}
	set, err := src.Objects(ctx, l.EntityKind)
	if err != nil {
		return nil, wrapSource(l.EntityKind, "objects", err)
	}
	lookups, dropped := l.Filter.Bind(params)
	if len(dropped) > 0 {
		log.Debug("过滤条件的占位符未提供，已忽略",
			zap.String("list", l.Slug),
			zap.Strings("lookups", dropped))
	}
	return set.Where(append(lookups, adhocLookups(params)...)...), nil
}

// adhocLookups 收集 "filter:" 前缀的参数，按键排序。
func adhocLookups(params map[string]string) []dsl.Lookup {
	var out []dsl.Lookup
	for k, v := range params {
		if key := strings.TrimPrefix(k, FilterParamPrefix); key != k && strings.TrimSpace(key) != "" {
			out = append(out, dsl.Lookup{Key: strings.TrimSpace(key), Value: v})
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Key < out[j].Key })
	return out
}

func flatOrder(l *definition.List, params map[string]string) dsl.Order {
	if raw := strings.TrimSpace(params[OrderParam]); raw != "" {
		return dsl.ParseOrder(raw)
	}
	return l.OrderBy
}

// rootSet 依次尝试：根 id 列表（与基础过滤求交）、根过滤条件、父链字段为空。
func rootSet(l *definition.List, base Set, params map[string]string, log *zap.Logger) Set {
	var ids []any
	for _, v := range l.Tree.RootIDs {
		bound, ok := v.Bind(params)
		if !ok {
			log.Debug("根 id 占位符未提供，已忽略", zap.String("list", l.Slug), zap.String("value", v.String()))
			continue
		}
		if list, isList := bound.([]any); isList {
			ids = append(ids, list...)
			continue
		}
		ids = append(ids, toSlice(bound)...)
	}
	if len(ids) > 0 {
		return base.Where(dsl.Lookup{Key: "id__in", Value: ids})
	}
	if lookups, _ := l.Tree.RootFilter.Bind(params); len(lookups) > 0 {
		return base.Where(lookups...)
	}
	if l.Tree.ParentField != "" {
		return base.Where(dsl.Lookup{Key: l.Tree.ParentField + lookupSep + "isnull", Value: true})
	}
	return base
}

type treeWalker struct {
	ctx     context.Context
	src     Source
	list    *definition.List
	filter  []dsl.Lookup
	order   dsl.Order
	visited map[string]struct{}
	rows    []TreeRow
	log     *zap.Logger
}

func (t *treeWalker) visit(node any, level int) error {
	key := identityKey(t.list.EntityKind, node)
	if _, seen := t.visited[key]; seen {
		t.log.Debug("树中出现重复节点，已跳过", zap.String("node", key), zap.Int("level", level))
		return nil
	}
	t.visited[key] = struct{}{}
	t.rows = append(t.rows, TreeRow{Item: node, Depth: level})

	if limit := t.list.Tree.MaxDepth; limit > 0 && level >= limit {
		return nil
	}
	children, err := t.children(node)
	if err != nil {
		return err
	}
	for _, child := range children {
		if err := t.visit(child, level+1); err != nil {
			return err
		}
	}
	return nil
}

// children 经子访问器（与属性解析同一语义）或父链字段取子节点，并套用相同的过滤与排序。
func (t *treeWalker) children(node any) ([]any, error) {
	var set Set
	if accessor := t.list.Tree.ChildrenAccessor; accessor != "" {
		v, ok := binding.Resolve(node, accessor)
		if !ok || v == nil {
			return nil, nil
		}
		set = asSet(v)
		if set == nil {
			t.log.Debug("子节点访问器返回了无法识别的集合",
				zap.String("accessor", accessor),
				zap.String("type", fmt.Sprintf("%T", v)))
			return nil, nil
		}
	} else if parent := t.list.Tree.ParentField; parent != "" {
		id, ok := binding.Resolve(node, "id")
		if !ok || id == nil {
			return nil, nil
		}
		all, err := t.src.Objects(t.ctx, t.list.EntityKind)
		if err != nil {
			return nil, wrapSource(t.list.EntityKind, "children", err)
		}
		set = all.Where(dsl.Lookup{Key: parent, Value: id})
	} else {
		return nil, nil
	}
	items, err := set.Where(t.filter...).OrderBy(t.order).All(t.ctx)
	if err != nil {
		return nil, wrapSource(t.list.EntityKind, "children", err)
	}
	return items, nil
}

// asSet 将访问器结果转换为 Set；无法识别的类型返回 nil。
func asSet(v any) Set {
	switch c := v.(type) {
	case Set:
		return c
	case []any:
		return NewSet(c)
	case []binding.Resolvable:
		items := make([]any, len(c))
		for i, item := range c {
			items[i] = item
		}
		return NewSet(items)
	case []binding.Map:
		items := make([]any, len(c))
		for i, item := range c {
			items[i] = item
		}
		return NewSet(items)
	case []map[string]any:
		items := make([]any, len(c))
		for i, item := range c {
			items[i] = item
		}
		return NewSet(items)
	default:
		return nil
	}
}

// identityKey 优先使用 Identifiable，其次 id 字段，最后退回实例地址或值。
func identityKey(kind string, node any) string {
	if idf, ok := node.(binding.Identifiable); ok {
		k, id := idf.Identity()
		if id != "" {
			return k + "\x00" + id
		}
	}
	if id, ok := binding.Resolve(node, "id"); ok && id != nil {
		return kind + "\x00" + binding.Stringify(id)
	}
	switch node.(type) {
	case binding.Map, map[string]any:
		return fmt.Sprintf("%s\x00%p", kind, node)
	}
	return fmt.Sprintf("%s\x00%#v", kind, node)
}

func wrapSource(kind, op string, err error) error {
	if err == nil {
		return nil
	}
	var se *SourceError
	if errors.As(err, &se) {
		return err
	}
	return &SourceError{EntityKind: kind, Op: op, Err: err}
}
