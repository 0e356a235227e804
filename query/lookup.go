package query

import (
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/ByLCY/modulistica/binding"
	"github.com/ByLCY/modulistica/dsl"
)

// 查找键形如 "path__to__field__op"；末段是已知操作符时作为操作符，否则为 exact。
const lookupSep = "__"

var operators = map[string]struct{}{
	"exact": {}, "iexact": {}, "ne": {}, "in": {}, "isnull": {},
	"contains": {}, "icontains": {}, "startswith": {}, "istartswith": {},
	"endswith": {}, "iendswith": {}, "gt": {}, "gte": {}, "lt": {}, "lte": {},
}

// SplitLookup 返回点分路径与操作符。
func SplitLookup(key string) (path, op string) {
	parts := strings.Split(strings.TrimSpace(key), lookupSep)
	op = "exact"
	if len(parts) > 1 {
		if _, ok := operators[parts[len(parts)-1]]; ok {
			op = parts[len(parts)-1]
			parts = parts[:len(parts)-1]
		}
	}
	return strings.Join(parts, "."), op
}

// Match 在内存中对 item 求值一个查找条件。
func Match(item any, l dsl.Lookup) bool {
	path, op := SplitLookup(l.Key)
	v, ok := binding.Resolve(item, path)
	if ok && v == nil {
		ok = false
	}
	switch op {
	case "isnull":
		return !ok == truthy(l.Value)
	case "in":
		if !ok {
			return false
		}
		for _, c := range toSlice(l.Value) {
			if equal(v, c) {
				return true
			}
		}
		return false
	case "ne":
		return !ok || !equal(v, l.Value)
	}
	if !ok {
		return false
	}
	s, t := binding.Stringify(v), binding.Stringify(l.Value)
	switch op {
	case "exact":
		return equal(v, l.Value)
	case "iexact":
		return strings.EqualFold(s, t)
	case "contains":
		return strings.Contains(s, t)
	case "icontains":
		return strings.Contains(strings.ToLower(s), strings.ToLower(t))
	case "startswith":
		return strings.HasPrefix(s, t)
	case "istartswith":
		return strings.HasPrefix(strings.ToLower(s), strings.ToLower(t))
	case "endswith":
		return strings.HasSuffix(s, t)
	case "iendswith":
		return strings.HasSuffix(strings.ToLower(s), strings.ToLower(t))
	}
	c, comparable := compare(v, l.Value)
	if !comparable {
		return false
	}
	switch op {
	case "gt":
		return c > 0
	case "gte":
		return c >= 0
	case "lt":
		return c < 0
	case "lte":
		return c <= 0
	}
	return false
}

// MatchAll 判断 item 是否满足全部条件。
func MatchAll(item any, lookups []dsl.Lookup) bool {
	for _, l := range lookups {
		if !Match(item, l) {
			return false
		}
	}
	return true
}

// SortItems 按 order 稳定排序；缺失值排在升序的最前面。
func SortItems(items []any, order dsl.Order) {
	if len(order) == 0 {
		return
	}
	sort.SliceStable(items, func(i, j int) bool {
		for _, term := range order {
			c := compareAt(items[i], items[j], term.Field)
			if c == 0 {
				continue
			}
			if term.Desc {
				return c > 0
			}
			return c < 0
		}
		return false
	})
}

func compareAt(a, b any, field string) int {
	path, _ := SplitLookup(field)
	va, oka := binding.Resolve(a, path)
	vb, okb := binding.Resolve(b, path)
	oka, okb = oka && va != nil, okb && vb != nil
	switch {
	case !oka && !okb:
		return 0
	case !oka:
		return -1
	case !okb:
		return 1
	}
	c, _ := compare(va, vb)
	return c
}

func equal(a, b any) bool {
	c, ok := compare(a, b)
	return ok && c == 0
}

// compare 依次尝试数值、时间、布尔比较，最后按字符串比较。
func compare(a, b any) (int, bool) {
	if fa, ok := asFloat(a); ok {
		if fb, ok := asFloat(b); ok {
			return cmpFloat(fa, fb), true
		}
	}
	if ta, ok := asTime(a); ok {
		if tb, ok := asTime(b); ok {
			return ta.Compare(tb), true
		}
	}
	if ba, ok := a.(bool); ok {
		return cmpFloat(boolNum(ba), boolNum(truthy(b))), true
	}
	if bb, ok := b.(bool); ok {
		return cmpFloat(boolNum(truthy(a)), boolNum(bb)), true
	}
	return strings.Compare(binding.Stringify(a), binding.Stringify(b)), true
}

func cmpFloat(a, b float64) int {
	switch {
	case a < b:
		return -1
	case a > b:
		return 1
	default:
		return 0
	}
}

func boolNum(b bool) float64 {
	if b {
		return 1
	}
	return 0
}

func asFloat(v any) (float64, bool) {
	switch n := v.(type) {
	case int:
		return float64(n), true
	case int8:
		return float64(n), true
	case int16:
		return float64(n), true
	case int32:
		return float64(n), true
	case int64:
		return float64(n), true
	case uint:
		return float64(n), true
	case uint8:
		return float64(n), true
	case uint16:
		return float64(n), true
	case uint32:
		return float64(n), true
	case uint64:
		return float64(n), true
	case float32:
		return float64(n), true
	case float64:
		return n, true
	case string:
		f, err := strconv.ParseFloat(strings.TrimSpace(n), 64)
		return f, err == nil
	default:
		return 0, false
	}
}

var timeLayouts = []string{time.RFC3339Nano, time.DateTime, time.DateOnly}

func asTime(v any) (time.Time, bool) {
	switch t := v.(type) {
	case time.Time:
		return t, true
	case *time.Time:
		if t == nil {
			return time.Time{}, false
		}
		return *t, true
	case string:
		for _, layout := range timeLayouts {
			if parsed, err := time.Parse(layout, strings.TrimSpace(t)); err == nil {
				return parsed, true
			}
		}
	}
	return time.Time{}, false
}

func truthy(v any) bool {
	switch b := v.(type) {
	case bool:
		return b
	case nil:
		return false
	case string:
		switch strings.ToLower(strings.TrimSpace(b)) {
		case "1", "true", "yes", "y", "t", "si", "sì":
			return true
		}
		return false
	default:
		f, ok := asFloat(v)
		return ok && f != 0
	}
}

// toSlice 将 "in" 的值展开为列表；字符串按逗号拆分。
func toSlice(v any) []any {
	switch s := v.(type) {
	case []any:
		return s
	case []string:
		out := make([]any, len(s))
		for i, item := range s {
			out[i] = item
		}
		return out
	case string:
		var out []any
		for _, part := range strings.Split(s, ",") {
			if part = strings.TrimSpace(part); part != "" {
				out = append(out, part)
			}
		}
		return out
	case nil:
		return nil
	default:
		return []any{v}
	}
}
