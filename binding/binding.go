package binding

import "strings"

// Resolve 沿点分路径 path 逐段访问 root，返回最终值。
// 每一段先按键查找（Map / map[string]any），再按 Resolvable.Field 查找；
// 若结果是零参数的可调用值，则调用一次并使用其返回值。
// 任一段缺失即返回 (nil, false)，从不 panic，也不修改 root。
// 集合只允许出现在最后一段，中途遇到集合视为缺失。
func Resolve(root any, path string) (value any, ok bool) {
	defer func() {
		if r := recover(); r != nil {
			value, ok = nil, false
		}
	}()

	path = strings.TrimSpace(path)
	if path == "" || root == nil {
		return nil, false
	}
	current := root
	for _, segment := range strings.Split(path, ".") {
		segment = strings.TrimSpace(segment)
		if segment == "" {
			return nil, false
		}
		next, found := descend(current, segment)
		if !found {
			return nil, false
		}
		current = call(next)
	}
	return current, true
}

// Lookup 是 Resolve 的便捷形式，缺失时返回 nil。
func Lookup(root any, path string) any {
	v, _ := Resolve(root, path)
	return v
}

func descend(current any, key string) (any, bool) {
	switch c := current.(type) {
	case nil:
		return nil, false
	case Map:
		v, ok := c[key]
		return v, ok
	case map[string]any:
		v, ok := c[key]
		return v, ok
	case map[string]string:
		v, ok := c[key]
		return v, ok
	case Resolvable:
		return c.Field(key)
	default:
		// 切片、标量以及未声明字段表的类型都不可继续下钻
		return nil, false
	}
}

// call 对零参数可调用值求值一次；返回错误时视为缺失（nil）。
func call(v any) any {
	switch fn := v.(type) {
	case func() any:
		return fn()
	case func() (any, error):
		out, err := fn()
		if err != nil {
			return nil
		}
		return out
	case func() string:
		return fn()
	default:
		return v
	}
}
