// Package query 将列表定义中的过滤/排序规格转换为数据源调用，并构建带环检测的深度优先树。
package query

import (
	"context"
	"errors"
	"fmt"

	"github.com/ByLCY/modulistica/definition"
	"github.com/ByLCY/modulistica/dsl"
)

// ErrSource 标记数据源失败；这类错误会中止整个渲染。
var ErrSource = errors.New("数据源错误")

// SourceError 记录失败的实体类型与操作。
type SourceError struct {
	EntityKind string
	Op         string
	Err        error
}

func (e *SourceError) Error() string {
	return fmt.Sprintf("数据源 %s 执行 %s 失败: %v", e.EntityKind, e.Op, e.Err)
}

func (e *SourceError) Unwrap() error { return e.Err }

// Is 使 errors.Is(err, ErrSource) 成立。
func (e *SourceError) Is(target error) bool { return target == ErrSource }

// unknownKind 同时满足 errors.Is(err, ErrSource) 与 errors.Is(err, definition.ErrNotFound)。
func unknownKind(kind string) error {
	return &SourceError{EntityKind: kind, Op: "objects", Err: &definition.NotFoundError{What: "entity kind", EntityKind: kind}}
}

// Source 是通用的实体查询接口。
type Source interface {
	Objects(ctx context.Context, kind string) (Set, error)
}

// Set 是惰性的查询集合；Where 与 OrderBy 返回新集合，不修改接收者。
type Set interface {
	Where(lookups ...dsl.Lookup) Set
	OrderBy(order dsl.Order) Set
	All(ctx context.Context) ([]any, error)
}

// TreeRow 是一个实例及其在树中的深度（根为 0）；平铺查询的深度恒为 0。
type TreeRow struct {
	Item  any
	Depth int
}
