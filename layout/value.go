package layout

import (
	"github.com/ByLCY/modulistica/binding"
	"github.com/ByLCY/modulistica/dsl"
)

// TextSource 是一个元素可能的三种文本来源。
type TextSource struct {
	Path     string
	Template *dsl.Template
	Static   string
}

// ValueFor 依次尝试属性路径、模板、静态文本，返回第一个非空结果。
// 模板执行出错时视为空文本。
func ValueFor(instance any, src TextSource, env dsl.Env) string {
	if src.Path != "" {
		if v, ok := binding.Resolve(instance, src.Path); ok {
			if s := binding.Stringify(v); s != "" {
				return s
			}
		}
	}
	if src.Template != nil {
		if s, err := src.Template.Execute(env); err == nil && s != "" {
			return s
		}
	}
	return src.Static
}
