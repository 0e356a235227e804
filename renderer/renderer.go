package renderer

import "github.com/ByLCY/modulistica/layout"

// Renderer 将布局结果输出为最终文件，例如 PDF。
// Render 返回生成的二进制数据、被跳过元素的诊断以及可能的错误；
// 单个元素绘制失败只产生诊断，不返回错误。
type Renderer interface {
	Render(result *layout.Result) ([]byte, layout.Diagnostics, error)
}
