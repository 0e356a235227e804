package layout

import (
	"encoding/json"
	"os"
	"path/filepath"
)

// debugDump 是调试 JSON 的顶层结构：布局结果之外附上每页以 mm 表示的尺寸，
// 便于与定义中的 mm 坐标对照。
type debugDump struct {
	*Result
	Sizes []debugSize `json:"sizesMM"`
}

type debugSize struct {
	Page   int     `json:"page"`
	Width  float64 `json:"width"`
	Height float64 `json:"height"`
	Items  int     `json:"items"`
}

// WriteDebugJSON 将布局结果输出为 JSON，必要时创建目录。
func WriteDebugJSON(res *Result, path string) error {
	if res == nil {
		return nil
	}
	dump := debugDump{Result: res}
	for i, p := range res.Pages {
		dump.Sizes = append(dump.Sizes, debugSize{
			Page:   i + 1,
			Width:  Length{Value: p.Width, Unit: UnitPT}.ToMM(),
			Height: Length{Value: p.Height, Unit: UnitPT}.ToMM(),
			Items:  len(p.Items),
		})
	}
	data, err := json.MarshalIndent(dump, "", "  ")
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	return os.WriteFile(path, data, 0o644)
}
