// Package fonts 提供内置字体族（Helvetica/Times/Courier 的替代字形）以及自定义字体注册。
package fonts

import (
	"fmt"
	"os"
	"sort"
	"strings"
	"sync"

	"github.com/go-fonts/latin-modern/lmroman10bold"
	"github.com/go-fonts/latin-modern/lmroman10bolditalic"
	"github.com/go-fonts/latin-modern/lmroman10italic"
	"github.com/go-fonts/latin-modern/lmroman10regular"
	"golang.org/x/image/font/gofont/gobold"
	"golang.org/x/image/font/gofont/gobolditalic"
	"golang.org/x/image/font/gofont/goitalic"
	"golang.org/x/image/font/gofont/gomono"
	"golang.org/x/image/font/gofont/gomonobold"
	"golang.org/x/image/font/gofont/gomonobolditalic"
	"golang.org/x/image/font/gofont/gomonoitalic"
	"golang.org/x/image/font/gofont/goregular"
)

// Default 是未指定字体时使用的字体名。
const Default = "Helvetica"

// family 记录一个字体族四种变体的名称。
type family struct {
	regular, bold, italic, boldItalic string
}

var families = []family{
	{"Helvetica", "Helvetica-Bold", "Helvetica-Oblique", "Helvetica-BoldOblique"},
	{"Times-Roman", "Times-Bold", "Times-Italic", "Times-BoldItalic"},
	{"Courier", "Courier-Bold", "Courier-Oblique", "Courier-BoldOblique"},
}

var builtin = map[string][]byte{
	"Helvetica":             goregular.TTF,
	"Helvetica-Bold":        gobold.TTF,
	"Helvetica-Oblique":     goitalic.TTF,
	"Helvetica-BoldOblique": gobolditalic.TTF,
	"Times-Roman":           lmroman10regular.TTF,
	"Times-Bold":            lmroman10bold.TTF,
	"Times-Italic":          lmroman10italic.TTF,
	"Times-BoldItalic":      lmroman10bolditalic.TTF,
	"Courier":               gomono.TTF,
	"Courier-Bold":          gomonobold.TTF,
	"Courier-Oblique":       gomonoitalic.TTF,
	"Courier-BoldOblique":   gomonobolditalic.TTF,
}

// 常见别名
var aliases = map[string]string{
	"helvetica": "Helvetica",
	"arial":     "Helvetica",
	"sans":      "Helvetica",
	"times":     "Times-Roman",
	"serif":     "Times-Roman",
	"courier":   "Courier",
	"mono":      "Courier",
}

var (
	mu     sync.RWMutex
	custom = map[string][]byte{}
)

// Register 注册自定义字体数据；同名覆盖。变体可用 "<name>-Bold" 等名称分别注册。
func Register(name string, data []byte) {
	name = strings.TrimSpace(name)
	if name == "" || len(data) == 0 {
		return
	}
	mu.Lock()
	custom[name] = data
	mu.Unlock()
}

// RegisterFile 从文件读取字体并注册。
func RegisterFile(name, path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("读取字体文件 %s 失败: %w", path, err)
	}
	if len(data) == 0 {
		return fmt.Errorf("字体文件 %s 为空", path)
	}
	Register(name, data)
	return nil
}

// Canonical 将别名与空名称规范为已知字体名；未知名称原样返回。
func Canonical(name string) string {
	name = strings.TrimSpace(name)
	if name == "" {
		return Default
	}
	if a, ok := aliases[strings.ToLower(name)]; ok {
		return a
	}
	return name
}

// Variant 返回 base 所在字体族中对应粗体/斜体的字体名。
// base 可以是族内任意变体名；无法识别的自定义字体在已注册变体时使用
// "<base>-Bold" / "-Italic" / "-BoldItalic"，否则返回 base 本身。
func Variant(base string, bold, italic bool) string {
	base = Canonical(base)
	for _, f := range families {
		if base == f.regular || base == f.bold || base == f.italic || base == f.boldItalic {
			switch {
			case bold && italic:
				return f.boldItalic
			case bold:
				return f.bold
			case italic:
				return f.italic
			default:
				return f.regular
			}
		}
	}
	suffix := ""
	switch {
	case bold && italic:
		suffix = "-BoldItalic"
	case bold:
		suffix = "-Bold"
	case italic:
		suffix = "-Italic"
	}
	if suffix != "" && Known(base+suffix) {
		return base + suffix
	}
	return base
}

// Known 判断字体名是否可以加载。
func Known(name string) bool {
	name = Canonical(name)
	if _, ok := builtin[name]; ok {
		return true
	}
	mu.RLock()
	defer mu.RUnlock()
	_, ok := custom[name]
	return ok
}

// Load 返回字体数据；自定义字体优先于内置字体。
func Load(name string) ([]byte, error) {
	name = Canonical(name)
	mu.RLock()
	data, ok := custom[name]
	mu.RUnlock()
	if ok {
		return data, nil
	}
	if data, ok := builtin[name]; ok {
		return data, nil
	}
	return nil, fmt.Errorf("未知字体 %q", name)
}

// Names 列出全部可用字体名（已排序）。
func Names() []string {
	seen := map[string]struct{}{}
	for n := range builtin {
		seen[n] = struct{}{}
	}
	mu.RLock()
	for n := range custom {
		seen[n] = struct{}{}
	}
	mu.RUnlock()
	out := make([]string, 0, len(seen))
	for n := range seen {
		out = append(out, n)
	}
	sort.Strings(out)
	return out
}
