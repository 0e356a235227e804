package layout

import (
	"errors"
	"fmt"
	"math"

	"github.com/ByLCY/modulistica/definition"
	"github.com/ByLCY/modulistica/dsl"
	"github.com/ByLCY/modulistica/fonts"
)

// BuildModule 将单个实例按模块定义排到恰好一页上。
// 字段按 Order 依次绘制；单个字段失败只记录诊断。
func BuildModule(instance any, m *definition.Module, opts BuildOptions) (*Result, error) {
	if m == nil {
		return nil, errors.New("module 定义为空")
	}
	if err := m.Format.Validate(); err != nil {
		return nil, fmt.Errorf("module %q: %w", m.Slug, err)
	}
	g := NewGeometry(m.Format)
	rc := newRenderContext(g,
		firstFont(m.FontName, m.Format.FontName),
		firstPositive(m.FontSize, m.Format.FontSize, DefaultFontSize))
	b := newBuilder(opts)
	now := opts.now()
	env := dsl.NewEnv(instance, now, opts.Extra)

	for _, f := range m.VisibleFields() {
		b.guard(rc, f.Label(), func() { b.field(rc, instance, env, f) })
	}
	return b.result(rc, DocumentMeta{Title: m.Name, Subject: m.EntityKind, Creator: Creator, Created: now}), nil
}

func (b *builder) field(rc *RenderContext, instance any, env dsl.Env, f definition.Field) {
	g := rc.Geometry
	x, top := g.X(f.XMM), g.Y(f.YMM)
	src := TextSource{Path: f.Path, Template: f.Template, Static: f.Text}

	switch f.Kind {
	case definition.FieldShape:
		b.shape(rc, f.Label(), f.Shape, f.WidthMM, x, top)
	case definition.FieldBarcode:
		b.barcode(rc, f.Label(), ValueFor(instance, src, env), f.Barcode, x, top)
	case definition.FieldQRCode:
		b.qrcode(rc, f.Label(), ValueFor(instance, src, env), f.QR, x, top)
	default:
		st := textStyle{
			Font:     fonts.Variant(firstFont(f.Style.FontName, rc.Font), f.Style.Bold, f.Style.Italic),
			Size:     firstPositive(f.Style.FontSize, rc.FontSize),
			Align:    string(f.Style.Align),
			Color:    f.Style.Color,
			MaxLines: f.Style.MaxLines,
		}
		width := g.Right() - x
		if f.WidthMM > 0 {
			width = MM(f.WidthMM)
		}
		// y 为第一行基线
		box := b.composeText(rc, ValueFor(instance, src, env), x, top, math.Max(width, 0), st)
		rc.add(Item{Element: f.Label(), Text: box})
	}
}
