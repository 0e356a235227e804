package layout

import (
	"fmt"
	"math"

	"go.uber.org/zap"

	"github.com/ByLCY/modulistica/fonts"
)

const (
	// DefaultFontSize 是格式、模块与字段都未指定字号时的字号（pt）。
	DefaultFontSize = 10.0
	// Creator 写入 PDF 元信息。
	Creator = "modulistica"
)

// RenderContext 是一次渲染中在各绘制步骤之间显式传递的状态：
// 页面几何（边距为 pt）、当前字体与光标 Y（原生坐标）。
type RenderContext struct {
	Geometry Geometry
	Font     string
	FontSize float64
	CursorY  float64

	pages *pageCollector
}

func newRenderContext(g Geometry, font string, size float64) *RenderContext {
	return &RenderContext{
		Geometry: g,
		Font:     font,
		FontSize: size,
		CursorY:  g.Top(),
		pages:    newPageCollector(g),
	}
}

// PageNumber 返回当前页码（从 1 开始）。
func (rc *RenderContext) PageNumber() int { return len(rc.pages.items) }

func (rc *RenderContext) add(item Item) { rc.pages.add(item) }

// pageBreak 开新页并把光标放回上边距。
func (rc *RenderContext) pageBreak() {
	rc.pages.newPage()
	rc.CursorY = rc.Geometry.Top()
}

type pageCollector struct {
	geometry Geometry
	items    [][]Item
}

func newPageCollector(g Geometry) *pageCollector {
	pc := &pageCollector{geometry: g}
	pc.newPage()
	return pc
}

func (pc *pageCollector) newPage() {
	pc.items = append(pc.items, []Item{})
}

func (pc *pageCollector) add(item Item) {
	last := len(pc.items) - 1
	pc.items[last] = append(pc.items[last], item)
}

func (pc *pageCollector) pages() []Page {
	out := make([]Page, len(pc.items))
	for i, items := range pc.items {
		out[i] = Page{Width: pc.geometry.Width, Height: pc.geometry.Height, Items: items}
	}
	return out
}

// builder 持有一次布局共享的依赖与诊断。
type builder struct {
	opts      BuildOptions
	log       *zap.Logger
	diags     Diagnostics
	measurers map[measureKey]Measurer
}

type measureKey struct {
	font string
	size float64
}

type textStyle struct {
	Font     string
	Size     float64
	Align    string
	Color    string
	MaxLines int
}

func (s textStyle) lineHeight() float64 { return LineHeightFor(s.Size) }

func newBuilder(opts BuildOptions) *builder {
	return &builder{
		opts:      opts,
		log:       opts.logger(),
		measurers: map[measureKey]Measurer{},
	}
}

// measurer 返回字体度量；排版后端缺失或出错时退回估算。
func (b *builder) measurer(rc *RenderContext, font string, size float64) Measurer {
	key := measureKey{font, size}
	if m, ok := b.measurers[key]; ok {
		return m
	}
	var m Measurer
	if b.opts.Typesetter != nil {
		got, err := b.opts.Typesetter.Measure(font, size)
		if err != nil {
			b.skip(rc, "font:"+font, fmt.Sprintf("字体度量失败，使用估算: %v", err))
		}
		m = got
	}
	if m == nil {
		m = EstimateMeasurer(size)
	}
	b.measurers[key] = m
	return m
}

func (b *builder) skip(rc *RenderContext, element, reason string) {
	b.diags.Add(element, rc.PageNumber(), reason)
	b.log.Debug("元素已跳过",
		zap.String("element", element),
		zap.Int("page", rc.PageNumber()),
		zap.String("reason", reason))
}

// guard 执行单个元素的布局；panic 被记录为诊断，不影响其余元素。
func (b *builder) guard(rc *RenderContext, element string, fn func()) {
	defer func() {
		if r := recover(); r != nil {
			b.skip(rc, element, fmt.Sprintf("布局失败: %v", r))
		}
	}()
	fn()
}

// composeText 折行并为每一行计算基线；baseline 为第一行基线。
func (b *builder) composeText(rc *RenderContext, content string, x, baseline, width float64, st textStyle) *TextBox {
	m := b.measurer(rc, st.Font, st.Size)
	lh := st.lineHeight()
	wrapped := Wrap(content, width, m, st.MaxLines, b.opts.marker())
	box := &TextBox{
		X:          x,
		Width:      math.Max(width, 0),
		Align:      st.Align,
		Font:       st.Font,
		FontSize:   st.Size,
		LineHeight: lh,
		Color:      st.Color,
		Lines:      make([]TextLine, len(wrapped)),
	}
	for i, line := range wrapped {
		box.Lines[i] = TextLine{
			Content:  line,
			Width:    m.TextWidth(line),
			Baseline: baseline - float64(i)*lh,
		}
	}
	return box
}

func (b *builder) result(rc *RenderContext, meta DocumentMeta) *Result {
	return &Result{
		Pages:       rc.pages.pages(),
		Meta:        meta,
		Diagnostics: b.diags,
	}
}

func firstFont(names ...string) string {
	for _, n := range names {
		if n != "" {
			return fonts.Canonical(n)
		}
	}
	return fonts.Default
}

func firstPositive(values ...float64) float64 {
	for _, v := range values {
		if v > 0 {
			return v
		}
	}
	return 0
}

// descent 粗略估计基线以下的字形高度。
func descent(sizePt float64) float64 { return sizePt * 0.25 }
