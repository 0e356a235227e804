package layout

import (
	"errors"
	"fmt"
	"math"

	"github.com/ByLCY/modulistica/definition"
	"github.com/ByLCY/modulistica/dsl"
	"github.com/ByLCY/modulistica/fonts"
)

const (
	// SafetyMarginMM 是分页判断时在下边距之上额外保留的高度。
	SafetyMarginMM = 20
	// DefaultIndentMM 是树形布局每一层的默认缩进。
	DefaultIndentMM = 5
	// blockGapMM 是标题/表头文本块与表格之间的间距。
	blockGapMM      = 2
	headerRuleWidth = 0.5
)

// Row 是列表中的一行数据；Depth 仅在树形布局下使用（根为 0）。
type Row struct {
	Item  any `json:"-"`
	Depth int `json:"depth"`
}

type listBuilder struct {
	*builder
	list    *definition.List
	columns []definition.Column
	colX    []float64
	colW    []float64
}

// cell 是一行中某一列计算好但尚未放置的内容。
type cell struct {
	element string
	x, w    float64
	text    string
	style   textStyle
	kind    definition.ColumnKind
	column  definition.Column
	height  float64
}

// BuildList 将行数据排成表格：标题、表头块、表格表头、数据行，
// 空间不足时分页并只重绘表格表头，最后一页绘制页脚。
func BuildList(l *definition.List, rows []Row, opts BuildOptions) (*Result, error) {
	if l == nil {
		return nil, errors.New("list 定义为空")
	}
	if err := l.Format.Validate(); err != nil {
		return nil, fmt.Errorf("list %q: %w", l.Slug, err)
	}
	g := NewGeometry(l.Format)
	rc := newRenderContext(g,
		firstFont(l.Table.RowFontName, l.Format.FontName),
		firstPositive(l.Table.RowFontSize, l.Format.FontSize, DefaultFontSize))
	lb := &listBuilder{builder: newBuilder(opts), list: l, columns: l.SortedColumns()}
	lb.measureColumns(g)

	var first any
	if len(rows) > 0 {
		first = rows[0].Item
	}
	now := opts.now()
	env := dsl.NewEnv(first, now, opts.Extra)

	lowest := g.Top()
	if y, ok := lb.block(rc, "title", l.Title, env); ok {
		lowest = math.Min(lowest, y-MM(blockGapMM))
	}
	if y, ok := lb.block(rc, "header", l.Header, env); ok {
		lowest = math.Min(lowest, y-MM(blockGapMM))
	}
	rc.CursorY = lowest
	if l.Table.TopMM > 0 {
		rc.CursorY = g.Y(l.Table.TopMM)
	}

	lb.headerRow(rc)
	onPage := 0
	for i, row := range rows {
		cells, height := lb.rowCells(rc, i, row)
		if onPage > 0 && rc.CursorY-height < g.Bottom()+MM(SafetyMarginMM) {
			rc.pageBreak()
			lb.headerRow(rc)
			onPage = 0
		}
		lb.placeRow(rc, cells)
		rc.CursorY -= height
		onPage++
	}

	footerEnv := dsl.NewEnv(first, now, mergeExtra(opts.Extra, map[string]any{"page": rc.PageNumber()}))
	lb.footer(rc, footerEnv)

	return lb.result(rc, DocumentMeta{Title: l.Name, Subject: l.EntityKind, Creator: Creator, Created: now}), nil
}

// measureColumns 计算列的 x 与宽度；未指定宽度的列平分剩余宽度。
func (lb *listBuilder) measureColumns(g Geometry) {
	fixed, flexible := 0.0, 0
	for _, c := range lb.columns {
		if c.WidthMM > 0 {
			fixed += MM(c.WidthMM)
		} else {
			flexible++
		}
	}
	share := 0.0
	if flexible > 0 {
		share = math.Max(g.ContentWidth()-fixed, 0) / float64(flexible)
	}
	x := g.X(0)
	for _, c := range lb.columns {
		w := share
		if c.WidthMM > 0 {
			w = MM(c.WidthMM)
		}
		lb.colX = append(lb.colX, x)
		lb.colW = append(lb.colW, w)
		x += w
	}
}

// block 绘制标题或表头块，返回最后一行的下缘。
func (lb *listBuilder) block(rc *RenderContext, name string, blk definition.TextBlock, env dsl.Env) (float64, bool) {
	if blk.Empty() {
		return 0, false
	}
	text := ValueFor(nil, TextSource{Template: blk.Template, Static: blk.Text}, env)
	if text == "" {
		return 0, false
	}
	g := rc.Geometry
	x, baseline := g.X(blk.XMM), g.Y(blk.YMM)
	st := lb.blockStyle(rc, blk)
	box := lb.composeText(rc, text, x, baseline, math.Max(g.Right()-x, 0), st)
	rc.add(Item{Element: name, Text: box})
	last := box.Lines[len(box.Lines)-1].Baseline
	return last - descent(st.Size), true
}

func (lb *listBuilder) blockStyle(rc *RenderContext, blk definition.TextBlock) textStyle {
	return textStyle{
		Font:     fonts.Variant(firstFont(blk.Style.FontName, lb.list.Format.FontName), blk.Style.Bold, blk.Style.Italic),
		Size:     firstPositive(blk.Style.FontSize, lb.list.Format.FontSize, DefaultFontSize),
		Align:    string(blk.Style.Align),
		Color:    blk.Style.Color,
		MaxLines: blk.Style.MaxLines,
	}
}

func (lb *listBuilder) footer(rc *RenderContext, env dsl.Env) {
	blk := lb.list.Footer
	if blk.Empty() {
		return
	}
	text := ValueFor(nil, TextSource{Template: blk.Template, Static: blk.Text}, env)
	if text == "" {
		return
	}
	g := rc.Geometry
	// 页脚的 y 自下边距向上计算
	x, baseline := g.X(blk.XMM), g.Bottom()+MM(blk.YMM)
	box := lb.composeText(rc, text, x, baseline, math.Max(g.Right()-x, 0), lb.blockStyle(rc, blk))
	rc.add(Item{Element: "footer", Text: box})
}

// headerRow 在光标处绘制列标题与分隔线，并下移光标。
func (lb *listBuilder) headerRow(rc *RenderContext) {
	t := lb.list.Table
	st := textStyle{
		Font: fonts.Variant(firstFont(t.HeaderFontName, lb.list.Format.FontName), t.HeaderBold, false),
		Size: firstPositive(t.HeaderFontSize, lb.list.Format.FontSize, DefaultFontSize),
	}
	top := rc.CursorY
	height := 0.0
	for i, c := range lb.columns {
		st.Align = string(c.Style.Align)
		box := lb.composeText(rc, c.Label, lb.colX[i], top-st.Size, lb.colW[i], st)
		rc.add(Item{Element: "header:" + c.Label, Text: box})
		height = math.Max(height, float64(len(box.Lines))*st.lineHeight())
	}
	if len(lb.columns) > 0 {
		rule := top - height
		g := rc.Geometry
		rc.add(Item{Element: "header:rule", Shape: &Shape{
			Kind:        ShapeLine,
			X:           g.X(0),
			Y:           rule,
			Width:       g.ContentWidth(),
			StrokeColor: "black",
			StrokeWidth: headerRuleWidth,
		}})
	}
	rc.CursorY = top - height - MM(t.RowSpacingMM)
}

// rowCells 计算一行各单元格的内容与高度，不放置任何元素。
func (lb *listBuilder) rowCells(rc *RenderContext, index int, row Row) ([]cell, float64) {
	t := lb.list.Table
	env := dsl.Env{"obj": row.Item}
	height := MM(t.RowHeightMM)
	cells := make([]cell, len(lb.columns))
	for i, c := range lb.columns {
		x, w := lb.colX[i], lb.colW[i]
		if lb.list.Layout == definition.LayoutTree && c.TreeIndent {
			indent := float64(row.Depth) * MM(firstPositive(lb.list.Tree.IndentMM, DefaultIndentMM))
			x += indent
			w = math.Max(w-indent, 0)
		}
		ce := cell{
			element: fmt.Sprintf("row %d/%s", index+1, columnName(c, i)),
			x:       x,
			w:       w,
			kind:    c.Kind,
			column:  c,
			text:    ValueFor(row.Item, TextSource{Path: c.Path, Template: c.Template}, env),
		}
		switch c.Kind {
		case definition.ColumnBarcode:
			if ce.text != "" {
				ce.height = MM(firstPositive(c.Barcode.BarHeightMM, DefaultBarHeightMM))
			}
		case definition.ColumnQRCode:
			if ce.text != "" {
				ce.height = MM(firstPositive(c.QR.SizeMM, DefaultQRSizeMM))
			}
		default:
			ce.style = textStyle{
				Font:     fonts.Variant(firstFont(c.Style.FontName, rc.Font), c.Style.Bold, c.Style.Italic),
				Size:     firstPositive(c.Style.FontSize, rc.FontSize),
				Align:    string(c.Style.Align),
				Color:    c.Style.Color,
				MaxLines: t.MaxLines,
			}
			if c.Style.MaxLines > 0 {
				ce.style.MaxLines = c.Style.MaxLines
			}
			lines := Wrap(ce.text, w, lb.measurer(rc, ce.style.Font, ce.style.Size), ce.style.MaxLines, lb.opts.marker())
			ce.height = float64(len(lines)) * ce.style.lineHeight()
		}
		cells[i] = ce
		height = math.Max(height, ce.height)
	}
	return cells, height + MM(t.RowSpacingMM)
}

// placeRow 把单元格放到当前页的光标处。
func (lb *listBuilder) placeRow(rc *RenderContext, cells []cell) {
	top := rc.CursorY
	for _, ce := range cells {
		lb.guard(rc, ce.element, func() {
			switch ce.kind {
			case definition.ColumnBarcode:
				lb.barcode(rc, ce.element, ce.text, ce.column.Barcode, ce.x, top)
			case definition.ColumnQRCode:
				lb.qrcode(rc, ce.element, ce.text, ce.column.QR, ce.x, top)
			default:
				box := lb.composeText(rc, ce.text, ce.x, top-ce.style.Size, ce.w, ce.style)
				rc.add(Item{Element: ce.element, Text: box})
			}
		})
	}
}

func columnName(c definition.Column, i int) string {
	switch {
	case c.Label != "":
		return c.Label
	case c.Path != "":
		return c.Path
	default:
		return fmt.Sprintf("#%d", i+1)
	}
}

func mergeExtra(base, more map[string]any) map[string]any {
	out := make(map[string]any, len(base)+len(more))
	for k, v := range base {
		out[k] = v
	}
	for k, v := range more {
		out[k] = v
	}
	return out
}
