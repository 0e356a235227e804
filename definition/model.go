// Package definition holds the administrator-authored layout definitions read
// by the renderers: page formats, single-record modules and multi-record lists.
package definition

import (
	"fmt"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/ByLCY/modulistica/dsl"
)

// Orientation of a page format.
type Orientation string

const (
	Portrait  Orientation = "portrait"
	Landscape Orientation = "landscape"
)

// PageFormat describes paper size, margins and default font. Lengths are mm.
type PageFormat struct {
	Name           string      `yaml:"name"`
	WidthMM        float64     `yaml:"width"`
	HeightMM       float64     `yaml:"height"`
	Orientation    Orientation `yaml:"orientation"`
	MarginTopMM    float64     `yaml:"margin_top"`
	MarginRightMM  float64     `yaml:"margin_right"`
	MarginBottomMM float64     `yaml:"margin_bottom"`
	MarginLeftMM   float64     `yaml:"margin_left"`
	FontName       string      `yaml:"font"`
	FontSize       float64     `yaml:"font_size"`
	Active         bool        `yaml:"active"`
}

// UnmarshalYAML defaults Active to true.
func (f *PageFormat) UnmarshalYAML(n *yaml.Node) error {
	type raw PageFormat
	r := raw{Active: true}
	if err := n.Decode(&r); err != nil {
		return err
	}
	*f = PageFormat(r)
	return nil
}

// Validate checks that dimensions are positive and margins fit the page.
func (f PageFormat) Validate() error {
	if f.WidthMM <= 0 || f.HeightMM <= 0 {
		return fmt.Errorf("页面格式 %q 的尺寸必须为正数（%gx%gmm）", f.Name, f.WidthMM, f.HeightMM)
	}
	if f.MarginTopMM < 0 || f.MarginRightMM < 0 || f.MarginBottomMM < 0 || f.MarginLeftMM < 0 {
		return fmt.Errorf("页面格式 %q 的边距不能为负数", f.Name)
	}
	if f.MarginLeftMM+f.MarginRightMM >= f.WidthMM || f.MarginTopMM+f.MarginBottomMM >= f.HeightMM {
		return fmt.Errorf("页面格式 %q 的边距超出了页面尺寸", f.Name)
	}
	return nil
}

// Size returns the page size in mm with orientation applied.
func (f PageFormat) Size() (width, height float64) {
	width, height = f.WidthMM, f.HeightMM
	switch f.Orientation {
	case Landscape:
		if width < height {
			width, height = height, width
		}
	case Portrait:
		if width > height {
			width, height = height, width
		}
	}
	return width, height
}

// Align is a horizontal text alignment.
type Align string

const (
	AlignLeft   Align = "left"
	AlignCenter Align = "center"
	AlignRight  Align = "right"
)

// NormalizeAlign maps aliases (start/end/middle) and unknown values to left/center/right.
func NormalizeAlign(v string) Align {
	switch strings.ToLower(strings.TrimSpace(v)) {
	case "center", "middle", "centre":
		return AlignCenter
	case "right", "end":
		return AlignRight
	default:
		return AlignLeft
	}
}

// Style is the text style of a field, column or text block.
type Style struct {
	FontName string  `yaml:"font"`
	FontSize float64 `yaml:"font_size"`
	Bold     bool    `yaml:"bold"`
	Italic   bool    `yaml:"italic"`
	Align    Align   `yaml:"align"`
	MaxLines int     `yaml:"max_lines"`
	Color    string  `yaml:"color"`
}

// BarcodeParams configure a 1D barcode. Lengths are mm.
type BarcodeParams struct {
	Symbology   string  `yaml:"symbology"`
	BarWidthMM  float64 `yaml:"bar_width"`
	BarHeightMM float64 `yaml:"bar_height"`
}

// QRParams configure a QR code. SizeMM is the square side.
type QRParams struct {
	SizeMM     float64 `yaml:"size"`
	ErrorLevel string  `yaml:"error_level"`
}

// ShapeKind enumerates drawable shapes.
type ShapeKind string

const (
	ShapeRect      ShapeKind = "rect"
	ShapeRoundRect ShapeKind = "roundrect"
	ShapeLine      ShapeKind = "line"
)

// ShapeParams configure a shape. A line runs from the field position to
// (x+width, y+height).
type ShapeParams struct {
	Kind          ShapeKind `yaml:"kind"`
	WidthMM       float64   `yaml:"width"`
	HeightMM      float64   `yaml:"height"`
	BorderColor   string    `yaml:"border_color"`
	BorderWidthMM float64   `yaml:"border_width"`
	FillColor     string    `yaml:"fill_color"`
	RadiusMM      float64   `yaml:"radius"`
}

// FieldKind enumerates module field kinds.
type FieldKind string

const (
	FieldStatic    FieldKind = "static"
	FieldAttribute FieldKind = "attribute"
	FieldTemplate  FieldKind = "template"
	FieldBarcode   FieldKind = "barcode"
	FieldQRCode    FieldKind = "qrcode"
	FieldShape     FieldKind = "shape"
)

// Field is one positioned element of a Module.
type Field struct {
	Name           string        `yaml:"name"`
	Order          int           `yaml:"order"`
	Kind           FieldKind     `yaml:"kind"`
	XMM            float64       `yaml:"x"`
	YMM            float64       `yaml:"y"`
	WidthMM        float64       `yaml:"width"`
	Style          Style         `yaml:",inline"`
	Text           string        `yaml:"text"`
	Path           string        `yaml:"path"`
	TemplateSource string        `yaml:"template"`
	Barcode        BarcodeParams `yaml:"barcode"`
	QR             QRParams      `yaml:"qrcode"`
	Shape          ShapeParams   `yaml:"shape"`
	Visible        bool          `yaml:"visible"`

	Template *dsl.Template `yaml:"-"`
}

// UnmarshalYAML defaults Visible to true.
func (f *Field) UnmarshalYAML(n *yaml.Node) error {
	type raw Field
	r := raw{Visible: true}
	if err := n.Decode(&r); err != nil {
		return err
	}
	*f = Field(r)
	return nil
}

// Label names the field in diagnostics.
func (f Field) Label() string {
	if f.Name != "" {
		return f.Name
	}
	return fmt.Sprintf("%s#%d", f.Kind, f.Order)
}

// Module renders one entity instance on a single page.
type Module struct {
	Slug       string     `yaml:"slug"`
	Name       string     `yaml:"name"`
	EntityKind string     `yaml:"entity"`
	Variant    string     `yaml:"variant"`
	IsDefault  bool       `yaml:"default"`
	FormatName string     `yaml:"format"`
	FontName   string     `yaml:"font"`
	FontSize   float64    `yaml:"font_size"`
	Fields     []Field    `yaml:"fields"`
	Format     PageFormat `yaml:"-"`
}

// Prepare validates the module and parses its templates once.
func (m *Module) Prepare() error {
	if err := m.Format.Validate(); err != nil {
		return fmt.Errorf("module %q: %w", m.Slug, err)
	}
	for i := range m.Fields {
		f := &m.Fields[i]
		f.Style.Align = NormalizeAlign(string(f.Style.Align))
		if f.Kind == "" {
			f.Kind = inferFieldKind(*f)
		}
		if f.TemplateSource != "" {
			f.Template = dsl.CompileTemplate(f.TemplateSource)
		}
	}
	return nil
}

// VisibleFields returns visible fields ordered by Order, ties kept in declaration order.
func (m *Module) VisibleFields() []Field {
	out := make([]Field, 0, len(m.Fields))
	for _, f := range m.Fields {
		if f.Visible {
			out = append(out, f)
		}
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Order < out[j].Order })
	return out
}

func inferFieldKind(f Field) FieldKind {
	switch {
	case f.Shape.Kind != "":
		return FieldShape
	case f.TemplateSource != "":
		return FieldTemplate
	case f.Path != "":
		return FieldAttribute
	default:
		return FieldStatic
	}
}

// ColumnKind enumerates list column kinds.
type ColumnKind string

const (
	ColumnAttribute ColumnKind = "attribute"
	ColumnTemplate  ColumnKind = "template"
	ColumnBarcode   ColumnKind = "barcode"
	ColumnQRCode    ColumnKind = "qrcode"
)

// Column is one column of a List.
type Column struct {
	Order          int           `yaml:"order"`
	Kind           ColumnKind    `yaml:"kind"`
	Label          string        `yaml:"label"`
	Path           string        `yaml:"path"`
	TemplateSource string        `yaml:"template"`
	WidthMM        float64       `yaml:"width"`
	Style          Style         `yaml:",inline"`
	Barcode        BarcodeParams `yaml:"barcode"`
	QR             QRParams      `yaml:"qrcode"`
	TreeIndent     bool          `yaml:"tree_indent"`

	Template *dsl.Template `yaml:"-"`
}

// Layout is the List rendering mode.
type Layout string

const (
	LayoutTable Layout = "table"
	LayoutTree  Layout = "tree"
)

// TextBlock is a title, header or footer: a literal or a template at a position.
// For footers YMM is measured upwards from the bottom margin.
type TextBlock struct {
	Text           string  `yaml:"text"`
	TemplateSource string  `yaml:"template"`
	XMM            float64 `yaml:"x"`
	YMM            float64 `yaml:"y"`
	Style          Style   `yaml:",inline"`

	Template *dsl.Template `yaml:"-"`
}

// Empty reports whether the block has no content.
func (b TextBlock) Empty() bool {
	return strings.TrimSpace(b.Text) == "" && strings.TrimSpace(b.TemplateSource) == ""
}

// TableStyle configures header and data rows. Lengths are mm.
type TableStyle struct {
	HeaderFontName string  `yaml:"header_font"`
	HeaderFontSize float64 `yaml:"header_font_size"`
	HeaderBold     bool    `yaml:"header_bold"`
	RowFontName    string  `yaml:"row_font"`
	RowFontSize    float64 `yaml:"row_font_size"`
	MaxLines       int     `yaml:"max_lines"`
	RowSpacingMM   float64 `yaml:"row_spacing"`
	RowHeightMM    float64 `yaml:"row_height"`
	TopMM          float64 `yaml:"top"`
}

// TreeOptions configure tree mode.
type TreeOptions struct {
	ParentField      string         `yaml:"parent_field"`
	ChildrenAccessor string         `yaml:"children"`
	RootFilterSpec   map[string]any `yaml:"root_filter"`
	RootIDSpec       []any          `yaml:"root_ids"`
	OrderSpec        string         `yaml:"order_by"`
	MaxDepth         int            `yaml:"max_depth"`
	IndentMM         float64        `yaml:"indent"`

	RootFilter dsl.Filter  `yaml:"-"`
	RootIDs    []dsl.Value `yaml:"-"`
	OrderBy    dsl.Order   `yaml:"-"`
}

// List renders many entity instances as a table or a tree.
type List struct {
	Slug       string         `yaml:"slug"`
	Name       string         `yaml:"name"`
	EntityKind string         `yaml:"entity"`
	Variant    string         `yaml:"variant"`
	IsDefault  bool           `yaml:"default"`
	FormatName string         `yaml:"format"`
	Layout     Layout         `yaml:"layout"`
	Title      TextBlock      `yaml:"title"`
	Header     TextBlock      `yaml:"header"`
	Footer     TextBlock      `yaml:"footer"`
	FilterSpec map[string]any `yaml:"filter"`
	OrderSpec  string         `yaml:"order_by"`
	Table      TableStyle     `yaml:"table"`
	Tree       TreeOptions    `yaml:"tree"`
	Columns    []Column       `yaml:"columns"`

	Format  PageFormat `yaml:"-"`
	Filter  dsl.Filter `yaml:"-"`
	OrderBy dsl.Order  `yaml:"-"`
}

// Prepare validates the list and parses filter, order and template specs once.
func (l *List) Prepare() error {
	if err := l.Format.Validate(); err != nil {
		return fmt.Errorf("list %q: %w", l.Slug, err)
	}
	switch l.Layout {
	case "":
		l.Layout = LayoutTable
	case LayoutTable, LayoutTree:
	default:
		return fmt.Errorf("list %q: 未知的布局模式 %q", l.Slug, l.Layout)
	}
	var err error
	if l.Filter, err = dsl.ParseFilter(l.FilterSpec); err != nil {
		return fmt.Errorf("list %q: %w", l.Slug, err)
	}
	if l.Tree.RootFilter, err = dsl.ParseFilter(l.Tree.RootFilterSpec); err != nil {
		return fmt.Errorf("list %q: %w", l.Slug, err)
	}
	l.Tree.RootIDs = l.Tree.RootIDs[:0]
	for _, raw := range l.Tree.RootIDSpec {
		l.Tree.RootIDs = append(l.Tree.RootIDs, dsl.ParseValue(raw))
	}
	l.OrderBy = dsl.ParseOrder(l.OrderSpec)
	l.Tree.OrderBy = dsl.ParseOrder(l.Tree.OrderSpec)
	if l.Layout == LayoutTree && l.Tree.ParentField == "" && len(l.Tree.RootIDs) == 0 && len(l.Tree.RootFilter) == 0 {
		return fmt.Errorf("list %q: 树形布局需要 parent_field、root_filter 或 root_ids", l.Slug)
	}
	for _, b := range []*TextBlock{&l.Title, &l.Header, &l.Footer} {
		b.Style.Align = NormalizeAlign(string(b.Style.Align))
		if b.TemplateSource != "" {
			b.Template = dsl.CompileTemplate(b.TemplateSource)
		}
	}
	for i := range l.Columns {
		c := &l.Columns[i]
		c.Style.Align = NormalizeAlign(string(c.Style.Align))
		if c.Kind == "" {
			c.Kind = ColumnAttribute
			if c.TemplateSource != "" {
				c.Kind = ColumnTemplate
			}
		}
		if c.TemplateSource != "" {
			c.Template = dsl.CompileTemplate(c.TemplateSource)
		}
	}
	return nil
}

// SortedColumns returns the columns ordered by Order.
func (l *List) SortedColumns() []Column {
	out := append([]Column(nil), l.Columns...)
	sort.SliceStable(out, func(i, j int) bool { return out[i].Order < out[j].Order })
	return out
}
