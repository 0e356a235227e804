package layout

// 该文件定义布局结果，供布局计算、渲染与调试 JSON 共用。
// 所有坐标单位为 pt，原点在页面左下角，Y 轴向上（PDF 原生坐标）。

import "time"

// Result 保存布局后的页面、元信息与被跳过元素的诊断。
type Result struct {
	Pages       []Page       `json:"pages"`
	Meta        DocumentMeta `json:"meta"`
	Diagnostics Diagnostics  `json:"diagnostics,omitempty"`
}

// Page 记录页面尺寸与按绘制顺序排列的元素。
type Page struct {
	Width  float64 `json:"width"`
	Height float64 `json:"height"`
	Items  []Item  `json:"items"`
}

// Item 是一个待绘制的元素，四个指针字段中恰有一个非空。
type Item struct {
	Element string   `json:"element,omitempty"` // 诊断中使用的元素名
	Text    *TextBox `json:"text,omitempty"`
	Shape   *Shape   `json:"shape,omitempty"`
	Barcode *Barcode `json:"barcode,omitempty"`
	QRCode  *QRCode  `json:"qrcode,omitempty"`
}

// TextBox 表示一个已经折行、逐行定好基线的文本块。
type TextBox struct {
	X          float64    `json:"x"`
	Width      float64    `json:"width"` // 对齐参考宽度；0 表示不限宽
	Align      string     `json:"align,omitempty"`
	Font       string     `json:"font"`
	FontSize   float64    `json:"fontSize"`
	LineHeight float64    `json:"lineHeight"`
	Color      string     `json:"color,omitempty"`
	Lines      []TextLine `json:"lines"`
}

// Content 返回各行以换行符拼接后的文本。
func (t *TextBox) Content() string {
	out := ""
	for i, l := range t.Lines {
		if i > 0 {
			out += "\n"
		}
		out += l.Content
	}
	return out
}

// TextLine 表示一行文本及其基线。
type TextLine struct {
	Content  string  `json:"content"`
	Width    float64 `json:"width"`
	Baseline float64 `json:"baseline"`
}

// ShapeKind 取值 rect / roundrect / line。
type ShapeKind string

const (
	ShapeRect      ShapeKind = "rect"
	ShapeRoundRect ShapeKind = "roundrect"
	ShapeLine      ShapeKind = "line"
)

// Shape 为矩形时 (X, Y) 是左下角；为直线时从 (X, Y) 画到 (X+Width, Y+Height)。
type Shape struct {
	Kind        ShapeKind `json:"kind"`
	X           float64   `json:"x"`
	Y           float64   `json:"y"`
	Width       float64   `json:"width"`
	Height      float64   `json:"height"`
	StrokeColor string    `json:"strokeColor,omitempty"`
	StrokeWidth float64   `json:"strokeWidth,omitempty"`
	FillColor   string    `json:"fillColor,omitempty"`
	Radius      float64   `json:"radius,omitempty"`
}

// Barcode 是一维条码，(X, Y) 为左下角，BarWidth 为最窄模块宽度。
type Barcode struct {
	Symbology string  `json:"symbology"`
	Value     string  `json:"value"`
	X         float64 `json:"x"`
	Y         float64 `json:"y"`
	BarWidth  float64 `json:"barWidth"`
	Height    float64 `json:"height"`
}

// QRCode 为正方形二维码，(X, Y) 为左下角。
type QRCode struct {
	Value string  `json:"value"`
	X     float64 `json:"x"`
	Y     float64 `json:"y"`
	Size  float64 `json:"size"`
	Level string  `json:"level"`
}

// DocumentMeta 保存 PDF 元信息。
type DocumentMeta struct {
	Title    string    `json:"title"`
	Author   string    `json:"author"`
	Subject  string    `json:"subject"`
	Creator  string    `json:"creator"`
	Keywords []string  `json:"keywords"`
	Created  time.Time `json:"created"`
}
