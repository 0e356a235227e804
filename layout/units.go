package layout

import "github.com/ByLCY/modulistica/definition"

// This file defines unit-safe types and helpers for length and line-height,
// and the mapping from top-down millimetre positions to native PDF points.

// Unit represents the original unit of a length value.
type Unit int

const (
	UnitMM Unit = iota // millimeters
	UnitPT             // points
)

// Conversion constants between pt and mm.
const (
	PtToMm = 0.352777
	MmToPt = 1.0 / PtToMm
)

// Length preserves a numeric value with its unit.
type Length struct {
	Value float64 `json:"value"`
	Unit  Unit    `json:"unit"`
}

// To converts this length to target unit.
func (l Length) To(target Unit) float64 {
	switch {
	case l.Unit == target:
		return l.Value
	case target == UnitPT:
		return l.Value * MmToPt
	default:
		return l.Value * PtToMm
	}
}

func (l Length) ToMM() float64 { return l.To(UnitMM) }
func (l Length) ToPT() float64 { return l.To(UnitPT) }

// LineHeightSpec 以字号倍数表示行高。
type LineHeightSpec struct {
	Factor float64 `json:"factor"`
}

// Resolve computes the absolute line height in target unit for fontSize.
func (s LineHeightSpec) Resolve(fontSize Length, target Unit) float64 {
	return fontSize.To(target) * s.Factor
}

// DefaultLineHeight 为 1.2 倍字号。
var DefaultLineHeight = LineHeightSpec{Factor: 1.2}

// LineHeightFor returns the default line height in pt for a font size in pt.
func LineHeightFor(sizePt float64) float64 {
	return DefaultLineHeight.Resolve(Length{Value: sizePt, Unit: UnitPT}, UnitPT)
}

// MM converts millimetres to points.
func MM(v float64) float64 { return Length{Value: v, Unit: UnitMM}.ToPT() }

// Margin holds the four page margins.
type Margin struct {
	Top    float64 `json:"top"`
	Right  float64 `json:"right"`
	Bottom float64 `json:"bottom"`
	Left   float64 `json:"left"`
}

// Geometry 描述一页的尺寸与边距（pt），并把"自上边距向下"的 mm 偏移
// 转换为原生坐标：原点左下角，Y 向上。
type Geometry struct {
	Width  float64 `json:"width"`
	Height float64 `json:"height"`
	Margin Margin  `json:"margin"`
}

// NewGeometry 按页面格式（含横竖向）计算页面几何。
func NewGeometry(f definition.PageFormat) Geometry {
	w, h := f.Size()
	return Geometry{
		Width:  MM(w),
		Height: MM(h),
		Margin: Margin{
			Top:    MM(f.MarginTopMM),
			Right:  MM(f.MarginRightMM),
			Bottom: MM(f.MarginBottomMM),
			Left:   MM(f.MarginLeftMM),
		},
	}
}

// X maps a mm offset from the left margin to a native x.
func (g Geometry) X(mm float64) float64 { return g.Margin.Left + MM(mm) }

// Y maps a mm offset below the top margin to a native y.
func (g Geometry) Y(mm float64) float64 { return g.Height - g.Margin.Top - MM(mm) }

// Top is the native y of the top margin.
func (g Geometry) Top() float64 { return g.Height - g.Margin.Top }

// Bottom is the native y of the bottom margin.
func (g Geometry) Bottom() float64 { return g.Margin.Bottom }

// Right is the native x of the right margin.
func (g Geometry) Right() float64 { return g.Width - g.Margin.Right }

// ContentWidth is the width between the side margins.
func (g Geometry) ContentWidth() float64 { return g.Width - g.Margin.Left - g.Margin.Right }
