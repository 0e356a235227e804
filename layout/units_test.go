package layout

import (
	"math"
	"testing"

	"github.com/ByLCY/modulistica/definition"
)

// TestPtMmRoundTrip 验证 pt↔mm 换算的往返精度（允许极小的浮点误差）。
func TestPtMmRoundTrip(t *testing.T) {
	samples := []float64{0, 0.001, 1, 12, 14.4, 72, 96, 144, 1000}
	for _, pt := range samples {
		mm := pt * PtToMm
		back := mm * MmToPt
		if diff := math.Abs(back - pt); diff > 1e-9 {
			t.Fatalf("pt→mm→pt 往返误差过大: in=%gpt mm=%g back=%g diff=%g", pt, mm, back, diff)
		}
	}
	for _, mm := range samples {
		pt := mm * MmToPt
		back := pt * PtToMm
		if diff := math.Abs(back - mm); diff > 1e-9 {
			t.Fatalf("mm→pt→mm 往返误差过大: in=%gmm pt=%g back=%g diff=%g", mm, pt, back, diff)
		}
	}
}

// TestLengthToConversions 覆盖 Length 在 mm/pt 之间的转换。
func TestLengthToConversions(t *testing.T) {
	pt := Length{Value: 12, Unit: UnitPT}
	if got := pt.ToMM(); math.Abs(got-12*PtToMm) > 1e-9 {
		t.Fatalf("12pt 转 mm 期望 %g，实际 %g", 12*PtToMm, got)
	}
	if got := pt.ToPT(); got != 12 {
		t.Fatalf("12pt 转 pt 期望 12，实际 %g", got)
	}
	mm := Length{Value: 10, Unit: UnitMM}
	if got := mm.ToPT(); math.Abs(got-10*MmToPt) > 1e-9 {
		t.Fatalf("10mm 转 pt 期望 %g，实际 %g", 10*MmToPt, got)
	}
}

// TestLineHeightResolve 验证倍数行高在目标单位下的解析结果。
func TestLineHeightResolve(t *testing.T) {
	fontSizePT := Length{Value: 12, Unit: UnitPT}
	gotMM := LineHeightSpec{Factor: 1.2}.Resolve(fontSizePT, UnitMM)
	wantMM := 12 * 1.2 * PtToMm
	if diff := math.Abs(gotMM - wantMM); diff > 1e-9 {
		t.Fatalf("1.2x 解析为 mm 错误: got=%g want=%g diff=%g", gotMM, wantMM, diff)
	}
	if got := LineHeightFor(10); math.Abs(got-12) > 1e-9 {
		t.Fatalf("10pt 默认行高期望 12pt，实际 %g", got)
	}
}

// TestGeometryMapping 验证自上而下的 mm 偏移映射到原生 pt 坐标（原点左下角）。
func TestGeometryMapping(t *testing.T) {
	g := NewGeometry(definition.PageFormat{WidthMM: 210, HeightMM: 297, MarginTopMM: 10, MarginLeftMM: 15})
	if diff := math.Abs(g.Width - 210*MmToPt); diff > 1e-9 {
		t.Fatalf("页面宽度错误: %g", g.Width)
	}
	if got, want := g.X(5), 20*MmToPt; math.Abs(got-want) > 1e-9 {
		t.Fatalf("X(5) 期望 %g，实际 %g", want, got)
	}
	if got, want := g.Y(5), (297-15)*MmToPt; math.Abs(got-want) > 1e-9 {
		t.Fatalf("Y(5) 期望 %g，实际 %g", want, got)
	}
	if g.Y(0) != g.Top() {
		t.Fatalf("Y(0) 应等于上边距位置")
	}
}

// TestGeometryLandscape 验证横向格式交换宽高。
func TestGeometryLandscape(t *testing.T) {
	g := NewGeometry(definition.PageFormat{WidthMM: 210, HeightMM: 297, Orientation: definition.Landscape})
	if g.Width <= g.Height {
		t.Fatalf("横向页面宽度应大于高度: %gx%g", g.Width, g.Height)
	}
}
