package layout

import (
	"strings"

	"github.com/ByLCY/modulistica/definition"
)

// 条码、二维码与图形的默认尺寸（mm）。
const (
	DefaultBarWidthMM    = 0.3
	DefaultBarHeightMM   = 10
	DefaultQRSizeMM      = 20
	DefaultBorderWidthMM = 0.2
)

// barcode 在 (x, top) 处放置条码，返回占用高度；空内容时跳过并返回 0。
func (b *builder) barcode(rc *RenderContext, element, value string, p definition.BarcodeParams, x, top float64) float64 {
	value = strings.TrimSpace(value)
	if value == "" {
		b.skip(rc, element, "条码内容为空")
		return 0
	}
	h := MM(firstPositive(p.BarHeightMM, DefaultBarHeightMM))
	rc.add(Item{Element: element, Barcode: &Barcode{
		Symbology: NormalizeSymbology(p.Symbology),
		Value:     value,
		X:         x,
		Y:         top - h,
		BarWidth:  MM(firstPositive(p.BarWidthMM, DefaultBarWidthMM)),
		Height:    h,
	}})
	return h
}

// qrcode 在 (x, top) 处放置二维码，返回边长；空内容时跳过并返回 0。
func (b *builder) qrcode(rc *RenderContext, element, value string, p definition.QRParams, x, top float64) float64 {
	value = strings.TrimSpace(value)
	if value == "" {
		b.skip(rc, element, "二维码内容为空")
		return 0
	}
	size := MM(firstPositive(p.SizeMM, DefaultQRSizeMM))
	rc.add(Item{Element: element, QRCode: &QRCode{
		Value: value,
		X:     x,
		Y:     top - size,
		Size:  size,
		Level: NormalizeQRLevel(p.ErrorLevel),
	}})
	return size
}

// shape 在 (x, top) 处放置图形。
func (b *builder) shape(rc *RenderContext, element string, p definition.ShapeParams, fallbackWidthMM, x, top float64) {
	w := MM(firstPositive(p.WidthMM, fallbackWidthMM))
	h := MM(p.HeightMM)
	s := &Shape{
		X:           x,
		StrokeColor: p.BorderColor,
		StrokeWidth: MM(firstPositive(p.BorderWidthMM, DefaultBorderWidthMM)),
		FillColor:   p.FillColor,
	}
	switch p.Kind {
	case definition.ShapeLine:
		s.Kind = ShapeLine
		s.Y, s.Width, s.Height = top, w, -h
	case definition.ShapeRoundRect:
		s.Kind = ShapeRoundRect
		s.Y, s.Width, s.Height = top-h, w, h
		s.Radius = MM(p.RadiusMM)
	case definition.ShapeRect, "":
		s.Kind = ShapeRect
		s.Y, s.Width, s.Height = top-h, w, h
	default:
		b.skip(rc, element, "未知图形类型 "+string(p.Kind))
		return
	}
	if s.StrokeColor == "" && s.FillColor == "" {
		s.StrokeColor = "black"
	}
	rc.add(Item{Element: element, Shape: s})
}

// NormalizeSymbology 统一条码类型名称，未指定时为 code128。
func NormalizeSymbology(v string) string {
	s := strings.ToLower(strings.TrimSpace(v))
	s = strings.NewReplacer("-", "", "_", "", " ", "").Replace(s)
	switch s {
	case "", "code128", "c128":
		return "code128"
	case "code39", "c39":
		return "code39"
	case "ean13", "ean":
		return "ean13"
	case "ean8":
		return "ean8"
	case "i2of5", "itf", "interleaved2of5":
		return "i2of5"
	default:
		return s
	}
}

// NormalizeQRLevel 返回 L/M/Q/H 之一，默认 M。
func NormalizeQRLevel(v string) string {
	switch l := strings.ToUpper(strings.TrimSpace(v)); l {
	case "L", "M", "Q", "H":
		return l
	default:
		return "M"
	}
}
