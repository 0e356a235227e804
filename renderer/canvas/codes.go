package canvasrenderer

import (
	"fmt"
	"image"
	"strings"

	"github.com/boombuler/barcode"
	"github.com/boombuler/barcode/code128"
	"github.com/boombuler/barcode/code39"
	"github.com/boombuler/barcode/ean"
	"github.com/boombuler/barcode/qr"
	"github.com/boombuler/barcode/twooffive"
	"github.com/tdewolff/canvas"

	"github.com/ByLCY/modulistica/layout"
)

// encodeBarcode 将内容编码为一维条码；内容不合法时返回错误。
func encodeBarcode(symbology, value string) (barcode.Barcode, error) {
	switch symbology {
	case "code128":
		return code128.Encode(value)
	case "code39":
		return code39.Encode(strings.ToUpper(value), false, true)
	case "ean13":
		digits := onlyDigits(value)
		if len(digits) < 12 || len(digits) > 13 {
			return nil, fmt.Errorf("EAN-13 需要 12 或 13 位数字，实际 %d 位", len(digits))
		}
		return ean.Encode(digits)
	case "ean8":
		digits := onlyDigits(value)
		if len(digits) < 7 || len(digits) > 8 {
			return nil, fmt.Errorf("EAN-8 需要 7 或 8 位数字，实际 %d 位", len(digits))
		}
		return ean.Encode(digits)
	case "i2of5":
		digits := onlyDigits(value)
		if digits == "" || len(digits)%2 != 0 {
			return nil, fmt.Errorf("交叉二五码需要偶数位数字: %q", value)
		}
		return twooffive.Encode(digits, true)
	default:
		return nil, fmt.Errorf("不支持的条码类型 %q", symbology)
	}
}

func encodeQR(value, level string) (barcode.Barcode, error) {
	lv := qr.M
	switch level {
	case "L":
		lv = qr.L
	case "Q":
		lv = qr.Q
	case "H":
		lv = qr.H
	}
	return qr.Encode(value, lv, qr.Auto)
}

func drawBarcode(ctx *canvas.Context, b *layout.Barcode) error {
	code, err := encodeBarcode(b.Symbology, b.Value)
	if err != nil {
		return fmt.Errorf("条码编码失败: %w", err)
	}
	bounds := code.Bounds()
	module := toMm(b.BarWidth)
	height := toMm(b.Height)
	ctx.SetFillColor(canvas.Black)
	ctx.SetStrokeColor(canvas.Transparent)
	for _, run := range darkRuns(code, bounds.Min.Y, bounds) {
		x := toMm(b.X) + float64(run[0]-bounds.Min.X)*module
		ctx.DrawPath(x, toMm(b.Y), canvas.Rectangle(float64(run[1]-run[0])*module, height))
	}
	return nil
}

func drawQRCode(ctx *canvas.Context, q *layout.QRCode) error {
	code, err := encodeQR(q.Value, q.Level)
	if err != nil {
		return fmt.Errorf("二维码编码失败: %w", err)
	}
	bounds := code.Bounds()
	n := bounds.Dx()
	if n == 0 {
		return fmt.Errorf("二维码为空")
	}
	module := toMm(q.Size) / float64(n)
	top := toMm(q.Y + q.Size)
	ctx.SetFillColor(canvas.Black)
	ctx.SetStrokeColor(canvas.Transparent)
	for row := 0; row < bounds.Dy(); row++ {
		y := top - float64(row+1)*module
		for _, run := range darkRuns(code, bounds.Min.Y+row, bounds) {
			x := toMm(q.X) + float64(run[0]-bounds.Min.X)*module
			ctx.DrawPath(x, y, canvas.Rectangle(float64(run[1]-run[0])*module, module))
		}
	}
	return nil
}

// darkRuns 返回第 y 行中连续深色模块的 [起, 止) 区间。
func darkRuns(img image.Image, y int, bounds image.Rectangle) [][2]int {
	var runs [][2]int
	start := -1
	for x := bounds.Min.X; x < bounds.Max.X; x++ {
		if isDark(img, x, y) {
			if start < 0 {
				start = x
			}
			continue
		}
		if start >= 0 {
			runs = append(runs, [2]int{start, x})
			start = -1
		}
	}
	if start >= 0 {
		runs = append(runs, [2]int{start, bounds.Max.X})
	}
	return runs
}

func isDark(img image.Image, x, y int) bool {
	r, g, b, _ := img.At(x, y).RGBA()
	return (r+g+b)/3 < 0x8000
}

func onlyDigits(s string) string {
	return strings.Map(func(r rune) rune {
		if r >= '0' && r <= '9' {
			return r
		}
		return -1
	}, s)
}
