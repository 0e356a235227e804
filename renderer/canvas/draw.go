package canvasrenderer

import (
	"fmt"
	"image/color"
	"strconv"
	"strings"

	"github.com/tdewolff/canvas"
	"golang.org/x/image/colornames"

	"github.com/ByLCY/modulistica/layout"
)

func (r *Renderer) drawText(ctx *canvas.Context, tb *layout.TextBox) error {
	col, ok := parseColor(tb.Color)
	if !ok {
		col = canvas.Black
	}
	face, err := r.fontFace(tb.Font, tb.FontSize, col)
	if face == nil {
		return err
	}

	// 处理水平对齐：left（默认）/center/right。
	textAlign := canvas.Left
	anchorX := tb.X
	if tb.Width > 0 {
		switch strings.ToLower(tb.Align) {
		case "center":
			textAlign = canvas.Center
			anchorX = tb.X + tb.Width/2
		case "right":
			textAlign = canvas.Right
			anchorX = tb.X + tb.Width
		}
	}
	for _, line := range tb.Lines {
		if line.Content == "" {
			continue
		}
		ctx.DrawText(toMm(anchorX), toMm(line.Baseline), canvas.NewTextLine(face, line.Content, textAlign))
	}
	return nil
}

func drawShape(ctx *canvas.Context, s *layout.Shape) error {
	stroke, hasStroke := parseColor(s.StrokeColor)
	fill, hasFill := parseColor(s.FillColor)
	if !hasStroke {
		stroke = canvas.Transparent
	}
	if !hasFill {
		fill = canvas.Transparent
	}
	ctx.SetStrokeColor(stroke)
	ctx.SetFillColor(fill)
	ctx.SetStrokeWidth(toMm(s.StrokeWidth))

	switch s.Kind {
	case layout.ShapeLine:
		if !hasStroke {
			return nil
		}
		p := &canvas.Path{}
		p.MoveTo(0, 0)
		p.LineTo(toMm(s.Width), toMm(s.Height))
		ctx.DrawPath(toMm(s.X), toMm(s.Y), p)
	case layout.ShapeRect:
		ctx.DrawPath(toMm(s.X), toMm(s.Y), canvas.Rectangle(toMm(s.Width), toMm(s.Height)))
	case layout.ShapeRoundRect:
		ctx.DrawPath(toMm(s.X), toMm(s.Y), canvas.RoundedRectangle(toMm(s.Width), toMm(s.Height), toMm(s.Radius)))
	default:
		return fmt.Errorf("未知图形类型 %q", s.Kind)
	}
	return nil
}

// parseColor 支持 #rgb、#rrggbb、#rrggbbaa 与 CSS 颜色名；无法解析时返回 false。
func parseColor(s string) (color.Color, bool) {
	s = strings.TrimSpace(strings.ToLower(s))
	if s == "" {
		return nil, false
	}
	if c, ok := colornames.Map[s]; ok {
		return c, true
	}
	hex := strings.TrimPrefix(s, "#")
	if len(hex) == 3 {
		hex = string([]byte{hex[0], hex[0], hex[1], hex[1], hex[2], hex[2]})
	}
	if len(hex) == 6 {
		hex += "ff"
	}
	if len(hex) != 8 {
		return nil, false
	}
	v, err := strconv.ParseUint(hex, 16, 32)
	if err != nil {
		return nil, false
	}
	return color.NRGBA{R: uint8(v >> 24), G: uint8(v >> 16), B: uint8(v >> 8), A: uint8(v)}, true
}
