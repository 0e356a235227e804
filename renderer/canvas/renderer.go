package canvasrenderer

import (
	"bytes"
	"fmt"
	"image/color"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/tdewolff/canvas"
	"github.com/tdewolff/canvas/renderers/pdf"
	"go.uber.org/zap"

	"github.com/ByLCY/modulistica/fonts"
	"github.com/ByLCY/modulistica/layout"
	"github.com/ByLCY/modulistica/renderer"
)

// Renderer draws layout results via github.com/tdewolff/canvas.
// 布局坐标为 pt（原点左下角），canvas 使用 mm，每次调用时换算。
type Renderer struct {
	log *zap.Logger

	// injected resources
	fontBlobs map[string][]byte

	fontMu       sync.Mutex
	fontFamilies map[string]*canvas.FontFamily
}

var (
	_ renderer.Renderer = (*Renderer)(nil)
	_ layout.Typesetter = (*Renderer)(nil)
)

// Options configures the canvas renderer.
type Options struct {
	Fonts  map[string]Resource // 按字体名注入，优先于 fonts 包中的字体
	Logger *zap.Logger
}

// Resource can be provided either by Bytes or by Path.
type Resource struct {
	Bytes []byte
	Path  string
}

// NewRenderer creates a renderer that only uses the fonts package.
func NewRenderer() *Renderer { return NewRendererWithOptions(Options{}) }

// NewRendererWithOptions creates a renderer with injected fonts.
func NewRendererWithOptions(opts Options) *Renderer {
	r := &Renderer{
		log:          opts.Logger,
		fontBlobs:    map[string][]byte{},
		fontFamilies: map[string]*canvas.FontFamily{},
	}
	if r.log == nil {
		r.log = zap.NewNop()
	}
	for name, res := range opts.Fonts {
		if name == "" {
			continue
		}
		if len(res.Bytes) > 0 {
			r.fontBlobs[name] = res.Bytes
			continue
		}
		if res.Path != "" {
			data, err := os.ReadFile(res.Path)
			if err != nil {
				r.log.Warn("读取字体失败", zap.String("font", name), zap.Error(err))
				continue
			}
			r.fontBlobs[name] = data
		}
	}
	return r
}

// Render renders the result into a PDF byte slice.
func (r *Renderer) Render(result *layout.Result) ([]byte, layout.Diagnostics, error) {
	if result == nil {
		return nil, nil, fmt.Errorf("渲染结果为空")
	}
	if len(result.Pages) == 0 {
		return nil, nil, fmt.Errorf("缺少可渲染的页面")
	}

	var (
		buf   bytes.Buffer
		diags layout.Diagnostics
	)
	first := result.Pages[0]
	writer := pdf.New(&buf, toMm(first.Width), toMm(first.Height), nil)
	r.applyMeta(writer, result.Meta)
	for i, page := range result.Pages {
		if i > 0 {
			writer.NewPage(toMm(page.Width), toMm(page.Height))
		}
		c := canvas.New(toMm(page.Width), toMm(page.Height))
		ctx := canvas.NewContext(c)
		// 默认 CartesianI：原点左下角，Y 向上，与布局坐标一致

		for _, item := range page.Items {
			r.drawItem(ctx, item, i+1, &diags)
		}
		c.RenderTo(writer)
	}

	if err := writer.Close(); err != nil {
		return nil, diags, fmt.Errorf("写入 PDF 失败: %w", err)
	}
	out := buf.Bytes()
	if !result.Meta.Created.IsZero() && !stampCreationDate(out, result.Meta.Created) {
		r.log.Warn("无法改写 PDF 创建时间", zap.Time("created", result.Meta.Created))
	}
	return out, diags, nil
}

const familyPrefix = "modulistica-"

var creationDateKey = []byte("/CreationDate(D:")

// stampCreationDate 原地替换 writer 写入的 CreationDate。
// 替换内容必须与原值等长，否则 xref 偏移失效。
func stampCreationDate(out []byte, created time.Time) bool {
	start := bytes.Index(out, creationDateKey)
	if start < 0 {
		return false
	}
	start += len(creationDateKey)
	end := bytes.IndexByte(out[start:], ')')
	if end < 0 {
		return false
	}
	stamp := created.UTC().Format("20060102150405")
	switch end {
	case len(stamp) + 1:
		stamp += "Z"
	case len(stamp) + 5:
		stamp += "+0000"
	default:
		return false
	}
	copy(out[start:start+end], stamp)
	return true
}

func (r *Renderer) applyMeta(writer *pdf.PDF, meta layout.DocumentMeta) {
	if writer == nil {
		return
	}
	keywords := strings.Join(meta.Keywords, ", ")
	writer.SetInfo(meta.Title, meta.Subject, keywords, meta.Author, meta.Creator)
}

// drawItem 绘制单个元素；错误与 panic 都转为诊断。
func (r *Renderer) drawItem(ctx *canvas.Context, item layout.Item, page int, diags *layout.Diagnostics) {
	skip := func(reason string) {
		diags.Add(item.Element, page, reason)
		r.log.Debug("元素已跳过",
			zap.String("element", item.Element),
			zap.Int("page", page),
			zap.String("reason", reason))
	}
	defer func() {
		if rec := recover(); rec != nil {
			skip(fmt.Sprintf("绘制失败: %v", rec))
		}
	}()

	var err error
	switch {
	case item.Text != nil:
		err = r.drawText(ctx, item.Text)
	case item.Shape != nil:
		err = drawShape(ctx, item.Shape)
	case item.Barcode != nil:
		err = drawBarcode(ctx, item.Barcode)
	case item.QRCode != nil:
		err = drawQRCode(ctx, item.QRCode)
	}
	if err != nil {
		skip(err.Error())
	}
}

// Measure 实现 layout.Typesetter。未知字体退回默认字体，并同时返回错误供调用方记录。
func (r *Renderer) Measure(font string, sizePt float64) (layout.Measurer, error) {
	face, err := r.fontFace(font, sizePt, canvas.Black)
	if face == nil {
		return nil, err
	}
	return layout.MeasureFunc(func(s string) float64 {
		return toPt(face.TextWidth(s))
	}), err
}

// fontFace 返回字体面；字体缺失时使用 fonts.Default 并返回原始错误。
func (r *Renderer) fontFace(name string, sizePt float64, col color.Color) (*canvas.FontFace, error) {
	family, err := r.family(name)
	if err != nil {
		fallback, fbErr := r.family(fonts.Default)
		if fbErr != nil {
			return nil, fmt.Errorf("%v; 默认字体也无法加载: %w", err, fbErr)
		}
		family = fallback
	}
	if sizePt <= 0 {
		sizePt = layout.DefaultFontSize
	}
	return family.Face(sizePt, col, canvas.FontRegular, canvas.FontNormal), err
}

// family 每个字体名（含变体）对应一个只含常规样式的字体族。
func (r *Renderer) family(name string) (*canvas.FontFamily, error) {
	name = fonts.Canonical(name)
	r.fontMu.Lock()
	defer r.fontMu.Unlock()

	if f, ok := r.fontFamilies[name]; ok {
		return f, nil
	}
	data, ok := r.fontBlobs[name]
	if !ok {
		var err error
		if data, err = fonts.Load(name); err != nil {
			return nil, err
		}
	}
	// canvas 会把 Helvetica/Courier/Times 等名字当作内置 Type1 字体而不嵌入
	family := canvas.NewFontFamily(familyPrefix + name)
	if err := family.LoadFont(data, 0, canvas.FontRegular); err != nil {
		return nil, fmt.Errorf("加载字体 %s 失败: %w", name, err)
	}
	r.fontFamilies[name] = family
	return family, nil
}

// toPt 将毫米(mm)转换为点(pt)。
func toPt(mm float64) float64 { return mm * layout.MmToPt }

// toMm 将点(pt)转换为毫米(mm)。
func toMm(pt float64) float64 { return pt * layout.PtToMm }
