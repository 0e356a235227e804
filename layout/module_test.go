package layout

import (
	"errors"
	"testing"
	"time"
	"unicode/utf8"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/require"

	"github.com/ByLCY/modulistica/binding"
	"github.com/ByLCY/modulistica/definition"
	"github.com/ByLCY/modulistica/dsl"
)

// stubTypesetter 是一个最小实现，仅用于测试，避免引入 renderer 造成循环依赖。
type stubTypesetter struct{ fail bool }

func (s stubTypesetter) Measure(font string, size float64) (Measurer, error) {
	if s.fail {
		return nil, errors.New("字体不可用")
	}
	return MeasureFunc(func(str string) float64 {
		return size * 0.5 * float64(utf8.RuneCountInString(str))
	}), nil
}

var fixedNow = func() time.Time { return time.Date(2024, 5, 17, 9, 30, 0, 0, time.UTC) }

func a4(margin float64) definition.PageFormat {
	return definition.PageFormat{
		Name: "A4", WidthMM: 210, HeightMM: 297, Orientation: definition.Portrait,
		MarginTopMM: margin, MarginRightMM: margin, MarginBottomMM: margin, MarginLeftMM: margin,
		FontName: "Helvetica", FontSize: 10, Active: true,
	}
}

func TestBuildModuleHello(t *testing.T) {
	m := &definition.Module{
		Slug:   "hello",
		Format: a4(0),
		Fields: []definition.Field{{Kind: definition.FieldStatic, XMM: 10, YMM: 10, Text: "HELLO", Visible: true}},
	}
	res, err := BuildModule(nil, m, BuildOptions{Typesetter: stubTypesetter{}, Now: fixedNow})
	require.NoError(t, err)
	require.Len(t, res.Pages, 1)

	page := res.Pages[0]
	require.InDelta(t, 210*MmToPt, page.Width, 1e-9)
	require.InDelta(t, 297*MmToPt, page.Height, 1e-9)
	require.Len(t, page.Items, 1)

	box := page.Items[0].Text
	require.NotNil(t, box)
	require.Equal(t, "HELLO", box.Content())
	require.InDelta(t, 10*MmToPt, box.X, 1e-9)
	require.InDelta(t, page.Height-10*MmToPt, box.Lines[0].Baseline, 1e-9)
	require.Empty(t, res.Diagnostics)
}

func TestBuildModuleFieldKinds(t *testing.T) {
	obj := binding.Map{
		"number":  "2024/17",
		"cliente": binding.Map{"ragioneSociale": "ACME S.p.A."},
		"ean":     "",
	}
	m := &definition.Module{
		Slug:   "ddt",
		Name:   "Documento di trasporto",
		Format: a4(10),
		Fields: []definition.Field{
			{Name: "title", Order: 1, Kind: definition.FieldStatic, Text: "DDT", Style: definition.Style{Bold: true, FontSize: 14}, Visible: true},
			{Name: "customer", Order: 2, Kind: definition.FieldAttribute, YMM: 10, Path: "cliente.ragioneSociale", Visible: true},
			{Name: "missing", Order: 3, Kind: definition.FieldAttribute, YMM: 20, Path: "destinatario.nome", Visible: true},
			{Name: "number", Order: 4, Kind: definition.FieldTemplate, YMM: 30, Template: dsl.CompileTemplate("N. {obj.number} del {now:%d/%m/%Y}"), Visible: true},
			{Name: "box", Order: 5, Kind: definition.FieldShape, YMM: 40, Shape: definition.ShapeParams{Kind: definition.ShapeRect, WidthMM: 50, HeightMM: 20}, Visible: true},
			{Name: "code", Order: 6, Kind: definition.FieldBarcode, YMM: 70, Path: "number", Visible: true},
			{Name: "empty-ean", Order: 7, Kind: definition.FieldBarcode, YMM: 90, Path: "ean", Barcode: definition.BarcodeParams{Symbology: "EAN-13"}, Visible: true},
			{Name: "qr", Order: 8, Kind: definition.FieldQRCode, YMM: 100, Path: "number", QR: definition.QRParams{SizeMM: 25, ErrorLevel: "h"}, Visible: true},
			{Name: "hidden", Order: 0, Kind: definition.FieldStatic, Text: "nope", Visible: false},
		},
	}
	res, err := BuildModule(obj, m, BuildOptions{Typesetter: stubTypesetter{}, Now: fixedNow})
	require.NoError(t, err)
	require.Len(t, res.Pages, 1)
	require.Equal(t, "Documento di trasporto", res.Meta.Title)

	items := map[string]Item{}
	for _, it := range res.Pages[0].Items {
		items[it.Element] = it
	}
	require.NotContains(t, items, "hidden")
	require.NotContains(t, items, "empty-ean")

	require.Equal(t, "Helvetica-Bold", items["title"].Text.Font)
	require.Equal(t, 14.0, items["title"].Text.FontSize)
	require.Equal(t, "ACME S.p.A.", items["customer"].Text.Content())
	require.Equal(t, "", items["missing"].Text.Content())
	require.Equal(t, "N. 2024/17 del 17/05/2024", items["number"].Text.Content())

	g := NewGeometry(m.Format)
	shape := items["box"].Shape
	require.Equal(t, ShapeRect, shape.Kind)
	require.InDelta(t, g.Y(40)-20*MmToPt, shape.Y, 1e-9)
	require.Equal(t, "black", shape.StrokeColor)

	require.Equal(t, "code128", items["code"].Barcode.Symbology)
	require.InDelta(t, g.Y(70)-DefaultBarHeightMM*MmToPt, items["code"].Barcode.Y, 1e-9)
	require.Equal(t, "H", items["qr"].QRCode.Level)
	require.InDelta(t, 25*MmToPt, items["qr"].QRCode.Size, 1e-9)

	require.Len(t, res.Diagnostics, 1)
	require.Equal(t, "empty-ean", res.Diagnostics[0].Element)
	require.Error(t, res.Diagnostics.Err())
}

func TestBuildModuleIdempotent(t *testing.T) {
	obj := binding.Map{"descrizione": "Una descrizione piuttosto lunga che deve andare a capo più volte"}
	m := &definition.Module{
		Format: a4(10),
		Fields: []definition.Field{
			{Kind: definition.FieldAttribute, Path: "descrizione", WidthMM: 40, Style: definition.Style{MaxLines: 2}, Visible: true},
			{Kind: definition.FieldTemplate, YMM: 30, Template: dsl.CompileTemplate("{date} {time}"), Visible: true},
		},
	}
	opts := BuildOptions{Typesetter: stubTypesetter{}, Now: fixedNow}
	first, err := BuildModule(obj, m, opts)
	require.NoError(t, err)
	second, err := BuildModule(obj, m, opts)
	require.NoError(t, err)
	if diff := cmp.Diff(first, second); diff != "" {
		t.Fatalf("两次布局结果不一致 (-first +second):\n%s", diff)
	}
	require.Len(t, first.Pages[0].Items[0].Text.Lines, 2)
	require.Equal(t, "2024-05-17 09:30:00", first.Pages[0].Items[1].Text.Content())
}

func TestBuildModuleTypesetterFailureFallsBack(t *testing.T) {
	m := &definition.Module{
		Format: a4(10),
		Fields: []definition.Field{{Kind: definition.FieldStatic, Text: "ciao", Visible: true}},
	}
	res, err := BuildModule(nil, m, BuildOptions{Typesetter: stubTypesetter{fail: true}})
	require.NoError(t, err)
	require.Equal(t, "ciao", res.Pages[0].Items[0].Text.Content())
	require.Len(t, res.Diagnostics, 1)
}

func TestBuildModuleInvalidFormat(t *testing.T) {
	_, err := BuildModule(nil, &definition.Module{Slug: "bad"}, BuildOptions{})
	require.Error(t, err)
	_, err = BuildModule(nil, nil, BuildOptions{})
	require.Error(t, err)
}
