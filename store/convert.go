package store

import (
	"encoding/json"

	"gorm.io/datatypes"

	"github.com/ByLCY/modulistica/definition"
)

func formatRecord(f definition.PageFormat) FormatRecord {
	orientation := string(f.Orientation)
	if orientation == "" {
		orientation = string(definition.Portrait)
	}
	return FormatRecord{
		Name:           f.Name,
		WidthMM:        f.WidthMM,
		HeightMM:       f.HeightMM,
		Orientation:    orientation,
		MarginTopMM:    f.MarginTopMM,
		MarginRightMM:  f.MarginRightMM,
		MarginBottomMM: f.MarginBottomMM,
		MarginLeftMM:   f.MarginLeftMM,
		FontName:       f.FontName,
		FontSize:       f.FontSize,
		Active:         f.Active,
	}
}

func (r FormatRecord) model() definition.PageFormat {
	return definition.PageFormat{
		Name:           r.Name,
		WidthMM:        r.WidthMM,
		HeightMM:       r.HeightMM,
		Orientation:    definition.Orientation(r.Orientation),
		MarginTopMM:    r.MarginTopMM,
		MarginRightMM:  r.MarginRightMM,
		MarginBottomMM: r.MarginBottomMM,
		MarginLeftMM:   r.MarginLeftMM,
		FontName:       r.FontName,
		FontSize:       r.FontSize,
		Active:         r.Active,
	}
}

func moduleRecord(m *definition.Module) ModuleRecord {
	rec := ModuleRecord{
		Slug:       m.Slug,
		Name:       m.Name,
		EntityKind: m.EntityKind,
		Variant:    m.Variant,
		IsDefault:  m.IsDefault,
		FontName:   m.FontName,
		FontSize:   m.FontSize,
	}
	for _, f := range m.Fields {
		rec.Fields = append(rec.Fields, FieldRecord{
			Name:     f.Name,
			Position: f.Order,
			Kind:     string(f.Kind),
			XMM:      f.XMM,
			YMM:      f.YMM,
			WidthMM:  f.WidthMM,
			Text:     f.Text,
			Path:     f.Path,
			Template: f.TemplateSource,
			Visible:  f.Visible,
			Style:    datatypes.NewJSONType(f.Style),
			Barcode:  datatypes.NewJSONType(f.Barcode),
			QR:       datatypes.NewJSONType(f.QR),
			Shape:    datatypes.NewJSONType(f.Shape),
		})
	}
	return rec
}

func (r ModuleRecord) model() *definition.Module {
	m := &definition.Module{
		Slug:       r.Slug,
		Name:       r.Name,
		EntityKind: r.EntityKind,
		Variant:    r.Variant,
		IsDefault:  r.IsDefault,
		FormatName: r.Format.Name,
		FontName:   r.FontName,
		FontSize:   r.FontSize,
		Format:     r.Format.model(),
	}
	for _, f := range r.Fields {
		m.Fields = append(m.Fields, definition.Field{
			Name:           f.Name,
			Order:          f.Position,
			Kind:           definition.FieldKind(f.Kind),
			XMM:            f.XMM,
			YMM:            f.YMM,
			WidthMM:        f.WidthMM,
			Style:          f.Style.Data(),
			Text:           f.Text,
			Path:           f.Path,
			TemplateSource: f.Template,
			Barcode:        f.Barcode.Data(),
			QR:             f.QR.Data(),
			Shape:          f.Shape.Data(),
			Visible:        f.Visible,
		})
	}
	return m
}

func blockOf(b definition.TextBlock) datatypes.JSONType[block] {
	return datatypes.NewJSONType(block{Text: b.Text, Template: b.TemplateSource, XMM: b.XMM, YMM: b.YMM, Style: b.Style})
}

func (b block) model() definition.TextBlock {
	return definition.TextBlock{Text: b.Text, TemplateSource: b.Template, XMM: b.XMM, YMM: b.YMM, Style: b.Style}
}

func listRecord(l *definition.List) ListRecord {
	rec := ListRecord{
		Slug:             l.Slug,
		Name:             l.Name,
		EntityKind:       l.EntityKind,
		Variant:          l.Variant,
		IsDefault:        l.IsDefault,
		Layout:           string(l.Layout),
		Title:            blockOf(l.Title),
		Header:           blockOf(l.Header),
		Footer:           blockOf(l.Footer),
		Filter:           datatypes.JSONMap(l.FilterSpec),
		OrderBy:          l.OrderSpec,
		TableStyle:       datatypes.NewJSONType(l.Table),
		ParentField:      l.Tree.ParentField,
		ChildrenAccessor: l.Tree.ChildrenAccessor,
		RootFilter:       datatypes.JSONMap(l.Tree.RootFilterSpec),
		RootIDs:          datatypes.NewJSONSlice(l.Tree.RootIDSpec),
		TreeOrderBy:      l.Tree.OrderSpec,
		MaxDepth:         l.Tree.MaxDepth,
		IndentMM:         l.Tree.IndentMM,
	}
	for _, c := range l.Columns {
		rec.Columns = append(rec.Columns, ColumnRecord{
			Position:   c.Order,
			Kind:       string(c.Kind),
			Label:      c.Label,
			Path:       c.Path,
			Template:   c.TemplateSource,
			WidthMM:    c.WidthMM,
			TreeIndent: c.TreeIndent,
			Style:      datatypes.NewJSONType(c.Style),
			Barcode:    datatypes.NewJSONType(c.Barcode),
			QR:         datatypes.NewJSONType(c.QR),
		})
	}
	return rec
}

func (r ListRecord) model() *definition.List {
	l := &definition.List{
		Slug:       r.Slug,
		Name:       r.Name,
		EntityKind: r.EntityKind,
		Variant:    r.Variant,
		IsDefault:  r.IsDefault,
		FormatName: r.Format.Name,
		Layout:     definition.Layout(r.Layout),
		Title:      r.Title.Data().model(),
		Header:     r.Header.Data().model(),
		Footer:     r.Footer.Data().model(),
		FilterSpec: plainMap(r.Filter),
		OrderSpec:  r.OrderBy,
		Table:      r.TableStyle.Data(),
		Tree: definition.TreeOptions{
			ParentField:      r.ParentField,
			ChildrenAccessor: r.ChildrenAccessor,
			RootFilterSpec:   plainMap(r.RootFilter),
			RootIDSpec:       []any(r.RootIDs),
			OrderSpec:        r.TreeOrderBy,
			MaxDepth:         r.MaxDepth,
			IndentMM:         r.IndentMM,
		},
		Format: r.Format.model(),
	}
	for _, c := range r.Columns {
		l.Columns = append(l.Columns, definition.Column{
			Order:          c.Position,
			Kind:           definition.ColumnKind(c.Kind),
			Label:          c.Label,
			Path:           c.Path,
			TemplateSource: c.Template,
			WidthMM:        c.WidthMM,
			Style:          c.Style.Data(),
			Barcode:        c.Barcode.Data(),
			QR:             c.QR.Data(),
			TreeIndent:     c.TreeIndent,
		})
	}
	return l
}

// plainMap 将 JSONMap 中的 json.Number 还原为 int64 或 float64。
func plainMap(m datatypes.JSONMap) map[string]any {
	if len(m) == 0 {
		return nil
	}
	out := make(map[string]any, len(m))
	for k, v := range m {
		out[k] = plain(v)
	}
	return out
}

func plain(v any) any {
	switch x := v.(type) {
	case json.Number:
		if i, err := x.Int64(); err == nil {
			return i
		}
		if f, err := x.Float64(); err == nil {
			return f
		}
		return x.String()
	case []any:
		out := make([]any, len(x))
		for i, item := range x {
			out[i] = plain(item)
		}
		return out
	case map[string]any:
		return plainMap(x)
	}
	return v
}
