package definition

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

const sampleCatalog = `
formats:
  - name: a4
    width: 210
    height: 297
    margin_top: 15
    margin_right: 10
    margin_bottom: 15
    margin_left: 10
    font: Helvetica
    font_size: 10
  - name: etichetta
    width: 100
    height: 50
    orientation: portrait
  - name: vecchio
    width: 210
    height: 297
    active: false
modules:
  - slug: scheda
    entity: ticket
    default: true
    format: a4
    fields:
      - name: titolo
        order: 2
        x: 0
        y: 0
        template: "Ticket {obj.code}"
        bold: true
        align: middle
      - name: nascosto
        order: 1
        text: "X"
        visible: false
      - order: 3
        path: cliente.nome
      - order: 4
        kind: barcode
        path: code
        barcode:
          symbology: ean13
  - slug: etichetta
    entity: ticket
    variant: label
    default: true
    format: etichetta
  - slug: scheda-bis
    entity: ticket
    format: a4
lists:
  - slug: organigramma
    entity: unit
    layout: tree
    default: true
    format: a4
    filter:
      stato: aperto
      parentId__in: [":root", 5]
    order_by: "-name,id"
    tree:
      parent_field: parentId
      max_depth: 3
    columns:
      - order: 2
        label: Stato
        path: stato
      - order: 1
        label: Nome
        template: "{obj.name}"
        tree_indent: true
`

func TestParseCatalog(t *testing.T) {
	c, err := ParseCatalog([]byte(sampleCatalog))
	require.NoError(t, err)
	require.Len(t, c.Modules, 3)
	require.Len(t, c.Lists, 1)

	m := c.Modules[0]
	require.Equal(t, "a4", m.Format.Name)
	require.True(t, m.Format.Active)
	fields := m.VisibleFields()
	require.Len(t, fields, 3)
	require.Equal(t, "titolo", fields[0].Label())
	require.Equal(t, FieldTemplate, fields[0].Kind)
	require.Equal(t, AlignCenter, fields[0].Style.Align)
	require.True(t, fields[0].Style.Bold)
	require.NotNil(t, fields[0].Template)
	require.Equal(t, FieldAttribute, fields[1].Kind)
	require.Equal(t, "attribute#3", fields[1].Label())
	require.Equal(t, FieldBarcode, fields[2].Kind)
	require.Equal(t, "ean13", fields[2].Barcode.Symbology)

	l := c.Lists[0]
	require.Equal(t, LayoutTree, l.Layout)
	require.Len(t, l.Filter, 2)
	require.Len(t, l.OrderBy, 2)
	require.True(t, l.OrderBy[0].Desc)
	require.Equal(t, 3, l.Tree.MaxDepth)
	cols := l.SortedColumns()
	require.Equal(t, "Nome", cols[0].Label)
	require.Equal(t, ColumnTemplate, cols[0].Kind)
	require.True(t, cols[0].TreeIndent)
	require.Equal(t, ColumnAttribute, cols[1].Kind)
}

func TestCatalogDefaultOrSlug(t *testing.T) {
	c, err := ParseCatalog([]byte(sampleCatalog))
	require.NoError(t, err)
	ctx := context.Background()

	m, err := c.FindModule(ctx, Selector{EntityKind: "ticket"})
	require.NoError(t, err)
	require.Equal(t, "scheda", m.Slug)

	m, err = c.FindModule(ctx, Selector{EntityKind: "ticket", Variant: "label"})
	require.NoError(t, err)
	require.Equal(t, "etichetta", m.Slug)

	m, err = c.FindModule(ctx, Selector{EntityKind: "ticket", Slug: "scheda-bis"})
	require.NoError(t, err)
	require.Equal(t, "scheda-bis", m.Slug)

	_, err = c.FindModule(ctx, Selector{EntityKind: "order", Slug: "scheda"})
	require.ErrorIs(t, err, ErrNotFound)
	var nf *NotFoundError
	require.True(t, errors.As(err, &nf))
	require.Equal(t, "module", nf.What)
	require.Equal(t, "order", nf.EntityKind)

	_, err = c.FindModule(ctx, Selector{EntityKind: "ticket", Variant: "a3"})
	require.ErrorIs(t, err, ErrNotFound)
	require.Contains(t, err.Error(), "default")

	l, err := c.FindList(ctx, Selector{EntityKind: "unit"})
	require.NoError(t, err)
	require.Equal(t, "organigramma", l.Slug)

	_, err = c.FindList(ctx, Selector{EntityKind: "ticket"})
	require.ErrorIs(t, err, ErrNotFound)
}

func TestCatalogRejectsBrokenDefinitions(t *testing.T) {
	cases := map[string]string{
		"missing format": `
modules:
  - slug: m
    entity: ticket
    format: a5
`,
		"inactive format": `
formats:
  - {name: vecchio, width: 210, height: 297, active: false}
lists:
  - {slug: l, entity: unit, format: vecchio}
`,
		"non-positive size": `
formats:
  - {name: zero, width: 0, height: 297}
`,
		"tree without roots": `
formats:
  - {name: a4, width: 210, height: 297}
lists:
  - {slug: l, entity: unit, format: a4, layout: tree}
`,
		"empty lookup key": `
formats:
  - {name: a4, width: 210, height: 297}
lists:
  - slug: l
    entity: unit
    format: a4
    filter:
      "  ": x
`,
		"duplicate format": `
formats:
  - {name: a4, width: 210, height: 297}
  - {name: a4, width: 210, height: 297}
`,
	}
	for name, src := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := ParseCatalog([]byte(src))
			require.Error(t, err)
		})
	}

	_, err := ParseCatalog([]byte(cases["missing format"]))
	require.ErrorIs(t, err, ErrNotFound)
}

func TestLoadCatalog(t *testing.T) {
	path := filepath.Join(t.TempDir(), "definizioni.yaml")
	require.NoError(t, os.WriteFile(path, []byte(sampleCatalog), 0o644))
	c, err := LoadCatalog(path)
	require.NoError(t, err)
	require.Len(t, c.Formats, 3)

	_, err = LoadCatalog(filepath.Join(t.TempDir(), "manca.yaml"))
	require.Error(t, err)
}

func TestPageFormatSize(t *testing.T) {
	f := PageFormat{Name: "a4", WidthMM: 210, HeightMM: 297, Orientation: Landscape}
	w, h := f.Size()
	require.Equal(t, 297.0, w)
	require.Equal(t, 210.0, h)

	f.Orientation = Portrait
	f.WidthMM, f.HeightMM = 297, 210
	w, h = f.Size()
	require.Equal(t, 210.0, w)
	require.Equal(t, 297.0, h)

	require.Error(t, PageFormat{Name: "m", WidthMM: 100, HeightMM: 50, MarginLeftMM: 60, MarginRightMM: 40}.Validate())
	require.Error(t, PageFormat{Name: "n", WidthMM: 100, HeightMM: 50, MarginTopMM: -1}.Validate())
}
