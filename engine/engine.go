// Package engine wires definitions, data sources, layout and the PDF renderer
// into the two public entry points: RenderModule and RenderList.
package engine

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/ByLCY/modulistica/definition"
	"github.com/ByLCY/modulistica/layout"
	"github.com/ByLCY/modulistica/query"
	"github.com/ByLCY/modulistica/renderer"
	canvasrenderer "github.com/ByLCY/modulistica/renderer/canvas"
	"github.com/ByLCY/modulistica/store"
)

// Definitions resolves modules and lists by default-or-slug.
// definition.Catalog and store.Repository both implement it.
type Definitions interface {
	FindModule(ctx context.Context, sel definition.Selector) (*definition.Module, error)
	FindList(ctx context.Context, sel definition.Selector) (*definition.List, error)
}

var (
	_ Definitions = (*definition.Catalog)(nil)
	_ Definitions = (*store.Repository)(nil)
)

// Options configures an Engine. Definitions is required; Source is required for lists.
type Options struct {
	Definitions Definitions
	Source      query.Source
	Renderer    renderer.Renderer
	Typesetter  layout.Typesetter // 默认使用 Renderer（若其实现了 Typesetter）
	Logger      *zap.Logger
	Now         func() time.Time
	Marker      string
}

// Engine renders modules and lists. It holds no per-render state and may be
// shared between goroutines.
type Engine struct {
	defs       Definitions
	src        query.Source
	renderer   renderer.Renderer
	typesetter layout.Typesetter
	log        *zap.Logger
	now        func() time.Time
	marker     string
}

// Document is a rendered PDF together with its layout and skipped elements.
type Document struct {
	PDF         []byte
	Layout      *layout.Result
	Diagnostics layout.Diagnostics
}

// New creates an engine. Without a Renderer the canvas PDF renderer is used.
func New(opts Options) (*Engine, error) {
	if opts.Definitions == nil {
		return nil, errors.New("缺少定义来源")
	}
	e := &Engine{
		defs:       opts.Definitions,
		src:        opts.Source,
		renderer:   opts.Renderer,
		typesetter: opts.Typesetter,
		log:        opts.Logger,
		now:        opts.Now,
		marker:     opts.Marker,
	}
	if e.log == nil {
		e.log = zap.NewNop()
	}
	if e.now == nil {
		e.now = time.Now
	}
	if e.renderer == nil {
		e.renderer = canvasrenderer.NewRendererWithOptions(canvasrenderer.Options{Logger: e.log})
	}
	if e.typesetter == nil {
		if ts, ok := e.renderer.(layout.Typesetter); ok {
			e.typesetter = ts
		}
	}
	return e, nil
}

func (e *Engine) buildOptions(extra map[string]any) layout.BuildOptions {
	return layout.BuildOptions{
		Typesetter: e.typesetter,
		Logger:     e.log,
		Now:        e.now,
		Extra:      extra,
		Marker:     e.marker,
	}
}

// RenderModule renders instance with the module chosen by sel.
func (e *Engine) RenderModule(ctx context.Context, instance any, sel definition.Selector) ([]byte, error) {
	doc, err := e.Module(ctx, instance, sel, nil)
	if err != nil {
		return nil, err
	}
	return doc.PDF, nil
}

// Module is RenderModule returning the full Document; extra adds template namespaces.
func (e *Engine) Module(ctx context.Context, instance any, sel definition.Selector, extra map[string]any) (*Document, error) {
	log := e.log.With(zap.String("entity", sel.EntityKind), zap.String("variant", sel.Variant), zap.String("slug", sel.Slug))
	m, err := e.defs.FindModule(ctx, sel)
	if err != nil {
		log.Error("模块查找失败", zap.Error(err))
		return nil, err
	}
	log = log.With(zap.String("module", m.Slug))

	res, err := layout.BuildModule(instance, m, e.buildOptions(extra))
	if err != nil {
		log.Error("模块布局失败", zap.Error(err))
		return nil, fmt.Errorf("module %q: %w", m.Slug, err)
	}
	return e.render(log, "module", m.Slug, res)
}

// RenderList renders the list chosen by sel over the instances of entityKind.
// params feed filter, root and order placeholders; extra adds template namespaces.
func (e *Engine) RenderList(ctx context.Context, entityKind string, sel definition.Selector, params map[string]string, extra map[string]any) ([]byte, error) {
	doc, err := e.List(ctx, entityKind, sel, params, extra)
	if err != nil {
		return nil, err
	}
	return doc.PDF, nil
}

// List is RenderList returning the full Document.
func (e *Engine) List(ctx context.Context, entityKind string, sel definition.Selector, params map[string]string, extra map[string]any) (*Document, error) {
	if entityKind != "" {
		sel.EntityKind = entityKind
	}
	log := e.log.With(zap.String("entity", sel.EntityKind), zap.String("variant", sel.Variant), zap.String("slug", sel.Slug))
	if e.src == nil {
		err := errors.New("缺少数据来源")
		log.Error("列表渲染失败", zap.Error(err))
		return nil, err
	}
	l, err := e.defs.FindList(ctx, sel)
	if err != nil {
		log.Error("列表查找失败", zap.Error(err))
		return nil, err
	}
	log = log.With(zap.String("list", l.Slug), zap.String("layout", string(l.Layout)))

	build := query.BuildFlat
	if l.Layout == definition.LayoutTree {
		build = query.BuildTree
	}
	treeRows, err := build(ctx, e.src, l, params, log)
	if err != nil {
		log.Error("列表数据查询失败", zap.Error(err))
		return nil, fmt.Errorf("list %q: %w", l.Slug, err)
	}
	rows := make([]layout.Row, len(treeRows))
	for i, r := range treeRows {
		rows[i] = layout.Row{Item: r.Item, Depth: r.Depth}
	}

	res, err := layout.BuildList(l, rows, e.buildOptions(listExtra(extra, params)))
	if err != nil {
		log.Error("列表布局失败", zap.Error(err))
		return nil, fmt.Errorf("list %q: %w", l.Slug, err)
	}
	return e.render(log.With(zap.Int("rows", len(rows))), "list", l.Slug, res)
}

func (e *Engine) render(log *zap.Logger, what, slug string, res *layout.Result) (*Document, error) {
	data, skipped, err := e.renderer.Render(res)
	if err != nil {
		log.Error("PDF 渲染失败", zap.Error(err))
		return nil, fmt.Errorf("%s %q: %w", what, slug, err)
	}
	diags := append(append(layout.Diagnostics(nil), res.Diagnostics...), skipped...)
	log.Info("渲染完成",
		zap.Int("pages", len(res.Pages)),
		zap.Int("skipped", len(diags)),
		zap.Int("bytes", len(data)),
	)
	return &Document{PDF: data, Layout: res, Diagnostics: diags}, nil
}

// listExtra 为模板加入 params 命名空间；调用方的同名键优先。
func listExtra(extra map[string]any, params map[string]string) map[string]any {
	p := make(map[string]any, len(params))
	for k, v := range params {
		p[k] = v
	}
	out := map[string]any{"params": p}
	for k, v := range extra {
		out[k] = v
	}
	return out
}
