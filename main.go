package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"gopkg.in/yaml.v3"
	"gorm.io/gorm"

	"github.com/ByLCY/modulistica/binding"
	"github.com/ByLCY/modulistica/config"
	"github.com/ByLCY/modulistica/definition"
	"github.com/ByLCY/modulistica/dsl"
	"github.com/ByLCY/modulistica/engine"
	"github.com/ByLCY/modulistica/fonts"
	"github.com/ByLCY/modulistica/layout"
	"github.com/ByLCY/modulistica/query"
	canvasrenderer "github.com/ByLCY/modulistica/renderer/canvas"
	"github.com/ByLCY/modulistica/store"
)

var (
	configPath string
	verbose    bool

	cfg    *config.Config
	logger *zap.Logger
)

// renderFlags 是 render 子命令共用的参数。
type renderFlags struct {
	entity  string
	variant string
	slug    string
	out     string
	debug   string
	extra   []string
}

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:           "modulistica",
		Short:         "根据存储的版式定义生成 PDF 模块与列表",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			var err error
			if cfg, err = config.Load(configPath); err != nil {
				return err
			}
			zc := zap.NewProductionConfig()
			if zc.Level, err = cfg.ZapLevel(); err != nil {
				return err
			}
			if verbose {
				zc.Level = zap.NewAtomicLevelAt(zapcore.DebugLevel)
			}
			if logger, err = zc.Build(); err != nil {
				return fmt.Errorf("初始化日志失败: %w", err)
			}
			for name, path := range cfg.Fonts {
				if err := fonts.RegisterFile(name, path); err != nil {
					return err
				}
			}
			return nil
		},
		PersistentPostRun: func(cmd *cobra.Command, args []string) {
			if logger != nil {
				_ = logger.Sync()
			}
		},
	}
	root.PersistentFlags().StringVarP(&configPath, "config", "c", "modulistica.yaml", "配置文件路径")
	root.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "输出调试日志")

	render := &cobra.Command{Use: "render", Short: "渲染模块或列表"}
	render.AddCommand(newRenderModuleCmd(), newRenderListCmd())
	root.AddCommand(newImportCmd(), render)
	return root
}

func newImportCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "import [definizioni.yaml]",
		Short: "将 YAML 定义导入数据库",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			path := cfg.Definitions
			if len(args) == 1 {
				path = args[0]
			}
			if path == "" {
				return errors.New("未指定定义文件")
			}
			catalog, err := definition.LoadCatalog(path)
			if err != nil {
				return err
			}
			db, err := store.Open(cfg.Database.Driver, cfg.Database.DSN)
			if err != nil {
				return err
			}
			repo, err := store.NewRepository(db, cfg.Database.Node, logger)
			if err != nil {
				return err
			}
			if err := repo.Migrate(cmd.Context()); err != nil {
				return err
			}
			if err := repo.Import(cmd.Context(), catalog); err != nil {
				return fmt.Errorf("导入定义失败: %w", err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "已导入 %d 个模块、%d 个列表\n", len(catalog.Modules), len(catalog.Lists))
			return nil
		},
	}
}

func (f *renderFlags) register(cmd *cobra.Command) {
	cmd.Flags().StringVar(&f.entity, "entity", "", "实体类型")
	cmd.Flags().StringVar(&f.variant, "variant", "", "变体；未指定 slug 时选择该变体的默认定义")
	cmd.Flags().StringVar(&f.slug, "slug", "", "定义 slug")
	cmd.Flags().StringVarP(&f.out, "out", "o", "", "PDF 输出路径（默认位于 output_dir）")
	cmd.Flags().StringVar(&f.debug, "debug", "", "布局调试 JSON 输出路径")
	cmd.Flags().StringArrayVar(&f.extra, "extra", nil, "额外模板变量 key=value，可重复")
	_ = cmd.MarkFlagRequired("entity")
}

func (f *renderFlags) selector() definition.Selector {
	return definition.Selector{EntityKind: f.entity, Variant: f.variant, Slug: f.slug}
}

func (f *renderFlags) output(name string) string {
	if f.out != "" {
		return f.out
	}
	return filepath.Join(cfg.OutputDir, name+".pdf")
}

func newRenderModuleCmd() *cobra.Command {
	var (
		flags    renderFlags
		dataPath string
		id       string
	)
	cmd := &cobra.Command{
		Use:   "module",
		Short: "用单条记录渲染模块",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			eng, src, err := newEngine()
			if err != nil {
				return err
			}
			instance, err := loadInstance(ctx, src, flags.entity, dataPath, id)
			if err != nil {
				return err
			}
			doc, err := eng.Module(ctx, instance, flags.selector(), keyValues(flags.extra))
			if err != nil {
				return fmt.Errorf("生成 PDF 失败: %w", err)
			}
			return writeDocument(cmd, doc, flags.output(firstNonEmpty(flags.slug, flags.entity)), flags.debug)
		},
	}
	flags.register(cmd)
	cmd.Flags().StringVar(&dataPath, "data", "", "记录数据文件（YAML 或 JSON）")
	cmd.Flags().StringVar(&id, "id", "", "从数据库按 id 读取记录")
	return cmd
}

func newRenderListCmd() *cobra.Command {
	var (
		flags  renderFlags
		params []string
	)
	cmd := &cobra.Command{
		Use:   "list",
		Short: "渲染多条记录的表格或树形列表",
		RunE: func(cmd *cobra.Command, args []string) error {
			eng, _, err := newEngine()
			if err != nil {
				return err
			}
			doc, err := eng.List(cmd.Context(), flags.entity, flags.selector(), stringValues(params), keyValues(flags.extra))
			if err != nil {
				return fmt.Errorf("生成 PDF 失败: %w", err)
			}
			return writeDocument(cmd, doc, flags.output(firstNonEmpty(flags.slug, flags.entity+"-list")), flags.debug)
		},
	}
	flags.register(cmd)
	cmd.Flags().StringArrayVarP(&params, "param", "p", nil,
		fmt.Sprintf("占位符参数 key=value；%s<lookup>=value 追加过滤，%s=字段 覆盖排序", query.FilterParamPrefix, query.OrderParam))
	return cmd
}

// newEngine 串联定义来源、数据来源与渲染器。
func newEngine() (*engine.Engine, query.Source, error) {
	var db *gorm.DB
	openDB := func() (*gorm.DB, error) {
		if db != nil {
			return db, nil
		}
		var err error
		db, err = store.Open(cfg.Database.Driver, cfg.Database.DSN)
		return db, err
	}

	var defs engine.Definitions
	if cfg.Definitions != "" {
		catalog, err := definition.LoadCatalog(cfg.Definitions)
		if err != nil {
			return nil, nil, err
		}
		defs = catalog
	} else {
		conn, err := openDB()
		if err != nil {
			return nil, nil, err
		}
		repo, err := store.NewRepository(conn, cfg.Database.Node, logger)
		if err != nil {
			return nil, nil, err
		}
		defs = repo
	}

	var src query.Source
	if len(cfg.Entities) > 0 {
		conn, err := openDB()
		if err != nil {
			return nil, nil, err
		}
		src = query.NewGormSource(conn, cfg.Entities)
	}

	eng, err := engine.New(engine.Options{
		Definitions: defs,
		Source:      src,
		Renderer:    canvasrenderer.NewRendererWithOptions(canvasrenderer.Options{Logger: logger}),
		Logger:      logger,
		Marker:      cfg.Render.Marker,
	})
	return eng, src, err
}

// loadInstance 从数据文件或数据库读取单条记录。
func loadInstance(ctx context.Context, src query.Source, kind, dataPath, id string) (any, error) {
	switch {
	case dataPath != "":
		raw, err := os.ReadFile(dataPath)
		if err != nil {
			return nil, fmt.Errorf("读取数据文件失败: %w", err)
		}
		var data map[string]any
		if err := yaml.Unmarshal(raw, &data); err != nil {
			return nil, fmt.Errorf("解析数据文件失败: %w", err)
		}
		return binding.Map(data), nil
	case id != "":
		if src == nil {
			return nil, errors.New("配置中没有 entities，无法按 id 读取")
		}
		set, err := src.Objects(ctx, kind)
		if err != nil {
			return nil, err
		}
		items, err := set.Where(dsl.Lookup{Key: "id", Value: id}).All(ctx)
		if err != nil {
			return nil, err
		}
		if len(items) == 0 {
			return nil, fmt.Errorf("%s %q 不存在", kind, id)
		}
		return items[0], nil
	}
	return nil, nil
}

func writeDocument(cmd *cobra.Command, doc *engine.Document, outputPath, debugPath string) error {
	if debugPath != "" {
		if err := writeDebug(doc.Layout, debugPath); err != nil {
			return err
		}
	}
	if err := os.MkdirAll(filepath.Dir(outputPath), 0o755); err != nil {
		return fmt.Errorf("创建输出目录失败: %w", err)
	}
	if err := os.WriteFile(outputPath, doc.PDF, 0o644); err != nil {
		return fmt.Errorf("写入 PDF 文件失败: %w", err)
	}
	for _, d := range doc.Diagnostics {
		fmt.Fprintf(cmd.ErrOrStderr(), "已跳过 %s\n", d)
	}
	fmt.Fprintf(cmd.OutOrStdout(), "已生成 PDF：%s\n", outputPath)
	return nil
}

func writeDebug(result *layout.Result, debugPath string) error {
	if err := layout.WriteDebugJSON(result, debugPath); err != nil {
		return fmt.Errorf("输出调试 JSON 失败: %w", err)
	}
	return nil
}

func stringValues(pairs []string) map[string]string {
	out := make(map[string]string, len(pairs))
	for _, p := range pairs {
		k, v, _ := strings.Cut(p, "=")
		if k = strings.TrimSpace(k); k != "" {
			out[k] = v
		}
	}
	return out
}

func keyValues(pairs []string) map[string]any {
	out := make(map[string]any, len(pairs))
	for k, v := range stringValues(pairs) {
		out[k] = v
	}
	return out
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
