// Package store keeps layout definitions in a relational database through gorm
// and resolves them with the same default-or-slug rule as the YAML catalog.
package store

import (
	"context"
	"errors"
	"fmt"

	"github.com/bwmarrin/snowflake"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/ByLCY/modulistica/definition"
)

// Repository reads and writes definitions.
type Repository struct {
	db   *gorm.DB
	node *snowflake.Node
	log  *zap.Logger
}

// NewRepository creates a repository; node is the snowflake node id for new rows.
func NewRepository(db *gorm.DB, node int64, log *zap.Logger) (*Repository, error) {
	if db == nil {
		return nil, errors.New("数据库连接不能为空")
	}
	n, err := snowflake.NewNode(node)
	if err != nil {
		return nil, fmt.Errorf("初始化 snowflake 节点失败: %w", err)
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &Repository{db: db, node: n, log: log}, nil
}

// Migrate creates or updates the definition tables.
func (r *Repository) Migrate(ctx context.Context) error {
	if err := r.db.WithContext(ctx).AutoMigrate(Models()...); err != nil {
		return fmt.Errorf("迁移定义表失败: %w", err)
	}
	return nil
}

// FindModule resolves a module by slug or default and prepares it.
func (r *Repository) FindModule(ctx context.Context, sel definition.Selector) (*definition.Module, error) {
	var rec ModuleRecord
	err := selectQuery(r.db.WithContext(ctx), sel).
		Preload("Format").
		Preload("Fields", func(db *gorm.DB) *gorm.DB { return db.Order("position, id") }).
		First(&rec).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, sel.NotFound("module")
		}
		return nil, fmt.Errorf("查询模块失败: %w", err)
	}
	if !rec.Format.Active {
		return nil, fmt.Errorf("module %q: 页面格式 %q 未启用", rec.Slug, rec.Format.Name)
	}
	m := rec.model()
	if err := m.Prepare(); err != nil {
		return nil, err
	}
	return m, nil
}

// FindList resolves a list by slug or default and prepares it.
func (r *Repository) FindList(ctx context.Context, sel definition.Selector) (*definition.List, error) {
	var rec ListRecord
	err := selectQuery(r.db.WithContext(ctx), sel).
		Preload("Format").
		Preload("Columns", func(db *gorm.DB) *gorm.DB { return db.Order("position, id") }).
		First(&rec).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, sel.NotFound("list")
		}
		return nil, fmt.Errorf("查询列表失败: %w", err)
	}
	if !rec.Format.Active {
		return nil, fmt.Errorf("list %q: 页面格式 %q 未启用", rec.Slug, rec.Format.Name)
	}
	l := rec.model()
	if err := l.Prepare(); err != nil {
		return nil, err
	}
	return l, nil
}

func selectQuery(db *gorm.DB, sel definition.Selector) *gorm.DB {
	if sel.EntityKind != "" {
		db = db.Where("entity_kind = ?", sel.EntityKind)
	}
	if sel.Slug != "" {
		return db.Where("slug = ?", sel.Slug).Order("id")
	}
	return db.Where("is_default = ? AND variant = ?", true, sel.Variant).Order("id")
}

// Import writes a prepared catalog in one transaction. Formats are matched by
// name, modules and lists by entity kind and slug; matches are replaced. An
// imported default clears the flag on other definitions of the same kind and variant.
func (r *Repository) Import(ctx context.Context, c *definition.Catalog) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		formatIDs := make(map[string]snowflake.ID, len(c.Formats))
		for _, f := range c.Formats {
			id, err := r.upsertFormat(tx, f)
			if err != nil {
				return err
			}
			formatIDs[f.Name] = id
		}
		formatID := func(f definition.PageFormat) (snowflake.ID, error) {
			if id, ok := formatIDs[f.Name]; ok {
				return id, nil
			}
			id, err := r.upsertFormat(tx, f)
			if err == nil {
				formatIDs[f.Name] = id
			}
			return id, err
		}

		for _, m := range c.Modules {
			fid, err := formatID(m.Format)
			if err != nil {
				return err
			}
			rec := moduleRecord(m)
			rec.ID = r.node.Generate()
			rec.FormatID = fid
			for i := range rec.Fields {
				rec.Fields[i].ID = r.node.Generate()
			}
			if err := replaceModule(tx, &rec); err != nil {
				return fmt.Errorf("导入模块 %q 失败: %w", m.Slug, err)
			}
		}
		for _, l := range c.Lists {
			fid, err := formatID(l.Format)
			if err != nil {
				return err
			}
			rec := listRecord(l)
			rec.ID = r.node.Generate()
			rec.FormatID = fid
			for i := range rec.Columns {
				rec.Columns[i].ID = r.node.Generate()
			}
			if err := replaceList(tx, &rec); err != nil {
				return fmt.Errorf("导入列表 %q 失败: %w", l.Slug, err)
			}
		}
		r.log.Info("定义已导入",
			zap.Int("formats", len(c.Formats)),
			zap.Int("modules", len(c.Modules)),
			zap.Int("lists", len(c.Lists)),
		)
		return nil
	})
}

func (r *Repository) upsertFormat(tx *gorm.DB, f definition.PageFormat) (snowflake.ID, error) {
	rec := formatRecord(f)
	var existing FormatRecord
	err := tx.Where("name = ?", f.Name).First(&existing).Error
	switch {
	case err == nil:
		rec.ID = existing.ID
		if err := tx.Save(&rec).Error; err != nil {
			return 0, fmt.Errorf("更新页面格式 %q 失败: %w", f.Name, err)
		}
	case errors.Is(err, gorm.ErrRecordNotFound):
		rec.ID = r.node.Generate()
		if err := tx.Create(&rec).Error; err != nil {
			return 0, fmt.Errorf("创建页面格式 %q 失败: %w", f.Name, err)
		}
	default:
		return 0, err
	}
	return rec.ID, nil
}

func replaceModule(tx *gorm.DB, rec *ModuleRecord) error {
	var old []ModuleRecord
	if err := tx.Where("entity_kind = ? AND slug = ?", rec.EntityKind, rec.Slug).Find(&old).Error; err != nil {
		return err
	}
	for _, o := range old {
		if err := tx.Where("module_id = ?", o.ID).Delete(&FieldRecord{}).Error; err != nil {
			return err
		}
		if err := tx.Where("id = ?", o.ID).Delete(&ModuleRecord{}).Error; err != nil {
			return err
		}
	}
	if rec.IsDefault {
		err := tx.Model(&ModuleRecord{}).
			Where("entity_kind = ? AND variant = ?", rec.EntityKind, rec.Variant).
			Update("is_default", false).Error
		if err != nil {
			return err
		}
	}
	return tx.Omit("Format").Create(rec).Error
}

func replaceList(tx *gorm.DB, rec *ListRecord) error {
	var old []ListRecord
	if err := tx.Where("entity_kind = ? AND slug = ?", rec.EntityKind, rec.Slug).Find(&old).Error; err != nil {
		return err
	}
	for _, o := range old {
		if err := tx.Where("list_id = ?", o.ID).Delete(&ColumnRecord{}).Error; err != nil {
			return err
		}
		if err := tx.Where("id = ?", o.ID).Delete(&ListRecord{}).Error; err != nil {
			return err
		}
	}
	if rec.IsDefault {
		err := tx.Model(&ListRecord{}).
			Where("entity_kind = ? AND variant = ?", rec.EntityKind, rec.Variant).
			Update("is_default", false).Error
		if err != nil {
			return err
		}
	}
	return tx.Omit("Format").Create(rec).Error
}
