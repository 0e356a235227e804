package definition

import (
	"context"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Catalog is a YAML definitions file:
//
//	formats: [...]
//	modules: [...]
//	lists:   [...]
//
// Modules and lists reference formats by name.
type Catalog struct {
	Formats []PageFormat `yaml:"formats"`
	Modules []*Module    `yaml:"modules"`
	Lists   []*List      `yaml:"lists"`
}

// LoadCatalog reads and prepares a catalog file.
func LoadCatalog(path string) (*Catalog, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("读取定义文件失败: %w", err)
	}
	c, err := ParseCatalog(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return c, nil
}

// ParseCatalog decodes a catalog, links formats and prepares every definition.
func ParseCatalog(data []byte) (*Catalog, error) {
	var c Catalog
	if err := yaml.Unmarshal(data, &c); err != nil {
		return nil, fmt.Errorf("解析定义文件失败: %w", err)
	}
	if err := c.Prepare(); err != nil {
		return nil, err
	}
	return &c, nil
}

// Prepare links format names and prepares modules and lists.
func (c *Catalog) Prepare() error {
	formats := make(map[string]PageFormat, len(c.Formats))
	for _, f := range c.Formats {
		if f.Name == "" {
			return fmt.Errorf("页面格式缺少名称")
		}
		if _, dup := formats[f.Name]; dup {
			return fmt.Errorf("页面格式 %q 重复定义", f.Name)
		}
		if err := f.Validate(); err != nil {
			return err
		}
		formats[f.Name] = f
	}
	format := func(name string) (PageFormat, error) {
		f, ok := formats[name]
		if !ok {
			return PageFormat{}, &NotFoundError{What: "format", Slug: name}
		}
		if !f.Active {
			return PageFormat{}, fmt.Errorf("页面格式 %q 未启用", name)
		}
		return f, nil
	}
	for _, m := range c.Modules {
		f, err := format(m.FormatName)
		if err != nil {
			return fmt.Errorf("module %q: %w", m.Slug, err)
		}
		m.Format = f
		if err := m.Prepare(); err != nil {
			return err
		}
	}
	for _, l := range c.Lists {
		f, err := format(l.FormatName)
		if err != nil {
			return fmt.Errorf("list %q: %w", l.Slug, err)
		}
		l.Format = f
		if err := l.Prepare(); err != nil {
			return err
		}
	}
	return nil
}

// FindModule resolves a module by slug or default.
func (c *Catalog) FindModule(_ context.Context, sel Selector) (*Module, error) {
	i := Resolve(sel, c.Modules)
	if i < 0 {
		return nil, sel.NotFound("module")
	}
	return c.Modules[i], nil
}

// FindList resolves a list by slug or default.
func (c *Catalog) FindList(_ context.Context, sel Selector) (*List, error) {
	i := Resolve(sel, c.Lists)
	if i < 0 {
		return nil, sel.NotFound("list")
	}
	return c.Lists[i], nil
}
