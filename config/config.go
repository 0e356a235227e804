// Package config loads the YAML configuration of the modulistica CLI.
package config

import (
	"fmt"
	"os"
	"path/filepath"

	"go.uber.org/zap"
	"gopkg.in/yaml.v3"

	"github.com/ByLCY/modulistica/query"
)

// EnvDSN overrides Database.DSN when set.
const EnvDSN = "MODULISTICA_DSN"

// Config is the root configuration.
type Config struct {
	Database    DatabaseConfig         `yaml:"database"`
	Definitions string                 `yaml:"definitions"` // YAML 定义文件；为空时从数据库读取
	Entities    map[string]query.Table `yaml:"entities"`
	Fonts       map[string]string      `yaml:"fonts"` // 字体名 → TTF 路径
	Log         LogConfig              `yaml:"log"`
	Render      RenderConfig           `yaml:"render"`
	OutputDir   string                 `yaml:"output_dir"`
}

// DatabaseConfig selects the gorm driver shared by definitions and entity data.
type DatabaseConfig struct {
	Driver string `yaml:"driver"`
	DSN    string `yaml:"dsn"`
	Node   int64  `yaml:"node"` // snowflake 节点号
}

// LogConfig configures zap.
type LogConfig struct {
	Level string `yaml:"level"`
}

// RenderConfig tunes layout.
type RenderConfig struct {
	Marker string `yaml:"marker"` // 截断标记
}

// DefaultConfig returns the built-in defaults.
func DefaultConfig() *Config {
	return &Config{
		Database: DatabaseConfig{
			Driver: "sqlite",
			DSN:    "modulistica.db",
			Node:   1,
		},
		Entities:  map[string]query.Table{},
		Fonts:     map[string]string{},
		Log:       LogConfig{Level: "info"},
		Render:    RenderConfig{Marker: "…"},
		OutputDir: "output",
	}
}

// Load reads path on top of the defaults. A missing file yields the defaults.
// Relative paths inside the file are resolved against its directory.
func Load(path string) (*Config, error) {
	cfg := DefaultConfig()

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			cfg.applyEnvOverrides()
			return cfg, nil
		}
		return nil, fmt.Errorf("读取配置失败: %w", err)
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("解析配置失败: %w", err)
	}
	cfg.resolvePaths(filepath.Dir(path))
	cfg.applyEnvOverrides()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) applyEnvOverrides() {
	if dsn := os.Getenv(EnvDSN); dsn != "" {
		c.Database.DSN = dsn
	}
}

func (c *Config) resolvePaths(base string) {
	abs := func(p string) string {
		if p == "" || filepath.IsAbs(p) {
			return p
		}
		return filepath.Join(base, p)
	}
	c.Definitions = abs(c.Definitions)
	c.OutputDir = abs(c.OutputDir)
	for name, p := range c.Fonts {
		c.Fonts[name] = abs(p)
	}
}

// Validate checks driver and log level.
func (c *Config) Validate() error {
	switch c.Database.Driver {
	case "sqlite":
	default:
		return fmt.Errorf("不支持的数据库驱动 %q", c.Database.Driver)
	}
	if _, err := c.ZapLevel(); err != nil {
		return err
	}
	for kind, t := range c.Entities {
		if t.Name == "" {
			return fmt.Errorf("实体类型 %q 缺少 table", kind)
		}
	}
	return nil
}

// ZapLevel parses Log.Level.
func (c *Config) ZapLevel() (zap.AtomicLevel, error) {
	lvl, err := zap.ParseAtomicLevel(c.Log.Level)
	if err != nil {
		return zap.AtomicLevel{}, fmt.Errorf("无效的日志级别 %q: %w", c.Log.Level, err)
	}
	return lvl, nil
}
