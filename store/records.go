package store

import (
	"github.com/bwmarrin/snowflake"
	"gorm.io/datatypes"

	"github.com/ByLCY/modulistica/definition"
)

// FormatRecord 对应 page_formats 表。
type FormatRecord struct {
	ID             snowflake.ID `gorm:"primaryKey"`
	Name           string       `gorm:"type:text;not null;uniqueIndex"`
	WidthMM        float64      `gorm:"not null"`
	HeightMM       float64      `gorm:"not null"`
	Orientation    string       `gorm:"type:text;not null;default:'portrait'"`
	MarginTopMM    float64      `gorm:"not null;default:0"`
	MarginRightMM  float64      `gorm:"not null;default:0"`
	MarginBottomMM float64      `gorm:"not null;default:0"`
	MarginLeftMM   float64      `gorm:"not null;default:0"`
	FontName       string       `gorm:"type:text"`
	FontSize       float64
	Active         bool `gorm:"not null"`
}

// TableName sets the database table name.
func (FormatRecord) TableName() string { return "page_formats" }

// ModuleRecord 对应 modules 表。
type ModuleRecord struct {
	ID         snowflake.ID `gorm:"primaryKey"`
	Slug       string       `gorm:"type:text;not null;index:idx_module_slug"`
	Name       string       `gorm:"type:text"`
	EntityKind string       `gorm:"type:text;not null;index:idx_module_slug"`
	Variant    string       `gorm:"type:text;not null;default:''"`
	IsDefault  bool         `gorm:"not null;default:false"`
	FormatID   snowflake.ID `gorm:"not null"`
	Format     FormatRecord `gorm:"foreignKey:FormatID"`
	FontName   string       `gorm:"type:text"`
	FontSize   float64
	Fields     []FieldRecord `gorm:"foreignKey:ModuleID;constraint:OnDelete:CASCADE"`
}

// TableName sets the database table name.
func (ModuleRecord) TableName() string { return "modules" }

// FieldRecord 对应 module_fields 表。
type FieldRecord struct {
	ID       snowflake.ID `gorm:"primaryKey"`
	ModuleID snowflake.ID `gorm:"not null;index"`
	Name     string       `gorm:"type:text"`
	Position int          `gorm:"not null;default:0"`
	Kind     string       `gorm:"type:text;not null"`
	XMM      float64
	YMM      float64
	WidthMM  float64
	Text     string `gorm:"type:text"`
	Path     string `gorm:"type:text"`
	Template string `gorm:"type:text"`
	Visible  bool   `gorm:"not null"`
	Style    datatypes.JSONType[definition.Style]
	Barcode  datatypes.JSONType[definition.BarcodeParams]
	QR       datatypes.JSONType[definition.QRParams]
	Shape    datatypes.JSONType[definition.ShapeParams]
}

// TableName sets the database table name.
func (FieldRecord) TableName() string { return "module_fields" }

// block 是标题、页眉、页脚的存储形式。
type block struct {
	Text     string
	Template string
	XMM      float64
	YMM      float64
	Style    definition.Style
}

// ListRecord 对应 lists 表。
type ListRecord struct {
	ID               snowflake.ID `gorm:"primaryKey"`
	Slug             string       `gorm:"type:text;not null;index:idx_list_slug"`
	Name             string       `gorm:"type:text"`
	EntityKind       string       `gorm:"type:text;not null;index:idx_list_slug"`
	Variant          string       `gorm:"type:text;not null;default:''"`
	IsDefault        bool         `gorm:"not null;default:false"`
	FormatID         snowflake.ID `gorm:"not null"`
	Format           FormatRecord `gorm:"foreignKey:FormatID"`
	Layout           string       `gorm:"type:text;not null;default:'table'"`
	Title            datatypes.JSONType[block]
	Header           datatypes.JSONType[block]
	Footer           datatypes.JSONType[block]
	Filter           datatypes.JSONMap
	OrderBy          string `gorm:"type:text"`
	TableStyle       datatypes.JSONType[definition.TableStyle]
	ParentField      string `gorm:"type:text"`
	ChildrenAccessor string `gorm:"type:text"`
	RootFilter       datatypes.JSONMap
	RootIDs          datatypes.JSONSlice[any]
	TreeOrderBy      string `gorm:"type:text"`
	MaxDepth         int    `gorm:"not null;default:0"`
	IndentMM         float64
	Columns          []ColumnRecord `gorm:"foreignKey:ListID;constraint:OnDelete:CASCADE"`
}

// TableName sets the database table name.
func (ListRecord) TableName() string { return "lists" }

// ColumnRecord 对应 list_columns 表。
type ColumnRecord struct {
	ID         snowflake.ID `gorm:"primaryKey"`
	ListID     snowflake.ID `gorm:"not null;index"`
	Position   int          `gorm:"not null;default:0"`
	Kind       string       `gorm:"type:text;not null"`
	Label      string       `gorm:"type:text"`
	Path       string       `gorm:"type:text"`
	Template   string       `gorm:"type:text"`
	WidthMM    float64
	TreeIndent bool `gorm:"not null;default:false"`
	Style      datatypes.JSONType[definition.Style]
	Barcode    datatypes.JSONType[definition.BarcodeParams]
	QR         datatypes.JSONType[definition.QRParams]
}

// TableName sets the database table name.
func (ColumnRecord) TableName() string { return "list_columns" }

// Models lists every record type for AutoMigrate.
func Models() []any {
	return []any{&FormatRecord{}, &ModuleRecord{}, &FieldRecord{}, &ListRecord{}, &ColumnRecord{}}
}
