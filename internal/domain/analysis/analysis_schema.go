package analysis

import (
	"encoding/json"
	"fmt"
	"time"

	"gorm.io/datatypes"
)

// Schema is one immutable registered version of an analysis type.
type Schema struct {
	ID        uint           `gorm:"column:id;primaryKey;autoIncrement" json:"-"`
	Name      string         `gorm:"column:name;not null;index:idx_analysis_schema_name_version,unique,priority:1" json:"name"`
	Version   int            `gorm:"column:version;not null;index:idx_analysis_schema_name_version,unique,priority:2" json:"version"`
	Schema    datatypes.JSON `gorm:"column:schema;type:jsonb;not null" json:"schema"`
	CreatedAt time.Time      `gorm:"not null" json:"createdAt"`
}

func (Schema) TableName() string { return "analysis_schema" }

// TypeID formats the "{name}:{version}" identity.
func TypeID(name string, version int) string {
	return fmt.Sprintf("%s:%d", name, version)
}

// Type is the API view of a registered schema.
type Type struct {
	Name      string          `json:"name"`
	Version   int             `json:"version"`
	CreatedAt *time.Time      `json:"createdAt,omitempty"`
	Schema    json.RawMessage `json:"schema,omitempty"`
}

func (t Type) ID() string { return TypeID(t.Name, t.Version) }

// TypePage is one page of a registry listing.
type TypePage struct {
	Limit      int     `json:"limit"`
	Offset     int     `json:"offset"`
	Count      int64   `json:"count"`
	ResultSize int     `json:"resultSize"`
	Results    []*Type `json:"resultSet"`
}
