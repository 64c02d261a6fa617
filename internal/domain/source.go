package domain

import (
	"database/sql/driver"
	"encoding/json"
	"errors"
	"time"
)

// SourceType represents the type of caption source.
// Values include SourceTypeDirectory, SourceTypeVLM, and SourceTypeAttributes.
type SourceType string

const (
	SourceTypeDirectory  SourceType = "directory"
	SourceTypeVLM        SourceType = "vlm"
	SourceTypeAttributes SourceType = "attributes"
)

// SourceConfig is a custom type for storing JSON config in the database.
type SourceConfig map[string]interface{}

// Value implements the driver.Valuer interface for database serialization.
// Parameters: none.
// Returns:
//   - driver.Value: JSON-encoded string representation of the config.
//   - error: non-nil if marshaling fails.
func (c SourceConfig) Value() (driver.Value, error) {
	if c == nil {
		return "{}", nil
	}
	return json.Marshal(c)
}

// Scan implements the sql.Scanner interface for database deserialization.
// Parameters:
//   - value: raw database value to decode.
// Returns:
//   - error: non-nil if decoding fails or the type is unexpected.
func (c *SourceConfig) Scan(value interface{}) error {
	if value == nil {
		*c = SourceConfig{}
		return nil
	}
	bytes, ok := value.([]byte)
	if !ok {
		str, ok := value.(string)
		if !ok {
			return errors.New("failed to scan SourceConfig")
		}
		bytes = []byte(str)
	}
	return json.Unmarshal(bytes, c)
}

// CaptionSource represents a registered origin of caption text, such as a
// per-image text directory, a vision model, or an attribute table.
type CaptionSource struct {
	ID         string       `gorm:"type:text;primaryKey" json:"id"`
	Name       string       `gorm:"type:text;not null;uniqueIndex:idx_sources_name" json:"name"`
	Type       SourceType   `gorm:"type:text;not null" json:"type"`
	Config     SourceConfig `gorm:"type:text" json:"config"`
	LastScanAt *time.Time   `json:"last_scan_at,omitempty"`
	ItemCount  int          `gorm:"default:0" json:"item_count"`
	IsEnabled  bool         `gorm:"default:true" json:"is_enabled"`
	CreatedAt  time.Time    `json:"created_at"`
	UpdatedAt  time.Time    `json:"updated_at"`
}

// TableName returns the database table name for CaptionSource.
func (CaptionSource) TableName() string {
	return "caption_sources"
}
