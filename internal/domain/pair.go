package domain

import (
	"database/sql/driver"
	"encoding/json"
	"errors"
	"time"
)

// PairStatus represents the processing status of an image/caption pair.
// Values include PairStatusPending, PairStatusPrepared, PairStatusSkipped, and PairStatusFailed.
type PairStatus string

const (
	PairStatusPending  PairStatus = "pending"
	PairStatusPrepared PairStatus = "prepared"
	PairStatusSkipped  PairStatus = "skipped"
	PairStatusFailed   PairStatus = "failed"
)

// StringArray is a custom type for storing string arrays as JSON in the database.
type StringArray []string

// Value implements the driver.Valuer interface for database serialization.
// Parameters: none.
// Returns:
//   - driver.Value: JSON-encoded string representation of the slice.
//   - error: non-nil if marshaling fails.
func (a StringArray) Value() (driver.Value, error) {
	if a == nil {
		return "[]", nil
	}
	b, err := json.Marshal(a)
	if err != nil {
		return nil, err
	}
	return string(b), nil
}

// Scan implements the sql.Scanner interface for database deserialization.
// Parameters:
//   - value: raw database value to decode.
// Returns:
//   - error: non-nil if decoding fails or the type is unexpected.
func (a *StringArray) Scan(value interface{}) error {
	if value == nil {
		*a = StringArray{}
		return nil
	}
	bytes, ok := value.([]byte)
	if !ok {
		str, ok := value.(string)
		if !ok {
			return errors.New("failed to scan StringArray")
		}
		bytes = []byte(str)
	}
	return json.Unmarshal(bytes, a)
}

// CaptionPair represents one image/caption pair in the training dataset.
// Fields include identifiers, file metadata, caption text before and after
// cleaning, and processing status.
type CaptionPair struct {
	ID              string     `gorm:"type:text;primaryKey" json:"id"`
	Stem            string     `gorm:"type:text;not null;uniqueIndex:idx_pairs_stem" json:"stem"`
	ImageID         string     `gorm:"type:text;not null" json:"image_id"`
	SourcePath      string     `gorm:"type:text" json:"source_path"`
	DatasetPath     string     `gorm:"type:text" json:"dataset_path"`
	Linked          bool       `json:"linked"`
	OriginalCaption string     `gorm:"type:text" json:"original_caption"`
	CleanedCaption  string     `gorm:"type:text" json:"cleaned_caption"`
	WordCount       int        `json:"word_count"`
	Encoding        string     `gorm:"type:text" json:"encoding,omitempty"`
	Width           int        `json:"width"`
	Height          int        `json:"height"`
	Format          string     `json:"format"`
	FileSize        int64      `json:"file_size"`
	MD5Hash         string     `gorm:"index:idx_pairs_md5" json:"md5_hash"`
	Source          string     `gorm:"type:text;index:idx_pairs_source" json:"source"`
	Status          PairStatus `gorm:"type:text;index:idx_pairs_status;default:pending" json:"status"`
	RunID           string     `gorm:"type:text;index:idx_pairs_run" json:"run_id"`
	CreatedAt       time.Time  `json:"created_at"`
	UpdatedAt       time.Time  `json:"updated_at"`
}

// TableName returns the database table name for CaptionPair.
func (CaptionPair) TableName() string {
	return "caption_pairs"
}
