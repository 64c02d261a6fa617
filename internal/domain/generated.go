package domain

import "time"

// GeneratedCaption represents a caption synthesized from attribute
// annotations rather than written by a person.
type GeneratedCaption struct {
	ID         string      `gorm:"type:text;primaryKey" json:"id"`
	ImageID    string      `gorm:"type:text;not null;uniqueIndex:idx_generated_image" json:"image_id"`
	Caption    string      `gorm:"type:text;not null" json:"caption"`
	Gender     string      `gorm:"type:text" json:"gender"`
	Hair       string      `gorm:"type:text" json:"hair"`
	Emotion    string      `gorm:"type:text" json:"emotion"`
	Beard      string      `gorm:"type:text" json:"beard"`
	Attributes StringArray `gorm:"type:text" json:"attributes"`
	RunID      string      `gorm:"type:text;index" json:"run_id"`
	CreatedAt  time.Time   `json:"created_at"`
	UpdatedAt  time.Time   `json:"updated_at"`
}

// TableName returns the database table name for GeneratedCaption.
func (GeneratedCaption) TableName() string {
	return "generated_captions"
}
