package domain

import "time"

// VLMCaption represents a caption produced by a vision model for one image.
// The same image may carry captions from different models.
type VLMCaption struct {
	ID        string    `gorm:"type:text;primaryKey" json:"id"`
	PairID    string    `gorm:"type:text;index:idx_vlm_captions_pair" json:"pair_id"`
	MD5Hash   string    `gorm:"type:text;not null;uniqueIndex:idx_vlm_captions_md5_model" json:"md5_hash"`
	Model     string    `gorm:"type:text;not null;uniqueIndex:idx_vlm_captions_md5_model" json:"model"`
	Caption   string    `gorm:"type:text;not null" json:"caption"`
	CreatedAt time.Time `json:"created_at"`
}

// TableName returns the database table name for VLMCaption.
func (VLMCaption) TableName() string {
	return "vlm_captions"
}
