package domain

import "time"

// CaptionVector represents the relationship between a caption pair and its
// vector in a specific collection. This allows the same caption to be
// embedded using different embedding models, with each vector stored in its
// own Qdrant collection.
type CaptionVector struct {
	ID             string    `gorm:"type:text;primaryKey" json:"id"`
	PairID         string    `gorm:"type:text;not null;index:idx_caption_vectors_pair" json:"pair_id"`
	Stem           string    `gorm:"type:text;not null;uniqueIndex:idx_caption_vectors_stem_collection" json:"stem"`
	Collection     string    `gorm:"type:text;not null;uniqueIndex:idx_caption_vectors_stem_collection" json:"collection"`
	EmbeddingModel string    `gorm:"type:text;not null" json:"embedding_model"`
	QdrantPointID  string    `gorm:"type:text;not null" json:"qdrant_point_id"`
	Status         string    `gorm:"type:text;default:active" json:"status"`
	CreatedAt      time.Time `json:"created_at"`
}

func (CaptionVector) TableName() string {
	return "caption_vectors"
}

// CaptionVector status constants
const (
	CaptionVectorStatusActive  = "active"
	CaptionVectorStatusDeleted = "deleted"
)
