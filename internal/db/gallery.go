package db

import (
	"time"

	"gorm.io/datatypes"
)

// GalleryPhoto 定义图库照片模型。Src 始终由对象存储根据 Filename 推导。
type GalleryPhoto struct {
	ID        uint              `gorm:"primaryKey" json:"id"`
	Filename  string            `gorm:"uniqueIndex;not null" json:"filename"`
	Src       string            `gorm:"not null" json:"src"`
	Alt       string            `json:"alt"`
	Category  string            `json:"category"`
	Visible   bool              `gorm:"default:true" json:"visible"`
	SortOrder int               `gorm:"default:0" json:"sort_order"`
	Metadata  datatypes.JSONMap `json:"metadata"`
	CreatedAt time.Time         `json:"created_at"`
	UpdatedAt time.Time         `json:"updated_at"`
}

func (GalleryPhoto) TableName() string {
	return "gallery_photos"
}
