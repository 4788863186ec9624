package db

import (
	"time"

	"gorm.io/datatypes"
)

// FAQ 是文章末尾常见问题的一组问答。
type FAQ struct {
	Question string `json:"question"`
	Answer   string `json:"answer"`
}

// BlogPost 定义博客文章模型，slug 的唯一性由数据库保证。
type BlogPost struct {
	ID        uint                        `gorm:"primaryKey" json:"id"`
	Title     string                      `gorm:"not null" json:"title"`
	Slug      string                      `gorm:"uniqueIndex;not null" json:"slug"`
	Excerpt   string                      `json:"excerpt"`
	Content   string                      `json:"content"`
	Author    string                      `json:"author"`
	Date      string                      `json:"date"`
	Category  string                      `json:"category"`
	Image     string                      `json:"image"`
	ReadTime  string                      `gorm:"column:read_time" json:"readTime"`
	FAQs      datatypes.JSONSlice[FAQ]    `gorm:"column:faqs" json:"faqs"`
	Keywords  datatypes.JSONSlice[string] `gorm:"column:keywords" json:"keywords"`
	CreatedAt time.Time                   `json:"createdAt"`
	UpdatedAt time.Time                   `json:"updatedAt"`
}

func (BlogPost) TableName() string {
	return "blog_posts"
}
