package model

// Material 课程资料，被点赞时积分计入作者的全局积分
type Material struct {
	UUIDBase
	ClassID         string  `gorm:"index;type:varchar(36);not null" json:"classId"`
	AuthorID        uint    `gorm:"index;type:bigint unsigned" json:"authorId"`
	Author          User    `gorm:"foreignKey:AuthorID" json:"author"`
	Title           string  `gorm:"size:255;not null" json:"title"`
	Description     string  `gorm:"type:text" json:"description"`
	FileURL         string  `gorm:"size:512" json:"fileURL"`
	ContentType     string  `gorm:"size:100" json:"contentType"`
	Tags            string  `gorm:"size:255" json:"-"`
	DurationSeconds float64 `gorm:"default:0" json:"durationSeconds,omitempty"`
	ThumbnailURL    string  `gorm:"size:512" json:"thumbnailURL,omitempty"`
	ViewCount       int     `gorm:"default:0;not null" json:"viewCount"`
	Upvotes         int     `gorm:"default:0;not null" json:"upvotes"`
}

func (Material) TableName() string {
	return "materials"
}

func (m *Material) TagList() []string {
	return splitTags(m.Tags)
}
