package model

type Announcement struct {
	UUIDBase
	ClassID  string `gorm:"index;type:varchar(36);not null" json:"classId"`
	AuthorID uint   `gorm:"index;type:bigint unsigned" json:"authorId"`
	Title    string `gorm:"size:255;not null" json:"title"`
	Message  string `gorm:"type:text" json:"message"`
	FileURL  string `gorm:"size:512" json:"fileURL,omitempty"`
	PostedBy string `gorm:"size:100" json:"postedBy"`
}

func (Announcement) TableName() string {
	return "announcements"
}
