package model

import (
	"strings"
	"time"
)

type Question struct {
	UUIDBase
	ClassID          string     `gorm:"index;type:varchar(36);not null" json:"classId"`
	Title            string     `gorm:"size:255;not null" json:"title"`
	Body             string     `gorm:"type:text" json:"body"`
	AuthorID         uint       `gorm:"index;type:bigint unsigned" json:"authorId"`
	Author           User       `gorm:"foreignKey:AuthorID" json:"author"`
	Tags             string     `gorm:"size:255" json:"-"`
	Upvotes          int        `gorm:"default:0;not null" json:"upvotes"`
	AcceptedAnswerID *string    `gorm:"type:varchar(36)" json:"acceptedAnswerId"`
	IsSolved         bool       `gorm:"default:false" json:"isSolved"`
	SolvedAt         *time.Time `json:"solvedAt"`
}

func (Question) TableName() string {
	return "questions"
}

// TagList 以切片形式返回标签
func (q *Question) TagList() []string {
	return splitTags(q.Tags)
}

type Answer struct {
	UUIDBase
	QuestionID   string     `gorm:"index;type:varchar(36);not null" json:"questionId"`
	AuthorID     uint       `gorm:"index;type:bigint unsigned" json:"authorId"`
	Author       User       `gorm:"foreignKey:AuthorID" json:"author"`
	Body         string     `gorm:"type:text;not null" json:"body"`
	Upvotes      int        `gorm:"default:0;not null" json:"upvotes"`
	Accepted     bool       `gorm:"default:false" json:"accepted"`
	AcceptedAt   *time.Time `json:"acceptedAt"`
	BonusGranted bool       `gorm:"default:false;not null" json:"-"`
}

func (Answer) TableName() string {
	return "answers"
}

// Reply 讨论回复，ParentID 为空表示直接回复问题
type Reply struct {
	UUIDBase
	QuestionID string  `gorm:"index;type:varchar(36);not null" json:"questionId"`
	ParentID   *string `gorm:"index;type:varchar(36)" json:"parentId"`
	AuthorID   uint    `gorm:"index;type:bigint unsigned" json:"authorId"`
	Author     User    `gorm:"foreignKey:AuthorID" json:"author"`
	Text       string  `gorm:"type:text;not null" json:"text"`
	Upvotes    int     `gorm:"default:0;not null" json:"upvotes"`
}

func (Reply) TableName() string {
	return "replies"
}

func splitTags(raw string) []string {
	if raw == "" {
		return []string{}
	}
	return strings.Split(raw, ",")
}
