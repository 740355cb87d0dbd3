package model

import "time"

// ClassRoom 课堂，由教师创建，学生凭邀请码加入
type ClassRoom struct {
	UUIDBase
	Title    string       `gorm:"size:255;not null" json:"title"`
	JoinCode string       `gorm:"size:16;uniqueIndex;not null" json:"joinCode"`
	OwnerID  uint         `gorm:"index;type:bigint unsigned" json:"ownerId"`
	Owner    User         `gorm:"foreignKey:OwnerID" json:"owner"`
	Members  []Membership `gorm:"foreignKey:ClassID" json:"-"`
}

func (ClassRoom) TableName() string {
	return "classes"
}

// Membership 课堂成员关系，Points 为课堂内积分，与 User.TotalPoints 相互独立
type Membership struct {
	ID       uint      `gorm:"primaryKey;autoIncrement" json:"id"`
	ClassID  string    `gorm:"uniqueIndex:idx_class_user;type:varchar(36);not null" json:"classId"`
	UserID   uint      `gorm:"uniqueIndex:idx_class_user;index;type:bigint unsigned;not null" json:"userId"`
	User     User      `gorm:"foreignKey:UserID" json:"user"`
	Role     UserRole  `gorm:"size:20;not null" json:"role"`
	Points   int       `gorm:"default:0;not null" json:"points"`
	JoinedAt time.Time `json:"joinedAt"`
}

func (Membership) TableName() string {
	return "memberships"
}

// ClassAnalytics 课堂统计
type ClassAnalytics struct {
	ClassID       string `json:"classId"`
	Members       int64  `json:"members"`
	Questions     int64  `json:"questions"`
	Answers       int64  `json:"answers"`
	Materials     int64  `json:"materials"`
	Announcements int64  `json:"announcements"`
	TotalPoints   int64  `json:"totalPoints"`
}
