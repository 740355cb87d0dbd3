package model

import (
	"regexp"
	"strings"
)

type UserRole string

const (
	Student UserRole = "student"
	Faculty UserRole = "faculty"
)

func (r UserRole) Valid() bool {
	return r == Student || r == Faculty
}

// swagger:model User
type User struct {
	BaseModel
	Name          string   `gorm:"size:100" json:"name"`
	Email         string   `gorm:"size:100;uniqueIndex;not null" json:"email"`
	Password      string   `gorm:"size:100;not null" json:"-"`
	Role          UserRole `gorm:"size:20;default:'student'" json:"role"`
	TotalPoints   int      `gorm:"default:0;not null" json:"totalPoints"` // 全局积分，仅由积分引擎修改
	EmailVerified bool     `gorm:"default:false" json:"emailVerified"`
	VerifyToken   string   `gorm:"size:64;index" json:"-"`
	PhotoURL      string   `gorm:"size:255" json:"photoURL"`
}

func (User) TableName() string {
	return "users"
}

var leadingNumbering = regexp.MustCompile(`^\s*\d+[.)]\s*`)

// DisplayName 优先使用姓名，否则使用邮箱；去掉形如 "1. " 的前导编号后，仍含 @ 时只保留本地部分
func DisplayName(name, email string) string {
	display := strings.TrimSpace(name)
	if display == "" {
		display = email
	}
	display = leadingNumbering.ReplaceAllString(display, "")
	if i := strings.Index(display, "@"); i >= 0 {
		display = display[:i]
	}
	return display
}
