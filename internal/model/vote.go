package model

import "time"

// ItemKind 可被点赞的内容类型
type ItemKind string

const (
	KindAnswer   ItemKind = "answer"
	KindQuestion ItemKind = "question"
	KindReply    ItemKind = "reply"
	KindMaterial ItemKind = "material"
)

// ParseItemKind 同时接受单数与路由中的复数形式
func ParseItemKind(s string) (ItemKind, bool) {
	switch s {
	case "answer", "answers":
		return KindAnswer, true
	case "question", "questions":
		return KindQuestion, true
	case "reply", "replies":
		return KindReply, true
	case "material", "materials":
		return KindMaterial, true
	}
	return "", false
}

// Table 返回该类型内容所在的表
func (k ItemKind) Table() string {
	switch k {
	case KindAnswer:
		return "answers"
	case KindQuestion:
		return "questions"
	case KindReply:
		return "replies"
	case KindMaterial:
		return "materials"
	}
	return ""
}

// Vote 点赞记录，(item_kind, item_id, user_id) 唯一
type Vote struct {
	ID        uint      `gorm:"primaryKey;autoIncrement" json:"id"`
	ItemKind  ItemKind  `gorm:"uniqueIndex:idx_vote_item_user;size:20;not null" json:"itemKind"`
	ItemID    string    `gorm:"uniqueIndex:idx_vote_item_user;type:varchar(36);not null" json:"itemId"`
	UserID    uint      `gorm:"uniqueIndex:idx_vote_item_user;type:bigint unsigned;not null" json:"userId"`
	CreatedAt time.Time `json:"createdAt"`
}

func (Vote) TableName() string {
	return "votes"
}

// VoteTarget 点赞所需的内容快照
type VoteTarget struct {
	Kind     ItemKind
	ID       string
	AuthorID uint
	ClassID  string
	Upvotes  int
}
