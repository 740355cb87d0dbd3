package model

import "time"

type EventType string

const (
	EventVoteToggled        EventType = "vote.toggled"
	EventAnswerAccepted     EventType = "answer.accepted"
	EventQuestionPosted     EventType = "question.posted"
	EventAnswerPosted       EventType = "answer.posted"
	EventReplyPosted        EventType = "reply.posted"
	EventMaterialPosted     EventType = "material.posted"
	EventAnnouncementPosted EventType = "announcement.posted"
	EventMemberJoined       EventType = "member.joined"
	EventPointsChanged      EventType = "points.changed"
)

// Event 课堂变更事件，经 Redis 频道推送到 WebSocket 客户端
type Event struct {
	Type     EventType              `json:"type"`
	ClassID  string                 `json:"classId"`
	ItemKind ItemKind               `json:"itemKind,omitempty"`
	ItemID   string                 `json:"itemId,omitempty"`
	UserID   uint                   `json:"userId,omitempty"`
	Data     map[string]interface{} `json:"data,omitempty"`
	At       time.Time              `json:"at"`
}
