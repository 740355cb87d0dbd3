package service

import (
	"courseconnect_backend/internal/config"
	"courseconnect_backend/internal/model"
	"courseconnect_backend/internal/util"
	"sync/atomic"
)

// Policy 各服务共用的授权判断。membership 为 nil 表示调用者不是该课堂成员
type Policy struct {
	qa atomic.Pointer[config.QAConfig]
}

func NewPolicy(qa config.QAConfig) *Policy {
	p := &Policy{}
	p.UpdateQA(qa)
	return p
}

// UpdateQA 热更新问答规则
func (p *Policy) UpdateQA(qa config.QAConfig) {
	p.qa.Store(&qa)
}

func (p *Policy) QA() config.QAConfig {
	return *p.qa.Load()
}

func IsMember(s Session, m *model.Membership) bool {
	return m != nil && s.Authenticated() && m.UserID == s.UserID
}

func isFacultyMember(s Session, m *model.Membership) bool {
	return IsMember(s, m) && m.Role == model.Faculty
}

// CanAccept 问题作者或课堂教师可以采纳回答
func (p *Policy) CanAccept(s Session, q *model.Question, m *model.Membership) error {
	if !s.Authenticated() {
		return util.ErrUnauthorized
	}
	if q.AuthorID == s.UserID || isFacultyMember(s, m) {
		return nil
	}
	return util.Permission("only the question author or class faculty can accept an answer")
}

func (p *Policy) CanPostQuestion(s Session, m *model.Membership) error {
	if !IsMember(s, m) {
		return util.Permission("join the class to ask questions")
	}
	if p.QA().StudentsOnlyQuestions && m.Role != model.Student {
		return util.Permission("only students can post questions")
	}
	return nil
}

func (p *Policy) CanAnswer(s Session, q *model.Question, m *model.Membership) error {
	if !IsMember(s, m) {
		return util.Permission("join the class to answer")
	}
	if p.QA().ForbidSelfAnswer && q.AuthorID == s.UserID {
		return util.Permission("you cannot answer your own question")
	}
	return nil
}

func (p *Policy) CanReply(s Session, m *model.Membership) error {
	if !IsMember(s, m) {
		return util.Permission("join the class to reply")
	}
	return nil
}

// CanVote 成员且非作者才能点赞
func (p *Policy) CanVote(s Session, target *model.VoteTarget, m *model.Membership) error {
	if target.AuthorID == s.UserID {
		return util.ErrSelfVote
	}
	if !IsMember(s, m) {
		return util.Permission("join the class to vote")
	}
	return nil
}

func (p *Policy) CanCreateClass(s Session) error {
	if !s.Authenticated() {
		return util.ErrUnauthorized
	}
	if s.Role != model.Faculty {
		return util.Permission("only faculty can create classes")
	}
	return nil
}

func (p *Policy) CanAnnounce(s Session, m *model.Membership) error {
	if !isFacultyMember(s, m) {
		return util.Permission("only class faculty can post announcements")
	}
	return nil
}

func (p *Policy) CanShareMaterial(s Session, m *model.Membership) error {
	if !IsMember(s, m) {
		return util.Permission("join the class to share materials")
	}
	return nil
}

func (p *Policy) CanView(s Session, m *model.Membership) error {
	if !IsMember(s, m) {
		return util.Permission("not a member of this class")
	}
	return nil
}
