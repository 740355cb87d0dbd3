package service

import (
	"context"
	"courseconnect_backend/internal/model"
	"courseconnect_backend/internal/repository"
	"courseconnect_backend/internal/util"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
)

const (
	generatedCodeLength = 6
	maxJoinCodeLength   = 16
	codeAttempts        = 5
)

type ClassService struct {
	classes *repository.ClassRepository
	members *repository.MembershipRepository
	policy  *Policy
	events  EventPublisher
}

func NewClassService(classes *repository.ClassRepository, members *repository.MembershipRepository,
	policy *Policy, events EventPublisher) *ClassService {
	if events == nil {
		events = NopPublisher{}
	}
	return &ClassService{classes: classes, members: members, policy: policy, events: events}
}

// NormalizeJoinCode 去除空白并转为大写
func NormalizeJoinCode(code string) string {
	return strings.ToUpper(strings.TrimSpace(code))
}

func generateJoinCode() string {
	raw := strings.ReplaceAll(uuid.New().String(), "-", "")
	return strings.ToUpper(raw[:generatedCodeLength])
}

// CreateClass 教师创建课堂；code 为空时自动生成
func (s *ClassService) CreateClass(ctx context.Context, sess Session, title, code string) (*model.ClassRoom, error) {
	if err := s.policy.CanCreateClass(sess); err != nil {
		return nil, err
	}
	title = strings.TrimSpace(title)
	if title == "" {
		return nil, util.Invalid("title is required")
	}

	code = NormalizeJoinCode(code)
	if len(code) > maxJoinCodeLength {
		return nil, util.Invalid("class code is too long")
	}

	if code != "" {
		taken, err := s.classes.JoinCodeExists(ctx, code)
		if err != nil {
			return nil, err
		}
		if taken {
			return nil, util.ErrJoinCodeTaken
		}
	} else {
		for i := 0; i < codeAttempts; i++ {
			candidate := generateJoinCode()
			taken, err := s.classes.JoinCodeExists(ctx, candidate)
			if err != nil {
				return nil, err
			}
			if !taken {
				code = candidate
				break
			}
		}
		if code == "" {
			return nil, util.ErrJoinCodeTaken
		}
	}

	class := &model.ClassRoom{Title: title, JoinCode: code, OwnerID: sess.UserID}
	if _, err := s.classes.Create(ctx, class); err != nil {
		return nil, err
	}
	return class, nil
}

// JoinClass 凭邀请码加入；已是成员时返回现有记录与 ErrAlreadyMember
func (s *ClassService) JoinClass(ctx context.Context, sess Session, code string) (*model.ClassRoom, *model.Membership, error) {
	if !sess.Authenticated() {
		return nil, nil, util.ErrUnauthorized
	}
	code = NormalizeJoinCode(code)
	if code == "" {
		return nil, nil, util.Invalid("class code is required")
	}

	class, err := s.classes.FindByJoinCode(ctx, code)
	if err != nil {
		return nil, nil, err
	}

	m := &model.Membership{
		ClassID:  class.ID,
		UserID:   sess.UserID,
		Role:     model.Student,
		JoinedAt: time.Now(),
	}
	created, err := s.members.Add(ctx, m)
	if err != nil {
		return nil, nil, err
	}
	if !created {
		existing, err := s.members.Find(ctx, class.ID, sess.UserID)
		if err != nil {
			return nil, nil, err
		}
		return class, existing, util.ErrAlreadyMember
	}

	s.events.Publish(ctx, model.Event{
		Type:    model.EventMemberJoined,
		ClassID: class.ID,
		UserID:  sess.UserID,
		At:      time.Now(),
	})
	return class, m, nil
}

func (s *ClassService) ListMyClasses(ctx context.Context, sess Session) ([]model.ClassRoom, error) {
	return s.classes.ListForUser(ctx, sess.UserID)
}

func (s *ClassService) requireMember(ctx context.Context, sess Session, classID string) (*model.Membership, error) {
	m, err := s.members.Find(ctx, classID, sess.UserID)
	if errors.Is(err, util.ErrNotFound) {
		m, err = nil, nil
	}
	if err != nil {
		return nil, err
	}
	if err := s.policy.CanView(sess, m); err != nil {
		return nil, err
	}
	return m, nil
}

func (s *ClassService) GetClass(ctx context.Context, sess Session, classID string) (*model.ClassRoom, error) {
	class, err := s.classes.FindByID(ctx, classID)
	if err != nil {
		return nil, err
	}
	if _, err := s.requireMember(ctx, sess, classID); err != nil {
		return nil, err
	}
	return class, nil
}

func (s *ClassService) ListMembers(ctx context.Context, sess Session, classID string) ([]model.Membership, error) {
	if _, err := s.classes.FindByID(ctx, classID); err != nil {
		return nil, err
	}
	if _, err := s.requireMember(ctx, sess, classID); err != nil {
		return nil, err
	}
	return s.members.ListByClass(ctx, classID)
}

// Analytics 仅课堂教师可见
func (s *ClassService) Analytics(ctx context.Context, sess Session, classID string) (*model.ClassAnalytics, error) {
	if _, err := s.classes.FindByID(ctx, classID); err != nil {
		return nil, err
	}
	m, err := s.requireMember(ctx, sess, classID)
	if err != nil {
		return nil, err
	}
	if m.Role != model.Faculty {
		return nil, util.Permission("only class faculty can view analytics")
	}
	return s.classes.Analytics(ctx, classID)
}
