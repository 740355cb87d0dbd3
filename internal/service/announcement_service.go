package service

import (
	"context"
	"courseconnect_backend/internal/model"
	"courseconnect_backend/internal/repository"
	"courseconnect_backend/internal/util"
	"errors"
	"io"
	"mime/multipart"
	"strings"
	"time"
)

type AnnouncementService struct {
	announcements *repository.AnnouncementRepository
	members       *repository.MembershipRepository
	users         *repository.UserRepository
	storage       BlobStore
	policy        *Policy
	events        EventPublisher
}

func NewAnnouncementService(
	announcements *repository.AnnouncementRepository,
	members *repository.MembershipRepository,
	users *repository.UserRepository,
	storage BlobStore,
	policy *Policy,
	events EventPublisher,
) *AnnouncementService {
	if events == nil {
		events = NopPublisher{}
	}
	return &AnnouncementService{
		announcements: announcements,
		members:       members,
		users:         users,
		storage:       storage,
		policy:        policy,
		events:        events,
	}
}

func (s *AnnouncementService) membership(ctx context.Context, classID string, userID uint) (*model.Membership, error) {
	m, err := s.members.Find(ctx, classID, userID)
	if errors.Is(err, util.ErrNotFound) {
		return nil, nil
	}
	return m, err
}

// Post 课堂教师发布公告，附件可选
func (s *AnnouncementService) Post(ctx context.Context, sess Session, classID, title, message string, file *multipart.FileHeader) (*model.Announcement, error) {
	m, err := s.membership(ctx, classID, sess.UserID)
	if err != nil {
		return nil, err
	}
	if err := s.policy.CanAnnounce(sess, m); err != nil {
		return nil, err
	}
	title = strings.TrimSpace(title)
	if title == "" {
		return nil, util.Invalid("title is required")
	}

	author, err := s.users.FindByID(ctx, sess.UserID)
	if err != nil {
		return nil, err
	}

	a := &model.Announcement{
		ClassID:  classID,
		AuthorID: sess.UserID,
		Title:    title,
		Message:  strings.TrimSpace(message),
		PostedBy: model.DisplayName(author.Name, author.Email),
	}

	if file != nil {
		url, err := s.uploadAttachment(ctx, classID, file)
		if err != nil {
			return nil, err
		}
		a.FileURL = url
	}

	if err := s.announcements.Create(ctx, a); err != nil {
		return nil, err
	}

	s.events.Publish(ctx, model.Event{
		Type:    model.EventAnnouncementPosted,
		ClassID: classID,
		ItemID:  a.ID,
		UserID:  sess.UserID,
		Data:    map[string]interface{}{"title": a.Title},
		At:      time.Now(),
	})
	return a, nil
}

func (s *AnnouncementService) uploadAttachment(ctx context.Context, classID string, file *multipart.FileHeader) (string, error) {
	src, err := file.Open()
	if err != nil {
		return "", err
	}
	defer src.Close()

	mimeType, err := util.ValidateMimeType(src, util.AnnouncementMimeTypes)
	if err != nil {
		return "", err
	}
	if _, err := src.Seek(0, io.SeekStart); err != nil {
		return "", err
	}
	return s.storage.Upload(ctx, ObjectName("announcements/"+classID, file.Filename), src, file.Size, mimeType)
}

func (s *AnnouncementService) List(ctx context.Context, sess Session, classID string) ([]model.Announcement, error) {
	m, err := s.membership(ctx, classID, sess.UserID)
	if err != nil {
		return nil, err
	}
	if err := s.policy.CanView(sess, m); err != nil {
		return nil, err
	}
	return s.announcements.ListByClass(ctx, classID)
}
