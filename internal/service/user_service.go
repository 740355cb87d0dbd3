package service

import (
	"context"
	"courseconnect_backend/internal/model"
	"courseconnect_backend/internal/repository"
	"courseconnect_backend/internal/util"
	"fmt"
	"io"
	"mime/multipart"
	"strings"
)

const maxNameLength = 100

// UserService 处理用户资料
type UserService struct {
	UserRepo *repository.UserRepository
	Storage  BlobStore
}

func NewUserService(userRepo *repository.UserRepository, storage BlobStore) *UserService {
	return &UserService{
		UserRepo: userRepo,
		Storage:  storage,
	}
}

func (s *UserService) UpdateProfile(ctx context.Context, sess Session, name string) (*model.User, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, util.Invalid("name is required")
	}
	if len(name) > maxNameLength {
		return nil, util.Invalid(fmt.Sprintf("name must be at most %d characters", maxNameLength))
	}
	if err := s.UserRepo.UpdateProfile(ctx, sess.UserID, map[string]interface{}{"name": name}); err != nil {
		return nil, err
	}
	return s.UserRepo.FindByID(ctx, sess.UserID)
}

// UploadAvatar 仅接受图片
func (s *UserService) UploadAvatar(ctx context.Context, sess Session, file *multipart.FileHeader) (*model.User, error) {
	if file == nil {
		return nil, util.Invalid("file is required")
	}
	src, err := file.Open()
	if err != nil {
		return nil, err
	}
	defer src.Close()

	mimeType, err := util.ValidateMimeType(src, util.AvatarMimeTypes)
	if err != nil {
		return nil, err
	}
	if _, err := src.Seek(0, io.SeekStart); err != nil {
		return nil, err
	}

	url, err := s.Storage.Upload(ctx, ObjectName(fmt.Sprintf("avatars/%d", sess.UserID), file.Filename), src, file.Size, mimeType)
	if err != nil {
		return nil, err
	}
	if err := s.UserRepo.UpdateProfile(ctx, sess.UserID, map[string]interface{}{"photo_url": url}); err != nil {
		return nil, err
	}
	return s.UserRepo.FindByID(ctx, sess.UserID)
}
