package util

import (
	"errors"
	"fmt"
)

var (
	ErrUnauthorized        = errors.New("unauthorized")
	ErrPermissionDenied    = errors.New("permission denied")
	ErrNotFound            = errors.New("not found")
	ErrInvalidInput        = errors.New("invalid input")
	ErrSelfVote            = errors.New("you cannot upvote your own content")
	ErrRoleMismatch        = errors.New("selected role does not match account role")
	ErrAlreadyMember       = errors.New("already a member of this class")
	ErrJoinCodeTaken       = errors.New("class code already in use")
	ErrUploadFailed        = errors.New("upload failed")
	ErrTransientStore      = errors.New("store temporarily unavailable")
	ErrEmailRegistered     = errors.New("email already registered")
	ErrEmailDomain         = errors.New("email domain not allowed")
	ErrEmailNotVerified    = errors.New("email not verified")
	ErrInvalidCredentials  = errors.New("invalid credentials")
	ErrInvalidVerifyToken  = errors.New("invalid or used verification token")
	ErrUnsupportedFileType = errors.New("unsupported file type")
)

// ErrDuplicateMembership 与 ErrAlreadyMember 同义
var ErrDuplicateMembership = ErrAlreadyMember

// Transient 将底层存储错误包装为 ErrTransientStore，保留原始错误链
func Transient(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, ErrTransientStore) {
		return err
	}
	return fmt.Errorf("%w: %w", ErrTransientStore, err)
}

// Permission 返回带原因的权限错误
func Permission(reason string) error {
	return fmt.Errorf("%w: %s", ErrPermissionDenied, reason)
}

// NotFoundf 返回带实体名的 not found 错误
func NotFoundf(format string, args ...interface{}) error {
	return fmt.Errorf("%w: %s", ErrNotFound, fmt.Sprintf(format, args...))
}

// Invalid 返回参数校验错误
func Invalid(reason string) error {
	return fmt.Errorf("%w: %s", ErrInvalidInput, reason)
}
