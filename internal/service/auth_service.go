package service

import (
	"context"
	"courseconnect_backend/internal/config"
	"courseconnect_backend/internal/model"
	"courseconnect_backend/internal/repository"
	"courseconnect_backend/internal/util"
	"courseconnect_backend/pkg/logger"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"
)

const minPasswordLength = 6

type AuthService struct {
	UserRepo *repository.UserRepository
	Cfg      *config.Config
}

func NewAuthService(userRepo *repository.UserRepository, cfg *config.Config) *AuthService {
	return &AuthService{
		UserRepo: userRepo,
		Cfg:      cfg,
	}
}

type LoginResult struct {
	Token string      `json:"token"`
	User  *model.User `json:"user"`
}

func (s *AuthService) checkDomain(email string) error {
	domain := strings.ToLower(strings.TrimPrefix(strings.TrimSpace(s.Cfg.Auth.AllowedEmailDomain), "@"))
	if domain == "" {
		return nil
	}
	if !strings.HasSuffix(strings.ToLower(strings.TrimSpace(email)), "@"+domain) {
		return fmt.Errorf("%w: use an @%s email", util.ErrEmailDomain, domain)
	}
	return nil
}

func newVerifyToken() string {
	return strings.ReplaceAll(uuid.New().String(), "-", "")
}

// Register 创建账号；验证链接只写日志，不发送邮件
func (s *AuthService) Register(ctx context.Context, name, email, password string, role model.UserRole) (*model.User, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	if email == "" || !strings.Contains(email, "@") {
		return nil, util.Invalid("a valid email is required")
	}
	if err := s.checkDomain(email); err != nil {
		return nil, err
	}
	if len(password) < minPasswordLength {
		return nil, util.Invalid(fmt.Sprintf("password must be at least %d characters", minPasswordLength))
	}
	if !role.Valid() {
		return nil, util.Invalid("role must be student or faculty")
	}

	exists, err := s.UserRepo.EmailExists(ctx, email)
	if err != nil {
		return nil, err
	}
	if exists {
		return nil, util.ErrEmailRegistered
	}

	hashed, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return nil, err
	}

	user := &model.User{
		Name:        strings.TrimSpace(name),
		Email:       email,
		Password:    string(hashed),
		Role:        role,
		VerifyToken: newVerifyToken(),
	}
	if err := s.UserRepo.Create(ctx, user); err != nil {
		return nil, err
	}

	s.logVerifyLink(user)
	return user, nil
}

func (s *AuthService) logVerifyLink(user *model.User) {
	logger.Log.Info("Email verification link issued",
		zap.Uint("user_id", user.ID),
		zap.String("email", user.Email),
		zap.String("link", s.Cfg.Auth.VerifyURLBase+"?token="+user.VerifyToken))
}

func (s *AuthService) VerifyEmail(ctx context.Context, token string) (*model.User, error) {
	token = strings.TrimSpace(token)
	if token == "" {
		return nil, util.ErrInvalidVerifyToken
	}
	user, err := s.UserRepo.MarkVerified(ctx, token)
	if errors.Is(err, util.ErrNotFound) {
		return nil, util.ErrInvalidVerifyToken
	}
	return user, err
}

// ResendVerification 为未验证账号重新签发验证链接
func (s *AuthService) ResendVerification(ctx context.Context, email string) error {
	user, err := s.UserRepo.FindByEmail(ctx, email)
	if err != nil {
		return err
	}
	if user.EmailVerified {
		return nil
	}
	token := newVerifyToken()
	if err := s.UserRepo.UpdateProfile(ctx, user.ID, map[string]interface{}{"verify_token": token}); err != nil {
		return err
	}
	user.VerifyToken = token
	s.logVerifyLink(user)
	return nil
}

// Login 依次校验邮箱域名、密码、邮箱验证状态与所选角色
func (s *AuthService) Login(ctx context.Context, email, password string, selectedRole model.UserRole) (*LoginResult, error) {
	if err := s.checkDomain(email); err != nil {
		return nil, err
	}

	user, err := s.UserRepo.FindByEmail(ctx, email)
	if errors.Is(err, util.ErrNotFound) {
		return nil, util.ErrInvalidCredentials
	}
	if err != nil {
		return nil, err
	}
	if err := bcrypt.CompareHashAndPassword([]byte(user.Password), []byte(password)); err != nil {
		return nil, util.ErrInvalidCredentials
	}

	if s.Cfg.Auth.RequireVerifiedEmail && !user.EmailVerified {
		return nil, util.ErrEmailNotVerified
	}
	if selectedRole != "" && selectedRole != user.Role {
		return nil, fmt.Errorf("%w: selected %q, account is %q", util.ErrRoleMismatch, selectedRole, user.Role)
	}

	token, err := util.GenerateJWT(user, s.Cfg.JWT.Secret, s.Cfg.JWT.ExpireTime)
	if err != nil {
		return nil, err
	}
	return &LoginResult{Token: token, User: user}, nil
}

// CurrentUser 读取会话对应的完整用户信息
func (s *AuthService) CurrentUser(ctx context.Context, sess Session) (*model.User, error) {
	if !sess.Authenticated() {
		return nil, util.ErrUnauthorized
	}
	return s.UserRepo.FindByID(ctx, sess.UserID)
}
