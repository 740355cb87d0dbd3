package service

import (
	"courseconnect_backend/internal/model"
	"courseconnect_backend/internal/util"
)

// Session 调用者身份，每个业务调用显式传入
type Session struct {
	UserID        uint
	Email         string
	EmailVerified bool
	Role          model.UserRole
}

func SessionFromClaims(c *util.Claims) Session {
	if c == nil {
		return Session{}
	}
	return Session{
		UserID:        c.UserID,
		Email:         c.Email,
		EmailVerified: c.EmailVerified,
		Role:          c.Role,
	}
}

func (s Session) Authenticated() bool {
	return s.UserID != 0
}
