package controller

import (
	"courseconnect_backend/internal/model"
	"courseconnect_backend/internal/service"
	"courseconnect_backend/internal/util"

	"github.com/gin-gonic/gin"
)

type AuthController struct {
	AuthService *service.AuthService
}

func NewAuthController(authService *service.AuthService) *AuthController {
	return &AuthController{AuthService: authService}
}

// RegisterRequest defines model for registration
// swagger:model RegisterRequest
type RegisterRequest struct {
	Name     string `json:"name" binding:"required"`
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required,min=6"`
	Role     string `json:"role" binding:"required,oneof=student faculty"`
}

// Register godoc
// @Summary 注册新用户
// @Description 注册后需通过邮件中的链接完成邮箱验证
// @Tags 认证
// @Accept  json
// @Produce  json
// @Param   body body RegisterRequest true "用户注册信息"
// @Success 201 {object} util.Response{data=object} "创建成功"
// @Failure 400 {object} util.Response "请求参数错误"
// @Failure 409 {object} util.Response "邮箱已被注册"
// @Router /register [post]
func (c *AuthController) Register(ctx *gin.Context) {
	var req RegisterRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		util.BadRequest(ctx, err.Error())
		return
	}

	user, err := c.AuthService.Register(ctx.Request.Context(), req.Name, req.Email, req.Password, model.UserRole(req.Role))
	if err != nil {
		util.RespondError(ctx, err)
		return
	}

	util.Created(ctx, gin.H{"id": user.ID, "emailVerified": user.EmailVerified})
}

// swagger:model LoginRequest
type LoginRequest struct {
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required"`
	// 登录页所选角色，可为空
	Role string `json:"role" binding:"omitempty,oneof=student faculty"`
}

// Login godoc
// @Summary 用户登录
// @Description 校验邮箱域名、密码、邮箱验证状态与所选角色，成功后返回JWT令牌
// @Tags 认证
// @Accept  json
// @Produce  json
// @Param   body body LoginRequest true "用户登录凭据"
// @Success 200 {object} util.Response{data=service.LoginResult} "成功"
// @Failure 400 {object} util.Response "请求参数错误"
// @Failure 401 {object} util.Response "邮箱或密码错误"
// @Failure 403 {object} util.Response "邮箱未验证或角色不匹配"
// @Router /login [post]
func (c *AuthController) Login(ctx *gin.Context) {
	var req LoginRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		util.BadRequest(ctx, err.Error())
		return
	}

	res, err := c.AuthService.Login(ctx.Request.Context(), req.Email, req.Password, model.UserRole(req.Role))
	if err != nil {
		util.RespondError(ctx, err)
		return
	}

	util.Success(ctx, res)
}

// VerifyEmail godoc
// @Summary 验证邮箱
// @Tags 认证
// @Produce  json
// @Param   token query string true "验证令牌"
// @Success 200 {object} util.Response "验证成功"
// @Failure 400 {object} util.Response "令牌无效"
// @Router /auth/verify [get]
func (c *AuthController) VerifyEmail(ctx *gin.Context) {
	user, err := c.AuthService.VerifyEmail(ctx.Request.Context(), ctx.Query("token"))
	if err != nil {
		util.RespondError(ctx, err)
		return
	}
	util.SuccessWithMessage(ctx, "email verified", gin.H{"id": user.ID, "email": user.Email})
}

type ResendRequest struct {
	Email string `json:"email" binding:"required,email"`
}

// ResendVerification godoc
// @Summary 重新发送验证链接
// @Tags 认证
// @Accept  json
// @Produce  json
// @Param   body body ResendRequest true "邮箱"
// @Success 200 {object} util.Response
// @Router /auth/resend [post]
func (c *AuthController) ResendVerification(ctx *gin.Context) {
	var req ResendRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		util.BadRequest(ctx, err.Error())
		return
	}
	if err := c.AuthService.ResendVerification(ctx.Request.Context(), req.Email); err != nil {
		util.RespondError(ctx, err)
		return
	}
	util.SuccessWithMessage(ctx, "verification link sent", nil)
}

// GetProfile godoc
// @Summary 获取当前用户资料
// @Tags 认证
// @Produce  json
// @Security ApiKeyAuth
// @Success 200 {object} util.Response{data=model.User} "Success"
// @Failure 401 {object} util.Response "Unauthorized"
// @Router /profile [get]
func (c *AuthController) GetProfile(ctx *gin.Context) {
	user, err := c.AuthService.CurrentUser(ctx.Request.Context(), sessionOf(ctx))
	if err != nil {
		util.RespondError(ctx, err)
		return
	}

	util.Success(ctx, gin.H{
		"id":            user.ID,
		"name":          user.Name,
		"displayName":   model.DisplayName(user.Name, user.Email),
		"email":         user.Email,
		"role":          user.Role,
		"photoURL":      user.PhotoURL,
		"totalPoints":   user.TotalPoints,
		"emailVerified": user.EmailVerified,
		"createdAt":     user.CreatedAt,
	})
}
