package repository

import (
	"context"
	"courseconnect_backend/internal/model"
	"strings"

	"gorm.io/gorm"
)

type UserRepository struct {
	DB *gorm.DB
}

func NewUserRepository(db *gorm.DB) *UserRepository {
	return &UserRepository{DB: db}
}

func (r *UserRepository) Create(ctx context.Context, user *model.User) error {
	user.Email = strings.ToLower(strings.TrimSpace(user.Email))
	return translate(r.DB.WithContext(ctx).Create(user).Error, "user")
}

func (r *UserRepository) FindByID(ctx context.Context, id uint) (*model.User, error) {
	var user model.User
	if err := r.DB.WithContext(ctx).First(&user, id).Error; err != nil {
		return nil, translate(err, "user")
	}
	return &user, nil
}

func (r *UserRepository) FindByEmail(ctx context.Context, email string) (*model.User, error) {
	var user model.User
	err := r.DB.WithContext(ctx).
		Where("email = ?", strings.ToLower(strings.TrimSpace(email))).
		First(&user).Error
	if err != nil {
		return nil, translate(err, "user")
	}
	return &user, nil
}

func (r *UserRepository) EmailExists(ctx context.Context, email string) (bool, error) {
	var count int64
	err := r.DB.WithContext(ctx).Model(&model.User{}).
		Where("email = ?", strings.ToLower(strings.TrimSpace(email))).
		Count(&count).Error
	return count > 0, translate(err, "user")
}

// MarkVerified 凭一次性 token 标记邮箱已验证，token 使用后立即失效
func (r *UserRepository) MarkVerified(ctx context.Context, token string) (*model.User, error) {
	var user model.User
	err := r.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("verify_token = ? AND verify_token <> ''", token).First(&user).Error; err != nil {
			return err
		}
		user.EmailVerified = true
		user.VerifyToken = ""
		return tx.Model(&user).Updates(map[string]interface{}{
			"email_verified": true,
			"verify_token":   "",
		}).Error
	})
	if err != nil {
		return nil, translate(err, "verification token")
	}
	return &user, nil
}

func (r *UserRepository) UpdateProfile(ctx context.Context, id uint, fields map[string]interface{}) error {
	res := r.DB.WithContext(ctx).Model(&model.User{}).Where("id = ?", id).Updates(fields)
	if res.Error != nil {
		return translate(res.Error, "user")
	}
	if res.RowsAffected == 0 {
		return translate(gorm.ErrRecordNotFound, "user")
	}
	return nil
}

// AddPoints 原子地调整全局积分并保证不低于 0，返回是否命中记录
func (r *UserRepository) AddPoints(ctx context.Context, userID uint, delta int) (bool, error) {
	res := r.DB.WithContext(ctx).Model(&model.User{}).
		Where("id = ?", userID).
		Update("total_points", flooredIncrement("total_points", delta))
	if res.Error != nil {
		return false, translate(res.Error, "user")
	}
	return res.RowsAffected > 0, nil
}

// ListLeaderboardRows 返回全部用户的积分行，排序由调用方完成
func (r *UserRepository) ListLeaderboardRows(ctx context.Context) ([]LeaderboardRow, error) {
	var rows []LeaderboardRow
	err := r.DB.WithContext(ctx).Model(&model.User{}).
		Select("id AS user_id, name, email, role, total_points AS points").
		Scan(&rows).Error
	return rows, translate(err, "users")
}

// flooredIncrement 生成 col + d 且下限为 0 的表达式
func flooredIncrement(col string, delta int) interface{} {
	return gorm.Expr("CASE WHEN "+col+" + ? < 0 THEN 0 ELSE "+col+" + ? END", delta, delta)
}
