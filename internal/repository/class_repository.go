package repository

import (
	"context"
	"courseconnect_backend/internal/model"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type ClassRepository struct {
	DB *gorm.DB
}

func NewClassRepository(db *gorm.DB) *ClassRepository {
	return &ClassRepository{DB: db}
}

// Create 创建课堂并为创建者写入教师成员记录
func (r *ClassRepository) Create(ctx context.Context, class *model.ClassRoom) (*model.Membership, error) {
	owner := &model.Membership{
		UserID:   class.OwnerID,
		Role:     model.Faculty,
		JoinedAt: time.Now(),
	}
	err := r.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Omit(clause.Associations).Create(class).Error; err != nil {
			return err
		}
		owner.ClassID = class.ID
		return tx.Omit(clause.Associations).Create(owner).Error
	})
	if err != nil {
		return nil, translate(err, "class")
	}
	return owner, nil
}

func (r *ClassRepository) FindByID(ctx context.Context, id string) (*model.ClassRoom, error) {
	var class model.ClassRoom
	if err := r.DB.WithContext(ctx).Preload("Owner").First(&class, "id = ?", id).Error; err != nil {
		return nil, translate(err, "class")
	}
	return &class, nil
}

func (r *ClassRepository) FindByJoinCode(ctx context.Context, code string) (*model.ClassRoom, error) {
	var class model.ClassRoom
	if err := r.DB.WithContext(ctx).Where("join_code = ?", code).First(&class).Error; err != nil {
		return nil, translate(err, "class")
	}
	return &class, nil
}

func (r *ClassRepository) JoinCodeExists(ctx context.Context, code string) (bool, error) {
	var count int64
	err := r.DB.WithContext(ctx).Model(&model.ClassRoom{}).Where("join_code = ?", code).Count(&count).Error
	return count > 0, translate(err, "class")
}

// ListForUser 返回用户加入（含创建）的全部课堂
func (r *ClassRepository) ListForUser(ctx context.Context, userID uint) ([]model.ClassRoom, error) {
	var classes []model.ClassRoom
	err := r.DB.WithContext(ctx).
		Joins("JOIN memberships ON memberships.class_id = classes.id").
		Where("memberships.user_id = ?", userID).
		Preload("Owner").
		Order("classes.created_at DESC").
		Find(&classes).Error
	return classes, translate(err, "classes")
}

func (r *ClassRepository) Analytics(ctx context.Context, classID string) (*model.ClassAnalytics, error) {
	a := &model.ClassAnalytics{ClassID: classID}
	db := r.DB.WithContext(ctx)

	if err := db.Model(&model.Membership{}).Where("class_id = ?", classID).Count(&a.Members).Error; err != nil {
		return nil, translate(err, "analytics")
	}
	if err := db.Model(&model.Question{}).Where("class_id = ?", classID).Count(&a.Questions).Error; err != nil {
		return nil, translate(err, "analytics")
	}
	err := db.Model(&model.Answer{}).
		Joins("JOIN questions ON questions.id = answers.question_id").
		Where("questions.class_id = ?", classID).
		Count(&a.Answers).Error
	if err != nil {
		return nil, translate(err, "analytics")
	}
	if err := db.Model(&model.Material{}).Where("class_id = ?", classID).Count(&a.Materials).Error; err != nil {
		return nil, translate(err, "analytics")
	}
	if err := db.Model(&model.Announcement{}).Where("class_id = ?", classID).Count(&a.Announcements).Error; err != nil {
		return nil, translate(err, "analytics")
	}
	err = db.Model(&model.Membership{}).
		Where("class_id = ?", classID).
		Select("COALESCE(SUM(points), 0)").
		Scan(&a.TotalPoints).Error
	if err != nil {
		return nil, translate(err, "analytics")
	}
	return a, nil
}

type MembershipRepository struct {
	DB *gorm.DB
}

func NewMembershipRepository(db *gorm.DB) *MembershipRepository {
	return &MembershipRepository{DB: db}
}

func (r *MembershipRepository) Find(ctx context.Context, classID string, userID uint) (*model.Membership, error) {
	var m model.Membership
	err := r.DB.WithContext(ctx).Where("class_id = ? AND user_id = ?", classID, userID).First(&m).Error
	if err != nil {
		return nil, translate(err, "membership")
	}
	return &m, nil
}

// Add 插入成员记录，已存在时不做修改；created 表示本次是否新建
func (r *MembershipRepository) Add(ctx context.Context, m *model.Membership) (created bool, err error) {
	if m.JoinedAt.IsZero() {
		m.JoinedAt = time.Now()
	}
	res := r.DB.WithContext(ctx).
		Omit(clause.Associations).
		Clauses(clause.OnConflict{DoNothing: true}).
		Create(m)
	if res.Error != nil {
		return false, translate(res.Error, "membership")
	}
	return res.RowsAffected > 0, nil
}

// Ensure 缺失时以 0 分创建成员记录，角色取用户自身角色
func (r *MembershipRepository) Ensure(ctx context.Context, classID string, userID uint) error {
	var role string
	err := r.DB.WithContext(ctx).Model(&model.User{}).Where("id = ?", userID).Select("role").Scan(&role).Error
	if err != nil {
		return translate(err, "user")
	}
	if role == "" {
		role = string(model.Student)
	}
	_, err = r.Add(ctx, &model.Membership{ClassID: classID, UserID: userID, Role: model.UserRole(role)})
	return err
}

// AddPoints 原子地调整课堂积分并保证不低于 0，返回是否命中记录
func (r *MembershipRepository) AddPoints(ctx context.Context, classID string, userID uint, delta int) (bool, error) {
	res := r.DB.WithContext(ctx).Model(&model.Membership{}).
		Where("class_id = ? AND user_id = ?", classID, userID).
		Update("points", flooredIncrement("points", delta))
	if res.Error != nil {
		return false, translate(res.Error, "membership")
	}
	return res.RowsAffected > 0, nil
}

func (r *MembershipRepository) ListByClass(ctx context.Context, classID string) ([]model.Membership, error) {
	var members []model.Membership
	err := r.DB.WithContext(ctx).
		Preload("User").
		Where("class_id = ?", classID).
		Order("joined_at ASC").
		Find(&members).Error
	return members, translate(err, "memberships")
}

// LeaderboardRow 排行榜原始行
type LeaderboardRow struct {
	UserID uint
	Name   string
	Email  string
	Role   model.UserRole
	Points int
}

func (r *MembershipRepository) ListLeaderboardRows(ctx context.Context, classID string) ([]LeaderboardRow, error) {
	var rows []LeaderboardRow
	err := r.DB.WithContext(ctx).Table("memberships").
		Select("memberships.user_id, users.name, users.email, memberships.role, memberships.points").
		Joins("JOIN users ON users.id = memberships.user_id").
		Where("memberships.class_id = ?", classID).
		Scan(&rows).Error
	return rows, translate(err, "leaderboard")
}
