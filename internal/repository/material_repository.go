package repository

import (
	"context"
	"courseconnect_backend/internal/model"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type MaterialRepository struct {
	DB *gorm.DB
}

func NewMaterialRepository(db *gorm.DB) *MaterialRepository {
	return &MaterialRepository{DB: db}
}

type MaterialFilter struct {
	ClassID string
	Tag     string
	Search  string
	Sort    string // upvotes | new
	Page    int
	Limit   int
}

func (r *MaterialRepository) Create(ctx context.Context, m *model.Material) error {
	return translate(r.DB.WithContext(ctx).Omit(clause.Associations).Create(m).Error, "material")
}

func (r *MaterialRepository) FindByID(ctx context.Context, id string) (*model.Material, error) {
	var m model.Material
	if err := r.DB.WithContext(ctx).Preload("Author").First(&m, "id = ?", id).Error; err != nil {
		return nil, translate(err, "material")
	}
	return &m, nil
}

func (r *MaterialRepository) FindWithPagination(ctx context.Context, f MaterialFilter) ([]model.Material, int64, error) {
	var materials []model.Material
	var total int64

	query := r.DB.WithContext(ctx).Model(&model.Material{}).Where("class_id = ?", f.ClassID)
	if f.Tag != "" {
		query = withTag(query, f.Tag)
	}
	if f.Search != "" {
		like := "%" + f.Search + "%"
		query = query.Where("title LIKE ? OR description LIKE ?", like, like)
	}

	if err := query.Count(&total).Error; err != nil {
		return nil, 0, translate(err, "materials")
	}

	switch f.Sort {
	case "upvotes":
		query = query.Order("upvotes DESC").Order("created_at DESC")
	default:
		query = query.Order("created_at DESC")
	}

	err := query.Offset(offset(f.Page, f.Limit)).Limit(f.Limit).
		Preload("Author").
		Find(&materials).Error
	if err != nil {
		return nil, 0, translate(err, "materials")
	}
	return materials, total, nil
}

func (r *MaterialRepository) IncrementView(ctx context.Context, id string) error {
	return translate(r.DB.WithContext(ctx).Model(&model.Material{}).
		Where("id = ?", id).
		UpdateColumn("view_count", gorm.Expr("view_count + 1")).Error, "material")
}

type AnnouncementRepository struct {
	DB *gorm.DB
}

func NewAnnouncementRepository(db *gorm.DB) *AnnouncementRepository {
	return &AnnouncementRepository{DB: db}
}

func (r *AnnouncementRepository) Create(ctx context.Context, a *model.Announcement) error {
	return translate(r.DB.WithContext(ctx).Create(a).Error, "announcement")
}

// ListByClass 按发布时间倒序
func (r *AnnouncementRepository) ListByClass(ctx context.Context, classID string) ([]model.Announcement, error) {
	var list []model.Announcement
	err := r.DB.WithContext(ctx).
		Where("class_id = ?", classID).
		Order("created_at DESC").
		Find(&list).Error
	return list, translate(err, "announcements")
}
