package repository

import (
	"context"
	"courseconnect_backend/internal/model"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type QuestionRepository struct {
	DB *gorm.DB
}

func NewQuestionRepository(db *gorm.DB) *QuestionRepository {
	return &QuestionRepository{DB: db}
}

// QuestionFilter 问题列表筛选条件
type QuestionFilter struct {
	ClassID string
	Tag     string
	Search  string
	Solved  *bool
	Page    int
	Limit   int
}

func (r *QuestionRepository) Create(ctx context.Context, q *model.Question) error {
	return translate(r.DB.WithContext(ctx).Omit(clause.Associations).Create(q).Error, "question")
}

func (r *QuestionRepository) FindByID(ctx context.Context, id string) (*model.Question, error) {
	var q model.Question
	if err := r.DB.WithContext(ctx).Preload("Author").First(&q, "id = ?", id).Error; err != nil {
		return nil, translate(err, "question")
	}
	return &q, nil
}

func (r *QuestionRepository) FindWithPagination(ctx context.Context, f QuestionFilter) ([]model.Question, int64, error) {
	var questions []model.Question
	var total int64

	query := r.DB.WithContext(ctx).Model(&model.Question{}).Where("class_id = ?", f.ClassID)

	if f.Tag != "" {
		query = withTag(query, f.Tag)
	}
	if f.Search != "" {
		like := "%" + f.Search + "%"
		query = query.Where("title LIKE ? OR body LIKE ?", like, like)
	}
	if f.Solved != nil {
		query = query.Where("is_solved = ?", *f.Solved)
	}

	if err := query.Count(&total).Error; err != nil {
		return nil, 0, translate(err, "questions")
	}

	err := query.Offset(offset(f.Page, f.Limit)).Limit(f.Limit).
		Preload("Author").
		Order("created_at DESC").
		Find(&questions).Error
	if err != nil {
		return nil, 0, translate(err, "questions")
	}
	return questions, total, nil
}

// MarkAccepted 以 prev 为期望值对 accepted_answer_id 做比较并交换，
// 成功时在同一事务内清除其他回答的采纳标记并标记问题已解决
func (r *QuestionRepository) MarkAccepted(ctx context.Context, questionID, answerID string, prev *string) (bool, error) {
	applied := false
	err := r.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		now := time.Now()

		cas := tx.Model(&model.Question{}).Where("id = ?", questionID)
		if prev == nil {
			cas = cas.Where("accepted_answer_id IS NULL")
		} else {
			cas = cas.Where("accepted_answer_id = ?", *prev)
		}
		res := cas.Updates(map[string]interface{}{
			"accepted_answer_id": answerID,
			"is_solved":          true,
			"solved_at":          now,
		})
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return nil
		}

		err := tx.Model(&model.Answer{}).
			Where("question_id = ? AND id <> ? AND accepted = ?", questionID, answerID, true).
			Updates(map[string]interface{}{"accepted": false, "accepted_at": nil}).Error
		if err != nil {
			return err
		}

		err = tx.Model(&model.Answer{}).
			Where("id = ? AND question_id = ?", answerID, questionID).
			Updates(map[string]interface{}{"accepted": true, "accepted_at": now}).Error
		if err != nil {
			return err
		}
		applied = true
		return nil
	})
	if err != nil {
		return false, translate(err, "question")
	}
	return applied, nil
}

type AnswerRepository struct {
	DB *gorm.DB
}

func NewAnswerRepository(db *gorm.DB) *AnswerRepository {
	return &AnswerRepository{DB: db}
}

func (r *AnswerRepository) Create(ctx context.Context, a *model.Answer) error {
	return translate(r.DB.WithContext(ctx).Omit(clause.Associations).Create(a).Error, "answer")
}

func (r *AnswerRepository) FindByID(ctx context.Context, id string) (*model.Answer, error) {
	var a model.Answer
	if err := r.DB.WithContext(ctx).First(&a, "id = ?", id).Error; err != nil {
		return nil, translate(err, "answer")
	}
	return &a, nil
}

func (r *AnswerRepository) ListByQuestion(ctx context.Context, questionID string) ([]model.Answer, error) {
	var answers []model.Answer
	err := r.DB.WithContext(ctx).
		Preload("Author").
		Where("question_id = ?", questionID).
		Order("accepted DESC").
		Order("upvotes DESC").
		Order("created_at ASC").
		Find(&answers).Error
	return answers, translate(err, "answers")
}

// ClaimBonus 将 bonus_granted 由 false 置为 true，只有首次调用返回 true
func (r *AnswerRepository) ClaimBonus(ctx context.Context, answerID string) (bool, error) {
	res := r.DB.WithContext(ctx).Model(&model.Answer{}).
		Where("id = ? AND bonus_granted = ?", answerID, false).
		Update("bonus_granted", true)
	if res.Error != nil {
		return false, translate(res.Error, "answer")
	}
	return res.RowsAffected == 1, nil
}

type ReplyRepository struct {
	DB *gorm.DB
}

func NewReplyRepository(db *gorm.DB) *ReplyRepository {
	return &ReplyRepository{DB: db}
}

func (r *ReplyRepository) Create(ctx context.Context, reply *model.Reply) error {
	return translate(r.DB.WithContext(ctx).Omit(clause.Associations).Create(reply).Error, "reply")
}

func (r *ReplyRepository) FindByID(ctx context.Context, id string) (*model.Reply, error) {
	var reply model.Reply
	if err := r.DB.WithContext(ctx).First(&reply, "id = ?", id).Error; err != nil {
		return nil, translate(err, "reply")
	}
	return &reply, nil
}

// ListByQuestion 按创建顺序返回问题下的全部回复（扁平）
func (r *ReplyRepository) ListByQuestion(ctx context.Context, questionID string) ([]model.Reply, error) {
	var replies []model.Reply
	err := r.DB.WithContext(ctx).
		Preload("Author").
		Where("question_id = ?", questionID).
		Order("created_at ASC").
		Order("id ASC").
		Find(&replies).Error
	return replies, translate(err, "replies")
}
