package repository

import (
	"context"
	"courseconnect_backend/internal/model"
	"courseconnect_backend/internal/util"
	"fmt"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// VoteRepository 维护点赞记录，并在同一事务中同步内容表上的 upvotes 计数
type VoteRepository struct {
	DB *gorm.DB
}

func NewVoteRepository(db *gorm.DB) *VoteRepository {
	return &VoteRepository{DB: db}
}

// FindVoteTarget 读取被点赞内容的作者与所属课堂
func (r *VoteRepository) FindVoteTarget(ctx context.Context, kind model.ItemKind, id string) (*model.VoteTarget, error) {
	var row struct {
		ID       string
		AuthorID uint
		ClassID  string
		Upvotes  int
	}

	db := r.DB.WithContext(ctx)
	var q *gorm.DB
	switch kind {
	case model.KindQuestion:
		q = db.Table("questions").Select("id, author_id, class_id, upvotes").Where("id = ?", id)
	case model.KindMaterial:
		q = db.Table("materials").Select("id, author_id, class_id, upvotes").Where("id = ?", id)
	case model.KindAnswer:
		q = db.Table("answers").
			Select("answers.id, answers.author_id, questions.class_id, answers.upvotes").
			Joins("JOIN questions ON questions.id = answers.question_id").
			Where("answers.id = ?", id)
	case model.KindReply:
		q = db.Table("replies").
			Select("replies.id, replies.author_id, questions.class_id, replies.upvotes").
			Joins("JOIN questions ON questions.id = replies.question_id").
			Where("replies.id = ?", id)
	default:
		return nil, util.Invalid(fmt.Sprintf("unknown item kind %q", kind))
	}

	res := q.Limit(1).Scan(&row)
	if res.Error != nil {
		return nil, translate(res.Error, string(kind))
	}
	if res.RowsAffected == 0 {
		return nil, util.NotFoundf("%s %s", kind, id)
	}
	return &model.VoteTarget{
		Kind:     kind,
		ID:       row.ID,
		AuthorID: row.AuthorID,
		ClassID:  row.ClassID,
		Upvotes:  row.Upvotes,
	}, nil
}

// AddVoter 插入点赞记录，已存在时不做任何修改；返回是否新增
func (r *VoteRepository) AddVoter(ctx context.Context, kind model.ItemKind, id string, userID uint) (bool, error) {
	added := false
	err := r.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		res := tx.Clauses(clause.OnConflict{DoNothing: true}).
			Create(&model.Vote{ItemKind: kind, ItemID: id, UserID: userID})
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return nil
		}
		added = true
		return tx.Table(kind.Table()).Where("id = ?", id).
			UpdateColumn("upvotes", gorm.Expr("upvotes + 1")).Error
	})
	if err != nil {
		return false, translate(err, "vote")
	}
	return added, nil
}

// RemoveVoter 删除点赞记录；返回是否确有记录被删除
func (r *VoteRepository) RemoveVoter(ctx context.Context, kind model.ItemKind, id string, userID uint) (bool, error) {
	removed := false
	err := r.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		res := tx.Where("item_kind = ? AND item_id = ? AND user_id = ?", kind, id, userID).
			Delete(&model.Vote{})
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return nil
		}
		removed = true
		return tx.Table(kind.Table()).Where("id = ?", id).
			UpdateColumn("upvotes", flooredIncrement("upvotes", -1)).Error
	})
	if err != nil {
		return false, translate(err, "vote")
	}
	return removed, nil
}

// Voters 返回内容的点赞用户，按点赞时间排序
func (r *VoteRepository) Voters(ctx context.Context, kind model.ItemKind, id string) ([]uint, error) {
	var ids []uint
	err := r.DB.WithContext(ctx).Model(&model.Vote{}).
		Where("item_kind = ? AND item_id = ?", kind, id).
		Order("id ASC").
		Pluck("user_id", &ids).Error
	return ids, translate(err, "votes")
}

// VotedBy 返回 ids 中被 userID 点赞过的内容集合
func (r *VoteRepository) VotedBy(ctx context.Context, kind model.ItemKind, ids []string, userID uint) (map[string]bool, error) {
	voted := make(map[string]bool, len(ids))
	if len(ids) == 0 || userID == 0 {
		return voted, nil
	}
	var hits []string
	err := r.DB.WithContext(ctx).Model(&model.Vote{}).
		Where("item_kind = ? AND user_id = ? AND item_id IN ?", kind, userID, ids).
		Pluck("item_id", &hits).Error
	if err != nil {
		return nil, translate(err, "votes")
	}
	for _, id := range hits {
		voted[id] = true
	}
	return voted, nil
}
