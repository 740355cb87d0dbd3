package repository

import (
	"courseconnect_backend/internal/util"
	"errors"
	"fmt"

	"gorm.io/gorm"
)

// translate 将 gorm 错误归一为领域错误：记录不存在 -> ErrNotFound，其余视为可重试的存储错误
func translate(err error, what string) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, gorm.ErrRecordNotFound):
		return fmt.Errorf("%w: %s", util.ErrNotFound, what)
	case errors.Is(err, util.ErrNotFound), errors.Is(err, util.ErrTransientStore):
		return err
	}
	return util.Transient(err)
}

func offset(page, limit int) int {
	if page < 1 {
		return 0
	}
	return (page - 1) * limit
}

// withTag 匹配逗号分隔的 tags 列中的完整标签
func withTag(query *gorm.DB, tag string) *gorm.DB {
	return query.Where("tags = ? OR tags LIKE ? OR tags LIKE ? OR tags LIKE ?",
		tag, tag+",%", "%,"+tag, "%,"+tag+",%")
}
