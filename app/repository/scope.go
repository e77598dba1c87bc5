package repository

import (
	"strings"

	"gorm.io/gorm"
)

const (
	defaultPageSize = 50
	maxPageSize     = 200
)

// tenant restricts a query to one organization.
func tenant(db *gorm.DB, orgID uint) *gorm.DB {
	return db.Where("organization_id = ?", orgID)
}

// paginate applies offset and limit with sane bounds.
func paginate(q *gorm.DB, opts ListOptions) *gorm.DB {
	limit := opts.Limit
	if limit <= 0 {
		limit = defaultPageSize
	}
	if limit > maxPageSize {
		limit = maxPageSize
	}
	offset := opts.Offset
	if offset < 0 {
		offset = 0
	}
	return q.Offset(offset).Limit(limit)
}

// likePattern builds a case-insensitive LIKE pattern.
func likePattern(s string) string {
	return "%" + strings.ToLower(strings.TrimSpace(s)) + "%"
}

// deleteScoped soft deletes a row of model belonging to orgID.
func deleteScoped(db *gorm.DB, model interface{}, orgID, id uint) error {
	res := tenant(db, orgID).Where("id = ?", id).Delete(model)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}
