package postgres

import (
	"errors"
	"fmt"

	"gorm.io/gorm"

	"github.com/yourusername/tracker-api/internal/domain/entity"
	apperrors "github.com/yourusername/tracker-api/internal/pkg/errors"
)

type UserIdentityRepo struct {
	db *gorm.DB
}

func NewUserIdentityRepo(db *gorm.DB) *UserIdentityRepo {
	return &UserIdentityRepo{db: db}
}

// Create inserts a link row. The unique index on (key, value) is what
// serializes concurrent logins with the same external id: the loser gets
// apperrors.ErrUniqueViolation and retries as a plain lookup.
func (r *UserIdentityRepo) Create(identity *entity.UserIdentity) error {
	if identity.Extra == "" {
		identity.Extra = "{}"
	}
	if err := r.db.Create(identity).Error; err != nil {
		if isUniqueViolation(err) {
			return apperrors.ErrUniqueViolation
		}
		return fmt.Errorf("failed to create identity: %w", err)
	}
	return nil
}

func (r *UserIdentityRepo) GetByKeyValue(key, value string) (*entity.UserIdentity, error) {
	var identity entity.UserIdentity
	err := r.db.
		Where("key = ? AND value = ?", key, value).
		First(&identity).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperrors.ErrNotFound
		}
		return nil, fmt.Errorf("failed to get identity by key/value: %w", err)
	}
	return &identity, nil
}

func (r *UserIdentityRepo) GetByUserAndKey(userID uint, key string) (*entity.UserIdentity, error) {
	var identity entity.UserIdentity
	err := r.db.
		Where("user_id = ? AND key = ?", userID, key).
		First(&identity).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperrors.ErrNotFound
		}
		return nil, fmt.Errorf("failed to get identity by user/key: %w", err)
	}
	return &identity, nil
}

func (r *UserIdentityRepo) DeleteByUserID(userID uint) error {
	return r.db.Where("user_id = ?", userID).Delete(&entity.UserIdentity{}).Error
}
