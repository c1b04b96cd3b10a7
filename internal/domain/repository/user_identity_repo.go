package repository

import "github.com/yourusername/tracker-api/internal/domain/entity"

// UserIdentityRepository stores external provider links for users.
type UserIdentityRepository interface {
	// Create inserts a new link. A concurrent insert of the same (key, value)
	// pair fails with apperrors.ErrUniqueViolation.
	Create(identity *entity.UserIdentity) error
	GetByKeyValue(key, value string) (*entity.UserIdentity, error)
	GetByUserAndKey(userID uint, key string) (*entity.UserIdentity, error)
	DeleteByUserID(userID uint) error
}
