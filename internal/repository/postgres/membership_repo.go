package postgres

import (
	"errors"
	"fmt"

	"gorm.io/gorm"

	"github.com/yourusername/tracker-api/internal/domain/entity"
	apperrors "github.com/yourusername/tracker-api/internal/pkg/errors"
)

type MembershipRepo struct {
	db *gorm.DB
}

func NewMembershipRepo(db *gorm.DB) *MembershipRepo {
	return &MembershipRepo{db: db}
}

func (r *MembershipRepo) Create(membership *entity.Membership) error {
	if err := r.db.Create(membership).Error; err != nil {
		if isUniqueViolation(err) {
			return apperrors.ErrConflict
		}
		return fmt.Errorf("failed to create membership: %w", err)
	}
	return nil
}

func (r *MembershipRepo) GetByToken(token string) (*entity.Membership, error) {
	var membership entity.Membership
	err := r.db.Where("token = ?", token).First(&membership).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperrors.ErrNotFound
		}
		return nil, fmt.Errorf("failed to get membership by token: %w", err)
	}
	return &membership, nil
}

// ClaimForUser updates only user_id, and only when the slot is still unclaimed.
// Two constraints turn into apperrors.ErrConflict here: the guarded update
// (somebody claimed the slot first) and the unique index on
// (project_id, user_id) — the user is already a member of the project.
func (r *MembershipRepo) ClaimForUser(membershipID, userID uint) error {
	result := r.db.Model(&entity.Membership{}).
		Where("id = ? AND user_id IS NULL", membershipID).
		Update("user_id", userID)
	if result.Error != nil {
		if isUniqueViolation(result.Error) {
			return apperrors.ErrConflict
		}
		return fmt.Errorf("failed to claim membership: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return apperrors.ErrConflict
	}
	return nil
}
