package repository

import "github.com/yourusername/tracker-api/internal/domain/entity"

// MembershipRepository stores project invitations and their claims.
type MembershipRepository interface {
	Create(membership *entity.Membership) error
	// GetByToken returns apperrors.ErrNotFound when no invitation carries the token.
	GetByToken(token string) (*entity.Membership, error)
	// ClaimForUser sets user_id on an unclaimed membership, persisting only that
	// field. It fails with apperrors.ErrConflict when the membership is already
	// claimed or when the user is already a member of the project.
	ClaimForUser(membershipID, userID uint) error
}
