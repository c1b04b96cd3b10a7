package entity

import (
	"time"

	"github.com/google/uuid"
)

// Membership is a project membership slot. It starts as a pending invitation
// (user_id is NULL, token identifies it) and becomes claimed when a user
// redeems the token. Claiming is one-shot: a claimed membership stays claimed.
type Membership struct {
	ID        uint   `gorm:"primaryKey" json:"id"`
	ProjectID uint   `gorm:"not null;uniqueIndex:idx_memberships_project_user,priority:1" json:"project_id"`
	UserID    *uint  `gorm:"uniqueIndex:idx_memberships_project_user,priority:2" json:"user_id,omitempty"`
	Token     string `gorm:"size:60;not null;uniqueIndex" json:"-"`
	// Email the invitation was sent to, kept for auditing only.
	Email     string    `gorm:"size:255;not null;default:''" json:"email,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}

func (Membership) TableName() string {
	return "memberships"
}

// IsClaimed reports whether the invitation has already been redeemed.
func (m *Membership) IsClaimed() bool {
	return m.UserID != nil
}

// NewInvitationToken returns a fresh one-time redemption token.
func NewInvitationToken() string {
	return uuid.NewString()
}
