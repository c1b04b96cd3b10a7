package entity

import "time"

// UserIdentity links a local user to an external auth provider (threefold now,
// others later). The (key, value) pair is unique across all rows: a given
// external identity can own at most one local account.
type UserIdentity struct {
	ID     uint   `gorm:"primaryKey" json:"id"`
	UserID uint   `gorm:"not null;index" json:"user_id"`
	Key    string `gorm:"size:50;not null;uniqueIndex:idx_auth_data_key_value,priority:1" json:"key"`
	Value  string `gorm:"size:300;not null;uniqueIndex:idx_auth_data_key_value,priority:2" json:"value"`
	// Extra holds free-form provider metadata as JSON.
	Extra     string    `gorm:"type:jsonb;not null;default:'{}'" json:"extra"`
	CreatedAt time.Time `gorm:"not null;default:CURRENT_TIMESTAMP" json:"created_at"`
}

func (UserIdentity) TableName() string {
	return "auth_data"
}
