package entity

import "time"

// Project представляет проект, участие в котором выдается через приглашения
type Project struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	Name      string    `gorm:"size:250;not null" json:"name"`
	Slug      string    `gorm:"size:250;not null;uniqueIndex" json:"slug"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// TableName определяет имя таблицы для GORM
func (Project) TableName() string {
	return "projects"
}
