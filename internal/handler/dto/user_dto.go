package dto

import (
	"time"

	"github.com/yourusername/tracker-api/internal/domain/entity"
)

// UserResponse — представление пользователя в API-ответах
type UserResponse struct {
	ID        uint      `json:"id"`
	Username  string    `json:"username"`
	Email     string    `json:"email"`
	FullName  string    `json:"full_name"`
	Bio       string    `json:"bio"`
	CreatedAt time.Time `json:"created_at"`
}

// ToUserResponse конвертирует entity.User в UserResponse
func ToUserResponse(user *entity.User) UserResponse {
	return UserResponse{
		ID:        user.ID,
		Username:  user.Username,
		Email:     user.Email,
		FullName:  user.FullName,
		Bio:       user.Bio,
		CreatedAt: user.CreatedAt,
	}
}
