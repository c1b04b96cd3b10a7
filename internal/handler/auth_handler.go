package handler

import (
	"errors"
	"log"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/yourusername/tracker-api/internal/handler/dto"
	apperrors "github.com/yourusername/tracker-api/internal/pkg/errors"
	"github.com/yourusername/tracker-api/internal/service"
)

// AuthHandler обрабатывает запросы, связанные с аутентификацией
type AuthHandler struct {
	threefoldService *service.ThreefoldAuthService
}

// NewAuthHandler создает новый обработчик аутентификации
func NewAuthHandler(threefoldService *service.ThreefoldAuthService) *AuthHandler {
	return &AuthHandler{threefoldService: threefoldService}
}

// AuthRequest представляет запрос на вход через внешнего провайдера
type AuthRequest struct {
	Type          string `json:"type" binding:"required"`
	SignedAttempt string `json:"signedAttempt" binding:"required"`
	State         string `json:"state" binding:"omitempty"`
	RedirectURI   string `json:"redirectUri" binding:"omitempty"`
	// Token — необязательный токен приглашения в проект
	Token string `json:"token" binding:"omitempty"`
}

// AuthResponse — данные пользователя вместе с токеном сессии
type AuthResponse struct {
	dto.UserResponse
	AuthToken string `json:"auth_token"`
}

// Auth обрабатывает запрос на вход: проверенная внешняя идентичность
// разрешается в локальную учетную запись, опциональное приглашение
// принимается, выдается токен сессии.
func (h *AuthHandler) Auth(c *gin.Context) {
	var req AuthRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request data", "error_type": "validation_error"})
		return
	}

	if req.Type != "threefold" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Unsupported auth type", "error_type": "unsupported_auth_type"})
		return
	}

	result, err := h.threefoldService.Login(c.Request.Context(), service.LoginInput{
		SignedAttempt:   req.SignedAttempt,
		State:           req.State,
		RedirectURI:     req.RedirectURI,
		MembershipToken: req.Token,
	})
	if err != nil {
		h.handleAuthError(c, err)
		return
	}

	log.Printf("[AuthHandler] Пользователь ID=%d (%s) вошел через threefold", result.User.ID, result.User.Username)

	c.JSON(http.StatusOK, AuthResponse{
		UserResponse: dto.ToUserResponse(result.User),
		AuthToken:    result.AuthToken,
	})
}

// handleAuthError транслирует ошибки сервиса в HTTP-статусы
func (h *AuthHandler) handleAuthError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, apperrors.ErrNotFound):
		// Неизвестный токен приглашения или несуществующий threefold-пользователь
		c.JSON(http.StatusNotFound, gin.H{"error": "Not found", "error_type": "not_found"})
	case errors.Is(err, apperrors.ErrConflict):
		c.JSON(http.StatusBadRequest, gin.H{"error": "This user is already a member of the project.", "error_type": "integrity_error"})
	case errors.Is(err, apperrors.ErrUniqueViolation):
		// Обе попытки проиграли гонку; клиент может повторить запрос
		c.JSON(http.StatusConflict, gin.H{"error": "Concurrent login in progress, please retry", "error_type": "retry_login"})
	case errors.Is(err, service.ErrThreefoldVerificationFailed):
		c.JSON(http.StatusBadRequest, gin.H{"error": "Threefold login verification failed", "error_type": "threefold_verification_failed"})
	case errors.Is(err, apperrors.ErrValidation):
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error(), "error_type": "validation_error"})
	default:
		log.Printf("[AuthHandler] Внутренняя ошибка при логине: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Internal server error", "error_type": "internal_error"})
	}
}
