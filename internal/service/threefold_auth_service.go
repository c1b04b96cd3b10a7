package service

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"log"
	"strconv"
	"strings"
	"time"

	"github.com/yourusername/tracker-api/internal/domain/entity"
	"github.com/yourusername/tracker-api/internal/domain/repository"
	apperrors "github.com/yourusername/tracker-api/internal/pkg/errors"
	"github.com/yourusername/tracker-api/pkg/auth"
)

// threefoldKey is the provider key stored in auth_data rows.
const threefoldKey = "threefold"

// RegisterInput содержит проверенную внешнюю идентичность для регистрации
type RegisterInput struct {
	ThreefoldID int64
	Email       string
	Username    string
	FullName    string
	Bio         string

	// MembershipToken — необязательный токен приглашения в проект
	MembershipToken string
}

// LoginInput содержит сырые данные логина от request-слоя
type LoginInput struct {
	SignedAttempt   string
	State           string
	RedirectURI     string
	MembershipToken string
}

// AuthResult — данные, возвращаемые после успешного логина
type AuthResult struct {
	User      *entity.User
	AuthToken string
}

// ThreefoldAuthService связывает внешнюю threefold-идентичность с локальной
// учетной записью и принимает приглашения в проекты.
type ThreefoldAuthService struct {
	txManager    repository.TxManager
	connector    ThreefoldConnector
	jwtService   *auth.JWTService
	emailService EmailService
	notifier     Notifier
}

func NewThreefoldAuthService(
	txManager repository.TxManager,
	connector ThreefoldConnector,
	jwtService *auth.JWTService,
	emailService EmailService,
	notifier Notifier,
) (*ThreefoldAuthService, error) {
	if txManager == nil {
		return nil, fmt.Errorf("TxManager is required for ThreefoldAuthService")
	}
	if connector == nil {
		return nil, fmt.Errorf("ThreefoldConnector is required for ThreefoldAuthService")
	}
	if jwtService == nil {
		return nil, fmt.Errorf("JWTService is required for ThreefoldAuthService")
	}
	if emailService == nil {
		emailService = &NoopEmailService{}
	}
	if notifier == nil {
		notifier = &NoopNotifier{}
	}
	return &ThreefoldAuthService{
		txManager:    txManager,
		connector:    connector,
		jwtService:   jwtService,
		emailService: emailService,
		notifier:     notifier,
	}, nil
}

// Login проверяет подписанную попытку входа через connector, связывает
// идентичность с учетной записью и выдает токен сессии.
//
// Проигравший гонку конкурентных логинов получает ErrUniqueViolation из
// хранилища; в этом случае регистрация повторяется один раз — победившая
// связка уже видна, и повтор разрешается как обычный lookup.
func (s *ThreefoldAuthService) Login(ctx context.Context, input LoginInput) (*AuthResult, error) {
	email, profile, err := s.connector.Me(ctx, input.SignedAttempt, input.State, input.RedirectURI)
	if err != nil {
		return nil, err
	}

	regInput := RegisterInput{
		ThreefoldID:     profile.ID,
		Email:           email,
		Username:        profile.Username,
		FullName:        profile.FullName,
		Bio:             profile.Bio,
		MembershipToken: input.MembershipToken,
	}

	user, err := s.Register(ctx, regInput)
	if errors.Is(err, apperrors.ErrUniqueViolation) {
		user, err = s.Register(ctx, regInput)
	}
	if err != nil {
		return nil, err
	}

	token, err := s.jwtService.GenerateToken(user)
	if err != nil {
		return nil, fmt.Errorf("failed to generate auth token: %w", err)
	}

	return &AuthResult{User: user, AuthToken: token}, nil
}

// Register разрешает внешнюю идентичность в локального пользователя и, если
// передан токен приглашения, принимает приглашение. Все действия выполняются
// в одной транзакции: либо коммитятся и пользователь, и связка, и принятие
// приглашения, либо ничего.
func (s *ThreefoldAuthService) Register(ctx context.Context, input RegisterInput) (*entity.User, error) {
	input.Email = normalizeEmail(input.Email)
	if input.Email == "" {
		return nil, fmt.Errorf("%w: email is required", apperrors.ErrValidation)
	}
	if input.ThreefoldID <= 0 {
		return nil, fmt.Errorf("%w: threefold id is required", apperrors.ErrValidation)
	}

	var user *entity.User
	var created bool

	err := s.txManager.Do(ctx, func(store repository.Store) error {
		var err error
		user, created, err = s.resolveUser(store, input)
		if err != nil {
			return err
		}

		if input.MembershipToken != "" {
			if err := s.claimMembership(store, input.MembershipToken, user); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	if created {
		log.Printf("[ThreefoldAuth] Зарегистрирован новый пользователь ID=%d username=%s", user.ID, user.Username)
		s.fireRegistrationSideEffects(user)
	}

	return user, nil
}

// resolveUser реализует дерево решений (первое совпадение выигрывает):
//  1. связка (threefold, external id) уже существует → вернуть ее владельца,
//     внешний профиль НЕ обновляет локальную учетную запись;
//  2. пользователь с таким email существует → привязать к нему связку,
//     username/full name/bio не трогаются;
//  3. создать нового пользователя с уникальным username и новую связку.
func (s *ThreefoldAuthService) resolveUser(store repository.Store, input RegisterInput) (*entity.User, bool, error) {
	externalID := strconv.FormatInt(input.ThreefoldID, 10)

	identity, err := store.Identities().GetByKeyValue(threefoldKey, externalID)
	if err == nil {
		user, userErr := store.Users().GetByID(identity.UserID)
		if userErr != nil {
			return nil, false, userErr
		}
		return user, false, nil
	}
	if !errors.Is(err, apperrors.ErrNotFound) {
		return nil, false, err
	}

	existing, err := store.Users().GetByEmail(input.Email)
	if err == nil {
		link := &entity.UserIdentity{UserID: existing.ID, Key: threefoldKey, Value: externalID}
		if createErr := store.Identities().Create(link); createErr != nil {
			return nil, false, createErr
		}
		return existing, false, nil
	}
	if !errors.Is(err, apperrors.ErrNotFound) {
		return nil, false, err
	}

	username, err := slugifyUniquely(input.Username, func(candidate string) (bool, error) {
		_, lookupErr := store.Users().GetByUsername(candidate)
		if lookupErr == nil {
			return true, nil
		}
		if errors.Is(lookupErr, apperrors.ErrNotFound) {
			return false, nil
		}
		return false, lookupErr
	})
	if err != nil {
		return nil, false, err
	}

	// Парольный вход для таких учеток не используется, но колонка обязательна
	randomPassword, err := generateRandomHex(32)
	if err != nil {
		return nil, false, err
	}

	user := &entity.User{
		Username: username,
		Email:    input.Email,
		Password: randomPassword,
		FullName: input.FullName,
		Bio:      input.Bio,
	}
	if err := store.Users().Create(user); err != nil {
		return nil, false, fmt.Errorf("failed to create user from threefold auth: %w", err)
	}

	link := &entity.UserIdentity{UserID: user.ID, Key: threefoldKey, Value: externalID}
	if err := store.Identities().Create(link); err != nil {
		return nil, false, err
	}

	return user, true, nil
}

// claimMembership принимает приглашение в проект по одноразовому токену.
func (s *ThreefoldAuthService) claimMembership(store repository.Store, token string, user *entity.User) error {
	membership, err := store.Memberships().GetByToken(token)
	if err != nil {
		return err
	}

	if membership.IsClaimed() {
		return fmt.Errorf("%w: %s", apperrors.ErrConflict, membershipClaimedMessage)
	}

	if err := store.Memberships().ClaimForUser(membership.ID, user.ID); err != nil {
		if errors.Is(err, apperrors.ErrConflict) {
			return fmt.Errorf("%w: %s", apperrors.ErrConflict, membershipClaimedMessage)
		}
		return err
	}
	return nil
}

// fireRegistrationSideEffects асинхронно рассылает событие о регистрации и
// приветственное письмо. Ошибки здесь никогда не влияют на результат логина.
func (s *ThreefoldAuthService) fireRegistrationSideEffects(user *entity.User) {
	notifier := s.notifier
	emailService := s.emailService
	registered := *user

	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()

		if err := notifier.UserRegistered(ctx, &registered); err != nil {
			log.Printf("[ThreefoldAuth] Не удалось опубликовать событие user_registered для ID=%d: %v", registered.ID, err)
		}
		if err := emailService.SendRegistrationEmail(ctx, registered.Email, registered.FullName); err != nil {
			log.Printf("[ThreefoldAuth] Не удалось отправить письмо о регистрации на %s: %v", registered.Email, err)
		}
	}()
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

func generateRandomHex(byteLen int) (string, error) {
	if byteLen <= 0 {
		byteLen = 16
	}
	buf := make([]byte, byteLen)
	if _, err := rand.Read(buf); err != nil {
		return "", err
	}
	return hex.EncodeToString(buf), nil
}
