package service

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"golang.org/x/crypto/nacl/sign"

	"github.com/yourusername/tracker-api/internal/config"
	"github.com/yourusername/tracker-api/internal/domain/repository"
	apperrors "github.com/yourusername/tracker-api/internal/pkg/errors"
)

// ThreefoldProfile is the verified external profile of a Threefold Connect user.
type ThreefoldProfile struct {
	ID       int64
	Username string
	FullName string
	Bio      string
}

// ThreefoldConnector verifies a signed login attempt and returns the verified
// email plus profile. The auth service treats it as a trusted black box.
type ThreefoldConnector interface {
	Me(ctx context.Context, signedAttempt, state, redirectURI string) (string, *ThreefoldProfile, error)
}

// ThreefoldConnectorService verifies signed attempts against public keys
// served by the Threefold identity API. Keys are cached to keep one login
// from costing two network round trips on every attempt.
type ThreefoldConnectorService struct {
	cfg        config.ThreefoldConfig
	cache      repository.CacheRepository
	httpClient *http.Client
}

func NewThreefoldConnectorService(cfg config.ThreefoldConfig, cache repository.CacheRepository) (*ThreefoldConnectorService, error) {
	if cfg.APIBaseURL == "" {
		return nil, fmt.Errorf("threefold api base url is required")
	}
	if cache == nil {
		return nil, fmt.Errorf("cache repository is required")
	}
	return &ThreefoldConnectorService{
		cfg:        cfg,
		cache:      cache,
		httpClient: &http.Client{Timeout: 10 * time.Second},
	}, nil
}

// signedAttemptEnvelope is the request-layer shape of a login attempt.
type signedAttemptEnvelope struct {
	DoubleName    string `json:"doubleName"`
	SignedAttempt string `json:"signedAttempt"`
}

// threefoldUserRecord is the identity API response for a doublename.
type threefoldUserRecord struct {
	ID         int64  `json:"id"`
	DoubleName string `json:"doublename"`
	PublicKey  string `json:"publicKey"`
}

// attemptPayload is the signed body produced by the Threefold Connect app.
type attemptPayload struct {
	DoubleName string `json:"doubleName"`
	State      string `json:"signedState"`
	Email      struct {
		Address  string `json:"email"`
		Verified bool   `json:"verified"`
	} `json:"email"`
	FullName string `json:"fullName"`
	Bio      string `json:"bio"`
}

// Me verifies the signed attempt and returns the verified email and profile.
func (s *ThreefoldConnectorService) Me(ctx context.Context, signedAttempt, state, redirectURI string) (string, *ThreefoldProfile, error) {
	signedAttempt = strings.TrimSpace(signedAttempt)
	if signedAttempt == "" {
		return "", nil, fmt.Errorf("%w: empty signed attempt", ErrThreefoldVerificationFailed)
	}

	var envelope signedAttemptEnvelope
	if err := json.Unmarshal([]byte(signedAttempt), &envelope); err != nil {
		return "", nil, fmt.Errorf("%w: malformed signed attempt: %v", ErrThreefoldVerificationFailed, err)
	}
	if strings.TrimSpace(envelope.DoubleName) == "" || strings.TrimSpace(envelope.SignedAttempt) == "" {
		return "", nil, fmt.Errorf("%w: doubleName and signedAttempt are required", ErrThreefoldVerificationFailed)
	}

	record, err := s.getUserRecord(ctx, envelope.DoubleName)
	if err != nil {
		return "", nil, err
	}

	payload, err := verifySignedAttempt(envelope.SignedAttempt, record.PublicKey)
	if err != nil {
		return "", nil, err
	}

	if !strings.EqualFold(strings.TrimSpace(payload.DoubleName), strings.TrimSpace(envelope.DoubleName)) {
		return "", nil, fmt.Errorf("%w: doubleName mismatch in signed payload", ErrThreefoldVerificationFailed)
	}
	if state != "" && payload.State != state {
		return "", nil, fmt.Errorf("%w: state mismatch", ErrThreefoldVerificationFailed)
	}

	email := strings.ToLower(strings.TrimSpace(payload.Email.Address))
	if email == "" {
		return "", nil, fmt.Errorf("%w: email is missing in signed payload", ErrThreefoldVerificationFailed)
	}

	profile := &ThreefoldProfile{
		ID:       record.ID,
		Username: strings.TrimSuffix(strings.TrimSpace(payload.DoubleName), ".3bot"),
		FullName: strings.TrimSpace(payload.FullName),
		Bio:      strings.TrimSpace(payload.Bio),
	}
	return email, profile, nil
}

func verifySignedAttempt(signedAttemptB64, publicKeyB64 string) (*attemptPayload, error) {
	signedData, err := base64.StdEncoding.DecodeString(signedAttemptB64)
	if err != nil {
		return nil, fmt.Errorf("%w: signed attempt is not base64: %v", ErrThreefoldVerificationFailed, err)
	}

	keyBytes, err := base64.StdEncoding.DecodeString(publicKeyB64)
	if err != nil || len(keyBytes) != 32 {
		return nil, fmt.Errorf("%w: invalid public key", ErrThreefoldVerificationFailed)
	}
	var publicKey [32]byte
	copy(publicKey[:], keyBytes)

	opened, ok := sign.Open(nil, signedData, &publicKey)
	if !ok {
		return nil, fmt.Errorf("%w: signature verification failed", ErrThreefoldVerificationFailed)
	}

	var payload attemptPayload
	if err := json.Unmarshal(opened, &payload); err != nil {
		return nil, fmt.Errorf("%w: malformed signed payload: %v", ErrThreefoldVerificationFailed, err)
	}
	return &payload, nil
}

// getUserRecord returns the identity record for a doublename, cache first.
func (s *ThreefoldConnectorService) getUserRecord(ctx context.Context, doubleName string) (*threefoldUserRecord, error) {
	cacheKey := "threefold:user:" + strings.ToLower(doubleName)

	var cached threefoldUserRecord
	if err := s.cache.GetJSON(ctx, cacheKey, &cached); err == nil && cached.PublicKey != "" {
		return &cached, nil
	}

	record, err := s.fetchUserRecord(ctx, doubleName)
	if err != nil {
		return nil, err
	}

	ttl := time.Duration(s.cfg.PubKeyCacheTTLMin) * time.Minute
	if ttl <= 0 {
		ttl = time.Hour
	}
	// Кеш не критичен: при ошибке записи логин все равно продолжается
	_ = s.cache.SetJSON(ctx, cacheKey, record, ttl)

	return record, nil
}

func (s *ThreefoldConnectorService) fetchUserRecord(ctx context.Context, doubleName string) (*threefoldUserRecord, error) {
	endpoint := strings.TrimRight(s.cfg.APIBaseURL, "/") + "/api/users/" + url.PathEscape(doubleName)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create threefold user request: %w", err)
	}

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: failed to fetch threefold user: %v", ErrThreefoldVerificationFailed, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		return nil, fmt.Errorf("%w: unknown threefold user %q", apperrors.ErrNotFound, doubleName)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 2048))
		return nil, fmt.Errorf("%w: threefold user lookup status=%d body=%s", ErrThreefoldVerificationFailed, resp.StatusCode, string(body))
	}

	var record threefoldUserRecord
	if err := json.NewDecoder(resp.Body).Decode(&record); err != nil {
		return nil, fmt.Errorf("failed to decode threefold user response: %w", err)
	}
	if strings.TrimSpace(record.PublicKey) == "" {
		return nil, fmt.Errorf("%w: threefold user record has no public key", ErrThreefoldVerificationFailed)
	}
	return &record, nil
}
