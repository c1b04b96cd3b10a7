package service

import (
	"context"
	"crypto/rand"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/nacl/sign"

	"github.com/yourusername/tracker-api/internal/config"
	apperrors "github.com/yourusername/tracker-api/internal/pkg/errors"
)

// memoryCache — минимальная in-memory реализация repository.CacheRepository
type memoryCache struct {
	data map[string][]byte
}

func newMemoryCache() *memoryCache {
	return &memoryCache{data: map[string][]byte{}}
}

func (c *memoryCache) Set(ctx context.Context, key string, value interface{}, expiration time.Duration) error {
	c.data[key] = []byte(fmt.Sprintf("%v", value))
	return nil
}

func (c *memoryCache) Get(ctx context.Context, key string) (string, error) {
	v, ok := c.data[key]
	if !ok {
		return "", apperrors.ErrNotFound
	}
	return string(v), nil
}

func (c *memoryCache) Delete(ctx context.Context, key string) error {
	delete(c.data, key)
	return nil
}

func (c *memoryCache) SetJSON(ctx context.Context, key string, value interface{}, expiration time.Duration) error {
	data, err := json.Marshal(value)
	if err != nil {
		return err
	}
	c.data[key] = data
	return nil
}

func (c *memoryCache) GetJSON(ctx context.Context, key string, dest interface{}) error {
	data, ok := c.data[key]
	if !ok {
		return apperrors.ErrNotFound
	}
	return json.Unmarshal(data, dest)
}

func (c *memoryCache) SetNX(ctx context.Context, key string, value interface{}, expiration time.Duration) (bool, error) {
	if _, ok := c.data[key]; ok {
		return false, nil
	}
	return true, c.Set(ctx, key, value, expiration)
}

// connectorFixture поднимает identity API с одним пользователем и возвращает
// сервис + функцию для изготовления подписанных попыток
type connectorFixture struct {
	connector *ThreefoldConnectorService
	requests  *int64
	signer    func(payload attemptPayload) string
}

func newConnectorFixture(t *testing.T, doubleName string, userID int64) *connectorFixture {
	t.Helper()

	publicKey, privateKey, err := sign.GenerateKey(rand.Reader)
	require.NoError(t, err)

	var requests int64
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt64(&requests, 1)
		if r.URL.Path != "/api/users/"+doubleName {
			w.WriteHeader(http.StatusNotFound)
			fmt.Fprint(w, `{"error": "user not found"}`)
			return
		}
		json.NewEncoder(w).Encode(map[string]interface{}{
			"id":         userID,
			"doublename": doubleName,
			"publicKey":  base64.StdEncoding.EncodeToString(publicKey[:]),
		})
	}))
	t.Cleanup(server.Close)

	connector, err := NewThreefoldConnectorService(config.ThreefoldConfig{
		APIBaseURL:        server.URL,
		PubKeyCacheTTLMin: 60,
	}, newMemoryCache())
	require.NoError(t, err)

	signer := func(payload attemptPayload) string {
		body, err := json.Marshal(payload)
		require.NoError(t, err)
		signed := sign.Sign(nil, body, privateKey)

		envelope, err := json.Marshal(signedAttemptEnvelope{
			DoubleName:    doubleName,
			SignedAttempt: base64.StdEncoding.EncodeToString(signed),
		})
		require.NoError(t, err)
		return string(envelope)
	}

	return &connectorFixture{connector: connector, requests: &requests, signer: signer}
}

func mcflyPayload() attemptPayload {
	payload := attemptPayload{
		DoubleName: "mmcfly.3bot",
		State:      "state-123",
		FullName:   "martin seamus mcfly",
		Bio:        "time traveler",
	}
	payload.Email.Address = "mmcfly@bttf.com"
	payload.Email.Verified = true
	return payload
}

func TestConnectorMe_ValidAttempt(t *testing.T) {
	fx := newConnectorFixture(t, "mmcfly.3bot", 1955)

	email, profile, err := fx.connector.Me(context.Background(), fx.signer(mcflyPayload()), "state-123", "")
	require.NoError(t, err)

	assert.Equal(t, "mmcfly@bttf.com", email)
	assert.Equal(t, int64(1955), profile.ID)
	assert.Equal(t, "mmcfly", profile.Username, "суффикс .3bot отбрасывается")
	assert.Equal(t, "martin seamus mcfly", profile.FullName)
	assert.Equal(t, "time traveler", profile.Bio)
}

func TestConnectorMe_PublicKeyIsCached(t *testing.T) {
	fx := newConnectorFixture(t, "mmcfly.3bot", 1955)

	_, _, err := fx.connector.Me(context.Background(), fx.signer(mcflyPayload()), "state-123", "")
	require.NoError(t, err)
	_, _, err = fx.connector.Me(context.Background(), fx.signer(mcflyPayload()), "state-123", "")
	require.NoError(t, err)

	assert.Equal(t, int64(1), atomic.LoadInt64(fx.requests), "второй логин должен использовать кеш ключа")
}

func TestConnectorMe_TamperedSignature(t *testing.T) {
	fx := newConnectorFixture(t, "mmcfly.3bot", 1955)

	// Подменяем подписанные данные
	var envelope signedAttemptEnvelope
	require.NoError(t, json.Unmarshal([]byte(fx.signer(mcflyPayload())), &envelope))
	raw, err := base64.StdEncoding.DecodeString(envelope.SignedAttempt)
	require.NoError(t, err)
	raw[len(raw)-1] ^= 0xFF
	envelope.SignedAttempt = base64.StdEncoding.EncodeToString(raw)
	tampered, err := json.Marshal(envelope)
	require.NoError(t, err)

	_, _, err = fx.connector.Me(context.Background(), string(tampered), "state-123", "")
	assert.ErrorIs(t, err, ErrThreefoldVerificationFailed)
}

func TestConnectorMe_StateMismatch(t *testing.T) {
	fx := newConnectorFixture(t, "mmcfly.3bot", 1955)

	_, _, err := fx.connector.Me(context.Background(), fx.signer(mcflyPayload()), "other-state", "")
	assert.ErrorIs(t, err, ErrThreefoldVerificationFailed)
}

func TestConnectorMe_UnknownUser(t *testing.T) {
	fx := newConnectorFixture(t, "mmcfly.3bot", 1955)

	envelope, err := json.Marshal(signedAttemptEnvelope{
		DoubleName:    "biff.3bot",
		SignedAttempt: base64.StdEncoding.EncodeToString([]byte("whatever")),
	})
	require.NoError(t, err)

	_, _, err = fx.connector.Me(context.Background(), string(envelope), "", "")
	assert.ErrorIs(t, err, apperrors.ErrNotFound)
}

func TestConnectorMe_MalformedAttempt(t *testing.T) {
	fx := newConnectorFixture(t, "mmcfly.3bot", 1955)

	tests := []struct {
		name    string
		attempt string
	}{
		{"empty", ""},
		{"not json", "not-json"},
		{"missing fields", `{"doubleName": ""}`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, _, err := fx.connector.Me(context.Background(), tt.attempt, "", "")
			assert.ErrorIs(t, err, ErrThreefoldVerificationFailed)
		})
	}
}

func TestConnectorMe_MissingEmail(t *testing.T) {
	fx := newConnectorFixture(t, "mmcfly.3bot", 1955)

	payload := mcflyPayload()
	payload.Email.Address = ""

	_, _, err := fx.connector.Me(context.Background(), fx.signer(payload), "state-123", "")
	assert.ErrorIs(t, err, ErrThreefoldVerificationFailed)
}
