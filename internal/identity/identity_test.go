package identity

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"laptopkita/internal/config"
)

func signedToken(t *testing.T, claims jwt.MapClaims) string {
	t.Helper()
	s, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte("test-key"))
	require.NoError(t, err)
	return s
}

func TestSessionFromIDToken(t *testing.T) {
	t.Run("maps profile claims", func(t *testing.T) {
		raw := signedToken(t, jwt.MapClaims{"email": "a@x.com", "name": "Ayu", "picture": "https://img/a.png"})
		s, err := SessionFromIDToken(raw)
		require.NoError(t, err)
		assert.Equal(t, "a@x.com", s.Email)
		assert.Equal(t, "Ayu", s.Name)
		assert.Equal(t, "https://img/a.png", s.PhotoURL)
	})

	t.Run("missing name is allowed", func(t *testing.T) {
		s, err := SessionFromIDToken(signedToken(t, jwt.MapClaims{"email": "a@x.com"}))
		require.NoError(t, err)
		assert.Empty(t, s.Name)
		assert.True(t, s.SignedIn())
	})

	t.Run("email is required", func(t *testing.T) {
		_, err := SessionFromIDToken(signedToken(t, jwt.MapClaims{"name": "Ayu"}))
		assert.ErrorIs(t, err, ErrNoEmail)
	})

	t.Run("garbage is rejected", func(t *testing.T) {
		_, err := SessionFromIDToken("not-a-jwt")
		assert.Error(t, err)
	})
}

func TestDeviceSignIn(t *testing.T) {
	idToken := signedToken(t, jwt.MapClaims{"email": "dev@x.com", "name": "Dev"})
	var tokenCalls atomic.Int32

	mux := http.NewServeMux()
	mux.HandleFunc("/device/code", func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, r.ParseForm())
		assert.Equal(t, "client-1", r.Form.Get("client_id"))
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]any{
			"device_code":      "dc",
			"user_code":        "ABCD-EFGH",
			"verification_uri": "https://example.test/device",
			"expires_in":       60,
			"interval":         1,
		})
	})
	mux.HandleFunc("/token", func(w http.ResponseWriter, r *http.Request) {
		tokenCalls.Add(1)
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]any{
			"access_token": "at",
			"token_type":   "Bearer",
			"expires_in":   3600,
			"id_token":     idToken,
		})
	})
	ts := httptest.NewServer(mux)
	defer ts.Close()

	d := NewDeviceSignIn(config.GoogleConfig{
		ClientID:      "client-1",
		DeviceAuthURL: ts.URL + "/device/code",
		TokenURL:      ts.URL + "/token",
		Scopes:        []string{"openid", "email"},
	})

	var gotCode, gotURL string
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	s, err := d.SignIn(ctx, func(code, url string) { gotCode, gotURL = code, url })
	require.NoError(t, err)
	assert.Equal(t, "ABCD-EFGH", gotCode)
	assert.Equal(t, "https://example.test/device", gotURL)
	assert.Equal(t, "dev@x.com", s.Email)
	assert.Equal(t, "Dev", s.Name)
	assert.GreaterOrEqual(t, tokenCalls.Load(), int32(1))
}
