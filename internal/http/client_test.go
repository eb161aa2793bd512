package http

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestClient_Do(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/api/webhooks/garmin", r.URL.Path)
		assert.Equal(t, "Bearer tok", r.Header.Get("Authorization"))
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))
		assert.Equal(t, "hookload-test", r.Header.Get("User-Agent"))

		body, _ := io.ReadAll(r.Body)
		assert.JSONEq(t, `{"a":1}`, string(body))

		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"message":"success"}`))
	}))
	defer server.Close()

	client := NewClient(
		WithTimeout(5*time.Second),
		WithHeader("User-Agent", "hookload-test"),
		WithBaseURL(server.URL),
	)

	req := NewRequest(http.MethodPost, "/api/webhooks/garmin").
		WithBearer("tok").
		WithBody(map[string]int{"a": 1})

	resp, err := client.Do(context.Background(), req)
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.True(t, resp.IsSuccess())
	assert.Equal(t, "success", resp.Get("message").String())
	assert.Greater(t, resp.ResponseTime, time.Duration(0))
}

func TestClient_ReusesConnections(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	client := NewClient(WithBaseURL(server.URL), WithPoolSize(4))
	defer client.CloseIdleConnections()

	first, err := client.Do(context.Background(), NewRequest(http.MethodGet, "/"))
	require.NoError(t, err)
	assert.False(t, first.ConnReused)

	second, err := client.Do(context.Background(), NewRequest(http.MethodGet, "/"))
	require.NoError(t, err)
	assert.True(t, second.ConnReused)
}

func TestClient_Timeout(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		time.Sleep(200 * time.Millisecond)
	}))
	defer server.Close()

	client := NewClient(WithBaseURL(server.URL), WithTimeout(20*time.Millisecond))
	_, err := client.Do(context.Background(), NewRequest(http.MethodGet, "/slow"))
	require.Error(t, err)
}

func TestRequest_Build(t *testing.T) {
	tests := []struct {
		name        string
		baseURL     string
		path        string
		expectedURL string
	}{
		{"plain host", "http://localhost:8080", "/api/auth/login", "http://localhost:8080/api/auth/login"},
		{"trailing slash", "http://localhost:8080/", "/api/auth/login", "http://localhost:8080/api/auth/login"},
		{"base with prefix", "https://example.com/backend", "/api/webhooks/apple", "https://example.com/backend/api/webhooks/apple"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req, err := NewRequest(http.MethodGet, tt.path).Build(context.Background(), tt.baseURL)
			require.NoError(t, err)
			assert.Equal(t, tt.expectedURL, req.URL.String())
		})
	}
}

func TestTruncate(t *testing.T) {
	assert.Equal(t, "abc", Truncate("abcdef", 3))
	assert.Equal(t, "abc", Truncate("abc", 100))
	assert.Equal(t, "", Truncate("abc", 0))
	assert.Equal(t, "héé", Truncate("héééé", 3))
}

func newAuthServer(t *testing.T, status int, body string) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var creds Credentials
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&creds))
		assert.Equal(t, "test@rakta.app", creds.Email)
		w.WriteHeader(status)
		_, _ = w.Write([]byte(body))
	}))
}

func TestLogin(t *testing.T) {
	tests := []struct {
		name      string
		status    int
		body      string
		wantToken string
		wantKind  AuthErrorKind
	}{
		{"access token", http.StatusOK, `{"accessToken":"abc","token":"old"}`, "abc", ""},
		{"fallback token", http.StatusOK, `{"token":"xyz"}`, "xyz", ""},
		{"empty access token falls back", http.StatusOK, `{"accessToken":"","token":"xyz"}`, "xyz", ""},
		{"unauthorized", http.StatusUnauthorized, `{"error":"bad credentials"}`, "", AuthStatus},
		{"no token", http.StatusOK, `{"user":"me"}`, "", AuthMalformed},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			server := newAuthServer(t, tt.status, tt.body)
			defer server.Close()

			client := NewClient(WithBaseURL(server.URL))
			token, err := client.Login(context.Background(), Credentials{Email: "test@rakta.app", Password: "pw"})

			if tt.wantKind == "" {
				require.NoError(t, err)
				assert.Equal(t, tt.wantToken, token)
				return
			}

			require.Error(t, err)
			var authErr *AuthError
			require.True(t, errors.As(err, &authErr))
			assert.Equal(t, tt.wantKind, authErr.Kind)
			assert.Empty(t, token)
			if tt.wantKind == AuthStatus {
				assert.Equal(t, tt.status, authErr.StatusCode)
				assert.Contains(t, authErr.Error(), "401")
			}
		})
	}
}

func TestLogin_TransportError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	url := server.URL
	server.Close()

	client := NewClient(WithBaseURL(url), WithTimeout(time.Second))
	_, err := client.Login(context.Background(), Credentials{Email: "a", Password: "b"})
	require.Error(t, err)

	var authErr *AuthError
	require.True(t, errors.As(err, &authErr))
	assert.Equal(t, AuthTransport, authErr.Kind)
	assert.Zero(t, authErr.StatusCode)
	assert.NotNil(t, errors.Unwrap(err))
}

func TestRegister_AcceptsCreated(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, RegisterPath, r.URL.Path)
		var reg Registration
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&reg))
		assert.Equal(t, "Load Tester", reg.Name)
		w.WriteHeader(http.StatusCreated)
		_, _ = w.Write([]byte(`{"token":"new-user"}`))
	}))
	defer server.Close()

	client := NewClient(WithBaseURL(server.URL))
	token, err := client.Register(context.Background(), Registration{
		Name:     "Load Tester",
		Email:    "load@rakta.app",
		Password: "pw",
	})
	require.NoError(t, err)
	assert.Equal(t, "new-user", token)
}

func TestExtractToken(t *testing.T) {
	assert.Equal(t, "a", ExtractToken([]byte(`{"accessToken":"a"}`)))
	assert.Equal(t, "b", ExtractToken([]byte(`{"token":"b"}`)))
	assert.Equal(t, "", ExtractToken([]byte(`not json`)))
}
