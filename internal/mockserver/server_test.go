package mockserver

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	hhttp "github.com/rakta/hookload/internal/http"
	"github.com/rakta/hookload/internal/payload"
)

func newClient(t *testing.T, s *Server) *hhttp.Client {
	t.Helper()
	ts := httptest.NewServer(s)
	t.Cleanup(ts.Close)
	return hhttp.NewClient(hhttp.WithBaseURL(ts.URL), hhttp.WithTimeout(5*time.Second))
}

func TestLogin(t *testing.T) {
	s := New(Options{Email: "test@rakta.app", Password: "password123", Token: "abc"})
	client := newClient(t, s)

	token, err := client.Login(context.Background(), hhttp.Credentials{Email: "test@rakta.app", Password: "password123"})
	require.NoError(t, err)
	assert.Equal(t, "abc", token)

	_, err = client.Login(context.Background(), hhttp.Credentials{Email: "test@rakta.app", Password: "wrong"})
	require.Error(t, err)

	var authErr *hhttp.AuthError
	require.ErrorAs(t, err, &authErr)
	assert.Equal(t, http.StatusUnauthorized, authErr.StatusCode)
	assert.Equal(t, int64(2), s.Counters().Logins)
}

func TestLoginTokenKey(t *testing.T) {
	s := New(Options{TokenKey: "token", Token: "fallback"})
	client := newClient(t, s)

	token, err := client.Login(context.Background(), hhttp.Credentials{Email: "a@b.c", Password: "x"})
	require.NoError(t, err)
	assert.Equal(t, "fallback", token)
}

func TestRegister(t *testing.T) {
	s := New(Options{})
	client := newClient(t, s)

	token, err := client.Register(context.Background(), hhttp.Registration{Name: "Load Test", Email: "lt@rakta.app", Password: "pw"})
	require.NoError(t, err)
	assert.Equal(t, DefaultToken, token)

	_, err = client.Register(context.Background(), hhttp.Registration{Email: "lt@rakta.app", Password: "pw"})
	require.Error(t, err)
	assert.Equal(t, int64(2), s.Counters().Registrations)
}

func TestWebhook(t *testing.T) {
	gen := payload.NewGenerator(7, time.Now)

	tests := []struct {
		name       string
		opts       Options
		token      string
		body       interface{}
		format     payload.Format
		wantStatus int
	}{
		{
			name:       "garmin accepted",
			opts:       Options{Validate: true},
			token:      DefaultToken,
			body:       gen.Garmin(),
			format:     payload.FormatGarmin,
			wantStatus: http.StatusOK,
		},
		{
			name:       "apple accepted",
			opts:       Options{Validate: true},
			token:      DefaultToken,
			body:       gen.Apple(),
			format:     payload.FormatApple,
			wantStatus: http.StatusOK,
		},
		{
			name:       "wrong token",
			opts:       Options{},
			token:      "nope",
			body:       gen.Garmin(),
			format:     payload.FormatGarmin,
			wantStatus: http.StatusUnauthorized,
		},
		{
			name:       "schema violation",
			opts:       Options{Validate: true},
			token:      DefaultToken,
			body:       map[string]interface{}{"dailies": []interface{}{}},
			format:     payload.FormatGarmin,
			wantStatus: http.StatusBadRequest,
		},
		{
			name:       "apple body on garmin route",
			opts:       Options{Validate: true},
			token:      DefaultToken,
			body:       gen.Apple(),
			format:     payload.FormatGarmin,
			wantStatus: http.StatusBadRequest,
		},
		{
			name:       "every call fails",
			opts:       Options{FailEvery: 1},
			token:      DefaultToken,
			body:       gen.Apple(),
			format:     payload.FormatApple,
			wantStatus: http.StatusInternalServerError,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := New(tt.opts)
			client := newClient(t, s)

			req := hhttp.NewRequest(http.MethodPost, tt.format.Path()).WithBearer(tt.token).WithBody(tt.body)
			resp, err := client.Do(context.Background(), req)
			require.NoError(t, err)
			assert.Equal(t, tt.wantStatus, resp.StatusCode, resp.BodyString())

			c := s.Counters()
			assert.Equal(t, int64(1), c.Webhooks)
			if tt.wantStatus == http.StatusOK {
				assert.Zero(t, c.Rejected)
			} else {
				assert.Equal(t, int64(1), c.Rejected)
			}
		})
	}
}

func TestWebhookCountsByFormat(t *testing.T) {
	s := New(Options{})
	client := newClient(t, s)
	gen := payload.NewGenerator(1, time.Now)

	for i := 0; i < 20; i++ {
		p := gen.Next()
		req := hhttp.NewRequest(http.MethodPost, p.Format().Path()).WithBearer(DefaultToken).WithBody(p)
		resp, err := client.Do(context.Background(), req)
		require.NoError(t, err)
		require.Equal(t, http.StatusOK, resp.StatusCode)
	}

	c := s.Counters()
	assert.Equal(t, int64(20), c.Webhooks)
	assert.Equal(t, c.Webhooks, c.Garmin+c.Apple)
	assert.Equal(t, int64(1), c.MaxInFlight)
}

func TestUnknownRoute(t *testing.T) {
	s := New(Options{})
	rec := httptest.NewRecorder()
	s.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/api/webhooks/fitbit", nil))
	assert.Equal(t, http.StatusNotFound, rec.Code)
}
