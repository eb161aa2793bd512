// Package mockserver is an in-process fake of the backend endpoints a load
// test talks to: login, register and the two device webhooks.
//
// It is used by the test suites and by the "hookload mock" command for
// trying the harness without a real backend.
package mockserver

import (
	"encoding/json"
	"io"
	"net/http"
	"strings"
	"sync/atomic"
	"time"

	"github.com/tidwall/gjson"

	hhttp "github.com/rakta/hookload/internal/http"
	"github.com/rakta/hookload/internal/payload"
)

// DefaultToken is the bearer token issued when Options.Token is empty.
const DefaultToken = "mock-token"

// Options configures the fake backend.
type Options struct {
	// Email and Password are the only accepted login. Empty accepts any.
	Email    string
	Password string

	// Token is issued on login and required on webhook calls.
	Token string

	// TokenKey is the response field carrying the token. Defaults to
	// "accessToken".
	TokenKey string

	// FailEvery makes every Nth webhook call answer 500. Zero disables.
	FailEvery int

	// Latency is added to every webhook call.
	Latency time.Duration

	// Validate rejects webhook bodies that violate the payload schema.
	Validate bool
}

// Counters is a point-in-time view of the server's request counts.
type Counters struct {
	Logins        int64 `json:"logins"`
	Registrations int64 `json:"registrations"`
	Webhooks      int64 `json:"webhooks"`
	Garmin        int64 `json:"garmin"`
	Apple         int64 `json:"apple"`
	Rejected      int64 `json:"rejected"`
	MaxInFlight   int64 `json:"maxInFlight"`
}

// Server implements http.Handler.
type Server struct {
	opts Options
	mux  *http.ServeMux

	logins        atomic.Int64
	registrations atomic.Int64
	webhooks      atomic.Int64
	garmin        atomic.Int64
	apple         atomic.Int64
	rejected      atomic.Int64
	inFlight      atomic.Int64
	maxInFlight   atomic.Int64
}

// New creates a server with the given options.
func New(opts Options) *Server {
	if opts.Token == "" {
		opts.Token = DefaultToken
	}
	if opts.TokenKey == "" {
		opts.TokenKey = "accessToken"
	}

	s := &Server{opts: opts, mux: http.NewServeMux()}
	s.mux.HandleFunc("POST "+hhttp.LoginPath, s.handleLogin)
	s.mux.HandleFunc("POST "+hhttp.RegisterPath, s.handleRegister)
	for _, f := range payload.Formats() {
		s.mux.HandleFunc("POST "+f.Path(), s.webhookHandler(f))
	}
	return s
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.mux.ServeHTTP(w, r)
}

// Counters returns the current request counts.
func (s *Server) Counters() Counters {
	return Counters{
		Logins:        s.logins.Load(),
		Registrations: s.registrations.Load(),
		Webhooks:      s.webhooks.Load(),
		Garmin:        s.garmin.Load(),
		Apple:         s.apple.Load(),
		Rejected:      s.rejected.Load(),
		MaxInFlight:   s.maxInFlight.Load(),
	}
}

// Token returns the token the server issues and accepts.
func (s *Server) Token() string {
	return s.opts.Token
}

func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	s.logins.Add(1)

	body, err := io.ReadAll(r.Body)
	if err != nil || !gjson.ValidBytes(body) {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid JSON"})
		return
	}

	email := gjson.GetBytes(body, "email").String()
	password := gjson.GetBytes(body, "password").String()
	if !s.credentialsMatch(email, password) {
		writeJSON(w, http.StatusUnauthorized, map[string]string{"error": "Invalid credentials"})
		return
	}

	writeJSON(w, http.StatusOK, map[string]string{s.opts.TokenKey: s.opts.Token})
}

func (s *Server) handleRegister(w http.ResponseWriter, r *http.Request) {
	s.registrations.Add(1)

	body, err := io.ReadAll(r.Body)
	if err != nil || !gjson.ValidBytes(body) {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid JSON"})
		return
	}

	fields := gjson.GetManyBytes(body, "name", "email", "password")
	for i, name := range []string{"name", "email", "password"} {
		if fields[i].String() == "" {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": name + " is required"})
			return
		}
	}

	writeJSON(w, http.StatusCreated, map[string]string{"token": s.opts.Token})
}

func (s *Server) webhookHandler(f payload.Format) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		cur := s.inFlight.Add(1)
		defer s.inFlight.Add(-1)
		s.trackPeak(cur)

		n := s.webhooks.Add(1)
		switch f {
		case payload.FormatGarmin:
			s.garmin.Add(1)
		case payload.FormatApple:
			s.apple.Add(1)
		}

		if r.Header.Get("Authorization") != "Bearer "+s.opts.Token {
			s.rejected.Add(1)
			writeJSON(w, http.StatusUnauthorized, map[string]string{"error": "Unauthorized"})
			return
		}

		body, err := io.ReadAll(r.Body)
		if err != nil {
			s.rejected.Add(1)
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": err.Error()})
			return
		}

		if s.opts.Latency > 0 {
			select {
			case <-time.After(s.opts.Latency):
			case <-r.Context().Done():
				return
			}
		}

		if s.opts.Validate {
			if err := payload.Validate(f, body); err != nil {
				s.rejected.Add(1)
				writeJSON(w, http.StatusBadRequest, map[string]string{"error": err.Error()})
				return
			}
		}

		if s.opts.FailEvery > 0 && n%int64(s.opts.FailEvery) == 0 {
			s.rejected.Add(1)
			writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "simulated failure"})
			return
		}

		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	}
}

func (s *Server) credentialsMatch(email, password string) bool {
	if s.opts.Email == "" && s.opts.Password == "" {
		return email != "" && password != ""
	}
	return strings.EqualFold(email, s.opts.Email) && password == s.opts.Password
}

func (s *Server) trackPeak(cur int64) {
	for {
		peak := s.maxInFlight.Load()
		if cur <= peak || s.maxInFlight.CompareAndSwap(peak, cur) {
			return
		}
	}
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
