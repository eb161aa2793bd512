package http

import (
	"context"
	"fmt"
	"net/http"
)

// Backend authentication endpoints.
const (
	LoginPath    = "/api/auth/login"
	RegisterPath = "/api/auth/register"
)

// Token keys checked in order in a successful auth response.
var tokenKeys = []string{"accessToken", "token"}

// Credentials are the email/password pair used to log in.
type Credentials struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// Registration is the body accepted by the register endpoint.
type Registration struct {
	Name     string  `json:"name"`
	Email    string  `json:"email"`
	Password string  `json:"password"`
	Age      int     `json:"age,omitempty"`
	Gender   string  `json:"gender,omitempty"`
	Weight   float64 `json:"weight,omitempty"`
	City     string  `json:"city,omitempty"`
}

// AuthErrorKind classifies why an authentication call failed.
type AuthErrorKind string

const (
	// AuthTransport means no response was received.
	AuthTransport AuthErrorKind = "transport"
	// AuthStatus means the backend answered with a non-2xx status.
	AuthStatus AuthErrorKind = "status"
	// AuthMalformed means a 2xx response carried no usable token.
	AuthMalformed AuthErrorKind = "malformed"
)

// AuthError is returned by Login and Register.
type AuthError struct {
	Op         string
	Kind       AuthErrorKind
	StatusCode int
	Body       string
	Err        error
}

func (e *AuthError) Error() string {
	switch e.Kind {
	case AuthTransport:
		return fmt.Sprintf("%s: request failed: %v", e.Op, e.Err)
	case AuthStatus:
		return fmt.Sprintf("%s: %d - %s", e.Op, e.StatusCode, e.Body)
	default:
		return fmt.Sprintf("%s: response has no token (keys %v)", e.Op, tokenKeys)
	}
}

func (e *AuthError) Unwrap() error {
	return e.Err
}

// Login performs the single login exchange and returns the bearer token.
func (c *Client) Login(ctx context.Context, creds Credentials) (string, error) {
	req := NewRequest(http.MethodPost, LoginPath).WithBody(creds)
	return c.authenticate(ctx, "login", req, http.StatusOK)
}

// Register creates a user account and returns the token issued for it.
func (c *Client) Register(ctx context.Context, reg Registration) (string, error) {
	req := NewRequest(http.MethodPost, RegisterPath).WithBody(reg)
	return c.authenticate(ctx, "register", req, http.StatusOK, http.StatusCreated)
}

func (c *Client) authenticate(ctx context.Context, op string, req *Request, accept ...int) (string, error) {
	resp, err := c.Do(ctx, req)
	if err != nil {
		return "", &AuthError{Op: op, Kind: AuthTransport, Err: err}
	}

	if !resp.IsSuccess() || !statusIn(resp.StatusCode, accept) {
		return "", &AuthError{
			Op:         op,
			Kind:       AuthStatus,
			StatusCode: resp.StatusCode,
			Body:       resp.Snippet(200),
		}
	}

	token := ExtractToken(resp.Body())
	if token == "" {
		return "", &AuthError{Op: op, Kind: AuthMalformed, StatusCode: resp.StatusCode}
	}
	return token, nil
}

// ExtractToken reads the bearer token from an auth response body, checking
// "accessToken" first and falling back to "token".
func ExtractToken(body []byte) string {
	r := &Response{body: body}
	for _, key := range tokenKeys {
		if v := r.Get(key); v.Exists() && v.String() != "" {
			return v.String()
		}
	}
	return ""
}

func statusIn(code int, accept []int) bool {
	for _, a := range accept {
		if code == a {
			return true
		}
	}
	return false
}
