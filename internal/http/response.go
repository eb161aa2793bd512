package http

import (
	"net/http"
	"time"

	"github.com/tidwall/gjson"
)

// Response represents an HTTP response whose body has been fully read.
type Response struct {
	StatusCode   int
	Status       string
	Headers      http.Header
	ResponseTime time.Duration

	// ConnReused reports whether the request ran on a pooled connection.
	ConnReused bool

	body []byte
}

// Body returns the raw response body.
func (r *Response) Body() []byte {
	return r.body
}

// BodyString returns the response body as a string.
func (r *Response) BodyString() string {
	return string(r.body)
}

// Snippet returns at most n characters of the body.
func (r *Response) Snippet(n int) string {
	return Truncate(string(r.body), n)
}

// Get looks up a gjson path in a JSON body.
func (r *Response) Get(path string) gjson.Result {
	return gjson.GetBytes(r.body, path)
}

// IsSuccess returns true if the response status code is in the 2xx range
func (r *Response) IsSuccess() bool {
	return r.StatusCode >= 200 && r.StatusCode < 300
}

// Truncate cuts s to at most n characters without splitting a rune.
func Truncate(s string, n int) string {
	if n <= 0 {
		return ""
	}
	if len(s) <= n {
		return s
	}
	count := 0
	for i := range s {
		if count == n {
			return s[:i]
		}
		count++
	}
	return s
}
