// Package config holds the load test configuration.
//
// Values are resolved in layers: built-in defaults, an optional YAML or JSON
// file, HOOKLOAD_* environment variables, then command-line flags.
//
// Example YAML:
//
//	baseUrl: "http://localhost:8080"
//	credentials:
//	  email: "test@rakta.app"
//	  password: "password123"
//	requests: 10000
//	concurrency: 50
//	timeout: 30s
package config

import (
	"time"
)

// Defaults match the backend's seeded test user and the reference volume
// test of 10,000 requests at 50 in flight.
const (
	DefaultBaseURL       = "http://localhost:8080"
	DefaultEmail         = "test@rakta.app"
	DefaultPassword      = "password123"
	DefaultRequests      = 10000
	DefaultConcurrency   = 50
	DefaultTimeout       = 30 * time.Second
	DefaultProgressEvery = 1000

	// poolHeadroom is added to the concurrency bound when sizing the
	// connection pool.
	poolHeadroom = 10
)

// Config is the complete run configuration.
type Config struct {
	// BaseURL of the backend, without a trailing path
	BaseURL string `json:"baseUrl" yaml:"baseUrl"`

	// Credentials used for the single login call
	Credentials Credentials `json:"credentials" yaml:"credentials"`

	// Requests is the total number of webhook calls to send
	Requests int `json:"requests" yaml:"requests"`

	// Concurrency is the maximum number of requests in flight
	Concurrency int `json:"concurrency" yaml:"concurrency"`

	// Timeout applies to each request individually
	Timeout Duration `json:"timeout" yaml:"timeout"`

	// Rate caps request starts per second; 0 disables pacing
	Rate float64 `json:"rate,omitempty" yaml:"rate,omitempty"`

	// ProgressEvery prints a progress line after this many queued requests
	ProgressEvery int `json:"progressEvery,omitempty" yaml:"progressEvery,omitempty"`

	// Seed for payload generation; 0 picks a time-based seed
	Seed uint64 `json:"seed,omitempty" yaml:"seed,omitempty"`

	// PoolSize overrides the connection pool size (default concurrency+10)
	PoolSize int `json:"poolSize,omitempty" yaml:"poolSize,omitempty"`
}

// Credentials are the login email and password.
type Credentials struct {
	Email    string `json:"email" yaml:"email"`
	Password string `json:"password" yaml:"password"`
}

// Default returns a configuration with every field set to its default.
func Default() *Config {
	return &Config{
		BaseURL: DefaultBaseURL,
		Credentials: Credentials{
			Email:    DefaultEmail,
			Password: DefaultPassword,
		},
		Requests:      DefaultRequests,
		Concurrency:   DefaultConcurrency,
		Timeout:       Duration(DefaultTimeout),
		ProgressEvery: DefaultProgressEvery,
	}
}

// ConnectionPoolSize returns the number of pooled connections to keep.
func (c *Config) ConnectionPoolSize() int {
	if c.PoolSize > 0 {
		return c.PoolSize
	}
	return c.Concurrency + poolHeadroom
}

// Duration is a time.Duration that can be unmarshaled from JSON/YAML strings.
type Duration time.Duration

// Std returns the value as a time.Duration.
func (d Duration) Std() time.Duration {
	return time.Duration(d)
}

// MarshalJSON implements json.Marshaler.
func (d Duration) MarshalJSON() ([]byte, error) {
	return []byte(`"` + time.Duration(d).String() + `"`), nil
}

// UnmarshalJSON implements json.Unmarshaler.
func (d *Duration) UnmarshalJSON(b []byte) error {
	s := string(b)
	if len(s) >= 2 && s[0] == '"' && s[len(s)-1] == '"' {
		s = s[1 : len(s)-1]
	}
	if s == "null" {
		s = ""
	}
	dur, err := ParseDuration(s)
	if err != nil {
		return err
	}
	*d = Duration(dur)
	return nil
}

// MarshalYAML implements yaml.Marshaler.
func (d Duration) MarshalYAML() (interface{}, error) {
	return time.Duration(d).String(), nil
}

// UnmarshalYAML implements yaml.Unmarshaler.
func (d *Duration) UnmarshalYAML(unmarshal func(interface{}) error) error {
	var s string
	if err := unmarshal(&s); err != nil {
		return err
	}
	dur, err := ParseDuration(s)
	if err != nil {
		return err
	}
	*d = Duration(dur)
	return nil
}

// String returns the duration as a string.
func (d Duration) String() string {
	return time.Duration(d).String()
}
