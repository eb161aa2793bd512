package config

import (
	"fmt"
	"net/url"
	"strings"
)

// ValidationError represents a configuration validation error.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	if e.Field != "" {
		return fmt.Sprintf("validation error on field '%s': %s", e.Field, e.Message)
	}
	return fmt.Sprintf("validation error: %s", e.Message)
}

// ValidationErrors is a collection of validation errors.
type ValidationErrors struct {
	Errors []*ValidationError
}

func (e *ValidationErrors) Error() string {
	if len(e.Errors) == 0 {
		return "no validation errors"
	}
	if len(e.Errors) == 1 {
		return e.Errors[0].Error()
	}

	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("%d validation errors:\n", len(e.Errors)))
	for i, err := range e.Errors {
		sb.WriteString(fmt.Sprintf("  %d. %s\n", i+1, err.Error()))
	}
	return sb.String()
}

// Add adds an error to the collection.
func (e *ValidationErrors) Add(field, message string) {
	e.Errors = append(e.Errors, &ValidationError{Field: field, Message: message})
}

// HasErrors returns true if there are any errors.
func (e *ValidationErrors) HasErrors() bool {
	return len(e.Errors) > 0
}

// Validate checks the configuration and reports every problem at once.
func (c *Config) Validate() error {
	errs := &ValidationErrors{}

	if c.BaseURL == "" {
		errs.Add("baseUrl", "base URL is required")
	} else if u, err := url.Parse(c.BaseURL); err != nil || u.Scheme == "" || u.Host == "" {
		errs.Add("baseUrl", fmt.Sprintf("invalid URL: %s", c.BaseURL))
	} else if u.Scheme != "http" && u.Scheme != "https" {
		errs.Add("baseUrl", fmt.Sprintf("unsupported scheme: %s", u.Scheme))
	}

	if c.Credentials.Email == "" {
		errs.Add("credentials.email", "email is required")
	}
	if c.Credentials.Password == "" {
		errs.Add("credentials.password", "password is required")
	}

	if c.Requests < 0 {
		errs.Add("requests", "must not be negative")
	}
	if c.Concurrency < 1 {
		errs.Add("concurrency", "must be at least 1")
	}
	if c.Timeout.Std() <= 0 {
		errs.Add("timeout", "must be positive")
	}
	if c.Rate < 0 {
		errs.Add("rate", "must not be negative")
	}
	if c.ProgressEvery < 0 {
		errs.Add("progressEvery", "must not be negative")
	}
	if c.PoolSize < 0 {
		errs.Add("poolSize", "must not be negative")
	} else if c.PoolSize > 0 && c.PoolSize < c.Concurrency {
		errs.Add("poolSize", fmt.Sprintf("must be at least concurrency (%d)", c.Concurrency))
	}

	if errs.HasErrors() {
		return errs
	}
	return nil
}
