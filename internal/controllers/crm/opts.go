package crm

import (
	"log/slog"
	"net/http"
	"time"
)

// WithLogger sets a custom logger for the Controller instance to use for logging operations.
func WithLogger(logger *slog.Logger) Option {
	return func(c *Controller) {
		c.logger = logger
	}
}

// WithCredentials sets the upstream credentials used for token exchanges and server-credential calls.
func WithCredentials(credentials Credentials) Option {
	return func(c *Controller) {
		c.credentials = credentials
	}
}

// WithHTTPClient replaces the HTTP client used for upstream calls.
func WithHTTPClient(client *http.Client) Option {
	return func(c *Controller) {
		if client != nil {
			c.client = client
		}
	}
}

// WithTimeout bounds each upstream round trip. It has no effect when a custom HTTP client is supplied.
func WithTimeout(timeout time.Duration) Option {
	return func(c *Controller) {
		if timeout > 0 {
			c.timeout = timeout
		}
	}
}

// WithAPIBaseURL overrides the API base URL.
func WithAPIBaseURL(u string) Option {
	return func(c *Controller) {
		if u != "" {
			c.apiBaseURL = u
		}
	}
}

// WithTokenURL overrides the OAuth token endpoint.
func WithTokenURL(u string) Option {
	return func(c *Controller) {
		if u != "" {
			c.tokenURL = u
		}
	}
}

// WithAuthorizeURL overrides the OAuth authorization endpoint.
func WithAuthorizeURL(u string) Option {
	return func(c *Controller) {
		if u != "" {
			c.authorizeURL = u
		}
	}
}
