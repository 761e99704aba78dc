// Package models provides the transport-neutral request and response types shared by the runtimes and the handler.
package models

import (
	"net/url"
	"strings"
)

// Request represents an incoming client request, independent of whether it arrived over HTTP or through a Lambda payload.
type Request struct {
	Method  string
	Path    string
	Query   url.Values
	Headers map[string]string // lowercase keys to match AWS Lambda proxy request
	Body    string
}

// Header returns the value of the named header. Lookups are case-insensitive as keys are stored lower-cased.
func (r Request) Header(name string) string {
	if r.Headers == nil {
		return ""
	}
	return r.Headers[strings.ToLower(name)]
}

// Response defines the structure for an HTTP response containing a body, headers, and a status code.
type Response struct {
	Body       string
	Headers    map[string]string
	StatusCode int
}
