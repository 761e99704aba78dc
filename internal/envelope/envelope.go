// Package envelope classifies upstream response bodies and builds the uniform JSON shapes returned to callers.
package envelope

import (
	"bytes"
	"encoding/json"
)

// ContentTypeJSON is the content type used for every envelope produced locally.
const ContentTypeJSON = "application/json"

// Kind identifies how an upstream body was classified.
type Kind int

const (
	// Empty means the upstream returned no content.
	Empty Kind = iota
	// JSON means the upstream body is a well-formed JSON document.
	JSON
	// Text means the upstream body has content that does not parse as JSON.
	Text
)

func (k Kind) String() string {
	switch k {
	case JSON:
		return "json"
	case Text:
		return "text"
	default:
		return "empty"
	}
}

// Payload is an upstream body together with its classification.
type Payload struct {
	Kind        Kind
	Raw         []byte
	ContentType string
}

// Sniff classifies body. The decision is made on the bytes themselves: upstreams are not trusted to label JSON correctly.
func Sniff(body []byte, contentType string) Payload {
	p := Payload{Raw: body, ContentType: contentType}
	switch {
	case len(bytes.TrimSpace(body)) == 0:
		p.Kind = Empty
	case json.Valid(body):
		p.Kind = JSON
	default:
		p.Kind = Text
	}
	return p
}

// JSONValue returns the payload as a raw JSON value, or nil when it is not JSON.
func (p Payload) JSONValue() json.RawMessage {
	if p.Kind != JSON {
		return nil
	}
	return json.RawMessage(p.Raw)
}

// TextValue returns the payload as a string pointer, or nil when it is not text.
func (p Payload) TextValue() *string {
	if p.Kind != Text {
		return nil
	}
	s := string(p.Raw)
	return &s
}

// Passthrough renders the payload for a caller: JSON verbatim, text with the upstream content type, or an empty object.
// It returns the body and the content type to send.
func (p Payload) Passthrough() (string, string) {
	switch p.Kind {
	case JSON:
		return string(p.Raw), ContentTypeJSON
	case Text:
		ct := p.ContentType
		if ct == "" {
			ct = "text/plain; charset=utf-8"
		}
		return string(p.Raw), ct
	default:
		return "{}", ContentTypeJSON
	}
}

// UpstreamFailure is the body returned when the upstream answered with an unsuccessful status.
// At most one of UpstreamJSON and UpstreamText is set; both are null only when the upstream sent no content.
type UpstreamFailure struct {
	Error        string          `json:"error"`
	Status       int             `json:"status"`
	UpstreamJSON json.RawMessage `json:"upstream_json"`
	UpstreamText *string         `json:"upstream_text"`
}

// NewUpstreamFailure builds the failure envelope for an upstream status and payload.
func NewUpstreamFailure(status int, p Payload) UpstreamFailure {
	return UpstreamFailure{
		Error:        "Upstream call failed",
		Status:       status,
		UpstreamJSON: p.JSONValue(),
		UpstreamText: p.TextValue(),
	}
}

// ErrorBody is the body returned for failures detected locally.
type ErrorBody struct {
	Error string `json:"error"`
}

// Marshal encodes v, falling back to a static error body if encoding fails.
func Marshal(v any) string {
	b, err := json.Marshal(v)
	if err != nil {
		return `{"error":"failed to encode response"}`
	}
	return string(b)
}
