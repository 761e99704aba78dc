package envelope_test

import (
	"encoding/json"
	"testing"

	"github.com/mkfa/plannr-relay/internal/envelope"
	"github.com/stretchr/testify/assert"
)

func TestSniff(t *testing.T) {
	testCases := []struct {
		Name     string
		Body     string
		Expected envelope.Kind
	}{
		{
			Name:     "empty",
			Body:     "",
			Expected: envelope.Empty,
		},
		{
			Name:     "whitespace",
			Body:     " \n\t",
			Expected: envelope.Empty,
		},
		{
			Name:     "object",
			Body:     `{"access_token":"t1"}`,
			Expected: envelope.JSON,
		},
		{
			Name:     "array",
			Body:     `[1,2,3]`,
			Expected: envelope.JSON,
		},
		{
			Name:     "html",
			Body:     "<html>bad gateway</html>",
			Expected: envelope.Text,
		},
		{
			Name:     "truncated_json",
			Body:     `{"access_token":`,
			Expected: envelope.Text,
		},
	}

	for _, tc := range testCases {
		t.Run(tc.Name, func(t *testing.T) {
			p := envelope.Sniff([]byte(tc.Body), "")
			assert.Equal(t, tc.Expected, p.Kind)
		})
	}
}

func TestPassthrough(t *testing.T) {
	testCases := []struct {
		Name                string
		Body                string
		ContentType         string
		ExpectedBody        string
		ExpectedContentType string
	}{
		{
			Name:                "json_verbatim",
			Body:                `{"b":1, "a":2}`,
			ContentType:         "application/json",
			ExpectedBody:        `{"b":1, "a":2}`,
			ExpectedContentType: "application/json",
		},
		{
			Name:                "text_keeps_content_type",
			Body:                "upstream down",
			ContentType:         "text/html",
			ExpectedBody:        "upstream down",
			ExpectedContentType: "text/html",
		},
		{
			Name:                "text_without_content_type",
			Body:                "upstream down",
			ExpectedBody:        "upstream down",
			ExpectedContentType: "text/plain; charset=utf-8",
		},
		{
			Name:                "empty_becomes_object",
			ExpectedBody:        "{}",
			ExpectedContentType: "application/json",
		},
	}

	for _, tc := range testCases {
		t.Run(tc.Name, func(t *testing.T) {
			body, ct := envelope.Sniff([]byte(tc.Body), tc.ContentType).Passthrough()
			assert.Equal(t, tc.ExpectedBody, body)
			assert.Equal(t, tc.ExpectedContentType, ct)
		})
	}
}

func TestNewUpstreamFailure(t *testing.T) {
	testCases := []struct {
		Name     string
		Status   int
		Body     string
		Expected string
	}{
		{
			Name:     "json_body",
			Status:   400,
			Body:     `{"error":"invalid_grant"}`,
			Expected: `{"error":"Upstream call failed","status":400,"upstream_json":{"error":"invalid_grant"},"upstream_text":null}`,
		},
		{
			Name:     "text_body",
			Status:   502,
			Body:     "bad gateway",
			Expected: `{"error":"Upstream call failed","status":502,"upstream_json":null,"upstream_text":"bad gateway"}`,
		},
		{
			Name:     "no_body",
			Status:   401,
			Expected: `{"error":"Upstream call failed","status":401,"upstream_json":null,"upstream_text":null}`,
		},
	}

	for _, tc := range testCases {
		t.Run(tc.Name, func(t *testing.T) {
			failure := envelope.NewUpstreamFailure(tc.Status, envelope.Sniff([]byte(tc.Body), ""))
			assert.JSONEq(t, tc.Expected, envelope.Marshal(failure))
		})
	}
}

func TestMarshal(t *testing.T) {
	assert.JSONEq(t, `{"error":"boom"}`, envelope.Marshal(envelope.ErrorBody{Error: "boom"}))
	assert.Equal(t, `{"error":"failed to encode response"}`, envelope.Marshal(json.RawMessage(`{`)))
}
