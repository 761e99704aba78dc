package helpers_test

import (
	"testing"
	"unicode/utf8"

	"github.com/mkfa/plannr-relay/internal/helpers"
	"github.com/stretchr/testify/assert"
)

func TestString(t *testing.T) {
	testCases := []struct {
		Name     string
		Input    *string
		Expected string
	}{
		{
			Name:     "nil_string",
			Input:    nil,
			Expected: "",
		},
		{
			Name:     "empty_string",
			Input:    new(string),
			Expected: "",
		},
		{
			Name:     "value",
			Input:    helpers.Ptr("logins"),
			Expected: "logins",
		},
	}

	for _, tc := range testCases {
		t.Run(tc.Name, func(t *testing.T) {
			assert.Equal(t, tc.Expected, helpers.String(tc.Input))
		})
	}
}

func TestTruncate(t *testing.T) {
	testCases := []struct {
		Name     string
		Input    string
		Length   int
		Expected string
	}{
		{
			Name:     "shorter",
			Input:    "abc",
			Length:   10,
			Expected: "abc",
		},
		{
			Name:     "exact",
			Input:    "abcdef",
			Length:   6,
			Expected: "abcdef",
		},
		{
			Name:     "longer",
			Input:    "abcdefghij",
			Length:   6,
			Expected: "abc...",
		},
		{
			Name:     "tiny_limit",
			Input:    "abcdefghij",
			Length:   2,
			Expected: "ab",
		},
		{
			Name:     "multibyte_boundary",
			Input:    "ééééé",
			Length:   6,
			Expected: "é...",
		},
		{
			Name:     "multibyte_tiny_limit",
			Input:    "ééééé",
			Length:   3,
			Expected: "é",
		},
	}

	for _, tc := range testCases {
		t.Run(tc.Name, func(t *testing.T) {
			got := helpers.Truncate(tc.Input, tc.Length)
			assert.Equal(t, tc.Expected, got)
			assert.True(t, utf8.ValidString(got))
		})
	}
}
