package credentials_test

import (
	"errors"
	"testing"

	"github.com/mkfa/plannr-relay/internal/controllers/crm"
	"github.com/mkfa/plannr-relay/internal/credentials"
	"github.com/mkfa/plannr-relay/internal/helpers"
	"github.com/stretchr/testify/assert"
)

type fakeStore struct {
	value *string
	err   error
	calls int
}

func (f *fakeStore) GetSecret(_ string, _ bool) (*string, error) {
	f.calls++
	return f.value, f.err
}

func TestResolve(t *testing.T) {
	static := crm.Credentials{ClientID: "env-id"}

	testCases := []struct {
		Name          string
		Source        string
		Key           string
		Store         *fakeStore
		Expected      crm.Credentials
		ExpectError   bool
		ExpectedCalls int
	}{
		{
			Name:     "env_default",
			Source:   "",
			Expected: static,
		},
		{
			Name:     "env_explicit",
			Source:   " ENV ",
			Store:    &fakeStore{},
			Expected: static,
		},
		{
			Name:   "ssm_merges_under_static",
			Source: "ssm",
			Key:    "/plannr-relay/credentials",
			Store:  &fakeStore{value: helpers.Ptr(`{"client_id":"ssm-id","client_secret":"ssm-secret","access_token":"tok","account_uuid":"acc"}`)},
			Expected: crm.Credentials{
				ClientID:     "env-id",
				ClientSecret: "ssm-secret",
				AccessToken:  "tok",
				AccountUUID:  "acc",
			},
			ExpectedCalls: 1,
		},
		{
			Name:        "ssm_missing_key",
			Source:      "ssm",
			Store:       &fakeStore{},
			ExpectError: true,
		},
		{
			Name:          "ssm_store_error",
			Source:        "ssm",
			Key:           "/plannr-relay/credentials",
			Store:         &fakeStore{err: errors.New("access denied")},
			ExpectError:   true,
			ExpectedCalls: 1,
		},
		{
			Name:          "ssm_invalid_document",
			Source:        "ssm",
			Key:           "/plannr-relay/credentials",
			Store:         &fakeStore{value: helpers.Ptr("not-json")},
			ExpectError:   true,
			ExpectedCalls: 1,
		},
		{
			Name:        "unsupported",
			Source:      "vault",
			ExpectError: true,
		},
	}

	for _, tc := range testCases {
		t.Run(tc.Name, func(t *testing.T) {
			var store credentials.SecretStore
			if tc.Store != nil {
				store = tc.Store
			}
			got, err := credentials.Resolve(tc.Source, static, tc.Key, store)
			if tc.ExpectError {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
				assert.Equal(t, tc.Expected, got)
			}
			if tc.Store != nil {
				assert.Equal(t, tc.ExpectedCalls, tc.Store.calls)
			}
		})
	}
}

func TestResolveSSMWithoutStore(t *testing.T) {
	_, err := credentials.Resolve(credentials.SourceSSM, crm.Credentials{}, "/key", nil)
	assert.Error(t, err)
}
