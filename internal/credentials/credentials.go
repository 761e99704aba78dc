// Package credentials resolves the upstream credential set once at process start.
package credentials

import (
	"encoding/json"
	"strings"

	"github.com/mkfa/plannr-relay/internal/controllers/crm"
	"github.com/mkfa/plannr-relay/internal/helpers"
	"github.com/pkg/errors"
)

const (
	// SourceEnv reads credentials from configuration bound to the process environment.
	SourceEnv = "env"
	// SourceSSM reads credentials from a JSON document stored in an SSM parameter.
	SourceSSM = "ssm"
)

// SecretStore fetches a secret by key.
type SecretStore interface {
	GetSecret(key string, encrypted bool) (*string, error)
}

// Resolve returns the credentials for source. Values from static take precedence over
// values found in the store, so individual secrets can still be overridden through the environment.
// Missing values are not an error: requests that need them fail instead.
func Resolve(source string, static crm.Credentials, key string, store SecretStore) (crm.Credentials, error) {
	switch strings.TrimSpace(strings.ToLower(source)) {
	case "", SourceEnv:
		return static, nil
	case SourceSSM:
		if key == "" {
			return crm.Credentials{}, errors.New("missing SSM parameter key")
		}
		if store == nil {
			return crm.Credentials{}, errors.New("no secret store configured")
		}
		secret, err := store.GetSecret(key, true)
		if err != nil {
			return crm.Credentials{}, errors.Wrap(err, "failed to fetch credentials from SSM")
		}
		var stored crm.Credentials
		if err = json.Unmarshal([]byte(helpers.String(secret)), &stored); err != nil {
			return crm.Credentials{}, errors.Wrap(err, "failed to unmarshal credentials")
		}
		return merge(static, stored), nil
	default:
		return crm.Credentials{}, errors.Errorf("unsupported credentials source: %s", source)
	}
}

func merge(primary, fallback crm.Credentials) crm.Credentials {
	pick := func(a, b string) string {
		if a != "" {
			return a
		}
		return b
	}
	return crm.Credentials{
		ClientID:     pick(primary.ClientID, fallback.ClientID),
		ClientSecret: pick(primary.ClientSecret, fallback.ClientSecret),
		AccessToken:  pick(primary.AccessToken, fallback.AccessToken),
		AccountUUID:  pick(primary.AccountUUID, fallback.AccountUUID),
	}
}
