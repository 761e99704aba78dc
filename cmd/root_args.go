package cmd

import (
	"time"

	"github.com/mkfa/plannr-relay/internal/config"
	"github.com/mkfa/plannr-relay/internal/helpers"
)

var envMapString = map[*string]boundEnvVar[string]{
	&config.Global.Mode: {
		Name:        "mode",
		Description: "The application runtime mode. Possible values are 'lambda' and 'service'",
		Short:       helpers.Ptr("m"),
	},
	&config.CRM.APIBaseURL: {
		Name:        "crm-api-base-url",
		Description: "The base URL every pass-through call is forwarded under",
	},
	&config.CRM.TokenURL: {
		Name:        "crm-token-url",
		Description: "The OAuth token endpoint used for code and refresh-token exchanges",
	},
	&config.CRM.AuthorizeURL: {
		Name:        "crm-authorize-url",
		Description: "The OAuth authorization endpoint browsers are redirected to",
	},
	&config.CRM.CredentialsSource: {
		Name:        "crm-credentials-source",
		Description: "Upstream credentials provider. Supported values are 'env' and 'ssm'",
		Short:       helpers.Ptr("A"),
	},
	&config.CRM.SSMKey: {
		Name:        "crm-credentials-ssm-key",
		Description: "The SSM parameter holding the upstream credentials JSON document",
	},
	&config.CRM.ClientID: {
		Name:        "crm-client-id",
		Description: "The OAuth application client id",
		Env:         helpers.Ptr("PLANNR_CLIENT_ID"),
	},
	&config.CRM.ClientSecret: {
		Name:        "crm-client-secret",
		Description: "The OAuth application client secret",
		Env:         helpers.Ptr("PLANNR_CLIENT_SECRET"),
		Hidden:      true,
	},
	&config.CRM.AccessToken: {
		Name:        "crm-access-token",
		Description: "The standing access token used by the server-credential clients listing",
		Env:         helpers.Ptr("PLANNR_ACCESS_TOKEN"),
		Hidden:      true,
	},
	&config.CRM.AccountUUID: {
		Name:        "crm-account-uuid",
		Description: "The account UUID sent with server-credential calls",
		Env:         helpers.Ptr("PLANNR_ACCOUNT_UUID"),
	},
}

var envMapBool = map[*bool]boundEnvVar[bool]{
	&config.Global.Logging.CallerTrace: {
		Name:        "verbosity-caller-trace",
		Description: "Enable caller trace in logs",
		Short:       helpers.Ptr("V"),
	},
}

var envMapCount = map[*int]boundEnvVar[int]{
	&config.Global.Logging.Verbosity: {
		Name:        "verbosity",
		Description: "Increase logger verbosity (default WarnLevel)",
		Short:       helpers.Ptr("v"),
	},
}

var envMapDuration = map[*time.Duration]boundEnvVar[time.Duration]{
	&config.CRM.Timeout: {
		Name:        "crm-timeout",
		Description: "The timeout for a single upstream round trip",
	},
}
