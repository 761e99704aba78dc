package cmd

import (
	"context"
	"log/slog"

	"github.com/mkfa/plannr-relay/internal/config"
	"github.com/mkfa/plannr-relay/internal/controllers/aws"
	"github.com/mkfa/plannr-relay/internal/controllers/crm"
	"github.com/mkfa/plannr-relay/internal/credentials"
	"github.com/mkfa/plannr-relay/internal/handler"
	"github.com/mkfa/plannr-relay/internal/runtime"
	"github.com/pkg/errors"
)

// setup resolves the upstream credentials and wires the controller, handler and runtime for either mode.
// store may be nil, in which case an SSM-backed store is created on demand.
func setup(ctx context.Context, logger *slog.Logger, store credentials.SecretStore, opts ...runtime.Option) (*runtime.Runtime, error) {
	static := crm.Credentials{
		ClientID:     config.CRM.ClientID,
		ClientSecret: config.CRM.ClientSecret,
		AccessToken:  config.CRM.AccessToken,
		AccountUUID:  config.CRM.AccountUUID,
	}
	if store == nil && config.CRM.CredentialsSource == credentials.SourceSSM {
		logger.Debug("creating AWS controller...")
		ctl, err := aws.NewController(
			aws.WithContext(ctx),
			aws.WithLogger(logger.With("component", "aws-controller")))
		if err != nil {
			return nil, errors.Wrap(err, "failed to create AWS controller")
		}
		store = ctl
	}

	logger.Debug("resolving credentials...", slog.String("source", config.CRM.CredentialsSource))
	creds, err := credentials.Resolve(config.CRM.CredentialsSource, static, config.CRM.SSMKey, store)
	if err != nil {
		return nil, errors.Wrap(err, "failed to resolve upstream credentials")
	}
	if !creds.HasClientCredentials() {
		logger.Warn("OAuth client credentials are not configured; token routes will fail")
	}
	if !creds.HasServerCredentials() {
		logger.Warn("server-held access token or account UUID is not configured; the clients listing will fail")
	}

	logger.Debug("creating CRM controller...")
	ctl, err := crm.NewController(
		crm.WithCredentials(creds),
		crm.WithAPIBaseURL(config.CRM.APIBaseURL),
		crm.WithTokenURL(config.CRM.TokenURL),
		crm.WithAuthorizeURL(config.CRM.AuthorizeURL),
		crm.WithTimeout(config.CRM.Timeout),
		crm.WithLogger(logger.With("component", "crm-controller")))
	if err != nil {
		return nil, errors.Wrap(err, "failed to create CRM controller")
	}

	logger.Debug("creating relay handler...")
	hdl, err := handler.NewHandler(
		handler.WithController(ctl),
		handler.WithLogger(logger.With("component", "relay-handler")))
	if err != nil {
		return nil, errors.Wrap(err, "failed to create relay handler")
	}

	logger.Debug("creating runtime...")
	rt, err := runtime.NewRuntime(hdl,
		append([]runtime.Option{runtime.WithLogger(logger.With("component", "runtime"))}, opts...)...)
	if err != nil {
		return nil, errors.Wrap(err, "failed to create runtime")
	}
	return rt, nil
}
