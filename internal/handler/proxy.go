package handler

import (
	"cmp"
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"net/url"
	"strings"

	"github.com/mkfa/plannr-relay/internal/controllers/crm"
	"github.com/mkfa/plannr-relay/internal/models"
	"github.com/pkg/errors"
)

const (
	// DefaultProxyEndpoint is used when the proxy is called without an endpoint parameter.
	DefaultProxyEndpoint = "logins"
	// DefaultClientsLimit is forwarded when the clients listing is called without a limit.
	DefaultClientsLimit = "20"
)

var errBodyNotJSON = errors.New("request body is not valid JSON")

// proxy forwards the call to the endpoint named by the "endpoint" query parameter.
// The endpoint and payload are passed through untouched.
func (h *Handler) proxy(ctx context.Context, logger *slog.Logger, req models.Request) (models.Response, error) {
	token, err := bearerToken(req)
	if err != nil {
		return models.Response{}, err
	}
	endpoint := cmp.Or(req.Query.Get("endpoint"), DefaultProxyEndpoint)
	logger = logger.With(slog.String("endpoint", endpoint))

	var result *crm.Result
	switch req.Method {
	case http.MethodGet:
		logger.Debug("forwarding GET...")
		result, err = h.crm.Get(ctx, token, endpoint, req.Query)
	default:
		body := strings.TrimSpace(req.Body)
		if body == "" {
			body = "{}"
		}
		if !json.Valid([]byte(body)) {
			return models.Response{}, NewInternalError("Proxy error", errBodyNotJSON)
		}
		logger.Debug("forwarding POST...")
		result, err = h.crm.Post(ctx, token, endpoint, []byte(body))
	}
	if err != nil {
		return models.Response{}, NewInternalError("Proxy error", err)
	}
	return passthrough(result), nil
}

// getClients forwards a search of the clients resource with the caller's token.
func (h *Handler) getClients(ctx context.Context, logger *slog.Logger, req models.Request) (models.Response, error) {
	token, err := bearerToken(req)
	if err != nil {
		return models.Response{}, err
	}

	params := url.Values{"limit": {cmp.Or(req.Query.Get("limit"), DefaultClientsLimit)}}
	if search := req.Query.Get("search"); search != "" {
		params.Set("search", search)
	}

	logger.Debug("searching clients...", slog.String("limit", params.Get("limit")))
	result, err := h.crm.Get(ctx, token, crm.ClientsResource, params)
	if err != nil {
		return models.Response{}, NewInternalError("Get clients error", err)
	}
	return passthrough(result), nil
}
