// Package handler implements the relay routes: OAuth token exchange and refresh, the authorize redirect,
// the generic bearer proxy and both clients listings.
package handler

import (
	"context"
	"log/slog"
	"net/http"
	"slices"
	"strings"

	"github.com/mkfa/plannr-relay/internal/controllers/crm"
	"github.com/mkfa/plannr-relay/internal/envelope"
	"github.com/mkfa/plannr-relay/internal/helpers"
	"github.com/mkfa/plannr-relay/internal/models"
	"github.com/pkg/errors"
	"golang.org/x/time/rate"
)

// Route paths, relative to the runtime's path prefix.
const (
	RouteOAuthToken     = "/oauth/token"
	RouteOAuthRefresh   = "/oauth/refresh"
	RouteOAuthAuthorize = "/oauth/authorize"
	RouteProxy          = "/proxy"
	RouteGetClients     = "/get-clients"
	RouteClients        = "/clients"
)

// Option is a functional option used to configure a Handler.
type Option func(*Handler)

type routeFunc func(ctx context.Context, logger *slog.Logger, req models.Request) (models.Response, error)

type route struct {
	methods []string
	fn      routeFunc
}

// Handler dispatches requests to the relay routes. It keeps no state between requests.
type Handler struct {
	logger *slog.Logger
	crm    *crm.Controller
	routes map[string]route

	missingAppCredentials    *rate.Sometimes
	missingServerCredentials *rate.Sometimes
}

// NewHandler creates a Handler with the provided options.
func NewHandler(options ...Option) (*Handler, error) {
	_inst := &Handler{
		logger:                   helpers.NewNoopLogger(),
		missingAppCredentials:    helpers.OnceAMinute(),
		missingServerCredentials: helpers.OnceAMinute(),
	}
	for _, opt := range options {
		opt(_inst)
	}
	if _inst.crm == nil {
		ctl, err := crm.NewController(crm.WithLogger(_inst.logger.With("component", "crm-controller")))
		if err != nil {
			return nil, errors.Wrap(err, "failed to create the CRM controller")
		}
		_inst.crm = ctl
	}

	_inst.routes = map[string]route{
		RouteOAuthToken:     {methods: []string{http.MethodPost}, fn: _inst.exchangeToken},
		RouteOAuthRefresh:   {methods: []string{http.MethodPost}, fn: _inst.refreshToken},
		RouteOAuthAuthorize: {methods: []string{http.MethodGet}, fn: _inst.authorize},
		RouteProxy:          {methods: []string{http.MethodGet, http.MethodPost}, fn: _inst.proxy},
		RouteGetClients:     {methods: []string{http.MethodGet}, fn: _inst.getClients},
		RouteClients:        {methods: []string{http.MethodGet}, fn: _inst.listClients},
	}

	creds := _inst.crm.Credentials()
	_inst.logger.Debug("handler ready",
		slog.Bool("clientCredentials", creds.HasClientCredentials()),
		slog.Bool("serverCredentials", creds.HasServerCredentials()))
	return _inst, nil
}

// Handle routes req and returns the response to send. The returned error is informational:
// the response is always fully rendered, including for failures.
func (h *Handler) Handle(ctx context.Context, req models.Request) (models.Response, error) {
	path := normalisePath(req.Path)
	logger := helpers.LoggerFromContext(ctx, h.logger).With(slog.String("route", path), slog.String("method", req.Method))

	rt, found := h.routes[path]
	if !found {
		logger.Debug("no such route")
		return jsonResponse(http.StatusNotFound, envelope.ErrorBody{Error: "not found"}), nil
	}
	if !slices.Contains(rt.methods, req.Method) {
		logger.Debug("method not allowed")
		resp := jsonResponse(http.StatusMethodNotAllowed, envelope.ErrorBody{Error: "method not allowed"})
		resp.Headers["Allow"] = strings.Join(rt.methods, ", ")
		return resp, nil
	}

	resp, err := rt.fn(ctx, logger, req)
	if err != nil {
		if resp.StatusCode == 0 {
			resp = renderError(err)
		}
		var upstream *UpstreamError
		if errors.As(err, &upstream) {
			logger = logger.With(slog.String("upstreamBody", helpers.Truncate(string(upstream.Payload.Raw), maxLoggedBody)))
		}
		if resp.StatusCode >= http.StatusInternalServerError {
			logger.Error("request failed", slog.Int("status", resp.StatusCode), slog.Any("error", err))
		} else {
			logger.Warn("request rejected", slog.Int("status", resp.StatusCode), slog.Any("error", err))
		}
		return resp, err
	}
	logger.Info("request relayed", slog.Int("status", resp.StatusCode))
	return resp, nil
}

func normalisePath(path string) string {
	if path == "" {
		return "/"
	}
	if !strings.HasPrefix(path, "/") {
		path = "/" + path
	}
	if len(path) > 1 {
		path = strings.TrimSuffix(path, "/")
	}
	return path
}

func jsonResponse(status int, v any) models.Response {
	return models.Response{
		StatusCode: status,
		Body:       envelope.Marshal(v),
		Headers:    map[string]string{"Content-Type": envelope.ContentTypeJSON},
	}
}

func passthrough(result *crm.Result) models.Response {
	body, contentType := result.Payload.Passthrough()
	return models.Response{
		StatusCode: result.StatusCode,
		Body:       body,
		Headers:    map[string]string{"Content-Type": contentType},
	}
}

const (
	bearerPrefix  = "Bearer "
	maxLoggedBody = 512
)

// bearerToken extracts the caller's token. The scheme is matched case-sensitively, as the upstream expects it.
func bearerToken(req models.Request) (string, error) {
	header := req.Header("Authorization")
	if !strings.HasPrefix(header, bearerPrefix) {
		return "", errUnauthorized
	}
	token := strings.TrimSpace(strings.TrimPrefix(header, bearerPrefix))
	if token == "" {
		return "", errUnauthorized
	}
	return token, nil
}

func (h *Handler) warnMissingCredentials(logger *slog.Logger, err error) {
	switch {
	case errors.Is(err, crm.ErrMissingClientCredentials):
		h.missingAppCredentials.Do(func() {
			logger.Warn("OAuth client credentials are not configured; token routes will fail")
		})
	case errors.Is(err, crm.ErrMissingServerCredentials):
		h.missingServerCredentials.Do(func() {
			logger.Warn("server-held access token or account UUID is not configured; the clients listing will fail")
		})
	}
}
