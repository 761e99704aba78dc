package handler

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"strings"

	"github.com/mkfa/plannr-relay/internal/controllers/crm"
	"github.com/mkfa/plannr-relay/internal/models"
)

type authorizeResponse struct {
	AuthorizationURL string `json:"authorization_url"`
}

func (h *Handler) exchangeToken(ctx context.Context, logger *slog.Logger, req models.Request) (models.Response, error) {
	fields, err := decodeFields(req.Body)
	if err != nil {
		return models.Response{}, err
	}
	code, redirectURI := fields.text("code"), fields.text("redirect_uri")
	if code == "" || redirectURI == "" {
		return models.Response{}, &InvalidRequestError{Message: "Missing code or redirect_uri"}
	}

	logger.Debug("exchanging authorization code...")
	result, err := h.crm.ExchangeCode(ctx, code, redirectURI)
	if err != nil {
		h.warnMissingCredentials(logger, err)
		return models.Response{}, NewInternalError("Token exchange error", err)
	}
	return tokenResponse(result)
}

func (h *Handler) refreshToken(ctx context.Context, logger *slog.Logger, req models.Request) (models.Response, error) {
	fields, err := decodeFields(req.Body)
	if err != nil {
		return models.Response{}, err
	}
	refreshToken := fields.text("refresh_token")
	if refreshToken == "" {
		return models.Response{}, &InvalidRequestError{Message: "Missing refresh_token"}
	}

	logger.Debug("refreshing token...")
	result, err := h.crm.RefreshToken(ctx, refreshToken)
	if err != nil {
		h.warnMissingCredentials(logger, err)
		return models.Response{}, NewInternalError("Token refresh error", err)
	}
	return tokenResponse(result)
}

// authorize redirects the browser to the CRM consent page. No upstream call is made.
func (h *Handler) authorize(_ context.Context, logger *slog.Logger, req models.Request) (models.Response, error) {
	state := req.Query.Get("state")
	redirectURI := req.Query.Get("redirect_uri")
	if state == "" || redirectURI == "" {
		return models.Response{}, &InvalidRequestError{Message: "Missing state or redirect_uri"}
	}

	target, err := h.crm.AuthCodeURL(state, redirectURI)
	if err != nil {
		h.warnMissingCredentials(logger, err)
		return models.Response{}, NewInternalError("Authorize error", err)
	}
	resp := jsonResponse(http.StatusFound, authorizeResponse{AuthorizationURL: target})
	resp.Headers["Location"] = target
	return resp, nil
}

// tokenResponse returns the upstream body verbatim on 200 and the upstream error envelope otherwise.
func tokenResponse(result *crm.Result) (models.Response, error) {
	if !result.OK() {
		return models.Response{}, &UpstreamError{StatusCode: result.StatusCode, Payload: result.Payload}
	}
	return passthrough(result), nil
}

type bodyFields map[string]any

// decodeFields parses a JSON body. Only unparseable input is rejected: an empty body or a JSON value
// that is not an object yields no fields, so the presence checks that follow report what is missing.
func decodeFields(body string) (bodyFields, error) {
	if strings.TrimSpace(body) == "" {
		return bodyFields{}, nil
	}
	var doc any
	dec := json.NewDecoder(strings.NewReader(body))
	dec.UseNumber()
	if err := dec.Decode(&doc); err != nil || dec.More() {
		return nil, &InvalidRequestError{Message: "Invalid JSON body"}
	}
	obj, ok := doc.(map[string]any)
	if !ok {
		return bodyFields{}, nil
	}
	return obj, nil
}

// text returns the named field as form text. Strings and numbers are accepted; anything else reads as absent.
func (f bodyFields) text(name string) string {
	switch v := f[name].(type) {
	case string:
		return v
	case json.Number:
		return v.String()
	default:
		return ""
	}
}
