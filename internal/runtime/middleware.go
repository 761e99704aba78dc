package runtime

import (
	"log/slog"
	"net/http"
	"net/url"
	"strings"

	"github.com/google/uuid"
	"github.com/mkfa/plannr-relay/internal/envelope"
	"github.com/mkfa/plannr-relay/internal/helpers"
	"github.com/mkfa/plannr-relay/internal/models"
	"github.com/pkg/errors"
)

func newRequestID() string {
	return uuid.NewString()
}

// requestIDMiddleware echoes the caller's request id, or a generated one, and scopes the request logger to it.
func (r *Runtime) requestIDMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
		requestID := strings.TrimSpace(req.Header.Get(RequestIDHeader))
		if requestID == "" {
			requestID = r.requestID()
		}
		w.Header().Set(RequestIDHeader, requestID)

		ctx := helpers.ContextWithLogger(req.Context(), r.logger.With(slog.String("requestId", requestID)))
		next.ServeHTTP(w, req.WithContext(ctx))
	})
}

const (
	corsAllowMethods = "GET, POST, OPTIONS"
	corsAllowHeaders = "Content-Type, Authorization"
)

// allowedOrigins holds canonical scheme://host origins permitted to call the relay from a browser.
type allowedOrigins map[string]struct{}

func parseAllowedOrigins(origins []string) (allowedOrigins, error) {
	allowed := make(allowedOrigins, len(origins))
	for _, raw := range origins {
		if strings.TrimSpace(raw) == "" {
			continue
		}
		origin, err := canonicalOrigin(raw)
		if err != nil {
			return nil, errors.Wrapf(err, "origin %q", raw)
		}
		allowed[origin] = struct{}{}
	}
	return allowed, nil
}

func canonicalOrigin(raw string) (string, error) {
	u, err := url.Parse(strings.TrimSpace(raw))
	if err != nil {
		return "", errors.Wrap(err, "unparseable")
	}
	if u.Scheme == "" || u.Host == "" {
		return "", errors.New("scheme and host are required")
	}
	return strings.ToLower(u.Scheme + "://" + u.Host), nil
}

// permits reports whether a browser at origin may call the relay: either it is configured or it is
// the relay's own origin.
func (a allowedOrigins) permits(origin string, req *http.Request) bool {
	canonical, err := canonicalOrigin(origin)
	if err != nil {
		return false
	}
	if _, ok := a[canonical]; ok {
		return true
	}
	scheme := "http"
	if req.TLS != nil {
		scheme = "https"
	}
	return req.Host != "" && canonical == strings.ToLower(scheme+"://"+req.Host)
}

// corsMiddleware answers preflights for permitted origins and rejects cross-origin calls from anyone else.
func (r *Runtime) corsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
		origin := strings.TrimSpace(req.Header.Get("Origin"))
		if origin == "" {
			next.ServeHTTP(w, req)
			return
		}

		if !r.origins.permits(origin, req) {
			helpers.LoggerFromContext(req.Context(), r.logger).Warn("rejected cross-origin call",
				slog.String("origin", origin), slog.String("path", req.URL.Path))
			helpers.RespondHTTP(models.Response{
				StatusCode: http.StatusForbidden,
				Body:       envelope.Marshal(envelope.ErrorBody{Error: "origin not allowed"}),
				Headers:    map[string]string{"Content-Type": envelope.ContentTypeJSON},
			}, nil, w)
			return
		}

		h := w.Header()
		h.Set("Access-Control-Allow-Origin", origin)
		h.Set("Vary", "Origin")
		h.Set("Access-Control-Expose-Headers", RequestIDHeader)
		if req.Method != http.MethodOptions {
			next.ServeHTTP(w, req)
			return
		}
		h.Set("Access-Control-Allow-Methods", corsAllowMethods)
		h.Set("Access-Control-Allow-Headers", corsAllowHeaders)
		w.WriteHeader(http.StatusNoContent)
	})
}
