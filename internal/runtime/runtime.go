// Package runtime adapts the relay handler to its hosting environments: a standalone HTTP service and AWS Lambda.
package runtime

import (
	"io"
	"log/slog"
	"net/http"
	"strings"

	"github.com/mkfa/plannr-relay/internal/envelope"
	"github.com/mkfa/plannr-relay/internal/handler"
	"github.com/mkfa/plannr-relay/internal/helpers"
	"github.com/mkfa/plannr-relay/internal/models"
	"github.com/pkg/errors"
)

// Supported Lambda payload types.
const (
	PayloadAPIGatewayV1 = "api-gateway-v1"
	PayloadAPIGatewayV2 = "api-gateway-v2"
	PayloadLambdaURL    = "lambda-url"

	// DefaultPathPrefix is the prefix routes are mounted under unless configured otherwise.
	DefaultPathPrefix = "/api"
	// RequestIDHeader carries the request id in both directions.
	RequestIDHeader = "X-Request-Id"
)

// maxBodyBytes bounds inbound request bodies in service mode.
const maxBodyBytes = 1 << 20

type Runtime struct {
	*handler.Handler
	logger      *slog.Logger
	pathPrefix  string
	payloadType string
	origins     allowedOrigins
	requestID   func() string
}

// NewRuntime creates a new runtime instance
func NewRuntime(hdl *handler.Handler, opts ...Option) (*Runtime, error) {
	_inst := &Runtime{
		Handler:     hdl,
		pathPrefix:  DefaultPathPrefix,
		payloadType: PayloadAPIGatewayV2,
		requestID:   newRequestID,
	}
	for _, opt := range opts {
		if err := opt(_inst); err != nil {
			return nil, err
		}
	}
	if _inst.logger == nil {
		_inst.logger = helpers.NewNoopLogger()
	}
	if _inst.Handler == nil {
		return nil, errors.New("runtime requires a handler")
	}
	switch _inst.payloadType {
	case PayloadAPIGatewayV1, PayloadAPIGatewayV2, PayloadLambdaURL:
	default:
		return nil, errors.Errorf("unsupported lambda payload type: %s", _inst.payloadType)
	}
	_inst.pathPrefix = normalisePrefix(_inst.pathPrefix)
	return _inst, nil
}

// HTTPHandler returns the service-mode handler with the request-id and CORS middleware applied.
func (r *Runtime) HTTPHandler() http.Handler {
	return r.requestIDMiddleware(r.corsMiddleware(r))
}

// ServeHTTP is the HTTP handler for the runtime
func (r *Runtime) ServeHTTP(resp http.ResponseWriter, req *http.Request) {
	logger := helpers.LoggerFromContext(req.Context(), r.logger)
	logger.Debug("received HTTP request...", slog.Any("requestor", req.RemoteAddr), slog.Any("method", req.Method), slog.Any("path", req.URL.Path))

	path, ok := r.routePath(req.URL.Path)
	if !ok {
		logger.Debug("rejecting HTTP request...", "reason", "outside path prefix", slog.String("prefix", r.pathPrefix))
		helpers.RespondHTTP(notFound(), nil, resp)
		return
	}

	logger.Debug("normalising headers...")
	headers := make(map[string]string, len(req.Header))
	for k, v := range req.Header {
		headers[strings.ToLower(k)] = v[0]
	}

	body, err := io.ReadAll(http.MaxBytesReader(resp, req.Body, maxBodyBytes))
	if err != nil {
		logger.Error("failed to read request body", slog.Any("error", err))
		status := http.StatusBadRequest
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			status = http.StatusRequestEntityTooLarge
		}
		helpers.RespondHTTP(models.Response{StatusCode: status}, errors.Wrap(err, "failed to read request body"), resp)
		return
	}

	result, err := r.Handle(req.Context(), models.Request{
		Method:  req.Method,
		Path:    path,
		Query:   req.URL.Query(),
		Headers: headers,
		Body:    string(body),
	})
	helpers.RespondHTTP(result, err, resp)
}

// routePath strips the configured prefix from path. It reports false when path lies outside the prefix.
func (r *Runtime) routePath(path string) (string, bool) {
	if r.pathPrefix == "" {
		return path, true
	}
	switch {
	case path == r.pathPrefix:
		return "/", true
	case strings.HasPrefix(path, r.pathPrefix+"/"):
		return strings.TrimPrefix(path, r.pathPrefix), true
	default:
		return "", false
	}
}

func normalisePrefix(prefix string) string {
	prefix = strings.TrimSpace(prefix)
	if prefix == "" || prefix == "/" {
		return ""
	}
	if !strings.HasPrefix(prefix, "/") {
		prefix = "/" + prefix
	}
	return strings.TrimSuffix(prefix, "/")
}

func notFound() models.Response {
	return models.Response{
		StatusCode: http.StatusNotFound,
		Body:       envelope.Marshal(envelope.ErrorBody{Error: "not found"}),
		Headers:    map[string]string{"Content-Type": envelope.ContentTypeJSON},
	}
}
