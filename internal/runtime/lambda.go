package runtime

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"log/slog"
	"net/http"
	"net/url"
	"strings"

	"github.com/aws/aws-lambda-go/events"
	"github.com/aws/aws-lambda-go/lambdacontext"
	"github.com/mkfa/plannr-relay/internal/helpers"
	"github.com/mkfa/plannr-relay/internal/models"
	"github.com/pkg/errors"
)

// Lambda is the Lambda handler for the runtime. The payload is decoded according to the configured payload type
// and the response is returned in the matching shape. Relay failures are rendered into the response, so the
// returned error is only set when the event itself cannot be decoded.
func (r *Runtime) Lambda(ctx context.Context, payload json.RawMessage) (any, error) {
	logger := r.logger
	if lc, ok := lambdacontext.FromContext(ctx); ok {
		logger = logger.With(slog.String("requestId", lc.AwsRequestID))
	}
	ctx = helpers.ContextWithLogger(ctx, logger)
	logger.Info("received Lambda event", slog.String("payloadType", r.payloadType))

	req, err := r.decodeEvent(payload)
	if err != nil {
		logger.Error("failed to decode Lambda event", slog.Any("error", err))
		return nil, err
	}

	path, ok := r.routePath(req.Path)
	var resp models.Response
	if !ok {
		resp = notFound()
	} else {
		req.Path = path
		resp, err = r.Handle(ctx, req)
		if err != nil {
			logger.Debug("relay reported a failure", slog.Any("error", err))
		}
	}
	if resp.StatusCode == 0 {
		resp.StatusCode = http.StatusOK
	}

	switch r.payloadType {
	case PayloadAPIGatewayV1:
		return events.APIGatewayProxyResponse{
			Body:       resp.Body,
			Headers:    resp.Headers,
			StatusCode: resp.StatusCode,
		}, nil
	case PayloadLambdaURL:
		return events.LambdaFunctionURLResponse{
			Body:       resp.Body,
			Headers:    resp.Headers,
			StatusCode: resp.StatusCode,
		}, nil
	default:
		return events.APIGatewayV2HTTPResponse{
			Body:       resp.Body,
			Headers:    resp.Headers,
			StatusCode: resp.StatusCode,
		}, nil
	}
}

func (r *Runtime) decodeEvent(payload json.RawMessage) (models.Request, error) {
	switch r.payloadType {
	case PayloadAPIGatewayV1:
		var event events.APIGatewayProxyRequest
		if err := json.Unmarshal(payload, &event); err != nil {
			return models.Request{}, errors.Wrap(err, "failed to decode API Gateway v1 event")
		}
		query := url.Values{}
		for k, vs := range event.MultiValueQueryStringParameters {
			query[k] = append([]string(nil), vs...)
		}
		for k, v := range event.QueryStringParameters {
			if _, found := query[k]; !found {
				query.Set(k, v)
			}
		}
		return newRequest(event.HTTPMethod, event.Path, query, event.Headers, event.Body, event.IsBase64Encoded)
	case PayloadLambdaURL:
		var event events.LambdaFunctionURLRequest
		if err := json.Unmarshal(payload, &event); err != nil {
			return models.Request{}, errors.Wrap(err, "failed to decode Lambda function URL event")
		}
		query, err := url.ParseQuery(event.RawQueryString)
		if err != nil {
			return models.Request{}, errors.Wrap(err, "failed to parse query string")
		}
		return newRequest(event.RequestContext.HTTP.Method, event.RawPath, query, event.Headers, event.Body, event.IsBase64Encoded)
	default:
		var event events.APIGatewayV2HTTPRequest
		if err := json.Unmarshal(payload, &event); err != nil {
			return models.Request{}, errors.Wrap(err, "failed to decode API Gateway v2 event")
		}
		query, err := url.ParseQuery(event.RawQueryString)
		if err != nil {
			return models.Request{}, errors.Wrap(err, "failed to parse query string")
		}
		return newRequest(event.RequestContext.HTTP.Method, event.RawPath, query, event.Headers, event.Body, event.IsBase64Encoded)
	}
}

func newRequest(method, path string, query url.Values, headers map[string]string, body string, base64Encoded bool) (models.Request, error) {
	// Lower-case incoming header names for compatibility purposes
	lch := make(map[string]string, len(headers))
	for k, v := range headers {
		lch[strings.ToLower(k)] = v
	}
	if base64Encoded {
		decoded, err := base64.StdEncoding.DecodeString(body)
		if err != nil {
			return models.Request{}, errors.Wrap(err, "failed to decode base64 body")
		}
		body = string(decoded)
	}
	return models.Request{
		Method:  strings.ToUpper(method),
		Path:    path,
		Query:   query,
		Headers: lch,
		Body:    body,
	}, nil
}
