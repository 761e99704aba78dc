package runtime

import (
	"log/slog"

	"github.com/pkg/errors"
)

// Option configures a Runtime. Options that validate their input return an error.
type Option func(*Runtime) error

// WithLogger sets the logger instance for the runtime.
func WithLogger(logger *slog.Logger) Option {
	return func(r *Runtime) error {
		r.logger = logger
		return nil
	}
}

// WithPathPrefix sets the prefix every route is mounted under. An empty prefix or "/" mounts routes at the root.
func WithPathPrefix(prefix string) Option {
	return func(r *Runtime) error {
		r.pathPrefix = prefix
		return nil
	}
}

// WithLambdaPayloadType sets the Lambda event shape to decode.
func WithLambdaPayloadType(payloadType string) Option {
	return func(r *Runtime) error {
		r.payloadType = payloadType
		return nil
	}
}

// WithCORSOrigins sets the cross-origin callers allowed in service mode. Same-origin requests are always allowed.
func WithCORSOrigins(origins []string) Option {
	return func(r *Runtime) error {
		allowed, err := parseAllowedOrigins(origins)
		if err != nil {
			return errors.Wrap(err, "invalid CORS origins")
		}
		r.origins = allowed
		return nil
	}
}

// WithRequestIDGenerator overrides how request ids are generated when callers do not send one.
func WithRequestIDGenerator(generator func() string) Option {
	return func(r *Runtime) error {
		if generator != nil {
			r.requestID = generator
		}
		return nil
	}
}
