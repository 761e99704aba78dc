package crm

import (
	"log/slog"
	"net/http"
	"time"
)

type loggingRoundTripper struct {
	logger *slog.Logger
	next   http.RoundTripper
}

// RoundTrip logs the request and response at trace level.
func (l *loggingRoundTripper) RoundTrip(req *http.Request) (*http.Response, error) {
	start := time.Now()
	l.logger.Log(req.Context(), slog.Level(-8), "sending request", slog.String("method", req.Method), slog.String("url", req.URL.Redacted()))
	resp, err := l.next.RoundTrip(req)
	if err != nil {
		l.logger.Log(req.Context(), slog.Level(-8), "request failed", slog.Any("error", err), slog.Duration("duration", time.Since(start)))
		return nil, err
	}
	l.logger.Log(req.Context(), slog.Level(-8), "received response", slog.String("status", resp.Status), slog.Duration("duration", time.Since(start)))
	return resp, nil
}
