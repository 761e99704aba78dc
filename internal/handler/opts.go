package handler

import (
	"log/slog"

	"github.com/mkfa/plannr-relay/internal/controllers/crm"
)

// WithLogger sets the logger instance for the handler.
func WithLogger(logger *slog.Logger) Option {
	return func(h *Handler) {
		h.logger = logger
	}
}

// WithController sets the upstream controller. When omitted, a controller with default upstream URLs and no credentials is created.
func WithController(controller *crm.Controller) Option {
	return func(h *Handler) {
		h.crm = controller
	}
}
