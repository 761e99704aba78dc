package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/mkfa/plannr-relay/internal/models"
	"github.com/pkg/errors"
)

// UnknownClientName is reported for clients carrying none of the DisplayNameFields.
const UnknownClientName = "Unknown Client"

var (
	// DisplayNameFields are tried in order to name a client.
	DisplayNameFields = []string{"name", "client_name", "company_name", "title"}
	// IdentifierFields are tried in order to identify a client.
	IdentifierFields = []string{"id", "uuid"}
)

// ClientSummary is the reduced view of a CRM client used to populate pickers.
type ClientSummary struct {
	ID   any `json:"id"`
	Name any `json:"name"`
}

type clientListing struct {
	Success bool            `json:"success"`
	Clients []ClientSummary `json:"clients"`
	Total   int             `json:"total"`
}

type clientListingFailure struct {
	Success bool   `json:"success"`
	Error   string `json:"error"`
	Message string `json:"message"`
}

// listClients fetches every client using the relay's own credentials and reduces each to an id and a display name.
func (h *Handler) listClients(ctx context.Context, logger *slog.Logger, _ models.Request) (models.Response, error) {
	result, err := h.crm.ListClients(ctx)
	if err != nil {
		h.warnMissingCredentials(logger, err)
		return internalListingFailure(err), NewInternalError("List clients error", err)
	}
	if !result.OK() {
		return jsonResponse(result.StatusCode, clientListingFailure{
			Error:   fmt.Sprintf("PlannrCRM API error: %d", result.StatusCode),
			Message: string(result.Payload.Raw),
		}), &UpstreamError{StatusCode: result.StatusCode, Payload: result.Payload}
	}

	clients, err := SummarizeClients(result.Payload.Raw)
	if err != nil {
		return internalListingFailure(err), NewInternalError("List clients error", err)
	}
	logger.Debug("summarized clients", slog.Int("total", len(clients)))
	return jsonResponse(http.StatusOK, clientListing{Success: true, Clients: clients, Total: len(clients)}), nil
}

func internalListingFailure(err error) models.Response {
	return jsonResponse(http.StatusInternalServerError, clientListingFailure{
		Error:   "Internal server error",
		Message: err.Error(),
	})
}

// SummarizeClients reduces a clients payload to summaries. The payload is either a list of clients
// or an object wrapping that list in a "data" field. Entries that are not objects are skipped.
func SummarizeClients(raw []byte) ([]ClientSummary, error) {
	var doc any
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.UseNumber()
	if err := dec.Decode(&doc); err != nil {
		return nil, errors.Wrap(err, "failed to decode clients response")
	}
	if obj, ok := doc.(map[string]any); ok {
		if data, found := obj["data"]; found {
			doc = data
		}
	}

	summaries := make([]ClientSummary, 0)
	switch entries := doc.(type) {
	case []any:
		for _, entry := range entries {
			client, ok := entry.(map[string]any)
			if !ok {
				continue
			}
			summaries = append(summaries, summarize(client))
		}
	case map[string]any, string:
		// an object or string holds no client entries
	default:
		return nil, errors.Errorf("unexpected clients payload of type %T", doc)
	}
	return summaries, nil
}

func summarize(client map[string]any) ClientSummary {
	name, found := firstTruthy(client, DisplayNameFields)
	if !found {
		name = UnknownClientName
	}
	id, found := firstTruthy(client, IdentifierFields)
	if !found {
		id = client[IdentifierFields[len(IdentifierFields)-1]]
	}
	return ClientSummary{ID: id, Name: name}
}

func firstTruthy(obj map[string]any, fields []string) (any, bool) {
	for _, field := range fields {
		if v := obj[field]; truthy(v) {
			return v, true
		}
	}
	return nil, false
}

// truthy treats null, false, zero, and empty strings, lists and objects as absent.
func truthy(v any) bool {
	switch t := v.(type) {
	case nil:
		return false
	case bool:
		return t
	case string:
		return t != ""
	case json.Number:
		f, err := t.Float64()
		return err != nil || f != 0
	case []any:
		return len(t) > 0
	case map[string]any:
		return len(t) > 0
	default:
		return true
	}
}
