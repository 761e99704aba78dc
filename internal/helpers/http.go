package helpers

import (
	"net/http"

	"github.com/mkfa/plannr-relay/internal/envelope"
	"github.com/mkfa/plannr-relay/internal/models"
)

// RespondHTTP writes response to rw. The body is written verbatim; when it is empty and err is set,
// a JSON error body is written instead so callers never receive an unstructured fault.
func RespondHTTP(response models.Response, err error, rw http.ResponseWriter) {
	for k, v := range response.Headers {
		rw.Header().Set(k, v)
	}
	body := response.Body
	if body == "" && err != nil {
		body = envelope.Marshal(envelope.ErrorBody{Error: err.Error()})
		rw.Header().Set("Content-Type", envelope.ContentTypeJSON)
	}
	statusCode := response.StatusCode
	if statusCode == 0 {
		statusCode = http.StatusOK
	}
	rw.WriteHeader(statusCode)
	_, _ = rw.Write([]byte(body))
}
