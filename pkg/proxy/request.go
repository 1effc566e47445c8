package proxy

import (
	"errors"
	"fmt"
	"io"
	"net/http"

	"switchboard-hq/switchboard/pkg/proxy/types"
)

const (
	// RequestIDHeader is the HTTP header for correlation id propagation.
	RequestIDHeader = "X-Request-ID"
)

// ReadBody reads the request body enforcing the configured size cap. A body
// over the cap yields payload_too_large before any decoding happens.
func ReadBody(w http.ResponseWriter, r *http.Request, maxBytes int64) ([]byte, error) {
	r.Body = http.MaxBytesReader(w, r.Body, maxBytes)

	body, err := io.ReadAll(r.Body)
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			return nil, types.NewPayloadTooLargeError(maxBytes)
		}
		return nil, fmt.Errorf("failed to read request body: %w", err)
	}

	return body, nil
}

// ExtractRequestID extracts the correlation id from the X-Request-ID header.
// If the header is not present, it returns an empty string and the middleware
// generates one.
func ExtractRequestID(r *http.Request) string {
	return r.Header.Get(RequestIDHeader)
}
