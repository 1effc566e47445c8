package proxy

import (
	"encoding/json"
	"fmt"
	"net/http"

	"switchboard-hq/switchboard/pkg/proxy/types"
)

// WriteJSON writes data as a JSON response with the given status code.
func WriteJSON(w http.ResponseWriter, statusCode int, data interface{}) error {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)

	if err := json.NewEncoder(w).Encode(data); err != nil {
		return fmt.Errorf("failed to encode JSON response: %w", err)
	}
	return nil
}

// WriteRawJSON writes a pre-marshaled JSON body with the given status code.
func WriteRawJSON(w http.ResponseWriter, statusCode int, body []byte) error {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)

	if _, err := w.Write(body); err != nil {
		return fmt.Errorf("failed to write JSON response: %w", err)
	}
	return nil
}

// WriteError maps err onto the taxonomy and writes the uniform error body
// with the kind's status code.
func WriteError(w http.ResponseWriter, err error) error {
	taxErr := types.FromError(err)
	return WriteJSON(w, taxErr.HTTPStatus(), taxErr.Response())
}

// WriteErrorStatus writes the uniform error body with an explicit status
// code, for the few sites (the method gate) whose status is not derived from
// a taxonomy kind.
func WriteErrorStatus(w http.ResponseWriter, statusCode int, taxErr *types.Error) error {
	return WriteJSON(w, statusCode, taxErr.Response())
}
