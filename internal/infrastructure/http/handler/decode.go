package handler

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"

	"github.com/rezkam/atelier/internal/infrastructure/http/response"
)

// decodeJSON decodes the request body into dst, rejecting unknown fields and trailing data.
// It writes the error response itself and reports whether decoding succeeded.
func decodeJSON(w http.ResponseWriter, r *http.Request, dst any) bool {
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()

	err := dec.Decode(dst)
	if err == nil && dec.More() {
		err = errors.New("trailing data after JSON object")
	}
	if err == nil {
		return true
	}

	var maxErr *http.MaxBytesError
	var typeErr *json.UnmarshalTypeError
	switch {
	case errors.As(err, &maxErr):
		response.PayloadTooLarge(w)
	case errors.Is(err, io.EOF):
		response.BadRequest(w, "request body is required")
	case errors.As(err, &typeErr):
		response.ValidationError(w, typeErr.Field, "must be "+typeErr.Type.String())
	default:
		response.BadRequest(w, "invalid JSON")
	}
	return false
}

// etagFrom returns the etag from the body field, falling back to the If-Match header.
func etagFrom(r *http.Request, body string) string {
	if body != "" {
		return body
	}
	return r.Header.Get("If-Match")
}
