package handlers

import (
	"bytes"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/url"

	"github.com/go-chi/chi/v5"
)

const (
	msgInvalidBody  = "invalid request body"
	msgBodyTooLarge = "request body too large"
)

// ErrorResponse is a simple error payload.
type ErrorResponse struct {
	Error string `json:"error"`
}

// bodyString is a request field that only counts as present when the JSON
// value is a string. Numbers, objects and null leave it unset instead of
// failing the whole decode.
type bodyString struct {
	Value string
	Set   bool
}

func (s *bodyString) UnmarshalJSON(data []byte) error {
	*s = bodyString{}
	if bytes.Equal(bytes.TrimSpace(data), []byte("null")) {
		return nil
	}
	var value string
	if err := json.Unmarshal(data, &value); err != nil {
		return nil
	}
	*s = bodyString{Value: value, Set: true}
	return nil
}

// String returns the value, or "" when the field was not a string.
func (s bodyString) String() string {
	if !s.Set {
		return ""
	}
	return s.Value
}

// Ptr returns nil when the field was not a string.
func (s bodyString) Ptr() *string {
	if !s.Set {
		return nil
	}
	value := s.Value
	return &value
}

var errTrailingData = errors.New("unexpected data after JSON value")

// decodeJSON decodes the request body into dst. An empty body leaves dst
// untouched. Anything but whitespace after the value is an error.
func decodeJSON(r *http.Request, dst any) error {
	if r.Body == nil {
		return nil
	}
	dec := json.NewDecoder(r.Body)
	if err := dec.Decode(dst); err != nil {
		if errors.Is(err, io.EOF) {
			return nil
		}
		return err
	}
	if _, err := dec.Token(); !errors.Is(err, io.EOF) {
		if err == nil {
			err = errTrailingData
		}
		return err
	}
	return nil
}

func writeDecodeError(w http.ResponseWriter, err error) {
	var maxErr *http.MaxBytesError
	if errors.As(err, &maxErr) {
		writeError(w, http.StatusRequestEntityTooLarge, msgBodyTooLarge)
		return
	}
	writeError(w, http.StatusBadRequest, msgInvalidBody)
}

// userIDParam returns the decoded {userID} path segment.
func userIDParam(r *http.Request) string {
	raw := chi.URLParam(r, "userID")
	if r.URL.RawPath == "" {
		return raw
	}
	decoded, err := url.PathUnescape(raw)
	if err != nil {
		return raw
	}
	return decoded
}

func writeJSON(w http.ResponseWriter, status int, value any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(value)
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, ErrorResponse{Error: message})
}
