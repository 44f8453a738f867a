package server

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
)

type bodyKey struct{}

// captureBody buffers the request body so handlers can tell an absent PATCH
// field from an explicit null, which huma decodes to the same nil pointer.
func captureBody(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		data, _ := io.ReadAll(r.Body)
		r.Body = io.NopCloser(bytes.NewReader(data))
		next.ServeHTTP(w, r.WithContext(context.WithValue(r.Context(), bodyKey{}, data)))
	})
}

func requestBody(ctx context.Context) []byte {
	data, _ := ctx.Value(bodyKey{}).([]byte)
	return data
}

// explicitNull reports whether the JSON object body sets field to null.
func explicitNull(ctx context.Context, field string) bool {
	var fields map[string]json.RawMessage
	if err := json.Unmarshal(requestBody(ctx), &fields); err != nil {
		return false
	}
	raw, ok := fields[field]
	return ok && bytes.Equal(bytes.TrimSpace(raw), []byte("null"))
}
