// Package auth implements the shared-secret API key check applied to every
// mutating and listing endpoint.
package auth

import (
	"crypto/subtle"
	"encoding/json"
	"net/http"
	"time"

	apiv1 "github.com/dcm-project/openstack-service-provider/api/v1"
	"github.com/dcm-project/openstack-service-provider/internal/apierrors"
)

// HeaderName carries the API key on every authenticated request.
const HeaderName = "X-API-Key"

// APIKey returns middleware rejecting requests whose X-API-Key header is
// missing or does not match key.
func APIKey(key string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			provided := r.Header.Get(HeaderName)
			if provided == "" {
				unauthorized(w, "API key is required", map[string]any{
					"header": HeaderName,
				})
				return
			}
			if subtle.ConstantTimeCompare([]byte(provided), []byte(key)) != 1 {
				unauthorized(w, "Invalid API key", nil)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

func unauthorized(w http.ResponseWriter, message string, details map[string]any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusUnauthorized)
	_ = json.NewEncoder(w).Encode(apiv1.Error{
		Error:     apierrors.CodeAuthentication,
		Message:   message,
		Details:   details,
		Timestamp: time.Now().UTC(),
	})
}
