package v1

import (
	"encoding/json"
	"net/http"
	"time"

	"go.uber.org/zap"

	apiv1 "github.com/dcm-project/openstack-service-provider/api/v1"
	"github.com/dcm-project/openstack-service-provider/internal/apierrors"
)

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if body != nil {
		_ = json.NewEncoder(w).Encode(body)
	}
}

// renderError writes a domain error with its carried status and code.
// Anything that is not a domain error is logged in full and rendered as a
// generic 500; internal detail leaks only in debug mode.
func (h *Handler) renderError(w http.ResponseWriter, err error) {
	if apiErr, ok := apierrors.As(err); ok {
		writeJSON(w, apiErr.Status, apiv1.Error{
			Error:     apiErr.Code,
			Message:   apiErr.Message,
			Details:   apiErr.Details,
			Timestamp: time.Now().UTC(),
		})
		return
	}

	zap.S().Named("handler:error").Errorw("unexpected error", "error", err)
	message := "An internal error occurred"
	if h.debug {
		message = err.Error()
	}
	writeJSON(w, http.StatusInternalServerError, apiv1.Error{
		Error:     apierrors.CodeInternal,
		Message:   message,
		Timestamp: time.Now().UTC(),
	})
}

func decodeBody(w http.ResponseWriter, r *http.Request, dst any) bool {
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		writeJSON(w, http.StatusUnprocessableEntity, apiv1.Error{
			Error:     apierrors.CodeValidation,
			Message:   "Invalid request body: " + err.Error(),
			Timestamp: time.Now().UTC(),
		})
		return false
	}
	return true
}
