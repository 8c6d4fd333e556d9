package server

import (
	"encoding/json"
	"net/http"
	"time"

	gerrors "github.com/matzehuels/gantt/pkg/errors"
)

func respondJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("Cache-Control", "no-store")
	w.Header().Set("X-Content-Type-Options", "nosniff")
	w.WriteHeader(status)
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	_ = enc.Encode(payload)
}

type errorResponse struct {
	Status    int    `json:"status"`
	Code      string `json:"code,omitempty"`
	Reason    string `json:"reason,omitempty"`
	Message   string `json:"message"`
	Timestamp string `json:"timestamp"`
}

// respondError maps an error code to an HTTP status and writes a JSON body.
func respondError(w http.ResponseWriter, err error) {
	status := statusFor(err)
	resp := errorResponse{
		Status:    status,
		Code:      string(gerrors.GetCode(err)),
		Message:   gerrors.UserMessage(err),
		Timestamp: time.Now().UTC().Format(time.RFC3339),
	}
	if gerrors.Is(err, gerrors.ErrCodeCommitFailure) {
		resp.Reason = string(gerrors.CommitReason(err))
	}
	respondJSON(w, status, resp)
}

func statusFor(err error) int {
	switch gerrors.GetCode(err) {
	case gerrors.ErrCodeInvalidInput, gerrors.ErrCodeInvalidRange, gerrors.ErrCodeInvalidConfig, gerrors.ErrCodeInvalidFormat:
		return http.StatusBadRequest
	case gerrors.ErrCodeNotFound:
		return http.StatusNotFound
	case gerrors.ErrCodeDragDisabled:
		return http.StatusForbidden
	case gerrors.ErrCodeGestureConflict:
		return http.StatusConflict
	case gerrors.ErrCodeUnsupported:
		return http.StatusNotImplemented
	case gerrors.ErrCodeCommitFailure:
		switch gerrors.CommitReason(err) {
		case gerrors.ReasonValidationRejected:
			return http.StatusUnprocessableEntity
		case gerrors.ReasonConcurrentModification:
			return http.StatusConflict
		case gerrors.ReasonNotFound:
			return http.StatusNotFound
		default:
			return http.StatusBadGateway
		}
	default:
		return http.StatusInternalServerError
	}
}

func decodeJSON(w http.ResponseWriter, r *http.Request, v any) error {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, 1<<20))
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		return gerrors.Wrap(gerrors.ErrCodeInvalidInput, err, "invalid request body")
	}
	return nil
}
