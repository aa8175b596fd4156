package rpc

import (
	"encoding/json"
	"errors"
	"net/http"

	"cafichain/eventlog"
	"cafichain/native/farming"
)

type errorBody struct {
	Error errorDetail `json:"error"`
}

type errorDetail struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// statusFor maps an engine error onto an HTTP status and a stable code.
func statusFor(err error) (int, string) {
	if errors.Is(err, eventlog.ErrNotFound) {
		return http.StatusNotFound, "not_found"
	}
	switch farming.Classify(err) {
	case farming.KindValidation:
		return http.StatusBadRequest, "invalid_argument"
	case farming.KindPrecondition:
		return http.StatusConflict, "failed_precondition"
	case farming.KindSolvency:
		return http.StatusConflict, "insufficient_reward_pool"
	case farming.KindAuthorization:
		return http.StatusForbidden, "unauthorized"
	case farming.KindPaused:
		return http.StatusLocked, "module_paused"
	default:
		return http.StatusInternalServerError, "internal"
	}
}

func writeJSON(w http.ResponseWriter, status int, payload interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if payload == nil {
		return
	}
	_ = json.NewEncoder(w).Encode(payload)
}

func writeErrorCode(w http.ResponseWriter, status int, code, message string) {
	writeJSON(w, status, errorBody{Error: errorDetail{Code: code, Message: message}})
}

func writeBadRequest(w http.ResponseWriter, message string) {
	writeErrorCode(w, http.StatusBadRequest, "invalid_argument", message)
}

func (s *Server) writeError(w http.ResponseWriter, err error) {
	status, code := statusFor(err)
	message := err.Error()
	if status == http.StatusInternalServerError {
		s.logger.Error("request failed", "error", err)
		message = "internal error"
	}
	writeErrorCode(w, status, code, message)
}
