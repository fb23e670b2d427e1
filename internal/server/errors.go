package server

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/dyluth/hecto/internal/duel"
	"github.com/dyluth/hecto/pkg/channel"
)

type errorResponse struct {
	Error string `json:"error"`
	Code  string `json:"code"`
}

// requestError is a malformed or invalid request body or parameter.
type requestError struct {
	msg string
}

func (e *requestError) Error() string { return e.msg }

func badRequest(msg string) error {
	return &requestError{msg: msg}
}

// statusFor maps a service error onto an HTTP status and error code.
func statusFor(err error) (int, string) {
	var reqErr *requestError
	switch {
	case errors.As(err, &reqErr):
		return http.StatusBadRequest, "InvalidRequest"
	case errors.Is(err, duel.ErrMatchNotFound):
		return http.StatusNotFound, "MatchNotFound"
	case errors.Is(err, duel.ErrMatchFull):
		return http.StatusBadRequest, "MatchFull"
	case errors.Is(err, duel.ErrOutOfTurn):
		return http.StatusBadRequest, "OutOfTurn"
	case errors.Is(err, duel.ErrMatchNotActive):
		return http.StatusBadRequest, "MatchNotActive"
	case errors.Is(err, duel.ErrNotParticipant):
		return http.StatusBadRequest, "NotParticipant"
	case errors.Is(err, duel.ErrAlreadyParticipant):
		return http.StatusBadRequest, "AlreadyParticipant"
	case errors.Is(err, duel.ErrWrongVariant):
		return http.StatusBadRequest, "WrongVariant"
	case errors.Is(err, channel.ErrTransportUnavailable):
		return http.StatusServiceUnavailable, "TransportUnavailable"
	default:
		return http.StatusInternalServerError, "Internal"
	}
}

func (s *Server) writeError(w http.ResponseWriter, r *http.Request, err error) {
	status, code := statusFor(err)
	msg := err.Error()
	if status == http.StatusInternalServerError {
		s.logger.Error("request_failed", "method", r.Method, "path", r.URL.Path, "error", msg)
		msg = "internal error"
	}
	writeJSON(w, status, errorResponse{Error: msg, Code: code})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}
