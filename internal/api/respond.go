package api

import (
	"encoding/json"
	"errors"
	"net/http"

	pkgerrors "github.com/matzehuels/dopflow/pkg/errors"
	"github.com/matzehuels/dopflow/pkg/store"
)

// errorBody is the JSON envelope for error responses.
type errorBody struct {
	Error errorDetail `json:"error"`
}

type errorDetail struct {
	Code    pkgerrors.Code `json:"code"`
	Message string         `json:"message"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// writeError maps err onto a status and the error envelope. Errors without
// a code are reported as internal errors without leaking their text.
func (s *Server) writeError(w http.ResponseWriter, r *http.Request, err error) {
	if errors.Is(err, store.ErrNotFound) && pkgerrors.GetCode(err) == "" {
		err = pkgerrors.Wrap(pkgerrors.ErrCodeNotFound, err, "graph not found")
	}

	code := pkgerrors.GetCode(err)
	msg := pkgerrors.UserMessage(err)
	if code == "" {
		code = pkgerrors.ErrCodeInternal
		msg = "internal error"
	}
	status := pkgerrors.HTTPStatus(code)
	if status >= http.StatusInternalServerError {
		s.logger.Error("request failed", "method", r.Method, "path", r.URL.Path, "err", err)
	}
	writeJSON(w, status, errorBody{Error: errorDetail{Code: code, Message: msg}})
}
