package api

import (
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/starford/issueblog/internal/publish"
)

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Error("json encode failed", slog.String("error", err.Error()))
	}
}

// errResponse is the body of every non-2xx reply. A failed sync pass also
// carries the partial report of what was changed before the failure.
type errResponse struct {
	Error  string          `json:"error"`
	Report *publish.Report `json:"report,omitempty"`
}

func errorBody(msg string) errResponse {
	return errResponse{Error: msg}
}
