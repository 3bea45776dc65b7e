// Package handlers provides HTTP handlers for the intake gateway.
package handlers

import (
	"encoding/json"
	"net/http"

	"go.uber.org/zap"

	"github.com/autonoos/intake-gateway/internal/apierr"
)

type errorBody struct {
	Message string   `json:"message"`
	Code    string   `json:"code"`
	Fields  []string `json:"fields,omitempty"`
	Details []string `json:"details,omitempty"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

// writeError translates err into the structured error body. Anything that
// is not an *apierr.Error becomes a generic 500.
func writeError(w http.ResponseWriter, logger *zap.Logger, err error) {
	e := apierr.From(err)
	if e.Status >= http.StatusInternalServerError && logger != nil {
		logger.Error("request failed", zap.Error(err))
	}
	writeJSON(w, e.Status, errorBody{
		Message: e.Message,
		Code:    string(e.Code),
		Fields:  e.Fields,
		Details: e.Details,
	})
}

// NotFound is the catch-all handler for unmatched routes.
func NotFound(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusNotFound, errorBody{Message: "not found", Code: string(apierr.CodeNotFound)})
}
