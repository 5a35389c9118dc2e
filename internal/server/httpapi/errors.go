package httpapi

import (
	"net/http"
	"strconv"

	"github.com/dmitrijs2005/daybook/internal/common"
	"github.com/dmitrijs2005/daybook/internal/wire"
	json "github.com/goccy/go-json"
)

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func badRequest(w http.ResponseWriter, msg string) {
	writeJSON(w, http.StatusBadRequest, wire.ErrorResponse{Error: msg})
}

func tooLarge(w http.ResponseWriter, limit int64) {
	writeJSON(w, http.StatusRequestEntityTooLarge, wire.ErrorResponse{
		Error:   "request body too large",
		Message: http.StatusText(http.StatusRequestEntityTooLarge),
		Details: "limit is " + strconv.FormatInt(limit, 10) + " bytes",
	})
}

func notConfigured(w http.ResponseWriter) {
	writeJSON(w, http.StatusServiceUnavailable, wire.ErrorResponse{
		Error:   common.ErrStoreUnavailable.Error(),
		Message: "Remote sync is not available on this server",
	})
}

func notFound(w http.ResponseWriter, msg string) {
	writeJSON(w, http.StatusNotFound, wire.ErrorResponse{Error: msg})
}

func conflict(w http.ResponseWriter, c wire.Conflict) {
	writeJSON(w, http.StatusConflict, wire.ErrorResponse{Error: "conflict", Conflict: &c})
}

func internalError(w http.ResponseWriter, err error) {
	writeJSON(w, http.StatusInternalServerError, wire.ErrorResponse{
		Error:   "internal server error",
		Details: err.Error(),
	})
}
