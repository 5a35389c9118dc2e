package httpapi

import (
	"context"
	"net/http"
	"time"

	"github.com/dmitrijs2005/daybook/internal/common"
)

// ReadinessFunc reports whether the record store can serve requests.
type ReadinessFunc func(ctx context.Context) error

type healthResponse struct {
	Status    string `json:"status"`
	Timestamp string `json:"timestamp"`
	Store     string `json:"store,omitempty"`
	Message   string `json:"message,omitempty"`
}

const readyTimeout = 2 * time.Second

func healthLive(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, healthResponse{
		Status:    "ok",
		Timestamp: time.Now().UTC().Format(time.RFC3339),
	})
}

// healthReady answers 503 when there is no store or it does not respond.
func healthReady(ready ReadinessFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		resp := healthResponse{Timestamp: time.Now().UTC().Format(time.RFC3339)}

		if ready == nil {
			resp.Status = "fail"
			resp.Store = "none"
			resp.Message = common.ErrStoreUnavailable.Error()
			writeJSON(w, http.StatusServiceUnavailable, resp)
			return
		}

		ctx, cancel := context.WithTimeout(r.Context(), readyTimeout)
		defer cancel()

		if err := ready(ctx); err != nil {
			resp.Status = "fail"
			resp.Store = "fail"
			resp.Message = err.Error()
			writeJSON(w, http.StatusServiceUnavailable, resp)
			return
		}

		resp.Status = "ok"
		resp.Store = "ok"
		writeJSON(w, http.StatusOK, resp)
	}
}
