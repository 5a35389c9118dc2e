package httpapi

import (
	"net/http"

	"github.com/dmitrijs2005/daybook/internal/logging"
	"github.com/dmitrijs2005/daybook/internal/models"
	"github.com/dmitrijs2005/daybook/internal/wire"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Services holds the sync logic of every kind. Leave all of them nil to run
// without a store: sync requests then answer 503.
type Services struct {
	Journal  SyncService[models.JournalEntry]
	Projects SyncService[models.Project]
	Todos    SyncService[models.Todo]
	Ready    ReadinessFunc
}

// NewRouter assembles the endpoint with its middleware chain.
func NewRouter(svcs Services, limits Limits, logger logging.Logger) http.Handler {
	if logger == nil {
		logger = logging.Nop{}
	}

	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	r.Use(Metrics())
	r.Use(RequestLogger(logger.With("module", "http")))

	r.NotFound(func(w http.ResponseWriter, _ *http.Request) {
		notFound(w, "no such endpoint")
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusMethodNotAllowed, wire.ErrorResponse{Error: "method not allowed"})
	})

	r.Get("/health/live", healthLive)
	r.Get("/health/ready", healthReady(svcs.Ready))
	r.Method(http.MethodGet, "/metrics", promhttp.Handler())

	r.Route(wire.PathPrefix[:len(wire.PathPrefix)-1], func(r chi.Router) {
		r.Method(http.MethodPost, "/"+models.Journal.Name, NewKindEndpoint(models.Journal, svcs.Journal, limits, logger))
		r.Method(http.MethodPost, "/"+models.Projects.Name, NewKindEndpoint(models.Projects, svcs.Projects, limits, logger))
		r.Method(http.MethodPost, "/"+models.Todos.Name, NewKindEndpoint(models.Todos, svcs.Todos, limits, logger))
	})

	return r
}
