// Package adminapi implements the management HTTP surface: a thin
// net/http.ServeMux calling straight into the store, then bumping the
// version tracker and publishing a broadcast tick on every successful
// mutation, mirroring the teacher's handleAddService/handleRemoveService/
// handleListServices trio generalized to the richer cluster/route/filter
// model. Authn/authz and the full admin REST surface are explicitly out of
// scope — this exists to demonstrate and exercise the store wiring.
package adminapi

import (
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/google/uuid"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"github.com/envoyage/envoyage/internal/broadcast"
	"github.com/envoyage/envoyage/internal/filters"
	"github.com/envoyage/envoyage/internal/store"
	"github.com/envoyage/envoyage/internal/version"
)

// API wires the management HTTP mux to the store and the push pipeline.
type API struct {
	st      *store.Store
	reg     *filters.Registry
	tracker *version.Tracker
	bcast   *broadcast.Broadcaster
	log     *slog.Logger
}

// New constructs an API over the given collaborators.
func New(st *store.Store, reg *filters.Registry, tracker *version.Tracker, bcast *broadcast.Broadcaster, log *slog.Logger) *API {
	return &API{st: st, reg: reg, tracker: tracker, bcast: bcast, log: log}
}

// Handler builds the management HTTP mux, wrapped with request-id
// correlation and OpenTelemetry instrumentation.
func (a *API) Handler() http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("POST /clusters", a.handleAddCluster)
	mux.HandleFunc("GET /clusters", a.handleListClusters)
	mux.HandleFunc("GET /clusters/{name}", a.handleGetCluster)
	mux.HandleFunc("PUT /clusters/{name}", a.handleUpdateCluster)
	mux.HandleFunc("DELETE /clusters/{name}", a.handleRemoveCluster)

	mux.HandleFunc("POST /routes", a.handleAddRoute)
	mux.HandleFunc("GET /routes", a.handleListRoutes)
	mux.HandleFunc("GET /routes/{name}", a.handleGetRoute)
	mux.HandleFunc("PUT /routes/{name}", a.handleUpdateRoute)
	mux.HandleFunc("DELETE /routes/{name}", a.handleRemoveRoute)

	mux.HandleFunc("POST /filters", a.handleAddFilter)
	mux.HandleFunc("GET /filters", a.handleListFilters)
	mux.HandleFunc("PUT /filters/{name}", a.handleUpdateFilter)
	mux.HandleFunc("DELETE /filters/{name}", a.handleRemoveFilter)

	mux.HandleFunc("PUT /routes/{name}/filters", a.handleSetRouteFilters)
	mux.HandleFunc("GET /routes/{name}/filters", a.handleGetRouteFilters)
	mux.HandleFunc("DELETE /routes/{name}/filters", a.handleRemoveRouteFilters)

	return otelhttp.NewHandler(withRequestID(mux), "envoyage.adminapi")
}

// withRequestID stamps every request with a correlation id (reusing an
// incoming X-Request-Id, else a fresh UUID) and echoes it back in the
// X-Request-Id response header. The id is not passed to handlers or logged.
func withRequestID(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := r.Header.Get("X-Request-Id")
		if id == "" {
			id = uuid.NewString()
		}
		w.Header().Set("X-Request-Id", id)
		next.ServeHTTP(w, r)
	})
}

// publish bumps the version tracker and wakes every ADS stream. Call after
// every mutation that succeeded, per spec §6.3's calling convention.
func (a *API) publish() {
	v := a.tracker.BumpVersion()
	a.bcast.Publish()
	a.log.Debug("published store mutation", "version", v)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, err error) {
	status := http.StatusInternalServerError
	var storeErr *store.Error
	if e, ok := err.(*store.Error); ok {
		storeErr = e
	} else if u, ok := err.(interface{ Unwrap() error }); ok {
		if e, ok := u.Unwrap().(*store.Error); ok {
			storeErr = e
		}
	}
	if storeErr != nil {
		switch storeErr.Kind {
		case store.KindNotFound:
			status = http.StatusNotFound
		case store.KindConflict, store.KindConcurrentModified, store.KindInvalidState:
			status = http.StatusConflict
		case store.KindCapacityExceeded:
			status = http.StatusTooManyRequests
		case store.KindValidationFailed:
			status = http.StatusBadRequest
		case store.KindDependencyMissing:
			status = http.StatusUnprocessableEntity
		}
	}
	writeJSON(w, status, map[string]string{"error": err.Error()})
}

func decodeJSON(r *http.Request, v any) error {
	defer r.Body.Close()
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	return dec.Decode(v)
}
