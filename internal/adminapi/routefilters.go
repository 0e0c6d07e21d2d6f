package adminapi

import (
	"net/http"

	"github.com/envoyage/envoyage/internal/store"
)

type routeFiltersRequest struct {
	FilterNames []string `json:"filter_names"`
	CustomOrder []string `json:"custom_order,omitempty"`
}

func (a *API) handleSetRouteFilters(w http.ResponseWriter, r *http.Request) {
	name := r.PathValue("name")
	var req routeFiltersRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, &store.Error{Kind: store.KindValidationFailed, Resource: string(store.KindRouteFilters), Name: name, Reason: err.Error()})
		return
	}
	rf := &store.RouteFilters{RouteName: name, FilterNames: req.FilterNames, CustomOrder: req.CustomOrder}
	if err := a.st.AddRouteFilters(rf); err != nil {
		writeError(w, err)
		return
	}
	a.publish()
	writeJSON(w, http.StatusOK, rf)
}

func (a *API) handleGetRouteFilters(w http.ResponseWriter, r *http.Request) {
	rf, err := a.st.GetRouteFilters(r.PathValue("name"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, rf)
}

func (a *API) handleRemoveRouteFilters(w http.ResponseWriter, r *http.Request) {
	name := r.PathValue("name")
	if err := a.st.RemoveRouteFilters(name); err != nil {
		writeError(w, err)
		return
	}
	a.publish()
	w.WriteHeader(http.StatusNoContent)
}
