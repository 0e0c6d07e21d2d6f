package adminapi

import (
	"net/http"

	"github.com/envoyage/envoyage/internal/store"
)

type routeRequest struct {
	Name          string   `json:"name"`
	Path          string   `json:"path"`
	ClusterName   string   `json:"cluster_name"`
	PrefixRewrite string   `json:"prefix_rewrite,omitempty"`
	HTTPMethods   []string `json:"http_methods,omitempty"`
}

func (req *routeRequest) toStore(name string) *store.Route {
	return &store.Route{
		Name:          name,
		Path:          req.Path,
		ClusterName:   req.ClusterName,
		PrefixRewrite: req.PrefixRewrite,
		HTTPMethods:   req.HTTPMethods,
	}
}

func (a *API) handleAddRoute(w http.ResponseWriter, r *http.Request) {
	var req routeRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, &store.Error{Kind: store.KindValidationFailed, Resource: string(store.KindRoute), Reason: err.Error()})
		return
	}
	rt := req.toStore(req.Name)
	if _, err := a.st.AddRoute(rt); err != nil {
		writeError(w, err)
		return
	}
	a.publish()
	writeJSON(w, http.StatusCreated, rt)
}

func (a *API) handleGetRoute(w http.ResponseWriter, r *http.Request) {
	rt, err := a.st.GetRoute(r.PathValue("name"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, rt)
}

func (a *API) handleListRoutes(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, a.st.ListRoutes())
}

func (a *API) handleUpdateRoute(w http.ResponseWriter, r *http.Request) {
	name := r.PathValue("name")
	var req routeRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, &store.Error{Kind: store.KindValidationFailed, Resource: string(store.KindRoute), Name: name, Reason: err.Error()})
		return
	}
	rt, err := a.st.UpdateRoute(name, req.toStore(name))
	if err != nil {
		writeError(w, err)
		return
	}
	a.publish()
	writeJSON(w, http.StatusOK, rt)
}

func (a *API) handleRemoveRoute(w http.ResponseWriter, r *http.Request) {
	name := r.PathValue("name")
	if err := a.st.RemoveRoute(name); err != nil {
		writeError(w, err)
		return
	}
	a.publish()
	w.WriteHeader(http.StatusNoContent)
}
