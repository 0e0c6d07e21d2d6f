package adminapi

import (
	"net/http"

	"github.com/envoyage/envoyage/internal/store"
)

type endpointDTO struct {
	Host string `json:"host"`
	Port int    `json:"port"`
}

type clusterRequest struct {
	Name      string        `json:"name"`
	Endpoints []endpointDTO `json:"endpoints"`
	LBPolicy  string        `json:"lb_policy,omitempty"`
}

func (req *clusterRequest) toStore(name string) *store.Cluster {
	c := &store.Cluster{Name: name}
	for _, e := range req.Endpoints {
		c.Endpoints = append(c.Endpoints, store.Endpoint{Host: e.Host, Port: e.Port})
	}
	if req.LBPolicy != "" {
		p := store.ParseLBPolicy(req.LBPolicy)
		c.LBPolicy = &p
	}
	return c
}

func (a *API) handleAddCluster(w http.ResponseWriter, r *http.Request) {
	var req clusterRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, &store.Error{Kind: store.KindValidationFailed, Resource: string(store.KindCluster), Reason: err.Error()})
		return
	}
	c := req.toStore(req.Name)
	if _, err := a.st.AddCluster(c); err != nil {
		writeError(w, err)
		return
	}
	a.publish()
	writeJSON(w, http.StatusCreated, c)
}

func (a *API) handleGetCluster(w http.ResponseWriter, r *http.Request) {
	c, err := a.st.GetCluster(r.PathValue("name"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, c)
}

func (a *API) handleListClusters(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, a.st.ListClusters())
}

func (a *API) handleUpdateCluster(w http.ResponseWriter, r *http.Request) {
	name := r.PathValue("name")
	var req clusterRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, &store.Error{Kind: store.KindValidationFailed, Resource: string(store.KindCluster), Name: name, Reason: err.Error()})
		return
	}
	c, err := a.st.UpdateCluster(name, req.toStore(name))
	if err != nil {
		writeError(w, err)
		return
	}
	a.publish()
	writeJSON(w, http.StatusOK, c)
}

func (a *API) handleRemoveCluster(w http.ResponseWriter, r *http.Request) {
	name := r.PathValue("name")
	if err := a.st.RemoveCluster(name); err != nil {
		writeError(w, err)
		return
	}
	a.publish()
	w.WriteHeader(http.StatusNoContent)
}
