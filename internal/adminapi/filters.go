package adminapi

import (
	"net/http"

	"github.com/envoyage/envoyage/internal/store"
)

type filterRequest struct {
	Name       string         `json:"name"`
	FilterType string         `json:"filter_type"`
	Config     map[string]any `json:"config"`
	Enabled    bool           `json:"enabled"`
}

func (req *filterRequest) toStore(name string) *store.HTTPFilter {
	return &store.HTTPFilter{
		Name:       name,
		FilterType: store.FilterType(req.FilterType),
		Config:     req.Config,
		Enabled:    req.Enabled,
	}
}

// validateAgainstStrategy eagerly runs the registered strategy's schema
// check, so a malformed filter config is rejected at admission time rather
// than surfacing only when the listener is next materialized.
func (a *API) validateAgainstStrategy(f *store.HTTPFilter) error {
	strategy, err := a.reg.Lookup(f.FilterType)
	if err != nil {
		return &store.Error{Kind: store.KindValidationFailed, Resource: string(store.KindHTTPFilter), Name: f.Name, Reason: err.Error()}
	}
	if err := strategy.Validate(f); err != nil {
		return &store.Error{Kind: store.KindValidationFailed, Resource: string(store.KindHTTPFilter), Name: f.Name, Reason: err.Error()}
	}
	return nil
}

func (a *API) handleAddFilter(w http.ResponseWriter, r *http.Request) {
	var req filterRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, &store.Error{Kind: store.KindValidationFailed, Resource: string(store.KindHTTPFilter), Reason: err.Error()})
		return
	}
	f := req.toStore(req.Name)
	if err := a.validateAgainstStrategy(f); err != nil {
		writeError(w, err)
		return
	}
	if _, err := a.st.AddHTTPFilter(f); err != nil {
		writeError(w, err)
		return
	}
	a.publish()
	writeJSON(w, http.StatusCreated, f)
}

func (a *API) handleListFilters(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, a.st.ListHTTPFilters())
}

func (a *API) handleUpdateFilter(w http.ResponseWriter, r *http.Request) {
	name := r.PathValue("name")
	var req filterRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, &store.Error{Kind: store.KindValidationFailed, Resource: string(store.KindHTTPFilter), Name: name, Reason: err.Error()})
		return
	}
	f := req.toStore(name)
	if err := a.validateAgainstStrategy(f); err != nil {
		writeError(w, err)
		return
	}
	updated, err := a.st.UpdateHTTPFilter(name, f)
	if err != nil {
		writeError(w, err)
		return
	}
	a.publish()
	writeJSON(w, http.StatusOK, updated)
}

func (a *API) handleRemoveFilter(w http.ResponseWriter, r *http.Request) {
	name := r.PathValue("name")
	if err := a.st.RemoveHTTPFilter(name); err != nil {
		writeError(w, err)
		return
	}
	a.publish()
	w.WriteHeader(http.StatusNoContent)
}
