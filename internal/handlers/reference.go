package handlers

import (
	"net/http"
	"strings"

	applog "agrogest/internal/log"
	"agrogest/internal/refdata"
	"agrogest/internal/treatment"
)

const productsPathPrefix = "/api/products/"

// Parcels lists every parcel as JSON.
func Parcels(w http.ResponseWriter, r *http.Request) {
	store, ok := referenceStore(w, r)
	if !ok {
		return
	}
	parcels, err := store.Parcels(r.Context())
	if err != nil {
		applog.Error(r.Context(), "failed to list parcels", "error", err)
		writeJSONError(w, http.StatusInternalServerError, "failed to load parcels")
		return
	}
	writeJSON(w, http.StatusOK, parcels)
}

// Machines lists every machine as JSON.
func Machines(w http.ResponseWriter, r *http.Request) {
	store, ok := referenceStore(w, r)
	if !ok {
		return
	}
	machines, err := store.Machines(r.Context())
	if err != nil {
		applog.Error(r.Context(), "failed to list machines", "error", err)
		writeJSONError(w, http.StatusInternalServerError, "failed to load machines")
		return
	}
	writeJSON(w, http.StatusOK, machines)
}

// Products lists the products eligible for the treatment type in the path,
// e.g. /api/products/spraying.
func Products(w http.ResponseWriter, r *http.Request) {
	store, ok := referenceStore(w, r)
	if !ok {
		return
	}

	raw := r.PathValue("type")
	if raw == "" {
		raw = strings.TrimPrefix(r.URL.Path, productsPathPrefix)
	}
	treatmentType, err := treatment.ParseType(raw)
	if err != nil || treatmentType == treatment.TypeUnset {
		applog.Debug(r.Context(), "product listing with unknown treatment type", "type", raw)
		writeJSONError(w, http.StatusNotFound, "unknown treatment type")
		return
	}

	products, err := store.Products(r.Context(), string(treatmentType))
	if err != nil {
		applog.Error(r.Context(), "failed to list products", "type", treatmentType, "error", err)
		writeJSONError(w, http.StatusInternalServerError, "failed to load products")
		return
	}
	writeJSON(w, http.StatusOK, products)
}

func referenceStore(w http.ResponseWriter, r *http.Request) (*refdata.Store, bool) {
	if r.Method != http.MethodGet {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return nil, false
	}
	if database == nil {
		applog.Debug(r.Context(), "reference request without database")
		http.Error(w, "service unavailable", http.StatusServiceUnavailable)
		return nil, false
	}
	store, err := refdata.NewStore(database)
	if err != nil {
		http.Error(w, "service unavailable", http.StatusServiceUnavailable)
		return nil, false
	}
	return store, true
}
