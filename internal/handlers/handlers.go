package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	templpkg "github.com/a-h/templ"
	"github.com/alexedwards/scs/v2"
	"gorm.io/gorm"

	applog "agrogest/internal/log"
	"agrogest/internal/refdata"
	"agrogest/internal/treatment"
)

var (
	sessionManager *scs.SessionManager
	database       *gorm.DB
	refFetcher     refdata.Fetcher
	formSettings   treatment.Settings
)

var errNoReferenceData = errors.New("handlers: no reference data source configured")

// Configure installs the shared dependencies used by the HTTP handlers.
func Configure(sm *scs.SessionManager, db *gorm.DB) {
	sessionManager = sm
	database = db
}

// ConfigureReferenceData sets the fetcher the treatment form loads its lookup
// tables from. When none is set the application database is used.
func ConfigureReferenceData(fetcher refdata.Fetcher) {
	refFetcher = fetcher
}

// ConfigureForm sets the row limit and field prefix of the treatment form.
func ConfigureForm(settings treatment.Settings) {
	formSettings = settings
}

func referenceFetcher() (refdata.Fetcher, error) {
	if refFetcher != nil {
		return refFetcher, nil
	}
	if database == nil {
		return nil, errNoReferenceData
	}
	return refdata.NewStore(database)
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		applog.Error(context.Background(), "failed to encode json response", "error", err)
	}
}

func writeJSONError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]string{"error": message})
}

func renderComponent(w http.ResponseWriter, r *http.Request, component templpkg.Component) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if err := component.Render(r.Context(), w); err != nil {
		applog.Error(r.Context(), "failed to render fragment", "error", err)
		http.Error(w, err.Error(), http.StatusInternalServerError)
	}
}
