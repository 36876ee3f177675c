package handlers

import (
	"net/http"

	"agrogest/internal/views/pages"
)

// Home sends visitors to a new treatment form.
func Home(w http.ResponseWriter, r *http.Request) {
	if r.URL.Path != "/" {
		http.NotFound(w, r)
		return
	}
	http.Redirect(w, r, pages.FormPath, http.StatusFound)
}
