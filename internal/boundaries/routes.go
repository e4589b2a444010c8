package boundaries

import (
	"net/http"

	"github.com/go-chi/chi/v5"
)

// SetupRoutes wires the read-only reporting endpoints over the imported
// graph.
func SetupRoutes() http.Handler {
	r := chi.NewRouter()

	r.Get("/countries", ListCountriesHandler)
	r.Get("/countries/{code}/levels", GetCountryLevelsHandler)
	r.Get("/regions/{external_id}", GetRegionHandler)
	r.Get("/regions/{external_id}/tree", GetRegionTreeHandler)

	return r
}
