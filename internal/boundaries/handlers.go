package boundaries

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"
	"gorm.io/gorm"

	"github.com/iKamranShahzad/osm-boundaries-importer/internal/db"
)

// CountrySummary is one row of the countries listing.
type CountrySummary struct {
	Country
	Regions int64 `json:"regions"`
}

// ListCountriesHandler returns the reference countries with their imported
// region counts.
func ListCountriesHandler(w http.ResponseWriter, r *http.Request) {
	store := NewStore(db.DB)

	countries, err := store.ListCountries(r.Context())
	if err != nil {
		http.Error(w, "Failed to fetch countries: "+err.Error(), http.StatusInternalServerError)
		return
	}
	counts, err := store.RegionCountsByCountry(r.Context())
	if err != nil {
		http.Error(w, "Failed to count regions: "+err.Error(), http.StatusInternalServerError)
		return
	}

	out := make([]CountrySummary, 0, len(countries))
	for _, c := range countries {
		out = append(out, CountrySummary{Country: c, Regions: counts[c.Code]})
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(out)
}

// GetCountryLevelsHandler returns the per-level region breakdown for one
// country code.
func GetCountryLevelsHandler(w http.ResponseWriter, r *http.Request) {
	code := strings.ToUpper(chi.URLParam(r, "code"))
	store := NewStore(db.DB)

	levels, err := store.LevelCounts(r.Context(), code)
	if err != nil {
		http.Error(w, "Failed to fetch levels: "+err.Error(), http.StatusInternalServerError)
		return
	}

	resp := struct {
		Code   string       `json:"code"`
		Levels []LevelCount `json:"levels"`
	}{Code: code, Levels: levels}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(resp)
}

// GetRegionHandler returns one region by OSM relation id together with its
// direct children.
func GetRegionHandler(w http.ResponseWriter, r *http.Request) {
	externalID, err := strconv.ParseInt(chi.URLParam(r, "external_id"), 10, 64)
	if err != nil {
		http.Error(w, "external_id must be a relation id", http.StatusBadRequest)
		return
	}
	store := NewStore(db.DB)

	region, err := store.RegionByExternalID(r.Context(), externalID)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		http.Error(w, "Region not found", http.StatusNotFound)
		return
	}
	if err != nil {
		http.Error(w, "Failed to fetch region: "+err.Error(), http.StatusInternalServerError)
		return
	}

	children, err := store.ChildrenOf(r.Context(), region.ID)
	if err != nil {
		http.Error(w, "Failed to fetch children: "+err.Error(), http.StatusInternalServerError)
		return
	}

	resp := struct {
		Region   *Region  `json:"region"`
		Children []Region `json:"children"`
	}{Region: region, Children: children}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(resp)
}

// TreeNode is a region with its nested children, bounded by the requested
// depth.
type TreeNode struct {
	Region   Region     `json:"region"`
	Children []TreeNode `json:"children,omitempty"`
}

const maxTreeDepth = 6

// GetRegionTreeHandler returns the subtree under one region. Depth defaults
// to 2 (the region and its children) and is capped to keep responses
// bounded.
func GetRegionTreeHandler(w http.ResponseWriter, r *http.Request) {
	externalID, err := strconv.ParseInt(chi.URLParam(r, "external_id"), 10, 64)
	if err != nil {
		http.Error(w, "external_id must be a relation id", http.StatusBadRequest)
		return
	}

	depth := 2
	if v := r.URL.Query().Get("depth"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 1 {
			http.Error(w, "depth must be a positive integer", http.StatusBadRequest)
			return
		}
		depth = n
	}
	if depth > maxTreeDepth {
		depth = maxTreeDepth
	}

	store := NewStore(db.DB)
	region, err := store.RegionByExternalID(r.Context(), externalID)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		http.Error(w, "Region not found", http.StatusNotFound)
		return
	}
	if err != nil {
		http.Error(w, "Failed to fetch region: "+err.Error(), http.StatusInternalServerError)
		return
	}

	tree, err := buildTree(r.Context(), store, *region, depth)
	if err != nil {
		http.Error(w, "Failed to build tree: "+err.Error(), http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(tree)
}

func buildTree(ctx context.Context, store *Store, region Region, depth int) (TreeNode, error) {
	node := TreeNode{Region: region}
	if depth <= 1 {
		return node, nil
	}
	children, err := store.ChildrenOf(ctx, region.ID)
	if err != nil {
		return node, err
	}
	for _, child := range children {
		sub, err := buildTree(ctx, store, child, depth-1)
		if err != nil {
			return node, err
		}
		node.Children = append(node.Children, sub)
	}
	return node, nil
}
