// Package boundaries resolves OSM administrative hierarchies country by
// country and materializes them as a region graph in the store.
package boundaries

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"golang.org/x/time/rate"

	"github.com/iKamranShahzad/osm-boundaries-importer/internal/boundaries/overpass"
	"github.com/iKamranShahzad/osm-boundaries-importer/internal/config"
	"github.com/iKamranShahzad/osm-boundaries-importer/internal/logger"
	"github.com/iKamranShahzad/osm-boundaries-importer/internal/metrics"
)

// Fetcher is the slice of the Overpass client the resolver depends on.
type Fetcher interface {
	FetchCountry(ctx context.Context, code string, adminLevel int) (overpass.Element, error)
	FetchChildren(ctx context.Context, parentID int64, adminLevel int) ([]overpass.Element, error)
}

// RunStats summarizes one country's resolution pass.
type RunStats struct {
	CountryCode string        `json:"country_code"`
	RootMissing bool          `json:"root_missing,omitempty"`
	Nodes       int           `json:"nodes"`
	Edges       int           `json:"edges"`
	ByLevel     map[int]int   `json:"by_level"` // admin_level -> node count
	Errors      []string      `json:"errors,omitempty"`
	Elapsed     time.Duration `json:"elapsed"`
}

// Resolver walks one country's administrative hierarchy breadth-first,
// persisting nodes and containment edges as it goes. All upstream traffic is
// sequential: one query in flight, paced between frontier nodes.
type Resolver struct {
	fetcher Fetcher
	store   *Store
	cfg     config.Config
	limiter *rate.Limiter
}

// NewResolver creates a resolver. The limiter spaces consecutive frontier
// node expansions; backoff inside the client's retry loop is separate.
func NewResolver(fetcher Fetcher, store *Store, cfg config.Config) *Resolver {
	return &Resolver{
		fetcher: fetcher,
		store:   store,
		cfg:     cfg,
		limiter: rate.NewLimiter(rate.Every(cfg.NodePause()), 1),
	}
}

// Resolve runs the full traversal for one country and returns the completed
// statistics record. Failures below the root level are recorded on the stats
// and never returned; the caller always gets a usable record.
func (r *Resolver) Resolve(ctx context.Context, country Country) *RunStats {
	stats := &RunStats{CountryCode: country.Code, ByLevel: map[int]int{}}
	start := time.Now()
	defer func() { stats.Elapsed = time.Since(start) }()

	logger.L().Info().Str("country", country.Code).Str("name", country.Name).
		Msg("resolving country")

	rootEl, err := r.fetcher.FetchCountry(ctx, country.Code, r.cfg.StartLevel)
	if err != nil {
		if errors.Is(err, overpass.ErrNotFound) {
			stats.RootMissing = true
			logger.L().Warn().Str("country", country.Code).Msg("root boundary not found")
			return stats
		}
		r.record(stats, "fetch root", err)
		return stats
	}

	root := r.buildRegion(rootEl, country.Code, r.cfg.StartLevel, 0, nil)
	if err := r.store.UpsertRegion(ctx, root); err != nil {
		r.record(stats, "persist root", err)
		return stats
	}
	stats.Nodes++
	stats.ByLevel[root.AdminLevel]++

	// seen is the run-scoped dedup table: relation id -> stored region. It
	// lives and dies with this one traversal so a later run starts clean.
	seen := map[int64]*Region{root.ExternalID: root}
	frontier := []*Region{root}

	for len(frontier) > 0 {
		var next []*Region
		for _, parent := range frontier {
			if err := r.limiter.Wait(ctx); err != nil {
				r.record(stats, "canceled", err)
				return stats
			}
			next = append(next, r.expand(ctx, parent, seen, stats)...)
		}
		frontier = next
	}

	return stats
}

// expand resolves one frontier node's direct children and returns those that
// join the next frontier. Any error is recorded and confined to this branch;
// siblings are unaffected.
func (r *Resolver) expand(ctx context.Context, parent *Region, seen map[int64]*Region, stats *RunStats) []*Region {
	elements, level, err := r.searchChildLevel(ctx, parent)
	if err != nil {
		r.record(stats, fmt.Sprintf("children of relation %d", parent.ExternalID), err)
		return nil
	}
	if len(elements) == 0 {
		return nil // leaf
	}

	logger.L().Debug().
		Str("country", parent.CountryCode).
		Int64("parent", parent.ExternalID).
		Int("admin_level", level).
		Int("children", len(elements)).
		Msg("child level resolved")

	var next []*Region
	for _, el := range elements {
		child, known := seen[el.ID]
		if !known {
			child = r.buildRegion(el, parent.CountryCode, level, parent.CustomLevel+1, &parent.ID)
			if err := r.store.UpsertRegion(ctx, child); err != nil {
				r.record(stats, fmt.Sprintf("persist relation %d", el.ID), err)
				continue
			}
			seen[el.ID] = child
			next = append(next, child)
			stats.Nodes++
			stats.ByLevel[child.AdminLevel]++
		}
		// The node is written once per run, but every parent that reports it
		// gets its own containment edge.
		if err := r.store.EnsureEdge(ctx, parent.ID, child.ID); err != nil {
			r.record(stats, fmt.Sprintf("edge %d -> %d", parent.ExternalID, el.ID), err)
			continue
		}
		stats.Edges++
	}
	return next
}

// searchChildLevel probes successive admin levels below parent and stops at
// the first level holding any boundary. Admin levels are sparse per region,
// so the search walks forward from parent level + 1 instead of assuming a
// fixed child level; once a populated level is found, deeper levels are not
// probed for this parent. No elements means parent is a leaf.
func (r *Resolver) searchChildLevel(ctx context.Context, parent *Region) ([]overpass.Element, int, error) {
	for level := parent.AdminLevel + 1; level <= r.cfg.MaxLevel; level++ {
		elements, err := r.fetcher.FetchChildren(ctx, parent.ExternalID, level)
		if err != nil {
			return nil, 0, err
		}
		if len(elements) > 0 {
			return elements, level, nil
		}
	}
	return nil, 0, nil
}

func (r *Resolver) buildRegion(el overpass.Element, countryCode string, adminLevel, customLevel int, parentID *uuid.UUID) *Region {
	return &Region{
		ExternalID:  el.ID,
		Name:        DisplayName(el.Tags, r.cfg.Languages, el.ID),
		AdminLevel:  adminLevel,
		CustomLevel: customLevel,
		CountryCode: countryCode,
		ParentID:    parentID,
		Tags:        ProjectTags(el.Tags, r.cfg.TagKeys),
	}
}

func (r *Resolver) record(stats *RunStats, stage string, err error) {
	stats.Errors = append(stats.Errors, fmt.Sprintf("%s: %v", stage, err))
	metrics.RunErrorsTotal.Inc()
	logger.L().Error().Err(err).Str("country", stats.CountryCode).Str("stage", stage).
		Msg("resolution error")
}
