package boundaries

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/iKamranShahzad/osm-boundaries-importer/internal/metrics"
)

// Store wraps a gorm session with the region-graph persistence operations.
type Store struct {
	db *gorm.DB
}

// NewStore creates a Store on an open session.
func NewStore(gdb *gorm.DB) *Store {
	return &Store{db: gdb}
}

// UpsertRegion writes region keyed by its OSM relation id. A new region gets
// a fresh internal id; an existing one keeps its id and creation time while
// every mutable attribute is overwritten. The passed struct carries the
// stored identity back to the caller. Safe to call repeatedly with the same
// input.
func (s *Store) UpsertRegion(ctx context.Context, region *Region) error {
	var existing Region
	err := s.db.WithContext(ctx).Where("external_id = ?", region.ExternalID).First(&existing).Error
	switch {
	case errors.Is(err, gorm.ErrRecordNotFound):
		if region.ID == uuid.Nil {
			region.ID = uuid.New()
		}
		if err := s.db.WithContext(ctx).Create(region).Error; err != nil {
			return fmt.Errorf("create region %d: %w", region.ExternalID, err)
		}
		metrics.RegionsCreatedTotal.Inc()
		return nil
	case err != nil:
		return fmt.Errorf("look up region %d: %w", region.ExternalID, err)
	}

	region.ID = existing.ID
	region.CreatedAt = existing.CreatedAt
	if err := s.db.WithContext(ctx).Save(region).Error; err != nil {
		return fmt.Errorf("update region %d: %w", region.ExternalID, err)
	}
	metrics.RegionsUpdatedTotal.Inc()
	return nil
}

// EnsureEdge records containment between two stored regions once. Calling it
// again with the same ordered pair is a no-op.
func (s *Store) EnsureEdge(ctx context.Context, parentID, childID uuid.UUID) error {
	edge := RegionEdge{ParentID: parentID, ChildID: childID, Kind: EdgeKindContains}
	res := s.db.WithContext(ctx).
		Where("parent_id = ? AND child_id = ?", parentID, childID).
		FirstOrCreate(&edge)
	if res.Error != nil {
		return fmt.Errorf("ensure edge %s -> %s: %w", parentID, childID, res.Error)
	}
	if res.RowsAffected > 0 {
		metrics.EdgesCreatedTotal.Inc()
	}
	return nil
}

// RegionByExternalID looks a region up by OSM relation id. Returns
// gorm.ErrRecordNotFound unchanged so callers can branch on it.
func (s *Store) RegionByExternalID(ctx context.Context, externalID int64) (*Region, error) {
	var region Region
	if err := s.db.WithContext(ctx).Where("external_id = ?", externalID).First(&region).Error; err != nil {
		return nil, err
	}
	return &region, nil
}

// ChildrenOf returns the regions directly contained by parentID, following
// the edge table rather than the parent_id column so multi-parent children
// appear under every parent.
func (s *Store) ChildrenOf(ctx context.Context, parentID uuid.UUID) ([]Region, error) {
	var children []Region
	err := s.db.WithContext(ctx).
		Joins("JOIN region_edges ON region_edges.child_id = regions.id").
		Where("region_edges.parent_id = ?", parentID).
		Order("regions.admin_level, regions.name").
		Find(&children).Error
	return children, err
}

// RegionsByCountry returns every region imported under one country code.
func (s *Store) RegionsByCountry(ctx context.Context, code string) ([]Region, error) {
	var regions []Region
	err := s.db.WithContext(ctx).
		Where("country_code = ?", code).
		Order("custom_level, admin_level, name").
		Find(&regions).Error
	return regions, err
}

// LevelCount is one row of a per-country level breakdown.
type LevelCount struct {
	AdminLevel  int   `json:"admin_level"`
	CustomLevel int   `json:"custom_level"`
	Count       int64 `json:"count"`
}

// LevelCounts reports how many regions one country holds per level pair.
func (s *Store) LevelCounts(ctx context.Context, code string) ([]LevelCount, error) {
	var rows []LevelCount
	err := s.db.WithContext(ctx).Model(&Region{}).
		Select("admin_level, custom_level, count(*) as count").
		Where("country_code = ?", code).
		Group("admin_level, custom_level").
		Order("custom_level, admin_level").
		Scan(&rows).Error
	return rows, err
}

// RegionCountsByCountry returns the total region count per country code.
func (s *Store) RegionCountsByCountry(ctx context.Context) (map[string]int64, error) {
	var rows []struct {
		CountryCode string
		Count       int64
	}
	err := s.db.WithContext(ctx).Model(&Region{}).
		Select("country_code, count(*) as count").
		Group("country_code").
		Scan(&rows).Error
	if err != nil {
		return nil, err
	}
	counts := make(map[string]int64, len(rows))
	for _, row := range rows {
		counts[row.CountryCode] = row.Count
	}
	return counts, nil
}

// ListCountries returns the reference list ordered by code.
func (s *Store) ListCountries(ctx context.Context) ([]Country, error) {
	var countries []Country
	err := s.db.WithContext(ctx).Order("code").Find(&countries).Error
	return countries, err
}

// CountriesBySelectors resolves run selectors to country rows. A selector is
// an ISO code or an internal country id; no selectors means every country on
// file.
func (s *Store) CountriesBySelectors(ctx context.Context, selectors []string) ([]Country, error) {
	var codes []string
	var ids []uuid.UUID
	for _, sel := range selectors {
		sel = strings.TrimSpace(sel)
		if sel == "" {
			continue
		}
		if id, err := uuid.Parse(sel); err == nil {
			ids = append(ids, id)
			continue
		}
		codes = append(codes, strings.ToUpper(sel))
	}

	q := s.db.WithContext(ctx)
	switch {
	case len(codes) > 0 && len(ids) > 0:
		q = q.Where("code IN ?", codes).Or("id IN ?", ids)
	case len(codes) > 0:
		q = q.Where("code IN ?", codes)
	case len(ids) > 0:
		q = q.Where("id IN ?", ids)
	default:
		return s.ListCountries(ctx)
	}

	var countries []Country
	err := q.Order("code").Find(&countries).Error
	return countries, err
}

// AllRegions loads the full node set, used by the offline verifier.
func (s *Store) AllRegions(ctx context.Context) ([]Region, error) {
	var regions []Region
	err := s.db.WithContext(ctx).Find(&regions).Error
	return regions, err
}

// AllEdges loads the full edge set, used by the offline verifier.
func (s *Store) AllEdges(ctx context.Context) ([]RegionEdge, error) {
	var edges []RegionEdge
	err := s.db.WithContext(ctx).Find(&edges).Error
	return edges, err
}

// CountRegions returns the total stored node count.
func (s *Store) CountRegions(ctx context.Context) (int64, error) {
	var n int64
	err := s.db.WithContext(ctx).Model(&Region{}).Count(&n).Error
	return n, err
}

// CountEdges returns the total stored edge count.
func (s *Store) CountEdges(ctx context.Context) (int64, error) {
	var n int64
	err := s.db.WithContext(ctx).Model(&RegionEdge{}).Count(&n).Error
	return n, err
}
