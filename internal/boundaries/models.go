package boundaries

import (
	"time"

	"github.com/google/uuid"
)

// TagBag holds the projected OSM tags of a region as a sparse key/value set.
// Stored as JSON so the schema is identical on postgres and sqlite.
type TagBag map[string]string

// Region is one administrative boundary relation imported from OSM.
//
// AdminLevel is the upstream classification of the tier (country=2 down to
// neighborhood=10+); CustomLevel is the 0-based depth actually observed
// under the country root, counting only levels that exist there. The two
// differ whenever intermediate admin levels are absent for a region.
type Region struct {
	ID         uuid.UUID `json:"id" gorm:"type:uuid;primaryKey"`
	ExternalID int64     `json:"external_id" gorm:"uniqueIndex"` // OSM relation id, the sole dedup key
	Name       string    `json:"name"`

	AdminLevel  int    `json:"admin_level" gorm:"index:idx_regions_country_level,priority:2"`
	CustomLevel int    `json:"custom_level"`
	CountryCode string `json:"country_code" gorm:"index:idx_regions_country_level,priority:1"`

	// ParentID is the first parent that discovered this region. A region
	// reported by more than one parent keeps one row; region_edges carries
	// the full set of parents.
	ParentID *uuid.UUID `json:"parent_id" gorm:"type:uuid"`

	Tags      TagBag    `json:"tags" gorm:"serializer:json"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// EdgeKindContains labels direct containment between a region and a
// sub-region.
const EdgeKindContains = "contains"

// RegionEdge is one directed containment link. The composite primary key is
// the uniqueness guarantee: at most one edge per ordered pair.
type RegionEdge struct {
	ParentID  uuid.UUID `json:"parent_id" gorm:"type:uuid;primaryKey"`
	ChildID   uuid.UUID `json:"child_id" gorm:"type:uuid;primaryKey"`
	Kind      string    `json:"kind"`
	CreatedAt time.Time `json:"created_at"`
}

// Country is one row of the externally provisioned country reference list.
// The importer reads it to select roots; only cmd/seed writes it.
type Country struct {
	ID        uuid.UUID `json:"id" gorm:"type:uuid;primaryKey"`
	Code      string    `json:"code" gorm:"index"` // ISO-3166-1 alpha-2; may be empty, such rows are skipped
	Name      string    `json:"name"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}
