package main

import (
	"context"
	"fmt"
	"log"
	"os"

	"github.com/google/uuid"
	"github.com/joho/godotenv"

	"github.com/iKamranShahzad/osm-boundaries-importer/internal/boundaries"
	"github.com/iKamranShahzad/osm-boundaries-importer/internal/db"
)

// Re-checks the stored region graph offline: roots sit at depth 0, depth
// steps by one along parent links, admin levels strictly increase downward,
// and every edge joins two stored regions.
func main() {
	godotenv.Load(".env.local")

	dbURL := os.Getenv("DATABASE_URL")
	if dbURL == "" {
		log.Fatal("DATABASE_URL not set")
	}

	gdb, err := db.Open(dbURL)
	if err != nil {
		log.Fatalf("DB connection error: %v", err)
	}

	store := boundaries.NewStore(gdb)
	ctx := context.Background()

	regions, err := store.AllRegions(ctx)
	if err != nil {
		log.Fatalf("Load regions: %v", err)
	}
	edges, err := store.AllEdges(ctx)
	if err != nil {
		log.Fatalf("Load edges: %v", err)
	}

	byID := make(map[uuid.UUID]boundaries.Region, len(regions))
	for _, reg := range regions {
		byID[reg.ID] = reg
	}

	violations := 0
	bad := func(format string, args ...any) {
		violations++
		fmt.Printf("FAIL "+format+"\n", args...)
	}

	for _, reg := range regions {
		if reg.ParentID == nil {
			if reg.CustomLevel != 0 {
				bad("root %d (%s) has custom_level %d, want 0", reg.ExternalID, reg.Name, reg.CustomLevel)
			}
			continue
		}
		parent, ok := byID[*reg.ParentID]
		if !ok {
			bad("region %d references missing parent %s", reg.ExternalID, *reg.ParentID)
			continue
		}
		if reg.CustomLevel != parent.CustomLevel+1 {
			bad("region %d has custom_level %d, parent %d has %d",
				reg.ExternalID, reg.CustomLevel, parent.ExternalID, parent.CustomLevel)
		}
		if reg.AdminLevel <= parent.AdminLevel {
			bad("region %d admin_level %d is not below parent %d admin_level %d",
				reg.ExternalID, reg.AdminLevel, parent.ExternalID, parent.AdminLevel)
		}
	}

	for _, edge := range edges {
		parent, ok := byID[edge.ParentID]
		if !ok {
			bad("edge %s -> %s references a missing parent", edge.ParentID, edge.ChildID)
			continue
		}
		child, ok := byID[edge.ChildID]
		if !ok {
			bad("edge %s -> %s references a missing child", edge.ParentID, edge.ChildID)
			continue
		}
		if child.AdminLevel <= parent.AdminLevel {
			bad("edge %d -> %d: admin_level does not increase (%d -> %d)",
				parent.ExternalID, child.ExternalID, parent.AdminLevel, child.AdminLevel)
		}
	}

	fmt.Printf("checked %d regions, %d edges: %d violations\n", len(regions), len(edges), violations)
	if violations > 0 {
		os.Exit(1)
	}
}
