package boundaries

import (
	"github.com/iKamranShahzad/osm-boundaries-importer/internal/db"
	"github.com/iKamranShahzad/osm-boundaries-importer/internal/logger"
)

// Init migrates the boundary tables on the shared session. Fatal on failure.
func Init() {
	if err := db.DB.AutoMigrate(&Country{}, &Region{}, &RegionEdge{}); err != nil {
		logger.L().Fatal().Err(err).Msg("failed to auto-migrate boundary tables")
	}
}
