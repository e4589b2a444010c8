package main

import (
	"fmt"
	"net/http"
	"os"

	"github.com/go-chi/chi/v5"
	"github.com/joho/godotenv"

	"github.com/iKamranShahzad/osm-boundaries-importer/internal/boundaries"
	"github.com/iKamranShahzad/osm-boundaries-importer/internal/db"
	"github.com/iKamranShahzad/osm-boundaries-importer/internal/logger"
	"github.com/iKamranShahzad/osm-boundaries-importer/internal/metrics"
	"github.com/iKamranShahzad/osm-boundaries-importer/internal/middleware"
)

func RootHandler(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/plain")
	fmt.Fprintln(w, "Server is up!")
}

func main() {
	_ = godotenv.Load(".env.local")
	logger.Setup()
	db.Connect()

	port := os.Getenv("PORT")
	if port == "" {
		port = "5050"
	}

	boundaries.Init()

	r := chi.NewRouter()
	r.Use(middleware.AccessLog)
	r.Use(middleware.CORSMiddleware)
	r.Get("/", RootHandler)
	r.Mount("/boundaries", boundaries.SetupRoutes())
	r.Handle("/metrics", metrics.Handler())

	logger.L().Info().Str("port", port).Msg("report server listening")
	if err := http.ListenAndServe("0.0.0.0:"+port, r); err != nil {
		logger.L().Fatal().Err(err).Msg("server stopped")
	}
}
