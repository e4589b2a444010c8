package main

import (
	"bufio"
	"encoding/csv"
	"errors"
	"flag"
	"fmt"
	"log"
	"os"
	"strings"

	"github.com/google/uuid"
	"github.com/joho/godotenv"
	"gorm.io/gorm"

	"github.com/iKamranShahzad/osm-boundaries-importer/internal/boundaries"
	"github.com/iKamranShahzad/osm-boundaries-importer/internal/db"
	"github.com/iKamranShahzad/osm-boundaries-importer/internal/logger"
)

func main() {
	csvPath := flag.String("csv", "seeds/countries.csv", "path to the countries CSV (code,name)")
	flag.Parse()

	_ = godotenv.Load(".env.local")
	logger.Setup()
	db.Connect()
	boundaries.Init()

	created, err := seedCountries(*csvPath)
	if err != nil {
		log.Fatalf("❌ Seeding failed: %v", err)
	}
	log.Printf("✅ Seeded %d countries", created)
}

type countryRow struct {
	code string
	name string
}

func seedCountries(path string) (int, error) {
	rows, err := readCountryCSV(path)
	if err != nil {
		return 0, err
	}

	created := 0
	for _, row := range rows {
		label := row.code
		if label == "" {
			label = row.name
		}

		var existing boundaries.Country
		if row.code != "" {
			err = db.DB.First(&existing, "code = ?", row.code).Error
		} else {
			err = db.DB.First(&existing, "name = ?", row.name).Error
		}
		if err == nil {
			log.Printf("⚠️ Country exists, skipping: %s", label)
			continue
		} else if !errors.Is(err, gorm.ErrRecordNotFound) {
			return created, fmt.Errorf("DB error on country %s: %w", label, err)
		}

		country := boundaries.Country{ID: uuid.New(), Code: row.code, Name: row.name}
		if err := db.DB.Create(&country).Error; err != nil {
			return created, fmt.Errorf("failed to create country %s: %w", label, err)
		}
		created++
	}
	return created, nil
}

func readCountryCSV(path string) ([]countryRow, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	r := csv.NewReader(bufio.NewReader(f))
	r.FieldsPerRecord = -1

	records, err := r.ReadAll()
	if err != nil {
		return nil, err
	}
	if len(records) < 2 {
		return nil, errors.New("csv has no data rows")
	}

	header := records[0]
	// Handle BOM on first header cell
	if len(header) > 0 {
		header[0] = strings.TrimPrefix(header[0], "﻿")
	}

	col := map[string]int{}
	for i, h := range header {
		col[strings.ToLower(strings.TrimSpace(h))] = i
	}
	codeIdx, ok := col["code"]
	if !ok {
		return nil, errors.New(`csv is missing a "code" column`)
	}
	nameIdx, ok := col["name"]
	if !ok {
		return nil, errors.New(`csv is missing a "name" column`)
	}

	var rows []countryRow
	for _, rec := range records[1:] {
		if len(rec) <= codeIdx || len(rec) <= nameIdx {
			continue
		}
		code := strings.ToUpper(strings.TrimSpace(rec[codeIdx]))
		name := strings.TrimSpace(rec[nameIdx])
		if name == "" {
			continue
		}
		rows = append(rows, countryRow{code: code, name: name})
	}
	return rows, nil
}
