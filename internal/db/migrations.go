package db

import (
	"fmt"

	"gorm.io/gorm"
)

// CaseSequence numbers the case numbers of inserted records.
const CaseSequence = "stolen_vehicle_case_seq"

var migrationStatements = []string{
	// plate is the key exactly as reported; compact_plate drops every whitespace rune
	// and serves the whitespace-insensitive lookup. id keeps insertion order.
	`CREATE TABLE IF NOT EXISTS stolen_vehicles (
		id              BIGSERIAL PRIMARY KEY,
		plate           TEXT NOT NULL,
		compact_plate   TEXT NOT NULL,
		report_date     DATE NOT NULL,
		region          TEXT NOT NULL,
		case_number     TEXT NOT NULL,
		car_model       TEXT NOT NULL,
		color           TEXT NOT NULL,
		created_at      TIMESTAMPTZ NOT NULL DEFAULT now(),
		updated_at      TIMESTAMPTZ NOT NULL DEFAULT now()
	);`,
	`CREATE UNIQUE INDEX IF NOT EXISTS ux_stolen_vehicles_plate ON stolen_vehicles(plate);`,
	`CREATE INDEX IF NOT EXISTS idx_stolen_vehicles_compact_plate ON stolen_vehicles(compact_plate, id);`,
	`CREATE INDEX IF NOT EXISTS idx_stolen_vehicles_case_number ON stolen_vehicles(case_number);`,

	`CREATE SEQUENCE IF NOT EXISTS ` + CaseSequence + ` START WITH 1 INCREMENT BY 1;`,
}

func runMigrations(db *gorm.DB) error {
	for i, stmt := range migrationStatements {
		if err := db.Exec(stmt).Error; err != nil {
			return fmt.Errorf("migration %d failed: %w", i+1, err)
		}
	}
	return nil
}
