package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	_ "modernc.org/sqlite"

	"plate-check-service/internal/domain/stolen"
	"plate-check-service/internal/utils"
)

const caseCounter = "case_number"

// upsertVehicleSQL replaces an existing plate in place; its id, and so its position, is kept.
const upsertVehicleSQL = `INSERT INTO stolen_vehicles
	(plate, compact_plate, report_date, region, case_number, car_model, color, created_at)
	VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	ON CONFLICT(plate) DO UPDATE SET
		report_date = excluded.report_date,
		region = excluded.region,
		case_number = excluded.case_number,
		car_model = excluded.car_model,
		color = excluded.color`

// SQLiteRepository stores the registry in an embedded SQLite file.
type SQLiteRepository struct {
	db   *sql.DB
	opts options
}

// OpenSQLite opens (creating if needed) the database at path. ":memory:" is accepted.
func OpenSQLite(path string, opts ...Option) (*SQLiteRepository, error) {
	database, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	// A single connection keeps ":memory:" databases shared and serializes writers.
	database.SetMaxOpenConns(1)

	r := &SQLiteRepository{db: database, opts: buildOptions(opts)}
	if err := r.initDB(); err != nil {
		database.Close()
		return nil, err
	}
	return r, nil
}

func (r *SQLiteRepository) Close() error {
	return r.db.Close()
}

func (r *SQLiteRepository) initDB() error {
	statements := []string{
		`CREATE TABLE IF NOT EXISTS stolen_vehicles (
			id            INTEGER PRIMARY KEY AUTOINCREMENT,
			plate         TEXT NOT NULL UNIQUE,
			compact_plate TEXT NOT NULL,
			report_date   TEXT NOT NULL,
			region        TEXT NOT NULL,
			case_number   TEXT NOT NULL,
			car_model     TEXT NOT NULL,
			color         TEXT NOT NULL,
			created_at    TIMESTAMP NOT NULL
		)`,
		`CREATE INDEX IF NOT EXISTS idx_stolen_vehicles_compact_plate ON stolen_vehicles(compact_plate, id)`,
		`CREATE TABLE IF NOT EXISTS registry_counters (
			name  TEXT PRIMARY KEY,
			value INTEGER NOT NULL
		)`,
		`INSERT OR IGNORE INTO registry_counters (name, value) VALUES ('` + caseCounter + `', 0)`,
	}

	for _, stmt := range statements {
		if _, err := r.db.Exec(stmt); err != nil {
			return fmt.Errorf("failed to initialize sqlite registry: %w", err)
		}
	}
	return nil
}

func (r *SQLiteRepository) Lookup(ctx context.Context, plate string) (*stolen.PlateRecord, bool, error) {
	rec, err := r.queryRecord(ctx, `WHERE plate = ?`, plate)
	if err == nil {
		return rec, true, nil
	}
	if !errors.Is(err, sql.ErrNoRows) {
		return nil, false, fmt.Errorf("lookup plate: %w", err)
	}

	rec, err = r.queryRecord(ctx, `WHERE compact_plate = ? ORDER BY id ASC LIMIT 1`, utils.CompactPlate(plate))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("lookup compact plate: %w", err)
	}
	return rec, true, nil
}

func (r *SQLiteRepository) queryRecord(ctx context.Context, where string, arg any) (*stolen.PlateRecord, error) {
	var rec stolen.PlateRecord
	err := r.db.QueryRowContext(ctx,
		`SELECT report_date, region, case_number, car_model, color FROM stolen_vehicles `+where, arg,
	).Scan(&rec.ReportDate, &rec.Region, &rec.CaseNumber, &rec.CarModel, &rec.Color)
	if err != nil {
		return nil, err
	}
	return &rec, nil
}

func (r *SQLiteRepository) Insert(ctx context.Context, plate string, info stolen.RecordInfo) (*stolen.PlateRecord, error) {
	plate = strings.TrimSpace(plate)
	if plate == "" {
		return nil, ErrEmptyPlate
	}

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("begin insert: %w", err)
	}
	defer tx.Rollback()

	var seq int64
	err = tx.QueryRowContext(ctx,
		`UPDATE registry_counters SET value = value + 1 WHERE name = ? RETURNING value`, caseCounter,
	).Scan(&seq)
	if err != nil {
		return nil, fmt.Errorf("next case number: %w", err)
	}

	rec := stolen.NewRecord(r.opts.now(), seq, info)
	_, err = tx.ExecContext(ctx,
		upsertVehicleSQL,
		plate, utils.CompactPlate(plate), rec.ReportDate, rec.Region, rec.CaseNumber, rec.CarModel, rec.Color, time.Now(),
	)
	if err != nil {
		return nil, fmt.Errorf("insert stolen vehicle: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("commit insert: %w", err)
	}
	return &rec, nil
}

func (r *SQLiteRepository) Stats(ctx context.Context) (stolen.Stats, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT plate FROM stolen_vehicles ORDER BY id ASC`)
	if err != nil {
		return stolen.Stats{}, fmt.Errorf("list plates: %w", err)
	}
	defer rows.Close()

	plates := []string{}
	for rows.Next() {
		var p string
		if err := rows.Scan(&p); err != nil {
			return stolen.Stats{}, fmt.Errorf("scan plate: %w", err)
		}
		plates = append(plates, p)
	}
	if err := rows.Err(); err != nil {
		return stolen.Stats{}, fmt.Errorf("list plates: %w", err)
	}
	return stolen.Stats{TotalStolen: len(plates), Plates: plates}, nil
}

func (r *SQLiteRepository) Seed(ctx context.Context, entries []stolen.SeedEntry) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin seed: %w", err)
	}
	defer tx.Rollback()

	for _, e := range entries {
		plate := strings.TrimSpace(e.Plate)
		if plate == "" {
			return ErrEmptyPlate
		}
		_, err := tx.ExecContext(ctx,
			`INSERT OR IGNORE INTO stolen_vehicles
			(plate, compact_plate, report_date, region, case_number, car_model, color, created_at)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
			plate, utils.CompactPlate(plate), e.Record.ReportDate, e.Record.Region,
			e.Record.CaseNumber, e.Record.CarModel, e.Record.Color, time.Now(),
		)
		if err != nil {
			return fmt.Errorf("seed %s: %w", plate, err)
		}
	}

	if err := advanceCounter(ctx, tx); err != nil {
		return err
	}
	return tx.Commit()
}

func (r *SQLiteRepository) Put(ctx context.Context, plate string, rec stolen.PlateRecord) error {
	plate = strings.TrimSpace(plate)
	if plate == "" {
		return ErrEmptyPlate
	}

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin put: %w", err)
	}
	defer tx.Rollback()

	_, err = tx.ExecContext(ctx,
		upsertVehicleSQL,
		plate, utils.CompactPlate(plate), rec.ReportDate, rec.Region, rec.CaseNumber, rec.CarModel, rec.Color, time.Now(),
	)
	if err != nil {
		return fmt.Errorf("put %s: %w", plate, err)
	}

	if err := advanceCounter(ctx, tx); err != nil {
		return err
	}
	return tx.Commit()
}

// advanceCounter keeps the case counter at or above the registry size.
func advanceCounter(ctx context.Context, tx *sql.Tx) error {
	_, err := tx.ExecContext(ctx,
		`UPDATE registry_counters
		SET value = MAX(value, (SELECT COUNT(*) FROM stolen_vehicles))
		WHERE name = ?`, caseCounter,
	)
	if err != nil {
		return fmt.Errorf("advance case counter: %w", err)
	}
	return nil
}

func (r *SQLiteRepository) Ping(ctx context.Context) error {
	return r.db.PingContext(ctx)
}
