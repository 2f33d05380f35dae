package repository

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"gorm.io/datatypes"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"plate-check-service/internal/db"
	"plate-check-service/internal/domain/stolen"
	"plate-check-service/internal/utils"
)

// replaceByPlate overwrites every record column on a plate conflict and keeps the row id,
// so the plate keeps its position.
var replaceByPlate = clause.OnConflict{
	Columns: []clause.Column{{Name: "plate"}},
	DoUpdates: clause.AssignmentColumns([]string{
		"report_date", "region", "case_number", "car_model", "color", "updated_at",
	}),
}

type PostgresRepository struct {
	db   *gorm.DB
	opts options
}

func NewPostgresRepository(database *gorm.DB, opts ...Option) *PostgresRepository {
	return &PostgresRepository{db: database, opts: buildOptions(opts)}
}

func (StolenVehicle) TableName() string {
	return "stolen_vehicles"
}

type StolenVehicle struct {
	ID           int64          `gorm:"primaryKey;autoIncrement"`
	Plate        string         `gorm:"not null;uniqueIndex:ux_stolen_vehicles_plate"`
	CompactPlate string         `gorm:"not null"`
	ReportDate   datatypes.Date `gorm:"not null"`
	Region       string         `gorm:"not null"`
	CaseNumber   string         `gorm:"not null"`
	CarModel     string         `gorm:"not null"`
	Color        string         `gorm:"not null"`
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

func (v StolenVehicle) record() *stolen.PlateRecord {
	return &stolen.PlateRecord{
		ReportDate: time.Time(v.ReportDate).Format(stolen.DateLayout),
		Region:     v.Region,
		CaseNumber: v.CaseNumber,
		CarModel:   v.CarModel,
		Color:      v.Color,
	}
}

func newStolenVehicle(plate string, rec stolen.PlateRecord) (StolenVehicle, error) {
	reportDate, err := time.Parse(stolen.DateLayout, rec.ReportDate)
	if err != nil {
		return StolenVehicle{}, fmt.Errorf("invalid report date %q for %s: %w", rec.ReportDate, plate, err)
	}
	return StolenVehicle{
		Plate:        plate,
		CompactPlate: utils.CompactPlate(plate),
		ReportDate:   datatypes.Date(reportDate),
		Region:       rec.Region,
		CaseNumber:   rec.CaseNumber,
		CarModel:     rec.CarModel,
		Color:        rec.Color,
	}, nil
}

func (r *PostgresRepository) Lookup(ctx context.Context, plate string) (*stolen.PlateRecord, bool, error) {
	var v StolenVehicle
	err := r.db.WithContext(ctx).Where("plate = ?", plate).First(&v).Error
	if err == nil {
		return v.record(), true, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, false, fmt.Errorf("lookup plate: %w", err)
	}

	err = r.db.WithContext(ctx).
		Where("compact_plate = ?", utils.CompactPlate(plate)).
		Order("id ASC").
		First(&v).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("lookup compact plate: %w", err)
	}
	return v.record(), true, nil
}

func (r *PostgresRepository) Insert(ctx context.Context, plate string, info stolen.RecordInfo) (*stolen.PlateRecord, error) {
	plate = strings.TrimSpace(plate)
	if plate == "" {
		return nil, ErrEmptyPlate
	}

	var rec stolen.PlateRecord
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var seq int64
		if err := tx.Raw("SELECT nextval(?::regclass)", db.CaseSequence).Scan(&seq).Error; err != nil {
			return fmt.Errorf("next case number: %w", err)
		}

		rec = stolen.NewRecord(r.opts.now(), seq, info)
		v, err := newStolenVehicle(plate, rec)
		if err != nil {
			return err
		}

		return tx.Clauses(replaceByPlate).Create(&v).Error
	})
	if err != nil {
		return nil, fmt.Errorf("insert stolen vehicle: %w", err)
	}
	return &rec, nil
}

func (r *PostgresRepository) Stats(ctx context.Context) (stolen.Stats, error) {
	var plates []string
	err := r.db.WithContext(ctx).
		Model(&StolenVehicle{}).
		Order("id ASC").
		Pluck("plate", &plates).Error
	if err != nil {
		return stolen.Stats{}, fmt.Errorf("list plates: %w", err)
	}
	if plates == nil {
		plates = []string{}
	}
	return stolen.Stats{TotalStolen: len(plates), Plates: plates}, nil
}

func (r *PostgresRepository) Seed(ctx context.Context, entries []stolen.SeedEntry) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		for _, e := range entries {
			plate := strings.TrimSpace(e.Plate)
			if plate == "" {
				return ErrEmptyPlate
			}
			v, err := newStolenVehicle(plate, e.Record)
			if err != nil {
				return err
			}
			if err := tx.Clauses(clause.OnConflict{DoNothing: true}).Create(&v).Error; err != nil {
				return fmt.Errorf("seed %s: %w", plate, err)
			}
		}
		return advanceSequence(tx)
	})
}

func (r *PostgresRepository) Put(ctx context.Context, plate string, rec stolen.PlateRecord) error {
	plate = strings.TrimSpace(plate)
	if plate == "" {
		return ErrEmptyPlate
	}
	v, err := newStolenVehicle(plate, rec)
	if err != nil {
		return err
	}

	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		err := tx.Clauses(replaceByPlate).Create(&v).Error
		if err != nil {
			return fmt.Errorf("put %s: %w", plate, err)
		}
		return advanceSequence(tx)
	})
}

func (r *PostgresRepository) Ping(ctx context.Context) error {
	return db.HealthCheck(ctx, r.db)
}

// advanceSequence moves the case sequence past the current row count so generated
// numbers continue from the registry size, never backwards.
func advanceSequence(tx *gorm.DB) error {
	var count int64
	if err := tx.Model(&StolenVehicle{}).Count(&count).Error; err != nil {
		return fmt.Errorf("count stolen vehicles: %w", err)
	}

	var state struct {
		LastValue int64
		IsCalled  bool
	}
	if err := tx.Raw("SELECT last_value, is_called FROM " + db.CaseSequence).Scan(&state).Error; err != nil {
		return fmt.Errorf("read case sequence: %w", err)
	}
	current := state.LastValue
	if !state.IsCalled {
		current--
	}
	if count <= current {
		return nil
	}
	if err := tx.Exec("SELECT setval(?::regclass, ?)", db.CaseSequence, count).Error; err != nil {
		return fmt.Errorf("advance case sequence: %w", err)
	}
	return nil
}
