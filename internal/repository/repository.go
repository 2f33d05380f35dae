package repository

import (
	"context"
	"errors"
	"time"

	"plate-check-service/internal/domain/stolen"
)

var ErrEmptyPlate = errors.New("plate is required")

// StolenVehicleRepository is the registry of stolen-vehicle records keyed by plate.
type StolenVehicleRepository interface {
	// Lookup matches plate exactly first, then ignoring whitespace on both sides.
	// The earliest inserted key wins when several compact to the same value.
	Lookup(ctx context.Context, plate string) (*stolen.PlateRecord, bool, error)
	// Insert stores a new record under plate, generating its date and case number.
	// Inserting an existing plate replaces the record and keeps its position.
	Insert(ctx context.Context, plate string, info stolen.RecordInfo) (*stolen.PlateRecord, error)
	// Stats returns the size and every key in insertion order.
	Stats(ctx context.Context) (stolen.Stats, error)
	// Seed stores entries verbatim, skipping plates that already exist.
	Seed(ctx context.Context, entries []stolen.SeedEntry) error
	// Put stores rec verbatim under plate. An existing plate is replaced in place.
	// Generated case numbers continue past the registry size afterwards.
	Put(ctx context.Context, plate string, rec stolen.PlateRecord) error
	Ping(ctx context.Context) error
}

type Option func(*options)

type options struct {
	now func() time.Time
}

// WithClock overrides the clock used for report dates and case-number years.
func WithClock(now func() time.Time) Option {
	return func(o *options) {
		o.now = now
	}
}

func buildOptions(opts []Option) options {
	o := options{now: time.Now}
	for _, opt := range opts {
		opt(&o)
	}
	return o
}
