package repository

import (
	"context"
	"strings"
	"sync"

	"plate-check-service/internal/domain/stolen"
	"plate-check-service/internal/utils"
)

// MemoryRepository keeps the registry in process memory. Mutations are serialized by mu and
// case numbers come from a counter that only grows, so concurrent inserts never share one.
type MemoryRepository struct {
	mu      sync.RWMutex
	records map[string]stolen.PlateRecord
	keys    []string
	seq     int64
	opts    options
}

func NewMemoryRepository(opts ...Option) *MemoryRepository {
	return &MemoryRepository{
		records: make(map[string]stolen.PlateRecord),
		opts:    buildOptions(opts),
	}
}

func (r *MemoryRepository) Lookup(ctx context.Context, plate string) (*stolen.PlateRecord, bool, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	if rec, ok := r.records[plate]; ok {
		return &rec, true, nil
	}

	compact := utils.CompactPlate(plate)
	for _, key := range r.keys {
		if utils.CompactPlate(key) == compact {
			rec := r.records[key]
			return &rec, true, nil
		}
	}
	return nil, false, nil
}

func (r *MemoryRepository) Insert(ctx context.Context, plate string, info stolen.RecordInfo) (*stolen.PlateRecord, error) {
	plate = strings.TrimSpace(plate)
	if plate == "" {
		return nil, ErrEmptyPlate
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	r.seq++
	rec := stolen.NewRecord(r.opts.now(), r.seq, info)
	r.put(plate, rec)
	return &rec, nil
}

func (r *MemoryRepository) Stats(ctx context.Context) (stolen.Stats, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	return stolen.Stats{
		TotalStolen: len(r.keys),
		Plates:      append([]string{}, r.keys...),
	}, nil
}

func (r *MemoryRepository) Seed(ctx context.Context, entries []stolen.SeedEntry) error {
	for _, e := range entries {
		if strings.TrimSpace(e.Plate) == "" {
			return ErrEmptyPlate
		}
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	for _, e := range entries {
		plate := strings.TrimSpace(e.Plate)
		if _, ok := r.records[plate]; ok {
			continue
		}
		r.put(plate, e.Record)
	}
	r.advanceSeq()
	return nil
}

func (r *MemoryRepository) Put(ctx context.Context, plate string, rec stolen.PlateRecord) error {
	plate = strings.TrimSpace(plate)
	if plate == "" {
		return ErrEmptyPlate
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	r.put(plate, rec)
	r.advanceSeq()
	return nil
}

func (r *MemoryRepository) Ping(ctx context.Context) error {
	return nil
}

func (r *MemoryRepository) advanceSeq() {
	if n := int64(len(r.keys)); r.seq < n {
		r.seq = n
	}
}

func (r *MemoryRepository) put(plate string, rec stolen.PlateRecord) {
	if _, ok := r.records[plate]; !ok {
		r.keys = append(r.keys, plate)
	}
	r.records[plate] = rec
}
