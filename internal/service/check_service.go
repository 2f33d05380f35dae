package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"plate-check-service/internal/domain/stolen"
	"plate-check-service/internal/importer"
	"plate-check-service/internal/repository"
)

var (
	ErrInvalidInput   = errors.New("invalid input")
	ErrNoInput        = errors.New("must provide a plate number or image")
	ErrOCRUnavailable = errors.New("plate recognition is not configured")
)

// PlateExtractor reads plate candidates out of raw image bytes.
type PlateExtractor interface {
	Extract(ctx context.Context, image []byte) ([]stolen.ExtractedPlate, error)
}

// ImageArchiver keeps a copy of checked images and returns where it was stored.
type ImageArchiver interface {
	ArchiveImage(ctx context.Context, data []byte, filename string) (string, error)
}

type CheckInput struct {
	PlateNumber string
	Image       []byte
	ImageName   string
}

type CheckService struct {
	repo      repository.StolenVehicleRepository
	extractor PlateExtractor
	archiver  ImageArchiver
	log       zerolog.Logger
	now       func() time.Time
}

func NewCheckService(
	repo repository.StolenVehicleRepository,
	extractor PlateExtractor,
	archiver ImageArchiver,
	log zerolog.Logger,
) *CheckService {
	return &CheckService{
		repo:      repo,
		extractor: extractor,
		archiver:  archiver,
		log:       log,
		now:       time.Now,
	}
}

// Check runs the typed plate and every plate read from the image against the registry.
func (s *CheckService) Check(ctx context.Context, in CheckInput) (*stolen.CheckResponse, error) {
	typed := strings.TrimSpace(in.PlateNumber)

	extracted := []stolen.ExtractedPlate{}
	var imageURL string
	if in.Image != nil {
		if s.extractor == nil {
			return nil, ErrOCRUnavailable
		}
		plates, err := s.extractor.Extract(ctx, in.Image)
		if err != nil {
			return nil, fmt.Errorf("extract plates: %w", err)
		}
		if plates != nil {
			extracted = plates
		}

		s.log.Info().
			Int("image_size", len(in.Image)).
			Int("extracted_count", len(extracted)).
			Msg("plates extracted from image")

		imageURL = s.archive(ctx, in)
	}

	candidates := make([]string, 0, len(extracted)+1)
	if typed != "" {
		candidates = append(candidates, typed)
	}
	for _, p := range extracted {
		candidates = append(candidates, p.Text)
	}
	if len(candidates) == 0 {
		return nil, ErrNoInput
	}

	resp := &stolen.CheckResponse{
		Success:         true,
		Results:         make([]stolen.CheckResult, 0, len(candidates)),
		ExtractedPlates: extracted,
		ImageURL:        imageURL,
	}

	for _, plate := range candidates {
		rec, found, err := s.repo.Lookup(ctx, plate)
		if err != nil {
			s.log.Error().Err(err).Str("plate", plate).Msg("failed to look up plate")
			return nil, fmt.Errorf("lookup %q: %w", plate, err)
		}

		result := stolen.CheckResult{
			Plate:     plate,
			IsStolen:  found,
			CheckTime: s.now().Format(stolen.CheckTimeLayout),
		}
		if found {
			resp.AnyStolen = true
			result.Details = rec
			s.log.Warn().
				Str("plate", plate).
				Str("case_number", rec.CaseNumber).
				Str("region", rec.Region).
				Msg("stolen vehicle match")
		} else {
			s.log.Debug().Str("plate", plate).Msg("plate not in registry")
		}
		resp.Results = append(resp.Results, result)
	}

	resp.CheckedAt = s.now()
	return resp, nil
}

func (s *CheckService) archive(ctx context.Context, in CheckInput) string {
	if s.archiver == nil {
		return ""
	}
	url, err := s.archiver.ArchiveImage(ctx, in.Image, in.ImageName)
	if err != nil {
		s.log.Warn().Err(err).Str("filename", in.ImageName).Msg("failed to archive check image")
		return ""
	}
	return url
}

func (s *CheckService) AddStolen(ctx context.Context, plate string, info stolen.RecordInfo) (*stolen.PlateRecord, error) {
	rec, err := s.repo.Insert(ctx, plate, info)
	if err != nil {
		if !errors.Is(err, repository.ErrEmptyPlate) {
			s.log.Error().Err(err).Str("plate", plate).Msg("failed to add stolen vehicle")
		}
		return nil, err
	}

	s.log.Info().
		Str("plate", strings.TrimSpace(plate)).
		Str("case_number", rec.CaseNumber).
		Msg("stolen vehicle added")

	return rec, nil
}

func (s *CheckService) Stats(ctx context.Context) (stolen.Stats, error) {
	stats, err := s.repo.Stats(ctx)
	if err != nil {
		return stolen.Stats{}, fmt.Errorf("registry stats: %w", err)
	}
	return stats, nil
}

// SeedDefaults loads the sample records into an empty registry.
func (s *CheckService) SeedDefaults(ctx context.Context) error {
	stats, err := s.repo.Stats(ctx)
	if err != nil {
		return fmt.Errorf("registry stats: %w", err)
	}
	if stats.TotalStolen > 0 {
		s.log.Info().Int("total_stolen", stats.TotalStolen).Msg("registry already populated, skipping seed")
		return nil
	}

	seed := stolen.DefaultSeed()
	if err := s.repo.Seed(ctx, seed); err != nil {
		return fmt.Errorf("seed registry: %w", err)
	}
	s.log.Info().Int("records", len(seed)).Msg("registry seeded with sample records")
	return nil
}

// Import stores workbook rows in sheet order. Rows with their own case number are kept
// verbatim, the rest go through a regular insertion; both replace an existing plate in place.
func (s *CheckService) Import(ctx context.Context, rows []importer.Row) (int, error) {
	for i, row := range rows {
		if err := s.importRow(ctx, row); err != nil {
			return i, fmt.Errorf("import %q: %w", row.Plate, err)
		}
	}

	s.log.Info().Int("rows", len(rows)).Msg("registry import finished")
	return len(rows), nil
}

func (s *CheckService) importRow(ctx context.Context, row importer.Row) error {
	if !row.HasCaseNumber() {
		_, err := s.repo.Insert(ctx, row.Plate, row.Info())
		return err
	}

	rec := row.Record
	if rec.ReportDate == "" {
		rec.ReportDate = s.now().Format(stolen.DateLayout)
	}
	info := row.Info().WithDefaults()
	rec.Region, rec.CarModel, rec.Color = info.Region, info.CarModel, info.Color
	return s.repo.Put(ctx, row.Plate, rec)
}
