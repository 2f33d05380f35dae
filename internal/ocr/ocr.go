// Package ocr turns uploaded plate photos into normalized plate candidates.
// Recognition itself is delegated to a Recognizer (see the tesseract subpackage).
package ocr

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"image"
	"math"
	"sort"
	"strings"
	"unicode/utf8"

	"github.com/disintegration/imaging"
	"github.com/rs/zerolog"

	"plate-check-service/internal/domain/stolen"
	"plate-check-service/internal/utils"
)

var ErrUnreadableImage = errors.New("unreadable image")

const (
	DefaultMinConfidence = 0.3
	DefaultMinLength     = 3
)

// Candidate is one text region reported by a recognizer. Confidence is on a 0-1 scale.
type Candidate struct {
	Text       string
	Confidence float64
}

// Recognizer runs OCR inference on a decoded image.
type Recognizer interface {
	Recognize(ctx context.Context, img image.Image) ([]Candidate, error)
}

// Options are the candidate filters. Zero values are honored: MinConfidence 0 keeps any
// positive confidence and MinLength 0 keeps any non-empty text.
type Options struct {
	MinConfidence float64
	MinLength     int
}

func DefaultOptions() Options {
	return Options{MinConfidence: DefaultMinConfidence, MinLength: DefaultMinLength}
}

type Extractor struct {
	recognizer Recognizer
	opts       Options
	log        zerolog.Logger
}

func NewExtractor(recognizer Recognizer, opts Options, log zerolog.Logger) *Extractor {
	return &Extractor{
		recognizer: recognizer,
		opts:       opts,
		log:        log,
	}
}

// Extract decodes data, recognizes text on the equalized grayscale image (falling back to the
// original image when nothing is found) and returns the surviving candidates, best first.
func (e *Extractor) Extract(ctx context.Context, data []byte) ([]stolen.ExtractedPlate, error) {
	img, err := imaging.Decode(bytes.NewReader(data), imaging.AutoOrientation(true))
	if err != nil {
		e.log.Debug().Err(err).Int("size", len(data)).Msg("failed to decode image")
		return nil, fmt.Errorf("%w: %v", ErrUnreadableImage, err)
	}

	equalized := Equalize(imaging.Grayscale(img))

	candidates, err := e.recognizer.Recognize(ctx, equalized)
	if err != nil {
		return nil, fmt.Errorf("recognize equalized image: %w", err)
	}

	if len(candidates) == 0 {
		e.log.Debug().Msg("no text on equalized image, retrying on original")
		candidates, err = e.recognizer.Recognize(ctx, img)
		if err != nil {
			return nil, fmt.Errorf("recognize original image: %w", err)
		}
	}

	plates := e.filter(candidates)

	e.log.Debug().
		Int("candidates", len(candidates)).
		Int("accepted", len(plates)).
		Msg("image text extracted")

	return plates, nil
}

func (e *Extractor) filter(candidates []Candidate) []stolen.ExtractedPlate {
	sorted := append([]Candidate(nil), candidates...)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].Confidence > sorted[j].Confidence
	})

	plates := make([]stolen.ExtractedPlate, 0, len(sorted))
	for _, c := range sorted {
		if c.Confidence <= e.opts.MinConfidence {
			continue
		}
		if utf8.RuneCountInString(strings.TrimSpace(c.Text)) < e.opts.MinLength {
			continue
		}
		plates = append(plates, stolen.ExtractedPlate{
			Text:       utils.NormalizePlate(c.Text),
			Confidence: math.Round(c.Confidence*1000) / 10,
		})
	}
	return plates
}
