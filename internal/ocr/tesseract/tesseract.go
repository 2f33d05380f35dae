// Package tesseract implements ocr.Recognizer with the gosseract Tesseract bindings.
package tesseract

import (
	"bytes"
	"context"
	"fmt"
	"image"
	"image/png"
	"strings"

	"github.com/otiai10/gosseract/v2"

	"plate-check-service/internal/ocr"
)

type Recognizer struct {
	languages     []string
	clientFactory func() *gosseract.Client
}

// New constructs a Tesseract-backed recognizer for the given traineddata languages.
func New(languages ...string) *Recognizer {
	return &Recognizer{
		languages:     append([]string(nil), languages...),
		clientFactory: gosseract.NewClient,
	}
}

// Recognize reports every text line Tesseract finds with its confidence scaled to 0-1.
// Each call uses its own gosseract client.
func (r *Recognizer) Recognize(ctx context.Context, img image.Image) ([]ocr.Candidate, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		return nil, fmt.Errorf("encode image: %w", err)
	}

	c := r.clientFactory()
	defer c.Close()

	if len(r.languages) > 0 {
		if err := c.SetLanguage(r.languages...); err != nil {
			return nil, fmt.Errorf("set languages: %w", err)
		}
	}
	if err := c.SetPageSegMode(gosseract.PSM_SPARSE_TEXT); err != nil {
		return nil, fmt.Errorf("set page segmentation mode: %w", err)
	}
	if err := c.SetImageFromBytes(buf.Bytes()); err != nil {
		return nil, fmt.Errorf("set image: %w", err)
	}

	boxes, err := c.GetBoundingBoxes(gosseract.RIL_TEXTLINE)
	if err != nil {
		return nil, fmt.Errorf("recognize text lines: %w", err)
	}

	candidates := make([]ocr.Candidate, 0, len(boxes))
	for _, b := range boxes {
		text := strings.TrimSpace(b.Word)
		if text == "" {
			continue
		}
		candidates = append(candidates, ocr.Candidate{
			Text:       text,
			Confidence: b.Confidence / 100.0,
		})
	}
	return candidates, nil
}
