// Command camera-simulator feeds /api/check with plates from simulated roadside cameras.
package main

import (
	"context"
	"flag"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"

	"plate-check-service/internal/logger"
)

func main() {
	checkURL := flag.String("url", "http://localhost:5000/api/check", "check endpoint")
	statsURL := flag.String("stats-url", "http://localhost:5000/api/stats", "stats endpoint used to pick known stolen plates")
	minDelay := flag.Int("min-delay", 5, "minimum seconds between readings")
	maxDelay := flag.Int("max-delay", 15, "maximum seconds between readings")
	alertChance := flag.Float64("alert-chance", 0.10, "probability of sending a known stolen plate")
	count := flag.Int("count", 0, "number of readings to send, 0 runs until interrupted")
	seed := flag.Int64("seed", time.Now().UnixNano(), "random seed")
	flag.Parse()

	log := logger.New(os.Getenv("APP_ENV"), os.Getenv("DEBUG") == "true")

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	sim := &simulator{
		client:      newCheckClient(*checkURL, *statsURL, 10*time.Second),
		gen:         newPlateGenerator(*seed),
		minDelay:    *minDelay,
		maxDelay:    *maxDelay,
		alertChance: *alertChance,
		log:         log,
	}

	log.Info().
		Str("url", *checkURL).
		Int("min_delay", *minDelay).
		Int("max_delay", *maxDelay).
		Float64("alert_chance", *alertChance).
		Msg("camera simulator started")

	sent := sim.run(ctx, *count)
	log.Info().Int("sent", sent).Msg("camera simulator stopped")
}

type simulator struct {
	client      *checkClient
	gen         *plateGenerator
	minDelay    int
	maxDelay    int
	alertChance float64
	log         zerolog.Logger
}

func (s *simulator) run(ctx context.Context, count int) int {
	sent := 0
	for count <= 0 || sent < count {
		s.send(ctx)
		sent++
		if count > 0 && sent >= count {
			break
		}

		wait := time.Duration(s.gen.delay(s.minDelay, s.maxDelay)) * time.Second
		select {
		case <-ctx.Done():
			return sent
		case <-time.After(wait):
		}
	}
	return sent
}

func (s *simulator) send(ctx context.Context) {
	cam := s.gen.camera()
	plate := s.gen.Next().Arabic

	if s.gen.alert(s.alertChance) {
		stolenPlates, err := s.client.StolenPlates(ctx)
		if err != nil {
			s.log.Warn().Err(err).Msg("failed to fetch stolen plates, sending a random plate")
		} else if len(stolenPlates) > 0 {
			plate = s.gen.pick(stolenPlates)
		}
	}

	result, err := s.client.Check(ctx, plate, cam.ID)
	if err != nil {
		s.log.Error().Err(err).Str("camera", cam.ID).Str("plate", plate).Msg("check request failed")
		return
	}

	if result.AnyStolen {
		event := s.log.Warn().Str("camera", cam.ID).Str("location", cam.Location).Str("plate", plate)
		for _, r := range result.Results {
			if r.IsStolen && r.Details != nil {
				event = event.Str("case_number", r.Details.CaseNumber)
				break
			}
		}
		event.Msg("stolen vehicle spotted")
		return
	}
	s.log.Info().Str("camera", cam.ID).Str("plate", plate).Msg("plate clear")
}
