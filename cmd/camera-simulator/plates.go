package main

import (
	"fmt"
	"math/rand"
	"strings"
)

type plateLetter struct {
	Arabic string
	Latin  string
}

var plateLetters = []plateLetter{
	{"أ", "A"}, {"ب", "B"}, {"ح", "J"}, {"د", "D"}, {"ر", "R"}, {"س", "S"},
	{"ص", "X"}, {"ط", "T"}, {"ع", "E"}, {"ق", "G"}, {"ك", "K"}, {"ل", "L"},
	{"م", "Z"}, {"ن", "N"}, {"هـ", "H"}, {"و", "U"}, {"ى", "V"},
}

// Latin letter sequences never issued on real plates.
var forbiddenWords = map[string]struct{}{
	"SEX": {}, "ASS": {}, "USA": {}, "GOD": {},
}

const (
	plateLetterCount = 3
	plateDigitCount  = 4
)

type camera struct {
	ID       string
	Location string
}

var cameras = []camera{
	{"C-01", "طريق الملك عبدالله - تبوك"},
	{"C-02", "طريق المدينة - تبوك"},
	{"C-03", "طريق الملك فهد - تبوك"},
	{"C-04", "تقاطع الأمير فهد - تبوك"},
	{"C-05", "طريق الملك خالد - تبوك"},
}

// Plate is a generated registration in both scripts.
type Plate struct {
	Arabic string
	Latin  string
}

type plateGenerator struct {
	rnd *rand.Rand
}

func newPlateGenerator(seed int64) *plateGenerator {
	return &plateGenerator{rnd: rand.New(rand.NewSource(seed))}
}

// Next returns a random plate, e.g. "ب ر ك 4821" / "BRK 4821".
func (g *plateGenerator) Next() Plate {
	for {
		arabic := make([]string, plateLetterCount)
		var latin strings.Builder
		for i := range arabic {
			l := plateLetters[g.rnd.Intn(len(plateLetters))]
			arabic[i] = l.Arabic
			latin.WriteString(l.Latin)
		}
		if _, bad := forbiddenWords[latin.String()]; bad {
			continue
		}

		digits := fmt.Sprintf("%0*d", plateDigitCount, g.rnd.Intn(10000))
		return Plate{
			Arabic: strings.Join(arabic, " ") + " " + digits,
			Latin:  latin.String() + " " + digits,
		}
	}
}

func (g *plateGenerator) camera() camera {
	return cameras[g.rnd.Intn(len(cameras))]
}

// delay picks a pause in [min, max] seconds.
func (g *plateGenerator) delay(min, max int) int {
	if max <= min {
		return min
	}
	return min + g.rnd.Intn(max-min+1)
}

func (g *plateGenerator) alert(chance float64) bool {
	return g.rnd.Float64() < chance
}

func (g *plateGenerator) pick(plates []string) string {
	return plates[g.rnd.Intn(len(plates))]
}
