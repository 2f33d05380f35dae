package stolen

import (
	"fmt"
	"strings"
	"time"
)

const (
	// Unspecified fills record fields that were not supplied on insertion.
	Unspecified = "unspecified"

	DateLayout      = "2006-01-02"
	CheckTimeLayout = "2006-01-02 15:04:05"
)

type PlateRecord struct {
	ReportDate string `json:"report_date"`
	Region     string `json:"region"`
	CaseNumber string `json:"case_number"`
	CarModel   string `json:"car_model"`
	Color      string `json:"color"`
}

// RecordInfo is the optional part of a new registry entry.
type RecordInfo struct {
	Region   string `json:"region,omitempty"`
	CarModel string `json:"car_model,omitempty"`
	Color    string `json:"color,omitempty"`
}

type ExtractedPlate struct {
	Text       string  `json:"text"`
	Confidence float64 `json:"confidence"`
}

type CheckResult struct {
	Plate     string       `json:"plate"`
	IsStolen  bool         `json:"is_stolen"`
	CheckTime string       `json:"check_time"`
	Details   *PlateRecord `json:"details,omitempty"`
}

type CheckResponse struct {
	Success         bool             `json:"success"`
	AnyStolen       bool             `json:"any_stolen"`
	Results         []CheckResult    `json:"results"`
	ExtractedPlates []ExtractedPlate `json:"extracted_plates"`
	CheckedAt       time.Time        `json:"checked_at"`
	ImageURL        string           `json:"image_url,omitempty"`
}

type Stats struct {
	TotalStolen int      `json:"total_stolen"`
	Plates      []string `json:"plates"`
}

// SeedEntry is a registry entry stored verbatim, case number included.
type SeedEntry struct {
	Plate  string
	Record PlateRecord
}

// FormatCaseNumber renders BLG-<year>-<5 digit sequence>.
func FormatCaseNumber(year int, seq int64) string {
	return fmt.Sprintf("BLG-%d-%05d", year, seq)
}

// WithDefaults replaces blank fields with Unspecified.
func (i RecordInfo) WithDefaults() RecordInfo {
	return RecordInfo{
		Region:   orUnspecified(i.Region),
		CarModel: orUnspecified(i.CarModel),
		Color:    orUnspecified(i.Color),
	}
}

// NewRecord builds the record stored by an insertion, defaulting blank fields.
func NewRecord(now time.Time, seq int64, info RecordInfo) PlateRecord {
	info = info.WithDefaults()
	return PlateRecord{
		ReportDate: now.Format(DateLayout),
		Region:     info.Region,
		CaseNumber: FormatCaseNumber(now.Year(), seq),
		CarModel:   info.CarModel,
		Color:      info.Color,
	}
}

func orUnspecified(v string) string {
	if v = strings.TrimSpace(v); v == "" {
		return Unspecified
	}
	return v
}

// DefaultSeed holds the sample records the registry starts with when empty.
func DefaultSeed() []SeedEntry {
	return []SeedEntry{
		{
			Plate: "أ ب ج 1234",
			Record: PlateRecord{
				ReportDate: "2025-01-10",
				Region:     "الرياض",
				CaseNumber: "BLG-2025-00123",
				CarModel:   "تويوتا كامري",
				Color:      "أبيض",
			},
		},
		{
			Plate: "د هـ و 5678",
			Record: PlateRecord{
				ReportDate: "2025-01-15",
				Region:     "جدة",
				CaseNumber: "BLG-2025-00456",
				CarModel:   "هوندا أكورد",
				Color:      "رمادي",
			},
		},
		{
			Plate: "ز ح ط 9999",
			Record: PlateRecord{
				ReportDate: "2025-02-01",
				Region:     "الدمام",
				CaseNumber: "BLG-2025-00789",
				CarModel:   "نيسان باترول",
				Color:      "أسود",
			},
		},
	}
}
