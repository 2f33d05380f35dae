package http

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"image"
	"image/color"
	"image/png"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"net/url"
	"regexp"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"plate-check-service/internal/config"
	"plate-check-service/internal/ocr"
	"plate-check-service/internal/repository"
	"plate-check-service/internal/service"
)

type fakeRecognizer struct {
	candidates []ocr.Candidate
	err        error
}

func (f *fakeRecognizer) Recognize(ctx context.Context, img image.Image) ([]ocr.Candidate, error) {
	return f.candidates, f.err
}

type failingPinger struct{}

func (failingPinger) Ping(ctx context.Context) error { return errors.New("db down") }

type checkResponse struct {
	Success   bool   `json:"success"`
	Error     string `json:"error"`
	AnyStolen bool   `json:"any_stolen"`
	Results   []struct {
		Plate     string `json:"plate"`
		IsStolen  bool   `json:"is_stolen"`
		CheckTime string `json:"check_time"`
		Details   *struct {
			CaseNumber string `json:"case_number"`
			Region     string `json:"region"`
			CarModel   string `json:"car_model"`
			Color      string `json:"color"`
			ReportDate string `json:"report_date"`
		} `json:"details"`
	} `json:"results"`
	ExtractedPlates []struct {
		Text       string  `json:"text"`
		Confidence float64 `json:"confidence"`
	} `json:"extracted_plates"`
	CheckedAt string `json:"checked_at"`
}

func newTestRouter(t *testing.T, rec ocr.Recognizer) *gin.Engine {
	t.Helper()
	gin.SetMode(gin.TestMode)

	repo := repository.NewMemoryRepository()
	extractor := ocr.NewExtractor(rec, ocr.DefaultOptions(), zerolog.Nop())
	svc := service.NewCheckService(repo, extractor, nil, zerolog.Nop())
	if err := svc.SeedDefaults(context.Background()); err != nil {
		t.Fatalf("SeedDefaults() error = %v", err)
	}

	cfg := &config.Config{Environment: "test", Debug: true}
	return NewRouter(NewHandler(svc, zerolog.Nop()), cfg, repo, zerolog.Nop())
}

func serve(router *gin.Engine, req *http.Request) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

func decodeCheck(t *testing.T, w *httptest.ResponseRecorder) checkResponse {
	t.Helper()
	var resp checkResponse
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode response %q: %v", w.Body.String(), err)
	}
	return resp
}

func formRequest(values url.Values) *http.Request {
	req := httptest.NewRequest(http.MethodPost, "/api/check", strings.NewReader(values.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	return req
}

func multipartRequest(t *testing.T, plate string, image []byte) *http.Request {
	t.Helper()
	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	if plate != "" {
		if err := mw.WriteField("plate_number", plate); err != nil {
			t.Fatalf("WriteField: %v", err)
		}
	}
	if image != nil {
		part, err := mw.CreateFormFile("image", "plate.png")
		if err != nil {
			t.Fatalf("CreateFormFile: %v", err)
		}
		part.Write(image)
	}
	mw.Close()

	req := httptest.NewRequest(http.MethodPost, "/api/check", &body)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	return req
}

func testPNG(t *testing.T) []byte {
	t.Helper()
	img := image.NewGray(image.Rect(0, 0, 6, 6))
	for i := range img.Pix {
		img.Pix[i] = uint8(i * 7)
	}
	img.SetGray(0, 0, color.Gray{Y: 255})
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		t.Fatalf("encode png: %v", err)
	}
	return buf.Bytes()
}

func TestCheckKnownPlate(t *testing.T) {
	router := newTestRouter(t, &fakeRecognizer{})

	w := serve(router, formRequest(url.Values{"plate_number": {"أ ب ج 1234"}}))

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, body = %s", w.Code, w.Body.String())
	}
	resp := decodeCheck(t, w)
	if !resp.Success || !resp.AnyStolen {
		t.Fatalf("expected stolen match, got %+v", resp)
	}
	if len(resp.Results) != 1 || resp.Results[0].Details == nil {
		t.Fatalf("unexpected results %+v", resp.Results)
	}
	if got := resp.Results[0].Details.CaseNumber; got != "BLG-2025-00123" {
		t.Errorf("case_number = %q, want BLG-2025-00123", got)
	}
	if !regexp.MustCompile(`^\d{4}-\d{2}-\d{2} \d{2}:\d{2}:\d{2}$`).MatchString(resp.Results[0].CheckTime) {
		t.Errorf("check_time = %q", resp.Results[0].CheckTime)
	}
	if resp.CheckedAt == "" || resp.ExtractedPlates == nil {
		t.Errorf("checked_at/extracted_plates missing: %s", w.Body.String())
	}
}

func TestCheckUnknownPlate(t *testing.T) {
	router := newTestRouter(t, &fakeRecognizer{})

	w := serve(router, formRequest(url.Values{"plate_number": {"ZZZ 0000"}}))

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d", w.Code)
	}
	resp := decodeCheck(t, w)
	if resp.AnyStolen || resp.Results[0].IsStolen || resp.Results[0].Details != nil {
		t.Errorf("unexpected match: %s", w.Body.String())
	}
	if strings.Contains(w.Body.String(), `"details"`) {
		t.Errorf("details must be omitted for clean plates: %s", w.Body.String())
	}
}

func TestCheckWithoutInput(t *testing.T) {
	router := newTestRouter(t, &fakeRecognizer{})

	for name, req := range map[string]*http.Request{
		"empty form":      formRequest(url.Values{}),
		"blank plate":     formRequest(url.Values{"plate_number": {"   "}}),
		"empty multipart": multipartRequest(t, "", nil),
		"no body":         httptest.NewRequest(http.MethodPost, "/api/check", nil),
	} {
		t.Run(name, func(t *testing.T) {
			w := serve(router, req)
			if w.Code != http.StatusBadRequest {
				t.Fatalf("status = %d, want 400", w.Code)
			}
			resp := decodeCheck(t, w)
			if resp.Success || resp.Error != service.ErrNoInput.Error() {
				t.Errorf("unexpected body %s", w.Body.String())
			}
		})
	}
}

func TestCheckImage(t *testing.T) {
	rec := &fakeRecognizer{candidates: []ocr.Candidate{
		{Text: "x", Confidence: 0.99},
		{Text: "ز ح ط  9999", Confidence: 0.734},
		{Text: "noise", Confidence: 0.2},
	}}
	router := newTestRouter(t, rec)

	w := serve(router, multipartRequest(t, "abc 1", testPNG(t)))

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, body = %s", w.Code, w.Body.String())
	}
	resp := decodeCheck(t, w)
	if len(resp.ExtractedPlates) != 1 {
		t.Fatalf("extracted_plates = %+v", resp.ExtractedPlates)
	}
	if p := resp.ExtractedPlates[0]; p.Text != "ز ح ط 9999" || p.Confidence != 73.4 {
		t.Errorf("extracted plate = %+v", p)
	}
	if len(resp.Results) != 2 || resp.Results[0].Plate != "abc 1" || resp.Results[1].Plate != "ز ح ط 9999" {
		t.Fatalf("results order = %+v", resp.Results)
	}
	if resp.Results[0].IsStolen || !resp.Results[1].IsStolen || !resp.AnyStolen {
		t.Errorf("unexpected match flags: %s", w.Body.String())
	}
}

func TestCheckUnreadableImage(t *testing.T) {
	router := newTestRouter(t, &fakeRecognizer{})

	w := serve(router, multipartRequest(t, "أ ب ج 1234", []byte("this is not an image")))

	if w.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", w.Code)
	}
	resp := decodeCheck(t, w)
	if resp.Success || resp.Error != ocr.ErrUnreadableImage.Error() {
		t.Errorf("unexpected body %s", w.Body.String())
	}
}

func TestCheckEmptyImagePart(t *testing.T) {
	router := newTestRouter(t, &fakeRecognizer{})

	w := serve(router, multipartRequest(t, "", []byte{}))

	if w.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", w.Code)
	}
	if resp := decodeCheck(t, w); resp.Error != ocr.ErrUnreadableImage.Error() {
		t.Errorf("unexpected body %s", w.Body.String())
	}
}

func TestCheckRecognizerFailure(t *testing.T) {
	router := newTestRouter(t, &fakeRecognizer{err: errors.New("tesseract exploded")})

	w := serve(router, multipartRequest(t, "", testPNG(t)))

	if w.Code != http.StatusInternalServerError {
		t.Fatalf("status = %d, want 500", w.Code)
	}
	if strings.Contains(w.Body.String(), "exploded") {
		t.Errorf("internal error details leaked: %s", w.Body.String())
	}
}

func TestAddStolenAndStats(t *testing.T) {
	router := newTestRouter(t, &fakeRecognizer{})

	body := `{"plate":"X","info":{}}`
	req := httptest.NewRequest(http.MethodPost, "/api/add_stolen", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	w := serve(router, req)

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, body = %s", w.Code, w.Body.String())
	}
	var added struct {
		Success bool   `json:"success"`
		Message string `json:"message"`
		Record  struct {
			CaseNumber string `json:"case_number"`
			Region     string `json:"region"`
			CarModel   string `json:"car_model"`
			Color      string `json:"color"`
		} `json:"record"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &added); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if !added.Success || added.Message != "plate X added" {
		t.Errorf("unexpected body %s", w.Body.String())
	}
	if !regexp.MustCompile(`^BLG-\d{4}-00004$`).MatchString(added.Record.CaseNumber) {
		t.Errorf("case_number = %q", added.Record.CaseNumber)
	}
	if added.Record.Region != "unspecified" || added.Record.CarModel != "unspecified" || added.Record.Color != "unspecified" {
		t.Errorf("defaults not applied: %+v", added.Record)
	}

	w = serve(router, httptest.NewRequest(http.MethodGet, "/api/stats", nil))
	if w.Code != http.StatusOK {
		t.Fatalf("stats status = %d", w.Code)
	}
	var stats struct {
		TotalStolen int      `json:"total_stolen"`
		Plates      []string `json:"plates"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &stats); err != nil {
		t.Fatalf("decode stats: %v", err)
	}
	if stats.TotalStolen != 4 || len(stats.Plates) != 4 || stats.Plates[3] != "X" {
		t.Errorf("stats = %+v", stats)
	}

	w = serve(router, formRequest(url.Values{"plate_number": {"X"}}))
	if resp := decodeCheck(t, w); !resp.AnyStolen {
		t.Errorf("added plate not reported stolen: %s", w.Body.String())
	}
}

func TestAddStolenRejectsMissingPlate(t *testing.T) {
	router := newTestRouter(t, &fakeRecognizer{})

	for name, body := range map[string]string{
		"missing plate": `{"info":{"region":"x"}}`,
		"blank plate":   `{"plate":"   "}`,
		"invalid json":  `{"plate":`,
	} {
		t.Run(name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodPost, "/api/add_stolen", strings.NewReader(body))
			req.Header.Set("Content-Type", "application/json")
			w := serve(router, req)

			if w.Code != http.StatusBadRequest {
				t.Fatalf("status = %d, want 400", w.Code)
			}
			if !strings.Contains(w.Body.String(), `"success":false`) {
				t.Errorf("unexpected body %s", w.Body.String())
			}
		})
	}
}

func TestIndexAndHealth(t *testing.T) {
	router := newTestRouter(t, &fakeRecognizer{})

	w := serve(router, httptest.NewRequest(http.MethodGet, "/", nil))
	if w.Code != http.StatusOK || !strings.Contains(w.Header().Get("Content-Type"), "text/html") {
		t.Fatalf("index status = %d, content-type = %q", w.Code, w.Header().Get("Content-Type"))
	}
	if !strings.Contains(w.Body.String(), "/api/check") {
		t.Errorf("index page does not post to /api/check")
	}

	for _, path := range []string{"/health/live", "/health/ready"} {
		if w := serve(router, httptest.NewRequest(http.MethodGet, path, nil)); w.Code != http.StatusOK {
			t.Errorf("%s status = %d", path, w.Code)
		}
	}
}

func TestReadinessFailure(t *testing.T) {
	gin.SetMode(gin.TestMode)
	svc := service.NewCheckService(repository.NewMemoryRepository(), nil, nil, zerolog.Nop())
	cfg := &config.Config{Environment: "test", Debug: true}
	router := NewRouter(NewHandler(svc, zerolog.Nop()), cfg, failingPinger{}, zerolog.Nop())

	w := serve(router, httptest.NewRequest(http.MethodGet, "/health/ready", nil))
	if w.Code != http.StatusServiceUnavailable {
		t.Fatalf("status = %d, want 503", w.Code)
	}
}

func TestRequestIDHeader(t *testing.T) {
	router := newTestRouter(t, &fakeRecognizer{})

	w := serve(router, httptest.NewRequest(http.MethodGet, "/health/live", nil))
	if w.Header().Get("X-Request-ID") == "" {
		t.Errorf("X-Request-ID not generated")
	}

	req := httptest.NewRequest(http.MethodGet, "/health/live", nil)
	req.Header.Set("X-Request-ID", "cam-01-42")
	w = serve(router, req)
	if got := w.Header().Get("X-Request-ID"); got != "cam-01-42" {
		t.Errorf("X-Request-ID = %q, want cam-01-42", got)
	}
}
