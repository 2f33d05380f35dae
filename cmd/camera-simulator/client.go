package main

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"mime/multipart"
	"net/http"
	"time"
)

type checkClient struct {
	checkURL string
	statsURL string
	http     *http.Client
}

func newCheckClient(checkURL, statsURL string, timeout time.Duration) *checkClient {
	return &checkClient{
		checkURL: checkURL,
		statsURL: statsURL,
		http:     &http.Client{Timeout: timeout},
	}
}

type checkResult struct {
	AnyStolen bool `json:"any_stolen"`
	Results   []struct {
		Plate    string `json:"plate"`
		IsStolen bool   `json:"is_stolen"`
		Details  *struct {
			CaseNumber string `json:"case_number"`
		} `json:"details"`
	} `json:"results"`
}

type httpError struct {
	Code int
}

func (e *httpError) Error() string {
	return fmt.Sprintf("unexpected status code: %d", e.Code)
}

// Check posts the plate as the multipart field plate_number.
func (c *checkClient) Check(ctx context.Context, plate, cameraID string) (*checkResult, error) {
	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	if err := mw.WriteField("plate_number", plate); err != nil {
		return nil, err
	}
	if err := mw.Close(); err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.checkURL, &body)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", mw.FormDataContentType())
	req.Header.Set("X-Request-ID", fmt.Sprintf("%s-%d", cameraID, time.Now().UnixNano()))

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, &httpError{Code: resp.StatusCode}
	}

	var result checkResult
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return nil, fmt.Errorf("decode check response: %w", err)
	}
	return &result, nil
}

// StolenPlates fetches the registry keys used for simulated alerts.
func (c *checkClient) StolenPlates(ctx context.Context) ([]string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.statsURL, nil)
	if err != nil {
		return nil, err
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, &httpError{Code: resp.StatusCode}
	}

	var stats struct {
		Plates []string `json:"plates"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&stats); err != nil {
		return nil, fmt.Errorf("decode stats response: %w", err)
	}
	return stats.Plates, nil
}
