// Copyright Medscrub Authors. All Rights Reserved.
// SPDX-License-Identifier: Apache-2.0

// Package predictor is the HTTP client for the external billing-code
// prediction service. The service is an opaque oracle: it takes the
// anonymized document text (or the raw document, for its OCR mode) and
// returns billing-code predictions, each citing the passage it was
// derived from.
package predictor

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/url"
	"strings"
	"time"
)

const defaultTimeout = 120 * time.Second

// Prediction is one billing-code suggestion. Zitat is the quoted
// passage the quote localizer later has to find in the document.
type Prediction struct {
	Zitat        string  `json:"zitat"`
	Begruendung  string  `json:"begruendung"`
	GoaZiffer    string  `json:"goa_ziffer"`
	Quantitaet   float64 `json:"quantitaet"`
	Faktor       float64 `json:"faktor"`
	Beschreibung string  `json:"beschreibung"`
}

// UnmarshalJSON accepts "anzahl" as an alias for "quantitaet"; older
// service versions use the former.
func (p *Prediction) UnmarshalJSON(data []byte) error {
	type alias Prediction
	aux := struct {
		*alias
		Anzahl *float64 `json:"anzahl"`
	}{alias: (*alias)(p)}
	if err := json.Unmarshal(data, &aux); err != nil {
		return err
	}
	if p.Quantitaet == 0 && aux.Anzahl != nil {
		p.Quantitaet = *aux.Anzahl
	}
	return nil
}

// Client talks to the prediction service. Safe for concurrent use.
type Client struct {
	baseURL string
	apiKey  string
	http    *http.Client
}

// New builds a Client for the service at baseURL authenticating with
// the given API key.
func New(baseURL, apiKey string) *Client {
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		apiKey:  apiKey,
		http:    &http.Client{Timeout: defaultTimeout},
	}
}

// NewWithHTTPClient overrides the HTTP client, mainly for tests.
func NewWithHTTPClient(baseURL, apiKey string, hc *http.Client) *Client {
	c := New(baseURL, apiKey)
	c.http = hc
	return c
}

// Predict sends anonymized text for billing-code prediction.
func (c *Client) Predict(ctx context.Context, text, category string) ([]Prediction, error) {
	if category == "" {
		return nil, fmt.Errorf("predictor: no category selected")
	}

	form := url.Values{}
	form.Set("text", text)
	form.Set("category", category)
	form.Set("process_type", "predict")

	body, err := c.post(ctx, form.Encode(), "application/x-www-form-urlencoded")
	if err != nil {
		return nil, err
	}

	var envelope struct {
		Result struct {
			Prediction []Prediction `json:"prediction"`
		} `json:"result"`
		Prediction []Prediction `json:"prediction"`
	}
	if err := json.Unmarshal(body, &envelope); err != nil {
		return nil, fmt.Errorf("predictor: decode response: %w", err)
	}
	if envelope.Result.Prediction != nil {
		return envelope.Result.Prediction, nil
	}
	return envelope.Prediction, nil
}

// OCRDocument sends the raw document for server-side OCR and returns
// the extracted text. Used when local OCR is disabled.
func (c *Client) OCRDocument(ctx context.Context, filename string, file []byte, category string) (string, error) {
	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)

	for k, v := range map[string]string{
		"process_type":  "ocr",
		"ocr_processor": "google_document_ai",
		"category":      category,
	} {
		if err := w.WriteField(k, v); err != nil {
			return "", err
		}
	}
	part, err := w.CreateFormFile("file", filename)
	if err != nil {
		return "", err
	}
	if _, err := part.Write(file); err != nil {
		return "", err
	}
	if err := w.Close(); err != nil {
		return "", err
	}

	body, err := c.post(ctx, buf.String(), w.FormDataContentType())
	if err != nil {
		return "", err
	}

	var envelope struct {
		Result struct {
			OCR struct {
				OCRText string `json:"ocr_text"`
			} `json:"ocr"`
		} `json:"result"`
		OCR struct {
			OCRText string `json:"ocr_text"`
		} `json:"ocr"`
	}
	if err := json.Unmarshal(body, &envelope); err != nil {
		return "", fmt.Errorf("predictor: decode response: %w", err)
	}
	if envelope.Result.OCR.OCRText != "" {
		return envelope.Result.OCR.OCRText, nil
	}
	return envelope.OCR.OCRText, nil
}

// Ping checks that the service is reachable and the API key accepted.
func (c *Client) Ping(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/health", nil)
	if err != nil {
		return err
	}
	req.Header.Set("x-api-key", c.apiKey)

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("predictor: service unreachable: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return apiError(resp)
	}
	return nil
}

func (c *Client) post(ctx context.Context, body, contentType string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/process_document", strings.NewReader(body))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", contentType)
	req.Header.Set("x-api-key", c.apiKey)

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("predictor: request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, apiError(resp)
	}
	return io.ReadAll(resp.Body)
}

// apiError surfaces the service's request id so failures can be
// correlated with the provider's logs.
func apiError(resp *http.Response) error {
	msg, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
	requestID := resp.Header.Get("X-Request-ID")
	if requestID == "" {
		requestID = "nicht-vorhanden"
	}
	return fmt.Errorf("predictor: status %d, message %q, request id %s",
		resp.StatusCode, strings.TrimSpace(string(msg)), requestID)
}
