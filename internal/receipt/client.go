// Package receipt calls the external document-recognition service and
// normalizes its response into a partial transaction draft. It never
// touches the ledger; auto-fill gating is the caller's responsibility.
package receipt

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"time"

	"golang.org/x/sync/semaphore"

	"notaspese/internal/core"
	applog "notaspese/internal/log"
)

// documentField is the fixed multipart field name the recognition service
// expects the file under.
const documentField = "document"

// Extraction is the best-effort structured data recovered from a scanned
// receipt. HasAmount and HasDate gate auto-fill: when either is false the
// draft transaction must remain untouched.
type Extraction struct {
	MerchantName string        `json:"merchant_name"`
	AmountCents  int64         `json:"amount_cents"`
	HasAmount    bool          `json:"has_amount"`
	Date         core.Date     `json:"date"`
	HasDate      bool          `json:"has_date"`
	Category     core.Category `json:"category"`
	Warnings     []string      `json:"warnings,omitempty"`
}

// AutoFill reports whether the extraction carries enough data to pre-fill
// a draft: both the total amount and the date must be present.
func (e Extraction) AutoFill() bool {
	return e.HasAmount && e.HasDate
}

var (
	// ErrExtractionInFlight is returned when an extraction is already
	// running; the new request is ignored, never run concurrently.
	ErrExtractionInFlight = errors.New("an extraction is already in flight")

	// ErrNoPrediction is returned when the response carries no prediction
	// payload at all. An empty prediction object is not this error.
	ErrNoPrediction = errors.New("recognition response contains no prediction")
)

// ServiceFailureError is any non-2xx answer from the recognition service.
type ServiceFailureError struct {
	StatusCode int
	Status     string
}

func (e *ServiceFailureError) Error() string {
	return fmt.Sprintf("recognition service failure: %s", e.Status)
}

// MalformedFieldError is a prediction field that is present but cannot be
// interpreted (e.g. a non-numeric total).
type MalformedFieldError struct {
	Field string
	Value string
}

func (e *MalformedFieldError) Error() string {
	return fmt.Sprintf("malformed prediction field %q: %s", e.Field, e.Value)
}

// Client talks to the recognition service. At most one extraction is in
// flight at a time, guarded by a weighted semaphore of size one.
type Client struct {
	endpoint   string
	apiKey     string
	httpClient *http.Client
	inflight   *semaphore.Weighted
	logger     *applog.Logger
	today      func() core.Date
}

// NewClient builds a recognition client. timeout bounds the whole network
// call; zero means 30 seconds.
func NewClient(endpoint, apiKey string, timeout time.Duration, logger *applog.Logger) *Client {
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	if logger == nil {
		logger = applog.New(applog.DefaultConfig())
	}
	return &Client{
		endpoint:   endpoint,
		apiKey:     apiKey,
		httpClient: &http.Client{Timeout: timeout},
		inflight:   semaphore.NewWeighted(1),
		logger:     logger.WithComponent(applog.ComponentReceipt),
		today:      core.Today,
	}
}

// apiResponse mirrors the provider's nested envelope.
type apiResponse struct {
	Document *struct {
		Inference *struct {
			Prediction prediction `json:"prediction"`
		} `json:"inference"`
	} `json:"document"`
}

// Extract uploads the document and normalizes the provider's prediction.
// A second call while one is running returns ErrExtractionInFlight; the
// busy flag is released on every exit path.
func (c *Client) Extract(ctx context.Context, document []byte, filename string) (Extraction, error) {
	if !c.inflight.TryAcquire(1) {
		return Extraction{}, ErrExtractionInFlight
	}
	defer c.inflight.Release(1)

	resp, err := c.post(ctx, document, filename)
	if err != nil {
		return Extraction{}, err
	}

	if resp.Document == nil || resp.Document.Inference == nil || resp.Document.Inference.Prediction == nil {
		return Extraction{}, ErrNoPrediction
	}
	pred := resp.Document.Inference.Prediction

	out := Extraction{
		MerchantName: resolveString(pred, "supplier_name", "supplier", "supplier_company_registrations"),
		Category:     resolveCategory(pred),
	}

	cents, present, err := resolveAmount(pred, "total_incl_tax", "total_amount", "total")
	if err != nil {
		return Extraction{}, err
	}
	out.AmountCents = cents
	out.HasAmount = present

	date, present, fellBack := resolveDate(pred, c.today)
	out.Date = date
	out.HasDate = present
	if fellBack {
		// Deliberate best-effort policy: keep the extraction usable but
		// make the substitution observable.
		out.Warnings = append(out.Warnings, "unparseable receipt date, using today")
		c.logger.WarnContext(ctx, "Receipt date unparseable, falling back to today",
			applog.FieldDate, date.String(),
			applog.FieldMerchant, out.MerchantName)
	}

	c.logger.InfoContext(ctx, "Receipt extracted",
		applog.FieldMerchant, out.MerchantName,
		applog.FieldAmountCents, out.AmountCents,
		applog.FieldCategory, string(out.Category),
		"has_amount", out.HasAmount,
		"has_date", out.HasDate)

	return out, nil
}

func (c *Client) post(ctx context.Context, document []byte, filename string) (*apiResponse, error) {
	if filename == "" {
		filename = "receipt"
	}

	var body bytes.Buffer
	writer := multipart.NewWriter(&body)
	part, err := writer.CreateFormFile(documentField, filename)
	if err != nil {
		return nil, fmt.Errorf("build multipart body: %w", err)
	}
	if _, err := part.Write(document); err != nil {
		return nil, fmt.Errorf("write document part: %w", err)
	}
	if err := writer.Close(); err != nil {
		return nil, fmt.Errorf("close multipart body: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, &body)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Content-Type", writer.FormDataContentType())
	req.Header.Set("Authorization", "Bearer "+c.apiKey)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("call recognition service: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		// Drain so the connection can be reused.
		_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 4096))
		return nil, &ServiceFailureError{StatusCode: resp.StatusCode, Status: resp.Status}
	}

	var decoded apiResponse
	if err := json.NewDecoder(resp.Body).Decode(&decoded); err != nil {
		return nil, fmt.Errorf("decode recognition response: %w", err)
	}
	return &decoded, nil
}
