package receipt

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"notaspese/internal/core"
)

func newTestClient(t *testing.T, handler http.HandlerFunc) *Client {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	c := NewClient(srv.URL, "test-key", 5*time.Second, nil)
	c.today = fixedToday
	return c
}

const fullResponse = `{
	"document": {
		"inference": {
			"prediction": {
				"supplier_name": {"value": "ACME Stationery"},
				"total_incl_tax": {"value": 129.99},
				"date": {"value": "2024-01-05"},
				"category": {"value": "Office Supplies"}
			}
		}
	}
}`

func TestExtractHappyPath(t *testing.T) {
	var gotAuth string
	var gotField bool
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
		if err := r.ParseMultipartForm(1 << 20); err != nil {
			t.Errorf("parse multipart: %v", err)
		}
		_, _, err := r.FormFile("document")
		gotField = err == nil
		w.Write([]byte(fullResponse))
	})

	got, err := c.Extract(context.Background(), []byte("fake-image"), "receipt.jpg")
	if err != nil {
		t.Fatalf("extract: %v", err)
	}
	if gotAuth != "Bearer test-key" {
		t.Fatalf("Authorization = %q", gotAuth)
	}
	if !gotField {
		t.Fatal("document must be sent under the fixed multipart field name")
	}
	if got.MerchantName != "ACME Stationery" {
		t.Fatalf("merchant = %q", got.MerchantName)
	}
	if !got.HasAmount || got.AmountCents != 12999 {
		t.Fatalf("amount = %d has=%v", got.AmountCents, got.HasAmount)
	}
	if !got.HasDate || got.Date.String() != "2024-01-05" {
		t.Fatalf("date = %s has=%v", got.Date, got.HasDate)
	}
	if got.Category != core.CategoryOfficeSupplies {
		t.Fatalf("category = %q", got.Category)
	}
	if !got.AutoFill() {
		t.Fatal("complete extraction should allow auto-fill")
	}
	if len(got.Warnings) != 0 {
		t.Fatalf("unexpected warnings: %v", got.Warnings)
	}
}

func TestExtractMalformedDateFallsBackWithWarning(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"document":{"inference":{"prediction":{
			"total_incl_tax": {"value": 42.10},
			"date": {"value": "not-a-date"}
		}}}}`))
	})

	got, err := c.Extract(context.Background(), []byte("x"), "")
	if err != nil {
		t.Fatalf("fallback must not fail the extraction: %v", err)
	}
	if got.AmountCents != 4210 || !got.HasAmount {
		t.Fatalf("amount = %d has=%v, want 4210", got.AmountCents, got.HasAmount)
	}
	if !got.HasDate || got.Date.String() != "2024-06-15" {
		t.Fatalf("date should fall back to today, got %s has=%v", got.Date, got.HasDate)
	}
	if len(got.Warnings) != 1 {
		t.Fatalf("fallback must be surfaced as a warning, got %v", got.Warnings)
	}
	if !got.AutoFill() {
		t.Fatal("fallback date still counts as present for auto-fill")
	}
}

func TestExtractMissingAmountBlocksAutoFill(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"document":{"inference":{"prediction":{
			"supplier_name": {"value": "ACME"},
			"date": {"value": "2024-01-05"}
		}}}}`))
	})

	got, err := c.Extract(context.Background(), []byte("x"), "")
	if err != nil {
		t.Fatalf("extract: %v", err)
	}
	if got.HasAmount {
		t.Fatal("amount should be absent")
	}
	if got.AutoFill() {
		t.Fatal("auto-fill must be blocked when the amount is absent")
	}
}

func TestExtractServiceFailure(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "upstream broke", http.StatusBadGateway)
	})

	_, err := c.Extract(context.Background(), []byte("x"), "")
	var sfe *ServiceFailureError
	if !errors.As(err, &sfe) {
		t.Fatalf("expected *ServiceFailureError, got %v", err)
	}
	if sfe.StatusCode != http.StatusBadGateway {
		t.Fatalf("status = %d", sfe.StatusCode)
	}
}

func TestExtractNoPrediction(t *testing.T) {
	cases := []string{
		`{}`,
		`{"document":{}}`,
		`{"document":{"inference":{}}}`,
	}
	for i, body := range cases {
		body := body
		c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
			w.Write([]byte(body))
		})
		if _, err := c.Extract(context.Background(), []byte("x"), ""); !errors.Is(err, ErrNoPrediction) {
			t.Fatalf("case %d: expected ErrNoPrediction, got %v", i, err)
		}
	}
}

func TestExtractEmptyPredictionIsNotAnError(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"document":{"inference":{"prediction":{}}}}`))
	})
	got, err := c.Extract(context.Background(), []byte("x"), "")
	if err != nil {
		t.Fatalf("empty prediction is low-confidence, not an error: %v", err)
	}
	if got.AutoFill() {
		t.Fatal("empty prediction must not allow auto-fill")
	}
	if got.Category != core.CategoryOther {
		t.Fatalf("category should default to the catch-all, got %q", got.Category)
	}
}

func TestExtractSingleInFlight(t *testing.T) {
	release := make(chan struct{})
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		<-release
		w.Write([]byte(fullResponse))
	})

	var wg sync.WaitGroup
	wg.Add(1)
	firstDone := make(chan error, 1)
	go func() {
		defer wg.Done()
		_, err := c.Extract(context.Background(), []byte("x"), "")
		firstDone <- err
	}()

	// Wait until the first call holds the busy flag.
	deadline := time.After(2 * time.Second)
	for c.inflight.TryAcquire(1) {
		c.inflight.Release(1)
		select {
		case <-deadline:
			t.Fatal("first extraction never started")
		case <-time.After(5 * time.Millisecond):
		}
	}

	if _, err := c.Extract(context.Background(), []byte("y"), ""); !errors.Is(err, ErrExtractionInFlight) {
		t.Fatalf("second concurrent extraction should be rejected, got %v", err)
	}

	close(release)
	wg.Wait()
	if err := <-firstDone; err != nil {
		t.Fatalf("first extraction failed: %v", err)
	}

	// Busy flag must be clear again after completion.
	if _, err := c.Extract(context.Background(), []byte("z"), ""); err != nil {
		t.Fatalf("extraction after completion should run: %v", err)
	}
}

func TestBusyFlagClearedOnFailure(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "nope", http.StatusInternalServerError)
	})

	if _, err := c.Extract(context.Background(), []byte("x"), ""); err == nil {
		t.Fatal("expected failure")
	}
	// The flag must be released even on the error path.
	if !c.inflight.TryAcquire(1) {
		t.Fatal("busy flag leaked after a failed extraction")
	}
	c.inflight.Release(1)
}
