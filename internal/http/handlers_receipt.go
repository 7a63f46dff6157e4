package http

import (
	"errors"
	"io"
	"log/slog"
	"net/http"

	"notaspese/internal/receipt"
)

// maxReceiptBytes caps uploaded document size at 10 MB.
const maxReceiptBytes = 10 << 20

// handleReceiptUpload forwards a scanned receipt to the recognition
// service and returns the normalized extraction. The auto_fill flag tells
// the UI whether the draft may be pre-filled at all: without both an
// amount and a date the draft must stay untouched.
func (s *Server) handleReceiptUpload(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		w.Header().Set("Allow", "POST")
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	if s.extractor == nil {
		writeError(w, http.StatusServiceUnavailable, "receipt recognition is not configured")
		return
	}

	r.Body = http.MaxBytesReader(w, r.Body, maxReceiptBytes)
	if err := r.ParseMultipartForm(maxReceiptBytes); err != nil {
		writeError(w, http.StatusBadRequest, "malformed multipart body")
		return
	}

	file, header, err := r.FormFile("document")
	if err != nil {
		writeError(w, http.StatusBadRequest, "missing document file")
		return
	}
	defer file.Close()

	document, err := io.ReadAll(file)
	if err != nil {
		writeError(w, http.StatusBadRequest, "unreadable document file")
		return
	}

	extraction, err := s.extractor.Extract(r.Context(), document, header.Filename)
	if err != nil {
		s.writeExtractionError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"extraction": extraction,
		"auto_fill":  extraction.AutoFill(),
	})
}

// writeExtractionError maps adapter failures onto HTTP statuses. All of
// them are non-fatal: the draft stays unchanged and the busy flag is
// already released by the adapter.
func (s *Server) writeExtractionError(w http.ResponseWriter, r *http.Request, err error) {
	var (
		sfe *receipt.ServiceFailureError
		mfe *receipt.MalformedFieldError
	)
	switch {
	case errors.Is(err, receipt.ErrExtractionInFlight):
		writeError(w, http.StatusTooManyRequests, err.Error())
	case errors.Is(err, receipt.ErrNoPrediction):
		writeError(w, http.StatusUnprocessableEntity, err.Error())
	case errors.As(err, &mfe):
		writeError(w, http.StatusUnprocessableEntity, err.Error())
	case errors.As(err, &sfe):
		writeError(w, http.StatusBadGateway, err.Error())
	default:
		slog.ErrorContext(r.Context(), "Receipt extraction failed", "error", err)
		writeError(w, http.StatusInternalServerError, "receipt extraction failed")
	}
}
