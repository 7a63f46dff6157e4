package http

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"strings"

	"notaspese/internal/core"
	"notaspese/internal/query"
	"notaspese/internal/report"
)

// View modes for the query surface.
const (
	viewList   = "list"
	viewReport = "report"
)

func (s *Server) handleTransactions(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		s.handleQuery(w, r)
	case http.MethodPost:
		s.handleCreateTransaction(w, r)
	default:
		w.Header().Set("Allow", "GET, POST")
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
	}
}

// handleQuery serves both view modes: the filtered transaction list and
// the aggregated report.
func (s *Server) handleQuery(w http.ResponseWriter, r *http.Request) {
	spec, err := parseFilterSpec(r.URL.Query())
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	view := strings.TrimSpace(r.URL.Query().Get("view"))
	if view == "" {
		view = viewList
	}

	// The revision in the key guarantees a cached entry always reflects
	// the latest committed mutation.
	key := fmt.Sprintf("%d|%s", s.svc.Revision(), spec.Key())

	switch view {
	case viewList:
		txs, ok := s.listCache.Get(key)
		if !ok {
			txs = query.Filter(s.svc.Transactions(), spec)
			s.listCache.Set(key, txs)
		}
		writeJSON(w, http.StatusOK, map[string]any{
			"transactions": txs,
			"count":        len(txs),
		})
	case viewReport:
		summary, ok := s.reportCache.Get(key)
		if !ok {
			summary = report.Summarize(query.Filter(s.svc.Transactions(), spec))
			s.reportCache.Set(key, summary)
		}
		writeJSON(w, http.StatusOK, map[string]any{
			"by_category": summary.ByCategory,
			"total_cents": summary.Total.Cents,
		})
	default:
		writeError(w, http.StatusBadRequest, fmt.Sprintf("unknown view %q", view))
	}
}

// createTransactionRequest is the JSON draft body. Amount accepts either a
// decimal string ("129.99") or a JSON number.
type createTransactionRequest struct {
	Date        string          `json:"date"`
	Description string          `json:"description"`
	Amount      json.RawMessage `json:"amount"`
	Type        string          `json:"type"`
	Notes       string          `json:"notes"`
}

// toDraft maps the request onto a draft. Unparseable fields are encoded so
// that draft validation reports them; the add stays all-or-nothing with a
// single field list in the response.
func (req createTransactionRequest) toDraft() core.Draft {
	draft := core.Draft{
		Description: req.Description,
		Notes:       req.Notes,
	}

	if d, err := core.ParseDate(req.Date); err == nil {
		draft.Date = d
	}

	if len(req.Amount) > 0 {
		raw := strings.Trim(strings.TrimSpace(string(req.Amount)), `"`)
		if cents, err := core.ParseDecimalToCents(raw); err == nil {
			draft.Amount = core.Money{Cents: cents}
		} else {
			// Reported by validation the same way as a negative amount.
			draft.Amount = core.Money{Cents: -1}
		}
	} else {
		draft.Amount = core.Money{Cents: -1}
	}

	if c, ok := core.ParseCategory(req.Type); ok {
		draft.Type = c
	} else {
		draft.Type = core.Category(req.Type)
	}

	return draft
}

func (s *Server) handleCreateTransaction(w http.ResponseWriter, r *http.Request) {
	var req createTransactionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "malformed request body")
		return
	}

	tx, err := s.svc.Create(r.Context(), req.toDraft())
	if err != nil {
		var verr *core.ValidationError
		if errors.As(err, &verr) {
			writeJSON(w, http.StatusUnprocessableEntity, map[string]any{
				"error":  verr.Error(),
				"fields": verr.Fields,
			})
			return
		}
		slog.ErrorContext(r.Context(), "Failed to create transaction", "error", err)
		writeError(w, http.StatusInternalServerError, "failed to create transaction")
		return
	}

	writeJSON(w, http.StatusCreated, tx)
}

func (s *Server) handleTransactionByID(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodDelete {
		w.Header().Set("Allow", "DELETE")
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	idStr := strings.TrimPrefix(r.URL.Path, "/api/transactions/")
	id, err := strconv.ParseInt(idStr, 10, 64)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid transaction id")
		return
	}

	// Removing an absent id is a no-op, not an error; the caller owns any
	// confirmation step before issuing the delete.
	removed := s.svc.Delete(r.Context(), id)
	writeJSON(w, http.StatusOK, map[string]bool{"removed": removed})
}

func (s *Server) handleCategories(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		w.Header().Set("Allow", "GET")
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"categories": core.Categories()})
}
