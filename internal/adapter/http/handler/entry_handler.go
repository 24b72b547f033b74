package handler

import (
	"context"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/iho/bankledger/internal/adapter/http/dto"
	"github.com/iho/bankledger/internal/domain"
	"github.com/iho/bankledger/internal/usecase"
)

// EntryService defines the behavior needed by EntryHandler.
type EntryService interface {
	QueryHistory(ctx context.Context, input usecase.QueryHistoryInput) ([]*domain.Entry, error)
	FindRecentPaged(ctx context.Context, input usecase.FindRecentPagedInput) (*domain.EntryPage, error)
	GetEntriesByTransfer(ctx context.Context, transferID string) ([]*domain.Entry, error)
}

// EntryHandler handles entry-related HTTP requests.
type EntryHandler struct {
	entryUC EntryService
}

// NewEntryHandler creates a new EntryHandler.
func NewEntryHandler(entryUC EntryService) *EntryHandler {
	return &EntryHandler{entryUC: entryUC}
}

// History lists an account's entries between ?from= and ?to=, inclusive,
// oldest first.
func (h *EntryHandler) History(w http.ResponseWriter, r *http.Request) {
	rib := chi.URLParam(r, "rib")

	from, err := parseTimeQuery(r, "from", false)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid date range", err.Error())
		return
	}
	to, err := parseTimeQuery(r, "to", true)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid date range", err.Error())
		return
	}

	entries, err := h.entryUC.QueryHistory(r.Context(), usecase.QueryHistoryInput{
		RIB:  rib,
		From: from,
		To:   to,
	})
	if err != nil {
		writeDomainError(w, "failed to query history", err)
		return
	}

	writeJSON(w, http.StatusOK, dto.EntriesFromDomain(entries))
}

// Recent returns page ?page= of an account's entries, newest first.
func (h *EntryHandler) Recent(w http.ResponseWriter, r *http.Request) {
	rib := chi.URLParam(r, "rib")

	page, err := h.entryUC.FindRecentPaged(r.Context(), usecase.FindRecentPagedInput{
		RIB:       rib,
		PageIndex: parseIntQuery(r, "page", 0),
		PageSize:  parseIntQuery(r, "size", domain.DashboardPerPage),
	})
	if err != nil {
		writeDomainError(w, "failed to list entries", err)
		return
	}

	writeJSON(w, http.StatusOK, dto.EntryPageFromDomain(page))
}

// ListByTransfer lists both legs of a transfer.
func (h *EntryHandler) ListByTransfer(w http.ResponseWriter, r *http.Request) {
	transferID := chi.URLParam(r, "id")
	if transferID == "" {
		writeError(w, http.StatusBadRequest, "missing transfer ID", "")
		return
	}

	entries, err := h.entryUC.GetEntriesByTransfer(r.Context(), transferID)
	if err != nil {
		writeDomainError(w, "failed to list entries", err)
		return
	}

	writeJSON(w, http.StatusOK, dto.EntriesFromDomain(entries))
}
