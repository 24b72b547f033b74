package handler

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/iho/bankledger/internal/adapter/http/dto"
	"github.com/iho/bankledger/internal/adapter/http/middleware"
	"github.com/iho/bankledger/internal/domain"
)

// TransferService defines the behavior needed by TransferHandler.
type TransferService interface {
	Execute(ctx context.Context, intent domain.TransferIntent) (*domain.TransferResult, error)
}

// TransferHandler handles transfer-related HTTP requests.
type TransferHandler struct {
	transferUC TransferService
}

// NewTransferHandler creates a new TransferHandler.
func NewTransferHandler(transferUC TransferService) *TransferHandler {
	return &TransferHandler{transferUC: transferUC}
}

// Create executes a transfer on behalf of the acting user.
func (h *TransferHandler) Create(w http.ResponseWriter, r *http.Request) {
	username := middleware.ActingUsername(r.Context())
	if username == "" {
		writeError(w, http.StatusBadRequest, "missing acting user", "set the "+middleware.UsernameHeader+" header")
		return
	}

	var req dto.TransferRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body", err.Error())
		return
	}

	intent, err := req.ToIntent(username)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid amount", err.Error())
		return
	}

	result, err := h.transferUC.Execute(r.Context(), intent)
	if err != nil {
		writeDomainError(w, "transfer rejected", err)
		return
	}

	writeJSON(w, http.StatusCreated, dto.TransferFromDomain(result))
}
