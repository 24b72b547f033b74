package handler

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/iho/bankledger/internal/adapter/http/dto"
	"github.com/iho/bankledger/internal/domain"
	"github.com/iho/bankledger/internal/usecase"
)

// AccountService defines the behavior needed by AccountHandler.
type AccountService interface {
	Open(ctx context.Context, input usecase.OpenAccountInput) (*domain.Account, error)
	FindByRib(ctx context.Context, rib string) (*domain.Account, error)
	ListAccounts(ctx context.Context, input usecase.ListAccountsInput) ([]*domain.Account, error)
	ListByOwner(ctx context.Context, ownerID string) ([]*domain.Account, error)
	ChangeStatus(ctx context.Context, rib string, status domain.AccountStatus) (*domain.Account, error)
}

// AccountMetrics counts account lifecycle events.
type AccountMetrics interface {
	AccountOpened()
	AccountStatusChanged(status domain.AccountStatus)
}

// AccountHandler handles account-related HTTP requests.
type AccountHandler struct {
	accountUC AccountService
	recorder  AccountMetrics
}

// NewAccountHandler creates a new AccountHandler. recorder may be nil.
func NewAccountHandler(accountUC AccountService, recorder AccountMetrics) *AccountHandler {
	return &AccountHandler{accountUC: accountUC, recorder: recorder}
}

// Open opens a new account.
func (h *AccountHandler) Open(w http.ResponseWriter, r *http.Request) {
	var req dto.OpenAccountRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body", err.Error())
		return
	}

	input, err := req.ToUseCaseInput()
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid initial balance", err.Error())
		return
	}

	account, err := h.accountUC.Open(r.Context(), input)
	if err != nil {
		writeDomainError(w, "failed to open account", err)
		return
	}

	if h.recorder != nil {
		h.recorder.AccountOpened()
	}

	writeJSON(w, http.StatusCreated, dto.AccountFromDomain(account))
}

// Get retrieves an account by rib.
func (h *AccountHandler) Get(w http.ResponseWriter, r *http.Request) {
	rib := chi.URLParam(r, "rib")
	if rib == "" {
		writeError(w, http.StatusBadRequest, "missing rib", "")
		return
	}

	account, err := h.accountUC.FindByRib(r.Context(), rib)
	if err != nil {
		writeDomainError(w, "failed to get account", err)
		return
	}

	writeJSON(w, http.StatusOK, dto.AccountFromDomain(account))
}

// List lists accounts, or the accounts of ?owner_id= when given.
func (h *AccountHandler) List(w http.ResponseWriter, r *http.Request) {
	if owner := r.URL.Query().Get("owner_id"); owner != "" {
		accounts, err := h.accountUC.ListByOwner(r.Context(), owner)
		if err != nil {
			writeDomainError(w, "failed to list accounts", err)
			return
		}
		writeJSON(w, http.StatusOK, dto.ListAccountsResponse{Accounts: dto.AccountsFromDomain(accounts)})
		return
	}

	limit := parseIntQuery(r, "limit", 20)
	offset := parseIntQuery(r, "offset", 0)

	accounts, err := h.accountUC.ListAccounts(r.Context(), usecase.ListAccountsInput{
		Limit:  limit,
		Offset: offset,
	})
	if err != nil {
		writeDomainError(w, "failed to list accounts", err)
		return
	}

	writeJSON(w, http.StatusOK, dto.ListAccountsResponse{
		Accounts: dto.AccountsFromDomain(accounts),
		Limit:    limit,
		Offset:   offset,
	})
}

// ChangeStatus applies an administrative status change.
func (h *AccountHandler) ChangeStatus(w http.ResponseWriter, r *http.Request) {
	rib := chi.URLParam(r, "rib")

	var req dto.ChangeStatusRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body", err.Error())
		return
	}

	status, err := req.ToDomain()
	if err != nil {
		writeDomainError(w, "invalid status", err)
		return
	}

	account, err := h.accountUC.ChangeStatus(r.Context(), rib, status)
	if err != nil {
		writeDomainError(w, "failed to change account status", err)
		return
	}

	if h.recorder != nil {
		h.recorder.AccountStatusChanged(status)
	}

	writeJSON(w, http.StatusOK, dto.AccountFromDomain(account))
}
