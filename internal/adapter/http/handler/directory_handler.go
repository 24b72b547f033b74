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

// DirectoryService defines the behavior needed by DirectoryHandler.
type DirectoryService interface {
	RegisterUser(ctx context.Context, input usecase.RegisterUserInput) (*domain.User, error)
	RegisterCustomer(ctx context.Context, input usecase.RegisterCustomerInput) (*domain.Customer, error)
	GetUser(ctx context.Context, id string) (*domain.User, error)
	GetCustomer(ctx context.Context, id string) (*domain.Customer, error)
}

// DirectoryHandler registers and reads users and customers.
type DirectoryHandler struct {
	directoryUC DirectoryService
}

// NewDirectoryHandler creates a new DirectoryHandler.
func NewDirectoryHandler(directoryUC DirectoryService) *DirectoryHandler {
	return &DirectoryHandler{directoryUC: directoryUC}
}

// RegisterUser registers an acting user.
func (h *DirectoryHandler) RegisterUser(w http.ResponseWriter, r *http.Request) {
	var req dto.RegisterUserRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body", err.Error())
		return
	}

	user, err := h.directoryUC.RegisterUser(r.Context(), req.ToUseCaseInput())
	if err != nil {
		writeDomainError(w, "failed to register user", err)
		return
	}

	writeJSON(w, http.StatusCreated, dto.UserFromDomain(user))
}

// GetUser retrieves a user by ID.
func (h *DirectoryHandler) GetUser(w http.ResponseWriter, r *http.Request) {
	user, err := h.directoryUC.GetUser(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeDomainError(w, "failed to get user", err)
		return
	}

	writeJSON(w, http.StatusOK, dto.UserFromDomain(user))
}

// RegisterCustomer onboards a customer.
func (h *DirectoryHandler) RegisterCustomer(w http.ResponseWriter, r *http.Request) {
	var req dto.RegisterCustomerRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body", err.Error())
		return
	}

	input, err := req.ToUseCaseInput()
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid customer", err.Error())
		return
	}

	customer, err := h.directoryUC.RegisterCustomer(r.Context(), input)
	if err != nil {
		writeDomainError(w, "failed to register customer", err)
		return
	}

	writeJSON(w, http.StatusCreated, dto.CustomerFromDomain(customer))
}

// GetCustomer retrieves a customer by ID.
func (h *DirectoryHandler) GetCustomer(w http.ResponseWriter, r *http.Request) {
	customer, err := h.directoryUC.GetCustomer(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeDomainError(w, "failed to get customer", err)
		return
	}

	writeJSON(w, http.StatusOK, dto.CustomerFromDomain(customer))
}
