package handler

import (
	"context"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/iho/bankledger/internal/adapter/http/dto"
	"github.com/iho/bankledger/internal/domain"
	"github.com/iho/bankledger/internal/usecase"
)

// DashboardService defines the behavior needed by DashboardHandler.
type DashboardService interface {
	BuildView(ctx context.Context, input usecase.BuildViewInput) (*domain.DashboardView, error)
}

// DashboardHandler serves the per-customer dashboard.
type DashboardHandler struct {
	dashboardUC DashboardService
}

// NewDashboardHandler creates a new DashboardHandler.
func NewDashboardHandler(dashboardUC DashboardService) *DashboardHandler {
	return &DashboardHandler{dashboardUC: dashboardUC}
}

// Get builds the dashboard for customer {id}, optionally selecting ?rib=
// and ?page=.
func (h *DashboardHandler) Get(w http.ResponseWriter, r *http.Request) {
	view, err := h.dashboardUC.BuildView(r.Context(), usecase.BuildViewInput{
		CustomerID: chi.URLParam(r, "id"),
		RIB:        r.URL.Query().Get("rib"),
		PageIndex:  parseIntQuery(r, "page", 0),
	})
	if err != nil {
		writeDomainError(w, "failed to build dashboard", err)
		return
	}

	writeJSON(w, http.StatusOK, dto.DashboardFromDomain(view))
}
