package dto

import (
	"fmt"
	"time"

	"github.com/iho/bankledger/internal/domain"
	"github.com/iho/bankledger/internal/usecase"
)

// AccountResponse represents an account in API responses.
type AccountResponse struct {
	ID             int64     `json:"id"`
	RIB            string    `json:"rib"`
	OwnerID        string    `json:"owner_id"`
	Balance        string    `json:"balance"`
	OpeningBalance string    `json:"opening_balance"`
	Status         string    `json:"status"`
	Version        int64     `json:"version"`
	CreatedAt      time.Time `json:"created_at"`
	UpdatedAt      time.Time `json:"updated_at"`
}

// AccountFromDomain converts domain account to response.
func AccountFromDomain(a *domain.Account) *AccountResponse {
	return &AccountResponse{
		ID:             a.ID,
		RIB:            a.RIB,
		OwnerID:        a.OwnerID,
		Balance:        a.Balance.String(),
		OpeningBalance: a.OpeningBalance.String(),
		Status:         string(a.Status),
		Version:        a.Version,
		CreatedAt:      a.CreatedAt,
		UpdatedAt:      a.UpdatedAt,
	}
}

// AccountsFromDomain converts domain accounts to responses.
func AccountsFromDomain(accounts []*domain.Account) []*AccountResponse {
	result := make([]*AccountResponse, len(accounts))
	for i, a := range accounts {
		result[i] = AccountFromDomain(a)
	}
	return result
}

// ListAccountsResponse represents a page of accounts.
type ListAccountsResponse struct {
	Accounts []*AccountResponse `json:"accounts"`
	Limit    int                `json:"limit,omitempty"`
	Offset   int                `json:"offset,omitempty"`
}

// EntryResponse represents a ledger entry in API responses.
type EntryResponse struct {
	ID                     int64     `json:"id"`
	TransferID             string    `json:"transfer_id"`
	RIB                    string    `json:"rib"`
	Kind                   string    `json:"kind"`
	Amount                 string    `json:"amount"`
	ActingUserID           string    `json:"acting_user_id"`
	AccountPreviousBalance string    `json:"account_previous_balance"`
	AccountCurrentBalance  string    `json:"account_current_balance"`
	CreatedAt              time.Time `json:"created_at"`
}

// EntryFromDomain converts domain entry to response.
func EntryFromDomain(e *domain.Entry) *EntryResponse {
	return &EntryResponse{
		ID:                     e.ID,
		TransferID:             e.TransferID,
		RIB:                    e.RIB,
		Kind:                   string(e.Kind),
		Amount:                 e.Amount.String(),
		ActingUserID:           e.ActingUserID,
		AccountPreviousBalance: e.AccountPreviousBalance.String(),
		AccountCurrentBalance:  e.AccountCurrentBalance.String(),
		CreatedAt:              e.CreatedAt,
	}
}

// EntriesFromDomain converts domain entries to responses.
func EntriesFromDomain(entries []*domain.Entry) []*EntryResponse {
	result := make([]*EntryResponse, len(entries))
	for i, e := range entries {
		result[i] = EntryFromDomain(e)
	}
	return result
}

// EntryPageResponse represents one page of recent entries.
type EntryPageResponse struct {
	Entries    []*EntryResponse `json:"entries"`
	PageIndex  int              `json:"page_index"`
	PageSize   int              `json:"page_size"`
	TotalCount int64            `json:"total_count"`
	TotalPages int              `json:"total_pages"`
}

// EntryPageFromDomain converts a domain page to response.
func EntryPageFromDomain(p *domain.EntryPage) *EntryPageResponse {
	return &EntryPageResponse{
		Entries:    EntriesFromDomain(p.Entries),
		PageIndex:  p.PageIndex,
		PageSize:   p.PageSize,
		TotalCount: p.TotalCount,
		TotalPages: p.TotalPages(),
	}
}

// TransferResponse represents a committed transfer.
type TransferResponse struct {
	TransferID  string         `json:"transfer_id"`
	Message     string         `json:"message"`
	FromRIB     string         `json:"from_rib"`
	ToRIB       string         `json:"to_rib"`
	Amount      string         `json:"amount"`
	FromBalance string         `json:"from_balance"`
	ToBalance   string         `json:"to_balance"`
	Debit       *EntryResponse `json:"debit"`
	Credit      *EntryResponse `json:"credit"`
}

// TransferMessage is the confirmation shown to the initiating user.
func TransferMessage(r *domain.TransferResult) string {
	return fmt.Sprintf("Transfer of %s from %s to %s completed",
		r.Debit.Amount.StringFixed(2), r.From.RIB, r.To.RIB)
}

// TransferFromDomain converts a transfer result to response.
func TransferFromDomain(r *domain.TransferResult) *TransferResponse {
	return &TransferResponse{
		TransferID:  r.TransferID,
		Message:     TransferMessage(r),
		FromRIB:     r.From.RIB,
		ToRIB:       r.To.RIB,
		Amount:      r.Debit.Amount.String(),
		FromBalance: r.From.Balance.String(),
		ToBalance:   r.To.Balance.String(),
		Debit:       EntryFromDomain(r.Debit),
		Credit:      EntryFromDomain(r.Credit),
	}
}

// DescribedEntryResponse is a dashboard row.
type DescribedEntryResponse struct {
	*EntryResponse

	Counterparty    string `json:"counterparty"`
	CounterpartyRIB string `json:"counterparty_rib,omitempty"`
	Description     string `json:"description"`
}

// AccountSummaryResponse is a sibling account on the dashboard.
type AccountSummaryResponse struct {
	RIB     string `json:"rib"`
	Balance string `json:"balance"`
	Status  string `json:"status"`
}

// DashboardResponse represents a customer dashboard page.
type DashboardResponse struct {
	CustomerID        string                    `json:"customer_id"`
	RIB               string                    `json:"rib"`
	Balance           string                    `json:"balance"`
	Entries           []*DescribedEntryResponse `json:"entries"`
	Accounts          []*AccountSummaryResponse `json:"accounts"`
	CurrentPage       int                       `json:"current_page"`
	TotalPages        int                       `json:"total_pages"`
	TotalTransactions int64                     `json:"total_transactions"`
}

// DashboardFromDomain converts a dashboard view to response.
func DashboardFromDomain(v *domain.DashboardView) *DashboardResponse {
	resp := &DashboardResponse{
		CustomerID:        v.CustomerID,
		RIB:               v.RIB,
		Balance:           v.Balance.String(),
		Entries:           make([]*DescribedEntryResponse, len(v.Entries)),
		Accounts:          make([]*AccountSummaryResponse, len(v.Accounts)),
		CurrentPage:       v.CurrentPage,
		TotalPages:        v.TotalPages,
		TotalTransactions: v.TotalTransactions,
	}

	for i, e := range v.Entries {
		resp.Entries[i] = &DescribedEntryResponse{
			EntryResponse:   EntryFromDomain(e.Entry),
			Counterparty:    e.Counterparty,
			CounterpartyRIB: e.CounterpartyRIB,
			Description:     e.Description,
		}
	}
	for i, a := range v.Accounts {
		resp.Accounts[i] = &AccountSummaryResponse{
			RIB:     a.RIB,
			Balance: a.Balance.String(),
			Status:  string(a.Status),
		}
	}

	return resp
}

// ConsistencyResponse represents the ledger-wide check.
type ConsistencyResponse struct {
	Consistent      bool   `json:"consistent"`
	EntriesBalanced bool   `json:"entries_balanced"`
	Conserved       bool   `json:"conserved"`
	TotalDebits     string `json:"total_debits"`
	TotalCredits    string `json:"total_credits"`
	TotalBalance    string `json:"total_balance"`
	OpeningBalance  string `json:"opening_balance"`
}

// ConsistencyFromUseCase converts a consistency report to response.
func ConsistencyFromUseCase(r *usecase.ConsistencyReport) *ConsistencyResponse {
	return &ConsistencyResponse{
		Consistent:      r.Consistent(),
		EntriesBalanced: r.EntriesBalanced,
		Conserved:       r.Conserved,
		TotalDebits:     r.TotalDebits.String(),
		TotalCredits:    r.TotalCredits.String(),
		TotalBalance:    r.TotalBalance.String(),
		OpeningBalance:  r.OpeningBalance.String(),
	}
}

// ReconciliationResponse represents one account's reconciliation.
type ReconciliationResponse struct {
	RIB               string    `json:"rib"`
	RecordedBalance   string    `json:"recorded_balance"`
	CalculatedBalance string    `json:"calculated_balance"`
	Difference        string    `json:"difference"`
	Reconciled        bool      `json:"reconciled"`
	CheckedAt         time.Time `json:"checked_at"`
}

// ReconciliationFromUseCase converts a reconciliation result to response.
func ReconciliationFromUseCase(r *usecase.ReconciliationResult) *ReconciliationResponse {
	return &ReconciliationResponse{
		RIB:               r.RIB,
		RecordedBalance:   r.RecordedBalance.String(),
		CalculatedBalance: r.CalculatedBalance.String(),
		Difference:        r.Difference.String(),
		Reconciled:        r.IsReconciled,
		CheckedAt:         r.LastChecked,
	}
}

// ReconciliationReportResponse represents a full reconciliation run.
type ReconciliationReportResponse struct {
	TotalAccounts      int                       `json:"total_accounts"`
	ReconciledAccounts int                       `json:"reconciled_accounts"`
	Discrepancies      []*ReconciliationResponse `json:"discrepancies"`
	Ledger             *ConsistencyResponse      `json:"ledger"`
	CheckedAt          time.Time                 `json:"checked_at"`
}

// ReconciliationReportFromUseCase converts a report to response.
func ReconciliationReportFromUseCase(r *usecase.ReconciliationReport) *ReconciliationReportResponse {
	resp := &ReconciliationReportResponse{
		TotalAccounts:      r.TotalAccounts,
		ReconciledAccounts: r.ReconciledAccounts,
		Discrepancies:      make([]*ReconciliationResponse, len(r.Discrepancies)),
		Ledger:             ConsistencyFromUseCase(r.Ledger),
		CheckedAt:          r.CheckedAt,
	}
	for i, d := range r.Discrepancies {
		resp.Discrepancies[i] = ReconciliationFromUseCase(d)
	}
	return resp
}

// UserResponse represents an acting user.
type UserResponse struct {
	ID        string    `json:"id"`
	Username  string    `json:"username"`
	Email     string    `json:"email,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}

// UserFromDomain converts domain user to response.
func UserFromDomain(u *domain.User) *UserResponse {
	return &UserResponse{
		ID:        u.ID,
		Username:  u.Username,
		Email:     u.Email,
		CreatedAt: u.CreatedAt,
	}
}

// CustomerResponse represents a customer profile.
type CustomerResponse struct {
	UserResponse

	IdentityRef   string `json:"identity_ref,omitempty"`
	FirstName     string `json:"first_name,omitempty"`
	LastName      string `json:"last_name,omitempty"`
	PostalAddress string `json:"postal_address,omitempty"`
	BirthDate     string `json:"birth_date,omitempty"`
}

// CustomerFromDomain converts domain customer to response.
func CustomerFromDomain(c *domain.Customer) *CustomerResponse {
	resp := &CustomerResponse{
		UserResponse:  *UserFromDomain(&c.User),
		IdentityRef:   c.IdentityRef,
		FirstName:     c.FirstName,
		LastName:      c.LastName,
		PostalAddress: c.PostalAddress,
	}
	if c.BirthDate != nil {
		resp.BirthDate = c.BirthDate.Format(dateLayout)
	}
	return resp
}

// ErrorResponse represents an error in API responses.
type ErrorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message,omitempty"`
}
