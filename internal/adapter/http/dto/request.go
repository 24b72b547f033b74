package dto

import (
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/iho/bankledger/internal/domain"
	"github.com/iho/bankledger/internal/usecase"
)

const dateLayout = "2006-01-02"

// OpenAccountRequest represents a request to open an account.
type OpenAccountRequest struct {
	OwnerID        string `json:"owner_id"`
	RIB            string `json:"rib"`
	InitialBalance string `json:"initial_balance"`
}

// ToUseCaseInput converts to use case input. An empty balance opens the
// account at zero.
func (r *OpenAccountRequest) ToUseCaseInput() (usecase.OpenAccountInput, error) {
	balance := decimal.Zero
	if s := strings.TrimSpace(r.InitialBalance); s != "" {
		var err error
		balance, err = decimal.NewFromString(s)
		if err != nil {
			return usecase.OpenAccountInput{}, fmt.Errorf("invalid initial_balance %q", r.InitialBalance)
		}
	}

	return usecase.OpenAccountInput{
		OwnerID:        r.OwnerID,
		RIB:            r.RIB,
		InitialBalance: balance,
	}, nil
}

// ChangeStatusRequest represents an administrative status change.
type ChangeStatusRequest struct {
	Status string `json:"status"`
}

// ToDomain parses the requested status.
func (r *ChangeStatusRequest) ToDomain() (domain.AccountStatus, error) {
	return domain.ParseAccountStatus(strings.ToUpper(strings.TrimSpace(r.Status)))
}

// TransferRequest represents a request to move money between two accounts.
type TransferRequest struct {
	FromRIB string `json:"from_rib"`
	ToRIB   string `json:"to_rib"`
	Amount  string `json:"amount"`
}

// ToIntent converts to a transfer intent on behalf of username.
func (r *TransferRequest) ToIntent(username string) (domain.TransferIntent, error) {
	amount, err := decimal.NewFromString(strings.TrimSpace(r.Amount))
	if err != nil {
		return domain.TransferIntent{}, fmt.Errorf("invalid amount %q", r.Amount)
	}

	return domain.TransferIntent{
		FromRIB:        r.FromRIB,
		ToRIB:          r.ToRIB,
		Amount:         amount,
		ActingUsername: username,
	}, nil
}

// RegisterUserRequest represents a request to register an acting user.
type RegisterUserRequest struct {
	ID       string `json:"id,omitempty"`
	Username string `json:"username"`
	Email    string `json:"email,omitempty"`
}

// ToUseCaseInput converts to use case input.
func (r *RegisterUserRequest) ToUseCaseInput() usecase.RegisterUserInput {
	return usecase.RegisterUserInput{
		ID:       r.ID,
		Username: r.Username,
		Email:    r.Email,
	}
}

// RegisterCustomerRequest represents a request to onboard a customer.
type RegisterCustomerRequest struct {
	RegisterUserRequest

	IdentityRef   string `json:"identity_ref,omitempty"`
	FirstName     string `json:"first_name,omitempty"`
	LastName      string `json:"last_name,omitempty"`
	PostalAddress string `json:"postal_address,omitempty"`
	BirthDate     string `json:"birth_date,omitempty"`
}

// ToUseCaseInput converts to use case input. BirthDate is YYYY-MM-DD.
func (r *RegisterCustomerRequest) ToUseCaseInput() (usecase.RegisterCustomerInput, error) {
	input := usecase.RegisterCustomerInput{
		User:          r.RegisterUserRequest.ToUseCaseInput(),
		IdentityRef:   r.IdentityRef,
		FirstName:     r.FirstName,
		LastName:      r.LastName,
		PostalAddress: r.PostalAddress,
	}

	if r.BirthDate != "" {
		bd, err := time.Parse(dateLayout, r.BirthDate)
		if err != nil {
			return input, fmt.Errorf("invalid birth_date %q, expected YYYY-MM-DD", r.BirthDate)
		}
		input.BirthDate = &bd
	}

	return input, nil
}
