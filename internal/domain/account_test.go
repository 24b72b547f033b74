package domain

import (
	"errors"
	"testing"

	"github.com/shopspring/decimal"
)

func TestAccount_ValidateDebit(t *testing.T) {
	tests := []struct {
		name        string
		balance     decimal.Decimal
		debitAmount decimal.Decimal
		expectError bool
	}{
		{
			name:        "debit more than balance",
			balance:     decimal.NewFromInt(50),
			debitAmount: decimal.NewFromInt(100),
			expectError: true,
		},
		{
			name:        "debit exact balance",
			balance:     decimal.NewFromInt(100),
			debitAmount: decimal.NewFromInt(100),
			expectError: false,
		},
		{
			name:        "debit less than balance",
			balance:     decimal.NewFromInt(100),
			debitAmount: decimal.NewFromInt(50),
			expectError: false,
		},
		{
			name:        "debit from empty account",
			balance:     decimal.Zero,
			debitAmount: decimal.RequireFromString("0.01"),
			expectError: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			acc := &Account{Balance: tt.balance}

			err := acc.ValidateDebit(tt.debitAmount)

			if tt.expectError && !errors.Is(err, ErrInsufficientFunds) {
				t.Errorf("expected ErrInsufficientFunds, got %v", err)
			}

			if !tt.expectError && err != nil {
				t.Errorf("unexpected error: %v", err)
			}
		})
	}
}

func TestAccount_ApplyDebitCredit(t *testing.T) {
	acc := &Account{Balance: decimal.NewFromInt(1000)}

	if got := acc.ApplyDebit(decimal.NewFromInt(300)); !got.Equal(decimal.NewFromInt(700)) {
		t.Errorf("expected 700, got %s", got)
	}

	if got := acc.ApplyCredit(decimal.RequireFromString("0.50")); !got.Equal(decimal.RequireFromString("1000.50")) {
		t.Errorf("expected 1000.50, got %s", got)
	}

	if !acc.Balance.Equal(decimal.NewFromInt(1000)) {
		t.Errorf("apply must not mutate the account, balance is %s", acc.Balance)
	}
}

func TestAccount_CheckAvailable(t *testing.T) {
	tests := []struct {
		name    string
		status  AccountStatus
		side    TransferSide
		wantErr error
	}{
		{"opened source", AccountStatusOpened, SideSource, nil},
		{"blocked source", AccountStatusBlocked, SideSource, ErrSourceUnavailable},
		{"closed source", AccountStatusClosed, SideSource, ErrSourceUnavailable},
		{"opened destination", AccountStatusOpened, SideDestination, nil},
		{"blocked destination", AccountStatusBlocked, SideDestination, ErrDestinationUnavailable},
		{"closed destination", AccountStatusClosed, SideDestination, ErrDestinationUnavailable},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			acc := &Account{RIB: "000000000000000000000001", Status: tt.status}
			err := acc.CheckAvailable(tt.side)

			if tt.wantErr == nil {
				if err != nil {
					t.Fatalf("unexpected error: %v", err)
				}
				return
			}

			if !errors.Is(err, tt.wantErr) {
				t.Fatalf("expected %v, got %v", tt.wantErr, err)
			}
			if !errors.Is(err, ErrBusinessRule) {
				t.Fatalf("expected business rule class, got %v", err)
			}

			var unavailable *AccountUnavailableError
			if !errors.As(err, &unavailable) || unavailable.Status != tt.status {
				t.Fatalf("expected AccountUnavailableError with status %s, got %v", tt.status, err)
			}
		})
	}
}

func TestAccountStatus_CanTransitionTo(t *testing.T) {
	tests := []struct {
		from AccountStatus
		to   AccountStatus
		want bool
	}{
		{AccountStatusOpened, AccountStatusBlocked, true},
		{AccountStatusOpened, AccountStatusClosed, true},
		{AccountStatusBlocked, AccountStatusOpened, true},
		{AccountStatusBlocked, AccountStatusClosed, true},
		{AccountStatusClosed, AccountStatusOpened, false},
		{AccountStatusClosed, AccountStatusBlocked, false},
		{AccountStatusOpened, AccountStatusOpened, false},
	}

	for _, tt := range tests {
		t.Run(string(tt.from)+"->"+string(tt.to), func(t *testing.T) {
			if got := tt.from.CanTransitionTo(tt.to); got != tt.want {
				t.Errorf("expected %v, got %v", tt.want, got)
			}
		})
	}
}

func TestParseAccountStatus(t *testing.T) {
	status, err := ParseAccountStatus("BLOCKED")
	if err != nil || status != AccountStatusBlocked {
		t.Fatalf("expected BLOCKED, got %q, %v", status, err)
	}

	if _, err := ParseAccountStatus("frozen"); !errors.Is(err, ErrInvalidStatus) {
		t.Fatalf("expected ErrInvalidStatus, got %v", err)
	}
}

func TestAccount_Clone(t *testing.T) {
	acc := &Account{ID: 1, Balance: decimal.NewFromInt(10)}
	c := acc.Clone()
	c.Balance = decimal.NewFromInt(20)

	if !acc.Balance.Equal(decimal.NewFromInt(10)) {
		t.Errorf("clone shares state with original")
	}
}
