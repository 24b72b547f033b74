package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/shopspring/decimal"

	"github.com/iho/bankledger/internal/adapter/http/dto"
	"github.com/iho/bankledger/internal/adapter/http/middleware"
	"github.com/iho/bankledger/internal/domain"
)

type transferServiceStub struct {
	executeFn func(ctx context.Context, intent domain.TransferIntent) (*domain.TransferResult, error)
}

func (s *transferServiceStub) Execute(ctx context.Context, intent domain.TransferIntent) (*domain.TransferResult, error) {
	return s.executeFn(ctx, intent)
}

func newTransferRequest(t *testing.T, username string, req dto.TransferRequest) *http.Request {
	t.Helper()
	body, err := json.Marshal(req)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	r := httptest.NewRequest(http.MethodPost, "/transfers", bytes.NewReader(body))
	if username != "" {
		r = r.WithContext(middleware.WithActingUsername(r.Context(), username))
	}
	return r
}

func committed(intent domain.TransferIntent) *domain.TransferResult {
	return &domain.TransferResult{
		TransferID: "01HTRANSFER",
		Debit:      &domain.Entry{Kind: domain.EntryKindDebit, Amount: intent.Amount, RIB: intent.FromRIB},
		Credit:     &domain.Entry{Kind: domain.EntryKindCredit, Amount: intent.Amount, RIB: intent.ToRIB},
		From:       &domain.Account{RIB: intent.FromRIB, Balance: decimal.NewFromInt(700)},
		To:         &domain.Account{RIB: intent.ToRIB, Balance: intent.Amount},
	}
}

func TestTransferHandler_Create_Success(t *testing.T) {
	var captured domain.TransferIntent
	handler := NewTransferHandler(&transferServiceStub{
		executeFn: func(ctx context.Context, intent domain.TransferIntent) (*domain.TransferResult, error) {
			captured = intent
			return committed(intent), nil
		},
	})

	rec := httptest.NewRecorder()
	handler.Create(rec, newTransferRequest(t, "alice", dto.TransferRequest{FromRIB: ribA, ToRIB: ribB, Amount: "300"}))

	if rec.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d: %s", rec.Code, rec.Body.String())
	}
	if captured.ActingUsername != "alice" || captured.FromRIB != ribA || !captured.Amount.Equal(decimal.NewFromInt(300)) {
		t.Fatalf("unexpected intent %+v", captured)
	}

	var resp dto.TransferResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	want := "Transfer of 300.00 from " + ribA + " to " + ribB + " completed"
	if resp.Message != want {
		t.Fatalf("Message = %q, want %q", resp.Message, want)
	}
}

func TestTransferHandler_Create_RequiresActingUser(t *testing.T) {
	handler := NewTransferHandler(&transferServiceStub{
		executeFn: func(ctx context.Context, intent domain.TransferIntent) (*domain.TransferResult, error) {
			t.Fatalf("transfer must not run without an acting user")
			return nil, nil
		},
	})

	rec := httptest.NewRecorder()
	handler.Create(rec, newTransferRequest(t, "", dto.TransferRequest{FromRIB: ribA, ToRIB: ribB, Amount: "1"}))

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", rec.Code)
	}
}

func TestTransferHandler_Create_Errors(t *testing.T) {
	tests := []struct {
		name       string
		amount     string
		err        error
		expected   int
		retryAfter bool
	}{
		{name: "unparseable amount", amount: "abc", expected: http.StatusBadRequest},
		{name: "non-positive amount", amount: "0", err: domain.ErrInvalidAmount, expected: http.StatusBadRequest},
		{name: "unknown user", amount: "1", err: domain.ErrUnknownUser, expected: http.StatusNotFound},
		{name: "missing destination", amount: "1", err: domain.ErrDestinationNotFound, expected: http.StatusNotFound},
		{name: "self transfer", amount: "1", err: domain.ErrSelfTransfer, expected: http.StatusUnprocessableEntity},
		{name: "insufficient funds", amount: "1", err: domain.ErrInsufficientFunds, expected: http.StatusUnprocessableEntity},
		{
			name:     "blocked source",
			amount:   "1",
			err:      &domain.AccountUnavailableError{Side: domain.SideSource, RIB: ribA, Status: domain.AccountStatusBlocked},
			expected: http.StatusUnprocessableEntity,
		},
		{
			name:       "storage fault",
			amount:     "1",
			err:        domain.NewInfrastructureError("commit transfer", errors.New("connection reset")),
			expected:   http.StatusServiceUnavailable,
			retryAfter: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			handler := NewTransferHandler(&transferServiceStub{
				executeFn: func(ctx context.Context, intent domain.TransferIntent) (*domain.TransferResult, error) {
					return nil, tt.err
				},
			})

			rec := httptest.NewRecorder()
			handler.Create(rec, newTransferRequest(t, "alice", dto.TransferRequest{FromRIB: ribA, ToRIB: ribB, Amount: tt.amount}))

			if rec.Code != tt.expected {
				t.Fatalf("expected %d, got %d: %s", tt.expected, rec.Code, rec.Body.String())
			}
			if got := rec.Header().Get("Retry-After") != ""; got != tt.retryAfter {
				t.Fatalf("Retry-After present = %v, expected %v", got, tt.retryAfter)
			}
		})
	}
}
