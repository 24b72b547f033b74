package domain

import "time"

// Event types
const (
	EventTypeTransferCreated      = "transfer.created"
	EventTypeAccountOpened        = "account.opened"
	EventTypeAccountStatusChanged = "account.status_changed"
)

// Aggregate types
const (
	AggregateTypeTransfer = "transfer"
	AggregateTypeAccount  = "account"
)

// OutboxEvent represents an event to be published
type OutboxEvent struct {
	ID            string
	AggregateID   string
	AggregateType string
	EventType     string
	Payload       map[string]any
	CreatedAt     time.Time
	PublishedAt   *time.Time
	Published     bool
}

// TransferCreatedEvent payload
type TransferCreatedEvent struct {
	TransferID   string `json:"transfer_id"`
	FromRIB      string `json:"from_rib"`
	ToRIB        string `json:"to_rib"`
	Amount       string `json:"amount"`
	ActingUserID string `json:"acting_user_id"`
	EventAt      string `json:"event_at"`
}

// AccountOpenedEvent payload
type AccountOpenedEvent struct {
	RIB            string `json:"rib"`
	OwnerID        string `json:"owner_id"`
	OpeningBalance string `json:"opening_balance"`
}

// AccountStatusChangedEvent payload
type AccountStatusChangedEvent struct {
	RIB  string `json:"rib"`
	From string `json:"from"`
	To   string `json:"to"`
}

// Payload converts an event payload struct to the outbox's map form.
func (e TransferCreatedEvent) Payload() map[string]any {
	return map[string]any{
		"transfer_id":    e.TransferID,
		"from_rib":       e.FromRIB,
		"to_rib":         e.ToRIB,
		"amount":         e.Amount,
		"acting_user_id": e.ActingUserID,
		"event_at":       e.EventAt,
	}
}

func (e AccountOpenedEvent) Payload() map[string]any {
	return map[string]any{
		"rib":             e.RIB,
		"owner_id":        e.OwnerID,
		"opening_balance": e.OpeningBalance,
	}
}

func (e AccountStatusChangedEvent) Payload() map[string]any {
	return map[string]any{
		"rib":  e.RIB,
		"from": e.From,
		"to":   e.To,
	}
}
