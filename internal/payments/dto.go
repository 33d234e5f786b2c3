package payments

import (
	"github.com/essenza-shop/essenza-backend/pkg/db/models"
	"github.com/essenza-shop/essenza-backend/pkg/enums"
)

// Outcome classifies what a reconciliation run did. Webhook handlers log it
// and always acknowledge; the gateway retries on non-2xx only.
type Outcome string

const (
	OutcomeCompleted        Outcome = "completed"
	OutcomeFailed           Outcome = "failed"
	OutcomeStillPending     Outcome = "still_pending"
	OutcomeAlreadyProcessed Outcome = "already_processed"
)

// ReconcileInput carries the IPN callback identifiers.
type ReconcileInput struct {
	TrackingID        string
	MerchantReference string
	NotificationType  string
}

// ReconcileResult reports the outcome of one reconciliation run.
type ReconcileResult struct {
	Outcome     Outcome
	Transaction *models.Transaction
}

// TransactionFilters narrows the admin transaction listing.
type TransactionFilters struct {
	Status  *enums.TransactionStatus
	OrderID *string
}

// TransactionList is one page of transactions with an opaque cursor.
type TransactionList struct {
	Transactions []models.Transaction `json:"transactions"`
	NextCursor   string               `json:"next_cursor,omitempty"`
}
