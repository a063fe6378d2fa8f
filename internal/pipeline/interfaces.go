package pipeline

import (
	"context"

	"card-alerts/internal/ledger"
	"card-alerts/internal/overrides"
)

// MailStore fetches raw message bytes by message id.
type MailStore interface {
	Fetch(ctx context.Context, messageID string) ([]byte, error)
}

// OverrideStore reads the full override rule set.
type OverrideStore interface {
	ScanAll(ctx context.Context) ([]overrides.Rule, error)
}

// Ledger is the budget ledger API surface the pipeline needs.
type Ledger interface {
	Payees(ctx context.Context, budgetID string) ([]ledger.Payee, error)
	CreateTransaction(ctx context.Context, budgetID string, tx ledger.Transaction) (string, error)
}
