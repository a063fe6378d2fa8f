package ledger

import (
	"errors"
	"fmt"
	"time"

	"cloud.google.com/go/civil"
	"github.com/shopspring/decimal"
)

// BuildInput carries everything needed to assemble the final record.
// Exactly one of PayeeID (override path, with optional CategoryID and
// Memo) or PayeeName (matcher path) must be set.
type BuildInput struct {
	AccountID string
	Date      time.Time
	Location  *time.Location
	Amount    decimal.Decimal

	PayeeID    string
	CategoryID string
	Memo       string

	PayeeName string
}

var errPayeeConflict = errors.New("ledger: exactly one of payee id or payee name must be set")

// BuildTransaction assembles the terminal transaction record: the
// alert's calendar day in the configured zone, the amount as negative
// milliunits, and the uncleared state.
func BuildTransaction(in BuildInput) (Transaction, error) {
	if in.AccountID == "" {
		return Transaction{}, errors.New("ledger: account id is required")
	}
	if (in.PayeeID == "") == (in.PayeeName == "") {
		return Transaction{}, errPayeeConflict
	}
	if in.PayeeName != "" && (in.CategoryID != "" || in.Memo != "") {
		return Transaction{}, fmt.Errorf("ledger: category and memo are override-rule outcomes, not matcher outcomes")
	}

	loc := in.Location
	if loc == nil {
		loc = time.UTC
	}

	tx := Transaction{
		AccountID: in.AccountID,
		Date:      civil.DateOf(in.Date.In(loc)).String(),
		Amount:    Milliunits(in.Amount),
		Cleared:   ClearedUncleared,
	}

	if in.PayeeID != "" {
		tx.PayeeID = strPtr(in.PayeeID)
		if in.CategoryID != "" {
			tx.CategoryID = strPtr(in.CategoryID)
		}
		if in.Memo != "" {
			tx.Memo = strPtr(in.Memo)
		}
	} else {
		tx.PayeeName = strPtr(in.PayeeName)
	}

	return tx, nil
}

// Milliunits converts a decimal amount to the ledger's integer
// representation, rounded to the nearest milliunit. Card alerts are
// always spend, so the sign is forced negative regardless of the sign
// convention of the input.
func Milliunits(amount decimal.Decimal) int64 {
	return amount.Abs().Mul(decimal.NewFromInt(1000)).Round(0).Neg().IntPart()
}

func strPtr(s string) *string { return &s }
