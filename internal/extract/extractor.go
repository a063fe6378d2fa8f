package extract

import (
	"context"
	"errors"

	"github.com/shopspring/decimal"

	"card-alerts/internal/mail"
)

// Fact is the structured result of extraction: the amount charged and
// the merchant string as it appeared in the alert. Amount is always a
// positive magnitude in the alert's currency; the sign convention is
// applied later by the transaction builder.
type Fact struct {
	Amount   decimal.Decimal
	Merchant string
}

// Input carries everything an extraction strategy may need for one run.
type Input struct {
	// Text is the plain-text rendering of the alert body.
	Text string

	// Payees are the payee names currently known to the ledger.
	Payees []string

	// OverrideMerchants are merchant strings referenced by override
	// rules; the model is asked to normalize to these when they match.
	OverrideMerchants []string

	// Source is the classified alert source. The regex strategy needs
	// its payee pattern; the model strategy ignores it.
	Source *mail.Source
}

// Extractor turns a plain-text alert into exactly one Fact.
//
// Two implementations exist: GeminiExtractor (model-based) and
// RegexExtractor (pattern-based). The strategy is selected once via
// configuration, never branched on inside the pipeline.
type Extractor interface {
	Extract(ctx context.Context, in Input) (*Fact, error)
}

// Matcher reconciles a free-form merchant string to a payee name.
type Matcher interface {
	// MatchPayee returns the single best existing payee for the
	// merchant, or a newly synthesized human-readable name. It never
	// returns "no match".
	MatchPayee(ctx context.Context, merchant string, payees []string) (string, error)
}

// ErrNoParse indicates the extraction service returned nothing usable.
// The invocation aborts without side effects.
var ErrNoParse = errors.New("extract: no parsable structure in response")

// MaxPayeeNameLength is the ceiling for synthesized payee names.
const MaxPayeeNameLength = 200

// PaymentProcessors are identifiers that appear as merchant prefixes in
// card alerts but must never be interpreted as the merchant itself.
var PaymentProcessors = []string{
	"PayPal",
	"Paddle (PADDLE.NET)",
	"FastSpring (FS)",
	"Square (SQ)",
	"Shop Pay (SP)",
}
