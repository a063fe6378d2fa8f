package mail

import "errors"

// Source is the static configuration for one supported alert sender.
// One entry exists per bank; entries are defined at process start and
// never mutated afterwards.
type Source struct {
	// ID is a short identifier used in logs (e.g. "tangerine").
	ID string `mapstructure:"id"`

	// LedgerAccountID is the ledger account credited with transactions
	// from this source.
	LedgerAccountID string `mapstructure:"ledger_account_id"`

	// SenderAddress is the exact From address of the alert.
	SenderAddress string `mapstructure:"sender_address"`

	// SubjectLine is the exact subject of the alert.
	SubjectLine string `mapstructure:"subject_line"`

	// PayeePattern is a regular expression with a "payee" capture group.
	// Only consumed by the regex extraction strategy.
	PayeePattern string `mapstructure:"payee_pattern"`
}

// ErrUnsupportedSource indicates the message did not come from any
// configured alert source.
var ErrUnsupportedSource = errors.New("mail: unsupported alert source")

// ClassifySource returns the configured source whose sender address and
// subject line both match the message exactly. Matching is deliberately
// exact: a near-miss on either field must be rejected rather than risk
// attributing spend to the wrong ledger account.
func ClassifySource(sources []Source, senderAddress, subject string) (*Source, error) {
	for i := range sources {
		s := &sources[i]
		if s.SenderAddress == senderAddress && s.SubjectLine == subject {
			return s, nil
		}
	}
	return nil, ErrUnsupportedSource
}
