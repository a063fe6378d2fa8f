package extract

import (
	"context"
	"fmt"
	"regexp"
	"strings"

	"github.com/shopspring/decimal"
)

// RegexExtractor is the pattern-based extraction strategy. It predates
// the model-based one and survives as a zero-dependency fallback: the
// amount comes from a shared dollar pattern, the merchant from the
// per-source payee pattern.
type RegexExtractor struct{}

// NewRegexExtractor constructs the pattern-based strategy.
func NewRegexExtractor() *RegexExtractor {
	return &RegexExtractor{}
}

var amountPattern = regexp.MustCompile(`\$(?P<amount>[0-9]+\.[0-9]{2})`)

// Extract applies the amount pattern and the source's payee pattern to
// the plain-text alert body. Both must match or the invocation aborts.
func (r *RegexExtractor) Extract(ctx context.Context, in Input) (*Fact, error) {
	if in.Source == nil || in.Source.PayeePattern == "" {
		return nil, fmt.Errorf("extract: source %q has no payee pattern", sourceID(in))
	}

	payeeRe, err := regexp.Compile(in.Source.PayeePattern)
	if err != nil {
		return nil, fmt.Errorf("extract: invalid payee pattern for source %q: %w", in.Source.ID, err)
	}

	amountMatch := amountPattern.FindStringSubmatch(in.Text)
	if amountMatch == nil {
		return nil, fmt.Errorf("%w: no amount in alert text", ErrNoParse)
	}
	amount, err := decimal.NewFromString(amountMatch[1])
	if err != nil {
		return nil, fmt.Errorf("%w: amount %q: %v", ErrNoParse, amountMatch[1], err)
	}

	merchant := captureGroup(payeeRe, in.Text, "payee")
	if merchant == "" {
		return nil, fmt.Errorf("%w: no payee in alert text", ErrNoParse)
	}

	return &Fact{
		Amount:   amount,
		Merchant: collapseWhitespace(merchant),
	}, nil
}

func captureGroup(re *regexp.Regexp, text, name string) string {
	match := re.FindStringSubmatch(text)
	if match == nil {
		return ""
	}
	for i, groupName := range re.SubexpNames() {
		if groupName == name && i < len(match) {
			return match[i]
		}
	}
	return ""
}

// collapseWhitespace replaces newlines with spaces and trims the result;
// alert bodies wrap merchant names across lines.
func collapseWhitespace(s string) string {
	s = strings.ReplaceAll(s, "\r\n", " ")
	s = strings.ReplaceAll(s, "\n", " ")
	s = strings.ReplaceAll(s, "\r", " ")
	return strings.TrimSpace(s)
}

func sourceID(in Input) string {
	if in.Source == nil {
		return "<nil>"
	}
	return in.Source.ID
}

var _ Extractor = (*RegexExtractor)(nil)
