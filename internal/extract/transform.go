package extract

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
)

// decodeFact parses the model's JSON response into a Fact. The amount is
// normalized to a positive magnitude regardless of the sign the model
// chose; merchant must be non-empty.
func decodeFact(raw string) (*Fact, error) {
	obj, err := decodeObject(raw)
	if err != nil {
		return nil, err
	}

	amount, err := getNumberField(obj, "amount")
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrNoParse, err)
	}
	merchant, err := getStringField(obj, "merchant")
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrNoParse, err)
	}

	return &Fact{
		Amount:   amount.Abs(),
		Merchant: strings.TrimSpace(merchant),
	}, nil
}

// decodePayee parses the matcher response into a single payee name.
func decodePayee(raw string) (string, error) {
	obj, err := decodeObject(raw)
	if err != nil {
		return "", err
	}

	payee, err := getStringField(obj, "payee")
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrNoParse, err)
	}

	payee = strings.TrimSpace(payee)
	if len(payee) > MaxPayeeNameLength {
		payee = strings.TrimSpace(payee[:MaxPayeeNameLength])
	}
	return payee, nil
}

func decodeObject(raw string) (map[string]interface{}, error) {
	clean := cleanModelJSON(raw)

	var obj map[string]interface{}
	if err := json.Unmarshal([]byte(clean), &obj); err != nil {
		return nil, fmt.Errorf("%w: unmarshal: %v", ErrNoParse, err)
	}
	return obj, nil
}

// cleanModelJSON strips Markdown fences and surrounding junk if the model
// ignored the response-format instructions.
func cleanModelJSON(raw string) string {
	s := strings.TrimSpace(raw)

	if strings.HasPrefix(s, "```") {
		// Drop the first line (``` or ```json).
		if idx := strings.Index(s, "\n"); idx != -1 {
			s = s[idx+1:]
		} else {
			return s
		}
		s = strings.TrimSpace(s)
	}

	if idx := strings.LastIndex(s, "```"); idx != -1 {
		s = s[:idx]
	}

	s = strings.TrimSpace(s)

	// Keep only from the first '{' to the last '}' if junk remains.
	if start := strings.Index(s, "{"); start != -1 {
		if end := strings.LastIndex(s, "}"); end != -1 && end > start {
			s = strings.TrimSpace(s[start : end+1])
		}
	}

	return s
}

func getStringField(m map[string]interface{}, key string) (string, error) {
	v, ok := m[key]
	if !ok {
		return "", fmt.Errorf("missing required field %q", key)
	}
	switch val := v.(type) {
	case string:
		if strings.TrimSpace(val) == "" {
			return "", fmt.Errorf("required field %q is empty", key)
		}
		return val, nil
	default:
		return "", fmt.Errorf("field %q has type %T, want string", key, v)
	}
}

func getNumberField(m map[string]interface{}, key string) (decimal.Decimal, error) {
	v, ok := m[key]
	if !ok {
		return decimal.Zero, fmt.Errorf("missing required field %q", key)
	}
	switch val := v.(type) {
	case float64:
		return decimal.NewFromFloat(val), nil
	case json.Number:
		d, err := decimal.NewFromString(val.String())
		if err != nil {
			return decimal.Zero, fmt.Errorf("field %q: %v", key, err)
		}
		return d, nil
	default:
		return decimal.Zero, fmt.Errorf("field %q has type %T, want number", key, v)
	}
}
