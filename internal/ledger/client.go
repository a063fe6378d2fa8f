package ledger

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/rs/zerolog"
)

// Client talks to the ledger's REST API with bearer-token auth.
type Client struct {
	baseURL string
	token   string
	client  *http.Client
	logger  zerolog.Logger
}

// NewClient constructs a ledger client. The token comes from the secret
// bundle loaded at startup.
func NewClient(baseURL, token string, timeout time.Duration, logger zerolog.Logger) *Client {
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		token:   token,
		client:  &http.Client{Timeout: timeout},
		logger:  logger.With().Str("component", "ledger").Logger(),
	}
}

// Payees returns every payee in the budget, including deleted and
// transfer payees; use CandidateNames for the filtered name list.
func (c *Client) Payees(ctx context.Context, budgetID string) ([]Payee, error) {
	url := fmt.Sprintf("%s/budgets/%s/payees", c.baseURL, budgetID)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("ledger: create payees request: %w", err)
	}

	var out payeesResponse
	if err := c.do(req, &out); err != nil {
		return nil, fmt.Errorf("ledger: list payees: %w", err)
	}
	return out.Data.Payees, nil
}

// CreateTransaction posts one transaction and returns its id. There is
// no read-back beyond the call's own success signal.
func (c *Client) CreateTransaction(ctx context.Context, budgetID string, tx Transaction) (string, error) {
	body, err := json.Marshal(createTransactionRequest{Transaction: tx})
	if err != nil {
		return "", fmt.Errorf("ledger: marshal transaction: %w", err)
	}

	url := fmt.Sprintf("%s/budgets/%s/transactions", c.baseURL, budgetID)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("ledger: create transaction request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	var out createTransactionResponse
	if err := c.do(req, &out); err != nil {
		return "", fmt.Errorf("ledger: create transaction: %w", err)
	}

	c.logger.Info().
		Str("transaction_id", out.Data.Transaction.ID).
		Str("account_id", tx.AccountID).
		Int64("amount_milliunits", tx.Amount).
		Msg("Transaction written to ledger")

	return out.Data.Transaction.ID, nil
}

func (c *Client) do(req *http.Request, out interface{}) error {
	req.Header.Set("Authorization", "Bearer "+c.token)

	resp, err := c.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		var apiErr errorResponse
		if err := json.NewDecoder(resp.Body).Decode(&apiErr); err == nil && apiErr.Error.Detail != "" {
			return fmt.Errorf("status %d: %s", resp.StatusCode, apiErr.Error.Detail)
		}
		return fmt.Errorf("unexpected status %d", resp.StatusCode)
	}

	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}

// CandidateNames filters payees down to names the extraction and
// matching prompts may offer: transfer payees and soft-deleted payees
// are excluded.
func CandidateNames(payees []Payee) []string {
	names := make([]string, 0, len(payees))
	for _, p := range payees {
		if p.Deleted || p.TransferAccountID != nil {
			continue
		}
		names = append(names, p.Name)
	}
	return names
}
