package overrides

import (
	"context"
	"fmt"
	"time"

	"cloud.google.com/go/bigquery"
	"github.com/rs/zerolog"
	"google.golang.org/api/iterator"
	"google.golang.org/api/option"
)

// Store reads override rules from a BigQuery table. The table is small
// and user-maintained, so every invocation does a full scan; no
// pagination guarantees are assumed.
type Store struct {
	client  *bigquery.Client
	dataset string
	table   string
	logger  zerolog.Logger
}

// NewStore creates a rule store bound to one table.
func NewStore(ctx context.Context, projectID, dataset, table string, logger zerolog.Logger, opts ...option.ClientOption) (*Store, error) {
	client, err := bigquery.NewClient(ctx, projectID, opts...)
	if err != nil {
		return nil, fmt.Errorf("overrides.NewStore: bigquery client: %w", err)
	}
	return &Store{
		client:  client,
		dataset: dataset,
		table:   table,
		logger:  logger.With().Str("component", "override_store").Logger(),
	}, nil
}

// Close releases the underlying client.
func (s *Store) Close() error {
	return s.client.Close()
}

type ruleRow struct {
	RuleID       string              `bigquery:"rule_id"`
	PayeeID      string              `bigquery:"payee_id"`
	CategoryID   bigquery.NullString `bigquery:"category_id"`
	MemoTemplate bigquery.NullString `bigquery:"memo_template"`
	Query        string              `bigquery:"query"`
	UpdatedAt    time.Time           `bigquery:"updated_at"`
}

// ScanAll reads every rule and compiles each query. Rules whose query
// fails to compile are logged and skipped rather than failing the run;
// a typo in one rule must not block every import.
func (s *Store) ScanAll(ctx context.Context) ([]Rule, error) {
	q := s.client.Query(fmt.Sprintf(`
		SELECT
			rule_id,
			payee_id,
			category_id,
			memo_template,
			query,
			updated_at
		FROM %s.%s
	`, s.dataset, s.table))

	it, err := q.Read(ctx)
	if err != nil {
		return nil, fmt.Errorf("overrides.ScanAll: query read: %w", err)
	}

	var rules []Rule
	for {
		var row ruleRow
		err := it.Next(&row)
		if err == iterator.Done {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("overrides.ScanAll: iter next: %w", err)
		}

		expr, err := Parse(row.Query)
		if err != nil {
			s.logger.Warn().
				Str("rule_id", row.RuleID).
				Err(err).
				Msg("Skipping rule with invalid query")
			continue
		}

		rules = append(rules, Rule{
			ID:           row.RuleID,
			PayeeID:      row.PayeeID,
			CategoryID:   row.CategoryID.StringVal,
			MemoTemplate: row.MemoTemplate.StringVal,
			Query:        row.Query,
			Expr:         expr,
			UpdatedAt:    row.UpdatedAt,
		})
	}

	return rules, nil
}
