// Package pipeline turns one alert email into one ledger transaction.
//
// The import runs as a fixed sequence of steps over shared state. Every
// step either advances the state or aborts the whole invocation; there
// are no partial ledger writes, because the only write is the last step.
package pipeline

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"card-alerts/internal/extract"
	"card-alerts/internal/ledger"
	"card-alerts/internal/mail"
	"card-alerts/internal/memo"
	"card-alerts/internal/overrides"
)

// Step represents a single step in the import pipeline.
type Step interface {
	Name() string
	Execute(ctx context.Context, state *State) error
}

// State holds the shared state across all pipeline steps.
type State struct {
	MessageID string
	RunID     string

	Raw     []byte
	Message *mail.Message
	Source  *mail.Source
	Text    string

	Payees []ledger.Payee
	Rules  []overrides.Rule

	Fact    *extract.Fact
	Matched *overrides.Rule
	Memo    string

	// PayeeName is set by the matcher path only.
	PayeeName string

	Transaction   ledger.Transaction
	TransactionID string
}

// Deps wires the pipeline's collaborators. All fields are required
// except Matcher, which may be nil only if every import resolves via
// override rules; a nil Matcher fails the run at the match step.
type Deps struct {
	Sources   []mail.Source
	Mail      MailStore
	Overrides OverrideStore
	Extractor extract.Extractor
	Matcher   extract.Matcher
	Ledger    Ledger
	BudgetID  string
	Location  *time.Location
	Logger    zerolog.Logger

	// ExtractTimeout bounds each model call. Zero means no bound
	// beyond the caller's context.
	ExtractTimeout time.Duration
}

// FetchMessageStep downloads the raw message bytes from the mail store.
type FetchMessageStep struct{ deps *Deps }

func (s *FetchMessageStep) Name() string { return "fetch_message" }

func (s *FetchMessageStep) Execute(ctx context.Context, state *State) error {
	raw, err := s.deps.Mail.Fetch(ctx, state.MessageID)
	if err != nil {
		return err
	}
	state.Raw = raw
	return nil
}

// ParseMessageStep parses the raw bytes into sender, subject, date and
// HTML body.
type ParseMessageStep struct{ deps *Deps }

func (s *ParseMessageStep) Name() string { return "parse_message" }

func (s *ParseMessageStep) Execute(ctx context.Context, state *State) error {
	msg, err := mail.ParseMessage(state.Raw)
	if err != nil {
		return err
	}
	state.Message = msg
	return nil
}

// ClassifySourceStep matches the message to a configured alert source.
type ClassifySourceStep struct{ deps *Deps }

func (s *ClassifySourceStep) Name() string { return "classify_source" }

func (s *ClassifySourceStep) Execute(ctx context.Context, state *State) error {
	src, err := mail.ClassifySource(s.deps.Sources, state.Message.SenderAddress, state.Message.Subject)
	if err != nil {
		return err
	}
	state.Source = src
	s.deps.Logger.Debug().
		Str("run_id", state.RunID).
		Str("source", src.ID).
		Msg("classified alert source")
	return nil
}

// ConvertTextStep renders the HTML body to plain text.
type ConvertTextStep struct{ deps *Deps }

func (s *ConvertTextStep) Name() string { return "convert_text" }

func (s *ConvertTextStep) Execute(ctx context.Context, state *State) error {
	text, err := mail.PlainText(state.Message.HTMLBody)
	if err != nil {
		return err
	}
	state.Text = text
	return nil
}

// LoadPayeesStep fetches the current payee list from the ledger.
type LoadPayeesStep struct{ deps *Deps }

func (s *LoadPayeesStep) Name() string { return "load_payees" }

func (s *LoadPayeesStep) Execute(ctx context.Context, state *State) error {
	payees, err := s.deps.Ledger.Payees(ctx, s.deps.BudgetID)
	if err != nil {
		return err
	}
	state.Payees = payees
	return nil
}

// LoadOverridesStep reads the full override rule set.
type LoadOverridesStep struct{ deps *Deps }

func (s *LoadOverridesStep) Name() string { return "load_overrides" }

func (s *LoadOverridesStep) Execute(ctx context.Context, state *State) error {
	rules, err := s.deps.Overrides.ScanAll(ctx)
	if err != nil {
		return err
	}
	state.Rules = rules
	return nil
}

// ExtractFactStep pulls the amount and merchant out of the alert text.
type ExtractFactStep struct{ deps *Deps }

func (s *ExtractFactStep) Name() string { return "extract_fact" }

func (s *ExtractFactStep) Execute(ctx context.Context, state *State) error {
	if s.deps.ExtractTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.deps.ExtractTimeout)
		defer cancel()
	}
	fact, err := s.deps.Extractor.Extract(ctx, extract.Input{
		Text:              state.Text,
		Payees:            ledger.CandidateNames(state.Payees),
		OverrideMerchants: overrides.MerchantLiterals(state.Rules),
		Source:            state.Source,
	})
	if err != nil {
		return err
	}
	state.Fact = fact
	s.deps.Logger.Debug().
		Str("run_id", state.RunID).
		Str("amount", fact.Amount.String()).
		Str("merchant", fact.Merchant).
		Msg("extracted fact")
	return nil
}

// ResolveOverrideStep evaluates the fact against the override rules and
// renders the winning rule's memo template. The alert's own date drives
// both rule evaluation and memo rendering, so a redelivered message
// resolves identically no matter when it is reprocessed.
type ResolveOverrideStep struct{ deps *Deps }

func (s *ResolveOverrideStep) Name() string { return "resolve_override" }

func (s *ResolveOverrideStep) Execute(ctx context.Context, state *State) error {
	alertDate := state.Message.Date.In(s.deps.Location)
	env := overrides.NewEnv(state.Fact.Amount, state.Fact.Merchant, alertDate)

	rule, ok := overrides.Resolve(state.Rules, env)
	if !ok {
		return nil
	}
	state.Matched = rule

	if rule.MemoTemplate != "" {
		rendered, err := memo.Render(rule.MemoTemplate, alertDate)
		if err != nil {
			return fmt.Errorf("rendering memo for rule %s: %w", rule.ID, err)
		}
		state.Memo = rendered
	}

	s.deps.Logger.Info().
		Str("run_id", state.RunID).
		Str("rule_id", rule.ID).
		Msg("override rule matched")
	return nil
}

// MatchPayeeStep reconciles the merchant to a payee name. Skipped
// entirely when an override rule already fixed the payee.
type MatchPayeeStep struct{ deps *Deps }

func (s *MatchPayeeStep) Name() string { return "match_payee" }

func (s *MatchPayeeStep) Execute(ctx context.Context, state *State) error {
	if state.Matched != nil {
		return nil
	}
	if s.deps.Matcher == nil {
		return fmt.Errorf("no payee matcher configured and no override rule matched")
	}
	if s.deps.ExtractTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.deps.ExtractTimeout)
		defer cancel()
	}
	name, err := s.deps.Matcher.MatchPayee(ctx, state.Fact.Merchant, ledger.CandidateNames(state.Payees))
	if err != nil {
		return err
	}
	state.PayeeName = name
	return nil
}

// BuildTransactionStep assembles the final ledger record.
type BuildTransactionStep struct{ deps *Deps }

func (s *BuildTransactionStep) Name() string { return "build_transaction" }

func (s *BuildTransactionStep) Execute(ctx context.Context, state *State) error {
	in := ledger.BuildInput{
		AccountID: state.Source.LedgerAccountID,
		Date:      state.Message.Date,
		Location:  s.deps.Location,
		Amount:    state.Fact.Amount,
	}
	if state.Matched != nil {
		in.PayeeID = state.Matched.PayeeID
		in.CategoryID = state.Matched.CategoryID
		in.Memo = state.Memo
	} else {
		in.PayeeName = state.PayeeName
	}

	tx, err := ledger.BuildTransaction(in)
	if err != nil {
		return err
	}
	state.Transaction = tx
	return nil
}

// SubmitStep posts the transaction to the ledger. This is the only
// write in the whole pipeline.
type SubmitStep struct{ deps *Deps }

func (s *SubmitStep) Name() string { return "submit" }

func (s *SubmitStep) Execute(ctx context.Context, state *State) error {
	id, err := s.deps.Ledger.CreateTransaction(ctx, s.deps.BudgetID, state.Transaction)
	if err != nil {
		return err
	}
	state.TransactionID = id
	return nil
}

// Pipeline executes a sequence of steps in order.
type Pipeline struct {
	steps []Step
}

// NewPipeline creates a new pipeline with the given steps.
func NewPipeline(steps ...Step) *Pipeline {
	return &Pipeline{steps: steps}
}

// Execute runs all steps in the pipeline sequentially. The first
// failing step aborts the run.
func (p *Pipeline) Execute(ctx context.Context, state *State) error {
	for _, step := range p.steps {
		if err := step.Execute(ctx, state); err != nil {
			return fmt.Errorf("step %s: %w", step.Name(), err)
		}
	}
	return nil
}

// NewImportPipeline creates the standard step sequence for importing
// one alert email.
func NewImportPipeline(deps *Deps) *Pipeline {
	return NewPipeline(
		&FetchMessageStep{deps},
		&ParseMessageStep{deps},
		&ClassifySourceStep{deps},
		&ConvertTextStep{deps},
		&LoadPayeesStep{deps},
		&LoadOverridesStep{deps},
		&ExtractFactStep{deps},
		&ResolveOverrideStep{deps},
		&MatchPayeeStep{deps},
		&BuildTransactionStep{deps},
		&SubmitStep{deps},
	)
}

// Import runs the full pipeline for one message id and returns the
// created transaction id.
func Import(ctx context.Context, deps *Deps, messageID string) (string, error) {
	state := &State{
		MessageID: messageID,
		RunID:     uuid.New().String(),
	}

	log := deps.Logger.With().
		Str("run_id", state.RunID).
		Str("message_id", messageID).
		Logger()
	log.Info().Msg("starting alert import")

	if err := NewImportPipeline(deps).Execute(ctx, state); err != nil {
		log.Error().Err(err).Msg("alert import failed")
		return "", fmt.Errorf("import %s: %w", messageID, err)
	}

	log.Info().
		Str("transaction_id", state.TransactionID).
		Int64("amount_milliunits", state.Transaction.Amount).
		Msg("alert import complete")
	return state.TransactionID, nil
}
