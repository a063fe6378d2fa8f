package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"card-alerts/internal/mail"
)

const validYAML = `
gcp:
  project: test-proj
  mail_bucket: test-mail
secrets:
  name: projects/test-proj/secrets/card-alerts/versions/latest
ledger:
  budget_id: budget-1
sources:
  - id: tangerine
    ledger_account_id: acct-1
    sender_address: donotreply@tangerine.ca
    subject_line: A new Credit Card transaction has been made
`

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte(body), 0o600); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load(writeConfig(t, validYAML))
	if err != nil {
		t.Fatalf("Load: %v", err)
	}

	if cfg.App.TimeZone != "America/Halifax" {
		t.Errorf("default time zone: got %q", cfg.App.TimeZone)
	}
	if cfg.Extract.Strategy != "model" {
		t.Errorf("default strategy: got %q", cfg.Extract.Strategy)
	}
	if cfg.Extract.Timeout != 60*time.Second {
		t.Errorf("default extract timeout: got %v", cfg.Extract.Timeout)
	}
	if cfg.Ledger.BaseURL != "https://api.ynab.com/v1" {
		t.Errorf("default ledger base url: got %q", cfg.Ledger.BaseURL)
	}
	if cfg.Server.Port != 8080 {
		t.Errorf("default port: got %d", cfg.Server.Port)
	}
	if _, err := cfg.App.Location(); err != nil {
		t.Errorf("Location: %v", err)
	}
}

func TestLoadInvalid(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(cfg string) string
		wantErr string
	}{
		{
			"missing project",
			func(cfg string) string { return strings.Replace(cfg, "project: test-proj", "project: \"\"", 1) },
			"gcp.project",
		},
		{
			"missing budget",
			func(cfg string) string { return strings.Replace(cfg, "budget_id: budget-1", "budget_id: \"\"", 1) },
			"ledger.budget_id",
		},
		{
			"bad strategy",
			func(cfg string) string { return cfg + "\nextract:\n  strategy: psychic\n" },
			"extract.strategy",
		},
		{
			"bad time zone",
			func(cfg string) string { return cfg + "\napp:\n  time_zone: Mars/Olympus\n" },
			"time_zone",
		},
		{
			"no sources",
			func(cfg string) string {
				i := strings.Index(cfg, "sources:")
				return cfg[:i]
			},
			"at least one source",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Load(writeConfig(t, tt.mutate(validYAML)))
			if err == nil {
				t.Fatal("expected error, got nil")
			}
			if !strings.Contains(err.Error(), tt.wantErr) {
				t.Errorf("error %q does not mention %q", err, tt.wantErr)
			}
		})
	}
}

func TestValidateRegexStrategy(t *testing.T) {
	base := Config{
		GCP:     GCPConfig{Project: "p", MailBucket: "b"},
		Secrets: SecretsConfig{Name: "n"},
		Ledger:  LedgerConfig{BudgetID: "budget"},
		App:     AppConfig{TimeZone: "America/Halifax"},
		Extract: ExtractConfig{Strategy: "regex"},
		Sources: []mail.Source{{
			ID:              "tangerine",
			LedgerAccountID: "acct",
			SenderAddress:   "donotreply@tangerine.ca",
			SubjectLine:     "A new Credit Card transaction has been made",
			PayeePattern:    `at\s+(?P<payee>.*?)\s+on`,
		}},
	}
	if err := base.Validate(); err != nil {
		t.Fatalf("valid regex config rejected: %v", err)
	}

	noGroup := base
	noGroup.Sources = []mail.Source{base.Sources[0]}
	noGroup.Sources[0].PayeePattern = `at\s+(.*?)\s+on`
	if err := noGroup.Validate(); err == nil {
		t.Error("pattern without payee group accepted")
	}

	dup := base
	dup.Sources = append([]mail.Source{base.Sources[0]}, mail.Source{
		ID:              "copycat",
		LedgerAccountID: "acct-2",
		SenderAddress:   "donotreply@tangerine.ca",
		SubjectLine:     "A new Credit Card transaction has been made",
		PayeePattern:    `(?P<payee>.*)`,
	})
	if err := dup.Validate(); err == nil {
		t.Error("duplicate sender and subject accepted")
	}
}
