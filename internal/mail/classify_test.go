package mail

import (
	"errors"
	"testing"
)

func testSources() []Source {
	return []Source{
		{
			ID:              "tangerine",
			LedgerAccountID: "acct-tangerine",
			SenderAddress:   "donotreply@tangerine.ca",
			SubjectLine:     "A new Credit Card transaction has been made",
		},
		{
			ID:              "bmo",
			LedgerAccountID: "acct-bmo",
			SenderAddress:   "bmoalerts@bmo.com",
			SubjectLine:     "BMO Credit Card Alert",
		},
	}
}

func TestClassifySource(t *testing.T) {
	tests := []struct {
		name    string
		sender  string
		subject string
		wantID  string
		wantErr bool
	}{
		{
			name:    "exact tangerine match",
			sender:  "donotreply@tangerine.ca",
			subject: "A new Credit Card transaction has been made",
			wantID:  "tangerine",
		},
		{
			name:    "exact bmo match",
			sender:  "bmoalerts@bmo.com",
			subject: "BMO Credit Card Alert",
			wantID:  "bmo",
		},
		{
			name:    "sender matches but subject differs",
			sender:  "donotreply@tangerine.ca",
			subject: "A new Credit Card transaction was made",
			wantErr: true,
		},
		{
			name:    "subject matches but sender differs",
			sender:  "noreply@tangerine.ca",
			subject: "A new Credit Card transaction has been made",
			wantErr: true,
		},
		{
			name:    "sender and subject from different sources",
			sender:  "donotreply@tangerine.ca",
			subject: "BMO Credit Card Alert",
			wantErr: true,
		},
		{
			name:    "case difference in sender is rejected",
			sender:  "DoNotReply@tangerine.ca",
			subject: "A new Credit Card transaction has been made",
			wantErr: true,
		},
		{
			name:    "unknown bank",
			sender:  "alerts@somebank.example",
			subject: "Card purchase notification",
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ClassifySource(testSources(), tt.sender, tt.subject)
			if tt.wantErr {
				if !errors.Is(err, ErrUnsupportedSource) {
					t.Fatalf("ClassifySource() error = %v, want ErrUnsupportedSource", err)
				}
				return
			}
			if err != nil {
				t.Fatalf("ClassifySource() unexpected error: %v", err)
			}
			if got.ID != tt.wantID {
				t.Errorf("ClassifySource() source = %q, want %q", got.ID, tt.wantID)
			}
		})
	}
}
