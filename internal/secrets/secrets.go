// Package secrets loads runtime credentials from Secret Manager.
// Tokens never live in config files; the config only names the secret.
package secrets

import (
	"context"
	"encoding/json"
	"fmt"

	secretmanager "cloud.google.com/go/secretmanager/apiv1"
	"cloud.google.com/go/secretmanager/apiv1/secretmanagerpb"
	"google.golang.org/api/option"
)

// Bundle holds the credentials kept in a single JSON secret payload.
type Bundle struct {
	LedgerToken      string `json:"ledger_token"`
	ExtractionAPIKey string `json:"extraction_api_key"`
}

// Fetch reads the latest version of the named secret and decodes it.
// name is the full resource name, e.g.
// projects/my-proj/secrets/card-alerts/versions/latest.
func Fetch(ctx context.Context, name string, opts ...option.ClientOption) (Bundle, error) {
	var bundle Bundle

	client, err := secretmanager.NewClient(ctx, opts...)
	if err != nil {
		return bundle, fmt.Errorf("secrets.Fetch: creating client: %w", err)
	}
	defer client.Close()

	resp, err := client.AccessSecretVersion(ctx, &secretmanagerpb.AccessSecretVersionRequest{
		Name: name,
	})
	if err != nil {
		return bundle, fmt.Errorf("secrets.Fetch: accessing %s: %w", name, err)
	}

	if err := json.Unmarshal(resp.GetPayload().GetData(), &bundle); err != nil {
		return bundle, fmt.Errorf("secrets.Fetch: decoding payload: %w", err)
	}
	if bundle.LedgerToken == "" {
		return bundle, fmt.Errorf("secrets.Fetch: payload missing ledger_token")
	}
	return bundle, nil
}
