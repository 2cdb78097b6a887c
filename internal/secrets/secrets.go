// Package secrets resolves the API credential the gateways authenticate
// against. The check is always enforced; which resolver backs it is a
// deployment choice.
package secrets

import "context"

// CredentialAPIKey names the gateway API key in the credential store.
const CredentialAPIKey = "api_key"

// Resolver returns the currently valid API key.
type Resolver interface {
	APIKey(ctx context.Context) (string, error)
}

// Static is a fixed-value resolver, typically fed from the environment in
// development.
type Static string

func (s Static) APIKey(ctx context.Context) (string, error) {
	return string(s), nil
}
