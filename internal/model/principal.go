package model

import "github.com/google/uuid"

// CredentialKind identifies how a request authenticated.
type CredentialKind string

const (
	CredentialAPIKey CredentialKind = "api_key"
	CredentialBearer CredentialKind = "bearer"
	CredentialNone   CredentialKind = "none"
)

// Principal is the resolved identity of a request. It is constructed once per
// request by the auth middleware and lives only in the request context.
type Principal struct {
	AccountID  uuid.UUID
	Username   string
	Status     AccountStatus
	Credential CredentialKind

	// APIKeyID is set only when Credential is CredentialAPIKey.
	APIKeyID uuid.UUID
}

// RateKey returns the identity the rate limiter partitions on: the API key id
// for key credentials, the account id for bearer tokens. Never the source IP;
// one account may call from many addresses.
func (p *Principal) RateKey() string {
	if p.Credential == CredentialAPIKey {
		return "key:" + p.APIKeyID.String()
	}
	return "acct:" + p.AccountID.String()
}
