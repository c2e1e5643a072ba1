package domain

import "context"

// Principal is the authenticated actor supplied by the session provider.
// Subject becomes signer_user_id on signature records.
type Principal struct {
	Subject   string
	Name      string
	Email     string
	Role      ActorRole
	ProjectID string
}

type Authenticator interface {
	Authenticate(ctx context.Context, bearerToken string) (Principal, error)
}

// Authorizer decides whether a principal may perform a workflow action
// (offer.submit, offer.approve_client, avenant.sign, ...).
type Authorizer interface {
	Allow(ctx context.Context, principal Principal, action string) (bool, error)
}
