// Package token authenticates bearer tokens issued by the portal's
// identity provider. Tokens are HS256 JWTs carrying the signer identity
// used throughout the workflow.
package token

import (
	"context"
	"errors"
	"strings"
	"time"

	"avenant/internal/config"
	"avenant/internal/domain"

	"github.com/golang-jwt/jwt/v5"
)

const defaultClockSkew = 30 * time.Second

type Authenticator struct {
	secret    []byte
	issuer    string
	clockSkew time.Duration
}

type workflowClaims struct {
	Name      string `json:"name"`
	Email     string `json:"email"`
	Role      string `json:"role"`
	ProjectID string `json:"project_id"`
	jwt.RegisteredClaims
}

func NewAuthenticator(cfg config.Config) (*Authenticator, error) {
	secret := strings.TrimSpace(cfg.AuthHMACSecret)
	if secret == "" {
		return nil, errors.New("AUTH_HMAC_SECRET is required")
	}
	return &Authenticator{
		secret:    []byte(secret),
		issuer:    strings.TrimSpace(cfg.AuthIssuer),
		clockSkew: defaultClockSkew,
	}, nil
}

func (a *Authenticator) Authenticate(ctx context.Context, bearerToken string) (domain.Principal, error) {
	if a == nil {
		return domain.Principal{}, domain.ErrUnauthorized
	}
	tokenString := strings.TrimSpace(bearerToken)
	if tokenString == "" {
		return domain.Principal{}, domain.ErrUnauthorized
	}
	opts := []jwt.ParserOption{
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithLeeway(a.clockSkew),
		jwt.WithExpirationRequired(),
	}
	if a.issuer != "" {
		opts = append(opts, jwt.WithIssuer(a.issuer))
	}
	claims := &workflowClaims{}
	token, err := jwt.ParseWithClaims(tokenString, claims, func(t *jwt.Token) (any, error) {
		return a.secret, nil
	}, opts...)
	if err != nil || !token.Valid {
		return domain.Principal{}, domain.ErrUnauthorized
	}
	if strings.TrimSpace(claims.Subject) == "" {
		return domain.Principal{}, domain.ErrUnauthorized
	}
	role := domain.ActorRole(claims.Role)
	if !role.Known() {
		return domain.Principal{}, domain.ErrUnauthorized
	}
	return domain.Principal{
		Subject:   claims.Subject,
		Name:      claims.Name,
		Email:     claims.Email,
		Role:      role,
		ProjectID: claims.ProjectID,
	}, nil
}
