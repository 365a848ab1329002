// auth_service.go
//
// A link-in-bio profile service for linkz.bio
// Copyright (c) 2026 Alex Grant <info@localnerve.com> (https://www.localnerve.com), LocalNerve LLC
//
// This file is part of linkz-bio.
// linkz-bio is free software: you can redistribute it and/or modify it
// under the terms of the GNU Affero General Public License as published by the Free Software
// Foundation, either version 3 of the License, or (at your option) any later version.
// linkz-bio is distributed in the hope that it will be useful, but WITHOUT ANY WARRANTY;
// without even the implied warranty of MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.
// See the GNU Affero General Public License for more details.
// You should have received a copy of the GNU Affero General Public License along with linkz-bio.
// If not, see <https://www.gnu.org/licenses/>.
// Additional terms under GNU AGPL version 3 section 7:
// a) The reasonable legal notice of original copyright and author attribution must be preserved
//    by including the string: "Copyright (c) 2026 Alex Grant <info@localnerve.com> (https://www.localnerve.com), LocalNerve LLC"
//    in this material, copies, or source code of derived works.

package services

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/authorizerdev/authorizer-go"
	"github.com/golang-jwt/jwt/v5"
	"github.com/localnerve/linkz-bio/internal/config"
	"github.com/localnerve/linkz-bio/internal/utils"
	"go.uber.org/zap"
)

// ErrInvalidToken is returned for any token the identity provider rejects
var ErrInvalidToken = errors.New("invalid or expired token")

// Caller is the identity resolved from a bearer token
type Caller struct {
	ID    string
	Email string
}

// Authenticator resolves a bearer token into a Caller
type Authenticator interface {
	Authenticate(ctx context.Context, token string) (*Caller, error)
}

// NewAuthenticator builds the Authenticator selected by AUTH_MODE
func NewAuthenticator(cfg *config.Config, log *zap.Logger) (Authenticator, error) {
	switch cfg.AuthMode {
	case config.AuthModeJWT:
		return NewJWTAuthenticator(cfg.AuthJWTSecret, cfg.AuthJWTIssuer, cfg.AuthJWTAudience), nil
	case config.AuthModeAuthorizer:
		return NewAuthorizerAuthenticator(cfg, log), nil
	}
	return nil, fmt.Errorf("unsupported AUTH_MODE: %s", cfg.AuthMode)
}

// JWTAuthenticator verifies HS256 access tokens signed with a shared secret,
// the format hosted identity providers such as Supabase issue.
type JWTAuthenticator struct {
	secret   []byte
	issuer   string
	audience string
}

// NewJWTAuthenticator creates a JWTAuthenticator. Empty issuer or audience
// disables that check.
func NewJWTAuthenticator(secret, issuer, audience string) *JWTAuthenticator {
	return &JWTAuthenticator{
		secret:   []byte(secret),
		issuer:   issuer,
		audience: audience,
	}
}

type accessClaims struct {
	Email string `json:"email"`
	jwt.RegisteredClaims
}

// Authenticate implements Authenticator
func (a *JWTAuthenticator) Authenticate(_ context.Context, token string) (*Caller, error) {
	opts := []jwt.ParserOption{
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithExpirationRequired(),
	}
	if a.issuer != "" {
		opts = append(opts, jwt.WithIssuer(a.issuer))
	}
	if a.audience != "" {
		opts = append(opts, jwt.WithAudience(a.audience))
	}

	claims := &accessClaims{}
	_, err := jwt.ParseWithClaims(token, claims, func(*jwt.Token) (interface{}, error) {
		return a.secret, nil
	}, opts...)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}
	if claims.Subject == "" {
		return nil, fmt.Errorf("%w: missing subject", ErrInvalidToken)
	}

	return &Caller{ID: claims.Subject, Email: claims.Email}, nil
}

// AuthorizerAuthenticator validates access tokens against an Authorizer
// instance. The client is created lazily on first use so the service can
// boot before the identity provider is reachable.
type AuthorizerAuthenticator struct {
	cfg *config.Config
	log *zap.Logger

	mu     sync.Mutex
	client *authorizer.AuthorizerClient
}

// NewAuthorizerAuthenticator creates an AuthorizerAuthenticator
func NewAuthorizerAuthenticator(cfg *config.Config, log *zap.Logger) *AuthorizerAuthenticator {
	return &AuthorizerAuthenticator{cfg: cfg, log: log}
}

// Initialized returns true once the Authorizer client exists
func (a *AuthorizerAuthenticator) Initialized() bool {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.client != nil
}

func (a *AuthorizerAuthenticator) getClient(ctx context.Context) (*authorizer.AuthorizerClient, error) {
	a.mu.Lock()
	defer a.mu.Unlock()

	if a.client != nil {
		return a.client, nil
	}

	if err := utils.PingAuthorizer(ctx, a.cfg.AuthzURL); err != nil {
		return nil, fmt.Errorf("authorizer ping failed: %w", err)
	}

	redirectURL := a.cfg.PublicBaseURL
	a.log.Info("initializing authorizer client",
		zap.String("url", a.cfg.AuthzURL),
		zap.String("client_id", a.cfg.AuthzClientID))

	client, err := authorizer.NewAuthorizerClient(a.cfg.AuthzClientID, a.cfg.AuthzURL, redirectURL, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create authorizer client: %w", err)
	}
	a.client = client
	return client, nil
}

// Authenticate implements Authenticator
func (a *AuthorizerAuthenticator) Authenticate(ctx context.Context, token string) (*Caller, error) {
	client, err := a.getClient(ctx)
	if err != nil {
		return nil, err
	}

	res, err := client.ValidateJWTToken(&authorizer.ValidateJWTTokenInput{
		TokenType: authorizer.TokenTypeAccessToken,
		Token:     token,
	})
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}
	if res == nil || !res.IsValid {
		return nil, ErrInvalidToken
	}

	sub, _ := res.Claims["sub"].(string)
	if sub == "" {
		return nil, fmt.Errorf("%w: missing subject", ErrInvalidToken)
	}
	email, _ := res.Claims["email"].(string)

	return &Caller{ID: sub, Email: email}, nil
}
