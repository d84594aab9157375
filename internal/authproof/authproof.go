// Package authproof verifies authorization proofs: short-lived HS256 tokens
// minted by the wallet gateway after it has checked a wallet signature. A
// proof binds exactly one principal; every privileged operation demands a
// proof for the principal it claims to act as.
package authproof

import (
	"context"
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"vestry/pkg/domain"
	dErrors "vestry/pkg/domain-errors"
	"vestry/pkg/requestcontext"
)

// Claims are the proof claims. The subject carries the principal address.
type Claims struct {
	jwt.RegisteredClaims
}

// Verifier checks that a raw proof binds the given principal.
type Verifier interface {
	Verify(ctx context.Context, proof string, principal domain.Principal) error
}

// Service issues and verifies proofs. Verification is what the registry
// depends on; issuing exists for the gateway deployment mode, local
// development, and tests.
type Service struct {
	signingKey []byte
	issuer     string
	audience   string
	ttl        time.Duration
}

var _ Verifier = (*Service)(nil)

func NewService(signingKey, issuer, audience string, ttl time.Duration) *Service {
	return &Service{
		signingKey: []byte(signingKey),
		issuer:     issuer,
		audience:   audience,
		ttl:        ttl,
	}
}

// Issue mints a proof binding the principal, valid for the configured TTL
// from the request-scoped now.
func (s *Service) Issue(ctx context.Context, principal domain.Principal) (string, error) {
	now := requestcontext.Now(ctx)
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   principal.String(),
			ExpiresAt: jwt.NewNumericDate(now.Add(s.ttl)),
			IssuedAt:  jwt.NewNumericDate(now),
			Issuer:    s.issuer,
			Audience:  []string{s.audience},
			ID:        uuid.NewString(),
		},
	})

	signed, err := token.SignedString(s.signingKey)
	if err != nil {
		return "", err
	}
	return signed, nil
}

// Verify checks the proof signature, expiry, issuer, and audience, and that
// its subject is exactly the given principal.
//
// Errors: always CodeUnauthorized; the message distinguishes missing,
// expired, malformed, and mismatched proofs.
func (s *Service) Verify(ctx context.Context, proof string, principal domain.Principal) error {
	if proof == "" {
		return dErrors.New(dErrors.CodeUnauthorized, "authorization proof required")
	}

	parsed, err := jwt.ParseWithClaims(proof, &Claims{}, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, jwt.ErrTokenUnverifiable
		}
		return s.signingKey, nil
	}, jwt.WithIssuer(s.issuer), jwt.WithAudience(s.audience))

	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return dErrors.New(dErrors.CodeUnauthorized, "proof has expired")
		}
		return dErrors.New(dErrors.CodeUnauthorized, "invalid proof")
	}

	claims, ok := parsed.Claims.(*Claims)
	if !ok || !parsed.Valid {
		return dErrors.New(dErrors.CodeUnauthorized, "invalid proof claims")
	}

	if claims.Subject != principal.String() {
		return dErrors.New(dErrors.CodeUnauthorized, "proof does not bind the acting principal")
	}
	return nil
}
