// Package admingate gates privileged registry operations behind the single
// immutable administrator fixed at initialization.
//
// Both registries (contributors, vesting) carry exactly one admin principal
// in their instance record. The gate loads it, compares identities, and only
// then verifies the caller's authorization proof. The ordering is part of the
// contract: an uninitialized registry reports not_initialized before any
// identity or proof failure, and an identity mismatch reports forbidden
// without ever inspecting the proof.
package admingate

import (
	"context"
	"errors"

	"vestry/internal/authproof"
	"vestry/pkg/domain"
	dErrors "vestry/pkg/domain-errors"
	"vestry/pkg/platform/sentinel"
)

// Slot reads the administrator from a registry's instance record.
// Implementations return sentinel.ErrNotFound while the registry is
// uninitialized. Writing the slot is each registry's own one-shot
// set-if-absent, so the admin can never change once set.
type Slot interface {
	Admin(ctx context.Context) (domain.Principal, error)
}

// Gate combines an admin slot with proof verification.
type Gate struct {
	slot   Slot
	proofs authproof.Verifier
}

func New(slot Slot, proofs authproof.Verifier) *Gate {
	return &Gate{slot: slot, proofs: proofs}
}

// Admin returns the stored administrator.
//
// Errors: CodeNotInitialized when the slot is unset; CodeInternal on store
// failure.
func (g *Gate) Admin(ctx context.Context) (domain.Principal, error) {
	admin, err := g.slot.Admin(ctx)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return "", dErrors.New(dErrors.CodeNotInitialized, "registry is not initialized")
		}
		return "", dErrors.Wrap(err, dErrors.CodeInternal, "failed to load registry admin")
	}
	return admin, nil
}

// RequireInitialized is the precondition form of Admin for operations that
// need an initialized registry but not the admin value itself.
func (g *Gate) RequireInitialized(ctx context.Context) error {
	_, err := g.Admin(ctx)
	return err
}

// AuthorizeAdmin authorizes a privileged operation. The claimed principal is
// compared against the stored admin before the proof is verified, so a
// non-admin caller with a perfectly valid proof is still rejected as
// forbidden. Returns the stored admin on success.
func (g *Gate) AuthorizeAdmin(ctx context.Context, claimed domain.Principal, proof string) (domain.Principal, error) {
	admin, err := g.Admin(ctx)
	if err != nil {
		return "", err
	}
	if claimed != admin {
		return "", dErrors.New(dErrors.CodeForbidden, "only the registry admin may perform this operation")
	}
	if err := g.proofs.Verify(ctx, proof, claimed); err != nil {
		return "", err
	}
	return admin, nil
}

// AuthorizeSelf verifies a proof for a self-service operation: the caller
// acts as itself and no admin comparison applies.
func (g *Gate) AuthorizeSelf(ctx context.Context, principal domain.Principal, proof string) error {
	return g.proofs.Verify(ctx, proof, principal)
}
