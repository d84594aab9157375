package admingate

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"vestry/pkg/domain"
	dErrors "vestry/pkg/domain-errors"
	"vestry/pkg/platform/sentinel"
)

const (
	storedAdmin = domain.Principal("GA7QYNF7SOWQ3GLR2BGMZEHXAVIRZA4KVWLTJJFC7MGXUA74P7UJVSGZ")
	intruder    = domain.Principal("GBZXN7PIRZGNMHGA7MUUUF4GWPY5AYPV6LY4UV2GD6VEX3TQSDRKHLPK")
)

type slotStub struct {
	admin domain.Principal
	err   error
}

func (s slotStub) Admin(context.Context) (domain.Principal, error) {
	return s.admin, s.err
}

type verifierStub struct {
	err error
}

func (v verifierStub) Verify(_ context.Context, proof string, _ domain.Principal) error {
	if proof == "" {
		return dErrors.New(dErrors.CodeUnauthorized, "authorization proof required")
	}
	return v.err
}

func TestGate_Admin(t *testing.T) {
	t.Run("returns stored admin", func(t *testing.T) {
		g := New(slotStub{admin: storedAdmin}, verifierStub{})

		admin, err := g.Admin(context.Background())
		require.NoError(t, err)
		assert.Equal(t, storedAdmin, admin)
	})

	t.Run("uninitialized slot reports not_initialized", func(t *testing.T) {
		g := New(slotStub{err: fmt.Errorf("load slot: %w", sentinel.ErrNotFound)}, verifierStub{})

		_, err := g.Admin(context.Background())
		require.Error(t, err)
		assert.True(t, dErrors.HasCode(err, dErrors.CodeNotInitialized))
	})

	t.Run("store failures surface as internal", func(t *testing.T) {
		g := New(slotStub{err: errors.New("connection refused")}, verifierStub{})

		_, err := g.Admin(context.Background())
		require.Error(t, err)
		assert.True(t, dErrors.HasCode(err, dErrors.CodeInternal))
	})
}

func TestGate_AuthorizeAdmin(t *testing.T) {
	t.Run("admin with valid proof passes", func(t *testing.T) {
		g := New(slotStub{admin: storedAdmin}, verifierStub{})

		admin, err := g.AuthorizeAdmin(context.Background(), storedAdmin, "proof")
		require.NoError(t, err)
		assert.Equal(t, storedAdmin, admin)
	})

	t.Run("uninitialized registry wins over everything", func(t *testing.T) {
		g := New(slotStub{err: sentinel.ErrNotFound}, verifierStub{})

		_, err := g.AuthorizeAdmin(context.Background(), intruder, "")
		require.Error(t, err)
		assert.True(t, dErrors.HasCode(err, dErrors.CodeNotInitialized))
	})

	t.Run("identity mismatch is forbidden before proof inspection", func(t *testing.T) {
		// The verifier would reject the empty proof; the identity check
		// must fire first.
		g := New(slotStub{admin: storedAdmin}, verifierStub{})

		_, err := g.AuthorizeAdmin(context.Background(), intruder, "")
		require.Error(t, err)
		assert.True(t, dErrors.HasCode(err, dErrors.CodeForbidden))
	})

	t.Run("bad proof for the right admin is unauthorized", func(t *testing.T) {
		g := New(slotStub{admin: storedAdmin}, verifierStub{err: dErrors.New(dErrors.CodeUnauthorized, "invalid proof")})

		_, err := g.AuthorizeAdmin(context.Background(), storedAdmin, "tampered")
		require.Error(t, err)
		assert.True(t, dErrors.HasCode(err, dErrors.CodeUnauthorized))
	})
}

func TestGate_AuthorizeSelf(t *testing.T) {
	t.Run("valid proof passes", func(t *testing.T) {
		g := New(slotStub{admin: storedAdmin}, verifierStub{})
		assert.NoError(t, g.AuthorizeSelf(context.Background(), intruder, "proof"))
	})

	t.Run("missing proof is unauthorized", func(t *testing.T) {
		g := New(slotStub{admin: storedAdmin}, verifierStub{})

		err := g.AuthorizeSelf(context.Background(), intruder, "")
		require.Error(t, err)
		assert.True(t, dErrors.HasCode(err, dErrors.CodeUnauthorized))
	})
}
