//go:build integration

package token_test

import (
	"context"
	"math/big"
	"sync"
	"testing"

	"github.com/stretchr/testify/suite"

	"vestry/internal/token"
	"vestry/pkg/domain"
	"vestry/pkg/platform/sentinel"
	"vestry/pkg/testutil/containers"
)

const (
	ledgerAsset    = domain.Asset("CA7QYNF7SOWQ3GLR2BGMZEHXAVIRZA4KVWLTJJFC7MGXUA74P7UJUWDA")
	ledgerTreasury = domain.Principal("GA7QYNF7SOWQ3GLR2BGMZEHXAVIRZA4KVWLTJJFC7MGXUA74P7UJVSGZ")
	ledgerGrantee  = domain.Principal("GBZXN7PIRZGNMHGA7MUUUF4GWPY5AYPV6LY4UV2GD6VEX3TQSDRKHLPK")
)

type PostgresLedgerSuite struct {
	suite.Suite
	postgres *containers.PostgresContainer
	ledger   *token.PostgresLedger
}

func TestPostgresLedgerSuite(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}
	suite.Run(t, new(PostgresLedgerSuite))
}

func (s *PostgresLedgerSuite) SetupSuite() {
	mgr := containers.GetManager()
	s.postgres = mgr.GetPostgres(s.T())
	s.ledger = token.NewPostgresLedger(s.postgres.DB)
}

func (s *PostgresLedgerSuite) SetupTest() {
	s.Require().NoError(s.postgres.TruncateTables(context.Background(), "token_balances"))
}

func (s *PostgresLedgerSuite) TestBalanceAndMint() {
	ctx := context.Background()

	bal, err := s.ledger.Balance(ctx, ledgerAsset, ledgerTreasury)
	s.Require().NoError(err)
	s.Equal(0, bal.Sign())

	s.Require().NoError(s.ledger.Mint(ctx, ledgerAsset, ledgerTreasury, big.NewInt(1_000_000)))
	s.Require().NoError(s.ledger.Mint(ctx, ledgerAsset, ledgerTreasury, big.NewInt(500)))

	bal, err = s.ledger.Balance(ctx, ledgerAsset, ledgerTreasury)
	s.Require().NoError(err)
	s.Equal(0, bal.Cmp(big.NewInt(1_000_500)))
}

func (s *PostgresLedgerSuite) TestBalanceBeyondInt64() {
	ctx := context.Background()

	huge, ok := new(big.Int).SetString("170141183460469231731687303715884105727", 10)
	s.Require().True(ok)

	s.Require().NoError(s.ledger.Mint(ctx, ledgerAsset, ledgerTreasury, huge))

	bal, err := s.ledger.Balance(ctx, ledgerAsset, ledgerTreasury)
	s.Require().NoError(err)
	s.Equal(0, bal.Cmp(huge), "128-bit amounts must round-trip through NUMERIC")
}

func (s *PostgresLedgerSuite) TestTransfer() {
	ctx := context.Background()
	s.Require().NoError(s.ledger.Mint(ctx, ledgerAsset, ledgerTreasury, big.NewInt(100)))

	s.Run("moves tokens", func() {
		s.Require().NoError(s.ledger.Transfer(ctx, ledgerAsset, ledgerTreasury, ledgerGrantee, big.NewInt(60)))

		from, err := s.ledger.Balance(ctx, ledgerAsset, ledgerTreasury)
		s.Require().NoError(err)
		to, err := s.ledger.Balance(ctx, ledgerAsset, ledgerGrantee)
		s.Require().NoError(err)
		s.Equal(0, from.Cmp(big.NewInt(40)))
		s.Equal(0, to.Cmp(big.NewInt(60)))
	})

	s.Run("guarded debit rejects overdraw", func() {
		err := s.ledger.Transfer(ctx, ledgerAsset, ledgerTreasury, ledgerGrantee, big.NewInt(1_000))
		s.Require().ErrorIs(err, sentinel.ErrInsufficientFunds)
	})

	s.Run("zero balance account cannot send", func() {
		unknown := domain.Principal("GC6OZLKMNXUAYLPB4DOBQSNPMJFFI2BBWNLGFEW2ZK5NYGMLPKQ7ZJ7K")
		err := s.ledger.Transfer(ctx, ledgerAsset, unknown, ledgerGrantee, big.NewInt(1))
		s.Require().ErrorIs(err, sentinel.ErrInsufficientFunds)
	})
}

// TestConcurrentTransfers verifies the conditional UPDATE prevents overdraw
// under parallel claims against the same treasury row.
func (s *PostgresLedgerSuite) TestConcurrentTransfers() {
	ctx := context.Background()
	s.Require().NoError(s.ledger.Mint(ctx, ledgerAsset, ledgerTreasury, big.NewInt(50)))

	const attempts = 100
	var wg sync.WaitGroup
	for i := 0; i < attempts; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_ = s.ledger.Transfer(ctx, ledgerAsset, ledgerTreasury, ledgerGrantee, big.NewInt(1))
		}()
	}
	wg.Wait()

	from, err := s.ledger.Balance(ctx, ledgerAsset, ledgerTreasury)
	s.Require().NoError(err)
	to, err := s.ledger.Balance(ctx, ledgerAsset, ledgerGrantee)
	s.Require().NoError(err)
	s.Equal(0, from.Sign())
	s.Equal(0, to.Cmp(big.NewInt(50)))
}
