package store

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"

	"vestry/internal/contributor/models"
	"vestry/pkg/domain"
	"vestry/pkg/platform/sentinel"
)

const (
	adminAddress   = domain.Principal("GA7QYNF7SOWQ3GLR2BGMZEHXAVIRZA4KVWLTJJFC7MGXUA74P7UJVSGZ")
	primaryAddress = domain.Principal("GB7QYNF7SOWQ3GLR2BGMZEHXAVIRZA4KVWLTJJFC7MGXUA74P7UJVAAA")
	otherAddress   = domain.Principal("GC7QYNF7SOWQ3GLR2BGMZEHXAVIRZA4KVWLTJJFC7MGXUA74P7UJVBBB")
)

type ContributorStoreSuite struct {
	suite.Suite
	store *InMemory
	ctx   context.Context
}

func (s *ContributorStoreSuite) SetupTest() {
	s.store = NewInMemory()
	s.ctx = context.Background()
}

func TestContributorStoreSuite(t *testing.T) {
	suite.Run(t, new(ContributorStoreSuite))
}

func (s *ContributorStoreSuite) newContributor(address domain.Principal, handle string) *models.Contributor {
	contributor, err := models.NewContributor(address, handle, time.Now().UTC())
	s.Require().NoError(err)
	return contributor
}

// TestAdminSlot verifies the one-shot admin slot semantics.
func (s *ContributorStoreSuite) TestAdminSlot() {
	s.Run("returns ErrNotFound while unset", func() {
		_, err := s.store.Admin(s.ctx)
		s.Require().ErrorIs(err, sentinel.ErrNotFound)
	})

	s.Run("stores and returns the admin", func() {
		s.Require().NoError(s.store.CreateAdmin(s.ctx, adminAddress))

		admin, err := s.store.Admin(s.ctx)
		s.Require().NoError(err)
		s.Equal(adminAddress, admin)
	})

	s.Run("rejects a second admin", func() {
		err := s.store.CreateAdmin(s.ctx, otherAddress)
		s.Require().ErrorIs(err, sentinel.ErrConflict)

		admin, err := s.store.Admin(s.ctx)
		s.Require().NoError(err)
		s.Equal(adminAddress, admin, "original admin must survive the rejected write")
	})
}

// TestCreationAndLookups verifies the store correctly creates and retrieves contributors.
func (s *ContributorStoreSuite) TestCreationAndLookups() {
	s.Run("creates and finds contributor by address", func() {
		contributor := s.newContributor(primaryAddress, "octocat")
		s.Require().NoError(s.store.Create(s.ctx, contributor))

		found, err := s.store.Get(s.ctx, primaryAddress)
		s.Require().NoError(err)
		s.Equal("octocat", found.GitHubHandle)
		s.Equal(uint64(0), found.ReputationScore)
	})

	s.Run("returns ErrNotFound for unknown address", func() {
		_, err := s.store.Get(s.ctx, otherAddress)
		s.Require().ErrorIs(err, sentinel.ErrNotFound)
	})

	s.Run("rejects duplicate address", func() {
		contributor := s.newContributor(primaryAddress, "someone-else")
		err := s.store.Create(s.ctx, contributor)
		s.Require().ErrorIs(err, sentinel.ErrConflict)

		found, err := s.store.Get(s.ctx, primaryAddress)
		s.Require().NoError(err)
		s.Equal("octocat", found.GitHubHandle, "original record must survive the rejected write")
	})

	s.Run("returned record is a copy", func() {
		found, err := s.store.Get(s.ctx, primaryAddress)
		s.Require().NoError(err)
		found.ReputationScore = 999

		again, err := s.store.Get(s.ctx, primaryAddress)
		s.Require().NoError(err)
		s.Equal(uint64(0), again.ReputationScore)
	})
}

// TestUpdates verifies score overwrites persist without touching registration facts.
func (s *ContributorStoreSuite) TestUpdates() {
	s.Run("persists score changes", func() {
		contributor := s.newContributor(primaryAddress, "octocat")
		s.Require().NoError(s.store.Create(s.ctx, contributor))

		contributor.ApplyScore(42, time.Now().UTC())
		s.Require().NoError(s.store.UpdateScore(s.ctx, contributor))

		found, err := s.store.Get(s.ctx, primaryAddress)
		s.Require().NoError(err)
		s.Equal(uint64(42), found.ReputationScore)
		s.Equal("octocat", found.GitHubHandle)
	})

	s.Run("returns ErrNotFound for non-existent contributor", func() {
		contributor := s.newContributor(otherAddress, "ghost")

		err := s.store.UpdateScore(s.ctx, contributor)
		s.Require().ErrorIs(err, sentinel.ErrNotFound)
	})
}
