package service

//go:generate mockgen -source=service.go -destination=mocks/mocks.go -package=mocks Store,AuditPublisher

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"
	"go.uber.org/mock/gomock"

	"vestry/internal/authproof"
	"vestry/internal/contributor/models"
	"vestry/internal/contributor/service/mocks"
	"vestry/pkg/domain"
	dErrors "vestry/pkg/domain-errors"
	audit "vestry/pkg/platform/audit"
	"vestry/pkg/platform/sentinel"
	"vestry/pkg/requestcontext"
)

// =============================================================================
// Contributor Service Test Suite
// =============================================================================
// Justification for unit tests: The service sequences authorization checks
// against storage effects. Tests verify the one-shot initialization gate,
// identity-before-proof ordering, sentinel translation, and audit event
// emission without a real database.

const (
	adminAddress       = domain.Principal("GA7QYNF7SOWQ3GLR2BGMZEHXAVIRZA4KVWLTJJFC7MGXUA74P7UJVSGZ")
	contributorAddress = domain.Principal("GB7QYNF7SOWQ3GLR2BGMZEHXAVIRZA4KVWLTJJFC7MGXUA74P7UJVAAA")
	intruderAddress    = domain.Principal("GC7QYNF7SOWQ3GLR2BGMZEHXAVIRZA4KVWLTJJFC7MGXUA74P7UJVBBB")
)

type ContributorServiceSuite struct {
	suite.Suite
	ctrl      *gomock.Controller
	mockStore *mocks.MockStore
	mockAudit *mocks.MockAuditPublisher
	proofs    *authproof.Service
	service   *Service
}

func TestContributorServiceSuite(t *testing.T) {
	suite.Run(t, new(ContributorServiceSuite))
}

func (s *ContributorServiceSuite) SetupTest() {
	s.ctrl = gomock.NewController(s.T())
	s.mockStore = mocks.NewMockStore(s.ctrl)
	s.mockAudit = mocks.NewMockAuditPublisher(s.ctrl)
	s.proofs = authproof.NewService("service-test-secret", "vestry-test", "vestry", time.Hour)
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	s.service = New(
		s.mockStore,
		s.proofs,
		WithLogger(logger),
		WithAuditPublisher(s.mockAudit),
	)
}

func (s *ContributorServiceSuite) TearDownTest() {
	s.ctrl.Finish()
}

// proofCtx returns a context carrying a valid proof bound to principal.
func (s *ContributorServiceSuite) proofCtx(principal domain.Principal) context.Context {
	proof, err := s.proofs.Issue(context.Background(), principal)
	s.Require().NoError(err)
	return requestcontext.WithAuthProof(context.Background(), proof)
}

func (s *ContributorServiceSuite) adminNotSet() {
	s.mockStore.EXPECT().Admin(gomock.Any()).
		Return(domain.Principal(""), fmt.Errorf("registry admin: %w", sentinel.ErrNotFound))
}

func (s *ContributorServiceSuite) adminIs(admin domain.Principal) {
	s.mockStore.EXPECT().Admin(gomock.Any()).Return(admin, nil)
}

// =============================================================================
// Initialization Tests
// =============================================================================

func (s *ContributorServiceSuite) TestInitialize() {
	s.Run("sets the admin once and emits an audit event", func() {
		s.adminNotSet()
		s.mockStore.EXPECT().CreateAdmin(gomock.Any(), adminAddress).Return(nil)

		var captured audit.Event
		s.mockAudit.EXPECT().Emit(gomock.Any(), gomock.Any()).DoAndReturn(
			func(_ context.Context, event audit.Event) error {
				captured = event
				return nil
			})

		err := s.service.Initialize(s.proofCtx(adminAddress), adminAddress)
		s.NoError(err)
		s.Equal(audit.ActionRegistryInitialized, captured.Action)
		s.Equal(adminAddress.String(), captured.Actor)
		s.Equal(adminAddress.String(), captured.Subject)
	})

	s.Run("repeat initialization reports already_initialized before the proof check", func() {
		s.adminIs(adminAddress)

		// No proof at all: the one-shot check must answer first.
		err := s.service.Initialize(context.Background(), adminAddress)
		s.Error(err)
		s.True(dErrors.Is(err, dErrors.CodeAlreadyInitialized))
		s.Contains(err.Error(), "registry is already initialized")
	})

	s.Run("missing proof is unauthorized", func() {
		s.adminNotSet()

		err := s.service.Initialize(context.Background(), adminAddress)
		s.Error(err)
		s.True(dErrors.Is(err, dErrors.CodeUnauthorized))
	})

	s.Run("proof bound to another principal is unauthorized", func() {
		s.adminNotSet()

		err := s.service.Initialize(s.proofCtx(intruderAddress), adminAddress)
		s.Error(err)
		s.True(dErrors.Is(err, dErrors.CodeUnauthorized))
		s.Contains(err.Error(), "proof does not bind the acting principal")
	})

	s.Run("lost initialization race reports already_initialized", func() {
		s.adminNotSet()
		s.mockStore.EXPECT().CreateAdmin(gomock.Any(), adminAddress).
			Return(fmt.Errorf("registry admin already set: %w", sentinel.ErrConflict))

		err := s.service.Initialize(s.proofCtx(adminAddress), adminAddress)
		s.Error(err)
		s.True(dErrors.Is(err, dErrors.CodeAlreadyInitialized))
	})

	s.Run("storage failure surfaces as internal", func() {
		s.mockStore.EXPECT().Admin(gomock.Any()).
			Return(domain.Principal(""), errors.New("connection reset"))

		err := s.service.Initialize(s.proofCtx(adminAddress), adminAddress)
		s.Error(err)
		s.True(dErrors.Is(err, dErrors.CodeInternal))
	})
}

// =============================================================================
// Registration Tests
// =============================================================================

func (s *ContributorServiceSuite) TestRegister() {
	fixedNow := time.Date(2026, time.March, 14, 9, 30, 0, 0, time.UTC)

	s.Run("registers a contributor with zero reputation", func() {
		s.adminIs(adminAddress)
		ctx := requestcontext.WithTime(s.proofCtx(contributorAddress), fixedNow)

		s.mockStore.EXPECT().Create(gomock.Any(), gomock.Any()).DoAndReturn(
			func(_ context.Context, contributor *models.Contributor) error {
				s.Equal(contributorAddress, contributor.Address)
				s.Equal("octocat", contributor.GitHubHandle)
				s.Equal(uint64(0), contributor.ReputationScore)
				s.True(contributor.RegisteredAt.Equal(fixedNow))
				return nil
			})

		var captured audit.Event
		s.mockAudit.EXPECT().Emit(gomock.Any(), gomock.Any()).DoAndReturn(
			func(_ context.Context, event audit.Event) error {
				captured = event
				return nil
			})

		contributor, err := s.service.Register(ctx, contributorAddress, "octocat")
		s.Require().NoError(err)
		s.Equal(uint64(0), contributor.ReputationScore)
		s.Equal(audit.ActionContributorRegistered, captured.Action)
		s.Equal(contributorAddress.String(), captured.Actor)
		s.Equal(contributorAddress.String(), captured.Subject)
		s.Equal("octocat", captured.Metadata["github_handle"])
	})

	s.Run("uninitialized registry rejects registration", func() {
		s.adminNotSet()

		_, err := s.service.Register(s.proofCtx(contributorAddress), contributorAddress, "octocat")
		s.Error(err)
		s.True(dErrors.Is(err, dErrors.CodeNotInitialized))
	})

	s.Run("blank handle is a validation error", func() {
		s.adminIs(adminAddress)

		_, err := s.service.Register(s.proofCtx(contributorAddress), contributorAddress, "   ")
		s.Error(err)
		s.True(dErrors.Is(err, dErrors.CodeValidation))
		s.Contains(err.Error(), "github handle cannot be empty")
	})

	s.Run("oversized handle is a validation error", func() {
		s.adminIs(adminAddress)

		_, err := s.service.Register(s.proofCtx(contributorAddress), contributorAddress, strings.Repeat("a", 40))
		s.Error(err)
		s.True(dErrors.Is(err, dErrors.CodeValidation))
	})

	s.Run("proof bound to someone else is unauthorized", func() {
		s.adminIs(adminAddress)

		_, err := s.service.Register(s.proofCtx(intruderAddress), contributorAddress, "octocat")
		s.Error(err)
		s.True(dErrors.Is(err, dErrors.CodeUnauthorized))
	})

	s.Run("duplicate address conflicts", func() {
		s.adminIs(adminAddress)
		s.mockStore.EXPECT().Create(gomock.Any(), gomock.Any()).
			Return(fmt.Errorf("contributor %s: %w", contributorAddress, sentinel.ErrConflict))

		_, err := s.service.Register(s.proofCtx(contributorAddress), contributorAddress, "octocat")
		s.Error(err)
		s.True(dErrors.Is(err, dErrors.CodeConflict))
		s.Contains(err.Error(), "contributor already registered")
	})
}

// =============================================================================
// Reputation Tests
// =============================================================================

func (s *ContributorServiceSuite) TestUpdateReputation() {
	registeredAt := time.Date(2026, time.January, 2, 12, 0, 0, 0, time.UTC)
	fixedNow := time.Date(2026, time.March, 14, 9, 30, 0, 0, time.UTC)

	existing := func() *models.Contributor {
		contributor, err := models.NewContributor(contributorAddress, "octocat", registeredAt)
		s.Require().NoError(err)
		contributor.ReputationScore = 7
		return contributor
	}

	s.Run("admin overwrites the score and emits an audit event", func() {
		s.adminIs(adminAddress)
		ctx := requestcontext.WithTime(s.proofCtx(adminAddress), fixedNow)

		s.mockStore.EXPECT().Get(gomock.Any(), contributorAddress).Return(existing(), nil)
		s.mockStore.EXPECT().UpdateScore(gomock.Any(), gomock.Any()).DoAndReturn(
			func(_ context.Context, contributor *models.Contributor) error {
				s.Equal(uint64(42), contributor.ReputationScore)
				s.True(contributor.UpdatedAt.Equal(fixedNow))
				return nil
			})

		var captured audit.Event
		s.mockAudit.EXPECT().Emit(gomock.Any(), gomock.Any()).DoAndReturn(
			func(_ context.Context, event audit.Event) error {
				captured = event
				return nil
			})

		contributor, err := s.service.UpdateReputation(ctx, adminAddress, contributorAddress, 42)
		s.Require().NoError(err)
		s.Equal(uint64(42), contributor.ReputationScore)
		s.Equal(audit.ActionReputationUpdated, captured.Action)
		s.Equal(adminAddress.String(), captured.Actor)
		s.Equal(contributorAddress.String(), captured.Subject)
		s.Equal("7", captured.Metadata["old_score"])
		s.Equal("42", captured.Metadata["new_score"])
	})

	s.Run("zero is a legal score", func() {
		s.adminIs(adminAddress)
		ctx := requestcontext.WithTime(s.proofCtx(adminAddress), fixedNow)

		s.mockStore.EXPECT().Get(gomock.Any(), contributorAddress).Return(existing(), nil)
		s.mockStore.EXPECT().UpdateScore(gomock.Any(), gomock.Any()).Return(nil)
		s.mockAudit.EXPECT().Emit(gomock.Any(), gomock.Any()).Return(nil)

		contributor, err := s.service.UpdateReputation(ctx, adminAddress, contributorAddress, 0)
		s.Require().NoError(err)
		s.Equal(uint64(0), contributor.ReputationScore)
	})

	s.Run("identity mismatch is forbidden even with a valid proof", func() {
		s.adminIs(adminAddress)

		// The intruder's proof is genuine; the identity check must answer
		// first, so the failure is forbidden rather than unauthorized.
		_, err := s.service.UpdateReputation(s.proofCtx(intruderAddress), intruderAddress, contributorAddress, 1)
		s.Error(err)
		s.True(dErrors.Is(err, dErrors.CodeForbidden))
		s.Contains(err.Error(), "only the registry admin may perform this operation")
	})

	s.Run("unknown contributor reports not_found", func() {
		s.adminIs(adminAddress)
		s.mockStore.EXPECT().Get(gomock.Any(), contributorAddress).
			Return(nil, fmt.Errorf("contributor %s: %w", contributorAddress, sentinel.ErrNotFound))

		_, err := s.service.UpdateReputation(s.proofCtx(adminAddress), adminAddress, contributorAddress, 1)
		s.Error(err)
		s.True(dErrors.Is(err, dErrors.CodeNotFound))
		s.Contains(err.Error(), "contributor not found")
	})

	s.Run("uninitialized registry reports not_initialized", func() {
		s.adminNotSet()

		_, err := s.service.UpdateReputation(s.proofCtx(adminAddress), adminAddress, contributorAddress, 1)
		s.Error(err)
		s.True(dErrors.Is(err, dErrors.CodeNotInitialized))
	})
}

// =============================================================================
// Read Path Tests
// =============================================================================

func (s *ContributorServiceSuite) TestGetContributor() {
	s.Run("returns the stored record without a proof", func() {
		contributor, err := models.NewContributor(contributorAddress, "octocat", time.Now().UTC())
		s.Require().NoError(err)
		s.mockStore.EXPECT().Get(gomock.Any(), contributorAddress).Return(contributor, nil)

		found, err := s.service.GetContributor(context.Background(), contributorAddress)
		s.Require().NoError(err)
		s.Equal("octocat", found.GitHubHandle)
	})

	s.Run("unknown address reports not_found", func() {
		s.mockStore.EXPECT().Get(gomock.Any(), contributorAddress).
			Return(nil, fmt.Errorf("contributor %s: %w", contributorAddress, sentinel.ErrNotFound))

		_, err := s.service.GetContributor(context.Background(), contributorAddress)
		s.Error(err)
		s.True(dErrors.Is(err, dErrors.CodeNotFound))
	})
}

func (s *ContributorServiceSuite) TestAdmin() {
	s.Run("returns the stored admin", func() {
		s.adminIs(adminAddress)

		admin, err := s.service.Admin(context.Background())
		s.Require().NoError(err)
		s.Equal(adminAddress, admin)
	})

	s.Run("uninitialized registry reports not_initialized", func() {
		s.adminNotSet()

		_, err := s.service.Admin(context.Background())
		s.Error(err)
		s.True(dErrors.Is(err, dErrors.CodeNotInitialized))
		s.Contains(err.Error(), "registry is not initialized")
	})
}
