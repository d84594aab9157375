package service

import (
	"context"
	"errors"
	"log/slog"
	"strconv"
	"time"

	"vestry/internal/admingate"
	"vestry/internal/authproof"
	"vestry/internal/contributor/metrics"
	"vestry/internal/contributor/models"
	"vestry/pkg/attrs"
	"vestry/pkg/domain"
	dErrors "vestry/pkg/domain-errors"
	audit "vestry/pkg/platform/audit"
	"vestry/pkg/platform/sentinel"
	"vestry/pkg/requestcontext"
)

// Store persists the registry's admin slot and contributor records.
// Implementations return sentinel errors; the service translates them.
type Store interface {
	// Admin returns the stored administrator, sentinel.ErrNotFound while
	// the registry is uninitialized.
	Admin(ctx context.Context) (domain.Principal, error)
	// CreateAdmin sets the administrator once. sentinel.ErrConflict when a
	// value is already present; the admin is immutable afterwards.
	CreateAdmin(ctx context.Context, admin domain.Principal) error
	// Create inserts a new contributor record. sentinel.ErrConflict when
	// the address is already registered.
	Create(ctx context.Context, contributor *models.Contributor) error
	Get(ctx context.Context, address domain.Principal) (*models.Contributor, error)
	// UpdateScore overwrites the reputation fields of an existing record.
	UpdateScore(ctx context.Context, contributor *models.Contributor) error
}

type AuditPublisher interface {
	Emit(ctx context.Context, base audit.Event) error
}

// Service orchestrates contributor registration and reputation management.
type Service struct {
	store          Store
	gate           *admingate.Gate
	logger         *slog.Logger
	auditPublisher AuditPublisher
	metrics        *metrics.Metrics
}

type Option func(s *Service)

func WithLogger(logger *slog.Logger) Option {
	return func(s *Service) {
		s.logger = logger
	}
}

func WithAuditPublisher(publisher AuditPublisher) Option {
	return func(s *Service) {
		s.auditPublisher = publisher
	}
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(s *Service) {
		s.metrics = m
	}
}

// New constructs a Service.
func New(store Store, proofs authproof.Verifier, opts ...Option) *Service {
	s := &Service{store: store, gate: admingate.New(store, proofs)}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Initialize fixes the registry administrator. It can succeed at most once;
// the admin is immutable afterwards. The caller must present a proof for the
// admin principal itself.
func (s *Service) Initialize(ctx context.Context, admin domain.Principal) error {
	// The one-shot check runs before proof verification so a repeat attempt
	// reports already_initialized even with a stale proof.
	if _, err := s.store.Admin(ctx); err == nil {
		return dErrors.New(dErrors.CodeAlreadyInitialized, "registry is already initialized")
	} else if !errors.Is(err, sentinel.ErrNotFound) {
		return dErrors.Wrap(err, dErrors.CodeInternal, "failed to load registry admin")
	}

	if err := s.gate.AuthorizeSelf(ctx, admin, requestcontext.AuthProof(ctx)); err != nil {
		return err
	}

	if err := s.store.CreateAdmin(ctx, admin); err != nil {
		// Lost a concurrent initialization race.
		if errors.Is(err, sentinel.ErrConflict) {
			return dErrors.New(dErrors.CodeAlreadyInitialized, "registry is already initialized")
		}
		return dErrors.Wrap(err, dErrors.CodeInternal, "failed to store registry admin")
	}

	s.logAudit(ctx, audit.ActionRegistryInitialized,
		"actor", admin.String(),
		"subject", admin.String())
	return nil
}

// Register records a new contributor. The address must prove it is acting for
// itself; anyone may register once the registry is initialized.
func (s *Service) Register(ctx context.Context, address domain.Principal, githubHandle string) (*models.Contributor, error) {
	if err := s.gate.RequireInitialized(ctx); err != nil {
		return nil, err
	}
	if err := s.gate.AuthorizeSelf(ctx, address, requestcontext.AuthProof(ctx)); err != nil {
		return nil, err
	}

	// Use constructor which validates invariants
	contributor, err := models.NewContributor(address, githubHandle, requestcontext.Now(ctx))
	if err != nil {
		// Convert invariant violations to validation errors for API response
		if dErrors.HasCode(err, dErrors.CodeInvariantViolation) {
			return nil, dErrors.New(dErrors.CodeValidation, err.Error())
		}
		return nil, err
	}

	if err := s.store.Create(ctx, contributor); err != nil {
		if errors.Is(err, sentinel.ErrConflict) {
			return nil, dErrors.New(dErrors.CodeConflict, "contributor already registered")
		}
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to store contributor")
	}

	s.logAudit(ctx, audit.ActionContributorRegistered,
		"actor", address.String(),
		"subject", address.String(),
		"github_handle", contributor.GitHubHandle)
	s.incrementContributorsRegistered()
	return contributor, nil
}

// UpdateReputation overwrites a contributor's score. Only the stored admin
// may call this; the claimed identity is checked before the proof so a
// non-admin caller with a valid proof is rejected as forbidden, not
// unauthorized.
func (s *Service) UpdateReputation(ctx context.Context, admin, address domain.Principal, score uint64) (*models.Contributor, error) {
	if _, err := s.gate.AuthorizeAdmin(ctx, admin, requestcontext.AuthProof(ctx)); err != nil {
		return nil, err
	}

	contributor, err := s.store.Get(ctx, address)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return nil, dErrors.New(dErrors.CodeNotFound, "contributor not found")
		}
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to load contributor")
	}

	oldScore := contributor.ReputationScore
	contributor.ApplyScore(score, requestcontext.Now(ctx))

	if err := s.store.UpdateScore(ctx, contributor); err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return nil, dErrors.New(dErrors.CodeNotFound, "contributor not found")
		}
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to update reputation")
	}

	s.logAudit(ctx, audit.ActionReputationUpdated,
		"actor", admin.String(),
		"subject", address.String(),
		"old_score", strconv.FormatUint(oldScore, 10),
		"new_score", strconv.FormatUint(score, 10))
	s.incrementReputationUpdates()
	return contributor, nil
}

// GetContributor fetches one contributor record. Public read, no proof.
func (s *Service) GetContributor(ctx context.Context, address domain.Principal) (*models.Contributor, error) {
	if s.metrics != nil {
		defer s.metrics.ObserveGetContributor(time.Now())
	}

	contributor, err := s.store.Get(ctx, address)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return nil, dErrors.New(dErrors.CodeNotFound, "contributor not found")
		}
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to load contributor")
	}
	return contributor, nil
}

// Admin returns the registry administrator. Public read, no proof.
func (s *Service) Admin(ctx context.Context) (domain.Principal, error) {
	return s.gate.Admin(ctx)
}

func (s *Service) logAudit(ctx context.Context, action audit.Action, attributes ...any) {
	// Add request_id from context if available
	if requestID := requestcontext.RequestID(ctx); requestID != "" {
		attributes = append(attributes, "request_id", requestID)
	}
	args := append(attributes, "event", string(action), "log_type", "audit")
	if s.logger != nil {
		s.logger.InfoContext(ctx, string(action), args...)
	}
	if s.auditPublisher == nil {
		return
	}
	_ = s.auditPublisher.Emit(ctx, audit.Event{
		Action:   action,
		Actor:    attrs.ExtractString(attributes, "actor"),
		Subject:  attrs.ExtractString(attributes, "subject"),
		Metadata: attrs.ExtractStrings(attributes, "github_handle", "old_score", "new_score"),
	})
}

func (s *Service) incrementContributorsRegistered() {
	if s.metrics != nil {
		s.metrics.ContributorsRegistered.Inc()
	}
}

func (s *Service) incrementReputationUpdates() {
	if s.metrics != nil {
		s.metrics.ReputationUpdates.Inc()
	}
}
