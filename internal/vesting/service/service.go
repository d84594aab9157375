package service

import (
	"context"
	"errors"
	"log/slog"
	"math/big"
	"strconv"
	"sync"
	"time"

	"vestry/internal/admingate"
	"vestry/internal/authproof"
	"vestry/internal/policy"
	"vestry/internal/token"
	"vestry/internal/vesting/metrics"
	"vestry/internal/vesting/models"
	"vestry/pkg/attrs"
	"vestry/pkg/domain"
	dErrors "vestry/pkg/domain-errors"
	audit "vestry/pkg/platform/audit"
	"vestry/pkg/platform/sentinel"
	"vestry/pkg/requestcontext"
)

// Store persists the wallet's config record and vesting schedules.
// Implementations return sentinel errors and honor a SQL transaction carried
// in ctx; inside a transaction Get locks the schedule row.
type Store interface {
	// Config returns the instance record, sentinel.ErrNotFound while the
	// wallet is uninitialized.
	Config(ctx context.Context) (models.Config, error)
	// CreateConfig sets the instance record once. sentinel.ErrConflict when
	// one is already present; admin and asset are immutable afterwards.
	CreateConfig(ctx context.Context, cfg models.Config) error
	// Create inserts a new schedule. sentinel.ErrConflict when the
	// beneficiary already has one.
	Create(ctx context.Context, schedule *models.Schedule) error
	Get(ctx context.Context, beneficiary domain.Principal) (*models.Schedule, error)
	// Update overwrites the claim bookkeeping of an existing schedule.
	Update(ctx context.Context, schedule *models.Schedule) error
}

type AuditPublisher interface {
	Emit(ctx context.Context, base audit.Event) error
}

// TxRunner runs fn as one atomic unit. The postgres runner opens a SQL
// transaction and threads it through ctx so the schedule store and token
// ledger join the same commit; the in-memory fallback serializes claims
// behind a mutex.
type TxRunner interface {
	RunInTx(ctx context.Context, fn func(txCtx context.Context) error) error
}

type inMemoryTxRunner struct {
	mu sync.Mutex
}

func (r *inMemoryTxRunner) RunInTx(ctx context.Context, fn func(txCtx context.Context) error) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	return fn(ctx)
}

// Service orchestrates the vesting wallet: one linear schedule per
// beneficiary, claims paid from the treasury account on the token ledger.
type Service struct {
	store          Store
	ledger         token.Ledger
	treasury       domain.Principal
	gate           *admingate.Gate
	tx             TxRunner
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

// WithTxRunner replaces the in-memory claim serializer, normally with a
// runner backed by the same database the store and ledger write to.
func WithTxRunner(tx TxRunner) Option {
	return func(s *Service) {
		if tx != nil {
			s.tx = tx
		}
	}
}

// New constructs a Service. The treasury principal is the funding account
// claims are paid from.
func New(store Store, ledger token.Ledger, treasury domain.Principal, proofs authproof.Verifier, opts ...Option) *Service {
	s := &Service{
		store:    store,
		ledger:   ledger,
		treasury: treasury,
		gate:     admingate.New(configSlot{store: store}, proofs),
		tx:       &inMemoryTxRunner{},
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// configSlot adapts the wallet's config record to the admin gate.
type configSlot struct {
	store Store
}

func (c configSlot) Admin(ctx context.Context) (domain.Principal, error) {
	cfg, err := c.store.Config(ctx)
	if err != nil {
		return "", err
	}
	return cfg.Admin, nil
}

// Initialize fixes the wallet administrator and payout asset. It can succeed
// at most once; both are immutable afterwards. The caller must present a
// proof for the admin principal itself.
func (s *Service) Initialize(ctx context.Context, admin domain.Principal, asset domain.Asset) error {
	// The one-shot check runs before proof verification so a repeat attempt
	// reports already_initialized even with a stale proof.
	if _, err := s.store.Config(ctx); err == nil {
		return dErrors.New(dErrors.CodeAlreadyInitialized, "registry is already initialized")
	} else if !errors.Is(err, sentinel.ErrNotFound) {
		return dErrors.Wrap(err, dErrors.CodeInternal, "failed to load wallet config")
	}

	if err := s.gate.AuthorizeSelf(ctx, admin, requestcontext.AuthProof(ctx)); err != nil {
		return err
	}

	if err := s.store.CreateConfig(ctx, models.Config{Admin: admin, Asset: asset}); err != nil {
		// Lost a concurrent initialization race.
		if errors.Is(err, sentinel.ErrConflict) {
			return dErrors.New(dErrors.CodeAlreadyInitialized, "registry is already initialized")
		}
		return dErrors.Wrap(err, dErrors.CodeInternal, "failed to store wallet config")
	}

	s.logAudit(ctx, audit.ActionWalletInitialized,
		"actor", admin.String(),
		"subject", admin.String(),
		"asset", asset.String())
	return nil
}

// CreateSchedule grants a beneficiary a linear vesting schedule. Only the
// stored admin may call this; one schedule per beneficiary, ever.
func (s *Service) CreateSchedule(ctx context.Context, admin, beneficiary domain.Principal, total *big.Int, start time.Time, durationSeconds int64) (*models.Schedule, error) {
	if _, err := s.gate.AuthorizeAdmin(ctx, admin, requestcontext.AuthProof(ctx)); err != nil {
		return nil, err
	}

	now := requestcontext.Now(ctx)

	// Use constructor which validates invariants
	schedule, err := models.NewSchedule(beneficiary, total, start, durationSeconds, now)
	if err != nil {
		// Convert invariant violations to validation errors for API response
		if dErrors.HasCode(err, dErrors.CodeInvariantViolation) {
			return nil, dErrors.New(dErrors.CodeValidation, err.Error())
		}
		return nil, err
	}

	// Backdated starts are legal within the policy window; anything older is
	// almost certainly a caller bug rather than a migrated grant.
	if start.Before(now.Add(-policy.StartTimeBackdateTolerance)) {
		return nil, dErrors.New(dErrors.CodeValidation, "start time is too far in the past")
	}

	if err := s.store.Create(ctx, schedule); err != nil {
		if errors.Is(err, sentinel.ErrConflict) {
			return nil, dErrors.New(dErrors.CodeConflict, "beneficiary already has a vesting schedule")
		}
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to store vesting schedule")
	}

	s.logAudit(ctx, audit.ActionScheduleCreated,
		"actor", admin.String(),
		"subject", beneficiary.String(),
		"total_amount", schedule.TotalAmount.String(),
		"start_time", schedule.StartTime.UTC().Format(time.RFC3339),
		"duration_seconds", strconv.FormatInt(schedule.DurationSeconds, 10))
	s.incrementSchedulesCreated()
	return schedule, nil
}

// Claim pays the beneficiary everything vested but not yet claimed. The
// transfer and the claim bookkeeping commit atomically; concurrent claims for
// the same schedule pay at most once.
func (s *Service) Claim(ctx context.Context, beneficiary domain.Principal) (*big.Int, error) {
	if s.metrics != nil {
		defer s.metrics.ObserveClaim(time.Now())
	}

	paid, err := s.claim(ctx, beneficiary)
	if err != nil {
		switch {
		case dErrors.HasCode(err, dErrors.CodeNothingToClaim):
			s.incrementClaimsRejected()
		case dErrors.HasCode(err, dErrors.CodeInsufficientFunds):
			s.incrementTreasuryShortfalls()
		}
		return nil, err
	}

	s.logAudit(ctx, audit.ActionClaimPaid,
		"actor", beneficiary.String(),
		"subject", beneficiary.String(),
		"amount", paid.String())
	s.incrementClaimsPaid()
	s.addTokensClaimed(paid)
	return paid, nil
}

func (s *Service) claim(ctx context.Context, beneficiary domain.Principal) (*big.Int, error) {
	if err := s.gate.AuthorizeSelf(ctx, beneficiary, requestcontext.AuthProof(ctx)); err != nil {
		return nil, err
	}

	cfg, err := s.Config(ctx)
	if err != nil {
		return nil, err
	}

	// Pre-checks outside the transaction turn away hopeless claims without
	// taking the row lock. The authoritative decision repeats inside.
	schedule, err := s.store.Get(ctx, beneficiary)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return nil, dErrors.New(dErrors.CodeNotFound, "vesting schedule not found")
		}
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to load vesting schedule")
	}

	now := requestcontext.Now(ctx)
	if schedule.ClaimableAt(now).Sign() <= 0 {
		return nil, dErrors.New(dErrors.CodeNothingToClaim, "nothing to claim")
	}

	balance, err := s.ledger.Balance(ctx, cfg.Asset, s.treasury)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to read treasury balance")
	}
	if balance.Cmp(schedule.ClaimableAt(now)) < 0 {
		return nil, dErrors.New(dErrors.CodeInsufficientFunds, "treasury cannot cover the claim")
	}

	var paid *big.Int
	err = s.tx.RunInTx(ctx, func(txCtx context.Context) error {
		// Re-read under the lock: a concurrent claim may have already paid
		// out part or all of what the pre-check saw.
		locked, err := s.store.Get(txCtx, beneficiary)
		if err != nil {
			if errors.Is(err, sentinel.ErrNotFound) {
				return dErrors.New(dErrors.CodeNotFound, "vesting schedule not found")
			}
			return dErrors.Wrap(err, dErrors.CodeInternal, "failed to load vesting schedule")
		}

		amount := locked.ClaimableAt(now)
		if amount.Sign() <= 0 {
			return dErrors.New(dErrors.CodeNothingToClaim, "nothing to claim")
		}

		if err := s.ledger.Transfer(txCtx, cfg.Asset, s.treasury, beneficiary, amount); err != nil {
			if errors.Is(err, sentinel.ErrInsufficientFunds) {
				return dErrors.New(dErrors.CodeInsufficientFunds, "treasury cannot cover the claim")
			}
			return dErrors.Wrap(err, dErrors.CodeInternal, "failed to transfer claim")
		}

		locked.ApplyClaim(amount, now)
		if err := s.store.Update(txCtx, locked); err != nil {
			return dErrors.Wrap(err, dErrors.CodeInternal, "failed to record claim")
		}
		paid = amount
		return nil
	})
	if err != nil {
		return nil, err
	}
	return paid, nil
}

// GetSchedule fetches one beneficiary's schedule. Public read, no proof.
func (s *Service) GetSchedule(ctx context.Context, beneficiary domain.Principal) (*models.Schedule, error) {
	schedule, err := s.store.Get(ctx, beneficiary)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return nil, dErrors.New(dErrors.CodeNotFound, "vesting schedule not found")
		}
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to load vesting schedule")
	}
	return schedule, nil
}

// Admin returns the wallet administrator. Public read, no proof.
func (s *Service) Admin(ctx context.Context) (domain.Principal, error) {
	return s.gate.Admin(ctx)
}

// Config returns the wallet's instance record. Public read, no proof.
func (s *Service) Config(ctx context.Context) (models.Config, error) {
	cfg, err := s.store.Config(ctx)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return models.Config{}, dErrors.New(dErrors.CodeNotInitialized, "registry is not initialized")
		}
		return models.Config{}, dErrors.Wrap(err, dErrors.CodeInternal, "failed to load wallet config")
	}
	return cfg, nil
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
		Metadata: attrs.ExtractStrings(attributes, "asset", "total_amount", "start_time", "duration_seconds", "amount"),
	})
}

func (s *Service) incrementSchedulesCreated() {
	if s.metrics != nil {
		s.metrics.SchedulesCreated.Inc()
	}
}

func (s *Service) incrementClaimsPaid() {
	if s.metrics != nil {
		s.metrics.ClaimsPaid.Inc()
	}
}

func (s *Service) incrementClaimsRejected() {
	if s.metrics != nil {
		s.metrics.ClaimsRejected.Inc()
	}
}

func (s *Service) incrementTreasuryShortfalls() {
	if s.metrics != nil {
		s.metrics.TreasuryShortfalls.Inc()
	}
}

func (s *Service) addTokensClaimed(amount *big.Int) {
	if s.metrics != nil {
		s.metrics.AddTokensClaimed(amount)
	}
}
