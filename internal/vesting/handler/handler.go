package handler

import (
	"context"
	"log/slog"
	"math/big"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"vestry/internal/vesting/models"
	"vestry/pkg/domain"
	"vestry/pkg/platform/httputil"
	"vestry/pkg/requestcontext"
)

// Service defines the interface for vesting wallet operations.
type Service interface {
	Initialize(ctx context.Context, admin domain.Principal, asset domain.Asset) error
	CreateSchedule(ctx context.Context, admin, beneficiary domain.Principal, total *big.Int, start time.Time, durationSeconds int64) (*models.Schedule, error)
	Claim(ctx context.Context, beneficiary domain.Principal) (*big.Int, error)
	GetSchedule(ctx context.Context, beneficiary domain.Principal) (*models.Schedule, error)
	Config(ctx context.Context) (models.Config, error)
}

// Handler wires vesting endpoints to the vesting service.
type Handler struct {
	service Service
	logger  *slog.Logger
}

// New constructs a vesting handler with its dependencies.
func New(service Service, logger *slog.Logger) *Handler {
	return &Handler{service: service, logger: logger}
}

// Register mounts vesting endpoints on the router.
func (h *Handler) Register(r chi.Router) {
	r.Post("/vesting/admin", h.HandleInitialize)
	r.Get("/vesting/admin", h.HandleGetConfig)
	r.Post("/vesting/schedules", h.HandleCreateSchedule)
	r.Get("/vesting/schedules/{beneficiary}", h.HandleGetSchedule)
	r.Post("/vesting/schedules/{beneficiary}/claims", h.HandleClaim)
}

// HandleInitialize handles POST /vesting/admin requests.
func (h *Handler) HandleInitialize(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := requestcontext.RequestID(ctx)

	req, ok := httputil.DecodeAndPrepare[InitializeRequest](w, r, h.logger, ctx, requestID)
	if !ok {
		return
	}

	if err := h.service.Initialize(ctx, req.ParsedAdmin(), req.ParsedToken()); err != nil {
		h.logger.ErrorContext(ctx, "wallet initialization failed",
			"request_id", requestID,
			"admin", req.Admin,
			"error", err,
		)
		httputil.WriteError(w, err)
		return
	}

	h.logger.InfoContext(ctx, "wallet initialized",
		"request_id", requestID,
		"admin", req.Admin,
		"token", req.Token,
	)
	httputil.WriteJSON(w, http.StatusCreated, AdminResponse{Admin: req.Admin, Token: req.Token})
}

// HandleGetConfig handles GET /vesting/admin requests.
func (h *Handler) HandleGetConfig(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	cfg, err := h.service.Config(ctx)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, AdminResponse{Admin: cfg.Admin.String(), Token: cfg.Asset.String()})
}

// HandleCreateSchedule handles POST /vesting/schedules requests.
func (h *Handler) HandleCreateSchedule(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := requestcontext.RequestID(ctx)

	req, ok := httputil.DecodeAndPrepare[CreateScheduleRequest](w, r, h.logger, ctx, requestID)
	if !ok {
		return
	}

	schedule, err := h.service.CreateSchedule(ctx, req.ParsedAdmin(), req.ParsedBeneficiary(), req.ParsedTotal(), req.StartTime, req.DurationSeconds)
	if err != nil {
		h.logger.ErrorContext(ctx, "vesting schedule creation failed",
			"request_id", requestID,
			"beneficiary", req.Beneficiary,
			"error", err,
		)
		httputil.WriteError(w, err)
		return
	}

	h.logger.InfoContext(ctx, "vesting schedule created",
		"request_id", requestID,
		"beneficiary", req.Beneficiary,
		"total_amount", req.TotalAmount,
		"duration_seconds", req.DurationSeconds,
	)
	httputil.WriteJSON(w, http.StatusCreated, FromSchedule(schedule, requestcontext.Now(ctx)))
}

// HandleGetSchedule handles GET /vesting/schedules/{beneficiary} requests.
func (h *Handler) HandleGetSchedule(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	beneficiary, err := domain.ParsePrincipal(chi.URLParam(r, "beneficiary"))
	if err != nil {
		httputil.WriteError(w, err)
		return
	}

	schedule, err := h.service.GetSchedule(ctx, beneficiary)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, FromSchedule(schedule, requestcontext.Now(ctx)))
}

// HandleClaim handles POST /vesting/schedules/{beneficiary}/claims requests.
func (h *Handler) HandleClaim(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := requestcontext.RequestID(ctx)
	start := time.Now()

	beneficiary, err := domain.ParsePrincipal(chi.URLParam(r, "beneficiary"))
	if err != nil {
		httputil.WriteError(w, err)
		return
	}

	paid, err := h.service.Claim(ctx, beneficiary)
	if err != nil {
		h.logger.ErrorContext(ctx, "vesting claim failed",
			"request_id", requestID,
			"beneficiary", beneficiary.String(),
			"error", err,
		)
		httputil.WriteError(w, err)
		return
	}

	h.logger.InfoContext(ctx, "vesting claim paid",
		"request_id", requestID,
		"beneficiary", beneficiary.String(),
		"amount", domain.FormatAmount(paid),
		"duration_ms", time.Since(start).Milliseconds(),
	)
	httputil.WriteJSON(w, http.StatusOK, ClaimResponse{
		Beneficiary: beneficiary.String(),
		Amount:      domain.FormatAmount(paid),
	})
}
