package handler

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"vestry/internal/contributor/models"
	"vestry/pkg/domain"
	"vestry/pkg/platform/httputil"
	"vestry/pkg/requestcontext"
)

// Service defines the interface for contributor registry operations.
type Service interface {
	Initialize(ctx context.Context, admin domain.Principal) error
	Register(ctx context.Context, address domain.Principal, githubHandle string) (*models.Contributor, error)
	UpdateReputation(ctx context.Context, admin, address domain.Principal, score uint64) (*models.Contributor, error)
	GetContributor(ctx context.Context, address domain.Principal) (*models.Contributor, error)
	Admin(ctx context.Context) (domain.Principal, error)
}

// Handler wires registry endpoints to the contributor service.
type Handler struct {
	service Service
	logger  *slog.Logger
}

// New constructs a contributor handler with its dependencies.
func New(service Service, logger *slog.Logger) *Handler {
	return &Handler{service: service, logger: logger}
}

// Register mounts registry endpoints on the router.
func (h *Handler) Register(r chi.Router) {
	r.Post("/registry/admin", h.HandleInitialize)
	r.Get("/registry/admin", h.HandleGetAdmin)
	r.Post("/registry/contributors", h.HandleRegister)
	r.Get("/registry/contributors/{address}", h.HandleGetContributor)
	r.Put("/registry/contributors/{address}/reputation", h.HandleUpdateReputation)
}

// HandleInitialize handles POST /registry/admin requests.
func (h *Handler) HandleInitialize(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := requestcontext.RequestID(ctx)

	req, ok := httputil.DecodeAndPrepare[InitializeRequest](w, r, h.logger, ctx, requestID)
	if !ok {
		return
	}

	if err := h.service.Initialize(ctx, req.ParsedAdmin()); err != nil {
		h.logger.ErrorContext(ctx, "registry initialization failed",
			"request_id", requestID,
			"admin", req.Admin,
			"error", err,
		)
		httputil.WriteError(w, err)
		return
	}

	h.logger.InfoContext(ctx, "registry initialized",
		"request_id", requestID,
		"admin", req.Admin,
	)
	httputil.WriteJSON(w, http.StatusCreated, AdminResponse{Admin: req.Admin})
}

// HandleGetAdmin handles GET /registry/admin requests.
func (h *Handler) HandleGetAdmin(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	admin, err := h.service.Admin(ctx)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, AdminResponse{Admin: admin.String()})
}

// HandleRegister handles POST /registry/contributors requests.
func (h *Handler) HandleRegister(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := requestcontext.RequestID(ctx)
	start := time.Now()

	req, ok := httputil.DecodeAndPrepare[RegisterRequest](w, r, h.logger, ctx, requestID)
	if !ok {
		return
	}

	contributor, err := h.service.Register(ctx, req.ParsedAddress(), req.GitHubHandle)
	if err != nil {
		h.logger.ErrorContext(ctx, "contributor registration failed",
			"request_id", requestID,
			"address", req.Address,
			"error", err,
		)
		httputil.WriteError(w, err)
		return
	}

	h.logger.InfoContext(ctx, "contributor registered",
		"request_id", requestID,
		"address", req.Address,
		"github_handle", contributor.GitHubHandle,
		"duration_ms", time.Since(start).Milliseconds(),
	)
	httputil.WriteJSON(w, http.StatusCreated, FromContributor(contributor))
}

// HandleGetContributor handles GET /registry/contributors/{address} requests.
func (h *Handler) HandleGetContributor(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	address, err := domain.ParsePrincipal(chi.URLParam(r, "address"))
	if err != nil {
		httputil.WriteError(w, err)
		return
	}

	contributor, err := h.service.GetContributor(ctx, address)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, FromContributor(contributor))
}

// HandleUpdateReputation handles PUT /registry/contributors/{address}/reputation requests.
func (h *Handler) HandleUpdateReputation(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := requestcontext.RequestID(ctx)

	address, err := domain.ParsePrincipal(chi.URLParam(r, "address"))
	if err != nil {
		httputil.WriteError(w, err)
		return
	}

	req, ok := httputil.DecodeAndPrepare[UpdateReputationRequest](w, r, h.logger, ctx, requestID)
	if !ok {
		return
	}

	contributor, err := h.service.UpdateReputation(ctx, req.ParsedAdmin(), address, req.Score)
	if err != nil {
		h.logger.ErrorContext(ctx, "reputation update failed",
			"request_id", requestID,
			"address", address.String(),
			"error", err,
		)
		httputil.WriteError(w, err)
		return
	}

	h.logger.InfoContext(ctx, "reputation updated",
		"request_id", requestID,
		"address", address.String(),
		"score", req.Score,
	)
	httputil.WriteJSON(w, http.StatusOK, FromContributor(contributor))
}
