package ratelimit

import (
	"log/slog"
	"net/http"
	"strconv"
	"time"

	audit "vestry/pkg/platform/audit"
	"vestry/pkg/platform/audit/publisher"
	"vestry/pkg/platform/httputil"
	"vestry/pkg/platform/privacy"
	"vestry/pkg/requestcontext"
)

// Middleware applies one limit per client IP across the whole API surface.
// Limiter failures fail open: the registry keeps serving when redis is down.
type Middleware struct {
	limiter  Limiter
	logger   *slog.Logger
	auditor  *publisher.Publisher
	metrics  *Metrics
	requests int
	window   time.Duration
	disabled bool
}

type Option func(*Middleware)

// WithDisabled turns the middleware into a pass-through.
func WithDisabled(disabled bool) Option {
	return func(m *Middleware) {
		m.disabled = disabled
	}
}

// WithMetrics enables limiter instrumentation.
func WithMetrics(metrics *Metrics) Option {
	return func(m *Middleware) {
		m.metrics = metrics
	}
}

// WithAudit emits a security event for every rejected request.
func WithAudit(auditor *publisher.Publisher) Option {
	return func(m *Middleware) {
		m.auditor = auditor
	}
}

func New(limiter Limiter, requests int, window time.Duration, logger *slog.Logger, opts ...Option) *Middleware {
	m := &Middleware{
		limiter:  limiter,
		logger:   logger,
		requests: requests,
		window:   window,
	}
	for _, opt := range opts {
		opt(m)
	}
	if m.disabled {
		logger.Info("rate limiting disabled")
	}
	return m
}

// Limit is the middleware entry point.
func (m *Middleware) Limit(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if m.disabled {
			next.ServeHTTP(w, r)
			return
		}

		ctx := r.Context()
		clientIP := requestcontext.ClientIP(ctx)
		if clientIP == "" {
			clientIP = r.RemoteAddr
		}

		result, err := m.limiter.Allow(ctx, "ip:"+clientIP, m.requests, m.window)
		if err != nil {
			m.logger.ErrorContext(ctx, "rate limit check failed, allowing request",
				"error", err, "ip_prefix", privacy.AnonymizeIP(clientIP))
			if m.metrics != nil {
				m.metrics.Failures.Inc()
			}
			next.ServeHTTP(w, r)
			return
		}

		addRateLimitHeaders(w, result)

		if !result.Allowed {
			if m.metrics != nil {
				m.metrics.Limited.Inc()
			}
			m.emitExceeded(r, clientIP)
			writeRateLimitExceeded(w, result)
			return
		}

		if m.metrics != nil {
			m.metrics.Allowed.Inc()
		}
		next.ServeHTTP(w, r)
	})
}

func (m *Middleware) emitExceeded(r *http.Request, clientIP string) {
	if m.auditor == nil {
		return
	}
	ctx := r.Context()
	metadata := map[string]string{
		"path":  r.URL.Path,
		"limit": strconv.Itoa(m.requests),
	}
	if ua := requestcontext.UserAgent(ctx); ua != "" {
		metadata["user_agent"] = ua
	}
	err := m.auditor.Emit(ctx, audit.Event{
		Action:   audit.ActionRateLimitExceeded,
		Subject:  clientIP,
		Metadata: metadata,
	})
	if err != nil {
		m.logger.ErrorContext(ctx, "emit rate limit audit event failed", "error", err)
	}
}

func addRateLimitHeaders(w http.ResponseWriter, result *Result) {
	w.Header().Set("X-RateLimit-Limit", strconv.Itoa(result.Limit))
	w.Header().Set("X-RateLimit-Remaining", strconv.Itoa(result.Remaining))
	w.Header().Set("X-RateLimit-Reset", strconv.FormatInt(result.ResetAt.Unix(), 10))
}

type limitExceededResponse struct {
	Error      string `json:"error"`
	Message    string `json:"message"`
	RetryAfter int    `json:"retry_after"`
}

func writeRateLimitExceeded(w http.ResponseWriter, result *Result) {
	retryAfter := int(time.Until(result.ResetAt).Seconds()) + 1
	if retryAfter < 1 {
		retryAfter = 1
	}
	w.Header().Set("Retry-After", strconv.Itoa(retryAfter))
	httputil.WriteJSON(w, http.StatusTooManyRequests, &limitExceededResponse{
		Error:      "rate_limit_exceeded",
		Message:    "Too many requests from this address. Please try again later.",
		RetryAfter: retryAfter,
	})
}
