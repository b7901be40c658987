package httpserver

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	payoutengine "clipay/contexts/finance-core/payout-engine"
	"clipay/contexts/finance-core/payout-engine/application/commands"
	payouterrors "clipay/contexts/finance-core/payout-engine/domain/errors"
	payouthttp "clipay/contexts/finance-core/payout-engine/transport/http"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const roleAdmin = "admin"

type Server struct {
	router  chi.Router
	http    *http.Server
	logger  *slog.Logger
	addr    string
	payouts payoutengine.Module
	metrics http.Handler
}

// New wires the payout routes. A nil metrics handler serves the default
// prometheus registry.
func New(payouts payoutengine.Module, metrics http.Handler, logger *slog.Logger, addr string) *Server {
	if logger == nil {
		logger = slog.Default()
	}
	if addr == "" {
		addr = ":8080"
	}
	if metrics == nil {
		metrics = promhttp.Handler()
	}
	s := &Server{
		logger:  logger,
		addr:    addr,
		payouts: payouts,
		metrics: metrics,
	}
	s.router = s.buildRouter()
	s.http = &http.Server{
		Addr:              addr,
		Handler:           s.router,
		ReadHeaderTimeout: 10 * time.Second,
	}
	return s
}

func (s *Server) Handler() http.Handler {
	return s.router
}

func (s *Server) Start() error {
	s.logger.Info("http server starting",
		"event", "http_server_starting",
		"module", "internal/platform/httpserver",
		"layer", "platform",
		"addr", s.addr,
	)
	if err := s.http.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

func (s *Server) Shutdown(ctx context.Context) error {
	return s.http.Shutdown(ctx)
}

func (s *Server) buildRouter() chi.Router {
	r := chi.NewRouter()
	r.Use(chimw.RequestID)
	r.Use(chimw.RealIP)
	r.Use(chimw.Recoverer)

	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})
	r.Method(http.MethodGet, "/metrics", s.metrics)

	r.Route("/api/payouts/v1", func(api chi.Router) {
		api.Use(requireIdentity)
		api.Get("/campaigns/{campaign_id}/ranking", s.handleGetRanking)
		api.Get("/users/{user_id}", s.handleGetAccount)
		api.Get("/transactions", s.handleListTransactions)

		api.Group(func(admin chi.Router) {
			admin.Use(requireRole(roleAdmin))
			admin.Get("/campaigns/{campaign_id}/payout-preview", s.handlePreviewPayout)
			admin.Post("/campaigns/{campaign_id}/payouts", s.handleExecutePayout)
			admin.Post("/payouts/run-all", s.handleExecuteAllPayouts)
			admin.Post("/campaigns/{campaign_id}/activate", s.handleChangeStatus(commands.StatusActionActivate))
			admin.Post("/campaigns/{campaign_id}/reject", s.handleChangeStatus(commands.StatusActionReject))
			admin.Post("/campaigns/{campaign_id}/finish", s.handleChangeStatus(commands.StatusActionFinish))
		})
	})
	return r
}

func (s *Server) handleGetRanking(w http.ResponseWriter, r *http.Request) {
	resp, err := s.payouts.Handler.GetRankingHandler(r.Context(), chi.URLParam(r, "campaign_id"))
	if err != nil {
		writePayoutDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handlePreviewPayout(w http.ResponseWriter, r *http.Request) {
	resp, err := s.payouts.Handler.PreviewPayoutHandler(r.Context(), chi.URLParam(r, "campaign_id"))
	if err != nil {
		writePayoutDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleExecutePayout(w http.ResponseWriter, r *http.Request) {
	var req payouthttp.ExecutePayoutRequest
	if !decodeOptionalJSON(w, r, &req) {
		return
	}
	resp, err := s.payouts.Handler.ExecutePayoutHandler(r.Context(), actorID(r), chi.URLParam(r, "campaign_id"), req)
	if err != nil && !payouterrors.IsNoOp(err) {
		writePayoutDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleExecuteAllPayouts(w http.ResponseWriter, r *http.Request) {
	var req payouthttp.ExecutePayoutRequest
	if !decodeOptionalJSON(w, r, &req) {
		return
	}
	resp, err := s.payouts.Handler.ExecuteAllPayoutsHandler(r.Context(), actorID(r), req)
	if err != nil {
		writePayoutDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleChangeStatus(action commands.ChangeStatusAction) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req payouthttp.StatusActionRequest
		if !decodeOptionalJSON(w, r, &req) {
			return
		}
		resp, err := s.payouts.Handler.ChangeStatusHandler(r.Context(), actorID(r), chi.URLParam(r, "campaign_id"), action, req)
		if err != nil {
			writePayoutDomainError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, resp)
	}
}

func (s *Server) handleListTransactions(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query()
	userID := strings.TrimSpace(query.Get("user_id"))
	if !isAdmin(r) {
		if userID != "" && userID != actorID(r) {
			writeError(w, http.StatusForbidden, "forbidden", "cannot read another user's ledger", false)
			return
		}
		userID = actorID(r)
	}
	limit := 0
	if raw := strings.TrimSpace(query.Get("limit")); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed < 0 {
			writeError(w, http.StatusBadRequest, "invalid_input", "limit must be a non-negative integer", false)
			return
		}
		limit = parsed
	}
	resp, err := s.payouts.Handler.ListTransactionsHandler(r.Context(), userID, query.Get("campaign_id"), limit)
	if err != nil {
		writePayoutDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleGetAccount(w http.ResponseWriter, r *http.Request) {
	userID := chi.URLParam(r, "user_id")
	if !isAdmin(r) && userID != actorID(r) {
		writeError(w, http.StatusForbidden, "forbidden", "cannot read another user's account", false)
		return
	}
	resp, err := s.payouts.Handler.GetAccountHandler(r.Context(), userID)
	if err != nil {
		writePayoutDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

func requireIdentity(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if actorID(r) == "" {
			writeError(w, http.StatusUnauthorized, "unauthorized", "missing X-User-Id", false)
			return
		}
		next.ServeHTTP(w, r)
	})
}

func requireRole(role string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if !strings.EqualFold(strings.TrimSpace(r.Header.Get("X-User-Role")), role) {
				writeError(w, http.StatusForbidden, "forbidden", "requires role "+role, false)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

func actorID(r *http.Request) string {
	return strings.TrimSpace(r.Header.Get("X-User-Id"))
}

func isAdmin(r *http.Request) bool {
	return strings.EqualFold(strings.TrimSpace(r.Header.Get("X-User-Role")), roleAdmin)
}

// decodeOptionalJSON accepts an empty body as the zero request.
func decodeOptionalJSON(w http.ResponseWriter, r *http.Request, target any) bool {
	if r.Body == nil || r.ContentLength == 0 {
		return true
	}
	if err := json.NewDecoder(r.Body).Decode(target); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_input", "invalid json body", false)
		return false
	}
	return true
}

func writePayoutDomainError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, payouterrors.ErrInvalidInput):
		writeError(w, http.StatusBadRequest, "invalid_input", err.Error(), false)
	case errors.Is(err, payouterrors.ErrCampaignNotFound):
		writeError(w, http.StatusNotFound, "campaign_not_found", err.Error(), false)
	case errors.Is(err, payouterrors.ErrUserNotFound):
		writeError(w, http.StatusNotFound, "user_not_found", err.Error(), false)
	case errors.Is(err, payouterrors.ErrMalformedCampaign):
		writeError(w, http.StatusUnprocessableEntity, "malformed_campaign", err.Error(), false)
	case errors.Is(err, payouterrors.ErrInvalidStateTransition):
		writeError(w, http.StatusConflict, "invalid_state_transition", err.Error(), false)
	case errors.Is(err, payouterrors.ErrInvalidCampaignState):
		writeError(w, http.StatusConflict, "campaign_not_payable", err.Error(), false)
	case errors.Is(err, payouterrors.ErrPayoutNotDue):
		writeError(w, http.StatusConflict, "payout_not_due", err.Error(), false)
	case errors.Is(err, payouterrors.ErrNoQualifyingViews):
		writeError(w, http.StatusUnprocessableEntity, "no_qualifying_views", err.Error(), false)
	case errors.Is(err, payouterrors.ErrConcurrentPayoutConflict):
		writeError(w, http.StatusConflict, "concurrent_payout_conflict", err.Error(), true)
	case errors.Is(err, payouterrors.ErrCommitFailure):
		writeError(w, http.StatusServiceUnavailable, "commit_failed", err.Error(), true)
	case errors.Is(err, payouterrors.ErrSnapshotUnavailable):
		writeError(w, http.StatusServiceUnavailable, "snapshot_unavailable", err.Error(), true)
	default:
		writeError(w, http.StatusInternalServerError, "internal_error", "internal server error", false)
	}
}

func writeError(w http.ResponseWriter, status int, code string, message string, retryable bool) {
	writeJSON(w, status, payouthttp.ErrorResponse{
		Code:      code,
		Message:   message,
		Retryable: retryable,
	})
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}
