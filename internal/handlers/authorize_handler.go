package handlers

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/sirupsen/logrus"

	"github.com/hikage/banken/internal/entities"
	"github.com/hikage/banken/internal/services/authorization"
)

// DecisionRecorder receives every decision for instrumentation.
// Satisfied by metrics.PrometheusExporter.
type DecisionRecorder interface {
	RecordDecision(allowed bool, matchedVia string)
}

// AuthorizeHandler exposes the resolver's decision function over HTTP.
type AuthorizeHandler struct {
	resolver authorization.ResolverInterface
	recorder DecisionRecorder
	logger   *logrus.Entry
}

// NewAuthorizeHandler creates an AuthorizeHandler. recorder may be nil when
// metrics are disabled.
func NewAuthorizeHandler(resolver authorization.ResolverInterface, recorder DecisionRecorder, logger *logrus.Entry) *AuthorizeHandler {
	return &AuthorizeHandler{
		resolver: resolver,
		recorder: recorder,
		logger:   logger,
	}
}

// Routes mounts the handler's endpoints on a chi router.
func (h *AuthorizeHandler) Routes(r chi.Router) {
	r.Post("/v1/authorize", h.Authorize)
	r.Get("/healthz", h.Health)
}

// authorizeRequest is the wire form of one authorization check.
type authorizeRequest struct {
	TenantID   string                 `json:"tenant_id"`
	UserID     string                 `json:"user_id"`
	Permission string                 `json:"permission"`
	Context    map[string]interface{} `json:"context,omitempty"`
}

type errorResponse struct {
	Error string `json:"error"`
}

// Authorize handles POST /v1/authorize. A malformed permission code is a 400;
// a repository failure is a 500 so the caller can apply its own fail-open or
// fail-closed policy. A deny is a successful 200 response.
func (h *AuthorizeHandler) Authorize(w http.ResponseWriter, req *http.Request) {
	var body authorizeRequest
	if err := json.NewDecoder(req.Body).Decode(&body); err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "invalid JSON body"})
		return
	}
	if body.TenantID == "" || body.UserID == "" || body.Permission == "" {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "tenant_id, user_id, and permission are required"})
		return
	}

	decision, err := h.resolver.Authorize(req.Context(), body.TenantID, body.UserID, body.Permission, body.Context)
	if err != nil {
		if errors.Is(err, entities.ErrInvalidPermissionCode) {
			writeJSON(w, http.StatusBadRequest, errorResponse{Error: err.Error()})
			return
		}
		h.logger.WithError(err).Error("authorization resolution failed")
		writeJSON(w, http.StatusInternalServerError, errorResponse{Error: "authorization resolution failed"})
		return
	}

	if h.recorder != nil {
		h.recorder.RecordDecision(decision.Allowed, decision.MatchedVia)
	}

	writeJSON(w, http.StatusOK, decision)
}

// Health handles GET /healthz.
func (h *AuthorizeHandler) Health(w http.ResponseWriter, req *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func writeJSON(w http.ResponseWriter, status int, payload interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}
