package handlers

import (
	"context"
	"errors"
	"net/http"

	"github.com/sirupsen/logrus"

	"github.com/hikage/banken/internal/entities"
	"github.com/hikage/banken/internal/services/authorization"
)

type contextKey string

const (
	tenantIDKey contextKey = "tenant_id"
	userIDKey   contextKey = "user_id"
)

// WithIdentity returns a context carrying the authenticated tenant and user.
// The authentication layer upstream of this package is expected to call it.
func WithIdentity(ctx context.Context, tenantID, userID string) context.Context {
	ctx = context.WithValue(ctx, tenantIDKey, tenantID)
	return context.WithValue(ctx, userIDKey, userID)
}

// IdentityFromContext extracts the authenticated tenant and user.
func IdentityFromContext(ctx context.Context) (tenantID, userID string, ok bool) {
	tenantID, _ = ctx.Value(tenantIDKey).(string)
	userID, _ = ctx.Value(userIDKey).(string)
	return tenantID, userID, tenantID != "" && userID != ""
}

// RequirePermission returns middleware that denies the request unless the
// authenticated user holds the given permission. Missing identity is a 401,
// a deny decision is a 403, and a resolution failure is a 500: the engine
// never converts an infrastructure error into a deny.
func RequirePermission(resolver authorization.ResolverInterface, permissionCode string, logger *logrus.Entry) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
			tenantID, userID, ok := IdentityFromContext(req.Context())
			if !ok {
				writeJSON(w, http.StatusUnauthorized, errorResponse{Error: "authentication required"})
				return
			}

			decision, err := resolver.Authorize(req.Context(), tenantID, userID, permissionCode, requestContext(req))
			if err != nil {
				if errors.Is(err, entities.ErrInvalidPermissionCode) {
					writeJSON(w, http.StatusBadRequest, errorResponse{Error: err.Error()})
					return
				}
				logger.WithError(err).Error("authorization resolution failed")
				writeJSON(w, http.StatusInternalServerError, errorResponse{Error: "authorization resolution failed"})
				return
			}

			if !decision.Allowed {
				writeJSON(w, http.StatusForbidden, errorResponse{Error: "permission denied: " + decision.Reason})
				return
			}

			next.ServeHTTP(w, req)
		})
	}
}

// requestContext builds the condition-evaluation context from the request.
func requestContext(req *http.Request) map[string]interface{} {
	return map[string]interface{}{
		"method": req.Method,
		"path":   req.URL.Path,
	}
}
