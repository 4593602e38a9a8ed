// src/handlers/middleware.go
package handlers

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/google/uuid"
	"github.com/kaibayosung/ohsung-system/src/logger"
)

type contextKey string

const (
	requestIDContextKey contextKey = "requestID"
	operatorContextKey  contextKey = "operator"
)

// ContextualLoggerMiddleware tags every request's logger with a request ID.
func ContextualLoggerMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requestID := uuid.New().String()

		ctxLogger := logger.L.With(slog.String("requestID", requestID))

		ctx := logger.ToContext(r.Context(), ctxLogger)
		ctx = context.WithValue(ctx, requestIDContextKey, requestID)

		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// GetOperatorFromContext returns the signed-in operator's email.
func GetOperatorFromContext(ctx context.Context) (string, bool) {
	operator, ok := ctx.Value(operatorContextKey).(string)
	return operator, ok && operator != ""
}

// WithOperator stores the operator email the way AuthMiddleware does.
func WithOperator(ctx context.Context, operator string) context.Context {
	enriched := logger.FromContext(ctx).With(slog.String("operator", operator))
	ctx = logger.ToContext(ctx, enriched)
	return context.WithValue(ctx, operatorContextKey, operator)
}
