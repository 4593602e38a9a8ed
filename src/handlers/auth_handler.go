// src/handlers/auth_handler.go
package handlers

import (
	"encoding/json"
	"errors"
	"net"
	"net/http"
	"strconv"
	"strings"

	"github.com/kaibayosung/ohsung-system/src/logger"
	"github.com/kaibayosung/ohsung-system/src/security"
	"github.com/kaibayosung/ohsung-system/src/security/validation"
	"github.com/kaibayosung/ohsung-system/src/services"
	"github.com/kaibayosung/ohsung-system/src/utils"
)

type AuthHandler struct {
	authService *security.AuthService
	accessLogs  services.AccessLogService
}

func NewAuthHandler(authService *security.AuthService, accessLogs services.AccessLogService) *AuthHandler {
	return &AuthHandler{authService: authService, accessLogs: accessLogs}
}

// clientIP prefers the first X-Forwarded-For hop set by the reverse proxy.
func clientIP(r *http.Request) string {
	if fwd := r.Header.Get("X-Forwarded-For"); fwd != "" {
		first, _, _ := strings.Cut(fwd, ",")
		if ip := strings.TrimSpace(first); ip != "" {
			return ip
		}
	}
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}

func (h *AuthHandler) LoginHandler(w http.ResponseWriter, r *http.Request) {
	ctxLogger := logger.FromContext(r.Context())

	var credentials struct {
		Email    string `json:"email"`
		Password string `json:"password"`
	}
	if err := json.NewDecoder(r.Body).Decode(&credentials); err != nil {
		ctxLogger.Warn("Invalid request body for login", "error", err)
		utils.SendJSONError(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	credentials.Email = strings.ToLower(validation.SanitizeText(strings.TrimSpace(credentials.Email)))
	if err := validation.ValidateEmail(credentials.Email); err != nil {
		utils.SendJSONError(w, "Invalid email or password", http.StatusUnauthorized)
		return
	}

	email, err := h.authService.Authenticate(credentials.Email, credentials.Password)
	if err != nil {
		if errors.Is(err, security.ErrInvalidCredentials) {
			ctxLogger.Warn("Login failed", "email", credentials.Email)
		} else {
			ctxLogger.Error("Login check failed", "error", err)
		}
		utils.SendJSONError(w, "Invalid email or password", http.StatusUnauthorized)
		return
	}

	accessToken, err := h.authService.GenerateToken(email)
	if err != nil {
		ctxLogger.Error("Failed to generate access token", "email", email, "error", err)
		utils.SendJSONError(w, "Failed to generate access token", http.StatusInternalServerError)
		return
	}

	// The audit trail is best effort; a store outage must not lock operators out.
	if err := h.accessLogs.Record(r.Context(), email, clientIP(r)); err != nil {
		ctxLogger.Error("Failed to record access log", "email", email, "error", err)
	}

	ctxLogger.Info("Operator login successful", "email", email)
	utils.SendJSON(w, http.StatusOK, map[string]interface{}{
		"access_token": accessToken,
		"email":        email,
	})
}

// AuthMiddleware requires a valid bearer token and puts the operator's email
// into the request context and logger.
func (h *AuthHandler) AuthMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ctxLogger := logger.FromContext(r.Context())

		authHeader := r.Header.Get("Authorization")
		if authHeader == "" {
			ctxLogger.Debug("AuthMiddleware: Authorization header missing", "path", r.URL.Path)
			utils.SendJSONError(w, "Authorization header required", http.StatusUnauthorized)
			return
		}

		tokenString := strings.TrimSpace(strings.TrimPrefix(authHeader, "Bearer "))
		if tokenString == "" {
			utils.SendJSONError(w, "Malformed token", http.StatusUnauthorized)
			return
		}

		operator, err := h.authService.ValidateToken(tokenString)
		if err != nil {
			ctxLogger.Warn("AuthMiddleware: Token validation failed", "path", r.URL.Path, "error", err)
			utils.SendJSONError(w, "Invalid or expired token", http.StatusUnauthorized)
			return
		}

		next.ServeHTTP(w, r.WithContext(WithOperator(r.Context(), operator)))
	})
}

func (h *AuthHandler) HandleGetAccessLogs(w http.ResponseWriter, r *http.Request) {
	limit := services.DefaultAccessLogLimit
	if s := r.URL.Query().Get("limit"); s != "" {
		n, err := strconv.Atoi(s)
		if err != nil || n <= 0 {
			utils.SendJSONError(w, "limit must be a positive integer", http.StatusBadRequest)
			return
		}
		limit = n
	}
	logs, err := h.accessLogs.Latest(r.Context(), limit)
	if err != nil {
		logger.FromContext(r.Context()).Error("Failed to list access logs", "error", err)
		utils.SendJSONError(w, "Failed to list access logs", http.StatusInternalServerError)
		return
	}
	utils.SendJSON(w, http.StatusOK, logs)
}
