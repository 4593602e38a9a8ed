package handlers

import (
	"crypto/hmac"
	"crypto/rand"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/kaibayosung/ohsung-system/src/logger"
)

const csrfCookieName = "_ohsung_csrf"

// NewCSRFTokenHandler issues a signed double-submit token as both a cookie
// and a response header.
func NewCSRFTokenHandler(csrfKey []byte) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		logger.L.Debug("Generating CSRF token", "remoteAddr", r.RemoteAddr)
		token := signCSRFToken(csrfKey, generateRandomToken())

		http.SetCookie(w, &http.Cookie{
			Name:     csrfCookieName,
			Value:    token,
			Path:     "/",
			SameSite: http.SameSiteLaxMode,
			HttpOnly: true,
			Secure:   r.TLS != nil,
			MaxAge:   3600,
		})

		w.Header().Set("Content-Type", "application/json")
		w.Header().Set("X-CSRF-Token", token)

		json.NewEncoder(w).Encode(map[string]string{
			"csrfToken": token,
		})
	}
}

func generateRandomToken() string {
	b := make([]byte, 32)
	_, err := rand.Read(b)
	if err != nil {
		logger.L.Error("Error generating random bytes for CSRF token", "error", err)
		return fmt.Sprintf("%d", time.Now().UnixNano())
	}
	return base64.RawURLEncoding.EncodeToString(b)
}

func csrfSignature(key []byte, nonce string) string {
	mac := hmac.New(sha256.New, key)
	mac.Write([]byte(nonce))
	return base64.RawURLEncoding.EncodeToString(mac.Sum(nil))
}

func signCSRFToken(key []byte, nonce string) string {
	return nonce + "." + csrfSignature(key, nonce)
}

func validCSRFToken(key []byte, token string) bool {
	nonce, sig, ok := strings.Cut(token, ".")
	if !ok || nonce == "" {
		return false
	}
	return hmac.Equal([]byte(sig), []byte(csrfSignature(key, nonce)))
}

func CSRFMiddleware(csrfKey []byte) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			switch r.Method {
			case http.MethodGet, http.MethodHead, http.MethodOptions:
				next.ServeHTTP(w, r)
				return
			}

			headerToken := r.Header.Get("X-CSRF-Token")
			cookie, errCookie := r.Cookie(csrfCookieName)

			if headerToken != "" && errCookie == nil &&
				subtle.ConstantTimeCompare([]byte(headerToken), []byte(cookie.Value)) == 1 &&
				validCSRFToken(csrfKey, headerToken) {
				next.ServeHTTP(w, r)
				return
			}

			var cookieErrorForLog interface{}
			if errCookie != nil {
				cookieErrorForLog = errCookie.Error()
			}

			logger.FromContext(r.Context()).Warn("CSRF Validation Failed",
				slog.String("method", r.Method),
				slog.String("url", r.URL.String()),
				slog.Bool("headerTokenExists", headerToken != ""),
				slog.Any("cookieError", cookieErrorForLog),
				slog.String("origin", r.Header.Get("Origin")),
			)

			http.Error(w, "CSRF token validation failed", http.StatusForbidden)
		})
	}
}
