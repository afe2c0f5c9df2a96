// Package middleware содержит HTTP middleware сервиса маркетплейса.
package middleware

import (
	"context"
	"net/http"
	"strings"

	"github.com/mmeshcher/marketplace-system/internal/model"
	"github.com/mmeshcher/marketplace-system/internal/token"
)

type contextKey string

const (
	userIDKey   contextKey = "userID"
	userTypeKey contextKey = "userType"
)

// AuthMiddleware выполняет проверку аутентификации по Bearer-токену
// в заголовке Authorization.
type AuthMiddleware struct {
	tokens *token.Manager
}

// NewAuthMiddleware создаёт middleware аутентификации с указанным менеджером токенов.
func NewAuthMiddleware(tokens *token.Manager) *AuthMiddleware {
	return &AuthMiddleware{tokens: tokens}
}

// Middleware проверяет access-токен и добавляет идентификатор и роль
// пользователя в контекст запроса.
func (a *AuthMiddleware) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		raw, ok := bearerToken(r)
		if !ok {
			unauthorized(w)
			return
		}

		claims, err := a.tokens.ParseAccess(raw)
		if err != nil {
			unauthorized(w)
			return
		}

		ctx := context.WithValue(r.Context(), userIDKey, claims.UserID)
		ctx = context.WithValue(ctx, userTypeKey, model.UserType(claims.UserType))
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func bearerToken(r *http.Request) (string, bool) {
	header := r.Header.Get("Authorization")
	if header == "" {
		return "", false
	}

	parts := strings.SplitN(header, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") || parts[1] == "" {
		return "", false
	}

	return parts[1], true
}

func unauthorized(w http.ResponseWriter) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusUnauthorized)
	_, _ = w.Write([]byte(`{"error":{"kind":"auth_error","message":"missing or invalid access token"}}`))
}

// GetUserIDFromContext извлекает идентификатор пользователя из контекста запроса.
func GetUserIDFromContext(ctx context.Context) (int64, bool) {
	id, ok := ctx.Value(userIDKey).(int64)
	return id, ok
}

// GetUserTypeFromContext извлекает роль пользователя из контекста запроса.
func GetUserTypeFromContext(ctx context.Context) (model.UserType, bool) {
	t, ok := ctx.Value(userTypeKey).(model.UserType)
	return t, ok
}
