package auth

import (
	"context"
	"crypto/subtle"
	"encoding/json"
	"net/http"
	"strings"
)

type contextKey string

const adminUserIDKey contextKey = "admin_user_id"

// AdminUserIDFromContext は context から操作中の管理者 ID を取得する
func AdminUserIDFromContext(ctx context.Context) (string, bool) {
	v, ok := ctx.Value(adminUserIDKey).(string)
	return v, ok
}

// WithAdminUserID は context に管理者 ID をセットする
func WithAdminUserID(ctx context.Context, userID string) context.Context {
	return context.WithValue(ctx, adminUserIDKey, userID)
}

// RequireAdmin は管理 API 用ミドルウェア。サービストークンを検証する。
// セッションベースの管理者認証は本体サイト側の責務で、このバックエンドは
// Authorization: Bearer <token> と X-Admin-User ヘッダのみを見る。
func RequireAdmin(adminToken string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token := strings.TrimPrefix(r.Header.Get("Authorization"), "Bearer ")
			if adminToken == "" ||
				subtle.ConstantTimeCompare([]byte(token), []byte(adminToken)) != 1 {
				w.Header().Set("Content-Type", "application/json")
				w.WriteHeader(http.StatusUnauthorized)
				_ = json.NewEncoder(w).Encode(map[string]string{"error": "unauthorized"})
				return
			}

			adminID := r.Header.Get("X-Admin-User")
			if adminID == "" {
				adminID = "admin"
			}
			ctx := WithAdminUserID(r.Context(), adminID)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}
