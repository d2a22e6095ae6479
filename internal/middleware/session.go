// Package middleware はHTTPミドルウェアを提供する。
package middleware

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/hitoshi/steamstats/internal/model"
)

// SessionCookieName はセッションIDを格納するCookieの名前。
const SessionCookieName = "steam_session"

// contextKey はコンテキストに値を格納するための型安全なキー。
type contextKey string

// steamIDContextKey はリクエストコンテキストにSteamIDを格納するためのキー。
var steamIDContextKey = contextKey("steam_id")

// SessionFinder はセッションの検索に必要なインターフェース。
// repository.SessionRepositoryの部分集合として定義する。
type SessionFinder interface {
	FindByID(ctx context.Context, id string) (*model.Session, error)
}

// NewSessionMiddleware はHTTP Only Cookieからセッションを読み取り、
// 有効性を検証するミドルウェアを返す。
// 認証済みSteamIDをリクエストコンテキストに注入する。
// 未認証リクエストには401 Unauthorizedを返す。
func NewSessionMiddleware(sessionFinder SessionFinder) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			// 1. CookieからセッションIDを取得
			cookie, err := r.Cookie(SessionCookieName)
			if err != nil || cookie.Value == "" {
				WriteErrorResponse(w, http.StatusUnauthorized, model.NewUnauthenticatedError())
				return
			}

			// 2. セッションの有効性を検証（期限切れはnil）
			session, err := sessionFinder.FindByID(r.Context(), cookie.Value)
			if err != nil {
				slog.Error("failed to find session",
					slog.String("error", err.Error()),
				)
				WriteErrorResponse(w, http.StatusUnauthorized, model.NewUnauthenticatedError())
				return
			}
			if session == nil {
				WriteErrorResponse(w, http.StatusUnauthorized, model.NewUnauthenticatedError())
				return
			}

			// 3. 認証済みSteamIDをコンテキストに注入
			ctx := context.WithValue(r.Context(), steamIDContextKey, session.SteamID)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// SteamIDFromContext はリクエストコンテキストからSteamIDを取得する。
// セッションミドルウェアを通過したリクエストでのみ有効。
func SteamIDFromContext(ctx context.Context) (string, error) {
	steamID, ok := ctx.Value(steamIDContextKey).(string)
	if !ok || steamID == "" {
		return "", fmt.Errorf("steam ID not found in context")
	}
	return steamID, nil
}

// ContextWithSteamID はコンテキストにSteamIDを注入する。
// テストやミドルウェア以外のコンテキスト生成で使用する。
func ContextWithSteamID(ctx context.Context, steamID string) context.Context {
	return context.WithValue(ctx, steamIDContextKey, steamID)
}
