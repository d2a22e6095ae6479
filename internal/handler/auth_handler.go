// Package handler はHTTPハンドラーを提供する。
package handler

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"net/url"

	"github.com/hitoshi/steamstats/internal/auth"
	"github.com/hitoshi/steamstats/internal/middleware"
	"github.com/hitoshi/steamstats/internal/model"
)

// AuthServiceInterface は認証ハンドラーが必要とするサービスインターフェース。
type AuthServiceInterface interface {
	LoginURL() (string, error)
	HandleCallback(ctx context.Context, query url.Values) (*model.Session, error)
	Logout(ctx context.Context, sessionID string) error
	CurrentPlayer(ctx context.Context, sessionID string) (*model.Player, error)
}

// LoginRecorder はログイン成否のメトリクス記録インターフェース。
type LoginRecorder interface {
	RecordLoginSuccess()
	RecordLoginFailure(reason string)
}

// AuthHandlerConfig は認証ハンドラーの設定。
type AuthHandlerConfig struct {
	BaseURL       string
	CookieDomain  string
	CookieSecure  bool
	SessionMaxAge int // セッションCookieの有効期間（秒）
}

// AuthHandler はSteam OpenID認証関連のHTTPハンドラー。
type AuthHandler struct {
	service AuthServiceInterface
	metrics LoginRecorder
	config  AuthHandlerConfig
}

// NewAuthHandler はAuthHandlerを生成する。
func NewAuthHandler(service AuthServiceInterface, metrics LoginRecorder, config AuthHandlerConfig) *AuthHandler {
	return &AuthHandler{
		service: service,
		metrics: metrics,
		config:  config,
	}
}

// Login はSteam OpenIDフローを開始する。
// GET /auth/login
func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	loginURL, err := h.service.LoginURL()
	if err != nil {
		slog.Error("failed to build login url", slog.String("error", err.Error()))
		middleware.WriteInternalServerError(w)
		return
	}

	http.Redirect(w, r, loginURL, http.StatusFound)
}

// Callback はSteamからのOpenIDコールバックを処理する。
// GET /auth/callback?openid.mode=id_res&openid.claimed_id=...
// 失敗時はフロントエンドに?error=<reason>付きでリダイレクトする。
func (h *AuthHandler) Callback(w http.ResponseWriter, r *http.Request) {
	session, err := h.service.HandleCallback(r.Context(), r.URL.Query())
	if err != nil {
		reason := callbackErrorReason(err)
		slog.Warn("steam login failed",
			slog.String("reason", reason),
			slog.String("error", err.Error()),
		)
		h.metrics.RecordLoginFailure(reason)
		http.Redirect(w, r, h.redirectURL("error", reason), http.StatusFound)
		return
	}

	// セッションCookieを設定（HTTP Only）
	http.SetCookie(w, &http.Cookie{
		Name:     middleware.SessionCookieName,
		Value:    session.ID,
		Path:     "/",
		Domain:   h.config.CookieDomain,
		MaxAge:   h.config.SessionMaxAge,
		HttpOnly: true,
		Secure:   h.config.CookieSecure,
		SameSite: http.SameSiteLaxMode,
	})

	h.metrics.RecordLoginSuccess()
	http.Redirect(w, r, h.redirectURL("login", "success"), http.StatusFound)
}

// Logout はセッションを破棄する。
// POST /auth/logout
func (h *AuthHandler) Logout(w http.ResponseWriter, r *http.Request) {
	cookie, err := r.Cookie(middleware.SessionCookieName)
	if err == nil && cookie.Value != "" {
		// セッションをDBから削除
		if logoutErr := h.service.Logout(r.Context(), cookie.Value); logoutErr != nil {
			slog.Error("failed to logout", slog.String("error", logoutErr.Error()))
			// ログアウト失敗してもCookieはクリアする
		}
	}

	// セッションCookieをクリア
	http.SetCookie(w, &http.Cookie{
		Name:     middleware.SessionCookieName,
		Value:    "",
		Path:     "/",
		Domain:   h.config.CookieDomain,
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   h.config.CookieSecure,
		SameSite: http.SameSiteLaxMode,
	})

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]bool{"success": true})
}

// Me は現在のログインユーザーのプロフィールを返す。
// GET /auth/me
func (h *AuthHandler) Me(w http.ResponseWriter, r *http.Request) {
	cookie, err := r.Cookie(middleware.SessionCookieName)
	if err != nil || cookie.Value == "" {
		writeUnauthenticatedMe(w)
		return
	}

	player, err := h.service.CurrentPlayer(r.Context(), cookie.Value)
	if err != nil {
		if !errors.Is(err, auth.ErrNoSession) {
			slog.Error("failed to resolve current player", slog.String("error", err.Error()))
		}
		writeUnauthenticatedMe(w)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]any{
		"authenticated": true,
		"player":        toPlayerResponse(player),
	})
}

// redirectURL はフロントエンドへのリダイレクトURLにクエリパラメータを付与する。
func (h *AuthHandler) redirectURL(key, value string) string {
	base, err := url.Parse(h.config.BaseURL)
	if err != nil {
		return h.config.BaseURL
	}

	query := base.Query()
	query.Set(key, value)
	base.RawQuery = query.Encode()
	return base.String()
}

// callbackErrorReason は認証フローの失敗をリダイレクト用のエラーコードに対応付ける。
func callbackErrorReason(err error) string {
	switch {
	case errors.Is(err, auth.ErrInvalidAssertion):
		return model.CallbackErrorInvalidResponse
	case errors.Is(err, auth.ErrMalformedClaimedID):
		return model.CallbackErrorNoSteamID
	case errors.Is(err, auth.ErrPlayerNotFound):
		return model.CallbackErrorPlayerNotFound
	default:
		return model.CallbackErrorAuthFailed
	}
}

// writeUnauthenticatedMe は未認証の/auth/meレスポンスを書き込む。
func writeUnauthenticatedMe(w http.ResponseWriter) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusUnauthorized)
	json.NewEncoder(w).Encode(map[string]any{"authenticated": false})
}
