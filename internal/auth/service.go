// Package auth はSteam OpenID認証フローとセッション管理を提供する。
package auth

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"log/slog"
	"net/url"
	"time"

	"github.com/hitoshi/steamstats/internal/model"
	"github.com/hitoshi/steamstats/internal/repository"
)

// 認証フローの失敗理由。ハンドラーはこれらをリダイレクトの
// errorクエリパラメータに対応付ける。
var (
	// ErrInvalidAssertion はプロバイダーがOpenIDアサーションを拒否した場合のエラー。
	ErrInvalidAssertion = errors.New("openid assertion rejected by provider")
	// ErrPlayerNotFound はSteam APIが該当プレイヤーを返さない場合のエラー。
	ErrPlayerNotFound = errors.New("steam player not found")
	// ErrNoSession はセッションが存在しないか期限切れの場合のエラー。
	ErrNoSession = errors.New("session not found or expired")
)

// OpenIDProvider はOpenID認証プロバイダーのインターフェース。
type OpenIDProvider interface {
	// BuildLoginURL はプロバイダーへのログインリダイレクトURLを生成する。
	BuildLoginURL() (string, error)
	// Verify はコールバックパラメータをプロバイダーに再送して検証する。
	Verify(ctx context.Context, params url.Values) (bool, error)
}

// ProfileService はプロフィールキャッシュ操作のインターフェース。
// ログイン成功時のキャッシュウォームと、セッションからのプロフィール解決に使用する。
type ProfileService interface {
	// Refresh はSteam APIから最新プロフィールを取得してキャッシュを更新する。
	// 該当プレイヤーが存在しない場合はnilを返す。
	Refresh(ctx context.Context, steamID string) (*model.Player, error)
	// Player はキャッシュ経由でプロフィールを取得する（cache-aside）。
	Player(ctx context.Context, steamID string) (*model.Player, error)
}

// ServiceConfig は認証サービスの設定。
type ServiceConfig struct {
	SessionMaxAge int // セッション有効期間（秒）
}

// Service は認証に関するビジネスロジックを提供する。
type Service struct {
	openid      OpenIDProvider
	profiles    ProfileService
	sessionRepo repository.SessionRepository
	config      ServiceConfig
}

// NewService はServiceを生成する。
func NewService(
	openid OpenIDProvider,
	profiles ProfileService,
	sessionRepo repository.SessionRepository,
	config ServiceConfig,
) *Service {
	return &Service{
		openid:      openid,
		profiles:    profiles,
		sessionRepo: sessionRepo,
		config:      config,
	}
}

// LoginURL はOpenIDログインリダイレクトURLを生成する。
func (s *Service) LoginURL() (string, error) {
	return s.openid.BuildLoginURL()
}

// HandleCallback はOpenIDコールバックを処理し、セッションを発行する。
// 検証 → SteamID抽出 → プロフィール取得・キャッシュウォーム → セッション作成の
// 順に進み、どの段階の失敗かを区別可能なエラーで返す。
// 同じコールバックの再送は再度検証される（リプレイ防止はプロバイダーの責務）。
func (s *Service) HandleCallback(ctx context.Context, query url.Values) (*model.Session, error) {
	// 1. 署名付きアサーションをプロバイダーに再送して検証
	valid, err := s.openid.Verify(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("openid verification request failed: %w", err)
	}
	if !valid {
		return nil, ErrInvalidAssertion
	}

	// 2. claimed_idからSteamIDを抽出
	steamID, err := ExtractSteamID(query.Get("openid.claimed_id"))
	if err != nil {
		return nil, fmt.Errorf("failed to extract steam id: %w", err)
	}

	// 3. プロフィールを取得してキャッシュをウォームする
	player, err := s.profiles.Refresh(ctx, steamID)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch player profile: %w", err)
	}
	if player == nil {
		return nil, ErrPlayerNotFound
	}

	// 4. セッションを発行
	session, err := s.createSession(ctx, steamID)
	if err != nil {
		return nil, fmt.Errorf("failed to create session: %w", err)
	}

	slog.Info("user logged in",
		slog.String("steam_id", steamID),
		slog.String("persona_name", player.PersonaName),
	)

	return session, nil
}

// Logout はセッションを破棄する。
func (s *Service) Logout(ctx context.Context, sessionID string) error {
	if sessionID == "" {
		return fmt.Errorf("session ID is required")
	}

	if err := s.sessionRepo.DeleteByID(ctx, sessionID); err != nil {
		return fmt.Errorf("failed to delete session: %w", err)
	}

	slog.Info("user logged out", slog.String("session_id", sessionID))
	return nil
}

// CurrentPlayer はセッションから現在のプレイヤープロフィールを取得する。
// セッションが存在しないか期限切れの場合はErrNoSessionを返す。
// プロフィールはキャッシュ経由で解決される（期限切れならSteam APIから再取得）。
func (s *Service) CurrentPlayer(ctx context.Context, sessionID string) (*model.Player, error) {
	if sessionID == "" {
		return nil, ErrNoSession
	}

	session, err := s.sessionRepo.FindByID(ctx, sessionID)
	if err != nil {
		return nil, fmt.Errorf("failed to find session: %w", err)
	}
	if session == nil {
		return nil, ErrNoSession
	}

	player, err := s.profiles.Player(ctx, session.SteamID)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve player profile: %w", err)
	}
	if player == nil {
		return nil, ErrPlayerNotFound
	}

	return player, nil
}

// createSession はセッションを作成し永続化する。
func (s *Service) createSession(ctx context.Context, steamID string) (*model.Session, error) {
	sessionID, err := generateSessionID()
	if err != nil {
		return nil, fmt.Errorf("failed to generate session ID: %w", err)
	}

	session := &model.Session{
		ID:        sessionID,
		SteamID:   steamID,
		ExpiresAt: time.Now().Add(time.Duration(s.config.SessionMaxAge) * time.Second),
		CreatedAt: time.Now(),
	}

	if err := s.sessionRepo.Create(ctx, session); err != nil {
		return nil, fmt.Errorf("failed to save session: %w", err)
	}

	return session, nil
}

// generateSessionID は暗号的に安全なセッションIDを生成する。
func generateSessionID() (string, error) {
	b := make([]byte, 32)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return hex.EncodeToString(b), nil
}
