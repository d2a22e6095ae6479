// Package profile はプレイヤープロフィールのキャッシュ付き取得を提供する。
package profile

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/hitoshi/steamstats/internal/model"
	"github.com/hitoshi/steamstats/internal/repository"
)

// SummaryFetcher はSteam APIからプロフィールを取得するインターフェース。
type SummaryFetcher interface {
	// GetPlayerSummary は指定SteamIDのプロフィールを取得する。
	// 該当プレイヤーが存在しない場合はnilを返す。
	GetPlayerSummary(ctx context.Context, steamID string) (*model.Player, error)
}

// CacheRecorder はキャッシュのヒット・ミスを記録するインターフェース。
type CacheRecorder interface {
	RecordCacheHit(resource string)
	RecordCacheMiss(resource string)
}

// cacheResource はメトリクスのresourceラベル値。
const cacheResource = "profile"

// Service はプロフィール取得のビジネスロジックを提供する。
// キャッシュ（Postgres）を先に参照し、TTLを超過したレコードだけ
// Steam APIから再取得する（cache-aside）。
type Service struct {
	fetcher    SummaryFetcher
	playerRepo repository.PlayerRepository
	metrics    CacheRecorder
	logger     *slog.Logger
	ttl        time.Duration
}

// NewService はServiceを生成する。
func NewService(
	fetcher SummaryFetcher,
	playerRepo repository.PlayerRepository,
	metrics CacheRecorder,
	logger *slog.Logger,
	ttl time.Duration,
) *Service {
	return &Service{
		fetcher:    fetcher,
		playerRepo: playerRepo,
		metrics:    metrics,
		logger:     logger,
		ttl:        ttl,
	}
}

// Player はプロフィールを取得する。キャッシュが新鮮（cached_atからTTL未満）なら
// そのまま返し、期限切れまたは未キャッシュならSteam APIから再取得して上書きする。
// 該当プレイヤーが存在しない場合は(nil, nil)を返す。
func (s *Service) Player(ctx context.Context, steamID string) (*model.Player, error) {
	cached, err := s.playerRepo.FindBySteamID(ctx, steamID)
	if err != nil {
		return nil, fmt.Errorf("failed to read profile cache: %w", err)
	}

	if cached != nil && time.Since(cached.CachedAt) < s.ttl {
		s.metrics.RecordCacheHit(cacheResource)
		return cached, nil
	}

	s.metrics.RecordCacheMiss(cacheResource)
	return s.Refresh(ctx, steamID)
}

// Refresh はキャッシュの鮮度に関わらずSteam APIからプロフィールを取得し、
// キャッシュレコードを丸ごと上書きする。同時リフレッシュは後勝ちで上書きされる。
// 該当プレイヤーが存在しない場合は(nil, nil)を返し、キャッシュは変更しない。
func (s *Service) Refresh(ctx context.Context, steamID string) (*model.Player, error) {
	player, err := s.fetcher.GetPlayerSummary(ctx, steamID)
	if err != nil {
		return nil, err
	}
	if player == nil {
		return nil, nil
	}

	player.CachedAt = time.Now()

	if err := s.playerRepo.Upsert(ctx, player); err != nil {
		return nil, fmt.Errorf("failed to write profile cache: %w", err)
	}

	s.logger.Debug("profile cache refreshed",
		slog.String("steam_id", steamID),
		slog.String("persona_name", player.PersonaName),
	)

	return player, nil
}
