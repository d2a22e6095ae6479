// Package library はゲームライブラリのキャッシュ付き取得と集計を提供する。
package library

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"time"

	"github.com/hitoshi/steamstats/internal/model"
	"github.com/hitoshi/steamstats/internal/repository"
)

// LibraryFetcher はSteam APIから所有ゲーム一覧を取得するインターフェース。
type LibraryFetcher interface {
	// GetOwnedGames は指定SteamIDの全所有ゲームを取得する。
	// ライブラリが空でもnilではなく空スライスを返す。
	GetOwnedGames(ctx context.Context, steamID string) ([]model.Game, error)
}

// CacheRecorder はキャッシュのヒット・ミスを記録するインターフェース。
type CacheRecorder interface {
	RecordCacheHit(resource string)
	RecordCacheMiss(resource string)
}

// cacheResource はメトリクスのresourceラベル値。
const cacheResource = "library"

// Service はゲームライブラリのビジネスロジックを提供する。
// ライブラリ全体をキャッシュし、直近プレイの抽出や並べ替えは
// キャッシュ済みライブラリからメモリ上で行う。
type Service struct {
	fetcher  LibraryFetcher
	gameRepo repository.GameRepository
	metrics  CacheRecorder
	logger   *slog.Logger
	ttl      time.Duration
}

// NewService はServiceを生成する。
func NewService(
	fetcher LibraryFetcher,
	gameRepo repository.GameRepository,
	metrics CacheRecorder,
	logger *slog.Logger,
	ttl time.Duration,
) *Service {
	return &Service{
		fetcher:  fetcher,
		gameRepo: gameRepo,
		metrics:  metrics,
		logger:   logger,
		ttl:      ttl,
	}
}

// OwnedGames は総プレイ時間の降順（同値はAppID昇順）でゲーム一覧を返す。
// limitが正の場合は先頭limit件に切り詰める。0以下は全件。
func (s *Service) OwnedGames(ctx context.Context, steamID string, limit int) ([]model.Game, error) {
	games, err := s.snapshot(ctx, steamID)
	if err != nil {
		return nil, err
	}

	sorted := make([]model.Game, len(games))
	copy(sorted, games)
	sort.SliceStable(sorted, func(i, j int) bool {
		if sorted[i].PlaytimeForever != sorted[j].PlaytimeForever {
			return sorted[i].PlaytimeForever > sorted[j].PlaytimeForever
		}
		return sorted[i].AppID < sorted[j].AppID
	})

	return truncate(sorted, limit), nil
}

// RecentGames は直近2週間にプレイ実績のあるゲームを、直近プレイ時間の
// 降順（同値はAppID昇順）で返す。直近プレイ時間が未報告または0分の
// ゲームは含めない。limitが正の場合は先頭limit件に切り詰める。
// 別途Steam APIを呼ばず、キャッシュ済みライブラリから導出する。
func (s *Service) RecentGames(ctx context.Context, steamID string, limit int) ([]model.Game, error) {
	games, err := s.snapshot(ctx, steamID)
	if err != nil {
		return nil, err
	}

	recent := make([]model.Game, 0, len(games))
	for _, g := range games {
		if g.RecentPlaytime() > 0 {
			recent = append(recent, g)
		}
	}

	sort.SliceStable(recent, func(i, j int) bool {
		if recent[i].RecentPlaytime() != recent[j].RecentPlaytime() {
			return recent[i].RecentPlaytime() > recent[j].RecentPlaytime()
		}
		return recent[i].AppID < recent[j].AppID
	})

	return truncate(recent, limit), nil
}

// Refresh はキャッシュの鮮度に関わらずSteam APIからライブラリを取得し、
// レコードを丸ごと入れ替える。同時リフレッシュは後勝ちで上書きされる。
func (s *Service) Refresh(ctx context.Context, steamID string) ([]model.Game, error) {
	games, err := s.fetcher.GetOwnedGames(ctx, steamID)
	if err != nil {
		return nil, err
	}

	fetchedAt := time.Now()
	for i := range games {
		games[i].CachedAt = fetchedAt
	}

	if err := s.gameRepo.ReplaceLibrary(ctx, steamID, games, fetchedAt); err != nil {
		return nil, fmt.Errorf("failed to write library cache: %w", err)
	}

	s.logger.Debug("library cache refreshed",
		slog.String("steam_id", steamID),
		slog.Int("game_count", len(games)),
	)

	return games, nil
}

// snapshot はキャッシュ済みライブラリを返す。新鮮（fetched_atからTTL未満）なら
// そのまま、期限切れまたは未キャッシュならSteam APIから再取得する。
// ゲーム0件のライブラリも有効なキャッシュとして扱い、TTL内は再取得しない。
func (s *Service) snapshot(ctx context.Context, steamID string) ([]model.Game, error) {
	record, err := s.gameRepo.FindLibraryBySteamID(ctx, steamID)
	if err != nil {
		return nil, fmt.Errorf("failed to read library cache: %w", err)
	}

	if record != nil && time.Since(record.FetchedAt) < s.ttl {
		s.metrics.RecordCacheHit(cacheResource)
		return record.Games, nil
	}

	s.metrics.RecordCacheMiss(cacheResource)
	return s.Refresh(ctx, steamID)
}

func truncate(games []model.Game, limit int) []model.Game {
	if limit > 0 && limit < len(games) {
		return games[:limit]
	}
	return games
}
