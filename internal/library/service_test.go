package library

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/hitoshi/steamstats/internal/model"
	"github.com/hitoshi/steamstats/internal/repository"
)

// mockLibraryFetcher はテスト用のLibraryFetcherモック。
type mockLibraryFetcher struct {
	getOwnedGamesFunc func(ctx context.Context, steamID string) ([]model.Game, error)
	calls             int
}

func (m *mockLibraryFetcher) GetOwnedGames(ctx context.Context, steamID string) ([]model.Game, error) {
	m.calls++
	return m.getOwnedGamesFunc(ctx, steamID)
}

// mockGameRepo はテスト用のGameRepositoryモック。
type mockGameRepo struct {
	findLibraryBySteamIDFunc func(ctx context.Context, steamID string) (*repository.LibraryRecord, error)
	replaceLibraryFunc       func(ctx context.Context, steamID string, games []model.Game, fetchedAt time.Time) error
	deleteBySteamIDFunc      func(ctx context.Context, steamID string) error
}

func (m *mockGameRepo) FindLibraryBySteamID(ctx context.Context, steamID string) (*repository.LibraryRecord, error) {
	return m.findLibraryBySteamIDFunc(ctx, steamID)
}

func (m *mockGameRepo) ReplaceLibrary(ctx context.Context, steamID string, games []model.Game, fetchedAt time.Time) error {
	return m.replaceLibraryFunc(ctx, steamID, games, fetchedAt)
}

func (m *mockGameRepo) DeleteBySteamID(ctx context.Context, steamID string) error {
	return m.deleteBySteamIDFunc(ctx, steamID)
}

// mockCacheRecorder はテスト用のCacheRecorderモック。
type mockCacheRecorder struct {
	hits   int
	misses int
}

func (m *mockCacheRecorder) RecordCacheHit(resource string)  { m.hits++ }
func (m *mockCacheRecorder) RecordCacheMiss(resource string) { m.misses++ }

func testLogger() *slog.Logger {
	return slog.New(slog.NewJSONHandler(io.Discard, nil))
}

const testSteamID = "76561198012345678"

func intPtr(v int) *int { return &v }

// freshRecord はTTL内のキャッシュレコードを作る。
func freshRecord(games []model.Game) *repository.LibraryRecord {
	return &repository.LibraryRecord{Games: games, FetchedAt: time.Now().Add(-30 * time.Minute)}
}

func cachedService(t *testing.T, games []model.Game) *Service {
	t.Helper()
	return NewService(
		&mockLibraryFetcher{
			getOwnedGamesFunc: func(ctx context.Context, steamID string) ([]model.Game, error) {
				t.Error("キャッシュヒット時にSteam APIが呼ばれた")
				return nil, nil
			},
		},
		&mockGameRepo{
			findLibraryBySteamIDFunc: func(ctx context.Context, steamID string) (*repository.LibraryRecord, error) {
				return freshRecord(games), nil
			},
		},
		&mockCacheRecorder{}, testLogger(), time.Hour,
	)
}

func TestService_OwnedGames(t *testing.T) {
	t.Run("総プレイ時間の降順で返す", func(t *testing.T) {
		service := cachedService(t, []model.Game{
			{AppID: 10, Name: "A", PlaytimeForever: 50},
			{AppID: 20, Name: "B", PlaytimeForever: 300},
			{AppID: 30, Name: "C", PlaytimeForever: 120},
		})

		games, err := service.OwnedGames(context.Background(), testSteamID, 0)
		if err != nil {
			t.Fatalf("OwnedGames() error = %v", err)
		}

		wantOrder := []int64{20, 30, 10}
		if len(games) != len(wantOrder) {
			t.Fatalf("len(games) = %d, want %d", len(games), len(wantOrder))
		}
		for i, want := range wantOrder {
			if games[i].AppID != want {
				t.Errorf("games[%d].AppID = %d, want %d", i, games[i].AppID, want)
			}
		}
	})

	t.Run("プレイ時間が同じ場合はAppID昇順", func(t *testing.T) {
		service := cachedService(t, []model.Game{
			{AppID: 30, PlaytimeForever: 100},
			{AppID: 10, PlaytimeForever: 100},
			{AppID: 20, PlaytimeForever: 100},
		})

		games, err := service.OwnedGames(context.Background(), testSteamID, 0)
		if err != nil {
			t.Fatalf("OwnedGames() error = %v", err)
		}

		wantOrder := []int64{10, 20, 30}
		for i, want := range wantOrder {
			if games[i].AppID != want {
				t.Errorf("games[%d].AppID = %d, want %d", i, games[i].AppID, want)
			}
		}
	})

	t.Run("limitで切り詰める", func(t *testing.T) {
		service := cachedService(t, []model.Game{
			{AppID: 1, PlaytimeForever: 300},
			{AppID: 2, PlaytimeForever: 200},
			{AppID: 3, PlaytimeForever: 100},
		})

		games, err := service.OwnedGames(context.Background(), testSteamID, 2)
		if err != nil {
			t.Fatalf("OwnedGames() error = %v", err)
		}
		if len(games) != 2 {
			t.Fatalf("len(games) = %d, want 2", len(games))
		}
		if games[0].AppID != 1 || games[1].AppID != 2 {
			t.Errorf("切り詰め後の順序が不正: %v", games)
		}
	})

	t.Run("limitがゲーム数を超える場合は全件", func(t *testing.T) {
		service := cachedService(t, []model.Game{{AppID: 1}, {AppID: 2}})

		games, err := service.OwnedGames(context.Background(), testSteamID, 100)
		if err != nil {
			t.Fatalf("OwnedGames() error = %v", err)
		}
		if len(games) != 2 {
			t.Errorf("len(games) = %d, want 2", len(games))
		}
	})
}

func TestService_RecentGames(t *testing.T) {
	t.Run("2週間プレイ時間が正のゲームだけを降順で返す", func(t *testing.T) {
		service := cachedService(t, []model.Game{
			{AppID: 1, PlaytimeForever: 100, Playtime2Weeks: intPtr(0)},
			{AppID: 2, PlaytimeForever: 50, Playtime2Weeks: intPtr(30)},
			{AppID: 3, PlaytimeForever: 10},
			{AppID: 4, PlaytimeForever: 20, Playtime2Weeks: intPtr(90)},
		})

		games, err := service.RecentGames(context.Background(), testSteamID, 0)
		if err != nil {
			t.Fatalf("RecentGames() error = %v", err)
		}

		wantOrder := []int64{4, 2}
		if len(games) != len(wantOrder) {
			t.Fatalf("len(games) = %d, want %d", len(games), len(wantOrder))
		}
		for i, want := range wantOrder {
			if games[i].AppID != want {
				t.Errorf("games[%d].AppID = %d, want %d", i, games[i].AppID, want)
			}
		}
	})

	t.Run("直近プレイがなければ空スライス", func(t *testing.T) {
		service := cachedService(t, []model.Game{
			{AppID: 1, PlaytimeForever: 100},
			{AppID: 2, PlaytimeForever: 50, Playtime2Weeks: intPtr(0)},
		})

		games, err := service.RecentGames(context.Background(), testSteamID, 0)
		if err != nil {
			t.Fatalf("RecentGames() error = %v", err)
		}
		if games == nil {
			t.Fatal("nilではなく空スライスを返すべき")
		}
		if len(games) != 0 {
			t.Errorf("len(games) = %d, want 0", len(games))
		}
	})

	t.Run("直近プレイ時間が同じ場合はAppID昇順", func(t *testing.T) {
		service := cachedService(t, []model.Game{
			{AppID: 5, Playtime2Weeks: intPtr(10)},
			{AppID: 3, Playtime2Weeks: intPtr(10)},
		})

		games, err := service.RecentGames(context.Background(), testSteamID, 0)
		if err != nil {
			t.Fatalf("RecentGames() error = %v", err)
		}
		if games[0].AppID != 3 || games[1].AppID != 5 {
			t.Errorf("同値時の順序が不正: %v", games)
		}
	})
}

func TestService_Snapshot(t *testing.T) {
	t.Run("期限切れキャッシュは再取得して入れ替える", func(t *testing.T) {
		fetched := []model.Game{{AppID: 1, Name: "New", PlaytimeForever: 10}}
		var replaced []model.Game
		recorder := &mockCacheRecorder{}
		service := NewService(
			&mockLibraryFetcher{
				getOwnedGamesFunc: func(ctx context.Context, steamID string) ([]model.Game, error) {
					return fetched, nil
				},
			},
			&mockGameRepo{
				findLibraryBySteamIDFunc: func(ctx context.Context, steamID string) (*repository.LibraryRecord, error) {
					return &repository.LibraryRecord{
						Games:     []model.Game{{AppID: 99, Name: "Old"}},
						FetchedAt: time.Now().Add(-time.Hour - time.Millisecond),
					}, nil
				},
				replaceLibraryFunc: func(ctx context.Context, steamID string, games []model.Game, fetchedAt time.Time) error {
					replaced = games
					return nil
				},
			},
			recorder, testLogger(), time.Hour,
		)

		games, err := service.OwnedGames(context.Background(), testSteamID, 0)
		if err != nil {
			t.Fatalf("OwnedGames() error = %v", err)
		}
		if len(games) != 1 || games[0].Name != "New" {
			t.Errorf("再取得後のライブラリが不正: %v", games)
		}
		if len(replaced) != 1 {
			t.Error("キャッシュが入れ替えられていない")
		}
		if recorder.misses != 1 {
			t.Errorf("misses = %d, want 1", recorder.misses)
		}
	})

	t.Run("空ライブラリも有効なキャッシュとして扱う", func(t *testing.T) {
		fetcher := &mockLibraryFetcher{
			getOwnedGamesFunc: func(ctx context.Context, steamID string) ([]model.Game, error) {
				t.Error("空のキャッシュ済みライブラリでSteam APIが呼ばれた")
				return nil, nil
			},
		}
		service := NewService(fetcher,
			&mockGameRepo{
				findLibraryBySteamIDFunc: func(ctx context.Context, steamID string) (*repository.LibraryRecord, error) {
					return freshRecord([]model.Game{}), nil
				},
			},
			&mockCacheRecorder{}, testLogger(), time.Hour,
		)

		games, err := service.OwnedGames(context.Background(), testSteamID, 0)
		if err != nil {
			t.Fatalf("OwnedGames() error = %v", err)
		}
		if len(games) != 0 {
			t.Errorf("len(games) = %d, want 0", len(games))
		}
		if fetcher.calls != 0 {
			t.Errorf("fetcher.calls = %d, want 0", fetcher.calls)
		}
	})

	t.Run("キャッシュ読み取り失敗はエラーを伝播する", func(t *testing.T) {
		service := NewService(
			&mockLibraryFetcher{
				getOwnedGamesFunc: func(ctx context.Context, steamID string) ([]model.Game, error) {
					t.Error("ストア障害時にSteam APIが呼ばれた")
					return nil, nil
				},
			},
			&mockGameRepo{
				findLibraryBySteamIDFunc: func(ctx context.Context, steamID string) (*repository.LibraryRecord, error) {
					return nil, errors.New("connection refused")
				},
			},
			&mockCacheRecorder{}, testLogger(), time.Hour,
		)

		if _, err := service.OwnedGames(context.Background(), testSteamID, 0); err == nil {
			t.Error("エラーが返されなかった")
		}
	})
}

func TestService_Refresh(t *testing.T) {
	t.Run("全ゲームに同一のCachedAtを付与する", func(t *testing.T) {
		var replaced []model.Game
		var replacedAt time.Time
		service := NewService(
			&mockLibraryFetcher{
				getOwnedGamesFunc: func(ctx context.Context, steamID string) ([]model.Game, error) {
					return []model.Game{{AppID: 1}, {AppID: 2}}, nil
				},
			},
			&mockGameRepo{
				replaceLibraryFunc: func(ctx context.Context, steamID string, games []model.Game, fetchedAt time.Time) error {
					replaced = games
					replacedAt = fetchedAt
					return nil
				},
			},
			&mockCacheRecorder{}, testLogger(), time.Hour,
		)

		if _, err := service.Refresh(context.Background(), testSteamID); err != nil {
			t.Fatalf("Refresh() error = %v", err)
		}
		for i, g := range replaced {
			if !g.CachedAt.Equal(replacedAt) {
				t.Errorf("games[%d].CachedAt = %v, want %v", i, g.CachedAt, replacedAt)
			}
		}
	})

	t.Run("Steam APIのエラーをそのまま返す", func(t *testing.T) {
		upstreamErr := model.NewUpstreamUnavailableError("timeout")
		service := NewService(
			&mockLibraryFetcher{
				getOwnedGamesFunc: func(ctx context.Context, steamID string) ([]model.Game, error) {
					return nil, upstreamErr
				},
			},
			&mockGameRepo{
				replaceLibraryFunc: func(ctx context.Context, steamID string, games []model.Game, fetchedAt time.Time) error {
					t.Error("取得失敗時にキャッシュが入れ替えられた")
					return nil
				},
			},
			&mockCacheRecorder{}, testLogger(), time.Hour,
		)

		_, err := service.Refresh(context.Background(), testSteamID)
		var apiErr *model.APIError
		if !errors.As(err, &apiErr) {
			t.Fatalf("error = %v, want *model.APIError", err)
		}
	})
}
