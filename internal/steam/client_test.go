package steam

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/hitoshi/steamstats/internal/logger"
	"github.com/hitoshi/steamstats/internal/model"
	"github.com/hitoshi/steamstats/internal/security"
)

// --- モック定義 ---

// nopRecorder はテスト用のメトリクスレコーダー。
type nopRecorder struct {
	failures int
}

func (r *nopRecorder) RecordUpstreamLatency(_ time.Duration) {}
func (r *nopRecorder) RecordUpstreamFailure()                { r.failures++ }

var _ UpstreamRecorder = (*nopRecorder)(nil)

func newTestClient(t *testing.T, serverURL string) (*Client, *nopRecorder) {
	t.Helper()
	recorder := &nopRecorder{}
	client := NewClient(
		ClientConfig{APIKey: "test-key", APIBase: serverURL},
		&http.Client{Timeout: 5 * time.Second},
		logger.Setup(testWriter{t}),
		security.NewNameSanitizer(),
		recorder,
	)
	return client, recorder
}

// testWriter はテストログにslog出力を流すio.Writer。
type testWriter struct{ t *testing.T }

func (w testWriter) Write(p []byte) (int, error) {
	w.t.Log(string(p))
	return len(p), nil
}

// --- テスト ---

func TestGetPlayerSummary_ReturnsPlayer(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/ISteamUser/GetPlayerSummaries/v2/" {
			t.Errorf("unexpected path: %s", r.URL.Path)
		}
		if r.URL.Query().Get("key") != "test-key" {
			t.Errorf("key = %q, want %q", r.URL.Query().Get("key"), "test-key")
		}
		if r.URL.Query().Get("steamids") != "76561198012345678" {
			t.Errorf("steamids = %q", r.URL.Query().Get("steamids"))
		}
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"response":{"players":[{
			"steamid":"76561198012345678",
			"personaname":"gordon",
			"avatar":"https://avatars.steamstatic.com/fef49e7fa7e1997310d705b2a6158ff8dc1cdfeb.jpg",
			"avatarmedium":"https://avatars.steamstatic.com/fef49e7fa7e1997310d705b2a6158ff8dc1cdfeb_medium.jpg",
			"avatarfull":"https://avatars.steamstatic.com/fef49e7fa7e1997310d705b2a6158ff8dc1cdfeb_full.jpg",
			"timecreated":1100000000
		}]}}`))
	}))
	defer server.Close()

	client, _ := newTestClient(t, server.URL)

	player, err := client.GetPlayerSummary(context.Background(), "76561198012345678")
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if player == nil {
		t.Fatal("expected non-nil player")
	}
	if player.SteamID != "76561198012345678" {
		t.Errorf("SteamID = %q", player.SteamID)
	}
	if player.PersonaName != "gordon" {
		t.Errorf("PersonaName = %q, want %q", player.PersonaName, "gordon")
	}
	if player.AvatarHash != "fef49e7fa7e1997310d705b2a6158ff8dc1cdfeb" {
		t.Errorf("AvatarHash = %q", player.AvatarHash)
	}
	if player.TimeCreated == nil {
		t.Fatal("expected non-nil TimeCreated")
	}
	if player.TimeCreated.Unix() != 1100000000 {
		t.Errorf("TimeCreated.Unix() = %d, want %d", player.TimeCreated.Unix(), 1100000000)
	}
}

func TestGetPlayerSummary_SanitizesPersonaName(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"response":{"players":[{
			"steamid":"76561198012345678",
			"personaname":"<script>alert(1)</script>gordon",
			"avatar":"https://avatars.steamstatic.com/abc123.jpg"
		}]}}`))
	}))
	defer server.Close()

	client, _ := newTestClient(t, server.URL)

	player, err := client.GetPlayerSummary(context.Background(), "76561198012345678")
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if player.PersonaName != "gordon" {
		t.Errorf("PersonaName = %q, want sanitized %q", player.PersonaName, "gordon")
	}
}

func TestGetPlayerSummary_NoMatchingPlayer_ReturnsNil(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"response":{"players":[]}}`))
	}))
	defer server.Close()

	client, _ := newTestClient(t, server.URL)

	player, err := client.GetPlayerSummary(context.Background(), "76561198099999999")
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if player != nil {
		t.Errorf("expected nil player, got %+v", player)
	}
}

func TestGetPlayerSummary_Non2xx_ReturnsUpstreamError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer server.Close()

	client, recorder := newTestClient(t, server.URL)

	_, err := client.GetPlayerSummary(context.Background(), "76561198012345678")
	if err == nil {
		t.Fatal("expected error for non-2xx response")
	}

	apiErr, ok := err.(*model.APIError)
	if !ok {
		t.Fatalf("expected *model.APIError, got %T", err)
	}
	if apiErr.Code != model.ErrCodeUpstreamUnavailable {
		t.Errorf("Code = %q, want %q", apiErr.Code, model.ErrCodeUpstreamUnavailable)
	}
	if recorder.failures != 1 {
		t.Errorf("recorded failures = %d, want 1", recorder.failures)
	}
}

func TestGetOwnedGames_ReturnsGames(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/IPlayerService/GetOwnedGames/v1/" {
			t.Errorf("unexpected path: %s", r.URL.Path)
		}
		q := r.URL.Query()
		if q.Get("include_appinfo") != "1" {
			t.Error("expected include_appinfo=1")
		}
		if q.Get("include_played_free_games") != "1" {
			t.Error("expected include_played_free_games=1")
		}
		w.Write([]byte(`{"response":{"game_count":2,"games":[
			{"appid":440,"name":"Team Fortress 2","playtime_forever":1200,"playtime_2weeks":30},
			{"appid":570,"name":"Dota 2","playtime_forever":0}
		]}}`))
	}))
	defer server.Close()

	client, _ := newTestClient(t, server.URL)

	games, err := client.GetOwnedGames(context.Background(), "76561198012345678")
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if len(games) != 2 {
		t.Fatalf("len(games) = %d, want 2", len(games))
	}

	if games[0].AppID != 440 || games[0].Name != "Team Fortress 2" || games[0].PlaytimeForever != 1200 {
		t.Errorf("games[0] = %+v", games[0])
	}
	if games[0].Playtime2Weeks == nil || *games[0].Playtime2Weeks != 30 {
		t.Errorf("games[0].Playtime2Weeks = %v, want 30", games[0].Playtime2Weeks)
	}

	// 未起動タイトルもプレイ時間0で含まれる
	if games[1].PlaytimeForever != 0 {
		t.Errorf("games[1].PlaytimeForever = %d, want 0", games[1].PlaytimeForever)
	}
	if games[1].Playtime2Weeks != nil {
		t.Errorf("games[1].Playtime2Weeks = %v, want nil", games[1].Playtime2Weeks)
	}
}

func TestGetOwnedGames_EmptyLibrary_ReturnsEmptySlice(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		// 非公開プロフィールではgamesキー自体が省略される
		w.Write([]byte(`{"response":{}}`))
	}))
	defer server.Close()

	client, _ := newTestClient(t, server.URL)

	games, err := client.GetOwnedGames(context.Background(), "76561198012345678")
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if games == nil {
		t.Fatal("expected non-nil empty slice")
	}
	if len(games) != 0 {
		t.Errorf("len(games) = %d, want 0", len(games))
	}
}

func TestGetOwnedGames_NetworkError_ReturnsUpstreamError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	server.Close() // 即座にクローズして接続エラーを発生させる

	client, recorder := newTestClient(t, server.URL)

	_, err := client.GetOwnedGames(context.Background(), "76561198012345678")
	if err == nil {
		t.Fatal("expected error for network failure")
	}
	if recorder.failures != 1 {
		t.Errorf("recorded failures = %d, want 1", recorder.failures)
	}
}
