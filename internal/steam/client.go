// Package steam はSteam Web APIのクライアントを提供する。
// プロフィール取得と所有ゲーム取得の2つの読み取り操作を持つ。
package steam

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"time"

	"github.com/hitoshi/steamstats/internal/model"
	"github.com/hitoshi/steamstats/internal/security"
)

// defaultAPIBase はSteam Web APIのベースURL。
const defaultAPIBase = "https://api.steampowered.com"

// UpstreamRecorder はSteam API呼び出しのメトリクス記録インターフェース。
type UpstreamRecorder interface {
	RecordUpstreamLatency(duration time.Duration)
	RecordUpstreamFailure()
}

// ClientConfig はSteam Web APIクライアントの設定。
type ClientConfig struct {
	APIKey string

	// テスト用にオーバーライド可能なベースURL
	APIBase string
}

// Client はSteam Web APIのクライアント。
// APIキーはクエリパラメータとして全リクエストに付与される。
type Client struct {
	config     ClientConfig
	httpClient *http.Client
	logger     *slog.Logger
	sanitizer  security.NameSanitizerService
	metrics    UpstreamRecorder
}

// NewClient はClientの新しいインスタンスを生成する。
// ペルソナ名・ゲーム名はsanitizerを通してから返される。
func NewClient(
	config ClientConfig,
	httpClient *http.Client,
	logger *slog.Logger,
	sanitizer security.NameSanitizerService,
	metrics UpstreamRecorder,
) *Client {
	if config.APIBase == "" {
		config.APIBase = defaultAPIBase
	}
	return &Client{
		config:     config,
		httpClient: httpClient,
		logger:     logger,
		sanitizer:  sanitizer,
		metrics:    metrics,
	}
}

// playerSummariesResponse はGetPlayerSummariesエンドポイントのレスポンス。
type playerSummariesResponse struct {
	Response struct {
		Players []struct {
			SteamID      string `json:"steamid"`
			PersonaName  string `json:"personaname"`
			Avatar       string `json:"avatar"`
			AvatarMedium string `json:"avatarmedium"`
			AvatarFull   string `json:"avatarfull"`
			TimeCreated  int64  `json:"timecreated"`
		} `json:"players"`
	} `json:"response"`
}

// ownedGamesResponse はGetOwnedGamesエンドポイントのレスポンス。
type ownedGamesResponse struct {
	Response struct {
		GameCount int `json:"game_count"`
		Games     []struct {
			AppID           int64  `json:"appid"`
			Name            string `json:"name"`
			PlaytimeForever int    `json:"playtime_forever"`
			Playtime2Weeks  *int   `json:"playtime_2weeks"`
		} `json:"games"`
	} `json:"response"`
}

// GetPlayerSummary はプレイヤーのプロフィールを取得する。
// 該当プレイヤーが存在しない場合はnilを返す（エラーではない）。
// ネットワーク障害・非2xxレスポンスはUpstreamUnavailableとして返す。
func (c *Client) GetPlayerSummary(ctx context.Context, steamID string) (*model.Player, error) {
	params := url.Values{
		"key":      {c.config.APIKey},
		"steamids": {steamID},
	}
	endpoint := c.config.APIBase + "/ISteamUser/GetPlayerSummaries/v2/?" + params.Encode()

	body, err := c.get(ctx, endpoint)
	if err != nil {
		return nil, err
	}

	var result playerSummariesResponse
	if err := json.Unmarshal(body, &result); err != nil {
		c.logger.Error("Steam APIのプロフィールレスポンスのパースに失敗しました",
			slog.String("error", err.Error()),
			slog.String("steam_id", steamID),
		)
		return nil, model.NewUpstreamUnavailableError("unexpected profile response format")
	}

	if len(result.Response.Players) == 0 {
		return nil, nil
	}

	p := result.Response.Players[0]
	player := &model.Player{
		SteamID:     p.SteamID,
		PersonaName: c.sanitizer.Sanitize(p.PersonaName),
		AvatarHash:  ExtractAvatarHash(p.Avatar),
	}
	if p.TimeCreated > 0 {
		created := time.Unix(p.TimeCreated, 0).UTC()
		player.TimeCreated = &created
	}

	return player, nil
}

// GetOwnedGames はプレイヤーの所有ゲーム一覧を取得する。
// 未起動タイトルのプレイ時間と無料ゲームを含む全タイトルのメタデータを要求する。
// 所有ゲームが0件（または非公開）の場合は空スライスを返す。
func (c *Client) GetOwnedGames(ctx context.Context, steamID string) ([]model.Game, error) {
	params := url.Values{
		"key":                       {c.config.APIKey},
		"steamid":                   {steamID},
		"include_appinfo":           {"1"},
		"include_played_free_games": {"1"},
	}
	endpoint := c.config.APIBase + "/IPlayerService/GetOwnedGames/v1/?" + params.Encode()

	body, err := c.get(ctx, endpoint)
	if err != nil {
		return nil, err
	}

	var result ownedGamesResponse
	if err := json.Unmarshal(body, &result); err != nil {
		c.logger.Error("Steam APIのゲームレスポンスのパースに失敗しました",
			slog.String("error", err.Error()),
			slog.String("steam_id", steamID),
		)
		return nil, model.NewUpstreamUnavailableError("unexpected games response format")
	}

	games := make([]model.Game, 0, len(result.Response.Games))
	for _, g := range result.Response.Games {
		game := model.Game{
			AppID:           g.AppID,
			Name:            c.sanitizer.Sanitize(g.Name),
			PlaytimeForever: g.PlaytimeForever,
		}
		if g.Playtime2Weeks != nil {
			minutes := *g.Playtime2Weeks
			game.Playtime2Weeks = &minutes
		}
		games = append(games, game)
	}

	return games, nil
}

// get はGETリクエストを実行してレスポンスボディを返す。
// 失敗はすべてUpstreamUnavailableとして返し、詳細はログに記録する。
func (c *Client) get(ctx context.Context, endpoint string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create steam api request: %w", err)
	}

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	c.metrics.RecordUpstreamLatency(time.Since(start))

	if err != nil {
		c.metrics.RecordUpstreamFailure()
		c.logger.Error("Steam APIの呼び出しに失敗しました",
			slog.String("error", err.Error()),
		)
		return nil, model.NewUpstreamUnavailableError("request failed")
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		c.metrics.RecordUpstreamFailure()
		c.logger.Error("Steam APIがエラーステータスを返しました",
			slog.Int("http_status", resp.StatusCode),
		)
		return nil, model.NewUpstreamUnavailableError(fmt.Sprintf("status %d", resp.StatusCode))
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		c.metrics.RecordUpstreamFailure()
		c.logger.Error("Steam APIレスポンスボディの読み取りに失敗しました",
			slog.String("error", err.Error()),
		)
		return nil, model.NewUpstreamUnavailableError("failed to read response body")
	}

	return body, nil
}
