package handler

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/hitoshi/steamstats/internal/middleware"
	"github.com/hitoshi/steamstats/internal/model"
	"github.com/hitoshi/steamstats/internal/steam"
)

// ProfileServiceInterface はプロフィールハンドラーが必要とするサービスインターフェース。
type ProfileServiceInterface interface {
	// Player はキャッシュ経由でプロフィールを取得する。
	Player(ctx context.Context, steamID string) (*model.Player, error)
}

// LibraryServiceInterface はゲームライブラリハンドラーが必要とするサービスインターフェース。
type LibraryServiceInterface interface {
	// OwnedGames は総プレイ時間の降順でゲーム一覧を返す。
	OwnedGames(ctx context.Context, steamID string, limit int) ([]model.Game, error)
	// RecentGames は直近2週間にプレイしたゲームを返す。
	RecentGames(ctx context.Context, steamID string, limit int) ([]model.Game, error)
}

// SteamHandler はSteam統計情報のHTTPハンドラー。
type SteamHandler struct {
	profiles ProfileServiceInterface
	library  LibraryServiceInterface
}

// NewSteamHandler はSteamHandlerを生成する。
func NewSteamHandler(profiles ProfileServiceInterface, library LibraryServiceInterface) *SteamHandler {
	return &SteamHandler{
		profiles: profiles,
		library:  library,
	}
}

// playerResponse はプレイヤープロフィールのAPIレスポンス。
type playerResponse struct {
	SteamID      string `json:"steam_id"`
	PersonaName  string `json:"persona_name"`
	ProfileURL   string `json:"profile_url"`
	Avatar       string `json:"avatar,omitempty"`
	AvatarMedium string `json:"avatar_medium,omitempty"`
	AvatarFull   string `json:"avatar_full,omitempty"`
	TimeCreated  *int64 `json:"time_created,omitempty"`
	CachedAt     string `json:"cached_at"`
}

// gameResponse はゲーム情報のAPIレスポンス。
type gameResponse struct {
	AppID           int64  `json:"app_id"`
	Name            string `json:"name"`
	PlaytimeForever int    `json:"playtime_forever"`
	Playtime2Weeks  *int   `json:"playtime_2weeks,omitempty"`
}

// gamesResponse はゲーム一覧のAPIレスポンス。
type gamesResponse struct {
	Games []gameResponse `json:"games"`
	Total int            `json:"total"`
}

// GetProfile は認証済みユーザーのプロフィールを返す。
// GET /steam/profile
func (h *SteamHandler) GetProfile(w http.ResponseWriter, r *http.Request) {
	steamID, err := middleware.SteamIDFromContext(r.Context())
	if err != nil {
		middleware.WriteErrorResponse(w, http.StatusUnauthorized, model.NewUnauthenticatedError())
		return
	}

	player, err := h.profiles.Player(r.Context(), steamID)
	if err != nil {
		handleServiceError(w, err)
		return
	}

	if player == nil {
		middleware.WriteErrorResponse(w, http.StatusNotFound, model.NewPlayerNotFoundError(steamID))
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(toPlayerResponse(player))
}

// ListGames は所有ゲーム一覧を総プレイ時間の降順で返す。
// GET /steam/games?limit=N
func (h *SteamHandler) ListGames(w http.ResponseWriter, r *http.Request) {
	h.listGames(w, r, h.library.OwnedGames)
}

// ListRecentGames は直近2週間にプレイしたゲーム一覧を返す。
// GET /steam/games/recent?limit=N
func (h *SteamHandler) ListRecentGames(w http.ResponseWriter, r *http.Request) {
	h.listGames(w, r, h.library.RecentGames)
}

func (h *SteamHandler) listGames(
	w http.ResponseWriter,
	r *http.Request,
	list func(ctx context.Context, steamID string, limit int) ([]model.Game, error),
) {
	steamID, err := middleware.SteamIDFromContext(r.Context())
	if err != nil {
		middleware.WriteErrorResponse(w, http.StatusUnauthorized, model.NewUnauthenticatedError())
		return
	}

	limit, apiErr := parseLimit(r.URL.Query().Get("limit"))
	if apiErr != nil {
		middleware.WriteErrorResponse(w, http.StatusBadRequest, apiErr)
		return
	}

	games, err := list(r.Context(), steamID, limit)
	if err != nil {
		handleServiceError(w, err)
		return
	}

	resp := gamesResponse{
		Games: make([]gameResponse, 0, len(games)),
		Total: len(games),
	}
	for _, g := range games {
		resp.Games = append(resp.Games, toGameResponse(&g))
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(resp)
}

// parseLimit はlimitクエリパラメータを解析する。
// 未指定は0（全件）。整数として解析できない値はエラー。
func parseLimit(raw string) (int, *model.APIError) {
	if raw == "" {
		return 0, nil
	}

	limit, err := strconv.Atoi(raw)
	if err != nil {
		return 0, model.NewInvalidLimitError(raw)
	}
	return limit, nil
}

// --- ヘルパー関数 ---

// toPlayerResponse はmodel.PlayerからAPIレスポンスに変換する。
// アバターURLとプロフィールURLはハッシュとSteamIDから組み立てる。
func toPlayerResponse(player *model.Player) playerResponse {
	resp := playerResponse{
		SteamID:     player.SteamID,
		PersonaName: player.PersonaName,
		ProfileURL:  steam.BuildProfileURL(player.SteamID),
		CachedAt:    player.CachedAt.UTC().Format(time.RFC3339),
	}

	if player.AvatarHash != "" {
		urls := steam.BuildAvatarURLs(player.AvatarHash)
		resp.Avatar = urls.Avatar
		resp.AvatarMedium = urls.AvatarMedium
		resp.AvatarFull = urls.AvatarFull
	}

	if player.TimeCreated != nil {
		unix := player.TimeCreated.Unix()
		resp.TimeCreated = &unix
	}

	return resp
}

// toGameResponse はmodel.GameからAPIレスポンスに変換する。
func toGameResponse(game *model.Game) gameResponse {
	return gameResponse{
		AppID:           game.AppID,
		Name:            game.Name,
		PlaytimeForever: game.PlaytimeForever,
		Playtime2Weeks:  game.Playtime2Weeks,
	}
}

// handleServiceError はサービス層から返されたエラーを適切なHTTPステータスコードに変換する。
func handleServiceError(w http.ResponseWriter, err error) {
	var apiErr *model.APIError
	if errors.As(err, &apiErr) {
		middleware.WriteErrorResponse(w, mapAPIErrorToHTTPStatus(apiErr), apiErr)
		return
	}

	// APIError以外のエラーは内部サーバーエラーとして扱う
	slog.Error("internal server error", slog.String("error", err.Error()))
	middleware.WriteInternalServerError(w)
}

// mapAPIErrorToHTTPStatus はAPIErrorコードからHTTPステータスコードにマッピングする。
func mapAPIErrorToHTTPStatus(apiErr *model.APIError) int {
	switch apiErr.Code {
	case model.ErrCodeUpstreamUnavailable:
		return http.StatusBadGateway
	case model.ErrCodeUnauthenticated, model.ErrCodeInvalidAssertion:
		return http.StatusUnauthorized
	case model.ErrCodePlayerNotFound:
		return http.StatusNotFound
	case model.ErrCodeMalformedIdentifier, model.ErrCodeInvalidLimit:
		return http.StatusBadRequest
	case model.ErrCodeStorageFailure:
		return http.StatusInternalServerError
	default:
		return http.StatusInternalServerError
	}
}
