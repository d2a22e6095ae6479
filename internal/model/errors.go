// Package model はドメインモデルを定義する。
package model

import "fmt"

// APIError は統一エラーフォーマットを表す。
// UIに表示する原因カテゴリと対処方法を含む。
type APIError struct {
	Code     string // エラーコード
	Message  string // エラーメッセージ
	Category string // カテゴリ: auth, validation, steam, system
	Action   string // ユーザー向け対処方法
}

// Error はerrorインターフェースを実装する。
func (e *APIError) Error() string {
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

// 定義済みエラーコード
const (
	ErrCodeUpstreamUnavailable  = "UPSTREAM_UNAVAILABLE"
	ErrCodeInvalidAssertion     = "INVALID_ASSERTION"
	ErrCodeMalformedIdentifier  = "MALFORMED_IDENTIFIER"
	ErrCodePlayerNotFound       = "PLAYER_NOT_FOUND"
	ErrCodeUnauthenticated      = "UNAUTHENTICATED"
	ErrCodeStorageFailure       = "STORAGE_FAILURE"
	ErrCodeInvalidLimit         = "INVALID_LIMIT"
)

// コールバックリダイレクトで使用する失敗理由コード。
// フロントエンドは ?error=<reason> からエラーメッセージを選択する。
const (
	CallbackErrorInvalidResponse = "invalid_response"
	CallbackErrorNoSteamID       = "no_steam_id"
	CallbackErrorPlayerNotFound  = "player_not_found"
	CallbackErrorAuthFailed      = "auth_failed"
)

// NewUpstreamUnavailableError はSteam APIまたはOpenIDプロバイダーへの
// リクエストが失敗した場合のエラーを生成する。
func NewUpstreamUnavailableError(reason string) *APIError {
	return &APIError{
		Code:     ErrCodeUpstreamUnavailable,
		Message:  fmt.Sprintf("Steamへのリクエストに失敗しました: %s", reason),
		Category: "steam",
		Action:   "しばらく待ってから再度お試しください。",
	}
}

// NewInvalidAssertionError はOpenID検証が失敗した場合のエラーを生成する。
func NewInvalidAssertionError() *APIError {
	return &APIError{
		Code:     ErrCodeInvalidAssertion,
		Message:  "OpenID認証レスポンスの検証に失敗しました。",
		Category: "auth",
		Action:   "ログインし直してください。",
	}
}

// NewMalformedIdentifierError はclaimed_idからSteamIDを抽出できない場合の
// エラーを生成する。
func NewMalformedIdentifierError(claimedID string) *APIError {
	return &APIError{
		Code:     ErrCodeMalformedIdentifier,
		Message:  fmt.Sprintf("claimed_idからSteamIDを抽出できません: %s", claimedID),
		Category: "auth",
		Action:   "ログインし直してください。",
	}
}

// NewPlayerNotFoundError はSteam APIが該当プレイヤーを返さない場合の
// エラーを生成する。
func NewPlayerNotFoundError(steamID string) *APIError {
	return &APIError{
		Code:     ErrCodePlayerNotFound,
		Message:  fmt.Sprintf("プレイヤーが見つかりません: %s", steamID),
		Category: "steam",
		Action:   "SteamIDを確認してください。",
	}
}

// NewUnauthenticatedError は有効なセッションがない場合のエラーを生成する。
func NewUnauthenticatedError() *APIError {
	return &APIError{
		Code:     ErrCodeUnauthenticated,
		Message:  "認証されていません。",
		Category: "auth",
		Action:   "ログインしてください。",
	}
}

// NewStorageFailureError はキャッシュストアの読み書きが失敗した場合の
// エラーを生成する。キャッシュ未登録（miss）とは区別される。
func NewStorageFailureError(reason string) *APIError {
	return &APIError{
		Code:     ErrCodeStorageFailure,
		Message:  fmt.Sprintf("データストアへのアクセスに失敗しました: %s", reason),
		Category: "system",
		Action:   "しばらく待ってから再度お試しください。",
	}
}

// NewInvalidLimitError はlimitパラメータが不正な場合のエラーを生成する。
func NewInvalidLimitError(raw string) *APIError {
	return &APIError{
		Code:     ErrCodeInvalidLimit,
		Message:  fmt.Sprintf("無効なlimitパラメータです: %s", raw),
		Category: "validation",
		Action:   "limitには0以上の整数を指定してください。",
	}
}
