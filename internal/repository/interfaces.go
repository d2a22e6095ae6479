// Package repository はデータ永続化のインターフェースを定義する。
//
// キャッシュ系リポジトリの戻り値は3値で区別する:
// (レコード, nil) = キャッシュあり、(nil, nil) = キャッシュなし、
// (nil, error) = ストア障害。呼び出し元は「未キャッシュ」と
// 「ストアに到達できない」を区別して振る舞いを選択できる。
package repository

import (
	"context"
	"time"

	"github.com/hitoshi/steamstats/internal/model"
)

// PlayerRepository はプロフィールキャッシュの永続化インターフェース。
type PlayerRepository interface {
	// FindBySteamID は指定SteamIDのプロフィールレコードを取得する。
	// 未キャッシュの場合はnilを返す。鮮度判定は呼び出し元が行う。
	FindBySteamID(ctx context.Context, steamID string) (*model.Player, error)

	// Upsert はプロフィールレコードを丸ごと上書き保存する。部分更新は行わない。
	Upsert(ctx context.Context, player *model.Player) error

	// DeleteBySteamID は指定SteamIDのプロフィールレコードを削除する。
	// レコードが存在しない場合もエラーにしない。
	DeleteBySteamID(ctx context.Context, steamID string) error
}

// LibraryRecord はゲームライブラリのキャッシュレコードを表す。
// FetchedAtはライブラリ全体で1つだけ持ち、レコード単位で鮮度を判定する。
// ゲーム0件のライブラリも有効なキャッシュとして表現できる。
type LibraryRecord struct {
	Games     []model.Game
	FetchedAt time.Time
}

// GameRepository はゲームライブラリキャッシュの永続化インターフェース。
type GameRepository interface {
	// FindLibraryBySteamID は指定SteamIDのライブラリレコードを取得する。
	// 未キャッシュの場合はnilを返す。
	FindLibraryBySteamID(ctx context.Context, steamID string) (*LibraryRecord, error)

	// ReplaceLibrary はライブラリレコードを同一トランザクションで丸ごと入れ替える。
	// ゲームカタログ（games）はUPSERTし、user_gamesは全削除のうえ再挿入する。
	ReplaceLibrary(ctx context.Context, steamID string, games []model.Game, fetchedAt time.Time) error

	// DeleteBySteamID は指定SteamIDのライブラリレコードを削除する。
	// グローバルなゲームカタログは削除しない。
	DeleteBySteamID(ctx context.Context, steamID string) error
}

// SessionRepository はセッションデータの永続化インターフェース。
type SessionRepository interface {
	// Create はセッションを作成する。
	Create(ctx context.Context, session *model.Session) error
	// FindByID は指定IDのセッションを取得する。期限切れの場合はnilを返す。
	FindByID(ctx context.Context, id string) (*model.Session, error)
	// DeleteByID は指定IDのセッションを削除する。
	DeleteByID(ctx context.Context, id string) error
	// DeleteBySteamID は指定ユーザーの全セッションを削除する。
	DeleteBySteamID(ctx context.Context, steamID string) error
}
