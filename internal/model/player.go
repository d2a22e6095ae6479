// Package model はドメインモデルを定義する。
package model

import "time"

// Player はSteamプレイヤーのプロフィールスナップショットを表す。
// Steam Web APIから取得した時点の値を丸ごと保持し、再取得時は全体を上書きする。
type Player struct {
	SteamID     string
	PersonaName string
	AvatarHash  string
	TimeCreated *time.Time // アカウント作成日時。非公開プロフィールでは取得できない。
	CachedAt    time.Time
}

// Game はプレイヤーが所有するゲーム1件を表す。
// AppIDはSteamカタログ全体で共有される識別子で、複数プレイヤーのライブラリに現れる。
type Game struct {
	AppID           int64
	Name            string
	PlaytimeForever int  // 累計プレイ時間（分）
	Playtime2Weeks  *int // 直近2週間のプレイ時間（分）。期間内にプレイしていない場合はnil。
	CachedAt        time.Time
}

// RecentPlaytime は直近2週間のプレイ時間を返す。未プレイの場合は0。
func (g *Game) RecentPlaytime() int {
	if g.Playtime2Weeks == nil {
		return 0
	}
	return *g.Playtime2Weeks
}
