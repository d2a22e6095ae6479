// Package model はドメインモデルを定義する。
package model

import "time"

// Session はユーザーのログインセッションを表す。
// IDはクライアントにCookieとして渡される不透明なトークンで、
// SteamIDとの対応はサーバー側のセッションストアのみが保持する。
type Session struct {
	ID        string
	SteamID   string
	ExpiresAt time.Time
	CreatedAt time.Time
}
