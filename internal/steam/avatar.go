package steam

import (
	"fmt"
	"regexp"
)

const (
	// avatarBaseURL はSteamアバター画像のホスト。
	avatarBaseURL = "https://avatars.steamstatic.com"
	// communityBaseURL はSteamコミュニティプロフィールのホスト。
	communityBaseURL = "https://steamcommunity.com"
)

// avatarHashPattern はアバターURLからハッシュを抽出するパターン。
// 3種類のURLバリアント（.jpg / _medium.jpg / _full.jpg）すべてに一致する。
var avatarHashPattern = regexp.MustCompile(`avatars\.steamstatic\.com/([a-fA-F0-9]+)`)

// AvatarURLs はハッシュから再構築した3サイズのアバターURLを保持する。
type AvatarURLs struct {
	Avatar       string
	AvatarMedium string
	AvatarFull   string
}

// ExtractAvatarHash はアバターURLからハッシュ部分を抽出する。
// どのサイズバリアントのURLからも同一のハッシュが得られる。
// パターンに一致しない場合は空文字列を返す。
func ExtractAvatarHash(avatarURL string) string {
	match := avatarHashPattern.FindStringSubmatch(avatarURL)
	if match == nil {
		return ""
	}
	return match[1]
}

// BuildAvatarURLs はハッシュから3サイズのアバターURLを構築する。
// ExtractAvatarHashとの往復で元のハッシュが保存される。
func BuildAvatarURLs(hash string) AvatarURLs {
	return AvatarURLs{
		Avatar:       fmt.Sprintf("%s/%s.jpg", avatarBaseURL, hash),
		AvatarMedium: fmt.Sprintf("%s/%s_medium.jpg", avatarBaseURL, hash),
		AvatarFull:   fmt.Sprintf("%s/%s_full.jpg", avatarBaseURL, hash),
	}
}

// BuildProfileURL はSteamIDからコミュニティプロフィールURLを構築する。
func BuildProfileURL(steamID string) string {
	return fmt.Sprintf("%s/profiles/%s/", communityBaseURL, steamID)
}
