package steam

import "testing"

func TestExtractAvatarHash(t *testing.T) {
	tests := []struct {
		name string
		url  string
		want string
	}{
		{
			"標準サイズURL",
			"https://avatars.steamstatic.com/fef49e7fa7e1997310d705b2a6158ff8dc1cdfeb.jpg",
			"fef49e7fa7e1997310d705b2a6158ff8dc1cdfeb",
		},
		{
			"mediumサイズURL",
			"https://avatars.steamstatic.com/fef49e7fa7e1997310d705b2a6158ff8dc1cdfeb_medium.jpg",
			"fef49e7fa7e1997310d705b2a6158ff8dc1cdfeb",
		},
		{
			"fullサイズURL",
			"https://avatars.steamstatic.com/fef49e7fa7e1997310d705b2a6158ff8dc1cdfeb_full.jpg",
			"fef49e7fa7e1997310d705b2a6158ff8dc1cdfeb",
		},
		{"パターン不一致", "https://example.com/avatar.jpg", ""},
		{"空文字列", "", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := ExtractAvatarHash(tt.url); got != tt.want {
				t.Errorf("ExtractAvatarHash(%q) = %q, want %q", tt.url, got, tt.want)
			}
		})
	}
}

func TestBuildAvatarURLs(t *testing.T) {
	urls := BuildAvatarURLs("abc123def")

	if urls.Avatar != "https://avatars.steamstatic.com/abc123def.jpg" {
		t.Errorf("Avatar = %q", urls.Avatar)
	}
	if urls.AvatarMedium != "https://avatars.steamstatic.com/abc123def_medium.jpg" {
		t.Errorf("AvatarMedium = %q", urls.AvatarMedium)
	}
	if urls.AvatarFull != "https://avatars.steamstatic.com/abc123def_full.jpg" {
		t.Errorf("AvatarFull = %q", urls.AvatarFull)
	}
}

// ハッシュ→URL→ハッシュの往復で元の値が保存されることを検証
func TestAvatarHash_RoundTrip(t *testing.T) {
	hash := "fef49e7fa7e1997310d705b2a6158ff8dc1cdfeb"
	urls := BuildAvatarURLs(hash)

	for name, u := range map[string]string{
		"avatar":       urls.Avatar,
		"avatarmedium": urls.AvatarMedium,
		"avatarfull":   urls.AvatarFull,
	} {
		if got := ExtractAvatarHash(u); got != hash {
			t.Errorf("round trip via %s: got %q, want %q", name, got, hash)
		}
	}
}

func TestBuildProfileURL(t *testing.T) {
	got := BuildProfileURL("76561198012345678")
	want := "https://steamcommunity.com/profiles/76561198012345678/"
	if got != want {
		t.Errorf("BuildProfileURL = %q, want %q", got, want)
	}
}
