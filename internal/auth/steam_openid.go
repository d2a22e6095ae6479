package auth

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"regexp"
	"strings"
)

const (
	// defaultOpenIDEndpoint はSteamのOpenID 2.0エンドポイント。
	// ログインリダイレクトと検証POSTの両方で同じURLを使用する。
	defaultOpenIDEndpoint = "https://steamcommunity.com/openid/login"

	// openIDNamespace はOpenID 2.0の名前空間識別子。
	openIDNamespace = "http://specs.openid.net/auth/2.0"

	// identifierSelect はプロバイダー側でアカウントを選択させるセンチネルURL。
	identifierSelect = "http://specs.openid.net/auth/2.0/identifier_select"
)

// steamIDPattern はclaimed_idの末尾からSteamIDを抽出するパターン。
// claimed_idの形式: https://steamcommunity.com/openid/id/<数字>
var steamIDPattern = regexp.MustCompile(`/id/([0-9]+)$`)

// ErrMalformedClaimedID はclaimed_idからSteamIDを抽出できない場合のエラー。
var ErrMalformedClaimedID = fmt.Errorf("claimed_id does not match the expected steam id pattern")

// SteamOpenIDConfig はSteam OpenIDプロバイダーの設定。
type SteamOpenIDConfig struct {
	// CallbackURL はプロバイダーが認証後にリダイレクトする先のURL。
	CallbackURL string

	// テスト用にオーバーライド可能なエンドポイント
	Endpoint string
}

// SteamOpenIDProvider はSteamのOpenID 2.0による認証を提供する。
// OAuthと異なりトークン交換はなく、署名付きコールバックをプロバイダーに
// 再送して検証する（check_authentication）。
type SteamOpenIDProvider struct {
	config     SteamOpenIDConfig
	httpClient *http.Client
}

// NewSteamOpenIDProvider はSteamOpenIDProviderを生成する。
func NewSteamOpenIDProvider(config SteamOpenIDConfig, httpClient *http.Client) *SteamOpenIDProvider {
	if config.Endpoint == "" {
		config.Endpoint = defaultOpenIDEndpoint
	}
	return &SteamOpenIDProvider{
		config:     config,
		httpClient: httpClient,
	}
}

// BuildLoginURL はSteamのOpenIDログインURLを生成する。
// realmにはコールバックURLのオリジンを使用する。
// ローカル状態は持たず、必要な情報はすべてURLにエンコードされる。
func (p *SteamOpenIDProvider) BuildLoginURL() (string, error) {
	callback, err := url.Parse(p.config.CallbackURL)
	if err != nil {
		return "", fmt.Errorf("invalid callback URL: %w", err)
	}
	realm := callback.Scheme + "://" + callback.Host

	params := url.Values{
		"openid.ns":         {openIDNamespace},
		"openid.mode":       {"checkid_setup"},
		"openid.return_to":  {p.config.CallbackURL},
		"openid.realm":      {realm},
		"openid.identity":   {identifierSelect},
		"openid.claimed_id": {identifierSelect},
	}

	return p.config.Endpoint + "?" + params.Encode(), nil
}

// Verify はコールバックで受信したパラメータをプロバイダーに再送して検証する。
// openid.プレフィックスを持つ全パラメータを、openid.modeのみ
// check_authenticationに差し替えてPOSTする。
// 成功はレスポンスボディにis_valid:trueが含まれることで判定する。
// 改ざんされたコールバック（不正な署名）ではプロバイダーがこのトークンを
// 返さないため、検証失敗となる。
func (p *SteamOpenIDProvider) Verify(ctx context.Context, params url.Values) (bool, error) {
	data := url.Values{}
	for key, values := range params {
		if !strings.HasPrefix(key, "openid.") {
			continue
		}
		for _, v := range values {
			data.Add(key, v)
		}
	}
	data.Set("openid.mode", "check_authentication")

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, p.config.Endpoint, strings.NewReader(data.Encode()))
	if err != nil {
		return false, fmt.Errorf("failed to create verification request: %w", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := p.httpClient.Do(req)
	if err != nil {
		return false, fmt.Errorf("verification request failed: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return false, fmt.Errorf("failed to read verification response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		return false, fmt.Errorf("verification failed with status %d", resp.StatusCode)
	}

	return responseIsValid(string(body)), nil
}

// responseIsValid は検証レスポンスが成功を示すかを判定する。
// プロバイダーの仕様上、成功判定は本文中のis_valid:trueの有無で行う。
// 文字列依存をこの1箇所に隔離する。
func responseIsValid(body string) bool {
	return strings.Contains(body, "is_valid:true")
}

// ExtractSteamID はclaimed_idの末尾セグメントからSteamIDを抽出する。
// パターンに一致しない（数字がない、空文字列）場合はErrMalformedClaimedIDを返す。
func ExtractSteamID(claimedID string) (string, error) {
	match := steamIDPattern.FindStringSubmatch(claimedID)
	if match == nil {
		return "", ErrMalformedClaimedID
	}
	return match[1], nil
}

// compile-time interface check
var _ OpenIDProvider = (*SteamOpenIDProvider)(nil)
