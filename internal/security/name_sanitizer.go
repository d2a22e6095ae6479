// Package security はアプリケーションのセキュリティ機能を提供する。
//
// NameSanitizerService はSteam APIから取得したペルソナ名・ゲーム名を
// サニタイズし、XSS攻撃などのセキュリティリスクからユーザーを保護する。
// これらの文字列は第三者が自由に設定できる値であり、そのままUIに
// 表示されるため、保存前にHTMLタグを全て除去する。
package security

import "github.com/microcosm-cc/bluemonday"

// NameSanitizerService は表示名のサニタイズ機能のインターフェースを定義する。
// Steam APIレスポンスの保存前に使用される。
type NameSanitizerService interface {
	// Sanitize は表示名からHTMLタグを全て除去したプレーンテキストを返す。
	// 空文字列の入力には空文字列を返す。
	// 同一入力に対して常に同一出力を返す（冪等）。
	Sanitize(name string) string
}

// nameSanitizer はNameSanitizerServiceの実装。
// bluemondayのStrictPolicyを保持し、スレッドセーフにサニタイズ処理を行う。
type nameSanitizer struct {
	policy *bluemonday.Policy
}

// NewNameSanitizer はNameSanitizerServiceの新しいインスタンスを生成する。
// StrictPolicyは全てのHTML要素と属性を除去し、テキストのみを通過させる。
func NewNameSanitizer() *nameSanitizer {
	return &nameSanitizer{
		policy: bluemonday.StrictPolicy(),
	}
}

// Sanitize は表示名からHTMLタグを全て除去したプレーンテキストを返す。
func (s *nameSanitizer) Sanitize(name string) string {
	return s.policy.Sanitize(name)
}
