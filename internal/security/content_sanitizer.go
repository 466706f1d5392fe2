// Package security はアプリケーションのセキュリティ機能を提供する。
//
// ContentSanitizerService はツイート本文をサニタイズし、
// 保存・配信されるテキストからHTMLタグとイベント属性を除去する。
// ツイートはプレーンテキストのみを想定するため、許可リストは空
// （StrictPolicy）とし、すべてのマークアップを落とす。
package security

import (
	"html"

	"github.com/microcosm-cc/bluemonday"
)

// ContentSanitizerService はテキストサニタイズ機能のインターフェースを定義する。
// ツイートの保存前（作成・更新の両方）に使用される。
type ContentSanitizerService interface {
	// Sanitize は入力テキストからすべてのHTMLマークアップを除去して返す。
	// 空文字列の入力には空文字列を返す。
	// 同一入力に対して常に同一出力を返す（冪等）。
	Sanitize(raw string) string
}

// contentSanitizer はContentSanitizerServiceの実装。
// bluemondayのStrictPolicyを保持し、スレッドセーフにサニタイズ処理を行う。
type contentSanitizer struct {
	policy *bluemonday.Policy
}

// NewContentSanitizer はContentSanitizerServiceの新しいインスタンスを生成する。
// StrictPolicyはすべてのタグ・属性を除去するため、ツイート本文は
// プレーンテキストとして保存される。
func NewContentSanitizer() *contentSanitizer {
	return &contentSanitizer{
		policy: bluemonday.StrictPolicy(),
	}
}

// Sanitize は入力テキストからHTMLマークアップを除去して返す。
// bluemondayはテキストをエンティティエスケープするため、
// "<"や"&"のような通常文字を保つようアンエスケープして返す。
func (s *contentSanitizer) Sanitize(raw string) string {
	if raw == "" {
		return ""
	}
	return html.UnescapeString(s.policy.Sanitize(raw))
}

// compile-time interface check
var _ ContentSanitizerService = (*contentSanitizer)(nil)
