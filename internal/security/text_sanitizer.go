// Package security はアプリケーションのセキュリティ機能を提供する。
//
// TextSanitizer は治験名や説明文などのユーザー入力からHTMLマークアップを除去し、
// 保存されたテキストがUIでスクリプトとして解釈されることを防ぐ。
// bluemondayのStrictPolicyを使用し、すべてのタグを除去してテキストのみを残す。
package security

import (
	"html"
	"strings"

	"github.com/microcosm-cc/bluemonday"
)

// TextSanitizer はプレーンテキスト入力のサニタイズ機能のインターフェース。
type TextSanitizer interface {
	// Sanitize はタグを除去したプレーンテキストを返す。
	// script/styleタグはその内容ごと除去される。
	// タグ以外の文字（&, < など）はエスケープされずにそのまま残る。
	// エンティティで書かれたタグも復元後に除去される。
	// 出力を再度渡しても変化しない（冪等）。
	Sanitize(raw string) string
}

// textSanitizer はTextSanitizerの実装。
// bluemondayのポリシーはスレッドセーフなので共有して使用する。
type textSanitizer struct {
	policy *bluemonday.Policy
}

// NewTextSanitizer はTextSanitizerの新しいインスタンスを生成する。
func NewTextSanitizer() TextSanitizer {
	return &textSanitizer{
		policy: bluemonday.StrictPolicy(),
	}
}

// maxSanitizePasses はアンエスケープで現れたタグを除去し直す最大回数。
const maxSanitizePasses = 8

// Sanitize はタグを除去したプレーンテキストを返す。
// StrictPolicyの出力はHTMLエスケープされているため保存用にアンエスケープするが、
// エンティティで書かれたタグ（&lt;script&gt; など）がそこで復元されるので、
// 出力が変化しなくなるまで除去を繰り返す。
func (s *textSanitizer) Sanitize(raw string) string {
	out := raw
	for i := 0; i < maxSanitizePasses; i++ {
		if !strings.ContainsAny(out, "<>") {
			return out
		}
		next := html.UnescapeString(s.policy.Sanitize(out))
		if next == out {
			return out
		}
		out = next
	}
	// 収束しない入力はエスケープしたまま保存する
	return s.policy.Sanitize(out)
}
