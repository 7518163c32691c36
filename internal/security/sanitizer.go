// Package security はユーザー投稿コンテンツのサニタイズを提供する。
//
// 投稿本文は保存前にbluemondayの許可リストポリシーを通し、
// テンプレートでは信頼済みHTMLとして描画する。
package security

import (
	"html"
	"strings"

	"github.com/microcosm-cc/bluemonday"
)

// Sanitizer は投稿コンテンツのサニタイズ機能のインターフェース。
type Sanitizer interface {
	// SanitizeContent は投稿本文を許可リストでサニタイズしたHTMLを返す。
	SanitizeContent(raw string) string
	// StripTags はすべてのタグを除去したプレーンテキストを返す。前後の空白も除去する。
	StripTags(raw string) string
}

// PostSanitizer は投稿用のSanitizer実装。
// bluemondayのポリシーはスレッドセーフなため、1インスタンスを共有できる。
type PostSanitizer struct {
	content *bluemonday.Policy
	strict  *bluemonday.Policy
}

// NewPostSanitizer はPostSanitizerを生成する。
// ポリシーの内容:
//   - 許可タグ: p, br, ul, ol, li, blockquote, pre, code, strong, em, b, i, a
//   - aタグ: http/httpsのhrefのみ、rel="nofollow noreferrer noopener"とtarget="_blank"を付与
//   - 画像と埋め込みは許可しない
func NewPostSanitizer() *PostSanitizer {
	p := bluemonday.NewPolicy()

	p.AllowElements(
		"p", "br", "ul", "ol", "li",
		"blockquote", "pre", "code",
		"strong", "em", "b", "i",
	)

	p.AllowAttrs("href").OnElements("a")
	p.AllowURLSchemes("http", "https")
	p.AllowRelativeURLs(false)
	p.RequireNoFollowOnLinks(true)
	p.RequireNoReferrerOnLinks(true)
	p.AddTargetBlankToFullyQualifiedLinks(true)

	return &PostSanitizer{
		content: p,
		strict:  bluemonday.StrictPolicy(),
	}
}

// SanitizeContent は投稿本文をサニタイズする。
func (s *PostSanitizer) SanitizeContent(raw string) string {
	return strings.TrimSpace(s.content.Sanitize(raw))
}

// StripTags はタイトルなどプレーンテキスト項目からタグを除去する。
// エスケープはテンプレート側で行うため、エンティティは元の文字に戻す。
func (s *PostSanitizer) StripTags(raw string) string {
	return strings.TrimSpace(html.UnescapeString(s.strict.Sanitize(raw)))
}

// compile-time interface check
var _ Sanitizer = (*PostSanitizer)(nil)
