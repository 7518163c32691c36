// Package view は埋め込みHTMLテンプレートによるページ描画を提供する。
package view

import (
	"bytes"
	"embed"
	"fmt"
	"html/template"
	"io"
	"time"

	"github.com/hitoshi/gameforum/internal/authz"
	"github.com/hitoshi/gameforum/internal/model"
)

//go:embed templates/*.html
var templateFS embed.FS

// ページ名
const (
	PageLogin    = "login"
	PageRegister = "register"
	PageIndex    = "index"
	PageProfile  = "profile"
	PageEdit     = "edit"
	PageAdmin    = "admin"
	PageError    = "error"
)

var pageNames = []string{PageLogin, PageRegister, PageIndex, PageProfile, PageEdit, PageAdmin, PageError}

// Base は全ページ共通の表示内容。
type Base struct {
	Title string
	User  *model.User // ログイン中のユーザー。未認証の場合はnil
	Flash string
}

// AuthPage はログイン・登録ページの表示内容。
type AuthPage struct {
	Base
}

// IndexPage はトップページの表示内容。
type IndexPage struct {
	Base
	Posts []model.PostWithAuthor
}

// ProfilePage はプロフィールページの表示内容。
// Ownがtrueの場合は自分のプロフィールとして描画する。
type ProfilePage struct {
	Base
	Owner *model.User
	Posts []model.PostWithAuthor
	Own   bool
}

// EditPage は投稿編集ページの表示内容。
type EditPage struct {
	Base
	Post *model.Post
}

// AdminPage は管理ページの表示内容。
type AdminPage struct {
	Base
	Users []*model.User
	Roles []model.Role
}

// ErrorPage はエラーページの表示内容。
type ErrorPage struct {
	Base
	Status int
	Error  *model.AppError
}

// Renderer はページ名ごとにレイアウトと結合済みのテンプレートを保持する。
type Renderer struct {
	pages map[string]*template.Template
}

// New は埋め込みテンプレートをすべてパースしたRendererを生成する。
func New() (*Renderer, error) {
	funcs := template.FuncMap{
		"canMutate": canMutate,
		"postBody":  postBody,
		"date":      formatDate,
	}

	pages := make(map[string]*template.Template, len(pageNames))
	for _, name := range pageNames {
		tmpl, err := template.New("layout.html").Funcs(funcs).ParseFS(templateFS,
			"templates/layout.html",
			"templates/"+name+".html",
		)
		if err != nil {
			return nil, fmt.Errorf("failed to parse template %s: %w", name, err)
		}
		pages[name] = tmpl
	}
	return &Renderer{pages: pages}, nil
}

// Render は指定ページをwに描画する。
// 描画が途中で失敗しても部分的なHTMLを書き込まない。
func (r *Renderer) Render(w io.Writer, name string, data any) error {
	tmpl, ok := r.pages[name]
	if !ok {
		return fmt.Errorf("unknown page %q", name)
	}

	var buf bytes.Buffer
	if err := tmpl.ExecuteTemplate(&buf, "layout", data); err != nil {
		return fmt.Errorf("failed to render %s: %w", name, err)
	}
	_, err := buf.WriteTo(w)
	return err
}

// canMutate は閲覧者に投稿の編集・削除操作を表示するかを返す。
func canMutate(post model.Post, viewer *model.User) bool {
	return authz.CanMutate(&post, viewer.Identity())
}

// postBody は保存時にサニタイズ済みの本文をHTMLとして出力する。
func postBody(content string) template.HTML {
	return template.HTML(content)
}

func formatDate(t time.Time) string {
	return t.Format("2006-01-02 15:04")
}
