package model

import "time"

// Post はフォーラムの投稿を表す。
// AuthorIDは作成後に変更されない。
type Post struct {
	ID        string
	AuthorID  string
	Title     string
	Content   string // サニタイズ済みHTML
	CreatedAt time.Time
	UpdatedAt time.Time
}

// PostWithAuthor は投稿と投稿者情報を結合したモデル。
// usersテーブルとJOINして取得される。
type PostWithAuthor struct {
	Post
	AuthorName  string
	AuthorEmail string
}

// PostFilter は投稿一覧の絞り込み条件を表す。
// AuthorIDが空の場合は全投稿を対象とする。
type PostFilter struct {
	AuthorID string
}
