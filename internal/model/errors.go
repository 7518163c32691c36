// Package model はドメインモデルを定義する。
package model

import "fmt"

// AppError はユーザーに提示するアプリケーションエラーを表す。
// エラーページに表示する原因カテゴリと対処方法を含む。
type AppError struct {
	Code     string // エラーコード
	Message  string // エラーメッセージ
	Category string // カテゴリ: auth, validation, post, system
	Action   string // ユーザー向け対処方法
}

// Error はerrorインターフェースを実装する。
func (e *AppError) Error() string {
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

// 定義済みエラーコード
const (
	ErrCodeNotFound         = "NOT_FOUND"
	ErrCodeUserNotFound     = "USER_NOT_FOUND"
	ErrCodePostNotFound     = "POST_NOT_FOUND"
	ErrCodeForbidden        = "FORBIDDEN"
	ErrCodeValidationFailed = "VALIDATION_FAILED"
	ErrCodeDuplicateEmail   = "DUPLICATE_EMAIL"
	ErrCodeInternal         = "INTERNAL_ERROR"
)

// NewPageNotFoundError は存在しないURLにアクセスした場合のエラーを生成する。
func NewPageNotFoundError() *AppError {
	return &AppError{
		Code:     ErrCodeNotFound,
		Message:  "ページが見つかりません。",
		Category: "system",
		Action:   "URLを確認してください。",
	}
}

// NewUserNotFoundError はユーザーが見つからない場合のエラーを生成する。
func NewUserNotFoundError() *AppError {
	return &AppError{
		Code:     ErrCodeUserNotFound,
		Message:  "ユーザーが見つかりません。",
		Category: "auth",
		Action:   "URLを確認してください。",
	}
}

// NewPostNotFoundError は投稿が見つからない場合のエラーを生成する。
func NewPostNotFoundError(postID string) *AppError {
	return &AppError{
		Code:     ErrCodePostNotFound,
		Message:  fmt.Sprintf("投稿が見つかりません: %s", postID),
		Category: "post",
		Action:   "投稿一覧から対象の投稿を確認してください。",
	}
}

// NewForbiddenError は投稿者でも管理者でもないユーザーが変更操作を行った場合のエラーを生成する。
func NewForbiddenError() *AppError {
	return &AppError{
		Code:     ErrCodeForbidden,
		Message:  "この投稿を変更する権限がありません。",
		Category: "auth",
		Action:   "投稿者本人または管理者のみが編集・削除できます。",
	}
}

// NewAdminRequiredError は管理者専用ページに一般ユーザーがアクセスした場合のエラーを生成する。
func NewAdminRequiredError() *AppError {
	return &AppError{
		Code:     ErrCodeForbidden,
		Message:  "このページにアクセスする権限がありません。",
		Category: "auth",
		Action:   "管理者アカウントでログインしてください。",
	}
}

// NewValidationError は入力値が不正な場合のエラーを生成する。
func NewValidationError(reason string) *AppError {
	return &AppError{
		Code:     ErrCodeValidationFailed,
		Message:  fmt.Sprintf("入力内容が正しくありません: %s", reason),
		Category: "validation",
		Action:   "入力内容を確認して再度送信してください。",
	}
}

// NewDuplicateEmailError は登録済みのメールアドレスで登録しようとした場合のエラーを生成する。
func NewDuplicateEmailError() *AppError {
	return &AppError{
		Code:     ErrCodeDuplicateEmail,
		Message:  "このメールアドレスは既に登録されています。",
		Category: "validation",
		Action:   "別のメールアドレスを使用するか、ログインしてください。",
	}
}

// NewInternalError は内部エラーの汎用エラーを生成する。
// 詳細はログのみに記録し、ユーザーには一般的なメッセージを返す。
func NewInternalError() *AppError {
	return &AppError{
		Code:     ErrCodeInternal,
		Message:  "内部エラーが発生しました。",
		Category: "system",
		Action:   "しばらく待ってから再度お試しください。",
	}
}
