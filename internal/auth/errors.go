package auth

import "errors"

// FailureKind は認証失敗の種別。
type FailureKind int

const (
	// FailureUserNotFound は該当するメールアドレスのユーザーが存在しないことを示す。
	FailureUserNotFound FailureKind = iota + 1
	// FailureBadPassword はパスワードがダイジェストと一致しないことを示す。
	FailureBadPassword
)

// AuthFailure は資格情報の検証に失敗したことを表すエラー。
// ストアの障害とは区別され、ログイン画面へのリダイレクトで扱われる。
type AuthFailure struct {
	Kind FailureKind
}

func (e *AuthFailure) Error() string {
	switch e.Kind {
	case FailureUserNotFound:
		return "auth: user not found"
	case FailureBadPassword:
		return "auth: bad password"
	default:
		return "auth: authentication failed"
	}
}

// Is は同じ種別のAuthFailureと一致する。
func (e *AuthFailure) Is(target error) bool {
	t, ok := target.(*AuthFailure)
	return ok && t.Kind == e.Kind
}

var (
	// ErrUserNotFound はメールアドレスに一致するユーザーがいない場合のエラー。
	ErrUserNotFound = &AuthFailure{Kind: FailureUserNotFound}
	// ErrBadPassword はパスワードが一致しない場合のエラー。
	ErrBadPassword = &AuthFailure{Kind: FailureBadPassword}
)

// ログイン失敗時にユーザーへ表示するメッセージ
const (
	msgUserNotFound = "ユーザーが見つかりません"
	msgBadPassword  = "パスワードが正しくありません"
	msgUnified      = "メールアドレスまたはパスワードが正しくありません"
	msgLoginError   = "ログインに失敗しました。しばらく待ってから再度お試しください"
)

// FailureMessage はログイン失敗のエラーからユーザー向けメッセージを返す。
// unifiedがtrueの場合、ユーザー不在とパスワード不一致を同じ文言にする。
func FailureMessage(err error, unified bool) string {
	var failure *AuthFailure
	if !errors.As(err, &failure) {
		return msgLoginError
	}
	if unified {
		return msgUnified
	}
	if failure.Kind == FailureUserNotFound {
		return msgUserNotFound
	}
	return msgBadPassword
}
