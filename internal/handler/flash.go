package handler

import (
	"encoding/base64"
	"net/http"
)

const (
	flashCookieName = "flash"
	flashMaxAge     = 60 // 秒
)

// setFlash は次のページ描画で一度だけ表示するメッセージをCookieに保存する。
// Cookie値に使えない文字を含むためbase64urlで符号化する。
func setFlash(w http.ResponseWriter, message string, secure bool) {
	http.SetCookie(w, &http.Cookie{
		Name:     flashCookieName,
		Value:    base64.RawURLEncoding.EncodeToString([]byte(message)),
		Path:     "/",
		MaxAge:   flashMaxAge,
		HttpOnly: true,
		Secure:   secure,
		SameSite: http.SameSiteLaxMode,
	})
}

// popFlash はフラッシュメッセージを取り出し、Cookieを削除する。
func popFlash(w http.ResponseWriter, r *http.Request) string {
	cookie, err := r.Cookie(flashCookieName)
	if err != nil || cookie.Value == "" {
		return ""
	}

	http.SetCookie(w, &http.Cookie{
		Name:     flashCookieName,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})

	msg, err := base64.RawURLEncoding.DecodeString(cookie.Value)
	if err != nil {
		return ""
	}
	return string(msg)
}
