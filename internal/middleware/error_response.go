package middleware

import (
	"fmt"
	"net/http"

	"github.com/hitoshi/gameforum/internal/model"
)

// ErrorPageFunc はAppErrorをエラーページとして描画する関数。
// ハンドラー層がテンプレートを使った実装を注入する。
type ErrorPageFunc func(w http.ResponseWriter, r *http.Request, statusCode int, appErr *model.AppError)

// WritePlainError はテンプレートを使わずにエラーをプレーンテキストで書き込む。
// テンプレート描画自体が失敗した場合のフォールバックにも使用する。
func WritePlainError(w http.ResponseWriter, _ *http.Request, statusCode int, appErr *model.AppError) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.Header().Set("X-Content-Type-Options", "nosniff")
	w.WriteHeader(statusCode)
	fmt.Fprintf(w, "%s\n%s\n", appErr.Message, appErr.Action)
}
