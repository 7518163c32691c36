package middleware

import (
	"log/slog"
	"net/http"
	"runtime/debug"

	"github.com/hitoshi/gameforum/internal/model"
)

// NewRecoveryMiddleware はpanic発生時にプロセスクラッシュを防ぎ、
// 500エラーページを返すミドルウェアを生成する。
func NewRecoveryMiddleware(errorPage ErrorPageFunc) func(next http.Handler) http.Handler {
	if errorPage == nil {
		errorPage = WritePlainError
	}
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			defer func() {
				if rec := recover(); rec != nil {
					if rec == http.ErrAbortHandler {
						panic(rec)
					}
					slog.Error("panic recovered",
						slog.Any("panic", rec),
						slog.String("method", r.Method),
						slog.String("path", r.URL.Path),
						slog.String("stack", string(debug.Stack())),
					)
					errorPage(w, r, http.StatusInternalServerError, model.NewInternalError())
				}
			}()
			next.ServeHTTP(w, r)
		})
	}
}
