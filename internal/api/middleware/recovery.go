package middleware

import (
	"net/http"
	"runtime/debug"

	"limitbot/pkg/utils"
)

// Recovery - middleware для восстановления после паники в handlers.
// Паника логируется со stack trace, клиент получает 500 без подробностей.
func Recovery(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		defer func() {
			if err := recover(); err != nil {
				utils.L().WithComponent("http").Error("panic in handler",
					utils.Any("panic", err),
					utils.String("path", r.URL.Path),
					utils.String("stack", string(debug.Stack())),
				)

				http.Error(w, "Internal Server Error", http.StatusInternalServerError)
			}
		}()

		next.ServeHTTP(w, r)
	})
}
