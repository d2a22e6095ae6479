package middleware

import (
	"context"
	"net/http"

	"github.com/google/uuid"
)

// requestIDHeader はリクエストIDを伝搬するHTTPヘッダー名。
const requestIDHeader = "X-Request-Id"

// requestIDContextKey はリクエストコンテキストにリクエストIDを格納するためのキー。
var requestIDContextKey = contextKey("request_id")

// NewRequestIDMiddleware はリクエストごとに一意なIDを割り当てるミドルウェアを返す。
// クライアントがX-Request-Idヘッダーを送信した場合はそれを引き継ぎ、
// なければUUIDを新規発行する。IDはレスポンスヘッダーにも設定される。
func NewRequestIDMiddleware() func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			requestID := r.Header.Get(requestIDHeader)
			if requestID == "" {
				requestID = uuid.NewString()
			}

			w.Header().Set(requestIDHeader, requestID)

			ctx := context.WithValue(r.Context(), requestIDContextKey, requestID)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// RequestIDFromContext はリクエストコンテキストからリクエストIDを取得する。
// 未設定の場合は空文字列を返す。
func RequestIDFromContext(ctx context.Context) string {
	requestID, _ := ctx.Value(requestIDContextKey).(string)
	return requestID
}
