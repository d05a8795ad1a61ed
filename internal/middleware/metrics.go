package middleware

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
)

// unmatchedRoute はどのルートにも一致しなかったリクエストのラベル。
// 任意のパスをラベルにするとカーディナリティが際限なく増えるため、1つにまとめる。
const unmatchedRoute = "unmatched"

// HTTPRecorder はHTTPリクエストのメトリクスを記録するインターフェース。
// metrics.Collectorが実装する。
type HTTPRecorder interface {
	RecordHTTPRequest(method, route string, statusCode int, duration time.Duration)
}

// NewMetricsMiddleware はルートパターン単位でリクエスト数と処理時間を記録するミドルウェアを返す。
// ルートパターンはchiのルーティング後に確定するため、ハンドラー実行後に取得する。
func NewMetricsMiddleware(rec HTTPRecorder) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			sr := newStatusRecorder(w)

			next.ServeHTTP(sr, r)

			route := unmatchedRoute
			if rctx := chi.RouteContext(r.Context()); rctx != nil {
				if pattern := rctx.RoutePattern(); pattern != "" {
					route = pattern
				}
			}
			rec.RecordHTTPRequest(r.Method, route, sr.statusCode, time.Since(start))
		})
	}
}
