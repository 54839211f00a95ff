package middlewarectx

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/middleware"
	"github.com/go-chi/render"
	"golang.org/x/time/rate"

	"github.com/magabrotheeeer/user-auth/internal/http/response"
)

// RateLimit ограничивает частоту запросов к обёрнутым маршрутам общим
// для всех клиентов лимитом: every запросов в секунду с запасом burst.
func RateLimit(log *slog.Logger, every float64, burst int) func(http.Handler) http.Handler {
	limiter := rate.NewLimiter(rate.Limit(every), burst)
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if !limiter.Allow() {
				log.Warn("too many requests",
					slog.String("path", r.URL.Path),
					slog.String("request_id", middleware.GetReqID(r.Context())))
				render.Status(r, http.StatusTooManyRequests)
				render.JSON(w, r, response.Error(response.MsgTooManyRequests))
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
