package auth

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi"
	"github.com/go-chi/chi/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	httpSwagger "github.com/swaggo/http-swagger"

	"github.com/magabrotheeeer/user-auth/internal/avatars"
	"github.com/magabrotheeeer/user-auth/internal/http/handlers/auth/avatar"
	"github.com/magabrotheeeer/user-auth/internal/http/handlers/auth/current"
	"github.com/magabrotheeeer/user-auth/internal/http/handlers/auth/logout"
	"github.com/magabrotheeeer/user-auth/internal/http/handlers/auth/resend"
	"github.com/magabrotheeeer/user-auth/internal/http/handlers/auth/signin"
	"github.com/magabrotheeeer/user-auth/internal/http/handlers/auth/signup"
	"github.com/magabrotheeeer/user-auth/internal/http/handlers/auth/subscription"
	"github.com/magabrotheeeer/user-auth/internal/http/handlers/auth/verify"
	"github.com/magabrotheeeer/user-auth/internal/http/middlewarectx"
	"github.com/magabrotheeeer/user-auth/internal/metrics"
)

// Service — всё, что маршрутам нужно от сервиса аутентификации.
type Service interface {
	signup.Service
	verify.Service
	resend.Service
	signin.Service
	current.Service
	logout.Service
	avatar.Service
	subscription.Service
	middlewarectx.Authenticator
}

// RouteConfig — настройки маршрутов, не относящиеся к сервису.
type RouteConfig struct {
	TmpDir         string
	MaxUploadBytes int64
	// StaticDir — каталог локальных аватаров. Пустой, если аватары хранятся вне сервиса.
	StaticDir string
	RateLimit float64
	RateBurst int
}

// RegisterRoutes регистрирует все маршруты приложения.
func RegisterRoutes(r chi.Router, logger *slog.Logger, service Service, httpMetrics *metrics.HTTP, rc RouteConfig) {
	// Глобальные middleware
	r.Use(
		middleware.RequestID,
		middleware.Logger,
		middleware.Recoverer,
		httpMetrics.Middleware,
	)

	limit := middlewarectx.RateLimit(logger, rc.RateLimit, rc.RateBurst)

	r.Route("/api/users", func(r chi.Router) {
		// Открытые конечные точки
		r.With(limit).Post("/signup", signup.New(logger, service).ServeHTTP)
		r.With(limit).Post("/signin", signin.New(logger, service).ServeHTTP)
		r.With(limit).Post("/verify", resend.New(logger, service).ServeHTTP)
		r.Get("/verify/{"+verify.TokenParam+"}", verify.New(logger, service).ServeHTTP)

		// Группа с проверкой сессии
		r.Group(func(r chi.Router) {
			r.Use(middlewarectx.Authenticate(logger, service))
			r.Get("/current", current.New(logger, service).ServeHTTP)
			r.Post("/logout", logout.New(logger, service).ServeHTTP)
			r.Patch("/", subscription.New(logger, service).ServeHTTP)
			r.With(middlewarectx.Upload(logger, rc.TmpDir, middlewarectx.AvatarField, rc.MaxUploadBytes)).
				Patch("/avatars", avatar.New(logger, service).ServeHTTP)
		})
	})

	if rc.StaticDir != "" {
		r.Handle(avatars.URLPrefix+"/*",
			http.StripPrefix(avatars.URLPrefix+"/", http.FileServer(http.Dir(rc.StaticDir))))
	}

	r.Handle("/metrics", promhttp.Handler())
	// Swagger docs endpoint
	r.Get("/docs/*", httpSwagger.WrapHandler)
}
