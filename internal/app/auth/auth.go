// Package auth собирает HTTP API аутентификации пользователей: хранилище,
// кэш, почту, хранилище аватаров и маршруты.
package auth

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/streadway/amqp"

	"github.com/magabrotheeeer/user-auth/internal/avatars"
	"github.com/magabrotheeeer/user-auth/internal/cache"
	"github.com/magabrotheeeer/user-auth/internal/config"
	"github.com/magabrotheeeer/user-auth/internal/lib/imageproc"
	"github.com/magabrotheeeer/user-auth/internal/lib/jwt"
	"github.com/magabrotheeeer/user-auth/internal/lib/password"
	"github.com/magabrotheeeer/user-auth/internal/lib/rabbitmq"
	"github.com/magabrotheeeer/user-auth/internal/lib/sl"
	"github.com/magabrotheeeer/user-auth/internal/lib/smtp"
	"github.com/magabrotheeeer/user-auth/internal/mailqueue"
	"github.com/magabrotheeeer/user-auth/internal/metrics"
	"github.com/magabrotheeeer/user-auth/internal/migrations"
	authservice "github.com/magabrotheeeer/user-auth/internal/services/auth"
	senderservice "github.com/magabrotheeeer/user-auth/internal/services/sender"
	"github.com/magabrotheeeer/user-auth/internal/storage"
)

type App struct {
	server  *http.Server
	logger  *slog.Logger
	db      *storage.Storage
	cache   *cache.Cache
	closers []func() error
}

func New(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*App, error) {
	const op = "app.auth.New"

	db, err := storage.New(ctx, cfg.StorageConnectionString)
	if err != nil {
		return nil, err
	}
	app := &App{logger: logger, db: db}

	if err = migrations.Run(db.DB, cfg.MigrationsPath); err != nil {
		app.close()
		return nil, err
	}

	app.cache, err = cache.InitServer(ctx, cfg.RedisConnection)
	if err != nil {
		app.close()
		return nil, err
	}

	mailer, err := app.newMailer(ctx, cfg)
	if err != nil {
		app.close()
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	store, staticDir, err := newAvatarStore(ctx, cfg.Avatars)
	if err != nil {
		app.close()
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	authService := authservice.NewAuthService(logger, authservice.Dependencies{
		Users:    db,
		Hasher:   password.NewHasher(password.Cost),
		JWTMaker: jwt.NewJWTMaker(cfg.JWTSecretKey, cfg.TokenTTL),
		Mailer:   mailer,
		Avatars:  store,
		Resizer:  imageproc.NewResizer(cfg.AvatarSize),
		Cache:    app.cache,
		CacheTTL: cfg.ProfileTTL,
	})

	router := chi.NewRouter()
	RegisterRoutes(router, logger, authService, metrics.NewHTTP(prometheus.DefaultRegisterer), RouteConfig{
		TmpDir:         cfg.TmpDir,
		MaxUploadBytes: cfg.MaxUploadBytes,
		StaticDir:      staticDir,
		RateLimit:      cfg.RateLimit,
		RateBurst:      cfg.RateBurst,
	})

	app.server = &http.Server{
		Addr:         cfg.AddressHTTP,
		Handler:      router,
		ReadTimeout:  cfg.TimeoutHTTP,
		WriteTimeout: cfg.TimeoutHTTP,
		IdleTimeout:  cfg.IdleTimeout,
	}
	return app, nil
}

// newMailer выбирает доставку писем: сразу через SMTP или через очередь RabbitMQ.
func (a *App) newMailer(ctx context.Context, cfg *config.Config) (authservice.Mailer, error) {
	if cfg.MailerMode != config.MailerQueue {
		transport := smtp.NewTransport(cfg.SMTP, a.logger)
		return senderservice.NewSenderService(a.logger, transport, cfg.BaseURL), nil
	}

	conn, err := rabbitmq.Connect(ctx, cfg.RabbitMQURL, cfg.RabbitMQRetries, cfg.RabbitMQDelay)
	if err != nil {
		return nil, err
	}
	ch, err := rabbitmq.SetupChannel(conn, rabbitmq.MailExchange, rabbitmq.GetMailQueues())
	if err != nil {
		_ = conn.Close()
		return nil, err
	}
	a.closers = append(a.closers, ch.Close, conn.Close)
	return mailqueue.New(ch, cfg.BaseURL), nil
}

// newAvatarStore возвращает хранилище аватаров и каталог для раздачи статики.
// Для S3 каталог пуст: файлы раздаёт сам бакет.
func newAvatarStore(ctx context.Context, cfg config.Avatars) (authservice.AvatarStore, string, error) {
	if cfg.AvatarStorage == config.AvatarStorageS3 {
		store, err := avatars.NewS3Store(ctx, cfg)
		return store, "", err
	}
	store, err := avatars.NewLocalStore(cfg.PublicDir)
	if err != nil {
		return nil, "", err
	}
	return store, store.Dir(), nil
}

func (a *App) Run(ctx context.Context) error {
	errCh := make(chan error, 1)
	go func() {
		a.logger.Info("HTTP server starting on", slog.String("address", a.server.Addr))
		err := a.server.ListenAndServe()
		if errors.Is(err, http.ErrServerClosed) {
			errCh <- nil
		} else {
			errCh <- err
		}
	}()

	select {
	case err := <-errCh:
		a.close()
		return err
	case <-ctx.Done():
		timeoutCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
		defer cancel()
		a.logger.Info("shutting down HTTP server gracefully")
		err := a.server.Shutdown(timeoutCtx)
		a.close()
		return err
	}
}

func (a *App) close() {
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i](); err != nil && !errors.Is(err, amqp.ErrClosed) {
			a.logger.Error("failed to close resource", sl.Err(err))
		}
	}
	if a.cache != nil {
		if err := a.cache.Close(); err != nil {
			a.logger.Error("failed to close redis", sl.Err(err))
		}
	}
	if err := a.db.Close(); err != nil {
		a.logger.Error("failed to close storage", sl.Err(err))
	}
}
