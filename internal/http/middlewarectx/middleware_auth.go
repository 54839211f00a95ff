// Package middlewarectx содержит HTTP middleware сервиса: проверку сессии,
// приём загружаемых файлов и ограничение частоты запросов.
//
// Authenticate проверяет bearer-токен из заголовка Authorization и кладёт
// владельца сессии в контекст запроса. При ошибке проверки возвращает
// HTTP 401 Unauthorized с сообщением "Not authorized".
package middlewarectx

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"github.com/go-chi/chi/middleware"
	"github.com/go-chi/render"

	"github.com/magabrotheeeer/user-auth/internal/http/response"
	"github.com/magabrotheeeer/user-auth/internal/lib/sl"
	"github.com/magabrotheeeer/user-auth/internal/models"
	services "github.com/magabrotheeeer/user-auth/internal/services/auth"
)

// Authenticator описывает сервис, проверяющий сессионный токен.
type Authenticator interface {
	Authenticate(ctx context.Context, token string) (*models.User, error)
}

// Authenticate возвращает middleware, пропускающий только запросы с действующей сессией.
func Authenticate(log *slog.Logger, auth Authenticator) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			const op = "middlewarectx.Authenticate"

			log := log.With(
				slog.String("op", op),
				slog.String("request_id", middleware.GetReqID(r.Context())),
			)

			bearer, token, found := strings.Cut(r.Header.Get("Authorization"), " ")
			if !found || bearer != "Bearer" || token == "" {
				log.Info("missing or invalid authorization header")
				render.Status(r, http.StatusUnauthorized)
				render.JSON(w, r, response.Error(response.MsgNotAuthorized))
				return
			}

			user, err := auth.Authenticate(r.Context(), token)
			if errors.Is(err, services.ErrUnauthorized) {
				log.Info("session rejected")
				render.Status(r, http.StatusUnauthorized)
				render.JSON(w, r, response.Error(response.MsgNotAuthorized))
				return
			}
			if err != nil {
				log.Error("failed to authenticate", sl.Err(err))
				render.Status(r, http.StatusInternalServerError)
				render.JSON(w, r, response.Error(response.MsgInternal))
				return
			}

			next.ServeHTTP(w, r.WithContext(WithUser(r.Context(), user)))
		})
	}
}
