// Package current содержит обработчик получения профиля текущего пользователя.
package current

import (
	"context"
	"errors"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/middleware"
	"github.com/go-chi/render"

	"github.com/magabrotheeeer/user-auth/internal/http/middlewarectx"
	"github.com/magabrotheeeer/user-auth/internal/http/response"
	"github.com/magabrotheeeer/user-auth/internal/lib/sl"
	"github.com/magabrotheeeer/user-auth/internal/models"
	services "github.com/magabrotheeeer/user-auth/internal/services/auth"
)

// Service возвращает профиль пользователя.
type Service interface {
	Current(ctx context.Context, userID string) (models.PublicUser, error)
}

type Handler struct {
	log     *slog.Logger
	service Service
}

func New(log *slog.Logger, service Service) *Handler {
	return &Handler{
		log:     log,
		service: service,
	}
}

// ServeHTTP godoc
// @Summary Текущий пользователь
// @Tags users
// @Produce json
// @Security BearerAuth
// @Success 200 {object} models.PublicUser
// @Failure 401 {object} response.ErrorResponse
// @Router /api/users/current [get]
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	const op = "handlers.auth.current"

	log := h.log.With(
		slog.String("op", op),
		slog.String("request_id", middleware.GetReqID(r.Context())),
	)

	user, ok := middlewarectx.UserFromContext(r.Context())
	if !ok {
		log.Error("user missing in context")
		render.Status(r, http.StatusUnauthorized)
		render.JSON(w, r, response.Error(response.MsgNotAuthorized))
		return
	}

	profile, err := h.service.Current(r.Context(), user.UUID)
	if errors.Is(err, services.ErrUnauthorized) {
		render.Status(r, http.StatusUnauthorized)
		render.JSON(w, r, response.Error(response.MsgNotAuthorized))
		return
	}
	if err != nil {
		log.Error("failed to load profile", sl.Err(err))
		render.Status(r, http.StatusInternalServerError)
		render.JSON(w, r, response.Error(response.MsgInternal))
		return
	}

	render.JSON(w, r, profile)
}
