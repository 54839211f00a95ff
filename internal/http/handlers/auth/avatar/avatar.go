// Package avatar содержит обработчик загрузки аватара пользователя.
package avatar

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
	services "github.com/magabrotheeeer/user-auth/internal/services/auth"
)

// Service обновляет аватар пользователя.
type Service interface {
	UpdateAvatar(ctx context.Context, userID string, file *services.UploadedFile) (string, error)
}

// Response — ссылка на новый аватар.
type Response struct {
	AvatarURL string `json:"avatarURL"`
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
// @Summary Загрузка аватара
// @Tags users
// @Accept multipart/form-data
// @Produce json
// @Security BearerAuth
// @Param avatar formData file true "Изображение jpg, png, gif или bmp"
// @Success 200 {object} Response
// @Failure 400 {object} response.ErrorResponse
// @Failure 401 {object} response.ErrorResponse
// @Router /api/users/avatars [patch]
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	const op = "handlers.auth.avatar"

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

	avatarURL, err := h.service.UpdateAvatar(r.Context(), user.UUID, middlewarectx.FileFromContext(r.Context()))
	switch {
	case errors.Is(err, services.ErrNoFile):
		log.Info("avatar file missing")
		render.Status(r, http.StatusBadRequest)
		render.JSON(w, r, response.Error(response.MsgNoFile))
		return
	case errors.Is(err, services.ErrInvalidImage):
		log.Info("avatar is not a readable image")
		render.Status(r, http.StatusBadRequest)
		render.JSON(w, r, response.Error(response.MsgUnsupportedImage))
		return
	case errors.Is(err, services.ErrUnauthorized):
		render.Status(r, http.StatusUnauthorized)
		render.JSON(w, r, response.Error(response.MsgNotAuthorized))
		return
	case err != nil:
		log.Error("failed to update avatar", sl.Err(err))
		render.Status(r, http.StatusInternalServerError)
		render.JSON(w, r, response.Error(response.MsgInternal))
		return
	}
	log.Info("avatar updated", slog.String("avatar_url", avatarURL))

	render.JSON(w, r, Response{AvatarURL: avatarURL})
}
