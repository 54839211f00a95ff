// Package logout содержит обработчик завершения сессии.
package logout

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

// Service завершает сессию пользователя.
type Service interface {
	Logout(ctx context.Context, userID string) error
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
// @Summary Выход пользователя
// @Tags users
// @Security BearerAuth
// @Success 204
// @Failure 401 {object} response.ErrorResponse
// @Router /api/users/logout [post]
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	const op = "handlers.auth.logout"

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

	err := h.service.Logout(r.Context(), user.UUID)
	if errors.Is(err, services.ErrUnauthorized) {
		render.Status(r, http.StatusUnauthorized)
		render.JSON(w, r, response.Error(response.MsgNotAuthorized))
		return
	}
	if err != nil {
		log.Error("failed to log out", sl.Err(err))
		render.Status(r, http.StatusInternalServerError)
		render.JSON(w, r, response.Error(response.MsgInternal))
		return
	}
	log.Info("user logged out")

	w.WriteHeader(http.StatusNoContent)
}
