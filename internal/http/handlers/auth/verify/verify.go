// Package verify содержит обработчик перехода по ссылке подтверждения почты.
package verify

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi"
	"github.com/go-chi/chi/middleware"
	"github.com/go-chi/render"

	"github.com/magabrotheeeer/user-auth/internal/http/response"
	"github.com/magabrotheeeer/user-auth/internal/lib/sl"
	services "github.com/magabrotheeeer/user-auth/internal/services/auth"
)

// TokenParam — имя параметра маршрута с токеном подтверждения.
const TokenParam = "verificationToken"

// MsgVerified — ответ на успешное подтверждение.
const MsgVerified = "Verification successful"

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
// @Summary Подтверждение почты
// @Tags users
// @Produce json
// @Param verificationToken path string true "Токен подтверждения"
// @Success 200 {object} response.MessageResponse
// @Failure 404 {object} response.ErrorResponse
// @Router /api/users/verify/{verificationToken} [get]
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	const op = "handlers.auth.verify"

	log := h.log.With(
		slog.String("op", op),
		slog.String("request_id", middleware.GetReqID(r.Context())),
	)

	token := chi.URLParam(r, TokenParam)
	if token == "" {
		render.Status(r, http.StatusNotFound)
		render.JSON(w, r, response.Error(response.MsgUserNotFound))
		return
	}

	err := h.service.Verify(r.Context(), token)
	if errors.Is(err, services.ErrNotFound) {
		log.Info("verification token not found")
		render.Status(r, http.StatusNotFound)
		render.JSON(w, r, response.Error(response.MsgUserNotFound))
		return
	}
	if err != nil {
		log.Error("failed to verify email", sl.Err(err))
		render.Status(r, http.StatusInternalServerError)
		render.JSON(w, r, response.Error(response.MsgInternal))
		return
	}
	log.Info("email verified")

	render.JSON(w, r, response.Message(MsgVerified))
}
