// Package resend содержит обработчик повторной отправки письма с подтверждением почты.
package resend

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/middleware"
	"github.com/go-chi/render"
	"github.com/go-playground/validator"

	"github.com/magabrotheeeer/user-auth/internal/http/response"
	"github.com/magabrotheeeer/user-auth/internal/lib/sl"
	services "github.com/magabrotheeeer/user-auth/internal/services/auth"
)

// MsgSent — ответ на успешную повторную отправку.
const MsgSent = "Verification email sent"

// Request — адрес, на который нужно повторить письмо.
type Request struct {
	Email string `json:"email" validate:"required,email"`
}

type Handler struct {
	log      *slog.Logger
	service  Service
	validate *validator.Validate
}

func New(log *slog.Logger, service Service) *Handler {
	return &Handler{
		log:      log,
		service:  service,
		validate: validator.New(),
	}
}

// ServeHTTP godoc
// @Summary Повторная отправка письма с подтверждением
// @Tags users
// @Accept json
// @Produce json
// @Param request body Request true "Email"
// @Success 200 {object} response.MessageResponse
// @Failure 400 {object} response.ErrorResponse
// @Failure 404 {object} response.ErrorResponse
// @Router /api/users/verify [post]
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	const op = "handlers.auth.resend"

	log := h.log.With(
		slog.String("op", op),
		slog.String("request_id", middleware.GetReqID(r.Context())),
	)

	var req Request
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		log.Info("failed to decode request body", sl.Err(err))
		render.Status(r, http.StatusBadRequest)
		render.JSON(w, r, response.Error(response.MsgInvalidBody))
		return
	}

	if err := h.validate.Struct(req); err != nil {
		log.Info("validation failed", sl.Err(err))
		render.Status(r, http.StatusBadRequest)
		render.JSON(w, r, response.ValidationError(err.(validator.ValidationErrors)))
		return
	}

	err := h.service.ResendVerifyEmail(r.Context(), req.Email)
	switch {
	case errors.Is(err, services.ErrNotFound):
		log.Info("user not found")
		render.Status(r, http.StatusNotFound)
		render.JSON(w, r, response.Error(response.MsgUserNotFound))
		return
	case errors.Is(err, services.ErrAlreadyVerified):
		log.Info("email already verified")
		render.Status(r, http.StatusBadRequest)
		render.JSON(w, r, response.Error(response.MsgAlreadyVerified))
		return
	case err != nil:
		log.Error("failed to resend verification email", sl.Err(err))
		render.Status(r, http.StatusInternalServerError)
		render.JSON(w, r, response.Error(response.MsgInternal))
		return
	}
	log.Info("verification email resent")

	render.JSON(w, r, response.Message(MsgSent))
}
