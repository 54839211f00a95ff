package signin

import (
	"context"

	"github.com/magabrotheeeer/user-auth/internal/models"
)

// Service выполняет вход пользователя.
type Service interface {
	Signin(ctx context.Context, email, password string) (string, models.PublicUser, error)
}
