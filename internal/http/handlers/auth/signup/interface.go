package signup

import (
	"context"

	"github.com/magabrotheeeer/user-auth/internal/models"
	services "github.com/magabrotheeeer/user-auth/internal/services/auth"
)

// Service регистрирует пользователей.
type Service interface {
	Signup(ctx context.Context, in services.SignupInput) (models.PublicUser, error)
}
