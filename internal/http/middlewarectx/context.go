package middlewarectx

import (
	"context"

	"github.com/magabrotheeeer/user-auth/internal/models"
	services "github.com/magabrotheeeer/user-auth/internal/services/auth"
)

// Key тип для ключей контекста HTTP-запроса.
type Key string

const (
	// User — ключ для аутентифицированного пользователя в контексте.
	User Key = "user"
	// File — ключ для загруженного во временный каталог файла.
	File Key = "file"
)

// WithUser кладёт пользователя в контекст.
func WithUser(ctx context.Context, user *models.User) context.Context {
	return context.WithValue(ctx, User, user)
}

// UserFromContext достаёт пользователя, положенного Authenticate.
func UserFromContext(ctx context.Context) (*models.User, bool) {
	user, ok := ctx.Value(User).(*models.User)
	return user, ok && user != nil
}

// WithFile кладёт загруженный файл в контекст.
func WithFile(ctx context.Context, file *services.UploadedFile) context.Context {
	return context.WithValue(ctx, File, file)
}

// FileFromContext достаёт файл, сохранённый Upload. Возвращает nil, если файла нет.
func FileFromContext(ctx context.Context) *services.UploadedFile {
	file, _ := ctx.Value(File).(*services.UploadedFile)
	return file
}
