// Package services содержит жизненный цикл учётной записи: регистрацию,
// подтверждение почты, вход, выход и обновление профиля пользователя.
package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"

	"github.com/magabrotheeeer/user-auth/internal/lib/gravatar"
	"github.com/magabrotheeeer/user-auth/internal/lib/imageproc"
	"github.com/magabrotheeeer/user-auth/internal/lib/jwt"
	"github.com/magabrotheeeer/user-auth/internal/lib/password"
	"github.com/magabrotheeeer/user-auth/internal/lib/sl"
	"github.com/magabrotheeeer/user-auth/internal/models"
	"github.com/magabrotheeeer/user-auth/internal/storage"
)

var (
	ErrEmailInUse          = errors.New("email in use")
	ErrNotFound            = errors.New("user not found")
	ErrAlreadyVerified     = errors.New("verification has already been passed")
	ErrInvalidCredentials  = errors.New("email or password is wrong")
	ErrUnauthorized        = errors.New("not authorized")
	ErrNoFile              = errors.New("no file uploaded")
	ErrInvalidImage        = errors.New("unsupported image")
	ErrInvalidSubscription = errors.New("invalid subscription")
	ErrPasswordTooLong     = errors.New("password too long")
)

// UserRepository описывает контракт хранилища пользователей.
type UserRepository interface {
	CreateUser(ctx context.Context, user models.User) (*models.User, error)
	GetUserByEmail(ctx context.Context, email string) (*models.User, error)
	GetUserByID(ctx context.Context, userID string) (*models.User, error)
	// VerifyUser атомарно подтверждает почту и очищает токен подтверждения.
	VerifyUser(ctx context.Context, verificationToken string) (*models.User, error)
	UpdateToken(ctx context.Context, userID, token string) error
	UpdateAvatar(ctx context.Context, userID, avatarURL string) error
	UpdateSubscription(ctx context.Context, userID, subscription string) (*models.User, error)
}

// Hasher хэширует и сверяет пароли.
type Hasher interface {
	Hash(password string) (string, error)
	Compare(hash, password string) error
}

// Mailer отправляет письмо со ссылкой подтверждения почты.
type Mailer interface {
	SendVerification(ctx context.Context, email, token string) error
}

// Resizer приводит изображение к размеру аватара на месте. Нечитаемое
// изображение должно давать ошибку imageproc.ErrDecode.
type Resizer interface {
	Resize(path string) error
}

// AvatarStore переносит файл из временного каталога в постоянное хранилище
// и возвращает публичную ссылку на него.
type AvatarStore interface {
	Move(ctx context.Context, tmpPath, name string) (string, error)
}

// Cache кэширует профиль пользователя между запросами.
type Cache interface {
	Get(ctx context.Context, key string, result any) (bool, error)
	Set(ctx context.Context, key string, value any, expiration time.Duration) error
	Invalidate(ctx context.Context, key string) error
}

// Dependencies — внешние зависимости AuthService. Cache может быть nil.
type Dependencies struct {
	Users    UserRepository
	Hasher   Hasher
	JWTMaker jwt.Maker
	Mailer   Mailer
	Avatars  AvatarStore
	Resizer  Resizer
	Cache    Cache
	CacheTTL time.Duration
}

// SignupInput — данные регистрации.
type SignupInput struct {
	Name     string
	Email    string
	Password string
}

// UploadedFile — загруженный во временный каталог файл аватара.
type UploadedFile struct {
	TmpPath  string
	Filename string
}

// AuthService управляет жизненным циклом учётной записи.
type AuthService struct {
	log      *slog.Logger
	users    UserRepository
	hasher   Hasher
	jwtMaker jwt.Maker
	mailer   Mailer
	avatars  AvatarStore
	resizer  Resizer
	cache    Cache
	cacheTTL time.Duration
	newToken func() string
}

// NewAuthService создает новый экземпляр AuthService.
func NewAuthService(log *slog.Logger, deps Dependencies) *AuthService {
	return &AuthService{
		log:      log,
		users:    deps.Users,
		hasher:   deps.Hasher,
		jwtMaker: deps.JWTMaker,
		mailer:   deps.Mailer,
		avatars:  deps.Avatars,
		resizer:  deps.Resizer,
		cache:    deps.Cache,
		cacheTTL: deps.CacheTTL,
		newToken: uuid.NewString,
	}
}

// cachedUser — запись профиля в кэше. Секретов в ней нет: ни хэша пароля,
// ни токенов, поэтому сессию по кэшу не проверяют.
type cachedUser struct {
	UUID         string `json:"id"`
	Name         string `json:"name,omitempty"`
	Email        string `json:"email"`
	Subscription string `json:"subscription"`
	AvatarURL    string `json:"avatarURL"`
	Verified     bool   `json:"verified"`
}

func cacheKey(userID string) string {
	return "user:" + userID
}

// Signup регистрирует пользователя и отправляет письмо с подтверждением.
// Уникальность почты гарантирует хранилище, предварительная проверка лишь
// экономит хэширование пароля.
func (s *AuthService) Signup(ctx context.Context, in SignupInput) (models.PublicUser, error) {
	const op = "services.AuthService.Signup"
	if len(in.Password) > password.MaxBytes {
		return models.PublicUser{}, ErrPasswordTooLong
	}
	email := models.NormalizeEmail(in.Email)

	_, err := s.users.GetUserByEmail(ctx, email)
	switch {
	case err == nil:
		return models.PublicUser{}, ErrEmailInUse
	case !errors.Is(err, storage.ErrUserNotFound):
		return models.PublicUser{}, fmt.Errorf("%s: %w", op, err)
	}

	hashed, err := s.hasher.Hash(in.Password)
	if err != nil {
		return models.PublicUser{}, fmt.Errorf("%s: %w", op, err)
	}

	created, err := s.users.CreateUser(ctx, models.User{
		Name:              in.Name,
		Email:             email,
		PasswordHash:      hashed,
		Subscription:      models.SubscriptionStarter,
		AvatarURL:         gravatar.URL(email, gravatar.DefaultSize),
		VerificationToken: s.newToken(),
	})
	if errors.Is(err, storage.ErrUserExists) {
		return models.PublicUser{}, ErrEmailInUse
	}
	if err != nil {
		return models.PublicUser{}, fmt.Errorf("%s: %w", op, err)
	}

	if err := s.mailer.SendVerification(ctx, created.Email, created.VerificationToken); err != nil {
		s.log.Error("failed to send verification email",
			slog.String("op", op),
			slog.String("user_id", created.UUID),
			sl.Err(err))
	}
	return created.Public(), nil
}

// Verify подтверждает почту по токену. Токен одноразовый.
func (s *AuthService) Verify(ctx context.Context, verificationToken string) error {
	const op = "services.AuthService.Verify"

	user, err := s.users.VerifyUser(ctx, verificationToken)
	if errors.Is(err, storage.ErrUserNotFound) {
		return ErrNotFound
	}
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	s.invalidate(ctx, user.UUID)
	return nil
}

// ResendVerifyEmail повторно отправляет письмо с тем же токеном подтверждения.
func (s *AuthService) ResendVerifyEmail(ctx context.Context, email string) error {
	const op = "services.AuthService.ResendVerifyEmail"

	user, err := s.users.GetUserByEmail(ctx, models.NormalizeEmail(email))
	if errors.Is(err, storage.ErrUserNotFound) {
		return ErrNotFound
	}
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	if user.Verified {
		return ErrAlreadyVerified
	}
	if err := s.mailer.SendVerification(ctx, user.Email, user.VerificationToken); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	return nil
}

// Signin проверяет учётные данные, выпускает JWT и сохраняет его как
// текущую сессию. Предыдущая сессия перестаёт действовать.
func (s *AuthService) Signin(ctx context.Context, email, rawPassword string) (string, models.PublicUser, error) {
	const op = "services.AuthService.Signin"

	user, err := s.users.GetUserByEmail(ctx, models.NormalizeEmail(email))
	if errors.Is(err, storage.ErrUserNotFound) {
		return "", models.PublicUser{}, ErrInvalidCredentials
	}
	if err != nil {
		return "", models.PublicUser{}, fmt.Errorf("%s: %w", op, err)
	}
	if err := s.hasher.Compare(user.PasswordHash, rawPassword); err != nil {
		return "", models.PublicUser{}, ErrInvalidCredentials
	}
	if !user.Verified {
		return "", models.PublicUser{}, ErrInvalidCredentials
	}

	token, err := s.jwtMaker.GenerateToken(user.UUID)
	if err != nil {
		return "", models.PublicUser{}, fmt.Errorf("%s: %w", op, err)
	}
	if err := s.users.UpdateToken(ctx, user.UUID, token); err != nil {
		return "", models.PublicUser{}, fmt.Errorf("%s: %w", op, err)
	}
	s.invalidate(ctx, user.UUID)
	return token, user.Profile(), nil
}

// Authenticate проверяет bearer-токен и возвращает владельца сессии.
// Токен действителен, только пока совпадает с сохранённым у пользователя,
// поэтому сверка всегда идёт с хранилищем. Профиль при этом обновляется в кэше.
func (s *AuthService) Authenticate(ctx context.Context, token string) (*models.User, error) {
	const op = "services.AuthService.Authenticate"
	if token == "" {
		return nil, ErrUnauthorized
	}

	claims, err := s.jwtMaker.ParseToken(token)
	if err != nil {
		return nil, ErrUnauthorized
	}

	user, err := s.users.GetUserByID(ctx, claims.UserID)
	if errors.Is(err, storage.ErrUserNotFound) {
		return nil, ErrUnauthorized
	}
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	if user.Token == "" || user.Token != token {
		return nil, ErrUnauthorized
	}
	s.storeProfile(ctx, user)
	user.PasswordHash = ""
	user.VerificationToken = ""
	return user, nil
}

// Logout завершает текущую сессию пользователя.
func (s *AuthService) Logout(ctx context.Context, userID string) error {
	const op = "services.AuthService.Logout"

	err := s.users.UpdateToken(ctx, userID, "")
	if errors.Is(err, storage.ErrUserNotFound) {
		return ErrUnauthorized
	}
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	s.invalidate(ctx, userID)
	return nil
}

// Current возвращает email и тариф пользователя.
func (s *AuthService) Current(ctx context.Context, userID string) (models.PublicUser, error) {
	const op = "services.AuthService.Current"

	user, err := s.loadUser(ctx, userID)
	if errors.Is(err, storage.ErrUserNotFound) {
		return models.PublicUser{}, ErrUnauthorized
	}
	if err != nil {
		return models.PublicUser{}, fmt.Errorf("%s: %w", op, err)
	}
	return user.Profile(), nil
}

// UpdateAvatar уменьшает загруженное изображение, переносит его в постоянное
// хранилище под именем <userID>_<filename> и сохраняет новую ссылку.
// Временный файл удаляется в любом случае.
func (s *AuthService) UpdateAvatar(ctx context.Context, userID string, file *UploadedFile) (string, error) {
	const op = "services.AuthService.UpdateAvatar"
	if file == nil || file.TmpPath == "" {
		return "", ErrNoFile
	}
	defer s.removeTmp(file.TmpPath)

	if err := s.resizer.Resize(file.TmpPath); err != nil {
		if errors.Is(err, imageproc.ErrDecode) {
			s.log.Info("uploaded avatar is not an image", slog.String("op", op), sl.Err(err))
			return "", ErrInvalidImage
		}
		return "", fmt.Errorf("%s: %w", op, err)
	}

	name := userID + "_" + filepath.Base(file.Filename)
	avatarURL, err := s.avatars.Move(ctx, file.TmpPath, name)
	if err != nil {
		return "", fmt.Errorf("%s: %w", op, err)
	}

	err = s.users.UpdateAvatar(ctx, userID, avatarURL)
	if errors.Is(err, storage.ErrUserNotFound) {
		return "", ErrUnauthorized
	}
	if err != nil {
		return "", fmt.Errorf("%s: %w", op, err)
	}
	s.invalidate(ctx, userID)
	return avatarURL, nil
}

// UpdateSubscription меняет тариф пользователя.
func (s *AuthService) UpdateSubscription(ctx context.Context, userID, subscription string) (models.PublicUser, error) {
	const op = "services.AuthService.UpdateSubscription"
	if !models.ValidSubscription(subscription) {
		return models.PublicUser{}, ErrInvalidSubscription
	}

	user, err := s.users.UpdateSubscription(ctx, userID, subscription)
	if errors.Is(err, storage.ErrUserNotFound) {
		return models.PublicUser{}, ErrNotFound
	}
	if err != nil {
		return models.PublicUser{}, fmt.Errorf("%s: %w", op, err)
	}
	s.storeProfile(ctx, user)
	return user.Profile(), nil
}

func (s *AuthService) loadUser(ctx context.Context, userID string) (*models.User, error) {
	if s.cache != nil {
		var cached cachedUser
		found, err := s.cache.Get(ctx, cacheKey(userID), &cached)
		if err != nil {
			s.log.Warn("failed to read user from cache", slog.String("user_id", userID), sl.Err(err))
		}
		if found {
			return &models.User{
				UUID:         cached.UUID,
				Name:         cached.Name,
				Email:        cached.Email,
				Subscription: cached.Subscription,
				AvatarURL:    cached.AvatarURL,
				Verified:     cached.Verified,
			}, nil
		}
	}

	user, err := s.users.GetUserByID(ctx, userID)
	if err != nil {
		return nil, err
	}
	s.storeProfile(ctx, user)
	return user, nil
}

// storeProfile записывает в кэш свежий профиль, прочитанный из хранилища.
func (s *AuthService) storeProfile(ctx context.Context, user *models.User) {
	if s.cache == nil {
		return
	}
	entry := cachedUser{
		UUID:         user.UUID,
		Name:         user.Name,
		Email:        user.Email,
		Subscription: user.Subscription,
		AvatarURL:    user.AvatarURL,
		Verified:     user.Verified,
	}
	if err := s.cache.Set(ctx, cacheKey(user.UUID), entry, s.cacheTTL); err != nil {
		s.log.Warn("failed to cache user", slog.String("user_id", user.UUID), sl.Err(err))
	}
}

func (s *AuthService) invalidate(ctx context.Context, userID string) {
	if s.cache == nil {
		return
	}
	if err := s.cache.Invalidate(ctx, cacheKey(userID)); err != nil {
		s.log.Warn("failed to invalidate cached user", slog.String("user_id", userID), sl.Err(err))
	}
}

func (s *AuthService) removeTmp(path string) {
	if err := os.Remove(path); err != nil && !errors.Is(err, os.ErrNotExist) {
		s.log.Warn("failed to remove temporary avatar", slog.String("path", path), sl.Err(err))
	}
}
