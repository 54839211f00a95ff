// Package storage реализует хранилище пользователей на основе PostgreSQL.
// Уникальность email обеспечивается ограничением таблицы, а не предварительной
// проверкой в сервисе.
package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/jackc/pgerrcode"
	"github.com/jackc/pgx/v5/pgconn"
	// Регистрация драйвера pgx для использования с database/sql.
	_ "github.com/jackc/pgx/v5/stdlib"

	"github.com/magabrotheeeer/user-auth/internal/models"
)

var (
	// ErrUserNotFound возвращается, когда пользователь не найден.
	ErrUserNotFound = errors.New("user not found")
	// ErrUserExists возвращается при нарушении уникальности email.
	ErrUserExists = errors.New("user already exists")
)

// Storage инкапсулирует соединение с базой данных PostgreSQL.
type Storage struct {
	DB *sql.DB
}

// New создаёт подключение к PostgreSQL и проверяет его.
func New(ctx context.Context, storageConnectionString string) (*Storage, error) {
	const op = "storage.New"

	db, err := sql.Open("pgx", storageConnectionString)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	if err = db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	return &Storage{
		DB: db,
	}, nil
}

// Close закрывает пул соединений.
func (s *Storage) Close() error {
	return s.DB.Close()
}

const userColumns = `uid, name, email, password_hash, subscription, avatar_url,
	verification_token, verify, token, created_at`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanUser(row rowScanner) (*models.User, error) {
	var (
		u                        models.User
		name, verifyToken, token sql.NullString
	)
	if err := row.Scan(&u.UUID, &name, &u.Email, &u.PasswordHash, &u.Subscription, &u.AvatarURL,
		&verifyToken, &u.Verified, &token, &u.CreatedAt); err != nil {
		return nil, err
	}
	u.Name = name.String
	u.VerificationToken = verifyToken.String
	u.Token = token.String
	return &u, nil
}

func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}

// mapError приводит ошибки драйвера к ошибкам пакета.
func mapError(err error) error {
	if errors.Is(err, sql.ErrNoRows) {
		return ErrUserNotFound
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		switch pgErr.Code {
		case pgerrcode.UniqueViolation:
			return ErrUserExists
		case pgerrcode.InvalidTextRepresentation:
			return ErrUserNotFound
		}
	}
	return err
}

// CreateUser сохраняет нового пользователя и возвращает его с присвоенным ID.
func (s *Storage) CreateUser(ctx context.Context, user models.User) (*models.User, error) {
	const op = "storage.CreateUser"

	query := `INSERT INTO users (name, email, password_hash, subscription, avatar_url,
			      verification_token, verify)
			  VALUES ($1, $2, $3, $4, $5, $6, $7)
			  RETURNING ` + userColumns
	row := s.DB.QueryRowContext(ctx, query,
		nullString(user.Name), user.Email, user.PasswordHash, user.Subscription, user.AvatarURL,
		nullString(user.VerificationToken), user.Verified)
	created, err := scanUser(row)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, mapError(err))
	}
	return created, nil
}

// GetUserByEmail возвращает пользователя по email.
func (s *Storage) GetUserByEmail(ctx context.Context, email string) (*models.User, error) {
	const op = "storage.GetUserByEmail"

	query := `SELECT ` + userColumns + ` FROM users WHERE lower(email) = lower($1)`
	u, err := scanUser(s.DB.QueryRowContext(ctx, query, email))
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, mapError(err))
	}
	return u, nil
}

// GetUserByID возвращает пользователя по идентификатору.
func (s *Storage) GetUserByID(ctx context.Context, userID string) (*models.User, error) {
	const op = "storage.GetUserByID"

	query := `SELECT ` + userColumns + ` FROM users WHERE uid = $1`
	u, err := scanUser(s.DB.QueryRowContext(ctx, query, userID))
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, mapError(err))
	}
	return u, nil
}

// VerifyUser находит пользователя по токену подтверждения, отмечает почту
// подтверждённой и очищает токен одним UPDATE. Повторный вызов с тем же
// токеном возвращает ErrUserNotFound.
func (s *Storage) VerifyUser(ctx context.Context, verificationToken string) (*models.User, error) {
	const op = "storage.VerifyUser"
	if verificationToken == "" {
		return nil, fmt.Errorf("%s: %w", op, ErrUserNotFound)
	}

	query := `UPDATE users
			  SET verify = true, verification_token = NULL, updated_at = NOW()
			  WHERE verification_token = $1
			  RETURNING ` + userColumns
	u, err := scanUser(s.DB.QueryRowContext(ctx, query, verificationToken))
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, mapError(err))
	}
	return u, nil
}

// UpdateToken записывает сессионный токен пользователя. Пустая строка очищает токен.
func (s *Storage) UpdateToken(ctx context.Context, userID, token string) error {
	const op = "storage.UpdateToken"

	query := `UPDATE users SET token = $1, updated_at = NOW() WHERE uid = $2`
	return s.execOne(ctx, op, query, nullString(token), userID)
}

// UpdateAvatar заменяет ссылку на аватар пользователя.
func (s *Storage) UpdateAvatar(ctx context.Context, userID, avatarURL string) error {
	const op = "storage.UpdateAvatar"

	query := `UPDATE users SET avatar_url = $1, updated_at = NOW() WHERE uid = $2`
	return s.execOne(ctx, op, query, avatarURL, userID)
}

// UpdateSubscription меняет тариф пользователя и возвращает обновлённую запись.
func (s *Storage) UpdateSubscription(ctx context.Context, userID, subscription string) (*models.User, error) {
	const op = "storage.UpdateSubscription"

	query := `UPDATE users SET subscription = $1, updated_at = NOW()
			  WHERE uid = $2
			  RETURNING ` + userColumns
	u, err := scanUser(s.DB.QueryRowContext(ctx, query, subscription, userID))
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, mapError(err))
	}
	return u, nil
}

func (s *Storage) execOne(ctx context.Context, op, query string, args ...any) error {
	result, err := s.DB.ExecContext(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("%s: %w", op, mapError(err))
	}
	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	if rowsAffected == 0 {
		return fmt.Errorf("%s: %w", op, ErrUserNotFound)
	}
	return nil
}
