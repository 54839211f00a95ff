// Package models содержит доменную модель пользователя системы
// и её публичные проекции, которые безопасно возвращать клиенту.
package models

import (
	"strings"
	"time"
)

// Тарифы подписки пользователя.
const (
	SubscriptionStarter  = "starter"
	SubscriptionPro      = "pro"
	SubscriptionBusiness = "business"
)

// User представляет зарегистрированного пользователя системы.
type User struct {
	UUID              string    // Уникальный идентификатор пользователя
	Name              string    // Отображаемое имя, может быть пустым
	Email             string    // Электронная почта (уникальная)
	PasswordHash      string    // Хэш пароля пользователя
	Subscription      string    // Тариф: starter, pro или business
	AvatarURL         string    // Ссылка на аватар
	VerificationToken string    // Токен подтверждения почты, пуст после подтверждения
	Verified          bool      // Признак подтверждённой почты
	Token             string    // Текущий сессионный токен, пуст после logout
	CreatedAt         time.Time // Дата регистрации
}

// PublicUser — публичная проекция пользователя без хэша пароля и токенов.
type PublicUser struct {
	Email        string `json:"email"`
	Subscription string `json:"subscription"`
	AvatarURL    string `json:"avatarURL,omitempty"`
}

// Public возвращает публичную проекцию пользователя.
func (u *User) Public() PublicUser {
	return PublicUser{
		Email:        u.Email,
		Subscription: u.Subscription,
		AvatarURL:    u.AvatarURL,
	}
}

// Profile возвращает email и тариф без аватара.
func (u *User) Profile() PublicUser {
	return PublicUser{
		Email:        u.Email,
		Subscription: u.Subscription,
	}
}

// NormalizeEmail приводит адрес к виду, в котором он хранится и сравнивается.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// ValidSubscription сообщает, является ли строка допустимым тарифом.
func ValidSubscription(s string) bool {
	switch s {
	case SubscriptionStarter, SubscriptionPro, SubscriptionBusiness:
		return true
	}
	return false
}

// VerificationMessage — сообщение для очереди отправки писем с подтверждением.
type VerificationMessage struct {
	Email string `json:"email"`
	Token string `json:"token"`
	Link  string `json:"link"`
}
