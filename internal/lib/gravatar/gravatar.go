// Package gravatar строит ссылки на аватары Gravatar по адресу почты.
package gravatar

import (
	"crypto/md5" //nolint:gosec // Gravatar адресует аватары по md5 от email.
	"encoding/hex"
	"net/url"
	"strconv"
	"strings"
)

const baseURL = "https://www.gravatar.com/avatar/"

// DefaultSize — размер аватара по умолчанию в пикселях.
const DefaultSize = 200

// Hash возвращает md5-хэш нормализованного email.
func Hash(email string) string {
	sum := md5.Sum([]byte(strings.ToLower(strings.TrimSpace(email)))) //nolint:gosec
	return hex.EncodeToString(sum[:])
}

// URL возвращает ссылку на аватар заданного размера.
// Результат детерминирован: одинаковый email всегда даёт одну и ту же ссылку.
func URL(email string, size int) string {
	if size <= 0 {
		size = DefaultSize
	}
	q := url.Values{}
	q.Set("s", strconv.Itoa(size))
	return baseURL + Hash(email) + "?" + q.Encode()
}
