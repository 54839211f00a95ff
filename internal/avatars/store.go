// Package avatars перемещает обработанные аватары из временного каталога
// в постоянное хранилище и возвращает их публичные ссылки.
package avatars

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path"
	"path/filepath"
	"strings"
	"syscall"
)

// URLPrefix — путь, по которому раздаются локальные аватары.
const URLPrefix = "/avatars"

// LocalStore хранит аватары в каталоге на диске, который раздаётся как статика.
type LocalStore struct {
	dir string
}

// NewLocalStore создаёт LocalStore и каталог dir, если его нет.
func NewLocalStore(dir string) (*LocalStore, error) {
	const op = "avatars.NewLocalStore"
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return &LocalStore{dir: dir}, nil
}

// Dir возвращает каталог хранения.
func (s *LocalStore) Dir() string {
	return s.dir
}

// Move переносит файл tmpPath в каталог хранилища под именем name.
// После успешного вызова временного файла больше нет.
func (s *LocalStore) Move(_ context.Context, tmpPath, name string) (string, error) {
	const op = "avatars.LocalStore.Move"
	name, err := cleanName(name)
	if err != nil {
		return "", fmt.Errorf("%s: %w", op, err)
	}
	dst := filepath.Join(s.dir, name)

	err = os.Rename(tmpPath, dst)
	if errors.Is(err, syscall.EXDEV) {
		err = copyAndRemove(tmpPath, dst)
	}
	if err != nil {
		return "", fmt.Errorf("%s: %w", op, err)
	}
	return path.Join(URLPrefix, name), nil
}

// copyAndRemove используется, когда tmp и каталог хранилища на разных устройствах.
func copyAndRemove(src, dst string) error {
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()

	out, err := os.OpenFile(dst, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0o644)
	if err != nil {
		return err
	}
	if _, err = io.Copy(out, in); err != nil {
		_ = out.Close()
		_ = os.Remove(dst)
		return err
	}
	if err = out.Close(); err != nil {
		return err
	}
	return os.Remove(src)
}

func cleanName(name string) (string, error) {
	base := filepath.Base(name)
	if base == "." || base == string(filepath.Separator) || strings.HasPrefix(base, "..") || base != name {
		return "", fmt.Errorf("invalid file name %q", name)
	}
	return base, nil
}
