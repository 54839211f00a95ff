// Package imageproc выполняет обработку загруженных изображений.
package imageproc

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/disintegration/imaging"
)

// ErrDecode — содержимое файла не удалось прочитать как изображение.
var ErrDecode = errors.New("cannot decode image")

// SupportedExtensions — расширения файлов, которые умеет читать и писать Resizer.
var SupportedExtensions = map[string]struct{}{
	".jpg":  {},
	".jpeg": {},
	".png":  {},
	".gif":  {},
	".bmp":  {},
}

// Supported сообщает, можно ли обработать файл с таким именем.
func Supported(filename string) bool {
	_, ok := SupportedExtensions[strings.ToLower(filepath.Ext(filename))]
	return ok
}

// Resizer приводит изображение к квадрату фиксированного размера.
type Resizer struct {
	size int
}

// NewResizer создаёт Resizer с размером стороны size пикселей.
func NewResizer(size int) *Resizer {
	return &Resizer{size: size}
}

// Resize читает файл по пути path, масштабирует его до size x size
// и перезаписывает на месте. Формат определяется по расширению файла.
// Ошибки разбора изображения оборачивают ErrDecode, ошибки ввода-вывода нет.
func (r *Resizer) Resize(path string) error {
	const op = "imageproc.Resize"
	if !Supported(path) {
		return fmt.Errorf("%s: %w: unsupported format %q", op, ErrDecode, filepath.Ext(path))
	}
	file, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	img, err := imaging.Decode(file, imaging.AutoOrientation(true))
	_ = file.Close()
	if err != nil {
		return fmt.Errorf("%s: %w: %w", op, ErrDecode, err)
	}
	resized := imaging.Resize(img, r.size, r.size, imaging.Lanczos)
	if err := imaging.Save(resized, path); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	return nil
}
