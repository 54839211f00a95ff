package middlewarectx

import (
	"errors"
	"io"
	"log/slog"
	"net/http"
	"os"
	"path/filepath"
	"strings"

	"github.com/go-chi/chi/middleware"
	"github.com/go-chi/render"

	"github.com/magabrotheeeer/user-auth/internal/http/response"
	"github.com/magabrotheeeer/user-auth/internal/lib/imageproc"
	"github.com/magabrotheeeer/user-auth/internal/lib/sl"
	services "github.com/magabrotheeeer/user-auth/internal/services/auth"
)

// AvatarField — имя поля multipart-формы с файлом аватара.
const AvatarField = "avatar"

const multipartMemory = 1 << 20

// Upload сохраняет файл из поля field во временный каталог tmpDir и кладёт его
// в контекст. Запрос без файла пропускается дальше без изменений, решение
// об ошибке принимает обработчик. Временный файл удаляется после ответа,
// если обработчик его не забрал.
func Upload(log *slog.Logger, tmpDir, field string, maxBytes int64) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			const op = "middlewarectx.Upload"

			log := log.With(
				slog.String("op", op),
				slog.String("request_id", middleware.GetReqID(r.Context())),
			)

			if !strings.HasPrefix(r.Header.Get("Content-Type"), "multipart/form-data") {
				next.ServeHTTP(w, r)
				return
			}

			r.Body = http.MaxBytesReader(w, r.Body, maxBytes)
			src, header, err := r.FormFile(field)
			if r.MultipartForm != nil {
				defer func() { _ = r.MultipartForm.RemoveAll() }()
			}
			var maxErr *http.MaxBytesError
			switch {
			case errors.Is(err, http.ErrMissingFile):
				next.ServeHTTP(w, r)
				return
			case errors.As(err, &maxErr):
				log.Info("upload too large", slog.Int64("limit", maxErr.Limit))
				render.Status(r, http.StatusRequestEntityTooLarge)
				render.JSON(w, r, response.Error(response.MsgFileTooLarge))
				return
			case err != nil:
				log.Info("failed to read multipart form", sl.Err(err))
				render.Status(r, http.StatusBadRequest)
				render.JSON(w, r, response.Error(response.MsgInvalidBody))
				return
			}
			defer src.Close()

			if !imageproc.Supported(header.Filename) {
				log.Info("unsupported upload", slog.String("filename", header.Filename))
				render.Status(r, http.StatusBadRequest)
				render.JSON(w, r, response.Error(response.MsgUnsupportedImage))
				return
			}

			tmpPath, err := saveTemp(src, tmpDir, strings.ToLower(filepath.Ext(header.Filename)))
			if err != nil {
				log.Error("failed to store upload", sl.Err(err))
				render.Status(r, http.StatusInternalServerError)
				render.JSON(w, r, response.Error(response.MsgInternal))
				return
			}
			defer func() {
				if err := os.Remove(tmpPath); err != nil && !errors.Is(err, os.ErrNotExist) {
					log.Warn("failed to remove temporary upload", sl.Err(err))
				}
			}()

			file := &services.UploadedFile{
				TmpPath:  tmpPath,
				Filename: filepath.Base(header.Filename),
			}
			next.ServeHTTP(w, r.WithContext(WithFile(r.Context(), file)))
		})
	}
}

func saveTemp(src io.Reader, dir, ext string) (string, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", err
	}
	dst, err := os.CreateTemp(dir, "upload-*"+ext)
	if err != nil {
		return "", err
	}
	if _, err := io.Copy(dst, src); err != nil {
		_ = dst.Close()
		_ = os.Remove(dst.Name())
		return "", err
	}
	if err := dst.Close(); err != nil {
		_ = os.Remove(dst.Name())
		return "", err
	}
	return dst.Name(), nil
}
