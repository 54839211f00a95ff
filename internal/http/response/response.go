// Package response содержит вспомогательные типы и функции для формирования
// унифицированных JSON‑ответов HTTP‑обработчиков об ошибках.
package response

import (
	"fmt"
	"strings"

	"github.com/go-playground/validator"
)

// StatusError — значение статуса для ответа с ошибкой.
const StatusError = "Error"

// Тексты ошибок, которые видит клиент.
const (
	MsgInvalidBody         = "Invalid request body"
	MsgEmailInUse          = "Email in use"
	MsgUserNotFound        = "User not found"
	MsgAlreadyVerified     = "Verification has already been passed"
	MsgWrongCredentials    = "Email or password is wrong"
	MsgNotAuthorized       = "Not authorized"
	MsgNoFile              = "No file uploaded"
	MsgUnsupportedImage    = "Unsupported image format"
	MsgFileTooLarge        = "File too large"
	MsgTooManyRequests     = "Too many requests"
	MsgInvalidSubscription = "Subscription must be one of: starter, pro, business"
	MsgPasswordTooLong     = "Password must be at most 72 bytes long"
	MsgInternal            = "Internal server error"
)

// ErrorResponse описывает тело ответа с ошибкой.
type ErrorResponse struct {
	Status  string `json:"status" example:"Error"`
	Message string `json:"message" example:"Not authorized"`
}

// MessageResponse — ответ, содержащий только сообщение.
type MessageResponse struct {
	Message string `json:"message" example:"Verification successful"`
}

// Error возвращает ErrorResponse с переданным сообщением.
func Error(msg string) ErrorResponse {
	return ErrorResponse{
		Status:  StatusError,
		Message: msg,
	}
}

// Message возвращает MessageResponse.
func Message(msg string) MessageResponse {
	return MessageResponse{Message: msg}
}

// ValidationError формирует ErrorResponse на основе ошибок валидации.
// Каждое нарушение формируется в человеко‑читаемый текст, объединённый через запятую.
func ValidationError(errs validator.ValidationErrors) ErrorResponse {
	var errsMsgs []string

	for _, err := range errs {
		field := strings.ToLower(err.Field())
		switch err.ActualTag() {
		case "required":
			errsMsgs = append(errsMsgs, fmt.Sprintf("missing required field %s", field))
		case "email":
			errsMsgs = append(errsMsgs, fmt.Sprintf("field %s must be a valid email", field))
		case "min":
			errsMsgs = append(errsMsgs, fmt.Sprintf("field %s must be at least %s characters long", field, err.Param()))
		case "max":
			errsMsgs = append(errsMsgs, fmt.Sprintf("field %s must be at most %s characters long", field, err.Param()))
		case "oneof":
			errsMsgs = append(errsMsgs, fmt.Sprintf("field %s must be one of: %s", field, strings.ReplaceAll(err.Param(), " ", ", ")))
		default:
			errsMsgs = append(errsMsgs, fmt.Sprintf("field %s is not valid", field))
		}
	}
	return ErrorResponse{
		Status:  StatusError,
		Message: strings.Join(errsMsgs, ", "),
	}
}
