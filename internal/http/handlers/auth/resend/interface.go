package resend

import "context"

// Service повторно отправляет письмо с подтверждением.
type Service interface {
	ResendVerifyEmail(ctx context.Context, email string) error
}
