package verify

import "context"

// Service подтверждает почту пользователя.
type Service interface {
	Verify(ctx context.Context, verificationToken string) error
}
