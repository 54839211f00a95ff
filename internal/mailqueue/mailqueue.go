// Package mailqueue ставит письма с подтверждением почты в очередь RabbitMQ,
// откуда их забирает и отправляет сервис sender.
package mailqueue

import (
	"context"
	"fmt"

	"github.com/magabrotheeeer/user-auth/internal/lib/rabbitmq"
	"github.com/magabrotheeeer/user-auth/internal/models"
	senderservice "github.com/magabrotheeeer/user-auth/internal/services/sender"
)

// Publisher публикует задания на отправку писем.
type Publisher struct {
	ch      rabbitmq.Publisher
	baseURL string
}

// New создаёт Publisher поверх канала RabbitMQ.
func New(ch rabbitmq.Publisher, baseURL string) *Publisher {
	return &Publisher{ch: ch, baseURL: baseURL}
}

// SendVerification публикует сообщение с адресом, токеном и ссылкой подтверждения.
func (p *Publisher) SendVerification(ctx context.Context, email, token string) error {
	const op = "mailqueue.SendVerification"
	if err := ctx.Err(); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	msg := models.VerificationMessage{
		Email: email,
		Token: token,
		Link:  senderservice.VerificationLink(p.baseURL, token),
	}
	if err := rabbitmq.PublishMessage(p.ch, rabbitmq.MailExchange, rabbitmq.VerificationRoutingKey, msg); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	return nil
}
