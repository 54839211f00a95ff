// Package sender собирает сервис доставки писем: читает очередь писем
// с подтверждением почты и отправляет их через SMTP.
package sender

import (
	"context"
	"log/slog"

	"github.com/streadway/amqp"

	"github.com/magabrotheeeer/user-auth/internal/config"
	"github.com/magabrotheeeer/user-auth/internal/lib/rabbitmq"
	"github.com/magabrotheeeer/user-auth/internal/lib/sl"
	"github.com/magabrotheeeer/user-auth/internal/lib/smtp"
	senderservice "github.com/magabrotheeeer/user-auth/internal/services/sender"
)

type App struct {
	conn          *amqp.Connection
	ch            *amqp.Channel
	senderService *senderservice.SenderService
	logger        *slog.Logger
}

func New(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*App, error) {
	conn, err := rabbitmq.Connect(ctx, cfg.RabbitMQURL, cfg.RabbitMQRetries, cfg.RabbitMQDelay)
	if err != nil {
		return nil, err
	}

	ch, err := rabbitmq.SetupChannel(conn, rabbitmq.MailExchange, rabbitmq.GetMailQueues())
	if err != nil {
		_ = conn.Close()
		return nil, err
	}

	transport := smtp.NewTransport(cfg.SMTP, logger)
	senderService := senderservice.NewSenderService(logger, transport, cfg.BaseURL)

	return &App{
		conn:          conn,
		ch:            ch,
		senderService: senderService,
		logger:        logger,
	}, nil
}

func (a *App) Run(ctx context.Context) error {
	a.logger.Info("consuming verification emails", slog.String("queue", rabbitmq.VerificationQueue))
	err := rabbitmq.ConsumeMessages(ctx, a.ch, rabbitmq.VerificationQueue, a.logger, a.senderService.HandleVerificationMessage)
	if err != nil {
		a.logger.Error("failed to consume verification queue", sl.Err(err))
	}

	a.logger.Info("Sender service shutting down gracefully")

	if closeErr := a.ch.Close(); closeErr != nil {
		a.logger.Error("failed to close channel", sl.Err(closeErr))
	}
	if closeErr := a.conn.Close(); closeErr != nil {
		a.logger.Error("failed to close connection", sl.Err(closeErr))
	}
	return err
}
