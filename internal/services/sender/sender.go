// Package services содержит отправку писем с подтверждением почты через SMTP.
package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/url"
	"strings"

	"github.com/magabrotheeeer/user-auth/internal/lib/rabbitmq"
	"github.com/magabrotheeeer/user-auth/internal/lib/sl"
	"github.com/magabrotheeeer/user-auth/internal/lib/smtp"
	"github.com/magabrotheeeer/user-auth/internal/models"
)

// VerifyPath — путь, по которому пользователь подтверждает почту.
const VerifyPath = "/api/users/verify/"

// VerificationLink возвращает ссылку подтверждения почты для токена.
func VerificationLink(baseURL, token string) string {
	return strings.TrimRight(baseURL, "/") + VerifyPath + url.PathEscape(token)
}

// SenderService отправляет письма через SMTP транспорт.
type SenderService struct {
	transport smtp.TransportInterface
	baseURL   string
	log       *slog.Logger
}

// NewSenderService создает новый экземпляр SenderService.
func NewSenderService(log *slog.Logger, transport smtp.TransportInterface, baseURL string) *SenderService {
	return &SenderService{
		transport: transport,
		baseURL:   baseURL,
		log:       log,
	}
}

// SendVerification отправляет письмо со ссылкой подтверждения почты.
func (s *SenderService) SendVerification(_ context.Context, email, token string) error {
	return s.sendVerification(models.VerificationMessage{
		Email: email,
		Token: token,
		Link:  VerificationLink(s.baseURL, token),
	})
}

// HandleVerificationMessage обрабатывает сообщение из очереди писем с подтверждением.
// Нечитаемое сообщение возвращает ошибку rabbitmq.ErrPermanent.
func (s *SenderService) HandleVerificationMessage(body []byte) error {
	var message models.VerificationMessage
	if err := json.Unmarshal(body, &message); err != nil {
		s.log.Error("failed to unmarshal message body", sl.Err(err))
		return rabbitmq.Permanent(fmt.Errorf("error unmarshalling message: %w", err))
	}
	if message.Email == "" || message.Token == "" {
		return rabbitmq.Permanent(errors.New("verification message without email or token"))
	}
	if message.Link == "" {
		message.Link = VerificationLink(s.baseURL, message.Token)
	}
	return s.sendVerification(message)
}

func (s *SenderService) sendVerification(message models.VerificationMessage) error {
	subject := "Verify your email"
	bodyText := fmt.Sprintf("Hello!\r\n\r\nPlease confirm your email address by opening the link below:\r\n%s\r\n\r\n"+
		"If you did not sign up, ignore this message.", message.Link)

	return s.sendEmail([]string{message.Email}, subject, bodyText)
}

func (s *SenderService) sendEmail(to []string, subject, bodyText string) error {
	msg := strings.Join([]string{
		"From: " + s.transport.GetSMTPUser(),
		"To: " + strings.Join(to, ";"),
		"Subject: " + subject,
		"MIME-Version: 1.0",
		"Content-Type: text/plain; charset=\"UTF-8\"",
		"",
		bodyText,
	}, "\r\n")

	client, err := s.transport.Connect()
	if err != nil {
		s.log.Error("failed to connect to SMTP server", sl.Err(err))
		return err
	}
	defer client.Close()

	if err := client.Mail(s.transport.GetSMTPUser()); err != nil {
		s.log.Error("failed to set MAIL FROM", slog.String("from", s.transport.GetSMTPUser()), sl.Err(err))
		return err
	}

	for _, addr := range to {
		if err := client.Rcpt(addr); err != nil {
			s.log.Error("failed to set RCPT TO", slog.String("recipient", addr), sl.Err(err))
			return err
		}
	}

	wc, err := client.Data()
	if err != nil {
		s.log.Error("failed to get Data writer", sl.Err(err))
		return err
	}

	if _, err = wc.Write([]byte(msg)); err != nil {
		s.log.Error("failed to write email body", sl.Err(err))
		return err
	}

	if err = wc.Close(); err != nil {
		s.log.Error("failed to close Data writer", sl.Err(err))
		return err
	}

	if err = client.Quit(); err != nil {
		s.log.Error("failed to quit SMTP client", sl.Err(err))
		return err
	}

	s.log.Info("email sent successfully", slog.Any("to", to))
	return nil
}
